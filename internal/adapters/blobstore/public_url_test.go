package blobstore

import "testing"

func TestPublicBucket_PublicURL(t *testing.T) {
	b := NewPublicBucket("https://files.example.com/", "project-files")

	tests := []struct {
		path string
		want string
	}{
		{"p1/brief.txt", "https://files.example.com/storage/v1/object/public/project-files/p1/brief.txt"},
		{"/p1/Q3 plan #2.pdf", "https://files.example.com/storage/v1/object/public/project-files/p1/Q3%20plan%20%232.pdf"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := b.PublicURL(tt.path); got != tt.want {
			t.Errorf("PublicURL(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestPublicBucket_NoBaseURL(t *testing.T) {
	if got := NewPublicBucket("", "files").PublicURL("a.txt"); got != "" {
		t.Errorf("expected empty URL without a base, got %q", got)
	}
}
