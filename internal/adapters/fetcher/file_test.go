package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func fileURL(path string) string {
	return "file://" + filepath.ToSlash(path)
}

func TestFileFetcher_Fetch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	os.WriteFile(path, []byte("local notes"), 0644)

	res, err := NewFileFetcher().Fetch(context.Background(), fileURL(path))
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if string(body) != "local notes" {
		t.Errorf("unexpected body: %s", body)
	}
	if res.StatusCode != http.StatusOK || !strings.HasPrefix(res.ContentType, "text/plain") {
		t.Errorf("unexpected resource: %d %s", res.StatusCode, res.ContentType)
	}
}

func TestFileFetcher_MissingIs404(t *testing.T) {
	res, err := NewFileFetcher().Fetch(context.Background(), fileURL(filepath.Join(t.TempDir(), "gone.pdf")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", res.StatusCode)
	}
}

func TestMultiFetcher_DispatchByScheme(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("remote"))
	}))
	defer server.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "a.md")
	os.WriteFile(path, []byte("# local"), 0644)

	m := NewMultiFetcher(NewHTTPFetcher(0))
	ctx := context.Background()

	for url, want := range map[string]string{server.URL: "remote", fileURL(path): "# local"} {
		res, err := m.Fetch(ctx, url)
		if err != nil {
			t.Fatalf("fetch %s failed: %v", url, err)
		}
		body, _ := io.ReadAll(res.Body)
		res.Body.Close()
		if string(body) != want {
			t.Errorf("%s: got %q, want %q", url, body, want)
		}
	}

	if _, err := m.Fetch(ctx, "ftp://example.com/a.txt"); err == nil {
		t.Error("unsupported scheme should fail")
	}
	if _, err := m.Fetch(ctx, "no-scheme"); err == nil {
		t.Error("missing scheme should fail")
	}
}
