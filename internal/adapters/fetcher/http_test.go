package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/0xcro3dile/deskmate/internal/domain/usecases"
)

func TestHTTPFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/storage/brief.txt" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("Hello from storage"))
	}))
	defer server.Close()

	f := NewHTTPFetcher(0)
	res, err := f.Fetch(context.Background(), server.URL+"/storage/brief.txt")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if string(body) != "Hello from storage" {
		t.Errorf("unexpected body: %s", body)
	}
	if res.StatusCode != 200 || res.ContentType != "text/plain" {
		t.Errorf("unexpected resource: %d %s", res.StatusCode, res.ContentType)
	}
}

func TestHTTPFetcher_NonSuccessIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	res, err := NewHTTPFetcher(0).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", res.StatusCode)
	}
}

func TestHTTPFetcher_WithExtractor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.txt":
			w.Write([]byte("meeting at noon"))
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer server.Close()

	ex := usecases.NewAttachmentExtractor(NewHTTPFetcher(0), 0, 0, nil)

	got := ex.Extract(context.Background(), server.URL+"/ok.txt", "text/plain", "ok.txt", 15)
	if got == nil || *got != "Content of ok.txt:\n\nmeeting at noon" {
		t.Errorf("unexpected content: %v", got)
	}

	if denied := ex.Extract(context.Background(), server.URL+"/private.txt", "text/plain", "private.txt", 15); denied != nil {
		t.Errorf("forbidden file should yield nil, got %q", *denied)
	}
}

func TestHTTPFetcher_IsHealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	if !NewHTTPFetcher(0).IsHealthy(context.Background(), server.URL) {
		t.Error("server should be healthy")
	}
	if NewHTTPFetcher(0).IsHealthy(context.Background(), "http://127.0.0.1:1") {
		t.Error("closed port should not be healthy")
	}
}
