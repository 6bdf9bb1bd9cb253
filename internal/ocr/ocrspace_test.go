package ocr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSpaceClientParsesText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("apikey"); got != "test-key" {
			t.Fatalf("apikey = %q", got)
		}
		if got := r.FormValue("language"); got != "eng" {
			t.Fatalf("language = %q", got)
		}
		w.Write([]byte(`{"ParsedResults":[{"ParsedText":"  you are worthless  "}],"IsErroredOnProcessing":false}`))
	}))
	defer srv.Close()

	c := NewSpaceClient(srv.URL, "test-key", "eng", 2*time.Second)
	text, err := c.Extract(context.Background(), []byte("fake-image"))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "you are worthless" {
		t.Fatalf("text = %q", text)
	}
}

func TestSpaceClientNoResultsIsEmptyText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ParsedResults":[],"IsErroredOnProcessing":false}`))
	}))
	defer srv.Close()

	c := NewSpaceClient(srv.URL, "k", "eng", 2*time.Second)
	text, err := c.Extract(context.Background(), nil)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty text, got %q", text)
	}
}

func TestSpaceClientProcessingErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ParsedResults":[],"IsErroredOnProcessing":true,"ErrorMessage":["bad image"]}`))
	}))
	defer srv.Close()

	c := NewSpaceClient(srv.URL, "k", "eng", 2*time.Second)
	if _, err := c.Extract(context.Background(), nil); err == nil {
		t.Fatal("expected error from processing failure")
	}
}

func TestSpaceClientRetriesTransientFailure(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ParsedResults":[{"ParsedText":"ok"}]}`))
	}))
	defer srv.Close()

	c := NewSpaceClient(srv.URL, "k", "eng", 2*time.Second)
	text, err := c.Extract(context.Background(), nil)
	if err != nil {
		t.Fatalf("extract after retries: %v", err)
	}
	if text != "ok" || calls != 3 {
		t.Fatalf("text=%q calls=%d", text, calls)
	}
}

func TestDisabledClient(t *testing.T) {
	text, err := Disabled{}.Extract(context.Background(), []byte("x"))
	if err != nil || text != "" {
		t.Fatalf("disabled client: text=%q err=%v", text, err)
	}
}
