package docintel

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAnalyze(t *testing.T) {
	var gotMode, gotKey string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMode = r.URL.Query().Get("mode")
		gotKey = r.Header.Get("api-key")
		gotBody, _ = io.ReadAll(r.Body)
		json.NewEncoder(w).Encode(map[string]string{"content": "extracted text"})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "secret", ModeOCR)
	if err != nil {
		t.Fatal(err)
	}
	text, err := c.Analyze(context.Background(), []byte("raw bytes"), "scan.pdf")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if text != "extracted text" {
		t.Errorf("text = %q", text)
	}
	if gotMode != "ocr" {
		t.Errorf("mode = %q", gotMode)
	}
	if gotKey != "secret" {
		t.Errorf("api-key = %q", gotKey)
	}
	if string(gotBody) != "raw bytes" {
		t.Errorf("body = %q", gotBody)
	}
}

func TestAnalyzeServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "corrupt document"},
		})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "secret", ModeLayout)
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Analyze(context.Background(), []byte("x"), "bad.pdf")
	if err == nil || !strings.Contains(err.Error(), "corrupt document") {
		t.Errorf("err = %v, want service error message", err)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient("", "key", ModeOCR); err == nil {
		t.Error("missing endpoint should error")
	}
	if _, err := NewClient("https://svc", "", ModeOCR); err == nil {
		t.Error("missing key should error")
	}
}

func TestChecksumChangesWithMode(t *testing.T) {
	a, err := NewClient("https://svc", "k", ModeOCR)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewClient("https://svc", "k", ModeLayout)
	if err != nil {
		t.Fatal(err)
	}
	if a.Checksum() == b.Checksum() {
		t.Error("mode change should change the service checksum")
	}
	a2, err := NewClient("https://svc", "other-key", ModeOCR)
	if err != nil {
		t.Fatal(err)
	}
	if a.Checksum() != a2.Checksum() {
		t.Error("key rotation should not invalidate cached extractions")
	}
}
