package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/cache"
)

func embeddingServer(t *testing.T, dims int, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("api-key") != "secret" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		vec := make([]float32, dims)
		for i := range vec {
			vec[i] = 0.5
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{{"embedding": vec}},
		})
	}))
}

func TestEmbed(t *testing.T) {
	var calls atomic.Int64
	srv := embeddingServer(t, 4, &calls)
	defer srv.Close()

	c, err := NewClient(srv.URL, "secret", "text-embedding-ada-002", 4)
	if err != nil {
		t.Fatal(err)
	}
	vec, err := c.Embed(context.Background(), "some chunk text")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 4 {
		t.Errorf("len = %d, want 4", len(vec))
	}
}

func TestEmbedUsesCache(t *testing.T) {
	var calls atomic.Int64
	srv := embeddingServer(t, 4, &calls)
	defer srv.Close()

	c, err := NewClient(srv.URL, "secret", "ada", 4,
		WithCache(cache.NewLocal(), time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := c.Embed(ctx, "repeated text"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Embed(ctx, "repeated text"); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 1 {
		t.Errorf("service calls = %d, want 1 (second lookup from cache)", calls.Load())
	}
}

func TestEmbedDimensionMismatch(t *testing.T) {
	var calls atomic.Int64
	srv := embeddingServer(t, 3, &calls)
	defer srv.Close()

	c, err := NewClient(srv.URL, "secret", "ada", 8)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Embed(context.Background(), "x"); err == nil {
		t.Error("dimension mismatch should error")
	}
}

func TestEmbedAuthFailure(t *testing.T) {
	var calls atomic.Int64
	srv := embeddingServer(t, 4, &calls)
	defer srv.Close()

	c, err := NewClient(srv.URL, "wrong", "ada", 4)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Embed(context.Background(), "x"); err == nil {
		t.Error("auth failure should error")
	}
}

func TestChecksumIdentity(t *testing.T) {
	a, _ := NewClient("https://svc", "k", "ada", 4)
	b, _ := NewClient("https://svc", "k", "ada-v2", 4)
	if a.Checksum() == b.Checksum() {
		t.Error("deployment change should change the service checksum")
	}
}

func TestMockEmbedderDeterministic(t *testing.T) {
	m := NewMockEmbedder(8)
	ctx := context.Background()
	v1, err := m.Embed(ctx, "same input")
	if err != nil {
		t.Fatal(err)
	}
	v2, err := m.Embed(ctx, "same input")
	if err != nil {
		t.Fatal(err)
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatal("mock embeddings must be deterministic")
		}
	}
	if m.Calls() != 2 {
		t.Errorf("calls = %d, want 2", m.Calls())
	}
}
