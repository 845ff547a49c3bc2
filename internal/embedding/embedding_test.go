package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nao1215/docaudit/internal/audit"
	"github.com/nao1215/docaudit/internal/config"
)

func TestOllamaEmbedder(t *testing.T) {
	t.Parallel()

	t.Run("posts model and prompt", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/api/embeddings" {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			var req embeddingRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if req.Model != "nomic-embed-text" || req.Prompt != "hello world" {
				http.Error(w, "unexpected request", http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"embedding":[0.5,-0.25,1]}`)) //nolint:errcheck // test server
		}))
		defer server.Close()

		e := NewOllamaEmbedder(server.URL+"/", "nomic-embed-text")
		vec, err := e.Embed(context.Background(), "hello world")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(vec) != 3 || vec[0] != 0.5 || vec[1] != -0.25 || vec[2] != 1 {
			t.Errorf("unexpected vector %v", vec)
		}
	})

	t.Run("non-2xx status is an error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}))
		defer server.Close()

		_, err := NewOllamaEmbedder(server.URL, "missing").Embed(context.Background(), "text")
		if !errors.Is(err, ErrUnexpectedStatus) {
			t.Errorf("expected ErrUnexpectedStatus, got %v", err)
		}
	})

	t.Run("empty embedding is an error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"embedding":[]}`)) //nolint:errcheck // test server
		}))
		defer server.Close()

		_, err := NewOllamaEmbedder(server.URL, "m").Embed(context.Background(), "text")
		if !errors.Is(err, ErrEmptyEmbedding) {
			t.Errorf("expected ErrEmptyEmbedding, got %v", err)
		}
	})

	t.Run("respects context deadline", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-release:
			}
		}))
		defer server.Close()
		defer close(release)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := NewOllamaEmbedder(server.URL, "m").Embed(ctx, "text")
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})

	t.Run("empty text is rejected without a request", func(t *testing.T) {
		t.Parallel()

		_, err := NewOllamaEmbedder("http://127.0.0.1:1", "m").Embed(context.Background(), "  ")
		if !errors.Is(err, ErrEmptyText) {
			t.Errorf("expected ErrEmptyText, got %v", err)
		}
	})
}

func TestHashEmbedder(t *testing.T) {
	t.Parallel()

	e := NewHashEmbedder(256)
	ctx := context.Background()

	embed := func(text string) []float32 {
		t.Helper()
		v, err := e.Embed(ctx, text)
		if err != nil {
			t.Fatalf("Embed(%q) failed: %v", text, err)
		}
		return v
	}

	a := embed("Revenue grew strongly in every region.")
	b := embed("revenue grew strongly in every region")
	c := embed("The board approved a new dividend policy.")

	if len(a) != 256 {
		t.Fatalf("expected 256 dimensions, got %d", len(a))
	}

	same, err := audit.CosineSimilarity(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if same < 0.999 {
		t.Errorf("case and punctuation should not change the vector, similarity %v", same)
	}

	different, err := audit.CosineSimilarity(a, c)
	if err != nil {
		t.Fatal(err)
	}
	if different >= 0.75 {
		t.Errorf("unrelated sentences should be dissimilar, similarity %v", different)
	}

	if _, err := e.Embed(ctx, "!!!"); !errors.Is(err, ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
	if NewHashEmbedder(0).Dimensions() != 512 {
		t.Error("non-positive dimensions should fall back to 512")
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		provider string
		wantNil  bool
		wantErr  error
	}{
		{provider: config.EmbedProviderHash},
		{provider: config.EmbedProviderOllama},
		{provider: config.EmbedProviderNone, wantNil: true},
		{provider: "openai", wantErr: ErrUnknownProvider},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			t.Parallel()

			cfg := config.NewConfig()
			cfg.EmbedProvider = tt.provider
			got, err := New(cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (got == nil) != tt.wantNil {
				t.Errorf("New() = %v, wantNil %v", got, tt.wantNil)
			}
		})
	}
}
