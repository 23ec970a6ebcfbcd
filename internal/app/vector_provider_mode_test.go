package app

import (
	"errors"
	"testing"

	"github.com/wisefood/wisefood-data-api/internal/platform/logger"
	"github.com/wisefood/wisefood-data-api/internal/platform/qdrant"
	"github.com/wisefood/wisefood-data-api/internal/platform/vector"
)

func providerTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func TestResolveVectorStoreDefaultsToMemory(t *testing.T) {
	log := providerTestLogger(t)

	for _, provider := range []string{"", "memory", "  Memory  "} {
		store, err := resolveVectorStore(log, Config{VectorProvider: provider})
		if err != nil {
			t.Fatalf("resolveVectorStore(%q): %v", provider, err)
		}
		if _, ok := store.(*vector.MemoryStore); !ok {
			t.Fatalf("provider %q: want *vector.MemoryStore got %T", provider, store)
		}
	}
}

func TestResolveVectorStoreQdrant(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("QDRANT_COLLECTION", "wisefood")
	t.Setenv("QDRANT_NAMESPACE_PREFIX", "wf")
	t.Setenv("QDRANT_VECTOR_DIM", "1536")

	var gotCfg qdrant.Config
	sentinel := vector.NewMemoryStore()
	orig := newQdrantVectorStore
	newQdrantVectorStore = func(log *logger.Logger, cfg qdrant.Config) (vector.VectorStore, error) {
		gotCfg = cfg
		return sentinel, nil
	}
	t.Cleanup(func() { newQdrantVectorStore = orig })

	store, err := resolveVectorStore(providerTestLogger(t), Config{VectorProvider: "qdrant"})
	if err != nil {
		t.Fatalf("resolveVectorStore: %v", err)
	}
	if store != vector.VectorStore(sentinel) {
		t.Fatalf("store: want the constructed qdrant store back")
	}
	if gotCfg.URL != "http://qdrant:6333" {
		t.Fatalf("cfg.URL: want=%q got=%q", "http://qdrant:6333", gotCfg.URL)
	}
	if gotCfg.Collection != "wisefood" {
		t.Fatalf("cfg.Collection: want=%q got=%q", "wisefood", gotCfg.Collection)
	}
	if gotCfg.VectorDim != 1536 {
		t.Fatalf("cfg.VectorDim: want=%d got=%d", 1536, gotCfg.VectorDim)
	}
}

func TestResolveVectorStoreQdrantMissingURL(t *testing.T) {
	t.Setenv("QDRANT_URL", "")
	t.Setenv("QDRANT_COLLECTION", "wisefood")
	t.Setenv("QDRANT_VECTOR_DIM", "1536")

	_, err := resolveVectorStore(providerTestLogger(t), Config{VectorProvider: "qdrant"})
	if err == nil {
		t.Fatalf("resolveVectorStore: expected error, got nil")
	}
	var got *qdrant.ConfigError
	if !errors.As(err, &got) {
		t.Fatalf("expected qdrant.ConfigError, got=%T", err)
	}
	if got.Code != qdrant.ConfigErrorMissingURL {
		t.Fatalf("code: want=%q got=%q", qdrant.ConfigErrorMissingURL, got.Code)
	}
}

func TestResolveVectorStoreUnknownProvider(t *testing.T) {
	if _, err := resolveVectorStore(providerTestLogger(t), Config{VectorProvider: "pinecone"}); err == nil {
		t.Fatalf("resolveVectorStore: expected error, got nil")
	}
}
