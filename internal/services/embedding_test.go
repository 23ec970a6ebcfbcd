package services

import (
	"context"
	"errors"
	"testing"

	"github.com/wisefood/wisefood-data-api/internal/platform/logger"
)

type fakeEmbedClient struct {
	model string
	calls [][]string
	err   error
}

func (c *fakeEmbedClient) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	c.calls = append(c.calls, append([]string(nil), inputs...))
	if c.err != nil {
		return nil, c.err
	}
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{float32(len(inputs[i])), 1}
	}
	return out, nil
}

func (c *fakeEmbedClient) EmbedModel() string { return c.model }

type fakeEmbedCache struct {
	entries map[string][]float32
	puts    int
	closed  bool
}

func newFakeEmbedCache() *fakeEmbedCache {
	return &fakeEmbedCache{entries: map[string][]float32{}}
}

func (c *fakeEmbedCache) key(model, text string) string { return model + "|" + text }

func (c *fakeEmbedCache) Get(ctx context.Context, model, text string) ([]float32, bool) {
	vec, ok := c.entries[c.key(model, text)]
	return vec, ok
}

func (c *fakeEmbedCache) Put(ctx context.Context, model, text string, vec []float32) {
	c.puts++
	c.entries[c.key(model, text)] = vec
}

func (c *fakeEmbedCache) Close() error {
	c.closed = true
	return nil
}

func embedTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func TestEmbedNamesCacheReadThrough(t *testing.T) {
	client := &fakeEmbedClient{model: "test-embed-1"}
	cache := newFakeEmbedCache()
	cache.entries[cache.key("test-embed-1", "quinoa, raw")] = []float32{9, 9}

	svc, err := NewEmbeddingService(embedTestLogger(t), client, cache)
	if err != nil {
		t.Fatalf("init service: %v", err)
	}

	vecs, err := svc.EmbedNames(context.Background(), []string{"quinoa, raw", "lentils, dry"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("vectors: want=2 got=%d", len(vecs))
	}
	if vecs[0][0] != 9 {
		t.Fatalf("cached vector must come back verbatim")
	}
	if len(client.calls) != 1 {
		t.Fatalf("provider calls: want=1 got=%d", len(client.calls))
	}
	if len(client.calls[0]) != 1 || client.calls[0][0] != "lentils, dry" {
		t.Fatalf("provider must only see the cache miss, got %v", client.calls[0])
	}
	if cache.puts != 1 {
		t.Fatalf("miss must be written back to the cache, puts=%d", cache.puts)
	}
}

func TestEmbedNamesAllCachedSkipsProvider(t *testing.T) {
	client := &fakeEmbedClient{model: "test-embed-1", err: errors.New("unreachable")}
	cache := newFakeEmbedCache()
	cache.entries[cache.key("test-embed-1", "quinoa, raw")] = []float32{1, 0}

	svc, err := NewEmbeddingService(embedTestLogger(t), client, cache)
	if err != nil {
		t.Fatalf("init service: %v", err)
	}

	if _, err := svc.EmbedNames(context.Background(), []string{"quinoa, raw"}); err != nil {
		t.Fatalf("full cache hit must not touch the provider: %v", err)
	}
	if len(client.calls) != 0 {
		t.Fatalf("provider calls: want=0 got=%d", len(client.calls))
	}
}

func TestEmbedNamesNoCache(t *testing.T) {
	client := &fakeEmbedClient{model: "test-embed-1"}
	svc, err := NewEmbeddingService(embedTestLogger(t), client, nil)
	if err != nil {
		t.Fatalf("init service: %v", err)
	}
	vecs, err := svc.EmbedNames(context.Background(), []string{"quinoa, raw"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vecs) != 1 {
		t.Fatalf("vectors: want=1 got=%d", len(vecs))
	}
	if svc.ModelVersion() != "test-embed-1" {
		t.Fatalf("model version: want=test-embed-1 got=%s", svc.ModelVersion())
	}
}

func TestEmbedNamesProviderError(t *testing.T) {
	client := &fakeEmbedClient{model: "test-embed-1", err: errors.New("429")}
	svc, err := NewEmbeddingService(embedTestLogger(t), client, nil)
	if err != nil {
		t.Fatalf("init service: %v", err)
	}
	if _, err := svc.EmbedNames(context.Background(), []string{"quinoa, raw"}); err == nil {
		t.Fatalf("provider error must surface")
	}
}

func TestEmbeddingServiceCloseClosesCache(t *testing.T) {
	client := &fakeEmbedClient{model: "test-embed-1"}
	cache := newFakeEmbedCache()
	svc, err := NewEmbeddingService(embedTestLogger(t), client, cache)
	if err != nil {
		t.Fatalf("init service: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !cache.closed {
		t.Fatalf("close must propagate to the cache")
	}
}
