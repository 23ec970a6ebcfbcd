package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-process VectorStore for local mode and tests.
// It is safe for concurrent use; lookups are read-mostly.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]Vector // namespace -> id -> vector
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]map[string]Vector{}}
}

func (s *MemoryStore) Upsert(ctx context.Context, namespace string, vectors []Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	for _, v := range vectors {
		if strings.TrimSpace(v.ID) == "" {
			return fmt.Errorf("memory vector store: vector id is required")
		}
		if len(v.Values) == 0 {
			return fmt.Errorf("memory vector store: vector %q has empty values", v.ID)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ns := s.data[namespace]
	if ns == nil {
		ns = map[string]Vector{}
		s.data[namespace] = ns
	}
	for _, v := range vectors {
		ns[v.ID] = v
	}
	return nil
}

func (s *MemoryStore) QueryMatches(ctx context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]VectorMatch, error) {
	if len(q) == 0 {
		return nil, fmt.Errorf("memory vector store: query vector required")
	}
	if topK <= 0 {
		topK = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]VectorMatch, 0, topK)
	for id, v := range s.data[namespace] {
		if !metadataMatches(v.Metadata, filter) {
			continue
		}
		out = append(out, VectorMatch{ID: id, Score: cosine(q, v.Values)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].ID < out[j].ID
		}
		return out[i].Score > out[j].Score
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (s *MemoryStore) DeleteIDs(ctx context.Context, namespace string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns := s.data[namespace]
	for _, id := range ids {
		delete(ns, id)
	}
	return nil
}

// metadataMatches supports flat equality filters only, which is all the
// engine uses.
func metadataMatches(meta, filter map[string]any) bool {
	if len(filter) == 0 {
		return true
	}
	for k, want := range filter {
		if meta == nil {
			return false
		}
		got, ok := meta[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
