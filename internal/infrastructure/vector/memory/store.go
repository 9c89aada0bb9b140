package memory

import (
	"math"
	"sort"
	"sync"

	"github.com/ivgusev/queryrouter/internal/core/domain"
)

// Store is the local fallback backend: an append-only record slice with
// brute-force cosine search. A single process-wide instance is shared by
// concurrent stores and searches; the RWMutex guarantees readers never see
// a partially appended record.
type Store struct {
	mu      sync.RWMutex
	records []domain.IndexRecord
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Append(records []domain.IndexRecord) {
	if len(records) == 0 {
		return
	}
	s.mu.Lock()
	s.records = append(s.records, records...)
	s.mu.Unlock()
}

// Search ranks every stored record by cosine similarity against the query
// vector, descending. Ties keep stored order.
func (s *Store) Search(vector []float32, limit int) []domain.DocumentMatch {
	if len(vector) == 0 || limit <= 0 {
		return nil
	}

	s.mu.RLock()
	matches := make([]domain.DocumentMatch, 0, len(s.records))
	for _, record := range s.records {
		matches = append(matches, domain.DocumentMatch{
			Text:     record.Text,
			Score:    Cosine(vector, record.Vector),
			Metadata: record.Metadata,
		})
	}
	s.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Cosine is the normalized dot product of two vectors. Similarity against a
// zero-norm vector is 0.0 by definition, never a division by zero.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
