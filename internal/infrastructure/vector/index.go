package vector

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/ivgusev/queryrouter/internal/core/domain"
	"github.com/ivgusev/queryrouter/internal/core/ports"
	"github.com/ivgusev/queryrouter/internal/infrastructure/vector/memory"
	"github.com/ivgusev/queryrouter/internal/infrastructure/vector/qdrant"
)

// Index is the similarity index behind one contract and two backends. The
// backend is chosen at construction: qdrant when a cloud client is supplied,
// the in-memory store otherwise. Any cloud failure demotes the index to the
// local store for the rest of the process lifetime; there is no promotion
// path back.
type Index struct {
	embedder   ports.Embedder
	cloud      *qdrant.Client
	local      *memory.Store
	vectorSize int
	logger     *slog.Logger
	onDemote   func()

	mu       sync.Mutex
	useCloud bool
}

type Options struct {
	Logger *slog.Logger
	// OnDemote fires once, when the cloud backend is abandoned.
	OnDemote func()
}

func NewIndex(embedder ports.Embedder, cloud *qdrant.Client, local *memory.Store, vectorSize int, options Options) *Index {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if local == nil {
		local = memory.NewStore()
	}
	return &Index{
		embedder:   embedder,
		cloud:      cloud,
		local:      local,
		vectorSize: vectorSize,
		logger:     logger,
		onDemote:   options.OnDemote,
		useCloud:   cloud != nil,
	}
}

// Store pairs chunks with vectors positionally, truncating to the shorter
// slice, and writes one freshly keyed record per pair. A cloud failure falls
// back to the local store transparently; the call only fails if no backend
// accepted the records.
func (x *Index) Store(ctx context.Context, chunks []string, vectors [][]float32, metadata map[string]any) error {
	n := len(chunks)
	if len(vectors) < n {
		n = len(vectors)
	}
	if n == 0 {
		return nil
	}

	records := make([]domain.IndexRecord, 0, n)
	for i := 0; i < n; i++ {
		recordMeta := map[string]any{"chunk_index": i}
		for k, v := range metadata {
			recordMeta[k] = v
		}
		records = append(records, domain.IndexRecord{
			ID:       uuid.NewString(),
			Vector:   vectors[i],
			Text:     chunks[i],
			Metadata: recordMeta,
		})
	}

	if x.cloudActive() {
		err := x.cloud.Upsert(ctx, records)
		if err == nil {
			x.logger.Info("index_store", "backend", "qdrant", "records", len(records))
			return nil
		}
		x.demote(err)
	}

	x.local.Append(records)
	x.logger.Info("index_store", "backend", "in-memory", "records", len(records))
	return nil
}

// Search embeds the query and returns up to limit matches by descending
// similarity. An unavailable embedding degrades to an empty result, not an
// error.
func (x *Index) Search(ctx context.Context, query string, limit int) ([]domain.DocumentMatch, error) {
	if limit <= 0 {
		limit = 3
	}

	vector, err := x.embedder.EmbedQuery(ctx, query)
	if err != nil || len(vector) == 0 {
		x.logger.Warn("index_search_embed_unavailable", "error", err)
		return nil, nil
	}

	if x.cloudActive() {
		matches, err := x.cloud.Query(ctx, vector, limit)
		if err == nil {
			return matches, nil
		}
		x.demote(err)
	}

	return x.local.Search(vector, limit), nil
}

// Info describes the active backend. Diagnostic only.
func (x *Index) Info(ctx context.Context) map[string]any {
	if x.cloudActive() {
		info := map[string]any{
			"storage":     "qdrant",
			"name":        x.cloud.Collection(),
			"vector_size": x.vectorSize,
		}
		count, err := x.cloud.Count(ctx)
		if err != nil {
			info["error"] = err.Error()
			return info
		}
		info["points_count"] = count
		return info
	}
	return map[string]any{
		"storage":      "in-memory",
		"points_count": x.local.Count(),
		"vector_size":  x.vectorSize,
	}
}

func (x *Index) cloudActive() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.useCloud
}

func (x *Index) demote(reason error) {
	x.mu.Lock()
	if !x.useCloud {
		x.mu.Unlock()
		return
	}
	x.useCloud = false
	x.mu.Unlock()

	x.logger.Warn("index_demoted_to_memory", "error", reason)
	if x.onDemote != nil {
		x.onDemote()
	}
}
