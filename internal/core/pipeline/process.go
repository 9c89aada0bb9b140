package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ivgusev/queryrouter/internal/core/domain"
	"github.com/ivgusev/queryrouter/internal/core/ports"
)

// IngestObserver receives document-processing telemetry. Implemented by
// the worker metrics set.
type IngestObserver interface {
	ObserveQueueLag(service string, lag time.Duration)
	ObserveChunksIndexed(service string, count int)
}

type noopIngestObserver struct{}

func (noopIngestObserver) ObserveQueueLag(string, time.Duration) {}
func (noopIngestObserver) ObserveChunksIndexed(string, int)      {}

// ProcessDocumentUseCase turns an uploaded document into indexed chunks:
// extract, split, embed, store. A document whose text yields no chunks is
// marked ready with a zero chunk count and never touches the index.
type ProcessDocumentUseCase struct {
	repo      ports.DocumentRepository
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	index     ports.VectorIndex
	service   string
	observer  IngestObserver
}

type ProcessOptions struct {
	Service  string
	Observer IngestObserver
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	index ports.VectorIndex,
	options ProcessOptions,
) *ProcessDocumentUseCase {
	observer := options.Observer
	if observer == nil {
		observer = noopIngestObserver{}
	}
	return &ProcessDocumentUseCase{
		repo:      repo,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
		service:   options.Service,
		observer:  observer,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	result, err := uc.ingest(ctx, documentID)
	if err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SaveChunkCount(ctx, documentID, len(result.Chunks)); err != nil {
		return fmt.Errorf("save chunk count: %w", err)
	}
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}

	uc.observer.ObserveChunksIndexed(uc.service, len(result.Chunks))
	return nil
}

func (uc *ProcessDocumentUseCase) ingest(ctx context.Context, documentID string) (*domain.IngestionResult, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	uc.observer.ObserveQueueLag(uc.service, time.Since(doc.CreatedAt))

	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}

	chunks := uc.chunker.Split(text)
	result := &domain.IngestionResult{
		Chunks: chunks,
		Metadata: map[string]any{
			"source":       doc.Filename,
			"total_chunks": len(chunks),
		},
	}
	if len(chunks) == 0 {
		return result, nil
	}

	vectors, err := uc.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}
	result.Embeddings = vectors

	if err := uc.index.Store(ctx, result.Chunks, result.Embeddings, result.Metadata); err != nil {
		return nil, fmt.Errorf("store chunks in index: %w", err)
	}
	return result, nil
}
