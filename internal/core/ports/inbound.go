package ports

import (
	"context"
	"io"

	"github.com/ivgusev/queryrouter/internal/core/domain"
)

// QueryService is the inbound contract for the query pipeline. Both entry
// points share semantics; neither has an error return path.
type QueryService interface {
	Process(ctx context.Context, query string) domain.QueryResult
	ProcessAsync(ctx context.Context, query string) <-chan domain.QueryResult
}

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}
