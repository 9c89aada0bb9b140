package ports

import (
	"context"
	"io"

	"github.com/ivgusev/queryrouter/internal/core/domain"
)

// ChatMessage is one role-tagged message sent to the language model.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatModel is the opaque text-completion capability.
type ChatModel interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

// WeatherProvider fetches current conditions for a city. A nil snapshot
// with a non-nil error means "no data"; a snapshot with nil fields means
// the upstream omitted them.
type WeatherProvider interface {
	Current(ctx context.Context, city string) (*domain.WeatherSnapshot, error)
}

// Embedder builds fixed-dimension vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits raw text into bounded, overlapping segments.
type Chunker interface {
	Split(text string) []string
}

// VectorIndex stores chunk records and answers nearest-neighbor queries.
// Store pairs chunks with vectors positionally and truncates to the shorter
// slice; producers must emit both from the same ingestion pass, same length.
type VectorIndex interface {
	Store(ctx context.Context, chunks []string, vectors [][]float32, metadata map[string]any) error
	Search(ctx context.Context, query string, limit int) ([]domain.DocumentMatch, error)
	Info(ctx context.Context) map[string]any
}

// TextExtractor produces raw text from a stored source document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// ObjectStorage stores uploaded source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue carries document ids from upload to the processing worker.
type MessageQueue interface {
	PublishDocumentUploaded(ctx context.Context, documentID string) error
	SubscribeDocumentUploaded(ctx context.Context, handler func(context.Context, string) error) error
}

// DocumentRepository persists document lifecycle state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveChunkCount(ctx context.Context, id string, chunkCount int) error
}
