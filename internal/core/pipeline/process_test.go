package pipeline

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/ivgusev/queryrouter/internal/core/domain"
)

type repoFake struct {
	docs     map[string]*domain.Document
	statuses []domain.DocumentStatus
	lastErr  string
	chunks   map[string]int

	createErr error
	updateErr error
}

func newRepoFake() *repoFake {
	return &repoFake{docs: map[string]*domain.Document{}, chunks: map[string]int{}}
}

func (f *repoFake) Create(_ context.Context, doc *domain.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.docs[doc.ID] = doc
	return nil
}

func (f *repoFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New(id))
	}
	return doc, nil
}

func (f *repoFake) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.statuses = append(f.statuses, status)
	f.lastErr = errMessage
	return nil
}

func (f *repoFake) SaveChunkCount(_ context.Context, id string, chunkCount int) error {
	f.chunks[id] = chunkCount
	return nil
}

type extractorFake struct {
	text string
	err  error
}

func (f *extractorFake) Extract(context.Context, *domain.Document) (string, error) {
	return f.text, f.err
}

type chunkerFake struct{ chunks []string }

func (f *chunkerFake) Split(string) []string { return f.chunks }

type embedderStub struct {
	vectors [][]float32
	err     error
}

func (f *embedderStub) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.vectors != nil {
		return f.vectors, nil
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (f *embedderStub) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}

type storeFake struct {
	chunks   []string
	metadata map[string]any
	err      error
}

func (f *storeFake) Store(_ context.Context, chunks []string, _ [][]float32, metadata map[string]any) error {
	if f.err != nil {
		return f.err
	}
	f.chunks = chunks
	f.metadata = metadata
	return nil
}

func (f *storeFake) Search(context.Context, string, int) ([]domain.DocumentMatch, error) {
	return nil, nil
}

func (f *storeFake) Info(context.Context) map[string]any { return nil }

func seededRepo(id string) *repoFake {
	repo := newRepoFake()
	repo.docs[id] = &domain.Document{
		ID:          id,
		Filename:    "report.pdf",
		StoragePath: id,
		Status:      domain.StatusUploaded,
		CreatedAt:   time.Now().UTC().Add(-time.Second),
	}
	return repo
}

func TestProcessByIDHappyPath(t *testing.T) {
	repo := seededRepo("doc-1")
	store := &storeFake{}
	uc := NewProcessDocumentUseCase(repo,
		&extractorFake{text: "some text"},
		&chunkerFake{chunks: []string{"a", "b"}},
		&embedderStub{},
		store,
		ProcessOptions{Service: "test"},
	)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}

	wantStatuses := []domain.DocumentStatus{domain.StatusProcessing, domain.StatusReady}
	if len(repo.statuses) != 2 || repo.statuses[0] != wantStatuses[0] || repo.statuses[1] != wantStatuses[1] {
		t.Fatalf("statuses = %v, want %v", repo.statuses, wantStatuses)
	}
	if repo.chunks["doc-1"] != 2 {
		t.Fatalf("chunk count = %d, want 2", repo.chunks["doc-1"])
	}
	if store.metadata["source"] != "report.pdf" || store.metadata["total_chunks"] != 2 {
		t.Fatalf("index metadata = %v", store.metadata)
	}
}

func TestProcessByIDEmptyTextSkipsIndex(t *testing.T) {
	repo := seededRepo("doc-1")
	store := &storeFake{err: errors.New("index must not be touched")}
	uc := NewProcessDocumentUseCase(repo,
		&extractorFake{text: ""},
		&chunkerFake{chunks: nil},
		&embedderStub{},
		store,
		ProcessOptions{Service: "test"},
	)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if repo.chunks["doc-1"] != 0 {
		t.Fatalf("chunk count = %d, want 0", repo.chunks["doc-1"])
	}
	if got := repo.statuses[len(repo.statuses)-1]; got != domain.StatusReady {
		t.Fatalf("final status = %q, want ready", got)
	}
}

func TestProcessByIDExtractionFailureMarksFailed(t *testing.T) {
	repo := seededRepo("doc-1")
	uc := NewProcessDocumentUseCase(repo,
		&extractorFake{err: errors.New("corrupt file")},
		&chunkerFake{},
		&embedderStub{},
		&storeFake{},
		ProcessOptions{Service: "test"},
	)

	err := uc.ProcessByID(context.Background(), "doc-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := repo.statuses[len(repo.statuses)-1]; got != domain.StatusFailed {
		t.Fatalf("final status = %q, want failed", got)
	}
	if !strings.Contains(repo.lastErr, "corrupt file") {
		t.Fatalf("error message = %q, want cause recorded", repo.lastErr)
	}
}

func TestProcessByIDVectorMismatchMarksFailed(t *testing.T) {
	repo := seededRepo("doc-1")
	uc := NewProcessDocumentUseCase(repo,
		&extractorFake{text: "text"},
		&chunkerFake{chunks: []string{"a", "b", "c"}},
		&embedderStub{vectors: [][]float32{{1, 0}}},
		&storeFake{},
		ProcessOptions{Service: "test"},
	)

	err := uc.ProcessByID(context.Background(), "doc-1")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input error, got %v", err)
	}
	if got := repo.statuses[len(repo.statuses)-1]; got != domain.StatusFailed {
		t.Fatalf("final status = %q, want failed", got)
	}
}

func TestProcessByIDUnknownDocumentFails(t *testing.T) {
	uc := NewProcessDocumentUseCase(newRepoFake(),
		&extractorFake{},
		&chunkerFake{},
		&embedderStub{},
		&storeFake{},
		ProcessOptions{Service: "test"},
	)

	if err := uc.ProcessByID(context.Background(), "absent"); err == nil {
		t.Fatalf("expected error for unknown document")
	}
}

type storageStub struct {
	saved map[string][]byte
	err   error
}

func (f *storageStub) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, _ := io.ReadAll(data)
	if f.saved == nil {
		f.saved = map[string][]byte{}
	}
	f.saved[key] = raw
	return nil
}

func (f *storageStub) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishDocumentUploaded(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *queueFake) SubscribeDocumentUploaded(context.Context, func(context.Context, string) error) error {
	return nil
}

func TestUploadCreatesRecordAndPublishes(t *testing.T) {
	repo := newRepoFake()
	storage := &storageStub{}
	queue := &queueFake{}
	uc := NewUploadDocumentUseCase(repo, storage, queue)

	doc, err := uc.Upload(context.Background(), "my report.pdf", "application/pdf", strings.NewReader("content"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if doc.Filename != "my_report.pdf" {
		t.Fatalf("filename = %q, want sanitized", doc.Filename)
	}
	if doc.Status != domain.StatusUploaded {
		t.Fatalf("status = %q, want uploaded", doc.Status)
	}
	if string(storage.saved[doc.StoragePath]) != "content" {
		t.Fatalf("body not saved under %q", doc.StoragePath)
	}
	if len(queue.published) != 1 || queue.published[0] != doc.ID {
		t.Fatalf("published = %v, want [%s]", queue.published, doc.ID)
	}
	if _, ok := repo.docs[doc.ID]; !ok {
		t.Fatalf("document record not created")
	}
}

func TestUploadPublishFailureSurfaces(t *testing.T) {
	uc := NewUploadDocumentUseCase(newRepoFake(), &storageStub{}, &queueFake{err: errors.New("queue down")})

	if _, err := uc.Upload(context.Background(), "a.txt", "text/plain", strings.NewReader("x")); err == nil {
		t.Fatalf("expected error when publish fails")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"my report.pdf":     "my_report.pdf",
		"../../etc/passwd":  "passwd",
		"résumé.pdf":        "r_sum_.pdf",
		"":                  "document.bin",
		"weird$chars%.txt":  "weird_chars_.txt",
		"UPPER-case_ok.PDF": "UPPER-case_ok.PDF",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
