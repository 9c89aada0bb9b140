package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ivgusev/queryrouter/internal/config"
	"github.com/ivgusev/queryrouter/internal/core/pipeline"
	"github.com/ivgusev/queryrouter/internal/core/ports"
	"github.com/ivgusev/queryrouter/internal/infrastructure/chunking"
	"github.com/ivgusev/queryrouter/internal/infrastructure/embedding/httpembed"
	"github.com/ivgusev/queryrouter/internal/infrastructure/extractor/pdftext"
	"github.com/ivgusev/queryrouter/internal/infrastructure/llm/groq"
	"github.com/ivgusev/queryrouter/internal/infrastructure/queue/nats"
	"github.com/ivgusev/queryrouter/internal/infrastructure/repository/postgres"
	"github.com/ivgusev/queryrouter/internal/infrastructure/resilience"
	"github.com/ivgusev/queryrouter/internal/infrastructure/storage/localfs"
	"github.com/ivgusev/queryrouter/internal/infrastructure/vector"
	"github.com/ivgusev/queryrouter/internal/infrastructure/vector/memory"
	"github.com/ivgusev/queryrouter/internal/infrastructure/vector/qdrant"
	"github.com/ivgusev/queryrouter/internal/infrastructure/weather/openweather"
)

// Options carries per-process wiring that is not configuration: the logger
// and the metric hooks of the hosting binary.
type Options struct {
	Logger         *slog.Logger
	Service        string
	QueryObserver  pipeline.Observer
	IngestObserver pipeline.IngestObserver
	OnIndexDemote  func()
}

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Repo      ports.DocumentRepository
	Index     ports.VectorIndex
	Queries   ports.QueryService
	UploadUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, options Options) (*App, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultPolicy())
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		Logger:             logger,
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	llm := groq.NewWithOptions(cfg.GroqBaseURL, cfg.GroqAPIKey, cfg.GroqModel, groq.Options{
		ResilienceExecutor: executor,
	})
	weather := openweather.NewWithOptions(cfg.OpenWeatherBaseURL, cfg.OpenWeatherAPIKey, openweather.Options{
		ResilienceExecutor: executor,
	})
	embedder := httpembed.New(cfg.EmbedURL, cfg.EmbedModel, cfg.EmbedDimension)

	var cloud *qdrant.Client
	if cfg.CloudIndexEnabled() {
		cloud = qdrant.New(cfg.QdrantURL, cfg.QdrantAPIKey, cfg.QdrantCollection, cfg.EmbedDimension)
	} else {
		logger.Warn("qdrant credentials not configured, using in-memory index")
	}
	index := vector.NewIndex(embedder, cloud, memory.NewStore(), cfg.EmbedDimension, vector.Options{
		Logger:   logger,
		OnDemote: options.OnIndexDemote,
	})

	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	extractor := pdftext.NewExtractor(storage)

	runner := pipeline.NewRunner(llm, weather, index, pipeline.RunnerOptions{
		TopK:     cfg.RetrievalTopK,
		Service:  options.Service,
		Logger:   logger,
		Observer: options.QueryObserver,
	})
	uploadUC := pipeline.NewUploadDocumentUseCase(repo, storage, queue)
	processUC := pipeline.NewProcessDocumentUseCase(repo, extractor, chunker, embedder, index, pipeline.ProcessOptions{
		Service:  options.Service,
		Observer: options.IngestObserver,
	})

	return &App{
		Config: cfg,

		Queue:     queue,
		Repo:      repo,
		Index:     index,
		Queries:   runner,
		UploadUC:  uploadUC,
		ProcessUC: processUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
