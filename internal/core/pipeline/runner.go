package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ivgusev/queryrouter/internal/core/domain"
	"github.com/ivgusev/queryrouter/internal/core/ports"
)

// Fixed degraded responses. The pipeline answers every query; these are the
// answers when a branch has nothing better to say.
const (
	weatherUnavailableResponse = "I couldn't retrieve weather information. Please check the city name and try again."
	noDocumentsResponse        = "I couldn't find relevant information in the document. Please try rephrasing your question."
	synthesisFailureResponse   = "I apologize, but I encountered an error while processing your request."
	pipelineFailureResponse    = "I encountered an error while processing your request. Please try again."
)

const defaultTopK = 3

// Observer receives pipeline telemetry. Implemented by the prometheus
// metrics set; the runner falls back to a no-op when none is supplied.
type Observer interface {
	ObserveQuery(service, intent string)
	ObserveStage(service, stage string, duration time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveQuery(string, string)                {}
func (noopObserver) ObserveStage(string, string, time.Duration) {}

// Runner drives one query through classify, branch, and synthesize. It has
// no error return path: every failure mode degrades to a usable result.
type Runner struct {
	classifier *IntentClassifier
	llm        ports.ChatModel
	weather    ports.WeatherProvider
	index      ports.VectorIndex
	topK       int
	service    string
	logger     *slog.Logger
	observer   Observer
}

type RunnerOptions struct {
	TopK     int
	Service  string
	Logger   *slog.Logger
	Observer Observer
}

func NewRunner(llm ports.ChatModel, weather ports.WeatherProvider, index ports.VectorIndex, options RunnerOptions) *Runner {
	topK := options.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	observer := options.Observer
	if observer == nil {
		observer = noopObserver{}
	}
	return &Runner{
		classifier: NewIntentClassifier(llm),
		llm:        llm,
		weather:    weather,
		index:      index,
		topK:       topK,
		service:    options.Service,
		logger:     logger,
		observer:   observer,
	}
}

// Process runs the full pipeline and always returns a result. A panic in
// any stage becomes an intent=unknown result carrying the panic message
// under the "error" metadata key.
func (r *Runner) Process(ctx context.Context, query string) (result domain.QueryResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("pipeline_panic", "query", query, "panic", rec)
			result = domain.QueryResult{
				Query:    query,
				Intent:   domain.IntentUnknown,
				Response: pipelineFailureResponse,
				Metadata: map[string]any{"error": fmt.Sprint(rec)},
			}
		}
	}()

	state := domain.NewPipelineState(query)
	r.timed("classify", func() { r.classify(ctx, state) })
	r.timed("branch", func() { r.branch(ctx, state) })
	r.timed("synthesize", func() { r.synthesize(ctx, state) })

	r.observer.ObserveQuery(r.service, string(state.Intent))
	r.logger.Info("query_processed",
		"intent", state.Intent,
		"retrieved_docs", len(state.RetrievedDocs),
	)

	return domain.QueryResult{
		Query:              state.Query,
		Intent:             state.Intent,
		Response:           state.FinalResponse,
		WeatherData:        state.Weather,
		RetrievedDocsCount: len(state.RetrievedDocs),
		Metadata:           state.Metadata,
	}
}

// ProcessAsync runs Process on its own goroutine. The channel is buffered,
// delivers exactly one result, and is closed afterwards.
func (r *Runner) ProcessAsync(ctx context.Context, query string) <-chan domain.QueryResult {
	out := make(chan domain.QueryResult, 1)
	go func() {
		defer close(out)
		out <- r.Process(ctx, query)
	}()
	return out
}

func (r *Runner) classify(ctx context.Context, state *domain.PipelineState) {
	intent, outcome := r.classifier.Classify(ctx, state.Query)
	state.Intent = intent
	state.MergeMetadata(map[string]any{"intent_classification": outcome})
}

func (r *Runner) branch(ctx context.Context, state *domain.PipelineState) {
	switch state.Intent {
	case domain.IntentWeather:
		r.fetchWeather(ctx, state)
	default:
		r.retrieveDocuments(ctx, state)
	}
}

func (r *Runner) fetchWeather(ctx context.Context, state *domain.PipelineState) {
	raw, err := r.llm.Complete(ctx, cityExtractionMessages(state.Query))
	if err != nil {
		r.logger.Warn("city_extraction_failed", "error", err)
		return
	}
	city := strings.TrimSpace(raw)
	if city == "" {
		city = defaultCity
	}

	snapshot, err := r.weather.Current(ctx, city)
	if err != nil {
		r.logger.Warn("weather_unavailable", "city", city, "error", err)
		return
	}
	state.Weather = snapshot
}

func (r *Runner) retrieveDocuments(ctx context.Context, state *domain.PipelineState) {
	matches, err := r.index.Search(ctx, state.Query, r.topK)
	if err != nil {
		r.logger.Warn("retrieval_failed", "error", err)
		return
	}
	state.RetrievedDocs = matches
}

func (r *Runner) synthesize(ctx context.Context, state *domain.PipelineState) {
	if state.Intent == domain.IntentWeather {
		state.FinalResponse = r.weatherAnswer(ctx, state)
		return
	}
	state.FinalResponse = r.documentAnswer(ctx, state)
}

func (r *Runner) weatherAnswer(ctx context.Context, state *domain.PipelineState) string {
	if state.Weather == nil {
		return weatherUnavailableResponse
	}

	report := formatWeatherReport(state.Weather)
	answer, err := r.llm.Complete(ctx, weatherAnswerMessages(state.Query, report))
	if err != nil {
		r.logger.Warn("weather_synthesis_failed", "error", err)
		return synthesisFailureResponse
	}
	return answer
}

func (r *Runner) documentAnswer(ctx context.Context, state *domain.PipelineState) string {
	if len(state.RetrievedDocs) == 0 {
		return noDocumentsResponse
	}

	answer, err := r.llm.Complete(ctx, documentAnswerMessages(state.Query, state.RetrievedDocs))
	if err != nil {
		r.logger.Warn("document_synthesis_failed", "error", err)
		return synthesisFailureResponse
	}
	return answer
}

func (r *Runner) timed(stage string, fn func()) {
	start := time.Now()
	fn()
	r.observer.ObserveStage(r.service, stage, time.Since(start))
}
