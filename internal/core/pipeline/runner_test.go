package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ivgusev/queryrouter/internal/core/domain"
	"github.com/ivgusev/queryrouter/internal/core/ports"
)

// chatFake routes calls by the system prompt so one fake can script the
// classifier, the city extractor, and the answer model at once.
type chatFake struct {
	classifyReply string
	classifyErr   error
	cityReply     string
	cityErr       error
	answerReply   string
	answerErr     error

	lastAnswerPrompt string
}

func (f *chatFake) Complete(_ context.Context, messages []ports.ChatMessage) (string, error) {
	sys := messages[0].Content
	switch {
	case strings.Contains(sys, "intent classifier"):
		return f.classifyReply, f.classifyErr
	case strings.Contains(sys, "Extract the city name"):
		return f.cityReply, f.cityErr
	default:
		f.lastAnswerPrompt = messages[len(messages)-1].Content
		return f.answerReply, f.answerErr
	}
}

type weatherFake struct {
	snapshot *domain.WeatherSnapshot
	err      error
	lastCity string
}

func (f *weatherFake) Current(_ context.Context, city string) (*domain.WeatherSnapshot, error) {
	f.lastCity = city
	if f.err != nil {
		return nil, f.err
	}
	return f.snapshot, nil
}

type indexFake struct {
	matches   []domain.DocumentMatch
	searchErr error
	panicMsg  string
	lastLimit int
}

func (f *indexFake) Store(context.Context, []string, [][]float32, map[string]any) error {
	return nil
}

func (f *indexFake) Search(_ context.Context, _ string, limit int) ([]domain.DocumentMatch, error) {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	f.lastLimit = limit
	return f.matches, f.searchErr
}

func (f *indexFake) Info(context.Context) map[string]any {
	return map[string]any{"storage": "in-memory"}
}

func newTestRunner(chat *chatFake, weather *weatherFake, index *indexFake) *Runner {
	return NewRunner(chat, weather, index, RunnerOptions{Service: "test"})
}

func TestOffVocabularyClassificationRoutesToRetrieval(t *testing.T) {
	chat := &chatFake{classifyReply: "banana", answerReply: "answer"}
	index := &indexFake{matches: []domain.DocumentMatch{{Text: "chunk"}}}
	runner := newTestRunner(chat, &weatherFake{}, index)

	result := runner.Process(context.Background(), "what does the report say")
	if result.Intent != domain.IntentPDF {
		t.Fatalf("intent = %q, want pdf", result.Intent)
	}
	if result.Metadata["intent_classification"] != "pdf" {
		t.Fatalf("metadata = %v, want coerced label", result.Metadata)
	}
}

func TestClassifierFailureRoutesToRetrievalWithErrorLabel(t *testing.T) {
	chat := &chatFake{classifyErr: errors.New("model down"), answerErr: errors.New("model down")}
	runner := newTestRunner(chat, &weatherFake{}, &indexFake{})

	result := runner.Process(context.Background(), "anything")
	if result.Intent != domain.IntentPDF {
		t.Fatalf("intent = %q, want pdf fallback", result.Intent)
	}
	if result.Metadata["intent_classification"] != "error" {
		t.Fatalf("metadata = %v, want error label", result.Metadata)
	}
}

func TestWeatherBranchEndToEnd(t *testing.T) {
	temp, feels, wind := 20.0, 19.5, 2.1
	humidity := 70
	chat := &chatFake{
		classifyReply: "Weather",
		cityReply:     " Paris \n",
		answerReply:   "It is a lovely day in Paris.",
	}
	weather := &weatherFake{snapshot: &domain.WeatherSnapshot{
		City:        "Paris",
		Country:     "FR",
		Temperature: &temp,
		FeelsLike:   &feels,
		Humidity:    &humidity,
		Description: "sunny",
		WindSpeed:   &wind,
	}}
	runner := newTestRunner(chat, weather, &indexFake{})

	result := runner.Process(context.Background(), "weather in Paris?")
	if result.Intent != domain.IntentWeather {
		t.Fatalf("intent = %q, want weather", result.Intent)
	}
	if weather.lastCity != "Paris" {
		t.Fatalf("city = %q, want trimmed extraction", weather.lastCity)
	}
	if result.Response != "It is a lovely day in Paris." {
		t.Fatalf("response = %q", result.Response)
	}
	if result.WeatherData == nil || result.WeatherData.City != "Paris" {
		t.Fatalf("weather data missing from result: %+v", result.WeatherData)
	}

	want := "Weather in Paris, FR:\n" +
		"- Temperature: 20.0°C (feels like 19.5°C)\n" +
		"- Condition: Sunny\n" +
		"- Humidity: 70%\n" +
		"- Wind Speed: 2.1 m/s"
	if !strings.Contains(chat.lastAnswerPrompt, want) {
		t.Fatalf("answer prompt missing report:\n%s", chat.lastAnswerPrompt)
	}
}

func TestWeatherFailureYieldsFixedResponse(t *testing.T) {
	chat := &chatFake{classifyReply: "weather", cityReply: "Atlantis"}
	weather := &weatherFake{err: errors.New("city not found")}
	runner := newTestRunner(chat, weather, &indexFake{})

	result := runner.Process(context.Background(), "weather in Atlantis")
	if result.Response != weatherUnavailableResponse {
		t.Fatalf("response = %q, want fixed weather fallback", result.Response)
	}
	if result.WeatherData != nil {
		t.Fatalf("expected nil weather data, got %+v", result.WeatherData)
	}
}

func TestCityExtractionFailureSkipsProvider(t *testing.T) {
	chat := &chatFake{classifyReply: "weather", cityErr: errors.New("model down")}
	weather := &weatherFake{snapshot: &domain.WeatherSnapshot{City: "London"}}
	runner := newTestRunner(chat, weather, &indexFake{})

	result := runner.Process(context.Background(), "how is the weather")
	if weather.lastCity != "" {
		t.Fatalf("provider called with %q despite extraction failure", weather.lastCity)
	}
	if result.Response != weatherUnavailableResponse {
		t.Fatalf("response = %q", result.Response)
	}
}

func TestEmptyCityExtractionDefaults(t *testing.T) {
	chat := &chatFake{classifyReply: "weather", cityReply: "  ", answerReply: "cloudy"}
	weather := &weatherFake{snapshot: &domain.WeatherSnapshot{City: "London"}}
	runner := newTestRunner(chat, weather, &indexFake{})

	runner.Process(context.Background(), "how is the weather")
	if weather.lastCity != "London" {
		t.Fatalf("city = %q, want default", weather.lastCity)
	}
}

func TestEmptyIndexYieldsFixedResponse(t *testing.T) {
	chat := &chatFake{classifyReply: "pdf", answerReply: "should not be used"}
	runner := newTestRunner(chat, &weatherFake{}, &indexFake{})

	result := runner.Process(context.Background(), "what does the report say")
	if result.Response != noDocumentsResponse {
		t.Fatalf("response = %q, want fixed retrieval fallback", result.Response)
	}
	if result.RetrievedDocsCount != 0 {
		t.Fatalf("retrieved docs = %d, want 0", result.RetrievedDocsCount)
	}
}

func TestDocumentAnswerUsesRetrievedContext(t *testing.T) {
	chat := &chatFake{classifyReply: "pdf", answerReply: "the answer"}
	index := &indexFake{matches: []domain.DocumentMatch{
		{Text: "first chunk", Score: 0.9},
		{Text: "second chunk", Score: 0.8},
	}}
	runner := newTestRunner(chat, &weatherFake{}, index)

	result := runner.Process(context.Background(), "question")
	if result.Response != "the answer" {
		t.Fatalf("response = %q", result.Response)
	}
	if result.RetrievedDocsCount != 2 {
		t.Fatalf("retrieved docs = %d, want 2", result.RetrievedDocsCount)
	}
	if index.lastLimit != defaultTopK {
		t.Fatalf("limit = %d, want default", index.lastLimit)
	}
	if !strings.Contains(chat.lastAnswerPrompt, "first chunk\n\nsecond chunk") {
		t.Fatalf("context not joined into prompt:\n%s", chat.lastAnswerPrompt)
	}
}

func TestSynthesisFailureYieldsApology(t *testing.T) {
	chat := &chatFake{classifyReply: "pdf", answerErr: errors.New("model down")}
	index := &indexFake{matches: []domain.DocumentMatch{{Text: "chunk"}}}
	runner := newTestRunner(chat, &weatherFake{}, index)

	result := runner.Process(context.Background(), "question")
	if result.Response != synthesisFailureResponse {
		t.Fatalf("response = %q, want apology", result.Response)
	}
}

func TestPanicBecomesUnknownResult(t *testing.T) {
	chat := &chatFake{classifyReply: "pdf"}
	index := &indexFake{panicMsg: "index exploded"}
	runner := newTestRunner(chat, &weatherFake{}, index)

	result := runner.Process(context.Background(), "question")
	if result.Intent != domain.IntentUnknown {
		t.Fatalf("intent = %q, want unknown", result.Intent)
	}
	if result.Response != pipelineFailureResponse {
		t.Fatalf("response = %q", result.Response)
	}
	if result.Metadata["error"] != "index exploded" {
		t.Fatalf("metadata = %v, want panic message", result.Metadata)
	}
}

func TestEmptyQueryStillProducesResult(t *testing.T) {
	chat := &chatFake{classifyReply: "pdf"}
	runner := newTestRunner(chat, &weatherFake{}, &indexFake{})

	result := runner.Process(context.Background(), "")
	if result.Query != "" || result.Response == "" {
		t.Fatalf("expected a degraded result for empty query, got %+v", result)
	}
}

func TestProcessAsyncDeliversOneResultAndCloses(t *testing.T) {
	chat := &chatFake{classifyReply: "pdf"}
	runner := newTestRunner(chat, &weatherFake{}, &indexFake{})

	ch := runner.ProcessAsync(context.Background(), "question")
	result, ok := <-ch
	if !ok {
		t.Fatalf("channel closed without a result")
	}
	if result.Response != noDocumentsResponse {
		t.Fatalf("response = %q", result.Response)
	}
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel to close after one result")
	}
}
