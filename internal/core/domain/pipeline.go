package domain

// Intent is the closed set of query routes. Classification coerces every
// unrecognized or failed outcome to IntentPDF, so IntentUnknown only appears
// in results produced by the driver's safety net.
type Intent string

const (
	IntentWeather Intent = "weather"
	IntentPDF     Intent = "pdf"
	IntentUnknown Intent = "unknown"
)

// ParseIntent normalizes a raw model label into an Intent. Anything outside
// the closed set falls back to IntentPDF: the retrieval branch is always
// available, the weather branch is not.
func ParseIntent(raw string) Intent {
	switch Intent(raw) {
	case IntentWeather:
		return IntentWeather
	case IntentPDF:
		return IntentPDF
	default:
		return IntentPDF
	}
}

// PipelineState is the mutable record threaded through one pipeline run.
// It is created fresh per query and never shared across runs.
type PipelineState struct {
	Query         string
	Intent        Intent
	Weather       *WeatherSnapshot
	RetrievedDocs []DocumentMatch
	FinalResponse string
	Metadata      map[string]any
}

func NewPipelineState(query string) *PipelineState {
	return &PipelineState{
		Query:    query,
		Metadata: map[string]any{},
	}
}

// MergeMetadata folds a stage's diagnostic keys into the accumulated
// metadata. Stages only ever add keys, they never replace the map wholesale.
func (s *PipelineState) MergeMetadata(kv map[string]any) {
	for k, v := range kv {
		s.Metadata[k] = v
	}
}

// QueryResult is the externally visible outcome of one pipeline run. The
// driver always produces one, even when a stage panics.
type QueryResult struct {
	Query              string           `json:"query"`
	Intent             Intent           `json:"intent"`
	Response           string           `json:"response"`
	WeatherData        *WeatherSnapshot `json:"weather_data"`
	RetrievedDocsCount int              `json:"retrieved_docs_count"`
	Metadata           map[string]any   `json:"metadata"`
}
