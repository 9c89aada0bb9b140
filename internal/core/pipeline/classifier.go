package pipeline

import (
	"context"
	"strings"

	"github.com/ivgusev/queryrouter/internal/core/domain"
	"github.com/ivgusev/queryrouter/internal/core/ports"
)

// classificationErrorLabel is recorded in result metadata when the model
// call itself failed, as opposed to returning an off-vocabulary label.
const classificationErrorLabel = "error"

// IntentClassifier routes a query to one of the two branches. It never
// returns an error: a failed or off-vocabulary classification falls back to
// the retrieval branch, which works regardless of external providers.
type IntentClassifier struct {
	llm ports.ChatModel
}

func NewIntentClassifier(llm ports.ChatModel) *IntentClassifier {
	return &IntentClassifier{llm: llm}
}

// Classify returns the routed intent plus the outcome label stored under
// the "intent_classification" metadata key: the coerced intent on success,
// "error" when the model was unreachable.
func (c *IntentClassifier) Classify(ctx context.Context, query string) (domain.Intent, string) {
	raw, err := c.llm.Complete(ctx, classifyMessages(query))
	if err != nil {
		return domain.IntentPDF, classificationErrorLabel
	}

	intent := domain.ParseIntent(strings.ToLower(strings.TrimSpace(raw)))
	return intent, string(intent)
}
