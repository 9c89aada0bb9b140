package pipeline

import (
	"fmt"
	"strings"

	"github.com/ivgusev/queryrouter/internal/core/domain"
	"github.com/ivgusev/queryrouter/internal/core/ports"
)

const classifierSystemPrompt = `You are an intent classifier. Classify the user query as either:
- "weather": if asking about weather, temperature, climate conditions
- "pdf": if asking about document content, information from files

Respond with only one word: "weather" or "pdf"`

const cityExtractionSystemPrompt = `Extract the city name from this weather query.
Respond with only the city name, nothing else.
If no city is mentioned, respond with "London" as default.`

const weatherAnswerSystemPrompt = `You are a helpful weather assistant. Provide a natural, conversational response
about the weather based on the provided data. Be concise but informative.`

const documentAnswerSystemPrompt = `You are a helpful assistant that answers questions based on provided document context.
Use only the information from the context to answer the question.
If the context doesn't contain enough information, say so clearly.`

func classifyMessages(query string) []ports.ChatMessage {
	return []ports.ChatMessage{
		{Role: ports.RoleSystem, Content: classifierSystemPrompt},
		{Role: ports.RoleUser, Content: query},
	}
}

func cityExtractionMessages(query string) []ports.ChatMessage {
	return []ports.ChatMessage{
		{Role: ports.RoleSystem, Content: cityExtractionSystemPrompt},
		{Role: ports.RoleUser, Content: query},
	}
}

func weatherAnswerMessages(query, report string) []ports.ChatMessage {
	return []ports.ChatMessage{
		{Role: ports.RoleSystem, Content: weatherAnswerSystemPrompt},
		{Role: ports.RoleUser, Content: fmt.Sprintf("User query: %s\n\nWeather data:\n%s", query, report)},
	}
}

func documentAnswerMessages(query string, matches []domain.DocumentMatch) []ports.ChatMessage {
	contexts := make([]string, 0, len(matches))
	for _, m := range matches {
		contexts = append(contexts, m.Text)
	}
	return []ports.ChatMessage{
		{Role: ports.RoleSystem, Content: documentAnswerSystemPrompt},
		{Role: ports.RoleUser, Content: fmt.Sprintf("Question: %s\n\nContext:\n%s", query, strings.Join(contexts, "\n\n"))},
	}
}
