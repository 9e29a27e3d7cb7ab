package synthesis

import (
	"fmt"
	"strings"
)

// EmptyAnswerPlaceholder replaces an answer that parsed empty while the
// model still produced a reasoning trace
const EmptyAnswerPlaceholder = "[AI response was empty. See reasoning process.]"

// EmptyResponseError is the answer when the model returned nothing usable
const EmptyResponseError = "[AI Response Processing Error: Empty result after parsing]"

// ApologyMessage is the persisted answer for a model invocation failure
func ApologyMessage(reason string) string {
	return fmt.Sprintf("Sorry, I encountered an error while processing your request (%s). The AI model might be unavailable, timed out, or failed internally.", reason)
}

// DocumentNoContentMessage is the terminal answer when a document-scoped
// search yields nothing; it never reaches the model
func DocumentNoContentMessage(filename string) string {
	return fmt.Sprintf("The document '%s' does not contain enough information to answer your question. Try asking a more general question or rephrasing.", filename)
}

// reasoningPhrases mark questions that ask for a step-by-step explanation
var reasoningPhrases = []string{
	"step-by-step",
	"step by step",
	"explain your reasoning",
	"detailed explanation",
	"walk me through",
	"how does this work",
}

// RequiresReasoning reports whether a question should get the reasoning
// prompt variant
func RequiresReasoning(question string) bool {
	lowered := strings.ToLower(question)
	for _, phrase := range reasoningPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}
