package generation

import (
	"fmt"
	"strings"
)

const promptTemplate = "Based on the following passages from the document:\n\n%s\n\nQuestion: %s\n\nAnswer:"

// BuildPrompt joins the ranked chunk texts with a blank line and appends
// the question. The same input always yields the same prompt.
func BuildPrompt(chunks []string, question string) string {
	return fmt.Sprintf(promptTemplate, strings.Join(chunks, "\n\n"), strings.TrimSpace(question))
}

// cleanAnswer trims the generated text and removes one pair of
// surrounding double quotes.
func cleanAnswer(text string) string {
	text = strings.TrimSpace(text)
	if len(text) >= 2 && strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) {
		text = strings.TrimSpace(text[1 : len(text)-1])
	}
	return text
}
