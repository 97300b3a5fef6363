package qa

import "strings"

const instructions = "Answer the question based on the context below. Provide concise and accurate answers."

// BuildPrompt assembles the single prompt sent to the completion service.
func BuildPrompt(context, question string) string {
	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString("\nContext:\n")
	sb.WriteString(context)
	sb.WriteString("\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\nAnswer:")
	return sb.String()
}

// EstimateTokens gives a rough token count, about 1.33 tokens per word.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return max(int(float64(words)*1.33), 1)
}
