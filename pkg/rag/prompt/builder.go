package prompt

import (
	"bytes"
	"encoding/json"
	"strings"
)

const (
	instruction   = "I am giving you the context of the question , only give answer for the message according to the context given"
	openDivider   = "-----------------------------"
	closeDivider  = "-------------------------------"
	contextStart  = "START_CONTEXT"
	contextEnd    = "END_CONTEXT"
	respondPrefix = "Based on the context above, please respond to: "

	// Every template line carries this indent. The prompt opens with a
	// blank line and ends with a bare indent.
	indent = "    "
)

// Compose builds the generation prompt from retrieved texts and the latest
// user message. The newline-joined context is embedded as a JSON string
// literal.
func Compose(contexts []string, query string) string {
	lines := []string{
		instruction,
		openDivider,
		contextStart,
		quote(strings.Join(contexts, "\n")),
		contextEnd,
		closeDivider,
		respondPrefix + query,
	}

	var prompt strings.Builder
	prompt.WriteString("\n")
	for _, line := range lines {
		prompt.WriteString(indent)
		prompt.WriteString(line)
		prompt.WriteString("\n")
	}
	prompt.WriteString(indent)

	return prompt.String()
}

func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}
