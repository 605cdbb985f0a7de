package constant

import "time"

// Generation settings are fixed for every request.
const (
	GenerationTemperature = 0.85
	GenerationTopP        = 0.92
	GenerationTopK        = 40
	GenerationMaxTokens   = 250
)

const (
	// SearchLimit is the number of documents retrieved per question.
	SearchLimit = 8

	UpstreamAttempts = 3
	UpstreamDelay    = 2 * time.Second
)

const (
	ErrProcessMessage = "Failed to process message"

	ChatContentType = "text/plain; charset=utf-8"

	// ChatRoutePath serves a streamed body; middleware must not read it.
	ChatRoutePath = "/api/chat"
)

const (
	AuditDurableName = "chat-audit"
)
