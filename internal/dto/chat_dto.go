package dto

// MessageDTO mirrors the client message. Only Content of the last
// message is used by the server; Id and Role are accepted as sent.
type MessageDTO struct {
	Id      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Messages []MessageDTO `json:"messages"`
}

// LastMessage returns the content of the final message, or "" for an empty list.
func (r *ChatRequest) LastMessage() string {
	if len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[len(r.Messages)-1].Content
}
