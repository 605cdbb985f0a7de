package dto

type IngestDocumentRequest struct {
	Source   string                 `json:"source" validate:"required,max=512"`
	Text     string                 `json:"text" validate:"required"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type IngestDocumentResponse struct {
	Source string `json:"source"`
	Queued bool   `json:"queued"`
}

// PublishIngestDocumentMessage is the watermill payload for queued ingestion.
type PublishIngestDocumentMessage struct {
	Source   string                 `json:"source"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	VectorStore string `json:"vector_store"`
	LLM         string `json:"llm"`
	Embedding   string `json:"embedding"`
}
