package service

import "errors"

// Failures before the first response byte. The HTTP layer maps all of
// them to the same 500 body.
var (
	ErrMalformedRequest  = errors.New("malformed chat request")
	ErrEmbeddingService  = errors.New("embedding service failed")
	ErrSearchService     = errors.New("vector search failed")
	ErrGenerationService = errors.New("generation service failed")
)

// ErrMalformedPayload marks a queued ingest message that cannot be decoded.
var ErrMalformedPayload = errors.New("malformed ingest payload")
