package controller

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"rag-chat-be/internal/dto"
	"rag-chat-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIngestService struct {
	queued []*dto.IngestDocumentRequest
}

func (f *fakeIngestService) Enqueue(ctx context.Context, req *dto.IngestDocumentRequest) (*dto.IngestDocumentResponse, error) {
	f.queued = append(f.queued, req)
	return &dto.IngestDocumentResponse{Source: req.Source, Queued: true}, nil
}

func (f *fakeIngestService) Ingest(ctx context.Context, msg *dto.PublishIngestDocumentMessage) (int, error) {
	return 0, nil
}

func newDocumentApp(svc *fakeIngestService) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	api := app.Group("/api")
	NewDocumentController(svc).RegisterRoutes(api)
	NewHealthController("chromem", "gemini", "gemini").RegisterRoutes(api)
	return app
}

func TestDocuments_Accepted(t *testing.T) {
	svc := &fakeIngestService{}
	app := newDocumentApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/documents",
		strings.NewReader(`{"source":"faq.md","text":"Opening hours are 9 to 5."}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Len(t, svc.queued, 1)
	assert.Equal(t, "faq.md", svc.queued[0].Source)
}

func TestDocuments_ValidationError(t *testing.T) {
	svc := &fakeIngestService{}
	app := newDocumentApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/documents", strings.NewReader(`{"source":"faq.md"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, svc.queued)
}

func TestHealth(t *testing.T) {
	app := newDocumentApp(&fakeIngestService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"vector_store":"chromem"`)
	assert.Contains(t, string(body), `"status":"ok"`)
}
