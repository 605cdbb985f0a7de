package jina

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"rag-chat-be/pkg/upstream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJinaProvider_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":[{"object":"embedding","index":0,"embedding":[0.5,0.25]}]}`))
	}))
	defer srv.Close()

	p := NewJinaProvider("secret").WithBaseURL(srv.URL)
	res, err := p.Generate(context.Background(), "text", "")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, res.Embedding.Values)
}

func TestJinaProvider_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		status4xx bool
	}{
		{name: "api error field", status: http.StatusOK, body: `{"error":{"message":"quota"}}`},
		{name: "empty data", status: http.StatusOK, body: `{"data":[]}`},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{}`, status4xx: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewJinaProvider("k").WithBaseURL(srv.URL).Generate(context.Background(), "x", "")
			require.Error(t, err)
			if tt.status4xx {
				assert.False(t, upstream.IsTransient(err))
			}
		})
	}
}
