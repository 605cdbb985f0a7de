// Package astra queries a DataStax Astra DB collection through the JSON Data API.
package astra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rag-chat-be/pkg/upstream"
	"rag-chat-be/pkg/vectorstore"
)

const insertBatchSize = 20

type Config struct {
	Endpoint   string
	Token      string
	Keyspace   string
	Collection string
}

type Store struct {
	url    string
	token  string
	client *http.Client
}

var _ vectorstore.Store = (*Store)(nil)

func NewStore(cfg Config) (*Store, error) {
	if cfg.Endpoint == "" || cfg.Token == "" || cfg.Collection == "" {
		return nil, errors.New("astra store requires endpoint, token and collection")
	}
	keyspace := cfg.Keyspace
	if keyspace == "" {
		keyspace = "default_keyspace"
	}
	return &Store{
		url:    fmt.Sprintf("%s/api/json/v1/%s/%s", strings.TrimRight(cfg.Endpoint, "/"), keyspace, cfg.Collection),
		token:  cfg.Token,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type findCommand struct {
	Find struct {
		Filter  map[string]interface{} `json:"filter"`
		Sort    map[string]interface{} `json:"sort"`
		Options struct {
			Limit             int  `json:"limit"`
			IncludeSimilarity bool `json:"includeSimilarity"`
		} `json:"options"`
	} `json:"find"`
}

type insertManyCommand struct {
	InsertMany struct {
		Documents []map[string]interface{} `json:"documents"`
		Options   struct {
			Ordered bool `json:"ordered"`
		} `json:"options"`
	} `json:"insertMany"`
}

type apiError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

type apiResponse struct {
	Data struct {
		Documents []map[string]interface{} `json:"documents"`
	} `json:"data"`
	Status struct {
		InsertedIds []interface{} `json:"insertedIds"`
	} `json:"status"`
	Errors []apiError `json:"errors"`
}

// Search issues find({}, sort $vector, limit). The filter is always empty.
func (s *Store) Search(ctx context.Context, vector []float32, limit int) ([]vectorstore.Document, error) {
	var cmd findCommand
	cmd.Find.Filter = map[string]interface{}{}
	cmd.Find.Sort = map[string]interface{}{"$vector": vector}
	cmd.Find.Options.Limit = limit
	cmd.Find.Options.IncludeSimilarity = true

	res, err := s.do(ctx, cmd)
	if err != nil {
		return nil, err
	}

	docs := make([]vectorstore.Document, 0, len(res.Data.Documents))
	for _, raw := range res.Data.Documents {
		docs = append(docs, toDocument(raw))
	}
	return docs, nil
}

func (s *Store) Insert(ctx context.Context, docs []vectorstore.Document) error {
	for start := 0; start < len(docs); start += insertBatchSize {
		end := min(start+insertBatchSize, len(docs))

		var cmd insertManyCommand
		cmd.InsertMany.Options.Ordered = false
		for _, d := range docs[start:end] {
			cmd.InsertMany.Documents = append(cmd.InsertMany.Documents, fromDocument(d))
		}

		if _, err := s.do(ctx, cmd); err != nil {
			return fmt.Errorf("insert batch %d-%d: %w", start, end, err)
		}
	}
	return nil
}

func (s *Store) do(ctx context.Context, cmd interface{}) (*apiResponse, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Token", s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("astra request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, upstream.NewStatusError("astra", resp.StatusCode, respBody)
	}

	var res apiResponse
	if err := json.Unmarshal(respBody, &res); err != nil {
		return nil, fmt.Errorf("decode astra response: %w", err)
	}
	// The Data API reports command failures with HTTP 200.
	if len(res.Errors) > 0 {
		msgs := make([]string, len(res.Errors))
		for i, e := range res.Errors {
			msgs[i] = e.Message
		}
		return nil, fmt.Errorf("astra command failed: %s", strings.Join(msgs, "; "))
	}
	return &res, nil
}

func toDocument(raw map[string]interface{}) vectorstore.Document {
	doc := vectorstore.Document{Metadata: map[string]interface{}{}}
	for k, v := range raw {
		switch k {
		case "_id":
			doc.ID = fmt.Sprint(v)
		case "text":
			doc.Text, _ = v.(string)
		case "source":
			doc.Source, _ = v.(string)
		case "$similarity":
			if f, ok := v.(float64); ok {
				doc.Score = float32(f)
			}
		case "$vector":
		default:
			doc.Metadata[k] = v
		}
	}
	return doc
}

func fromDocument(d vectorstore.Document) map[string]interface{} {
	raw := make(map[string]interface{}, len(d.Metadata)+4)
	for k, v := range d.Metadata {
		raw[k] = v
	}
	if d.ID != "" {
		raw["_id"] = d.ID
	}
	raw["text"] = d.Text
	if d.Source != "" {
		raw["source"] = d.Source
	}
	raw["$vector"] = d.Embedding
	return raw
}
