package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ivgusev/queryrouter/internal/core/domain"
)

// Client drives a Qdrant collection over its HTTP API: one fixed-name
// collection of fixed-dimension vectors under cosine distance.
type Client struct {
	baseURL    string
	apiKey     string
	collection string
	vectorSize int
	httpClient *http.Client

	ensureMu sync.Mutex
	ensured  bool
}

func New(baseURL, apiKey, collection string, vectorSize int) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		collection: collection,
		vectorSize: vectorSize,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Collection() string {
	return c.collection
}

// Upsert writes records as points keyed by their generated ids.
func (c *Client) Upsert(ctx context.Context, records []domain.IndexRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := c.ensureCollection(ctx); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(records))
	for _, record := range records {
		payload := map[string]any{"text": record.Text}
		for k, v := range record.Metadata {
			payload[k] = v
		}
		points = append(points, point{
			ID:      record.ID,
			Vector:  record.Vector,
			Payload: payload,
		})
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	return c.do(ctx, http.MethodPut, url, map[string]any{"points": points}, nil, "upsert")
}

// Query returns up to limit nearest neighbors ordered by descending cosine
// similarity.
func (c *Client) Query(ctx context.Context, vector []float32, limit int) ([]domain.DocumentMatch, error) {
	request := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}

	var response struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	if err := c.do(ctx, http.MethodPost, url, request, &response, "search"); err != nil {
		return nil, err
	}

	matches := make([]domain.DocumentMatch, 0, len(response.Result))
	for _, hit := range response.Result {
		text, _ := hit.Payload["text"].(string)
		metadata := make(map[string]any, len(hit.Payload))
		for k, v := range hit.Payload {
			if k != "text" {
				metadata[k] = v
			}
		}
		matches = append(matches, domain.DocumentMatch{
			Text:     text,
			Score:    hit.Score,
			Metadata: metadata,
		})
	}
	return matches, nil
}

// Count reports the number of stored points.
func (c *Client) Count(ctx context.Context) (int, error) {
	var response struct {
		Result struct {
			PointsCount int `json:"points_count"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	if err := c.do(ctx, http.MethodGet, url, nil, &response, "collection info"); err != nil {
		return 0, err
	}
	return response.Result.PointsCount, nil
}

func (c *Client) ensureCollection(ctx context.Context) error {
	c.ensureMu.Lock()
	if c.ensured {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	request := map[string]any{
		"vectors": map[string]any{
			"size":     c.vectorSize,
			"distance": "Cosine",
		},
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	err := c.do(ctx, http.MethodPut, url, request, nil, "ensure collection")
	if err != nil {
		// 409 means another process created it first.
		var statusErr *statusError
		if !asStatusError(err, &statusErr) || statusErr.code != http.StatusConflict {
			return err
		}
	}

	c.ensureMu.Lock()
	c.ensured = true
	c.ensureMu.Unlock()
	return nil
}

type statusError struct {
	operation string
	code      int
	status    string
	body      string
}

func (e *statusError) Error() string {
	if strings.TrimSpace(e.body) == "" {
		return fmt.Sprintf("qdrant %s status: %s", e.operation, e.status)
	}
	return fmt.Sprintf("qdrant %s status: %s: %s", e.operation, e.status, e.body)
}

func asStatusError(err error, target **statusError) bool {
	se, ok := err.(*statusError)
	if ok {
		*target = se
	}
	return ok
}

func (c *Client) do(ctx context.Context, method, url string, payload, out any, operation string) error {
	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", operation, err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &statusError{
			operation: operation,
			code:      resp.StatusCode,
			status:    resp.Status,
			body:      strings.TrimSpace(string(raw)),
		}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", operation, err)
		}
	}
	return nil
}
