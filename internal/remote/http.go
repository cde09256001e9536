package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/wordtrail/syncore/internal/learner"
)

// Client talks JSON over HTTP to the Wordtrail backend. It implements both
// Service and Catalog.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a Client for the given base URL. An empty token sends
// unauthenticated requests (local development servers).
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type batchRequest struct {
	Actions []learner.QueuedAction `json:"actions"`
}

type batchResponse struct {
	Results []ActionResult `json:"results"`
}

func (c *Client) SubmitBatch(ctx context.Context, learnerID string, actions []learner.QueuedAction) ([]ActionResult, error) {
	var resp batchResponse
	path := fmt.Sprintf("/v1/learners/%s/actions:batch", url.PathEscape(learnerID))
	if err := c.post(ctx, path, batchRequest{Actions: actions}, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (c *Client) GetSnapshot(ctx context.Context, learnerID string) (*learner.Snapshot, error) {
	var snap learner.Snapshot
	path := fmt.Sprintf("/v1/learners/%s/snapshot", url.PathEscape(learnerID))
	if err := c.get(ctx, path, &snap); err != nil {
		return nil, err
	}
	snap.LearnerID = learnerID
	snap.Normalize()
	return &snap, nil
}

func (c *Client) StartEntity(ctx context.Context, learnerID, entityID string) (*ActionResult, error) {
	var result ActionResult
	path := fmt.Sprintf("/v1/learners/%s/entities/%s:start",
		url.PathEscape(learnerID), url.PathEscape(entityID))
	if err := c.post(ctx, path, struct{}{}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) DueItems(ctx context.Context, learnerID string) ([]string, error) {
	var resp struct {
		Items []string `json:"items"`
	}
	path := fmt.Sprintf("/v1/learners/%s/due", url.PathEscape(learnerID))
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		resp.Items = []string{}
	}
	return resp.Items, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &ErrUnavailable{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &ErrUnavailable{Status: resp.StatusCode, Err: err}
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return &ErrUnavailable{Status: resp.StatusCode, Err: fmt.Errorf("%s", body)}
	case resp.StatusCode >= 400:
		return &ErrRejected{Status: resp.StatusCode, Body: string(body)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
