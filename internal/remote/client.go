// Package remote talks to the messaging backend: its REST API for health,
// chat lists and sends, and its WebSocket push channel.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/inbox/internal/errs"
	"github.com/matheus3301/inbox/internal/store"
)

// Options locates the backend.
type Options struct {
	BaseURL    string
	APIPrefix  string
	HealthPath string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client is the REST side of the backend.
type Client struct {
	baseURL    string
	apiPrefix  string
	healthPath string
	http       *http.Client
	logger     *zap.Logger
}

// NewClient creates a REST client.
func NewClient(opts Options, logger *zap.Logger) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	health := opts.HealthPath
	if health == "" {
		health = "/health"
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiPrefix:  strings.TrimRight(opts.APIPrefix, "/"),
		healthPath: health,
		http:       hc,
		logger:     logger,
	}
}

// SendRequest is the body of POST /send. TempID lets the backend echo our
// optimistic id back on the push channel.
type SendRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
	TempID  string `json:"tempId,omitempty"`
}

// SendResult is a successful send.
type SendResult struct {
	ServerID string
}

type sendResponse struct {
	Success bool `json:"success"`
	Data    *struct {
		Messages []struct {
			ID flexString `json:"id"`
		} `json:"messages"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// httpError is a non-2xx response.
type httpError struct {
	Method string
	Path   string
	Status int
	Body   []byte
}

func (e *httpError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.Status)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.Transient(method+" "+path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, errs.Transient("read "+path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return data, errs.Transient("backend error", &httpError{Method: method, Path: path, Status: resp.StatusCode, Body: data})
	}
	return data, nil
}

func decodeJSON[T any](data []byte) (*T, error) {
	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errs.Protocol("decode response", err)
	}
	return &result, nil
}

// Health probes GET /health. Any 2xx answer means reachable.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, c.healthPath, nil)
	return err
}

// ListChats fetches every chat snapshot. Invalid chats are logged and skipped.
func (c *Client) ListChats(ctx context.Context) ([]store.Snapshot, error) {
	data, err := c.doRequest(ctx, http.MethodGet, c.apiPrefix+"/chats", nil)
	if err != nil {
		return nil, err
	}
	snaps, rejected, err := ParseChats(data)
	if err != nil {
		return nil, err
	}
	for _, r := range rejected {
		c.logger.Warn("chat snapshot discarded", zap.Error(r))
	}
	return snaps, nil
}

// ListMessages fetches one chat's timeline as a snapshot.
func (c *Client) ListMessages(ctx context.Context, chatID string) (store.Snapshot, error) {
	path := c.apiPrefix + "/chats/" + url.PathEscape(chatID) + "/messages"
	data, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return store.Snapshot{}, err
	}
	return ParseMessages(chatID, data)
}

// Send posts a message. A response with success=false is an error carrying
// the backend's message.
func (c *Client) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	data, err := c.doRequest(ctx, http.MethodPost, c.apiPrefix+"/send", req)
	if err != nil {
		if msg := rejection(data); msg != "" {
			return SendResult{}, errs.Transient("send rejected: "+msg, err)
		}
		return SendResult{}, err
	}
	resp, err := decodeJSON[sendResponse](data)
	if err != nil {
		return SendResult{}, err
	}
	if !resp.Success {
		msg := "unknown error"
		if resp.Error != nil && resp.Error.Message != "" {
			msg = resp.Error.Message
		}
		return SendResult{}, errs.Transient("send rejected: "+msg, nil)
	}
	var result SendResult
	if resp.Data != nil && len(resp.Data.Messages) > 0 {
		result.ServerID = string(resp.Data.Messages[0].ID)
	}
	return result, nil
}

// rejection extracts error.message from an error response body, if present.
func rejection(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	resp, err := decodeJSON[sendResponse](data)
	if err != nil || resp.Error == nil {
		return ""
	}
	return resp.Error.Message
}
