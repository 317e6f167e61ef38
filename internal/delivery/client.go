// Package delivery submits finished export documents to the external email
// delivery channel.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Submission is one finished document plus its routing metadata.
type Submission struct {
	PDF          []byte
	Filename     string
	Recipient    string
	Title        string
	LessonID     string
	ResourceType string
	SenderName   string
}

// Ack is the channel's acceptance response. Success=false means the channel
// rejected the submission; that is terminal, not retried.
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// RetryableError marks transient submission failures (network errors, 5xx).
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

const MaxRetries = 3

// Client talks to the delivery HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Send submits the document, retrying transient failures with backoff.
func (c *Client) Send(ctx context.Context, sub Submission) (*Ack, error) {
	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		ack, err := c.submit(ctx, sub)
		if err == nil {
			return ack, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return nil, err
		}
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (c *Client) submit(ctx context.Context, sub Submission) (*Ack, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fields := map[string]string{
		"to":            sub.Recipient,
		"title":         sub.Title,
		"lesson_id":     sub.LessonID,
		"resource_type": sub.ResourceType,
		"sender_name":   sub.SenderName,
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("write field %s: %w", k, err)
		}
	}
	part, err := mw.CreateFormFile("file", sub.Filename)
	if err != nil {
		return nil, fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(sub.PDF); err != nil {
		return nil, fmt.Errorf("write file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/deliveries", &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &RetryableError{Err: fmt.Errorf("submit delivery: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &RetryableError{Err: fmt.Errorf("submit delivery: status %d: %s", resp.StatusCode, string(respBody))}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("submit delivery: status %d: %s", resp.StatusCode, string(respBody))
	}

	var ack Ack
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return nil, fmt.Errorf("decode delivery ack: %w", err)
	}
	return &ack, nil
}

// Close releases any resources (currently a no-op).
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
