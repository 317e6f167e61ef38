package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client communicates with the hierarchy/content HTTP API.
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
			Timeout: 30 * time.Second,
		},
	}
}

// ListItems returns the published content items for a lesson and resource
// type, in upstream order. Unpublished items are filtered out.
func (c *Client) ListItems(ctx context.Context, lessonID string, rt ResourceType) ([]Item, error) {
	u := fmt.Sprintf("%s/api/lessons/%s/contents?type=%s", c.baseURL, url.PathEscape(lessonID), url.QueryEscape(string(rt)))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("list contents: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("list contents %s/%s: status %d: %s", lessonID, rt, resp.StatusCode, string(respBody))
	}

	var result struct {
		Items []Item `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode contents: %w", err)
	}

	published := make([]Item, 0, len(result.Items))
	for _, it := range result.Items {
		if it.IsPublished {
			published = append(published, it)
		}
	}
	return published, nil
}

// GetHierarchy fetches the breadcrumb metadata for a lesson.
func (c *Client) GetHierarchy(ctx context.Context, lessonID string) (*Hierarchy, error) {
	u := fmt.Sprintf("%s/api/lessons/%s/hierarchy", c.baseURL, url.PathEscape(lessonID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("get hierarchy: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("get hierarchy %s: status %d: %s", lessonID, resp.StatusCode, string(respBody))
	}

	var h Hierarchy
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, fmt.Errorf("decode hierarchy: %w", err)
	}
	return &h, nil
}

// IncrementDownloads bumps the usage counter for a lesson+resource pair.
// Called at most once per successful export job.
func (c *Client) IncrementDownloads(ctx context.Context, lessonID string, rt ResourceType) error {
	body, err := json.Marshal(map[string]string{"resource_type": string(rt)})
	if err != nil {
		return fmt.Errorf("marshal counter request: %w", err)
	}
	u := fmt.Sprintf("%s/api/lessons/%s/downloads", c.baseURL, url.PathEscape(lessonID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("increment downloads: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("increment downloads %s/%s: status %d: %s", lessonID, rt, resp.StatusCode, string(respBody))
	}
	return nil
}

// FetchLogo retrieves the header logo image bytes. Callers treat a failure
// as "no logo" rather than aborting the export.
func (c *Client) FetchLogo(ctx context.Context, logoURL string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, logoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch logo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch logo: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read logo: %w", err)
	}
	return data, nil
}

// Close releases any resources (currently a no-op).
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
