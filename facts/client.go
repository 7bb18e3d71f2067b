// Package facts talks to the broker's facts API.
package facts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/puyokura/odysseychat/model"
)

// DefaultBaseURL is the broker HTTP address used when none is configured.
const DefaultBaseURL = "http://localhost:8000"

// ErrRemote wraps every failure reported by the server in an ok=false body
// or a non-2xx status.
var ErrRemote = errors.New("facts: server error")

// Client lists and deletes stored facts.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a client for baseURL. An empty baseURL selects
// DefaultBaseURL.
func NewClient(baseURL string) (*Client, error) {
	value := strings.TrimSpace(baseURL)
	if value == "" {
		value = DefaultBaseURL
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("invalid facts url: %w", err)
	}
	if parsed.Scheme == "" {
		return nil, fmt.Errorf("facts url must include scheme (http://)")
	}
	return &Client{
		baseURL:    strings.TrimRight(value, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// List returns the facts stored for username. An empty username returns
// nil without a request.
func (c *Client) List(ctx context.Context, username string) ([]model.Fact, error) {
	if strings.TrimSpace(username) == "" {
		return nil, nil
	}
	query := url.Values{}
	query.Set("username", username)

	var resp model.APIResponse[[]model.Fact]
	if err := c.doJSON(ctx, http.MethodGet, "/api/facts?"+query.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("list facts for %s: %w", username, err)
	}
	return resp.Data, nil
}

// Delete removes one fact.
func (c *Client) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("delete fact: empty id")
	}
	var resp model.APIResponse[json.RawMessage]
	if err := c.doJSON(ctx, http.MethodDelete, "/api/facts/"+url.PathEscape(id), &resp); err != nil {
		return fmt.Errorf("delete fact %s: %w", id, err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var status struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	decodeErr := json.Unmarshal(data, &status)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(data))
		if decodeErr == nil && status.Error != "" {
			msg = status.Error
		}
		return fmt.Errorf("%w (%d): %s", ErrRemote, resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if !status.OK {
		return fmt.Errorf("%w: %s", ErrRemote, status.Error)
	}
	return json.Unmarshal(data, out)
}
