// Package ncamdclient is a minimal REST client for the gateway's admin API
// (internal/adminapi): a bearer-token-authenticated JSON client with one
// small do() core and thin per-endpoint wrappers.
package ncamdclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to one gateway's admin API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New returns a client for the admin API at baseURL, authenticating with
// token.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// APIError is returned for any non-2xx admin API response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("admin API: %s (HTTP %d)", e.Message, e.StatusCode)
}

type envelope struct {
	Status    string          `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func (c *Client) do(method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ncamdclient: marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("ncamdclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ncamdclient: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ncamdclient: read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 400 {
			return &APIError{StatusCode: resp.StatusCode, Message: string(raw)}
		}
		return fmt.Errorf("ncamdclient: decode response: %w", err)
	}
	if resp.StatusCode >= 400 {
		msg := env.Error
		if msg == "" {
			msg = string(raw)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("ncamdclient: decode data: %w", err)
		}
	}
	return nil
}

func (c *Client) get(path string, result any) error { return c.do(http.MethodGet, path, nil, result) }
func (c *Client) post(path string, body any) error   { return c.do(http.MethodPost, path, body, nil) }

// ClientSnapshot mirrors pkg/newcamd.Snapshot's JSON shape (that type
// carries no json tags, so its Go field names are the wire names).
type ClientSnapshot struct {
	ID         string
	IP         string
	Username   string
	ClientName string
	CAID       uint16
	SID        uint16
	Channel    string
	ConnectAt  time.Time
	LastECMAt  time.Time
	BytesIn    int64
	BytesOut   int64
	State      string
}

// CounterSnapshot mirrors pkg/newcamd.CounterSnapshot's JSON shape.
type CounterSnapshot struct {
	Active      int64
	ECMTotal    int64
	CWHits      int64
	CWMisses    int64
	DecodeTotal time.Duration
	FirstLogin  time.Time
	LastSeen    time.Time
}

// Clients returns the live client registry snapshot.
func (c *Client) Clients() ([]ClientSnapshot, error) {
	var snaps []ClientSnapshot
	if err := c.get("/admin/clients", &snaps); err != nil {
		return nil, err
	}
	return snaps, nil
}

// KillClient sets the kill flag on the client with the given id.
func (c *Client) KillClient(id string) error {
	return c.post("/admin/clients/"+id+"/kill", nil)
}

// Reload triggers the gateway's reload flag.
func (c *Client) Reload() error {
	return c.post("/admin/reload", nil)
}

// AccountCounters returns one account's counter snapshot.
func (c *Client) AccountCounters(username string) (*CounterSnapshot, error) {
	var snap CounterSnapshot
	if err := c.get("/admin/accounts/"+username+"/counters", &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// ResetAccountCounters zeroes one account's counters.
func (c *Client) ResetAccountCounters(username string) error {
	return c.post("/admin/accounts/"+username+"/reset-counters", nil)
}

// Shutdown stops the gateway.
func (c *Client) Shutdown() error { return c.post("/admin/shutdown", nil) }

// Restart restarts the gateway in place.
func (c *Client) Restart() error { return c.post("/admin/restart", nil) }
