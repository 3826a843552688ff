package persist

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

	"github.com/goliatone/go-resumekit/pkg/model"
)

// ClientOption configures an HTTP client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithTimeout bounds every request.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithSaveMethod overrides the verb used by Save (POST by default).
func WithSaveMethod(method string) ClientOption {
	return func(c *Client) {
		if method = strings.ToUpper(strings.TrimSpace(method)); method != "" {
			c.saveMethod = method
		}
	}
}

// Client talks to the resume storage API:
//
//	GET  {base}/v1/resumes/{id}
//	POST {base}/v1/resumes/{id}
//	PUT  {base}/v1/resumes/{id}/template
//	GET  {base}/v1/templates
type Client struct {
	base       string
	http       *http.Client
	timeout    time.Duration
	saveMethod string
}

var _ Backend = (*Client)(nil)

// NewClient builds a client for the API rooted at base.
func NewClient(base string, options ...ClientOption) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSpace(base))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("persist: invalid endpoint %q", base)
	}
	c := &Client{
		base:       strings.TrimRight(parsed.String(), "/"),
		http:       http.DefaultClient,
		timeout:    10 * time.Second,
		saveMethod: http.MethodPost,
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Save sends the snapshot. Any non-2xx response is returned as *StatusError.
func (c *Client) Save(ctx context.Context, snapshot Snapshot) error {
	if strings.TrimSpace(snapshot.ID) == "" {
		return fmt.Errorf("persist: save: resume id is required")
	}
	return c.do(ctx, c.saveMethod, c.resumeURL(snapshot.ID), snapshot, nil)
}

// SelectTemplate records templateID against the resume.
func (c *Client) SelectTemplate(ctx context.Context, resumeID, templateID string) error {
	payload := map[string]string{"template_selected": templateID}
	return c.do(ctx, http.MethodPut, c.resumeURL(resumeID)+"/template", payload, nil)
}

// Load fetches a resume.
func (c *Client) Load(ctx context.Context, resumeID string) (model.Document, error) {
	var doc model.Document
	if err := c.do(ctx, http.MethodGet, c.resumeURL(resumeID), nil, &doc); err != nil {
		return model.Document{}, err
	}
	return doc.Normalize(), nil
}

// Templates fetches the template catalog.
func (c *Client) Templates(ctx context.Context) ([]model.TemplateRef, error) {
	var out []model.TemplateRef
	if err := c.do(ctx, http.MethodGet, c.base+"/v1/templates", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) resumeURL(id string) string {
	return c.base + "/v1/resumes/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, target string, payload, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("persist: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("persist: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("persist: %s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("persist: read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, target)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(raw)),
			Fields: decodeFieldErrors(raw),
		}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("persist: decode response: %w", err)
	}
	return nil
}
