// Package client provides typed access to the scribe REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/scribe/internal/models"
)

// Client talks to a scribe server on behalf of one bearer token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithToken sets the ID token sent as the Bearer credential.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// New constructs a Client pointing at the provided server base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = "http://localhost:8080"
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// APIError is a failure reported with a non-2xx status, typically 401.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

// Failure is a {success:false} envelope delivered with a 2xx status.
type Failure struct {
	Message string
}

func (f Failure) Error() string { return f.Message }

// Message returns the server-supplied message of an APIError or Failure, or
// err's text otherwise.
func Message(err error) string {
	switch e := err.(type) {
	case APIError:
		if e.Message != "" {
			return e.Message
		}
	case Failure:
		return e.Message
	case nil:
		return ""
	}
	return err.Error()
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, v any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return APIError{Status: resp.StatusCode, Message: extractMessage(data)}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		return Failure{Message: env.Message}
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractMessage(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return strings.TrimSpace(string(data))
	}
	return strings.TrimSpace(env.Message)
}

// Register creates an account and returns its uid.
func (c *Client) Register(ctx context.Context, email, password, name string) (string, error) {
	var resp struct {
		UserID string `json:"userId"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
	}, &resp)
	return resp.UserID, err
}

// Login requests a custom token for uid.
func (c *Client) Login(ctx context.Context, uid string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{"uid": uid}, &resp)
	return resp.Token, err
}

// SignIn exchanges credentials for an ID token and the account uid.
func (c *Client) SignIn(ctx context.Context, email, password string) (token, uid string, err error) {
	var resp struct {
		Token  string `json:"token"`
		UserID string `json:"userId"`
	}
	err = c.do(ctx, http.MethodPost, "/api/auth/signin", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	return resp.Token, resp.UserID, err
}

// Verify checks an ID token and returns its subject.
func (c *Client) Verify(ctx context.Context, idToken string) (string, error) {
	var resp struct {
		UserID string `json:"userId"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/verify", map[string]string{"idToken": idToken}, &resp)
	return resp.UserID, err
}

// Profile returns the caller's profile.
func (c *Client) Profile(ctx context.Context) (models.User, error) {
	var resp struct {
		User models.User `json:"user"`
	}
	err := c.do(ctx, http.MethodGet, "/api/auth/profile", nil, &resp)
	return resp.User, err
}

// ListNotes returns the caller's notes, most recent first.
func (c *Client) ListNotes(ctx context.Context) ([]models.Note, error) {
	var resp struct {
		Notes []models.Note `json:"notes"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/notes", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Notes == nil {
		resp.Notes = []models.Note{}
	}
	return resp.Notes, nil
}

// GetNote fetches a single note.
func (c *Client) GetNote(ctx context.Context, id string) (models.Note, error) {
	var resp struct {
		Note models.Note `json:"note"`
	}
	err := c.do(ctx, http.MethodGet, "/api/notes/"+url.PathEscape(id), nil, &resp)
	return resp.Note, err
}

// CreateNote stores a new note and returns the stored record.
func (c *Client) CreateNote(ctx context.Context, title, content string) (models.Note, error) {
	var resp struct {
		Note models.Note `json:"note"`
	}
	err := c.do(ctx, http.MethodPost, "/api/notes", map[string]string{
		"title":   title,
		"content": content,
	}, &resp)
	return resp.Note, err
}

// UpdateNote changes title and/or content. Empty values are not sent.
func (c *Client) UpdateNote(ctx context.Context, id, title, content string) error {
	body := map[string]string{}
	if title != "" {
		body["title"] = title
	}
	if content != "" {
		body["content"] = content
	}
	return c.do(ctx, http.MethodPut, "/api/notes/"+url.PathEscape(id), body, nil)
}

// DeleteNote removes a note.
func (c *Client) DeleteNote(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/notes/"+url.PathEscape(id), nil, nil)
}

// Export is a downloaded Markdown rendering of a note.
type Export struct {
	Filename string
	Body     string
}

// ExportNote downloads the Markdown rendering of a note.
func (c *Client) ExportNote(ctx context.Context, id string) (Export, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/notes/"+url.PathEscape(id)+"/export", nil)
	if err != nil {
		return Export{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Export{}, fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Export{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return Export{}, APIError{Status: resp.StatusCode, Message: extractMessage(data)}
	}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		return Export{}, Failure{Message: extractMessage(data)}
	}

	exp := Export{Body: string(data), Filename: "untitled.md"}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		exp.Filename = params["filename"]
	}
	return exp, nil
}
