// Package sleephq is a client for the SleepHQ import API.
package sleephq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/olimci/sleepsync/pkg/digest"
	"github.com/olimci/sleepsync/pkg/store/config"
	"golang.org/x/oauth2"
)

const mediaType = "application/vnd.api+json"

var ErrNotAuthenticated = errors.New("sleephq: not authenticated")

// APIError is a non-2xx answer from SleepHQ.
type APIError struct {
	Op     string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("sleephq %s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("sleephq %s: status %d: %s", e.Op, e.Status, e.Body)
}

// File is one local file attached to an import.
type File struct {
	LocalPath string
	Path      string // path relative to the download root, slash separated
	Sum       digest.Sum
}

type Client struct {
	cfg     config.SleepHQ
	http    *http.Client
	baseURL string
	token   *oauth2.Token
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

func New(cfg config.SleepHQ, opts ...Option) *Client {
	c := &Client{
		cfg:     cfg,
		http:    http.DefaultClient,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authenticate runs the OAuth2 password grant and keeps the access token for
// later calls.
func (c *Client) Authenticate(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	conf := &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: []string{"read", "write"},
	}

	tok, err := conf.PasswordCredentialsToken(context.WithValue(ctx, oauth2.HTTPClient, c.http), c.cfg.Username, c.cfg.Password)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	c.token = tok
	return nil
}

// CreateImport opens a new import for the configured team.
func (c *Client) CreateImport(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]any{"programatic": false})
	if err != nil {
		return "", fmt.Errorf("encode import request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/teams/%s/imports", c.baseURL, url.PathEscape(c.cfg.TeamID))
	var out struct {
		Data struct {
			ID ID `json:"id"`
		} `json:"data"`
	}
	if err := c.post(ctx, "create import", endpoint, "application/json", bytes.NewReader(body), &out); err != nil {
		return "", err
	}
	if out.Data.ID == "" {
		return "", fmt.Errorf("create import: response has no data.id")
	}
	return string(out.Data.ID), nil
}

// UploadFile attaches f to the import as a multipart form.
func (c *Client) UploadFile(ctx context.Context, importID string, f File) error {
	src, err := os.Open(f.LocalPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", f.LocalPath, err)
	}
	defer src.Close()

	name := filepath.Base(f.LocalPath)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("build upload form: %w", err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("read %s: %w", f.LocalPath, err)
	}
	for _, field := range [][2]string{
		{"name", name},
		{"path", f.Path},
		{"content_hash", f.Sum.String()},
	} {
		if err := mw.WriteField(field[0], field[1]); err != nil {
			return fmt.Errorf("build upload form: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("build upload form: %w", err)
	}

	endpoint := fmt.Sprintf("%s/imports/%s/files", c.baseURL, url.PathEscape(importID))
	return c.post(ctx, "upload "+f.Path, endpoint, mw.FormDataContentType(), &buf, nil)
}

// ProcessImport asks SleepHQ to process the attached files.
func (c *Client) ProcessImport(ctx context.Context, importID string) error {
	endpoint := fmt.Sprintf("%s/imports/%s/process_files", c.baseURL, url.PathEscape(importID))
	return c.post(ctx, "process import", endpoint, "", nil, nil)
}

func (c *Client) post(ctx context.Context, op, endpoint, contentType string, body io.Reader, out any) error {
	if c.token == nil {
		return ErrNotAuthenticated
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", mediaType)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.token.SetAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d := c.cfg.Timeout.Duration; d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// ID accepts both JSON numbers and strings.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: expected string or number, got %s", data)
	}
	*id = ID(n.String())
	return nil
}
