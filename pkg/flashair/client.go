// Package flashair talks to the command.cgi interface of a FlashAir card.
package flashair

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/olimci/sleepsync/pkg/store/config"
	"github.com/olimci/sleepsync/pkg/utils/fileutils"
)

const (
	opList   = "100"
	opDelete = "111"
)

// StatusError is a non-2xx answer from the card.
type StatusError struct {
	Op     string
	Path   string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("flashair %s %s: unexpected status %d", e.Op, e.Path, e.Status)
}

type Client struct {
	base            *url.URL
	password        string
	http            *http.Client
	timeout         time.Duration
	downloadTimeout time.Duration
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// New builds a client for cfg.Host, which may be a bare address or a URL.
func New(cfg config.FlashAir, opts ...Option) (*Client, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return nil, fmt.Errorf("flashair host is empty")
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse flashair host %q: %w", cfg.Host, err)
	}

	c := &Client{
		base:            base,
		password:        cfg.Password,
		http:            http.DefaultClient,
		timeout:         cfg.Timeout.Duration,
		downloadTimeout: cfg.DownloadTimeout.Duration,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// List returns the immediate entries of dir.
func (c *Client) List(ctx context.Context, dir string) ([]Entry, error) {
	resp, cancel, err := c.command(ctx, "list", dir, url.Values{"op": {opList}, "DIR": {dir}})
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer resp.Body.Close()

	entries, err := ParseFileList(dir, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	return entries, nil
}

// Delete removes a file or directory from the card.
func (c *Client) Delete(ctx context.Context, path string) error {
	resp, cancel, err := c.command(ctx, "delete", path, url.Values{"op": {opDelete}, "DEL": {path}})
	if err != nil {
		return err
	}
	defer cancel()
	return resp.Body.Close()
}

// Fetch downloads remote into dest, replacing dest only once the whole body
// has arrived.
func (c *Client) Fetch(ctx context.Context, remote, dest string) (int64, error) {
	ctx, cancel := withTimeout(ctx, c.downloadTimeout)
	defer cancel()

	u := *c.base
	u.Path = "/" + strings.TrimLeft(remote, "/")
	u.RawQuery = c.query(nil).Encode()

	resp, err := c.do(ctx, "download", remote, u)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := fileutils.WriteFileAtomic(dest, resp.Body, 0o644)
	if err != nil {
		return n, fmt.Errorf("download %s: %w", remote, err)
	}
	return n, nil
}

func (c *Client) command(ctx context.Context, op, path string, params url.Values) (*http.Response, context.CancelFunc, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)

	u := *c.base
	u.Path = "/command.cgi"
	u.RawQuery = c.query(params).Encode()

	resp, err := c.do(ctx, op, path, u)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return resp, cancel, nil
}

func (c *Client) do(ctx context.Context, op, path string, u url.URL) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, path, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// the request URL may carry the card password
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, fmt.Errorf("%s %s: %w", op, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &StatusError{Op: op, Path: path, Status: resp.StatusCode}
	}
	return resp, nil
}

func (c *Client) query(params url.Values) url.Values {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	if c.password != "" {
		q.Set("p", c.password)
	}
	return q
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
