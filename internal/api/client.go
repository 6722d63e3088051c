// Package api is the HTTP client for the CI server's REST API.
//
// Jobs and Resources return raw per-item snapshots rather than decoded
// structs: a single malformed item in a listing must not poison the rest
// of the page, so decoding is deferred to the point of use (see
// atc.DecodeJob and friends).
package api

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/smileynet/flightdeck/internal/atc"
)

const userAgent = "flightdeck"

// Client talks to one CI server. It is safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
	insecure   bool
}

// Option adjusts a Client at construction time.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP transport. Used by tests and
// by callers that need custom timeouts or TLS settings.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the structured logger. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithInsecure skips TLS certificate verification, for servers with
// self-signed certificates. Ignored when a custom HTTP client is set.
func WithInsecure() Option {
	return func(c *Client) { c.insecure = true }
}

// NewClient builds a client for the server at serverURL. The token may be
// empty for servers that expose public pipelines.
func NewClient(serverURL, token string, opts ...Option) (*Client, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", serverURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("server url %q: missing host", serverURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(serverURL, "/"),
		token:   token,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 10 * time.Second}
		if c.insecure {
			c.httpClient.Transport = &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			}
		}
	}
	return c, nil
}

// URL returns the server base URL, without a trailing slash.
func (c *Client) URL() string {
	return c.baseURL
}

// PipelineURL returns the browser-facing address of a pipeline page.
func (c *Client) PipelineURL(loc atc.PipelineLocator) string {
	return c.baseURL + "/teams/" + url.PathEscape(loc.Team) +
		"/pipelines/" + url.PathEscape(loc.Pipeline)
}

// Pipeline fetches the metadata record for one pipeline.
func (c *Client) Pipeline(ctx context.Context, loc atc.PipelineLocator) (atc.Pipeline, error) {
	var p atc.Pipeline
	err := c.get(ctx, pipelinePath(loc), &p)
	return p, err
}

// Jobs fetches the pipeline's job listing as raw per-item snapshots.
func (c *Client) Jobs(ctx context.Context, loc atc.PipelineLocator) ([]json.RawMessage, error) {
	var raws []json.RawMessage
	err := c.get(ctx, pipelinePath(loc)+"/jobs", &raws)
	return raws, err
}

// Resources fetches the pipeline's resource listing as raw per-item
// snapshots.
func (c *Client) Resources(ctx context.Context, loc atc.PipelineLocator) ([]json.RawMessage, error) {
	var raws []json.RawMessage
	err := c.get(ctx, pipelinePath(loc)+"/resources", &raws)
	return raws, err
}

// Info fetches the server identity record.
func (c *Client) Info(ctx context.Context) (atc.Info, error) {
	var info atc.Info
	err := c.get(ctx, "/api/v1/info", &info)
	return info, err
}

// Teams lists every team visible to the caller.
func (c *Client) Teams(ctx context.Context) ([]atc.Team, error) {
	var teams []atc.Team
	err := c.get(ctx, "/api/v1/teams", &teams)
	return teams, err
}

// Pipelines lists a team's pipelines. An empty team lists pipelines
// across all teams the caller can see.
func (c *Client) Pipelines(ctx context.Context, team string) ([]atc.Pipeline, error) {
	path := "/api/v1/pipelines"
	if team != "" {
		path = "/api/v1/teams/" + url.PathEscape(team) + "/pipelines"
	}
	var pipelines []atc.Pipeline
	err := c.get(ctx, path, &pipelines)
	return pipelines, err
}

// SetPaused pauses or unpauses a pipeline.
func (c *Client) SetPaused(ctx context.Context, loc atc.PipelineLocator, paused bool) error {
	verb := "unpause"
	if paused {
		verb = "pause"
	}
	_, err := c.do(ctx, http.MethodPut, pipelinePath(loc)+"/"+verb)
	return err
}

func pipelinePath(loc atc.PipelineLocator) string {
	return "/api/v1/teams/" + url.PathEscape(loc.Team) +
		"/pipelines/" + url.PathEscape(loc.Pipeline)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	body, err := c.do(ctx, http.MethodGet, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("request failed",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
		)
		return nil, &Error{Status: resp.StatusCode, Path: path}
	}
	return body, nil
}
