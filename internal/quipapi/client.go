package quipapi

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/imroc/req/v3"
	"golang.org/x/time/rate"

	"github.com/quipsync/quipsync/internal/version"
)

const (
	opGetFolder    = "get folder"
	opGetThread    = "get thread"
	opExportThread = "export thread"

	defaultTimeout = 60 * time.Second

	// One call at a time plus pacing keeps us well under the API's
	// documented per-minute quota.
	defaultRequestsPerSecond = 5
)

var userAgent = fmt.Sprintf("%s/%s (%s; %s)", version.AppName, version.Version, runtime.GOOS, runtime.GOARCH)

// Client issues single-attempt calls against the document API. Retries are
// the engine's job, not the transport's, so every failure surfaces as a
// classified *APIError after exactly one round trip.
type Client struct {
	http    *req.Client
	limiter *rate.Limiter
}

type Option func(*Client)

// WithRateLimit overrides the client-side request pacing.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(d)
	}
}

// New creates a client for the given API base (e.g.
// https://platform.quip.com/1) authenticated with the bearer token.
func New(baseURL, token string, opts ...Option) *Client {
	httpClient := req.C().
		SetBaseURL(baseURL).
		SetCommonBearerAuthToken(token).
		SetUserAgent(userAgent).
		SetTimeout(defaultTimeout)

	c := &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetFolder fetches a folder's metadata and its ordered children.
func (c *Client) GetFolder(ctx context.Context, id string) (*Folder, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var payload folderResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetSuccessResult(&payload).
		Get("/folders/" + id)

	if err := c.check(ctx, resp, err, opGetFolder, id); err != nil {
		return nil, err
	}
	return payload.toFolder(id), nil
}

// GetThread fetches a document's metadata, including the authoritative
// last-modified timestamp.
func (c *Client) GetThread(ctx context.Context, id string) (*Thread, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var payload threadResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetSuccessResult(&payload).
		Get("/threads/" + id)

	if err := c.check(ctx, resp, err, opGetThread, id); err != nil {
		return nil, err
	}
	return payload.toThread(id), nil
}

// ExportThread downloads the document rendered in the given format
// extension (docx, xlsx, pdf) and returns the raw bytes.
func (c *Client) ExportThread(ctx context.Context, id string, format string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		Get("/threads/" + id + "/export/" + format)

	if err := c.check(ctx, resp, err, opExportThread, id); err != nil {
		return nil, err
	}
	return resp.Bytes(), nil
}

// check folds the (response, transport error) pair of one attempt into a
// classified *APIError, or nil on success.
func (c *Client) check(ctx context.Context, resp *req.Response, err error, op, id string) error {
	if err != nil {
		// context cancellation is not an API failure; hand it back as-is
		// so callers never retry it
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &APIError{Class: ClassTransient, Op: op, ID: id, cause: err}
	}

	if resp.IsErrorState() {
		status := resp.GetStatusCode()
		return &APIError{Class: classifyStatus(status), Status: status, Op: op, ID: id}
	}

	return nil
}
