// Package upstream is the HTTP client for the babies REST API. Every call
// forwards the caller's bearer token from the request context.
package upstream

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/vaxreport/vaxreport/internal/domain/vaccination"
	"github.com/vaxreport/vaxreport/internal/platform/auth"
	"github.com/vaxreport/vaxreport/internal/platform/cache"
)

const maxResponseBytes = 10 << 20

// StatusError is a non-2xx upstream response. It unwraps to the matching
// vaccination sentinel so callers can use errors.Is.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("upstream %s %s: status %d", e.Method, e.Path, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return vaccination.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return vaccination.ErrUnauthorized
	default:
		return vaccination.ErrUpstream
	}
}

type Options struct {
	BaseURL string
	Timeout time.Duration
	// Cache, when set, holds GET responses for CacheTTL.
	Cache    cache.Store
	CacheTTL time.Duration
	// BatchStatus enables GET /babies/{id}/vaccination-status?ids=a,b.
	BatchStatus bool
	HTTPClient  *http.Client
	Logger      zerolog.Logger
}

type Client struct {
	baseURL  string
	http     *http.Client
	cache    cache.Store
	cacheTTL time.Duration
	batch    atomic.Bool
	logger   zerolog.Logger
}

var _ vaccination.Upstream = (*Client)(nil)

func New(opts Options) (*Client, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid upstream base url %q", opts.BaseURL)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	c := &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		http:     httpClient,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		logger:   opts.Logger.With().Str("component", "upstream").Logger(),
	}
	c.batch.Store(opts.BatchStatus)
	return c, nil
}

func babyPath(babyID string, parts ...string) string {
	p := "/babies/" + url.PathEscape(babyID)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

func (c *Client) GetBaby(ctx context.Context, babyID string) (*vaccination.Baby, error) {
	var baby vaccination.Baby
	if err := c.getCached(ctx, babyPath(babyID), nil, &baby); err != nil {
		return nil, err
	}
	if baby.ID == "" {
		baby.ID = vaccination.ID(babyID)
	}
	return &baby, nil
}

func (c *Client) GetVaccinations(ctx context.Context, babyID string) (*vaccination.Schedule, error) {
	var sched vaccination.Schedule
	if err := c.getCached(ctx, babyPath(babyID, "vaccinations"), nil, &sched); err != nil {
		return nil, err
	}
	return &sched, nil
}

func (c *Client) GetVaccinationStatus(ctx context.Context, babyID, entryID string) (*vaccination.Entry, error) {
	var e vaccination.Entry
	if err := c.getCached(ctx, babyPath(babyID, "vaccination-status", entryID), nil, &e); err != nil {
		return nil, err
	}
	if e.ID == "" {
		e.ID = vaccination.ID(entryID)
	}
	return &e, nil
}

// GetVaccinationStatuses fetches the details of several entries, keyed by id.
// It uses one batched request when enabled and falls back to one request per
// id otherwise, or permanently once the upstream rejects the batch route.
// Ids the upstream does not know are omitted from the result.
func (c *Client) GetVaccinationStatuses(ctx context.Context, babyID string, entryIDs []string) (map[string]*vaccination.Entry, error) {
	out := make(map[string]*vaccination.Entry, len(entryIDs))
	if len(entryIDs) == 0 {
		return out, nil
	}

	if c.batch.Load() {
		entries, err := c.batchStatuses(ctx, babyID, entryIDs)
		if err == nil {
			for i := range entries {
				e := entries[i]
				out[e.ID.String()] = &e
			}
			return out, nil
		}
		var se *StatusError
		if !errors.As(err, &se) || !batchUnsupported(se.StatusCode) {
			return nil, err
		}
		c.logger.Warn().Int("status", se.StatusCode).Msg("batch status route unavailable, falling back to per-id requests")
		c.batch.Store(false)
	}

	for _, id := range entryIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e, err := c.GetVaccinationStatus(ctx, babyID, id)
		if err != nil {
			if errors.Is(err, vaccination.ErrNotFound) {
				c.logger.Warn().Str("baby_id", babyID).Str("entry_id", id).Msg("vaccination status not found")
				continue
			}
			return nil, err
		}
		out[id] = e
	}
	return out, nil
}

func batchUnsupported(code int) bool {
	return code == http.StatusNotFound || code == http.StatusMethodNotAllowed || code == http.StatusNotImplemented
}

func (c *Client) batchStatuses(ctx context.Context, babyID string, entryIDs []string) ([]vaccination.Entry, error) {
	q := url.Values{}
	q.Set("ids", strings.Join(entryIDs, ","))
	var entries []vaccination.Entry
	if _, err := c.do(ctx, http.MethodGet, babyPath(babyID, "vaccination-status"), q, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// UpdateVaccinationStatus posts the update and drops cached reads it affects.
func (c *Client) UpdateVaccinationStatus(ctx context.Context, babyID string, update *vaccination.StatusUpdate) (*vaccination.Entry, error) {
	var e vaccination.Entry
	raw, err := c.do(ctx, http.MethodPost, babyPath(babyID, "vaccination-status"), nil, update, nil)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &e); err != nil {
			c.logger.Debug().Err(err).Msg("update response is not an entry")
		}
	}
	if e.ID == "" {
		e = vaccination.Entry{ID: update.EntryID, Status: update.Status, Reaction: update.Reaction, Response: update.Response, Date: update.Date, Time: update.Time}
	}

	if c.cache != nil {
		keys := []string{
			c.cacheKey(ctx, babyPath(babyID, "vaccinations"), nil),
			c.cacheKey(ctx, babyPath(babyID, "vaccination-status", update.EntryID.String()), nil),
		}
		if err := c.cache.Delete(ctx, keys...); err != nil {
			c.logger.Warn().Err(err).Msg("cache invalidation failed")
		}
	}
	return &e, nil
}

// cacheKey scopes entries to the caller's token so users never share data.
func (c *Client) cacheKey(ctx context.Context, path string, query url.Values) string {
	sum := sha256.Sum256([]byte(auth.TokenFromContext(ctx)))
	key := hex.EncodeToString(sum[:8]) + ":" + path
	if len(query) > 0 {
		key += "?" + query.Encode()
	}
	return key
}

func (c *Client) getCached(ctx context.Context, path string, query url.Values, out interface{}) error {
	if c.cache == nil {
		_, err := c.do(ctx, http.MethodGet, path, query, nil, out)
		return err
	}

	key := c.cacheKey(ctx, path, query)
	if raw, ok, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn().Err(err).Str("path", path).Msg("cache read failed")
	} else if ok {
		if err := json.Unmarshal(raw, out); err == nil {
			return nil
		}
	}

	raw, err := c.do(ctx, http.MethodGet, path, query, nil, out)
	if err != nil {
		return err
	}
	if err := c.cache.Set(ctx, key, raw, c.cacheTTL); err != nil {
		c.logger.Warn().Err(err).Str("path", path).Msg("cache write failed")
	}
	return nil
}

// do performs the request and decodes a JSON body into out when out is not
// nil. The raw body is returned for caching.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := auth.TokenFromContext(ctx); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %w", method, path, vaccination.ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w: %w", method, path, vaccination.ErrUpstream, err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("upstream call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       truncate(strings.TrimSpace(string(raw)), 256),
		}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("%s %s: decode response: %w: %w", method, path, vaccination.ErrUpstream, err)
		}
	}
	return raw, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
