// Package client lists large collections of a paginating DAV server: it
// starts a pagination, then fetches the remaining pages with retries.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/dav-paginator/pkg/dav"
	"github.com/Sternrassler/dav-paginator/pkg/logging"
	"github.com/Sternrassler/dav-paginator/pkg/paginate"
	"github.com/Sternrassler/dav-paginator/pkg/pagination"
	"github.com/rs/zerolog"
)

// Client is a listing client for a paginating DAV server.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the server root (e.g., "http://localhost:8080")
	BaseURL string

	// UserAgent identifies the client (REQUIRED)
	UserAgent string

	// PageSize is requested via X-Paginate-Count
	PageSize int

	// MaxConcurrency is the number of parallel page fetches in ListAll
	MaxConcurrency int

	// Timeout per HTTP request
	Timeout time.Duration

	// Retry overrides the per-class retry configuration when set
	Retry *RetryConfig
}

// DefaultConfig returns a default configuration.
func DefaultConfig(baseURL, userAgent string) Config {
	return Config{
		BaseURL:        baseURL,
		UserAgent:      userAgent,
		PageSize:       paginate.DefaultPageSize,
		MaxConcurrency: 4,
		Timeout:        30 * time.Second,
	}
}

// New creates a new listing client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url must be absolute (got %q)", cfg.BaseURL)
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("page_size must be > 0 (got %d)", cfg.PageSize)
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    base,
		config:     cfg,
		logger:     logging.NewLogger("dav-client"),
	}, nil
}

// Listing is the answer to an initiating request.
type Listing struct {
	// Paginated is false when the server ignored the pagination request
	Paginated bool

	// Token is the result set token (empty when not paginated)
	Token string

	// Total is the number of records in the result set
	Total int

	// Responses is the first page (or the whole listing when not paginated)
	Responses []dav.Response
}

// Start requests the first page of path and starts a pagination.
func (c *Client) Start(ctx context.Context, path string) (*Listing, error) {
	header := http.Header{}
	header.Set(paginate.HeaderPaginate, "true")
	header.Set(paginate.HeaderCount, strconv.Itoa(c.config.PageSize))

	resp, ms, err := c.propfind(ctx, "start", path, header)
	if err != nil {
		return nil, err
	}

	l := &Listing{Responses: ms.Responses, Total: len(ms.Responses)}
	if resp.Header.Get(paginate.HeaderPaginate) != "true" {
		return l, nil
	}

	l.Paginated = true
	l.Token = resp.Header.Get(paginate.HeaderToken)
	total, err := strconv.Atoi(resp.Header.Get(paginate.HeaderTotal))
	if err != nil || l.Token == "" {
		return nil, fmt.Errorf("malformed pagination headers (token %q, total %q)",
			l.Token, resp.Header.Get(paginate.HeaderTotal))
	}
	l.Total = total

	c.logger.Debug().
		Str("path", path).
		Str(logging.FieldToken, l.Token).
		Int(logging.FieldTotal, l.Total).
		Msg("Pagination started")

	return l, nil
}

// FetchPage requests one page of a stored result set. It implements
// pagination.PageFetcher. A response without the X-Paginate marker means
// the token is gone and yields ErrTokenExpired.
func (c *Client) FetchPage(ctx context.Context, path, token string, offset, count int) ([]dav.Response, error) {
	header := http.Header{}
	header.Set(paginate.HeaderToken, token)
	header.Set(paginate.HeaderOffset, strconv.Itoa(offset))
	header.Set(paginate.HeaderCount, strconv.Itoa(count))

	resp, ms, err := c.propfind(ctx, "page", path, header)
	if err != nil {
		return nil, err
	}
	if resp.Header.Get(paginate.HeaderPaginate) != "true" {
		c.logger.Warn().
			Str("path", path).
			Str(logging.FieldToken, token).
			Int(logging.FieldOffset, offset).
			Msg("Server answered page request without pagination")
		return nil, fmt.Errorf("%w: token %s", ErrTokenExpired, token)
	}
	return ms.Responses, nil
}

// ListAll returns the complete listing of path: the first page from Start and
// the rest fetched in parallel.
func (c *Client) ListAll(ctx context.Context, path string) ([]dav.Response, error) {
	l, err := c.Start(ctx, path)
	if err != nil {
		return nil, err
	}
	if !l.Paginated || len(l.Responses) >= l.Total {
		return l.Responses, nil
	}

	pageSize := len(l.Responses)
	if pageSize == 0 {
		return nil, fmt.Errorf("%w: empty first page of %d records", ErrIncompleteListing, l.Total)
	}

	fetcher := pagination.NewBatchFetcher(c, pagination.Config{
		MaxConcurrency: c.config.MaxConcurrency,
		Timeout:        c.config.Timeout,
	})
	pages, err := fetcher.FetchFrom(ctx, pagination.Listing{
		Path:     path,
		Token:    l.Token,
		Total:    l.Total,
		PageSize: pageSize,
	}, pageSize)
	if err != nil {
		return nil, err
	}
	pages[0] = l.Responses

	all := pagination.Assemble(pages, l.Total, pageSize)
	if len(all) != l.Total {
		return nil, fmt.Errorf("%w: got %d of %d records", ErrIncompleteListing, len(all), l.Total)
	}
	return all, nil
}

// propfind sends a PROPFIND with retries and decodes the multi-status body.
func (c *Client) propfind(ctx context.Context, kind, path string, header http.Header) (*http.Response, *dav.MultiStatus, error) {
	target := c.baseURL.ResolveReference(&url.URL{Path: path}).String()

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(kind).Observe(time.Since(startTime).Seconds())
	}()

	var (
		resp *http.Response
		ms   *dav.MultiStatus
	)
	err := retryWithBackoff(ctx, c.retryPolicy, func() error {
		req, err := http.NewRequestWithContext(ctx, dav.MethodPropfind, target, nil)
		if err != nil {
			return &RequestError{ErrorClass: ErrorClassClient, Message: "create request", Err: err}
		}
		req.Header = header.Clone()
		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set("Accept", dav.ContentType)
		req.Header.Set("Depth", "1")

		r, err := c.httpClient.Do(req)
		if err != nil {
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(kind, "network_error").Inc()
			c.logger.Warn().Err(err).Str("path", path).Msg("HTTP request failed")
			return err
		}
		defer r.Body.Close()

		requestsTotal.WithLabelValues(kind, strconv.Itoa(r.StatusCode)).Inc()
		if r.StatusCode != http.StatusMultiStatus {
			class := classifyStatus(r.StatusCode)
			if class == "" {
				class = ErrorClassServer
			}
			errorsTotal.WithLabelValues(string(class)).Inc()
			body, _ := io.ReadAll(io.LimitReader(r.Body, 512))
			c.logger.Warn().
				Str("path", path).
				Int("status", r.StatusCode).
				Str(logging.FieldErrorClass, string(class)).
				Msg("Listing request error")
			return &RequestError{
				StatusCode: r.StatusCode,
				ErrorClass: class,
				Message:    strings.TrimSpace(string(body)),
			}
		}

		decoded, err := dav.DecodeMultiStatus(r.Body)
		if err != nil {
			// truncated body: the server aborted mid-stream
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return err
		}
		resp, ms = r, decoded
		return nil
	}, classifyError)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, fmt.Errorf("%w: %v", ErrContextCancelled, err)
		}
		return nil, nil, err
	}
	return resp, ms, nil
}

func (c *Client) retryPolicy(class ErrorClass) RetryConfig {
	if c.config.Retry != nil {
		return *c.config.Retry
	}
	return RetryConfigForErrorClass(class)
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
