package paginate

import (
	"errors"
	"fmt"
	"iter"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/Sternrassler/dav-paginator/pkg/cache"
	"github.com/Sternrassler/dav-paginator/pkg/dav"
	"github.com/Sternrassler/dav-paginator/pkg/logging"
	"github.com/Sternrassler/dav-paginator/pkg/peek"
	"github.com/Sternrassler/dav-paginator/pkg/record"
	"github.com/rs/zerolog"
)

// Feature is the capability advertised in the DAV header.
const Feature = "paginate"

// DefaultPageSize is the page size used when the request does not set one.
const DefaultPageSize = 100

var (
	// ErrInvalidConfig indicates a Config that cannot be used
	ErrInvalidConfig = errors.New("invalid pagination config")
)

// Config holds plugin configuration.
type Config struct {
	// PageSize is the number of records per page (default: 100)
	PageSize int

	// MaxPageSize caps per-request page size overrides (0 = no cap)
	MaxPageSize int
}

// DefaultConfig returns the default plugin configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:    DefaultPageSize,
		MaxPageSize: 1000,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.PageSize <= 0 {
		return fmt.Errorf("%w: page size must be positive, got %d", ErrInvalidConfig, c.PageSize)
	}
	if c.MaxPageSize < 0 {
		return fmt.Errorf("%w: max page size must not be negative, got %d", ErrInvalidConfig, c.MaxPageSize)
	}
	if c.MaxPageSize > 0 && c.MaxPageSize < c.PageSize {
		return fmt.Errorf("%w: max page size %d below page size %d", ErrInvalidConfig, c.MaxPageSize, c.PageSize)
	}
	return nil
}

// Plugin paginates listing responses through a page cache.
//
// A request with X-Paginate: true has its whole listing stored and receives
// the first page plus a token and the total. A request carrying a known token
// and an offset is answered from the cache without enumerating the listing.
type Plugin struct {
	cache  cache.Cache
	config Config
	logger zerolog.Logger
}

// New creates a pagination plugin.
func New(c cache.Cache, cfg Config) (*Plugin, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: cache is nil", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Plugin{
		cache:  c,
		config: cfg,
		logger: logging.NewLogger("paginate"),
	}, nil
}

// Features implements dav.Plugin.
func (p *Plugin) Features() []string {
	return []string{Feature}
}

// BeforeMethod implements dav.Plugin. It answers follow-up pages.
func (p *Plugin) BeforeMethod(w http.ResponseWriter, r *http.Request) (iter.Seq2[dav.Resource, error], bool, error) {
	if !dav.IsListingMethod(r.Method) {
		return nil, false, nil
	}
	st := ParseState(r.Header, p.config)
	if st.Mode() != ModeFetchPage {
		return nil, false, nil
	}

	ctx := r.Context()
	key := cache.KeyFromRequest(r).String()

	ok, err := p.cache.Exists(ctx, key, st.Token)
	if err != nil {
		return nil, false, fmt.Errorf("look up pagination token: %w", err)
	}
	if !ok {
		Requests.WithLabelValues("unknown_token").Inc()
		p.logger.Warn().
			Str("path", r.URL.Path).
			Str(logging.FieldToken, st.Token).
			Msg("Unknown pagination token, falling through")
		return nil, false, nil
	}

	records, err := p.cache.Get(ctx, key, st.Token, st.Offset, st.Count)
	if err != nil {
		return nil, false, fmt.Errorf("read page: %w", err)
	}

	Requests.WithLabelValues(ModeFetchPage.String()).Inc()
	p.logger.Debug().
		Str("path", r.URL.Path).
		Str(logging.FieldToken, st.Token).
		Int(logging.FieldOffset, st.Offset).
		Int(logging.FieldCount, len(records)).
		Msg("Page served from cache")

	w.Header().Set(HeaderPaginate, "true")
	w.Header().Set(HeaderToken, st.Token)
	return record.Resources(slices.Values(records)), true, nil
}

// BeforeMultiStatus implements dav.Plugin. It starts a pagination when
// requested: the full listing is stored before the first page is returned.
func (p *Plugin) BeforeMultiStatus(w http.ResponseWriter, r *http.Request, resources iter.Seq2[dav.Resource, error]) (iter.Seq2[dav.Resource, error], error) {
	st := ParseState(r.Header, p.config)
	if !st.Requested {
		Requests.WithLabelValues(ModeUnpaginated.String()).Inc()
		return resources, nil
	}

	ctx := r.Context()
	key := cache.KeyFromRequest(r).String()

	// A known token without an offset asks for the plain listing.
	if st.Token != "" {
		ok, err := p.cache.Exists(ctx, key, st.Token)
		if err != nil {
			return nil, fmt.Errorf("look up pagination token: %w", err)
		}
		if ok {
			Requests.WithLabelValues(ModeUnpaginated.String()).Inc()
			return resources, nil
		}
	}

	start := time.Now()
	conv := record.NewConverter(resources)
	head := peek.New(conv.All(), st.Count)
	defer head.Close()

	token, total, err := p.cache.Store(ctx, key, record.Checked(head.All(), conv.Err))
	if err != nil {
		return nil, fmt.Errorf("store result set: %w", err)
	}

	duration := time.Since(start)
	Requests.WithLabelValues(ModeInitiate.String()).Inc()
	StoreDuration.Observe(duration.Seconds())
	ResultSetSize.Observe(float64(total))
	logging.ResultSet(p.logger, cache.HashKey(key), token).Info().
		Str("path", r.URL.Path).
		Int(logging.FieldTotal, total).
		Int(logging.FieldCount, head.Len()).
		Dur(logging.FieldDuration, duration).
		Msg("Pagination started")

	w.Header().Set(HeaderPaginate, "true")
	w.Header().Set(HeaderToken, token)
	w.Header().Set(HeaderTotal, strconv.Itoa(total))
	return record.Resources(head.Prefix()), nil
}
