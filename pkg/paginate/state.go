package paginate

import (
	"net/http"
	"strconv"
	"strings"
)

// Header names of the pagination markers.
const (
	// HeaderPaginate requests pagination (request) or confirms it (response).
	HeaderPaginate = "X-Paginate"

	// HeaderToken carries the result set token.
	HeaderToken = "X-Paginate-Token"

	// HeaderTotal carries the number of records in the result set.
	HeaderTotal = "X-Paginate-Total"

	// HeaderOffset is the index of the first record of a follow-up page.
	HeaderOffset = "X-Paginate-Offset"

	// HeaderCount overrides the page size.
	HeaderCount = "X-Paginate-Count"
)

// Mode is the pagination state a request is in.
type Mode int

const (
	// ModeUnpaginated passes the listing through unchanged.
	ModeUnpaginated Mode = iota

	// ModeInitiate stores the full listing and answers with the first page.
	ModeInitiate

	// ModeFetchPage answers from the cache without enumerating.
	ModeFetchPage
)

// String returns the metric label of the mode.
func (m Mode) String() string {
	switch m {
	case ModeInitiate:
		return "initiate"
	case ModeFetchPage:
		return "fetch"
	default:
		return "unpaginated"
	}
}

// State holds the pagination markers of one request.
type State struct {
	// Requested is true when the client asked for pagination
	Requested bool

	// Token is the result set token of a follow-up request
	Token string

	// Offset is the first record index of the requested page
	Offset int

	// HasOffset is true when the offset marker was present
	HasOffset bool

	// Count is the page size after defaults and clamping
	Count int
}

// ParseState reads the pagination markers from h. Malformed or negative
// numbers fall back to defaults (offset 0, count = cfg.PageSize). The count
// is clamped to cfg.MaxPageSize when that is set.
func ParseState(h http.Header, cfg Config) State {
	st := State{Count: cfg.PageSize}

	if v := strings.TrimSpace(h.Get(HeaderPaginate)); v != "" {
		st.Requested, _ = strconv.ParseBool(v)
	}

	st.Token = strings.TrimSpace(h.Get(HeaderToken))

	if v := strings.TrimSpace(h.Get(HeaderOffset)); v != "" {
		st.HasOffset = true
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			st.Offset = n
		}
	}

	if v := strings.TrimSpace(h.Get(HeaderCount)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			st.Count = n
		}
	}
	if cfg.MaxPageSize > 0 && st.Count > cfg.MaxPageSize {
		st.Count = cfg.MaxPageSize
	}

	return st
}

// Mode classifies the request before the token has been looked up. A
// follow-up whose token turns out to be unknown is re-classified by the
// plugin.
func (s State) Mode() Mode {
	switch {
	case s.Token != "" && s.HasOffset:
		return ModeFetchPage
	case s.Requested:
		return ModeInitiate
	default:
		return ModeUnpaginated
	}
}
