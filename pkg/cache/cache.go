package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/Sternrassler/dav-paginator/pkg/logging"
	"github.com/Sternrassler/dav-paginator/pkg/record"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TTL is how long a stored result set stays readable.
const TTL = time.Hour

var (
	// ErrCorruptRow indicates a stored row could not be decoded. The whole
	// page fails rather than returning a hole in the listing.
	ErrCorruptRow = errors.New("corrupt cache row")
)

// Cache stores page-able result sets under (request key, token).
type Cache interface {
	// Store consumes records once, in order, and persists them under a fresh
	// token scoped to key. It returns the token and the number of records.
	// A non-nil error from records aborts the store; rows already written
	// for the token are removed and the error is returned wrapped.
	Store(ctx context.Context, key string, records iter.Seq2[record.Record, error]) (token string, count int, err error)

	// Get returns records[offset:offset+count] of the set stored under
	// (key, token), clipped to the stored range. Unknown or expired tokens
	// and out-of-range slices yield an empty result, not an error.
	Get(ctx context.Context, key, token string, offset, count int) ([]record.Record, error)

	// Exists reports whether a readable result set is stored under (key, token).
	Exists(ctx context.Context, key, token string) (bool, error)

	// Cleanup deletes expired rows and returns how many were removed.
	Cleanup(ctx context.Context) (int64, error)

	// Clear removes everything.
	Clear(ctx context.Context) error
}

// TokenSource generates opaque result set tokens.
type TokenSource interface {
	Token() (string, error)
}

// Clock provides the current time for insert times and expiry.
type Clock interface {
	Now() time.Time
}

// UUIDTokens generates 32-character hex tokens from random UUIDs.
type UUIDTokens struct{}

// Token implements TokenSource.
func (UUIDTokens) Token() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return strings.ReplaceAll(id.String(), "-", ""), nil
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Config holds settings shared by the cache backends.
type Config struct {
	// TTL is the retention window of a result set (default: 1 hour).
	TTL time.Duration

	// Tokens generates result set tokens (default: UUIDTokens).
	Tokens TokenSource

	// Clock stamps rows and evaluates expiry (default: SystemClock).
	Clock Clock

	// Logger receives cache activity (default: component logger "pagecache").
	Logger *zerolog.Logger
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		TTL:    TTL,
		Tokens: UUIDTokens{},
		Clock:  SystemClock{},
	}
}

func (c Config) withDefaults() Config {
	if c.TTL <= 0 {
		c.TTL = TTL
	}
	if c.Tokens == nil {
		c.Tokens = UUIDTokens{}
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	if c.Logger == nil {
		logger := logging.NewLogger("pagecache")
		c.Logger = &logger
	}
	return c
}

// decodeRow turns a stored row back into a record.
func decodeRow(row Row) (record.Record, error) {
	var rec record.Record
	if err := json.Unmarshal(row.Value, &rec); err != nil {
		return record.Record{}, fmt.Errorf("%w: index %d: %v", ErrCorruptRow, row.Index, err)
	}
	return rec, nil
}

// clampCount keeps offset+count from overflowing.
func clampCount(offset, count int) int {
	const maxInt = int(^uint(0) >> 1)
	if count > maxInt-offset {
		return maxInt - offset
	}
	return count
}
