package cache

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// RequestKey identifies the listing a result set was produced for. Tokens are
// only valid for the key they were stored under.
type RequestKey struct {
	// Host is the request host (e.g., "dav.example.com")
	Host string

	// Path is the request path (e.g., "/files/projects/")
	Path string

	// Query are the query parameters of the request URL
	Query url.Values
}

// KeyFromRequest derives the key of a listing request from its URL.
func KeyFromRequest(r *http.Request) RequestKey {
	host := r.Host
	if host == "" && r.URL != nil {
		host = r.URL.Host
	}
	key := RequestKey{Host: strings.ToLower(host)}
	if r.URL != nil {
		key.Path = r.URL.Path
		key.Query = r.URL.Query()
	}
	return key
}

// String generates a deterministic key string.
// Format: dav:host:path:query1=val1:query2=val2a,val2b
//
// Example:
//
//	dav:dav.example.com:files/projects:depth=1
func (k RequestKey) String() string {
	parts := []string{"dav"}

	if k.Host != "" {
		parts = append(parts, k.Host)
	}

	path := strings.Trim(k.Path, "/")
	if path != "" {
		parts = append(parts, path)
	}

	// Query params sorted for determinism
	if len(k.Query) > 0 {
		keys := make([]string, 0, len(k.Query))
		for key := range k.Query {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(k.Query[key], ",")))
		}
	}

	return strings.Join(parts, ":")
}

// Hash returns the url hash stored next to every row of this key.
func (k RequestKey) Hash() string {
	return HashKey(k.String())
}

// HashKey hashes a key string to 16 hex characters.
func HashKey(key string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(key))
}
