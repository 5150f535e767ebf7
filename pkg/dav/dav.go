// Package dav provides the small slice of a WebDAV-style server that listing
// plugins hook into: the resource model, the listing methods, plugin hook
// points and a JSON multi-status encoding.
//
// Locking, authentication and XML bodies are out of scope. Property values
// are rendered through pkg/tree, so any value a tree.Writer accepts can be
// returned by a Lister.
package dav

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"strings"
)

// Listing methods.
const (
	MethodPropfind = "PROPFIND"
	MethodReport   = "REPORT"
	MethodSearch   = "SEARCH"
)

// ContentType is the media type of multi-status bodies.
const ContentType = "application/json; charset=utf-8"

// ErrNotFound is returned by a Lister when the requested collection does not exist.
var ErrNotFound = errors.New("resource not found")

// Resource is one entry of a multi-status result. Propstat groups property
// values by status code (200 for found properties, 404 for missing ones).
type Resource struct {
	Href     string
	Propstat map[int]map[string]any
}

// Lister enumerates the resources answering a listing request. The sequence
// may be expensive and is consumed at most once.
type Lister interface {
	List(ctx context.Context, r *http.Request) (iter.Seq2[Resource, error], error)
}

// Plugin hooks into listing requests.
type Plugin interface {
	// BeforeMethod runs before the listing is enumerated. When handled is
	// true the returned resources are rendered as the response and neither
	// the Lister nor BeforeMultiStatus runs.
	BeforeMethod(w http.ResponseWriter, r *http.Request) (resources iter.Seq2[Resource, error], handled bool, err error)

	// BeforeMultiStatus may replace the enumerated resources before the
	// multi-status body is built. Response headers can still be set.
	BeforeMultiStatus(w http.ResponseWriter, r *http.Request, resources iter.Seq2[Resource, error]) (iter.Seq2[Resource, error], error)

	// Features lists the capabilities advertised in the DAV header.
	Features() []string
}

// IsListingMethod reports whether method enumerates resources.
func IsListingMethod(method string) bool {
	switch method {
	case MethodPropfind, MethodReport, MethodSearch:
		return true
	default:
		return false
	}
}

// PreferMinimal reports whether the client asked for a minimal response
// (Prefer: return=minimal or Brief: t).
func PreferMinimal(r *http.Request) bool {
	if strings.EqualFold(strings.TrimSpace(r.Header.Get("Brief")), "t") {
		return true
	}
	for _, prefer := range r.Header.Values("Prefer") {
		for _, token := range strings.Split(prefer, ",") {
			if strings.EqualFold(strings.ReplaceAll(strings.TrimSpace(token), " ", ""), "return=minimal") {
				return true
			}
		}
	}
	return false
}

// Resources adapts a slice to the sequence type used by listers and plugins.
func Resources(items []Resource) iter.Seq2[Resource, error] {
	return func(yield func(Resource, error) bool) {
		for _, item := range items {
			if !yield(item, nil) {
				return
			}
		}
	}
}
