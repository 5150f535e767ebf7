// Package record turns multi-status resources into records that survive a
// JSON round trip unchanged.
package record

import (
	"fmt"
	"iter"

	"github.com/Sternrassler/dav-paginator/pkg/dav"
	"github.com/Sternrassler/dav-paginator/pkg/tree"
)

// Record is a JSON-safe copy of a dav.Resource: every property value is a
// tree.Value (null, scalar or captured tree).
type Record struct {
	Href     string                        `json:"href"`
	Propstat map[int]map[string]tree.Value `json:"propstat"`
}

// FromResource captures every property of res with w. The resource is not
// modified.
func FromResource(w *tree.Writer, res dav.Resource) (Record, error) {
	rec := Record{Href: res.Href}
	if res.Propstat == nil {
		return rec, nil
	}

	rec.Propstat = make(map[int]map[string]tree.Value, len(res.Propstat))
	for status, props := range res.Propstat {
		out := make(map[string]tree.Value, len(props))
		for name, raw := range props {
			v, err := w.Capture(raw)
			if err != nil {
				return Record{}, fmt.Errorf("capture %s property %s: %w", res.Href, name, err)
			}
			out[name] = v
		}
		rec.Propstat[status] = out
	}
	return rec, nil
}

// Resource converts the record back into a dav.Resource whose property values
// are tree.Value.
func (r Record) Resource() dav.Resource {
	res := dav.Resource{Href: r.Href}
	if r.Propstat == nil {
		return res
	}
	res.Propstat = make(map[int]map[string]any, len(r.Propstat))
	for status, props := range r.Propstat {
		out := make(map[string]any, len(props))
		for name, v := range props {
			out[name] = v
		}
		res.Propstat[status] = out
	}
	return res
}

// Resources adapts a record sequence to the resource sequence rendered by dav.Server.
func Resources(records iter.Seq[Record]) iter.Seq2[dav.Resource, error] {
	return func(yield func(dav.Resource, error) bool) {
		for rec := range records {
			if !yield(rec.Resource(), nil) {
				return
			}
		}
	}
}

// Checked pairs records with the failure that ended them. Every record is
// yielded with a nil error; once records is exhausted, a non-nil err() is
// yielded last with a zero Record. err may be nil.
func Checked(records iter.Seq[Record], err func() error) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for rec := range records {
			if !yield(rec, nil) {
				return
			}
		}
		if err == nil {
			return
		}
		if e := err(); e != nil {
			yield(Record{}, e)
		}
	}
}
