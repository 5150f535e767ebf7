package dav

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/Sternrassler/dav-paginator/pkg/tree"
)

// MultiStatus is the decoded form of a multi-status body.
type MultiStatus struct {
	Responses []Response `json:"responses"`
}

// Response is the rendered form of a Resource.
type Response struct {
	Href     string     `json:"href"`
	Propstat []Propstat `json:"propstat"`
}

// Propstat holds the properties sharing one status code.
type Propstat struct {
	Status int                   `json:"status"`
	Prop   map[string]tree.Value `json:"prop"`
}

// Prop returns the value of the named property found with status 200.
func (r Response) Prop(name string) (tree.Value, bool) {
	for _, ps := range r.Propstat {
		if ps.Status != 200 {
			continue
		}
		v, ok := ps.Prop[name]
		return v, ok
	}
	return tree.Value{}, false
}

// NewResponse renders a Resource. Status groups are ordered by code; with
// minimal set, only the 200 group is kept.
func NewResponse(res Resource, minimal bool) (Response, error) {
	statuses := make([]int, 0, len(res.Propstat))
	for status := range res.Propstat {
		if minimal && status != 200 {
			continue
		}
		statuses = append(statuses, status)
	}
	sort.Ints(statuses)

	resp := Response{Href: res.Href, Propstat: make([]Propstat, 0, len(statuses))}
	for _, status := range statuses {
		props := res.Propstat[status]
		ps := Propstat{Status: status, Prop: make(map[string]tree.Value, len(props))}
		for name, raw := range props {
			v, err := tree.Capture(raw)
			if err != nil {
				return Response{}, fmt.Errorf("render %s property %s: %w", res.Href, name, err)
			}
			ps.Prop[name] = v
		}
		resp.Propstat = append(resp.Propstat, ps)
	}
	return resp, nil
}

// DecodeMultiStatus reads a multi-status body.
func DecodeMultiStatus(r io.Reader) (*MultiStatus, error) {
	var ms MultiStatus
	if err := json.NewDecoder(r).Decode(&ms); err != nil {
		return nil, fmt.Errorf("decode multi-status: %w", err)
	}
	return &ms, nil
}
