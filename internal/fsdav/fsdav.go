// Package fsdav lists a directory tree as DAV resources.
package fsdav

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Sternrassler/dav-paginator/pkg/dav"
	"github.com/Sternrassler/dav-paginator/pkg/tree"
)

// readBatch is the number of directory entries read per syscall batch.
const readBatch = 256

// Collection is the resourcetype value of a directory.
type Collection struct{}

// WriteTree implements tree.Serializable.
func (Collection) WriteTree(w *tree.Writer) error {
	return w.WriteElement("{DAV:}collection", nil)
}

// Lister serves directory listings below a root directory. Paths cannot
// escape the root.
type Lister struct {
	dir  string
	root *os.Root
}

// New opens dir as the listing root.
func New(dir string) (*Lister, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open root %s: %w", dir, err)
	}
	return &Lister{dir: dir, root: root}, nil
}

// Close releases the root directory.
func (l *Lister) Close() error {
	return l.root.Close()
}

// List implements dav.Lister. A collection yields itself followed by its
// direct members (Depth: 1); a file yields only itself. Members are read in
// batches as the sequence is consumed.
func (l *Lister) List(ctx context.Context, r *http.Request) (iter.Seq2[dav.Resource, error], error) {
	href := path.Clean("/" + r.URL.Path)
	name := strings.TrimPrefix(href, "/")
	if name == "" {
		name = "."
	}

	info, err := l.root.Stat(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", href, dav.ErrNotFound)
		}
		return nil, fmt.Errorf("stat %s: %w", href, err)
	}

	if !info.IsDir() {
		return dav.Resources([]dav.Resource{resource(href, info)}), nil
	}

	dir, err := l.root.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", href, err)
	}

	self := strings.TrimSuffix(href, "/") + "/"
	return func(yield func(dav.Resource, error) bool) {
		defer dir.Close()

		if !yield(resource(self, info), nil) {
			return
		}
		for {
			if err := ctx.Err(); err != nil {
				yield(dav.Resource{}, err)
				return
			}
			entries, err := dir.ReadDir(readBatch)
			for _, entry := range entries {
				info, ierr := entry.Info()
				if ierr != nil {
					// removed between readdir and stat
					continue
				}
				child := self + entry.Name()
				if info.IsDir() {
					child += "/"
				}
				if !yield(resource(child, info), nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(dav.Resource{}, fmt.Errorf("read %s: %w", href, err))
				return
			}
		}
	}, nil
}

func resource(href string, info fs.FileInfo) dav.Resource {
	found := map[string]any{
		"displayname":     info.Name(),
		"getlastmodified": info.ModTime().UTC().Format(http.TimeFormat),
	}
	missing := map[string]any{}

	if info.IsDir() {
		found["resourcetype"] = Collection{}
		missing["getcontentlength"] = nil
		missing["getcontenttype"] = nil
	} else {
		found["resourcetype"] = nil
		found["getcontentlength"] = info.Size()
		if ct := mime.TypeByExtension(filepath.Ext(info.Name())); ct != "" {
			found["getcontenttype"] = ct
		} else {
			missing["getcontenttype"] = nil
		}
	}

	res := dav.Resource{Href: href, Propstat: map[int]map[string]any{200: found}}
	if len(missing) > 0 {
		res.Propstat[404] = missing
	}
	return res
}
