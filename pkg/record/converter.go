package record

import (
	"iter"

	"github.com/Sternrassler/dav-paginator/pkg/dav"
	"github.com/Sternrassler/dav-paginator/pkg/tree"
)

// Converter adapts a resource sequence into a Record sequence. It reuses a
// single tree.Writer for all records.
//
// Like bufio.Scanner, iteration stops at the first failure (from the source
// or from capturing a value) and the failure is reported by Err.
type Converter struct {
	src   iter.Seq2[dav.Resource, error]
	w     *tree.Writer
	err   error
	count int
}

// NewConverter wraps src.
func NewConverter(src iter.Seq2[dav.Resource, error]) *Converter {
	return &Converter{src: src, w: tree.NewWriter()}
}

// All yields converted records. The source is consumed as All is ranged over.
func (c *Converter) All() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		if c.err != nil {
			return
		}
		for res, err := range c.src {
			if err != nil {
				c.err = err
				return
			}
			rec, err := FromResource(c.w, res)
			if err != nil {
				c.err = err
				return
			}
			c.count++
			if !yield(rec) {
				return
			}
		}
	}
}

// Err returns the first failure seen while iterating.
func (c *Converter) Err() error {
	return c.err
}

// Count returns the number of records yielded so far.
func (c *Converter) Count() int {
	return c.count
}
