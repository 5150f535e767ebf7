package tree

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/pkg/errors"
)

var (
	// ErrRootAlreadySet is returned when a second root element is started.
	ErrRootAlreadySet = errors.New("tree: document root already set")

	// ErrNoOpenElement is returned when an operation needs an open element and there is none.
	ErrNoOpenElement = errors.New("tree: no open element")

	// ErrUnclosedElement is returned when a document is read while elements are still open.
	ErrUnclosedElement = errors.New("tree: unclosed element")

	// ErrEmptyDocument is returned when a document is read before any element was started.
	ErrEmptyDocument = errors.New("tree: empty document")

	// ErrUnsupportedValue is returned by Write for Go values it cannot decompose.
	ErrUnsupportedValue = errors.New("tree: unsupported value")
)

// Serializable is implemented by property values that describe themselves
// through a Writer.
type Serializable interface {
	WriteTree(w *Writer) error
}

// Element is a literal element for Write: a name, optional attributes and a
// value that is written with Write.
type Element struct {
	Name       string
	Attributes Attributes
	Value      any
}

// slot is a child of an arena element: an arena index, or text when child < 0.
type slot struct {
	child int
	text  string
}

type element struct {
	name  string
	attrs Attributes
	slots []slot
}

// Writer builds a single-rooted Node tree. Elements live in an arena and are
// addressed by index; the open elements form a stack of indices.
//
// A Writer is not safe for concurrent use. Flush and Reset make it reusable.
type Writer struct {
	arena []element
	stack []int
	root  int
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{root: -1}
}

// StartElement opens a child of the current element, or the document root
// when no element is open.
func (w *Writer) StartElement(name string) error {
	idx := len(w.arena)
	if len(w.stack) == 0 {
		if w.root >= 0 {
			return errors.Wrapf(ErrRootAlreadySet, "start element %q", name)
		}
		w.root = idx
	} else {
		parent := w.stack[len(w.stack)-1]
		w.arena[parent].slots = append(w.arena[parent].slots, slot{child: idx})
	}

	w.arena = append(w.arena, element{name: name})
	w.stack = append(w.stack, idx)
	return nil
}

// EndElement closes the current element.
func (w *Writer) EndElement() error {
	if len(w.stack) == 0 {
		return errors.Wrap(ErrNoOpenElement, "end element")
	}
	w.stack = w.stack[:len(w.stack)-1]
	return nil
}

// WriteAttribute sets an attribute on the current element.
func (w *Writer) WriteAttribute(name, value string) error {
	cur, err := w.current("write attribute " + name)
	if err != nil {
		return err
	}
	cur.attrs.Set(name, value)
	return nil
}

// WriteAttributes sets several attributes on the current element, in order.
func (w *Writer) WriteAttributes(attrs Attributes) error {
	for _, attr := range attrs {
		if err := w.WriteAttribute(attr.Name, attr.Value); err != nil {
			return err
		}
	}
	return nil
}

// WriteText appends a text chunk to the current element.
func (w *Writer) WriteText(content string) error {
	cur, err := w.current("write text")
	if err != nil {
		return err
	}
	cur.slots = append(cur.slots, slot{child: -1, text: content})
	return nil
}

// WriteElement writes a complete element holding v.
func (w *Writer) WriteElement(name string, v any) error {
	if err := w.StartElement(name); err != nil {
		return err
	}
	if err := w.Write(v); err != nil {
		return err
	}
	return w.EndElement()
}

// Write decomposes v into the current element.
//
// Scalars become text, Serializable values write themselves, Element and Node
// values become child elements, maps become one child element per key (sorted)
// and slices are written item by item. nil writes nothing.
func (w *Writer) Write(v any) error {
	if text, ok := formatScalar(v); ok {
		return w.WriteText(text)
	}

	switch val := v.(type) {
	case nil:
		return nil
	case Serializable:
		return val.WriteTree(w)
	case Element:
		return w.writeElement(val)
	case *Element:
		if val == nil {
			return nil
		}
		return w.writeElement(*val)
	case Node:
		return w.writeNode(&val)
	case *Node:
		if val == nil {
			return nil
		}
		return w.writeNode(val)
	case Value:
		return w.writeValue(val)
	case []Element:
		for _, el := range val {
			if err := w.writeElement(el); err != nil {
				return err
			}
		}
		return nil
	case []any:
		for _, item := range val {
			if err := w.Write(item); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		for _, key := range sortedKeys(val) {
			if err := w.WriteElement(key, val[key]); err != nil {
				return err
			}
		}
		return nil
	case map[string]string:
		keys := make([]string, 0, len(val))
		for key := range val {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if err := w.WriteElement(key, val[key]); err != nil {
				return err
			}
		}
		return nil
	default:
		return errors.Wrapf(ErrUnsupportedValue, "%T", v)
	}
}

func (w *Writer) writeElement(el Element) error {
	if err := w.StartElement(el.Name); err != nil {
		return err
	}
	if err := w.WriteAttributes(el.Attributes); err != nil {
		return err
	}
	if err := w.Write(el.Value); err != nil {
		return err
	}
	return w.EndElement()
}

func (w *Writer) writeNode(n *Node) error {
	if err := w.StartElement(n.Name); err != nil {
		return err
	}
	if err := w.WriteAttributes(n.Attributes); err != nil {
		return err
	}
	if err := w.writeValue(n.Value); err != nil {
		return err
	}
	return w.EndElement()
}

func (w *Writer) writeValue(v Value) error {
	if v.Items == nil {
		return w.Write(v.Scalar)
	}
	for _, item := range v.Items {
		if item.Node != nil {
			if err := w.writeNode(item.Node); err != nil {
				return err
			}
			continue
		}
		if err := w.WriteText(item.Text); err != nil {
			return err
		}
	}
	return nil
}

// Document builds the Node tree written so far. The writer keeps its state.
func (w *Writer) Document() (*Node, error) {
	if w.root < 0 {
		return nil, errors.WithStack(ErrEmptyDocument)
	}
	if len(w.stack) > 0 {
		return nil, errors.Wrapf(ErrUnclosedElement, "%q", w.arena[w.stack[len(w.stack)-1]].name)
	}
	return w.build(w.root), nil
}

// Flush returns the document as JSON and resets the writer for reuse. The
// writer is reset even when the document is incomplete.
func (w *Writer) Flush() ([]byte, error) {
	doc, err := w.Document()
	w.Reset()
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// Reset discards all state while keeping allocated capacity.
func (w *Writer) Reset() {
	clear(w.arena)
	w.arena = w.arena[:0]
	w.stack = w.stack[:0]
	w.root = -1
}

func (w *Writer) current(op string) (*element, error) {
	if len(w.stack) == 0 {
		return nil, errors.Wrap(ErrNoOpenElement, op)
	}
	return &w.arena[w.stack[len(w.stack)-1]], nil
}

func (w *Writer) build(idx int) *Node {
	el := w.arena[idx]
	n := &Node{Name: el.name}
	if len(el.attrs) > 0 {
		n.Attributes = append(Attributes(nil), el.attrs...)
	}
	if len(el.slots) == 0 {
		return n
	}

	items := make([]Item, len(el.slots))
	for i, s := range el.slots {
		if s.child < 0 {
			items[i] = Item{Text: s.text}
			continue
		}
		items[i] = Item{Node: w.build(s.child)}
	}
	n.Value = Value{Items: items}
	return n
}

// formatScalar renders scalar Go values as element text.
func formatScalar(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val), true
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	default:
		return "", false
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
