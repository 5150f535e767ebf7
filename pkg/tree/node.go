package tree

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// Attribute is a single attribute of a Node.
type Attribute struct {
	Name  string
	Value string
}

// Attributes is an ordered attribute list. It encodes as a JSON object whose
// keys keep insertion order.
type Attributes []Attribute

// Get returns the value of the named attribute.
func (a Attributes) Get(name string) (string, bool) {
	for _, attr := range a {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return "", false
}

// Set replaces the named attribute in place or appends it.
func (a *Attributes) Set(name, value string) {
	for i := range *a {
		if (*a)[i].Name == name {
			(*a)[i].Value = value
			return
		}
	}
	*a = append(*a, Attribute{Name: name, Value: value})
}

// MarshalJSON implements json.Marshaler.
func (a Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, attr := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(attr.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(attr.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler. An empty object decodes to nil.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*a = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.Errorf("tree: attributes must be a JSON object, got %v", tok)
	}

	var out Attributes
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var value string
		if err := dec.Decode(&value); err != nil {
			return errors.Wrapf(err, "tree: attribute %q", key)
		}
		out = append(out, Attribute{Name: key, Value: value})
	}
	*a = out
	return nil
}

// Node is one element of a captured tree.
type Node struct {
	Name       string     `json:"name"`
	Attributes Attributes `json:"attributes"`
	Value      Value      `json:"value"`
}

// Item is a child of a list Value: either a nested Node or a text chunk.
type Item struct {
	Node *Node
	Text string
}

// MarshalJSON implements json.Marshaler.
func (it Item) MarshalJSON() ([]byte, error) {
	if it.Node != nil {
		return json.Marshal(it.Node)
	}
	return json.Marshal(it.Text)
}

// UnmarshalJSON implements json.Unmarshaler.
func (it *Item) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("tree: empty item")
	}
	switch data[0] {
	case '{':
		n := new(Node)
		if err := json.Unmarshal(data, n); err != nil {
			return err
		}
		*it = Item{Node: n}
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*it = Item{Text: s}
	default:
		return errors.Errorf("tree: item must be an object or a string, got %s", data)
	}
	return nil
}

// Value is either null, a scalar (string, bool, int64 or float64) or an
// ordered list of Items. A non-nil Items slice marks a list, even when empty.
type Value struct {
	Scalar any
	Items  []Item
}

// Text returns a scalar string Value.
func Text(s string) Value {
	return Value{Scalar: s}
}

// List returns a list Value holding the given items.
func List(items ...Item) Value {
	if items == nil {
		items = []Item{}
	}
	return Value{Items: items}
}

// IsNull reports whether v holds neither a scalar nor a list.
func (v Value) IsNull() bool {
	return v.Scalar == nil && v.Items == nil
}

// IsList reports whether v is a list value.
func (v Value) IsList() bool {
	return v.Items != nil
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Items != nil {
		return json.Marshal(v.Items)
	}
	return json.Marshal(v.Scalar)
}

// UnmarshalJSON implements json.Unmarshaler. Integral numbers decode to int64,
// other numbers to float64.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("tree: empty value")
	}

	switch data[0] {
	case 'n':
		*v = Value{}
		return nil
	case '[':
		var items []Item
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*v = List(items...)
		return nil
	case '{':
		return errors.Errorf("tree: value must not be a bare object: %s", data)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if num, ok := raw.(json.Number); ok {
		if i, err := num.Int64(); err == nil {
			*v = Value{Scalar: i}
			return nil
		}
		f, err := num.Float64()
		if err != nil {
			return errors.Wrapf(err, "tree: number %s", num)
		}
		*v = Value{Scalar: f}
		return nil
	}
	*v = Value{Scalar: raw}
	return nil
}
