package tree

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

type activeLock struct {
	owner string
}

func (l activeLock) WriteTree(w *Writer) error {
	if err := w.StartElement("{DAV:}activelock"); err != nil {
		return err
	}
	if err := w.WriteAttribute("depth", "infinity"); err != nil {
		return err
	}
	if err := w.WriteAttribute("scope", "exclusive"); err != nil {
		return err
	}
	if err := w.WriteText(l.owner); err != nil {
		return err
	}
	return w.EndElement()
}

func TestWriter_BuildsNestedTree(t *testing.T) {
	w := NewWriter()
	steps := []func() error{
		func() error { return w.StartElement("root") },
		func() error { return w.WriteAttribute("a", "1") },
		func() error { return w.StartElement("child") },
		func() error { return w.WriteText("hello") },
		func() error { return w.EndElement() },
		func() error { return w.WriteText("tail") },
		func() error { return w.EndElement() },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	doc, err := w.Document()
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}

	want := &Node{
		Name:       "root",
		Attributes: Attributes{{Name: "a", Value: "1"}},
		Value: List(
			Item{Node: &Node{Name: "child", Value: List(Item{Text: "hello"})}},
			Item{Text: "tail"},
		),
	}
	if !reflect.DeepEqual(doc, want) {
		t.Errorf("Document() = %#v, want %#v", doc, want)
	}
}

func TestWriter_RootAlreadySet(t *testing.T) {
	w := NewWriter()
	if err := w.WriteElement("first", nil); err != nil {
		t.Fatalf("WriteElement() error = %v", err)
	}

	err := w.StartElement("second")
	if !errors.Is(err, ErrRootAlreadySet) {
		t.Errorf("StartElement() error = %v, want ErrRootAlreadySet", err)
	}
}

func TestWriter_ContractViolations(t *testing.T) {
	tests := []struct {
		name string
		run  func(w *Writer) error
		want error
	}{
		{
			name: "end without start",
			run:  func(w *Writer) error { return w.EndElement() },
			want: ErrNoOpenElement,
		},
		{
			name: "attribute without element",
			run:  func(w *Writer) error { return w.WriteAttribute("a", "b") },
			want: ErrNoOpenElement,
		},
		{
			name: "text without element",
			run:  func(w *Writer) error { return w.WriteText("x") },
			want: ErrNoOpenElement,
		},
		{
			name: "document before start",
			run: func(w *Writer) error {
				_, err := w.Document()
				return err
			},
			want: ErrEmptyDocument,
		},
		{
			name: "document with open element",
			run: func(w *Writer) error {
				if err := w.StartElement("open"); err != nil {
					return err
				}
				_, err := w.Document()
				return err
			},
			want: ErrUnclosedElement,
		},
		{
			name: "unsupported value",
			run: func(w *Writer) error {
				if err := w.StartElement("root"); err != nil {
					return err
				}
				return w.Write(make(chan int))
			},
			want: ErrUnsupportedValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run(NewWriter())
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWriter_WritePolymorphic(t *testing.T) {
	w := NewWriter()
	if err := w.StartElement("root"); err != nil {
		t.Fatal(err)
	}
	value := []any{
		"text",
		42,
		true,
		Element{Name: "el", Attributes: Attributes{{Name: "k", Value: "v"}}, Value: "inner"},
		map[string]any{"b": 2, "a": nil},
		activeLock{owner: "alice"},
	}
	if err := w.Write(value); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.EndElement(); err != nil {
		t.Fatal(err)
	}

	doc, err := w.Document()
	if err != nil {
		t.Fatal(err)
	}

	items := doc.Value.Items
	if len(items) != 7 {
		t.Fatalf("len(items) = %d, want 7: %#v", len(items), items)
	}
	if items[0].Text != "text" || items[1].Text != "42" || items[2].Text != "true" {
		t.Errorf("scalar items = %q %q %q", items[0].Text, items[1].Text, items[2].Text)
	}
	if items[3].Node == nil || items[3].Node.Name != "el" {
		t.Fatalf("items[3] = %#v, want element el", items[3])
	}
	if v, _ := items[3].Node.Attributes.Get("k"); v != "v" {
		t.Errorf("el attribute k = %q, want v", v)
	}
	// map keys are written sorted; nil values leave the element null
	if items[4].Node.Name != "a" || !items[4].Node.Value.IsNull() {
		t.Errorf("items[4] = %#v, want null element a", items[4].Node)
	}
	if items[5].Node.Name != "b" || items[5].Node.Value.Items[0].Text != "2" {
		t.Errorf("items[5] = %#v, want element b with text 2", items[5].Node)
	}
	if items[6].Node.Name != "{DAV:}activelock" {
		t.Errorf("items[6] = %#v, want activelock", items[6].Node)
	}
}

func TestWriter_FlushResetsForReuse(t *testing.T) {
	w := NewWriter()

	for _, name := range []string{"first", "second"} {
		if err := w.WriteElement(name, "x"); err != nil {
			t.Fatalf("WriteElement(%s) error = %v", name, err)
		}
		data, err := w.Flush()
		if err != nil {
			t.Fatalf("Flush() error = %v", err)
		}
		want := `{"name":"` + name + `","attributes":{},"value":["x"]}`
		if string(data) != want {
			t.Errorf("Flush() = %s, want %s", data, want)
		}
	}
}

func TestWriter_FlushResetsAfterError(t *testing.T) {
	w := NewWriter()

	if err := w.StartElement("open"); err != nil {
		t.Fatalf("StartElement() error = %v", err)
	}
	if _, err := w.Flush(); !errors.Is(err, ErrUnclosedElement) {
		t.Fatalf("Flush() error = %v, want ErrUnclosedElement", err)
	}

	if err := w.WriteElement("next", "y"); err != nil {
		t.Fatalf("WriteElement() after failed Flush error = %v", err)
	}
	data, err := w.Flush()
	if err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	want := `{"name":"next","attributes":{},"value":["y"]}`
	if string(data) != want {
		t.Errorf("Flush() = %s, want %s", data, want)
	}

	if _, err := w.Flush(); !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("Flush() on empty writer error = %v, want ErrEmptyDocument", err)
	}
}

func TestCapture_SerializableWithAttributes(t *testing.T) {
	v, err := Capture(activeLock{owner: "admin"})
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	want := `[{"name":"{DAV:}activelock","attributes":{"depth":"infinity","scope":"exclusive"},"value":["admin"]}]`
	if string(data) != want {
		t.Errorf("Capture() JSON = %s, want %s", data, want)
	}

	var decoded Value
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(decoded, v) {
		t.Errorf("round trip = %#v, want %#v", decoded, v)
	}
}

func TestCapture_Scalars(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Value{}},
		{"string", "abc", Text("abc")},
		{"bool", true, Value{Scalar: true}},
		{"int", 7, Value{Scalar: int64(7)}},
		{"uint32", uint32(9), Value{Scalar: int64(9)}},
		{"integral float", 2.0, Value{Scalar: int64(2)}},
		{"fraction", 2.5, Value{Scalar: 2.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Capture(tt.in)
			if err != nil {
				t.Fatalf("Capture() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Capture() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestCapture_EmptySerializableIsEmptyList(t *testing.T) {
	got, err := Capture([]Element{})
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsList() || len(got.Items) != 0 {
		t.Errorf("Capture(empty) = %#v, want empty list", got)
	}
}

func TestWriter_CaptureResetsBetweenValues(t *testing.T) {
	w := NewWriter()
	for i := 0; i < 3; i++ {
		v, err := w.Capture(activeLock{owner: "bob"})
		if err != nil {
			t.Fatalf("Capture() #%d error = %v", i, err)
		}
		if len(v.Items) != 1 {
			t.Fatalf("Capture() #%d items = %d, want 1", i, len(v.Items))
		}
	}
}
