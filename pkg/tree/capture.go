package tree

import (
	"math"
	"sync"
)

// captureRoot names the synthetic element that wraps a captured value.
const captureRoot = "capture"

var writerPool = sync.Pool{
	New: func() any { return NewWriter() },
}

// Capture converts a property value into a Value using a pooled Writer.
func Capture(v any) (Value, error) {
	if val, ok := ScalarValue(v); ok {
		return val, nil
	}
	w := writerPool.Get().(*Writer)
	defer writerPool.Put(w)
	return w.Capture(v)
}

// Capture converts a property value into a Value. Scalars and nil are kept as
// scalars; any other value is written under a synthetic root and the root's
// children are returned as a list. The writer is reset before returning.
func (w *Writer) Capture(v any) (Value, error) {
	if val, ok := ScalarValue(v); ok {
		return val, nil
	}
	if val, ok := v.(Value); ok {
		return val, nil
	}

	w.Reset()
	defer w.Reset()

	if err := w.StartElement(captureRoot); err != nil {
		return Value{}, err
	}
	if err := w.Write(v); err != nil {
		return Value{}, err
	}
	if err := w.EndElement(); err != nil {
		return Value{}, err
	}
	doc, err := w.Document()
	if err != nil {
		return Value{}, err
	}
	return List(doc.Value.Items...), nil
}

// ScalarValue normalizes nil and scalar Go values into a scalar Value:
// integers become int64, floats become float64 (int64 when integral) so that
// a JSON round trip yields the same Value.
func ScalarValue(v any) (Value, bool) {
	switch val := v.(type) {
	case nil:
		return Value{}, true
	case string:
		return Value{Scalar: val}, true
	case bool:
		return Value{Scalar: val}, true
	case int:
		return Value{Scalar: int64(val)}, true
	case int8:
		return Value{Scalar: int64(val)}, true
	case int16:
		return Value{Scalar: int64(val)}, true
	case int32:
		return Value{Scalar: int64(val)}, true
	case int64:
		return Value{Scalar: val}, true
	case uint:
		return floatOrInt(float64(val), val <= math.MaxInt64, int64(val)), true
	case uint8:
		return Value{Scalar: int64(val)}, true
	case uint16:
		return Value{Scalar: int64(val)}, true
	case uint32:
		return Value{Scalar: int64(val)}, true
	case uint64:
		return floatOrInt(float64(val), val <= math.MaxInt64, int64(val)), true
	case float32:
		return normalizeFloat(float64(val)), true
	case float64:
		return normalizeFloat(val), true
	default:
		return Value{}, false
	}
}

func floatOrInt(f float64, fits bool, i int64) Value {
	if fits {
		return Value{Scalar: i}
	}
	return Value{Scalar: f}
}

func normalizeFloat(f float64) Value {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return Value{Scalar: int64(f)}
	}
	return Value{Scalar: f}
}
