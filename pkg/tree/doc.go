// Package tree captures structured property values as plain, JSON-friendly trees.
//
// A Writer mimics the small part of a markup writer that property values use to
// describe themselves (start/end element, attributes, text). Instead of emitting
// markup it builds Node values, which can be persisted as JSON and decoded back
// without losing structure.
//
// # Basic Usage
//
//	w := tree.NewWriter()
//	_ = w.StartElement("{DAV:}prop")
//	_ = w.WriteAttribute("id", "42")
//	_ = w.Write("hello")
//	_ = w.EndElement()
//	data, err := w.Flush() // {"name":"{DAV:}prop","attributes":{"id":"42"},"value":["hello"]}
//
// # Capturing Property Values
//
// Capture turns any supported property value into a Value: scalars are kept as
// scalars, anything else is written under a synthetic root element whose
// children become the captured list.
//
//	v, err := tree.Capture(resourceType) // resourceType implements tree.Serializable
//
// Contract violations (a second root element, closing an element that was never
// opened, writing an unsupported Go type) are programmer errors. They are
// reported with github.com/pkg/errors so the stack trace points at the misuse.
package tree
