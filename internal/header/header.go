// Package header implements the reader and writer for the
// "Name: value; attr=\"val\"; ..." framed header format used by every
// on-wire and on-disk document the runner touches: Atffile manifests,
// tp-list output, tc-result files, and tps transcripts.
package header

import (
	"fmt"
)

// Entry is one header line: a name, a value, and an ordered set of
// attributes. Attribute names are unique within an Entry.
type Entry struct {
	Name  string
	Value string
	attrs []attr
}

type attr struct {
	name, value string
}

// NewEntry constructs an Entry with no attributes.
func NewEntry(name, value string) Entry {
	return Entry{Name: name, Value: value}
}

// SetAttr adds or overwrites an attribute, preserving insertion order for
// new attribute names.
func (e *Entry) SetAttr(name, value string) {
	for i, a := range e.attrs {
		if a.name == name {
			e.attrs[i].value = value
			return
		}
	}
	e.attrs = append(e.attrs, attr{name, value})
}

// Attr returns the value of the named attribute and whether it was
// present.
func (e Entry) Attr(name string) (string, bool) {
	for _, a := range e.attrs {
		if a.name == name {
			return a.value, true
		}
	}
	return "", false
}

// AttrNames returns attribute names in insertion order.
func (e Entry) AttrNames() []string {
	names := make([]string, len(e.attrs))
	for i, a := range e.attrs {
		names[i] = a.name
	}
	return names
}

// Equal reports whether two entries have the same name, value, and
// attributes (order-sensitive, matching the round-trip property in spec
// §8).
func (e Entry) Equal(o Entry) bool {
	if e.Name != o.Name || e.Value != o.Value || len(e.attrs) != len(o.attrs) {
		return false
	}
	for i := range e.attrs {
		if e.attrs[i] != o.attrs[i] {
			return false
		}
	}
	return true
}

// ContentTypeEntry builds the mandatory first header of any document: name
// "Content-Type", the given media type as value, and a "version" attribute
// holding the decimal format version.
func ContentTypeEntry(mediaType string, version int) Entry {
	e := NewEntry("Content-Type", mediaType)
	e.SetAttr("version", fmt.Sprintf("%d", version))
	return e
}
