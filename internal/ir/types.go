package ir

import "fmt"

// Object is a record's attribute map.
// Use SortedKeys() for deterministic iteration.
type Object map[string]Value

// Record is a stored entity: stable identity, logical write stamp and
// attributes. Records are owned by the store; the sectioning engine only
// reads ID and one attribute.
type Record struct {
	ID    string `json:"id"`
	Seq   int64  `json:"seq"` // Logical clock stamp of the last write
	Attrs Object `json:"attrs"`
}

// Attr returns the attribute at path. Absent attributes and Null report false.
func (r Record) Attr(path string) (Value, bool) {
	v, ok := r.Attrs[path]
	if !ok || IsNull(v) {
		return nil, false
	}
	return v, true
}

// RecordID is the identity accessor for Record.
func RecordID(r Record) string {
	return r.ID
}

// AttrKey returns a statically typed section key accessor for Record that
// reads the attribute at path and coerces it into kind.
func AttrKey(path string, kind Kind) func(Record) (Value, bool) {
	return func(r Record) (Value, bool) {
		v, ok := r.Attr(path)
		if !ok {
			return nil, false
		}
		return Coerce(v, kind)
	}
}

// Schema describes the attributes of one collection.
type Schema struct {
	Collection string          `json:"collection"`
	Fields     map[string]Kind `json:"fields"` // attribute name -> kind
}

// Field reports the declared kind of an attribute.
func (s Schema) Field(name string) (Kind, bool) {
	k, ok := s.Fields[name]
	return k, ok
}

// IndexPath addresses one item inside a sectioned snapshot.
type IndexPath struct {
	Section int `json:"section"`
	Item    int `json:"item"`
}

// String renders the path as "(section,item)".
func (p IndexPath) String() string {
	return fmt.Sprintf("(%d,%d)", p.Section, p.Item)
}
