package trace

import (
	"slices"
	"unicode/utf16"
)

// Value is a JSON value that can be encoded canonically.
type Value interface {
	traceValue()
}

type (
	String string
	Int    int64
	Bool   bool
	Array  []Value
	// Object keys are emitted in canonical order regardless of map order.
	Object map[string]Value
)

func (String) traceValue() {}
func (Int) traceValue()    {}
func (Bool) traceValue()   {}
func (Array) traceValue()  {}
func (Object) traceValue() {}

// SortedKeys returns obj's keys ordered by UTF-16 code units. This differs
// from Go's byte order for characters outside the Basic Multilingual Plane.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}
