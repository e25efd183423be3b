// Package scalar is the registry of voxel element types.
//
// Each Type fixes the byte width and bit interpretation used when decoding
// raw volume payloads. The set is closed: the twelve canonical names below
// are the only values Resolve will return.
package scalar

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"volview/pkg/volerr"
)

// Type identifies a voxel element type.
type Type int

const (
	Invalid Type = iota
	Uint8
	Int8
	Uint16
	Int16
	Uint32
	Int32
	Uint64
	Int64
	Float16
	Float32
	Float64
	Bool
)

// info describes the binary layout of a Type.
type info struct {
	name     string
	size     int
	isFloat  bool
	isSigned bool
}

// registry is indexed by Type.
var registry = [...]info{
	Invalid: {name: "INVALID"},
	Uint8:   {name: "UINT8", size: 1},
	Int8:    {name: "INT8", size: 1, isSigned: true},
	Uint16:  {name: "UINT16", size: 2},
	Int16:   {name: "INT16", size: 2, isSigned: true},
	Uint32:  {name: "UINT32", size: 4},
	Int32:   {name: "INT32", size: 4, isSigned: true},
	Uint64:  {name: "UINT64", size: 8},
	Int64:   {name: "INT64", size: 8, isSigned: true},
	Float16: {name: "FLOAT16", size: 2, isFloat: true, isSigned: true},
	Float32: {name: "FLOAT32", size: 4, isFloat: true, isSigned: true},
	Float64: {name: "FLOAT64", size: 8, isFloat: true, isSigned: true},
	Bool:    {name: "BOOL", size: 1},
}

// byName maps canonical upper-case names to types.
var byName = func() map[string]Type {
	m := make(map[string]Type, len(registry)-1)
	for _, t := range All() {
		m[registry[t].name] = t
	}
	return m
}()

// All returns the registered types in declaration order.
func All() []Type {
	return []Type{Uint8, Int8, Uint16, Int16, Uint32, Int32, Uint64, Int64, Float16, Float32, Float64, Bool}
}

// Names returns the canonical names of all registered types.
func Names() []string {
	names := make([]string, 0, len(registry)-1)
	for _, t := range All() {
		names = append(names, registry[t].name)
	}
	return names
}

// Resolve returns the Type whose canonical name matches name exactly,
// ignoring case. Surrounding whitespace is not stripped.
func Resolve(name string) (Type, error) {
	key := cases.Upper(language.Und).String(name)
	if t, ok := byName[key]; ok {
		return t, nil
	}
	return Invalid, volerr.New(volerr.CodeUnknownType, "scalar.Resolve", "",
		"invalid type %q, valid types are: %s", name, strings.Join(Names(), ", "))
}

// Valid reports whether t is one of the registered types.
func (t Type) Valid() bool {
	return t > Invalid && int(t) < len(registry)
}

// Name returns the canonical upper-case name.
func (t Type) Name() string {
	if !t.Valid() {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return registry[t].name
}

// String returns the lower-case name, as used in raw filenames.
func (t Type) String() string {
	if !t.Valid() {
		return t.Name()
	}
	return strings.ToLower(registry[t].name)
}

// Size returns the element width in bytes, or 0 for an invalid Type.
func (t Type) Size() int {
	if !t.Valid() {
		return 0
	}
	return registry[t].size
}

// IsFloat reports whether elements are IEEE 754 floating point.
func (t Type) IsFloat() bool {
	return t.Valid() && registry[t].isFloat
}

// IsSigned reports whether elements carry a sign.
func (t Type) IsSigned() bool {
	return t.Valid() && registry[t].isSigned
}
