// Package abi classifies types by their physical passing convention at
// the host-runtime call boundary: small fixed-size values travel inside
// a datum by value, everything else travels behind a pointer with a
// known alignment. The classification is pure data derived once per
// distinct type and cached.
package abi

import (
	"errors"
	"fmt"
	"sync"
)

// Sentinel errors.
var (
	// ErrUnknownLayout is returned for types with no registered
	// physical-layout mapping.
	ErrUnknownLayout = errors.New("pgmantle: unknown physical layout")
)

// Kind is the passing-convention class of a type.
type Kind int

const (
	// ByValue types fit in a datum and are copied on every call.
	ByValue Kind = iota
	// ByRefVariable types are variable-length and passed by reference.
	ByRefVariable
	// ByRefFixed types have a fixed size but are still passed by
	// reference, padded up to their alignment.
	ByRefFixed
	// CString is the host's NUL-terminated string convention.
	CString
)

// String returns the kind name used in error messages.
func (k Kind) String() string {
	switch k {
	case ByValue:
		return "by-value"
	case ByRefVariable:
		return "by-reference (variable length)"
	case ByRefFixed:
		return "by-reference (fixed length)"
	case CString:
		return "cstring"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Layout is the resolved passing convention of one type.
type Layout struct {
	Kind Kind
	// Width is the by-value width in bytes. Zero for reference kinds.
	Width uintptr
	// Align is the required alignment of by-reference data.
	Align uintptr
	// PaddedWidth is the fixed by-reference width rounded up to Align.
	PaddedWidth uintptr
}

// Spec describes the raw physical properties of a type before
// classification.
type Spec struct {
	Kind  Kind
	Width uintptr // unpadded width for ByValue and ByRefFixed
	Align uintptr // required for the by-reference kinds
}

// UnknownLayoutError names the type that had no registered mapping, or
// whose registered mapping was unusable.
type UnknownLayoutError struct {
	Type   string
	Reason string
}

// Error returns the error string.
func (e *UnknownLayoutError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("pgmantle: unknown physical layout for %q: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("pgmantle: unknown physical layout for %q", e.Type)
}

// Is reports whether target matches the unknown-layout sentinel.
func (e *UnknownLayoutError) Is(target error) bool {
	return target == ErrUnknownLayout
}

// Classifier resolves type names to layouts. The zero value is not
// usable; construct with NewClassifier, which seeds the builtin
// mappings.
type Classifier struct {
	mu    sync.Mutex
	specs map[string]Spec
	cache map[string]Layout
}

// NewClassifier returns a classifier pre-seeded with the builtin type
// mappings shared by every extension.
func NewClassifier() *Classifier {
	c := &Classifier{
		specs: make(map[string]Spec),
		cache: make(map[string]Layout),
	}
	for name, spec := range builtinSpecs {
		c.specs[name] = spec
	}
	return c
}

// Register adds or replaces the physical spec for a type name.
// Classification results are cached, so registration must happen before
// the first Classify call for that name.
func (c *Classifier) Register(name string, spec Spec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.specs[name] = spec
	delete(c.cache, name)
}

// Classify resolves the layout for a type name. The result is derived
// once and memoized; repeated calls return identical descriptors.
func (c *Classifier) Classify(name string) (Layout, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.cache[name]; ok {
		return l, nil
	}
	spec, ok := c.specs[name]
	if !ok {
		return Layout{}, &UnknownLayoutError{Type: name}
	}
	l, err := classify(name, spec)
	if err != nil {
		return Layout{}, err
	}
	c.cache[name] = l
	return l, nil
}

func classify(name string, spec Spec) (Layout, error) {
	switch spec.Kind {
	case ByValue:
		switch spec.Width {
		case 1, 2, 4, 8:
			return Layout{Kind: ByValue, Width: spec.Width}, nil
		default:
			return Layout{}, &UnknownLayoutError{
				Type:   name,
				Reason: fmt.Sprintf("by-value width must be 1, 2, 4 or 8, got %d", spec.Width),
			}
		}
	case ByRefVariable:
		if spec.Align == 0 {
			return Layout{}, &UnknownLayoutError{Type: name, Reason: "variable-length type without alignment"}
		}
		return Layout{Kind: ByRefVariable, Align: spec.Align}, nil
	case ByRefFixed:
		if spec.Align == 0 {
			return Layout{}, &UnknownLayoutError{Type: name, Reason: "fixed-length reference type without alignment"}
		}
		return Layout{
			Kind:        ByRefFixed,
			Align:       spec.Align,
			PaddedWidth: alignUp(spec.Width, spec.Align),
		}, nil
	case CString:
		return Layout{Kind: CString, Align: 1}, nil
	default:
		return Layout{}, &UnknownLayoutError{Type: name, Reason: fmt.Sprintf("unrecognized kind %d", spec.Kind)}
	}
}

// alignUp rounds width up to the next multiple of align. Alignments are
// always powers of two in the host's type catalog.
func alignUp(width, align uintptr) uintptr {
	return (width + align - 1) &^ (align - 1)
}

// builtinSpecs covers the Go types with a default SQL mapping. The
// entries mirror the host catalog's typbyval/typlen/typalign triple.
var builtinSpecs = map[string]Spec{
	"bool":    {Kind: ByValue, Width: 1},
	"int8":    {Kind: ByValue, Width: 1},
	"int16":   {Kind: ByValue, Width: 2},
	"int32":   {Kind: ByValue, Width: 4},
	"int64":   {Kind: ByValue, Width: 8},
	"uint32":  {Kind: ByValue, Width: 4},
	"float32": {Kind: ByValue, Width: 4},
	"float64": {Kind: ByValue, Width: 8},

	"string": {Kind: ByRefVariable, Align: 4},
	"[]byte": {Kind: ByRefVariable, Align: 4},

	"time.Time": {Kind: ByValue, Width: 8},

	// uuid is a 16-byte fixed-width reference type.
	"github.com/google/uuid.UUID": {Kind: ByRefFixed, Width: 16, Align: 8},

	"cstring": {Kind: CString},
}
