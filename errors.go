package pgmantle

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors shared across the framework.
var (
	// ErrCyclicDependencies is returned when the entity graph admits no
	// topological order.
	ErrCyclicDependencies = errors.New("pgmantle: topologically inconsistent SQL dependencies")

	// ErrUnresolvedReference is returned when an ordering or type reference
	// names an entity that does not exist in the graph.
	ErrUnresolvedReference = errors.New("pgmantle: unresolved entity reference")

	// ErrDuplicateBootstrap is returned when more than one raw-SQL entity
	// carries the bootstrap positioning flag.
	ErrDuplicateBootstrap = errors.New("pgmantle: multiple sql blocks with bootstrap positioning")

	// ErrDuplicateFinalize is returned when more than one raw-SQL entity
	// carries the finalize positioning flag.
	ErrDuplicateFinalize = errors.New("pgmantle: multiple sql blocks with finalize positioning")

	// ErrInvalidControl indicates a malformed or inconsistent control file.
	ErrInvalidControl = errors.New("pgmantle: invalid control file")
)

// UnresolvedError reports a reference whose target could not be found in
// the entity graph. It always names the owning entity so the offending
// declaration can be located without reading generated output.
type UnresolvedError struct {
	Owner string // full path of the entity holding the reference
	Ref   string // the reference text as written
	Where string // file:line of the owner, when known
}

// Error returns the error string.
func (e *UnresolvedError) Error() string {
	var b strings.Builder
	b.WriteString("pgmantle: could not resolve ")
	b.WriteString(e.Ref)
	b.WriteString(" referenced by ")
	b.WriteString(e.Owner)
	if e.Where != "" {
		b.WriteString(" (")
		b.WriteString(e.Where)
		b.WriteString(")")
	}
	return b.String()
}

// Is reports whether the target matches the unresolved-reference sentinel.
func (e *UnresolvedError) Is(err error) bool {
	return err == ErrUnresolvedReference
}

// ControlError reports a problem with a control file field.
type ControlError struct {
	Field   string
	Message string
}

// Error returns the error string.
func (e *ControlError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("pgmantle: control file field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("pgmantle: control file: %s", e.Message)
}

// Is reports whether the target matches the invalid-control sentinel.
func (e *ControlError) Is(err error) bool {
	return err == ErrInvalidControl
}
