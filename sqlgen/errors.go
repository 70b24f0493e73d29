package sqlgen

import (
	"strings"

	"github.com/pgmantle/pgmantle"
)

// Aliases for the shared sentinels, kept unexported so callers match
// with errors.Is against the root package.
var (
	errDuplicateBootstrap = pgmantle.ErrDuplicateBootstrap
	errDuplicateFinalize  = pgmantle.ErrDuplicateFinalize
	errCycle              = pgmantle.ErrCyclicDependencies
)

// unresolvedError wraps the shared UnresolvedError shape for graph
// resolution failures.
type unresolvedError struct {
	owner string
	ref   string
	where string
}

func (e *unresolvedError) Error() string {
	return (&pgmantle.UnresolvedError{Owner: e.owner, Ref: e.ref, Where: e.where}).Error()
}

func (e *unresolvedError) Is(target error) bool {
	return target == pgmantle.ErrUnresolvedReference
}

// CycleError reports that no topological order exists, naming one node
// known to sit on a cycle.
type CycleError struct {
	// Node is the identifier of a node on the cycle.
	Node string
	// Remaining are the identifiers of all unordered nodes.
	Remaining []string
}

// Error returns the error string.
func (e *CycleError) Error() string {
	var b strings.Builder
	b.WriteString(errCycle.Error())
	b.WriteString(": node with cycle: ")
	b.WriteString(e.Node)
	if len(e.Remaining) > 1 {
		b.WriteString(" (among ")
		b.WriteString(strings.Join(e.Remaining, ", "))
		b.WriteString(")")
	}
	return b.String()
}

// Is reports whether target matches the cyclic-dependencies sentinel.
func (e *CycleError) Is(target error) bool {
	return target == errCycle
}
