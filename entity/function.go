package entity

// Cardinality is the wrapper-level classification of one argument.
type Cardinality int

const (
	// Required arguments have no null representation; a null call slot
	// is a programmer-contract violation.
	Required Cardinality = iota
	// Optional arguments decode null slots to an absent value.
	Optional
	// Variadic arguments absorb the trailing call slots.
	Variadic
)

// String returns the cardinality name.
func (c Cardinality) String() string {
	switch c {
	case Required:
		return "required"
	case Optional:
		return "optional"
	case Variadic:
		return "variadic"
	default:
		return "unknown"
	}
}

// Argument is one positional argument of a Function.
type Argument struct {
	// Name is the declared parameter name.
	Name string
	// Type resolves through the graph's mapping chain.
	Type TypeRef
	// Cardinality drives both SQL rendering and wrapper decoding.
	Cardinality Cardinality
	// Default is a SQL literal rendered as a DEFAULT clause, or empty.
	Default string
	// Raw bypasses managed decoding and null checks entirely.
	Raw bool
	// Handle marks the call-info handle pass-through argument. Must be
	// declared last; enforced at extraction time.
	Handle bool
}

// ReturnShape classifies the function's return for both SQL rendering
// and runtime encoding.
type ReturnShape int

const (
	// ReturnNone renders RETURNS void.
	ReturnNone ReturnShape = iota
	// ReturnScalar renders RETURNS <type>.
	ReturnScalar
	// ReturnSetOf renders RETURNS SETOF <type> and participates in the
	// multi-call continuation protocol.
	ReturnSetOf
	// ReturnTable renders RETURNS TABLE (...) and participates in the
	// multi-call continuation protocol.
	ReturnTable
	// ReturnTrigger renders RETURNS trigger; encoding is delegated to
	// the host's trigger protocol.
	ReturnTrigger
)

// Column is one named column of a table-shaped return.
type Column struct {
	Name string
	Type TypeRef
	// GoName is the row struct field the column decomposes from.
	GoName string
}

// Return is the full return classification of a Function.
type Return struct {
	Shape ReturnShape
	// Type is set for Scalar and SetOf shapes.
	Type TypeRef
	// Optional marks an optional-wrapped result; for SetOf/Table it
	// marks an optional iterator (absent short-circuits to done).
	Optional bool
	// Columns is set for the Table shape.
	Columns []Column
	// RowType is the identity token of the Table row struct, used by
	// the wrapper generator.
	RowType TypeRef
}

// Attribute is a declarative function property rendered into the
// CREATE FUNCTION statement or consumed by the wrapper generator.
type Attribute int

const (
	Strict Attribute = iota
	Immutable
	Stable
	Volatile
	SecurityDefiner
	ParallelSafe
	ParallelRestricted
	ParallelUnsafe
	// NoGuard skips the error-jump guard around the wrapped call.
	// Not rendered into SQL.
	NoGuard
)

// SQL returns the keyword form, or the empty string for attributes
// that do not render.
func (a Attribute) SQL() string {
	switch a {
	case Strict:
		return "STRICT"
	case Immutable:
		return "IMMUTABLE"
	case Stable:
		return "STABLE"
	case Volatile:
		return "VOLATILE"
	case SecurityDefiner:
		return "SECURITY DEFINER"
	case ParallelSafe:
		return "PARALLEL SAFE"
	case ParallelRestricted:
		return "PARALLEL RESTRICTED"
	case ParallelUnsafe:
		return "PARALLEL UNSAFE"
	default:
		return ""
	}
}

// Operator declares a CREATE OPERATOR statement bound to a function.
// The function's first two arguments become the operand types.
type Operator struct {
	// Name is the operator name, e.g. "=" or "<#>".
	Name string
	// Optional operator properties.
	Commutator string
	Negator    string
	Restrict   string
	Join       string
	Hashes     bool
	Merges     bool
}

// Function is the entity produced for one annotated Go function.
type Function struct {
	Ident
	// Name is the SQL function name (explicit override or the
	// snake_cased Go name).
	Name string
	// UnaliasedName is the Go function name; the wrapper symbol is
	// derived from it.
	UnaliasedName string
	// Schema is an explicit schema override; empty defers to the graph.
	Schema string
	// Args in declaration order.
	Args []Argument
	// Return classification.
	Return Return
	// Attrs declared on the function. STRICT may additionally be
	// inferred at render time.
	Attrs []Attribute
	// SearchPath, when non-empty, renders a SET search_path clause.
	SearchPath []string
	// Operator, when non-nil, renders a companion CREATE OPERATOR.
	Operator *Operator
	// Requires adds explicit ordering edges to other entities.
	Requires []PositioningRef
	// GoName is the declared Go function name.
	GoName string
	// ReturnsError records a trailing error result; the wrapper turns
	// it into a fatal call abort.
	ReturnsError bool
}

// HasAttr reports whether the attribute was explicitly declared.
func (f *Function) HasAttr(a Attribute) bool {
	for _, attr := range f.Attrs {
		if attr == a {
			return true
		}
	}
	return false
}

// WrapperSymbol returns the exported symbol name the generated SQL
// binds to, following the `<unaliased-name>_wrapper` convention.
func (f *Function) WrapperSymbol() string {
	return f.UnaliasedName + "_wrapper"
}
