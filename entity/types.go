package entity

// CompositeType is the entity produced for one annotated Go struct
// exposed as a SQL composite type. The type is created as a shell
// first, then completed after its in/out functions exist; the renderer
// folds those functions into the type's own output, so the graph keeps
// them adjacent.
type CompositeType struct {
	Ident
	// Name is the SQL type name.
	Name string
	// InFunc and OutFunc are the full paths of the text-io functions.
	InFunc  string
	OutFunc string
	// Mappings this type contributes to the resolution chain. Always
	// includes the type itself; array/optional forms add more.
	Mappings []SQLMapping
}

// ID reports whether the type defines the given identity token.
func (t *CompositeType) ID(token string) bool {
	for _, m := range t.Mappings {
		if m.Go == token {
			return true
		}
	}
	return false
}

// EnumType is the entity produced for one annotated Go string type
// with a closed constant set.
type EnumType struct {
	Ident
	// Name is the SQL type name.
	Name string
	// Variants in declaration order.
	Variants []string
	// Mappings this enum contributes to the resolution chain.
	Mappings []SQLMapping
}

// ID reports whether the enum defines the given identity token.
func (t *EnumType) ID(token string) bool {
	for _, m := range t.Mappings {
		if m.Go == token {
			return true
		}
	}
	return false
}

// Aggregate is the entity produced for one declared SQL aggregate. The
// state-transition function is referenced by SQL name; its entity must
// exist in the same graph.
type Aggregate struct {
	Ident
	// Name is the SQL aggregate name.
	Name string
	// Args are the aggregate's direct arguments.
	Args []Argument
	// StateType is the transition state SQL type.
	StateType TypeRef
	// SFunc is the SQL name of the state-transition function.
	SFunc string
	// FinalFunc is optional.
	FinalFunc string
	// InitialCondition is an optional SQL literal.
	InitialCondition string
	// Parallel is an optional PARALLEL clause value.
	Parallel string
}

// OrderingFamily declares a default btree operator family and class
// for a declared type. The class wires the comparison operators plus a
// <name>_cmp support function, which must be declared alongside the
// type.
type OrderingFamily struct {
	Ident
	// Name is the SQL name of the ordered type.
	Name string
	// Target is the identity token of the ordered type.
	Target TypeRef
}

// HashFamily declares a default hash operator family and class for a
// declared type, wired to its <name>_hash support function.
type HashFamily struct {
	Ident
	// Name is the SQL name of the hashed type.
	Name string
	// Target is the identity token of the hashed type.
	Target TypeRef
}
