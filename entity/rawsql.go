package entity

// PositioningRef names another entity for ordering purposes. Exactly
// one field is set: Path references a language-level full path (matched
// by suffix, so a bare type name finds its fully qualified definer),
// Name references another raw-SQL block by its unique name.
type PositioningRef struct {
	Path string
	Name string
}

// String returns the reference as written, for error messages.
func (r PositioningRef) String() string {
	if r.Name != "" {
		return "\"" + r.Name + "\""
	}
	return r.Path
}

// DeclaredKind classifies what a raw-SQL block's text introduces.
type DeclaredKind int

const (
	DeclaredType DeclaredKind = iota
	DeclaredEnum
	DeclaredFunction
)

// Declared marks an entity created by a raw-SQL block's text, so that
// forward references to it resolve even though no language-level
// entity exists. SQL is the name usable in generated statements.
type Declared struct {
	Kind DeclaredKind
	// Name is the language-level full path the declaration answers for.
	Name string
	// SQL is the SQL-side name; defaults to the last path segment.
	SQL string
}

// SQLName returns the name to splice into referencing statements.
func (d Declared) SQLName() string {
	if d.SQL != "" {
		return d.SQL
	}
	name := d.Name
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' || name[i] == '/' {
			return name[i+1:]
		}
	}
	return name
}

// Matches reports whether the declaration answers for the given kind
// and reference text. References match on the full name or any
// dot-separated suffix.
func (d Declared) Matches(kind DeclaredKind, ref string) bool {
	if d.Kind != kind {
		return false
	}
	if d.Name == ref || d.SQLName() == ref {
		return true
	}
	return len(ref) < len(d.Name) && d.Name[len(d.Name)-len(ref)-1] == '.' &&
		d.Name[len(d.Name)-len(ref):] == ref
}

// RawSQL is a literal SQL fragment contributed by the extension author.
type RawSQL struct {
	Ident
	// Name uniquely identifies the block for by-name references.
	Name string
	// SQL is the literal text, emitted verbatim.
	SQL string
	// Bootstrap orders the block before every ordinary entity.
	// Globally unique; mutually exclusive with Finalize.
	Bootstrap bool
	// Finalize orders the block after every ordinary entity.
	// Globally unique; mutually exclusive with Bootstrap.
	Finalize bool
	// Requires orders the block after the referenced entities.
	Requires []PositioningRef
	// Before orders the block before the referenced entities.
	Before []PositioningRef
	// Creates lists what the text declares, for forward resolution.
	Creates []Declared
}
