package entity

// TypeRef identifies one Go type used in an argument, return value or
// composite column. ID is the stable identity token (the fully
// qualified Go type string); resolution to a SQL type name happens at
// graph time through the mapping chain.
type TypeRef struct {
	// ID is the stable type identity token, e.g. "int32" or
	// "github.com/acme/ext.Color".
	ID string
	// Name is the display form shown in generated trailing comments.
	Name string
	// Optional marks an optional-wrapped use of the type (*T).
	Optional bool
}

// SQLMapping binds one Go type to its SQL name. Composite types and
// enums contribute their own mappings to the graph; the builtins below
// cover the default scalar surface.
type SQLMapping struct {
	// Go is the fully qualified Go type string.
	Go string
	// SQL is the SQL type name.
	SQL string
}

// DefaultMappings returns the builtin Go-to-SQL mappings every graph
// starts from. The slice is fresh on each call; callers may append.
func DefaultMappings() []SQLMapping {
	return []SQLMapping{
		{Go: "bool", SQL: "bool"},
		{Go: "int8", SQL: "\"char\""},
		{Go: "int16", SQL: "smallint"},
		{Go: "int32", SQL: "integer"},
		{Go: "int64", SQL: "bigint"},
		{Go: "float32", SQL: "real"},
		{Go: "float64", SQL: "double precision"},
		{Go: "string", SQL: "text"},
		{Go: "[]byte", SQL: "bytea"},
		{Go: "time.Time", SQL: "timestamp with time zone"},
		{Go: "github.com/google/uuid.UUID", SQL: "uuid"},
		{Go: "github.com/pgmantle/pgmantle/fcall.Datum", SQL: "internal"},
	}
}

// SourceMapping is a source-text-only mapping supplied by the embedding
// framework for types that cannot carry a stable identity token.
type SourceMapping struct {
	// Source is the Go type expression as written.
	Source string
	// SQL is the SQL type name.
	SQL string
}
