// Package entity defines the metadata records captured for every
// schema-relevant declaration in an extension: functions, composite
// types, enums, schemas, raw SQL blocks and the extension root itself.
//
// Records are immutable once produced by the extraction pass. The
// sqlgen package arranges them into a dependency graph and renders
// them; this package carries no SQL knowledge beyond name mappings.
package entity

import (
	"fmt"
)

// Ident is the stable identity shared by all entities: where the
// declaration lives in source, and the language-level full path used
// for deduplication and cross-references.
type Ident struct {
	// FullPath is the package path plus declaration name,
	// e.g. "github.com/acme/ext.AddTwo".
	FullPath string
	// Module is the declaring package path, used for schema matching.
	Module string
	// File and Line locate the declaration for error reporting.
	File string
	Line int
}

// Pos returns "file:line", or the empty string when unknown.
func (id Ident) Pos() string {
	if id.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", id.File, id.Line)
}

// Identifier implements Entity.
func (id Ident) Identifier() Ident { return id }

// Entity is the closed set of graph node payloads. It is implemented
// only by the concrete types in this package; the renderer dispatches
// over the concrete type, not over this interface.
type Entity interface {
	// Identifier returns the entity's stable identity.
	Identifier() Ident
	// sealed prevents implementations outside this package.
	sealed()
}

func (*Function) sealed()       {}
func (*CompositeType) sealed()  {}
func (*EnumType) sealed()       {}
func (*Schema) sealed()         {}
func (*RawSQL) sealed()         {}
func (*Aggregate) sealed()      {}
func (*BuiltinType) sealed()    {}
func (*ExtensionRoot) sealed()  {}
func (*OrderingFamily) sealed() {}
func (*HashFamily) sealed()     {}

// Schema maps a Go package onto a SQL schema. Every entity declared in
// a module whose path matches gains a dependency on the schema node.
type Schema struct {
	Ident
	// Name is the SQL schema name.
	Name string
}

// BuiltinType is a synthetic placeholder node for a SQL type that has
// no language-level entity (e.g. "integer"). Created on demand by the
// graph builder and memoized by name.
type BuiltinType struct {
	Ident
	// Name is the SQL type name.
	Name string
}

// ExtensionRoot is the singleton root node payload. Control carries
// the parsed .control file of the extension.
type ExtensionRoot struct {
	Ident
	Control ControlData
}

// ControlData is the subset of the control file the graph needs:
// schema qualification and the module path placeholder.
type ControlData struct {
	Extension      string
	ModulePathname string
	Relocatable    bool
	Schema         string
}

// SchemaPrefix returns the dotted prefix the root contributes to
// unschematized entities.
func (c ControlData) SchemaPrefix() string {
	switch {
	case c.Relocatable:
		return ""
	case c.Schema != "":
		return c.Schema + "."
	default:
		return ""
	}
}
