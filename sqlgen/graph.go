// Package sqlgen builds the dependency graph over an extension's
// entities and emits the SQL declarations in a valid topological order.
//
// The graph is built once per compilation unit from the full set of
// collected entities, is immutable after construction, and is consumed
// exactly once by SQL(). Ordering is deterministic for a fixed entity
// set: node insertion order breaks all ties, so two independently
// built graphs over the same entities emit byte-identical text.
package sqlgen

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/pgmantle/pgmantle/entity"
)

// Relationship labels one dependency edge.
type Relationship int

const (
	// RequiredBy is a plain ordering requirement.
	RequiredBy Relationship = iota
	// RequiredByArg marks a type needed by a function argument.
	RequiredByArg
	// RequiredByReturn marks a type needed by a function return.
	RequiredByReturn
)

// String returns the relationship label.
func (r Relationship) String() string {
	switch r {
	case RequiredByArg:
		return "required by argument"
	case RequiredByReturn:
		return "required by return"
	default:
		return "required by"
	}
}

type edge struct {
	from, to int
	rel      Relationship
}

// Graph is the immutable entity dependency graph.
type Graph struct {
	nodes []entity.Entity
	edges []edge

	root      int
	bootstrap int // -1 when absent
	finalize  int // -1 when absent

	control entity.ControlData

	// typeMappings resolves a Go type identity token to a SQL name.
	typeMappings map[string]string
	// sourceMappings resolves a source-text-only type expression.
	sourceMappings map[string]string
	// builtins memoizes synthetic placeholder nodes by SQL name.
	builtins map[string]int

	schemas  []int
	rawsqls  []int
	enums    []int
	types    []int
	funcs    []int
	aggrs    []int
	families []int
}

// Option configures graph construction.
type Option func(*Graph)

// WithMappings adds extra Go-to-SQL type mappings on top of the
// defaults.
func WithMappings(ms []entity.SQLMapping) Option {
	return func(g *Graph) {
		for _, m := range ms {
			g.typeMappings[m.Go] = m.SQL
		}
	}
}

// WithSourceMappings adds source-text-only type mappings supplied by
// the embedding framework.
func WithSourceMappings(ms []entity.SourceMapping) Option {
	return func(g *Graph) {
		for _, m := range ms {
			g.sourceMappings[m.Source] = m.SQL
		}
	}
}

// Build constructs the graph from the collected entities. Entities are
// partitioned by kind and inserted in a fixed kind order (raw SQL,
// schemas, enums, types, functions, aggregates), preserving the given
// order within each kind. All resolution failures are aggregated so a
// single build reports every offending declaration.
func Build(control entity.ControlData, entities []entity.Entity, opts ...Option) (*Graph, error) {
	g := &Graph{
		bootstrap:      -1,
		finalize:       -1,
		control:        control,
		typeMappings:   map[string]string{},
		sourceMappings: map[string]string{},
		builtins:       map[string]int{},
	}
	for _, m := range entity.DefaultMappings() {
		g.typeMappings[m.Go] = m.SQL
	}
	for _, opt := range opts {
		opt(g)
	}

	g.root = g.addNode(&entity.ExtensionRoot{Control: control})

	var (
		schemas  []*entity.Schema
		raws     []*entity.RawSQL
		enums    []*entity.EnumType
		types    []*entity.CompositeType
		funcs    []*entity.Function
		aggrs    []*entity.Aggregate
		families []entity.Entity
	)
	for _, e := range entities {
		switch e := e.(type) {
		case *entity.Schema:
			schemas = append(schemas, e)
		case *entity.RawSQL:
			raws = append(raws, e)
		case *entity.EnumType:
			enums = append(enums, e)
		case *entity.CompositeType:
			types = append(types, e)
		case *entity.Function:
			funcs = append(funcs, e)
		case *entity.Aggregate:
			aggrs = append(aggrs, e)
		case *entity.OrderingFamily, *entity.HashFamily:
			families = append(families, e)
		case *entity.ExtensionRoot:
			// The root is synthesized from the control data; a second
			// root in the input is ignored.
		case *entity.BuiltinType:
			// Placeholders are created on demand, never supplied.
		}
	}

	var errs error
	if err := g.initRawSQL(raws); err != nil {
		return nil, err
	}
	for _, s := range schemas {
		g.schemas = append(g.schemas, g.addNode(s))
	}
	for _, e := range enums {
		g.enums = append(g.enums, g.addNode(e))
	}
	for _, t := range types {
		g.types = append(g.types, g.addNode(t))
	}
	for _, f := range funcs {
		g.funcs = append(g.funcs, g.addNode(f))
	}
	for _, a := range aggrs {
		g.aggrs = append(g.aggrs, g.addNode(a))
	}
	for _, f := range families {
		g.families = append(g.families, g.addNode(f))
	}

	if err := g.registerMappings(); err != nil {
		errs = multierror.Append(errs, err)
	}

	// Base edges first: every non-root node is required by the root,
	// follows bootstrap and precedes finalize.
	for idx := range g.nodes {
		if idx == g.root {
			continue
		}
		g.connectBase(idx)
	}
	g.connectSchemas()
	for i, raw := range raws {
		if err := g.connectRawSQL(g.rawsqls[i], raw); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	for i, fn := range funcs {
		if err := g.connectFunction(g.funcs[i], fn); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	for i, agg := range aggrs {
		if err := g.connectAggregate(g.aggrs[i], agg); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	for _, idx := range g.families {
		if err := g.connectFamily(idx); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if errs != nil {
		return nil, errs
	}
	// Cycles are a construction failure: no graph, no partial output.
	if _, err := g.topoSort(); err != nil {
		return nil, err
	}
	return g, nil
}

// Len returns the node count, including the root and any synthetic
// placeholder nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Control returns the control data carried by the root node.
func (g *Graph) Control() entity.ControlData { return g.control }

func (g *Graph) addNode(e entity.Entity) int {
	g.nodes = append(g.nodes, e)
	return len(g.nodes) - 1
}

func (g *Graph) addEdge(from, to int, rel Relationship) {
	g.edges = append(g.edges, edge{from: from, to: to, rel: rel})
}

// connectBase wires the three singleton anchors for one node. Bootstrap
// must precede and finalize must follow every ordinary node in any
// valid topological order.
func (g *Graph) connectBase(idx int) {
	g.addEdge(g.root, idx, RequiredBy)
	if g.bootstrap >= 0 && idx != g.bootstrap && idx != g.finalize {
		g.addEdge(g.bootstrap, idx, RequiredBy)
	}
	if g.finalize >= 0 && idx != g.finalize {
		g.addEdge(idx, g.finalize, RequiredBy)
	}
}

func (g *Graph) initRawSQL(raws []*entity.RawSQL) error {
	for _, raw := range raws {
		idx := g.addNode(raw)
		g.rawsqls = append(g.rawsqls, idx)
		if raw.Bootstrap {
			if g.bootstrap >= 0 {
				other := g.nodes[g.bootstrap].(*entity.RawSQL)
				return fmt.Errorf("%w: found %q, other was %q",
					errDuplicateBootstrap, raw.Name, other.Name)
			}
			g.bootstrap = idx
		}
		if raw.Finalize {
			if g.finalize >= 0 {
				other := g.nodes[g.finalize].(*entity.RawSQL)
				return fmt.Errorf("%w: found %q, other was %q",
					errDuplicateFinalize, raw.Name, other.Name)
			}
			g.finalize = idx
		}
	}
	return nil
}

// registerMappings folds each type's and enum's contributed mappings
// into the resolution table. Mapping the same Go type twice signals an
// extraction bug, not user error.
func (g *Graph) registerMappings() error {
	var errs error
	add := func(owner string, ms []entity.SQLMapping) {
		for _, m := range ms {
			if _, ok := g.typeMappings[m.Go]; ok {
				errs = multierror.Append(errs, fmt.Errorf(
					"pgmantle: cannot map %q twice (while registering %s)", m.Go, owner))
				continue
			}
			g.typeMappings[m.Go] = m.SQL
		}
	}
	for _, idx := range g.enums {
		e := g.nodes[idx].(*entity.EnumType)
		add(e.FullPath, e.Mappings)
	}
	for _, idx := range g.types {
		t := g.nodes[idx].(*entity.CompositeType)
		add(t.FullPath, t.Mappings)
	}
	return errs
}

// connectSchemas adds schema -> entity edges for every entity whose
// declaring module matches a schema entity. First match wins; one
// schema edge per entity.
func (g *Graph) connectSchemas() {
	for idx, e := range g.nodes {
		if idx == g.root {
			continue
		}
		if _, ok := e.(*entity.Schema); ok {
			continue
		}
		module := e.Identifier().Module
		for _, sidx := range g.schemas {
			s := g.nodes[sidx].(*entity.Schema)
			if s.Module == module {
				g.addEdge(sidx, idx, RequiredBy)
				break
			}
		}
	}
}

// connectRawSQL resolves the block's ordering references. `before`
// targets come after the block; `requires` targets come before it.
func (g *Graph) connectRawSQL(idx int, raw *entity.RawSQL) error {
	// Standalone blocks carry no Go symbol path, so the block name
	// identifies the owner in unresolved-reference errors.
	owner := raw.FullPath
	if owner == "" {
		owner = raw.Name
	}
	var errs error
	for _, ref := range raw.Before {
		target, ok := g.findPositioningRef(ref, idx)
		if !ok {
			errs = multierror.Append(errs, g.unresolved(raw.Ident, owner, "before "+ref.String()))
			continue
		}
		g.addEdge(idx, target, RequiredBy)
	}
	for _, ref := range raw.Requires {
		target, ok := g.findPositioningRef(ref, idx)
		if !ok {
			errs = multierror.Append(errs, g.unresolved(raw.Ident, owner, "requires "+ref.String()))
			continue
		}
		g.addEdge(target, idx, RequiredBy)
	}
	return errs
}

// findPositioningRef resolves an ordering reference. Path references
// match the last path segment against type/enum/function names with a
// module-suffix check, so a reference may name only the bare
// identifier while the definer stores a fully qualified path. Name
// references match other raw-SQL blocks first, then bare type, enum
// and function names.
func (g *Graph) findPositioningRef(ref entity.PositioningRef, self int) (int, bool) {
	if ref.Name != "" {
		for _, idx := range g.rawsqls {
			if idx == self {
				continue
			}
			if g.nodes[idx].(*entity.RawSQL).Name == ref.Name {
				return idx, true
			}
		}
		for _, idx := range g.types {
			if g.nodes[idx].(*entity.CompositeType).Name == ref.Name {
				return idx, true
			}
		}
		for _, idx := range g.enums {
			if g.nodes[idx].(*entity.EnumType).Name == ref.Name {
				return idx, true
			}
		}
		for _, idx := range g.funcs {
			f := g.nodes[idx].(*entity.Function)
			if f.UnaliasedName == ref.Name || f.Name == ref.Name {
				return idx, true
			}
		}
		return 0, false
	}
	last, modulePath := splitPathRef(ref.Path)
	for _, idx := range g.types {
		t := g.nodes[idx].(*entity.CompositeType)
		if t.Name == last && suffixMatch(t.Module, modulePath) {
			return idx, true
		}
	}
	for _, idx := range g.enums {
		e := g.nodes[idx].(*entity.EnumType)
		if e.Name == last && suffixMatch(e.Module, modulePath) {
			return idx, true
		}
	}
	for _, idx := range g.funcs {
		f := g.nodes[idx].(*entity.Function)
		if (f.UnaliasedName == last || f.Name == last) && suffixMatch(f.Module, modulePath) {
			return idx, true
		}
	}
	for _, idx := range g.schemas {
		s := g.nodes[idx].(*entity.Schema)
		if suffixMatch(s.Module, ref.Path) {
			return idx, true
		}
	}
	return 0, false
}

// connectFunction adds definer -> function edges for every argument
// and return type.
func (g *Graph) connectFunction(idx int, fn *entity.Function) error {
	var errs error
	if fn.Operator != nil && len(fn.Args) < 2 {
		errs = multierror.Append(errs, fmt.Errorf(
			"pgmantle: operator %q on %s requires two arguments, got %d (%s)",
			fn.Operator.Name, fn.FullPath, len(fn.Args), fn.Pos()))
	}
	for _, arg := range fn.Args {
		if arg.Handle {
			continue
		}
		definer, err := g.typeDefiner(arg.Type, fn, "argument "+arg.Name)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		g.addEdge(definer, idx, RequiredByArg)
	}
	switch fn.Return.Shape {
	case entity.ReturnNone, entity.ReturnTrigger:
	case entity.ReturnTable:
		for _, col := range fn.Return.Columns {
			definer, err := g.typeDefiner(col.Type, fn, "column "+col.Name)
			if err != nil {
				errs = multierror.Append(errs, err)
				continue
			}
			g.addEdge(definer, idx, RequiredByReturn)
		}
	default:
		definer, err := g.typeDefiner(fn.Return.Type, fn, "return")
		if err != nil {
			errs = multierror.Append(errs, err)
		} else {
			g.addEdge(definer, idx, RequiredByReturn)
		}
	}
	for _, ref := range fn.Requires {
		target, ok := g.findPositioningRef(ref, idx)
		if !ok {
			errs = multierror.Append(errs, g.unresolved(fn.Ident, fn.FullPath, "requires "+ref.String()))
			continue
		}
		g.addEdge(target, idx, RequiredBy)
	}
	return errs
}

func (g *Graph) connectAggregate(idx int, agg *entity.Aggregate) error {
	var errs error
	for _, arg := range agg.Args {
		definer, err := g.typeDefinerFor(arg.Type, agg.Ident, agg.FullPath, "argument "+arg.Name)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		g.addEdge(definer, idx, RequiredByArg)
	}
	if agg.StateType.ID != "" {
		definer, err := g.typeDefinerFor(agg.StateType, agg.Ident, agg.FullPath, "state type")
		if err != nil {
			errs = multierror.Append(errs, err)
		} else {
			g.addEdge(definer, idx, RequiredByArg)
		}
	}
	if !g.linkSupportFunc(idx, agg.SFunc) {
		errs = multierror.Append(errs, g.unresolved(agg.Ident, agg.FullPath, fmt.Sprintf("sfunc %q", agg.SFunc)))
	}
	if agg.FinalFunc != "" && !g.linkSupportFunc(idx, agg.FinalFunc) {
		errs = multierror.Append(errs, g.unresolved(agg.Ident, agg.FullPath, fmt.Sprintf("finalfunc %q", agg.FinalFunc)))
	}
	return errs
}

// linkSupportFunc wires the declared function carrying the given SQL
// name behind an aggregate, reporting whether one exists.
func (g *Graph) linkSupportFunc(idx int, sqlName string) bool {
	for _, fidx := range g.funcs {
		if g.nodes[fidx].(*entity.Function).Name == sqlName {
			g.addEdge(fidx, idx, RequiredBy)
			return true
		}
	}
	return false
}

// typeDefiner finds the node that defines a referenced type, trying
// composite types, then enums, then a synthetic builtin placeholder
// created on demand. A type that resolves to no SQL name at all is a
// hard error naming the offending use.
// connectFamily wires an operator family behind the type it indexes.
func (g *Graph) connectFamily(idx int) error {
	var (
		target entity.TypeRef
		owner  entity.Ident
		what   string
	)
	switch f := g.nodes[idx].(type) {
	case *entity.OrderingFamily:
		target, owner, what = f.Target, f.Ident, "ordering family"
	case *entity.HashFamily:
		target, owner, what = f.Target, f.Ident, "hash family"
	default:
		return nil
	}
	def, err := g.typeDefinerFor(target, owner, owner.FullPath, what)
	if err != nil {
		return err
	}
	g.addEdge(def, idx, RequiredBy)
	return nil
}

func (g *Graph) typeDefiner(t entity.TypeRef, fn *entity.Function, what string) (int, error) {
	return g.typeDefinerFor(t, fn.Ident, fn.FullPath, what)
}

func (g *Graph) typeDefinerFor(t entity.TypeRef, owner entity.Ident, ownerPath, what string) (int, error) {
	for _, idx := range g.types {
		if g.nodes[idx].(*entity.CompositeType).ID(t.ID) {
			return idx, nil
		}
	}
	for _, idx := range g.enums {
		if g.nodes[idx].(*entity.EnumType).ID(t.ID) {
			return idx, nil
		}
	}
	sql, ok := g.resolveSQL(t)
	if !ok {
		return 0, g.unresolved(owner, ownerPath, fmt.Sprintf("type %s of %s", t.Name, what))
	}
	if idx, ok := g.builtins[sql]; ok {
		return idx, nil
	}
	idx := g.addNode(&entity.BuiltinType{Name: sql})
	g.builtins[sql] = idx
	g.connectBase(idx)
	return idx, nil
}

// resolveSQL maps a type reference to its SQL name through the
// fallback chain: source-text mapping, identity mapping, then a
// raw-SQL-declared entity.
func (g *Graph) resolveSQL(t entity.TypeRef) (string, bool) {
	if sql, ok := g.sourceMappings[t.Name]; ok {
		return sql, true
	}
	if sql, ok := g.typeMappings[t.ID]; ok {
		return sql, true
	}
	for _, idx := range g.rawsqls {
		raw := g.nodes[idx].(*entity.RawSQL)
		for _, d := range raw.Creates {
			if d.Matches(entity.DeclaredType, t.ID) || d.Matches(entity.DeclaredEnum, t.ID) {
				return d.SQLName(), true
			}
		}
	}
	return "", false
}

// schemaPrefixFor walks the node's neighbors for a Schema, falling
// back to the root's fixed schema for non-relocatable extensions.
func (g *Graph) schemaPrefixFor(idx int) string {
	for _, e := range g.edges {
		var neighbor int
		switch {
		case e.from == idx:
			neighbor = e.to
		case e.to == idx:
			neighbor = e.from
		default:
			continue
		}
		if s, ok := g.nodes[neighbor].(*entity.Schema); ok {
			return s.Name + "."
		}
	}
	return g.control.SchemaPrefix()
}

func (g *Graph) unresolved(owner entity.Ident, ownerPath, ref string) error {
	return &unresolvedError{owner: ownerPath, ref: ref, where: owner.Pos()}
}

func splitPathRef(path string) (last, rest string) {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' || path[i] == '/' {
			return path[i+1:], path[:i]
		}
	}
	return path, ""
}

// suffixMatch reports whether module ends with the (possibly empty)
// qualifier.
func suffixMatch(module, qualifier string) bool {
	if qualifier == "" {
		return true
	}
	if len(qualifier) > len(module) {
		return false
	}
	return module[len(module)-len(qualifier):] == qualifier
}
