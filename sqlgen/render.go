package sqlgen

import (
	"fmt"
	"strings"

	"github.com/pgmantle/pgmantle"
	"github.com/pgmantle/pgmantle/entity"
)

// identify returns a short human identifier for a node, used in cycle
// and resolution errors.
func identify(e entity.Entity) string {
	switch e := e.(type) {
	case *entity.Function:
		return "fn " + e.FullPath
	case *entity.CompositeType:
		return "type " + e.FullPath
	case *entity.EnumType:
		return "enum " + e.FullPath
	case *entity.Schema:
		return "schema " + e.Module
	case *entity.RawSQL:
		return "sql " + e.Name
	case *entity.Aggregate:
		return "aggregate " + e.FullPath
	case *entity.BuiltinType:
		return "builtin type " + e.Name
	case *entity.ExtensionRoot:
		return "extension root"
	case *entity.OrderingFamily:
		return "ord " + e.FullPath
	case *entity.HashFamily:
		return "hash " + e.FullPath
	default:
		return fmt.Sprintf("%T", e)
	}
}

// render produces the SQL text of one node. Builtin placeholders and
// functions folded into a composite type's block render empty.
func (g *Graph) render(idx int) (string, error) {
	switch e := g.nodes[idx].(type) {
	case *entity.ExtensionRoot:
		return g.renderRoot(e), nil
	case *entity.Schema:
		return g.renderSchema(e), nil
	case *entity.EnumType:
		return g.renderEnum(idx, e), nil
	case *entity.CompositeType:
		return g.renderComposite(idx, e)
	case *entity.Function:
		if g.isShellIOFunc(e) {
			return "", nil
		}
		return g.renderFunction(idx, e)
	case *entity.RawSQL:
		return g.renderRawSQL(e), nil
	case *entity.Aggregate:
		return g.renderAggregate(idx, e)
	case *entity.BuiltinType:
		return "", nil
	case *entity.OrderingFamily:
		return g.renderOrderingFamily(idx, e), nil
	case *entity.HashFamily:
		return g.renderHashFamily(idx, e), nil
	default:
		return "", fmt.Errorf("pgmantle: no renderer for %T", e)
	}
}

func (g *Graph) renderRoot(*entity.ExtensionRoot) string {
	return strings.TrimSuffix(pgmantle.RenderHeader(), "\n")
}

func (g *Graph) renderSchema(s *entity.Schema) string {
	return fmt.Sprintf("\n-- %s\nCREATE SCHEMA IF NOT EXISTS %s; /* %s */",
		s.Pos(), s.Name, s.Module)
}

func (g *Graph) renderEnum(idx int, e *entity.EnumType) string {
	variants := make([]string, len(e.Variants))
	for i, v := range e.Variants {
		variants[i] = "\t'" + v + "'"
	}
	return fmt.Sprintf("\n-- %s\n-- %s\nCREATE TYPE %s%s AS ENUM (\n%s\n);",
		e.Pos(), e.FullPath, g.schemaPrefixFor(idx), e.Name,
		strings.Join(variants, ",\n"))
}

func (g *Graph) renderOrderingFamily(idx int, f *entity.OrderingFamily) string {
	prefix := g.schemaPrefixFor(idx)
	name := prefix + f.Name
	return fmt.Sprintf(`
-- %s
-- %s
CREATE OPERATOR FAMILY %s_btree_ops USING btree;
CREATE OPERATOR CLASS %s_btree_ops DEFAULT FOR TYPE %s USING btree FAMILY %s_btree_ops AS
	OPERATOR 1 <,
	OPERATOR 2 <=,
	OPERATOR 3 =,
	OPERATOR 4 >=,
	OPERATOR 5 >,
	FUNCTION 1 %s_cmp(%s, %s);`,
		f.Pos(), f.FullPath,
		name, name, name, name,
		name, name, name)
}

func (g *Graph) renderHashFamily(idx int, f *entity.HashFamily) string {
	prefix := g.schemaPrefixFor(idx)
	name := prefix + f.Name
	return fmt.Sprintf(`
-- %s
-- %s
CREATE OPERATOR FAMILY %s_hash_ops USING hash;
CREATE OPERATOR CLASS %s_hash_ops DEFAULT FOR TYPE %s USING hash FAMILY %s_hash_ops AS
	OPERATOR 1 = (%s, %s),
	FUNCTION 1 %s_hash(%s);`,
		f.Pos(), f.FullPath,
		name, name, name, name,
		name, name, name, name)
}

func (g *Graph) renderRawSQL(raw *entity.RawSQL) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n-- %s\n-- %s", raw.Pos(), raw.Name)
	if len(raw.Creates) > 0 {
		b.WriteString("\n-- creates:")
		for _, d := range raw.Creates {
			b.WriteString("\n--   ")
			b.WriteString(d.Name)
		}
	}
	if len(raw.Requires) > 0 {
		b.WriteString("\n-- requires:")
		for _, r := range raw.Requires {
			b.WriteString("\n--   ")
			b.WriteString(r.String())
		}
	}
	b.WriteByte('\n')
	b.WriteString(strings.TrimRight(raw.SQL, "\n"))
	return b.String()
}

// isShellIOFunc reports whether the function is the in/out function of
// some composite type; those render inside the type's block instead of
// at their own position.
func (g *Graph) isShellIOFunc(fn *entity.Function) bool {
	for _, tidx := range g.types {
		t := g.nodes[tidx].(*entity.CompositeType)
		if t.InFunc == fn.FullPath || t.OutFunc == fn.FullPath {
			return true
		}
	}
	return false
}

// renderComposite emits the shell type, its in/out functions, then the
// completed CREATE TYPE. The shell must exist before the functions so
// their signatures can reference the type.
func (g *Graph) renderComposite(idx int, t *entity.CompositeType) (string, error) {
	prefix := g.schemaPrefixFor(idx)
	var b strings.Builder
	fmt.Fprintf(&b, "\n-- %s\n-- %s\nCREATE TYPE %s%s;", t.Pos(), t.FullPath, prefix, t.Name)

	inFn, err := g.funcByPath(t.InFunc)
	if err != nil {
		return "", fmt.Errorf("pgmantle: did not find in_fn %q of type %s: %w", t.InFunc, t.FullPath, err)
	}
	outFn, err := g.funcByPath(t.OutFunc)
	if err != nil {
		return "", fmt.Errorf("pgmantle: did not find out_fn %q of type %s: %w", t.OutFunc, t.FullPath, err)
	}
	for _, pair := range []struct {
		idx int
		fn  *entity.Function
	}{inFn, outFn} {
		sql, err := g.renderFunction(pair.idx, pair.fn)
		if err != nil {
			return "", err
		}
		b.WriteString(sql)
	}
	fmt.Fprintf(&b, "\n-- %s\n-- %s\nCREATE TYPE %s%s (\n\tINTERNALLENGTH = variable,\n\tINPUT = %s,\n\tOUTPUT = %s,\n\tSTORAGE = extended\n);",
		t.Pos(), t.FullPath, prefix, t.Name, inFn.fn.Name, outFn.fn.Name)
	return b.String(), nil
}

func (g *Graph) funcByPath(path string) (struct {
	idx int
	fn  *entity.Function
}, error) {
	for _, idx := range g.funcs {
		fn := g.nodes[idx].(*entity.Function)
		if fn.FullPath == path {
			return struct {
				idx int
				fn  *entity.Function
			}{idx, fn}, nil
		}
	}
	return struct {
		idx int
		fn  *entity.Function
	}{}, &unresolvedError{owner: path, ref: path}
}

// typePrefix returns the schema prefix for a referenced type: the
// defining composite/enum node's schema, or none for builtins, which
// live in the host's catalog.
func (g *Graph) typePrefix(t entity.TypeRef) string {
	for _, idx := range g.types {
		if g.nodes[idx].(*entity.CompositeType).ID(t.ID) {
			return g.schemaPrefixFor(idx)
		}
	}
	for _, idx := range g.enums {
		if g.nodes[idx].(*entity.EnumType).ID(t.ID) {
			return g.schemaPrefixFor(idx)
		}
	}
	return ""
}

func (g *Graph) renderFunction(idx int, fn *entity.Function) (string, error) {
	attrs := make([]entity.Attribute, 0, len(fn.Attrs)+1)
	attrs = append(attrs, fn.Attrs...)
	// STRICT inference: a function with no optional arguments cannot
	// meaningfully run on null input, so the declaration is upgraded
	// unless the author already chose. Optionality inside container
	// types deliberately does not count.
	if !fn.HasAttr(entity.Strict) {
		upgrade := true
		for _, arg := range fn.Args {
			if arg.Cardinality == entity.Optional || arg.Handle || arg.Raw {
				upgrade = false
				break
			}
		}
		if upgrade {
			attrs = append(attrs, entity.Strict)
		}
	}

	declared := make([]entity.Argument, 0, len(fn.Args))
	for _, arg := range fn.Args {
		if !arg.Handle {
			declared = append(declared, arg)
		}
	}
	var args string
	if len(declared) > 0 {
		lines := make([]string, 0, len(declared))
		for i, arg := range declared {
			sql, ok := g.resolveSQL(arg.Type)
			if !ok {
				return "", g.unresolved(fn.Ident, fn.FullPath, "type "+arg.Type.Name+" of argument "+arg.Name)
			}
			variadic := ""
			if arg.Cardinality == entity.Variadic {
				variadic = "VARIADIC "
			}
			def := ""
			if arg.Default != "" {
				def = " DEFAULT " + arg.Default
			}
			comma := " "
			if i < len(declared)-1 {
				comma = ", "
			}
			lines = append(lines, fmt.Sprintf("\t\"%s\" %s%s%s%s%s/* %s */",
				arg.Name, variadic, g.typePrefix(arg.Type), sql, def, comma, arg.Type.Name))
		}
		args = "\n" + strings.Join(lines, "\n") + "\n"
	}

	returns, err := g.renderReturns(fn)
	if err != nil {
		return "", err
	}

	var attrText string
	if kws := attrKeywords(attrs); len(kws) > 0 {
		attrText = strings.Join(kws, " ") + "\n"
	}
	var searchPath string
	if len(fn.SearchPath) > 0 {
		searchPath = "SET search_path TO " + strings.Join(fn.SearchPath, ", ") + "\n"
	}
	schema := fn.Schema
	if schema != "" {
		schema += "."
	} else {
		schema = g.schemaPrefixFor(idx)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n-- %s\n-- %s", fn.Pos(), fn.FullPath)
	if len(fn.Requires) > 0 {
		b.WriteString("\n-- requires:")
		for _, r := range fn.Requires {
			b.WriteString("\n--   ")
			b.WriteString(r.String())
		}
	}
	fmt.Fprintf(&b, "\nCREATE FUNCTION %s\"%s\"(%s) %s\n%s%sLANGUAGE c /* Go */\nAS '%s', '%s';",
		schema, fn.Name, args, returns, attrText, searchPath,
		g.control.ModulePathname, fn.WrapperSymbol())

	if fn.Operator != nil {
		op, err := g.renderOperator(idx, fn)
		if err != nil {
			return "", err
		}
		b.WriteString(op)
	}
	return b.String(), nil
}

func (g *Graph) renderReturns(fn *entity.Function) (string, error) {
	switch fn.Return.Shape {
	case entity.ReturnNone:
		return "RETURNS void", nil
	case entity.ReturnTrigger:
		return "RETURNS trigger", nil
	case entity.ReturnScalar, entity.ReturnSetOf:
		sql, ok := g.resolveSQL(fn.Return.Type)
		if !ok {
			return "", g.unresolved(fn.Ident, fn.FullPath, "type "+fn.Return.Type.Name+" of return")
		}
		setof := ""
		if fn.Return.Shape == entity.ReturnSetOf {
			setof = "SETOF "
		}
		return fmt.Sprintf("RETURNS %s%s%s /* %s */",
			setof, g.typePrefix(fn.Return.Type), sql, fn.Return.Type.Name), nil
	case entity.ReturnTable:
		cols := make([]string, len(fn.Return.Columns))
		for i, col := range fn.Return.Columns {
			sql, ok := g.resolveSQL(col.Type)
			if !ok {
				return "", g.unresolved(fn.Ident, fn.FullPath, "type "+col.Type.Name+" of column "+col.Name)
			}
			cols[i] = fmt.Sprintf("%s %s%s", col.Name, g.typePrefix(col.Type), sql)
		}
		return "RETURNS TABLE (" + strings.Join(cols, " , ") + "\n)", nil
	default:
		return "", fmt.Errorf("pgmantle: unreachable return shape %d for %s", fn.Return.Shape, fn.FullPath)
	}
}

func (g *Graph) renderOperator(idx int, fn *entity.Function) (string, error) {
	op := fn.Operator
	if len(fn.Args) < 2 {
		return "", fmt.Errorf("pgmantle: operator %q on %s requires two arguments", op.Name, fn.FullPath)
	}
	left, right := fn.Args[0], fn.Args[1]
	leftSQL, ok := g.resolveSQL(left.Type)
	if !ok {
		return "", g.unresolved(fn.Ident, fn.FullPath, "left operand type "+left.Type.Name)
	}
	rightSQL, ok := g.resolveSQL(right.Type)
	if !ok {
		return "", g.unresolved(fn.Ident, fn.FullPath, "right operand type "+right.Type.Name)
	}

	var optionals []string
	if op.Commutator != "" {
		optionals = append(optionals, "\tCOMMUTATOR = "+op.Commutator)
	}
	if op.Negator != "" {
		optionals = append(optionals, "\tNEGATOR = "+op.Negator)
	}
	if op.Restrict != "" {
		optionals = append(optionals, "\tRESTRICT = "+op.Restrict)
	}
	if op.Join != "" {
		optionals = append(optionals, "\tJOIN = "+op.Join)
	}
	if op.Hashes {
		optionals = append(optionals, "\tHASHES")
	}
	if op.Merges {
		optionals = append(optionals, "\tMERGES")
	}
	comma := ""
	optText := ""
	if len(optionals) > 0 {
		comma = ","
		optText = strings.Join(optionals, ",\n") + "\n"
	}
	return fmt.Sprintf("\n\n-- %s\n-- %s\nCREATE OPERATOR %s (\n\tPROCEDURE=\"%s\",\n\tLEFTARG=%s%s, /* %s */\n\tRIGHTARG=%s%s%s /* %s */\n%s);",
		fn.Pos(), fn.FullPath, op.Name, fn.Name,
		g.typePrefix(left.Type), leftSQL, left.Type.Name,
		g.typePrefix(right.Type), rightSQL, comma, right.Type.Name,
		optText), nil
}

func (g *Graph) renderAggregate(idx int, agg *entity.Aggregate) (string, error) {
	lines := make([]string, len(agg.Args))
	for i, arg := range agg.Args {
		sql, ok := g.resolveSQL(arg.Type)
		if !ok {
			return "", g.unresolved(agg.Ident, agg.FullPath, "type "+arg.Type.Name+" of argument "+arg.Name)
		}
		comma := ""
		if i < len(agg.Args)-1 {
			comma = ","
		}
		lines[i] = fmt.Sprintf("\t\"%s\" %s%s%s /* %s */", arg.Name, g.typePrefix(arg.Type), sql, comma, arg.Type.Name)
	}
	stateSQL, ok := g.resolveSQL(agg.StateType)
	if !ok {
		return "", g.unresolved(agg.Ident, agg.FullPath, "state type "+agg.StateType.Name)
	}
	clauses := []string{
		fmt.Sprintf("\tSFUNC = \"%s\"", agg.SFunc),
		fmt.Sprintf("\tSTYPE = %s%s", g.typePrefix(agg.StateType), stateSQL),
	}
	if agg.FinalFunc != "" {
		clauses = append(clauses, fmt.Sprintf("\tFINALFUNC = \"%s\"", agg.FinalFunc))
	}
	if agg.InitialCondition != "" {
		clauses = append(clauses, fmt.Sprintf("\tINITCOND = '%s'", agg.InitialCondition))
	}
	if agg.Parallel != "" {
		clauses = append(clauses, "\tPARALLEL = "+agg.Parallel)
	}
	return fmt.Sprintf("\n-- %s\n-- %s\nCREATE AGGREGATE %s%s (\n%s\n)\n(\n%s\n);",
		agg.Pos(), agg.FullPath, g.schemaPrefixFor(idx), agg.Name,
		strings.Join(lines, "\n"), strings.Join(clauses, ",\n")), nil
}

func attrKeywords(attrs []entity.Attribute) []string {
	kws := make([]string, 0, len(attrs))
	for _, a := range attrs {
		if kw := a.SQL(); kw != "" {
			kws = append(kws, kw)
		}
	}
	return kws
}
