package load

import (
	"fmt"
	"go/ast"
	"go/token"
	"strconv"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/pgmantle/pgmantle/entity"
)

const (
	fcallPath       = "github.com/pgmantle/pgmantle/fcall"
	datumType       = fcallPath + ".Datum"
	callInfoType    = fcallPath + ".CallInfo"
	iterSeqReceiver = "iter"
)

// extractor walks one parsed file and produces entity records from its
// //pgmantle: directives.
type extractor struct {
	pkgPath string
	fset    *token.FileSet
	file    *ast.File

	imports map[string]string        // local name -> import path
	types   map[string]*ast.TypeSpec // local type name -> spec
	consts  map[string][]enumVariant // type name -> declared constants
	schemas map[string]struct{}      // de-dup for schema directives
}

type enumVariant struct {
	name  string
	value string
}

// extractFile walks f and returns the entities it declares, in source
// order.
func extractFile(pkgPath string, fset *token.FileSet, f *ast.File) ([]entity.Entity, error) {
	x := &extractor{
		pkgPath: pkgPath,
		fset:    fset,
		file:    f,
		imports: make(map[string]string),
		types:   make(map[string]*ast.TypeSpec),
		consts:  make(map[string][]enumVariant),
		schemas: make(map[string]struct{}),
	}
	x.indexFile()

	var out []entity.Entity
	for _, cg := range f.Comments {
		ents, err := x.freeDirectives(cg)
		if err != nil {
			return nil, err
		}
		out = append(out, ents...)
	}
	for _, decl := range f.Decls {
		ents, err := x.decl(decl)
		if err != nil {
			return nil, err
		}
		out = append(out, ents...)
	}
	return out, nil
}

func (x *extractor) indexFile() {
	for _, imp := range x.file.Imports {
		path, _ := strconv.Unquote(imp.Path.Value)
		name := path
		if i := strings.LastIndexByte(path, '/'); i >= 0 {
			name = path[i+1:]
		}
		if imp.Name != nil {
			name = imp.Name.Name
		}
		x.imports[name] = path
	}
	for _, decl := range x.file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok {
			continue
		}
		switch gd.Tok {
		case token.TYPE:
			for _, spec := range gd.Specs {
				ts := spec.(*ast.TypeSpec)
				x.types[ts.Name.Name] = ts
			}
		case token.CONST:
			x.indexConsts(gd)
		}
	}
}

// indexConsts records typed string constants so enum directives can
// collect their variants. Only explicit `ConstName TypeName = "value"`
// specs count; iota blocks are not enum material here.
func (x *extractor) indexConsts(gd *ast.GenDecl) {
	for _, spec := range gd.Specs {
		vs := spec.(*ast.ValueSpec)
		typ, ok := vs.Type.(*ast.Ident)
		if !ok {
			continue
		}
		for i, name := range vs.Names {
			v := enumVariant{name: inflect.Underscore(name.Name)}
			if i < len(vs.Values) {
				if lit, ok := vs.Values[i].(*ast.BasicLit); ok && lit.Kind == token.STRING {
					if s, err := strconv.Unquote(lit.Value); err == nil {
						v.value = s
					}
				}
			}
			if v.value == "" {
				v.value = v.name
			}
			x.consts[typ.Name] = append(x.consts[typ.Name], v)
		}
	}
}

// freeDirectives handles directive kinds that stand on their own in a
// comment group rather than annotating a declaration. Only schema
// markers qualify.
func (x *extractor) freeDirectives(cg *ast.CommentGroup) ([]entity.Entity, error) {
	var out []entity.Entity
	for _, c := range cg.List {
		d, ok, err := parseDirective(c.Text)
		if err != nil {
			return nil, err
		}
		if !ok || d.Kind != dirSchema {
			continue
		}
		if len(d.Args) != 1 {
			return nil, x.errAt(c.Pos(), "schema directive needs exactly one name")
		}
		name := d.Args[0]
		if _, dup := x.schemas[name]; dup {
			continue
		}
		x.schemas[name] = struct{}{}
		out = append(out, &entity.Schema{
			Ident: x.ident(c.Pos(), name),
			Name:  name,
		})
	}
	return out, nil
}

// decl dispatches one top-level declaration on its leading directive.
func (x *extractor) decl(decl ast.Decl) ([]entity.Entity, error) {
	switch d := decl.(type) {
	case *ast.FuncDecl:
		return x.funcDecl(d)
	case *ast.GenDecl:
		return x.genDecl(d)
	default:
		return nil, nil
	}
}

func (x *extractor) funcDecl(fd *ast.FuncDecl) ([]entity.Entity, error) {
	dirs, err := x.docDirectives(fd.Doc)
	if err != nil {
		return nil, err
	}
	var primary *directive
	var op *directive
	for i := range dirs {
		switch dirs[i].Kind {
		case dirFunction, dirTrigger:
			primary = &dirs[i]
		case dirOperator:
			op = &dirs[i]
		case dirAggregate:
			return nil, x.errAt(fd.Pos(), "aggregate directives annotate types, not functions")
		}
	}
	if primary == nil {
		if op != nil {
			return nil, x.errAt(fd.Pos(), "operator directive requires a function directive on the same declaration")
		}
		return nil, nil
	}
	if fd.Recv != nil {
		return nil, x.errAt(fd.Pos(), "directives are not supported on methods")
	}

	fn := &entity.Function{
		Ident:         x.ident(fd.Pos(), fd.Name.Name),
		GoName:        fd.Name.Name,
		UnaliasedName: inflect.Underscore(fd.Name.Name),
		Schema:        primary.Opts["schema"],
		SearchPath:    primary.list("search_path"),
	}
	fn.Name = fn.UnaliasedName
	if alias := primary.Opts["name"]; alias != "" {
		fn.Name = alias
	}
	fn.Attrs = attrsFromFlags(primary.Flags)
	for _, ref := range primary.list("requires") {
		fn.Requires = append(fn.Requires, positioningRef(ref))
	}
	if err := x.funcArgs(fn, fd, *primary); err != nil {
		return nil, err
	}
	ret, hasErr, err := x.funcReturn(fd, primary.Kind == dirTrigger)
	if err != nil {
		return nil, err
	}
	fn.Return = ret
	fn.ReturnsError = hasErr

	if op != nil {
		fn.Operator, err = x.operator(fd, *op)
		if err != nil {
			return nil, err
		}
	}
	return []entity.Entity{fn}, nil
}

func (x *extractor) operator(fd *ast.FuncDecl, d directive) (*entity.Operator, error) {
	name := d.Opts["name"]
	if name == "" && len(d.Args) == 1 {
		name = d.Args[0]
	}
	if name == "" {
		return nil, x.errAt(fd.Pos(), "operator directive needs a name")
	}
	return &entity.Operator{
		Name:       name,
		Commutator: d.Opts["commutator"],
		Negator:    d.Opts["negator"],
		Restrict:   d.Opts["restrict"],
		Join:       d.Opts["join"],
		Hashes:     d.Flags["hashes"],
		Merges:     d.Flags["merges"],
	}, nil
}

// funcArgs maps the Go parameter list onto argument records: *T is
// optional, ...T is variadic, the raw datum type bypasses decoding and
// the call-info handle passes through. The handle must be last.
func (x *extractor) funcArgs(fn *entity.Function, fd *ast.FuncDecl, d directive) error {
	params := fd.Type.Params
	if params == nil {
		return nil
	}
	for _, field := range params.List {
		names := field.Names
		if len(names) == 0 {
			return x.errAt(field.Pos(), "function %s: arguments must be named", fn.UnaliasedName)
		}
		for _, name := range names {
			arg, err := x.argument(fn, name.Name, field.Type)
			if err != nil {
				return err
			}
			arg.Default = d.Opts["default."+arg.Name]
			fn.Args = append(fn.Args, arg)
		}
	}
	for i, arg := range fn.Args {
		if arg.Handle && i != len(fn.Args)-1 {
			return x.errAt(fd.Pos(), "function %s: call-info handle argument %q must be declared last",
				fn.UnaliasedName, arg.Name)
		}
	}
	return nil
}

func (x *extractor) argument(fn *entity.Function, name string, typ ast.Expr) (entity.Argument, error) {
	arg := entity.Argument{Name: inflect.Underscore(name)}
	switch t := typ.(type) {
	case *ast.Ellipsis:
		ref, err := x.typeRef(t.Elt)
		if err != nil {
			return arg, x.argErr(fn, name, err)
		}
		arg.Cardinality = entity.Variadic
		arg.Type = ref
		return arg, nil
	case *ast.StarExpr:
		if x.isFcallType(t.X, "CallInfo") {
			arg.Handle = true
			arg.Type = entity.TypeRef{ID: callInfoType, Name: "*fcall.CallInfo"}
			return arg, nil
		}
		ref, err := x.typeRef(t.X)
		if err != nil {
			return arg, x.argErr(fn, name, err)
		}
		ref.Optional = true
		arg.Cardinality = entity.Optional
		arg.Type = ref
		return arg, nil
	default:
		if x.isFcallType(typ, "Datum") {
			arg.Raw = true
			arg.Type = entity.TypeRef{ID: datumType, Name: "fcall.Datum"}
			return arg, nil
		}
		ref, err := x.typeRef(typ)
		if err != nil {
			return arg, x.argErr(fn, name, err)
		}
		arg.Type = ref
		return arg, nil
	}
}

func (x *extractor) argErr(fn *entity.Function, name string, err error) error {
	return fmt.Errorf("pgmantle: function %s, argument %s: %w", fn.FullPath, name, err)
}

// funcReturn classifies the result list. A trailing error result is the
// wrapper's concern, not part of the SQL shape.
func (x *extractor) funcReturn(fd *ast.FuncDecl, trigger bool) (entity.Return, bool, error) {
	var results []ast.Expr
	if fd.Type.Results != nil {
		for _, field := range fd.Type.Results.List {
			n := max(len(field.Names), 1)
			for range n {
				results = append(results, field.Type)
			}
		}
	}
	hasErr := false
	if n := len(results); n > 0 {
		if id, ok := results[n-1].(*ast.Ident); ok && id.Name == "error" {
			results = results[:n-1]
			hasErr = true
		}
	}

	if trigger {
		if len(results) != 1 || !x.isFcallType(results[0], "TriggerResult") {
			return entity.Return{}, false, x.errAt(fd.Pos(), "trigger function %s must return fcall.TriggerResult", fd.Name.Name)
		}
		return entity.Return{Shape: entity.ReturnTrigger}, hasErr, nil
	}

	switch len(results) {
	case 0:
		return entity.Return{Shape: entity.ReturnNone}, hasErr, nil
	case 1:
		ret, err := x.returnShape(fd, results[0])
		return ret, hasErr, err
	default:
		return entity.Return{}, false, x.errAt(fd.Pos(), "function %s: multiple results are not supported; return a struct row via iter.Seq", fd.Name.Name)
	}
}

func (x *extractor) returnShape(fd *ast.FuncDecl, typ ast.Expr) (entity.Return, error) {
	optional := false
	if star, ok := typ.(*ast.StarExpr); ok {
		optional = true
		typ = star.X
	}

	if elem, ok := x.iterSeqElem(typ); ok {
		return x.sequenceShape(fd, elem, optional)
	}

	ref, err := x.typeRef(typ)
	if err != nil {
		return entity.Return{}, fmt.Errorf("pgmantle: function %s.%s: %w", x.pkgPath, fd.Name.Name, err)
	}
	ref.Optional = optional
	return entity.Return{Shape: entity.ReturnScalar, Type: ref, Optional: optional}, nil
}

// sequenceShape distinguishes SETOF (scalar element) from TABLE (local
// struct element, one column per field).
func (x *extractor) sequenceShape(fd *ast.FuncDecl, elem ast.Expr, optional bool) (entity.Return, error) {
	elemOptional := false
	if star, ok := elem.(*ast.StarExpr); ok {
		elemOptional = true
		elem = star.X
	}
	if id, ok := elem.(*ast.Ident); ok {
		if ts, ok := x.types[id.Name]; ok {
			if st, ok := ts.Type.(*ast.StructType); ok {
				if elemOptional {
					return entity.Return{}, x.errAt(fd.Pos(), "function %s: table rows cannot be pointers; make individual columns pointers instead", fd.Name.Name)
				}
				cols, err := x.rowColumns(fd, st)
				if err != nil {
					return entity.Return{}, err
				}
				return entity.Return{
					Shape:    entity.ReturnTable,
					Optional: optional,
					Columns:  cols,
					RowType:  entity.TypeRef{ID: x.pkgPath + "." + id.Name, Name: id.Name},
				}, nil
			}
		}
	}
	ref, err := x.typeRef(elem)
	if err != nil {
		return entity.Return{}, fmt.Errorf("pgmantle: function %s.%s: %w", x.pkgPath, fd.Name.Name, err)
	}
	ref.Optional = elemOptional
	return entity.Return{Shape: entity.ReturnSetOf, Type: ref, Optional: optional}, nil
}

func (x *extractor) rowColumns(fd *ast.FuncDecl, st *ast.StructType) ([]entity.Column, error) {
	var cols []entity.Column
	for _, field := range st.Fields.List {
		typ := field.Type
		opt := false
		if star, ok := typ.(*ast.StarExpr); ok {
			opt = true
			typ = star.X
		}
		ref, err := x.typeRef(typ)
		if err != nil {
			return nil, fmt.Errorf("pgmantle: function %s.%s row: %w", x.pkgPath, fd.Name.Name, err)
		}
		ref.Optional = opt
		for _, name := range field.Names {
			cols = append(cols, entity.Column{
				Name:   inflect.Underscore(name.Name),
				GoName: name.Name,
				Type:   ref,
			})
		}
	}
	if len(cols) == 0 {
		return nil, x.errAt(fd.Pos(), "function %s: table row struct has no columns", fd.Name.Name)
	}
	return cols, nil
}

func (x *extractor) genDecl(gd *ast.GenDecl) ([]entity.Entity, error) {
	dirs, err := x.docDirectives(gd.Doc)
	if err != nil {
		return nil, err
	}
	var out []entity.Entity
	for _, d := range dirs {
		switch d.Kind {
		case dirType:
			e, err := x.compositeType(gd, d)
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		case dirEnum:
			e, err := x.enumType(gd, d)
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		case dirSQL:
			e, err := x.rawSQL(gd, d)
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		case dirAggregate:
			e, err := x.aggregate(gd, d)
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		case dirOrd, dirHash:
			e, err := x.operatorFamily(gd, d)
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		case dirSchema:
			// Handled as a free directive over the file's comments.
		case dirFunction, dirTrigger, dirOperator:
			return nil, x.errAt(gd.Pos(), "%s directives annotate functions", d.Kind)
		}
	}
	return out, nil
}

func (x *extractor) singleType(gd *ast.GenDecl, kind string) (*ast.TypeSpec, error) {
	if gd.Tok != token.TYPE || len(gd.Specs) != 1 {
		return nil, x.errAt(gd.Pos(), "%s directives annotate a single type declaration", kind)
	}
	return gd.Specs[0].(*ast.TypeSpec), nil
}

func (x *extractor) compositeType(gd *ast.GenDecl, d directive) (entity.Entity, error) {
	ts, err := x.singleType(gd, dirType)
	if err != nil {
		return nil, err
	}
	goName := ts.Name.Name
	sqlName := d.Opts["name"]
	if sqlName == "" {
		sqlName = inflect.Underscore(goName)
	}
	in, out := d.Opts["in"], d.Opts["out"]
	if in == "" || out == "" {
		return nil, x.errAt(gd.Pos(), "type %s: composite types need in= and out= text-io functions", goName)
	}
	return &entity.CompositeType{
		Ident:   x.ident(ts.Pos(), goName),
		Name:    sqlName,
		InFunc:  x.pkgPath + "." + in,
		OutFunc: x.pkgPath + "." + out,
		Mappings: []entity.SQLMapping{
			{Go: x.pkgPath + "." + goName, SQL: sqlName},
		},
	}, nil
}

func (x *extractor) enumType(gd *ast.GenDecl, d directive) (entity.Entity, error) {
	ts, err := x.singleType(gd, dirEnum)
	if err != nil {
		return nil, err
	}
	goName := ts.Name.Name
	sqlName := d.Opts["name"]
	if sqlName == "" {
		sqlName = inflect.Underscore(goName)
	}
	variants := x.consts[goName]
	if len(variants) == 0 {
		return nil, x.errAt(gd.Pos(), "enum %s: no typed constants declare its variants", goName)
	}
	e := &entity.EnumType{
		Ident: x.ident(ts.Pos(), goName),
		Name:  sqlName,
		Mappings: []entity.SQLMapping{
			{Go: x.pkgPath + "." + goName, SQL: sqlName},
		},
	}
	for _, v := range variants {
		e.Variants = append(e.Variants, v.value)
	}
	return e, nil
}

// operatorFamily reads an ord or hash directive stacked on a declared
// type. The support functions the class references (<name>_cmp,
// <name>_hash) are declared next to the type like any other function.
func (x *extractor) operatorFamily(gd *ast.GenDecl, d directive) (entity.Entity, error) {
	ts, err := x.singleType(gd, d.Kind)
	if err != nil {
		return nil, err
	}
	goName := ts.Name.Name
	sqlName := d.Opts["name"]
	if sqlName == "" {
		sqlName = inflect.Underscore(goName)
	}
	ident := x.ident(ts.Pos(), goName)
	target := entity.TypeRef{ID: x.pkgPath + "." + goName, Name: goName}
	if d.Kind == dirOrd {
		return &entity.OrderingFamily{Ident: ident, Name: sqlName, Target: target}, nil
	}
	return &entity.HashFamily{Ident: ident, Name: sqlName, Target: target}, nil
}

// rawSQL reads the literal text out of the annotated string constant.
func (x *extractor) rawSQL(gd *ast.GenDecl, d directive) (entity.Entity, error) {
	if gd.Tok != token.CONST || len(gd.Specs) != 1 {
		return nil, x.errAt(gd.Pos(), "sql directives annotate a single string constant")
	}
	vs := gd.Specs[0].(*ast.ValueSpec)
	if len(vs.Names) != 1 || len(vs.Values) != 1 {
		return nil, x.errAt(gd.Pos(), "sql directives annotate a single string constant")
	}
	lit, ok := vs.Values[0].(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return nil, x.errAt(gd.Pos(), "sql block %s: value must be a string literal", vs.Names[0].Name)
	}
	text, err := strconv.Unquote(lit.Value)
	if err != nil {
		return nil, x.errAt(gd.Pos(), "sql block %s: %v", vs.Names[0].Name, err)
	}

	name := d.Opts["name"]
	if name == "" {
		name = inflect.Underscore(vs.Names[0].Name)
	}
	raw := &entity.RawSQL{
		Ident:     x.ident(vs.Pos(), vs.Names[0].Name),
		Name:      name,
		SQL:       text,
		Bootstrap: d.Flags["bootstrap"],
		Finalize:  d.Flags["finalize"],
	}
	for _, ref := range d.list("requires") {
		raw.Requires = append(raw.Requires, positioningRef(ref))
	}
	for _, ref := range d.list("before") {
		raw.Before = append(raw.Before, positioningRef(ref))
	}
	for _, c := range d.list("creates") {
		decl, err := x.declared(gd, c)
		if err != nil {
			return nil, err
		}
		raw.Creates = append(raw.Creates, decl)
	}
	return raw, nil
}

// declared parses one creates= item of the form kind:name.
func (x *extractor) declared(gd *ast.GenDecl, item string) (entity.Declared, error) {
	kind, name, ok := strings.Cut(item, ":")
	if !ok {
		return entity.Declared{}, x.errAt(gd.Pos(), "creates item %q must be kind:name", item)
	}
	d := entity.Declared{Name: name}
	switch kind {
	case "type":
		d.Kind = entity.DeclaredType
	case "enum":
		d.Kind = entity.DeclaredEnum
	case "function":
		d.Kind = entity.DeclaredFunction
	default:
		return entity.Declared{}, x.errAt(gd.Pos(), "creates item %q: unknown kind %q", item, kind)
	}
	return d, nil
}

func (x *extractor) aggregate(gd *ast.GenDecl, d directive) (entity.Entity, error) {
	ts, err := x.singleType(gd, dirAggregate)
	if err != nil {
		return nil, err
	}
	goName := ts.Name.Name
	sqlName := d.Opts["name"]
	if sqlName == "" {
		sqlName = inflect.Underscore(goName)
	}
	if d.Opts["sfunc"] == "" || d.Opts["stype"] == "" {
		return nil, x.errAt(gd.Pos(), "aggregate %s: sfunc= and stype= are required", goName)
	}
	agg := &entity.Aggregate{
		Ident:            x.ident(ts.Pos(), goName),
		Name:             sqlName,
		StateType:        entity.TypeRef{ID: d.Opts["stype"], Name: d.Opts["stype"]},
		SFunc:            d.Opts["sfunc"],
		FinalFunc:        d.Opts["finalfunc"],
		InitialCondition: d.Opts["initcond"],
		Parallel:         strings.ToUpper(d.Opts["parallel"]),
	}
	st, ok := ts.Type.(*ast.StructType)
	if !ok {
		return nil, x.errAt(gd.Pos(), "aggregate %s: declaration must be a struct whose fields are the direct arguments", goName)
	}
	for _, field := range st.Fields.List {
		typ := field.Type
		card := entity.Required
		if star, ok := typ.(*ast.StarExpr); ok {
			card = entity.Optional
			typ = star.X
		}
		ref, terr := x.typeRef(typ)
		if terr != nil {
			return nil, x.errAt(gd.Pos(), "aggregate %s: %v", goName, terr)
		}
		ref.Optional = card == entity.Optional
		for _, name := range field.Names {
			agg.Args = append(agg.Args, entity.Argument{
				Name:        inflect.Underscore(name.Name),
				Type:        ref,
				Cardinality: card,
			})
		}
	}
	return agg, nil
}

// typeRef resolves a non-pointer type expression to its identity token.
func (x *extractor) typeRef(typ ast.Expr) (entity.TypeRef, error) {
	switch t := typ.(type) {
	case *ast.Ident:
		if predeclared[t.Name] {
			return entity.TypeRef{ID: t.Name, Name: t.Name}, nil
		}
		return entity.TypeRef{ID: x.pkgPath + "." + t.Name, Name: t.Name}, nil
	case *ast.SelectorExpr:
		pkg, ok := t.X.(*ast.Ident)
		if !ok {
			return entity.TypeRef{}, fmt.Errorf("unsupported type expression %T", typ)
		}
		path, ok := x.imports[pkg.Name]
		if !ok {
			return entity.TypeRef{}, fmt.Errorf("unknown package %q in type reference", pkg.Name)
		}
		return entity.TypeRef{
			ID:   path + "." + t.Sel.Name,
			Name: pkg.Name + "." + t.Sel.Name,
		}, nil
	case *ast.ArrayType:
		if t.Len == nil {
			if id, ok := t.Elt.(*ast.Ident); ok && id.Name == "byte" {
				return entity.TypeRef{ID: "[]byte", Name: "[]byte"}, nil
			}
		}
		return entity.TypeRef{}, fmt.Errorf("unsupported array type; only []byte maps to a SQL type")
	default:
		return entity.TypeRef{}, fmt.Errorf("unsupported type expression %T", typ)
	}
}

var predeclared = map[string]bool{
	"bool": true, "string": true,
	"int8": true, "int16": true, "int32": true, "int64": true,
	"float32": true, "float64": true,
}

// iterSeqElem matches iter.Seq[T] and returns T.
func (x *extractor) iterSeqElem(typ ast.Expr) (ast.Expr, bool) {
	idx, ok := typ.(*ast.IndexExpr)
	if !ok {
		return nil, false
	}
	sel, ok := idx.X.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != "Seq" {
		return nil, false
	}
	pkg, ok := sel.X.(*ast.Ident)
	if !ok || x.imports[pkg.Name] != iterSeqReceiver {
		return nil, false
	}
	return idx.Index, true
}

func (x *extractor) isFcallType(typ ast.Expr, name string) bool {
	sel, ok := typ.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != name {
		return false
	}
	pkg, ok := sel.X.(*ast.Ident)
	return ok && x.imports[pkg.Name] == fcallPath
}

func (x *extractor) docDirectives(doc *ast.CommentGroup) ([]directive, error) {
	if doc == nil {
		return nil, nil
	}
	var dirs []directive
	for _, c := range doc.List {
		d, ok, err := parseDirective(c.Text)
		if err != nil {
			return nil, err
		}
		if ok {
			dirs = append(dirs, d)
		}
	}
	return dirs, nil
}

func (x *extractor) ident(pos token.Pos, name string) entity.Ident {
	p := x.fset.Position(pos)
	return entity.Ident{
		FullPath: x.pkgPath + "." + name,
		Module:   x.pkgPath,
		File:     p.Filename,
		Line:     p.Line,
	}
}

func (x *extractor) errAt(pos token.Pos, format string, args ...any) error {
	p := x.fset.Position(pos)
	return fmt.Errorf("pgmantle: %s:%d: %s", p.Filename, p.Line, fmt.Sprintf(format, args...))
}

// positioningRef classifies one requires=/before= item: dotted items
// reference a declaration path, bare items reference a raw-SQL block by
// name.
func positioningRef(ref string) entity.PositioningRef {
	if strings.Contains(ref, ".") {
		return entity.PositioningRef{Path: ref}
	}
	return entity.PositioningRef{Name: ref}
}

// attrsFromFlags keeps a fixed order so extraction output, and with it
// rendered SQL, stays deterministic.
func attrsFromFlags(flags map[string]bool) []entity.Attribute {
	var attrs []entity.Attribute
	for _, fa := range flagAttrs {
		if flags[fa.flag] {
			attrs = append(attrs, fa.attr)
		}
	}
	return attrs
}

var flagAttrs = []struct {
	flag string
	attr entity.Attribute
}{
	{"strict", entity.Strict},
	{"immutable", entity.Immutable},
	{"stable", entity.Stable},
	{"volatile", entity.Volatile},
	{"security_definer", entity.SecurityDefiner},
	{"parallel_safe", entity.ParallelSafe},
	{"parallel_restricted", entity.ParallelRestricted},
	{"parallel_unsafe", entity.ParallelUnsafe},
	{"no_guard", entity.NoGuard},
}
