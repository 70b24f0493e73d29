// Package gen generates the call-boundary wrapper code for an
// extension: one exported `<name>_wrapper` adapter per annotated
// function, plus the symbol manifest the build tooling consumes.
package gen

import (
	"fmt"
	"strings"

	"github.com/dave/jennifer/jen"
	"gopkg.in/yaml.v3"

	"github.com/pgmantle/pgmantle/entity"
)

const fcallPkg = "github.com/pgmantle/pgmantle/fcall"

// Generator emits wrapper files for one extension package.
type Generator struct {
	// pkgPath is the extension package import path; generated wrappers
	// live in that package so they can call the annotated functions
	// directly.
	pkgPath string
	pkgName string
}

// New returns a generator targeting the given package.
func New(pkgPath, pkgName string) *Generator {
	return &Generator{pkgPath: pkgPath, pkgName: pkgName}
}

// Wrappers builds the wrapper source file for every function entity in
// the list, in order. Non-function entities are ignored.
func (g *Generator) Wrappers(ents []entity.Entity) (*jen.File, error) {
	f := jen.NewFilePathName(g.pkgPath, g.pkgName)
	f.HeaderComment("Code generated by pgmantle. DO NOT EDIT.")
	for _, e := range ents {
		fn, ok := e.(*entity.Function)
		if !ok {
			continue
		}
		if err := g.wrapper(f, fn); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Render returns the wrapper file as source text.
func (g *Generator) Render(ents []entity.Entity) (string, error) {
	f, err := g.Wrappers(ents)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := f.Render(&sb); err != nil {
		return "", fmt.Errorf("pgmantle: rendering wrappers: %w", err)
	}
	return sb.String(), nil
}

func (g *Generator) wrapper(f *jen.File, fn *entity.Function) error {
	body, err := g.body(fn)
	if err != nil {
		return fmt.Errorf("pgmantle: function %s: %w", fn.FullPath, err)
	}

	f.Comment("//export " + fn.WrapperSymbol())
	f.Func().Id(fn.WrapperSymbol()).Params(
		jen.Id("fci").Op("*").Qual(fcallPkg, "CallInfo"),
	).Qual(fcallPkg, "Datum").BlockFunc(func(grp *jen.Group) {
		if fn.HasAttr(entity.NoGuard) {
			for _, stmt := range body {
				grp.Add(stmt)
			}
			return
		}
		grp.List(jen.Id("out"), jen.Id("err")).Op(":=").Qual(fcallPkg, "Guard").Call(
			jen.Func().Params().Qual(fcallPkg, "Datum").Block(body...),
		)
		grp.If(jen.Id("err").Op("!=").Nil()).Block(jen.Panic(jen.Id("err")))
		grp.Return(jen.Id("out"))
	})
	return nil
}

// body builds the wrapper statements for one function, without the
// guard framing.
func (g *Generator) body(fn *entity.Function) ([]jen.Code, error) {
	switch fn.Return.Shape {
	case entity.ReturnSetOf, entity.ReturnTable:
		return g.srfBody(fn)
	default:
		return g.plainBody(fn)
	}
}

// plainBody decodes each argument in declaration order, invokes the
// function and encodes the scalar-shaped result.
func (g *Generator) plainBody(fn *entity.Function) ([]jen.Code, error) {
	var stmts []jen.Code
	callArgs, decode, err := g.arguments(fn)
	if err != nil {
		return nil, err
	}
	stmts = append(stmts, decode...)

	call := jen.Id(fn.GoName).Call(callArgs...)
	switch fn.Return.Shape {
	case entity.ReturnNone:
		if fn.ReturnsError {
			stmts = append(stmts, jen.If(
				jen.Id("cerr").Op(":=").Add(call),
				jen.Id("cerr").Op("!=").Nil(),
			).Block(g.fatalCall(fn)))
		} else {
			stmts = append(stmts, call)
		}
		stmts = append(stmts, jen.Return(jen.Qual(fcallPkg, "ReturnNullDatum").Call(jen.Id("fci"))))
		return stmts, nil
	case entity.ReturnTrigger:
		stmts = append(stmts, g.callResult(fn, call)...)
		stmts = append(stmts, jen.Return(jen.Qual(fcallPkg, "ReturnTrigger").Call(jen.Id("fci"), jen.Id("v"))))
		return stmts, nil
	default:
		stmts = append(stmts, g.callResult(fn, call)...)
		encoder := "Return"
		if fn.Return.Optional {
			encoder = "OptReturn"
		}
		stmts = append(stmts, jen.Return(jen.Qual(fcallPkg, encoder).Call(jen.Id("fci"), jen.Id("v"))))
		return stmts, nil
	}
}

// callResult invokes the function into v, aborting the call on a
// returned error.
func (g *Generator) callResult(fn *entity.Function, call *jen.Statement) []jen.Code {
	if !fn.ReturnsError {
		return []jen.Code{jen.Id("v").Op(":=").Add(call)}
	}
	return []jen.Code{
		jen.List(jen.Id("v"), jen.Id("cerr")).Op(":=").Add(call),
		jen.If(jen.Id("cerr").Op("!=").Nil()).Block(g.fatalCall(fn)),
	}
}

func (g *Generator) fatalCall(fn *entity.Function) jen.Code {
	return jen.Qual(fcallPkg, "Fatalf").Call(jen.Lit(fn.Name+": %v"), jen.Id("cerr"))
}

// srfBody drives the continuation protocol: the setup closure decodes
// the arguments inside the multi-call region and produces the
// iterator; the encode closure turns one element into a result.
func (g *Generator) srfBody(fn *entity.Function) ([]jen.Code, error) {
	elem, err := g.elemType(fn)
	if err != nil {
		return nil, err
	}
	setup, err := g.setupClosure(fn, elem)
	if err != nil {
		return nil, err
	}

	var stmts []jen.Code
	if fn.Return.Shape == entity.ReturnSetOf {
		encode, err := g.setOfEncoder(fn)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts,
			jen.List(jen.Id("d"), jen.Id("more")).Op(":=").Qual(fcallPkg, "SetOfNext").Call(jen.Id("fci"), setup, encode),
			jen.Id("fci").Dot("NoMoreRows").Op("=").Op("!").Id("more"),
			jen.If(jen.Op("!").Id("more")).Block(
				jen.Return(jen.Qual(fcallPkg, "ReturnNullDatum").Call(jen.Id("fci"))),
			),
			jen.Return(jen.Id("d")),
		)
		return stmts, nil
	}

	encode, err := g.tableEncoder(fn)
	if err != nil {
		return nil, err
	}
	stmts = append(stmts,
		jen.List(jen.Id("row"), jen.Id("more")).Op(":=").Qual(fcallPkg, "TableNext").Call(jen.Id("fci"), setup, encode),
		jen.Id("fci").Dot("NoMoreRows").Op("=").Op("!").Id("more"),
		jen.If(jen.Op("!").Id("more")).Block(
			jen.Return(jen.Qual(fcallPkg, "ReturnNullDatum").Call(jen.Id("fci"))),
		),
		jen.Return(jen.Qual(fcallPkg, "ReturnRow").Call(jen.Id("fci"), jen.Id("row"))),
	)
	return stmts, nil
}

func (g *Generator) setupClosure(fn *entity.Function, elem jen.Code) (jen.Code, error) {
	callArgs, decode, err := g.arguments(fn)
	if err != nil {
		return nil, err
	}
	call := jen.Id(fn.GoName).Call(callArgs...)

	return jen.Func().Params(
		jen.Id("mc").Op("*").Qual(fcallPkg, "Region"),
	).Params(jen.Qual("iter", "Seq").Index(elem), jen.Bool()).BlockFunc(func(sg *jen.Group) {
		for _, stmt := range decode {
			sg.Add(stmt)
		}
		if fn.ReturnsError {
			sg.List(jen.Id("seq"), jen.Id("cerr")).Op(":=").Add(call)
			sg.If(jen.Id("cerr").Op("!=").Nil()).Block(g.fatalCall(fn))
		} else {
			sg.Id("seq").Op(":=").Add(call)
		}
		if fn.Return.Optional {
			sg.If(jen.Id("seq").Op("==").Nil()).Block(
				jen.Return(jen.Nil(), jen.False()),
			)
			sg.Return(jen.Op("*").Id("seq"), jen.True())
			return
		}
		sg.Return(jen.Id("seq"), jen.True())
	}), nil
}

func (g *Generator) setOfEncoder(fn *entity.Function) (jen.Code, error) {
	elemRef := fn.Return.Type
	base, err := typeCode(elemRef.ID)
	if err != nil {
		return nil, err
	}
	var elem jen.Code = base
	if elemRef.Optional {
		elem = jen.Op("*").Add(base)
	}
	return jen.Func().Params(
		jen.Id("r").Op("*").Qual(fcallPkg, "Region"),
		jen.Id("v").Add(elem),
	).Qual(fcallPkg, "Datum").BlockFunc(func(eg *jen.Group) {
		if elemRef.Optional {
			eg.If(jen.Id("v").Op("==").Nil()).Block(
				jen.Return(jen.Qual(fcallPkg, "NullDatum")),
			)
			eg.Return(jen.Qual(fcallPkg, "DatumOf").Call(jen.Id("r"), jen.Op("*").Id("v")))
			return
		}
		eg.Return(jen.Qual(fcallPkg, "DatumOf").Call(jen.Id("r"), jen.Id("v")))
	}), nil
}

// tableEncoder decomposes the row struct positionally; an absent
// optional column becomes a null slot while its siblings stay set.
func (g *Generator) tableEncoder(fn *entity.Function) (jen.Code, error) {
	rowType, err := typeCode(fn.Return.RowType.ID)
	if err != nil {
		return nil, err
	}
	return jen.Func().Params(
		jen.Id("r").Op("*").Qual(fcallPkg, "Region"),
		jen.Id("v").Add(rowType),
	).Qual(fcallPkg, "Row").BlockFunc(func(eg *jen.Group) {
		eg.Id("row").Op(":=").Make(jen.Qual(fcallPkg, "Row"), jen.Lit(len(fn.Return.Columns)))
		for i, col := range fn.Return.Columns {
			if col.Type.Optional {
				eg.If(jen.Id("v").Dot(col.GoName).Op("==").Nil()).Block(
					jen.Id("row").Index(jen.Lit(i)).Dot("IsNull").Op("=").True(),
				).Else().Block(
					jen.Id("row").Index(jen.Lit(i)).Dot("Value").Op("=").
						Qual(fcallPkg, "DatumOf").Call(jen.Id("r"), jen.Op("*").Id("v").Dot(col.GoName)),
				)
				continue
			}
			eg.Id("row").Index(jen.Lit(i)).Dot("Value").Op("=").
				Qual(fcallPkg, "DatumOf").Call(jen.Id("r"), jen.Id("v").Dot(col.GoName))
		}
		eg.Return(jen.Id("row"))
	}), nil
}

func (g *Generator) elemType(fn *entity.Function) (jen.Code, error) {
	if fn.Return.Shape == entity.ReturnTable {
		return typeCode(fn.Return.RowType.ID)
	}
	base, err := typeCode(fn.Return.Type.ID)
	if err != nil {
		return nil, err
	}
	if fn.Return.Type.Optional {
		return jen.Op("*").Add(base), nil
	}
	return base, nil
}

// arguments builds the decode statements and the call argument list.
// Slot numbering skips the handle argument, which the executor does
// not pass.
func (g *Generator) arguments(fn *entity.Function) (callArgs []jen.Code, decode []jen.Code, err error) {
	slot := 0
	for i, arg := range fn.Args {
		v := fmt.Sprintf("v%d", i)
		switch {
		case arg.Handle:
			callArgs = append(callArgs, jen.Id("fci"))
			continue
		case arg.Raw:
			decode = append(decode, jen.Id(v).Op(":=").
				Qual(fcallPkg, "RawArg").Call(jen.Id("fci"), jen.Lit(slot)).Dot("Value"))
			callArgs = append(callArgs, jen.Id(v))
		case arg.Cardinality == entity.Variadic:
			t, terr := typeCode(arg.Type.ID)
			if terr != nil {
				return nil, nil, terr
			}
			decode = append(decode, jen.Id(v).Op(":=").
				Qual(fcallPkg, "VarArg").Index(t).Call(jen.Id("fci"), jen.Lit(slot), jen.Lit(arg.Name)))
			callArgs = append(callArgs, jen.Id(v).Op("..."))
		case arg.Cardinality == entity.Optional:
			t, terr := typeCode(arg.Type.ID)
			if terr != nil {
				return nil, nil, terr
			}
			decode = append(decode, jen.Id(v).Op(":=").
				Qual(fcallPkg, "OptArg").Index(t).Call(jen.Id("fci"), jen.Lit(slot), jen.Lit(arg.Name)))
			callArgs = append(callArgs, jen.Id(v))
		default:
			t, terr := typeCode(arg.Type.ID)
			if terr != nil {
				return nil, nil, terr
			}
			decode = append(decode, jen.Id(v).Op(":=").
				Qual(fcallPkg, "Arg").Index(t).Call(jen.Id("fci"), jen.Lit(slot), jen.Lit(arg.Name)))
			callArgs = append(callArgs, jen.Id(v))
		}
		slot++
	}
	return callArgs, decode, nil
}

// typeCode turns an identity token back into a type expression.
func typeCode(id string) (*jen.Statement, error) {
	if id == "" {
		return nil, fmt.Errorf("empty type reference")
	}
	if id == "[]byte" {
		return jen.Index().Byte(), nil
	}
	if i := strings.LastIndex(id, "."); i >= 0 {
		return jen.Qual(id[:i], id[i+1:]), nil
	}
	return jen.Id(id), nil
}

// ManifestEntry maps one exported wrapper symbol to its Go function.
type ManifestEntry struct {
	Symbol   string `yaml:"symbol"`
	Function string `yaml:"function"`
	SQLName  string `yaml:"sql_name"`
	Shape    string `yaml:"shape"`
}

// Manifest returns the YAML symbol manifest for the function entities
// in the list.
func Manifest(ents []entity.Entity) ([]byte, error) {
	var entries []ManifestEntry
	for _, e := range ents {
		fn, ok := e.(*entity.Function)
		if !ok {
			continue
		}
		entries = append(entries, ManifestEntry{
			Symbol:   fn.WrapperSymbol(),
			Function: fn.FullPath,
			SQLName:  fn.Name,
			Shape:    shapeName(fn.Return.Shape),
		})
	}
	return yaml.Marshal(map[string]any{"wrappers": entries})
}

func shapeName(s entity.ReturnShape) string {
	switch s {
	case entity.ReturnNone:
		return "void"
	case entity.ReturnScalar:
		return "scalar"
	case entity.ReturnSetOf:
		return "setof"
	case entity.ReturnTable:
		return "table"
	case entity.ReturnTrigger:
		return "trigger"
	default:
		return "unknown"
	}
}
