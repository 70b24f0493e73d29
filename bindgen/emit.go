package bindgen

import (
	"fmt"
	"strings"

	"github.com/dave/jennifer/jen"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const fcallPkg = "github.com/pgmantle/pgmantle/fcall"

// rawPrefix names the bodyless extern declaration backing a guarded
// adapter.
const rawPrefix = "__pg_"

var titleCaser = cases.Title(language.English, cases.NoLower)

// emitBindings renders the pg<N>.go file: typedefs, enums, struct
// types, node markers for the inheritance closure and guard-wrapped
// function adapters.
func emitBindings(pkgPath, pkgName string, major int, decls *Declarations, graph *StructGraph) (*jen.File, error) {
	f := jen.NewFilePathName(pkgPath, pkgName)
	f.HeaderComment(fmt.Sprintf("Code generated by pgmantle bindgen for PostgreSQL %d. DO NOT EDIT.", major))

	f.Comment("Node is implemented by every struct reachable from a tagged root.")
	f.Type().Id("Node").Interface(
		jen.Id("IsNode").Params(),
	)

	for _, td := range decls.Typedefs {
		if builtinTypeName(td.Name) {
			// Aliases like int32 already have a direct Go spelling.
			continue
		}
		f.Type().Id(td.Name).Add(goType(td.Underlying))
	}

	for _, e := range decls.Enums {
		f.Type().Id(e.Name).Int32()
		f.Const().DefsFunc(func(cg *jen.Group) {
			for _, c := range e.Consts {
				cg.Id(c.Name).Id(e.Name).Op("=").Lit(int(c.Value))
			}
		})
	}

	for _, def := range decls.Defines {
		if isOidName(def.Name) {
			// Rewritten into the companion oids file.
			continue
		}
		f.Const().Id(def.Name).Op("=").Lit(int(def.Value))
	}

	nodeSet := make(map[string]bool)
	for _, name := range graph.NodeClosure() {
		nodeSet[name] = true
	}
	for _, st := range decls.Structs {
		f.Type().Id(st.Name).StructFunc(func(sg *jen.Group) {
			for _, field := range st.Fields {
				sg.Id(exportName(field.Name)).Add(goType(field.Type))
			}
		})
		if nodeSet[st.Name] {
			f.Func().Params(jen.Op("*").Id(st.Name)).Id("IsNode").Params().Block()
			f.Func().Params(jen.Id("s").Op("*").Id(st.Name)).Id("String").Params().String().Block(
				jen.Return(jen.Lit(st.Name)),
			)
		}
	}

	for _, fn := range decls.Funcs {
		emitExtern(f, fn)
	}
	return f, nil
}

// emitExtern declares the raw external symbol and its guarded adapter:
// the adapter installs an unwind checkpoint, calls through, restores
// it on the way out and re-raises a caught error jump as a managed
// unwind.
func emitExtern(f *jen.File, fn Func) {
	params := make([]jen.Code, 0, len(fn.Params))
	args := make([]jen.Code, 0, len(fn.Params))
	for _, p := range fn.Params {
		params = append(params, jen.Id(p.Name).Add(goType(p.Type)))
		args = append(args, jen.Id(p.Name))
	}
	void := fn.Ret == "void"

	raw := f.Func().Id(rawPrefix + fn.Name).Params(params...)
	if !void {
		raw.Add(goType(fn.Ret))
	}

	adapter := f.Func().Id(fn.Name).Params(params...)
	if !void {
		adapter.Params(jen.Id("out").Add(goType(fn.Ret)))
	}
	adapter.BlockFunc(func(bg *jen.Group) {
		call := jen.Id(rawPrefix + fn.Name).Call(args...)
		var guarded jen.Code
		if void {
			guarded = jen.Func().Params().Block(call)
		} else {
			guarded = jen.Func().Params().Block(jen.Id("out").Op("=").Add(call))
		}
		bg.If(
			jen.Id("err").Op(":=").Qual(fcallPkg, "GuardErr").Call(guarded),
			jen.Id("err").Op("!=").Nil(),
		).Block(jen.Panic(jen.Id("err")))
		if !void {
			bg.Return()
		}
	})
}

// emitOids renders the pg<N>_oids.go file: the nominal Oid type, the
// rewritten constants and the closed FromRaw enumeration.
func emitOids(pkgPath, pkgName string, major int, oids []OidConst) (*jen.File, error) {
	f := jen.NewFilePathName(pkgPath, pkgName)
	f.HeaderComment(fmt.Sprintf("Code generated by pgmantle bindgen for PostgreSQL %d. DO NOT EDIT.", major))

	f.Comment("Oid is a nominal object identifier, not a bare integer.")
	f.Type().Id("Oid").Uint32()

	f.Var().Defs(
		jen.Id("ErrOidNotFound").Op("=").Qual("errors", "New").Call(jen.Lit("oid is not a recognized builtin")),
		jen.Id("ErrOidAmbiguous").Op("=").Qual("errors", "New").Call(jen.Lit("oid value maps to more than one builtin")),
	)

	f.Const().DefsFunc(func(cg *jen.Group) {
		for _, o := range oids {
			cg.Id(o.Name).Id("Oid").Op("=").Lit(int(o.Value))
		}
	})

	amb := ambiguousValues(oids)
	f.Comment("OidFromRaw is total over exactly the rewritten constants.")
	f.Func().Id("OidFromRaw").Params(jen.Id("v").Uint32()).Params(jen.Id("Oid"), jen.Error()).Block(
		jen.Switch(jen.Id("v")).BlockFunc(func(sg *jen.Group) {
			sg.Case(jen.Lit(0)).Block(jen.Return(jen.Lit(0), jen.Id("ErrOidNotFound")))
			emitted := make(map[uint32]bool)
			for _, o := range oids {
				if emitted[o.Value] {
					continue
				}
				emitted[o.Value] = true
				if amb[o.Value] {
					sg.Case(jen.Lit(int(o.Value))).Block(jen.Return(jen.Lit(0), jen.Id("ErrOidAmbiguous")))
					continue
				}
				sg.Case(jen.Lit(int(o.Value))).Block(jen.Return(jen.Id(o.Name), jen.Nil()))
			}
			sg.Default().Block(jen.Return(jen.Lit(0), jen.Id("ErrOidNotFound")))
		}),
	)
	return f, nil
}

var builtinTypeNames = map[string]bool{
	"bool": true, "char": true, "short": true, "int": true, "long": true,
	"float": true, "double": true, "void": true,
	"int8": true, "int16": true, "int32": true, "int64": true,
	"uint8": true, "uint16": true, "uint32": true, "uint64": true,
	"int2": true, "int4": true, "float4": true, "float8": true,
	"Size": true, "size_t": true, "uintptr": true,
}

func builtinTypeName(name string) bool { return builtinTypeNames[name] }

// goType maps a normalized C type to a Go type expression.
func goType(cType string) jen.Code {
	stars := 0
	for strings.HasSuffix(cType, "*") {
		cType = strings.TrimSuffix(cType, "*")
		stars++
	}
	cType = strings.TrimSpace(cType)

	var base *jen.Statement
	switch cType {
	case "void":
		if stars > 0 {
			base = jen.Qual("unsafe", "Pointer")
			stars--
		} else {
			base = jen.Struct()
		}
	case "char":
		base = jen.Byte()
	case "bool", "_Bool":
		base = jen.Bool()
	case "short", "int16", "int2":
		base = jen.Int16()
	case "int", "int32", "int4":
		base = jen.Int32()
	case "long", "int64", "int8_t", "int64_t":
		base = jen.Int64()
	case "unsigned char", "uint8", "uint8_t":
		base = jen.Uint8()
	case "unsigned short", "uint16", "uint16_t":
		base = jen.Uint16()
	case "unsigned", "unsigned int", "uint32", "uint32_t":
		base = jen.Uint32()
	case "unsigned long", "uint64", "uint64_t", "Size", "size_t":
		base = jen.Uintptr()
	case "float", "float4":
		base = jen.Float32()
	case "double", "float8":
		base = jen.Float64()
	default:
		base = jen.Id(cType)
	}
	for range stars {
		base = jen.Op("*").Add(base)
	}
	return base
}

// exportName uppercases the leading segment of a C field name so the
// generated struct field is exported.
func exportName(name string) string {
	if name == "" {
		return name
	}
	head, tail, ok := strings.Cut(name, "_")
	if !ok {
		return titleCaser.String(name[:1]) + name[1:]
	}
	return titleCaser.String(head[:1]) + head[1:] + "_" + tail
}
