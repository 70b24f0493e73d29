// Package bindgen generates Go declarations from the host server
// headers: struct types with their polymorphic node markers, rewritten
// OID constants with a closed enumeration, and guard-wrapped adapters
// for plain external functions. Generation fans out across target
// major versions and joins before the combined manifest is written.
package bindgen

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Field is one struct member. Type keeps the pointer stars, e.g.
// "Plan" or "PlanState*".
type Field struct {
	Name string
	Type string
}

// Struct is one parsed struct declaration.
type Struct struct {
	Name   string
	Fields []Field
}

// Typedef is a simple `typedef T Name;` alias.
type Typedef struct {
	Name       string
	Underlying string
}

// EnumConst is one enumerator with its resolved value.
type EnumConst struct {
	Name  string
	Value int64
}

// Enum is one parsed enum declaration.
type Enum struct {
	Name   string
	Consts []EnumConst
}

// Define is one object-like integer macro.
type Define struct {
	Name  string
	Value uint32
}

// Param is one function parameter.
type Param struct {
	Name string
	Type string
}

// Func is one external function prototype.
type Func struct {
	Name   string
	Ret    string
	Params []Param
}

// Declarations is the scan result for one header set, in source order.
type Declarations struct {
	Structs  []Struct
	Typedefs []Typedef
	Enums    []Enum
	Defines  []Define
	Funcs    []Func
}

var (
	commentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineRe    = regexp.MustCompile(`//[^\n]*`)
	defineRe  = regexp.MustCompile(`(?m)^\s*#\s*define\s+(\w+)\s+\(?(0[xX][0-9a-fA-F]+|\d+)\)?\s*$`)
	structRe  = regexp.MustCompile(`(?s)(typedef\s+)?struct\s+(\w+)?\s*\{([^{}]*)\}\s*(\w+)?\s*;`)
	enumRe    = regexp.MustCompile(`(?s)(typedef\s+)?enum\s+(\w+)?\s*\{([^{}]*)\}\s*(\w+)?\s*;`)
	typedefRe = regexp.MustCompile(`(?m)^\s*typedef\s+((?:unsigned\s+|signed\s+|const\s+|struct\s+)*\w+(?:\s*\*)*)\s+(\w+)\s*;`)
	funcRe    = regexp.MustCompile(`(?m)^\s*(?:extern\s+)?((?:unsigned\s+|const\s+|struct\s+)*\w+(?:\s*\*+)?)\s+(\w+)\s*\(([^()]*)\)\s*;`)
	fieldRe   = regexp.MustCompile(`^((?:unsigned\s+|const\s+|struct\s+)*\w+)\s*(\**)\s*(\w+)\s*(\[[^\]]*\])?$`)
)

// Scan parses preprocessed header text covering the C subset the
// server headers use. Full C parsing is out of scope; declarations
// the scanner cannot read are skipped, not failed, except where noted.
func Scan(src string) (*Declarations, error) {
	src = commentRe.ReplaceAllString(src, " ")
	src = lineRe.ReplaceAllString(src, " ")

	decls := &Declarations{}
	for _, m := range defineRe.FindAllStringSubmatch(src, -1) {
		v, err := strconv.ParseUint(m[2], 0, 32)
		if err != nil {
			continue
		}
		decls.Defines = append(decls.Defines, Define{Name: m[1], Value: uint32(v)})
	}

	// Directive lines are spent; drop them so they cannot confuse the
	// declaration patterns.
	src = regexp.MustCompile(`(?m)^\s*#[^\n]*$`).ReplaceAllString(src, "")

	for _, m := range structRe.FindAllStringSubmatch(src, -1) {
		name := m[4]
		if name == "" {
			name = m[2]
		}
		if name == "" {
			continue
		}
		st := Struct{Name: name}
		fields, err := parseFields(m[3])
		if err != nil {
			return nil, fmt.Errorf("pgmantle: struct %s: %w", name, err)
		}
		st.Fields = fields
		decls.Structs = append(decls.Structs, st)
	}

	for _, m := range enumRe.FindAllStringSubmatch(src, -1) {
		name := m[4]
		if name == "" {
			name = m[2]
		}
		if name == "" {
			continue
		}
		e := Enum{Name: name}
		next := int64(0)
		for _, item := range strings.Split(m[3], ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			cname, expr, has := strings.Cut(item, "=")
			cname = strings.TrimSpace(cname)
			if has {
				v, err := strconv.ParseInt(strings.TrimSpace(expr), 0, 64)
				if err != nil {
					return nil, fmt.Errorf("pgmantle: enum %s: enumerator %s has a non-literal value", name, cname)
				}
				next = v
			}
			e.Consts = append(e.Consts, EnumConst{Name: cname, Value: next})
			next++
		}
		decls.Enums = append(decls.Enums, e)
	}

	// Struct and enum bodies are spent too; simple typedefs and
	// prototypes live outside braces in the subset.
	flat := structRe.ReplaceAllString(src, "")
	flat = enumRe.ReplaceAllString(flat, "")

	for _, m := range typedefRe.FindAllStringSubmatch(flat, -1) {
		decls.Typedefs = append(decls.Typedefs, Typedef{
			Name:       m[2],
			Underlying: normalizeType(m[1], ""),
		})
	}

	for _, m := range funcRe.FindAllStringSubmatch(flat, -1) {
		if m[2] == "typedef" || strings.Contains(m[1], "typedef") {
			continue
		}
		fn := Func{Name: m[2], Ret: normalizeType(m[1], "")}
		params, err := parseParams(m[3])
		if err != nil {
			return nil, fmt.Errorf("pgmantle: function %s: %w", m[2], err)
		}
		fn.Params = params
		decls.Funcs = append(decls.Funcs, fn)
	}
	return decls, nil
}

func parseFields(body string) ([]Field, error) {
	var fields []Field
	for _, item := range strings.Split(body, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		m := fieldRe.FindStringSubmatch(item)
		if m == nil {
			// Function-pointer members and other exotica fall outside
			// the subset; they do not affect the inheritance graph.
			continue
		}
		fields = append(fields, Field{
			Name: m[3],
			Type: normalizeType(m[1], m[2]),
		})
	}
	return fields, nil
}

func parseParams(list string) ([]Param, error) {
	list = strings.TrimSpace(list)
	if list == "" || list == "void" {
		return nil, nil
	}
	var params []Param
	for i, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "..." {
			return nil, fmt.Errorf("variadic prototypes are outside the supported subset")
		}
		m := fieldRe.FindStringSubmatch(item)
		if m == nil {
			return nil, fmt.Errorf("cannot read parameter %q", item)
		}
		name := m[3]
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}
		params = append(params, Param{Name: name, Type: normalizeType(m[1], m[2])})
	}
	return params, nil
}

// normalizeType collapses whitespace and moves pointer stars to a
// trailing suffix, e.g. "struct Plan" + "*" -> "Plan*".
func normalizeType(base, stars string) string {
	base = strings.TrimSpace(base)
	base = strings.TrimPrefix(base, "const ")
	base = strings.TrimPrefix(base, "struct ")
	base = strings.Join(strings.Fields(base), " ")
	for strings.HasSuffix(base, "*") {
		base = strings.TrimSpace(strings.TrimSuffix(base, "*"))
		stars += "*"
	}
	return base + stars
}
