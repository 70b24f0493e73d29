package bindgen

import "regexp"

// The denylist is declarative policy, applied before graph
// construction. Types here get hand-written counterparts in fcall and
// must not be duplicated; the functions reach into the host's own
// error-transfer machinery and may never be called from managed code
// without the guard the generator itself installs.

var blockedTypes = map[string]bool{
	"Datum":         true,
	"NullableDatum": true,
	"Oid":           true,
}

var blockedMacros = map[string]bool{
	"CONFIGURE_ARGS": true,
	"HEAP_HASOID":    true,
}

var blockedMacroPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^_*(?:HAVE|have)_`),
	regexp.MustCompile(`^_[A-Z_]+_H$`),
	regexp.MustCompile(`^__`),
}

var blockedFuncPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^varsize_any$`),
	regexp.MustCompile(`^(?:raw_)?(?:expression|query|query_or_expression)_tree_walker$`),
	regexp.MustCompile(`^planstate_tree_walker$`),
	regexp.MustCompile(`^range_table_(?:entry_)?walker$`),
	regexp.MustCompile(`(?:set|long)jmp$`),
	regexp.MustCompile(`^pg_re_throw$`),
	regexp.MustCompile(`^err(?:start|code|msg|detail|context_msg|hint|finish)$`),
	regexp.MustCompile(`^(?:pg_|p)v(?:sn?|f)?printf$`),
	regexp.MustCompile(`^appendStringInfoVA$`),
}

func blockedType(name string) bool { return blockedTypes[name] }

func blockedMacro(name string) bool {
	if blockedMacros[name] {
		return true
	}
	for _, re := range blockedMacroPatterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

func blockedFunc(name string) bool {
	for _, re := range blockedFuncPatterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// applyBlocklist drops denied declarations in place.
func applyBlocklist(d *Declarations) {
	structs := d.Structs[:0]
	for _, st := range d.Structs {
		if !blockedType(st.Name) {
			structs = append(structs, st)
		}
	}
	d.Structs = structs

	typedefs := d.Typedefs[:0]
	for _, td := range d.Typedefs {
		if !blockedType(td.Name) {
			typedefs = append(typedefs, td)
		}
	}
	d.Typedefs = typedefs

	defines := d.Defines[:0]
	for _, def := range d.Defines {
		if !blockedMacro(def.Name) {
			defines = append(defines, def)
		}
	}
	d.Defines = defines

	funcs := d.Funcs[:0]
	for _, fn := range d.Funcs {
		if !blockedFunc(fn.Name) {
			funcs = append(funcs, fn)
		}
	}
	d.Funcs = funcs
}
