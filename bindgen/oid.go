package bindgen

import (
	"sort"
	"strings"
)

// OidConst is one integer macro recognized as an object identifier by
// the naming convention.
type OidConst struct {
	Name  string
	Value uint32
}

// isOidName is the naming heuristic: catalog object identifiers end in
// OID or RelationId, plus the template database constant.
func isOidName(name string) bool {
	return strings.HasSuffix(name, "OID") ||
		strings.HasSuffix(name, "RelationId") ||
		name == "TemplateDbOid"
}

// extractOids selects and sorts the constants to rewrite. Sorting by
// name keeps the emitted enumeration stable across runs.
func extractOids(defines []Define) []OidConst {
	var oids []OidConst
	for _, def := range defines {
		if isOidName(def.Name) {
			oids = append(oids, OidConst{Name: def.Name, Value: def.Value})
		}
	}
	sort.Slice(oids, func(i, j int) bool { return oids[i].Name < oids[j].Name })
	return oids
}

// ambiguousValues returns the set of values claimed by more than one
// rewritten constant; FromRaw cannot pick a name for these.
func ambiguousValues(oids []OidConst) map[uint32]bool {
	seen := make(map[uint32]int)
	for _, o := range oids {
		seen[o.Value]++
	}
	amb := make(map[uint32]bool)
	for v, n := range seen {
		if n > 1 {
			amb[v] = true
		}
	}
	return amb
}
