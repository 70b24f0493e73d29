package sqlgen

import (
	"fmt"
	"strings"

	"github.com/pgmantle/pgmantle/entity"
)

// Dot renders the graph in Graphviz DOT form, mainly for debugging
// ordering problems. Node identifiers and edge labels mirror the ones
// used in error messages.
func (g *Graph) Dot() string {
	var b strings.Builder
	b.WriteString("digraph {\n")
	for idx, node := range g.nodes {
		shape := "box"
		switch node.(type) {
		case *entity.Schema:
			shape = "tab"
		case *entity.CompositeType, *entity.EnumType:
			shape = "oval"
		case *entity.BuiltinType:
			shape = "plain"
		case *entity.RawSQL:
			shape = "signature"
		case *entity.ExtensionRoot:
			shape = "cylinder"
		}
		fmt.Fprintf(&b, "\tn%d [label=%q, shape=%q]\n", idx, identify(node), shape)
	}
	for _, e := range g.edges {
		color := "gray"
		if e.rel != RequiredBy {
			color = "black"
		}
		fmt.Fprintf(&b, "\tn%d -> n%d [color=%q]\n", e.from, e.to, color)
	}
	b.WriteString("}\n")
	return b.String()
}
