package bindgen

import (
	"sort"
	"strings"
)

// nodeTagType is the polymorphic tag type; structs whose first field
// has this type are inheritance roots.
const nodeTagType = "NodeTag"

// StructNode is one struct in the inheritance graph. Parent and
// Children are indices into the graph's node slice; index references
// keep the graph free of ownership cycles.
type StructNode struct {
	Struct   Struct
	Parent   int
	Children []int
}

// StructGraph is the first-field inheritance graph over a header's
// structs: a struct whose first field is a value of another struct
// type is that struct's child.
type StructGraph struct {
	Nodes  []StructNode
	byName map[string]int
}

// NewStructGraph builds the graph with a single linear scan plus a
// name-table lookup.
func NewStructGraph(structs []Struct) *StructGraph {
	g := &StructGraph{
		Nodes:  make([]StructNode, len(structs)),
		byName: make(map[string]int, len(structs)),
	}
	for i, st := range structs {
		g.Nodes[i] = StructNode{Struct: st, Parent: -1}
		g.byName[st.Name] = i
	}
	for i, node := range g.Nodes {
		first, ok := firstFieldType(node.Struct)
		if !ok {
			continue
		}
		parent, ok := g.byName[first]
		if !ok || parent == i {
			continue
		}
		g.Nodes[i].Parent = parent
		g.Nodes[parent].Children = append(g.Nodes[parent].Children, i)
	}
	return g
}

// Lookup returns the node index for a struct name.
func (g *StructGraph) Lookup(name string) (int, bool) {
	i, ok := g.byName[name]
	return i, ok
}

// Roots returns the indices of structs whose first field is the
// polymorphic tag itself.
func (g *StructGraph) Roots() []int {
	var roots []int
	for i, node := range g.Nodes {
		if first, ok := firstFieldType(node.Struct); ok && first == nodeTagType {
			roots = append(roots, i)
		}
	}
	return roots
}

// NodeClosure returns the names of every struct reachable from any
// root, sorted. The visited set guards against revisits; the graph may
// be arbitrarily deep but is finite.
func (g *StructGraph) NodeClosure() []string {
	visited := make(map[int]bool)
	for _, root := range g.Roots() {
		g.dfs(root, visited)
	}
	names := make([]string, 0, len(visited))
	for i := range visited {
		names = append(names, g.Nodes[i].Struct.Name)
	}
	sort.Strings(names)
	return names
}

func (g *StructGraph) dfs(i int, visited map[int]bool) {
	if visited[i] {
		return
	}
	visited[i] = true
	for _, child := range g.Nodes[i].Children {
		g.dfs(child, visited)
	}
}

// firstFieldType returns the type of the first member when it is a
// plain value type; pointer members do not embed their target.
func firstFieldType(st Struct) (string, bool) {
	if len(st.Fields) == 0 {
		return "", false
	}
	t := st.Fields[0].Type
	if strings.HasSuffix(t, "*") {
		return "", false
	}
	return t, true
}
