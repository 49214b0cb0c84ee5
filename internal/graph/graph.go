package graph

// NodeAttrs classifies a node.
type NodeAttrs struct {
	// Input is set for files that were scanned, as opposed to libraries
	// that only appear as dependencies.
	Input bool

	// Unparseable is set for scanned files that were not ELF images.
	Unparseable bool
}

// merge returns the union of both attribute sets.
func (a NodeAttrs) merge(b NodeAttrs) NodeAttrs {
	return NodeAttrs{
		Input:       a.Input || b.Input,
		Unparseable: a.Unparseable || b.Unparseable,
	}
}

// EdgeKind classifies a dependency edge.
type EdgeKind int

const (
	// RuntimeOnly marks a library named in read-only data but not linked.
	RuntimeOnly EdgeKind = iota
	// Linked marks a DT_NEEDED dependency.
	Linked
)

// String returns the kind name used in reports.
func (k EdgeKind) String() string {
	if k == Linked {
		return "linked"
	}
	return "runtime"
}

// Node is a node with its attributes.
type Node struct {
	ID    string
	Attrs NodeAttrs
}

// Edge is a directed edge between two node IDs.
type Edge struct {
	From string
	To   string
	Kind EdgeKind
}

// Sink receives nodes and edges. Renderers implement Sink.
type Sink interface {
	AddNode(id string, attrs NodeAttrs)
	AddEdge(from, to string, kind EdgeKind)
}

type edgeKey struct {
	from, to string
}

// Graph is a directed graph with insertion-ordered nodes and edges.
// The zero value is not usable; create graphs with New.
//
// Graph implements Sink with merge semantics: adding an existing node ORs
// its attributes, and adding an existing edge keeps Linked over RuntimeOnly.
type Graph struct {
	nodes     map[string]int
	nodeList  []Node
	edges     map[edgeKey]int
	edgeList  []Edge
	onUpgrade func(from, to string)
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]int),
		edges: make(map[edgeKey]int),
	}
}

// AddNode adds id or merges attrs into the existing node.
func (g *Graph) AddNode(id string, attrs NodeAttrs) {
	if i, ok := g.nodes[id]; ok {
		g.nodeList[i].Attrs = g.nodeList[i].Attrs.merge(attrs)
		return
	}
	g.nodes[id] = len(g.nodeList)
	g.nodeList = append(g.nodeList, Node{ID: id, Attrs: attrs})
}

// AddEdge adds an edge, creating missing endpoints with zero attributes.
// An existing RuntimeOnly edge is upgraded when kind is Linked.
func (g *Graph) AddEdge(from, to string, kind EdgeKind) {
	g.AddNode(from, NodeAttrs{})
	g.AddNode(to, NodeAttrs{})

	key := edgeKey{from: from, to: to}
	if i, ok := g.edges[key]; ok {
		if kind == Linked && g.edgeList[i].Kind != Linked {
			g.edgeList[i].Kind = Linked
			if g.onUpgrade != nil {
				g.onUpgrade(from, to)
			}
		}
		return
	}
	g.edges[key] = len(g.edgeList)
	g.edgeList = append(g.edgeList, Edge{From: from, To: to, Kind: kind})
}

// Node returns the attributes of id and whether it exists.
func (g *Graph) Node(id string) (NodeAttrs, bool) {
	i, ok := g.nodes[id]
	if !ok {
		return NodeAttrs{}, false
	}
	return g.nodeList[i].Attrs, true
}

// Edge returns the kind of the edge from -> to and whether it exists.
func (g *Graph) Edge(from, to string) (EdgeKind, bool) {
	i, ok := g.edges[edgeKey{from: from, to: to}]
	if !ok {
		return RuntimeOnly, false
	}
	return g.edgeList[i].Kind, true
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	nodes := make([]Node, len(g.nodeList))
	copy(nodes, g.nodeList)
	return nodes
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, len(g.edgeList))
	copy(edges, g.edgeList)
	return edges
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodeList)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	return len(g.edgeList)
}

// Emit sends every node, then every edge, to sink in insertion order.
func (g *Graph) Emit(sink Sink) {
	for _, n := range g.nodeList {
		sink.AddNode(n.ID, n.Attrs)
	}
	for _, e := range g.edgeList {
		sink.AddEdge(e.From, e.To, e.Kind)
	}
}
