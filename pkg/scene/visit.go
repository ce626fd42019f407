package scene

// Visitor receives nodes by variant.
type Visitor interface {
	VisitGroup(n *Node)
	VisitMesh(n *Node)
	VisitOverlay(n *Node)
}

// Accept dispatches a single node to the matching Visitor method.
func Accept(n *Node, v Visitor) {
	switch n.Kind {
	case KindGroup:
		v.VisitGroup(n)
	case KindMesh:
		v.VisitMesh(n)
	case KindOverlay:
		v.VisitOverlay(n)
	}
}

// Walk visits n and then every descendant, depth first.
//
// The children of a node are read after the node itself is visited, so
// children a visitor appends are walked as well. The graph must be acyclic.
func Walk(n *Node, v Visitor) {
	if n == nil {
		return
	}
	Accept(n, v)
	for i := 0; i < len(n.Children); i++ {
		Walk(n.Children[i], v)
	}
}

// VisitorFuncs adapts plain functions to a Visitor. Nil fields are skipped.
type VisitorFuncs struct {
	Group   func(*Node)
	Mesh    func(*Node)
	Overlay func(*Node)
}

func (f VisitorFuncs) VisitGroup(n *Node) {
	if f.Group != nil {
		f.Group(n)
	}
}

func (f VisitorFuncs) VisitMesh(n *Node) {
	if f.Mesh != nil {
		f.Mesh(n)
	}
}

func (f VisitorFuncs) VisitOverlay(n *Node) {
	if f.Overlay != nil {
		f.Overlay(n)
	}
}
