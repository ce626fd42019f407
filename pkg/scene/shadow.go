package scene

// PropagateShadows marks every mesh in the subgraph rooted at n, n included,
// as both casting and receiving shadows. Groups and overlays are left as
// they are but their children are still visited.
func PropagateShadows(n *Node) {
	Walk(n, shadowFlagger{})
}

type shadowFlagger struct{}

func (shadowFlagger) VisitGroup(*Node)   {}
func (shadowFlagger) VisitOverlay(*Node) {}

func (shadowFlagger) VisitMesh(n *Node) {
	n.CastShadow = true
	n.ReceiveShadow = true
}
