package multigraph

// ChangeKind classifies a [Change].
type ChangeKind int

const (
	NodesAdded ChangeKind = iota
	NodesRemoved
	EdgesAdded
	EdgesRemoved
	// VisibilityChanged is emitted by collapse, expand and toggle.
	VisibilityChanged
	// Rewired is emitted by transitive closure and pruning, which add
	// synthetic edges and remove nodes in one step.
	Rewired
	FixedChanged
	PositionsChanged
)

var changeKindNames = [...]string{
	NodesAdded:        "nodesAdded",
	NodesRemoved:      "nodesRemoved",
	EdgesAdded:        "edgesAdded",
	EdgesRemoved:      "edgesRemoved",
	VisibilityChanged: "visibilityChanged",
	Rewired:           "rewired",
	FixedChanged:      "fixedChanged",
	PositionsChanged:  "positionsChanged",
}

func (k ChangeKind) String() string {
	if k >= 0 && int(k) < len(changeKindNames) {
		return changeKindNames[k]
	}
	return "unknown"
}

// Change describes one completed mutation of a [Multigraph].
type Change struct {
	Kind  ChangeKind
	Nodes []string  // affected node IDs
	Edges []EdgeKey // affected edge keys

	// Visible reports whether the visible subset (visible nodes and edges
	// between them) changed. Layout contexts must be rebuilt when it did.
	Visible bool
}

// Structural reports whether a running layout must restart to observe the
// change.
func (c Change) Structural() bool {
	return c.Visible
}
