package forceatlas2

import (
	"errors"
	"math"

	herrors "github.com/cafour/helveg-sub001/pkg/errors"
)

var (
	// ErrInvalidSettings is wrapped by every [Settings.Validate] failure.
	ErrInvalidSettings = errors.New("invalid layout settings")

	// ErrBufferLength is returned by [CheckBuffers] when a buffer is not a
	// whole number of records.
	ErrBufferLength = errors.New("buffer length is not a multiple of the record size")

	// ErrEdgeEndpoint is returned by [CheckBuffers] when an edge references a
	// node index outside the node buffer.
	ErrEdgeEndpoint = errors.New("edge endpoint out of range")
)

// Node buffer layout: one record of PPN float64 values per node.
const (
	NodeX = iota
	NodeY
	NodeDX
	NodeDY
	NodeOldDX
	NodeOldDY
	NodeMass
	NodeConvergence
	NodeSize
	NodeFixed

	// PPN is the number of properties per node record.
	PPN
)

// Edge buffer layout: one record of PPE float64 values per edge. Source and
// target hold node indices, not buffer offsets.
const (
	EdgeSource = iota
	EdgeTarget
	EdgeWeight

	// PPE is the number of properties per edge record.
	PPE
)

// NodeCount returns the number of node records in buf.
func NodeCount(buf []float64) int { return len(buf) / PPN }

// EdgeCount returns the number of edge records in buf.
func EdgeCount(buf []float64) int { return len(buf) / PPE }

// NewNodeBuffer allocates a node buffer for n nodes.
func NewNodeBuffer(n int) []float64 { return make([]float64, n*PPN) }

// NewEdgeBuffer allocates an edge buffer for m edges.
func NewEdgeBuffer(m int) []float64 { return make([]float64, m*PPE) }

// SetNode fills node record i. Forces are cleared and convergence reset.
func SetNode(buf []float64, i int, x, y, mass, size float64, fixed bool) {
	o := i * PPN
	clear(buf[o : o+PPN])
	buf[o+NodeX] = x
	buf[o+NodeY] = y
	buf[o+NodeMass] = mass
	buf[o+NodeConvergence] = 1
	buf[o+NodeSize] = size
	if fixed {
		buf[o+NodeFixed] = 1
	}
}

// SetEdge fills edge record j.
func SetEdge(buf []float64, j, src, dst int, weight float64) {
	o := j * PPE
	buf[o+EdgeSource] = float64(src)
	buf[o+EdgeTarget] = float64(dst)
	buf[o+EdgeWeight] = weight
}

// Position returns the position stored in node record i.
func Position(buf []float64, i int) (x, y float64) {
	o := i * PPN
	return buf[o+NodeX], buf[o+NodeY]
}

// SetPosition overwrites the position stored in node record i.
func SetPosition(buf []float64, i int, x, y float64) {
	o := i * PPN
	buf[o+NodeX] = x
	buf[o+NodeY] = y
}

// IsFixed reports whether node record i is pinned.
func IsFixed(buf []float64, i int) bool {
	return buf[i*PPN+NodeFixed] != 0
}

// CheckBuffers verifies that both buffers hold whole records and that every
// edge references an existing node. [Iterate] assumes buffers that pass.
func CheckBuffers(nodes, edges []float64) error {
	if len(nodes)%PPN != 0 {
		return herrors.Wrap(herrors.ErrCodeProtocolViolation, ErrBufferLength, "node buffer has %d values, want a multiple of %d", len(nodes), PPN)
	}
	if len(edges)%PPE != 0 {
		return herrors.Wrap(herrors.ErrCodeProtocolViolation, ErrBufferLength, "edge buffer has %d values, want a multiple of %d", len(edges), PPE)
	}
	order := NodeCount(nodes)
	for j := 0; j < len(edges); j += PPE {
		for _, v := range [2]float64{edges[j+EdgeSource], edges[j+EdgeTarget]} {
			if v < 0 || v >= float64(order) || v != math.Trunc(v) {
				return herrors.Wrap(herrors.ErrCodeProtocolViolation, ErrEdgeEndpoint, "edge %d references node %v of %d", j/PPE, v, order)
			}
		}
	}
	return nil
}
