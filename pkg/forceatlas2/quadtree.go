package forceatlas2

import "math"

// maxDepth bounds subdivision so coincident nodes cannot recurse forever.
// Nodes that still share a cell at this depth are merged into one body.
const maxDepth = 48

// region is a quadtree cell stored in an arena. Leaves hold at most one
// node unless they sit at maxDepth.
type region struct {
	cx, cy float64 // cell center
	width  float64

	mass         float64
	massX, massY float64 // center of mass

	node  int     // node buffer offset of a leaf's body, -1 if none
	size  float64 // size of that body
	child int     // arena index of the first of four children, -1 for leaves
}

type quadtree struct {
	regions []region
}

func buildQuadtree(nodes []float64) *quadtree {
	t := &quadtree{regions: make([]region, 0, 2*NodeCount(nodes)+1)}
	if len(nodes) == 0 {
		return t
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for n := 0; n < len(nodes); n += PPN {
		minX = math.Min(minX, nodes[n+NodeX])
		maxX = math.Max(maxX, nodes[n+NodeX])
		minY = math.Min(minY, nodes[n+NodeY])
		maxY = math.Max(maxY, nodes[n+NodeY])
	}
	width := math.Max(maxX-minX, maxY-minY)
	if width <= 0 {
		width = 1
	}
	t.regions = append(t.regions, region{
		cx: (minX + maxX) / 2, cy: (minY + maxY) / 2,
		width: width * 1.0001,
		node:  -1, child: -1,
	})

	for n := 0; n < len(nodes); n += PPN {
		t.insert(n, nodes[n+NodeX], nodes[n+NodeY], nodes[n+NodeMass], nodes[n+NodeSize])
	}
	return t
}

func (t *quadtree) insert(n int, x, y, mass, size float64) {
	r := 0
	for depth := 0; ; depth++ {
		reg := &t.regions[r]
		if reg.child < 0 && reg.node < 0 {
			reg.node, reg.size = n, size
			reg.mass, reg.massX, reg.massY = mass, x, y
			return
		}
		if reg.child < 0 {
			if depth >= maxDepth {
				reg.addMass(x, y, mass)
				return
			}
			t.subdivide(r)
			reg = &t.regions[r]
		}
		reg.addMass(x, y, mass)
		r = reg.quadrant(x, y)
	}
}

// subdivide splits leaf r into four children and pushes its body down.
func (t *quadtree) subdivide(r int) {
	first := len(t.regions)
	parent := t.regions[r]
	q := parent.width / 4
	for i := 0; i < 4; i++ {
		cx, cy := parent.cx-q, parent.cy-q
		if i&1 != 0 {
			cx = parent.cx + q
		}
		if i&2 != 0 {
			cy = parent.cy + q
		}
		t.regions = append(t.regions, region{cx: cx, cy: cy, width: parent.width / 2, node: -1, child: -1})
	}

	reg := &t.regions[r]
	reg.child = first
	c := &t.regions[reg.quadrant(parent.massX, parent.massY)]
	c.node, c.size = parent.node, parent.size
	c.mass, c.massX, c.massY = parent.mass, parent.massX, parent.massY
	reg.node = -1
}

func (reg *region) addMass(x, y, mass float64) {
	total := reg.mass + mass
	if total > 0 {
		reg.massX = (reg.massX*reg.mass + x*mass) / total
		reg.massY = (reg.massY*reg.mass + y*mass) / total
	}
	reg.mass = total
}

func (reg *region) quadrant(x, y float64) int {
	i := 0
	if x >= reg.cx {
		i |= 1
	}
	if y >= reg.cy {
		i |= 2
	}
	return reg.child + i
}

// accumulate adds the repulsion felt by node n to its force. Cells whose
// width over distance is below theta act as a single body at their center
// of mass.
func (t *quadtree) accumulate(s Settings, nodes []float64, n int) {
	if len(t.regions) == 0 {
		return
	}
	x, y := nodes[n+NodeX], nodes[n+NodeY]
	mass, size := nodes[n+NodeMass], nodes[n+NodeSize]

	stack := []int{0}
	for len(stack) > 0 {
		r := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		reg := &t.regions[r]
		if reg.mass == 0 {
			continue
		}

		xDist, yDist := x-reg.massX, y-reg.massY
		if reg.child < 0 {
			if reg.node == n {
				continue
			}
			f := repulsionFactor(s, xDist, yDist, mass, reg.mass, size, reg.size)
			nodes[n+NodeDX] += xDist * f
			nodes[n+NodeDY] += yDist * f
			continue
		}

		d := math.Sqrt(xDist*xDist + yDist*yDist)
		if d > 0 && reg.width/d < s.BarnesHutTheta {
			f := repulsionFactor(s, xDist, yDist, mass, reg.mass, size, 0)
			nodes[n+NodeDX] += xDist * f
			nodes[n+NodeDY] += yDist * f
			continue
		}
		for i := 3; i >= 0; i-- {
			stack = append(stack, reg.child+i)
		}
	}
}
