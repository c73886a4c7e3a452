package forceatlas2

import "math"

// maxForce caps per-node displacement when sizes are adjusted.
const maxForce = 10

// Metadata summarizes one iteration.
type Metadata struct {
	GlobalSwinging float64 `json:"globalSwinging"`
	GlobalTraction float64 `json:"globalTraction"`

	// Moving is the number of nodes that are not fixed.
	Moving int `json:"moving"`
}

// AverageTraction returns GlobalTraction per moving node, or 0 when every
// node is fixed.
func (m Metadata) AverageTraction() float64 {
	if m.Moving == 0 {
		return 0
	}
	return m.GlobalTraction / float64(m.Moving)
}

// Iterate runs one ForceAtlas2 step in place on nodes. Buffers must satisfy
// [CheckBuffers]. Fixed nodes accumulate forces but are never moved. Work is
// done in index order, so equal inputs give bit-identical outputs.
func Iterate(s Settings, nodes, edges []float64) Metadata {
	order := NodeCount(nodes)

	for o := 0; o < len(nodes); o += PPN {
		nodes[o+NodeOldDX] = nodes[o+NodeDX]
		nodes[o+NodeOldDY] = nodes[o+NodeDY]
		nodes[o+NodeDX] = 0
		nodes[o+NodeDY] = 0
	}

	outboundCompensation := 1.0
	if s.OutboundAttractionDistribution && order > 0 {
		sum := 0.0
		for o := 0; o < len(nodes); o += PPN {
			sum += nodes[o+NodeMass]
		}
		outboundCompensation = sum / float64(order)
	}

	if s.BarnesHutOptimize {
		repulseBarnesHut(s, nodes)
	} else {
		repulse(s, nodes)
	}
	gravitate(s, nodes)
	attract(s, nodes, edges, outboundCompensation)
	return apply(s, nodes)
}

func repulsionFactor(s Settings, xDist, yDist, m1, m2, s1, s2 float64) float64 {
	coef := s.ScalingRatio
	if s.AdjustSizes {
		d := math.Sqrt(xDist*xDist+yDist*yDist) - s1 - s2
		switch {
		case d > 0:
			return coef * m1 * m2 / d / d
		case d < 0:
			return 100 * coef * m1 * m2
		}
		return 0
	}
	d2 := xDist*xDist + yDist*yDist
	if d2 > 0 {
		return coef * m1 * m2 / d2
	}
	return 0
}

func repulse(s Settings, nodes []float64) {
	for n1 := 0; n1 < len(nodes); n1 += PPN {
		for n2 := 0; n2 < n1; n2 += PPN {
			xDist := nodes[n1+NodeX] - nodes[n2+NodeX]
			yDist := nodes[n1+NodeY] - nodes[n2+NodeY]
			f := repulsionFactor(s, xDist, yDist,
				nodes[n1+NodeMass], nodes[n2+NodeMass],
				nodes[n1+NodeSize], nodes[n2+NodeSize])
			if f == 0 {
				continue
			}
			nodes[n1+NodeDX] += xDist * f
			nodes[n1+NodeDY] += yDist * f
			nodes[n2+NodeDX] -= xDist * f
			nodes[n2+NodeDY] -= yDist * f
		}
	}
}

func repulseBarnesHut(s Settings, nodes []float64) {
	t := buildQuadtree(nodes)
	for n := 0; n < len(nodes); n += PPN {
		t.accumulate(s, nodes, n)
	}
}

func gravitate(s Settings, nodes []float64) {
	if s.Gravity == 0 || s.ScalingRatio == 0 {
		return
	}
	g := s.Gravity / s.ScalingRatio
	coef := s.ScalingRatio
	for n := 0; n < len(nodes); n += PPN {
		x, y := nodes[n+NodeX], nodes[n+NodeY]
		mass := nodes[n+NodeMass]
		var f float64
		if s.StrongGravityMode {
			f = coef * mass * g
		} else if d := math.Sqrt(x*x + y*y); d > 0 {
			f = coef * mass * g / d
		}
		nodes[n+NodeDX] -= x * f
		nodes[n+NodeDY] -= y * f
	}
}

func attract(s Settings, nodes, edges []float64, outboundCompensation float64) {
	coef := 1.0
	if s.OutboundAttractionDistribution {
		coef = outboundCompensation
	}
	for e := 0; e < len(edges); e += PPE {
		n1 := int(edges[e+EdgeSource]) * PPN
		n2 := int(edges[e+EdgeTarget]) * PPN
		if n1 == n2 {
			continue
		}
		ewc := math.Pow(edges[e+EdgeWeight], s.EdgeWeightInfluence)

		xDist := nodes[n1+NodeX] - nodes[n2+NodeX]
		yDist := nodes[n1+NodeY] - nodes[n2+NodeY]
		d := math.Sqrt(xDist*xDist + yDist*yDist)
		if s.AdjustSizes {
			d -= nodes[n1+NodeSize] + nodes[n2+NodeSize]
		} else if !s.LinLogMode {
			d = 1
		}
		if d <= 0 {
			continue
		}

		f := -coef * ewc
		if s.LinLogMode {
			f *= math.Log(1+d) / d
		}
		if s.OutboundAttractionDistribution {
			f /= nodes[n1+NodeMass]
		}

		nodes[n1+NodeDX] += xDist * f
		nodes[n1+NodeDY] += yDist * f
		nodes[n2+NodeDX] -= xDist * f
		nodes[n2+NodeDY] -= yDist * f
	}
}

func apply(s Settings, nodes []float64) Metadata {
	var m Metadata
	for n := 0; n < len(nodes); n += PPN {
		if nodes[n+NodeFixed] != 0 {
			continue
		}
		dx, dy := nodes[n+NodeDX], nodes[n+NodeDY]
		if s.AdjustSizes {
			if f := math.Sqrt(dx*dx + dy*dy); f > maxForce {
				dx = dx * maxForce / f
				dy = dy * maxForce / f
				nodes[n+NodeDX], nodes[n+NodeDY] = dx, dy
			}
		}
		oldDX, oldDY := nodes[n+NodeOldDX], nodes[n+NodeOldDY]

		swinging := nodes[n+NodeMass] * math.Sqrt((oldDX-dx)*(oldDX-dx)+(oldDY-dy)*(oldDY-dy))
		traction := math.Sqrt((oldDX+dx)*(oldDX+dx)+(oldDY+dy)*(oldDY+dy)) / 2

		var speed float64
		if s.AdjustSizes {
			speed = 0.1 * math.Log(1+traction) / (1 + math.Sqrt(swinging))
		} else {
			speed = nodes[n+NodeConvergence] * math.Log(1+traction) / (1 + math.Sqrt(swinging))
			nodes[n+NodeConvergence] = math.Min(1, math.Sqrt(speed*(dx*dx+dy*dy)/(1+math.Sqrt(swinging))))
		}

		nodes[n+NodeX] += dx * speed / s.SlowDown
		nodes[n+NodeY] += dy * speed / s.SlowDown

		m.GlobalSwinging += swinging
		m.GlobalTraction += traction
		m.Moving++
	}
	return m
}
