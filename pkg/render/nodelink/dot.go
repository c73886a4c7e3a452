package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/cafour/helveg-sub001/pkg/multigraph"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Relations restricts the drawn edges. Empty draws every relation.
	Relations []string

	// Scale converts layout units to points. Zero means 1.
	Scale float64

	// Labels prints node labels next to the nodes.
	Labels bool
}

// palette colours relations in registration order.
var palette = []string{"#4e79a7", "#f28e2b", "#e15759", "#76b7b2", "#59a14f", "#edc948", "#b07aa1", "#9c755f"}

// ToDOT converts the visible part of g to Graphviz DOT with every node pinned
// at its layout position, so that neato draws the layout instead of
// computing its own.
//
// Fixed nodes are drawn with a double outline and collapsed nodes with a
// grey fill.
func ToDOT(g *multigraph.Multigraph, opts Options) string {
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}
	colors := make(map[string]string)
	for i, r := range g.Relations() {
		colors[r.Name] = palette[i%len(palette)]
	}

	view := g.Visible(opts.Relations)

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  outputorder=edgesfirst;\n")
	buf.WriteString("  splines=false;\n")
	buf.WriteString("  node [shape=circle, style=filled, fillcolor=white, fixedsize=true, fontsize=10];\n")
	buf.WriteString("  edge [arrowsize=0.5];\n")
	buf.WriteString("\n")

	for _, n := range view.Nodes {
		attrs := fmtAttrs(n.Node, scale, opts.Labels)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range view.Edges {
		color := colors[e.Relation]
		if color == "" {
			color = "black"
		}
		style := ""
		if e.Synthetic {
			style = ", style=dashed"
		}
		fmt.Fprintf(&buf, "  %q -> %q [color=%q%s];\n", e.Src, e.Dst, color, style)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtAttrs(n multigraph.Node, scale float64, labels bool) []string {
	label := ""
	if labels {
		label = n.Label
	}
	attrs := []string{
		fmt.Sprintf("label=%q", label),
		fmt.Sprintf("pos=\"%s,%s!\"", ftoa(n.X*scale), ftoa(n.Y*scale)),
		fmt.Sprintf("width=%s", ftoa(0.1*n.Size)),
	}
	if n.Fixed {
		attrs = append(attrs, "peripheries=2")
	}
	if n.Collapsed {
		attrs = append(attrs, "fillcolor=lightgrey")
	}
	return attrs
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// RenderSVG renders a DOT graph produced by ToDOT to SVG with the neato
// engine, which honours pinned positions.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the fixed-size svg header with a scalable one.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(header))
}
