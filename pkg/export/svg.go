package export

import (
	"fmt"
	"html"
	"io"
	"strings"

	svg "github.com/ajstarks/svgo"

	"github.com/gliv-dev/gliv/pkg/graph"
	"github.com/gliv-dev/gliv/pkg/model"
)

// WriteSVG renders the view as SVG. Zoom scales the document size; the
// drawing itself keeps its coordinates through the viewBox.
func WriteSVG(w io.Writer, v *graph.View, zoom float64) error {
	lay := buildLayout(v)
	zoom = clampZoom(zoom)

	canvas := svg.New(w)
	canvas.Start(int(float64(lay.Width)*zoom), int(float64(lay.Height)*zoom),
		fmt.Sprintf(`viewBox="0 0 %d %d"`, lay.Width, lay.Height))
	canvas.Title(lay.Header)

	canvas.Def()
	for _, t := range []model.LinkType{model.LinkBlocks, model.LinkIsChildOf} {
		st := edgeStyles[t]
		canvas.Marker(st.Marker, 9, 5, 10, 10, `orient="auto"`, `markerUnits="userSpaceOnUse"`)
		canvas.Path("M0,0 L10,5 L0,10 z", "fill:"+st.Color)
		canvas.MarkerEnd()
	}
	canvas.DefEnd()

	canvas.Rect(0, 0, lay.Width, lay.Height, "fill:#ffffff")
	canvas.Text(margin, margin+14, lay.Header, "font-family:sans-serif;font-size:14px;fill:#333")

	canvas.Group(`class="edges"`)
	for _, e := range lay.Edges {
		st := edgeStyles[e.Type]
		x1, y1, x2, y2 := e.anchors()
		attrs := []string{svgStroke(st)}
		if st.Arrow {
			attrs = append(attrs, fmt.Sprintf(`marker-end="url(#%s)"`, st.Marker))
		}
		canvas.Line(x1, y1, x2, y2, attrs...)
	}
	canvas.Gend()

	canvas.Group(`class="issues"`)
	for _, n := range lay.Nodes {
		writeSVGNode(canvas, n)
	}
	canvas.Gend()

	if len(lay.Legend) > 0 {
		canvas.Group(`class="epics"`)
		for i, entry := range lay.Legend {
			y := lay.LegendY + i*legendRow
			canvas.Rect(margin, y+3, 60, 8, "fill:#e6e6e6")
			canvas.Rect(margin, y+3, int(60*entry.Epic.Progress()), 8, "fill:#59a14f")
			canvas.Text(margin+70, y+11, entry.Text, "font-family:sans-serif;font-size:11px;fill:#333")
		}
		canvas.Gend()
	}

	canvas.End()
	return nil
}

func writeSVGNode(canvas *svg.SVG, n *node) {
	fill := fmt.Sprintf("fill:%s;fill-opacity:0.9;stroke:#333;stroke-width:1", n.Color)
	if n.Issue.Status.IsClosed() {
		fill = fmt.Sprintf("fill:%s;fill-opacity:0.35;stroke:#999;stroke-width:1;stroke-dasharray:3,2", n.Color)
	}

	if n.Issue.URL != "" {
		canvas.Link(html.EscapeString(n.Issue.URL), n.Issue.Title)
	}
	canvas.Roundrect(n.X, n.Y, n.W, n.H, 6, 6, fill)
	if n.Compact {
		canvas.Text(n.centerX(), n.centerY()+4, n.Heading, "font-family:sans-serif;font-size:11px;text-anchor:middle;fill:#222")
	} else {
		canvas.Text(n.X+8, n.Y+16, n.Heading, "font-family:sans-serif;font-size:10px;font-weight:bold;fill:#222")
		canvas.Text(n.X+8, n.Y+32, n.Title, "font-family:sans-serif;font-size:11px;fill:#222")
	}
	if n.Issue.URL != "" {
		canvas.LinkEnd()
	}
}

func svgStroke(st edgeStyle) string {
	s := fmt.Sprintf("stroke:%s;stroke-width:%d;fill:none", st.Color, st.Width)
	if len(st.Dash) > 0 {
		parts := make([]string, len(st.Dash))
		for i, d := range st.Dash {
			parts[i] = fmt.Sprintf("%g", d)
		}
		s += ";stroke-dasharray:" + strings.Join(parts, ",")
	}
	return s
}

func clampZoom(zoom float64) float64 {
	switch {
	case zoom < MinZoom:
		return MinZoom
	case zoom > MaxZoom:
		return MaxZoom
	}
	return zoom
}
