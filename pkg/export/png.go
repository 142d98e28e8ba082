package export

import (
	"io"
	"math"

	"git.sr.ht/~sbinet/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/gliv-dev/gliv/pkg/graph"
)

// WritePNG renders the view as a PNG image scaled by zoom.
func WritePNG(w io.Writer, v *graph.View, zoom float64) error {
	lay := buildLayout(v)
	zoom = clampZoom(zoom)

	dc := gg.NewContext(int(float64(lay.Width)*zoom), int(float64(lay.Height)*zoom))
	dc.Scale(zoom, zoom)
	dc.SetHexColor("#ffffff")
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	dc.SetHexColor("#333333")
	dc.DrawString(lay.Header, margin, margin+14)

	for _, e := range lay.Edges {
		st := edgeStyles[e.Type]
		x1, y1, x2, y2 := e.anchors()
		dc.SetHexColor(st.Color)
		dc.SetLineWidth(float64(st.Width))
		dc.SetDash(st.Dash...)
		dc.DrawLine(float64(x1), float64(y1), float64(x2), float64(y2))
		dc.Stroke()
		dc.SetDash()
		if st.Arrow {
			drawArrowHead(dc, float64(x1), float64(y1), float64(x2), float64(y2))
		}
	}

	for _, n := range lay.Nodes {
		closed := n.Issue.Status.IsClosed()
		dc.DrawRoundedRectangle(float64(n.X), float64(n.Y), float64(n.W), float64(n.H), 6)
		dc.SetHexColor(n.Color)
		if closed {
			dc.SetRGBA(0.85, 0.85, 0.85, 1)
		}
		dc.FillPreserve()
		dc.SetLineWidth(1)
		dc.SetHexColor("#333333")
		if closed {
			dc.SetHexColor("#999999")
		}
		dc.Stroke()

		dc.SetHexColor("#222222")
		if n.Compact {
			dc.DrawStringAnchored(n.Heading, float64(n.centerX()), float64(n.centerY()), 0.5, 0.35)
			continue
		}
		dc.DrawString(n.Heading, float64(n.X+8), float64(n.Y+16))
		dc.DrawString(n.Title, float64(n.X+8), float64(n.Y+32))
	}

	for i, entry := range lay.Legend {
		y := float64(lay.LegendY + i*legendRow)
		dc.SetHexColor("#e6e6e6")
		dc.DrawRectangle(margin, y+3, 60, 8)
		dc.Fill()
		dc.SetHexColor("#59a14f")
		dc.DrawRectangle(margin, y+3, 60*entry.Epic.Progress(), 8)
		dc.Fill()
		dc.SetHexColor("#333333")
		dc.DrawString(entry.Text, margin+70, y+11)
	}

	return dc.EncodePNG(w)
}

func drawArrowHead(dc *gg.Context, x1, y1, x2, y2 float64) {
	const size = 8
	angle := math.Atan2(y2-y1, x2-x1)
	dc.MoveTo(x2, y2)
	dc.LineTo(x2-size*math.Cos(angle-math.Pi/7), y2-size*math.Sin(angle-math.Pi/7))
	dc.LineTo(x2-size*math.Cos(angle+math.Pi/7), y2-size*math.Sin(angle+math.Pi/7))
	dc.ClosePath()
	dc.Fill()
}
