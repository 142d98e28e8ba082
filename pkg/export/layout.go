package export

import (
	"fmt"
	"sort"

	"github.com/mattn/go-runewidth"

	"github.com/gliv-dev/gliv/pkg/graph"
	"github.com/gliv-dev/gliv/pkg/model"
)

// Layout metrics in unzoomed pixels.
const (
	margin       = 20
	headerHeight = 34
	nodeWidth    = 190
	compactWidth = 52
	nodeHeight   = 42
	columnGap    = 70
	rowGap       = 14
	legendRow    = 18
	titleCells   = 28
)

var projectPalette = []string{
	"#4e79a7", "#f28e2b", "#59a14f", "#e15759",
	"#76b7b2", "#edc948", "#b07aa1", "#ff9da7",
	"#9c755f", "#bab0ac",
}

type edgeStyle struct {
	Color  string
	Width  int
	Dash   []float64
	Arrow  bool
	Marker string
}

var edgeStyles = map[model.LinkType]edgeStyle{
	model.LinkBlocks:    {Color: "#d62728", Width: 2, Arrow: true, Marker: "arrow-blocks"},
	model.LinkRelatesTo: {Color: "#8c8c8c", Width: 1, Dash: []float64{6, 4}},
	model.LinkIsChildOf: {Color: "#1f77b4", Width: 1, Dash: []float64{2, 3}, Arrow: true, Marker: "arrow-child"},
}

type node struct {
	Issue   *model.Issue
	X, Y    int
	W, H    int
	Compact bool
	Color   string
	Heading string
	Title   string
}

func (n *node) centerX() int { return n.X + n.W/2 }
func (n *node) centerY() int { return n.Y + n.H/2 }

type edge struct {
	From, To *node
	Type     model.LinkType
}

// anchors picks the box sides an edge connects: facing sides when the nodes
// sit in different columns, top and bottom otherwise.
func (e edge) anchors() (x1, y1, x2, y2 int) {
	from, to := e.From, e.To
	switch {
	case to.X >= from.X+from.W:
		return from.X + from.W, from.centerY(), to.X, to.centerY()
	case to.X+to.W <= from.X:
		return from.X, from.centerY(), to.X + to.W, to.centerY()
	case to.Y >= from.Y:
		return from.centerX(), from.Y + from.H, to.centerX(), to.Y
	default:
		return from.centerX(), from.Y, to.centerX(), to.Y + to.H
	}
}

type legendEntry struct {
	Epic *model.Epic
	Text string
}

type layout struct {
	Width, Height int
	Header        string
	Nodes         []*node
	Edges         []edge
	Legend        []legendEntry
	LegendY       int
}

// buildLayout arranges the visible issues in columns by blocking depth and
// collects the edges between them.
func buildLayout(v *graph.View) *layout {
	layering := graph.LayerByBlocking(v.Issues, v.Blocking)
	colors := projectColors(v.Projects)

	columns := make([][]*model.Issue, layering.Depth)
	for _, issue := range v.SortedIssues() {
		l := layering.Layer[issue.UID]
		columns[l] = append(columns[l], issue)
	}

	lay := &layout{Header: v.Summary()}
	byUID := make(map[int]*node, len(v.Issues))
	maxRows := 0
	for col, issues := range columns {
		if len(issues) > maxRows {
			maxRows = len(issues)
		}
		for row, issue := range issues {
			n := &node{
				Issue:   issue,
				X:       margin + col*(nodeWidth+columnGap),
				Y:       margin + headerHeight + row*(nodeHeight+rowGap),
				W:       nodeWidth,
				H:       nodeHeight,
				Color:   colors[issue.ProjectID],
				Heading: nodeHeading(v, issue),
				Title:   runewidth.Truncate(issue.Title, titleCells, "…"),
			}
			if v.ExcludeClosedIssues && issue.Status.IsClosed() {
				n.Compact = true
				n.W = compactWidth
				n.Heading = fmt.Sprintf("#%d", issue.IID)
				n.Title = ""
			}
			lay.Nodes = append(lay.Nodes, n)
			byUID[issue.UID] = n
		}
	}

	for _, links := range [][]model.Link{v.Parent, v.Related, v.Blocking} {
		for _, l := range v.VisibleEdges(links) {
			if l.Source.UID == l.Target.UID {
				continue
			}
			lay.Edges = append(lay.Edges, edge{From: byUID[l.Source.UID], To: byUID[l.Target.UID], Type: l.Type})
		}
	}

	lay.Legend = legendFor(v)

	cols := layering.Depth
	if cols == 0 {
		cols = 1
	}
	lay.Width = 2*margin + cols*nodeWidth + (cols-1)*columnGap
	lay.LegendY = margin + headerHeight + maxRows*(nodeHeight+rowGap) + margin
	lay.Height = lay.LegendY + len(lay.Legend)*legendRow + margin
	return lay
}

func nodeHeading(v *graph.View, issue *model.Issue) string {
	name := v.Projects[issue.ProjectID]
	if name == "" {
		name = fmt.Sprintf("%d", issue.ProjectID)
	}
	return runewidth.Truncate(fmt.Sprintf("%s #%d", name, issue.IID), titleCells, "…")
}

func projectColors(projects map[int]string) map[int]string {
	ids := make([]int, 0, len(projects))
	for id := range projects {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	colors := make(map[int]string, len(ids))
	for i, id := range ids {
		colors[id] = projectPalette[i%len(projectPalette)]
	}
	return colors
}

// legendFor lists the epics referenced by visible issues.
func legendFor(v *graph.View) []legendEntry {
	var out []legendEntry
	for _, e := range v.ReferencedEpics() {
		out = append(out, legendEntry{
			Epic: e,
			Text: fmt.Sprintf("&%d %s  %d/%d closed", e.IID, runewidth.Truncate(e.Title, 48, "…"), e.ClosedCount, e.TotalCount),
		})
	}
	return out
}
