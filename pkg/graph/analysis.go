package graph

import (
	"sort"

	gonumgraph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/gliv-dev/gliv/pkg/model"
)

// Layering places issues into dependency layers along blocking edges: an
// issue sits one layer after the deepest issue blocking it. Members of a
// blocking cycle share a layer.
type Layering struct {
	Layer  map[int]int
	Depth  int
	Cycles [][]int
}

// LayerByBlocking computes the layering of issues. Blocking edges with an
// endpoint outside issues, and self links, are ignored.
func LayerByBlocking(issues map[int]*model.Issue, blocking []model.Link) Layering {
	g := simple.NewDirectedGraph()
	for uid := range issues {
		g.AddNode(simple.Node(uid))
	}
	for _, l := range blocking {
		if l.Target == nil || l.Source.UID == l.Target.UID {
			continue
		}
		from, to := g.Node(int64(l.Source.UID)), g.Node(int64(l.Target.UID))
		if from == nil || to == nil {
			continue
		}
		g.SetEdge(g.NewEdge(from, to))
	}

	comp := make(map[int64]int)
	var cycles [][]int
	sccs := topo.TarjanSCC(g)
	for i, scc := range sccs {
		for _, n := range scc {
			comp[n.ID()] = i
		}
		if len(scc) > 1 {
			cycles = append(cycles, nodeUIDs(scc))
		}
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })

	compLayer := make(map[int]int, len(sccs))
	var layerOf func(c int) int
	layerOf = func(c int) int {
		if l, ok := compLayer[c]; ok {
			return l
		}
		layer := 0
		for _, n := range sccs[c] {
			preds := g.To(n.ID())
			for preds.Next() {
				pc := comp[preds.Node().ID()]
				if pc == c {
					continue
				}
				if l := layerOf(pc) + 1; l > layer {
					layer = l
				}
			}
		}
		compLayer[c] = layer
		return layer
	}

	res := Layering{Layer: make(map[int]int, len(issues)), Cycles: cycles}
	for uid := range issues {
		l := layerOf(comp[int64(uid)])
		res.Layer[uid] = l
		if l+1 > res.Depth {
			res.Depth = l + 1
		}
	}
	return res
}

func nodeUIDs(nodes []gonumgraph.Node) []int {
	out := make([]int, len(nodes))
	for i, n := range nodes {
		out[i] = int(n.ID())
	}
	sort.Ints(out)
	return out
}

// BlockCounts returns, per issue, how many issues it blocks and how many
// block it.
func BlockCounts(blocking []model.Link) (blocks, blockedBy map[int]int) {
	blocks = make(map[int]int)
	blockedBy = make(map[int]int)
	for _, l := range blocking {
		if l.Target == nil {
			continue
		}
		blocks[l.Source.UID]++
		blockedBy[l.Target.UID]++
	}
	return blocks, blockedBy
}
