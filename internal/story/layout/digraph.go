package layout

import (
	"github.com/cory-johannsen/storyweave/internal/story/graph"
	"github.com/cory-johannsen/storyweave/internal/story/storylet"
)

// digraph is an index-based view of the storylet graph. Node indices follow
// input order and out lists follow edge order.
type digraph struct {
	ids   []string
	out   [][]int
	in    []int
	edges []graph.Edge
}

type edgeKey struct{ from, to int }

func newDigraph(storylets []*storylet.Storylet, edges []graph.Edge) *digraph {
	g := &digraph{
		ids:   make([]string, len(storylets)),
		out:   make([][]int, len(storylets)),
		in:    make([]int, len(storylets)),
		edges: []graph.Edge{},
	}
	index := make(map[string]int, len(storylets))
	for i, s := range storylets {
		g.ids[i] = s.ID
		index[s.ID] = i
	}
	for _, e := range edges {
		from, okFrom := index[e.From]
		to, okTo := index[e.To]
		if !okFrom || !okTo {
			continue
		}
		g.edges = append(g.edges, e)
		g.out[from] = append(g.out[from], to)
		if from != to {
			g.in[to]++
		}
	}
	return g
}

// backEdges runs a DFS from every root, then from each node still unreached,
// in input order, and returns the edges that close a cycle. Self-loops are
// back edges.
func (g *digraph) backEdges() map[edgeKey]bool {
	const (
		white = iota
		grey
		black
	)
	color := make([]int, len(g.ids))
	back := make(map[edgeKey]bool)
	var dfs func(u int)
	dfs = func(u int) {
		color[u] = grey
		for _, v := range g.out[u] {
			switch color[v] {
			case white:
				dfs(v)
			case grey:
				back[edgeKey{u, v}] = true
			}
		}
		color[u] = black
	}
	for i := range g.ids {
		if g.in[i] == 0 && color[i] == white {
			dfs(i)
		}
	}
	for i := range g.ids {
		if color[i] == white {
			dfs(i)
		}
	}
	return back
}

// longestPathLevels relaxes levels in topological order of the graph with
// back edges removed. Every node starts at level 0.
func (g *digraph) longestPathLevels(back map[edgeKey]bool) []int {
	n := len(g.ids)
	indeg := make([]int, n)
	for u := range g.out {
		for _, v := range g.out[u] {
			if !back[edgeKey{u, v}] {
				indeg[v]++
			}
		}
	}
	queue := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indeg[i] == 0 {
			queue = append(queue, i)
		}
	}
	levels := make([]int, n)
	for head := 0; head < len(queue); head++ {
		u := queue[head]
		for _, v := range g.out[u] {
			if back[edgeKey{u, v}] {
				continue
			}
			if levels[u]+1 > levels[v] {
				levels[v] = levels[u] + 1
			}
			indeg[v]--
			if indeg[v] == 0 {
				queue = append(queue, v)
			}
		}
	}
	return levels
}

// breadthFirstLevels runs one BFS from all roots at once, then one from each
// node still unreached. A node is visited when it is dequeued; pushes
// received before then raise its level, later ones are ignored.
func (g *digraph) breadthFirstLevels() []int {
	levels := make([]int, len(g.ids))
	visited := make([]bool, len(g.ids))
	var queue []int
	drain := func() {
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			if visited[u] {
				continue
			}
			visited[u] = true
			for _, v := range g.out[u] {
				if visited[v] {
					continue
				}
				if levels[u]+1 > levels[v] {
					levels[v] = levels[u] + 1
				}
				queue = append(queue, v)
			}
		}
	}

	// All roots start together so that sibling roots share level 0.
	for i := range g.ids {
		if g.in[i] == 0 {
			queue = append(queue, i)
		}
	}
	drain()
	for i := range g.ids {
		if !visited[i] {
			queue = append(queue, i)
			drain()
		}
	}
	return levels
}
