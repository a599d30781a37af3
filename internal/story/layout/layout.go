// Package layout assigns storylets to levels of a top-to-bottom layered
// diagram and positions them on a canvas.
package layout

import (
	"fmt"

	"github.com/cory-johannsen/storyweave/internal/config"
	"github.com/cory-johannsen/storyweave/internal/story/graph"
	"github.com/cory-johannsen/storyweave/internal/story/storylet"
)

// Policy selects the level assignment algorithm.
type Policy string

const (
	// LongestPath excludes cycle back edges and assigns every node one more
	// than its deepest predecessor.
	LongestPath Policy = "longest_path"
	// BreadthFirst runs a multi-root BFS that fixes a node's level when it is
	// first dequeued.
	BreadthFirst Policy = "breadth_first"
)

// ParsePolicy converts a configuration token into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case LongestPath, BreadthFirst:
		return Policy(s), nil
	default:
		return "", fmt.Errorf("unknown level policy %q", s)
	}
}

// Config holds layout geometry.
type Config struct {
	Policy            Policy  `json:"policy"`
	CanvasWidth       float64 `json:"canvasWidth"`
	HorizontalSpacing float64 `json:"horizontalSpacing"`
	VerticalSpacing   float64 `json:"verticalSpacing"`
	TopMargin         float64 `json:"topMargin"`
}

// DefaultConfig returns the geometry used when no configuration is supplied.
func DefaultConfig() Config {
	return Config{
		Policy:            LongestPath,
		CanvasWidth:       1200,
		HorizontalSpacing: 220,
		VerticalSpacing:   150,
		TopMargin:         50,
	}
}

// FromConfig converts validated application configuration into a Config.
func FromConfig(c config.LayoutConfig) (Config, error) {
	p, err := ParsePolicy(c.LevelPolicy)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Policy:            p,
		CanvasWidth:       c.CanvasWidth,
		HorizontalSpacing: c.HorizontalSpacing,
		VerticalSpacing:   c.VerticalSpacing,
		TopMargin:         c.TopMargin,
	}, nil
}

// Node is a positioned storylet.
type Node struct {
	ID       string             `json:"id"`
	Level    int                `json:"level"`
	X        float64            `json:"x"`
	Y        float64            `json:"y"`
	Storylet *storylet.Storylet `json:"storylet"`
}

// Result is a computed layout.
type Result struct {
	// Nodes lists every storylet in input order.
	Nodes []Node `json:"nodes"`
	// Edges lists the input edges whose endpoints are both laid out.
	Edges []graph.Edge `json:"edges"`
	// Levels lists node ids per level, each level in input order.
	Levels [][]string `json:"levels"`
	// Cyclic is true when at least one edge closes a cycle.
	Cyclic bool `json:"cyclic"`
}

// Node returns the positioned node for id.
func (r Result) Node(id string) (Node, bool) {
	for _, n := range r.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Compute lays out storylets using edges.
//
// Precondition: storylets must have unique, non-empty ids.
// Postcondition: the result is a pure function of the arguments; equal input
// yields an identical result. Under LongestPath, level(to) > level(from) for
// every edge that does not close a cycle.
func Compute(storylets []*storylet.Storylet, edges []graph.Edge, cfg Config) Result {
	g := newDigraph(storylets, edges)
	back := g.backEdges()

	var levels []int
	if cfg.Policy == BreadthFirst {
		levels = g.breadthFirstLevels()
	} else {
		levels = g.longestPathLevels(back)
	}

	res := Result{
		Nodes:  make([]Node, len(storylets)),
		Edges:  g.edges,
		Levels: [][]string{},
		Cyclic: len(back) > 0,
	}
	for i, s := range storylets {
		l := levels[i]
		for len(res.Levels) <= l {
			res.Levels = append(res.Levels, []string{})
		}
		res.Levels[l] = append(res.Levels[l], s.ID)
		res.Nodes[i] = Node{ID: s.ID, Level: l, Storylet: s}
	}

	index := make(map[string]int, len(storylets))
	for i, s := range storylets {
		index[s.ID] = i
	}
	for l, ids := range res.Levels {
		n := float64(len(ids))
		start := (cfg.CanvasWidth - (n-1)*cfg.HorizontalSpacing) / 2
		for i, id := range ids {
			node := &res.Nodes[index[id]]
			node.X = start + float64(i)*cfg.HorizontalSpacing
			node.Y = cfg.TopMargin + float64(l)*cfg.VerticalSpacing
		}
	}
	return res
}
