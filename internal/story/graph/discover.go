// Package graph reconstructs the narrative dependency graph from storylet
// content. Edges approximate reachability for visualization and validation;
// gameplay evaluation never consults them.
package graph

import (
	"github.com/cory-johannsen/storyweave/internal/story/storylet"
)

// EdgeType classifies how an edge was discovered.
type EdgeType string

// Edge types.
const (
	// EdgeChoice is an explicit nextStoryletId reference.
	EdgeChoice EdgeType = "choice"
	// EdgeFlag is inferred from a flag set by a choice and required by a trigger.
	EdgeFlag EdgeType = "flag"
	// EdgeUnlock is an unlock effect targeting a storylet.
	EdgeUnlock EdgeType = "unlock"
	// EdgeClueSuccess leads to a clue's positive outcome.
	EdgeClueSuccess EdgeType = "clue_success"
	// EdgeClueFailure leads to a clue's negative outcome.
	EdgeClueFailure EdgeType = "clue_failure"
)

// Edge is a directed connection between two storylets.
type Edge struct {
	From       string   `json:"from"`
	To         string   `json:"to"`
	ChoiceText string   `json:"choiceText"`
	ChoiceID   string   `json:"choiceId"`
	EdgeType   EdgeType `json:"edgeType"`
}

// ClueOutcome maps a clue id to the storylets reached on success or failure.
// Either target may be empty.
type ClueOutcome struct {
	ClueID            string `json:"clueId" yaml:"clue_id"`
	SuccessStoryletID string `json:"successStoryletId" yaml:"success_storylet_id"`
	FailureStoryletID string `json:"failureStoryletId" yaml:"failure_storylet_id"`
}

// Discover returns every edge implied by storylets and clues, in a
// deterministic order: storylet order, then choice order, then effect order,
// then target storylet order.
//
// Flag edges are emitted once per (effect, requiring storylet) pair and are
// not deduplicated across choices. References to unknown storylets produce no
// edge; the validation pass reports them.
//
// Postcondition: storylets and clues are not modified.
func Discover(storylets []*storylet.Storylet, clues []ClueOutcome) []Edge {
	known := make(map[string]bool, len(storylets))
	requiredBy := make(map[string][]string)
	for _, s := range storylets {
		known[s.ID] = true
		for _, f := range s.RequiredFlags() {
			requiredBy[f] = appendUnique(requiredBy[f], s.ID)
		}
	}
	clueByID := make(map[string]ClueOutcome, len(clues))
	for _, c := range clues {
		clueByID[c.ClueID] = c
	}

	edges := []Edge{}
	for _, s := range storylets {
		for _, c := range s.Choices {
			edge := func(to string, t EdgeType) Edge {
				return Edge{From: s.ID, To: to, ChoiceText: c.Text, ChoiceID: c.ID, EdgeType: t}
			}
			if c.NextStoryletID != "" && known[c.NextStoryletID] {
				edges = append(edges, edge(c.NextStoryletID, EdgeChoice))
			}
			storylet.WalkEffects(c.Effects, func(e storylet.Effect) {
				switch eff := e.(type) {
				case storylet.FlagEffect:
					if !eff.Value {
						return
					}
					for _, target := range requiredBy[eff.Key] {
						if target != s.ID {
							edges = append(edges, edge(target, EdgeFlag))
						}
					}
				case storylet.UnlockEffect:
					if known[eff.StoryletID] {
						edges = append(edges, edge(eff.StoryletID, EdgeUnlock))
					}
				case storylet.ClueEffect:
					outcome, ok := clueByID[eff.ClueID]
					if !ok {
						return
					}
					if known[outcome.SuccessStoryletID] {
						edges = append(edges, edge(outcome.SuccessStoryletID, EdgeClueSuccess))
					}
					if known[outcome.FailureStoryletID] {
						edges = append(edges, edge(outcome.FailureStoryletID, EdgeClueFailure))
					}
				}
			})
		}
	}
	return edges
}

// Adjacency indexes edges by endpoint.
type Adjacency struct {
	Out map[string][]string
	In  map[string][]string
}

// Index builds outgoing and incoming neighbour lists from edges, in edge
// order. Parallel edges produce repeated neighbours.
func Index(edges []Edge) Adjacency {
	adj := Adjacency{
		Out: make(map[string][]string),
		In:  make(map[string][]string),
	}
	for _, e := range edges {
		adj.Out[e.From] = append(adj.Out[e.From], e.To)
		adj.In[e.To] = append(adj.In[e.To], e.From)
	}
	return adj
}

func appendUnique(list []string, id string) []string {
	for _, x := range list {
		if x == id {
			return list
		}
	}
	return append(list, id)
}
