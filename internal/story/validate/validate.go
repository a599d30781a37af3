// Package validate reports authoring problems in storylet content. Every
// issue is advisory: the engine keeps running with the affected storylet or
// edge simply absent.
package validate

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/cory-johannsen/storyweave/internal/story/graph"
	"github.com/cory-johannsen/storyweave/internal/story/storylet"
)

// Kind classifies an issue.
type Kind string

// Issue kinds.
const (
	// Orphan is a storylet with no incoming edge whose trigger cannot be
	// satisfied by host state alone.
	Orphan Kind = "orphan"
	// BrokenConnection is a reference to a storylet that does not exist.
	BrokenConnection Kind = "broken_connection"
	// UnreachableFlag is a flag required by a trigger that no effect sets true.
	UnreachableFlag Kind = "unreachable_flag"
	// DeadEnd is a storylet with no choices, or a choice that does nothing.
	DeadEnd Kind = "dead_end"
	// DuplicateChoice is a choice id repeated within one storylet.
	DuplicateChoice Kind = "duplicate_choice"
	// UnknownEffect is an effect that will be skipped when applied.
	UnknownEffect Kind = "unknown_effect"
	// UnknownTrigger is a trigger that is never satisfied.
	UnknownTrigger Kind = "unknown_trigger"
	// UnknownStatus is a deployment status outside dev, stage and live. The
	// storylet is never visible.
	UnknownStatus Kind = "unknown_status"
	// EmptyChoiceID is a choice with no id.
	EmptyChoiceID Kind = "empty_choice_id"
)

// Issue is a single finding.
type Issue struct {
	Kind       Kind   `json:"kind"`
	StoryletID string `json:"storyletId"`
	ChoiceID   string `json:"choiceId,omitempty"`
	// Target is the missing storylet id or the unreachable flag.
	Target  string `json:"target,omitempty"`
	Message string `json:"message"`
}

// Report is the outcome of a validation pass.
type Report struct {
	Issues []Issue `json:"issues"`
}

// Count returns the number of issues of kind k.
func (r Report) Count(k Kind) int {
	n := 0
	for _, i := range r.Issues {
		if i.Kind == k {
			n++
		}
	}
	return n
}

// Counts returns the number of issues per kind.
func (r Report) Counts() map[Kind]int {
	out := make(map[Kind]int)
	for _, i := range r.Issues {
		out[i.Kind]++
	}
	return out
}

// Run checks storylets against the edges discovered from them and the clue
// outcome table.
//
// Postcondition: Issues is non-nil and sorted by kind, storylet, choice,
// target then message; the arguments are not modified.
func Run(storylets []*storylet.Storylet, edges []graph.Edge, clues []graph.ClueOutcome) Report {
	v := &validator{
		known:    make(map[string]bool, len(storylets)),
		incoming: make(map[string]bool),
		setTrue:  make(map[string]bool),
		clues:    make(map[string]graph.ClueOutcome, len(clues)),
		issues:   []Issue{},
	}
	for _, s := range storylets {
		v.known[s.ID] = true
	}
	for _, e := range edges {
		if e.From != e.To {
			v.incoming[e.To] = true
		}
	}
	for _, c := range clues {
		v.clues[c.ClueID] = c
	}
	for _, s := range storylets {
		for _, c := range s.Choices {
			for _, f := range storylet.FlagsSetTrue(c.Effects) {
				v.setTrue[f] = true
			}
		}
	}

	for _, s := range storylets {
		v.checkStatus(s)
		v.checkTrigger(s)
		v.checkChoices(s)
	}

	slices.SortFunc(v.issues, func(a, b Issue) int {
		return cmp.Or(
			cmp.Compare(a.Kind, b.Kind),
			cmp.Compare(a.StoryletID, b.StoryletID),
			cmp.Compare(a.ChoiceID, b.ChoiceID),
			cmp.Compare(a.Target, b.Target),
			cmp.Compare(a.Message, b.Message),
		)
	})
	return Report{Issues: v.issues}
}

type validator struct {
	known    map[string]bool
	incoming map[string]bool
	setTrue  map[string]bool
	clues    map[string]graph.ClueOutcome
	issues   []Issue
}

func (v *validator) add(i Issue) {
	v.issues = append(v.issues, i)
}

func (v *validator) checkStatus(s *storylet.Storylet) {
	if s.DeploymentStatus == "" || s.DeploymentStatus.Valid() {
		return
	}
	v.add(Issue{
		Kind:       UnknownStatus,
		StoryletID: s.ID,
		Target:     string(s.DeploymentStatus),
		Message:    fmt.Sprintf("deployment status %q is unknown; the storylet is never visible", s.DeploymentStatus),
	})
}

func (v *validator) checkTrigger(s *storylet.Storylet) {
	hostSatisfiable := false
	switch t := s.Trigger.(type) {
	case storylet.TimeTrigger, storylet.ResourceTrigger:
		hostSatisfiable = true
	case storylet.FlagTrigger:
		seen := make(map[string]bool)
		for _, f := range t.Flags {
			if v.setTrue[f] || seen[f] {
				continue
			}
			seen[f] = true
			v.add(Issue{
				Kind:       UnreachableFlag,
				StoryletID: s.ID,
				Target:     f,
				Message:    fmt.Sprintf("flag %q is required but never set true by any effect", f),
			})
		}
	case storylet.UnknownTrigger:
		v.add(Issue{
			Kind:       UnknownTrigger,
			StoryletID: s.ID,
			Target:     t.Type,
			Message:    fmt.Sprintf("trigger of type %q is unrecognised or malformed and never satisfied", t.Type),
		})
	}
	if !hostSatisfiable && !v.incoming[s.ID] {
		v.add(Issue{
			Kind:       Orphan,
			StoryletID: s.ID,
			Message:    "no incoming connection and trigger is not satisfiable from world state alone",
		})
	}
}

func (v *validator) checkChoices(s *storylet.Storylet) {
	if len(s.Choices) == 0 {
		v.add(Issue{Kind: DeadEnd, StoryletID: s.ID, Message: "storylet has no choices"})
	}
	seen := make(map[string]bool, len(s.Choices))
	for i, c := range s.Choices {
		if c.ID == "" {
			v.add(Issue{
				Kind:       EmptyChoiceID,
				StoryletID: s.ID,
				Message:    fmt.Sprintf("choice %d has no id", i),
			})
		} else if seen[c.ID] {
			v.add(Issue{
				Kind:       DuplicateChoice,
				StoryletID: s.ID,
				ChoiceID:   c.ID,
				Message:    fmt.Sprintf("choice id %q appears more than once", c.ID),
			})
		}
		seen[c.ID] = true

		if len(c.Effects) == 0 && c.NextStoryletID == "" {
			v.add(Issue{Kind: DeadEnd, StoryletID: s.ID, ChoiceID: c.ID, Message: "choice has no effects and no next storylet"})
		}
		if c.NextStoryletID != "" && !v.known[c.NextStoryletID] {
			v.broken(s, c, c.NextStoryletID, "nextStoryletId")
		}
		v.checkEffects(s, c)
	}
}

func (v *validator) checkEffects(s *storylet.Storylet, c storylet.Choice) {
	storylet.WalkEffects(c.Effects, func(e storylet.Effect) {
		switch eff := e.(type) {
		case storylet.UnlockEffect:
			if !v.known[eff.StoryletID] {
				v.broken(s, c, eff.StoryletID, "unlock")
			}
		case storylet.ClueEffect:
			outcome, ok := v.clues[eff.ClueID]
			if !ok {
				return
			}
			if outcome.SuccessStoryletID != "" && !v.known[outcome.SuccessStoryletID] {
				v.broken(s, c, outcome.SuccessStoryletID, fmt.Sprintf("clue %q success", eff.ClueID))
			}
			if outcome.FailureStoryletID != "" && !v.known[outcome.FailureStoryletID] {
				v.broken(s, c, outcome.FailureStoryletID, fmt.Sprintf("clue %q failure", eff.ClueID))
			}
		case storylet.UnknownEffect:
			v.add(Issue{
				Kind:       UnknownEffect,
				StoryletID: s.ID,
				ChoiceID:   c.ID,
				Target:     eff.Type,
				Message:    fmt.Sprintf("effect of type %q is unrecognised or malformed and will be skipped", eff.Type),
			})
		case nil:
			v.add(Issue{Kind: UnknownEffect, StoryletID: s.ID, ChoiceID: c.ID, Message: "empty effect will be skipped"})
		}
	})
}

func (v *validator) broken(s *storylet.Storylet, c storylet.Choice, target, via string) {
	v.add(Issue{
		Kind:       BrokenConnection,
		StoryletID: s.ID,
		ChoiceID:   c.ID,
		Target:     target,
		Message:    fmt.Sprintf("%s references unknown storylet %q", via, target),
	})
}
