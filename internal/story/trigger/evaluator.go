// Package trigger decides which storylets are currently reachable.
package trigger

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/storyweave/internal/observability"
	"github.com/cory-johannsen/storyweave/internal/story/storylet"
)

// TimePolicy selects how a time trigger compares against the world clock.
type TimePolicy string

const (
	// AtLeast is satisfied once the clock reaches the trigger's day/week and
	// stays satisfied afterwards.
	AtLeast TimePolicy = "at_least"
	// Exact is satisfied only on the trigger's day/week.
	Exact TimePolicy = "exact"
)

// ParseTimePolicy converts a configuration token into a TimePolicy.
func ParseTimePolicy(s string) (TimePolicy, error) {
	switch TimePolicy(s) {
	case AtLeast, Exact:
		return TimePolicy(s), nil
	default:
		return "", fmt.Errorf("unknown time policy %q", s)
	}
}

// Options parameterise one evaluation pass.
type Options struct {
	// Visible is the set of deployment statuses to include.
	Visible storylet.StatusSet
	// Policy is the time trigger policy; empty means AtLeast.
	Policy TimePolicy
	// Unlocked lists storylet ids force-included for this pass only,
	// bypassing their triggers.
	Unlocked []string
}

// ActiveSet is the ordered set of storylet ids eligible for presentation.
type ActiveSet []string

// Contains reports whether id is active.
func (a ActiveSet) Contains(id string) bool {
	for _, x := range a {
		if x == id {
			return true
		}
	}
	return false
}

// Evaluator computes active sets. It holds no world state between calls.
type Evaluator struct {
	logger *zap.Logger
}

// NewEvaluator creates an Evaluator. A nil logger discards diagnostics.
func NewEvaluator(logger *zap.Logger) *Evaluator {
	return &Evaluator{logger: observability.OrNop(logger)}
}

// Evaluate returns, in registry order, the ids of storylets that are not
// completed, have a visible deployment status, and whose trigger is
// satisfied by state or which appear in opts.Unlocked.
//
// Precondition: reg must be non-nil.
// Postcondition: state is not modified; unknown unlock ids are logged and skipped.
func (e *Evaluator) Evaluate(reg *storylet.Registry, state storylet.WorldState, opts Options) ActiveSet {
	completed := state.CompletedSet()
	forced := make(map[string]bool, len(opts.Unlocked))
	for _, id := range opts.Unlocked {
		if !reg.Has(id) {
			e.logger.Warn("unlock targets unknown storylet", zap.String("storylet", id))
			continue
		}
		forced[id] = true
	}

	active := ActiveSet{}
	for _, s := range reg.All() {
		if completed[s.ID] || !opts.Visible.Contains(s.DeploymentStatus) {
			continue
		}
		if forced[s.ID] || Satisfied(s.Trigger, state, opts.Policy) {
			active = append(active, s.ID)
		}
	}
	e.logger.Debug("evaluated triggers",
		zap.Int("storylets", reg.Len()),
		zap.Int("active", len(active)),
		zap.Int("forced", len(forced)),
	)
	return active
}

// Satisfied reports whether t holds against state. It fails closed: a nil,
// unknown or malformed trigger is never satisfied.
func Satisfied(t storylet.Trigger, state storylet.WorldState, policy TimePolicy) bool {
	switch tt := t.(type) {
	case storylet.TimeTrigger:
		return timeSatisfied(tt, state, policy)
	case storylet.FlagTrigger:
		return FlagsSatisfied(tt, state.Flags)
	case storylet.ResourceTrigger:
		return resourcesSatisfied(tt, state.Resources)
	case storylet.UnknownTrigger:
		return false
	default:
		return false
	}
}

// FlagsSatisfied reports whether any flag listed by t is true in flags.
func FlagsSatisfied(t storylet.FlagTrigger, flags map[string]bool) bool {
	for _, f := range t.Flags {
		if flags[f] {
			return true
		}
	}
	return false
}

func resourcesSatisfied(t storylet.ResourceTrigger, resources map[string]float64) bool {
	if len(t.Conditions) == 0 {
		return false
	}
	for key, cond := range t.Conditions {
		value, ok := resources[key]
		if !ok || !cond.Holds(value) {
			return false
		}
	}
	return true
}

func timeSatisfied(t storylet.TimeTrigger, state storylet.WorldState, policy TimePolicy) bool {
	if t.Day == nil && t.Week == nil {
		return false
	}
	cmp := func(have, want int) bool {
		if policy == Exact {
			return have == want
		}
		return have >= want
	}
	if t.Day != nil && !cmp(state.Day, *t.Day) {
		return false
	}
	if t.Week != nil && !cmp(state.Week(), *t.Week) {
		return false
	}
	return true
}
