// Package effect applies choice effects to world state.
//
// Effects are applied sequentially in list order with no rollback. Minigame
// effects are two-phase: Apply stages a Pending, and Resolve later applies
// exactly one of its branches once the external outcome is known.
package effect

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/storyweave/internal/observability"
	"github.com/cory-johannsen/storyweave/internal/story/storylet"
)

// ErrUnknownChoice is returned by Take when the storylet has no such choice.
var ErrUnknownChoice = errors.New("effect: unknown choice")

// Outcome is the result reported by an external minigame.
type Outcome int

const (
	// Failure selects the OnFailure branch.
	Failure Outcome = iota
	// Success selects the OnSuccess branch.
	Success
)

// String returns "success" or "failure".
func (o Outcome) String() string {
	if o == Success {
		return "success"
	}
	return "failure"
}

// Pending is a minigame awaiting its outcome.
type Pending struct {
	ID        uuid.UUID
	GameID    string
	OnSuccess []storylet.Effect
	OnFailure []storylet.Effect
}

// Branch returns the effect list selected by outcome.
func (p *Pending) Branch(outcome Outcome) []storylet.Effect {
	if outcome == Success {
		return p.OnSuccess
	}
	return p.OnFailure
}

// Diagnostic records an effect that was skipped.
type Diagnostic struct {
	// Index is the position of the effect within its list.
	Index   int
	Type    storylet.EffectType
	Message string
}

// Result is the outcome of applying one effect list.
type Result struct {
	// State is the new world state. The input state is never modified.
	State storylet.WorldState
	// Unlocked lists storylet ids to force-include on the next evaluation pass.
	Unlocked []string
	// Pending lists minigames staged by this application.
	Pending []*Pending
	// Clues lists clue ids discovered, for the clue subsystem.
	Clues []string
	// Diagnostics lists skipped effects.
	Diagnostics []Diagnostic
}

// Applier applies effect lists. It holds no world state between calls.
type Applier struct {
	logger *zap.Logger
	newID  func() uuid.UUID
}

// NewApplier creates an Applier. A nil logger discards diagnostics.
func NewApplier(logger *zap.Logger) *Applier {
	return &Applier{logger: observability.OrNop(logger), newID: uuid.New}
}

// Apply applies effects to a copy of state, in order.
//
// Postcondition: state is unchanged; the returned Result.State reflects every
// applied effect; minigames are staged in Result.Pending, not applied.
func (a *Applier) Apply(state storylet.WorldState, effects []storylet.Effect) Result {
	res := Result{State: state.Clone()}
	for i, e := range effects {
		a.applyOne(&res, i, e)
	}
	return res
}

// Resolve applies the branch of p selected by outcome to a copy of state,
// with the same sequential rule as Apply. Minigames nested in the branch are
// staged as new pendings.
//
// Precondition: p must be non-nil.
func (a *Applier) Resolve(state storylet.WorldState, p *Pending, outcome Outcome) Result {
	a.logger.Debug("resolving minigame",
		zap.String("pending", p.ID.String()),
		zap.String("game", p.GameID),
		zap.Stringer("outcome", outcome),
	)
	return a.Apply(state, p.Branch(outcome))
}

// Take applies the effects of choiceID on s and marks s completed.
//
// Postcondition: Returns ErrUnknownChoice if s has no such choice; s.ID
// appears exactly once in the returned completed list.
func (a *Applier) Take(state storylet.WorldState, s *storylet.Storylet, choiceID string) (Result, error) {
	choice, ok := s.Choice(choiceID)
	if !ok {
		return Result{}, fmt.Errorf("storylet %q choice %q: %w", s.ID, choiceID, ErrUnknownChoice)
	}
	res := a.Apply(state, choice.Effects)
	if !res.State.IsCompleted(s.ID) {
		res.State.Completed = append(res.State.Completed, s.ID)
	}
	a.logger.Info("choice taken",
		zap.String("storylet", s.ID),
		zap.String("choice", choiceID),
		zap.Int("unlocked", len(res.Unlocked)),
		zap.Int("pending", len(res.Pending)),
		zap.Int("skipped", len(res.Diagnostics)),
	)
	return res, nil
}

func (a *Applier) applyOne(res *Result, i int, e storylet.Effect) {
	switch eff := e.(type) {
	case storylet.ResourceEffect:
		res.State.Resources[eff.Key] += eff.Delta
	case storylet.FlagEffect:
		res.State.Flags[eff.Key] = eff.Value
	case storylet.XPEffect:
		xp := res.State.XP(eff.Track)
		if xp == nil {
			a.skip(res, i, e, "unknown experience track")
			return
		}
		xp[eff.Key] += eff.Amount
	case storylet.UnlockEffect:
		res.Unlocked = append(res.Unlocked, eff.StoryletID)
	case storylet.ClueEffect:
		res.Clues = append(res.Clues, eff.ClueID)
	case storylet.MinigameEffect:
		p := &Pending{
			ID:        a.newID(),
			GameID:    eff.GameID,
			OnSuccess: eff.OnSuccess,
			OnFailure: eff.OnFailure,
		}
		res.Pending = append(res.Pending, p)
		a.logger.Debug("minigame staged", zap.String("pending", p.ID.String()), zap.String("game", p.GameID))
	case storylet.UnknownEffect:
		a.skip(res, i, e, "unrecognised or malformed effect")
	case nil:
		a.skip(res, i, e, "nil effect")
	default:
		a.skip(res, i, e, fmt.Sprintf("unsupported effect %T", e))
	}
}

func (a *Applier) skip(res *Result, i int, e storylet.Effect, msg string) {
	var t storylet.EffectType
	if e != nil {
		t = e.EffectType()
	}
	res.Diagnostics = append(res.Diagnostics, Diagnostic{Index: i, Type: t, Message: msg})
	a.logger.Warn("effect skipped",
		zap.Int("index", i),
		zap.String("type", string(t)),
		zap.String("reason", msg),
	)
}
