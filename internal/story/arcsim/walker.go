// Package arcsim dry-runs a single story arc against a private flag map.
//
// A Walker never reads or writes host world state: it starts from a copy of
// the seed flags and applies only the flag effects of the choices taken.
package arcsim

import (
	"errors"
	"fmt"
	"maps"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/storyweave/internal/observability"
	"github.com/cory-johannsen/storyweave/internal/story/storylet"
	"github.com/cory-johannsen/storyweave/internal/story/trigger"
)

// Sentinel errors returned by Walker operations.
var (
	ErrUnknownArc    = errors.New("arcsim: arc has no storylets")
	ErrNotInArc      = errors.New("arcsim: storylet is not part of the arc")
	ErrNotStarted    = errors.New("arcsim: walk has not started")
	ErrTerminal      = errors.New("arcsim: walk has ended")
	ErrUnknownChoice = errors.New("arcsim: unknown choice")
	ErrNothingToUndo = errors.New("arcsim: nothing to undo")
)

// State is the walker's position in its state machine.
type State int

const (
	// Idle means no storylet has been visited.
	Idle State = iota
	// At means the walk is positioned on a storylet.
	At
	// Terminal means the last choice led to no eligible storylet.
	Terminal
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case At:
		return "at"
	case Terminal:
		return "terminal"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// StepKind distinguishes history entries.
type StepKind string

const (
	// StepStorylet records arriving at a storylet.
	StepStorylet StepKind = "storylet"
	// StepChoice records a choice taken on the preceding storylet.
	StepChoice StepKind = "choice"
)

// Step is one history entry.
type Step struct {
	Kind       StepKind `json:"kind"`
	StoryletID string   `json:"storyletId"`
	ChoiceID   string   `json:"choiceId,omitempty"`
	ChoiceText string   `json:"choiceText,omitempty"`
}

// frame is the state restored by GoBack.
type frame struct {
	historyLen int
	flags      map[string]bool
	state      State
}

// Walker simulates one arc. It is not safe for concurrent use.
type Walker struct {
	id        uuid.UUID
	arc       string
	storylets []*storylet.Storylet
	seed      map[string]bool
	logger    *zap.Logger

	state   State
	flags   map[string]bool
	history []Step
	undo    []frame
}

// New creates an idle Walker over the storylets of arc in registry order.
// seedFlags is copied; later changes to it do not affect the walker.
//
// Precondition: reg must be non-nil.
// Postcondition: Returns ErrUnknownArc if no storylet belongs to arc.
func New(reg *storylet.Registry, arc string, seedFlags map[string]bool, logger *zap.Logger) (*Walker, error) {
	members := reg.Arc(arc)
	if len(members) == 0 {
		return nil, fmt.Errorf("%q: %w", arc, ErrUnknownArc)
	}
	seed := make(map[string]bool, len(seedFlags))
	maps.Copy(seed, seedFlags)
	id := uuid.New()
	w := &Walker{
		id:        id,
		arc:       arc,
		storylets: members,
		seed:      seed,
		logger:    observability.OrNop(logger).With(zap.String("session", id.String()), zap.String("arc", arc)),
	}
	w.reset()
	return w, nil
}

// ID returns the session id used in log output.
func (w *Walker) ID() uuid.UUID { return w.id }

// Arc returns the arc name.
func (w *Walker) Arc() string { return w.arc }

// Storylets returns the arc's storylets in registry order.
func (w *Walker) Storylets() []*storylet.Storylet {
	return append([]*storylet.Storylet(nil), w.storylets...)
}

// State returns the current state.
func (w *Walker) State() State { return w.state }

// Current returns the storylet the walk is positioned on. In the Terminal
// state this is the storylet whose choice ended the walk.
//
// Postcondition: Returns (nil, false) when Idle.
func (w *Walker) Current() (*storylet.Storylet, bool) {
	for i := len(w.history) - 1; i >= 0; i-- {
		if w.history[i].Kind == StepStorylet {
			return w.find(w.history[i].StoryletID), true
		}
	}
	return nil, false
}

// History returns a copy of the walk so far.
func (w *Walker) History() []Step {
	return append([]Step(nil), w.history...)
}

// Flags returns a copy of the local flag map.
func (w *Walker) Flags() map[string]bool {
	return maps.Clone(w.flags)
}

// Begin restarts the walk positioned on storylet id.
//
// Postcondition: Returns ErrNotInArc if id does not belong to the arc; the
// walker is unchanged on error.
func (w *Walker) Begin(id string) error {
	s := w.find(id)
	if s == nil {
		return fmt.Errorf("%q: %w", id, ErrNotInArc)
	}
	w.reset()
	w.push()
	w.history = append(w.history, Step{Kind: StepStorylet, StoryletID: s.ID})
	w.state = At
	w.logger.Debug("walk started", zap.String("storylet", s.ID))
	return nil
}

// Choose takes choiceID on the current storylet, applies its top-level flag
// effects to the local flags, and moves to the first unvisited arc storylet
// whose trigger holds.
//
// Postcondition: the state is At when a next storylet was found and Terminal
// otherwise; the walker is unchanged on error.
func (w *Walker) Choose(choiceID string) error {
	switch w.state {
	case Idle:
		return ErrNotStarted
	case Terminal:
		return ErrTerminal
	}
	cur, _ := w.Current()
	choice, ok := cur.Choice(choiceID)
	if !ok {
		return fmt.Errorf("storylet %q choice %q: %w", cur.ID, choiceID, ErrUnknownChoice)
	}

	w.push()
	w.flags = maps.Clone(w.flags)
	for _, e := range choice.Effects {
		if f, ok := e.(storylet.FlagEffect); ok {
			w.flags[f.Key] = f.Value
		}
	}
	w.history = append(w.history, Step{Kind: StepChoice, StoryletID: cur.ID, ChoiceID: choice.ID, ChoiceText: choice.Text})

	next := w.next()
	if next == nil {
		w.state = Terminal
		w.logger.Debug("walk ended", zap.String("storylet", cur.ID), zap.String("choice", choice.ID))
		return nil
	}
	w.history = append(w.history, Step{Kind: StepStorylet, StoryletID: next.ID})
	w.logger.Debug("walk advanced",
		zap.String("from", cur.ID),
		zap.String("choice", choice.ID),
		zap.String("to", next.ID),
	)
	return nil
}

// GoBack undoes the most recent Choose, or the Begin when no choice has been
// taken, restoring the history and flags that preceded it.
//
// Postcondition: Returns ErrNothingToUndo when Idle.
func (w *Walker) GoBack() error {
	if len(w.undo) == 0 {
		return ErrNothingToUndo
	}
	f := w.undo[len(w.undo)-1]
	w.undo = w.undo[:len(w.undo)-1]
	w.history = w.history[:f.historyLen]
	w.flags = f.flags
	w.state = f.state
	return nil
}

// Restart returns to Idle with the seed flags and an empty history.
func (w *Walker) Restart() {
	w.reset()
	w.logger.Debug("walk restarted")
}

func (w *Walker) reset() {
	w.state = Idle
	w.flags = maps.Clone(w.seed)
	w.history = nil
	w.undo = nil
}

func (w *Walker) push() {
	w.undo = append(w.undo, frame{historyLen: len(w.history), flags: w.flags, state: w.state})
}

func (w *Walker) find(id string) *storylet.Storylet {
	for _, s := range w.storylets {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (w *Walker) next() *storylet.Storylet {
	visited := make(map[string]bool)
	for _, step := range w.history {
		if step.Kind == StepStorylet {
			visited[step.StoryletID] = true
		}
	}
	for _, s := range w.storylets {
		if !visited[s.ID] && eligible(s.Trigger, w.flags) {
			return s
		}
	}
	return nil
}

// eligible checks flag triggers against flags. Time and resource triggers
// always hold here; unknown and nil triggers never do.
func eligible(t storylet.Trigger, flags map[string]bool) bool {
	switch tt := t.(type) {
	case storylet.FlagTrigger:
		return trigger.FlagsSatisfied(tt, flags)
	case storylet.TimeTrigger, storylet.ResourceTrigger:
		return true
	default:
		return false
	}
}
