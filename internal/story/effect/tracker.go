package effect

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/cory-johannsen/storyweave/internal/story/storylet"
)

// ErrUnknownPending is returned when resolving or abandoning an id that is
// not staged, including one that was already resolved.
var ErrUnknownPending = errors.New("effect: unknown pending minigame")

// Tracker holds staged minigames between the two commit phases. Outcomes may
// arrive from another goroutine; the world state itself is still owned and
// serialised by the host.
type Tracker struct {
	mu      sync.Mutex
	applier *Applier
	pending map[uuid.UUID]*Pending
	order   []uuid.UUID
}

// NewTracker creates an empty Tracker resolving through applier.
//
// Precondition: applier must be non-nil.
func NewTracker(applier *Applier) *Tracker {
	return &Tracker{
		applier: applier,
		pending: make(map[uuid.UUID]*Pending),
	}
}

// Stage records every pending minigame in res.
func (t *Tracker) Stage(res Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range res.Pending {
		if _, exists := t.pending[p.ID]; exists {
			continue
		}
		t.pending[p.ID] = p
		t.order = append(t.order, p.ID)
	}
}

// Resolve removes the pending minigame id and applies its selected branch to
// state. Nested minigames in the branch are staged automatically.
//
// Postcondition: Returns ErrUnknownPending if id is not staged; a resolved
// id cannot be resolved again.
func (t *Tracker) Resolve(state storylet.WorldState, id uuid.UUID, outcome Outcome) (Result, error) {
	p, err := t.take(id)
	if err != nil {
		return Result{}, err
	}
	res := t.applier.Resolve(state, p, outcome)
	t.Stage(res)
	return res, nil
}

// Abandon discards a pending minigame without applying either branch.
func (t *Tracker) Abandon(id uuid.UUID) error {
	_, err := t.take(id)
	return err
}

// Pending returns the staged minigames in staging order.
func (t *Tracker) Pending() []*Pending {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Pending, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.pending[id])
	}
	return out
}

func (t *Tracker) take(id uuid.UUID) (*Pending, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.pending[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrUnknownPending)
	}
	delete(t.pending, id)
	for i, x := range t.order {
		if x == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return p, nil
}
