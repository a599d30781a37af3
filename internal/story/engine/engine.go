// Package engine is the host-facing entry point to the storylet engine. It
// binds a registry to configuration and threads the host's world state
// through trigger evaluation, effect application and graph derivation.
package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/storyweave/internal/config"
	"github.com/cory-johannsen/storyweave/internal/observability"
	"github.com/cory-johannsen/storyweave/internal/story/effect"
	"github.com/cory-johannsen/storyweave/internal/story/graph"
	"github.com/cory-johannsen/storyweave/internal/story/layout"
	"github.com/cory-johannsen/storyweave/internal/story/storylet"
	"github.com/cory-johannsen/storyweave/internal/story/trigger"
	"github.com/cory-johannsen/storyweave/internal/story/validate"
)

// ErrUnknownStorylet is returned when an id is not in the registry.
var ErrUnknownStorylet = errors.New("engine: unknown storylet")

// Document is the derived graph of a registry. Active is filled in only by
// callers that evaluate a world state.
type Document struct {
	Nodes  []layout.Node     `json:"nodes"`
	Edges  []graph.Edge      `json:"edges"`
	Levels [][]string        `json:"levels"`
	Cyclic bool              `json:"cyclic"`
	Issues []validate.Issue  `json:"issues"`
	Active trigger.ActiveSet `json:"active,omitempty"`
}

// Engine evaluates one registry. World state is never held: every call
// receives the host's current state and returns the next one.
//
// Engine is safe for concurrent use, but the host must serialise writes to
// its own world state.
type Engine struct {
	reg       *storylet.Registry
	clues     []graph.ClueOutcome
	visible   storylet.StatusSet
	policy    trigger.TimePolicy
	layoutCfg layout.Config
	logger    *zap.Logger

	evaluator *trigger.Evaluator
	applier   *effect.Applier
	tracker   *effect.Tracker
	cache     *layout.Cache

	mu       sync.Mutex
	unlocked []string
}

// New binds reg to cfg.
//
// Precondition: reg must be non-nil and cfg must have passed Validate.
// Postcondition: Returns an error if cfg carries an unknown policy or status.
func New(reg *storylet.Registry, clues []graph.ClueOutcome, cfg config.Config, logger *zap.Logger) (*Engine, error) {
	logger = observability.OrNop(logger)
	visible, err := storylet.ParseStatusSet(cfg.Engine.VisibleStatuses)
	if err != nil {
		return nil, fmt.Errorf("engine.visible_statuses: %w", err)
	}
	policy, err := trigger.ParseTimePolicy(cfg.Engine.TimePolicy)
	if err != nil {
		return nil, fmt.Errorf("engine.time_policy: %w", err)
	}
	layoutCfg, err := layout.FromConfig(cfg.Layout)
	if err != nil {
		return nil, fmt.Errorf("layout.level_policy: %w", err)
	}
	applier := effect.NewApplier(logger)
	return &Engine{
		reg:       reg,
		clues:     clues,
		visible:   visible,
		policy:    policy,
		layoutCfg: layoutCfg,
		logger:    logger,
		evaluator: trigger.NewEvaluator(logger),
		applier:   applier,
		tracker:   effect.NewTracker(applier),
		cache:     layout.NewCache(logger),
	}, nil
}

// Registry returns the bound registry.
func (e *Engine) Registry() *storylet.Registry { return e.reg }

// Active returns the active set for state. Storylets unlocked by effects
// since the previous call are force-included for this pass only.
func (e *Engine) Active(state storylet.WorldState) trigger.ActiveSet {
	e.mu.Lock()
	unlocked := e.unlocked
	e.unlocked = nil
	e.mu.Unlock()
	return e.evaluator.Evaluate(e.reg, state, trigger.Options{
		Visible:  e.visible,
		Policy:   e.policy,
		Unlocked: unlocked,
	})
}

// Take applies choiceID of storyletID to state and marks the storylet
// completed. Minigames in the choice are staged until ResolveMinigame.
//
// Postcondition: Returns ErrUnknownStorylet or effect.ErrUnknownChoice for
// bad ids; state is never modified.
func (e *Engine) Take(state storylet.WorldState, storyletID, choiceID string) (effect.Result, error) {
	s, ok := e.reg.Get(storyletID)
	if !ok {
		return effect.Result{}, fmt.Errorf("%q: %w", storyletID, ErrUnknownStorylet)
	}
	res, err := e.applier.Take(state, s, choiceID)
	if err != nil {
		return effect.Result{}, err
	}
	e.record(res)
	return res, nil
}

// ResolveMinigame applies one branch of a staged minigame to state.
//
// Postcondition: Returns effect.ErrUnknownPending if id is not staged.
func (e *Engine) ResolveMinigame(state storylet.WorldState, id uuid.UUID, outcome effect.Outcome) (effect.Result, error) {
	res, err := e.tracker.Resolve(state, id, outcome)
	if err != nil {
		return effect.Result{}, err
	}
	e.mu.Lock()
	e.unlocked = append(e.unlocked, res.Unlocked...)
	e.mu.Unlock()
	return res, nil
}

// AbandonMinigame discards a staged minigame; neither branch is applied.
func (e *Engine) AbandonMinigame(id uuid.UUID) error {
	return e.tracker.Abandon(id)
}

// PendingMinigames returns the staged minigames in staging order.
func (e *Engine) PendingMinigames() []*effect.Pending {
	return e.tracker.Pending()
}

// Graph derives edges, layout and validation issues for the registry. The
// layout is memoized until the registry content changes.
func (e *Engine) Graph() (Document, error) {
	storylets := e.reg.All()
	edges := graph.Discover(storylets, e.clues)
	lay, err := e.cache.Compute(storylets, edges, e.layoutCfg)
	if err != nil {
		return Document{}, fmt.Errorf("computing layout: %w", err)
	}
	report := validate.Run(storylets, edges, e.clues)
	e.logger.Debug("graph derived",
		zap.Int("nodes", len(lay.Nodes)),
		zap.Int("edges", len(lay.Edges)),
		zap.Int("issues", len(report.Issues)),
	)
	return Document{
		Nodes:  lay.Nodes,
		Edges:  lay.Edges,
		Levels: lay.Levels,
		Cyclic: lay.Cyclic,
		Issues: report.Issues,
	}, nil
}

// LayoutStats returns layout cache hits and misses.
func (e *Engine) LayoutStats() (hits, misses int) {
	return e.cache.Stats()
}

func (e *Engine) record(res effect.Result) {
	e.tracker.Stage(res)
	e.mu.Lock()
	e.unlocked = append(e.unlocked, res.Unlocked...)
	e.mu.Unlock()
}
