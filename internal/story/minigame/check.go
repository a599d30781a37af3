// Package minigame resolves staged minigames with dice checks, standing in
// for the external minigames a host would run. Each game id maps to a dice
// expression and a target; a roll at or above the target is a success.
package minigame

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/storyweave/internal/observability"
	"github.com/cory-johannsen/storyweave/internal/story/effect"
)

// ErrUnknownGame is returned when no check is defined for a game id.
var ErrUnknownGame = errors.New("minigame: unknown game")

// Check defines how one game id is resolved.
type Check struct {
	GameID string `yaml:"game_id"`
	Dice   string `yaml:"dice"`
	Target int    `yaml:"target"`
}

type checkFile struct {
	Minigames []Check `yaml:"minigames"`
}

type compiled struct {
	dice   Dice
	target int
}

// Table maps game ids to compiled checks.
type Table struct {
	checks map[string]compiled
}

// NewTable compiles checks.
//
// Postcondition: Returns an error for an empty or duplicate game id or a
// malformed dice expression.
func NewTable(checks []Check) (*Table, error) {
	t := &Table{checks: make(map[string]compiled, len(checks))}
	for i, c := range checks {
		if c.GameID == "" {
			return nil, fmt.Errorf("minigame %d: game_id must not be empty", i)
		}
		if _, dup := t.checks[c.GameID]; dup {
			return nil, fmt.Errorf("minigame %q: duplicate game_id", c.GameID)
		}
		d, err := ParseDice(c.Dice)
		if err != nil {
			return nil, fmt.Errorf("minigame %q: %w", c.GameID, err)
		}
		t.checks[c.GameID] = compiled{dice: d, target: c.Target}
	}
	return t, nil
}

// LoadTableFromBytes parses a YAML document with a top-level "minigames" list.
func LoadTableFromBytes(data []byte) (*Table, error) {
	var file checkFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parsing minigame YAML: %w", err)
	}
	return NewTable(file.Minigames)
}

// LoadTableFromFile reads a minigame file.
func LoadTableFromFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading minigame file %s: %w", path, err)
	}
	return LoadTableFromBytes(data)
}

// Has reports whether gameID has a check.
func (t *Table) Has(gameID string) bool {
	_, ok := t.checks[gameID]
	return ok
}

// Resolver rolls checks for pending minigames.
type Resolver struct {
	table  *Table
	src    Source
	logger *zap.Logger
}

// NewResolver creates a Resolver. A nil logger discards roll logs.
//
// Precondition: table and src must be non-nil.
func NewResolver(table *Table, src Source, logger *zap.Logger) *Resolver {
	return &Resolver{table: table, src: src, logger: observability.OrNop(logger)}
}

// Resolve rolls the check for p.
//
// Postcondition: Returns ErrUnknownGame if p.GameID has no check.
func (r *Resolver) Resolve(p *effect.Pending) (effect.Outcome, Roll, error) {
	c, ok := r.table.checks[p.GameID]
	if !ok {
		return effect.Failure, Roll{}, fmt.Errorf("%q: %w", p.GameID, ErrUnknownGame)
	}
	roll := c.dice.Roll(r.src)
	outcome := effect.Failure
	if roll.Total() >= c.target {
		outcome = effect.Success
	}
	r.logger.Debug("minigame rolled",
		zap.String("pending", p.ID.String()),
		zap.String("game", p.GameID),
		zap.String("expression", roll.Expression),
		zap.Ints("dice", roll.Dice),
		zap.Int("total", roll.Total()),
		zap.Int("target", c.target),
		zap.Stringer("outcome", outcome),
	)
	return outcome, roll, nil
}
