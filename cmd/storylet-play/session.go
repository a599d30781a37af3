package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cory-johannsen/storyweave/internal/story/engine"
	"github.com/cory-johannsen/storyweave/internal/story/minigame"
	"github.com/cory-johannsen/storyweave/internal/story/storylet"
	"github.com/cory-johannsen/storyweave/internal/story/trigger"
)

// session owns the playtest world state and hands it to the engine on every
// command.
type session struct {
	eng      *engine.Engine
	resolver *minigame.Resolver
	state    storylet.WorldState
	active   trigger.ActiveSet
	out      io.Writer
}

func newSession(eng *engine.Engine, resolver *minigame.Resolver, state storylet.WorldState, out io.Writer) *session {
	s := &session{eng: eng, resolver: resolver, state: state.Clone(), out: out}
	s.refresh()
	return s
}

// State returns the current world state.
func (s *session) State() storylet.WorldState {
	return s.state
}

// Run executes commands from in until "quit" or end of input:
// "take <storylet> <choice>", "next", "state" or "quit".
func (s *session) Run(in io.Reader) error {
	s.show()
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" {
			return nil
		}
		if err := s.exec(fields); err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
			continue
		}
		s.show()
	}
	return scanner.Err()
}

func (s *session) exec(fields []string) error {
	switch fields[0] {
	case "take":
		if len(fields) != 3 {
			return errors.New("usage: take <storylet> <choice>")
		}
		return s.take(fields[1], fields[2])
	case "next":
		s.state = s.state.Clone()
		s.state.Day++
		s.refresh()
		return nil
	case "state":
		data, err := json.MarshalIndent(s.state, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, string(data))
		return nil
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
}

func (s *session) take(storyletID, choiceID string) error {
	if !s.active.Contains(storyletID) {
		return fmt.Errorf("storylet %q is not active", storyletID)
	}
	res, err := s.eng.Take(s.state, storyletID, choiceID)
	if err != nil {
		return err
	}
	s.state = res.State
	for _, d := range res.Diagnostics {
		fmt.Fprintf(s.out, "skipped effect %d (%s): %s\n", d.Index, d.Type, d.Message)
	}
	for _, c := range res.Clues {
		fmt.Fprintf(s.out, "clue discovered: %s\n", c)
	}
	s.resolveMinigames()
	s.refresh()
	return nil
}

// resolveMinigames rolls every staged minigame, including ones staged by a
// resolved branch. Games without a check are abandoned.
func (s *session) resolveMinigames() {
	for {
		pending := s.eng.PendingMinigames()
		if len(pending) == 0 {
			return
		}
		p := pending[0]
		if s.resolver == nil {
			fmt.Fprintf(s.out, "minigame %s abandoned: no checks configured\n", p.GameID)
			_ = s.eng.AbandonMinigame(p.ID)
			continue
		}
		outcome, roll, err := s.resolver.Resolve(p)
		if err != nil {
			fmt.Fprintf(s.out, "minigame %s abandoned: %v\n", p.GameID, err)
			_ = s.eng.AbandonMinigame(p.ID)
			continue
		}
		res, err := s.eng.ResolveMinigame(s.state, p.ID, outcome)
		if err != nil {
			fmt.Fprintf(s.out, "minigame %s: %v\n", p.GameID, err)
			return
		}
		s.state = res.State
		fmt.Fprintf(s.out, "minigame %s: %s (%s)\n", p.GameID, outcome, roll)
	}
}

func (s *session) refresh() {
	s.active = s.eng.Active(s.state)
}

func (s *session) show() {
	fmt.Fprintf(s.out, "day %d (week %d)\n", s.state.Day, s.state.Week())
	if len(s.active) == 0 {
		fmt.Fprintln(s.out, "  nothing to do: next to advance the day")
		return
	}
	for _, id := range s.active {
		st, _ := s.eng.Registry().Get(id)
		fmt.Fprintf(s.out, "  %s: %s\n", st.ID, st.Name)
		for _, c := range st.Choices {
			fmt.Fprintf(s.out, "    [%s] %s\n", c.ID, c.Text)
		}
	}
}
