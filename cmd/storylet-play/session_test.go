package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/storyweave/internal/config"
	"github.com/cory-johannsen/storyweave/internal/story/engine"
	"github.com/cory-johannsen/storyweave/internal/story/minigame"
	"github.com/cory-johannsen/storyweave/internal/story/storylet"
)

const playYAML = `
storylets:
  - id: chapel
    name: Chapel
    trigger: {type: time, conditions: {day: 1}}
    choices:
      - id: pick
        text: Pick the lock
        effects:
          - type: minigame
            gameId: lockpick
            onSuccess:
              - {type: flag, key: open, value: true}
            onFailure:
              - {type: resource, key: energy, delta: -5}
      - id: pray
        text: Pray
        effects:
          - {type: minigame, gameId: chess}
  - id: crypt
    name: Crypt
    trigger: {type: flag, conditions: {flags: [open]}}
    choices:
      - id: descend
        text: Descend
        effects:
          - {type: clueDiscovery, clueId: bones}
  - id: market
    name: Market
    trigger: {type: time, conditions: {day: 2}}
    choices:
      - id: buy
        text: Buy bread
        effects:
          - {type: resource, key: money, delta: -1}
`

func newTestSession(t *testing.T, withChecks bool) (*session, *bytes.Buffer) {
	t.Helper()
	storylets, err := storylet.LoadFromBytes([]byte(playYAML))
	require.NoError(t, err)
	reg, err := storylet.NewRegistry(storylets)
	require.NoError(t, err)
	cfg, err := config.LoadFromViper(config.Defaults())
	require.NoError(t, err)
	eng, err := engine.New(reg, nil, cfg, nil)
	require.NoError(t, err)

	var resolver *minigame.Resolver
	if withChecks {
		// 1d2 against 1 always succeeds.
		table, err := minigame.NewTable([]minigame.Check{{GameID: "lockpick", Dice: "1d2", Target: 1}})
		require.NoError(t, err)
		resolver = minigame.NewResolver(table, minigame.NewSeededSource(7), nil)
	}
	var out bytes.Buffer
	return newSession(eng, resolver, storylet.WorldState{Day: 1}, &out), &out
}

func TestSession_MinigameSuccessOpensCrypt(t *testing.T) {
	s, out := newTestSession(t, true)
	require.NoError(t, s.Run(strings.NewReader("take chapel pick\ntake crypt descend\nquit\n")))

	text := out.String()
	assert.Contains(t, text, "day 1 (week 1)\n  chapel: Chapel\n    [pick] Pick the lock\n    [pray] Pray\n")
	assert.Contains(t, text, "minigame lockpick: success (1d2: ")
	assert.Contains(t, text, "  crypt: Crypt\n")
	assert.Contains(t, text, "clue discovered: bones\n")
	assert.True(t, s.State().Flags["open"])
	assert.Equal(t, []string{"chapel", "crypt"}, s.State().Completed)
}

func TestSession_UnknownGameIsAbandoned(t *testing.T) {
	s, out := newTestSession(t, true)
	require.NoError(t, s.Run(strings.NewReader("take chapel pray\n")))
	assert.Contains(t, out.String(), "minigame chess abandoned: ")
	assert.Empty(t, s.eng.PendingMinigames())
}

func TestSession_NoResolverAbandons(t *testing.T) {
	s, out := newTestSession(t, false)
	require.NoError(t, s.Run(strings.NewReader("take chapel pick\n")))
	assert.Contains(t, out.String(), "minigame lockpick abandoned: no checks configured\n")
	assert.NotContains(t, s.State().Flags, "open")
}

func TestSession_NextDayAndErrors(t *testing.T) {
	s, out := newTestSession(t, true)
	require.NoError(t, s.Run(strings.NewReader("take crypt descend\ntake chapel\nfly\nnext\nstate\n")))

	text := out.String()
	assert.Contains(t, text, "error: storylet \"crypt\" is not active\n")
	assert.Contains(t, text, "error: usage: take <storylet> <choice>\n")
	assert.Contains(t, text, "error: unknown command \"fly\"\n")
	assert.Contains(t, text, "day 2 (week 1)\n  chapel: Chapel\n")
	assert.Contains(t, text, "  market: Market\n")
	assert.Contains(t, text, "\"day\": 2")
	assert.Equal(t, 2, s.State().Day)
}
