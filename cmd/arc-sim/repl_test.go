package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/storyweave/internal/story/arcsim"
	"github.com/cory-johannsen/storyweave/internal/story/storylet"
)

const arcYAML = `
storylets:
  - id: gate
    name: The Gate
    storyArc: siege
    trigger: {type: time, conditions: {day: 1}}
    choices:
      - id: knock
        text: Knock
        effects:
          - {type: flag, key: knocked, value: true}
      - id: wait
        text: Wait
  - id: hall
    name: The Hall
    storyArc: siege
    trigger: {type: flag, conditions: {flags: [knocked]}}
    choices:
      - id: sit
        text: Sit down
`

func newTestREPL(t *testing.T) (*repl, *bytes.Buffer) {
	t.Helper()
	storylets, err := storylet.LoadFromBytes([]byte(arcYAML))
	require.NoError(t, err)
	reg, err := storylet.NewRegistry(storylets)
	require.NoError(t, err)
	w, err := arcsim.New(reg, "siege", nil, nil)
	require.NoError(t, err)
	require.NoError(t, w.Begin("gate"))
	var out bytes.Buffer
	return newREPL(w, &out), &out
}

func TestREPL_Walk(t *testing.T) {
	r, out := newTestREPL(t)
	require.NoError(t, r.Run(strings.NewReader("knock\nflags\nsit\nquit\nsit\n")))

	text := out.String()
	assert.Contains(t, text, "at gate: The Gate\n  [knock] Knock\n  [wait] Wait\n")
	assert.Contains(t, text, "at hall: The Hall\n  [sit] Sit down\n")
	assert.Contains(t, text, "  knocked=true\n")
	assert.Contains(t, text, "end of arc after hall")
	assert.NotContains(t, text, "error:", "input after quit is ignored")
}

func TestREPL_BackRestartAndErrors(t *testing.T) {
	r, out := newTestREPL(t)
	require.NoError(t, r.Run(strings.NewReader("fly\nwait\nback\nrestart\nknock\nbegin\nbegin hall\nhistory\n")))

	text := out.String()
	assert.Contains(t, text, "error: storylet \"gate\" choice \"fly\"")
	assert.Contains(t, text, "end of arc after gate")
	assert.Contains(t, text, "idle: begin <storylet> to start")
	assert.Contains(t, text, "error: arcsim: walk has not started")
	assert.Contains(t, text, "error: usage: begin <storylet>")
	assert.True(t, strings.HasSuffix(text, "  hall\nat hall: The Hall\n  [sit] Sit down\n"))
}

func TestParseFlags(t *testing.T) {
	assert.Equal(t, map[string]bool{"a": true, "b": true}, parseFlags(" a, b ,,"))
	assert.Empty(t, parseFlags(""))
}
