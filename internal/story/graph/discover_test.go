package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/storyweave/internal/story/storylet"
)

func flagTrigger(flags ...string) storylet.Trigger {
	return storylet.FlagTrigger{Flags: flags}
}

func setFlag(key string) storylet.Effect {
	return storylet.FlagEffect{Key: key, Value: true}
}

func TestDiscover_ExplicitEdges(t *testing.T) {
	storylets := []*storylet.Storylet{
		{ID: "a", Choices: []storylet.Choice{
			{ID: "go", Text: "Go to B", NextStoryletID: "b"},
			{ID: "lost", Text: "Go nowhere", NextStoryletID: "missing"},
		}},
		{ID: "b"},
	}
	edges := Discover(storylets, nil)
	assert.Equal(t, []Edge{{From: "a", To: "b", ChoiceText: "Go to B", ChoiceID: "go", EdgeType: EdgeChoice}}, edges)
}

func TestDiscover_FlagFanOut(t *testing.T) {
	storylets := []*storylet.Storylet{
		{ID: "intro", Choices: []storylet.Choice{
			{ID: "meet", Text: "Meet the tutor", Effects: []storylet.Effect{setFlag("metTutor")}},
		}},
		{ID: "lesson", Trigger: flagTrigger("metTutor")},
		{ID: "gossip", Trigger: flagTrigger("other", "metTutor")},
		{ID: "unrelated", Trigger: flagTrigger("other")},
	}
	edges := Discover(storylets, nil)
	require.Len(t, edges, 2)
	for _, e := range edges {
		assert.Equal(t, "intro", e.From)
		assert.Equal(t, EdgeFlag, e.EdgeType)
		assert.Equal(t, "meet", e.ChoiceID)
	}
	assert.Equal(t, "lesson", edges[0].To)
	assert.Equal(t, "gossip", edges[1].To)
}

func TestDiscover_FlagEdgesNotDeduplicatedAcrossChoices(t *testing.T) {
	storylets := []*storylet.Storylet{
		{ID: "a", Choices: []storylet.Choice{
			{ID: "x", Effects: []storylet.Effect{setFlag("F")}},
			{ID: "y", Effects: []storylet.Effect{setFlag("F")}},
		}},
		{ID: "b", Trigger: flagTrigger("F")},
	}
	edges := Discover(storylets, nil)
	require.Len(t, edges, 2)
	assert.Equal(t, "x", edges[0].ChoiceID)
	assert.Equal(t, "y", edges[1].ChoiceID)
}

func TestDiscover_IgnoresFalseFlagsAndSelf(t *testing.T) {
	storylets := []*storylet.Storylet{
		{ID: "a", Trigger: flagTrigger("F"), Choices: []storylet.Choice{
			{ID: "x", Effects: []storylet.Effect{setFlag("F"), storylet.FlagEffect{Key: "G", Value: false}}},
		}},
		{ID: "b", Trigger: flagTrigger("G")},
	}
	assert.Empty(t, Discover(storylets, nil))
}

func TestDiscover_UnlockAndMinigameBranches(t *testing.T) {
	storylets := []*storylet.Storylet{
		{ID: "a", Choices: []storylet.Choice{
			{ID: "x", Effects: []storylet.Effect{
				storylet.UnlockEffect{StoryletID: "b"},
				storylet.UnlockEffect{StoryletID: "ghost"},
				storylet.MinigameEffect{GameID: "g", OnSuccess: []storylet.Effect{setFlag("won")}},
			}},
		}},
		{ID: "b"},
		{ID: "c", Trigger: flagTrigger("won")},
	}
	edges := Discover(storylets, nil)
	require.Len(t, edges, 2)
	assert.Equal(t, Edge{From: "a", To: "b", ChoiceID: "x", EdgeType: EdgeUnlock}, edges[0])
	assert.Equal(t, Edge{From: "a", To: "c", ChoiceID: "x", EdgeType: EdgeFlag}, edges[1])
}

func TestDiscover_ClueOutcomes(t *testing.T) {
	storylets := []*storylet.Storylet{
		{ID: "search", Choices: []storylet.Choice{
			{ID: "look", Text: "Search the room", Effects: []storylet.Effect{storylet.ClueEffect{ClueID: "knife"}}},
		}},
		{ID: "accuse"},
		{ID: "wrongful"},
	}
	clues := []ClueOutcome{
		{ClueID: "knife", SuccessStoryletID: "accuse", FailureStoryletID: "wrongful"},
		{ClueID: "letter", SuccessStoryletID: "accuse"},
	}
	edges := Discover(storylets, clues)
	require.Len(t, edges, 2)
	assert.Equal(t, EdgeClueSuccess, edges[0].EdgeType)
	assert.Equal(t, "accuse", edges[0].To)
	assert.Equal(t, EdgeClueFailure, edges[1].EdgeType)
	assert.Equal(t, "wrongful", edges[1].To)
	assert.Equal(t, "Search the room", edges[1].ChoiceText)
}

func TestDiscover_ClueTargetMissing(t *testing.T) {
	storylets := []*storylet.Storylet{
		{ID: "search", Choices: []storylet.Choice{
			{ID: "look", Effects: []storylet.Effect{storylet.ClueEffect{ClueID: "knife"}}},
		}},
	}
	edges := Discover(storylets, []ClueOutcome{{ClueID: "knife", SuccessStoryletID: "gone"}})
	assert.Empty(t, edges)
}

func TestDiscover_EmptyInputYieldsEmptySlice(t *testing.T) {
	edges := Discover(nil, nil)
	assert.NotNil(t, edges)
	assert.Empty(t, edges)
}

func TestIndex(t *testing.T) {
	adj := Index([]Edge{{From: "a", To: "b"}, {From: "a", To: "c"}, {From: "b", To: "c"}})
	assert.Equal(t, []string{"b", "c"}, adj.Out["a"])
	assert.Equal(t, []string{"a", "b"}, adj.In["c"])
	assert.Empty(t, adj.In["a"])
}

func TestLoadCluesFromBytes(t *testing.T) {
	clues, err := LoadCluesFromBytes([]byte(`
clues:
  - clue_id: knife
    success_storylet_id: accuse
    failure_storylet_id: wrongful
`))
	require.NoError(t, err)
	assert.Equal(t, []ClueOutcome{{ClueID: "knife", SuccessStoryletID: "accuse", FailureStoryletID: "wrongful"}}, clues)

	_, err = LoadCluesFromBytes([]byte("clues:\n  - success_storylet_id: x\n"))
	assert.Error(t, err)

	_, err = LoadCluesFromBytes([]byte("clues:\n  - clue_id: x\n    bogus: y\n"))
	assert.Error(t, err)
}

// Property-based tests

func TestPropertyDiscoverIsDeterministicAndReadOnly(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "n")
		flags := []string{"A", "B", "C"}
		var storylets []*storylet.Storylet
		for i := 0; i < n; i++ {
			s := &storylet.Storylet{ID: string(rune('a' + i)), Trigger: flagTrigger(rapid.SampledFrom(flags).Draw(t, "req"))}
			nc := rapid.IntRange(0, 2).Draw(t, "choices")
			for j := 0; j < nc; j++ {
				s.Choices = append(s.Choices, storylet.Choice{
					ID:             string(rune('0' + j)),
					Effects:        []storylet.Effect{setFlag(rapid.SampledFrom(flags).Draw(t, "set"))},
					NextStoryletID: string(rune('a' + rapid.IntRange(0, n).Draw(t, "next"))),
				})
			}
			storylets = append(storylets, s)
		}
		before, err := storylet.Fingerprint(storylets)
		if err != nil {
			t.Fatalf("fingerprint: %v", err)
		}
		first := Discover(storylets, nil)
		second := Discover(storylets, nil)
		after, _ := storylet.Fingerprint(storylets)
		assert.Equal(t, first, second)
		assert.Equal(t, before, after)

		known := map[string]bool{}
		for _, s := range storylets {
			known[s.ID] = true
		}
		for _, e := range first {
			assert.True(t, known[e.From])
			assert.True(t, known[e.To])
		}
	})
}
