package storylet

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func f64(v float64) *float64 { return &v }
func intp(v int) *int        { return &v }

func TestStorylet_RoundTripResourceOperatorTrigger(t *testing.T) {
	original := Storylet{
		ID:          "market",
		Name:        "Market Day",
		Description: "Stalls line the square.",
		Trigger: ResourceTrigger{Conditions: map[string]ResourceCondition{
			"energy": {Min: f64(20)},
			"money":  {Max: f64(100), NotEquals: f64(13)},
			"rep":    {Exact: f64(3)},
		}},
		Choices: []Choice{
			{
				ID:   "buy",
				Text: "Buy bread",
				Effects: []Effect{
					ResourceEffect{Key: "money", Delta: -4},
					FlagEffect{Key: "hasBread", Value: true},
					XPEffect{Track: TrackSkill, Key: "haggling", Amount: 2},
				},
				NextStoryletID: "bakery",
			},
		},
		DeploymentStatus: StatusStage,
		StoryArc:         "town",
		PrimaryNPC:       "baker",
		InvolvedNPCs:     []string{"baker", "guard"},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Storylet
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)
}

func TestStorylet_WireShape(t *testing.T) {
	s := Storylet{
		ID:      "s1",
		Name:    "One",
		Trigger: FlagTrigger{Flags: []string{"A"}},
		Choices: []Choice{{ID: "c", Text: "go", Effects: []Effect{UnlockEffect{StoryletID: "s2"}}}},
	}
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "s1",
		"name": "One",
		"description": "",
		"trigger": {"type": "flag", "conditions": {"flags": ["A"]}},
		"choices": [{"id": "c", "text": "go", "effects": [{"type": "unlock", "storyletId": "s2"}]}]
	}`, string(data))
}

func TestStorylet_DefaultStatusIsLive(t *testing.T) {
	var s Storylet
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","name":"X","trigger":null,"choices":[]}`), &s))
	assert.Equal(t, DeploymentStatus(""), s.DeploymentStatus)
	assert.Equal(t, StatusLive, s.Status())
	assert.Nil(t, s.Trigger)
}

func TestDecodeTrigger_Variants(t *testing.T) {
	tt := DecodeTrigger([]byte(`{"type":"time","conditions":{"day":3}}`))
	assert.Equal(t, TimeTrigger{Day: intp(3)}, tt)

	ft := DecodeTrigger([]byte(`{"type":"flag","conditions":{"flags":["A","B"]}}`))
	assert.Equal(t, FlagTrigger{Flags: []string{"A", "B"}}, ft)

	rt := DecodeTrigger([]byte(`{"type":"resource","conditions":{"energy":{"min":20},"money":5}}`))
	require.IsType(t, ResourceTrigger{}, rt)
	res := rt.(ResourceTrigger)
	assert.Equal(t, []string{"energy", "money"}, res.Keys())
	assert.Equal(t, f64(20), res.Conditions["energy"].Min)
	assert.Equal(t, f64(5), res.Conditions["money"].Exact)
}

func TestDecodeTrigger_MalformedBecomesUnknown(t *testing.T) {
	cases := map[string]string{
		"unknown type":         `{"type":"moon","conditions":{"phase":"full"}}`,
		"time without fields":  `{"type":"time","conditions":{}}`,
		"time wrong type":      `{"type":"time","conditions":{"day":"monday"}}`,
		"flag not list":        `{"type":"flag","conditions":{"flags":"A"}}`,
		"flag missing conds":   `{"type":"flag"}`,
		"resource empty":       `{"type":"resource","conditions":{}}`,
		"resource not object":  `{"type":"resource","conditions":[1,2]}`,
		"not an object at all": `"sometimes"`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			trig := DecodeTrigger([]byte(raw))
			assert.IsType(t, UnknownTrigger{}, trig)
		})
	}
}

func TestDecodeTrigger_UnknownRoundTrips(t *testing.T) {
	raw := `{"type":"moon","conditions":{"phase":"full"}}`
	trig := DecodeTrigger([]byte(raw))
	out, err := EncodeTrigger(trig)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestDecodeTrigger_NonObjectRoundTrips(t *testing.T) {
	for _, raw := range []string{`5`, `"sometimes"`, `[1,2]`} {
		trig := DecodeTrigger([]byte(raw))
		require.IsType(t, UnknownTrigger{}, trig, raw)
		out, err := EncodeTrigger(trig)
		require.NoError(t, err)
		assert.JSONEq(t, raw, string(out))
	}
}

func TestStorylet_NumericTriggerRoundTrips(t *testing.T) {
	var s Storylet
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","trigger":5,"choices":[]}`), &s))
	out, err := json.Marshal(s)
	require.NoError(t, err)
	var wire map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &wire))
	assert.JSONEq(t, `5`, string(wire["trigger"]))
}

func TestResourceCondition_Holds(t *testing.T) {
	cases := []struct {
		name  string
		cond  ResourceCondition
		value float64
		want  bool
	}{
		{"exact hit", ResourceCondition{Exact: f64(5)}, 5, true},
		{"exact miss", ResourceCondition{Exact: f64(5)}, 6, false},
		{"min inclusive", ResourceCondition{Min: f64(20)}, 20, true},
		{"min below", ResourceCondition{Min: f64(20)}, 19.5, false},
		{"max inclusive", ResourceCondition{Max: f64(100)}, 100, true},
		{"max above", ResourceCondition{Max: f64(100)}, 101, false},
		{"greater_than strict", ResourceCondition{GreaterThan: f64(3)}, 3, false},
		{"less_than strict", ResourceCondition{LessThan: f64(3)}, 2, true},
		{"equals", ResourceCondition{Equals: f64(7)}, 7, true},
		{"not_equals", ResourceCondition{NotEquals: f64(7)}, 7, false},
		{"range", ResourceCondition{Min: f64(1), Max: f64(3)}, 2, true},
		{"no operators", ResourceCondition{}, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.cond.Holds(tc.value))
		})
	}
}

func TestResourceCondition_MalformedNeverHolds(t *testing.T) {
	for _, raw := range []string{`"lots"`, `{"min":"x"}`, `{"atLeast":3}`, `null`, `[1]`} {
		var c ResourceCondition
		require.NoError(t, json.Unmarshal([]byte(raw), &c))
		assert.True(t, c.Malformed(), raw)
		assert.False(t, c.Holds(0), raw)

		out, err := json.Marshal(c)
		require.NoError(t, err)
		assert.JSONEq(t, raw, string(out), "malformed condition re-encodes verbatim")
	}
}

func TestDecodeEffect_Variants(t *testing.T) {
	cases := []struct {
		raw  string
		want Effect
	}{
		{`{"type":"resource","key":"money","delta":10}`, ResourceEffect{Key: "money", Delta: 10}},
		{`{"type":"flag","key":"met","value":true}`, FlagEffect{Key: "met", Value: true}},
		{`{"type":"skillXp","key":"lockpick","amount":3}`, XPEffect{Track: TrackSkill, Key: "lockpick", Amount: 3}},
		{`{"type":"foundationXp","key":"body","amount":1}`, XPEffect{Track: TrackFoundation, Key: "body", Amount: 1}},
		{`{"type":"domainXp","key":"lore","amount":0.5}`, XPEffect{Track: TrackDomain, Key: "lore", Amount: 0.5}},
		{`{"type":"unlock","storyletId":"s9"}`, UnlockEffect{StoryletID: "s9"}},
		{`{"type":"clueDiscovery","clueId":"bloody-knife"}`, ClueEffect{ClueID: "bloody-knife"}},
	}
	for _, tc := range cases {
		raw, want := tc.raw, tc.want
		got := DecodeEffect([]byte(raw))
		assert.Equal(t, want, got, raw)

		out, err := EncodeEffect(got)
		require.NoError(t, err)
		assert.JSONEq(t, raw, string(out))
	}
}

func TestDecodeEffect_Minigame(t *testing.T) {
	raw := `{"type":"minigame","gameId":"lockpick","onSuccess":[{"type":"flag","key":"open","value":true}],"onFailure":[{"type":"resource","key":"health","delta":-5}]}`
	got := DecodeEffect([]byte(raw))
	assert.Equal(t, MinigameEffect{
		GameID:    "lockpick",
		OnSuccess: []Effect{FlagEffect{Key: "open", Value: true}},
		OnFailure: []Effect{ResourceEffect{Key: "health", Delta: -5}},
	}, got)

	out, err := EncodeEffect(got)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestDecodeEffect_UnknownAndMalformed(t *testing.T) {
	for _, raw := range []string{
		`{"type":"teleport","to":"moon"}`,
		`{"type":"resource","key":"money","delta":"ten"}`,
		`{"type":"resource","delta":1}`,
		`{"type":"flag","key":"x","value":true,"extra":1}`,
		`{"type":"minigame","onSuccess":[]}`,
	} {
		got := DecodeEffect([]byte(raw))
		require.IsType(t, UnknownEffect{}, got, raw)
		out, err := EncodeEffect(got)
		require.NoError(t, err)
		assert.JSONEq(t, raw, string(out))
	}
}

func TestDecodeEffect_InvalidJSONStillEncodes(t *testing.T) {
	got := DecodeEffect([]byte("{"))
	require.IsType(t, UnknownEffect{}, got)
	out, err := EncodeEffect(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":""}`, string(out))
}

func TestFlagsSetTrue_DescendsIntoMinigames(t *testing.T) {
	effects := []Effect{
		FlagEffect{Key: "a", Value: true},
		FlagEffect{Key: "b", Value: false},
		MinigameEffect{
			GameID:    "g",
			OnSuccess: []Effect{FlagEffect{Key: "c", Value: true}},
			OnFailure: []Effect{FlagEffect{Key: "d", Value: true}},
		},
	}
	assert.Equal(t, []string{"a", "c", "d"}, FlagsSetTrue(effects))
}

func TestStatusSet(t *testing.T) {
	set := NewStatusSet(StatusLive)
	assert.True(t, set.Contains(""))
	assert.True(t, set.Contains(StatusLive))
	assert.False(t, set.Contains(StatusDev))

	parsed, err := ParseStatusSet([]string{"dev", "stage"})
	require.NoError(t, err)
	assert.True(t, parsed.Contains(StatusDev))
	assert.False(t, parsed.Contains(""))

	_, err = ParseStatusSet([]string{"prod"})
	assert.Error(t, err)
}

func TestStorylet_Validate(t *testing.T) {
	s := &Storylet{ID: "x", Choices: []Choice{{ID: "a"}}}
	assert.NoError(t, s.Validate())

	assert.Error(t, (&Storylet{}).Validate())
	assert.NoError(t, (&Storylet{ID: "x", DeploymentStatus: "prod"}).Validate(), "unknown status is reported, not rejected")
	assert.NoError(t, (&Storylet{ID: "x", Choices: []Choice{{Text: "no id"}}}).Validate(), "empty choice id is reported, not rejected")
}

func TestStorylet_ChoiceLookup(t *testing.T) {
	s := &Storylet{ID: "x", Choices: []Choice{{ID: "a", Text: "A"}, {ID: "b", Text: "B"}}}
	c, ok := s.Choice("b")
	assert.True(t, ok)
	assert.Equal(t, "B", c.Text)
	_, ok = s.Choice("z")
	assert.False(t, ok)
}

// Property-based tests

func genEffect(t *rapid.T, depth int) Effect {
	kinds := 6
	if depth > 0 {
		kinds = 7
	}
	key := rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "key")
	switch rapid.IntRange(0, kinds-1).Draw(t, "kind") {
	case 0:
		return ResourceEffect{Key: key, Delta: float64(rapid.IntRange(-100, 100).Draw(t, "delta"))}
	case 1:
		return FlagEffect{Key: key, Value: rapid.Bool().Draw(t, "value")}
	case 2:
		tracks := []XPTrack{TrackSkill, TrackFoundation, TrackDomain}
		track := tracks[rapid.IntRange(0, 2).Draw(t, "track")]
		return XPEffect{Track: track, Key: key, Amount: float64(rapid.IntRange(0, 50).Draw(t, "amount"))}
	case 3:
		return UnlockEffect{StoryletID: key}
	case 4:
		return ClueEffect{ClueID: key}
	case 5:
		return FlagEffect{Key: key, Value: true}
	default:
		n := rapid.IntRange(1, 3).Draw(t, "branch")
		m := MinigameEffect{GameID: key}
		for i := 0; i < n; i++ {
			m.OnSuccess = append(m.OnSuccess, genEffect(t, depth-1))
			m.OnFailure = append(m.OnFailure, genEffect(t, depth-1))
		}
		return m
	}
}

func genTrigger(t *rapid.T) Trigger {
	switch rapid.IntRange(0, 2).Draw(t, "trigger") {
	case 0:
		return TimeTrigger{Day: intp(rapid.IntRange(0, 30).Draw(t, "day"))}
	case 1:
		return FlagTrigger{Flags: rapid.SliceOfN(rapid.StringMatching(`[A-Z]{1,4}`), 1, 4).Draw(t, "flags")}
	default:
		return ResourceTrigger{Conditions: map[string]ResourceCondition{
			"energy": {Min: f64(float64(rapid.IntRange(0, 100).Draw(t, "min")))},
		}}
	}
}

func TestPropertyStoryletJSONRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := Storylet{
			ID:      rapid.StringMatching(`s[0-9]{1,3}`).Draw(t, "id"),
			Name:    rapid.String().Draw(t, "name"),
			Trigger: genTrigger(t),
		}
		nChoices := rapid.IntRange(1, 3).Draw(t, "choices")
		for i := 0; i < nChoices; i++ {
			c := Choice{ID: rapid.StringMatching(`c[0-9]`).Draw(t, "cid"), Text: "t"}
			nEff := rapid.IntRange(1, 4).Draw(t, "effects")
			for j := 0; j < nEff; j++ {
				c.Effects = append(c.Effects, genEffect(t, 1))
			}
			s.Choices = append(s.Choices, c)
		}

		data, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var decoded Storylet
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		assert.Equal(t, s, decoded)
	})
}
