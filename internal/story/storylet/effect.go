package storylet

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EffectType discriminates the Effect variants on the wire.
type EffectType string

// Known effect types.
const (
	EffectResource      EffectType = "resource"
	EffectFlag          EffectType = "flag"
	EffectSkillXP       EffectType = "skillXp"
	EffectFoundationXP  EffectType = "foundationXp"
	EffectDomainXP      EffectType = "domainXp"
	EffectUnlock        EffectType = "unlock"
	EffectMinigame      EffectType = "minigame"
	EffectClueDiscovery EffectType = "clueDiscovery"
)

// Effect is a state mutation applied when a choice is taken.
//
// The set of implementations is closed: ResourceEffect, FlagEffect,
// XPEffect, UnlockEffect, MinigameEffect, ClueEffect and UnknownEffect.
type Effect interface {
	EffectType() EffectType
	isEffect()
}

// ResourceEffect adds Delta to a resource. The result is not clamped.
type ResourceEffect struct {
	Key   string  `json:"key"`
	Delta float64 `json:"delta"`
}

// FlagEffect overwrites a flag.
type FlagEffect struct {
	Key   string `json:"key"`
	Value bool   `json:"value"`
}

// XPTrack selects which experience pool an XPEffect accumulates into.
type XPTrack string

// Experience tracks.
const (
	TrackSkill      XPTrack = "skill"
	TrackFoundation XPTrack = "foundation"
	TrackDomain     XPTrack = "domain"
)

// XPEffect adds Amount to Key within one experience track.
type XPEffect struct {
	Track  XPTrack `json:"-"`
	Key    string  `json:"key"`
	Amount float64 `json:"amount"`
}

// UnlockEffect forces a storylet into the next active set.
type UnlockEffect struct {
	StoryletID string `json:"storyletId"`
}

// MinigameEffect defers one of two effect lists until the outcome of an
// external minigame is known.
type MinigameEffect struct {
	GameID    string
	OnSuccess []Effect
	OnFailure []Effect
}

// ClueEffect records the discovery of a clue owned by the clue subsystem.
type ClueEffect struct {
	ClueID string `json:"clueId"`
}

// UnknownEffect carries an effect whose type is unrecognised or whose body
// could not be decoded. Raw is the complete original value, or empty when
// the input was not valid JSON.
type UnknownEffect struct {
	Type string
	Raw  json.RawMessage
}

func (ResourceEffect) EffectType() EffectType { return EffectResource }
func (FlagEffect) EffectType() EffectType     { return EffectFlag }
func (e XPEffect) EffectType() EffectType     { return e.Track.EffectType() }
func (UnlockEffect) EffectType() EffectType   { return EffectUnlock }
func (MinigameEffect) EffectType() EffectType { return EffectMinigame }
func (ClueEffect) EffectType() EffectType     { return EffectClueDiscovery }
func (e UnknownEffect) EffectType() EffectType {
	return EffectType(e.Type)
}

func (ResourceEffect) isEffect() {}
func (FlagEffect) isEffect()     {}
func (XPEffect) isEffect()       {}
func (UnlockEffect) isEffect()   {}
func (MinigameEffect) isEffect() {}
func (ClueEffect) isEffect()     {}
func (UnknownEffect) isEffect()  {}

// EffectType returns the wire type for an experience track.
func (t XPTrack) EffectType() EffectType {
	switch t {
	case TrackSkill:
		return EffectSkillXP
	case TrackFoundation:
		return EffectFoundationXP
	case TrackDomain:
		return EffectDomainXP
	default:
		return EffectType(string(t) + "Xp")
	}
}

func trackFor(t EffectType) (XPTrack, bool) {
	switch t {
	case EffectSkillXP:
		return TrackSkill, true
	case EffectFoundationXP:
		return TrackFoundation, true
	case EffectDomainXP:
		return TrackDomain, true
	default:
		return "", false
	}
}

// MarshalJSON implements json.Marshaler.
func (e ResourceEffect) MarshalJSON() ([]byte, error) {
	type plain ResourceEffect
	return json.Marshal(struct {
		Type EffectType `json:"type"`
		plain
	}{EffectResource, plain(e)})
}

// MarshalJSON implements json.Marshaler.
func (e FlagEffect) MarshalJSON() ([]byte, error) {
	type plain FlagEffect
	return json.Marshal(struct {
		Type EffectType `json:"type"`
		plain
	}{EffectFlag, plain(e)})
}

// MarshalJSON implements json.Marshaler.
func (e XPEffect) MarshalJSON() ([]byte, error) {
	type plain XPEffect
	return json.Marshal(struct {
		Type EffectType `json:"type"`
		plain
	}{e.EffectType(), plain(e)})
}

// MarshalJSON implements json.Marshaler.
func (e UnlockEffect) MarshalJSON() ([]byte, error) {
	type plain UnlockEffect
	return json.Marshal(struct {
		Type EffectType `json:"type"`
		plain
	}{EffectUnlock, plain(e)})
}

// MarshalJSON implements json.Marshaler.
func (e ClueEffect) MarshalJSON() ([]byte, error) {
	type plain ClueEffect
	return json.Marshal(struct {
		Type EffectType `json:"type"`
		plain
	}{EffectClueDiscovery, plain(e)})
}

// MarshalJSON implements json.Marshaler.
func (e MinigameEffect) MarshalJSON() ([]byte, error) {
	onSuccess, err := EncodeEffects(e.OnSuccess)
	if err != nil {
		return nil, err
	}
	onFailure, err := EncodeEffects(e.OnFailure)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Type      EffectType        `json:"type"`
		GameID    string            `json:"gameId"`
		OnSuccess []json.RawMessage `json:"onSuccess"`
		OnFailure []json.RawMessage `json:"onFailure"`
	}{EffectMinigame, e.GameID, onSuccess, onFailure})
}

// MarshalJSON re-emits the original value, or {"type":...} when none was kept.
func (e UnknownEffect) MarshalJSON() ([]byte, error) {
	if len(e.Raw) == 0 {
		return json.Marshal(struct {
			Type string `json:"type"`
		}{e.Type})
	}
	return e.Raw, nil
}

// EncodeEffect returns the wire form of a single effect.
func EncodeEffect(e Effect) (json.RawMessage, error) {
	if e == nil {
		return nil, fmt.Errorf("encoding effect: nil effect")
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encoding %s effect: %w", e.EffectType(), err)
	}
	return data, nil
}

// EncodeEffects encodes a list of effects, preserving nil.
func EncodeEffects(effects []Effect) ([]json.RawMessage, error) {
	if effects == nil {
		return nil, nil
	}
	out := make([]json.RawMessage, 0, len(effects))
	for _, e := range effects {
		data, err := EncodeEffect(e)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

// DecodeEffect parses one wire effect. It never fails: unknown types and
// bodies that do not match their declared type become UnknownEffect.
func DecodeEffect(data []byte) Effect {
	raw := append(json.RawMessage(nil), bytes.TrimSpace(data)...)
	if !json.Valid(raw) {
		return UnknownEffect{}
	}
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return UnknownEffect{Raw: raw}
	}
	unknown := UnknownEffect{Type: head.Type, Raw: raw}

	t := EffectType(head.Type)
	switch t {
	case EffectResource:
		var e ResourceEffect
		if decodeBody(raw, &e) != nil || e.Key == "" {
			return unknown
		}
		return e
	case EffectFlag:
		var e FlagEffect
		if decodeBody(raw, &e) != nil || e.Key == "" {
			return unknown
		}
		return e
	case EffectSkillXP, EffectFoundationXP, EffectDomainXP:
		var e XPEffect
		if decodeBody(raw, &e) != nil || e.Key == "" {
			return unknown
		}
		e.Track, _ = trackFor(t)
		return e
	case EffectUnlock:
		var e UnlockEffect
		if decodeBody(raw, &e) != nil || e.StoryletID == "" {
			return unknown
		}
		return e
	case EffectClueDiscovery:
		var e ClueEffect
		if decodeBody(raw, &e) != nil || e.ClueID == "" {
			return unknown
		}
		return e
	case EffectMinigame:
		var body struct {
			Type      string            `json:"type"`
			GameID    string            `json:"gameId"`
			OnSuccess []json.RawMessage `json:"onSuccess"`
			OnFailure []json.RawMessage `json:"onFailure"`
		}
		if err := strictDecode(raw, &body); err != nil || body.GameID == "" {
			return unknown
		}
		return MinigameEffect{
			GameID:    body.GameID,
			OnSuccess: DecodeEffects(body.OnSuccess),
			OnFailure: DecodeEffects(body.OnFailure),
		}
	default:
		return unknown
	}
}

// DecodeEffects decodes a list of wire effects, preserving nil.
func DecodeEffects(raws []json.RawMessage) []Effect {
	if raws == nil {
		return nil
	}
	out := make([]Effect, 0, len(raws))
	for _, r := range raws {
		out = append(out, DecodeEffect(r))
	}
	return out
}

// decodeBody decodes raw into v, rejecting fields other than "type" and v's own.
func decodeBody(raw json.RawMessage, v any) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}
	delete(fields, "type")
	stripped, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return strictDecode(stripped, v)
}

// FlagsSetTrue returns the keys of every flag effect in effects that sets a
// flag to true, descending into both minigame branches, in encounter order.
func FlagsSetTrue(effects []Effect) []string {
	var out []string
	WalkEffects(effects, func(e Effect) {
		if f, ok := e.(FlagEffect); ok && f.Value {
			out = append(out, f.Key)
		}
	})
	return out
}

// WalkEffects calls fn for every effect in effects in order, visiting a
// minigame effect before the contents of its success and failure branches.
func WalkEffects(effects []Effect, fn func(Effect)) {
	for _, e := range effects {
		fn(e)
		if m, ok := e.(MinigameEffect); ok {
			WalkEffects(m.OnSuccess, fn)
			WalkEffects(m.OnFailure, fn)
		}
	}
}
