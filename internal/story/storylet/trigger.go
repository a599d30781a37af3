package storylet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// TriggerType discriminates the Trigger variants on the wire.
type TriggerType string

// Known trigger types.
const (
	TriggerTime     TriggerType = "time"
	TriggerFlag     TriggerType = "flag"
	TriggerResource TriggerType = "resource"
)

// Trigger is the condition gating a storylet's availability.
//
// The set of implementations is closed: TimeTrigger, FlagTrigger,
// ResourceTrigger and UnknownTrigger.
type Trigger interface {
	TriggerType() TriggerType
	isTrigger()
}

// TimeTrigger gates on the world clock. At least one of Day or Week is set.
type TimeTrigger struct {
	Day  *int `json:"day,omitempty"`
	Week *int `json:"week,omitempty"`
}

// FlagTrigger is satisfied when any listed flag is true.
type FlagTrigger struct {
	Flags []string `json:"flags"`
}

// ResourceTrigger is satisfied when every listed condition holds.
type ResourceTrigger struct {
	Conditions map[string]ResourceCondition
}

// UnknownTrigger carries a trigger whose type is unrecognised or whose
// conditions could not be decoded. It is never satisfied. When Raw holds the
// decoded value it re-encodes to exactly that JSON, including values that
// are not objects.
type UnknownTrigger struct {
	Type       string
	Conditions json.RawMessage
	Raw        json.RawMessage
}

func (TimeTrigger) TriggerType() TriggerType     { return TriggerTime }
func (FlagTrigger) TriggerType() TriggerType     { return TriggerFlag }
func (ResourceTrigger) TriggerType() TriggerType { return TriggerResource }
func (u UnknownTrigger) TriggerType() TriggerType {
	return TriggerType(u.Type)
}

func (TimeTrigger) isTrigger()     {}
func (FlagTrigger) isTrigger()     {}
func (ResourceTrigger) isTrigger() {}
func (UnknownTrigger) isTrigger()  {}

// Keys returns the resource keys in sorted order.
func (r ResourceTrigger) Keys() []string {
	keys := make([]string, 0, len(r.Conditions))
	for k := range r.Conditions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ResourceCondition is either a bare number (equality shorthand) or an
// operator object. A condition that failed to decode is Malformed and never
// holds.
type ResourceCondition struct {
	Exact       *float64
	Min         *float64
	Max         *float64
	GreaterThan *float64
	LessThan    *float64
	Equals      *float64
	NotEquals   *float64

	raw json.RawMessage
}

// Malformed reports whether the condition could not be decoded.
func (c ResourceCondition) Malformed() bool {
	return c.raw != nil
}

// Holds reports whether value satisfies every operator present in c.
// A condition with no operators, or a malformed one, does not hold.
func (c ResourceCondition) Holds(value float64) bool {
	if c.Malformed() {
		return false
	}
	if c.Exact != nil {
		return value == *c.Exact
	}
	seen := false
	check := func(op *float64, ok func(float64) bool) bool {
		if op == nil {
			return true
		}
		seen = true
		return ok(*op)
	}
	if !check(c.Min, func(v float64) bool { return value >= v }) ||
		!check(c.Max, func(v float64) bool { return value <= v }) ||
		!check(c.GreaterThan, func(v float64) bool { return value > v }) ||
		!check(c.LessThan, func(v float64) bool { return value < v }) ||
		!check(c.Equals, func(v float64) bool { return value == v }) ||
		!check(c.NotEquals, func(v float64) bool { return value != v }) {
		return false
	}
	return seen
}

type resourceOps struct {
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	GreaterThan *float64 `json:"greater_than,omitempty"`
	LessThan    *float64 `json:"less_than,omitempty"`
	Equals      *float64 `json:"equals,omitempty"`
	NotEquals   *float64 `json:"not_equals,omitempty"`
}

// MarshalJSON encodes the bare-number shorthand as a number and operator
// conditions as an object.
func (c ResourceCondition) MarshalJSON() ([]byte, error) {
	if c.raw != nil {
		return c.raw, nil
	}
	if c.Exact != nil {
		return json.Marshal(*c.Exact)
	}
	return json.Marshal(resourceOps{
		Min:         c.Min,
		Max:         c.Max,
		GreaterThan: c.GreaterThan,
		LessThan:    c.LessThan,
		Equals:      c.Equals,
		NotEquals:   c.NotEquals,
	})
}

// UnmarshalJSON never fails: anything other than a number or an object of
// known numeric operators is kept verbatim and marked malformed.
func (c *ResourceCondition) UnmarshalJSON(data []byte) error {
	*c = ResourceCondition{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		c.raw = json.RawMessage("null")
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		c.Exact = &n
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var ops resourceOps
	if err := dec.Decode(&ops); err != nil {
		c.raw = append(json.RawMessage(nil), data...)
		return nil
	}
	c.Min = ops.Min
	c.Max = ops.Max
	c.GreaterThan = ops.GreaterThan
	c.LessThan = ops.LessThan
	c.Equals = ops.Equals
	c.NotEquals = ops.NotEquals
	return nil
}

type wireTrigger struct {
	Type       string          `json:"type"`
	Conditions json.RawMessage `json:"conditions,omitempty"`
}

// EncodeTrigger returns the {type, conditions} wire form of t.
//
// Postcondition: a nil trigger encodes to JSON null.
func EncodeTrigger(t Trigger) (json.RawMessage, error) {
	if t == nil {
		return json.RawMessage("null"), nil
	}
	var (
		conds []byte
		err   error
	)
	switch tt := t.(type) {
	case TimeTrigger:
		conds, err = json.Marshal(tt)
	case FlagTrigger:
		conds, err = json.Marshal(tt)
	case ResourceTrigger:
		conds, err = json.Marshal(tt.Conditions)
	case UnknownTrigger:
		if len(tt.Raw) > 0 {
			return tt.Raw, nil
		}
		conds = tt.Conditions
	default:
		return nil, fmt.Errorf("unsupported trigger %T", t)
	}
	if err != nil {
		return nil, fmt.Errorf("encoding %s trigger: %w", t.TriggerType(), err)
	}
	return json.Marshal(wireTrigger{Type: string(t.TriggerType()), Conditions: conds})
}

// DecodeTrigger parses the {type, conditions} wire form. Malformed or
// unknown triggers decode to UnknownTrigger rather than failing, so that a
// single bad storylet never prevents the rest of a registry from loading.
//
// Postcondition: JSON null or empty input yields a nil Trigger.
func DecodeTrigger(data []byte) Trigger {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	raw := append(json.RawMessage(nil), trimmed...)
	var w wireTrigger
	if err := json.Unmarshal(trimmed, &w); err != nil {
		if !json.Valid(raw) {
			return UnknownTrigger{}
		}
		return UnknownTrigger{Raw: raw}
	}
	unknown := UnknownTrigger{Type: w.Type, Conditions: w.Conditions, Raw: raw}

	switch TriggerType(w.Type) {
	case TriggerTime:
		var tt TimeTrigger
		if err := strictDecode(w.Conditions, &tt); err != nil || (tt.Day == nil && tt.Week == nil) {
			return unknown
		}
		return tt
	case TriggerFlag:
		var ft FlagTrigger
		if err := strictDecode(w.Conditions, &ft); err != nil {
			return unknown
		}
		return ft
	case TriggerResource:
		var conds map[string]ResourceCondition
		if err := json.Unmarshal(w.Conditions, &conds); err != nil || len(conds) == 0 {
			return unknown
		}
		return ResourceTrigger{Conditions: conds}
	default:
		return unknown
	}
}

func strictDecode(data []byte, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("missing conditions")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
