// Package storylet provides the narrative data model: storylets, their
// triggers and choices, choice effects, world state and the storylet registry.
package storylet

import (
	"encoding/json"
	"fmt"
)

// DeploymentStatus controls whether a storylet is visible in a given build.
type DeploymentStatus string

// Deployment statuses.
const (
	StatusDev   DeploymentStatus = "dev"
	StatusStage DeploymentStatus = "stage"
	StatusLive  DeploymentStatus = "live"
)

// Valid reports whether s is one of the three known statuses.
func (s DeploymentStatus) Valid() bool {
	switch s {
	case StatusDev, StatusStage, StatusLive:
		return true
	}
	return false
}

// OrDefault returns s, or StatusLive when s is empty.
func (s DeploymentStatus) OrDefault() DeploymentStatus {
	if s == "" {
		return StatusLive
	}
	return s
}

// StatusSet is the set of deployment statuses currently visible.
type StatusSet map[DeploymentStatus]bool

// NewStatusSet builds a StatusSet from the given statuses.
func NewStatusSet(statuses ...DeploymentStatus) StatusSet {
	set := make(StatusSet, len(statuses))
	for _, s := range statuses {
		set[s] = true
	}
	return set
}

// ParseStatusSet builds a StatusSet from status tokens.
//
// Postcondition: Returns an error naming the first unknown token.
func ParseStatusSet(tokens []string) (StatusSet, error) {
	set := make(StatusSet, len(tokens))
	for _, tok := range tokens {
		s := DeploymentStatus(tok)
		if !s.Valid() {
			return nil, fmt.Errorf("unknown deployment status %q", tok)
		}
		set[s] = true
	}
	return set, nil
}

// Contains reports whether a storylet with status s is visible. An empty
// status counts as live.
func (set StatusSet) Contains(s DeploymentStatus) bool {
	return set[s.OrDefault()]
}

// Choice is a player option within a storylet.
type Choice struct {
	// ID is unique within the owning storylet.
	ID   string
	Text string
	// Effects are applied in order when the choice is taken.
	Effects []Effect
	// NextStoryletID optionally names the storylet this choice leads to.
	NextStoryletID string
}

type wireChoice struct {
	ID             string            `json:"id"`
	Text           string            `json:"text"`
	Effects        []json.RawMessage `json:"effects"`
	NextStoryletID string            `json:"nextStoryletId,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (c Choice) MarshalJSON() ([]byte, error) {
	effects, err := EncodeEffects(c.Effects)
	if err != nil {
		return nil, fmt.Errorf("choice %q: %w", c.ID, err)
	}
	return json.Marshal(wireChoice{
		ID:             c.ID,
		Text:           c.Text,
		Effects:        effects,
		NextStoryletID: c.NextStoryletID,
	})
}

// UnmarshalJSON implements json.Unmarshaler. Individual effects never fail
// to decode; see DecodeEffect.
func (c *Choice) UnmarshalJSON(data []byte) error {
	var w wireChoice
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = Choice{
		ID:             w.ID,
		Text:           w.Text,
		Effects:        DecodeEffects(w.Effects),
		NextStoryletID: w.NextStoryletID,
	}
	return nil
}

// Storylet is a single narrative fragment.
type Storylet struct {
	ID          string
	Name        string
	Description string
	// Trigger gates availability; nil is never satisfied.
	Trigger Trigger
	Choices []Choice
	// DeploymentStatus is empty when unset, which means live.
	DeploymentStatus DeploymentStatus
	StoryArc         string
	// PrimaryNPC and InvolvedNPCs are opaque ids owned by the NPC subsystem.
	PrimaryNPC   string
	InvolvedNPCs []string
}

type wireStorylet struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Description      string           `json:"description"`
	Trigger          json.RawMessage  `json:"trigger"`
	Choices          []Choice         `json:"choices"`
	DeploymentStatus DeploymentStatus `json:"deploymentStatus,omitempty"`
	StoryArc         string           `json:"storyArc,omitempty"`
	PrimaryNPC       string           `json:"primaryNPC,omitempty"`
	InvolvedNPCs     []string         `json:"involvedNPCs,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (s Storylet) MarshalJSON() ([]byte, error) {
	trigger, err := EncodeTrigger(s.Trigger)
	if err != nil {
		return nil, fmt.Errorf("storylet %q: %w", s.ID, err)
	}
	return json.Marshal(wireStorylet{
		ID:               s.ID,
		Name:             s.Name,
		Description:      s.Description,
		Trigger:          trigger,
		Choices:          s.Choices,
		DeploymentStatus: s.DeploymentStatus,
		StoryArc:         s.StoryArc,
		PrimaryNPC:       s.PrimaryNPC,
		InvolvedNPCs:     s.InvolvedNPCs,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Storylet) UnmarshalJSON(data []byte) error {
	var w wireStorylet
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = Storylet{
		ID:               w.ID,
		Name:             w.Name,
		Description:      w.Description,
		Trigger:          DecodeTrigger(w.Trigger),
		Choices:          w.Choices,
		DeploymentStatus: w.DeploymentStatus,
		StoryArc:         w.StoryArc,
		PrimaryNPC:       w.PrimaryNPC,
		InvolvedNPCs:     w.InvolvedNPCs,
	}
	return nil
}

// Status returns the effective deployment status.
func (s *Storylet) Status() DeploymentStatus {
	return s.DeploymentStatus.OrDefault()
}

// Choice returns the choice with the given id.
//
// Postcondition: Returns (choice, true) if found, or (Choice{}, false) otherwise.
func (s *Storylet) Choice(id string) (Choice, bool) {
	for _, c := range s.Choices {
		if c.ID == id {
			return c, true
		}
	}
	return Choice{}, false
}

// RequiredFlags returns the flags listed by a flag trigger, or nil for any
// other trigger.
func (s *Storylet) RequiredFlags() []string {
	if ft, ok := s.Trigger.(FlagTrigger); ok {
		return ft.Flags
	}
	return nil
}

// Validate checks the invariant a registry depends on: a non-empty ID.
// Unknown deployment statuses and empty choice ids are content issues, not
// load errors; the validate package reports them.
//
// Postcondition: Returns nil if the storylet can be registered.
func (s *Storylet) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("storylet ID must not be empty")
	}
	return nil
}
