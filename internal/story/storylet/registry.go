package storylet

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Registry holds storylets keyed by ID in registry order.
//
// Invariant: every ID is unique and order lists each ID exactly once.
type Registry struct {
	order []string
	byID  map[string]*Storylet
}

// NewRegistry builds a Registry preserving the order of storylets.
//
// Precondition: storylets must not contain nil entries.
// Postcondition: Returns an error on an invalid storylet or duplicate ID.
func NewRegistry(storylets []*Storylet) (*Registry, error) {
	r := &Registry{
		order: make([]string, 0, len(storylets)),
		byID:  make(map[string]*Storylet, len(storylets)),
	}
	for _, s := range storylets {
		if err := r.add(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) add(s *Storylet) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if _, exists := r.byID[s.ID]; exists {
		return fmt.Errorf("duplicate storylet ID %q", s.ID)
	}
	r.byID[s.ID] = s
	r.order = append(r.order, s.ID)
	return nil
}

// Get returns the storylet for id, or (nil, false) if not found.
func (r *Registry) Get(id string) (*Storylet, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// Len returns the number of storylets.
func (r *Registry) Len() int {
	return len(r.order)
}

// IDs returns storylet IDs in registry order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// All returns storylets in registry order.
func (r *Registry) All() []*Storylet {
	out := make([]*Storylet, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Arc returns the storylets belonging to arc, in registry order.
func (r *Registry) Arc(arc string) []*Storylet {
	var out []*Storylet
	for _, id := range r.order {
		if s := r.byID[id]; s.StoryArc == arc {
			out = append(out, s)
		}
	}
	return out
}

// Arcs returns the distinct non-empty arc names in order of first appearance.
func (r *Registry) Arcs() []string {
	seen := make(map[string]bool)
	var out []string
	for _, id := range r.order {
		arc := r.byID[id].StoryArc
		if arc == "" || seen[arc] {
			continue
		}
		seen[arc] = true
		out = append(out, arc)
	}
	return out
}

// MarshalJSON encodes the registry as an id-keyed object in registry order.
func (r *Registry) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range r.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.byID[id])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// DecodeRegistry parses an id-keyed JSON object of storylets. Document order
// becomes registry order.
//
// Postcondition: Returns an error if the document is not an object, a key
// does not match its storylet's id, or an id repeats.
func DecodeRegistry(data []byte) (*Registry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parsing registry JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("parsing registry JSON: expected object, got %v", tok)
	}

	r := &Registry{byID: make(map[string]*Storylet)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing registry JSON: %w", err)
		}
		key := tok.(string)
		var s Storylet
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("parsing storylet %q: %w", key, err)
		}
		if s.ID == "" {
			s.ID = key
		}
		if s.ID != key {
			return nil, fmt.Errorf("registry key %q does not match storylet ID %q", key, s.ID)
		}
		if err := r.add(&s); err != nil {
			return nil, err
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parsing registry JSON: %w", err)
	}
	return r, nil
}

// UnmarshalJSON implements json.Unmarshaler via DecodeRegistry.
func (r *Registry) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeRegistry(data)
	if err != nil {
		return err
	}
	*r = *decoded
	return nil
}
