package storylet

// WorldState is the host-owned game state the engine reads and returns.
// It contains only JSON-native maps and slices so a save layer can persist
// it without engine-specific logic.
type WorldState struct {
	Flags     map[string]bool    `json:"flags"`
	Resources map[string]float64 `json:"resources"`
	Day       int                `json:"day"`
	Completed []string           `json:"completed"`

	SkillXP      map[string]float64 `json:"skillXp,omitempty"`
	FoundationXP map[string]float64 `json:"foundationXp,omitempty"`
	DomainXP     map[string]float64 `json:"domainXp,omitempty"`
}

// Week returns the 1-based week containing Day, or 0 before day 1.
func (w WorldState) Week() int {
	if w.Day < 1 {
		return 0
	}
	return (w.Day-1)/7 + 1
}

// IsCompleted reports whether id is in the completed list.
func (w WorldState) IsCompleted(id string) bool {
	for _, c := range w.Completed {
		if c == id {
			return true
		}
	}
	return false
}

// CompletedSet returns the completed ids as a set.
func (w WorldState) CompletedSet() map[string]bool {
	set := make(map[string]bool, len(w.Completed))
	for _, c := range w.Completed {
		set[c] = true
	}
	return set
}

// Clone returns a deep copy of w. Flags, Resources and Completed are always
// non-nil in the copy; XP maps stay nil when absent.
//
// Postcondition: mutating the result never affects w.
func (w WorldState) Clone() WorldState {
	out := WorldState{
		Flags:     make(map[string]bool, len(w.Flags)),
		Resources: make(map[string]float64, len(w.Resources)),
		Day:       w.Day,
		Completed: append(make([]string, 0, len(w.Completed)), w.Completed...),

		SkillXP:      cloneFloats(w.SkillXP),
		FoundationXP: cloneFloats(w.FoundationXP),
		DomainXP:     cloneFloats(w.DomainXP),
	}
	for k, v := range w.Flags {
		out.Flags[k] = v
	}
	for k, v := range w.Resources {
		out.Resources[k] = v
	}
	return out
}

// XP returns the experience map for track, allocating it if needed.
//
// Precondition: track is one of TrackSkill, TrackFoundation, TrackDomain.
// Postcondition: Returns nil for an unknown track.
func (w *WorldState) XP(track XPTrack) map[string]float64 {
	var m *map[string]float64
	switch track {
	case TrackSkill:
		m = &w.SkillXP
	case TrackFoundation:
		m = &w.FoundationXP
	case TrackDomain:
		m = &w.DomainXP
	default:
		return nil
	}
	if *m == nil {
		*m = make(map[string]float64)
	}
	return *m
}

func cloneFloats(in map[string]float64) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
