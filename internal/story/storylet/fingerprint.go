package storylet

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint returns a stable 64-bit hash of the canonical JSON encoding of
// storylets, in order. Equal collections always hash equal, so the value is
// usable as a memoization key for derived data.
func Fingerprint(storylets []*Storylet) (uint64, error) {
	d := xxhash.New()
	enc := json.NewEncoder(d)
	for _, s := range storylets {
		if err := enc.Encode(s); err != nil {
			return 0, fmt.Errorf("fingerprinting storylet %q: %w", s.ID, err)
		}
	}
	return d.Sum64(), nil
}
