package layout

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/cory-johannsen/storyweave/internal/observability"
	"github.com/cory-johannsen/storyweave/internal/story/graph"
	"github.com/cory-johannsen/storyweave/internal/story/storylet"
)

// Cache memoizes the most recent layout. A call with input equal to the
// previous call returns the previous Result without recomputing it.
//
// Results returned by a Cache are shared and must not be modified.
type Cache struct {
	mu     sync.Mutex
	logger *zap.Logger
	valid  bool
	key    uint64
	result Result
	hits   int
	misses int
}

// NewCache creates an empty Cache. A nil logger discards cache events.
func NewCache(logger *zap.Logger) *Cache {
	return &Cache{logger: observability.OrNop(logger)}
}

// Compute returns Compute(storylets, edges, cfg), reusing the cached result
// when the input is unchanged.
//
// Postcondition: Returns an error only if the input cannot be fingerprinted.
func (c *Cache) Compute(storylets []*storylet.Storylet, edges []graph.Edge, cfg Config) (Result, error) {
	key, err := inputKey(storylets, edges, cfg)
	if err != nil {
		return Result{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid && c.key == key {
		c.hits++
		c.logger.Debug("layout cache hit", zap.Uint64("key", key))
		return c.result, nil
	}
	c.misses++
	c.result = Compute(storylets, edges, cfg)
	c.key = key
	c.valid = true
	c.logger.Debug("layout computed",
		zap.Uint64("key", key),
		zap.Int("nodes", len(c.result.Nodes)),
		zap.Int("levels", len(c.result.Levels)),
		zap.Bool("cyclic", c.result.Cyclic),
	)
	return c.result, nil
}

// Stats returns the number of cache hits and misses so far.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Invalidate drops the cached result.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
	c.result = Result{}
}

func inputKey(storylets []*storylet.Storylet, edges []graph.Edge, cfg Config) (uint64, error) {
	fp, err := storylet.Fingerprint(storylets)
	if err != nil {
		return 0, err
	}
	d := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], fp)
	_, _ = d.Write(buf[:])
	enc := json.NewEncoder(d)
	if err := enc.Encode(edges); err != nil {
		return 0, fmt.Errorf("hashing edges: %w", err)
	}
	if err := enc.Encode(cfg); err != nil {
		return 0, fmt.Errorf("hashing layout config: %w", err)
	}
	return d.Sum64(), nil
}
