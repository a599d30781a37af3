package minigame

import (
	"crypto/rand"
	"fmt"
	"math/big"
	mrand "math/rand/v2"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Dice is a parsed dice expression such as "d20", "2d6+3" or "4d6kh3".
type Dice struct {
	Raw      string
	Count    int
	Sides    int
	Modifier int
	// KeepHighest keeps only the N highest dice when > 0.
	KeepHighest int
}

const maxDice = 100

var diceRe = regexp.MustCompile(`^(\d*)d(\d+)(?:kh(\d+))?([+-]\d+)?$`)

// ParseDice parses a dice expression.
//
// Postcondition: Count >= 1, Sides >= 2 and 0 <= KeepHighest < Count on success.
func ParseDice(expr string) (Dice, error) {
	m := diceRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(expr)))
	if m == nil {
		return Dice{}, fmt.Errorf("dice: malformed expression %q", expr)
	}
	d := Dice{Raw: expr, Count: 1}
	for _, f := range []struct {
		text string
		dst  *int
	}{{m[1], &d.Count}, {m[2], &d.Sides}, {m[3], &d.KeepHighest}, {m[4], &d.Modifier}} {
		if f.text == "" {
			continue
		}
		n, err := strconv.Atoi(f.text)
		if err != nil {
			return Dice{}, fmt.Errorf("dice: %q: %w", expr, err)
		}
		*f.dst = n
	}
	switch {
	case d.Count < 1 || d.Count > maxDice:
		return Dice{}, fmt.Errorf("dice: %q: count must be between 1 and %d", expr, maxDice)
	case d.Sides < 2:
		return Dice{}, fmt.Errorf("dice: %q: sides must be >= 2", expr)
	case m[3] != "" && (d.KeepHighest < 1 || d.KeepHighest >= d.Count):
		return Dice{}, fmt.Errorf("dice: %q: kh must be > 0 and < count", expr)
	}
	return d, nil
}

// Roll is the audit record of one roll.
type Roll struct {
	Expression string `json:"expression"`
	Dice       []int  `json:"dice"`
	Modifier   int    `json:"modifier"`
}

// Total returns the sum of the kept dice plus the modifier.
func (r Roll) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// String renders the roll as "2d6+3: [4 5] +3 = 12".
func (r Roll) String() string {
	return fmt.Sprintf("%s: %v %+d = %d", r.Expression, r.Dice, r.Modifier, r.Total())
}

// Roll rolls d using src.
func (d Dice) Roll(src Source) Roll {
	rolled := make([]int, d.Count)
	for i := range rolled {
		rolled[i] = src.Intn(d.Sides) + 1
	}
	if d.KeepHighest > 0 {
		slices.SortFunc(rolled, func(a, b int) int { return b - a })
		rolled = rolled[:d.KeepHighest]
	}
	return Roll{Expression: d.Raw, Dice: rolled, Modifier: d.Modifier}
}

// Source provides randomness. Implementations must be safe for concurrent use.
type Source interface {
	// Intn returns a value in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand.
func NewCryptoSource() Source {
	return cryptoSource{}
}

func (cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return int(v.Int64())
}

type seededSource struct {
	mu sync.Mutex
	r  *mrand.Rand
}

// NewSeededSource returns a reproducible Source for playtests.
func NewSeededSource(seed uint64) Source {
	return &seededSource{r: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *seededSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n)
}
