package engine

// LCG is a 32-bit linear congruential generator. Its whole state is the
// exported State field, so it can be persisted and passed around explicitly;
// there is no package-level generator.
type LCG struct {
	State uint32 `json:"state"`
}

const (
	lcgMultiplier = 1664525
	lcgIncrement  = 1013904223
)

// NewLCG seeds a generator
func NewLCG(seed int64) LCG {
	return LCG{State: uint32(seed) ^ uint32(seed>>32)}
}

// Next advances the state and returns it
func (r *LCG) Next() uint32 {
	r.State = r.State*lcgMultiplier + lcgIncrement
	return r.State
}

// Intn returns a value in [0, n). It uses the high bits of the state, which
// are the well-distributed ones in a power-of-two LCG.
func (r *LCG) Intn(n int) int {
	if n <= 1 {
		r.Next()
		return 0
	}
	return int((uint64(r.Next()) * uint64(n)) >> 32)
}

// Shuffle permutes items in place with Fisher–Yates
func Shuffle[T any](r *LCG, items []T) {
	for i := len(items) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}
