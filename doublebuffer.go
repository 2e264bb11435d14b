package radix

import "golang.org/x/exp/constraints"

// DoubleBuffer is the ping-pong storage pair a multi-pass sort runs over:
// two key buffers (and, for pair sorts, two value buffers) plus a selector
// saying which pair currently holds the live data.
//
// Exactly one pair is ever "front": each pass reads the front pair, writes
// the other, and flips the selector once. The alternate pair is allocated
// lazily on first need; it is never freed here -- dropping the DoubleBuffer
// releases it, or the caller can keep it around to amortize across sorts.
type DoubleBuffer[K constraints.Unsigned, V any] struct {
	keys     [2][]K
	values   [2][]V
	selector int
}

// NewDoubleBuffer wraps keys (and values, which may be nil for a keys-only
// sort) as buffer 0 of a new pair, with the selector pointing at it.
// The values slice, when present, must have the same length as keys.
func NewDoubleBuffer[K constraints.Unsigned, V any](keys []K, values []V) *DoubleBuffer[K, V] {
	db := &DoubleBuffer[K, V]{}
	db.keys[0] = keys
	db.values[0] = values
	return db
}

// Keys returns buffer i mod 2's key slice.
func (db *DoubleBuffer[K, V]) Keys(i int) []K { return db.keys[i&1] }

// Values returns buffer i mod 2's value slice.
func (db *DoubleBuffer[K, V]) Values(i int) []V { return db.values[i&1] }

// Selector returns the index of the front buffer.
func (db *DoubleBuffer[K, V]) Selector() int { return db.selector }

// Current returns the front pair: the authoritative data.
func (db *DoubleBuffer[K, V]) Current() ([]K, []V) {
	return db.keys[db.selector], db.values[db.selector]
}

// Alternate returns the non-front pair. It may be nil until
// EnsureAlternate has run.
func (db *DoubleBuffer[K, V]) Alternate() ([]K, []V) {
	return db.keys[db.selector^1], db.values[db.selector^1]
}

// Flip advances the selector, making the previously alternate pair front.
// Called exactly once per completed pass.
func (db *DoubleBuffer[K, V]) Flip() {
	db.selector ^= 1
}

// EnsureAlternate allocates the non-front pair if it is absent or too
// short, matching the front pair's length. Allocation failure is fatal to
// the sort (Go runtime semantics); there is no retry.
func (db *DoubleBuffer[K, V]) EnsureAlternate() {
	front := db.selector
	back := front ^ 1
	n := len(db.keys[front])
	if len(db.keys[back]) < n {
		db.keys[back] = make([]K, n)
	} else {
		db.keys[back] = db.keys[back][:n]
	}
	if db.values[front] != nil {
		if len(db.values[back]) < n {
			db.values[back] = make([]V, n)
		} else {
			db.values[back] = db.values[back][:n]
		}
	}
}
