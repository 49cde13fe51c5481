package enum

import "sync"

// Enumerator is the stateful, cursor-based surface spec.md §4.6 names
// for C6: Next pulls one candidate at a time, SetMaxLength/
// SetValidOpcodes narrow or replace the alphabet the background walk
// draws from, and Reset restarts it from the first candidate. Enumerate
// (above) remains the one-shot push-style engine underneath — it is the
// teacher's EnumerateSequences(n, fn) idiom generalized to a byte-length
// budget — and Enumerator adapts it to a pull interface with a
// background goroutine and a handoff channel, guarded by a mutex so a
// driver can call SetMaxLength concurrently with an in-flight Next, the
// way a SPEED search narrows the bound every time a better candidate is
// found (spec.md §4.8).
type Enumerator struct {
	mu     sync.Mutex
	cfg    Config
	maxLen int // guarded by mu; the background walk's upper bound

	ch   chan Sequence
	stop chan struct{}
}

// NewEnumerator creates a stateful enumerator over cfg and starts its
// background walk immediately.
func NewEnumerator(cfg Config) *Enumerator {
	e := &Enumerator{cfg: cfg, maxLen: cfg.MaxLen}
	e.mu.Lock()
	e.restartLocked()
	e.mu.Unlock()
	return e
}

// Next advances the cursor and returns the next candidate in
// non-decreasing byte-length order, or ok=false once the walk (at the
// current max length) is exhausted.
func (e *Enumerator) Next() (Sequence, bool) {
	e.mu.Lock()
	ch := e.ch
	e.mu.Unlock()
	seq, ok := <-ch
	return seq, ok
}

// SetMaxLength narrows (or widens, while the walk is still in progress)
// the byte-length bound the background walk honors, without losing its
// current position — the background goroutine rereads this bound before
// starting each new length bucket. This is what lets a SPEED search
// shrink the remaining search space every time a shorter or cheaper
// verified candidate appears, instead of walking every bucket up to a
// bound fixed before the search began.
func (e *Enumerator) SetMaxLength(k int) {
	e.mu.Lock()
	e.maxLen = k
	e.mu.Unlock()
}

// SetValidOpcodes replaces the opcode allow-list the alphabet is built
// from and restarts the walk from its first candidate, since the
// alphabet is fixed for the lifetime of one background walk.
func (e *Enumerator) SetValidOpcodes(ops []uint8) {
	e.mu.Lock()
	e.cfg.ValidOpcodes = ops
	e.restartLocked()
	e.mu.Unlock()
}

// Reset restarts the walk from its first candidate, at cfg's original
// max length.
func (e *Enumerator) Reset() {
	e.mu.Lock()
	e.maxLen = e.cfg.MaxLen
	e.restartLocked()
	e.mu.Unlock()
}

// restartLocked must be called with e.mu held. It stops any in-flight
// background walk and starts a fresh one over a snapshot of e.cfg.
func (e *Enumerator) restartLocked() {
	if e.stop != nil {
		close(e.stop)
	}
	cfg := e.cfg
	stop := make(chan struct{})
	ch := make(chan Sequence)
	e.stop = stop
	e.ch = ch
	go e.run(cfg, ch, stop)
}

func (e *Enumerator) currentMaxLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxLen
}

// run is the background walk: the same non-decreasing byte-length sweep
// Enumerate performs, but yielding one candidate per channel send
// instead of invoking a callback, and rereading e's max-length bound
// before each new length bucket so SetMaxLength takes effect without a
// restart.
func (e *Enumerator) run(cfg Config, ch chan Sequence, stop chan struct{}) {
	defer close(ch)

	alphabet := BuildAlphabet(cfg)
	if len(alphabet) == 0 {
		return
	}
	minSize := alphabet[0].Size()
	for _, t := range alphabet {
		if t.Size() < minSize {
			minSize = t.Size()
		}
	}

	for length := minSize; length <= e.currentMaxLen(); length++ {
		cont := enumerateBudget(alphabet, nil, length, func(tokens []Token) bool {
			seq := Sequence{Tokens: append([]Token(nil), tokens...)}
			if !relativeTargetsInRange(seq) {
				return true
			}
			if ShouldPrune(seq) {
				return true
			}
			select {
			case ch <- seq:
				return true
			case <-stop:
				return false
			}
		})
		if !cont {
			return
		}
	}
}
