package stoke

import (
	"math"
	"math/rand/v2"

	"github.com/oisee/phaistos/pkg/enum"
)

// Chain is a single Metropolis-Hastings MCMC chain with simulated
// annealing, walking the space of token sequences toward ones that
// approximately match target on the fixed probe states.
type Chain struct {
	current     []enum.Token
	best        []enum.Token
	cost        int
	bestCost    int
	temperature float64
	rng         *rand.Rand
	mutator     *Mutator
	target      []enum.Token
	targetBytes int
	runAddr     uint16

	Accepted int64
	Rejected int64
}

// NewChain creates a chain initialized from target, mutating over
// alphabet.
func NewChain(runAddr uint16, target []enum.Token, alphabet []enum.Token, temperature float64, seed uint64) *Chain {
	rng := rand.New(rand.NewPCG(seed, seed^0xDEADBEEF))
	maxLen := sizeOf(target) + 4
	if maxLen < 10 {
		maxLen = 10
	}
	current := copySeq(target)
	cost := Cost(runAddr, target, current)

	return &Chain{
		current:     current,
		best:        copySeq(current),
		cost:        cost,
		bestCost:    cost,
		temperature: temperature,
		rng:         rng,
		mutator:     NewMutator(rng, alphabet, maxLen),
		target:      target,
		targetBytes: sizeOf(target),
		runAddr:     runAddr,
	}
}

// Step performs one MCMC iteration: mutate, evaluate, accept or
// reject. Returns true when the step was accepted.
func (c *Chain) Step(decay float64) bool {
	candidate := c.mutator.Mutate(c.current)
	newCost := Cost(c.runAddr, c.target, candidate)
	delta := newCost - c.cost

	accepted := false
	if delta <= 0 {
		accepted = true
	} else if c.temperature > 0 {
		prob := math.Exp(-float64(delta) / c.temperature)
		if c.rng.Float64() < prob {
			accepted = true
		}
	}

	if accepted {
		c.current = candidate
		c.cost = newCost
		c.Accepted++
		if newCost < c.bestCost {
			c.best = copySeq(candidate)
			c.bestCost = newCost
		}
	} else {
		c.Rejected++
	}

	c.temperature *= decay
	return accepted
}

// Best returns the best candidate found so far and its approximate cost.
func (c *Chain) Best() ([]enum.Token, int) {
	return c.best, c.bestCost
}

// IsShorter reports whether the best candidate is shorter, in bytes,
// than the target.
func (c *Chain) IsShorter() bool {
	return sizeOf(c.best) < c.targetBytes
}
