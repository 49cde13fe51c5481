package stoke

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/oisee/phaistos/pkg/enum"
)

// Config holds proposer configuration.
type Config struct {
	RunAddress uint16
	Target     []enum.Token // the sequence chains start from and score against
	Alphabet   []enum.Token
	Chains     int     // number of independent MCMC chains (goroutines)
	Iterations int     // iterations per chain
	Decay      float64 // temperature decay factor per step
}

// Proposal is a candidate a chain found approximately matching Target
// on the fixed probe states. It is not verified: the caller must run
// it through the real verifier before caching or returning it.
type Proposal struct {
	Tokens  []enum.Token
	ChainID int
	Iter    int
}

// Run launches cfg.Chains independent MCMC chains and collects every
// candidate any chain found with zero probe mismatches and fewer bytes
// than Target. It never calls a verifier itself — it only narrows the
// space the exhaustive search driver still has to confirm.
func Run(ctx context.Context, cfg Config) []Proposal {
	if cfg.Chains <= 0 {
		cfg.Chains = 1
	}
	if cfg.Iterations <= 0 {
		cfg.Iterations = 100_000
	}
	if cfg.Decay <= 0 || cfg.Decay >= 1 {
		cfg.Decay = 0.9999
	}

	var mu sync.Mutex
	var proposals []Proposal
	var wg sync.WaitGroup

	baseSeed := rand.Uint64()

	for i := 0; i < cfg.Chains; i++ {
		wg.Add(1)
		go func(chainID int) {
			defer wg.Done()

			seed := baseSeed + uint64(chainID)*0x9E3779B97F4A7C15
			chain := NewChain(cfg.RunAddress, cfg.Target, cfg.Alphabet, 1.0, seed)

			for iter := 0; iter < cfg.Iterations; iter++ {
				if ctx.Err() != nil {
					return
				}
				chain.Step(cfg.Decay)

				best, bestCost := chain.Best()
				if bestCost < 1000 && chain.IsShorter() {
					mu.Lock()
					proposals = append(proposals, Proposal{Tokens: copySeq(best), ChainID: chainID, Iter: iter})
					mu.Unlock()

					chain = NewChain(cfg.RunAddress, cfg.Target, cfg.Alphabet, 1.0, seed+uint64(iter))
				}
			}
		}(i)
	}

	wg.Wait()
	return Deduplicate(proposals)
}

// Deduplicate removes proposals with identical replacement bytes.
func Deduplicate(proposals []Proposal) []Proposal {
	seen := make(map[string]bool)
	var unique []Proposal
	for _, p := range proposals {
		key := seqKey(p.Tokens)
		if !seen[key] {
			seen[key] = true
			unique = append(unique, p)
		}
	}
	return unique
}

func seqKey(seq []enum.Token) string {
	key := make([]byte, 0, len(seq)*4)
	for _, t := range seq {
		key = append(key, t.Opcode)
		key = append(key, t.Operand...)
		key = append(key, 0xFF) // separator so variable operand lengths can't collide
	}
	return string(key)
}
