package search

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/oisee/phaistos/pkg/cache"
	"github.com/oisee/phaistos/pkg/cpu"
	"github.com/oisee/phaistos/pkg/enum"
	"github.com/oisee/phaistos/pkg/mem"
	"github.com/oisee/phaistos/pkg/result"
	"github.com/oisee/phaistos/pkg/spec"
	"github.com/oisee/phaistos/pkg/stoke"
	"github.com/oisee/phaistos/pkg/testgen"
	"github.com/oisee/phaistos/pkg/verify"
)

// collectBucket enumerates every candidate of exactly length bytes.
// Shorter candidates are skipped since an earlier round already tried
// them; enum.Enumerate's own non-decreasing sweep makes this cheap.
func collectBucket(ec enum.Config, length int) []enum.Sequence {
	ec.MaxLen = length
	var bucket []enum.Sequence
	enum.Enumerate(ec, func(seq enum.Sequence) bool {
		if seq.Size() == length {
			bucket = append(bucket, seq)
		}
		return true
	})
	return bucket
}

// runSizeSearch visits candidate lengths in increasing order and
// returns the first verified candidate, which is therefore optimal by
// size: nothing shorter could have passed in an earlier round.
func runSizeSearch(ctx context.Context, s *spec.Specification, ec enum.Config, maxLen int, cases []testgen.TestCase, cfg Config, originalBytes []uint8, log Logger) (*result.Solution, error) {
	for length := 1; length <= maxLen; length++ {
		bucket := collectBucket(ec, length)
		if len(bucket) == 0 {
			continue
		}
		sol, err := verifyBucketFirst(ctx, s, bucket, cases, cfg)
		if err != nil {
			return nil, err
		}
		if sol != nil {
			finalizeSolution(sol, originalBytes, cfg)
			log.Printf("found a %d-byte solution at round %d", len(sol.Bytes), length)
			return sol, nil
		}
	}
	return nil, ErrNoSolution
}

// runSpeedSearch visits every candidate length up to maxLen, verifying
// one length bucket at a time, and keeps whichever verified candidate
// (including any stoke-warmed seeds) has the fewest cycles. Per
// spec.md §4.8's driver pseudocode, every time a better candidate is
// found it narrows the enumerator's remaining bound to that candidate's
// own length plus Config's window, since nothing longer than that could
// still beat it — pulled through enum.Enumerator's stateful SetMaxLength
// rather than a bound fixed once before the search began.
func runSpeedSearch(ctx context.Context, s *spec.Specification, ec enum.Config, maxLen int, cases []testgen.TestCase, cfg Config, originalBytes []uint8, log Logger, seeds []*result.Solution) (*result.Solution, error) {
	var best *result.Solution
	for _, sol := range seeds {
		if best == nil || sol.Cycles < best.Cycles {
			best = sol
		}
	}

	ec.MaxLen = maxLen
	enumr := enum.NewEnumerator(ec)
	reader := &bucketReader{enumr: enumr}

	for {
		bucket, length, ok := reader.next()
		if !ok || length > maxLen {
			break
		}
		sols, err := verifyBucketAll(ctx, s, bucket, cases, cfg)
		if err != nil {
			return nil, err
		}
		for _, sol := range sols {
			if best == nil || sol.Cycles < best.Cycles {
				best = sol
				if bound := len(best.Bytes) + cfg.window(); bound < maxLen {
					maxLen = bound
					enumr.SetMaxLength(bound)
					log.Printf("narrowed search bound to %d bytes after a %d-cycle, %d-byte candidate", bound, best.Cycles, len(best.Bytes))
				}
			}
		}
	}

	if best == nil {
		return nil, ErrNoSolution
	}
	finalizeSolution(best, originalBytes, cfg)
	log.Printf("best solution: %d bytes, %d cycles", len(best.Bytes), best.Cycles)
	return best, nil
}

// bucketReader regroups enum.Enumerator's flat non-decreasing-length
// stream back into same-length buckets, buffering the one candidate
// that revealed the previous bucket's end.
type bucketReader struct {
	enumr   *enum.Enumerator
	pending *enum.Sequence
}

func (r *bucketReader) next() ([]enum.Sequence, int, bool) {
	var bucket []enum.Sequence
	length := 0

	if r.pending != nil {
		bucket = append(bucket, *r.pending)
		length = r.pending.Size()
		r.pending = nil
	}

	for {
		seq, ok := r.enumr.Next()
		if !ok {
			if len(bucket) == 0 {
				return nil, 0, false
			}
			return bucket, length, true
		}
		if len(bucket) == 0 {
			length = seq.Size()
		}
		if seq.Size() != length {
			r.pending = &seq
			return bucket, length, true
		}
		bucket = append(bucket, seq)
	}
}

func finalizeSolution(sol *result.Solution, originalBytes []uint8, cfg Config) {
	if originalBytes == nil {
		return
	}
	sol.BytesSaved = len(originalBytes) - len(sol.Bytes)
	if cfg.Cache != nil {
		cfg.Cache.Add(cache.Entry{
			Source:      originalBytes,
			Replacement: sol.Bytes,
			BytesSaved:  sol.BytesSaved,
			CyclesSaved: sol.CyclesSaved,
		})
	}
}

// verifyBucketFirst runs every candidate in bucket through the
// verifier with cfg.numWorkers() concurrent workers, generalizing the
// teacher's channel-fed WorkerPool to an errgroup pool that cancels
// the rest of the bucket as soon as one candidate passes.
func verifyBucketFirst(ctx context.Context, s *spec.Specification, bucket []enum.Sequence, cases []testgen.TestCase, cfg Config) (*result.Solution, error) {
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(cctx)
	g.SetLimit(cfg.numWorkers())

	var mu sync.Mutex
	var found *result.Solution

	for _, seq := range bucket {
		seq := seq
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			sol, err := verifyOne(gctx, s, seq.Bytes(), cases, cfg)
			if err != nil || sol == nil {
				return err
			}
			mu.Lock()
			if found == nil {
				found = sol
				cancel()
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil && gctx.Err() == nil {
		return nil, err
	}
	return found, nil
}

// verifyBucketAll runs every candidate in bucket through the verifier
// concurrently and returns every one that passes.
func verifyBucketAll(ctx context.Context, s *spec.Specification, bucket []enum.Sequence, cases []testgen.TestCase, cfg Config) ([]*result.Solution, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.numWorkers())

	var mu sync.Mutex
	var found []*result.Solution

	for _, seq := range bucket {
		seq := seq
		g.Go(func() error {
			sol, err := verifyOne(gctx, s, seq.Bytes(), cases, cfg)
			if err != nil {
				return err
			}
			if sol != nil {
				mu.Lock()
				found = append(found, sol)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return found, nil
}

func verifyOne(ctx context.Context, s *spec.Specification, bytes []uint8, cases []testgen.TestCase, cfg Config) (*result.Solution, error) {
	fail, err := verify.Verify(ctx, s, bytes, cases, cfg.Verify)
	if err != nil {
		return nil, err
	}
	if fail != nil {
		return nil, nil
	}
	cycles, err := measureCycles(s, bytes, cases, cfg)
	if err != nil {
		return nil, err
	}
	return &result.Solution{Bytes: bytes, Cycles: cycles, Sequence: disassemble(bytes)}, nil
}

// measureCycles runs bytes against every case and returns the worst
// observed cycle count, since a SPEED goal should not be satisfied by
// a candidate that is merely fast on average.
func measureCycles(s *spec.Specification, bytes []uint8, cases []testgen.TestCase, cfg Config) (int, error) {
	worst := 0
	for _, tc := range cases {
		policy := mem.Policy{Code: mem.Region{Start: s.RunAddress, End: s.RunAddress + uint16(len(bytes)) - 1}}
		for _, r := range s.Regions {
			region := mem.Region{Start: r.Start, End: r.End()}
			if r.Kind == spec.InputRegion {
				policy.Inputs = append(policy.Inputs, region)
			} else {
				policy.Outputs = append(policy.Outputs, region)
			}
		}
		m := mem.New(policy)
		for i, b := range bytes {
			m.Initialize(s.RunAddress+uint16(i), b)
		}
		for addr, v := range tc.Mem {
			m.Initialize(addr, v)
		}
		init := cpu.State{A: tc.A, X: tc.X, Y: tc.Y, S: tc.S, P: tc.P}
		res, err := cpu.Execute(context.Background(), m, init, cpu.Config{IllegalOpcodes: cfg.Verify.IllegalOpcodes}, s.RunAddress, 10000)
		if err != nil {
			return 0, err
		}
		if res.Cycles > worst {
			worst = res.Cycles
		}
	}
	return worst, nil
}

// warmCacheWithStoke proposes candidates via simulated annealing and
// verifies every one for real before it can be cached or returned,
// per the rule that STOKE never substitutes for exhaustive proof.
func warmCacheWithStoke(ctx context.Context, s *spec.Specification, originalBytes []uint8, ec enum.Config, cases []testgen.TestCase, cfg Config, log Logger) []*result.Solution {
	alphabet := enum.BuildAlphabet(ec)
	target := decodeTokens(originalBytes)

	chains := cfg.StokeChains
	if chains <= 0 {
		chains = cfg.numWorkers()
	}
	iterations := cfg.StokeIterations
	if iterations <= 0 {
		iterations = 50_000
	}

	proposals := stoke.Run(ctx, stoke.Config{
		RunAddress: s.RunAddress,
		Target:     target,
		Alphabet:   alphabet,
		Chains:     chains,
		Iterations: iterations,
	})

	var verified []*result.Solution
	for _, p := range proposals {
		bytes := tokensToBytes(p.Tokens)
		sol, err := verifyOne(ctx, s, bytes, cases, cfg)
		if err != nil || sol == nil {
			continue
		}
		sol.BytesSaved = len(originalBytes) - len(sol.Bytes)
		if cfg.Cache != nil {
			cfg.Cache.Add(cache.Entry{Source: originalBytes, Replacement: bytes, BytesSaved: sol.BytesSaved, CyclesSaved: sol.CyclesSaved})
		}
		log.Printf("stoke verified a %d-byte proposal", len(bytes))
		verified = append(verified, sol)
	}
	return verified
}

func decodeTokens(seq []uint8) []enum.Token {
	var out []enum.Token
	for i := 0; i < len(seq); {
		size := cpu.Catalog[seq[i]].Size()
		if i+size > len(seq) {
			size = len(seq) - i
		}
		out = append(out, enum.Token{Opcode: seq[i], Operand: append([]uint8(nil), seq[i+1:i+size]...)})
		i += size
	}
	return out
}

func tokensToBytes(toks []enum.Token) []uint8 {
	var out []uint8
	for _, t := range toks {
		out = append(out, t.Bytes()...)
	}
	return out
}
