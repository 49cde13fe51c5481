// Package search drives the superoptimizer proper: given a
// Specification, it finds a byte sequence that realizes it, optimal by
// size or by speed depending on the spec's Goal.
package search

import (
	"context"
	"errors"
	"runtime"

	"github.com/oisee/phaistos/pkg/cache"
	"github.com/oisee/phaistos/pkg/cpu"
	"github.com/oisee/phaistos/pkg/enum"
	"github.com/oisee/phaistos/pkg/result"
	"github.com/oisee/phaistos/pkg/spec"
	"github.com/oisee/phaistos/pkg/testgen"
	"github.com/oisee/phaistos/pkg/verify"
)

// ErrNoSolution is returned when no candidate up to Config's length
// bound satisfies the specification.
var ErrNoSolution = errors.New("search: no solution found within the configured length bound")

// Logger is the progress-reporting surface a Run call writes to,
// injected rather than assumed to be a package-level singleton.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Config governs one search run.
type Config struct {
	MaxLen     int // max candidate length, in bytes; 0 derives a default from the spec
	Window     int // extra bytes allowed past the original block's length for a SPEED search; default 4
	NumWorkers int // concurrent verifiers per candidate-length bucket; 0 defaults to NumCPU

	EnumConfig enum.Config
	TestGen    testgen.Config
	Verify     verify.Config

	UseStoke        bool
	StokeChains     int
	StokeIterations int

	Cache  *cache.Cache // optional; entries are only ever added after a real Verify pass
	Logger Logger
}

func (c Config) logger() Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return nopLogger{}
}

func (c Config) numWorkers() int {
	if c.NumWorkers > 0 {
		return c.NumWorkers
	}
	return runtime.NumCPU()
}

func (c Config) window() int {
	if c.Window > 0 {
		return c.Window
	}
	return 4
}

// Run searches for a byte sequence realizing s. For a SIZE goal it
// returns the shortest sequence found, since candidates are visited in
// non-decreasing byte length and the first one to pass verification is
// byte-optimal by construction. For a SPEED goal it searches every
// length up to the original block's length plus Config's window and
// returns whichever verified candidate has the fewest cycles.
func Run(ctx context.Context, s *spec.Specification, cfg Config) (*result.Solution, error) {
	log := cfg.logger()

	cases, err := testgen.Generate(ctx, s, cfg.TestGen)
	if err != nil {
		return nil, err
	}

	originalBytes := originalBlockBytes(s)

	if cfg.Cache != nil && originalBytes != nil {
		if e, ok := cfg.Cache.FindOptimal(originalBytes); ok {
			log.Printf("cache hit for the original block: reusing a %d-byte replacement", len(e.Replacement))
			return buildSolution(e.Replacement, e.BytesSaved, e.CyclesSaved, s, cases, cfg)
		}
	}

	maxLen := resolveMaxLen(s, cfg, originalBytes)
	ec := cfg.EnumConfig
	ec.MaxLen = maxLen

	var stokeSeeds []*result.Solution
	if cfg.UseStoke && originalBytes != nil {
		stokeSeeds = warmCacheWithStoke(ctx, s, originalBytes, ec, cases, cfg, log)
	}

	switch s.Goal {
	case spec.SPEED:
		return runSpeedSearch(ctx, s, ec, maxLen, cases, cfg, originalBytes, log, stokeSeeds)
	default:
		return runSizeSearch(ctx, s, ec, maxLen, cases, cfg, originalBytes, log)
	}
}

// defaultMaxLen is the implementation-chosen sequence-length bound
// spec.md §3 names when a caller doesn't set Config.MaxLen explicitly.
const defaultMaxLen = 32

func resolveMaxLen(s *spec.Specification, cfg Config, originalBytes []uint8) int {
	if cfg.MaxLen > 0 {
		return cfg.MaxLen
	}
	if s.Goal == spec.SPEED && len(originalBytes) > 0 {
		return len(originalBytes) + cfg.window()
	}
	return defaultMaxLen
}

func originalBlockBytes(s *spec.Specification) []uint8 {
	if len(s.Blocks) == 0 {
		return nil
	}
	return s.Blocks[0].Bytes
}

func buildSolution(bytesSeq []uint8, bytesSaved, cyclesSaved int, s *spec.Specification, cases []testgen.TestCase, cfg Config) (*result.Solution, error) {
	cycles, err := measureCycles(s, bytesSeq, cases, cfg)
	if err != nil {
		return nil, err
	}
	return &result.Solution{
		Bytes:       bytesSeq,
		Cycles:      cycles,
		Sequence:    disassemble(bytesSeq),
		BytesSaved:  bytesSaved,
		CyclesSaved: cyclesSaved,
	}, nil
}

func disassemble(seq []uint8) []result.Instruction {
	var out []result.Instruction
	for i := 0; i < len(seq); {
		info := cpu.Catalog[seq[i]]
		size := info.Size()
		if i+size > len(seq) {
			size = len(seq) - i
		}
		out = append(out, result.Instruction{Mnemonic: info.Mnemonic, Bytes: append([]uint8(nil), seq[i:i+size]...)})
		i += size
	}
	return out
}
