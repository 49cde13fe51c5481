package search

import (
	"context"
	"testing"

	"github.com/oisee/phaistos/pkg/cache"
	"github.com/oisee/phaistos/pkg/enum"
	"github.com/oisee/phaistos/pkg/spec"
	"github.com/oisee/phaistos/pkg/testgen"
	"github.com/oisee/phaistos/pkg/value"
)

func anyState() spec.CPUState {
	return spec.CPUState{
		A: value.AnyValue(), X: value.AnyValue(), Y: value.AnyValue(), S: value.AnyValue(),
		PC: value.AnyValue(),
		Flags: spec.Flags{
			C: value.AnyValue(), Z: value.AnyValue(), I: value.AnyValue(), D: value.AnyValue(),
			B: value.AnyValue(), V: value.AnyValue(), N: value.AnyValue(),
		},
	}
}

func outputA(b uint8) spec.CPUState {
	out := anyState()
	out.A = value.ExactValue(b)
	return out
}

func TestRunFindsShortestSizeSolution(t *testing.T) {
	s := &spec.Specification{
		RunAddress: 0x0200,
		Input:      anyState(),
		Output:     outputA(0x00),
		Goal:       spec.SIZE,
	}
	cfg := Config{
		MaxLen:     2,
		EnumConfig: enum.Config{ValidOpcodes: []uint8{0xA9, 0x00}, ConstSlots: []uint8{0x00, 0xFF}},
		TestGen:    testgen.Config{Seed: 1, MaxCases: 8},
	}

	sol, err := Run(context.Background(), s, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sol.Bytes) != 2 {
		t.Fatalf("expected a 2-byte solution (LDA #$00), got %v", sol.Bytes)
	}
}

func TestRunReturnsErrNoSolutionWhenUnsatisfiable(t *testing.T) {
	s := &spec.Specification{
		RunAddress: 0x0200,
		Input:      anyState(),
		Output:     outputA(0x42),
		Goal:       spec.SIZE,
	}
	cfg := Config{
		MaxLen:     2,
		EnumConfig: enum.Config{ValidOpcodes: []uint8{0xA9, 0x00}, ConstSlots: []uint8{0x00, 0xFF}},
		TestGen:    testgen.Config{Seed: 1, MaxCases: 8},
	}

	_, err := Run(context.Background(), s, cfg)
	if err != ErrNoSolution {
		t.Fatalf("expected ErrNoSolution, got %v", err)
	}
}

func TestRunCachesAgainstOriginalBlock(t *testing.T) {
	s := &spec.Specification{
		RunAddress: 0x0200,
		Input:      anyState(),
		Output:     outputA(0x00),
		Goal:       spec.SIZE,
		Blocks:     []spec.CodeBlock{{Start: 0x0200, Bytes: []uint8{0xA9, 0x00, 0xEA, 0x00}}},
	}
	c := cache.New()
	cfg := Config{
		MaxLen:     2,
		EnumConfig: enum.Config{ValidOpcodes: []uint8{0xA9, 0x00}, ConstSlots: []uint8{0x00, 0xFF}},
		TestGen:    testgen.Config{Seed: 1, MaxCases: 8},
		Cache:      c,
	}

	sol, err := Run(context.Background(), s, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sol.BytesSaved <= 0 {
		t.Fatalf("expected a positive BytesSaved against the 4-byte original block, got %d", sol.BytesSaved)
	}
	if c.Len() != 1 {
		t.Fatalf("expected the cache to hold one entry, got %d", c.Len())
	}
}
