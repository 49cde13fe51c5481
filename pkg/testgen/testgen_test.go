package testgen

import (
	"context"
	"testing"

	"github.com/oisee/phaistos/pkg/spec"
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

func TestGenerateIncludesBaseCase(t *testing.T) {
	s := &spec.Specification{RunAddress: 0x0200, Input: anyState(), Output: anyState()}
	cases, err := Generate(context.Background(), s, Config{Seed: 1, MaxCases: 32})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(cases) == 0 {
		t.Fatal("expected at least the base case")
	}
}

func TestGenerateSweepsBoundaryOnAnyRegister(t *testing.T) {
	in := anyState()
	in.A = value.AnyValue()
	s := &spec.Specification{RunAddress: 0x0200, Input: in, Output: anyState()}
	cases, err := Generate(context.Background(), s, Config{Seed: 1, MaxCases: 64})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	seenA := map[uint8]bool{}
	for _, c := range cases {
		seenA[c.A] = true
	}
	for _, b := range Boundary {
		if !seenA[b] {
			t.Fatalf("boundary value %02X for A never appeared across %d cases", b, len(cases))
		}
	}
}

func TestGenerateRejectsEquWithoutCodeBlock(t *testing.T) {
	out := anyState()
	out.A = value.EquValue()
	s := &spec.Specification{RunAddress: 0x0200, Input: anyState(), Output: out}
	_, err := Generate(context.Background(), s, Config{Seed: 1, MaxCases: 8})
	if err == nil {
		t.Fatal("expected InvalidSpec when EQU has no code block to reference")
	}
}

func TestGenerateFillsReferenceWhenCodeBlockPresent(t *testing.T) {
	out := anyState()
	out.A = value.EquValue()
	s := &spec.Specification{
		RunAddress: 0x0200,
		Input:      anyState(),
		Output:     out,
		Blocks:     []spec.CodeBlock{{Start: 0x0200, Bytes: []uint8{0xA9, 0x42, 0x00}}}, // LDA #$42; BRK
	}
	cases, err := Generate(context.Background(), s, Config{Seed: 1, MaxCases: 8})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, c := range cases {
		if c.Ref == nil {
			t.Fatal("expected every case to carry a reference capture")
		}
		if c.Ref.A != 0x42 {
			t.Fatalf("Ref.A = %02X, want 42", c.Ref.A)
		}
	}
}

func TestCaseKeyDeduplicatesIdenticalCases(t *testing.T) {
	a := TestCase{A: 1, Mem: map[uint16]uint8{0x10: 2}}
	b := TestCase{A: 1, Mem: map[uint16]uint8{0x10: 2}}
	if caseKey(a) != caseKey(b) {
		t.Fatal("identical cases should produce identical keys")
	}
}
