package stoke

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/oisee/phaistos/pkg/enum"
)

func testAlphabet() []enum.Token {
	return []enum.Token{
		{Opcode: 0xA9, Operand: []uint8{0x00}}, // LDA #$00
		{Opcode: 0xA9, Operand: []uint8{0xFF}}, // LDA #$FF
		{Opcode: 0x49, Operand: []uint8{0xFF}}, // EOR #$FF
		{Opcode: 0xE8},                         // INX
		{Opcode: 0xEA},                         // NOP
	}
}

func TestReplaceTokenKeepsLength(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 42))
	m := NewMutator(rng, testAlphabet(), 10)
	seq := []enum.Token{{Opcode: 0xA9, Operand: []uint8{0x01}}, {Opcode: 0xE8}}

	for i := 0; i < 100; i++ {
		out := m.ReplaceToken(seq)
		if len(out) != 2 {
			t.Fatalf("expected length 2, got %d", len(out))
		}
	}
	if len(seq) != 2 || seq[0].Opcode != 0xA9 {
		t.Fatal("original sequence was modified")
	}
}

func TestSwapTokens(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 42))
	m := NewMutator(rng, testAlphabet(), 10)
	seq := []enum.Token{{Opcode: 0xA9, Operand: []uint8{0x01}}, {Opcode: 0xE8}}

	out := m.SwapTokens(seq)
	if out[0].Opcode != 0xE8 || out[1].Opcode != 0xA9 {
		t.Fatalf("expected swap, got %v", out)
	}
}

func TestSwapSingleTokenIsNoop(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 42))
	m := NewMutator(rng, testAlphabet(), 10)
	seq := []enum.Token{{Opcode: 0xE8}}
	out := m.SwapTokens(seq)
	if len(out) != 1 {
		t.Fatalf("expected length 1, got %d", len(out))
	}
}

func TestDeleteToken(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 42))
	m := NewMutator(rng, testAlphabet(), 10)
	seq := []enum.Token{{Opcode: 0xA9, Operand: []uint8{0x01}}, {Opcode: 0xE8}, {Opcode: 0xEA}}

	out := m.DeleteToken(seq)
	if len(out) != 2 {
		t.Fatalf("expected length 2, got %d", len(out))
	}
	if len(seq) != 3 {
		t.Fatal("original sequence was modified")
	}
}

func TestInsertTokenRespectsMaxLen(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 42))
	m := NewMutator(rng, testAlphabet(), 2) // 2-byte budget
	seq := []enum.Token{{Opcode: 0xA9, Operand: []uint8{0x01}}} // already 2 bytes

	out := m.InsertToken(seq)
	if sizeOf(out) > 2 {
		t.Fatalf("insert exceeded max length: %d bytes", sizeOf(out))
	}
}

func TestChangeOperandFallsBackWithoutOperandTokens(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 42))
	m := NewMutator(rng, testAlphabet(), 10)
	seq := []enum.Token{{Opcode: 0xE8}, {Opcode: 0xEA}}

	out := m.ChangeOperand(seq)
	if len(out) != 2 {
		t.Fatalf("expected length 2, got %d", len(out))
	}
}

func TestCostIdenticalSequenceIsZeroMismatch(t *testing.T) {
	seq := []enum.Token{{Opcode: 0xE8}} // INX
	cost := Cost(0x0200, seq, seq)
	if cost >= 1000 {
		t.Fatalf("identical sequences should have 0 mismatches, got cost %d", cost)
	}
}

func TestCostDifferentSequencesMismatch(t *testing.T) {
	target := []enum.Token{{Opcode: 0xA9, Operand: []uint8{0x00}}}    // LDA #$00
	candidate := []enum.Token{{Opcode: 0xA9, Operand: []uint8{0xFF}}} // LDA #$FF
	cost := Cost(0x0200, target, candidate)
	if cost < 1000 {
		t.Fatalf("sequences loading different constants should mismatch, got cost %d", cost)
	}
}

func TestMCMCChainAcceptsSomeSteps(t *testing.T) {
	target := []enum.Token{{Opcode: 0xA9, Operand: []uint8{0x00}}}
	chain := NewChain(0x0200, target, testAlphabet(), 1.0, 12345)

	for i := 0; i < 2000; i++ {
		chain.Step(0.999)
	}
	if chain.Accepted == 0 {
		t.Fatal("MCMC chain never accepted any step")
	}
}

func TestMCMCTemperatureDecays(t *testing.T) {
	target := []enum.Token{{Opcode: 0xE8}}
	chain := NewChain(0x0200, target, testAlphabet(), 1.0, 42)

	initial := chain.temperature
	for i := 0; i < 50; i++ {
		chain.Step(0.9)
	}
	if chain.temperature >= initial {
		t.Fatal("temperature did not decay")
	}
}

func TestRunFindsShorterEquivalentForEorFF(t *testing.T) {
	// EOR #$FF alone is probe-equivalent (on A/X/Y) to the target
	// EOR #$FF; NOP and one byte shorter, so Run proposes at least one
	// sequence, and every proposal is shorter than the target.
	target := []enum.Token{{Opcode: 0x49, Operand: []uint8{0xFF}}, {Opcode: 0xEA}}
	proposals := Run(context.Background(), Config{
		RunAddress: 0x0200,
		Target:     target,
		Alphabet:   testAlphabet(),
		Chains:     2,
		Iterations: 2000,
	})
	if len(proposals) == 0 {
		t.Fatal("expected at least one shorter proposal")
	}
	for _, p := range proposals {
		if sizeOf(p.Tokens) >= sizeOf(target) {
			t.Fatalf("proposal %v is not shorter than target", p.Tokens)
		}
	}
}

func TestDeduplicateRemovesRepeats(t *testing.T) {
	a := Proposal{Tokens: []enum.Token{{Opcode: 0xE8}}}
	b := Proposal{Tokens: []enum.Token{{Opcode: 0xE8}}}
	c := Proposal{Tokens: []enum.Token{{Opcode: 0xEA}}}

	unique := Deduplicate([]Proposal{a, b, c})
	if len(unique) != 2 {
		t.Fatalf("expected 2 unique proposals, got %d", len(unique))
	}
}
