package cpu

import (
	"context"
	"testing"

	"github.com/oisee/phaistos/pkg/mem"
)

func freshMemory() *mem.Memory {
	return mem.New(mem.Policy{
		Code:    mem.Region{Start: 0x0000, End: 0xFFFF},
		Inputs:  []mem.Region{{Start: 0x0000, End: 0xFFFF}},
		Outputs: []mem.Region{{Start: 0x0000, End: 0xFFFF}},
	})
}

func load(m *mem.Memory, addr uint16, bytes ...uint8) {
	for i, b := range bytes {
		m.Initialize(addr+uint16(i), b)
	}
}

func run(t *testing.T, m *mem.Memory, s State, maxInstr int) Result {
	t.Helper()
	res, err := Execute(context.Background(), m, s, Config{}, s.PC, maxInstr)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return res
}

func TestLdaImmediateSetsAAndFlags(t *testing.T) {
	m := freshMemory()
	load(m, 0x0200, 0xA9, 0x00, 0x00) // LDA #$00; BRK
	res := run(t, m, State{PC: 0x0200, S: 0xFF}, 10)
	if res.Final.A != 0x00 {
		t.Fatalf("A = %02X, want 00", res.Final.A)
	}
	if !hasFlag(res.Final.P, FlagZ) {
		t.Fatal("Z flag should be set after loading zero")
	}
}

func TestStaWritesMemory(t *testing.T) {
	m := freshMemory()
	load(m, 0x0200, 0xA9, 0x42, 0x85, 0x10, 0x00) // LDA #$42; STA $10; BRK
	run(t, m, State{PC: 0x0200, S: 0xFF}, 10)
	if got := m.Peek(0x0010); got != 0x42 {
		t.Fatalf("mem[$10] = %02X, want 42", got)
	}
}

func TestAdcBinaryCarryAndOverflow(t *testing.T) {
	m := freshMemory()
	load(m, 0x0200, 0xA9, 0x7F, 0x69, 0x01, 0x00) // LDA #$7F; ADC #$01; BRK
	res := run(t, m, State{PC: 0x0200, S: 0xFF}, 10)
	if res.Final.A != 0x80 {
		t.Fatalf("A = %02X, want 80", res.Final.A)
	}
	if !hasFlag(res.Final.P, FlagV) {
		t.Fatal("V flag should be set: $7F+$01 overflows into negative")
	}
	if !hasFlag(res.Final.P, FlagN) {
		t.Fatal("N flag should be set")
	}
}

func TestAdcDecimalMode(t *testing.T) {
	m := freshMemory()
	// SED; LDA #$09; ADC #$01; BRK -- decimal 9+1 = 10, stored as $10
	load(m, 0x0200, 0xF8, 0xA9, 0x09, 0x69, 0x01, 0x00)
	res := run(t, m, State{PC: 0x0200, S: 0xFF}, 10)
	if res.Final.A != 0x10 {
		t.Fatalf("decimal A = %02X, want 10", res.Final.A)
	}
}

func TestBranchTaken(t *testing.T) {
	m := freshMemory()
	// LDA #$00; BEQ +2 (skip next LDA); LDA #$FF; target: LDA #$01; BRK
	load(m, 0x0200, 0xA9, 0x00, 0xF0, 0x02, 0xA9, 0xFF, 0xA9, 0x01, 0x00)
	res := run(t, m, State{PC: 0x0200, S: 0xFF}, 10)
	if res.Final.A != 0x01 {
		t.Fatalf("A = %02X, want 01 (branch should have been taken)", res.Final.A)
	}
}

func TestStackPushPop(t *testing.T) {
	m := freshMemory()
	load(m, 0x0200, 0xA9, 0x33, 0x48, 0xA9, 0x00, 0x68, 0x00) // LDA #$33; PHA; LDA #$00; PLA; BRK
	res := run(t, m, State{PC: 0x0200, S: 0xFF}, 10)
	if res.Final.A != 0x33 {
		t.Fatalf("A = %02X, want 33 after PLA", res.Final.A)
	}
	// PHA/PLA balance out; the terminating BRK then pushes its return
	// address and status (3 bytes), leaving S at $FF-3.
	if res.Final.S != 0xFC {
		t.Fatalf("S = %02X, want FC (balanced push/pop, then BRK's 3-byte push)", res.Final.S)
	}
}

func TestIllegalOpcodeRejectedByDefault(t *testing.T) {
	m := freshMemory()
	load(m, 0x0200, 0xA7, 0x00) // LAX $00 (illegal)
	_, err := Execute(context.Background(), m, State{PC: 0x0200, S: 0xFF}, Config{}, 0x0200, 10)
	if _, ok := err.(*IllegalInstruction); !ok {
		t.Fatalf("expected IllegalInstruction, got %v", err)
	}
}

func TestIllegalOpcodeAllowedWhenConfigured(t *testing.T) {
	m := freshMemory()
	load(m, 0x0200, 0xA2, 0x07, 0xA7, 0x00, 0x00) // LDX #$07; LAX $00; BRK
	res, err := Execute(context.Background(), m, State{PC: 0x0200, S: 0xFF}, Config{IllegalOpcodes: true}, 0x0200, 10)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Final.X != 0x00 {
		t.Fatalf("X = %02X, want 00 (LAX should reload X from memory)", res.Final.X)
	}
}

func TestExecutionLimitWithoutBrk(t *testing.T) {
	m := freshMemory()
	load(m, 0x0200, 0x4C, 0x00, 0x02) // JMP $0200 forever
	_, err := Execute(context.Background(), m, State{PC: 0x0200, S: 0xFF}, Config{}, 0x0200, 5)
	if _, ok := err.(*ExecutionLimit); !ok {
		t.Fatalf("expected ExecutionLimit, got %v", err)
	}
}

func TestIndirectJmpPageWrapBug(t *testing.T) {
	m := freshMemory()
	// Pointer at $02FF: low byte $00 there, but the NMOS bug re-reads the
	// high byte from $0200 (wrapping within the page) instead of $0300.
	load(m, 0x02FF, 0x00)
	m.Initialize(0x0200, 0x34) // wrong-page high byte the bug actually uses
	m.Initialize(0x0300, 0x12) // correct high byte, never read due to the bug
	load(m, 0x0400, 0x6C, 0xFF, 0x02) // JMP ($02FF)
	res, err := Execute(context.Background(), m, State{PC: 0x0400, S: 0xFF}, Config{}, 0x0400, 1)
	if _, ok := err.(*ExecutionLimit); !ok {
		t.Fatalf("expected ExecutionLimit, got %v", err)
	}
	if res.Final.PC != 0x3400 {
		t.Fatalf("PC = %04X, want 3400 (buggy wrapped target)", res.Final.PC)
	}
}
