// Package verify checks whether a candidate byte sequence realizes a
// Specification's transformation across a set of generated test cases.
package verify

import (
	"context"
	"fmt"

	"github.com/oisee/phaistos/pkg/cpu"
	"github.com/oisee/phaistos/pkg/mem"
	"github.com/oisee/phaistos/pkg/spec"
	"github.com/oisee/phaistos/pkg/testgen"
	"github.com/oisee/phaistos/pkg/value"
)

// EntityKind names what kind of output cell a Failure is about.
type EntityKind uint8

const (
	RegisterEntity EntityKind = iota
	FlagEntity
	MemoryEntity
	ExecutionEntity
)

// Failure is the structured record a failing test case produces,
// assembled field-by-field so callers (CLI verbose output, tests) can
// match on it rather than parse a formatted string.
type Failure struct {
	CaseIndex int
	Entity    EntityKind
	Name      string // "A", "Z", or an address like "$0010"
	Observed  uint8
	WantKind  value.Kind
	WantByte  uint8 // valid only when WantKind == value.Exact
	Detail    string
}

func (f *Failure) Error() string {
	if f.Entity == ExecutionEntity {
		return fmt.Sprintf("test case %d: %s", f.CaseIndex, f.Detail)
	}
	return fmt.Sprintf("test case %d: %s = %02X, want %s", f.CaseIndex, f.Name, f.Observed, f.WantKind)
}

// Config bounds a verification run.
type Config struct {
	MaxInstructions int // default 10000 when zero
	IllegalOpcodes  bool
}

func (c Config) maxInstructions() int {
	if c.MaxInstructions <= 0 {
		return 10000
	}
	return c.MaxInstructions
}

// Verify runs sequence against every case and checks it against s's
// output constraints. It fails fast: the first failing case and cell
// stop the run and are returned. A nil Failure and nil error means
// sequence realizes the transformation on every case given.
func Verify(ctx context.Context, s *spec.Specification, sequence []uint8, cases []testgen.TestCase, cfg Config) (*Failure, error) {
	for i, tc := range cases {
		fail, err := verifyOne(ctx, s, sequence, i, tc, cfg)
		if err != nil {
			return nil, err
		}
		if fail != nil {
			return fail, nil
		}
	}
	return nil, nil
}

func verifyOne(ctx context.Context, s *spec.Specification, sequence []uint8, idx int, tc testgen.TestCase, cfg Config) (*Failure, error) {
	policy := mem.Policy{Code: mem.Region{Start: s.RunAddress, End: s.RunAddress + uint16(len(sequence)) - 1}}
	for _, r := range s.Regions {
		region := mem.Region{Start: r.Start, End: r.End()}
		if r.Kind == spec.InputRegion {
			policy.Inputs = append(policy.Inputs, region)
		} else {
			policy.Outputs = append(policy.Outputs, region)
		}
	}

	m := mem.New(policy)
	for i, b := range sequence {
		m.Initialize(s.RunAddress+uint16(i), b)
	}
	for addr, v := range tc.Mem {
		m.Initialize(addr, v)
	}

	init := cpu.State{A: tc.A, X: tc.X, Y: tc.Y, S: tc.S, P: tc.P}
	res, err := cpu.Execute(ctx, m, init, cpu.Config{IllegalOpcodes: cfg.IllegalOpcodes}, s.RunAddress, cfg.maxInstructions())
	if err != nil {
		return &Failure{CaseIndex: idx, Entity: ExecutionEntity, Detail: err.Error()}, nil
	}

	if f := checkRegister("A", res.Final.A, tc.A, refA(tc), s.Output.A); f != nil {
		f.CaseIndex = idx
		return f, nil
	}
	if f := checkRegister("X", res.Final.X, tc.X, refX(tc), s.Output.X); f != nil {
		f.CaseIndex = idx
		return f, nil
	}
	if f := checkRegister("Y", res.Final.Y, tc.Y, refY(tc), s.Output.Y); f != nil {
		f.CaseIndex = idx
		return f, nil
	}
	if f := checkRegister("S", res.Final.S, tc.S, refS(tc), s.Output.S); f != nil {
		f.CaseIndex = idx
		return f, nil
	}

	flags := []struct {
		name string
		bit  cpu.Flag
		want value.Value
	}{
		{"C", cpu.FlagC, s.Output.Flags.C}, {"Z", cpu.FlagZ, s.Output.Flags.Z},
		{"I", cpu.FlagI, s.Output.Flags.I}, {"D", cpu.FlagD, s.Output.Flags.D},
		{"B", cpu.FlagB, s.Output.Flags.B}, {"V", cpu.FlagV, s.Output.Flags.V},
		{"N", cpu.FlagN, s.Output.Flags.N},
	}
	for _, fl := range flags {
		observed := uint8(0)
		if res.Final.P&uint8(fl.bit) != 0 {
			observed = 1
		}
		initialBit := uint8(0)
		if tc.P&uint8(fl.bit) != 0 {
			initialBit = 1
		}
		refBit := initialBit
		if tc.Ref != nil && tc.Ref.P&uint8(fl.bit) != 0 {
			refBit = 1
		}
		if f := checkCell(FlagEntity, fl.name, observed, initialBit, refBit, fl.want); f != nil {
			f.CaseIndex = idx
			return f, nil
		}
	}

	for _, r := range s.Regions {
		if r.Kind != spec.OutputRegion {
			continue
		}
		for i, want := range r.Cells {
			addr := r.Start + uint16(i)
			observed := m.Peek(addr)
			initial := tc.Mem[addr]
			refByte := initial
			if tc.Ref != nil {
				if rb, ok := tc.Ref.Mem[addr]; ok {
					refByte = rb
				}
			}
			name := fmt.Sprintf("$%04X", addr)
			if f := checkCell(MemoryEntity, name, observed, initial, refByte, want); f != nil {
				f.CaseIndex = idx
				return f, nil
			}
		}
	}

	return nil, nil
}

func refA(tc testgen.TestCase) uint8 {
	if tc.Ref != nil {
		return tc.Ref.A
	}
	return tc.A
}
func refX(tc testgen.TestCase) uint8 {
	if tc.Ref != nil {
		return tc.Ref.X
	}
	return tc.X
}
func refY(tc testgen.TestCase) uint8 {
	if tc.Ref != nil {
		return tc.Ref.Y
	}
	return tc.Y
}
func refS(tc testgen.TestCase) uint8 {
	if tc.Ref != nil {
		return tc.Ref.S
	}
	return tc.S
}

func checkRegister(name string, observed, initial, reference uint8, want value.Value) *Failure {
	return checkCell(RegisterEntity, name, observed, initial, reference, want)
}

// checkCell applies the four pass conditions: EXACT compares to the
// constant byte, ANY always passes, SAME compares to the test case's
// initial value, EQU compares to the reference-pass capture.
func checkCell(kind EntityKind, name string, observed, initial, reference uint8, want value.Value) *Failure {
	switch want.Kind {
	case value.Any:
		return nil
	case value.Exact:
		if observed != want.Byte {
			return &Failure{Entity: kind, Name: name, Observed: observed, WantKind: value.Exact, WantByte: want.Byte}
		}
	case value.Same:
		if observed != initial {
			return &Failure{Entity: kind, Name: name, Observed: observed, WantKind: value.Same, WantByte: initial}
		}
	case value.Equ:
		if observed != reference {
			return &Failure{Entity: kind, Name: name, Observed: observed, WantKind: value.Equ, WantByte: reference}
		}
	}
	return nil
}
