// Package spec defines the declarative description a search run is
// given: the initial and final CPU/memory state, the regions a solution
// is allowed to touch, and the optimization goal.
package spec

import (
	"fmt"

	"github.com/oisee/phaistos/pkg/value"
)

// Goal selects what the search driver optimizes for.
type Goal uint8

const (
	SIZE Goal = iota
	SPEED
)

func (g Goal) String() string {
	if g == SPEED {
		return "SPEED"
	}
	return "SIZE"
}

// Flags is the seven flag bits a spec can constrain: C Z I D B V N. Each
// field holds a value.Value rather than a bool, so a flag can be EXACT,
// ANY, or (output-only) SAME/EQU.
type Flags struct {
	C, Z, I, D, B, V, N value.Value
}

// CPUState constrains A, X, Y, S (stack pointer), PC and the flag byte.
// Every field is a value.Value: inputs are typically EXACT or ANY,
// outputs may additionally use SAME/EQU.
type CPUState struct {
	A, X, Y, S value.Value
	PC         value.Value // low byte; high byte tracked separately if needed by a front end
	Flags      Flags
}

// RegionKind distinguishes an input region (readable, seeded from the
// spec) from an output region (writable, checked after execution).
type RegionKind uint8

const (
	InputRegion RegionKind = iota
	OutputRegion
)

// Region names a contiguous address range and the per-cell values it
// constrains.
type Region struct {
	Kind  RegionKind
	Start uint16
	Cells []value.Value // len(Cells) == End-Start+1
}

// End returns the inclusive end address of the region.
func (r Region) End() uint16 {
	return r.Start + uint16(len(r.Cells)) - 1
}

// BlockKind distinguishes a block of bytes the solution may overwrite
// (REGULAR) from one that must be preserved byte-for-byte (READONLY).
type BlockKind uint8

const (
	Regular BlockKind = iota
	ReadOnly
)

// CodeBlock is a span of memory holding the original program (or empty,
// when the spec describes pure synthesis rather than optimization of
// existing bytes).
type CodeBlock struct {
	Kind  BlockKind
	Start uint16
	Bytes []uint8
}

// End returns the inclusive end address of the code block.
func (c CodeBlock) End() uint16 {
	if len(c.Bytes) == 0 {
		return c.Start
	}
	return c.Start + uint16(len(c.Bytes)) - 1
}

// Specification is the complete intake contract for one search run.
type Specification struct {
	RunAddress uint16
	Input      CPUState
	Output     CPUState
	Regions    []Region
	Blocks     []CodeBlock
	Goal       Goal
}

// InvalidSpec reports a violation of the intake contract from §6.1:
// SAME/EQU used on an input, an address that doesn't fit in 16 bits,
// a missing run address, or overlapping regions of the same kind.
type InvalidSpec struct {
	Reason string
}

func (e *InvalidSpec) Error() string {
	return fmt.Sprintf("invalid specification: %s", e.Reason)
}

// Validate enforces the intake contract. It does not mutate s.
func (s *Specification) Validate() error {
	if err := validateState("input", s.Input, value.InputContext); err != nil {
		return err
	}
	if err := validateState("output", s.Output, value.OutputContext); err != nil {
		return err
	}

	var inputs, outputs []Region
	for _, r := range s.Regions {
		ctx := value.InputContext
		if r.Kind == OutputRegion {
			ctx = value.OutputContext
			outputs = append(outputs, r)
		} else {
			inputs = append(inputs, r)
		}
		if int(r.Start)+len(r.Cells) > 0x10000 {
			return &InvalidSpec{Reason: fmt.Sprintf("region at $%04X overflows the address space", r.Start)}
		}
		for i, c := range r.Cells {
			if (c.Kind == value.Same || c.Kind == value.Equ) && ctx != value.OutputContext {
				return &InvalidSpec{Reason: fmt.Sprintf("region at $%04X cell %d: SAME/EQU only valid in an output region", r.Start, i)}
			}
		}
	}
	if overlaps(inputs) {
		return &InvalidSpec{Reason: "input regions overlap"}
	}
	if overlaps(outputs) {
		return &InvalidSpec{Reason: "output regions overlap"}
	}

	for _, b := range s.Blocks {
		if int(b.Start)+len(b.Bytes) > 0x10000 {
			return &InvalidSpec{Reason: fmt.Sprintf("code block at $%04X overflows the address space", b.Start)}
		}
	}

	return nil
}

func validateState(label string, st CPUState, ctx value.Context) error {
	cells := []value.Value{st.A, st.X, st.Y, st.S, st.PC,
		st.Flags.C, st.Flags.Z, st.Flags.I, st.Flags.D, st.Flags.B, st.Flags.V, st.Flags.N}
	for _, c := range cells {
		if (c.Kind == value.Same || c.Kind == value.Equ) && ctx != value.OutputContext {
			return &InvalidSpec{Reason: fmt.Sprintf("%s CPU state: SAME/EQU only valid on outputs", label)}
		}
	}
	return nil
}

func overlaps(regions []Region) bool {
	for i := 0; i < len(regions); i++ {
		for j := i + 1; j < len(regions); j++ {
			a, b := regions[i], regions[j]
			if a.Start <= b.End() && b.Start <= a.End() {
				return true
			}
		}
	}
	return false
}
