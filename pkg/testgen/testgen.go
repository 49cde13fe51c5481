// Package testgen builds the set of concrete test cases a Verifier runs
// a candidate sequence against, from a Specification's EXACT/ANY/SAME/EQU
// constraints.
package testgen

import (
	"context"
	"math/rand"
	"sort"

	"github.com/oisee/phaistos/pkg/cpu"
	"github.com/oisee/phaistos/pkg/mem"
	"github.com/oisee/phaistos/pkg/spec"
	"github.com/oisee/phaistos/pkg/value"
)

// Boundary is the fixed sample set a bounded ANY dimension is expanded
// with: the extremes and sign-bit edges most likely to expose a
// candidate's edge-case bugs.
var Boundary = []uint8{0x00, 0x01, 0x7F, 0x80, 0xFF}

// Config governs generation volume and determinism.
type Config struct {
	Seed     int64
	MaxCases int // default 128 when zero
}

func (c Config) maxCases() int {
	if c.MaxCases <= 0 {
		return 128
	}
	return c.MaxCases
}

// Reference holds the byte values a run of the original code block
// produced for one test case, used to resolve EQU output constraints.
type Reference struct {
	A, X, Y, S, P uint8
	Mem           map[uint16]uint8
}

// TestCase is one concrete starting point a candidate sequence must be
// verified against.
type TestCase struct {
	A, X, Y, S, P uint8
	PC            uint16
	Mem           map[uint16]uint8 // concrete input memory bytes, by address
	Ref           *Reference       // non-nil only when the spec uses EQU
}

// dimension is one ANY-constrained input slot: a register/flag field or
// a single input-memory address.
type dimension struct {
	set func(*TestCase, uint8)
}

// Generate builds the full test-case set for s: a base case from the
// EXACT inputs, one critical case per ANY dimension swept across
// Boundary while all other dimensions hold their base value, and a
// seeded random sample of Boundary combinations filling out the
// remainder up to cfg.MaxCases. The full product is never enumerated
// as such; sampling stops early once repeats show the space is smaller
// than the bound. The base case and every critical case are always
// retained.
func Generate(ctx context.Context, s *spec.Specification, cfg Config) ([]TestCase, error) {
	base := TestCase{Mem: map[uint16]uint8{}}

	dims, err := collectDimensions(s, &base)
	if err != nil {
		return nil, err
	}

	cases := []TestCase{cloneCase(base)}
	seen := map[string]bool{caseKey(base): true}

	addIfNew := func(tc TestCase) bool {
		k := caseKey(tc)
		if seen[k] {
			return false
		}
		seen[k] = true
		cases = append(cases, tc)
		return true
	}

	// Critical cases: one dimension swept at a time. These (plus the
	// base case) are always retained, even past cfg.maxCases() — only
	// the random-fill tail below is subject to the bound.
	for _, d := range dims {
		for _, b := range Boundary {
			tc := cloneCase(base)
			d.set(&tc, b)
			addIfNew(tc)
		}
	}
	critical := len(cases)

	max := cfg.maxCases()
	rng := rand.New(rand.NewSource(cfg.Seed))
	for len(cases) < max && len(dims) > 0 {
		tc := cloneCase(base)
		for _, d := range dims {
			d.set(&tc, Boundary[rng.Intn(len(Boundary))])
		}
		if !addIfNew(tc) && len(seen) >= max*4 {
			// the dimension space is smaller than max; stop sampling
			break
		}
	}

	if critical < max && len(cases) > max {
		cases = cases[:max]
	}

	if err := fillReferences(ctx, s, cases); err != nil {
		return nil, err
	}

	return cases, nil
}

func collectDimensions(s *spec.Specification, base *TestCase) ([]dimension, error) {
	var dims []dimension

	regs := []struct {
		v   value.Value
		set func(*TestCase, uint8)
	}{
		{s.Input.A, func(tc *TestCase, b uint8) { tc.A = b }},
		{s.Input.X, func(tc *TestCase, b uint8) { tc.X = b }},
		{s.Input.Y, func(tc *TestCase, b uint8) { tc.Y = b }},
		{s.Input.S, func(tc *TestCase, b uint8) { tc.S = b }},
	}
	for _, r := range regs {
		switch r.v.Kind {
		case value.Exact:
			r.set(base, r.v.Byte)
		case value.Any:
			dims = append(dims, dimension{set: r.set})
		case value.Same, value.Equ:
			return nil, &spec.InvalidSpec{Reason: "SAME/EQU are not valid on inputs"}
		}
	}

	base.PC = s.RunAddress

	flags := []struct {
		bit cpu.Flag
		v   value.Value
	}{
		{cpu.FlagC, s.Input.Flags.C}, {cpu.FlagZ, s.Input.Flags.Z}, {cpu.FlagI, s.Input.Flags.I},
		{cpu.FlagD, s.Input.Flags.D}, {cpu.FlagB, s.Input.Flags.B}, {cpu.FlagV, s.Input.Flags.V},
		{cpu.FlagN, s.Input.Flags.N},
	}
	for _, f := range flags {
		switch f.v.Kind {
		case value.Exact:
			if f.v.Byte != 0 {
				base.P |= uint8(f.bit)
			}
		case value.Any:
			bit := f.bit
			dims = append(dims, dimension{
				set: func(tc *TestCase, b uint8) {
					if b&1 != 0 {
						tc.P |= uint8(bit)
					} else {
						tc.P &^= uint8(bit)
					}
				},
			})
		case value.Same, value.Equ:
			return nil, &spec.InvalidSpec{Reason: "SAME/EQU are not valid on input flags"}
		}
	}

	for _, r := range s.Regions {
		if r.Kind != spec.InputRegion {
			continue
		}
		for i, c := range r.Cells {
			addr := r.Start + uint16(i)
			switch c.Kind {
			case value.Exact:
				base.Mem[addr] = c.Byte
			case value.Any:
				a := addr
				dims = append(dims, dimension{
					set: func(tc *TestCase, b uint8) { tc.Mem[a] = b },
				})
			case value.Same, value.Equ:
				return nil, &spec.InvalidSpec{Reason: "SAME/EQU are not valid on input regions"}
			}
		}
	}

	return dims, nil
}

func cloneCase(tc TestCase) TestCase {
	out := tc
	out.Mem = make(map[uint16]uint8, len(tc.Mem))
	for k, v := range tc.Mem {
		out.Mem[k] = v
	}
	return out
}

func caseKey(tc TestCase) string {
	addrs := make([]uint16, 0, len(tc.Mem))
	for a := range tc.Mem {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	buf := make([]byte, 0, 8+len(addrs)*3)
	buf = append(buf, tc.A, tc.X, tc.Y, tc.S, tc.P, byte(tc.PC>>8), byte(tc.PC))
	for _, a := range addrs {
		buf = append(buf, byte(a>>8), byte(a), tc.Mem[a])
	}
	return string(buf)
}

// fillReferences runs the spec's original code block once per test case
// for any spec that uses EQU on an output, capturing the bytes a real
// run produces. Per the "EQU is rejected wherever the reference pass
// cannot run" resolution, a spec with EQU outputs but no code block
// (pure synthesis) is an InvalidSpec, not a silently-skipped case.
func fillReferences(ctx context.Context, s *spec.Specification, cases []TestCase) error {
	if !usesEqu(s) {
		return nil
	}
	if len(s.Blocks) == 0 {
		return &spec.InvalidSpec{Reason: "EQU output requires an original code block to run a reference pass against"}
	}

	for i := range cases {
		tc := &cases[i]
		policy := mem.Policy{Code: mem.Region{Start: s.Blocks[0].Start, End: s.Blocks[0].End()}}
		for _, r := range s.Regions {
			region := mem.Region{Start: r.Start, End: r.End()}
			if r.Kind == spec.InputRegion {
				policy.Inputs = append(policy.Inputs, region)
			} else {
				policy.Outputs = append(policy.Outputs, region)
			}
		}

		m := mem.New(policy)
		for _, b := range s.Blocks {
			for i, by := range b.Bytes {
				m.Initialize(b.Start+uint16(i), by)
			}
		}
		for addr, v := range tc.Mem {
			m.Initialize(addr, v)
		}

		init := cpu.State{A: tc.A, X: tc.X, Y: tc.Y, S: tc.S, P: tc.P}
		res, err := cpu.Execute(ctx, m, init, cpu.Config{IllegalOpcodes: true}, s.Blocks[0].Start, 1<<20)
		if err != nil {
			return &spec.InvalidSpec{Reason: "reference pass failed: " + err.Error()}
		}

		ref := &Reference{A: res.Final.A, X: res.Final.X, Y: res.Final.Y, S: res.Final.S, P: res.Final.P, Mem: map[uint16]uint8{}}
		for _, r := range s.Regions {
			if r.Kind != spec.OutputRegion {
				continue
			}
			for j := range r.Cells {
				addr := r.Start + uint16(j)
				ref.Mem[addr] = m.Peek(addr)
			}
		}
		tc.Ref = ref
	}
	return nil
}

func usesEqu(s *spec.Specification) bool {
	fields := []value.Value{s.Output.A, s.Output.X, s.Output.Y, s.Output.S,
		s.Output.Flags.C, s.Output.Flags.Z, s.Output.Flags.I, s.Output.Flags.D,
		s.Output.Flags.B, s.Output.Flags.V, s.Output.Flags.N}
	for _, f := range fields {
		if f.Kind == value.Equ {
			return true
		}
	}
	for _, r := range s.Regions {
		if r.Kind != spec.OutputRegion {
			continue
		}
		for _, c := range r.Cells {
			if c.Kind == value.Equ {
				return true
			}
		}
	}
	return false
}
