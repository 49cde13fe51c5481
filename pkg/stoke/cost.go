// Package stoke proposes candidate replacement sequences via simulated
// annealing over random mutations, the way STOKE-style superoptimizers
// explore a search space too large to enumerate exhaustively. It never
// decides equivalence itself — every proposal it produces is only ever
// a hint for the exhaustive search driver, which still runs it through
// the real verifier before it is cached or returned.
package stoke

import (
	"context"

	"github.com/oisee/phaistos/pkg/cpu"
	"github.com/oisee/phaistos/pkg/enum"
	"github.com/oisee/phaistos/pkg/mem"
)

// probeStates are fixed register starting points for quick, cheap
// approximate equivalence scoring during the MCMC walk.
var probeStates = []cpu.State{
	{A: 0x00, X: 0x00, Y: 0x00, S: 0xFF},
	{A: 0xFF, X: 0xFF, Y: 0xFF, S: 0xFF},
	{A: 0x01, X: 0x02, Y: 0x03, S: 0xFF},
	{A: 0x80, X: 0x40, Y: 0x20, S: 0xFF},
	{A: 0x7F, X: 0x7F, Y: 0x7F, S: 0xFF},
}

func tokensBytes(toks []enum.Token) []uint8 {
	var out []uint8
	for _, t := range toks {
		out = append(out, t.Bytes()...)
	}
	return out
}

func sizeOf(toks []enum.Token) int {
	n := 0
	for _, t := range toks {
		n += t.Size()
	}
	return n
}

// runProbe executes toks from runAddr against initial, returning the
// final register state. Memory access is left wide open (every address
// is both readable and writable) since this is only an approximate
// probe, not a spec-faithful run.
func runProbe(runAddr uint16, toks []enum.Token, initial cpu.State) cpu.State {
	policy := mem.Policy{
		Outputs: []mem.Region{{Start: 0x0000, End: 0xFFFF}},
		Code:    mem.Region{Start: 0x0000, End: 0xFFFF},
	}
	m := mem.New(policy)
	addr := runAddr
	for _, b := range tokensBytes(toks) {
		m.Initialize(addr, b)
		addr++
	}
	m.Initialize(addr, 0x00) // BRK terminator so a probe always halts

	res, err := cpu.Execute(context.Background(), m, initial, cpu.Config{IllegalOpcodes: true}, runAddr, 4096)
	if err != nil {
		return cpu.State{A: 0xDE, X: 0xAD, Y: 0xBE, S: 0xEF}
	}
	return res.Final
}

// Mismatches counts probe states on which candidate's final A/X/Y
// differ from target's. Flags and memory are ignored here; that's the
// real verifier's job once a candidate looks promising.
func Mismatches(runAddr uint16, target, candidate []enum.Token) int {
	n := 0
	for _, probe := range probeStates {
		t := runProbe(runAddr, target, probe)
		c := runProbe(runAddr, candidate, probe)
		if t.A != c.A || t.X != c.X || t.Y != c.Y {
			n++
		}
	}
	return n
}

// Cost scores candidate against target: 1000 per probe mismatch plus
// byte size, mirroring the teacher's stoke.Cost formula. A cost under
// 1000 means candidate matched every probe and is worth handing to the
// real verifier.
func Cost(runAddr uint16, target, candidate []enum.Token) int {
	mismatches := Mismatches(runAddr, target, candidate)
	return 1000*mismatches + sizeOf(candidate)
}
