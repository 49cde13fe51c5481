// Package enum generates candidate 6502 byte sequences in non-decreasing
// byte-length order, over a slotted alphabet of (opcode, operand-slot)
// choices, generalizing the flat fixed-length recursive enumeration the
// teacher used for a fixed Z80 instruction set.
package enum

import "github.com/oisee/phaistos/pkg/cpu"

// Config bounds the slotted alphabet the enumerator draws from.
type Config struct {
	ValidOpcodes  []uint8 // opcode bytes eligible for use; nil means Catalog's legal set
	ConstSlots    []uint8 // canonical immediate operand values
	ZeroPageSlots []uint8 // canonical zero-page addresses
	MemorySlots   []uint16 // canonical absolute addresses
	MaxLen        int      // max candidate length, in bytes
}

func (c Config) validOpcodes() []uint8 {
	if c.ValidOpcodes != nil {
		return c.ValidOpcodes
	}
	return cpu.LegalCodes()
}

// Token is one fully-resolved instruction choice: an opcode byte plus
// its concrete operand bytes, drawn from the canonicalization slots.
type Token struct {
	Opcode  uint8
	Operand []uint8
}

// Size is the token's length in bytes, opcode included.
func (t Token) Size() int { return 1 + len(t.Operand) }

// Bytes returns the token's encoding.
func (t Token) Bytes() []uint8 {
	out := make([]uint8, 0, t.Size())
	out = append(out, t.Opcode)
	out = append(out, t.Operand...)
	return out
}

// Sequence is a candidate instruction sequence.
type Sequence struct {
	Tokens []Token
}

// Bytes returns the sequence's full byte encoding.
func (s Sequence) Bytes() []uint8 {
	out := make([]uint8, 0, s.Size())
	for _, t := range s.Tokens {
		out = append(out, t.Bytes()...)
	}
	return out
}

// Size is the sequence's total length in bytes.
func (s Sequence) Size() int {
	n := 0
	for _, t := range s.Tokens {
		n += t.Size()
	}
	return n
}

// BuildAlphabet expands cfg into the set of concrete Tokens a position
// in a candidate sequence may take. Relative-mode (branch) opcodes get
// one token per representable displacement in [-cfg.MaxLen, cfg.MaxLen]
// — any displacement landing outside a given candidate's own bytes is
// rejected later, per the "relative targets stay inside the candidate"
// rule, since a superoptimizer candidate never branches into code it
// didn't itself emit.
func BuildAlphabet(cfg Config) []Token {
	var alphabet []Token

	constSlots := cfg.ConstSlots
	if len(constSlots) == 0 {
		constSlots = []uint8{0x00, 0x01, 0xFF}
	}
	zpSlots := cfg.ZeroPageSlots
	if len(zpSlots) == 0 {
		zpSlots = []uint8{0x00, 0x01}
	}
	memSlots := cfg.MemorySlots
	if len(memSlots) == 0 {
		memSlots = []uint16{0x0300}
	}

	for _, op := range cfg.validOpcodes() {
		info := cpu.Catalog[op]
		if info.Jam {
			continue
		}
		switch info.Mode {
		case cpu.Implied, cpu.Accumulator:
			alphabet = append(alphabet, Token{Opcode: op})
		case cpu.Immediate:
			for _, c := range constSlots {
				alphabet = append(alphabet, Token{Opcode: op, Operand: []uint8{c}})
			}
		case cpu.ZeroPage, cpu.ZeroPageX, cpu.ZeroPageY, cpu.IndirectX, cpu.IndirectY:
			for _, a := range zpSlots {
				alphabet = append(alphabet, Token{Opcode: op, Operand: []uint8{a}})
			}
		case cpu.Absolute, cpu.AbsoluteX, cpu.AbsoluteY, cpu.Indirect:
			for _, a := range memSlots {
				alphabet = append(alphabet, Token{Opcode: op, Operand: []uint8{uint8(a), uint8(a >> 8)}})
			}
		case cpu.Relative:
			max := cfg.MaxLen
			if max <= 0 || max > 127 {
				max = 127
			}
			for d := -max; d <= max; d++ {
				alphabet = append(alphabet, Token{Opcode: op, Operand: []uint8{uint8(int8(d))}})
			}
		}
	}
	return alphabet
}

// Enumerate visits every candidate sequence over alphabet whose total
// byte length is at most cfg.MaxLen, in non-decreasing byte-length
// order, skipping those whose branch targets leave the sequence or that
// ShouldPrune rejects. fn returning false stops enumeration early. This mirrors the
// teacher's EnumerateSequences(n, fn) push model, generalized from a
// fixed instruction count to a fixed byte-length budget per round.
func Enumerate(cfg Config, fn func(Sequence) bool) {
	alphabet := BuildAlphabet(cfg)
	if len(alphabet) == 0 {
		return
	}
	minSize := alphabet[0].Size()
	for _, t := range alphabet {
		if t.Size() < minSize {
			minSize = t.Size()
		}
	}

	for length := minSize; length <= cfg.MaxLen; length++ {
		cont := enumerateBudget(alphabet, nil, length, func(tokens []Token) bool {
			seq := Sequence{Tokens: append([]Token(nil), tokens...)}
			if !relativeTargetsInRange(seq) {
				return true
			}
			if ShouldPrune(seq) {
				return true
			}
			return fn(seq)
		})
		if !cont {
			return
		}
	}
}

// enumerateBudget recursively builds token sequences whose sizes sum to
// exactly budget bytes, appending each completed one to prefix via fn.
func enumerateBudget(alphabet []Token, prefix []Token, budget int, fn func([]Token) bool) bool {
	if budget == 0 {
		return fn(prefix)
	}
	for _, t := range alphabet {
		if t.Size() > budget {
			continue
		}
		if !enumerateBudget(alphabet, append(prefix, t), budget-t.Size(), fn) {
			return false
		}
	}
	return true
}

// relativeTargetsInRange enforces that every branch token's computed
// target address (relative to its own position within seq) lands
// inside seq's own bytes.
func relativeTargetsInRange(seq Sequence) bool {
	offset := 0
	for _, t := range seq.Tokens {
		info := cpu.Catalog[t.Opcode]
		if info.Mode == cpu.Relative {
			d := int8(t.Operand[0])
			target := offset + t.Size() + int(d)
			if target < 0 || target >= seq.Size() {
				return false
			}
		}
		offset += t.Size()
	}
	return true
}
