package enum

import "github.com/oisee/phaistos/pkg/cpu"

// regMask tracks which of the CPU's register-like state a token reads
// or writes, generalizing the teacher's Z80 regA/regB/.../regF bitmask
// to the 6502's A/X/Y/S/flags set.
type regMask uint8

const (
	regA regMask = 1 << iota
	regX
	regY
	regS
	regP // the status register as a whole; flag-level dead-write pruning is skipped, mirroring the teacher's ^regF exclusion
	regMem
)

// ShouldPrune reports whether seq is provably redundant and can be
// skipped without narrowing the search: it contains a NOP, it writes a
// register that's clobbered before being read, or two independent
// adjacent tokens are out of canonical order (eliminating permutation
// duplicates of otherwise-equivalent sequences).
func ShouldPrune(seq Sequence) bool {
	toks := seq.Tokens
	for i := range toks {
		info := cpu.Catalog[toks[i].Opcode]
		if info.Mnemonic == "NOP" {
			return true
		}
		if i+1 < len(toks) && isDeadWrite(toks[i], toks[i+1]) {
			return true
		}
	}

	for i := 0; i+1 < len(toks); i++ {
		if areIndependent(toks[i], toks[i+1]) && tokenKey(toks[i]) > tokenKey(toks[i+1]) {
			return true
		}
	}
	return false
}

func isDeadWrite(first, second Token) bool {
	written := opWrites(first)
	if written == 0 {
		return false
	}
	read := opReads(second)
	written2 := opWrites(second)
	dead := written & written2 &^ regP &^ regMem &^ read
	return dead != 0
}

func areIndependent(a, b Token) bool {
	aR, aW := opReads(a), opWrites(a)
	bR, bW := opReads(b), opWrites(b)
	for i, t := range [2]Token{a, b} {
		info := cpu.Catalog[t.Opcode]
		switch info.Mnemonic {
		case "BRK", "JMP", "JSR", "RTS", "RTI":
			return false // moving a control transfer changes what runs
		}
		switch info.Mode {
		case cpu.Relative:
			return false
		case cpu.Implied, cpu.Accumulator, cpu.Immediate:
		default: // a memory operand: treat it as a memory read
			if i == 0 {
				aR |= regMem
			} else {
				bR |= regMem
			}
		}
	}
	if aW&bR != 0 || aR&bW != 0 || aW&bW != 0 {
		return false
	}
	return true
}

func tokenKey(t Token) uint32 {
	key := uint32(t.Opcode) << 16
	for i, b := range t.Operand {
		key |= uint32(b) << uint(8*(1-i))
	}
	return key
}

// opWrites returns the register-like state a token's mnemonic modifies,
// independent of addressing mode. Memory-writing mnemonics also set
// regMem, but since their target address is runtime-indexed for X/Y
// addressing modes, dead-write detection across distinct memory cells
// is conservatively skipped (regMem is masked out in isDeadWrite).
func opWrites(t Token) regMask {
	switch cpu.Catalog[t.Opcode].Mnemonic {
	case "LDA", "AND", "ORA", "EOR", "ADC", "SBC", "ANC", "ALR", "ARR":
		return regA | regP
	case "ASL", "LSR", "ROL", "ROR":
		if cpu.Catalog[t.Opcode].Mode == cpu.Accumulator {
			return regA | regP
		}
		return regMem | regP
	case "LDX", "AXS":
		return regX | regP
	case "LDY":
		return regY | regP
	case "LAX":
		return regA | regX | regP
	case "TAX":
		return regX
	case "TXA":
		return regA
	case "TAY":
		return regY
	case "TYA":
		return regA
	case "TSX":
		return regX
	case "TXS":
		return regS
	case "INX", "DEX":
		return regX | regP
	case "INY", "DEY":
		return regY | regP
	case "CLC", "SEC", "CLI", "SEI", "CLD", "SED", "CLV":
		return regP
	case "PLA":
		return regA | regS | regP
	case "PLP":
		return regP | regS
	case "PHA", "PHP":
		return regS | regMem
	case "CMP", "CPX", "CPY", "BIT":
		return regP
	case "STA", "SAX", "DCP":
		return regMem
	case "SLO", "RLA", "SRE", "RRA", "ISB":
		// illegal memory read-modify-write that also folds into A via
		// ORA/AND/EOR/ADC/SBC respectively, and sets flags accordingly.
		return regMem | regA | regP
	case "STX":
		return regMem
	case "STY":
		return regMem
	case "INC", "DEC":
		return regMem | regP
	case "JSR":
		return regS
	case "RTS", "RTI":
		return regS
	}
	return 0
}

func opReads(t Token) regMask {
	switch cpu.Catalog[t.Opcode].Mnemonic {
	case "STA":
		return regA
	case "SAX", "AXS":
		return regA | regX
	case "STX":
		return regX
	case "STY":
		return regY
	case "AND", "ORA", "EOR", "ADC", "SBC", "CMP", "BIT":
		return regA
	case "CPX":
		return regX
	case "CPY":
		return regY
	case "TAX", "TAY":
		return regA
	case "PHA":
		return regA | regS
	case "PHP":
		return regP | regS
	case "PLA", "PLP":
		return regS | regMem
	case "TXA", "TXS":
		return regX
	case "TYA":
		return regY
	case "TSX":
		return regS
	case "INX", "DEX":
		return regX
	case "INY", "DEY":
		return regY
	case "ASL", "LSR", "ROL", "ROR":
		if cpu.Catalog[t.Opcode].Mode == cpu.Accumulator {
			return regA
		}
		return regMem
	case "INC", "DEC":
		return regMem
	case "ANC", "ALR", "ARR":
		return regA
	case "DCP":
		return regA | regMem
	case "SLO", "RLA", "SRE", "RRA", "ISB":
		// the memory read-modify-write combines with A (ORA/AND/EOR/
		// ADC/SBC), so these read the accumulator too, not just memory.
		return regA | regMem
	}
	return 0
}
