package cpu

import (
	"context"

	"github.com/oisee/phaistos/pkg/mem"
)

// Config governs which parts of the opcode matrix Execute is willing to
// run. A search over SIZE or SPEED picks its own Config; cpu itself has
// no opinion on which opcodes are "allowed" to be enumerated.
type Config struct {
	// IllegalOpcodes permits the NMOS-undocumented opcodes in Catalog
	// (LAX, SAX, DCP, ISB, SLO, RLA, SRE, RRA and friends). JAM opcodes
	// are never permitted, regardless of this flag.
	IllegalOpcodes bool
}

// Result summarizes one Execute run.
type Result struct {
	Cycles               int
	InstructionsExecuted int
	Completed            bool // true if the run ended on BRK
	Final                State
}

// Execute runs instructions starting at startPC until BRK, an error, or
// maxInstructions is reached, whichever comes first. ctx is checked once
// per instruction boundary, not mid-instruction, matching the coarse
// cancellation granularity a candidate-verification loop needs.
func Execute(ctx context.Context, m *mem.Memory, state State, cfg Config, startPC uint16, maxInstructions int) (Result, error) {
	s := state
	s.PC = startPC
	res := Result{}

	for res.InstructionsExecuted < maxInstructions {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		cycles, halted, err := step(m, &s, cfg)
		res.InstructionsExecuted++
		res.Cycles += cycles
		if err != nil {
			res.Final = s
			return res, err
		}
		if halted {
			res.Completed = true
			res.Final = s
			return res, nil
		}
	}

	res.Final = s
	return res, &ExecutionLimit{MaxInstructions: maxInstructions}
}

// step decodes and runs exactly one instruction. halted reports BRK.
func step(m *mem.Memory, s *State, cfg Config) (cycles int, halted bool, err error) {
	pc := s.PC
	opcode, err := fetchByte(m, s)
	if err != nil {
		return 0, false, err
	}

	info := Catalog[opcode]
	if info.Jam {
		return 0, false, &IllegalInstruction{Opcode: opcode, PC: pc}
	}
	if !info.Legal && !cfg.IllegalOpcodes {
		return 0, false, &IllegalInstruction{Opcode: opcode, PC: pc}
	}

	cycles = int(info.Cycles)

	if opcode == 0x00 { // BRK
		s.PC++ // BRK is followed by a padding byte even though it's not read
		pushWord(m, s, s.PC)
		pushByte(m, s, s.P|uint8(FlagU)|uint8(FlagB))
		s.P = setFlag(s.P, FlagI, true)
		return cycles, true, nil
	}

	addr, crossed, val, err := resolveOperand(m, s, info.Mode)
	if err != nil {
		return 0, false, err
	}
	if crossed && info.PageCross {
		cycles++
	}

	switch info.Mnemonic {
	case "NOP":
		// operand bytes, if any, were already consumed by resolveOperand
	case "ORA":
		s.A = setNZ(&s.P, s.A|val)
	case "AND":
		s.A = setNZ(&s.P, s.A&val)
	case "EOR":
		s.A = setNZ(&s.P, s.A^val)
	case "ADC":
		s.A = execAdc(s, val)
	case "SBC":
		s.A = execSbc(s, val)
	case "CMP":
		execCmp(s, s.A, val)
	case "CPX":
		execCmp(s, s.X, val)
	case "CPY":
		execCmp(s, s.Y, val)
	case "BIT":
		s.P = setFlag(s.P, FlagN, val&0x80 != 0)
		s.P = setFlag(s.P, FlagV, val&0x40 != 0)
		s.P = setFlag(s.P, FlagZ, val&s.A == 0)
	case "LDA":
		s.A = setNZ(&s.P, val)
	case "LDX":
		s.X = setNZ(&s.P, val)
	case "LDY":
		s.Y = setNZ(&s.P, val)
	case "LAX": // illegal: LDA+LDX combined
		s.A = setNZ(&s.P, val)
		s.X = s.A
	case "STA":
		err = writeByte(m, s, addr, s.A)
	case "STX":
		err = writeByte(m, s, addr, s.X)
	case "STY":
		err = writeByte(m, s, addr, s.Y)
	case "SAX": // illegal: stores A&X
		err = writeByte(m, s, addr, s.A&s.X)
	case "ASL":
		err = applyShift(m, s, info.Mode, addr, val, execAsl)
	case "LSR":
		err = applyShift(m, s, info.Mode, addr, val, execLsr)
	case "ROL":
		err = applyShift(m, s, info.Mode, addr, val, execRol)
	case "ROR":
		err = applyShift(m, s, info.Mode, addr, val, execRor)
	case "INC":
		err = writeByte(m, s, addr, setNZ(&s.P, val+1))
	case "DEC":
		err = writeByte(m, s, addr, setNZ(&s.P, val-1))
	case "INX":
		s.X = setNZ(&s.P, s.X+1)
	case "INY":
		s.Y = setNZ(&s.P, s.Y+1)
	case "DEX":
		s.X = setNZ(&s.P, s.X-1)
	case "DEY":
		s.Y = setNZ(&s.P, s.Y-1)
	case "TAX":
		s.X = setNZ(&s.P, s.A)
	case "TXA":
		s.A = setNZ(&s.P, s.X)
	case "TAY":
		s.Y = setNZ(&s.P, s.A)
	case "TYA":
		s.A = setNZ(&s.P, s.Y)
	case "TSX":
		s.X = setNZ(&s.P, s.S)
	case "TXS":
		s.S = s.X
	case "CLC":
		s.P = setFlag(s.P, FlagC, false)
	case "SEC":
		s.P = setFlag(s.P, FlagC, true)
	case "CLI":
		s.P = setFlag(s.P, FlagI, false)
	case "SEI":
		s.P = setFlag(s.P, FlagI, true)
	case "CLD":
		s.P = setFlag(s.P, FlagD, false)
	case "SED":
		s.P = setFlag(s.P, FlagD, true)
	case "CLV":
		s.P = setFlag(s.P, FlagV, false)
	case "PHA":
		pushByte(m, s, s.A)
	case "PHP":
		pushByte(m, s, s.P|uint8(FlagU)|uint8(FlagB))
	case "PLA":
		s.A = setNZ(&s.P, popByte(m, s))
	case "PLP":
		s.P = popByte(m, s) &^ (uint8(FlagU) | uint8(FlagB))
	case "JMP":
		s.PC = addr
	case "JSR":
		// the return address pushed is the last byte of JSR itself
		pushWord(m, s, s.PC-1)
		s.PC = addr
	case "RTS":
		s.PC = popWord(m, s) + 1
	case "RTI":
		s.P = popByte(m, s) &^ (uint8(FlagU) | uint8(FlagB))
		s.PC = popWord(m, s)
	case "BPL":
		cycles += execBranch(s, !hasFlag(s.P, FlagN), addr, pc)
	case "BMI":
		cycles += execBranch(s, hasFlag(s.P, FlagN), addr, pc)
	case "BVC":
		cycles += execBranch(s, !hasFlag(s.P, FlagV), addr, pc)
	case "BVS":
		cycles += execBranch(s, hasFlag(s.P, FlagV), addr, pc)
	case "BCC":
		cycles += execBranch(s, !hasFlag(s.P, FlagC), addr, pc)
	case "BCS":
		cycles += execBranch(s, hasFlag(s.P, FlagC), addr, pc)
	case "BNE":
		cycles += execBranch(s, !hasFlag(s.P, FlagZ), addr, pc)
	case "BEQ":
		cycles += execBranch(s, hasFlag(s.P, FlagZ), addr, pc)
	case "SLO": // illegal: ASL memory, then ORA with A
		shifted := execAsl(s, val)
		if err = writeByte(m, s, addr, shifted); err == nil {
			s.A = setNZ(&s.P, s.A|shifted)
		}
	case "RLA": // illegal: ROL memory, then AND with A
		rotated := execRol(s, val)
		if err = writeByte(m, s, addr, rotated); err == nil {
			s.A = setNZ(&s.P, s.A&rotated)
		}
	case "SRE": // illegal: LSR memory, then EOR with A
		shifted := execLsr(s, val)
		if err = writeByte(m, s, addr, shifted); err == nil {
			s.A = setNZ(&s.P, s.A^shifted)
		}
	case "RRA": // illegal: ROR memory, then ADC with A
		rotated := execRor(s, val)
		if err = writeByte(m, s, addr, rotated); err == nil {
			s.A = execAdc(s, rotated)
		}
	case "DCP": // illegal: DEC memory, then CMP with A
		dec := val - 1
		if err = writeByte(m, s, addr, dec); err == nil {
			execCmp(s, s.A, dec)
		}
	case "ISB": // illegal: INC memory, then SBC with A
		inc := val + 1
		if err = writeByte(m, s, addr, inc); err == nil {
			s.A = execSbc(s, inc)
		}
	case "ANC": // illegal: AND immediate, copy bit7 of A into C
		s.A = setNZ(&s.P, s.A&val)
		s.P = setFlag(s.P, FlagC, s.A&0x80 != 0)
	case "ALR": // illegal: AND immediate, then LSR A
		s.A = execLsr(s, s.A&val)
	case "ARR": // illegal: AND immediate, then ROR A; C = bit 6, V = bit 6 XOR bit 5 (binary-mode rule, decimal mode not modelled)
		rotated := (s.A & val) >> 1
		if hasFlag(s.P, FlagC) {
			rotated |= 0x80
		}
		s.A = setNZ(&s.P, rotated)
		s.P = setFlag(s.P, FlagC, s.A&0x40 != 0)
		s.P = setFlag(s.P, FlagV, (s.A>>6)&1 != (s.A>>5)&1)
	case "AXS": // illegal: X = (A&X) - immediate, no decimal correction
		t := s.A & s.X
		s.X = setNZ(&s.P, t-val)
		s.P = setFlag(s.P, FlagC, t >= val)
	default:
		return 0, false, &IllegalInstruction{Opcode: opcode, PC: pc}
	}

	if err != nil {
		return 0, false, err
	}
	return cycles, false, nil
}

func boolToByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// applyShift writes a shift/rotate's result back to its operand
// location: the accumulator for Accumulator mode, memory otherwise.
func applyShift(m *mem.Memory, s *State, mode AddressingMode, addr uint16, val uint8, f func(*State, uint8) uint8) error {
	result := f(s, val)
	if mode == Accumulator {
		s.A = result
		return nil
	}
	return writeByte(m, s, addr, result)
}

func execBranch(s *State, taken bool, target, instrPC uint16) int {
	if !taken {
		return 0
	}
	penalty := 1
	if (instrPC & 0xFF00) != (target & 0xFF00) {
		penalty = 2
	}
	s.PC = target
	return penalty
}

// --- memory access helpers -------------------------------------------------

func fetchByte(m *mem.Memory, s *State) (uint8, error) {
	b, err := m.Read(s.PC)
	if err != nil {
		return 0, &MemoryRead{Addr: s.PC, PC: s.PC}
	}
	s.PC++
	return b, nil
}

func readByte(m *mem.Memory, s *State, addr uint16) (uint8, error) {
	b, err := m.Read(addr)
	if err != nil {
		return 0, &MemoryRead{Addr: addr, PC: s.PC}
	}
	return b, nil
}

func writeByte(m *mem.Memory, s *State, addr uint16, v uint8) error {
	if err := m.Write(addr, v); err != nil {
		return &MemoryWrite{Addr: addr, PC: s.PC}
	}
	return nil
}

func pushByte(m *mem.Memory, s *State, v uint8) {
	m.Write(0x0100|uint16(s.S), v)
	s.S--
}

func popByte(m *mem.Memory, s *State) uint8 {
	s.S++
	v, _ := m.Read(0x0100 | uint16(s.S))
	return v
}

func pushWord(m *mem.Memory, s *State, v uint16) {
	pushByte(m, s, uint8(v>>8))
	pushByte(m, s, uint8(v))
}

func popWord(m *mem.Memory, s *State) uint16 {
	lo := popByte(m, s)
	hi := popByte(m, s)
	return uint16(hi)<<8 | uint16(lo)
}

// resolveOperand consumes the operand bytes for mode, advancing s.PC,
// and returns the effective address (when the mode has one), whether a
// page boundary was crossed by an indexed access, and the operand's
// current byte value (read from memory, the accumulator, or the
// instruction stream itself for Immediate).
func resolveOperand(m *mem.Memory, s *State, mode AddressingMode) (addr uint16, crossed bool, val uint8, err error) {
	switch mode {
	case Implied:
		return 0, false, 0, nil
	case Accumulator:
		return 0, false, s.A, nil
	case Immediate:
		val, err = fetchByte(m, s)
		return 0, false, val, err
	case ZeroPage:
		lo, e := fetchByte(m, s)
		if e != nil {
			return 0, false, 0, e
		}
		addr = uint16(lo)
	case ZeroPageX:
		lo, e := fetchByte(m, s)
		if e != nil {
			return 0, false, 0, e
		}
		addr = uint16(lo + s.X)
	case ZeroPageY:
		lo, e := fetchByte(m, s)
		if e != nil {
			return 0, false, 0, e
		}
		addr = uint16(lo + s.Y)
	case Absolute:
		addr, err = fetchWord(m, s)
		if err != nil {
			return 0, false, 0, err
		}
	case AbsoluteX:
		base, e := fetchWord(m, s)
		if e != nil {
			return 0, false, 0, e
		}
		addr = base + uint16(s.X)
		crossed = (base & 0xFF00) != (addr & 0xFF00)
	case AbsoluteY:
		base, e := fetchWord(m, s)
		if e != nil {
			return 0, false, 0, e
		}
		addr = base + uint16(s.Y)
		crossed = (base & 0xFF00) != (addr & 0xFF00)
	case Indirect:
		ptr, e := fetchWord(m, s)
		if e != nil {
			return 0, false, 0, e
		}
		lo, e := readByte(m, s, ptr)
		if e != nil {
			return 0, false, 0, e
		}
		// NMOS bug: the high byte is fetched from the wrong page when
		// the pointer's low byte is $FF.
		hiAddr := (ptr & 0xFF00) | ((ptr + 1) & 0x00FF)
		hi, e := readByte(m, s, hiAddr)
		if e != nil {
			return 0, false, 0, e
		}
		addr = uint16(hi)<<8 | uint16(lo)
	case IndirectX:
		b, e := fetchByte(m, s)
		if e != nil {
			return 0, false, 0, e
		}
		zp := b + s.X
		lo, e := readByte(m, s, uint16(zp))
		if e != nil {
			return 0, false, 0, e
		}
		hi, e := readByte(m, s, uint16(zp+1))
		if e != nil {
			return 0, false, 0, e
		}
		addr = uint16(hi)<<8 | uint16(lo)
	case IndirectY:
		b, e := fetchByte(m, s)
		if e != nil {
			return 0, false, 0, e
		}
		lo, e := readByte(m, s, uint16(b))
		if e != nil {
			return 0, false, 0, e
		}
		hi, e := readByte(m, s, uint16(b+1))
		if e != nil {
			return 0, false, 0, e
		}
		base := uint16(hi)<<8 | uint16(lo)
		addr = base + uint16(s.Y)
		crossed = (base & 0xFF00) != (addr & 0xFF00)
	case Relative:
		b, e := fetchByte(m, s)
		if e != nil {
			return 0, false, 0, e
		}
		addr = uint16(int32(s.PC) + int32(int8(b)))
		return addr, false, 0, nil
	}

	if mode == Implied || mode == Accumulator || mode == Immediate || mode == Relative {
		return addr, crossed, val, nil
	}
	val, err = readByte(m, s, addr)
	return addr, crossed, val, err
}

func fetchWord(m *mem.Memory, s *State) (uint16, error) {
	lo, err := fetchByte(m, s)
	if err != nil {
		return 0, err
	}
	hi, err := fetchByte(m, s)
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

// --- ALU helpers ------------------------------------------------------------

// execAdc adds b (plus carry) into the accumulator's slot. N, V and Z
// are computed from the binary sum before any BCD nibble correction, per
// the NMOS decimal-mode flag bug; only the returned value and C reflect
// the corrected decimal result when FlagD is set.
func execAdc(s *State, b uint8) uint8 {
	carryIn := boolToByte(hasFlag(s.P, FlagC))
	sum16 := uint16(s.A) + uint16(b) + uint16(carryIn)
	binResult := uint8(sum16)

	s.P = setFlag(s.P, FlagV, (s.A^binResult)&(b^binResult)&0x80 != 0)
	setNZ(&s.P, binResult)

	if !hasFlag(s.P, FlagD) {
		s.P = setFlag(s.P, FlagC, sum16 > 0xFF)
		return binResult
	}

	lo := (s.A & 0x0F) + (b & 0x0F) + carryIn
	loCarry := uint8(0)
	if lo > 9 {
		lo += 6
		loCarry = 1
	}
	hi := (s.A >> 4) + (b >> 4) + loCarry
	if hi > 9 {
		hi += 6
	}
	s.P = setFlag(s.P, FlagC, hi > 0x0F)
	return (lo & 0x0F) | (hi << 4 & 0xF0)
}

// execSbc mirrors execAdc's bug-compatible flag timing for subtraction.
func execSbc(s *State, b uint8) uint8 {
	carryIn := boolToByte(hasFlag(s.P, FlagC))
	notB := ^b
	sum16 := uint16(s.A) + uint16(notB) + uint16(carryIn)
	binResult := uint8(sum16)

	s.P = setFlag(s.P, FlagV, (s.A^binResult)&(notB^binResult)&0x80 != 0)
	setNZ(&s.P, binResult)

	if !hasFlag(s.P, FlagD) {
		s.P = setFlag(s.P, FlagC, sum16 > 0xFF)
		return binResult
	}

	borrowIn := uint8(1) - carryIn
	lo := (s.A & 0x0F) - (b & 0x0F) - borrowIn
	loBorrow := uint8(0)
	if lo&0x10 != 0 {
		lo -= 6
		loBorrow = 1
	}
	hi := (s.A >> 4) - (b >> 4) - loBorrow
	hiBorrow := hi&0x10 != 0
	if hiBorrow {
		hi -= 6
	}
	s.P = setFlag(s.P, FlagC, !hiBorrow)
	return (lo & 0x0F) | (hi << 4)
}

func execCmp(s *State, reg, b uint8) {
	setNZ(&s.P, reg-b)
	s.P = setFlag(s.P, FlagC, reg >= b)
}

func execAsl(s *State, b uint8) uint8 {
	s.P = setFlag(s.P, FlagC, b&0x80 != 0)
	return setNZ(&s.P, b<<1)
}

func execLsr(s *State, b uint8) uint8 {
	s.P = setFlag(s.P, FlagC, b&0x01 != 0)
	return setNZ(&s.P, b>>1)
}

func execRol(s *State, b uint8) uint8 {
	carryIn := boolToByte(hasFlag(s.P, FlagC))
	s.P = setFlag(s.P, FlagC, b&0x80 != 0)
	return setNZ(&s.P, b<<1|carryIn)
}

func execRor(s *State, b uint8) uint8 {
	carryIn := boolToByte(hasFlag(s.P, FlagC))
	s.P = setFlag(s.P, FlagC, b&0x01 != 0)
	return setNZ(&s.P, b>>1|carryIn<<7)
}
