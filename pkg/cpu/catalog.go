package cpu

// AddressingMode names one of the 6502's operand-addressing schemes.
type AddressingMode uint8

const (
	Implied AddressingMode = iota
	Accumulator
	Immediate
	ZeroPage
	ZeroPageX
	ZeroPageY
	Absolute
	AbsoluteX
	AbsoluteY
	Indirect
	IndirectX // (zp,X)
	IndirectY // (zp),Y
	Relative
)

// OperandBytes returns how many operand bytes follow the opcode byte
// itself for the addressing mode.
func (m AddressingMode) OperandBytes() int {
	switch m {
	case Implied, Accumulator:
		return 0
	case Immediate, ZeroPage, ZeroPageX, ZeroPageY, IndirectX, IndirectY, Relative:
		return 1
	case Absolute, AbsoluteX, AbsoluteY, Indirect:
		return 2
	default:
		return 0
	}
}

// Info holds static metadata for one of the 256 opcode byte values.
type Info struct {
	Mnemonic  string
	Mode      AddressingMode
	Cycles    uint8 // base cycle count, before any penalty
	PageCross bool  // +1 cycle when a read-flavor indexed access crosses a page
	Legal     bool  // documented vs NMOS-undocumented
	Jam       bool  // true for opcodes that hang the real CPU
}

// Size returns the total instruction length in bytes, opcode included.
func (i Info) Size() int { return 1 + i.Mode.OperandBytes() }

// Catalog maps every opcode byte to its Info. Populated in init() from
// the grouped tables below, in the teacher's style of building a static
// dispatch table once at package load rather than computing it per call.
var Catalog [256]Info

type opEntry struct {
	code      uint8
	mnemonic  string
	mode      AddressingMode
	cycles    uint8
	pageCross bool
}

// legalOps is the documented 6502 instruction matrix.
var legalOps = []opEntry{
	{0x00, "BRK", Implied, 7, false},
	{0x01, "ORA", IndirectX, 6, false},
	{0x05, "ORA", ZeroPage, 3, false},
	{0x06, "ASL", ZeroPage, 5, false},
	{0x08, "PHP", Implied, 3, false},
	{0x09, "ORA", Immediate, 2, false},
	{0x0A, "ASL", Accumulator, 2, false},
	{0x0D, "ORA", Absolute, 4, false},
	{0x0E, "ASL", Absolute, 6, false},
	{0x10, "BPL", Relative, 2, false},
	{0x11, "ORA", IndirectY, 5, true},
	{0x15, "ORA", ZeroPageX, 4, false},
	{0x16, "ASL", ZeroPageX, 6, false},
	{0x18, "CLC", Implied, 2, false},
	{0x19, "ORA", AbsoluteY, 4, true},
	{0x1D, "ORA", AbsoluteX, 4, true},
	{0x1E, "ASL", AbsoluteX, 7, false},
	{0x20, "JSR", Absolute, 6, false},
	{0x21, "AND", IndirectX, 6, false},
	{0x24, "BIT", ZeroPage, 3, false},
	{0x25, "AND", ZeroPage, 3, false},
	{0x26, "ROL", ZeroPage, 5, false},
	{0x28, "PLP", Implied, 4, false},
	{0x29, "AND", Immediate, 2, false},
	{0x2A, "ROL", Accumulator, 2, false},
	{0x2C, "BIT", Absolute, 4, false},
	{0x2D, "AND", Absolute, 4, false},
	{0x2E, "ROL", Absolute, 6, false},
	{0x30, "BMI", Relative, 2, false},
	{0x31, "AND", IndirectY, 5, true},
	{0x35, "AND", ZeroPageX, 4, false},
	{0x36, "ROL", ZeroPageX, 6, false},
	{0x38, "SEC", Implied, 2, false},
	{0x39, "AND", AbsoluteY, 4, true},
	{0x3D, "AND", AbsoluteX, 4, true},
	{0x3E, "ROL", AbsoluteX, 7, false},
	{0x40, "RTI", Implied, 6, false},
	{0x41, "EOR", IndirectX, 6, false},
	{0x45, "EOR", ZeroPage, 3, false},
	{0x46, "LSR", ZeroPage, 5, false},
	{0x48, "PHA", Implied, 3, false},
	{0x49, "EOR", Immediate, 2, false},
	{0x4A, "LSR", Accumulator, 2, false},
	{0x4C, "JMP", Absolute, 3, false},
	{0x4D, "EOR", Absolute, 4, false},
	{0x4E, "LSR", Absolute, 6, false},
	{0x50, "BVC", Relative, 2, false},
	{0x51, "EOR", IndirectY, 5, true},
	{0x55, "EOR", ZeroPageX, 4, false},
	{0x56, "LSR", ZeroPageX, 6, false},
	{0x58, "CLI", Implied, 2, false},
	{0x59, "EOR", AbsoluteY, 4, true},
	{0x5D, "EOR", AbsoluteX, 4, true},
	{0x5E, "LSR", AbsoluteX, 7, false},
	{0x60, "RTS", Implied, 6, false},
	{0x61, "ADC", IndirectX, 6, false},
	{0x65, "ADC", ZeroPage, 3, false},
	{0x66, "ROR", ZeroPage, 5, false},
	{0x68, "PLA", Implied, 4, false},
	{0x69, "ADC", Immediate, 2, false},
	{0x6A, "ROR", Accumulator, 2, false},
	{0x6C, "JMP", Indirect, 5, false},
	{0x6D, "ADC", Absolute, 4, false},
	{0x6E, "ROR", Absolute, 6, false},
	{0x70, "BVS", Relative, 2, false},
	{0x71, "ADC", IndirectY, 5, true},
	{0x75, "ADC", ZeroPageX, 4, false},
	{0x76, "ROR", ZeroPageX, 6, false},
	{0x78, "SEI", Implied, 2, false},
	{0x79, "ADC", AbsoluteY, 4, true},
	{0x7D, "ADC", AbsoluteX, 4, true},
	{0x7E, "ROR", AbsoluteX, 7, false},
	{0x81, "STA", IndirectX, 6, false},
	{0x84, "STY", ZeroPage, 3, false},
	{0x85, "STA", ZeroPage, 3, false},
	{0x86, "STX", ZeroPage, 3, false},
	{0x88, "DEY", Implied, 2, false},
	{0x8A, "TXA", Implied, 2, false},
	{0x8C, "STY", Absolute, 4, false},
	{0x8D, "STA", Absolute, 4, false},
	{0x8E, "STX", Absolute, 4, false},
	{0x90, "BCC", Relative, 2, false},
	{0x91, "STA", IndirectY, 6, false},
	{0x94, "STY", ZeroPageX, 4, false},
	{0x95, "STA", ZeroPageX, 4, false},
	{0x96, "STX", ZeroPageY, 4, false},
	{0x98, "TYA", Implied, 2, false},
	{0x99, "STA", AbsoluteY, 5, false},
	{0x9A, "TXS", Implied, 2, false},
	{0x9D, "STA", AbsoluteX, 5, false},
	{0xA0, "LDY", Immediate, 2, false},
	{0xA1, "LDA", IndirectX, 6, false},
	{0xA2, "LDX", Immediate, 2, false},
	{0xA4, "LDY", ZeroPage, 3, false},
	{0xA5, "LDA", ZeroPage, 3, false},
	{0xA6, "LDX", ZeroPage, 3, false},
	{0xA8, "TAY", Implied, 2, false},
	{0xA9, "LDA", Immediate, 2, false},
	{0xAA, "TAX", Implied, 2, false},
	{0xAC, "LDY", Absolute, 4, false},
	{0xAD, "LDA", Absolute, 4, false},
	{0xAE, "LDX", Absolute, 4, false},
	{0xB0, "BCS", Relative, 2, false},
	{0xB1, "LDA", IndirectY, 5, true},
	{0xB4, "LDY", ZeroPageX, 4, false},
	{0xB5, "LDA", ZeroPageX, 4, false},
	{0xB6, "LDX", ZeroPageY, 4, false},
	{0xB8, "CLV", Implied, 2, false},
	{0xB9, "LDA", AbsoluteY, 4, true},
	{0xBA, "TSX", Implied, 2, false},
	{0xBC, "LDY", AbsoluteX, 4, true},
	{0xBD, "LDA", AbsoluteX, 4, true},
	{0xBE, "LDX", AbsoluteY, 4, true},
	{0xC0, "CPY", Immediate, 2, false},
	{0xC1, "CMP", IndirectX, 6, false},
	{0xC4, "CPY", ZeroPage, 3, false},
	{0xC5, "CMP", ZeroPage, 3, false},
	{0xC6, "DEC", ZeroPage, 5, false},
	{0xC8, "INY", Implied, 2, false},
	{0xC9, "CMP", Immediate, 2, false},
	{0xCA, "DEX", Implied, 2, false},
	{0xCC, "CPY", Absolute, 4, false},
	{0xCD, "CMP", Absolute, 4, false},
	{0xCE, "DEC", Absolute, 6, false},
	{0xD0, "BNE", Relative, 2, false},
	{0xD1, "CMP", IndirectY, 5, true},
	{0xD5, "CMP", ZeroPageX, 4, false},
	{0xD6, "DEC", ZeroPageX, 6, false},
	{0xD8, "CLD", Implied, 2, false},
	{0xD9, "CMP", AbsoluteY, 4, true},
	{0xDD, "CMP", AbsoluteX, 4, true},
	{0xDE, "DEC", AbsoluteX, 7, false},
	{0xE0, "CPX", Immediate, 2, false},
	{0xE1, "SBC", IndirectX, 6, false},
	{0xE4, "CPX", ZeroPage, 3, false},
	{0xE5, "SBC", ZeroPage, 3, false},
	{0xE6, "INC", ZeroPage, 5, false},
	{0xE8, "INX", Implied, 2, false},
	{0xE9, "SBC", Immediate, 2, false},
	{0xEA, "NOP", Implied, 2, false},
	{0xEC, "CPX", Absolute, 4, false},
	{0xED, "SBC", Absolute, 4, false},
	{0xEE, "INC", Absolute, 6, false},
	{0xF0, "BEQ", Relative, 2, false},
	{0xF1, "SBC", IndirectY, 5, true},
	{0xF5, "SBC", ZeroPageX, 4, false},
	{0xF6, "INC", ZeroPageX, 6, false},
	{0xF8, "SED", Implied, 2, false},
	{0xF9, "SBC", AbsoluteY, 4, true},
	{0xFD, "SBC", AbsoluteX, 4, true},
	{0xFE, "INC", AbsoluteX, 7, false},
}

// illegalOps are the NMOS undocumented opcodes a search is allowed to
// use when cpu.Config.IllegalOpcodes is set. LAX/SAX/DCP/ISB/SLO/RLA/
// SRE/RRA are the combined load-and-modify/ALU-and-modify pairs that
// show up most often in real-world 6502 optimizer output. The NOP
// variants are catalogued for decoding; the enumerator's pruner drops
// every NOP. XAA, AHX, TAS, SHY, SHX and LAS are catalogued only:
// Execute rejects them with IllegalInstruction even when the flag is set.
var illegalOps = []opEntry{
	{0x03, "SLO", IndirectX, 8, false},
	{0x04, "NOP", ZeroPage, 3, false},
	{0x07, "SLO", ZeroPage, 5, false},
	{0x0B, "ANC", Immediate, 2, false},
	{0x0C, "NOP", Absolute, 4, false},
	{0x0F, "SLO", Absolute, 6, false},
	{0x13, "SLO", IndirectY, 8, false},
	{0x14, "NOP", ZeroPageX, 4, false},
	{0x17, "SLO", ZeroPageX, 6, false},
	{0x1A, "NOP", Implied, 2, false},
	{0x1B, "SLO", AbsoluteY, 7, false},
	{0x1C, "NOP", AbsoluteX, 4, true},
	{0x1F, "SLO", AbsoluteX, 7, false},
	{0x23, "RLA", IndirectX, 8, false},
	{0x27, "RLA", ZeroPage, 5, false},
	{0x2B, "ANC", Immediate, 2, false},
	{0x2F, "RLA", Absolute, 6, false},
	{0x33, "RLA", IndirectY, 8, false},
	{0x34, "NOP", ZeroPageX, 4, false},
	{0x37, "RLA", ZeroPageX, 6, false},
	{0x3A, "NOP", Implied, 2, false},
	{0x3B, "RLA", AbsoluteY, 7, false},
	{0x3C, "NOP", AbsoluteX, 4, true},
	{0x3F, "RLA", AbsoluteX, 7, false},
	{0x43, "SRE", IndirectX, 8, false},
	{0x44, "NOP", ZeroPage, 3, false},
	{0x47, "SRE", ZeroPage, 5, false},
	{0x4B, "ALR", Immediate, 2, false},
	{0x4F, "SRE", Absolute, 6, false},
	{0x53, "SRE", IndirectY, 8, false},
	{0x54, "NOP", ZeroPageX, 4, false},
	{0x57, "SRE", ZeroPageX, 6, false},
	{0x5A, "NOP", Implied, 2, false},
	{0x5B, "SRE", AbsoluteY, 7, false},
	{0x5C, "NOP", AbsoluteX, 4, true},
	{0x5F, "SRE", AbsoluteX, 7, false},
	{0x63, "RRA", IndirectX, 8, false},
	{0x64, "NOP", ZeroPage, 3, false},
	{0x67, "RRA", ZeroPage, 5, false},
	{0x6B, "ARR", Immediate, 2, false},
	{0x6F, "RRA", Absolute, 6, false},
	{0x73, "RRA", IndirectY, 8, false},
	{0x74, "NOP", ZeroPageX, 4, false},
	{0x77, "RRA", ZeroPageX, 6, false},
	{0x7A, "NOP", Implied, 2, false},
	{0x7B, "RRA", AbsoluteY, 7, false},
	{0x7C, "NOP", AbsoluteX, 4, true},
	{0x7F, "RRA", AbsoluteX, 7, false},
	{0x80, "NOP", Immediate, 2, false},
	{0x82, "NOP", Immediate, 2, false},
	{0x83, "SAX", IndirectX, 6, false},
	{0x87, "SAX", ZeroPage, 3, false},
	{0x89, "NOP", Immediate, 2, false},
	{0x8B, "XAA", Immediate, 2, false},
	{0x8F, "SAX", Absolute, 4, false},
	{0x93, "AHX", IndirectY, 6, false},
	{0x97, "SAX", ZeroPageY, 4, false},
	{0x9B, "TAS", AbsoluteY, 5, false},
	{0x9C, "SHY", AbsoluteX, 5, false},
	{0x9E, "SHX", AbsoluteY, 5, false},
	{0x9F, "AHX", AbsoluteY, 5, false},
	{0xA3, "LAX", IndirectX, 6, false},
	{0xA7, "LAX", ZeroPage, 3, false},
	{0xAB, "LAX", Immediate, 2, false},
	{0xAF, "LAX", Absolute, 4, false},
	{0xB3, "LAX", IndirectY, 5, true},
	{0xB7, "LAX", ZeroPageY, 4, false},
	{0xBB, "LAS", AbsoluteY, 4, true},
	{0xBF, "LAX", AbsoluteY, 4, true},
	{0xC3, "DCP", IndirectX, 8, false},
	{0xC7, "DCP", ZeroPage, 5, false},
	{0xCB, "AXS", Immediate, 2, false},
	{0xCF, "DCP", Absolute, 6, false},
	{0xD3, "DCP", IndirectY, 8, false},
	{0xD4, "NOP", ZeroPageX, 4, false},
	{0xD7, "DCP", ZeroPageX, 6, false},
	{0xDA, "NOP", Implied, 2, false},
	{0xDB, "DCP", AbsoluteY, 7, false},
	{0xDC, "NOP", AbsoluteX, 4, true},
	{0xDF, "DCP", AbsoluteX, 7, false},
	{0xE3, "ISB", IndirectX, 8, false},
	{0xE7, "ISB", ZeroPage, 5, false},
	{0xEB, "SBC", Immediate, 2, false},
	{0xEF, "ISB", Absolute, 6, false},
	{0xF3, "ISB", IndirectY, 8, false},
	{0xF4, "NOP", ZeroPageX, 4, false},
	{0xF7, "ISB", ZeroPageX, 6, false},
	{0xFA, "NOP", Implied, 2, false},
	{0xFB, "ISB", AbsoluteY, 7, false},
	{0xFC, "NOP", AbsoluteX, 4, true},
	{0xFF, "ISB", AbsoluteX, 7, false},
}

// jamOps hang the real NMOS part. The enumerator never emits them
// regardless of cpu.Config.IllegalOpcodes; Execute treats one as an
// IllegalInstruction rather than silently halting.
var jamOps = []uint8{
	0x02, 0x12, 0x22, 0x32, 0x42, 0x52, 0x62, 0x72, 0x92, 0xB2, 0xD2, 0xF2,
}

func init() {
	for i := range Catalog {
		Catalog[i] = Info{Mnemonic: "JAM", Mode: Implied, Cycles: 1, Legal: false, Jam: true}
	}
	for _, e := range jamOps {
		Catalog[e] = Info{Mnemonic: "JAM", Mode: Implied, Cycles: 1, Legal: false, Jam: true}
	}
	for _, e := range legalOps {
		Catalog[e.code] = Info{Mnemonic: e.mnemonic, Mode: e.mode, Cycles: e.cycles, PageCross: e.pageCross, Legal: true}
	}
	for _, e := range illegalOps {
		Catalog[e.code] = Info{Mnemonic: e.mnemonic, Mode: e.mode, Cycles: e.cycles, PageCross: e.pageCross, Legal: false}
	}
}

// LegalCodes returns every documented opcode byte, in ascending order.
func LegalCodes() []uint8 {
	out := make([]uint8, 0, len(legalOps))
	for code := 0; code < 256; code++ {
		if Catalog[code].Legal {
			out = append(out, uint8(code))
		}
	}
	return out
}

// IllegalCodes returns every NMOS-undocumented, non-jamming opcode
// byte, in ascending order.
func IllegalCodes() []uint8 {
	out := make([]uint8, 0, len(illegalOps))
	for code := 0; code < 256; code++ {
		if !Catalog[code].Legal && !Catalog[code].Jam {
			out = append(out, uint8(code))
		}
	}
	return out
}
