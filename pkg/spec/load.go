package spec

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/oisee/phaistos/pkg/value"
)

// Load reads a .phaspec text descriptor from path and returns the
// Specification it names, validated per §6.1. The grammar is a
// line-oriented rendering of §6.2's value literals, since the real
// `.pha` front-end that would otherwise produce a Specification is out
// of scope for this core.
//
//	RUN $0200
//	GOAL SIZE
//	INPUT A ?
//	INPUT FLAGS C=0 Z=? I=? D=0 B=? V=? N=?
//	OUTPUT A $00
//	OUTPUT FLAGS C=SAME Z=SAME I=SAME D=SAME B=SAME V=SAME N=SAME
//	REGION INPUT $0080 ?? ??
//	REGION OUTPUT $0080 EQU EQU
//	BLOCK REGULAR $0200 A9 00 00
//
// Blank lines and lines starting with ';' or '#' are ignored.
func Load(path string) (*Specification, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a .phaspec descriptor from r. See Load for the grammar.
func Parse(r io.Reader) (*Specification, error) {
	s := &Specification{}
	haveRun := false

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		keyword := strings.ToUpper(fields[0])

		switch keyword {
		case "RUN":
			addr, err := parseAddress(fields, 1)
			if err != nil {
				return nil, err
			}
			s.RunAddress = addr
			haveRun = true
		case "GOAL":
			if len(fields) < 2 {
				return nil, fmt.Errorf("phaspec: GOAL needs an argument")
			}
			switch strings.ToUpper(fields[1]) {
			case "SIZE":
				s.Goal = SIZE
			case "SPEED":
				s.Goal = SPEED
			default:
				return nil, fmt.Errorf("phaspec: unknown goal %q", fields[1])
			}
		case "INPUT":
			if err := applyCPUField(&s.Input, fields[1:], value.InputContext); err != nil {
				return nil, err
			}
		case "OUTPUT":
			if err := applyCPUField(&s.Output, fields[1:], value.OutputContext); err != nil {
				return nil, err
			}
		case "REGION":
			region, err := parseRegion(fields[1:])
			if err != nil {
				return nil, err
			}
			s.Regions = append(s.Regions, region)
		case "BLOCK":
			block, err := parseBlock(fields[1:])
			if err != nil {
				return nil, err
			}
			s.Blocks = append(s.Blocks, block)
		default:
			return nil, fmt.Errorf("phaspec: unknown directive %q", fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !haveRun {
		return nil, &InvalidSpec{Reason: "RUN directive is required"}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func parseAddress(fields []string, idx int) (uint16, error) {
	if idx >= len(fields) {
		return 0, fmt.Errorf("phaspec: missing address")
	}
	tok := fields[idx]
	var n uint64
	var err error
	switch {
	case strings.HasPrefix(tok, "0x") || strings.HasPrefix(tok, "0X"):
		n, err = strconv.ParseUint(tok[2:], 16, 16)
	case strings.HasPrefix(tok, "$"):
		n, err = strconv.ParseUint(tok[1:], 16, 16)
	default:
		n, err = strconv.ParseUint(tok, 10, 16)
	}
	if err != nil {
		return 0, fmt.Errorf("phaspec: bad address %q: %w", tok, err)
	}
	return uint16(n), nil
}

// applyCPUField handles both "INPUT A <value>" style single-register
// lines and "INPUT FLAGS C=.. Z=.. ..." style flag lines.
func applyCPUField(st *CPUState, fields []string, ctx value.Context) error {
	if len(fields) == 0 {
		return fmt.Errorf("phaspec: INPUT/OUTPUT needs a field name")
	}
	switch strings.ToUpper(fields[0]) {
	case "FLAGS":
		return applyFlags(&st.Flags, fields[1:], ctx)
	case "A", "X", "Y", "S", "PC":
		if len(fields) < 2 {
			return fmt.Errorf("phaspec: %s needs a value", fields[0])
		}
		v, err := value.Parse(fields[1], ctx)
		if err != nil {
			return err
		}
		switch strings.ToUpper(fields[0]) {
		case "A":
			st.A = v
		case "X":
			st.X = v
		case "Y":
			st.Y = v
		case "S":
			st.S = v
		case "PC":
			st.PC = v
		}
		return nil
	default:
		return fmt.Errorf("phaspec: unknown CPU field %q", fields[0])
	}
}

func applyFlags(fl *Flags, fields []string, ctx value.Context) error {
	targets := map[string]*value.Value{
		"C": &fl.C, "Z": &fl.Z, "I": &fl.I, "D": &fl.D, "B": &fl.B, "V": &fl.V, "N": &fl.N,
	}
	for _, f := range fields {
		name, tok, ok := strings.Cut(f, "=")
		if !ok {
			return fmt.Errorf("phaspec: bad flag assignment %q", f)
		}
		dst, ok := targets[strings.ToUpper(name)]
		if !ok {
			return fmt.Errorf("phaspec: unknown flag %q", name)
		}
		v, err := value.Parse(tok, ctx)
		if err != nil {
			return err
		}
		*dst = v
	}
	return nil
}

func parseRegion(fields []string) (Region, error) {
	if len(fields) < 2 {
		return Region{}, fmt.Errorf("phaspec: REGION needs a kind and address")
	}
	var kind RegionKind
	var ctx value.Context
	switch strings.ToUpper(fields[0]) {
	case "INPUT":
		kind, ctx = InputRegion, value.InputContext
	case "OUTPUT":
		kind, ctx = OutputRegion, value.OutputContext
	default:
		return Region{}, fmt.Errorf("phaspec: unknown region kind %q", fields[0])
	}
	addr, err := parseAddress(fields, 1)
	if err != nil {
		return Region{}, err
	}
	cells, err := value.ParseRun(strings.Join(fields[2:], " "), ctx)
	if err != nil {
		return Region{}, err
	}
	values := make([]value.Value, len(cells))
	for i, c := range cells {
		values[i] = c.Value
	}
	return Region{Kind: kind, Start: addr, Cells: values}, nil
}

func parseBlock(fields []string) (CodeBlock, error) {
	if len(fields) < 2 {
		return CodeBlock{}, fmt.Errorf("phaspec: BLOCK needs a kind and address")
	}
	var kind BlockKind
	switch strings.ToUpper(fields[0]) {
	case "REGULAR":
		kind = Regular
	case "READONLY":
		kind = ReadOnly
	default:
		return CodeBlock{}, fmt.Errorf("phaspec: unknown block kind %q", fields[0])
	}
	addr, err := parseAddress(fields, 1)
	if err != nil {
		return CodeBlock{}, err
	}
	bytes := make([]uint8, 0, len(fields)-2)
	for _, tok := range fields[2:] {
		if strings.EqualFold(tok, "END") {
			break
		}
		n, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			return CodeBlock{}, fmt.Errorf("phaspec: bad block byte %q: %w", tok, err)
		}
		bytes = append(bytes, uint8(n))
	}
	return CodeBlock{Kind: kind, Start: addr, Bytes: bytes}, nil
}
