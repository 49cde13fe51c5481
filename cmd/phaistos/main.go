package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/oisee/phaistos/pkg/cache"
	"github.com/oisee/phaistos/pkg/cpu"
	"github.com/oisee/phaistos/pkg/enum"
	"github.com/oisee/phaistos/pkg/result"
	"github.com/oisee/phaistos/pkg/search"
	"github.com/oisee/phaistos/pkg/spec"
	"github.com/oisee/phaistos/pkg/testgen"
	"github.com/oisee/phaistos/pkg/value"
	"github.com/oisee/phaistos/pkg/verify"
)

// cliLogger is the cobra/fmt-backed Logger the CLI injects into
// search.Config; package search itself never assumes a singleton.
type cliLogger struct{ verbose bool }

func (l cliLogger) Printf(format string, args ...any) {
	if l.verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

func main() {
	var specPath, out, format string
	var timeoutSecs int
	var verbose, debug bool
	var opcodesFlag string

	root := &cobra.Command{
		Use:   "phaistos",
		Short: "6502 superoptimizer — find size- or speed-optimal byte sequences",
	}
	root.PersistentFlags().StringVarP(&specPath, "spec", "f", "", "path to a .phaspec specification file")
	root.PersistentFlags().StringVarP(&out, "out", "o", "", "output file path")
	root.PersistentFlags().StringVar(&format, "format", "asm", "output format: asm|bin|c|basic")
	root.PersistentFlags().IntVarP(&timeoutSecs, "timeout", "t", 30, "search deadline in seconds")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose progress output")
	root.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "permit undocumented (illegal) opcodes")
	root.PersistentFlags().StringVar(&opcodesFlag, "opcodes", "", "comma-separated hex opcode allow-list (default: every documented opcode)")

	solveCmd := &cobra.Command{
		Use:   "solve",
		Short: "search for a solution realizing the specification",
		RunE: func(cmd *cobra.Command, args []string) error {
			if specPath == "" {
				return fmt.Errorf("solve: -f/--spec is required")
			}
			s, err := spec.Load(specPath)
			if err != nil {
				return fmt.Errorf("parse error: %w", err)
			}

			opcodes, err := resolveOpcodes(opcodesFlag, debug)
			if err != nil {
				return err
			}
			constSlots, zpSlots, memSlots := slotsFromSpec(s)

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(timeoutSecs)*time.Second)
			defer cancel()

			cfg := search.Config{
				EnumConfig: enum.Config{
					ValidOpcodes:  opcodes,
					ConstSlots:    constSlots,
					ZeroPageSlots: zpSlots,
					MemorySlots:   memSlots,
				},
				Verify:     verify.Config{IllegalOpcodes: debug},
				Cache:      cache.New(),
				UseStoke:   true,
				Logger:     cliLogger{verbose: verbose},
			}

			sol, err := search.Run(ctx, s, cfg)
			if err != nil {
				if err == search.ErrNoSolution {
					fmt.Fprintln(os.Stderr, "no solution found within the configured length bound")
					os.Exit(2)
				}
				if ctx.Err() != nil {
					fmt.Fprintln(os.Stderr, "timeout: no solution found before the deadline")
					os.Exit(3)
				}
				return fmt.Errorf("internal error: %w", err)
			}

			fmt.Printf("solution: %d bytes, %d cycles (saved %d bytes, %d cycles)\n",
				len(sol.Bytes), sol.Cycles, sol.BytesSaved, sol.CyclesSaved)

			if err := emit(sol, out, format); err != nil {
				return err
			}
			if out != "" {
				jsonPath := out
				if !strings.HasSuffix(jsonPath, ".json") {
					jsonPath += ".json"
				}
				if err := result.WriteJSON(jsonPath, sol); err != nil {
					return fmt.Errorf("internal error: %w", err)
				}
			}
			return nil
		},
	}

	verifyCmd := &cobra.Command{
		Use:   "verify [solution.json]",
		Short: "re-check a previously found solution against its specification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if specPath == "" {
				return fmt.Errorf("verify: -f/--spec is required")
			}
			s, err := spec.Load(specPath)
			if err != nil {
				return fmt.Errorf("parse error: %w", err)
			}
			sol, err := result.ReadJSON(args[0])
			if err != nil {
				return fmt.Errorf("internal error: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(timeoutSecs)*time.Second)
			defer cancel()

			cases, err := testgen.Generate(ctx, s, testgen.Config{})
			if err != nil {
				return fmt.Errorf("internal error: %w", err)
			}
			fail, err := verify.Verify(ctx, s, sol.Bytes, cases, verify.Config{IllegalOpcodes: debug})
			if err != nil {
				return fmt.Errorf("internal error: %w", err)
			}
			if fail != nil {
				fmt.Printf("FAIL: case %d, %s\n", fail.CaseIndex, fail.Error())
				os.Exit(1)
			}
			fmt.Printf("OK: %d bytes verified against %d test cases\n", len(sol.Bytes), len(cases))
			return nil
		},
	}

	disasmCmd := &cobra.Command{
		Use:   "disasm [solution.json]",
		Short: "render a found solution as assembly, a C array, BASIC DATA, or raw bytes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sol, err := result.ReadJSON(args[0])
			if err != nil {
				return fmt.Errorf("internal error: %w", err)
			}
			return emit(sol, out, format)
		},
	}

	root.AddCommand(solveCmd, verifyCmd, disasmCmd)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveOpcodes parses the --opcodes allow-list, defaulting to every
// documented opcode (plus the NMOS-undocumented set when --debug is set).
func resolveOpcodes(flag string, debug bool) ([]uint8, error) {
	if flag == "" {
		codes := cpu.LegalCodes()
		if !debug {
			return codes, nil
		}
		all := make([]uint8, 0, 256)
		for code := 0; code < 256; code++ {
			if !cpu.Catalog[code].Jam {
				all = append(all, uint8(code))
			}
		}
		return all, nil
	}
	var out []uint8
	for _, tok := range strings.Split(flag, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimPrefix(tok, "0x"), 16, 8)
		if err != nil {
			return nil, fmt.Errorf("parse error: bad opcode %q: %w", tok, err)
		}
		out = append(out, uint8(n))
	}
	return out, nil
}

// slotsFromSpec derives the enumerator's canonicalization slots (Open
// Question 2) from the specification itself, per original_source/'s
// config.hpp convention of a separate const/zero-page/memory-slot triple:
// every address a region or code block mentions becomes a candidate
// zero-page or absolute slot, and a small fixed set of bytes covers the
// common immediate constants (zero, boundary values, and any EXACT
// output byte the spec already names).
func slotsFromSpec(s *spec.Specification) (constSlots, zpSlots []uint8, memSlots []uint16) {
	constSet := map[uint8]bool{0x00: true, 0x01: true, 0xFF: true, 0x7F: true, 0x80: true}
	addrSet := map[uint16]bool{}

	addAddr := func(addr uint16) {
		addrSet[addr] = true
	}
	for _, v := range []value.Value{s.Output.A, s.Output.X, s.Output.Y, s.Output.S} {
		if v.Kind == value.Exact {
			constSet[v.Byte] = true
		}
	}
	for _, r := range s.Regions {
		for i, c := range r.Cells {
			addAddr(r.Start + uint16(i))
			if r.Kind == spec.OutputRegion && c.Kind == value.Exact {
				constSet[c.Byte] = true
			}
		}
	}
	for _, b := range s.Blocks {
		addAddr(b.Start)
		addAddr(b.End())
	}
	for addr := range addrSet {
		if addr < 0x100 {
			zpSlots = append(zpSlots, uint8(addr))
		} else {
			memSlots = append(memSlots, addr)
		}
	}
	for b := range constSet {
		constSlots = append(constSlots, b)
	}
	return constSlots, zpSlots, memSlots
}

// emit renders sol per format ("asm", "bin", "c", "basic") to out, or
// stdout when out is empty. The real disassembly/rendering back-end is
// out of scope for the core (§1); this is the CLI's own convenience
// wrapper around result.Solution, not a general 6502 disassembler.
func emit(sol *result.Solution, out, format string) error {
	var text string
	switch format {
	case "bin":
		return emitBin(sol.Bytes, out)
	case "c":
		text = renderC(sol)
	case "basic":
		text = renderBasic(sol)
	default:
		text = renderASM(sol)
	}

	if out == "" {
		fmt.Print(text)
		return nil
	}
	return os.WriteFile(out, []byte(text), 0o644)
}

func emitBin(b []uint8, out string) error {
	if out == "" {
		_, err := os.Stdout.Write(b)
		return err
	}
	return os.WriteFile(out, b, 0o644)
}

func renderASM(sol *result.Solution) string {
	var sb strings.Builder
	for _, instr := range sol.Sequence {
		fmt.Fprintf(&sb, "%-4s ; %s\n", instr.Mnemonic, hex.EncodeToString(instr.Bytes))
	}
	fmt.Fprintf(&sb, "; %d bytes, %d cycles\n", len(sol.Bytes), sol.Cycles)
	return sb.String()
}

func renderC(sol *result.Solution) string {
	var sb strings.Builder
	sb.WriteString("static const unsigned char phaistos_solution[] = {\n    ")
	for i, b := range sol.Bytes {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "0x%02X", b)
	}
	sb.WriteString("\n};\n")
	return sb.String()
}

func renderBasic(sol *result.Solution) string {
	var sb strings.Builder
	line := 1000
	for i := 0; i < len(sol.Bytes); i += 8 {
		end := i + 8
		if end > len(sol.Bytes) {
			end = len(sol.Bytes)
		}
		fmt.Fprintf(&sb, "%d DATA ", line)
		for j := i; j < end; j++ {
			if j > i {
				sb.WriteString(",")
			}
			fmt.Fprintf(&sb, "%d", sol.Bytes[j])
		}
		sb.WriteString("\n")
		line += 10
	}
	return sb.String()
}
