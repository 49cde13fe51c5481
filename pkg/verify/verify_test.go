package verify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oisee/phaistos/pkg/spec"
	"github.com/oisee/phaistos/pkg/testgen"
	"github.com/oisee/phaistos/pkg/value"
)

func outputExact(a uint8) spec.CPUState {
	any := value.AnyValue()
	return spec.CPUState{
		A: value.ExactValue(a), X: any, Y: any, S: any, PC: any,
		Flags: spec.Flags{C: any, Z: any, I: any, D: any, B: any, V: any, N: any},
	}
}

func TestVerifyPassesOnExactMatch(t *testing.T) {
	s := &spec.Specification{RunAddress: 0x0200, Output: outputExact(0x42)}
	seq := []uint8{0xA9, 0x42, 0x00} // LDA #$42; BRK
	cases := []testgen.TestCase{{Mem: map[uint16]uint8{}}}

	fail, err := Verify(context.Background(), s, seq, cases, Config{})
	require.NoError(t, err)
	require.Nil(t, fail)
}

func TestVerifyFailsOnMismatch(t *testing.T) {
	s := &spec.Specification{RunAddress: 0x0200, Output: outputExact(0x99)}
	seq := []uint8{0xA9, 0x42, 0x00}
	cases := []testgen.TestCase{{Mem: map[uint16]uint8{}}}

	fail, err := Verify(context.Background(), s, seq, cases, Config{})
	require.NoError(t, err)
	require.NotNil(t, fail)
	require.Equal(t, RegisterEntity, fail.Entity)
	require.Equal(t, "A", fail.Name)
}

func TestVerifySameComparesToInitialValue(t *testing.T) {
	any := value.AnyValue()
	out := spec.CPUState{
		A: value.SameValue(), X: any, Y: any, S: any, PC: any,
		Flags: spec.Flags{C: any, Z: any, I: any, D: any, B: any, V: any, N: any},
	}
	s := &spec.Specification{RunAddress: 0x0200, Output: out}
	seq := []uint8{0xEA, 0x00} // NOP; BRK -- A is untouched
	cases := []testgen.TestCase{{A: 0x77, Mem: map[uint16]uint8{}}}

	fail, err := Verify(context.Background(), s, seq, cases, Config{})
	require.NoError(t, err)
	require.Nil(t, fail)
}

func TestVerifyExecutionErrorBecomesFailure(t *testing.T) {
	s := &spec.Specification{RunAddress: 0x0200, Output: outputExact(0)}
	seq := []uint8{0x02} // JAM
	cases := []testgen.TestCase{{Mem: map[uint16]uint8{}}}

	fail, err := Verify(context.Background(), s, seq, cases, Config{})
	require.NoError(t, err)
	require.NotNil(t, fail)
	require.Equal(t, ExecutionEntity, fail.Entity)
}
