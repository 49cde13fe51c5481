package spec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oisee/phaistos/pkg/value"
)

func validState() CPUState {
	return CPUState{
		A: value.ExactValue(0), X: value.AnyValue(), Y: value.AnyValue(),
		S: value.AnyValue(), PC: value.AnyValue(),
		Flags: Flags{
			C: value.AnyValue(), Z: value.AnyValue(), I: value.AnyValue(),
			D: value.AnyValue(), B: value.AnyValue(), V: value.AnyValue(), N: value.AnyValue(),
		},
	}
}

func TestValidateAcceptsWellFormedSpec(t *testing.T) {
	s := &Specification{
		RunAddress: 0x0200,
		Input:      validState(),
		Output:     validState(),
		Goal:       SIZE,
	}
	require.NoError(t, s.Validate())
}

func TestValidateRejectsSameOnInput(t *testing.T) {
	in := validState()
	in.A = value.SameValue()
	s := &Specification{RunAddress: 0x0200, Input: in, Output: validState()}
	err := s.Validate()
	require.Error(t, err)
	var invalid *InvalidSpec
	require.ErrorAs(t, err, &invalid)
}

func TestValidateRejectsOverlappingOutputRegions(t *testing.T) {
	s := &Specification{
		RunAddress: 0x0200,
		Input:      validState(),
		Output:     validState(),
		Regions: []Region{
			{Kind: OutputRegion, Start: 0x10, Cells: []value.Value{value.AnyValue(), value.AnyValue()}},
			{Kind: OutputRegion, Start: 0x11, Cells: []value.Value{value.AnyValue()}},
		},
	}
	require.Error(t, s.Validate())
}

func TestValidateAllowsDisjointInputAndOutputRegions(t *testing.T) {
	s := &Specification{
		RunAddress: 0x0200,
		Input:      validState(),
		Output:     validState(),
		Regions: []Region{
			{Kind: InputRegion, Start: 0x10, Cells: []value.Value{value.ExactValue(1)}},
			{Kind: OutputRegion, Start: 0x20, Cells: []value.Value{value.ExactValue(2)}},
		},
	}
	require.NoError(t, s.Validate())
}

func TestRegionEndIsInclusive(t *testing.T) {
	r := Region{Start: 0x10, Cells: make([]value.Value, 4)}
	require.Equal(t, uint16(0x13), r.End())
}
