package enum

import "testing"

func TestEnumeratorNextMatchesEnumerate(t *testing.T) {
	var want []int
	Enumerate(smallConfig(), func(seq Sequence) bool {
		want = append(want, seq.Size())
		return true
	})

	e := NewEnumerator(smallConfig())
	var got []int
	for {
		seq, ok := e.Next()
		if !ok {
			break
		}
		got = append(got, seq.Size())
	}

	if len(got) != len(want) {
		t.Fatalf("got %d candidates, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("candidate %d has size %d, want %d", i, got[i], want[i])
		}
	}
}

func TestEnumeratorSetMaxLengthNarrows(t *testing.T) {
	e := NewEnumerator(smallConfig())
	e.SetMaxLength(1)

	for {
		seq, ok := e.Next()
		if !ok {
			break
		}
		if seq.Size() > 1 {
			t.Fatalf("got a %d-byte candidate after narrowing to max length 1", seq.Size())
		}
	}
}

func TestEnumeratorSetValidOpcodesRestarts(t *testing.T) {
	e := NewEnumerator(smallConfig())
	// advance partway through the walk before narrowing the alphabet
	e.Next()
	e.Next()

	e.SetValidOpcodes([]uint8{0xE8}) // INX only
	for {
		seq, ok := e.Next()
		if !ok {
			break
		}
		for _, tok := range seq.Tokens {
			if tok.Opcode != 0xE8 {
				t.Fatalf("got opcode %02X after restricting to INX", tok.Opcode)
			}
		}
	}
}

func TestEnumeratorResetReplaysFromStart(t *testing.T) {
	e := NewEnumerator(smallConfig())

	var first []int
	for {
		seq, ok := e.Next()
		if !ok {
			break
		}
		first = append(first, seq.Size())
	}

	e.Reset()
	var second []int
	for {
		seq, ok := e.Next()
		if !ok {
			break
		}
		second = append(second, seq.Size())
	}

	if len(first) != len(second) {
		t.Fatalf("got %d candidates after reset, want %d", len(second), len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("candidate %d has size %d after reset, want %d", i, second[i], first[i])
		}
	}
}
