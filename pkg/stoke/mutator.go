package stoke

import (
	"math/rand/v2"

	"github.com/oisee/phaistos/pkg/enum"
)

// Mutator applies random mutations to token sequences, drawing
// replacement and insertion tokens from a fixed alphabet.
type Mutator struct {
	rng      *rand.Rand
	alphabet []enum.Token
	maxLen   int // maximum sequence length allowed, in bytes
}

// NewMutator creates a Mutator drawing from alphabet.
func NewMutator(rng *rand.Rand, alphabet []enum.Token, maxLen int) *Mutator {
	return &Mutator{rng: rng, alphabet: alphabet, maxLen: maxLen}
}

// Mutate applies a random mutation to seq and returns the new
// sequence. The input slice is not modified.
func (m *Mutator) Mutate(seq []enum.Token) []enum.Token {
	if len(seq) == 0 {
		return m.InsertToken(seq)
	}
	// Weighted selection: 40% replace, 20% swap, 20% delete, 10% insert, 10% change-operand
	r := m.rng.IntN(100)
	switch {
	case r < 40:
		return m.ReplaceToken(seq)
	case r < 60:
		return m.SwapTokens(seq)
	case r < 80:
		return m.DeleteToken(seq)
	case r < 90:
		return m.InsertToken(seq)
	default:
		return m.ChangeOperand(seq)
	}
}

// ReplaceToken swaps one token with a random one from the alphabet.
func (m *Mutator) ReplaceToken(seq []enum.Token) []enum.Token {
	out := copySeq(seq)
	if len(out) == 0 {
		return m.InsertToken(out)
	}
	pos := m.rng.IntN(len(out))
	out[pos] = m.randomToken()
	return out
}

// SwapTokens swaps two adjacent tokens.
func (m *Mutator) SwapTokens(seq []enum.Token) []enum.Token {
	out := copySeq(seq)
	if len(out) < 2 {
		return out
	}
	pos := m.rng.IntN(len(out) - 1)
	out[pos], out[pos+1] = out[pos+1], out[pos]
	return out
}

// DeleteToken removes one token, if len(seq) > 1.
func (m *Mutator) DeleteToken(seq []enum.Token) []enum.Token {
	if len(seq) <= 1 {
		return copySeq(seq)
	}
	pos := m.rng.IntN(len(seq))
	out := make([]enum.Token, 0, len(seq)-1)
	out = append(out, seq[:pos]...)
	out = append(out, seq[pos+1:]...)
	return out
}

// InsertToken adds a random token at a random position, unless seq is
// already at the byte budget, in which case it falls back to replace.
func (m *Mutator) InsertToken(seq []enum.Token) []enum.Token {
	if sizeOf(seq) >= m.maxLen && len(seq) > 0 {
		return m.ReplaceToken(seq)
	}
	pos := m.rng.IntN(len(seq) + 1)
	tok := m.randomToken()
	out := make([]enum.Token, 0, len(seq)+1)
	out = append(out, seq[:pos]...)
	out = append(out, tok)
	out = append(out, seq[pos:]...)
	return out
}

// ChangeOperand randomizes the operand bytes of a random token that
// has one. Falls back to ReplaceToken if no token carries an operand.
func (m *Mutator) ChangeOperand(seq []enum.Token) []enum.Token {
	var withOperand []int
	for i, t := range seq {
		if len(t.Operand) > 0 {
			withOperand = append(withOperand, i)
		}
	}
	if len(withOperand) == 0 {
		return m.ReplaceToken(seq)
	}
	out := copySeq(seq)
	pos := withOperand[m.rng.IntN(len(withOperand))]
	operand := make([]uint8, len(out[pos].Operand))
	for i := range operand {
		operand[i] = uint8(m.rng.IntN(256))
	}
	out[pos].Operand = operand
	return out
}

func (m *Mutator) randomToken() enum.Token {
	return m.alphabet[m.rng.IntN(len(m.alphabet))]
}

func copySeq(seq []enum.Token) []enum.Token {
	out := make([]enum.Token, len(seq))
	copy(out, seq)
	return out
}
