package costmodel

import (
	"fmt"
	"strings"
)

// Model is the precomputed cost summary of one function body: the cost when
// no argument is known, and for each tracked parameter slot the cost that
// disappears when that argument alone is a compile-time constant.
//
// Models are immutable values and compare with ==.
type Model struct {
	baseline uint8
	savings  [MaxSlots]uint8
}

// encode clamps the accumulated totals into a Model.
func encode(baseline int, savings []int) Model {
	m := Model{baseline: saturate(baseline)}
	for i := 0; i < len(savings) && i < MaxSlots; i++ {
		m.savings[i] = saturate(savings[i])
	}
	return m
}

func saturate(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > MaxCost:
		return MaxCost
	default:
		return uint8(v)
	}
}

// Baseline is the estimated cost with no constant arguments.
func (m Model) Baseline() int { return int(m.baseline) }

// Savings is the cost reclaimed when slot alone is constant. It is 0 for
// slots outside [0, MaxSlots).
func (m Model) Savings(slot int) int {
	if slot < 0 || slot >= MaxSlots {
		return 0
	}
	return int(m.savings[slot])
}

// Bits packs m into one word: byte 0 is the baseline, byte i+1 the savings of
// slot i.
func (m Model) Bits() uint64 {
	bits := uint64(m.baseline)
	for i, s := range m.savings {
		bits |= uint64(s) << (8 * (i + 1))
	}
	return bits
}

// FromBits is the inverse of Bits. Fields above MaxCost are clamped.
func FromBits(bits uint64) Model {
	m := Model{baseline: saturate(int(bits & 0xff))}
	for i := range m.savings {
		m.savings[i] = saturate(int((bits >> (8 * (i + 1))) & 0xff))
	}
	return m
}

func (m Model) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "baseline=%d savings=[", m.baseline)
	for i, s := range m.savings {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%d", s)
	}
	sb.WriteByte(']')
	return sb.String()
}

// Evaluate returns the estimated cost of m at a call site where
// constFlags[i] reports whether the argument for slot i is a compile-time
// constant. Slots beyond len(constFlags) are not constant. The result is never
// negative.
func Evaluate(m Model, constFlags []bool) int {
	cost := int(m.baseline)
	// A saturated baseline is a lower bound and is never discounted.
	if cost == MaxCost {
		return cost
	}
	for i := 0; i < len(constFlags) && i < MaxSlots; i++ {
		if constFlags[i] {
			cost -= int(m.savings[i])
		}
	}
	if cost < 0 {
		return 0
	}
	return cost
}
