package costmodel

import "fmt"

type basisKind uint8

const (
	dynamicKind basisKind = iota
	constKind
	slotKind
)

// Basis classifies how much of an expression's value is known at compile
// time: always (Const), once a single parameter slot is known (DependsOn),
// or never (Dynamic). The zero value is Dynamic.
type Basis struct {
	kind basisKind
	slot int
}

var (
	// Const is the basis of literals and expressions built only from literals.
	Const = Basis{kind: constKind}
	// Dynamic is the basis of anything that cannot be folded.
	Dynamic = Basis{}
)

// DependsOn returns the basis of a value derived from parameter slot alone.
// Slots outside [0, MaxSlots) cannot be tracked and yield Dynamic.
func DependsOn(slot int) Basis {
	if slot < 0 || slot >= MaxSlots {
		return Dynamic
	}
	return Basis{kind: slotKind, slot: slot}
}

// Combine joins the bases of two operands of one operation.
func (b Basis) Combine(other Basis) Basis {
	switch {
	case b.kind == constKind:
		return other
	case other.kind == constKind:
		return b
	case b.kind == slotKind && b == other:
		return b
	default:
		return Dynamic
	}
}

// Slot returns the slot b depends on, if b is DependsOn(slot).
func (b Basis) Slot() (int, bool) {
	if b.kind != slotKind {
		return 0, false
	}
	return b.slot, true
}

// DependsOn reports whether b is exactly DependsOn(slot).
func (b Basis) DependsOn(slot int) bool {
	s, ok := b.Slot()
	return ok && s == slot
}

func (b Basis) String() string {
	switch b.kind {
	case constKind:
		return "const"
	case slotKind:
		return fmt.Sprintf("slot(%d)", b.slot)
	default:
		return "dynamic"
	}
}

// combineAll folds Combine over bases, starting from Const.
func combineAll(bases ...Basis) Basis {
	acc := Const
	for _, b := range bases {
		acc = acc.Combine(b)
	}
	return acc
}
