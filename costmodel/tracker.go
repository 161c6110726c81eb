package costmodel

import "go.starlark.net/resolve"

// tracker maps each local variable of the function being walked to the basis
// of its most recent assignment.
type tracker struct {
	vars   map[*resolve.Binding]Basis
	scopes [][]savedBasis
}

// savedBasis preserves a variable's entry before a block scope overrides it.
type savedBasis struct {
	b     *resolve.Binding
	had   bool
	basis Basis
}

func newTracker() *tracker {
	return &tracker{vars: make(map[*resolve.Binding]Basis)}
}

// get returns the basis recorded for b, or Dynamic if b was never set.
func (t *tracker) get(b *resolve.Binding) Basis {
	if b == nil {
		return Dynamic
	}
	return t.vars[b]
}

func (t *tracker) set(b *resolve.Binding, basis Basis) {
	if b == nil {
		return
	}
	t.vars[b] = basis
}

// push opens a block scope. Variables introduced with define are restored to
// their previous state by the matching pop.
func (t *tracker) push() {
	t.scopes = append(t.scopes, nil)
}

func (t *tracker) define(b *resolve.Binding, basis Basis) {
	if b == nil {
		return
	}
	if n := len(t.scopes); n > 0 {
		saved := savedBasis{b: b}
		saved.basis, saved.had = t.vars[b]
		t.scopes[n-1] = append(t.scopes[n-1], saved)
	}
	t.vars[b] = basis
}

func (t *tracker) pop() {
	n := len(t.scopes)
	if n == 0 {
		return
	}
	saved := t.scopes[n-1]
	t.scopes = t.scopes[:n-1]
	for i := len(saved) - 1; i >= 0; i-- {
		if saved[i].had {
			t.vars[saved[i].b] = saved[i].basis
		} else {
			delete(t.vars, saved[i].b)
		}
	}
}

// snapshot copies the current variable state.
func (t *tracker) snapshot() map[*resolve.Binding]Basis {
	s := make(map[*resolve.Binding]Basis, len(t.vars))
	for b, basis := range t.vars {
		s[b] = basis
	}
	return s
}

// restore replaces the current variable state with s.
func (t *tracker) restore(s map[*resolve.Binding]Basis) {
	t.vars = make(map[*resolve.Binding]Basis, len(s))
	for b, basis := range s {
		t.vars[b] = basis
	}
}

// join merges the current state with other, the state reached along another
// control-flow path. A variable keeps its basis only if both paths agree.
func (t *tracker) join(other map[*resolve.Binding]Basis) {
	for b, basis := range t.vars {
		if o, ok := other[b]; !ok || o != basis {
			t.vars[b] = Dynamic
		}
	}
	for b := range other {
		if _, ok := t.vars[b]; !ok {
			t.vars[b] = Dynamic
		}
	}
}
