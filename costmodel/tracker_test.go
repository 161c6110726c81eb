package costmodel

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.starlark.net/resolve"
)

func TestTrackerDefaultsToDynamic(t *testing.T) {
	vars := newTracker()
	require.Equal(t, Dynamic, vars.get(&resolve.Binding{Scope: resolve.Local}))
	require.Equal(t, Dynamic, vars.get(nil))
	vars.set(nil, Const)
	require.Empty(t, vars.vars)
}

func TestTrackerScopes(t *testing.T) {
	outer := &resolve.Binding{Scope: resolve.Local}
	inner := &resolve.Binding{Scope: resolve.Local}

	vars := newTracker()
	vars.set(outer, DependsOn(0))

	vars.push()
	vars.define(outer, Dynamic)
	vars.define(inner, Const)
	require.Equal(t, Dynamic, vars.get(outer))
	require.Equal(t, Const, vars.get(inner))

	vars.push()
	vars.define(inner, DependsOn(2))
	require.Equal(t, DependsOn(2), vars.get(inner))
	vars.pop()
	require.Equal(t, Const, vars.get(inner))

	vars.pop()
	require.Equal(t, DependsOn(0), vars.get(outer))
	_, ok := vars.vars[inner]
	require.False(t, ok)

	// Unbalanced pops are ignored.
	vars.pop()
	require.Equal(t, DependsOn(0), vars.get(outer))
}

func TestTrackerJoin(t *testing.T) {
	same := &resolve.Binding{Scope: resolve.Local}
	differ := &resolve.Binding{Scope: resolve.Local}
	onlyHere := &resolve.Binding{Scope: resolve.Local}
	onlyThere := &resolve.Binding{Scope: resolve.Local}

	vars := newTracker()
	vars.set(same, DependsOn(1))
	vars.set(differ, DependsOn(1))
	vars.set(onlyHere, Const)

	other := map[*resolve.Binding]Basis{
		same:      DependsOn(1),
		differ:    DependsOn(2),
		onlyThere: Const,
	}
	vars.join(other)

	require.Equal(t, DependsOn(1), vars.get(same))
	require.Equal(t, Dynamic, vars.get(differ))
	require.Equal(t, Dynamic, vars.get(onlyHere))
	require.Equal(t, Dynamic, vars.get(onlyThere))
}

func TestTrackerSnapshotIsACopy(t *testing.T) {
	b := &resolve.Binding{Scope: resolve.Local}
	vars := newTracker()
	vars.set(b, Const)
	snap := vars.snapshot()
	vars.set(b, Dynamic)
	require.Equal(t, Const, snap[b])
	vars.restore(snap)
	require.Equal(t, Const, vars.get(b))
	snap[b] = DependsOn(0)
	require.Equal(t, Const, vars.get(b))
}
