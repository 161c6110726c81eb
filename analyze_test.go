package main

import (
	"testing"

	"github.com/fmeum/starcost/costmodel"
	"github.com/stretchr/testify/require"
	"go.starlark.net/syntax"
)

func analyzeSource(t *testing.T, src string) *analysis {
	t.Helper()
	f, err := loadFile("test.star", src)
	require.NoError(t, err)
	return analyze(f)
}

func findCall(t *testing.T, f *syntax.File) *syntax.CallExpr {
	t.Helper()
	var found *syntax.CallExpr
	for _, stmt := range f.Stmts {
		syntax.Walk(stmt, func(n syntax.Node) bool {
			if call, ok := n.(*syntax.CallExpr); ok && found == nil {
				found = call
			}
			return found == nil
		})
	}
	require.NotNil(t, found)
	return found
}

func TestAnalyzeExample(t *testing.T) {
	_, a, err := analyzePath("testdata/example.star")
	require.NoError(t, err)
	require.Equal(t, "testdata/example.star", a.Path)

	var names []string
	for _, fn := range a.Functions {
		names = append(names, fn.Name)
	}
	require.Equal(t, []string{"poly", "cube_square", "fill", "mix", "main"}, names)

	poly := a.Functions[0]
	require.Equal(t, 6, poly.Line)
	require.Equal(t, []string{"x", "y", "z"}, poly.Params)
	require.Equal(t, 5, poly.Baseline)
	require.Equal(t, []int{0, 3, 0}, poly.Savings)
	require.Equal(t, poly.model.Bits(), poly.Bits)

	want := []callSite{
		{Line: 23, Col: 5, Callee: "poly", Const: []bool{false, true, false}, Cost: 2},
		{Line: 24, Col: 5, Callee: "poly", Const: []bool{false, true, true}, Cost: 2},
		{Line: 25, Col: 5, Callee: "cube_square", Const: []bool{true}, Cost: 0},
		{Line: 26, Col: 5, Callee: "cube_square", Const: []bool{false}, Cost: 3},
		{Line: 27, Col: 5, Callee: "fill", Const: []bool{false}, Cost: 3},
		{Line: 28, Col: 5, Callee: "mix", Const: []bool{true, false}, Cost: 2},
		{Line: 29, Col: 5, Callee: "mix", Const: []bool{false, false}, Cost: 3},
	}
	require.Equal(t, want, a.Calls)
}

func TestAnalyzeMissingFile(t *testing.T) {
	_, _, err := analyzePath("testdata/does-not-exist.star")
	require.ErrorContains(t, err, "reading testdata/does-not-exist.star")
}

func TestAnalyzeParseError(t *testing.T) {
	_, _, err := analyzePath("testdata/broken.star")
	require.ErrorContains(t, err, "parsing testdata/broken.star")
}

func TestLoadFileResolveError(t *testing.T) {
	_, err := loadFile("test.star", "def f():\n    break\n")
	require.ErrorContains(t, err, "resolving test.star")
}

func TestCallsFromTopLevelAndNestedScopes(t *testing.T) {
	a := analyzeSource(t, `
def sq(v):
    return v * v

K = 3
top = sq(K)

def outer(p):
    return [sq(q) for q in p] + [sq(2)]
`)
	require.Len(t, a.Calls, 3)
	require.Equal(t, []bool{true}, a.Calls[0].Const)
	require.Equal(t, 0, a.Calls[0].Cost)
	require.Equal(t, []bool{false}, a.Calls[1].Const)
	require.Equal(t, 1, a.Calls[1].Cost)
	require.Equal(t, []bool{true}, a.Calls[2].Const)
}

func TestTopLevelCallsSeeEarlierBindingsOnly(t *testing.T) {
	a := analyzeSource(t, `
def sq(v):
    return v * v

early = sq(K)
K = 3
late = sq(K)

def user():
    return sq(K)
`)
	require.Len(t, a.Calls, 3)
	require.Equal(t, []bool{false}, a.Calls[0].Const)
	require.Equal(t, 1, a.Calls[0].Cost)
	require.Equal(t, []bool{true}, a.Calls[1].Const)
	require.Equal(t, []bool{true}, a.Calls[2].Const)
	require.Equal(t, 0, a.Calls[2].Cost)
}

func TestTopLevelCallsUseCurrentDefinition(t *testing.T) {
	a := analyzeSource(t, `
def g(a):
    return a + 1

first = g(n)

def g(a):
    return a * a * a

second = g(n)

def user(m):
    return g(m)
`)
	require.Len(t, a.Calls, 3)
	require.Equal(t, 1, a.Calls[0].Cost)
	require.Equal(t, 2, a.Calls[1].Cost)
	require.Equal(t, 2, a.Calls[2].Cost)
}

func TestShadowedCalleeIsNotMatched(t *testing.T) {
	a := analyzeSource(t, `
def sq(v):
    return v * v

def user(sq):
    return sq(2)
`)
	require.Empty(t, a.Calls)
}

func TestConstFlags(t *testing.T) {
	params := []string{"a", "b", "*", "c"}
	tests := []struct {
		name string
		call string
		want []bool
	}{
		{"positional", "f(1, n)", []bool{true, false, false, false}},
		{"keyword", "f(n, c = 2)", []bool{false, false, false, true}},
		{"unknown keyword", "f(1, d = 2)", []bool{true, false, false, false}},
		{"too many positional", "f(1, 2, 3, 4, 5)", []bool{true, true, false, false}},
		{"keyword only", "f(1, 2, 3, c = 4)", []bool{true, true, false, true}},
		{"star args", "f(1, *n)", []bool{false, false, false, false}},
		{"star kwargs", "f(1, **n)", []bool{false, false, false, false}},
		{"module constant", "f(K + 1, L)", []bool{true, false, false, false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := loadFile("test.star", "K = 1\nL = []\nL += [1]\ndef g(n):\n    "+tt.call+"\n")
			require.NoError(t, err)
			env := newConstEnv(fileOptions)
			for _, stmt := range f.Stmts {
				env.record(stmt)
			}
			call := findCall(t, f)
			require.Equal(t, tt.want, constFlags(params, call.Args, env))
		})
	}
}

func TestPositionalArgumentsStopAtVariadic(t *testing.T) {
	a := analyzeSource(t, `
def scale(x, *rest, k = g()):
    return k * 2

def use(n):
    scale(n, 1, 2)
    scale(n, 1, k = 2)
`)
	require.Len(t, a.Calls, 2)
	require.Equal(t, []bool{false, false, false}, a.Calls[0].Const)
	require.Equal(t, 1, a.Calls[0].Cost)
	require.Equal(t, []bool{false, false, true}, a.Calls[1].Const)
	require.Equal(t, 0, a.Calls[1].Cost)
}

func TestNewFunctionSavingsCapped(t *testing.T) {
	a := analyzeSource(t, `
def wide(a0, a1, a2, a3, a4, a5, a6, a7, a8):
    return a0 + 1
`)
	fn := a.Functions[0]
	require.Len(t, fn.Params, 9)
	require.Len(t, fn.Savings, costmodel.MaxSlots)
	require.Equal(t, 1, fn.Savings[0])
}

func TestParamNames(t *testing.T) {
	a := analyzeSource(t, `
def f(a, b = 1, *args, c, **kwargs):
    pass

def g(a, *, b):
    pass
`)
	require.Equal(t, []string{"a", "b", "*args", "c", "**kwargs"}, a.Functions[0].Params)
	require.Equal(t, []string{"a", "*", "b"}, a.Functions[1].Params)
}
