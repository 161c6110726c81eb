package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnnotate(t *testing.T) {
	f, a, err := analyzePath("testdata/example.star")
	require.NoError(t, err)

	out := string(annotate(f, a))
	require.Contains(t, out, "# starcost: baseline=5 savings=[0 3 0 0 0 0 0]\ndef poly(x, y, z):")
	require.Contains(t, out, "SCALE = 4")
	require.Equal(t, len(a.Functions), strings.Count(out, annotationPrefix))
}

func TestAnnotateReplacesEarlierAnnotation(t *testing.T) {
	f, a, err := analyzePath("testdata/example.star")
	require.NoError(t, err)
	first := annotate(f, a)

	f, err = loadFile("testdata/example.star", first)
	require.NoError(t, err)
	second := annotate(f, analyze(f))
	require.Equal(t, string(first), string(second))
}

func TestAnnotateKeepsOtherComments(t *testing.T) {
	f, err := loadFile("test.star", `
# Squares v.
# starcost: baseline=99 savings=[0 0 0 0 0 0 0]
def sq(v):
    return v * v
`)
	require.NoError(t, err)

	out := string(annotate(f, analyze(f)))
	require.Contains(t, out, "# Squares v.\n# starcost: baseline=1 savings=[1 0 0 0 0 0 0]\ndef sq(v):")
	require.NotContains(t, out, "baseline=99")
}

func TestAnnotateRedefinedFunction(t *testing.T) {
	f, err := loadFile("test.star", `
def f(a):
    return a + 1

def f(a):
    return a * a * a
`)
	require.NoError(t, err)

	out := string(annotate(f, analyze(f)))
	first := strings.Index(out, "# starcost: baseline=1 savings=[1 0 0 0 0 0 0]\ndef f(a):\n    return a + 1")
	second := strings.Index(out, "# starcost: baseline=2 savings=[2 0 0 0 0 0 0]\ndef f(a):\n    return a * a * a")
	require.GreaterOrEqual(t, first, 0)
	require.Greater(t, second, first)
}
