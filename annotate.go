package main

import (
	"strings"

	"github.com/bazelbuild/buildtools/build"
	"github.com/bazelbuild/buildtools/convertast"
	"go.starlark.net/syntax"
)

const annotationPrefix = "# starcost:"

// annotate reprints f with a comment carrying the cost model in front of
// every modelled def. Annotations from earlier runs are replaced.
func annotate(f *syntax.File, a *analysis) []byte {
	out := convertast.ConvFile(f)
	out.Type = build.TypeDefault

	// a.Functions holds the top-level defs in source order. A name may be
	// bound by more than one of them, so they are matched by position.
	next := 0
	for _, stmt := range out.Stmt {
		def, ok := stmt.(*build.DefStmt)
		if !ok || next >= len(a.Functions) {
			continue
		}
		fn := a.Functions[next]
		next++
		if fn.Name != def.Name {
			continue
		}
		comments := def.Comment()
		kept := comments.Before[:0]
		for _, c := range comments.Before {
			if !strings.HasPrefix(c.Token, annotationPrefix) {
				kept = append(kept, c)
			}
		}
		comments.Before = append(kept, build.Comment{Token: annotationPrefix + " " + fn.model.String()})
	}
	return build.Format(out)
}
