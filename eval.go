package main

import (
	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// constEnv holds the module-level names whose values are known at compile
// time, and decides whether a call argument is a compile-time constant.
type constEnv struct {
	opts        *syntax.FileOptions
	knownValues map[string]starlark.Value
	opaqueNames map[string]struct{}
}

func newConstEnv(opts *syntax.FileOptions) *constEnv {
	return &constEnv{
		opts:        opts,
		knownValues: make(map[string]starlark.Value),
		opaqueNames: make(map[string]struct{}),
	}
}

// maxEvalSteps bounds the work spent evaluating one constant expression.
const maxEvalSteps = 10000

// record updates the environment with one top-level statement. A name is
// known only if it is bound exactly once, by name = <constant expression>.
func (env *constEnv) record(stmt syntax.Stmt) {
	if assign, ok := stmt.(*syntax.AssignStmt); ok && assign.Op == syntax.EQ {
		if lhs, ok := assign.LHS.(*syntax.Ident); ok {
			if !env.bound(lhs.Name) {
				if val, ok := env.tryEval(assign.RHS); ok {
					env.knownValues[lhs.Name] = val
					return
				}
			}
			env.markOpaque(lhs)
			return
		}
	}
	syntax.Walk(stmt, func(n syntax.Node) bool {
		switch n := n.(type) {
		case *syntax.AssignStmt:
			env.markOpaque(n.LHS)
		case *syntax.ForStmt:
			env.markOpaque(n.Vars)
		case *syntax.LoadStmt:
			for _, ident := range n.To {
				env.markOpaque(ident)
			}
		case *syntax.DefStmt:
			env.markOpaque(n.Name)
			return false
		case *syntax.LambdaExpr, *syntax.Comprehension:
			return false
		}
		return true
	})
}

func (env *constEnv) bound(name string) bool {
	if _, ok := env.knownValues[name]; ok {
		return true
	}
	_, ok := env.opaqueNames[name]
	return ok
}

func (env *constEnv) markOpaque(expr syntax.Expr) {
	switch e := expr.(type) {
	case *syntax.Ident:
		delete(env.knownValues, e.Name)
		env.opaqueNames[e.Name] = struct{}{}
	case *syntax.ParenExpr:
		env.markOpaque(e.X)
	case *syntax.TupleExpr:
		for _, item := range e.List {
			env.markOpaque(item)
		}
	case *syntax.ListExpr:
		for _, item := range e.List {
			env.markOpaque(item)
		}
	}
}

// isConstant reports whether expr, appearing as a call argument, is a
// compile-time constant.
func (env *constEnv) isConstant(expr syntax.Expr) bool {
	if _, ok := expr.(*syntax.Literal); ok {
		return true
	}
	_, ok := env.tryEval(expr)
	return ok
}

// tryEval evaluates expr if every name it mentions is a known module
// constant or a universal name. Returns (nil, false) otherwise.
func (env *constEnv) tryEval(expr syntax.Expr) (starlark.Value, bool) {
	names := make(map[string]struct{})
	copied := copyConstExpr(expr, names)
	if copied == nil {
		return nil, false
	}

	globals := make(starlark.StringDict)
	for name := range names {
		if _, opaque := env.opaqueNames[name]; opaque {
			return nil, false
		}
		if val, ok := env.knownValues[name]; ok {
			globals[name] = val
		} else if !starlark.Universe.Has(name) {
			return nil, false
		}
	}

	thread := &starlark.Thread{Name: "starcost"}
	thread.SetMaxExecutionSteps(maxEvalSteps)
	val, err := starlark.EvalExprOptions(env.opts, thread, copied, globals)
	if err != nil {
		return nil, false
	}
	return val, true
}

// copyConstExpr returns an unresolved copy of expr, so that evaluating it
// leaves the analyzed tree untouched, and collects the names it reads. It
// returns nil if expr contains anything that cannot be a constant: calls,
// attribute lookups, lambdas, comprehensions, or reads of local variables.
func copyConstExpr(expr syntax.Expr, names map[string]struct{}) syntax.Expr {
	switch e := expr.(type) {
	case *syntax.Literal:
		c := *e
		return &c

	case *syntax.Ident:
		if isFunctionScoped(e) {
			return nil
		}
		names[e.Name] = struct{}{}
		return &syntax.Ident{NamePos: e.NamePos, Name: e.Name}

	case *syntax.ParenExpr:
		x := copyConstExpr(e.X, names)
		if x == nil {
			return nil
		}
		return &syntax.ParenExpr{Lparen: e.Lparen, X: x, Rparen: e.Rparen}

	case *syntax.UnaryExpr:
		if e.X == nil {
			return nil
		}
		x := copyConstExpr(e.X, names)
		if x == nil {
			return nil
		}
		return &syntax.UnaryExpr{OpPos: e.OpPos, Op: e.Op, X: x}

	case *syntax.BinaryExpr:
		x := copyConstExpr(e.X, names)
		y := copyConstExpr(e.Y, names)
		if x == nil || y == nil {
			return nil
		}
		return &syntax.BinaryExpr{OpPos: e.OpPos, Op: e.Op, X: x, Y: y}

	case *syntax.CondExpr:
		cond := copyConstExpr(e.Cond, names)
		t := copyConstExpr(e.True, names)
		f := copyConstExpr(e.False, names)
		if cond == nil || t == nil || f == nil {
			return nil
		}
		return &syntax.CondExpr{If: e.If, Cond: cond, True: t, ElsePos: e.ElsePos, False: f}

	case *syntax.IndexExpr:
		x := copyConstExpr(e.X, names)
		y := copyConstExpr(e.Y, names)
		if x == nil || y == nil {
			return nil
		}
		return &syntax.IndexExpr{X: x, Lbrack: e.Lbrack, Y: y, Rbrack: e.Rbrack}

	case *syntax.ListExpr:
		list := copyConstList(e.List, names)
		if list == nil {
			return nil
		}
		return &syntax.ListExpr{Lbrack: e.Lbrack, List: list, Rbrack: e.Rbrack}

	case *syntax.TupleExpr:
		list := copyConstList(e.List, names)
		if list == nil {
			return nil
		}
		return &syntax.TupleExpr{Lparen: e.Lparen, List: list, Rparen: e.Rparen}

	case *syntax.DictExpr:
		list := make([]syntax.Expr, len(e.List))
		for i, item := range e.List {
			entry, ok := item.(*syntax.DictEntry)
			if !ok {
				return nil
			}
			k := copyConstExpr(entry.Key, names)
			v := copyConstExpr(entry.Value, names)
			if k == nil || v == nil {
				return nil
			}
			list[i] = &syntax.DictEntry{Key: k, Colon: entry.Colon, Value: v}
		}
		return &syntax.DictExpr{Lbrace: e.Lbrace, List: list, Rbrace: e.Rbrace}

	default:
		return nil
	}
}

func copyConstList(items []syntax.Expr, names map[string]struct{}) []syntax.Expr {
	out := make([]syntax.Expr, len(items))
	for i, item := range items {
		if out[i] = copyConstExpr(item, names); out[i] == nil {
			return nil
		}
	}
	return out
}

// isFunctionScoped reports whether id names a parameter or variable of some
// function rather than a module-level or universal name.
func isFunctionScoped(id *syntax.Ident) bool {
	b, ok := id.Binding.(*resolve.Binding)
	if !ok {
		return false
	}
	switch b.Scope {
	case resolve.Local, resolve.Cell, resolve.Free:
		return true
	}
	return false
}
