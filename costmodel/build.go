package costmodel

import (
	"go.starlark.net/resolve"
	"go.starlark.net/syntax"
)

// Build walks body once and returns its cost model. params are the
// function's formal parameters in declaration order; slot i is params[i].
// Both must come from a resolved syntax tree. Neither is modified.
func Build(body []syntax.Stmt, params []syntax.Expr) Model {
	bd := newBuilder(params)
	bd.stmts(body)
	return encode(bd.baseline, bd.savings[:])
}

// BuildDef returns the cost model of a def statement's body.
func BuildDef(def *syntax.DefStmt) Model {
	return Build(def.Body, def.Params)
}

// BuildFunction returns the cost model of a resolved function, which may also
// be a lambda.
func BuildFunction(fn *resolve.Function) Model {
	return Build(fn.Body, fn.Params)
}

// builder holds the state of one walk over one function body.
type builder struct {
	vars     *tracker
	baseline int
	savings  [MaxSlots]int
}

func newBuilder(params []syntax.Expr) *builder {
	bd := &builder{vars: newTracker()}
	for slot, param := range params {
		id, trackable := paramIdent(param)
		if id == nil {
			continue
		}
		basis := Dynamic
		if trackable {
			basis = DependsOn(slot)
		}
		bd.vars.set(bindingOf(id), basis)
	}
	return bd
}

// paramIdent returns the name a parameter binds and whether its value is a
// single argument that can be tracked.
func paramIdent(param syntax.Expr) (*syntax.Ident, bool) {
	switch p := param.(type) {
	case *syntax.Ident:
		return p, true
	case *syntax.BinaryExpr: // name=default
		id, ok := p.X.(*syntax.Ident)
		return id, ok
	case *syntax.UnaryExpr: // *args, **kwargs or a bare *
		id, _ := p.X.(*syntax.Ident)
		return id, false
	}
	return nil, false
}

func bindingOf(id *syntax.Ident) *resolve.Binding {
	b, _ := id.Binding.(*resolve.Binding)
	return b
}

// isLocal reports whether b is a variable of the function being walked.
// Starlark has no nonlocal, so a cell is only ever written by its owner.
func isLocal(b *resolve.Binding) bool {
	return b != nil && (b.Scope == resolve.Local || b.Scope == resolve.Cell)
}

// charge records a node of the given weight and basis. Constant nodes fold
// away; nodes that depend on one slot can be reclaimed when it is constant.
func (bd *builder) charge(weight int, basis Basis) {
	if basis == Const {
		return
	}
	bd.baseline = min(bd.baseline+weight, MaxCost)
	if slot, ok := basis.Slot(); ok {
		bd.savings[slot] = min(bd.savings[slot]+weight, MaxCost)
	}
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (bd *builder) stmts(stmts []syntax.Stmt) {
	for _, stmt := range stmts {
		bd.stmt(stmt)
	}
}

func (bd *builder) stmt(stmt syntax.Stmt) {
	switch s := stmt.(type) {
	case *syntax.ExprStmt:
		bd.expr(s.X)

	case *syntax.ReturnStmt:
		if s.Result != nil {
			bd.expr(s.Result)
		}

	case *syntax.AssignStmt:
		if s.Op == syntax.EQ {
			bd.assign(s.LHS, s.RHS)
		} else {
			bd.update(s)
		}

	case *syntax.IfStmt:
		bd.charge(weightBranch, bd.expr(s.Cond))
		before := bd.vars.snapshot()
		bd.stmts(s.True)
		taken := bd.vars.snapshot()
		bd.vars.restore(before)
		bd.stmts(s.False)
		bd.vars.join(taken)

	case *syntax.ForStmt:
		if call, ok := rangeCall(s.X); ok {
			// Numeric loop: the range is not materialized.
			for _, arg := range call.Args {
				bd.expr(arg)
			}
		} else {
			bd.expr(s.X)
		}
		bd.loop(s.Body, func() {
			bd.store(s.Vars, Dynamic)
		})

	case *syntax.WhileStmt:
		bd.loop(s.Body, func() {
			bd.expr(s.Cond)
		})

	case *syntax.BranchStmt:
		if s.Token != syntax.PASS {
			bd.charge(weightBranch, Dynamic)
		}

	case *syntax.DefStmt:
		bd.closure(s.Params)
		bd.store(s.Name, Dynamic)

	default:
		bd.charge(weightUnknown, Dynamic)
	}
}

// loop charges the loop overhead and walks body once. Variables written in
// the body may carry values between iterations, so they read as Dynamic from
// loop entry. head runs at the top of each iteration.
func (bd *builder) loop(body []syntax.Stmt, head func()) {
	bd.charge(weightLoop, Dynamic)
	before := bd.vars.snapshot()
	for _, b := range assigned(body) {
		bd.vars.set(b, Dynamic)
	}
	head()
	bd.stmts(body)
	bd.vars.join(before)
}

// assign handles lhs = rhs. Destructuring a literal of the same arity assigns
// element-wise.
func (bd *builder) assign(lhs, rhs syntax.Expr) {
	if targets, values, ok := pairwise(lhs, rhs); ok {
		bases := make([]Basis, len(values))
		for i, v := range values {
			bases[i] = bd.expr(v)
		}
		for i, t := range targets {
			bd.store(t, bases[i])
		}
		return
	}
	bd.store(lhs, bd.expr(rhs))
}

// update handles augmented assignment (x op= rhs).
func (bd *builder) update(s *syntax.AssignStmt) {
	rhs := bd.expr(s.RHS)
	switch t := unparen(s.LHS).(type) {
	case *syntax.Ident:
		if b := bindingOf(t); isLocal(b) {
			basis := bd.vars.get(b).Combine(rhs)
			bd.charge(weightOperator, basis)
			bd.vars.set(b, basis)
			return
		}
		bd.charge(weightLoad, Dynamic)
	case *syntax.IndexExpr:
		bd.expr(t.X)
		bd.expr(t.Y)
		bd.charge(weightLoad, Dynamic)
	case *syntax.DotExpr:
		bd.expr(t.X)
		bd.charge(weightLoad, Dynamic)
	default:
		bd.charge(weightUnknown, Dynamic)
		return
	}
	bd.charge(weightOperator, Dynamic)
	bd.charge(weightStore, Dynamic)
}

// store assigns a value of the given basis to an assignment target. Writes to
// memory are runtime effects and never fold.
func (bd *builder) store(lhs syntax.Expr, basis Basis) {
	switch t := lhs.(type) {
	case *syntax.Ident:
		if b := bindingOf(t); isLocal(b) {
			bd.vars.set(b, basis)
			return
		}
		bd.charge(weightStore, Dynamic)
	case *syntax.IndexExpr:
		bd.expr(t.X)
		bd.expr(t.Y)
		bd.charge(weightStore, Dynamic)
	case *syntax.DotExpr:
		bd.expr(t.X)
		bd.charge(weightStore, Dynamic)
	case *syntax.ParenExpr:
		bd.store(t.X, basis)
	case *syntax.TupleExpr:
		bd.unpack(t.List)
	case *syntax.ListExpr:
		bd.unpack(t.List)
	default:
		bd.charge(weightUnknown, Dynamic)
	}
}

func (bd *builder) unpack(targets []syntax.Expr) {
	bd.charge(weightUnpack, Dynamic)
	for _, t := range targets {
		bd.store(t, Dynamic)
	}
}

// closure charges the creation of a nested function. Default values are
// evaluated by the enclosing function; the body is modelled separately.
func (bd *builder) closure(params []syntax.Expr) {
	for _, param := range params {
		if p, ok := param.(*syntax.BinaryExpr); ok && p.Op == syntax.EQ {
			bd.expr(p.Y)
		}
	}
	bd.charge(weightClosure, Dynamic)
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// expr charges e and its subexpressions and returns the basis of e.
func (bd *builder) expr(e syntax.Expr) Basis {
	switch e := e.(type) {
	case *syntax.Literal:
		return Const

	case *syntax.Ident:
		return bd.ident(e)

	case *syntax.ParenExpr:
		return bd.expr(e.X)

	case *syntax.UnaryExpr:
		if e.X == nil {
			return Dynamic
		}
		basis := bd.expr(e.X)
		bd.charge(weightOperator, basis)
		return basis

	case *syntax.BinaryExpr:
		x := bd.expr(e.X)
		y := bd.expr(e.Y)
		basis := x.Combine(y)
		bd.charge(weightOperator, basis)
		return basis

	case *syntax.CondExpr:
		basis := combineAll(bd.expr(e.Cond), bd.expr(e.True), bd.expr(e.False))
		bd.charge(weightSelect, basis)
		return basis

	case *syntax.CallExpr:
		bd.expr(e.Fn)
		for _, arg := range e.Args {
			bd.arg(arg)
		}
		bd.charge(weightCall, Dynamic)
		return Dynamic

	case *syntax.DotExpr:
		bd.expr(e.X)
		bd.charge(weightLoad, Dynamic)
		return Dynamic

	case *syntax.IndexExpr:
		bd.expr(e.X)
		bd.expr(e.Y)
		bd.charge(weightLoad, Dynamic)
		return Dynamic

	case *syntax.SliceExpr:
		bd.expr(e.X)
		for _, part := range []syntax.Expr{e.Lo, e.Hi, e.Step} {
			if part != nil {
				bd.expr(part)
			}
		}
		bd.charge(weightLoad, Dynamic)
		return Dynamic

	case *syntax.ListExpr:
		return bd.collection(e.List)

	case *syntax.TupleExpr:
		return bd.collection(e.List)

	case *syntax.DictExpr:
		for _, item := range e.List {
			if entry, ok := item.(*syntax.DictEntry); ok {
				bd.expr(entry.Key)
				bd.expr(entry.Value)
			}
		}
		bd.charge(weightAlloc+weightElement*len(e.List), Dynamic)
		return Dynamic

	case *syntax.Comprehension:
		return bd.comprehension(e)

	case *syntax.LambdaExpr:
		bd.closure(e.Params)
		return Dynamic

	default:
		bd.charge(weightUnknown, Dynamic)
		return Dynamic
	}
}

// ident returns the basis of a variable read. Locals carry their tracked
// basis for free and captured variables of an enclosing function are read
// for free as Dynamic; module and builtin names are loaded at run time.
func (bd *builder) ident(id *syntax.Ident) Basis {
	b := bindingOf(id)
	if isLocal(b) {
		return bd.vars.get(b)
	}
	if b != nil && b.Scope == resolve.Free {
		return Dynamic
	}
	if b != nil && (b.Scope == resolve.Universal || b.Scope == resolve.Predeclared) {
		switch id.Name {
		case "True", "False", "None":
			return Const
		}
	}
	bd.charge(weightLoad, Dynamic)
	return Dynamic
}

// arg charges one call argument: positional, name=value, *args or **kwargs.
func (bd *builder) arg(arg syntax.Expr) {
	switch a := arg.(type) {
	case *syntax.BinaryExpr:
		if a.Op == syntax.EQ {
			bd.expr(a.Y)
			return
		}
	case *syntax.UnaryExpr:
		if a.Op == syntax.STAR || a.Op == syntax.STARSTAR {
			bd.expr(a.X)
			return
		}
	}
	bd.expr(arg)
}

func (bd *builder) collection(elems []syntax.Expr) Basis {
	for _, elem := range elems {
		bd.expr(elem)
	}
	bd.charge(weightAlloc+weightElement*len(elems), Dynamic)
	return Dynamic
}

// comprehension walks the clauses in order, with the clause variables scoped
// to the comprehension.
func (bd *builder) comprehension(c *syntax.Comprehension) Basis {
	bd.charge(weightAlloc, Dynamic)
	bd.vars.push()
	defer bd.vars.pop()
	for _, clause := range c.Clauses {
		switch cl := clause.(type) {
		case *syntax.ForClause:
			bd.expr(cl.X)
			bd.charge(weightLoop, Dynamic)
			bd.define(cl.Vars)
		case *syntax.IfClause:
			bd.charge(weightBranch, bd.expr(cl.Cond))
		}
	}
	if entry, ok := c.Body.(*syntax.DictEntry); ok {
		bd.expr(entry.Key)
		bd.expr(entry.Value)
	} else {
		bd.expr(c.Body)
	}
	bd.charge(weightElement, Dynamic)
	return Dynamic
}

// define introduces the variables of a comprehension target in the current
// block scope.
func (bd *builder) define(vars syntax.Expr) {
	switch v := vars.(type) {
	case *syntax.Ident:
		bd.vars.define(bindingOf(v), Dynamic)
	case *syntax.ParenExpr:
		bd.define(v.X)
	case *syntax.TupleExpr:
		for _, item := range v.List {
			bd.define(item)
		}
	case *syntax.ListExpr:
		for _, item := range v.List {
			bd.define(item)
		}
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func unparen(e syntax.Expr) syntax.Expr {
	for {
		p, ok := e.(*syntax.ParenExpr)
		if !ok {
			return e
		}
		e = p.X
	}
}

// pairwise matches a destructuring target against a literal of equal arity.
func pairwise(lhs, rhs syntax.Expr) (targets, values []syntax.Expr, ok bool) {
	targets = sequence(unparen(lhs))
	values = sequence(unparen(rhs))
	if targets == nil || values == nil || len(targets) != len(values) {
		return nil, nil, false
	}
	return targets, values, true
}

func sequence(e syntax.Expr) []syntax.Expr {
	switch e := e.(type) {
	case *syntax.TupleExpr:
		return e.List
	case *syntax.ListExpr:
		return e.List
	}
	return nil
}

// rangeCall reports whether x is a call of the builtin range with positional
// arguments only.
func rangeCall(x syntax.Expr) (*syntax.CallExpr, bool) {
	call, ok := unparen(x).(*syntax.CallExpr)
	if !ok || len(call.Args) == 0 || len(call.Args) > 3 {
		return nil, false
	}
	fn, ok := call.Fn.(*syntax.Ident)
	if !ok || fn.Name != "range" {
		return nil, false
	}
	if b := bindingOf(fn); b == nil || b.Scope != resolve.Universal {
		return nil, false
	}
	for _, arg := range call.Args {
		switch a := arg.(type) {
		case *syntax.BinaryExpr:
			if a.Op == syntax.EQ {
				return nil, false
			}
		case *syntax.UnaryExpr:
			if a.Op == syntax.STAR || a.Op == syntax.STARSTAR {
				return nil, false
			}
		}
	}
	return call, true
}

// assigned lists the local variables written anywhere in stmts, excluding the
// bodies of nested functions.
func assigned(stmts []syntax.Stmt) []*resolve.Binding {
	var out []*resolve.Binding
	for _, stmt := range stmts {
		syntax.Walk(stmt, func(n syntax.Node) bool {
			switch n := n.(type) {
			case *syntax.AssignStmt:
				out = targetBindings(n.LHS, out)
			case *syntax.ForStmt:
				out = targetBindings(n.Vars, out)
			case *syntax.DefStmt:
				out = targetBindings(n.Name, out)
				return false
			case *syntax.LambdaExpr:
				return false
			}
			return true
		})
	}
	return out
}

func targetBindings(e syntax.Expr, out []*resolve.Binding) []*resolve.Binding {
	switch t := e.(type) {
	case *syntax.Ident:
		if b := bindingOf(t); isLocal(b) {
			out = append(out, b)
		}
	case *syntax.ParenExpr:
		out = targetBindings(t.X, out)
	case *syntax.TupleExpr:
		for _, item := range t.List {
			out = targetBindings(item, out)
		}
	case *syntax.ListExpr:
		for _, item := range t.List {
			out = targetBindings(item, out)
		}
	}
	return out
}
