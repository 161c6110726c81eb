package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fmeum/starcost/costmodel"
	"github.com/rs/zerolog/log"
	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// fileOptions is the Starlark dialect accepted for analyzed files.
var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// analysis is the result of analyzing one file.
type analysis struct {
	Path      string      `json:"path" yaml:"path"`
	Functions []*function `json:"functions" yaml:"functions"`
	Calls     []callSite  `json:"calls" yaml:"calls"`
}

// function is a top-level def and its cost model.
type function struct {
	Name     string   `json:"name" yaml:"name"`
	Line     int      `json:"line" yaml:"line"`
	Params   []string `json:"params" yaml:"params"`
	Baseline int      `json:"baseline" yaml:"baseline"`
	Savings  []int    `json:"savings" yaml:"savings"`
	Bits     uint64   `json:"model" yaml:"model"`

	model costmodel.Model
}

// callSite is a call of a modelled function and its estimated cost.
type callSite struct {
	Line   int    `json:"line" yaml:"line"`
	Col    int    `json:"col" yaml:"col"`
	Callee string `json:"callee" yaml:"callee"`
	Const  []bool `json:"const" yaml:"const"`
	Cost   int    `json:"cost" yaml:"cost"`
}

// loadFile parses and resolves a Starlark file. Names that are neither
// defined in the file nor universal are treated as predeclared.
func loadFile(path string, src interface{}) (*syntax.File, error) {
	f, err := fileOptions.Parse(path, src, syntax.RetainComments)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	isPredeclared := func(name string) bool { return !starlark.Universe.Has(name) }
	if err := resolve.File(f, isPredeclared, starlark.Universe.Has); err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	return f, nil
}

// analyzePath reads, loads and analyzes the file at path.
func analyzePath(path string) (*syntax.File, *analysis, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := loadFile(path, src)
	if err != nil {
		return nil, nil, err
	}
	return f, analyze(f), nil
}

// analyze models every top-level def of f and evaluates each call of one of
// them against the arguments that are compile-time constants.
func analyze(f *syntax.File) *analysis {
	a := &analysis{Path: f.Path}

	// Top-level statements run in source order, so their calls see only the
	// constants and defs bound before them. Function bodies run once the
	// module is loaded and see the final bindings.
	byBinding := make(map[*resolve.Binding]*function)
	env := newConstEnv(fileOptions)
	var bodies []syntax.Node
	for _, stmt := range f.Stmts {
		a.callSites(stmt, byBinding, env, &bodies)
		env.record(stmt)

		def, ok := stmt.(*syntax.DefStmt)
		if !ok {
			continue
		}
		fn := newFunction(def)
		log.Debug().
			Str("file", f.Path).
			Str("func", fn.Name).
			Stringer("model", fn.model).
			Msg("modelled function")
		a.Functions = append(a.Functions, fn)
		if b, ok := def.Name.Binding.(*resolve.Binding); ok {
			byBinding[b] = fn
		}
	}
	for _, body := range bodies {
		a.callSites(body, byBinding, env, nil)
	}
	sort.SliceStable(a.Calls, func(i, j int) bool {
		if a.Calls[i].Line != a.Calls[j].Line {
			return a.Calls[i].Line < a.Calls[j].Line
		}
		return a.Calls[i].Col < a.Calls[j].Col
	})
	return a
}

// callSites evaluates every call of a modelled function within node. If
// bodies is not nil, defs and lambdas are appended to it instead of being
// walked.
func (a *analysis) callSites(node syntax.Node, byBinding map[*resolve.Binding]*function, env *constEnv, bodies *[]syntax.Node) {
	syntax.Walk(node, func(n syntax.Node) bool {
		switch n := n.(type) {
		case *syntax.DefStmt, *syntax.LambdaExpr:
			if bodies != nil {
				*bodies = append(*bodies, n)
				return false
			}
			return true
		case *syntax.CallExpr:
			a.callSite(n, byBinding, env)
		}
		return true
	})
}

func (a *analysis) callSite(call *syntax.CallExpr, byBinding map[*resolve.Binding]*function, env *constEnv) {
	id, ok := call.Fn.(*syntax.Ident)
	if !ok {
		return
	}
	b, _ := id.Binding.(*resolve.Binding)
	fn := byBinding[b]
	if fn == nil {
		return
	}
	flags := constFlags(fn.Params, call.Args, env)
	start, _ := call.Span()
	site := callSite{
		Line:   int(start.Line),
		Col:    int(start.Col),
		Callee: fn.Name,
		Const:  flags,
		Cost:   costmodel.Evaluate(fn.model, flags),
	}
	log.Debug().
		Str("file", a.Path).
		Str("callee", site.Callee).
		Int("line", site.Line).
		Int("cost", site.Cost).
		Msg("evaluated call site")
	a.Calls = append(a.Calls, site)
}

func newFunction(def *syntax.DefStmt) *function {
	m := costmodel.BuildDef(def)
	fn := &function{
		Name:     def.Name.Name,
		Line:     int(def.Def.Line),
		Params:   paramNames(def.Params),
		Baseline: m.Baseline(),
		Bits:     m.Bits(),
		model:    m,
	}
	fn.Savings = make([]int, min(len(fn.Params), costmodel.MaxSlots))
	for slot := range fn.Savings {
		fn.Savings[slot] = m.Savings(slot)
	}
	return fn
}

// paramNames returns the name bound by each parameter, by slot. Variadic
// parameters keep their stars; a bare * is "*".
func paramNames(params []syntax.Expr) []string {
	names := make([]string, len(params))
	for i, param := range params {
		switch p := param.(type) {
		case *syntax.Ident:
			names[i] = p.Name
		case *syntax.BinaryExpr:
			if id, ok := p.X.(*syntax.Ident); ok {
				names[i] = id.Name
			}
		case *syntax.UnaryExpr:
			names[i] = p.Op.String()
			if id, ok := p.X.(*syntax.Ident); ok {
				names[i] += id.Name
			}
		}
	}
	return names
}

// constFlags maps call arguments onto parameter slots and reports, per slot,
// whether the argument bound to it is a compile-time constant. Unfilled slots
// are not constant. Positional arguments fill slots up to the first *args or
// bare * parameter; later parameters are bound by keyword only. A *args or
// **kwargs argument could fill any slot, so the call is treated as having no
// constant arguments.
func constFlags(params []string, args []syntax.Expr, env *constEnv) []bool {
	flags := make([]bool, len(params))
	positionalSlots := len(params)
	for i, name := range params {
		if strings.HasPrefix(name, "*") {
			positionalSlots = i
			break
		}
	}
	positional := 0
	for _, arg := range args {
		switch a := arg.(type) {
		case *syntax.UnaryExpr:
			if a.Op == syntax.STAR || a.Op == syntax.STARSTAR {
				return make([]bool, len(params))
			}
		case *syntax.BinaryExpr:
			if a.Op == syntax.EQ {
				if id, ok := a.X.(*syntax.Ident); ok {
					if slot := indexOf(params, id.Name); slot >= 0 {
						flags[slot] = env.isConstant(a.Y)
					}
				}
				continue
			}
		}
		if positional < positionalSlots {
			flags[positional] = env.isConstant(arg)
		}
		positional++
	}
	return flags
}

func indexOf(arr []string, val string) int {
	for i, v := range arr {
		if v == val {
			return i
		}
	}
	return -1
}
