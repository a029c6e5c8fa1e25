package resolver

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"pyinsight/internal/engine/graph"
	"pyinsight/internal/engine/parser"
)

// Diagnostic records a call that matched several functions. No edge is
// created for it.
type Diagnostic struct {
	Unit       string
	Caller     string
	Call       string
	Line       int
	Candidates []string
}

type Resolution struct {
	Graph       *graph.CallGraph
	Diagnostics []Diagnostic
}

// Resolver links raw calls to function definitions across a set of units.
// Resolution order per call: the caller's own unit, then top-level functions
// of the other units, then the external bucket. Ambiguity never creates an
// edge.
type Resolver struct {
	units    []*parser.Unit
	tables   map[*parser.Unit]*symbolTable
	byModule map[string]*parser.Unit
	topLevel map[string][]*parser.Function
}

func NewResolver(units []*parser.Unit) *Resolver {
	r := &Resolver{
		units:    units,
		tables:   make(map[*parser.Unit]*symbolTable, len(units)),
		byModule: make(map[string]*parser.Unit, len(units)),
		topLevel: make(map[string][]*parser.Function),
	}
	for _, unit := range units {
		table := newSymbolTable(unit)
		r.tables[unit] = table
		if unit.Module != "" {
			r.byModule[unit.Module] = unit
		}
		for name, fns := range table.topLevel {
			r.topLevel[name] = append(r.topLevel[name], fns...)
		}
	}
	return r
}

// Resolve builds the call graph. It only fails on cancellation or an
// inconsistent unit set.
func (r *Resolver) Resolve(ctx context.Context) (*Resolution, error) {
	cg := graph.NewCallGraph()
	for _, unit := range r.units {
		for _, fn := range unit.Functions() {
			if err := cg.AddFunction(fn); err != nil {
				return nil, err
			}
		}
	}

	res := &Resolution{Graph: cg}
	for _, unit := range r.units {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, fn := range unit.Functions() {
			for _, call := range fn.Calls {
				callee, candidates := r.resolveCall(fn, call)
				switch {
				case callee != nil:
					if err := cg.AddCall(fn, callee); err != nil {
						return nil, err
					}
				case len(candidates) > 1:
					res.Diagnostics = append(res.Diagnostics, newDiagnostic(fn, call, candidates))
					cg.AddExternal(fn, call.DisplayName())
				default:
					cg.AddExternal(fn, call.DisplayName())
				}
			}
		}
	}
	return res, nil
}

func newDiagnostic(fn *parser.Function, call parser.Call, candidates []*parser.Function) Diagnostic {
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID())
	}
	sort.Strings(ids)
	slog.Debug("ambiguous call left unresolved",
		"unit", fn.Unit().Name,
		"caller", fn.QualifiedName,
		"call", call.DisplayName(),
		"candidates", len(ids),
	)
	return Diagnostic{
		Unit:       fn.Unit().Name,
		Caller:     fn.QualifiedName,
		Call:       call.DisplayName(),
		Line:       call.Line,
		Candidates: ids,
	}
}

// resolveCall returns the callee, or the competing candidates when the call
// is ambiguous, or neither when it is external.
func (r *Resolver) resolveCall(fn *parser.Function, call parser.Call) (*parser.Function, []*parser.Function) {
	if call.Segment == "" {
		return nil, nil
	}
	table := r.tables[fn.Unit()]

	if !call.Dynamic && call.Dotted() {
		if b, ok := table.bindings[call.Head()]; ok {
			return r.resolveImported(b, strings.Split(call.Name, ".")[1:])
		}
	}

	if !call.Dotted() {
		if found := r.lexical(table, fn, call.Name); len(found) > 0 {
			return pick(found)
		}
		if b, ok := table.bindings[call.Name]; ok {
			return r.resolveImported(b, nil)
		}
	}

	if found := r.sameUnit(table, fn, call); len(found) > 0 {
		return pick(found)
	}

	if call.Dotted() {
		return nil, nil
	}
	return r.otherUnits(table, call.Name)
}

// lexical follows Python's scoping for a bare name: functions nested in the
// caller or its enclosing functions, then module level. Class bodies are
// skipped.
func (r *Resolver) lexical(table *symbolTable, fn *parser.Function, name string) []*parser.Function {
	for scope := fn; scope != nil; scope = scope.Parent {
		if found := table.lookup(baseQualifiedName(scope.QualifiedName) + "." + name); len(found) > 0 {
			return found
		}
	}
	return table.topLevel[name]
}

// sameUnit applies the qualified-suffix match within the caller's unit.
// A bare name never reaches a method, so those are dropped for plain calls.
// Attribute calls fall back to methods sharing the final segment.
func (r *Resolver) sameUnit(table *symbolTable, fn *parser.Function, call parser.Call) []*parser.Function {
	if !call.Dotted() {
		var out []*parser.Function
		for _, candidate := range table.suffixMatch(call.Name) {
			if candidate.Class == "" {
				out = append(out, candidate)
			}
		}
		return out
	}
	if !call.Dynamic {
		head := call.Head()
		if head == "self" || head == "cls" {
			if class := enclosingClass(fn); class != "" {
				rest := strings.TrimPrefix(call.Name, head+".")
				if found := table.lookup(class + "." + rest); len(found) > 0 {
					return found
				}
			}
		} else if found := table.suffixMatch(call.Name); len(found) > 0 {
			return found
		}
	}

	var methods []*parser.Function
	for _, candidate := range table.byName[call.Segment] {
		if candidate.Class != "" {
			methods = append(methods, candidate)
		}
	}
	return methods
}

// otherUnits matches top-level functions of the other units by name. When
// several units define the name, the caller's imports pick one.
func (r *Resolver) otherUnits(table *symbolTable, name string) (*parser.Function, []*parser.Function) {
	var candidates []*parser.Function
	for _, fn := range r.topLevel[name] {
		if fn.Unit() != table.unit {
			candidates = append(candidates, fn)
		}
	}
	if len(candidates) <= 1 {
		return pick(candidates)
	}

	imported := make(map[*parser.Unit]bool)
	for _, b := range table.bindings {
		if unit := r.unitFor(b.module); unit != nil {
			imported[unit] = true
		}
		if b.name != "" {
			if unit := r.unitFor(b.module + "." + b.name); unit != nil {
				imported[unit] = true
			}
		}
	}
	var narrowed []*parser.Function
	for _, fn := range candidates {
		if imported[fn.Unit()] {
			narrowed = append(narrowed, fn)
		}
	}
	if len(narrowed) == 1 {
		return narrowed[0], nil
	}
	return nil, candidates
}

// resolveImported follows an import binding. rest holds the segments after
// the bound name; the last one is the called function.
func (r *Resolver) resolveImported(b binding, rest []string) (*parser.Function, []*parser.Function) {
	if b.name != "" {
		if len(rest) == 0 {
			if unit := r.unitFor(b.module); unit != nil {
				return pick(r.tables[unit].topLevel[b.name])
			}
			return nil, nil
		}
		// `from pkg import mod; mod.fn()` or `from mod import Cls; Cls.fn()`.
		if unit := r.unitFor(joinModule(b.module, b.name)); unit != nil {
			return r.resolveInModule(unit, rest)
		}
		if unit := r.unitFor(b.module); unit != nil {
			return pick(r.tables[unit].lookup(b.name + "." + strings.Join(rest, ".")))
		}
		return nil, nil
	}

	if len(rest) == 0 {
		return nil, nil
	}
	// Longest module prefix wins: `pkg.mod.fn()` prefers unit pkg.mod over pkg.
	for i := len(rest) - 1; i >= 0; i-- {
		module := joinModule(b.module, strings.Join(rest[:i], "."))
		if unit := r.unitFor(module); unit != nil {
			return r.resolveInModule(unit, rest[i:])
		}
	}
	return nil, nil
}

func (r *Resolver) resolveInModule(unit *parser.Unit, rest []string) (*parser.Function, []*parser.Function) {
	table := r.tables[unit]
	if len(rest) == 1 {
		return pick(table.topLevel[rest[0]])
	}
	return pick(table.lookup(strings.Join(rest, ".")))
}

// unitFor finds the analyzed unit of a dotted module path. An exact match
// wins; otherwise a unique unit whose module ends with the path.
func (r *Resolver) unitFor(module string) *parser.Unit {
	if module == "" {
		return nil
	}
	if unit, ok := r.byModule[module]; ok {
		return unit
	}
	var match *parser.Unit
	for _, unit := range r.units {
		if strings.HasSuffix(unit.Module, "."+module) {
			if match != nil {
				return nil
			}
			match = unit
		}
	}
	return match
}

func enclosingClass(fn *parser.Function) string {
	for f := fn; f != nil; f = f.Parent {
		if f.Class != "" {
			return f.Class
		}
	}
	return ""
}

func joinModule(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + "." + b
}

func pick(found []*parser.Function) (*parser.Function, []*parser.Function) {
	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return found[0], nil
	}
	return nil, found
}
