package parser

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"pyinsight/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleModule = `import os
import os.path as osp
from .helpers import compute as calc, other
from pkg.sub import *


def top(a, b: int, c=1, d: str = "x", *args, e, **kwargs):
    """Top level.

    More detail.
    """
    helper()
    os.path.join(a, b)
    return inner_use()


class Outer(Base, metaclass=Meta):
    @staticmethod
    @cache(maxsize=10)
    def method(self):
        'Method doc.'
        self.helper()

        def inner():
            return compute()
        return inner()

    async def run(self):
        await self.method()


def helper(x, /, y):
    pass


if __name__ == "__main__":
    top(1, 2, e=3)
`

func parse(t *testing.T, name, src string) *Unit {
	t.Helper()
	unit, err := NewParser().ParseUnit(context.Background(), name, []byte(src))
	require.NoError(t, err)
	return unit
}

func qualifiedNames(u *Unit) []string {
	names := make([]string, 0, len(u.Functions()))
	for _, fn := range u.Functions() {
		names = append(names, fn.QualifiedName)
	}
	return names
}

func callNames(fn *Function) []string {
	names := make([]string, 0, len(fn.Calls))
	for _, c := range fn.Calls {
		names = append(names, c.Name)
	}
	return names
}

func TestParseUnit_Structure(t *testing.T) {
	unit := parse(t, "pkg/sample.py", sampleModule)

	assert.Equal(t, "pkg.sample", unit.Module)
	assert.Equal(t, []string{"top", "Outer.method", "Outer.method.inner", "Outer.run", "helper"}, qualifiedNames(unit))

	require.Len(t, unit.Roots, 4)
	fns := unit.Functions()
	top, method, inner, run, helper := fns[0], fns[1], fns[2], fns[3], fns[4]

	assert.Equal(t, KindFunction, top.Kind)
	assert.Equal(t, KindMethod, method.Kind)
	assert.Equal(t, "Outer", method.Class)
	assert.Equal(t, KindNested, inner.Kind)
	assert.Same(t, method, inner.Parent)
	assert.Equal(t, []*Function{inner}, method.Children)
	assert.Same(t, unit, inner.Unit())
	assert.Equal(t, "pkg/sample.py::Outer.method.inner", inner.ID())

	assert.True(t, top.AtModuleScope())
	assert.False(t, method.AtModuleScope())
	assert.True(t, run.IsAsync)
	assert.False(t, helper.IsAsync)

	assert.Equal(t, LineSpan{Start: 7, End: 14}, top.Span)
}

func TestParseUnit_Params(t *testing.T) {
	unit := parse(t, "sample.py", sampleModule)
	fns := unit.Functions()

	assert.Equal(t, []Param{
		{Name: "a", Kind: ParamPositional},
		{Name: "b", Kind: ParamPositional, Annotation: "int"},
		{Name: "c", Kind: ParamPositional, HasDefault: true},
		{Name: "d", Kind: ParamPositional, HasDefault: true, Annotation: "str"},
		{Name: "args", Kind: ParamVarPositional},
		{Name: "e", Kind: ParamKeywordOnly},
		{Name: "kwargs", Kind: ParamVarKeyword},
	}, fns[0].Params)

	assert.Equal(t, []Param{
		{Name: "x", Kind: ParamPositionalOnly},
		{Name: "y", Kind: ParamPositional},
	}, fns[4].Params)
}

func TestParseUnit_DocstringsAndDecorators(t *testing.T) {
	unit := parse(t, "sample.py", sampleModule)
	fns := unit.Functions()

	assert.Equal(t, "Top level.\n\nMore detail.", fns[0].Docstring)
	assert.True(t, fns[0].HasDoc())
	assert.Equal(t, "Method doc.", fns[1].Docstring)
	assert.Empty(t, fns[4].Docstring)
	assert.False(t, fns[4].HasDoc())

	assert.Equal(t, []string{"staticmethod", "cache"}, fns[1].Decorators)
	assert.Empty(t, fns[0].Decorators)
}

func TestParseUnit_Calls(t *testing.T) {
	unit := parse(t, "sample.py", sampleModule)
	fns := unit.Functions()

	assert.Equal(t, []string{"helper", "os.path.join", "inner_use"}, callNames(fns[0]))
	assert.Equal(t, []string{"self.helper", "inner"}, callNames(fns[1]))
	assert.Equal(t, []string{"compute"}, callNames(fns[2]))
	assert.Equal(t, []string{"self.method"}, callNames(fns[3]))
	assert.Empty(t, fns[4].Calls)

	join := fns[0].Calls[1]
	assert.Equal(t, "join", join.Segment)
	assert.Equal(t, "os", join.Head())
	assert.True(t, join.Dotted())
	assert.False(t, join.Dynamic)
	assert.Equal(t, 13, join.Line)

	require.Len(t, unit.MainGuardCalls, 1)
	assert.Equal(t, "top", unit.MainGuardCalls[0].Name)
}

func TestParseUnit_LongCallNames(t *testing.T) {
	long := "compute_" + strings.Repeat("x", 90)
	unit := parse(t, "long.py", "def a():\n    "+long+"()\n    obj."+long+"()\n")
	calls := unit.Functions()[0].Calls
	require.Len(t, calls, 2)

	assert.Equal(t, long, calls[0].Name)
	assert.False(t, calls[0].Dotted())
	assert.Len(t, calls[0].DisplayName(), 80)
	assert.True(t, strings.HasSuffix(calls[0].DisplayName(), "..."))

	assert.True(t, calls[1].Dotted())
	assert.Equal(t, long, calls[1].Segment)
}

func TestParseUnit_Imports(t *testing.T) {
	unit := parse(t, "sample.py", sampleModule)

	require.Len(t, unit.Imports, 4)
	assert.Equal(t, Import{Module: "os", Line: 1}, unit.Imports[0])
	assert.Equal(t, Import{Module: "os.path", Alias: "osp", Line: 2}, unit.Imports[1])
	assert.Equal(t, Import{
		Module:   "helpers",
		Names:    []ImportedName{{Name: "compute", Alias: "calc"}, {Name: "other"}},
		Relative: true,
		Level:    1,
		Line:     3,
	}, unit.Imports[2])
	assert.Equal(t, []ImportedName{{Name: "*"}}, unit.Imports[3].Names)

	assert.Equal(t, []string{"os", "os.path", ".helpers", "pkg.sub"}, unit.Dependencies())
}

func TestParseUnit_NestedFunctions(t *testing.T) {
	unit := parse(t, "nest.py", `
def outer_fn():
    def inner_fn():
        def deepest():
            pass
        deepest()
    inner_fn()

class A:
    class B:
        def m(self):
            pass
`)

	assert.Equal(t, []string{"outer_fn", "outer_fn.inner_fn", "outer_fn.inner_fn.deepest", "A.B.m"}, qualifiedNames(unit))
	fns := unit.Functions()
	assert.Equal(t, []string{"inner_fn"}, callNames(fns[0]))
	assert.Equal(t, []string{"deepest"}, callNames(fns[1]))
	assert.Equal(t, "A.B", fns[3].Class)
	assert.Len(t, unit.Roots, 2)
}

func TestParseUnit_DuplicateQualifiedNames(t *testing.T) {
	unit := parse(t, "prop.py", `
class C:
    @property
    def x(self):
        return 1

    @x.setter
    def x(self, v):
        pass
`)

	assert.Equal(t, []string{"C.x", "C.x#2"}, qualifiedNames(unit))
	assert.Equal(t, []string{"x.setter"}, unit.Functions()[1].Decorators)
}

func TestParseUnit_MainGuard(t *testing.T) {
	t.Run("reversed operands and single quotes", func(t *testing.T) {
		unit := parse(t, "cli.py", `
def main():
    pass

if '__main__' == __name__:
    main()
`)
		require.Len(t, unit.MainGuardCalls, 1)
		assert.Equal(t, "main", unit.MainGuardCalls[0].Name)
	})

	t.Run("definitions inside the guard", func(t *testing.T) {
		unit := parse(t, "cli.py", `
if __name__ == "__main__":
    def cli():
        run()
    cli()
`)
		fns := unit.Functions()
		require.Len(t, fns, 1)
		assert.True(t, fns[0].MainGuarded)
		assert.Equal(t, []string{"run"}, callNames(fns[0]))
		require.Len(t, unit.MainGuardCalls, 1)
		assert.Equal(t, "cli", unit.MainGuardCalls[0].Name)
	})

	t.Run("other conditions are not guards", func(t *testing.T) {
		unit := parse(t, "cli.py", `
if DEBUG:
    main()
`)
		assert.Empty(t, unit.MainGuardCalls)
	})
}

func TestParseUnit_DynamicCalls(t *testing.T) {
	unit := parse(t, "dyn.py", `
def f(handlers, k, a):
    handlers[k]()
    a.b().c()
`)

	calls := make(map[string]Call)
	for _, c := range unit.Functions()[0].Calls {
		calls[c.Name] = c
	}

	require.Contains(t, calls, "handlers[k]")
	assert.True(t, calls["handlers[k]"].Dynamic)
	assert.Empty(t, calls["handlers[k]"].Segment)

	require.Contains(t, calls, "a.b().c")
	assert.True(t, calls["a.b().c"].Dynamic)
	assert.Equal(t, "c", calls["a.b().c"].Segment)

	require.Contains(t, calls, "a.b")
	assert.False(t, calls["a.b"].Dynamic)
}

func TestParseUnit_EnclosingScopeExpressions(t *testing.T) {
	unit := parse(t, "scope.py", `
def outer():
    @register("x")
    def inner(value=default_value()):
        body_call()
`)
	fns := unit.Functions()
	assert.ElementsMatch(t, []string{"register", "default_value"}, callNames(fns[0]))
	assert.Equal(t, []string{"body_call"}, callNames(fns[1]))
}

func TestParseUnit_SyntaxError(t *testing.T) {
	_, err := NewParser().ParseUnit(context.Background(), "broken.py", []byte("def broken(:\n    pass\n"))
	require.Error(t, err)

	var pe *errors.ParseError
	require.True(t, stderrors.As(err, &pe))
	assert.Equal(t, "broken.py", pe.Unit)
	assert.Equal(t, 1, pe.Line)
	assert.GreaterOrEqual(t, pe.Column, 1)
	assert.True(t, errors.IsCode(err, errors.CodeParseError))
}

func TestParseUnit_Python2Statements(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		line   int
		column int
		reason string
	}{
		{"print", "def f():\n    print \"hello\"\n", 2, 5, "python 2 print statement"},
		{"print chevron", "import sys\nprint >>sys.stderr, \"x\"\n", 2, 1, "python 2 print statement"},
		{"exec", "exec \"x=1\"\n", 1, 1, "python 2 exec statement"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser().ParseUnit(context.Background(), "legacy.py", []byte(tt.src))
			var pe *errors.ParseError
			require.True(t, stderrors.As(err, &pe))
			assert.Equal(t, tt.line, pe.Line)
			assert.Equal(t, tt.column, pe.Column)
			assert.Equal(t, tt.reason, pe.Reason)
		})
	}

	unit := parse(t, "modern.py", "def f():\n    print(\"hello\")\n    exec(\"x=1\")\n")
	assert.Equal(t, []string{"print", "exec"}, callNames(unit.Functions()[0]))
}

func TestParseUnit_InvalidUTF8(t *testing.T) {
	_, err := NewParser().ParseUnit(context.Background(), "bin.py", []byte{0xff, 0xfe, 0x00})

	var pe *errors.ParseError
	require.True(t, stderrors.As(err, &pe))
	assert.Equal(t, 1, pe.Line)
	assert.Equal(t, 1, pe.Column)
}

func TestParseUnit_Empty(t *testing.T) {
	unit := parse(t, "empty.py", "")
	assert.Empty(t, unit.Functions())
	assert.Empty(t, unit.Imports)
}

func TestParseUnit_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewParser().ParseUnit(ctx, "a.py", []byte("def a():\n    pass\n"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseUnit_Deterministic(t *testing.T) {
	type shape struct {
		Name       string
		Params     []Param
		Docstring  string
		Decorators []string
		Span       LineSpan
		Calls      []Call
	}
	project := func(u *Unit) []shape {
		out := make([]shape, 0, len(u.Functions()))
		for _, fn := range u.Functions() {
			out = append(out, shape{fn.QualifiedName, fn.Params, fn.Docstring, fn.Decorators, fn.Span, fn.Calls})
		}
		return out
	}

	first := parse(t, "sample.py", sampleModule)
	second := parse(t, "sample.py", sampleModule)
	assert.Equal(t, project(first), project(second))
}

func TestUnitSnippet(t *testing.T) {
	unit := parse(t, "snip.py", "def a():\n    return 1\n\ndef b():\n    pass\n")
	fns := unit.Functions()

	assert.Equal(t, "def a():\n    return 1", unit.Snippet(fns[0].Span))
	assert.Equal(t, "def b():\n    pass", unit.Snippet(fns[1].Span))
	assert.Empty(t, unit.Snippet(LineSpan{}))
}

func TestModuleName(t *testing.T) {
	tests := map[string]string{
		"main.py":             "main",
		"pkg/mod.py":          "pkg.mod",
		"pkg/__init__.py":     "pkg",
		"__init__.py":         "",
		"./pkg/sub/helper.py": "pkg.sub.helper",
		`pkg\win.py`:          "pkg.win",
	}
	for in, want := range tests {
		if got := ModuleName(in); got != want {
			t.Errorf("ModuleName(%q) = %q, want %q", in, got, want)
		}
	}
}
