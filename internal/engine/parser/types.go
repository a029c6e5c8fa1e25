package parser

import (
	"path"
	"strings"
)

// Unit is one parsed Python source file. It is not modified after ParseUnit
// returns.
type Unit struct {
	Name    string
	Module  string
	Source  string
	Imports []Import

	// Roots holds functions with no enclosing function: module-level
	// functions and methods of module-level classes. Nested functions hang
	// off their parent's Children.
	Roots []*Function

	// MainGuardCalls are calls made directly inside a module-level
	// `if __name__ == "__main__":` block.
	MainGuardCalls []Call

	functions []*Function
}

// Functions returns every function of the unit in definition order.
func (u *Unit) Functions() []*Function {
	return u.functions
}

// Dependencies returns the distinct imported module names in first-seen order.
func (u *Unit) Dependencies() []string {
	seen := make(map[string]bool, len(u.Imports))
	out := make([]string, 0, len(u.Imports))
	for _, imp := range u.Imports {
		name := imp.Path()
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// Snippet returns the source lines covered by span.
func (u *Unit) Snippet(span LineSpan) string {
	if span.Start <= 0 || span.End < span.Start {
		return ""
	}
	lines := strings.Split(u.Source, "\n")
	if span.Start > len(lines) {
		return ""
	}
	end := span.End
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[span.Start-1:end], "\n")
}

type FunctionKind string

const (
	KindFunction FunctionKind = "function"
	KindMethod   FunctionKind = "method"
	KindNested   FunctionKind = "nested"
)

type Function struct {
	Name          string
	QualifiedName string
	Kind          FunctionKind
	Class         string // enclosing class path, empty outside classes
	Params        []Param
	Docstring     string
	Decorators    []string
	Span          LineSpan
	IsAsync       bool
	MainGuarded   bool // defined inside a module-level __main__ guard
	Calls         []Call

	Parent   *Function
	Children []*Function

	unit *Unit
}

// Unit returns the owning unit.
func (f *Function) Unit() *Unit {
	return f.unit
}

// ID is unique across one analysis.
func (f *Function) ID() string {
	return FunctionID(f.unit.Name, f.QualifiedName)
}

// AtModuleScope reports whether the function is defined directly in the
// module body.
func (f *Function) AtModuleScope() bool {
	return f.Parent == nil && f.Class == ""
}

func (f *Function) HasDoc() bool {
	return strings.TrimSpace(f.Docstring) != ""
}

func FunctionID(unit, qualifiedName string) string {
	return unit + "::" + qualifiedName
}

type ParamKind string

const (
	ParamPositional     ParamKind = "positional"
	ParamPositionalOnly ParamKind = "positional_only"
	ParamKeywordOnly    ParamKind = "keyword_only"
	ParamVarPositional  ParamKind = "var_positional"
	ParamVarKeyword     ParamKind = "var_keyword"
)

type Param struct {
	Name       string
	Kind       ParamKind
	HasDefault bool
	Annotation string
}

// Call is a raw call expression as written. Segment is the final identifier
// of the callee, empty when the callee has none (subscripts, call results).
type Call struct {
	Name      string
	Segment   string
	Line      int
	Column    int
	Dynamic   bool
	Attribute bool // callee is an attribute access
}

const maxCallNameLen = 80

// Dotted reports whether the call goes through an attribute access.
func (c Call) Dotted() bool {
	return c.Attribute
}

// DisplayName is Name shortened for reports and the external bucket.
func (c Call) DisplayName() string {
	if len(c.Name) <= maxCallNameLen {
		return c.Name
	}
	return c.Name[:maxCallNameLen-3] + "..."
}

// Head returns the first segment of a static dotted call.
func (c Call) Head() string {
	head, _, _ := strings.Cut(c.Name, ".")
	return head
}

type Import struct {
	Module   string
	Alias    string
	Names    []ImportedName // for "from X import Y as Z"
	Relative bool
	Level    int // leading dots of a relative import
	Line     int
}

type ImportedName struct {
	Name  string
	Alias string
}

// Bound returns the local name the imported item is reachable under.
func (n ImportedName) Bound() string {
	if n.Alias != "" {
		return n.Alias
	}
	return n.Name
}

// Path renders the import target with its relative dots.
func (i Import) Path() string {
	return strings.Repeat(".", i.Level) + i.Module
}

type LineSpan struct {
	Start int
	End   int
}

// ModuleName derives the dotted module name of a unit path:
// "pkg/mod.py" -> "pkg.mod", "pkg/__init__.py" -> "pkg".
func ModuleName(unitName string) string {
	name := strings.ReplaceAll(unitName, "\\", "/")
	name = strings.TrimPrefix(path.Clean(name), "./")
	name = strings.TrimSuffix(name, ".py")
	name = strings.TrimSuffix(name, "/__init__")
	if name == "__init__" {
		return ""
	}
	return strings.ReplaceAll(name, "/", ".")
}
