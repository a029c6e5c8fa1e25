package resolver

import (
	"strconv"
	"strings"

	"pyinsight/internal/engine/parser"
)

// symbolTable indexes the functions of one unit.
type symbolTable struct {
	unit        *parser.Unit
	byQualified map[string][]*parser.Function // duplicates ("#2") share the base key
	byName      map[string][]*parser.Function
	topLevel    map[string][]*parser.Function
	bindings    map[string]binding
}

// binding is a local name introduced by an import. name is empty for
// `import mod` forms.
type binding struct {
	module string
	name   string
}

func newSymbolTable(unit *parser.Unit) *symbolTable {
	t := &symbolTable{
		unit:        unit,
		byQualified: make(map[string][]*parser.Function),
		byName:      make(map[string][]*parser.Function),
		topLevel:    make(map[string][]*parser.Function),
		bindings:    make(map[string]binding),
	}
	for _, fn := range unit.Functions() {
		base := baseQualifiedName(fn.QualifiedName)
		t.byQualified[base] = append(t.byQualified[base], fn)
		t.byName[fn.Name] = append(t.byName[fn.Name], fn)
		if fn.AtModuleScope() {
			t.topLevel[fn.Name] = append(t.topLevel[fn.Name], fn)
		}
	}
	for _, imp := range unit.Imports {
		module := absoluteModule(unit, imp)
		if len(imp.Names) == 0 {
			if imp.Alias != "" {
				t.bindings[imp.Alias] = binding{module: module}
				continue
			}
			// `import a.b` binds `a`.
			head, _, _ := strings.Cut(module, ".")
			t.bindings[head] = binding{module: head}
			continue
		}
		for _, name := range imp.Names {
			if name.Name == "*" {
				continue
			}
			t.bindings[name.Bound()] = binding{module: module, name: name.Name}
		}
	}
	return t
}

// lookup returns the functions whose qualified name is q, ignoring
// duplicate suffixes.
func (t *symbolTable) lookup(q string) []*parser.Function {
	return t.byQualified[q]
}

// suffixMatch returns functions whose qualified name equals name or ends
// with "."+name.
func (t *symbolTable) suffixMatch(name string) []*parser.Function {
	var out []*parser.Function
	for _, fn := range t.unit.Functions() {
		q := baseQualifiedName(fn.QualifiedName)
		if q == name || strings.HasSuffix(q, "."+name) {
			out = append(out, fn)
		}
	}
	return out
}

func baseQualifiedName(q string) string {
	i := strings.LastIndexByte(q, '#')
	if i < 0 {
		return q
	}
	if _, err := strconv.Atoi(q[i+1:]); err != nil {
		return q
	}
	return q[:i]
}

// absoluteModule turns a possibly relative import into a dotted module path
// anchored at the unit's package.
func absoluteModule(unit *parser.Unit, imp parser.Import) string {
	if !imp.Relative {
		return imp.Module
	}
	pkg := strings.Split(unit.Module, ".")
	if !isPackageInit(unit) && len(pkg) > 0 {
		pkg = pkg[:len(pkg)-1]
	}
	up := imp.Level - 1
	if up > len(pkg) {
		up = len(pkg)
	}
	pkg = pkg[:len(pkg)-up]

	parts := make([]string, 0, len(pkg)+1)
	for _, p := range pkg {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if imp.Module != "" {
		parts = append(parts, imp.Module)
	}
	return strings.Join(parts, ".")
}

func isPackageInit(unit *parser.Unit) bool {
	name := strings.ReplaceAll(unit.Name, "\\", "/")
	return name == "__init__.py" || strings.HasSuffix(name, "/__init__.py")
}
