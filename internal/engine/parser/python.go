package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type PythonExtractor struct {
	engine *ExtractorEngine
}

func NewPythonExtractor() *PythonExtractor {
	e := &PythonExtractor{}
	e.engine = NewExtractorEngine(map[string]NodeHandler{
		"import_statement":      e.extractImport,
		"import_from_statement": e.extractFromImport,
		"function_definition":   e.extractFunction,
		"class_definition":      e.extractClass,
		"if_statement":          e.extractMainGuard,
		"call":                  e.extractCall,
	})
	return e
}

func (e *PythonExtractor) Extract(root *sitter.Node, source []byte, unitName string) *Unit {
	unit := &Unit{
		Name:   unitName,
		Module: ModuleName(unitName),
		Source: string(source),
	}
	ctx := newExtractionContext(e.engine, source, unit)
	ctx.Walk(root)
	return unit
}

func (e *PythonExtractor) extractImport(ctx *ExtractionContext, node *sitter.Node) bool {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		switch child.Kind() {
		case "dotted_name", "identifier":
			ctx.Unit.Imports = append(ctx.Unit.Imports, Import{
				Module: ctx.Text(child),
				Line:   ctx.Line(child),
			})
		case "aliased_import":
			ctx.Unit.Imports = append(ctx.Unit.Imports, Import{
				Module: ctx.Text(child.ChildByFieldName("name")),
				Alias:  ctx.Text(child.ChildByFieldName("alias")),
				Line:   ctx.Line(child),
			})
		}
	}
	return true
}

func (e *PythonExtractor) extractFromImport(ctx *ExtractionContext, node *sitter.Node) bool {
	imp := Import{Line: ctx.Line(node)}

	moduleNode := node.ChildByFieldName("module_name")
	if moduleNode != nil {
		if moduleNode.Kind() == "relative_import" {
			text := ctx.Text(moduleNode)
			imp.Relative = true
			imp.Module = strings.TrimLeft(text, ".")
			imp.Level = len(text) - len(imp.Module)
		} else {
			imp.Module = ctx.Text(moduleNode)
		}
	}

	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if moduleNode != nil && child.StartByte() == moduleNode.StartByte() {
			continue
		}
		switch child.Kind() {
		case "dotted_name", "identifier":
			imp.Names = append(imp.Names, ImportedName{Name: ctx.Text(child)})
		case "aliased_import":
			imp.Names = append(imp.Names, ImportedName{
				Name:  ctx.Text(child.ChildByFieldName("name")),
				Alias: ctx.Text(child.ChildByFieldName("alias")),
			})
		case "wildcard_import":
			imp.Names = append(imp.Names, ImportedName{Name: "*"})
		}
	}

	ctx.Unit.Imports = append(ctx.Unit.Imports, imp)
	return true
}

func (e *PythonExtractor) extractFunction(ctx *ExtractionContext, node *sitter.Node) bool {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return false
	}
	name := ctx.Text(nameNode)
	params := node.ChildByFieldName("parameters")
	body := node.ChildByFieldName("body")

	fn := &Function{
		Name:          name,
		QualifiedName: ctx.qualify(name),
		Kind:          ctx.definitionKind(),
		Class:         ctx.classPrefix(),
		Params:        e.pythonParameters(ctx, params),
		Docstring:     e.pythonDocstring(ctx, body),
		Decorators:    e.pythonDecorators(ctx, node),
		Span: LineSpan{
			Start: int(node.StartPosition().Row) + 1,
			End:   int(node.EndPosition().Row) + 1,
		},
		IsAsync:     node.ChildCount() > 0 && node.Child(0).Kind() == "async",
		MainGuarded: ctx.inMainGuard && ctx.atModuleScope(),
	}
	ctx.addFunction(fn)

	// Defaults and annotations are evaluated in the enclosing scope.
	ctx.Walk(params)
	ctx.Walk(node.ChildByFieldName("return_type"))

	guarded := ctx.inMainGuard
	ctx.inMainGuard = false
	ctx.push(scope{kind: scopeFunction, prefix: fn.QualifiedName, fn: fn})
	ctx.Walk(body)
	ctx.pop()
	ctx.inMainGuard = guarded
	return true
}

func (e *PythonExtractor) extractClass(ctx *ExtractionContext, node *sitter.Node) bool {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return false
	}

	// Base classes are evaluated in the enclosing scope.
	ctx.Walk(node.ChildByFieldName("superclasses"))

	prefix := ctx.Text(nameNode)
	if n := len(ctx.scopes); n > 0 {
		prefix = ctx.scopes[n-1].prefix + "." + prefix
	}
	ctx.push(scope{kind: scopeClass, prefix: prefix})
	ctx.Walk(node.ChildByFieldName("body"))
	ctx.pop()
	return true
}

// extractMainGuard handles `if __name__ == "__main__":` at module level.
func (e *PythonExtractor) extractMainGuard(ctx *ExtractionContext, node *sitter.Node) bool {
	if !ctx.atModuleScope() || ctx.inMainGuard || !e.isMainGuard(ctx, node.ChildByFieldName("condition")) {
		return false
	}

	ctx.inMainGuard = true
	ctx.Walk(node.ChildByFieldName("consequence"))
	ctx.inMainGuard = false

	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child.Kind() == "elif_clause" || child.Kind() == "else_clause" {
			ctx.Walk(child)
		}
	}
	return true
}

func (e *PythonExtractor) isMainGuard(ctx *ExtractionContext, cond *sitter.Node) bool {
	if cond == nil || cond.Kind() != "comparison_operator" || cond.NamedChildCount() != 2 {
		return false
	}
	hasEq := false
	for i := uint(0); i < cond.ChildCount(); i++ {
		if cond.Child(i).Kind() == "==" {
			hasEq = true
		}
	}
	if !hasEq {
		return false
	}

	left, right := cond.NamedChild(0), cond.NamedChild(1)
	if left.Kind() == "string" {
		left, right = right, left
	}
	return left.Kind() == "identifier" && ctx.Text(left) == "__name__" &&
		right.Kind() == "string" && stringLiteralValue(ctx.Text(right)) == "__main__"
}

func (e *PythonExtractor) extractCall(ctx *ExtractionContext, node *sitter.Node) bool {
	target := node.ChildByFieldName("function")
	if target == nil {
		return false
	}

	call := Call{
		Line:   ctx.Line(node),
		Column: ctx.Column(node),
	}
	switch target.Kind() {
	case "identifier":
		call.Name = ctx.Text(target)
		call.Segment = call.Name
	case "attribute":
		call.Name = compactText(ctx.Text(target))
		call.Segment = ctx.Text(target.ChildByFieldName("attribute"))
		call.Dynamic = !isDottedChain(target)
		call.Attribute = true
	default:
		call.Name = compactText(ctx.Text(target))
		call.Dynamic = true
	}
	ctx.recordCall(call)
	return false
}

func isDottedChain(node *sitter.Node) bool {
	switch node.Kind() {
	case "identifier":
		return true
	case "attribute":
		return isDottedChain(node.ChildByFieldName("object"))
	}
	return false
}

func (e *PythonExtractor) pythonParameters(ctx *ExtractionContext, params *sitter.Node) []Param {
	if params == nil {
		return nil
	}

	var out []Param
	keywordOnly := false
	positionalKind := func() ParamKind {
		if keywordOnly {
			return ParamKeywordOnly
		}
		return ParamPositional
	}

	for i := uint(0); i < params.ChildCount(); i++ {
		child := params.Child(i)
		switch child.Kind() {
		case "identifier":
			out = append(out, Param{Name: ctx.Text(child), Kind: positionalKind()})
		case "typed_parameter":
			p := e.splatParam(ctx, child.NamedChild(0), positionalKind())
			p.Annotation = compactSpaces(ctx.Text(child.ChildByFieldName("type")))
			if p.Kind == ParamVarPositional {
				keywordOnly = true
			}
			out = append(out, p)
		case "default_parameter", "typed_default_parameter":
			out = append(out, Param{
				Name:       ctx.Text(child.ChildByFieldName("name")),
				Kind:       positionalKind(),
				HasDefault: true,
				Annotation: compactSpaces(ctx.Text(child.ChildByFieldName("type"))),
			})
		case "list_splat_pattern", "dictionary_splat_pattern":
			p := e.splatParam(ctx, child, positionalKind())
			if p.Kind == ParamVarPositional {
				keywordOnly = true
			}
			out = append(out, p)
		case "keyword_separator", "*":
			keywordOnly = true
		case "positional_separator", "/":
			for j := range out {
				if out[j].Kind == ParamPositional {
					out[j].Kind = ParamPositionalOnly
				}
			}
		}
	}
	return out
}

func (e *PythonExtractor) splatParam(ctx *ExtractionContext, node *sitter.Node, fallback ParamKind) Param {
	if node == nil {
		return Param{Kind: fallback}
	}
	switch node.Kind() {
	case "list_splat_pattern":
		return Param{Name: ctx.Text(node.NamedChild(0)), Kind: ParamVarPositional}
	case "dictionary_splat_pattern":
		return Param{Name: ctx.Text(node.NamedChild(0)), Kind: ParamVarKeyword}
	}
	return Param{Name: ctx.Text(node), Kind: fallback}
}

// pythonDocstring returns the cleaned first statement of body when it is a
// plain string literal.
func (e *PythonExtractor) pythonDocstring(ctx *ExtractionContext, body *sitter.Node) string {
	if body == nil {
		return ""
	}
	for i := uint(0); i < body.NamedChildCount(); i++ {
		stmt := body.NamedChild(i)
		if stmt.Kind() == "comment" {
			continue
		}
		if stmt.Kind() != "expression_statement" || stmt.NamedChildCount() != 1 {
			return ""
		}
		expr := stmt.NamedChild(0)
		switch expr.Kind() {
		case "string":
			return docstringFromLiterals(ctx.Text(expr))
		case "concatenated_string":
			parts := make([]string, 0, expr.NamedChildCount())
			for j := uint(0); j < expr.NamedChildCount(); j++ {
				if part := expr.NamedChild(j); part.Kind() == "string" {
					parts = append(parts, ctx.Text(part))
				}
			}
			return docstringFromLiterals(parts...)
		}
		return ""
	}
	return ""
}

// pythonDecorators returns decorator expressions without call arguments.
func (e *PythonExtractor) pythonDecorators(ctx *ExtractionContext, node *sitter.Node) []string {
	parent := node.Parent()
	if parent == nil || parent.Kind() != "decorated_definition" {
		return nil
	}

	decorators := make([]string, 0, parent.ChildCount())
	for i := uint(0); i < parent.NamedChildCount(); i++ {
		child := parent.NamedChild(i)
		if child.Kind() != "decorator" || child.NamedChildCount() == 0 {
			continue
		}
		expr := child.NamedChild(0)
		if expr.Kind() == "call" {
			expr = expr.ChildByFieldName("function")
		}
		if dec := compactText(ctx.Text(expr)); dec != "" {
			decorators = append(decorators, dec)
		}
	}
	return decorators
}

func compactSpaces(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
