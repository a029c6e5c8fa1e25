package parser

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// NodeHandler processes a node for the extractor.
// Returns true if the handler has processed children and the walker should stop.
type NodeHandler func(ctx *ExtractionContext, node *sitter.Node) bool

type scopeKind int

const (
	scopeClass scopeKind = iota
	scopeFunction
)

type scope struct {
	kind   scopeKind
	prefix string // qualified path of this scope
	fn     *Function
}

// ExtractionContext carries the state of one extraction: the unit being
// built and the lexical scope stack.
type ExtractionContext struct {
	Source []byte
	Unit   *Unit

	engine      *ExtractorEngine
	scopes      []scope
	seen        map[string]int
	inMainGuard bool
}

func newExtractionContext(engine *ExtractorEngine, source []byte, unit *Unit) *ExtractionContext {
	return &ExtractionContext{
		Source: source,
		Unit:   unit,
		engine: engine,
		seen:   make(map[string]int),
	}
}

// ExtractorEngine walks the syntax tree and dispatches node handlers by kind.
type ExtractorEngine struct {
	handlers map[string]NodeHandler
}

func NewExtractorEngine(handlers map[string]NodeHandler) *ExtractorEngine {
	return &ExtractorEngine{handlers: handlers}
}

func (e *ExtractorEngine) Walk(ctx *ExtractionContext, node *sitter.Node) {
	if node == nil {
		return
	}

	stop := false
	if handler, ok := e.handlers[node.Kind()]; ok {
		stop = handler(ctx, node)
	}
	if !stop {
		e.WalkChildren(ctx, node)
	}
}

func (e *ExtractorEngine) WalkChildren(ctx *ExtractionContext, node *sitter.Node) {
	if node == nil {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		e.Walk(ctx, node.Child(i))
	}
}

// Walk visits node with the context's engine. Handlers use it to descend
// after adjusting scope.
func (c *ExtractionContext) Walk(node *sitter.Node) {
	c.engine.Walk(c, node)
}

func (c *ExtractionContext) WalkChildren(node *sitter.Node) {
	c.engine.WalkChildren(c, node)
}

func (c *ExtractionContext) Text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(c.Source[node.StartByte():node.EndByte()])
}

func (c *ExtractionContext) Line(node *sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

func (c *ExtractionContext) Column(node *sitter.Node) int {
	return int(node.StartPosition().Column) + 1
}

func (c *ExtractionContext) push(s scope) {
	c.scopes = append(c.scopes, s)
}

func (c *ExtractionContext) pop() {
	c.scopes = c.scopes[:len(c.scopes)-1]
}

func (c *ExtractionContext) atModuleScope() bool {
	return len(c.scopes) == 0
}

// qualify returns a unit-unique qualified name for a definition in the
// current scope. Repeated definitions get "#2", "#3" and so on.
func (c *ExtractionContext) qualify(name string) string {
	q := name
	if n := len(c.scopes); n > 0 {
		q = c.scopes[n-1].prefix + "." + name
	}
	c.seen[q]++
	if count := c.seen[q]; count > 1 {
		return fmt.Sprintf("%s#%d", q, count)
	}
	return q
}

func (c *ExtractionContext) classPrefix() string {
	if n := len(c.scopes); n > 0 && c.scopes[n-1].kind == scopeClass {
		return c.scopes[n-1].prefix
	}
	return ""
}

// currentFunction returns the innermost enclosing function, looking through
// class bodies.
func (c *ExtractionContext) currentFunction() *Function {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if c.scopes[i].kind == scopeFunction {
			return c.scopes[i].fn
		}
	}
	return nil
}

func (c *ExtractionContext) definitionKind() FunctionKind {
	if c.classPrefix() != "" {
		return KindMethod
	}
	if c.currentFunction() != nil {
		return KindNested
	}
	return KindFunction
}

func (c *ExtractionContext) addFunction(fn *Function) {
	fn.unit = c.Unit
	fn.Parent = c.currentFunction()
	if fn.Parent != nil {
		fn.Parent.Children = append(fn.Parent.Children, fn)
	} else {
		c.Unit.Roots = append(c.Unit.Roots, fn)
	}
	c.Unit.functions = append(c.Unit.functions, fn)
}

func (c *ExtractionContext) recordCall(call Call) {
	if fn := c.currentFunction(); fn != nil {
		fn.Calls = append(fn.Calls, call)
		return
	}
	if c.inMainGuard && c.classPrefix() == "" {
		c.Unit.MainGuardCalls = append(c.Unit.MainGuardCalls, call)
	}
}

func compactText(value string) string {
	return strings.Join(strings.Fields(value), "")
}
