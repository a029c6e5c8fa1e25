package parser

import (
	"bytes"
	"context"
	"fmt"
	"unicode/utf8"

	"pyinsight/internal/core/errors"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parser turns Python source into Units. It holds no per-unit state and may
// be shared by concurrent workers.
type Parser struct {
	pool      *ParserPool
	extractor *PythonExtractor
}

func NewParser() *Parser {
	return &Parser{
		pool:      NewParserPool(PythonLanguage()),
		extractor: NewPythonExtractor(),
	}
}

// ParseUnit parses one unit. Syntactically invalid source yields an
// *errors.ParseError positioned at the first error node.
func (p *Parser) ParseUnit(ctx context.Context, name string, source []byte) (*Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	source = bytes.TrimPrefix(source, utf8BOM)
	if !utf8.Valid(source) {
		return nil, errors.NewParseError(name, 1, 1, "source is not valid UTF-8")
	}

	sp := p.pool.Get()
	defer p.pool.Put(sp)

	tree := sp.Parse(source, nil)
	if tree == nil {
		return nil, errors.AddContext(errors.New(errors.CodeInternal, "parse failed"), errors.CtxUnit, name)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, syntaxError(name, root)
	}
	if node, reason := legacyStatement(root); node != nil {
		pos := node.StartPosition()
		return nil, errors.NewParseError(name, int(pos.Row)+1, int(pos.Column)+1, reason)
	}
	return p.extractor.Extract(root, source, name), nil
}

func syntaxError(unit string, root *sitter.Node) error {
	node := firstErrorNode(root)
	if node == nil {
		node = root
	}
	reason := "invalid syntax"
	if node.IsMissing() {
		reason = fmt.Sprintf("missing %q", node.Kind())
	}
	pos := node.StartPosition()
	return errors.NewParseError(unit, int(pos.Row)+1, int(pos.Column)+1, reason)
}

// firstErrorNode returns the first ERROR or MISSING node in document order.
func firstErrorNode(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.IsError() || node.IsMissing() {
		return node
	}
	if !node.HasError() {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if found := firstErrorNode(node.Child(i)); found != nil {
			return found
		}
	}
	return nil
}

// The grammar still accepts Python 2 print and exec statements, which are
// syntax errors for Python 3.
var legacyStatements = map[string]string{
	"print_statement": "python 2 print statement",
	"exec_statement":  "python 2 exec statement",
}

// legacyStatement returns the first Python 2 only statement in document
// order and the reason it is rejected.
func legacyStatement(node *sitter.Node) (*sitter.Node, string) {
	if node == nil {
		return nil, ""
	}
	if reason, ok := legacyStatements[node.Kind()]; ok {
		return node, reason
	}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		if found, reason := legacyStatement(node.NamedChild(i)); found != nil {
			return found, reason
		}
	}
	return nil, ""
}
