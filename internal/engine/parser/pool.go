package parser

import (
	"sync"
	"sync/atomic"

	"pyinsight/internal/shared/observability"

	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// PythonLanguage returns the tree-sitter Python grammar.
func PythonLanguage() *sitter.Language {
	return sitter.NewLanguage(python.Language())
}

// ParserPool hands tree-sitter parsers to the parse workers and takes them
// back reset. Leases are reported on the parsers-in-use gauge.
//
//	sp := pool.Get()
//	defer pool.Put(sp)
type ParserPool struct {
	lang   *sitter.Language
	pool   sync.Pool
	inUse  atomic.Int64
	create atomic.Int64
}

// NewParserPool creates a pool for lang, which must outlive the pool.
func NewParserPool(lang *sitter.Language) *ParserPool {
	p := &ParserPool{lang: lang}
	p.pool.New = func() any {
		p.create.Add(1)
		observability.ParsersCreatedTotal.Inc()
		sp := sitter.NewParser()
		_ = sp.SetLanguage(lang)
		return sp
	}
	return p
}

// Get leases a parser set to the pool's language.
func (p *ParserPool) Get() *sitter.Parser {
	sp := p.pool.Get().(*sitter.Parser)
	_ = sp.SetLanguage(p.lang)
	p.inUse.Add(1)
	observability.ParsersInUse.Inc()
	return sp
}

// Put resets sp and returns it. sp must not be used afterwards.
func (p *ParserPool) Put(sp *sitter.Parser) {
	if sp == nil {
		return
	}
	p.inUse.Add(-1)
	observability.ParsersInUse.Dec()
	sp.Reset()
	p.pool.Put(sp)
}

// InUse returns the number of parsers currently leased.
func (p *ParserPool) InUse() int {
	return int(p.inUse.Load())
}

// Created returns how many parsers the pool has allocated.
func (p *ParserPool) Created() int {
	return int(p.create.Load())
}
