package parser

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParserPool_GetPut(t *testing.T) {
	pool := NewParserPool(PythonLanguage())

	sp := pool.Get()
	require.NotNil(t, sp)
	assert.Equal(t, 1, pool.InUse())
	assert.Equal(t, 1, pool.Created())

	pool.Put(sp)
	assert.Equal(t, 0, pool.InUse())
}

func TestParserPool_PutNil(t *testing.T) {
	pool := NewParserPool(PythonLanguage())
	pool.Put(nil)
}

func TestParserPool_ParsesValidPython(t *testing.T) {
	pool := NewParserPool(PythonLanguage())

	sp := pool.Get()
	defer pool.Put(sp)

	tree := sp.Parse([]byte("def main():\n    return 1\n"), nil)
	if tree == nil {
		t.Fatal("expected non-nil parse tree for valid Python source")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.HasError() {
		t.Fatalf("expected error-free root node")
	}
	if root.Kind() != "module" {
		t.Fatalf("expected module root, got %q", root.Kind())
	}
}

func TestParserPool_ConcurrentAccess(t *testing.T) {
	pool := NewParserPool(PythonLanguage())

	const goroutines = 20
	const iters = 50

	var wg sync.WaitGroup
	wg.Add(goroutines)

	src := []byte("def run():\n    pass\n")
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iters; j++ {
				sp := pool.Get()
				tree := sp.Parse(src, nil)
				if tree == nil {
					t.Errorf("expected non-nil parse tree")
				} else {
					tree.Close()
				}
				pool.Put(sp)
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 0, pool.InUse())
	assert.LessOrEqual(t, pool.Created(), goroutines*iters)
}

func TestParserPool_LanguageSetAfterReset(t *testing.T) {
	pool := NewParserPool(PythonLanguage())

	sp := pool.Get()
	sp.Reset()
	pool.Put(sp)

	sp2 := pool.Get()
	defer pool.Put(sp2)

	tree := sp2.Parse([]byte("def ok():\n    pass\n"), nil)
	if tree == nil {
		t.Fatal("parser should still parse correctly after Get")
	}
	defer tree.Close()
}
