package app

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pyinsight/internal/core/config"
	"pyinsight/internal/core/errors"
	"pyinsight/internal/core/ports"
	"pyinsight/internal/shared/util"

	"github.com/gobwas/glob"
)

const pythonExt = ".py"

var testFilePatterns = []string{"test_*.py", "*_test.py", "conftest.py"}

// Loader turns filesystem paths and uploads into analysis sources.
type Loader struct {
	includeTests bool
	maxFileBytes int64

	dirGlobs  []glob.Glob
	fileGlobs []glob.Glob
	testGlobs []glob.Glob
}

func NewLoader(cfg *config.Config) (*Loader, error) {
	dirGlobs, err := compileGlobs(cfg.Exclude.Dirs, "exclude dir")
	if err != nil {
		return nil, err
	}
	fileGlobs, err := compileGlobs(cfg.Exclude.Files, "exclude file")
	if err != nil {
		return nil, err
	}
	testGlobs, err := compileGlobs(testFilePatterns, "test file")
	if err != nil {
		return nil, err
	}
	return &Loader{
		includeTests: cfg.Analysis.IncludeTests,
		maxFileBytes: cfg.Analysis.MaxFileBytes,
		dirGlobs:     dirGlobs,
		fileGlobs:    fileGlobs,
		testGlobs:    testGlobs,
	}, nil
}

func compileGlobs(patterns []string, label string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeValidationError, fmt.Sprintf("invalid %s pattern %q", label, p))
		}
		out = append(out, g)
	}
	return out, nil
}

// LoadPath loads a single file or a whole directory.
func (l *Loader) LoadPath(ctx context.Context, path string) ([]ports.Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, statError(err, path)
	}
	if info.IsDir() {
		return l.LoadDirectory(ctx, path)
	}
	return l.LoadFile(path)
}

// LoadFile loads one .py file. The unit is named after the file's base name.
func (l *Loader) LoadFile(path string) ([]ports.Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, statError(err, path)
	}
	if info.IsDir() {
		return nil, errors.AddContext(errors.New(errors.CodeValidationError, "path is a directory, expected a .py file"), errors.CtxPath, path)
	}
	if !isPythonFile(path) {
		return nil, errors.AddContext(errors.New(errors.CodeNotSupported, "only .py files are supported"), errors.CtxPath, path)
	}
	if l.tooLarge(info.Size()) {
		return nil, errors.AddContext(errors.New(errors.CodeValidationError,
			fmt.Sprintf("file is %d bytes, limit is %d", info.Size(), l.maxFileBytes)), errors.CtxPath, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "read file"), errors.CtxPath, path)
	}
	return []ports.Source{{Name: filepath.Base(path), Text: string(data)}}, nil
}

// LoadDirectory walks root and loads every .py file that survives the
// exclude, test-file and size filters. Unit names are slash-separated paths
// relative to root, returned in sorted order.
func (l *Loader) LoadDirectory(ctx context.Context, root string) ([]ports.Source, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, statError(err, root)
	}
	if !info.IsDir() {
		return nil, errors.AddContext(errors.New(errors.CodeValidationError, "path is not a directory"), errors.CtxPath, root)
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		base := d.Name()
		if d.IsDir() {
			if path != root && matchAny(l.dirGlobs, base) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !isPythonFile(base) {
			return nil
		}
		if !l.includeTests && matchAny(l.testGlobs, base) {
			return nil
		}
		if matchAny(l.fileGlobs, base) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		if l.tooLarge(fi.Size()) {
			slog.Warn("skipping oversized file", "path", path, "bytes", fi.Size(), "limit", l.maxFileBytes)
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "walk directory"), errors.CtxPath, root)
	}

	sources := make([]ports.Source, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "read file"), errors.CtxPath, path)
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		sources = append(sources, ports.Source{Name: util.NormalizePatternPath(rel), Text: string(data)})
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Name < sources[j].Name })

	if len(sources) == 0 {
		return nil, errors.AddContext(errors.EmptyInput("no Python files found"), errors.CtxPath, root)
	}
	slog.Debug("loaded directory", "path", root, "units", len(sources))
	return sources, nil
}

// FromUpload wraps uploaded content as a single source named after the
// client-supplied file name.
func (l *Loader) FromUpload(filename string, content []byte) ([]ports.Source, error) {
	name := filepath.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return nil, errors.New(errors.CodeValidationError, "upload has no file name")
	}
	if !isPythonFile(name) {
		return nil, errors.AddContext(errors.New(errors.CodeNotSupported, "only .py files are supported"), errors.CtxPath, name)
	}
	if l.tooLarge(int64(len(content))) {
		return nil, errors.AddContext(errors.New(errors.CodeValidationError,
			fmt.Sprintf("upload is %d bytes, limit is %d", len(content), l.maxFileBytes)), errors.CtxPath, name)
	}
	return []ports.Source{{Name: name, Text: string(content)}}, nil
}

func (l *Loader) tooLarge(size int64) bool {
	return l.maxFileBytes > 0 && size > l.maxFileBytes
}

func statError(err error, path string) error {
	if os.IsNotExist(err) {
		return errors.AddContext(errors.New(errors.CodeNotFound, "path does not exist"), errors.CtxPath, path)
	}
	return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "stat path"), errors.CtxPath, path)
}

func isPythonFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), pythonExt)
}

func matchAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}
