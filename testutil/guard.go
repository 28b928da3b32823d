// Package testutil provides helpers for enforcing package boundary rules
// from ordinary unit tests.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// AssertNoDirectImports scans the non-test .go files in dir and fails if any
// import path satisfies the forbidden predicate. Build tags are ignored.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	viols, err := directImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	failIfDirectViolations(t, reason, viols)
}

// InternalImportForbidden matches any import path containing /internal/.
func InternalImportForbidden(path string) bool {
	return strings.Contains(path, "/internal/")
}

// ModuleImportForbidden returns a predicate matching packages of the module
// rooted at modulePath whose relative path starts with one of the prefixes.
func ModuleImportForbidden(modulePath string, prefixes ...string) func(string) bool {
	return func(path string) bool {
		rel, ok := strings.CutPrefix(path, modulePath+"/")
		if !ok {
			return false
		}
		for _, p := range prefixes {
			if rel == p || strings.HasPrefix(rel, p+"/") {
				return true
			}
		}
		return false
	}
}

// ImportsOf returns the sorted, de-duplicated import paths of the non-test
// .go files in dir.
func ImportsOf(dir string) ([]string, error) {
	seen := map[string]struct{}{}
	if _, err := directImportViolations(dir, func(p string) bool {
		seen[p] = struct{}{}
		return false
	}); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func directImportViolations(dir string, forbidden func(importPath string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var viols []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		path := filepath.Join(dir, name)
		fileAst, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range fileAst.Imports {
			ip := strings.Trim(imp.Path.Value, "\"")
			if forbidden(ip) {
				viols = append(viols, ip+" (in "+name+")")
			}
		}
	}
	return viols, nil
}

type fatalLogger interface {
	Fatalf(format string, args ...any)
}

func failIfDirectViolations(t fatalLogger, reason string, viols []string) {
	if len(viols) > 0 {
		t.Fatalf("forbidden direct imports detected (%s):\n%s", reason, strings.Join(viols, "\n"))
	}
}
