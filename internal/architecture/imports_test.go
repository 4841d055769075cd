package architecture_test

import (
	"bufio"
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// layerRule forbids files under dir from importing any of the listed module-relative packages.
type layerRule struct {
	dir    string
	forbid []string
}

var layerRules = []layerRule{
	{dir: "internal/domain/", forbid: []string{"internal/data/", "internal/modules/", "internal/http/", "internal/jobs/", "internal/app"}},
	{dir: "internal/platform/", forbid: []string{"internal/modules/", "internal/http/", "internal/jobs/", "internal/app"}},
	// Modules may describe background tasks through jobs/runtime, but only the app runs them.
	{dir: "internal/modules/", forbid: []string{"internal/http/", "internal/jobs/worker", "internal/app"}},
	{dir: "internal/jobs/", forbid: []string{"internal/http/", "internal/modules/", "internal/app"}},
	{dir: "internal/http/", forbid: []string{"internal/app", "internal/jobs/worker"}},
}

// Only the platform clients, the database bootstrap and the composition root may touch these.
var vendorSDKs = []string{
	"github.com/anthropics/anthropic-sdk-go",
	"github.com/redis/go-redis/",
	"gorm.io/driver/",
}

var sdkOwners = []string{
	"internal/platform/",
	"internal/data/db/",
	"internal/data/repos/testutil/",
	"internal/app/",
}

type importEdge struct {
	file string
	path string
}

func TestLayerImports(t *testing.T) {
	root, module := locateModule(t)

	var bad []string
	for _, e := range internalImports(t, root) {
		rel, ok := strings.CutPrefix(e.path, module+"/")
		if !ok {
			continue
		}
		for _, rule := range layerRules {
			if !strings.HasPrefix(e.file, rule.dir) {
				continue
			}
			for _, f := range rule.forbid {
				if strings.HasPrefix(rel, f) {
					bad = append(bad, fmt.Sprintf("%s -> %s (%s may not import %s)", e.file, rel, strings.TrimSuffix(rule.dir, "/"), f))
				}
			}
		}
	}
	if len(bad) > 0 {
		t.Fatalf("layering broken:\n  %s", strings.Join(bad, "\n  "))
	}
}

func TestVendorSDKOwnership(t *testing.T) {
	root, _ := locateModule(t)

	var bad []string
	for _, e := range internalImports(t, root) {
		if hasAnyPrefix(e.file, sdkOwners) {
			continue
		}
		if hasAnyPrefix(e.path, vendorSDKs) {
			bad = append(bad, fmt.Sprintf("%s -> %s", e.file, e.path))
		}
	}
	if len(bad) > 0 {
		t.Fatalf("vendor SDKs used outside platform/app; add a platform wrapper:\n  %s", strings.Join(bad, "\n  "))
	}
}

// internalImports lists every import of every .go file under internal/, keyed by slash path from root.
func internalImports(t *testing.T, root string) []importEdge {
	t.Helper()
	fset := token.NewFileSet()
	var out []importEdge
	err := filepath.WalkDir(filepath.Join(root, "internal"), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") || d.Name() == "testdata" {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, spec := range f.Imports {
			p, err := strconv.Unquote(spec.Path.Value)
			if err != nil {
				return fmt.Errorf("%s: bad import literal %s", rel, spec.Path.Value)
			}
			out = append(out, importEdge{file: filepath.ToSlash(rel), path: p})
		}
		return nil
	})
	if err != nil {
		t.Fatalf("scan internal/: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("scan internal/: no imports found")
	}
	return out
}

// locateModule climbs from the test's directory to go.mod and returns that directory and the module line.
func locateModule(t *testing.T) (string, string) {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		module, err := moduleLine(filepath.Join(dir, "go.mod"))
		if err == nil {
			return dir, module
		}
		if !errors.Is(err, fs.ErrNotExist) {
			t.Fatalf("go.mod in %s: %v", dir, err)
		}
		up := filepath.Dir(dir)
		if up == dir {
			t.Fatal("no go.mod above the test directory")
		}
		dir = up
	}
}

func moduleLine(goMod string) (string, error) {
	f, err := os.Open(goMod)
	if err != nil {
		return "", err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if name, ok := strings.CutPrefix(strings.TrimSpace(sc.Text()), "module "); ok {
			if name = strings.Trim(strings.TrimSpace(name), `"`); name != "" {
				return name, nil
			}
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return "", errors.New("no module directive")
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
