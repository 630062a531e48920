package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const moduleName = "voteboard"

// sharedKernel is the only runtime package a service's ports may depend on.
const sharedKernel = moduleName + "/internal/shared"

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

func (v violation) String() string {
	return fmt.Sprintf("%s:%d imports %q (%s)", v.File, v.Line, v.Import, v.Rule)
}

// layerPolicy describes what one layer of a service may import. Allowed
// entries are relative to the service root; the standard library is always
// allowed.
type layerPolicy struct {
	allowed        []string
	allowShared    bool
	forbidAdapters bool
	forbidRuntime  bool
}

var layerPolicies = map[string]layerPolicy{
	"domain": {
		allowed:        []string{"domain"},
		forbidAdapters: true,
		forbidRuntime:  true,
	},
	"application": {
		allowed:        []string{"application", "domain", "ports"},
		forbidAdapters: true,
		forbidRuntime:  true,
	},
	"ports": {
		allowed:     []string{"domain"},
		allowShared: true,
	},
}

func main() {
	root := "contexts"
	if len(os.Args) > 1 {
		root = os.Args[1]
	}
	violations, err := collectViolations(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "boundary check failed: %v\n", err)
		os.Exit(2)
	}
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	sort.Slice(violations, func(i, j int) bool {
		return violations[i].String() < violations[j].String()
	})
	fmt.Printf("%d boundary violation(s):\n", len(violations))
	for _, v := range violations {
		fmt.Println("- " + v.String())
	}
	os.Exit(1)
}

// collectViolations walks root, which must be a contexts/ directory laid out
// as <context>/<service>/<layer>/... Test files are skipped.
func collectViolations(root string) ([]violation, error) {
	var violations []violation

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) < 4 {
			return nil
		}

		serviceRoot := fmt.Sprintf("%s/contexts/%s/%s", moduleName, parts[0], parts[1])
		fileViolations, err := checkFile(path, "contexts/"+filepath.ToSlash(rel), parts[2], serviceRoot)
		if err != nil {
			return err
		}
		violations = append(violations, fileViolations...)
		return nil
	})

	return violations, err
}

func checkFile(path string, displayPath string, layer string, serviceRoot string) ([]violation, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return []violation{{File: displayPath, Line: 1, Rule: "file must parse"}}, nil
	}

	policy, scoped := layerPolicies[layer]
	var violations []violation
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, `"`)
		report := func(rule string) {
			violations = append(violations, violation{
				File:   displayPath,
				Line:   fset.Position(imp.Pos()).Line,
				Import: importPath,
				Rule:   rule,
			})
		}

		if strings.HasPrefix(importPath, moduleName+"/contexts/") && !hasPrefix(importPath, serviceRoot) {
			report("cross-module imports are forbidden")
		}
		if !scoped {
			continue
		}
		if policy.forbidAdapters && strings.Contains(importPath, "/adapters/") {
			report(layer + " must not import adapters")
		}
		if policy.forbidRuntime && isRuntimeInfrastructure(importPath) {
			report(layer + " must not import runtime infrastructure")
		}
		if !policy.permits(importPath, serviceRoot) {
			report(layer + " import is outside explicit allowlist")
		}
	}
	return violations, nil
}

func (p layerPolicy) permits(importPath string, serviceRoot string) bool {
	if isStdlib(importPath) {
		return true
	}
	if p.allowShared && hasPrefix(importPath, sharedKernel) {
		return true
	}
	for _, rel := range p.allowed {
		if hasPrefix(importPath, serviceRoot+"/"+rel) {
			return true
		}
	}
	return false
}

func isRuntimeInfrastructure(importPath string) bool {
	if hasPrefix(importPath, sharedKernel) {
		return false
	}
	return hasPrefix(importPath, moduleName+"/internal") || hasPrefix(importPath, moduleName+"/cmd")
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// isStdlib treats any path whose first element has no dot as standard
// library.
func isStdlib(importPath string) bool {
	if hasPrefix(importPath, moduleName) {
		return false
	}
	first, _, _ := strings.Cut(importPath, "/")
	return !strings.Contains(first, ".")
}
