package main

import (
	"bufio"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Annotation is the metadata block written above a test function.
type Annotation struct {
	Name       string `json:"name"`
	Package    string `json:"package"`
	Purpose    string `json:"purpose,omitempty"`
	Scope      string `json:"scope,omitempty"`
	Security   string `json:"security,omitempty"`
	Expected   string `json:"expected,omitempty"`
	TestCaseID string `json:"test_case_id,omitempty"`
	Category   string `json:"category"`
	Type       string `json:"type"`
}

var annotationFields = []struct {
	prefix string
	set    func(a *Annotation, v string)
}{
	{"TestPurpose:", func(a *Annotation, v string) { a.Purpose = v }},
	{"Scope:", func(a *Annotation, v string) { a.Scope = v }},
	{"Security:", func(a *Annotation, v string) { a.Security = v }},
	{"Expected:", func(a *Annotation, v string) { a.Expected = v }},
	{"Test Case ID:", func(a *Annotation, v string) { a.TestCaseID = v }},
}

func modulePath(root string) (string, error) {
	f, err := os.Open(filepath.Join(root, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("read go.mod: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(sc.Text()), "module "); ok {
			return strings.TrimSpace(rest), nil
		}
	}
	return "", fmt.Errorf("no module directive in go.mod")
}

// scanAnnotations parses every _test.go file below root and returns the
// annotations keyed by "<import path>.<TestName>".
func scanAnnotations(root, module string) (map[string]Annotation, error) {
	out := make(map[string]Annotation)
	fset := token.NewFileSet()

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, "_test.go") {
			return nil
		}

		file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			return nil
		}

		rel, _ := filepath.Rel(root, filepath.Dir(path))
		pkg := importPath(module, rel)

		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Recv != nil || !strings.HasPrefix(fn.Name.Name, "Test") || fn.Name.Name == "TestMain" {
				continue
			}
			a := Annotation{
				Name:     fn.Name.Name,
				Package:  pkg,
				Type:     testType(fn.Name.Name, rel),
				Category: category(rel),
			}
			parseDoc(fn.Doc, &a)
			out[pkg+"."+fn.Name.Name] = a
		}
		return nil
	})
	return out, err
}

func parseDoc(doc *ast.CommentGroup, a *Annotation) {
	if doc == nil {
		return
	}
	for _, c := range doc.List {
		text := strings.TrimSpace(strings.TrimPrefix(c.Text, "//"))
		for _, f := range annotationFields {
			if v, ok := strings.CutPrefix(text, f.prefix); ok {
				f.set(a, strings.TrimSpace(v))
				break
			}
		}
	}
}

func importPath(module, rel string) string {
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == "" {
		return module
	}
	return module + "/" + rel
}

func testType(name, rel string) string {
	switch {
	case strings.HasPrefix(name, "TestSystem"):
		return "ST"
	case strings.Contains(filepath.ToSlash(rel), "store/postgres"):
		return "IT"
	}
	return "UT"
}

var categoryByDir = []struct {
	dir, name string
}{
	{"internal/billing", "Billing"},
	{"internal/gateway", "Gateway"},
	{"internal/authz", "AuthZ"},
	{"internal/identity", "AuthN"},
	{"internal/tenant", "Tenant"},
	{"internal/store", "Storage"},
	{"internal/audit", "Audit"},
	{"internal/transport/http", "API"},
	{"internal/config", "Config"},
	{"cmd/server", "System"},
}

func category(rel string) string {
	rel = filepath.ToSlash(rel)
	for _, c := range categoryByDir {
		if rel == c.dir || strings.HasPrefix(rel, c.dir+"/") {
			return c.name
		}
	}
	return "Other"
}
