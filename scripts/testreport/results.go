package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"time"
)

// testEvent is one line of `go test -json` output.
type testEvent struct {
	Time    time.Time `json:"Time"`
	Action  string    `json:"Action"`
	Package string    `json:"Package"`
	Test    string    `json:"Test"`
	Elapsed float64   `json:"Elapsed"`
	Output  string    `json:"Output"`
}

// Result is the final state of one test or subtest.
type Result struct {
	Name        string     `json:"name"`
	Package     string     `json:"package"`
	Status      string     `json:"status"`
	Elapsed     float64    `json:"elapsed_seconds"`
	Failure     string     `json:"failure_reason,omitempty"`
	Annotations Annotation `json:"annotations"`
}

// Summary is the report document.
type Summary struct {
	GeneratedAt time.Time `json:"generated_at"`
	Total       int       `json:"total"`
	Passed      int       `json:"passed"`
	Failed      int       `json:"failed"`
	Skipped     int       `json:"skipped"`
	Results     []Result  `json:"results"`
}

const statusNotRun = "not run"

// mergeResults folds the event stream into one Result per test. Annotated
// tests that never ran are reported as "not run"; subtests inherit their
// parent's annotations.
func mergeResults(r io.Reader, meta map[string]Annotation, module string) ([]Result, error) {
	states := make(map[string]*Result, len(meta))
	for key, a := range meta {
		states[key] = &Result{Name: a.Name, Package: a.Package, Status: statusNotRun, Annotations: a}
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var ev testEvent
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil || ev.Test == "" {
			continue
		}

		key := ev.Package + "." + ev.Test
		res, ok := states[key]
		if !ok {
			a := Annotation{Name: ev.Test, Package: ev.Package, Type: "UT", Category: category(strings.TrimPrefix(ev.Package, module+"/"))}
			if parent, sub, found := strings.Cut(ev.Test, "/"); found {
				if pm, ok := meta[ev.Package+"."+parent]; ok {
					a = pm
					a.Name = ev.Test
					a.Purpose = strings.TrimSpace(pm.Purpose + " (" + sub + ")")
				}
			}
			res = &Result{Name: ev.Test, Package: ev.Package, Annotations: a}
			states[key] = res
		}

		switch ev.Action {
		case "pass", "fail":
			res.Status = ev.Action
			res.Elapsed = ev.Elapsed
		case "skip":
			res.Status = "skip"
		case "output":
			if res.Status == "" || res.Status == "fail" || res.Status == statusNotRun {
				res.Failure += ev.Output
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read test output: %w", err)
	}

	list := make([]Result, 0, len(states))
	for _, v := range states {
		if v.Status != "fail" {
			v.Failure = ""
		}
		list = append(list, *v)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Package != list[j].Package {
			return list[i].Package < list[j].Package
		}
		return list[i].Name < list[j].Name
	})
	return list, nil
}

func filterResults(in []Result, include, exclude []string, kind string) []Result {
	out := in[:0:0]
	for _, r := range in {
		if len(include) > 0 && !slices.Contains(include, r.Annotations.Category) {
			continue
		}
		if slices.Contains(exclude, r.Annotations.Category) {
			continue
		}
		if kind != "" && !strings.EqualFold(kind, r.Annotations.Type) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func summarize(results []Result) Summary {
	s := Summary{GeneratedAt: time.Now().UTC(), Results: results}
	for _, r := range results {
		s.Total++
		switch r.Status {
		case "pass":
			s.Passed++
		case "fail":
			s.Failed++
		case "skip":
			s.Skipped++
		}
	}
	return s
}
