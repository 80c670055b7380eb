package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var categoryOrder = []string{
	"Billing", "Gateway", "AuthZ", "AuthN", "Tenant", "Storage",
	"Audit", "API", "Config", "System", "Other",
}

func writeJSON(path string, s Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

func writeMarkdown(path, title string, s Summary) error {
	return writeFile(path, []byte(renderMarkdown(title, s)))
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func renderMarkdown(title string, s Summary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Storegate %s\n\n", title)
	fmt.Fprintf(&sb, "**Generated:** %s  \n", s.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	status := "PASSED"
	if s.Failed > 0 {
		status = "FAILED"
	}
	fmt.Fprintf(&sb, "**Status:** %s\n\n", status)

	rate := 0.0
	if s.Total > 0 {
		rate = float64(s.Passed) / float64(s.Total) * 100
	}
	sb.WriteString("| Total | Passed | Failed | Skipped | Pass Rate |\n")
	sb.WriteString("|-------|--------|--------|---------|-----------|\n")
	fmt.Fprintf(&sb, "| %d | %d | %d | %d | %.1f%% |\n\n", s.Total, s.Passed, s.Failed, s.Skipped, rate)

	byCategory := make(map[string][]Result)
	for _, r := range s.Results {
		byCategory[r.Annotations.Category] = append(byCategory[r.Annotations.Category], r)
	}

	for _, cat := range categoryOrder {
		tests := byCategory[cat]
		if len(tests) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "## %s\n\n", cat)
		sb.WriteString("| ID | Test | Status | Purpose | Security |\n")
		sb.WriteString("|----|------|--------|---------|----------|\n")
		for _, t := range tests {
			fmt.Fprintf(&sb, "| %s | `%s` | %s | %s | %s |\n",
				cell(t.Annotations.TestCaseID), t.Name, t.Status,
				cell(t.Annotations.Purpose), cell(t.Annotations.Security))
		}
		sb.WriteString("\n")
	}

	var failed []Result
	for _, r := range s.Results {
		if r.Status == "fail" {
			failed = append(failed, r)
		}
	}
	if len(failed) > 0 {
		sb.WriteString("## Failures\n\n")
		for _, f := range failed {
			fmt.Fprintf(&sb, "### %s\n\n```\n%s```\n\n", f.Name, f.Failure)
		}
	}
	return sb.String()
}

func cell(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", `\|`)
}
