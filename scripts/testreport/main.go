// Command testreport merges `go test -json` output with the annotation blocks
// on test functions and writes JSON and Markdown reports.
//
//	go test -json ./... > test.json
//	go run ./scripts/testreport -i test.json --out-json report.json --out-md report.md
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type options struct {
	input      string
	root       string
	outJSON    string
	outMD      string
	title      string
	categories []string
	exclude    []string
	kind       string
}

func newRootCmd() *cobra.Command {
	var o options

	cmd := &cobra.Command{
		Use:          "testreport",
		Short:        "Build annotated test reports from go test -json output",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, o)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.input, "input", "i", "", "go test -json output file")
	f.StringVar(&o.root, "root", ".", "repository root to scan for annotations")
	f.StringVar(&o.outJSON, "out-json", "", "JSON report path")
	f.StringVar(&o.outMD, "out-md", "", "Markdown report path")
	f.StringVar(&o.title, "title", "Test Report", "report title")
	f.StringSliceVar(&o.categories, "category", nil, "only include these categories")
	f.StringSliceVar(&o.exclude, "exclude-category", nil, "drop these categories")
	f.StringVar(&o.kind, "type", "", "only include this test type (UT, ST, IT)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func run(cmd *cobra.Command, o options) error {
	module, err := modulePath(o.root)
	if err != nil {
		return err
	}

	meta, err := scanAnnotations(o.root, module)
	if err != nil {
		return err
	}

	in, err := os.Open(o.input)
	if err != nil {
		return fmt.Errorf("open test output: %w", err)
	}
	defer in.Close()

	results, err := mergeResults(in, meta, module)
	if err != nil {
		return err
	}
	results = filterResults(results, o.categories, o.exclude, o.kind)
	summary := summarize(results)

	if o.outJSON != "" {
		if err := writeJSON(o.outJSON, summary); err != nil {
			return err
		}
	}
	if o.outMD != "" {
		if err := writeMarkdown(o.outMD, o.title, summary); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d tests: %d passed, %d failed, %d skipped\n",
		summary.Total, summary.Passed, summary.Failed, summary.Skipped)
	if summary.Failed > 0 {
		return fmt.Errorf("%d tests failed", summary.Failed)
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
