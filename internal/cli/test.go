package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/scanlog/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // scenario filter (glob pattern on the file name)
	Golden string // directory of {name}.golden snapshots
	Update bool   // regenerate golden files
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario.yaml|dir>",
		Short: "Run scenario files against a scratch database",
		Long: `Run scan, mutation and compaction scenarios.

Each scenario runs against its own temporary database, so the configured
database is never touched. Step expectations and final assertions are
checked; with --golden the trace and final state are also compared with
{name}.golden in that directory.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (missing path, bad filter, etc.)

Examples:
  scanlog test ./scenarios/restore_semantics.yaml
  scanlog test ./scenarios --filter "compaction_*"
  scanlog test ./scenarios --golden ./golden --update
  scanlog test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.Golden, "golden", "", "directory of golden snapshots to compare against")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files (requires --golden)")

	return cmd
}

func runTests(opts *TestOptions, path string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	if opts.Update && opts.Golden == "" {
		const msg = "--update requires --golden"
		_ = out.Error("E_COMMAND", msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	if _, err := os.Stat(path); err != nil {
		return out.Fail(fmt.Sprintf("scenario path not found: %s", path), err)
	}

	files, err := findScenarioFiles(path, opts.Filter)
	if err != nil {
		return out.Fail("failed to find scenarios", err)
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	for _, file := range files {
		sr := runScenario(opts, file, cmd)
		if opts.Format != "json" {
			writeScenarioText(out.Writer, sr)
		}
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}
	out.VerboseLog("ran %d scenario(s) from %s", result.Total, path)

	if opts.Format == "json" {
		return outputTestJSON(out.Writer, result)
	}
	return outputTestText(out.Writer, result)
}

// findScenarioFiles returns path itself when it is a file, otherwise every
// .yaml/.yml file below it in lexical order.
func findScenarioFiles(path, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	var files []string
	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := filepath.Ext(p)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(p), ext)
			if ok, _ := filepath.Match(filter, name); !ok {
				return nil
			}
		}

		files = append(files, p)
		return nil
	})
	return files, err
}

// runScenario loads and executes one scenario file.
func runScenario(opts *TestOptions, file string, cmd *cobra.Command) ScenarioResult {
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return ScenarioResult{
			Name:   filepath.Base(file),
			Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)},
		}
	}

	result, err := harness.Run(cmd.Context(), scenario)
	if err != nil {
		return ScenarioResult{
			Name:   scenario.Name,
			Errors: []string{fmt.Sprintf("execution failed: %v", err)},
		}
	}

	sr := ScenarioResult{Name: scenario.Name, Pass: result.Pass, Errors: result.Errors}
	if opts.Golden == "" {
		return sr
	}

	if msg := checkGolden(opts, scenario, result); msg != "" {
		sr.Pass = false
		sr.Errors = append(sr.Errors, msg)
	}
	return sr
}

// checkGolden compares (or, with --update, rewrites) the scenario snapshot.
// It returns a failure message, or "" when the snapshot matches.
func checkGolden(opts *TestOptions, scenario *harness.Scenario, result *harness.Result) string {
	snapshot := harness.Snapshot{
		ScenarioName: scenario.Name,
		Trace:        result.Trace,
		State:        result.State,
	}
	current, err := snapshot.CanonicalJSON()
	if err != nil {
		return fmt.Sprintf("failed to marshal snapshot: %v", err)
	}

	path := filepath.Join(opts.Golden, scenario.Name+".golden")
	if opts.Update {
		if err := os.MkdirAll(opts.Golden, 0o755); err != nil {
			return fmt.Sprintf("failed to create golden directory: %v", err)
		}
		if err := os.WriteFile(path, current, 0o644); err != nil {
			return fmt.Sprintf("failed to write golden file: %v", err)
		}
		return ""
	}

	golden, err := os.ReadFile(path)
	if err != nil {
		return fmt.Sprintf("failed to read golden file: %v", err)
	}
	if !bytes.Equal(golden, current) {
		return "snapshot does not match golden file (run with --update to regenerate)"
	}
	return ""
}

func writeScenarioText(w io.Writer, sr ScenarioResult) {
	if sr.Pass {
		fmt.Fprintf(w, "✓ %s\n", sr.Name)
		return
	}
	fmt.Fprintf(w, "✗ %s\n", sr.Name)
	for _, e := range sr.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

func outputTestJSON(w io.Writer, result TestResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

func outputTestText(w io.Writer, result TestResult) error {
	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
