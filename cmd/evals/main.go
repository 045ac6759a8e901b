// Command evals checks the tool selection suites against the registered
// Essbase tools and, given recorded selections, scores them.
//
// Usage:
//
//	go run ./cmd/evals --dir ./evals/suites
//	go run ./cmd/evals --dir ./evals/suites --answers answers.yaml
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/olgasafonova/essbase-mcp-server/evals"
	"github.com/olgasafonova/essbase-mcp-server/tools"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		dir     string
		answers string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:          "evals",
		Short:        "Validate and score Essbase MCP tool selection suites",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			ts, cp, err := evals.LoadAllEvals(dir)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Tool Selection Suite: %s (v%s), %d tests\n", ts.Name, ts.Version, len(ts.Tests))
			fmt.Fprintf(out, "Confusion Pair Suite: %s (v%s), %d pairs\n", cp.Name, cp.Version, len(cp.Pairs))

			if problems := evals.CheckToolNames(tools.AllTools, ts, cp); len(problems) > 0 {
				for _, p := range problems {
					fmt.Fprintf(out, "  ! %s\n", p)
				}
				return fmt.Errorf("%d suite references to unknown tools", len(problems))
			}

			coverage := evals.Coverage(tools.AllTools, ts)
			names := make([]string, 0, len(coverage))
			for name := range coverage {
				names = append(names, name)
			}
			sort.Strings(names)
			fmt.Fprintln(out, "\nCoverage:")
			for _, name := range names {
				fmt.Fprintf(out, "  %-28s %d\n", name, coverage[name])
			}

			if verbose {
				fmt.Fprintln(out, "\nTests:")
				for _, t := range ts.Tests {
					fmt.Fprintf(out, "  [%s] %q -> %s\n", t.ID, t.Input, t.ExpectedTool)
				}
			}

			if answers == "" {
				return nil
			}

			selector, err := evals.LoadReplaySelector(answers)
			if err != nil {
				return fmt.Errorf("loading answers: %w", err)
			}
			metrics, _ := evals.EvaluateToolSelection(ts, selector)
			fmt.Fprint(out, evals.FormatMetrics(metrics, ts.Name))
			fmt.Fprint(out, evals.FormatMetrics(evals.EvaluateConfusionPairs(cp, selector), cp.Name))
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "./evals/suites", "directory containing the suite YAML files")
	cmd.Flags().StringVar(&answers, "answers", "", "YAML file of recorded selections to score")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "list every test")
	return cmd
}
