package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pipecheck/internal/check"
	"pipecheck/internal/config"
	"pipecheck/internal/core"
)

func newCmdValidate(a *app) *cobra.Command {
	var noHistory bool

	cmd := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Validate pipeline files",
		Long: heredoc.Doc(`
			Validate one or more pipeline files. Files ending in .json or .jsonc
			are read as JSON with comments, everything else as YAML.

			Each file is decoded against the pipeline schema, its extends
			parameters are checked, and every dependsOn must name a stage or job
			declared earlier in the same list. Results are appended to the
			history ledger unless --no-history is given.
		`),
		Example: heredoc.Doc(`
			$ pipecheck validate azure-pipelines.yml
			$ pipecheck validate --output-dir out --schema params.schema.json ci/*.yml
		`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			checker, err := check.FromConfig(a.fs, a.cfg, a.logger, !noHistory)
			if err != nil {
				return err
			}

			results := make([]*check.Result, len(args))
			var g errgroup.Group
			for i, path := range args {
				g.Go(func() error {
					data, err := afero.ReadFile(a.fs, path)
					if err != nil {
						return fmt.Errorf("reading %s: %w", path, err)
					}
					res, err := checker.Check(path, data, core.FormatFromPath(path))
					results[i] = res
					return err
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			failed := printResults(cmd.OutOrStdout(), results)
			if failed > 0 {
				return fmt.Errorf("%d of %d pipeline file(s) failed validation", failed, len(results))
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&noHistory, "no-history", false, "do not record results in the history ledger")
	flags.String("output-dir", "", "write parsed.yaml and report.json per file under this directory")
	flags.String("schema", "", "JSON schema the extends parameters must satisfy")
	_ = a.v.BindPFlag(config.OutputDirKey, flags.Lookup("output-dir"))
	_ = a.v.BindPFlag(config.SchemaFileKey, flags.Lookup("schema"))
	return cmd
}

func printResults(w io.Writer, results []*check.Result) int {
	failed := 0
	for _, res := range results {
		if res.Passed() {
			fmt.Fprintln(w, color.GreenString("✅ %s", res.Source))
			continue
		}
		failed++
		fmt.Fprintln(w, color.RedString("❌ %s (%s)", res.Source, res.Phase))
		for _, line := range strings.Split(res.Err.Error(), "\n") {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
	return failed
}
