package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"moodreel/internal/preflight"
)

type healthView struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var opts preflight.Options

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check storage and collaborator connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg, st, opts)
			failed := preflight.Failed(results)

			if ctx.JSONMode() {
				views := make([]healthView, 0, len(results))
				for _, r := range results {
					views = append(views, healthView(r))
				}
				if err := writeJSON(cmd, views); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintln(out, renderSectionHeader("Health", colorize))
				for _, r := range results {
					kind := statusOK
					if !r.Passed {
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
				}
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d of %d health checks failed", len(failed), len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.SkipLLM, "skip-llm", false, "Skip the LLM reachability check")
	cmd.Flags().BoolVar(&opts.SkipTMDB, "skip-tmdb", false, "Skip the TMDB reachability check")
	return cmd
}
