package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"moodreel/internal/maintenance"
	"moodreel/internal/seed"
)

func newSeedCommand(ctx *commandContext) *cobra.Command {
	var printExample bool

	cmd := &cobra.Command{
		Use:   "seed [file]",
		Short: "Load main sentiments, concepts and profiles from YAML",
		Long: "Load a taxonomy seed document. Without a file the built-in example is applied.\n" +
			"Seeding is idempotent: existing concepts keep their ids.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if printExample {
				_, err := cmd.OutOrStdout().Write(seed.Example())
				return err
			}
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			doc, err := seed.ParseFile(path)
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			var summary seed.Summary
			err = ctx.withLock(cmd.Context(), maintenance.Shared, func() error {
				summary, err = seed.Apply(cmd.Context(), st, doc)
				return err
			})
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, summary)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Main sentiments: %d\n", summary.MainSentiments)
			fmt.Fprintf(out, "Concepts created: %d (kept %d)\n", summary.SubSentimentsCreated, summary.SubSentimentsKept)
			fmt.Fprintf(out, "Profiles: %d (%d DNA rows)\n", summary.Profiles, summary.DNARows)
			return nil
		},
	}

	cmd.Flags().BoolVar(&printExample, "print-example", false, "Print the built-in example document and exit")
	return cmd
}
