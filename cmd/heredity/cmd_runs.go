package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"heredity/internal/report"
)

func newRunsCmd(loadConfig configLoader) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect stored inference runs",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN ID\tSTATUS\tINDIVIDUALS\tWORLDS\tCREATED")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
					r.ID, r.Status, r.Individuals, r.Worlds, r.CreatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list (0 for all)")

	showCmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the posteriors of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			runID := args[0]
			rec, err := store.LoadRun(runID)
			if err != nil {
				return err
			}
			individuals, err := store.LoadIndividuals(runID)
			if err != nil {
				return err
			}
			posteriors, err := store.LoadPosteriors(runID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s: %s, %d worlds\n", rec.ID, rec.Status, rec.Worlds)
			if rec.LastError != "" {
				fmt.Fprintf(out, "Error: %s\n", rec.LastError)
			}
			if len(posteriors) == 0 {
				return nil
			}

			order := make([]string, len(individuals))
			for i, ind := range individuals {
				order[i] = ind.ID
			}
			return report.WriteText(out, order, posteriors)
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteRun(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
			return nil
		},
	}

	runsCmd.AddCommand(listCmd, showCmd, deleteCmd)
	return runsCmd
}
