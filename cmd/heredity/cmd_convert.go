package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"heredity/internal/pedigree"
)

func newConvertCmd() *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "convert <data.csv|data.json>",
		Short: "Rewrite a pedigree file as CSV or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pop, err := pedigree.LoadFile(args[0])
			if err != nil {
				return err
			}
			switch to {
			case "json":
				return pedigree.WriteJSON(cmd.OutOrStdout(), pop)
			case "csv":
				return pedigree.WriteCSV(cmd.OutOrStdout(), pop)
			default:
				return fmt.Errorf("unknown target format %q: use csv or json", to)
			}
		},
	}

	cmd.Flags().StringVar(&to, "to", "json", "Target format: csv or json")
	return cmd
}
