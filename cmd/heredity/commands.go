package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"heredity/internal/config"
	"heredity/internal/storage"
)

// newRootCmd builds the command tree. Flags are bound to a fresh options
// value per call so tests can run commands independently.
func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "heredity",
		Short: "Exact gene and trait inference over a family pedigree",
		Long: `heredity computes, for every person in a pedigree, the exact probability
of carrying 0, 1 or 2 copies of a gene and of expressing the associated trait,
given the traits that were observed.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default config/config.yaml)")

	loadConfig := func() (*config.Config, error) {
		return config.Load(configPath)
	}

	rootCmd.AddCommand(newInferCmd(loadConfig))
	rootCmd.AddCommand(newRunsCmd(loadConfig))
	rootCmd.AddCommand(newConvertCmd())
	return rootCmd
}

type configLoader func() (*config.Config, error)

// openStore opens the run database named by the configuration.
func openStore(cfg *config.Config) (*storage.SQLiteStorage, error) {
	if cfg.Storage.Database.Path == "" {
		return nil, fmt.Errorf("storage.database.path is not configured")
	}
	return storage.NewSQLiteStorage(cfg.Storage.Database.Path)
}
