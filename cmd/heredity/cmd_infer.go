package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"heredity/internal/concurrency"
	"heredity/internal/executor"
	"heredity/internal/heredity"
	"heredity/internal/logger"
	"heredity/internal/pedigree"
	"heredity/internal/report"
	"heredity/internal/storage"
)

type inferOptions struct {
	format  string
	workers int
	persist bool
	runID   string
}

func newInferCmd(loadConfig configLoader) *cobra.Command {
	opts := &inferOptions{}

	cmd := &cobra.Command{
		Use:   "infer <data.csv|data.json>",
		Short: "Compute gene and trait posteriors for every individual in a pedigree file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfer(cmd, loadConfig, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text or json")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Worker goroutines (default from config)")
	cmd.Flags().BoolVar(&opts.persist, "persist", false, "Store the run in the configured database")
	cmd.Flags().StringVar(&opts.runID, "run-id", "", "Run id (default: generated)")
	return cmd
}

func runInfer(cmd *cobra.Command, loadConfig configLoader, opts *inferOptions, path string) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("unknown format %q: use text or json", opts.format)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	runID := opts.runID
	if runID == "" {
		runID = logger.GenerateRunID()
	}
	if err := logger.InitLogger(cfg.Logging.Dir, runID); err != nil {
		return err
	}
	defer logger.Close()

	pop, err := pedigree.LoadFile(path)
	if err != nil {
		return err
	}
	logger.LogEvent(cmd.Context(), runID, "cli", "pedigree_loaded", map[string]interface{}{
		"path":        path,
		"individuals": pop.Len(),
	})

	engine, err := heredity.NewEngine(cfg.CPT())
	if err != nil {
		return err
	}

	concCfg := concurrency.NewConfig(cfg)
	if opts.workers > 0 {
		concCfg.MaxWorkers = opts.workers
	}

	var store storage.Storage
	if opts.persist {
		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()
		store = s
	}

	exec := executor.NewExecutor(engine, executor.Options{
		Concurrency:    concCfg,
		MaxIndividuals: cfg.Inference.MaxIndividuals,
		Store:          store,
	})
	defer exec.Close()

	ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := exec.Execute(ctx, pop, runID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.format == "json" {
		return report.WriteJSON(out, report.Summary{
			RunID:      result.RunID,
			Worlds:     result.Worlds,
			Posteriors: result.Posteriors,
		})
	}
	return report.WriteText(out, result.Order, result.Posteriors)
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
