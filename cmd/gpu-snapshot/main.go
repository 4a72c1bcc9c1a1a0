package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"gpu-snapshot/internal/agent"
	"gpu-snapshot/internal/config"
	"gpu-snapshot/internal/logging"
	"gpu-snapshot/internal/report"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	cfg := config.Default()
	code := 0

	cmd := &cobra.Command{
		Use:           "gpu-snapshot",
		Short:         "Print GPU utilization and memory usage as nvidia-smi style JSON",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			code = run(cmd.Context(), cfg, stdout, stderr)
			return nil
		},
	}
	cfg.BindFlags(cmd.Flags())
	cmd.SetArgs(args)
	// stdout carries the snapshot document only; help and usage go to stderr.
	cmd.SetOut(stderr)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		_ = report.WriteFailure(stderr, err)
		return 1
	}
	return code
}

func run(ctx context.Context, cfg config.Config, stdout, stderr io.Writer) int {
	logger := logging.Discard()
	if cfg.LogFile != "" {
		l, f, err := logging.OpenFile(cfg.LogFile)
		if err != nil {
			_ = report.WriteFailure(stderr, err)
			return 1
		}
		defer f.Close()
		logger = l
	}

	ag, err := agent.New(agent.Options{
		Config: cfg,
		Logger: logger,
		Stdout: stdout,
		Stderr: stderr,
	})
	if err != nil {
		logger.Error(map[string]any{"msg": "invalid configuration", "error": err.Error()})
		_ = report.WriteFailure(stderr, err)
		return 1
	}

	return ag.Run(ctx)
}
