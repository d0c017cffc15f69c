package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"basketwatch/internal/business/anomaly"
	"basketwatch/internal/bootstrap"
	"basketwatch/pkg/config"
	"basketwatch/pkg/logger"
)

const emptyMessage = "No high-value orders found."

// detector basketctl 需要的检测能力
type detector interface {
	Run(ctx context.Context, req anomaly.Request) (*anomaly.RunResult, error)
	Ping(ctx context.Context) error
}

type detectorFactory func(configPath string) (detector, func(), error)

type coreDetector struct {
	*anomaly.Orchestrator
	ping func(ctx context.Context) error
}

func (d coreDetector) Ping(ctx context.Context) error {
	return d.ping(ctx)
}

func defaultDetectorFactory(configPath string) (detector, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	log, err := logger.NewZapLogger(cfg.App.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	core, cleanup, err := bootstrap.NewCore(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return coreDetector{Orchestrator: core.Orchestrator, ping: core.Gateway.Ping}, func() {
		cleanup()
		_ = log.Sync()
	}, nil
}

func newDetectCmd(configPath *string, factory detectorFactory) *cobra.Command {
	var (
		threshold   float64
		instruction string
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Report orders with unusually high basket values",
		Example: `  basketctl detect --threshold 450
  basketctl detect --instruction "detect unusual basket values greater than 450."`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var explicit *float64
			if cmd.Flags().Changed("threshold") {
				explicit = &threshold
			}
			value, err := anomaly.ResolveThreshold(explicit, instruction)
			if err != nil {
				return err
			}

			d, cleanup, err := factory(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			res, err := d.Run(ctx, anomaly.Request{Threshold: value, Limit: limit})
			if err != nil {
				return err
			}

			if res.Report.IsEmpty() {
				fmt.Fprintln(cmd.OutOrStdout(), emptyMessage)
				return nil
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res.Report)
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0, "basket value threshold (>= 0)")
	cmd.Flags().StringVar(&instruction, "instruction", "", "free-text instruction containing the threshold")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of orders to report (default from config)")
	cmd.MarkFlagsMutuallyExclusive("threshold", "instruction")

	return cmd
}

func newPingCmd(configPath *string, factory detectorFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check warehouse connectivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, cleanup, err := factory(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := d.Ping(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "warehouse ok")
			return nil
		},
	}
}
