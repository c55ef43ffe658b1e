package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	workerInterval time.Duration
	workerOnce     bool
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Drain pending async research requests",
	Long: `Polls the shared store for pending async requests and runs each one
to a terminal status. Run alongside "serve" to move research work out
of the API process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		zap.L().Info("worker started",
			zap.Duration("interval", workerInterval),
			zap.Bool("once", workerOnce))

		for {
			n, err := env.Worker.Drain(ctx)
			if err != nil && ctx.Err() == nil {
				zap.L().Error("drain pending requests", zap.Error(err))
			}
			if n > 0 {
				zap.L().Info("processed pending requests", zap.Int("count", n))
			}
			if workerOnce {
				return nil
			}
			select {
			case <-ctx.Done():
				zap.L().Info("worker stopping")
				return nil
			case <-time.After(workerInterval):
			}
		}
	},
}

func init() {
	workerCmd.Flags().DurationVar(&workerInterval, "interval", 5*time.Second, "poll interval between drains")
	workerCmd.Flags().BoolVar(&workerOnce, "once", false, "drain once and exit")
	rootCmd.AddCommand(workerCmd)
}
