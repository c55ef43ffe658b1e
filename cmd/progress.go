package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"

	"github.com/sells-group/intel-cli/internal/workflow"
)

var progressCmd = &cobra.Command{
	Use:   "progress <execution-id>",
	Short: "Report progress of a workflow-driven research run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tc, err := client.Dial(client.Options{
			HostPort:  cfg.Workflow.HostPort,
			Namespace: cfg.Workflow.Namespace,
		})
		if err != nil {
			return err
		}
		defer tc.Close()

		poller := workflow.NewPoller(workflow.NewTemporalEngine(tc, cfg.Workflow.TaskQueue))
		progress, err := poller.Progress(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s  %s  %d%%\n", progress.Status, progress.CurrentStep, progress.ProgressPercent)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(progressCmd)
}
