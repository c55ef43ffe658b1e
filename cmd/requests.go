package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/intel-cli/internal/model"
	"github.com/sells-group/intel-cli/internal/store"
)

var (
	requestsStatus string
	requestsDomain string
	requestsLimit  int
)

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Inspect async research requests",
}

var requestsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		requests, err := env.Tracker.List(ctx, store.RequestFilter{
			Status:        model.RequestStatus(requestsStatus),
			CompanyDomain: requestsDomain,
			Limit:         requestsLimit,
		})
		if err != nil {
			return err
		}

		for _, r := range requests {
			line := fmt.Sprintf("%s  %-10s  %s  %s", r.RequestID, r.Status, r.CompanyDomain, r.CreatedAt.Format("2006-01-02 15:04:05"))
			if r.Status.Terminal() {
				line += fmt.Sprintf("  (%s)", r.ProcessingTime().Round(time.Second))
			}
			fmt.Println(line)
		}
		fmt.Printf("%d request(s)\n", len(requests))
		return nil
	},
}

var requestsGetCmd = &cobra.Command{
	Use:   "get <request-id>",
	Short: "Show one request, including its result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		rec := env.Tracker.Get(ctx, args[0])
		if rec == nil {
			return fmt.Errorf("request %s not found (or expired)", args[0])
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

func init() {
	requestsListCmd.Flags().StringVar(&requestsStatus, "status", "", "filter by status")
	requestsListCmd.Flags().StringVar(&requestsDomain, "domain", "", "filter by company domain")
	requestsListCmd.Flags().IntVar(&requestsLimit, "limit", 50, "max requests to list")
	requestsCmd.AddCommand(requestsListCmd, requestsGetCmd)
	rootCmd.AddCommand(requestsCmd)
}
