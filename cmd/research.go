package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/intel-cli/internal/export"
	"github.com/sells-group/intel-cli/internal/model"
)

var (
	researchContext string
	researchSeller  string
	researchName    string
	researchNoCache bool
	researchXLSX    string
	researchNotion  bool
	researchJSON    bool
)

var researchCmd = &cobra.Command{
	Use:   "research <company-domain>",
	Short: "Run the intelligence pipeline for one company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		intel, err := env.Pipeline.Research(ctx, model.ResearchRequest{
			CompanyDomain: args[0],
			CompanyName:   researchName,
			SalesContext:  model.SalesContext(researchContext),
			SellerCompany: researchSeller,
			UseCache:      !researchNoCache,
		})
		if err != nil {
			return err
		}

		if researchJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(intel); err != nil {
				return err
			}
		} else {
			printSummary(intel)
		}

		if researchXLSX != "" {
			if err := export.WriteXLSX(intel, researchXLSX); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", researchXLSX)
		}

		if researchNotion {
			if env.Notion == nil {
				return fmt.Errorf("--notion requires INTEL_NOTION_TOKEN")
			}
			exp := export.NewNotionExporter(env.Notion, cfg.Notion.ParentPage)
			pageID, err := exp.Export(ctx, intel)
			if err != nil {
				return err
			}
			zap.L().Info("notion report created", zap.String("page_id", pageID))
		}

		return nil
	},
}

func printSummary(intel *model.Intelligence) {
	fmt.Printf("%s (%s) — %s\n", intel.CompanyName, intel.CompanyDomain, intel.SalesContext)
	if intel.FromCache {
		fmt.Println("  (cached result)")
	}
	fmt.Printf("  confidence: %.2f  deal probability: %d%%\n", intel.ConfidenceScore, intel.Insights.DealProbability)
	fmt.Printf("  queries: %d  urls fetched: %d  sources: %d\n",
		len(intel.QueriesIssued), len(intel.URLsFetched), len(intel.Sources))

	if intel.Insights.CompanyOverview.Text != "" {
		fmt.Printf("\n  %s\n", intel.Insights.CompanyOverview.Text)
	}
	for _, p := range intel.Insights.PainPoints {
		fmt.Printf("  pain: %s\n", p.Text)
	}
	for _, a := range intel.Insights.RecommendedActions {
		fmt.Printf("  next: %s\n", a.Text)
	}

	if len(intel.Sources) > 0 {
		fmt.Println("\n  sources:")
		for _, s := range intel.Sources {
			fmt.Printf("  [%d] %s — %s\n", s.ID, s.Title, s.URL)
		}
	}
}

func init() {
	researchCmd.Flags().StringVar(&researchContext, "context", "discovery", "sales context (discovery|competitive|renewal|demo|negotiation|closing)")
	researchCmd.Flags().StringVar(&researchSeller, "seller", "", "seller company for relationship-angle queries")
	researchCmd.Flags().StringVar(&researchName, "name", "", "company name override (default derived from domain)")
	researchCmd.Flags().BoolVar(&researchNoCache, "no-cache", false, "bypass the intelligence cache")
	researchCmd.Flags().StringVar(&researchXLSX, "xlsx", "", "write an XLSX report to this path")
	researchCmd.Flags().BoolVar(&researchNotion, "notion", false, "create a Notion report page")
	researchCmd.Flags().BoolVar(&researchJSON, "json", false, "print full JSON result")
	rootCmd.AddCommand(researchCmd)
}
