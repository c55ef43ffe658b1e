// Package export renders a finished intelligence run for humans: a
// Notion report page or an XLSX workbook.
package export

import (
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/intel-cli/internal/model"
)

// WriteXLSX writes the run as a two-sheet workbook: numbered sources
// and synthesized insights.
func WriteXLSX(intel *model.Intelligence, path string) error {
	f := xlsx.NewFile()

	if err := addSourcesSheet(f, intel); err != nil {
		return err
	}
	if err := addInsightsSheet(f, intel); err != nil {
		return err
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "export: save xlsx")
	}
	return nil
}

func addSourcesSheet(f *xlsx.File, intel *model.Intelligence) error {
	sheet, err := f.AddSheet("Sources")
	if err != nil {
		return eris.Wrap(err, "export: add sources sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"#", "Title", "URL", "Domain", "Type", "Credibility", "Relevancy", "Snippet"} {
		header.AddCell().SetString(h)
	}

	for _, s := range intel.Sources {
		row := sheet.AddRow()
		row.AddCell().SetString(strconv.Itoa(s.ID))
		row.AddCell().SetString(s.Title)
		row.AddCell().SetString(s.URL)
		row.AddCell().SetString(s.Domain)
		row.AddCell().SetString(string(s.SourceType))
		row.AddCell().SetString(fmt.Sprintf("%.2f", s.CredibilityScore))
		row.AddCell().SetString(fmt.Sprintf("%.2f", s.RelevancyScore))
		row.AddCell().SetString(s.Snippet)
	}
	return nil
}

func addInsightsSheet(f *xlsx.File, intel *model.Intelligence) error {
	sheet, err := f.AddSheet("Insights")
	if err != nil {
		return eris.Wrap(err, "export: add insights sheet")
	}

	addKV := func(k, v string) {
		row := sheet.AddRow()
		row.AddCell().SetString(k)
		row.AddCell().SetString(v)
	}
	addSection := func(name string, items []model.CitedContent) {
		for _, item := range items {
			addKV(name, item.Text)
		}
	}

	in := intel.Insights
	addKV("Company", intel.CompanyName)
	addKV("Domain", intel.CompanyDomain)
	addKV("Sales Context", string(intel.SalesContext))
	addKV("Overview", in.CompanyOverview.Text)
	addKV("Competitive Landscape", in.CompetitiveLandscape.Text)
	addSection("Pain Point", in.PainPoints)
	addSection("Opportunity", in.Opportunities)
	addSection("Risk", in.Risks)
	addSection("Talking Point", in.TalkingPoints)
	addSection("Objection", in.Objections)
	addSection("Recommended Action", in.RecommendedActions)
	addKV("Deal Probability", strconv.Itoa(in.DealProbability))
	addKV("Confidence Score", fmt.Sprintf("%.2f", intel.ConfidenceScore))
	return nil
}
