package export

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"

	"github.com/sells-group/intel-cli/internal/model"
	"github.com/sells-group/intel-cli/pkg/notion"
)

// NotionExporter writes report pages into a Notion parent page.
type NotionExporter struct {
	client   notion.Client
	parentID string
}

// NewNotionExporter builds an exporter writing under the given parent
// page ID.
func NewNotionExporter(client notion.Client, parentID string) *NotionExporter {
	return &NotionExporter{client: client, parentID: parentID}
}

// Export creates one report page for the run and returns its page ID.
func (e *NotionExporter) Export(ctx context.Context, intel *model.Intelligence) (string, error) {
	title := fmt.Sprintf("%s — %s intelligence", intel.CompanyName, intel.SalesContext)

	page, err := e.client.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:   notionapi.ParentTypePageID,
			PageID: notionapi.PageID(e.parentID),
		},
		Properties: notionapi.Properties{
			"title": notionapi.TitleProperty{
				Title: richText(title),
			},
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "export: create notion page")
	}

	if err := e.client.AppendBlocks(ctx, string(page.ID), reportBlocks(intel)); err != nil {
		return "", err
	}
	return string(page.ID), nil
}

func reportBlocks(intel *model.Intelligence) []notionapi.Block {
	in := intel.Insights
	blocks := []notionapi.Block{
		heading("Overview"),
		paragraph(in.CompanyOverview.Text),
		heading("Competitive Landscape"),
		paragraph(in.CompetitiveLandscape.Text),
	}

	addSection := func(name string, items []model.CitedContent) {
		if len(items) == 0 {
			return
		}
		blocks = append(blocks, heading(name))
		for _, item := range items {
			blocks = append(blocks, bullet(item.Text))
		}
	}
	addSection("Pain Points", in.PainPoints)
	addSection("Opportunities", in.Opportunities)
	addSection("Risks", in.Risks)
	addSection("Talking Points", in.TalkingPoints)
	addSection("Objections", in.Objections)
	addSection("Recommended Actions", in.RecommendedActions)

	if len(intel.Sources) > 0 {
		blocks = append(blocks, heading("Sources"))
		for _, s := range intel.Sources {
			blocks = append(blocks, bullet(fmt.Sprintf("[%d] %s — %s", s.ID, s.Title, s.URL)))
		}
	}

	blocks = append(blocks,
		heading("Scores"),
		bullet(fmt.Sprintf("Deal probability: %d%%", in.DealProbability)),
		bullet(fmt.Sprintf("Confidence: %.2f", intel.ConfidenceScore)),
	)
	return blocks
}

func richText(text string) []notionapi.RichText {
	return []notionapi.RichText{{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: text},
	}}
}

func heading(text string) notionapi.Block {
	return &notionapi.Heading2Block{
		BasicBlock: notionapi.BasicBlock{
			Object: notionapi.ObjectTypeBlock,
			Type:   notionapi.BlockTypeHeading2,
		},
		Heading2: notionapi.Heading{RichText: richText(text)},
	}
}

func paragraph(text string) notionapi.Block {
	return &notionapi.ParagraphBlock{
		BasicBlock: notionapi.BasicBlock{
			Object: notionapi.ObjectTypeBlock,
			Type:   notionapi.BlockTypeParagraph,
		},
		Paragraph: notionapi.Paragraph{RichText: richText(text)},
	}
}

func bullet(text string) notionapi.Block {
	return &notionapi.BulletedListItemBlock{
		BasicBlock: notionapi.BasicBlock{
			Object: notionapi.ObjectTypeBlock,
			Type:   notionapi.BlockTypeBulletedListItem,
		},
		BulletedListItem: notionapi.ListItem{RichText: richText(text)},
	}
}
