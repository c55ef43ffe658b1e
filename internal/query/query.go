// Package query turns a target domain and sales context into the 2-3
// search query strings one pipeline run issues. Building queries is pure:
// same inputs, same queries.
package query

import (
	_ "embed"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sells-group/intel-cli/internal/model"
)

//go:embed templates.yaml
var templatesYAML []byte

type contextTemplates struct {
	Challenge    string `yaml:"challenge"`
	Relationship string `yaml:"relationship"`
}

type templateTable struct {
	Contexts map[string]contextTemplates `yaml:"contexts"`
	Generic  contextTemplates            `yaml:"generic"`
	Overview string                      `yaml:"overview"`
	Recency  string                      `yaml:"recency"`
}

var templates = mustLoadTemplates()

func mustLoadTemplates() templateTable {
	var t templateTable
	if err := yaml.Unmarshal(templatesYAML, &t); err != nil {
		panic("query: invalid embedded templates: " + err.Error())
	}
	return t
}

// Build returns the search queries for one pipeline run. With a seller
// company it produces the 3-query relationship-aware set (overview,
// context challenges, joint relationship); without one it produces the
// generic set (overview, recency, context query). Unknown sales contexts
// fall back to the generic templates.
func Build(domain string, salesContext model.SalesContext, sellerCompany string) []string {
	company := CompanyNameFromDomain(domain)

	tpl, ok := templates.Contexts[string(salesContext)]
	if !ok {
		tpl = templates.Generic
	}

	overview := expand(templates.Overview, company, sellerCompany)

	if sellerCompany != "" {
		return []string{
			overview,
			expand(tpl.Challenge, company, sellerCompany),
			expand(tpl.Relationship, company, sellerCompany),
		}
	}

	return []string{
		overview,
		expand(templates.Recency, company, sellerCompany),
		expand(tpl.Challenge, company, sellerCompany),
	}
}

func expand(tpl, company, seller string) string {
	out := strings.ReplaceAll(tpl, "{company}", company)
	out = strings.ReplaceAll(out, "{seller}", seller)
	return strings.Join(strings.Fields(out), " ")
}

// CompanyNameFromDomain derives a display name from a bare domain:
// "shopify.com" -> "Shopify". Multi-label hosts keep only the
// registrable label.
func CompanyNameFromDomain(domain string) string {
	host := strings.TrimSpace(strings.ToLower(domain))
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	host = strings.TrimPrefix(host, "www.")
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}

	labels := strings.Split(host, ".")
	name := labels[0]
	if name == "" {
		return domain
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
