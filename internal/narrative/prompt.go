package narrative

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Simplici0/plmcost/internal/costing"
)

var promptPrinter = message.NewPrinter(language.AmericanEnglish)

func amount(code string, v int64) string {
	return promptPrinter.Sprintf("%s %d", code, v)
}

func infoLocationText(loc costing.InfoLocation) string {
	if loc == costing.PersonalPC {
		return "Personal PCs (highly decentralized)"
	}
	return "Corporate system (centralized)"
}

// BuildPrompt renders the instruction sent to the model. The numbers are
// stated as fixed; the model is asked for JSON prose only.
func BuildPrompt(req Request) string {
	f := req.Form
	r := req.Result
	code := string(req.Country.Code)
	items := r.CostBreakdown

	var b strings.Builder

	b.WriteString("Act as a senior business strategy consultant specializing in process optimization for manufacturing companies using PLM (Product Lifecycle Management) systems.\n")
	b.WriteString("Take the company data and the pre-calculated cost results below and write a persuasive, professional analysis in JSON format.\n\n")

	b.WriteString("Company data and context:\n")
	fmt.Fprintf(&b, "- Company Name: %s\n", f.CompanyName)
	fmt.Fprintf(&b, "- Industry: %s\n", req.IndustryName)
	if req.SectorName != "" {
		fmt.Fprintf(&b, "- Specific Sector: %s\n", req.SectorName)
	}
	fmt.Fprintf(&b, "- Country: %s\n", req.Country.Name)
	fmt.Fprintf(&b, "- Currency: %s\n", code)
	fmt.Fprintf(&b, "- Structure: %s engineers across %s sites and %s countries.\n", f.Engineers, f.NumSites, f.NumCountries)
	fmt.Fprintf(&b, "- Information Management: %s.\n\n", infoLocationText(f.InfoLocation))

	b.WriteString("Numerical results (ALREADY CALCULATED - DO NOT CHANGE THEM):\n")
	fmt.Fprintf(&b, "- Total Estimated Annual Loss: %s\n", amount(code, r.TotalCost))
	b.WriteString("- Cost Breakdown:\n")
	for _, item := range items {
		fmt.Fprintf(&b, "  - %s: %s\n", item.Category, amount(code, item.Cost))
	}

	b.WriteString("\nReturn ONLY the JSON. Complete these fields:\n\n")
	fmt.Fprintf(&b, "1. summary: an executive-level paragraph framing the total cost (%s) as a strategic risk for a company with %s sites. "+
		"Describe it as a capital drain that inhibits innovation and position a PLM as the investment that unifies information, "+
		"optimizes multi-site collaboration and strengthens competitiveness.\n\n", amount(code, r.TotalCost), f.NumSites)

	b.WriteString("2. explanations: exactly four consultant insights, one per breakdown item, in order.\n")
	fmt.Fprintf(&b, "   - %q (%s): explain how %s sites and %s countries create communication and data-searching overhead that a centralized PLM removes.\n",
		items[0].Category, amount(code, items[0].Cost), f.NumSites, f.NumCountries)
	fmt.Fprintf(&b, "   - %q (%s): link reworks to the lack of a single source of truth, made worse by distributed teams and scattered data.\n",
		items[1].Category, amount(code, items[1].Cost))
	fmt.Fprintf(&b, "   - %q (%s): argue that delays follow from operational friction (slow communication and reworks) and cost the agility needed to compete.\n",
		items[2].Category, amount(code, items[2].Cost))
	if f.InfoLocation == costing.PersonalPC {
		fmt.Fprintf(&b, "   - %q (%s): stress that keeping data on PCs is the largest operational risk, creating silos that guarantee outdated information. "+
			"The cost is a risk premium paid for not controlling intellectual assets.\n",
			items[3].Category, amount(code, items[3].Cost))
	} else {
		fmt.Fprintf(&b, "   - %q (%s): praise the use of a corporate system, but warn that without a formal PLM structure even centralized systems become disorganized. "+
			"Mention that the risk cost is zero thanks to this practice.\n",
			items[3].Category, amount(code, items[3].Cost))
	}

	b.WriteString("\n3. methodologyNotes: a brief summary of the assumptions. The metrics model collaboration complexity in distributed teams and the risk of decentralized data.\n\n")

	fmt.Fprintf(&b, "4. chartInterpretations, each in the context of a company with %s sites:\n", f.NumSites)
	b.WriteString("   - bar: which cost dominates, structural complexity (collaboration), execution (reworks and delays) or risk (silos)?\n")
	b.WriteString("   - pie: is the distribution one concentrated problem or several contributing ones, and how does that prioritize a PLM investment?\n")
	b.WriteString("   - radar: describe the inefficiency profile. High sites and countries suggest scale problems; high reworks or delays suggest process quality problems.\n\n")

	b.WriteString("JSON output format:\n")
	b.WriteString(`{"summary": "...", "explanations": [{"explanation": "..."}, {"explanation": "..."}, {"explanation": "..."}, {"explanation": "..."}], ` +
		`"methodologyNotes": "...", "chartInterpretations": {"bar": "...", "pie": "...", "radar": "..."}}`)
	b.WriteString("\n")

	return b.String()
}
