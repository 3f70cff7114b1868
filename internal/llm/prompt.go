package llm

import (
	"fmt"
	"strings"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

const searchSystemPrompt = `You are a research assistant. Given a user's research question and the metadata of one paper, explain in at most three short paragraphs how the paper relates to the question. Mention its strengths as a source (citations, venue, open access) and any caveats such as preprint status or retraction. Do not invent findings that are not supported by the abstract.`

const citeCheckSystemPrompt = `You are a citation checker. Given a claim and the metadata of one paper, state whether the paper supports, contradicts, or does not address the claim. Start your answer with one of SUPPORTS, CONTRADICTS, or UNRELATED on its own line, then justify it in at most two short paragraphs using only the abstract and metadata provided.`

// BuildReportPrompt renders the prompt for one report.
func BuildReportPrompt(reportType domain.ReportType, query string, paper *domain.Paper) CompletionRequest {
	var b strings.Builder

	switch reportType {
	case domain.ReportTypeCiteCheck:
		fmt.Fprintf(&b, "Claim: %s\n\n", query)
	default:
		fmt.Fprintf(&b, "Research question: %s\n\n", query)
	}

	b.WriteString("Paper:\n")
	fmt.Fprintf(&b, "- Title: %s\n", paper.Title)
	if len(paper.Authors) > 0 {
		fmt.Fprintf(&b, "- Authors: %s\n", strings.Join(paper.Authors, ", "))
	}
	if paper.Journal != "" {
		fmt.Fprintf(&b, "- Journal: %s\n", paper.Journal)
	}
	if d := paper.PublicationDateString(); d != "" {
		fmt.Fprintf(&b, "- Published: %s\n", d)
	}
	fmt.Fprintf(&b, "- Citations: %d\n", paper.CitationCount)
	fmt.Fprintf(&b, "- Open access: %t\n", paper.IsOpenAccess)
	if paper.IsPreprint {
		b.WriteString("- Preprint: true\n")
	}
	if paper.Metrics.IsRetracted {
		b.WriteString("- Retracted: true\n")
	}
	if len(paper.Badges) > 0 {
		fmt.Fprintf(&b, "- Badges: %s\n", strings.Join(paper.Badges, ", "))
	}
	if paper.Abstract != "" {
		fmt.Fprintf(&b, "\nAbstract:\n%s\n", paper.Abstract)
	}

	system := searchSystemPrompt
	if reportType == domain.ReportTypeCiteCheck {
		system = citeCheckSystemPrompt
	}
	return CompletionRequest{System: system, User: b.String()}
}
