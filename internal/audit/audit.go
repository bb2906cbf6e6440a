package audit

import (
	"strings"

	"github.com/jmallari/pactum/internal/common"
	"github.com/jmallari/pactum/internal/contract"
)

// Auditor runs the risky-clause checks over a document.
type Auditor struct{}

func New() *Auditor {
	return &Auditor{}
}

// Audit runs every check over the joined page text and locates the evidence
// of each finding back on its source page.
func (a *Auditor) Audit(documentID string, pages []contract.PageText) []contract.Finding {
	text := contract.JoinPages(pages)
	checks := []func(string) *contract.Finding{
		checkAutoRenewal,
		checkLiability,
		checkIndemnity,
		checkTermination,
	}
	var findings []contract.Finding
	for _, check := range checks {
		finding := check(text)
		if finding == nil {
			continue
		}
		for i := range finding.Evidence {
			finding.Evidence[i].DocumentID = documentID
			locateCitation(&finding.Evidence[i], pages)
		}
		findings = append(findings, *finding)
	}
	severities := make([]string, 0, len(findings))
	for _, finding := range findings {
		severities = append(severities, string(finding.Severity))
	}
	common.Logger().Info("audit: completed",
		"document_id", documentID,
		"findings", len(findings),
		"severities", strings.Join(severities, ","))
	return findings
}

// locateCitation rewrites a citation span from joined-text offsets to the
// page that actually contains the evidence text. Spans that cannot be found
// on any page keep their joined-text offsets.
func locateCitation(citation *contract.Citation, pages []contract.PageText) {
	if citation.Text == "" {
		return
	}
	for _, page := range pages {
		idx := strings.Index(page.Text, citation.Text)
		if idx == -1 {
			continue
		}
		citation.Page = page.Page
		citation.StartChar = idx
		citation.EndChar = idx + len(citation.Text)
		return
	}
}
