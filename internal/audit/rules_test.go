package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmallari/pactum/internal/contract"
)

func TestCheckAutoRenewalShortNotice(t *testing.T) {
	text := "This agreement shall automatically renew for successive one year terms " +
		"unless either party gives 15 days prior written notice of non-renewal."
	finding := checkAutoRenewal(text)
	require.NotNil(t, finding)
	assert.Equal(t, contract.SeverityHigh, finding.Severity)
	assert.Equal(t, ClauseAutoRenewal, finding.ClauseType)
	assert.Contains(t, finding.Description, "15 days")
	require.NotEmpty(t, finding.Evidence)
}

func TestCheckAutoRenewalModerateNotice(t *testing.T) {
	text := "The subscription will automatically renew unless cancelled with 45 days prior notice."
	finding := checkAutoRenewal(text)
	require.NotNil(t, finding)
	assert.Equal(t, contract.SeverityMedium, finding.Severity)
	assert.Contains(t, finding.Description, "45 days")
}

func TestCheckAutoRenewalNoNoticePeriod(t *testing.T) {
	finding := checkAutoRenewal("This agreement shall automatically renew each year.")
	require.NotNil(t, finding)
	assert.Equal(t, contract.SeverityMedium, finding.Severity)
	assert.Contains(t, finding.Description, "no clear notice period")
}

func TestCheckAutoRenewalLongNotice(t *testing.T) {
	text := "This agreement shall automatically renew unless either party gives 90 days prior written notice."
	assert.Nil(t, checkAutoRenewal(text))
}

func TestCheckAutoRenewalAbsent(t *testing.T) {
	assert.Nil(t, checkAutoRenewal("This agreement expires at the end of the term."))
}

func TestCheckLiabilityUnlimited(t *testing.T) {
	finding := checkLiability("The supplier accepts unlimited liability for all claims.")
	require.NotNil(t, finding)
	assert.Equal(t, contract.SeverityHigh, finding.Severity)
	assert.Equal(t, ClauseLiability, finding.ClauseType)
	require.NotEmpty(t, finding.Evidence)
}

func TestCheckLiabilityNoCap(t *testing.T) {
	finding := checkLiability("This agreement covers delivery schedules and quality standards.")
	require.NotNil(t, finding)
	assert.Equal(t, contract.SeverityMedium, finding.Severity)
	assert.Empty(t, finding.Evidence)
}

func TestCheckLiabilityCapped(t *testing.T) {
	assert.Nil(t, checkLiability("The maximum aggregate liability shall not exceed the fees paid."))
}

func TestCheckIndemnityBroad(t *testing.T) {
	text := "Vendor shall indemnify and hold harmless Customer against any and all claims, " +
		"losses and damages whatsoever arising from the services."
	finding := checkIndemnity(text)
	require.NotNil(t, finding)
	assert.Equal(t, contract.SeverityHigh, finding.Severity)
	assert.Equal(t, ClauseIndemnity, finding.ClauseType)
}

func TestCheckIndemnitySingleIndicator(t *testing.T) {
	text := "Vendor shall indemnify Customer against any and all third party claims."
	finding := checkIndemnity(text)
	require.NotNil(t, finding)
	assert.Equal(t, contract.SeverityMedium, finding.Severity)
}

func TestCheckIndemnityNarrow(t *testing.T) {
	assert.Nil(t, checkIndemnity("Vendor shall indemnify Customer for direct losses caused by Vendor's breach."))
}

func TestCheckTerminationRestrictive(t *testing.T) {
	finding := checkTermination("Customer may not terminate this agreement before the end of the term.")
	require.NotNil(t, finding)
	assert.Equal(t, contract.SeverityHigh, finding.Severity)
	assert.Equal(t, ClauseTermination, finding.ClauseType)
	require.NotEmpty(t, finding.Evidence)
}

func TestCheckTerminationLongMinimumTerm(t *testing.T) {
	finding := checkTermination("There is an initial term of 36 months after which either party may cancel the service.")
	require.NotNil(t, finding)
	assert.Equal(t, contract.SeverityMedium, finding.Severity)
	assert.Contains(t, finding.Description, "36 month")
}

func TestCheckTerminationUnrestricted(t *testing.T) {
	assert.Nil(t, checkTermination("Either party may terminate this agreement at any time with notice."))
}

func TestAuditLocatesEvidenceOnPages(t *testing.T) {
	pages := []contract.PageText{
		{Page: 1, Text: "The parties agree to the scope of services described in Exhibit A."},
		{Page: 2, Text: "This agreement shall automatically renew unless either party gives 15 days prior written notice."},
	}
	findings := New().Audit("doc-7", pages)
	require.NotEmpty(t, findings)

	var renewal *contract.Finding
	for i := range findings {
		if findings[i].ClauseType == ClauseAutoRenewal {
			renewal = &findings[i]
		}
	}
	require.NotNil(t, renewal)
	require.NotEmpty(t, renewal.Evidence)
	evidence := renewal.Evidence[0]
	assert.Equal(t, "doc-7", evidence.DocumentID)
	assert.Equal(t, 2, evidence.Page)
	pageText := pages[1].Text
	assert.Equal(t, evidence.Text, pageText[evidence.StartChar:evidence.EndChar])
}
