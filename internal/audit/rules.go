// Package audit scans contract text for risky clauses and reports graded
// findings with evidence spans.
package audit

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jmallari/pactum/internal/contract"
)

// Clause types attached to findings.
const (
	ClauseAutoRenewal = "auto_renewal"
	ClauseLiability   = "liability"
	ClauseIndemnity   = "indemnity"
	ClauseTermination = "termination"
)

type match struct {
	start int
	end   int
	text  string
}

func firstMatch(pattern *regexp.Regexp, text string) (match, bool) {
	loc := pattern.FindStringIndex(text)
	if loc == nil {
		return match{}, false
	}
	return match{start: loc[0], end: loc[1], text: text[loc[0]:loc[1]]}, true
}

func evidence(m match) []contract.Citation {
	return []contract.Citation{{
		StartChar: m.start,
		EndChar:   m.end,
		Text:      m.text,
	}}
}

func window(text string, start, end, radius int) (string, int) {
	from := start - radius
	if from < 0 {
		from = 0
	}
	to := end + radius
	if to > len(text) {
		to = len(text)
	}
	return text[from:to], from
}

var autoRenewalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)auto(?:matically)?[\s-]+renew(?:s|ed|ing|al)?`),
	regexp.MustCompile(`(?i)renew(?:s|ed|ing|al)?[\s-]+auto(?:matically)?`),
}

var noticePeriodPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)[\s-]+(day|month|year)s?[\s-]+(?:prior|advance)[\s-]+(?:written[\s-]+)?notice`),
	regexp.MustCompile(`(?i)notice[\s-]+(?:of|in)[\s-]+(\d+)[\s-]+(day|month|year)s?`),
	regexp.MustCompile(`(?i)written[\s-]+notice[\s-]+(?:of|in)[\s-]+(\d+)[\s-]+(day|month|year)s?`),
}

// checkAutoRenewal flags auto-renewal clauses. Notice periods shorter than
// 30 days are high severity, shorter than 60 days medium, and a clause with
// no discoverable notice period is medium.
func checkAutoRenewal(text string) *contract.Finding {
	var clause match
	found := false
	for _, pattern := range autoRenewalPatterns {
		if m, ok := firstMatch(pattern, text); ok {
			clause = m
			found = true
			break
		}
	}
	if !found {
		return nil
	}
	context, _ := window(text, clause.start, clause.end, 500)
	noticeDays := -1
	for _, pattern := range noticePeriodPatterns {
		sub := pattern.FindStringSubmatch(context)
		if sub == nil {
			continue
		}
		value, err := strconv.Atoi(sub[1])
		if err != nil {
			continue
		}
		switch strings.ToLower(sub[2]) {
		case "day":
			noticeDays = value
		case "month":
			noticeDays = value * 30
		case "year":
			noticeDays = value * 365
		}
		break
	}
	switch {
	case noticeDays >= 0 && noticeDays < 30:
		return &contract.Finding{
			Severity:    contract.SeverityHigh,
			Description: fmt.Sprintf("Auto-renewal clause with short notice period (%d days)", noticeDays),
			ClauseType:  ClauseAutoRenewal,
			Evidence:    evidence(clause),
		}
	case noticeDays >= 0 && noticeDays < 60:
		return &contract.Finding{
			Severity:    contract.SeverityMedium,
			Description: fmt.Sprintf("Auto-renewal clause with moderate notice period (%d days)", noticeDays),
			ClauseType:  ClauseAutoRenewal,
			Evidence:    evidence(clause),
		}
	case noticeDays < 0:
		return &contract.Finding{
			Severity:    contract.SeverityMedium,
			Description: "Auto-renewal clause with no clear notice period specified",
			ClauseType:  ClauseAutoRenewal,
			Evidence:    evidence(clause),
		}
	}
	return nil
}

var unlimitedLiabilityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)unlimited\s+liability`),
	regexp.MustCompile(`(?i)without\s+limitation\s+of\s+liability`),
	regexp.MustCompile(`(?i)no\s+(?:cap|limitation|limit)\s+(?:on|of|to)\s+liability`),
}

var liabilityCapPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)liability\s+(?:shall\s+|will\s+)?(?:be\s+|not\s+exceed\s+|limited\s+to\s+)`),
	regexp.MustCompile(`(?i)maximum\s+(?:aggregate\s+)?liability`),
	regexp.MustCompile(`(?i)limitation\s+of\s+liability`),
}

// checkLiability flags explicit unlimited liability as high severity, and a
// missing cap as medium.
func checkLiability(text string) *contract.Finding {
	for _, pattern := range unlimitedLiabilityPatterns {
		if m, ok := firstMatch(pattern, text); ok {
			return &contract.Finding{
				Severity:    contract.SeverityHigh,
				Description: "Unlimited liability clause",
				ClauseType:  ClauseLiability,
				Evidence:    evidence(m),
			}
		}
	}
	for _, pattern := range liabilityCapPatterns {
		if pattern.MatchString(text) {
			return nil
		}
	}
	return &contract.Finding{
		Severity:    contract.SeverityMedium,
		Description: "No explicit liability cap found",
		ClauseType:  ClauseLiability,
	}
}

var indemnityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)indemnify\s+(?:and\s+(?:hold\s+harmless|defend))?`),
	regexp.MustCompile(`(?i)indemnification`),
	regexp.MustCompile(`(?i)hold\s+harmless`),
}

var broadIndemnityIndicators = []struct {
	label   string
	pattern *regexp.Regexp
}{
	{"any and all", regexp.MustCompile(`(?i)any\s+and\s+all`)},
	{"including but not limited to", regexp.MustCompile(`(?i)including\s+but\s+not\s+limited\s+to`)},
	{"whatsoever", regexp.MustCompile(`(?i)whatsoever`)},
	{"however arising", regexp.MustCompile(`(?i)however\s+arising`)},
	{"regardless of cause", regexp.MustCompile(`(?i)regardless\s+of(?:\s+the)?\s+cause`)},
	{"negligence carve-in", regexp.MustCompile(`(?i)whether\s+or\s+not\s+\w+\s+was\s+negligent`)},
}

// checkIndemnity flags indemnity clauses surrounded by sweeping language.
// Two or more breadth indicators make the finding high severity.
func checkIndemnity(text string) *contract.Finding {
	for _, pattern := range indemnityPatterns {
		m, ok := firstMatch(pattern, text)
		if !ok {
			continue
		}
		context, _ := window(text, m.start, m.end, 500)
		var indicators []string
		for _, indicator := range broadIndemnityIndicators {
			if indicator.pattern.MatchString(context) {
				indicators = append(indicators, indicator.label)
			}
		}
		if len(indicators) == 0 {
			continue
		}
		severity := contract.SeverityMedium
		if len(indicators) > 1 {
			severity = contract.SeverityHigh
		}
		return &contract.Finding{
			Severity:    severity,
			Description: "Broad indemnity clause using terms like: " + strings.Join(indicators, ", "),
			ClauseType:  ClauseIndemnity,
			Evidence:    evidence(m),
		}
	}
	return nil
}

var terminationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)terminat(?:e|ion)`),
	regexp.MustCompile(`(?i)cancel(?:lation)?`),
}

var minimumTermPattern = regexp.MustCompile(`(?i)(?:minimum|initial)\s+term\s+of\s+(\d+)\s+(year|month)`)

var terminationRestrictionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:may\s+not|cannot|shall\s+not)\s+terminat(?:e|ion)`),
	regexp.MustCompile(`(?i)(?:no|without)\s+right\s+to\s+terminat(?:e|ion)`),
	regexp.MustCompile(`(?i)for\s+cause\s+only`),
	regexp.MustCompile(`(?i)solely\s+for\s+(?:material\s+)?breach`),
}

// checkTermination flags clauses that restrict termination rights as high
// severity, and long minimum terms (24 months or more) as medium.
func checkTermination(text string) *contract.Finding {
	for _, pattern := range terminationPatterns {
		m, ok := firstMatch(pattern, text)
		if !ok {
			continue
		}
		context, offset := window(text, m.start, m.end, 300)
		for _, restriction := range terminationRestrictionPatterns {
			r, ok := firstMatch(restriction, context)
			if !ok {
				continue
			}
			r.start += offset
			r.end += offset
			return &contract.Finding{
				Severity:    contract.SeverityHigh,
				Description: "Restrictive termination clause limiting termination rights",
				ClauseType:  ClauseTermination,
				Evidence:    evidence(r),
			}
		}
		if sub := minimumTermPattern.FindStringSubmatchIndex(context); sub != nil {
			value, err := strconv.Atoi(context[sub[2]:sub[3]])
			if err != nil {
				continue
			}
			unit := strings.ToLower(context[sub[4]:sub[5]])
			months := value
			if unit == "year" {
				months = value * 12
			}
			if months >= 24 {
				r := match{start: sub[0] + offset, end: sub[1] + offset, text: context[sub[0]:sub[1]]}
				return &contract.Finding{
					Severity:    contract.SeverityMedium,
					Description: fmt.Sprintf("Long minimum term (%d %ss) with limited termination rights", value, unit),
					ClauseType:  ClauseTermination,
					Evidence:    evidence(r),
				}
			}
		}
	}
	return nil
}
