// Package extract pulls structured contract fields out of document text,
// preferring the language model and falling back to regex heuristics.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jmallari/pactum/internal/contract"
)

var partyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)This\s+agreement\s+is\s+between\s+(.*?)\s+and\s+(.*?)[\.,]`),
	regexp.MustCompile(`(?is)This\s+agreement\s+is\s+made\s+by\s+and\s+between\s+(.*?)\s+and\s+(.*?)[\.,]`),
	regexp.MustCompile(`(?i)([A-Z][A-Za-z0-9&'\-\. ]{3,60})\s+\("?(Buyer|Client|Customer|Licensee|Vendor|Seller|Provider|Company|Contractor)"?[\),]`),
}

func findParties(text string) []contract.Party {
	var parties []contract.Party
	seen := make(map[string]bool)
	add := func(name, role string) {
		name = strings.TrimSpace(name)
		role = strings.TrimSpace(role)
		if len(name) <= 3 || seen[name] {
			return
		}
		seen[name] = true
		parties = append(parties, contract.Party{Name: name, Role: role})
	}
	for i, pattern := range partyPatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			if i < 2 {
				add(match[1], "Party")
				add(match[2], "Party")
			} else {
				add(match[1], match[2])
			}
		}
	}
	return parties
}

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b\d{1,2}[\/\-\.]\d{1,2}[\/\-\.]\d{2,4}\b`),
	regexp.MustCompile(`(?i)\b[A-Z][a-z]+\s+\d{1,2}(?:st|nd|rd|th)?,\s+\d{4}\b`),
	regexp.MustCompile(`(?i)\b\d{1,2}(?:st|nd|rd|th)?\s+[A-Z][a-z]+,?\s+\d{4}\b`),
	regexp.MustCompile(`(?i)\bthe\s+\d{1,2}(?:st|nd|rd|th)?\s+day\s+of\s+[A-Z][a-z]+,?\s+\d{4}\b`),
}

func findDates(text string) []string {
	var dates []string
	for _, pattern := range datePatterns {
		dates = append(dates, pattern.FindAllString(text, -1)...)
	}
	return dates
}

const dateAlternatives = `([A-Z][a-z]+\s+\d{1,2}(?:st|nd|rd|th)?,\s+\d{4}|\d{1,2}[\/\-\.]\d{1,2}[\/\-\.]\d{2,4})`

var effectivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)effective\s+(?:as\s+of\s+|date[:\s]+)` + dateAlternatives),
	regexp.MustCompile(`(?i)agreement\s+date[:\s]+` + dateAlternatives),
	regexp.MustCompile(`(?i)dated\s+(?:as\s+of\s+)?` + dateAlternatives),
	regexp.MustCompile(`(?i)commenc(?:es|ing)\s+on\s+` + dateAlternatives),
}

func findEffectiveDate(text string) string {
	for _, pattern := range effectivePatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			return strings.TrimSpace(match[1])
		}
	}
	// No labelled date; take the first date near the word "effective".
	if pos := strings.Index(strings.ToLower(text), "effective"); pos != -1 {
		end := pos + 200
		if end > len(text) {
			end = len(text)
		}
		if dates := findDates(text[pos:end]); len(dates) > 0 {
			return dates[0]
		}
	}
	return ""
}

var termPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:for\s+a\s+|for\s+an\s+|the\s+|initial\s+)?term\s+(?:of|is|shall\s+be)\s+(\d+)\s+(year|month|day)s?`),
	regexp.MustCompile(`(?i)shall\s+(?:remain\s+in|be\s+in|continue\s+in)\s+(?:full\s+force\s+and\s+effect\s+|effect\s+|force\s+)?for\s+(?:a\s+period\s+of\s+)?(\d+)\s+(year|month|day)s?`),
	regexp.MustCompile(`(?i)continue\s+for\s+a\s+period\s+of\s+(\d+)\s+(year|month|day)s?`),
	regexp.MustCompile(`(?i)agreement\s+(?:shall|will)\s+(?:be\s+valid|remain\s+in\s+force)\s+for\s+(\d+)\s+(year|month|day)s?`),
}

func findTerm(text string) string {
	for _, pattern := range termPatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			duration, unit := match[1], strings.ToLower(match[2])
			if n, err := strconv.Atoi(duration); err == nil && n > 1 {
				unit += "s"
			}
			return duration + " " + unit
		}
	}
	return ""
}

var lawPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)govern(?:ed|ing)\s+(?:by\s+)?(?:the\s+)?laws\s+of\s+(?:the\s+)?([A-Za-z][A-Za-z ]*)`),
	regexp.MustCompile(`(?i)jurisdiction\s+of\s+(?:the\s+)?([A-Za-z][A-Za-z ]*)`),
	regexp.MustCompile(`(?i)(?:exclusive\s+)?venue\s+(?:shall\s+be|will\s+be|in)\s+(?:the\s+)?([A-Za-z][A-Za-z ]*)`),
}

func findGoverningLaw(text string) string {
	for _, pattern := range lawPatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		law := strings.TrimSpace(match[1])
		for _, suffix := range []string{" courts", " court", " state", " only"} {
			if strings.HasSuffix(strings.ToLower(law), suffix) {
				law = law[:len(law)-len(suffix)]
			}
		}
		return strings.TrimSpace(law)
	}
	return ""
}

var paymentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:payment|invoice)\s+(?:shall\s+be|is|are)\s+due\s+(?:and\s+payable\s+)?within\s+(\d+)\s+(?:calendar\s+|business\s+)?days`),
	regexp.MustCompile(`(?i)(?:payment|invoice)\s+terms\s+(?:are|shall\s+be)\s+(\d+)\s+(?:calendar\s+|business\s+)?days`),
	regexp.MustCompile(`(?i)(?:payment|invoice)\s+(?:shall\s+be|is|are)\s+due\s+(?:and\s+payable\s+)?(\d+)\s+(?:calendar\s+|business\s+)?days`),
	regexp.MustCompile(`(?i)net\s+(\d+)(?:\s+days)?`),
}

var paymentKeywords = []string{"payment", "fee", "compensation", "price", "cost", "invoice"}

func findPaymentTerms(text string) string {
	const window = 5000
	lower := strings.ToLower(text)
	var sections []string
	for _, keyword := range paymentKeywords {
		pos := strings.Index(lower, keyword)
		if pos == -1 {
			continue
		}
		start := pos - window/2
		if start < 0 {
			start = 0
		}
		end := pos + window/2
		if end > len(text) {
			end = len(text)
		}
		sections = append(sections, text[start:end])
	}
	if len(sections) == 0 {
		return ""
	}
	paymentText := strings.Join(sections, " ")
	for _, pattern := range paymentPatterns {
		if match := pattern.FindStringSubmatch(paymentText); match != nil {
			return "Net " + match[1] + " days"
		}
	}
	// No recognizable net-terms phrasing; surface the first sentence that
	// mentions payment at all.
	for _, sentence := range strings.SplitAfter(paymentText, ". ") {
		lowerSent := strings.ToLower(sentence)
		for _, keyword := range paymentKeywords {
			if strings.Contains(lowerSent, keyword) {
				sentence = strings.TrimSpace(sentence)
				if len(sentence) > 250 {
					sentence = sentence[:250] + "..."
				}
				return sentence
			}
		}
	}
	return ""
}

var signatoryNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)(?:Signed|Signature):[ \t]*(.+)$`),
	regexp.MustCompile(`(?m)(?:Name|Print Name):[ \t]*(.+)$`),
	regexp.MustCompile(`(?m)By:[ \t]*(.+)$`),
}

var signatoryTitlePattern = regexp.MustCompile(`(?m)Title:[ \t]*(.+)$`)

func findSignatories(text string) []contract.Signatory {
	var names []string
	for _, pattern := range signatoryNamePatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			name := strings.TrimSpace(match[1])
			if name != "" && !strings.HasPrefix(name, "_") {
				names = append(names, name)
			}
		}
	}
	var titles []string
	for _, match := range signatoryTitlePattern.FindAllStringSubmatch(text, -1) {
		titles = append(titles, strings.TrimSpace(match[1]))
	}
	signatories := make([]contract.Signatory, 0, len(names))
	for i, name := range names {
		signatory := contract.Signatory{Name: name}
		if i < len(titles) {
			signatory.Title = titles[i]
		}
		signatories = append(signatories, signatory)
	}
	return signatories
}

const currencyToken = `(?:USD|US\$|\$|€|EUR|GBP|£)`

var liabilityAmountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)liability\s+(?:shall\s+|will\s+)?(?:be\s+|not\s+exceed\s+|limited\s+to\s+|exceed\s+|in\s+excess\s+of\s+)(?:a\s+total\s+of\s+)?` + currencyToken + `?\s*(\d+(?:,\d+)*(?:\.\d+)?)\s*` + currencyToken + `?(?:\s*(?:US\s+)?dollars|\s*euros|\s*pounds)?`),
	regexp.MustCompile(`(?is)limitation\s+of\s+liability\s*[:\.\s]+.*?` + currencyToken + `?\s*(\d+(?:,\d+)*(?:\.\d+)?)\s*` + currencyToken + `?(?:\s*(?:US\s+)?dollars|\s*euros|\s*pounds)?`),
	regexp.MustCompile(`(?is)maximum\s+(?:aggregate\s+)?liability\s+.*?` + currencyToken + `?\s*(\d+(?:,\d+)*(?:\.\d+)?)\s*` + currencyToken + `?(?:\s*(?:US\s+)?dollars|\s*euros|\s*pounds)?`),
}

var unlimitedLiabilityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)unlimited\s+liability`),
	regexp.MustCompile(`(?i)without\s+limitation\s+of\s+liability`),
	regexp.MustCompile(`(?i)no\s+(?:cap|limitation|limit)\s+(?:on|of|to)\s+liability`),
}

var currencyCodes = []struct {
	token string
	code  string
}{
	{"$", "USD"}, {"usd", "USD"}, {"dollars", "USD"},
	{"€", "EUR"}, {"eur", "EUR"}, {"euros", "EUR"},
	{"£", "GBP"}, {"gbp", "GBP"}, {"pounds", "GBP"},
}

func findLiabilityCap(text string) *contract.LiabilityCap {
	for _, pattern := range liabilityAmountPatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		amount, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", ""), 64)
		if err != nil {
			continue
		}
		currency := "USD"
		matched := strings.ToLower(match[0])
		for _, cc := range currencyCodes {
			if strings.Contains(matched, cc.token) {
				currency = cc.code
				break
			}
		}
		return &contract.LiabilityCap{Amount: amount, Currency: currency}
	}
	for _, pattern := range unlimitedLiabilityPatterns {
		if pattern.MatchString(text) {
			return &contract.LiabilityCap{Unlimited: true}
		}
	}
	return nil
}

// FromText runs the regex heuristics over the full document text.
func FromText(text string) contract.Fields {
	return contract.Fields{
		Parties:       findParties(text),
		EffectiveDate: findEffectiveDate(text),
		Term:          findTerm(text),
		GoverningLaw:  findGoverningLaw(text),
		PaymentTerms:  findPaymentTerms(text),
		LiabilityCap:  findLiabilityCap(text),
		Signatories:   findSignatories(text),
	}
}
