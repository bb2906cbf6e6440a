package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmallari/pactum/internal/common"
	"github.com/jmallari/pactum/internal/contract"
	"github.com/jmallari/pactum/internal/llm"
)

// Extraction methods reported alongside the result.
const (
	MethodLLM   = "llm"
	MethodRegex = "regex"
)

const extractPrompt = `You are a contract analysis expert. Extract the following fields from the contract text and return ONLY a valid JSON object with no additional text or explanation.

Required JSON structure:
{
  "parties": [{ "name": "Party Name", "role": "Party Role" }],
  "effective_date": "date string or null",
  "term": "term string or null",
  "governing_law": "law string or null",
  "payment_terms": "payment terms string or null",
  "termination": "termination clause or null",
  "auto_renewal": "auto renewal clause or null",
  "confidentiality": "confidentiality clause or null",
  "indemnity": "indemnity clause or null",
  "liability_cap": { "amount": "number or unlimited", "currency": "USD/EUR/etc or null" },
  "signatories": [{ "name": "Signatory Name", "title": "Title or null" }]
}

Contract text:
%s

Return ONLY the JSON object:`

// Extractor produces structured fields from contract text.
type Extractor struct {
	provider llm.Provider
}

func New(provider llm.Provider) *Extractor {
	return &Extractor{provider: provider}
}

// Extract asks the model for a structured JSON result, falling back to regex
// heuristics when the model fails or returns nothing usable. The returned
// method names the path that produced the fields.
func (e *Extractor) Extract(ctx context.Context, text string) (contract.Fields, string, error) {
	logger := common.Logger()
	fields, err := e.llmExtract(ctx, text)
	if err == nil && !fields.Empty() {
		return fields, MethodLLM, nil
	}
	if err != nil {
		logger.Warn("extract: model extraction failed, using regex heuristics", "error", err)
	} else {
		logger.Warn("extract: model returned no fields, using regex heuristics")
	}
	return FromText(text), MethodRegex, nil
}

func (e *Extractor) llmExtract(ctx context.Context, text string) (contract.Fields, error) {
	if e.provider == nil {
		return contract.Fields{}, fmt.Errorf("no provider configured")
	}
	answer, err := e.provider.Chat(ctx, []llm.Message{
		{Role: "user", Content: fmt.Sprintf(extractPrompt, text)},
	})
	if err != nil {
		return contract.Fields{}, err
	}
	return parseModelFields(answer)
}

type modelFields struct {
	Parties         []contract.Party     `json:"parties"`
	EffectiveDate   string               `json:"effective_date"`
	Term            string               `json:"term"`
	GoverningLaw    string               `json:"governing_law"`
	PaymentTerms    string               `json:"payment_terms"`
	Termination     string               `json:"termination"`
	AutoRenewal     string               `json:"auto_renewal"`
	Confidentiality string               `json:"confidentiality"`
	Indemnity       string               `json:"indemnity"`
	LiabilityCap    *modelLiabilityCap   `json:"liability_cap"`
	Signatories     []contract.Signatory `json:"signatories"`
}

type modelLiabilityCap struct {
	Amount   json.RawMessage `json:"amount"`
	Currency string          `json:"currency"`
}

// parseModelFields tolerates prose around the JSON object: it decodes the
// substring between the first '{' and the last '}'.
func parseModelFields(answer string) (contract.Fields, error) {
	start := strings.Index(answer, "{")
	end := strings.LastIndex(answer, "}")
	if start == -1 || end <= start {
		return contract.Fields{}, fmt.Errorf("no JSON object in model output")
	}
	var parsed modelFields
	if err := json.Unmarshal([]byte(answer[start:end+1]), &parsed); err != nil {
		return contract.Fields{}, fmt.Errorf("decode model output: %w", err)
	}
	fields := contract.Fields{
		Parties:         parsed.Parties,
		EffectiveDate:   parsed.EffectiveDate,
		Term:            parsed.Term,
		GoverningLaw:    parsed.GoverningLaw,
		PaymentTerms:    parsed.PaymentTerms,
		Termination:     parsed.Termination,
		AutoRenewal:     parsed.AutoRenewal,
		Confidentiality: parsed.Confidentiality,
		Indemnity:       parsed.Indemnity,
		Signatories:     parsed.Signatories,
	}
	if parsed.LiabilityCap != nil {
		fields.LiabilityCap = parsed.LiabilityCap.toCap()
	}
	return fields, nil
}

// toCap accepts "amount" as a number, a numeric string, or the literal
// "unlimited".
func (m *modelLiabilityCap) toCap() *contract.LiabilityCap {
	result := &contract.LiabilityCap{Currency: m.Currency}
	raw := strings.TrimSpace(string(m.Amount))
	if raw == "" || raw == "null" {
		if result.Currency == "" {
			return nil
		}
		return result
	}
	var amount float64
	if err := json.Unmarshal(m.Amount, &amount); err == nil {
		result.Amount = amount
		return result
	}
	var text string
	if err := json.Unmarshal(m.Amount, &text); err != nil {
		return nil
	}
	text = strings.TrimSpace(strings.ToLower(text))
	if text == "unlimited" {
		result.Unlimited = true
		result.Currency = ""
		return result
	}
	if amount, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", ""), 64); err == nil {
		result.Amount = amount
		return result
	}
	return nil
}
