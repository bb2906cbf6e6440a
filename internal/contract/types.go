// Package contract holds the domain types shared across ingestion, field
// extraction, question answering, and risk auditing.
package contract

import (
	"fmt"
	"strings"
	"time"
)

// Document describes one stored contract PDF.
type Document struct {
	ID         string    `json:"document_id" db:"id"`
	Filename   string    `json:"filename" db:"filename"`
	Pages      int       `json:"pages" db:"pages"`
	SizeBytes  int64     `json:"size_bytes" db:"size_bytes"`
	UploadedAt time.Time `json:"upload_timestamp" db:"uploaded_at"`
}

// PageText is the extracted text of a single PDF page. Pages are 1-based.
type PageText struct {
	Page int    `json:"page" db:"page"`
	Text string `json:"text" db:"text"`
}

// Chunk is a retrieval unit produced by splitting page text. Chunks never
// span pages; StartChar/EndChar index into the owning page's text.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Page       int    `json:"page"`
	Index      int    `json:"index"`
	StartChar  int    `json:"start_char"`
	EndChar    int    `json:"end_char"`
	Text       string `json:"text"`
}

// ChunkID builds the canonical chunk identifier.
func ChunkID(documentID string, page, index int) string {
	return fmt.Sprintf("%s:%d:%d", documentID, page, index)
}

// Citation points at a span of source text backing an answer or finding.
type Citation struct {
	DocumentID string `json:"document_id"`
	Page       int    `json:"page"`
	StartChar  int    `json:"start_char"`
	EndChar    int    `json:"end_char"`
	Text       string `json:"text"`
}

// CitationTextLimit caps the excerpt carried inside a citation.
const CitationTextLimit = 200

// Excerpt truncates text to the citation excerpt limit.
func Excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= CitationTextLimit {
		return text
	}
	return string(runes[:CitationTextLimit])
}

// Party is a contracting party extracted from the document.
type Party struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// Signatory is a person signing the contract.
type Signatory struct {
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
	Date  string `json:"date,omitempty"`
}

// LiabilityCap captures a liability limitation clause. Unlimited is set when
// the contract states liability is uncapped.
type LiabilityCap struct {
	Amount    float64 `json:"amount,omitempty"`
	Currency  string  `json:"currency,omitempty"`
	Unlimited bool    `json:"unlimited,omitempty"`
}

// Fields is the structured extraction result for a document.
type Fields struct {
	Parties         []Party       `json:"parties"`
	EffectiveDate   string        `json:"effective_date,omitempty"`
	Term            string        `json:"term,omitempty"`
	GoverningLaw    string        `json:"governing_law,omitempty"`
	PaymentTerms    string        `json:"payment_terms,omitempty"`
	Termination     string        `json:"termination,omitempty"`
	AutoRenewal     string        `json:"auto_renewal,omitempty"`
	Confidentiality string        `json:"confidentiality,omitempty"`
	Indemnity       string        `json:"indemnity,omitempty"`
	LiabilityCap    *LiabilityCap `json:"liability_cap,omitempty"`
	Signatories     []Signatory   `json:"signatories"`
}

// Empty reports whether nothing was extracted.
func (f Fields) Empty() bool {
	return len(f.Parties) == 0 && f.EffectiveDate == "" && f.Term == "" &&
		f.GoverningLaw == "" && f.PaymentTerms == "" && f.Termination == "" &&
		f.AutoRenewal == "" && f.Confidentiality == "" && f.Indemnity == "" &&
		f.LiabilityCap == nil && len(f.Signatories) == 0
}

// Severity grades a risk finding.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is one of the defined severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Finding is one risky-clause detection produced by the auditor.
type Finding struct {
	Severity    Severity   `json:"severity"`
	Description string     `json:"description"`
	ClauseType  string     `json:"clause_type"`
	Evidence    []Citation `json:"evidence"`
}

// JoinPages concatenates page texts with single spaces, matching the text the
// extractor and auditor operate on.
func JoinPages(pages []PageText) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, " ")
}
