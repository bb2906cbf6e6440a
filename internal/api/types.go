package api

import (
	"time"

	"github.com/jmallari/pactum/internal/contract"
	"github.com/jmallari/pactum/internal/document"
)

type ingestResponse struct {
	Documents     []contract.Document `json:"documents"`
	TotalUploaded int                 `json:"total_uploaded"`
}

type extractRequest struct {
	DocumentID string `json:"document_id"`
}

type extractResponse struct {
	DocumentID string `json:"document_id"`
	contract.Fields
	ExtractionMethod string `json:"extraction_method"`
}

type askRequest struct {
	Question    string   `json:"question"`
	DocumentIDs []string `json:"document_ids,omitempty"`
	TopK        int      `json:"top_k,omitempty"`
}

type askResponse struct {
	Answer    string              `json:"answer"`
	Citations []contract.Citation `json:"citations"`
}

type auditResponse struct {
	DocumentID string             `json:"document_id"`
	Findings   []contract.Finding `json:"findings"`
}

type webhookRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

type webhookListResponse struct {
	Webhooks []document.Webhook `json:"webhooks"`
}

type healthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}
