package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jmallari/pactum/internal/common"
	"github.com/jmallari/pactum/internal/common/telemetry"
	"github.com/jmallari/pactum/internal/contract"
	"github.com/jmallari/pactum/internal/document"
	"github.com/jmallari/pactum/internal/webhook"
)

// handleIngest accepts one or more PDF uploads in the multipart field
// "files", extracts per-page text, and stores each document. Validation runs
// over the whole batch before anything is persisted.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		logger.Warn("ingest: no files provided")
		writeError(w, http.StatusBadRequest, "no files provided")
		return
	}
	for _, header := range files {
		if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
			logger.Warn("ingest: rejected non-pdf upload", "filename", header.Filename)
			writeError(w, http.StatusBadRequest, fmt.Sprintf("file %s is not a PDF", header.Filename))
			return
		}
	}

	docs := make([]contract.Document, 0, len(files))
	for _, header := range files {
		doc, err := s.ingestFile(r.Context(), header)
		if err != nil {
			logger.Error("ingest: processing failed", "filename", header.Filename, "error", err)
			writeError(w, http.StatusInternalServerError,
				fmt.Sprintf("error processing file %s: %v", header.Filename, err))
			return
		}
		docs = append(docs, doc)
	}

	// Index in the background so the upload response is not gated on
	// embedding latency; the engine re-checks on the first question anyway.
	for _, doc := range docs {
		go func(id string) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if err := s.engine.Index(ctx, id); err != nil {
				common.Logger().Warn("ingest: background indexing failed", "document_id", id, "error", err)
			}
		}(doc.ID)
	}

	s.hooks.Trigger(webhook.EventIngestComplete, map[string]interface{}{"documents": docs})
	logger.Info("ingest: completed", "documents", len(docs))
	writeJSON(w, http.StatusOK, ingestResponse{Documents: docs, TotalUploaded: len(docs)})
}

func (s *Server) ingestFile(ctx context.Context, header *multipart.FileHeader) (contract.Document, error) {
	file, err := header.Open()
	if err != nil {
		return contract.Document{}, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		return contract.Document{}, fmt.Errorf("read upload: %w", err)
	}
	pages, err := document.ExtractPages(content)
	if err != nil {
		return contract.Document{}, fmt.Errorf("extract text: %w", err)
	}
	doc := contract.Document{
		ID:         uuid.NewString(),
		Filename:   header.Filename,
		Pages:      len(pages),
		SizeBytes:  int64(len(content)),
		UploadedAt: time.Now().UTC(),
	}
	if err := s.store.SaveDocument(ctx, doc, pages, content); err != nil {
		return contract.Document{}, err
	}
	telemetry.RecordIngest(len(pages))
	common.Logger().Info("ingest: document stored",
		"document_id", doc.ID, "pages", doc.Pages, "size_bytes", doc.SizeBytes)
	return doc, nil
}

// handleListDocuments returns the stored document catalog, newest first.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.ListDocuments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing documents failed")
		return
	}
	if docs == nil {
		docs = []contract.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"total":     len(docs),
	})
}
