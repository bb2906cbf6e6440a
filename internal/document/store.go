// Package document persists contract PDFs, their extracted page text, and
// webhook registrations in a SQLite catalog.
package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/jmallari/pactum/internal/contract"
)

// ErrNotFound is returned when a document or webhook does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps a pooled sqlx.DB connection to the SQLite catalog plus the
// on-disk directory holding the original PDFs.
type Store struct {
	db     *sqlx.DB
	pdfDir string
}

// Open constructs a Store at the given catalog path, overriding the
// environment-derived configuration. The schema is migrated on first use.
func Open(catalogPath, pdfDir string) (*Store, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if trimmed := strings.TrimSpace(catalogPath); trimmed != "" {
		cfg.CatalogPath = trimmed
	}
	if trimmed := strings.TrimSpace(pdfDir); trimmed != "" {
		cfg.PDFDir = trimmed
	}
	return OpenWithConfig(cfg)
}

// OpenWithConfig constructs a Store using the provided configuration.
func OpenWithConfig(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.CatalogPath) == "" {
		return nil, errors.New("catalog path required")
	}
	abs, err := filepath.Abs(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("resolve catalog path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}
	if err := os.MkdirAll(cfg.PDFDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pdf dir: %w", err)
	}
	busy := int(cfg.BusyTimeout / time.Millisecond)
	if busy <= 0 {
		busy = 5000
	}
	// journal_mode must be set per connection, outside any transaction, so it
	// lives in the DSN rather than in the schema migration.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", abs, busy)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingTimeout := cfg.BusyTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping catalog: %w", err)
	}

	store := &Store{db: db, pdfDir: cfg.PDFDir}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the catalog connection, used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("catalog not initialised")
	}
	return s.db.PingContext(ctx)
}

// PDFDir returns the directory holding stored PDF blobs.
func (s *Store) PDFDir() string {
	if s == nil {
		return ""
	}
	return s.pdfDir
}

func (s *Store) migrate(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("catalog not initialised")
	}
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute schema statement %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS documents (
                id TEXT PRIMARY KEY,
                filename TEXT NOT NULL,
                size_bytes INTEGER NOT NULL DEFAULT 0,
                pages INTEGER NOT NULL DEFAULT 0,
                uploaded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
	`CREATE TABLE IF NOT EXISTS pages (
                document_id TEXT NOT NULL,
                page INTEGER NOT NULL,
                text TEXT NOT NULL,
                PRIMARY KEY (document_id, page),
                FOREIGN KEY(document_id) REFERENCES documents(id) ON DELETE CASCADE
        );`,
	`CREATE TABLE IF NOT EXISTS webhooks (
                id TEXT PRIMARY KEY,
                url TEXT NOT NULL,
                events TEXT NOT NULL,
                created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
	`CREATE INDEX IF NOT EXISTS idx_documents_uploaded ON documents(uploaded_at);`,
	`CREATE INDEX IF NOT EXISTS idx_pages_document ON pages(document_id);`,
}

// SaveDocument stores document metadata and page texts in one transaction,
// then writes the raw PDF bytes to disk. The file write happens after commit
// so a failed transaction never leaves an orphan blob behind.
func (s *Store) SaveDocument(ctx context.Context, doc contract.Document, pages []contract.PageText, pdf []byte) error {
	if s == nil || s.db == nil {
		return errors.New("catalog not initialised")
	}
	if strings.TrimSpace(doc.ID) == "" {
		return errors.New("document id required")
	}
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents(id, filename, size_bytes, pages, uploaded_at) VALUES (?, ?, ?, ?, ?)`,
		doc.ID, doc.Filename, doc.SizeBytes, doc.Pages, doc.UploadedAt.UTC()); err != nil {
		tx.Rollback()
		return fmt.Errorf("insert document: %w", err)
	}
	for _, page := range pages {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pages(document_id, page, text) VALUES (?, ?, ?)`,
			doc.ID, page.Page, page.Text); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert page %d: %w", page.Page, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	if len(pdf) > 0 {
		if err := os.WriteFile(s.pdfPath(doc.ID), pdf, 0o644); err != nil {
			return fmt.Errorf("write pdf blob: %w", err)
		}
	}
	return nil
}

// Document fetches document metadata by ID.
func (s *Store) Document(ctx context.Context, id string) (contract.Document, error) {
	var doc contract.Document
	err := s.db.GetContext(ctx, &doc,
		`SELECT id, filename, size_bytes, pages, uploaded_at FROM documents WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return contract.Document{}, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return contract.Document{}, fmt.Errorf("load document: %w", err)
	}
	return doc, nil
}

// PageTexts returns the stored page texts for a document in page order.
func (s *Store) PageTexts(ctx context.Context, id string) ([]contract.PageText, error) {
	if _, err := s.Document(ctx, id); err != nil {
		return nil, err
	}
	var pages []contract.PageText
	if err := s.db.SelectContext(ctx, &pages,
		`SELECT page, text FROM pages WHERE document_id = ? ORDER BY page`, id); err != nil {
		return nil, fmt.Errorf("load pages: %w", err)
	}
	return pages, nil
}

// ListDocuments returns all stored documents, newest first.
func (s *Store) ListDocuments(ctx context.Context) ([]contract.Document, error) {
	var docs []contract.Document
	if err := s.db.SelectContext(ctx, &docs,
		`SELECT id, filename, size_bytes, pages, uploaded_at FROM documents ORDER BY uploaded_at DESC, id`); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// DocumentIDs returns the IDs of all stored documents.
func (s *Store) DocumentIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, `SELECT id FROM documents ORDER BY uploaded_at, id`); err != nil {
		return nil, fmt.Errorf("list document ids: %w", err)
	}
	return ids, nil
}

// CountDocuments returns the number of stored documents.
func (s *Store) CountDocuments(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM documents`); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

func (s *Store) pdfPath(id string) string {
	return filepath.Join(s.pdfDir, id+".pdf")
}

// Webhook is a registered event subscription.
type Webhook struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveWebhook stores a webhook registration.
func (s *Store) SaveWebhook(ctx context.Context, hook Webhook) error {
	if strings.TrimSpace(hook.ID) == "" {
		return errors.New("webhook id required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO webhooks(id, url, events, created_at) VALUES (?, ?, ?, ?)`,
		hook.ID, hook.URL, strings.Join(hook.Events, ","), hook.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert webhook: %w", err)
	}
	return nil
}

// DeleteWebhook removes a webhook registration by ID.
func (s *Store) DeleteWebhook(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM webhooks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("webhook %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListWebhooks returns all registered webhooks, oldest first.
func (s *Store) ListWebhooks(ctx context.Context) ([]Webhook, error) {
	rows, err := s.db.QueryxContext(ctx,
		`SELECT id, url, events, created_at FROM webhooks ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	defer rows.Close()
	var hooks []Webhook
	for rows.Next() {
		var (
			hook   Webhook
			events string
		)
		if err := rows.Scan(&hook.ID, &hook.URL, &events, &hook.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan webhook: %w", err)
		}
		if events != "" {
			hook.Events = strings.Split(events, ",")
		}
		hooks = append(hooks, hook)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate webhooks: %w", err)
	}
	return hooks, nil
}
