package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jmallari/pactum/internal/api"
	"github.com/jmallari/pactum/internal/audit"
	"github.com/jmallari/pactum/internal/common"
	"github.com/jmallari/pactum/internal/document"
	"github.com/jmallari/pactum/internal/extract"
	"github.com/jmallari/pactum/internal/llm"
	"github.com/jmallari/pactum/internal/rag"
	"github.com/jmallari/pactum/internal/vector"
	"github.com/jmallari/pactum/internal/webhook"
)

func main() {
	_ = godotenv.Load()
	logger := common.Logger()

	var (
		addr         = flag.String("addr", ":8080", "listen address")
		catalogPath  = flag.String("catalog", "", "path to the SQLite catalog (default data/catalog.db)")
		pdfDir       = flag.String("pdf-dir", "", "directory for stored PDFs (default data/pdfs)")
		topK         = flag.Int("top-k", rag.DefaultTopK, "retrieved chunks per question")
		chunkSize    = flag.Int("chunk-size", rag.DefaultChunkSize, "chunk size in characters")
		chunkOverlap = flag.Int("chunk-overlap", rag.DefaultChunkOverlap, "chunk overlap in characters")
	)
	flag.Parse()

	store, err := document.Open(*catalogPath, *pdfDir)
	if err != nil {
		logger.Error("startup: opening catalog failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chroma, err := vector.NewFromEnv(ctx)
	if err != nil {
		logger.Error("startup: vector configuration invalid", "error", err)
		os.Exit(1)
	}
	defer chroma.Close()
	if chroma.Available() {
		logger.Info("startup: chromadb backend ready", "collection", chroma.Collection())
	} else {
		logger.Warn("startup: chromadb unreachable, using in-process vector index")
	}

	provider := llm.NewProvider()
	logger.Info("startup: provider selected", "provider", provider.Name())

	engine := rag.NewEngine(store, provider, chroma, rag.NewChunker(*chunkSize, *chunkOverlap), *topK)
	hooks := webhook.NewDispatcher(store)
	server := api.NewServer(store, engine, extract.New(provider), audit.New(), hooks)

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("startup: listening", "addr", *addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown: signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown: server close failed", "error", err)
	}
	hooks.Wait()
	logger.Info("shutdown: complete")
}
