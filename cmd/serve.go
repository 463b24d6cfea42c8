package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sabio-ai/sabio/internal/agent"
	"github.com/sabio-ai/sabio/internal/api"
	"github.com/sabio-ai/sabio/internal/config"
	"github.com/sabio-ai/sabio/internal/kb"
	"github.com/sabio-ai/sabio/internal/observability"
	"github.com/sabio-ai/sabio/internal/source"
)

// Server timeout configuration.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 2 * time.Minute // file download relays need headroom
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe initializes and starts the HTTP API server.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()
	logger.Info("starting HTTP API server", "version", Version)

	shutdownTracing, err := observability.Setup(ctx, observability.Config{
		AgentHost:   cfg.Tracing.AgentHost,
		Environment: cfg.Tracing.Environment,
		ServiceName: cfg.Tracing.ServiceName,
	}, logger)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("flushing traces", "error", err)
		}
	}()

	kbClient, err := kb.New(kb.Config{
		BaseURL: cfg.KBBaseURL,
		KBID:    cfg.KBID,
		Token:   cfg.KBToken,
		Timeouts: kb.Timeouts{
			Metadata: cfg.MetadataTimeout,
			Search:   cfg.SearchTimeout,
			Stream:   cfg.StreamTimeout,
		},
	}, logger.With("component", "kb"))
	if err != nil {
		return fmt.Errorf("creating knowledge-box client: %w", err)
	}

	assembler, err := source.NewAssembler(source.AssemblerConfig{
		Fetcher:  kbClient,
		Resolver: source.NewResolver(kbClient, cfg.DownloadTTL, logger.With("component", "resolver")),
		KBHost:   hostOf(cfg.KBBaseURL),
		Logger:   logger.With("component", "source"),
	})
	if err != nil {
		return fmt.Errorf("creating source assembler: %w", err)
	}

	completer, err := agent.NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.ModelName,
		logger.With("component", "llm"))
	if err != nil {
		return fmt.Errorf("creating completer: %w", err)
	}

	ragAgent, err := agent.New(agent.Config{
		Searcher:     kbClient,
		Completer:    completer,
		Assembler:    assembler,
		Vectorset:    cfg.Vectorset,
		Instructions: cfg.Instructions,
		Logger:       logger.With("component", "agent"),
	})
	if err != nil {
		return fmt.Errorf("creating agent: %w", err)
	}

	apiServer, err := api.NewServer(api.ServerConfig{
		Logger:      logger.With("component", "api"),
		Agent:       ragAgent,
		KB:          kbClient,
		Model:       cfg.ModelName,
		KBID:        cfg.KBID,
		CORSOrigins: cfg.CORSOrigins,
		TrustProxy:  cfg.TrustProxy,
		RateBurst:   cfg.RateBurst,
		IsDev:       cfg.Tracing.Environment == "dev",
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	logger.Info("HTTP server ready",
		"addr", cfg.ListenAddr,
		"routes", "/ask, /kb-ask, /download/{resource_id}/{file_id}",
		"health", "/health, /ready",
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	}
}

// hostOf extracts the host part of the knowledge-box base URL.
// Config validation already guarantees the URL parses.
func hostOf(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return u.Host
}
