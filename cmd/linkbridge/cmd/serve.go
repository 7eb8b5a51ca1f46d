package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/linkbridge/internal/auth"
	"github.com/dbsmedya/linkbridge/internal/config"
	"github.com/dbsmedya/linkbridge/internal/httpapi"
	"github.com/dbsmedya/linkbridge/internal/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the linkbridge HTTP server",
	Long: `Serve starts the HTTP server exposing GET /export and POST /import
against whatever source/target URL each request names, plus the
ambient GET /healthz and GET /version routes.

Example:
  linkbridge serve --config linkbridge.yaml`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "",
		"Override the server bind address from config")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat)

	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	server := &httpapi.Server{
		Config:    cfg,
		Logger:    log,
		Access:    auth.AllowAll{},
		Validator: auth.AcceptAll{},
		Version:   Version,
		Commit:    Commit,
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      httpapi.NewRouter(server),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
	}

	log.Infow("starting linkbridge server", "addr", cfg.Server.Addr)

	serveErrCh := make(chan error, 1)
	go func() {
		serveErrCh <- httpServer.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-sigChan:
		log.Warn("received shutdown signal - draining in-flight requests...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		log.Info("server stopped cleanly")
		return nil
	}
}
