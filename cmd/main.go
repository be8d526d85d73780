package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"examcompress/internal/api"
	"examcompress/internal/compress"
	"examcompress/internal/config"
	fileutil "examcompress/internal/file"
	"examcompress/internal/session"
	"examcompress/internal/ui"
)

const pruneInterval = 10 * time.Minute

func main() {

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	router := setupRouter()

	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	if err := fileutil.EnsureDir(cfg.DataDir); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.DataDir).Msg("ensure data dir")
	}

	sessions, err := buildSessionManager(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build session manager")
	}
	wireAPI(router, sessions)

	baseCtx, baseCancel := context.WithCancel(context.Background())
	pruned := make(chan struct{})
	go func() {
		defer close(pruned)
		sessions.RunPruner(baseCtx, pruneInterval)
	}()

	const (
		readHeaderTimeout = 5 * time.Second
		shutdownTimeout   = 10 * time.Second
	)

	srv := newHTTPServer(cfg.Port, router, readHeaderTimeout)

	go func() {
		log.Info().Int("port", cfg.Port).Str("service_url", cfg.ServiceURL).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdownSignal()

	gracefulShutdown(srv, baseCancel, pruned, shutdownTimeout)
}

func setupRouter() *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(api.ZerologLogger())
	return r
}

func buildSessionManager(cfg config.Config) (*session.Manager, error) {
	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}
	client, err := compress.NewClient(compress.Options{
		BaseURL: cfg.ServiceURL,
		Timeout: cfg.SubmitTimeout,
	})
	if err != nil {
		return nil, err
	}
	sm := session.NewManager(session.Options{
		DataDir:   cfg.DataDir,
		TTL:       cfg.SessionTTL,
		Catalog:   catalog,
		Submitter: client,
	})

	if err := sm.LoadFromDisk(); err != nil {
		log.Warn().Err(err).Msg("restore sessions failed")
	}
	return sm, nil
}

func wireAPI(router *gin.Engine, sm *session.Manager) {
	apiHandler := api.NewAPI(sm)
	apiHandler.RegisterRoutes(router)

	uiHandler := ui.New(sm)
	uiHandler.RegisterRoutes(router)
}

func newHTTPServer(port int, handler http.Handler, readHeaderTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

func waitForShutdownSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received")
}

func gracefulShutdown(srv *http.Server, cancelBase context.CancelFunc, pruned <-chan struct{}, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown warning")
	}

	cancelBase()
	select {
	case <-pruned:
	case <-ctx.Done():
		log.Warn().Msg("session pruner did not finish before timeout")
	}
	log.Info().Msg("server exited cleanly")
}
