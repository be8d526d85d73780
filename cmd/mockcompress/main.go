package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"examcompress/internal/api"
	"examcompress/internal/mockservice"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	addr := flag.String("addr", "127.0.0.1:8080", "listen address")
	dataDir := flag.String("data", "mock_data", "directory for stored uploads")
	flag.Parse()

	svc, err := mockservice.New(*dataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init mock service")
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(api.ZerologLogger())
	svc.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", *addr).Msg("mock compression service listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown warning")
	}
	log.Info().Msg("mock service exited")
}
