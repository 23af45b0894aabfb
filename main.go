package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ChunkVault/config"
	"ChunkVault/internal/bootstrap"
	"ChunkVault/internal/repo"
	"ChunkVault/internal/worker"
	"ChunkVault/router"
	"ChunkVault/utils"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

// main initializes services and starts the HTTP server.
func main() {
	configPath := pflag.String("config", "", "YAML file overlaying environment configuration")
	addr := pflag.String("addr", "", "listen address, overrides HTTP_ADDR")
	sweep := pflag.Bool("sweep", false, "run the orphan sweeper in this process")
	pflag.Parse()

	config.InitConfig()
	if err := config.LoadFile(*configPath); err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if *addr != "" {
		config.AppConfig.HTTPAddr = *addr
	}
	utils.InitLogger(config.AppConfig.LogLevel, config.AppConfig.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := bootstrap.NewService(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("open object store")
	}

	if *sweep {
		sweeper := &worker.Sweeper{
			Service:  svc,
			Redis:    repo.Redis,
			Interval: config.AppConfig.SweepInterval,
			Grace:    config.AppConfig.OrphanGrace,
		}
		go func() {
			if err := sweeper.Run(ctx); err != nil {
				log.Error().Err(err).Msg("sweeper stopped")
			}
		}()
	}

	server := &http.Server{
		Addr:              config.AppConfig.HTTPAddr,
		Handler:           router.InitRouter(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server shutdown")
	}
	bootstrap.Shutdown(shutdownCtx, svc)
	log.Info().Msg("server exited")
}
