package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ChunkVault/config"
	"ChunkVault/internal/bootstrap"
	"ChunkVault/internal/repo"
	"ChunkVault/internal/worker"
	"ChunkVault/utils"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := pflag.String("config", "", "YAML file overlaying environment configuration")
	consume := pflag.Bool("consume", true, "consume the cleanup queue")
	// Read leases live in the server process. A sweeper here cannot see
	// them, so it relies on ORPHAN_GRACE outlasting the longest stream.
	sweep := pflag.Bool("sweep", false, "run the orphan sweeper without read lease visibility")
	pflag.Parse()

	config.InitConfig()
	if err := config.LoadFile(*configPath); err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	utils.InitLogger(config.AppConfig.LogLevel, config.AppConfig.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := bootstrap.NewService(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("open object store")
	}
	defer bootstrap.Shutdown(context.Background(), svc)

	g, ctx := errgroup.WithContext(ctx)
	if *consume && config.AppConfig.RabbitMQEnabled {
		g.Go(func() error {
			log.Info().Msg("cleanup worker started")
			return worker.RunCleanupWorker(ctx, svc)
		})
	}
	if *sweep {
		sweeper := &worker.Sweeper{
			Service:  svc,
			Redis:    repo.Redis,
			Interval: config.AppConfig.SweepInterval,
			Grace:    config.AppConfig.OrphanGrace,
		}
		g.Go(func() error {
			log.Info().Dur("interval", sweeper.Interval).Msg("orphan sweeper started")
			return sweeper.Run(ctx)
		})
	}
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("worker stopped")
		return
	}
	log.Info().Msg("worker exited")
}
