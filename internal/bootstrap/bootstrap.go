// Package bootstrap wires configured backends into an ObjectService.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"ChunkVault/config"
	"ChunkVault/internal/catalog"
	"ChunkVault/internal/mq"
	"ChunkVault/internal/repo"
	"ChunkVault/internal/service"
	"ChunkVault/internal/storage"
	"ChunkVault/internal/task"
	"ChunkVault/utils"

	"github.com/rs/zerolog/log"
)

// indexTimeout bounds index creation on startup.
const indexTimeout = 30 * time.Second

// Backends are the store parts selected by StorageConfig.
type Backends struct {
	Catalog catalog.Catalog
	Chunks  storage.ChunkStore
	Queue   service.CleanupQueue
}

// OpenBackends connects every backend named in the storage config.
// Connection failures exit through the repo Init helpers.
func OpenBackends() (*Backends, error) {
	sc := config.StorageConfigInstance
	if sc == nil {
		return nil, fmt.Errorf("storage config not initialized")
	}
	uses := func(backend string) bool {
		return sc.CatalogBackend == backend || sc.ChunkBackend == backend
	}
	if uses(config.BackendMySQL) {
		repo.InitMysql()
	}
	if uses(config.BackendMongo) {
		repo.InitMongo()
	}

	b := &Backends{}
	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()

	switch sc.CatalogBackend {
	case config.BackendMySQL:
		b.Catalog = catalog.NewGorm(repo.Db)
	case config.BackendMongo:
		cat := catalog.NewMongo(repo.Mongo, config.AppConfig.MongoBucket)
		if err := cat.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("mongo catalog indexes: %w", err)
		}
		b.Catalog = cat
	case config.BackendMemory:
		b.Catalog = catalog.NewMemory()
	default:
		return nil, fmt.Errorf("unknown catalog backend %q", sc.CatalogBackend)
	}

	switch sc.ChunkBackend {
	case config.BackendMinio:
		b.Chunks = storage.InitMinio()
	case config.BackendMySQL:
		b.Chunks = storage.NewGormStore(repo.Db)
	case config.BackendMongo:
		chunks := storage.NewMongoStore(repo.Mongo, config.AppConfig.MongoBucket)
		if err := chunks.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("mongo chunk indexes: %w", err)
		}
		b.Chunks = chunks
	case config.BackendMemory:
		b.Chunks = storage.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown chunk backend %q", sc.ChunkBackend)
	}

	if rdb := repo.InitRedis(); rdb != nil {
		b.Catalog = catalog.NewCached(b.Catalog, utils.NewRedisCache(rdb), config.AppConfig.RecordCacheTTL)
	}
	if config.AppConfig.RabbitMQEnabled {
		b.Queue = task.Publisher{}
	}

	log.Info().
		Str("catalog", sc.CatalogBackend).
		Str("chunks", sc.ChunkBackend).
		Bool("cache", repo.Redis != nil).
		Bool("cleanup_queue", b.Queue != nil).
		Msg("backends ready")
	return b, nil
}

// ServiceOptions maps the loaded configuration onto service options.
func ServiceOptions(queue service.CleanupQueue) service.Options {
	return service.Options{
		ChunkSize:      config.StorageConfigInstance.ChunkSize,
		UploadTimeout:  config.AppConfig.UploadTimeout,
		CleanupTimeout: config.AppConfig.CleanupTimeout,
		MaxUploadBytes: config.AppConfig.MaxUploadBytes,
		Cleanup:        queue,
	}
}

// NewService opens the configured backends and returns a ready service.
func NewService(ctx context.Context) (*service.ObjectService, error) {
	b, err := OpenBackends()
	if err != nil {
		return nil, err
	}
	svc := service.NewObjectService(b.Catalog, b.Chunks, ServiceOptions(b.Queue))
	if err := svc.Open(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}

// Shutdown closes the service and the shared connections.
func Shutdown(ctx context.Context, svc *service.ObjectService) {
	if svc != nil {
		svc.Close()
	}
	mq.ClosePublisher()
	if err := repo.CloseMongo(ctx); err != nil {
		log.Warn().Err(err).Msg("close mongo")
	}
	if repo.Redis != nil {
		_ = repo.Redis.Close()
	}
	if repo.Db != nil {
		if sqlDB, err := repo.Db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
