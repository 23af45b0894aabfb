package config

import "sync"

// Backend names accepted by CATALOG_BACKEND and CHUNK_BACKEND.
const (
	BackendMySQL  = "mysql"
	BackendMongo  = "mongo"
	BackendMinio  = "minio"
	BackendMemory = "memory"
)

// defaultChunkSize is the GridFS default of 255 KiB.
const defaultChunkSize = 255 * 1024

// StorageConfig selects where records and chunks live.
type StorageConfig struct {
	CatalogBackend string `yaml:"catalog_backend"` // mysql, mongo, memory
	ChunkBackend   string `yaml:"chunk_backend"`   // minio, mysql, mongo, memory
	ChunkSize      int    `yaml:"chunk_size"`      // bytes per chunk for new objects
}

var StorageConfigInstance *StorageConfig
var storageConfigOnce sync.Once

// InitStorageConfig initializes storage config.
func InitStorageConfig() {
	storageConfigOnce.Do(func() {
		chunkSize := getEnvInt("CHUNK_SIZE", defaultChunkSize)
		if chunkSize <= 0 {
			chunkSize = defaultChunkSize
		}
		StorageConfigInstance = &StorageConfig{
			CatalogBackend: getEnv("CATALOG_BACKEND", BackendMySQL),
			ChunkBackend:   getEnv("CHUNK_BACKEND", BackendMinio),
			ChunkSize:      chunkSize,
		}
	})
}
