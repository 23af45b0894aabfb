package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"ChunkVault/config"
	"ChunkVault/internal/errs"
	"ChunkVault/model"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// chunkPrefix is where chunk objects live inside the bucket.
const chunkPrefix = "chunks/"

// ChunkPath returns the bucket key of one chunk.
func ChunkPath(name string, index int) string {
	return fmt.Sprintf("%s%s/%d", chunkPrefix, name, index)
}

// parseChunkPath splits a bucket key back into (name, index).
func parseChunkPath(key string) (string, int, bool) {
	rest, ok := strings.CutPrefix(key, chunkPrefix)
	if !ok {
		return "", 0, false
	}
	slash := strings.LastIndexByte(rest, '/')
	if slash <= 0 {
		return "", 0, false
	}
	index, err := strconv.Atoi(rest[slash+1:])
	if err != nil || index < 0 {
		return "", 0, false
	}
	return rest[:slash], index, true
}

// MinioStore implements ChunkStore with one MinIO object per chunk.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore builds a ChunkStore from a MinIO client.
func NewMinioStore(client *minio.Client, bucket string) *MinioStore {
	return &MinioStore{client: client, bucket: bucket}
}

// Ping checks that the bucket is reachable.
func (s *MinioStore) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", s.bucket)
	}
	return nil
}

// PutChunk uploads a chunk to MinIO.
func (s *MinioStore) PutChunk(ctx context.Context, name string, index int, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, ChunkPath(name, index), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	return err
}

// GetChunk downloads one chunk from MinIO.
func (s *MinioStore) GetChunk(ctx context.Context, name string, index int) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, ChunkPath(name, index), minio.GetObjectOptions{})
	if err != nil {
		return nil, translateMinioError(err, name)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, translateMinioError(err, name)
	}
	return data, nil
}

// RemoveChunks deletes every chunk object under the name's prefix.
func (s *MinioStore) RemoveChunks(ctx context.Context, name string) error {
	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	listing := s.client.ListObjects(listCtx, s.bucket, minio.ListObjectsOptions{
		Prefix:    chunkPrefix + name + "/",
		Recursive: true,
	})
	objectsCh, errCh := forwardListing(listCtx, listing)

	var removeErr error
	for result := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if result.Err != nil && removeErr == nil {
			removeErr = fmt.Errorf("remove %s: %w", result.ObjectName, result.Err)
		}
	}
	cancel()
	listErr := <-errCh
	if removeErr != nil {
		return removeErr
	}
	return listErr
}

// forwardListing copies listed objects to the returned channel until the
// listing ends, fails, or ctx is done. The error channel receives exactly
// one value once forwarding has stopped.
func forwardListing(ctx context.Context, listing <-chan minio.ObjectInfo) (<-chan minio.ObjectInfo, <-chan error) {
	objectsCh := make(chan minio.ObjectInfo)
	errCh := make(chan error, 1)
	go func() {
		defer close(objectsCh)
		for object := range listing {
			if object.Err != nil {
				errCh <- object.Err
				return
			}
			select {
			case objectsCh <- object:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		errCh <- nil
	}()
	return objectsCh, errCh
}

// ListOwners groups chunk objects by owning object name.
func (s *MinioStore) ListOwners(ctx context.Context) ([]model.ChunkOwner, error) {
	owners := make(map[string]*model.ChunkOwner)
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    chunkPrefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, object.Err
		}
		name, _, ok := parseChunkPath(object.Key)
		if !ok {
			log.Debug().Str("key", object.Key).Msg("skip foreign object under chunk prefix")
			continue
		}
		owner, ok := owners[name]
		if !ok {
			owner = &model.ChunkOwner{ObjectName: name, OldestAt: object.LastModified}
			owners[name] = owner
		}
		owner.Chunks++
		if object.LastModified.Before(owner.OldestAt) {
			owner.OldestAt = object.LastModified
		}
	}
	out := make([]model.ChunkOwner, 0, len(owners))
	for _, owner := range owners {
		out = append(out, *owner)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ObjectName < out[j].ObjectName })
	return out, nil
}

func translateMinioError(err error, name string) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == 404 {
		return errs.NotFound("get chunk", name)
	}
	return err
}

// InitMinio initializes the MinIO client, creates the bucket if needed and
// returns a MinioStore on it.
func InitMinio() *MinioStore {
	client, err := minio.New(fmt.Sprintf("%s:%s", config.AppConfig.MinioHost, config.AppConfig.MinioPort), &minio.Options{
		Creds:  credentials.NewStaticV4(config.AppConfig.MinioUsername, config.AppConfig.MinioPassword, ""),
		Secure: config.AppConfig.MinioUseSSL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("minio error")
	}
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, config.AppConfig.BucketName)
	if err != nil {
		log.Fatal().Err(err).Msg("check bucket fail")
	}
	if !exists { // 不需要人工去 minio 建立 bucket 直接后端进行操作
		if err := client.MakeBucket(ctx, config.AppConfig.BucketName, minio.MakeBucketOptions{}); err != nil {
			log.Fatal().Err(err).Msg("create bucket fail")
		}
	}
	store := NewMinioStore(client, config.AppConfig.BucketName)
	log.Info().Str("bucket", config.AppConfig.BucketName).Msg("init minio success")
	return store
}
