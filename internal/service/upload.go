package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"ChunkVault/internal/codec"
	"ChunkVault/internal/errs"
	"ChunkVault/internal/metrics"
	"ChunkVault/model"
	"ChunkVault/utils"

	"github.com/rs/zerolog/log"
)

// UploadState is a step of the upload pipeline.
type UploadState string

const (
	StateReceiving  UploadState = "receiving"
	StateChunking   UploadState = "chunking"
	StateCommitting UploadState = "committing"
	StateDone       UploadState = "done"
	StateFailed     UploadState = "failed"
)

// nameAttempts bounds retries when a generated name already resolves.
const nameAttempts = 3

// ErrTooLarge is wrapped in the stream error of an upload over MaxUploadBytes.
var ErrTooLarge = errors.New("upload exceeds size limit")

// UploadRequest is one incoming file plus its form fields.
type UploadRequest struct {
	Reader io.Reader
	// Filename is the client-side name; only its extension is kept.
	Filename string
	// ContentType is the type declared by the client, if any.
	ContentType string
	// Fields are stored verbatim as record metadata.
	Fields map[string]string
}

type upload struct {
	svc   *ObjectService
	req   UploadRequest
	name  string
	state UploadState
}

func (u *upload) enter(state UploadState) {
	u.state = state
	log.Debug().Str("object", u.name).Str("state", string(state)).Msg("upload state")
}

// fail moves to StateFailed, purges chunks written so far when asked, and
// returns the original error.
func (u *upload) fail(ctx context.Context, err error, cleanup bool) error {
	from := u.state
	u.enter(StateFailed)
	metrics.Uploads.WithLabelValues("failed").Inc()
	log.Error().Err(err).Str("object", u.name).Str("from", string(from)).Msg("upload failed")
	if cleanup {
		u.svc.removeChunks(context.WithoutCancel(ctx), u.name, "upload aborted")
	}
	return err
}

// UploadObject streams req.Reader into chunks and commits the record once
// every chunk is stored. On any failure no record is committed and the
// chunks already written are removed best-effort.
func (s *ObjectService) UploadObject(ctx context.Context, req UploadRequest) (*model.ObjectRecord, error) {
	if err := s.checkReady("upload"); err != nil {
		return nil, err
	}
	if req.Reader == nil {
		return nil, errs.StreamIO("upload", "", errors.New("nil input stream"))
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.UploadTimeout)
	defer cancel()

	u := &upload{svc: s, req: req}
	u.enter(StateReceiving)

	name, err := s.freshName(ctx, utils.FileExt(req.Filename))
	if err != nil {
		return nil, u.fail(ctx, err, false)
	}
	u.name = name

	u.enter(StateChunking)
	input := req.Reader
	if s.opts.MaxUploadBytes > 0 {
		input = io.LimitReader(input, s.opts.MaxUploadBytes+1)
	}
	enc, err := codec.NewEncoder(input, s.opts.ChunkSize)
	if err != nil {
		return nil, u.fail(ctx, errs.StreamIO("upload", name, err), false)
	}

	var head []byte
	for {
		if err := ctx.Err(); err != nil {
			return nil, u.fail(ctx, errs.StreamIO("upload", name, err), true)
		}
		chunk, err := enc.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, u.fail(ctx, errs.StreamIO("read input", name, err), true)
		}
		if s.opts.MaxUploadBytes > 0 && enc.Length() > s.opts.MaxUploadBytes {
			return nil, u.fail(ctx, errs.StreamIO("read input", name, fmt.Errorf("%w of %d bytes", ErrTooLarge, s.opts.MaxUploadBytes)), true)
		}
		if chunk.Index == 0 {
			head = append([]byte(nil), chunk.Data[:min(len(chunk.Data), sniffLen)]...)
		}
		if err := s.chunks.PutChunk(ctx, name, chunk.Index, chunk.Data); err != nil {
			return nil, u.fail(ctx, errs.StreamIO("write chunk", name, err), true)
		}
	}

	u.enter(StateCommitting)
	record := &model.ObjectRecord{
		Name:        name,
		ContentType: resolveContentType(req.ContentType, req.Filename, head),
		Length:      enc.Length(),
		ChunkSize:   int64(s.opts.ChunkSize),
		Checksum:    enc.Checksum(),
		Metadata:    model.Metadata(req.Fields).Clone(),
		CreatedAt:   s.opts.Now().UTC(),
	}
	if err := s.catalog.Put(ctx, record); err != nil {
		return nil, u.fail(ctx, errs.StreamIO("commit", name, err), true)
	}

	u.enter(StateDone)
	metrics.Uploads.WithLabelValues("ok").Inc()
	metrics.UploadedBytes.Add(float64(record.Length))
	log.Info().
		Str("object", name).
		Str("content_type", record.ContentType).
		Int64("length", record.Length).
		Int("chunks", enc.Count()).
		Msg("upload committed")
	return record, nil
}

// sniffLen is how much of the first chunk content sniffing looks at.
const sniffLen = 3072

// freshName generates a name that does not resolve in the catalog yet.
func (s *ObjectService) freshName(ctx context.Context, ext string) (string, error) {
	for attempt := 0; attempt < nameAttempts; attempt++ {
		name, err := utils.GenerateObjectName(ext)
		if err != nil {
			return "", err
		}
		_, err = s.catalog.GetByName(ctx, name)
		if errs.IsNotFound(err) {
			return name, nil
		}
		if err != nil {
			return "", errs.StreamIO("check name", name, err)
		}
		log.Warn().Str("object", name).Msg("generated name already taken")
	}
	return "", errs.DuplicateName("generate name", "")
}
