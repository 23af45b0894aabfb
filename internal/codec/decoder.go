package codec

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// ErrClosed is returned by reads after Close.
var ErrClosed = errors.New("codec: reader closed")

// Source yields the stored chunks of an object by ascending index.
type Source interface {
	GetChunk(ctx context.Context, name string, index int) ([]byte, error)
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithLength makes the Reader fail if the chunks do not add up to length bytes.
func WithLength(length int64) ReaderOption {
	return func(r *Reader) {
		r.length = length
		r.checkLength = true
	}
}

// WithChecksum makes the Reader compare the content digest at EOF.
func WithChecksum(sum string) ReaderOption {
	return func(r *Reader) {
		if sum != "" {
			r.checksum = sum
			r.digest = xxhash.New()
		}
	}
}

// OnClose registers fn to run once when the Reader is closed.
func OnClose(fn func()) ReaderOption {
	return func(r *Reader) {
		r.onClose = fn
	}
}

// Reader is a forward-only stream over the chunks of one object. It
// fetches chunk i+1 only after chunk i has been consumed.
type Reader struct {
	ctx   context.Context
	src   Source
	name  string
	count int

	next int
	cur  []byte
	read int64

	length      int64
	checkLength bool
	checksum    string
	digest      hash.Hash64

	err       error
	closeOnce sync.Once
	onClose   func()
}

// NewReader returns a Reader over count chunks of name.
func NewReader(ctx context.Context, src Source, name string, count int, opts ...ReaderOption) *Reader {
	if ctx == nil {
		ctx = context.Background()
	}
	r := &Reader{
		ctx:   ctx,
		src:   src,
		name:  name,
		count: count,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// fill loads the next chunk once the current one is drained.
func (r *Reader) fill() error {
	for len(r.cur) == 0 {
		if r.err != nil {
			return r.err
		}
		if r.next >= r.count {
			r.err = r.finish()
			return r.err
		}
		if err := r.ctx.Err(); err != nil {
			r.err = err
			return err
		}
		data, err := r.src.GetChunk(r.ctx, r.name, r.next)
		if err != nil {
			r.err = fmt.Errorf("read chunk %d of %s: %w", r.next, r.name, err)
			return r.err
		}
		r.next++
		r.cur = data
		if r.digest != nil {
			_, _ = r.digest.Write(data)
		}
	}
	return nil
}

// finish validates the stream once every chunk has been fetched.
func (r *Reader) finish() error {
	if r.checkLength {
		if r.read != r.length {
			return fmt.Errorf("%s: chunks hold %d bytes, record says %d: %w", r.name, r.read, r.length, io.ErrUnexpectedEOF)
		}
	}
	if r.digest != nil {
		if got := hex.EncodeToString(r.digest.Sum(nil)); got != r.checksum {
			return fmt.Errorf("%s: checksum mismatch: got %s want %s", r.name, got, r.checksum)
		}
	}
	return io.EOF
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := r.fill(); err != nil {
		return 0, err
	}
	n := copy(p, r.cur)
	r.cur = r.cur[n:]
	r.read += int64(n)
	return n, nil
}

// WriteTo writes the remaining stream to w one chunk at a time. It lets
// io.Copy pipe an object into an HTTP response without an extra buffer.
func (r *Reader) WriteTo(w io.Writer) (int64, error) {
	var written int64
	for {
		err := r.fill()
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, err
		}
		n, werr := w.Write(r.cur)
		written += int64(n)
		r.read += int64(n)
		r.cur = r.cur[n:]
		if werr != nil {
			return written, werr
		}
		if n == 0 {
			return written, io.ErrShortWrite
		}
	}
}

// Close releases the Reader. Further reads return ErrClosed.
func (r *Reader) Close() error {
	r.closeOnce.Do(func() {
		if r.err == nil || r.err == io.EOF {
			r.err = ErrClosed
		}
		r.cur = nil
		if r.onClose != nil {
			r.onClose()
		}
	})
	return nil
}
