// Package codec splits byte streams into fixed-size chunks and reads them
// back as one stream. Both directions keep at most one chunk in memory.
package codec

import (
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"iter"

	"github.com/cespare/xxhash/v2"
)

// DefaultChunkSize matches the GridFS default of 255 KiB.
const DefaultChunkSize = 255 * 1024

// Chunk is one fragment of a stream. Data is only valid until the next
// chunk is requested from the Encoder that produced it.
type Chunk struct {
	Index int
	Data  []byte
}

// Encoder is a forward-only chunk sequence over an io.Reader.
type Encoder struct {
	r      io.Reader
	buf    []byte
	index  int
	length int64
	digest hash.Hash64
	done   bool
	empty  int
	err    error
}

// maxEmptyReads bounds consecutive (0, nil) reads from the source.
const maxEmptyReads = 100

// NewEncoder returns an Encoder producing chunks of chunkSize bytes,
// the last one possibly shorter.
func NewEncoder(r io.Reader, chunkSize int) (*Encoder, error) {
	if r == nil {
		return nil, errors.New("codec: nil reader")
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("codec: invalid chunk size %d", chunkSize)
	}
	return &Encoder{
		r:      r,
		buf:    make([]byte, chunkSize),
		digest: xxhash.New(),
	}, nil
}

// Next returns the next chunk, or io.EOF once the input is exhausted.
// An empty input yields io.EOF on the first call.
func (e *Encoder) Next() (Chunk, error) {
	if e.err != nil {
		return Chunk{}, e.err
	}
	if e.done {
		return Chunk{}, io.EOF
	}
	n, err := e.fill()
	if err != nil {
		e.err = err
		return Chunk{}, err
	}
	if n < len(e.buf) {
		e.done = true
	}
	if n == 0 {
		return Chunk{}, io.EOF
	}
	chunk := Chunk{Index: e.index, Data: e.buf[:n]}
	e.index++
	e.length += int64(n)
	_, _ = e.digest.Write(chunk.Data)
	return chunk, nil
}

// fill reads until buf is full or the source reports io.EOF. Any other
// error, io.ErrUnexpectedEOF included, is a failed stream and never a
// short final chunk.
func (e *Encoder) fill() (int, error) {
	n := 0
	for n < len(e.buf) {
		m, err := e.r.Read(e.buf[n:])
		n += m
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if m == 0 {
			e.empty++
			if e.empty >= maxEmptyReads {
				return n, io.ErrNoProgress
			}
			continue
		}
		e.empty = 0
	}
	return n, nil
}

// All adapts the Encoder to a range-over-func sequence. Iteration stops
// after the first error, which is yielded once.
func (e *Encoder) All() iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		for {
			chunk, err := e.Next()
			if err == io.EOF {
				return
			}
			if !yield(chunk, err) || err != nil {
				return
			}
		}
	}
}

// Count is the number of chunks produced so far.
func (e *Encoder) Count() int {
	return e.index
}

// Length is the number of bytes consumed so far.
func (e *Encoder) Length() int64 {
	return e.length
}

// Checksum is the hex xxhash64 of the bytes consumed so far.
func (e *Encoder) Checksum() string {
	return hex.EncodeToString(e.digest.Sum(nil))
}

// Checksum returns the hex xxhash64 of data, in the same format as
// Encoder.Checksum.
func Checksum(data []byte) string {
	d := xxhash.New()
	_, _ = d.Write(data)
	return hex.EncodeToString(d.Sum(nil))
}
