package codec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"testing"
	"testing/iotest"
)

type mapSource struct {
	chunks  map[int][]byte
	fetched []int
}

func (s *mapSource) GetChunk(_ context.Context, _ string, index int) ([]byte, error) {
	s.fetched = append(s.fetched, index)
	data, ok := s.chunks[index]
	if !ok {
		return nil, fmt.Errorf("chunk %d missing", index)
	}
	return data, nil
}

func encodeAll(t *testing.T, data []byte, chunkSize int) (*mapSource, *Encoder) {
	t.Helper()
	enc, err := NewEncoder(bytes.NewReader(data), chunkSize)
	if err != nil {
		t.Fatal(err)
	}
	src := &mapSource{chunks: map[int][]byte{}}
	for chunk, err := range enc.All() {
		if err != nil {
			t.Fatalf("encode failed: %v", err)
		}
		if len(chunk.Data) > chunkSize {
			t.Fatalf("chunk %d has %d bytes, limit %d", chunk.Index, len(chunk.Data), chunkSize)
		}
		src.chunks[chunk.Index] = append([]byte(nil), chunk.Data...)
	}
	return src, enc
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, chunkSize := range []int{1, 16, 1 << 20} {
		for _, size := range []int{0, 1, chunkSize, chunkSize + 1, 10 * chunkSize} {
			t.Run(fmt.Sprintf("chunk%d_len%d", chunkSize, size), func(t *testing.T) {
				data := make([]byte, size)
				rng.Read(data)

				src, enc := encodeAll(t, data, chunkSize)
				wantChunks := (size + chunkSize - 1) / chunkSize
				if enc.Count() != wantChunks || len(src.chunks) != wantChunks {
					t.Fatalf("expect %d chunks, got %d", wantChunks, enc.Count())
				}
				if enc.Length() != int64(size) {
					t.Fatalf("expect length %d, got %d", size, enc.Length())
				}

				r := NewReader(context.Background(), src, "obj", enc.Count(),
					WithLength(enc.Length()), WithChecksum(enc.Checksum()))
				got, err := io.ReadAll(r)
				if err != nil {
					t.Fatalf("decode failed: %v", err)
				}
				if !bytes.Equal(got, data) {
					t.Fatal("decoded bytes differ from input")
				}
			})
		}
	}
}

func TestEmptyInputYieldsNoChunks(t *testing.T) {
	enc, err := NewEncoder(strings.NewReader(""), 16)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := enc.Next(); err != io.EOF {
		t.Fatalf("expect io.EOF, got %v", err)
	}
	if enc.Count() != 0 || enc.Length() != 0 {
		t.Fatalf("expect empty result, got %d chunks %d bytes", enc.Count(), enc.Length())
	}
	if enc.Checksum() != Checksum(nil) {
		t.Fatal("empty checksum mismatch")
	}
}

func TestEncoderInvalidArgs(t *testing.T) {
	if _, err := NewEncoder(strings.NewReader("x"), 0); err == nil {
		t.Fatal("expect error for zero chunk size")
	}
	if _, err := NewEncoder(nil, 4); err == nil {
		t.Fatal("expect error for nil reader")
	}
}

func TestEncoderPropagatesReadError(t *testing.T) {
	boom := errors.New("client went away")
	r := io.MultiReader(strings.NewReader("0123456789abcdef"), iotest.ErrReader(boom))
	enc, err := NewEncoder(r, 8)
	if err != nil {
		t.Fatal(err)
	}
	var seen int
	var last error
	for _, err := range enc.All() {
		if err != nil {
			last = err
			break
		}
		seen++
	}
	if seen != 2 || !errors.Is(last, boom) {
		t.Fatalf("expect 2 chunks then %v, got %d chunks and %v", boom, seen, last)
	}
	if _, err := enc.Next(); !errors.Is(err, boom) {
		t.Fatalf("error should be sticky, got %v", err)
	}
}

func TestEncoderTreatsUnexpectedEOFAsFailure(t *testing.T) {
	for _, cut := range []int{12, 16} {
		r := io.MultiReader(strings.NewReader("0123456789abcdef"[:cut]), iotest.ErrReader(io.ErrUnexpectedEOF))
		enc, err := NewEncoder(r, 8)
		if err != nil {
			t.Fatal(err)
		}
		var seen int
		var last error
		for _, err := range enc.All() {
			if err != nil {
				last = err
				break
			}
			seen++
		}
		if !errors.Is(last, io.ErrUnexpectedEOF) {
			t.Fatalf("cut at %d: truncated source must fail, got %v after %d chunks", cut, last, seen)
		}
		if seen != cut/8 {
			t.Fatalf("cut at %d: expect %d full chunks before the error, got %d", cut, cut/8, seen)
		}
	}
}

func TestEncoderDataWithEOF(t *testing.T) {
	enc, err := NewEncoder(iotest.DataErrReader(strings.NewReader("0123456789abcdef")), 8)
	if err != nil {
		t.Fatal(err)
	}
	var sizes []int
	for chunk, err := range enc.All() {
		if err != nil {
			t.Fatal(err)
		}
		sizes = append(sizes, len(chunk.Data))
	}
	if fmt.Sprint(sizes) != "[8 8]" || enc.Length() != 16 {
		t.Fatalf("expect two full chunks and no empty tail, got %v", sizes)
	}
}

func TestEncoderHandlesShortReads(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	enc, err := NewEncoder(iotest.OneByteReader(bytes.NewReader(data)), 10)
	if err != nil {
		t.Fatal(err)
	}
	var sizes []int
	for chunk, err := range enc.All() {
		if err != nil {
			t.Fatal(err)
		}
		sizes = append(sizes, len(chunk.Data))
	}
	want := []int{10, 10, 10, 10, 3}
	if fmt.Sprint(sizes) != fmt.Sprint(want) {
		t.Fatalf("expect sizes %v, got %v", want, sizes)
	}
}

func TestReaderFetchesLazily(t *testing.T) {
	src, enc := encodeAll(t, []byte("aaaabbbbcccc"), 4)
	r := NewReader(context.Background(), src, "obj", enc.Count())
	buf := make([]byte, 4)
	if _, err := io.ReadFull(r, buf); err != nil {
		t.Fatal(err)
	}
	if len(src.fetched) != 1 {
		t.Fatalf("expect one fetched chunk, got %v", src.fetched)
	}
	if _, err := io.ReadFull(r, buf); err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(src.fetched) != "[0 1]" {
		t.Fatalf("expect ascending fetches, got %v", src.fetched)
	}
}

func TestReaderWriteTo(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789"), 100)
	src, enc := encodeAll(t, data, 64)
	r := NewReader(context.Background(), src, "obj", enc.Count(), WithChecksum(enc.Checksum()))
	var out bytes.Buffer
	n, err := io.Copy(&out, r)
	if err != nil {
		t.Fatalf("pipe failed: %v", err)
	}
	if n != int64(len(data)) || !bytes.Equal(out.Bytes(), data) {
		t.Fatalf("expect %d bytes piped, got %d", len(data), n)
	}
}

func TestReaderDetectsMissingChunk(t *testing.T) {
	src, enc := encodeAll(t, []byte("aaaabbbbcccc"), 4)
	delete(src.chunks, 1)
	r := NewReader(context.Background(), src, "obj", enc.Count())
	if _, err := io.ReadAll(r); err == nil {
		t.Fatal("expect error for missing chunk")
	}
}

func TestReaderDetectsCorruption(t *testing.T) {
	src, enc := encodeAll(t, []byte("aaaabbbbcccc"), 4)
	src.chunks[2] = []byte("cccd")
	r := NewReader(context.Background(), src, "obj", enc.Count(), WithChecksum(enc.Checksum()))
	if _, err := io.ReadAll(r); err == nil || !strings.Contains(err.Error(), "checksum mismatch") {
		t.Fatalf("expect checksum mismatch, got %v", err)
	}
}

func TestReaderDetectsLengthMismatch(t *testing.T) {
	src, enc := encodeAll(t, []byte("aaaabbbbcc"), 4)
	r := NewReader(context.Background(), src, "obj", enc.Count(), WithLength(12))
	if _, err := io.ReadAll(r); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expect unexpected EOF, got %v", err)
	}
}

func TestReaderCloseRunsHookOnce(t *testing.T) {
	src, enc := encodeAll(t, []byte("aaaabbbb"), 4)
	calls := 0
	r := NewReader(context.Background(), src, "obj", enc.Count(), OnClose(func() { calls++ }))
	_ = r.Close()
	_ = r.Close()
	if calls != 1 {
		t.Fatalf("expect one close hook call, got %d", calls)
	}
	if _, err := r.Read(make([]byte, 1)); !errors.Is(err, ErrClosed) {
		t.Fatalf("expect ErrClosed, got %v", err)
	}
}

func TestReaderHonoursContext(t *testing.T) {
	src, enc := encodeAll(t, []byte("aaaabbbb"), 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewReader(ctx, src, "obj", enc.Count())
	if _, err := r.Read(make([]byte, 4)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expect context canceled, got %v", err)
	}
}
