package storage

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"ChunkVault/internal/errs"

	"github.com/minio/minio-go/v7"
)

func TestChunkPath(t *testing.T) {
	key := ChunkPath("abc.png", 3)
	if key != "chunks/abc.png/3" {
		t.Fatalf("unexpected chunk path %s", key)
	}
	name, index, ok := parseChunkPath(key)
	if !ok || name != "abc.png" || index != 3 {
		t.Fatalf("parse failed: %s %d %v", name, index, ok)
	}
	for _, bad := range []string{"files/abc/1", "chunks/abc", "chunks/abc/x", "chunks//1", "chunks/abc/-1"} {
		if _, _, ok := parseChunkPath(bad); ok {
			t.Fatalf("expect %q to be rejected", bad)
		}
	}
}

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Ping(ctx); err != nil {
		t.Fatal(err)
	}

	buf := []byte("hello")
	if err := s.PutChunk(ctx, "a.txt", 0, buf); err != nil {
		t.Fatal(err)
	}
	buf[0] = 'j' // caller reuses its buffer
	got, err := s.GetChunk(ctx, "a.txt", 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("store must copy chunk data, got %q", got)
	}

	if _, err := s.GetChunk(ctx, "a.txt", 1); !errs.IsNotFound(err) {
		t.Fatalf("expect not found, got %v", err)
	}

	if err := s.RemoveChunks(ctx, "a.txt"); err != nil {
		t.Fatal(err)
	}
	if s.ChunkCount("a.txt") != 0 {
		t.Fatal("chunks should be gone")
	}
	if err := s.RemoveChunks(ctx, "a.txt"); err != nil {
		t.Fatalf("removing nothing should succeed, got %v", err)
	}
}

func TestMemoryStoreListOwners(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := base
	s.SetClock(func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	})
	_ = s.PutChunk(ctx, "b", 0, []byte("x"))
	_ = s.PutChunk(ctx, "a", 0, []byte("x"))
	_ = s.PutChunk(ctx, "a", 1, []byte("y"))

	owners, err := s.ListOwners(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(owners) != 2 || owners[0].ObjectName != "a" || owners[1].ObjectName != "b" {
		t.Fatalf("unexpected owners %+v", owners)
	}
	if owners[0].Chunks != 2 || !owners[0].OldestAt.Equal(base.Add(2*time.Minute)) {
		t.Fatalf("unexpected owner a %+v", owners[0])
	}
}

func TestMemoryStoreHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewMemoryStore()
	if err := s.PutChunk(ctx, "a", 0, []byte("x")); err == nil {
		t.Fatal("expect canceled context error")
	}
}

func TestForwardListingReportsListError(t *testing.T) {
	boom := errors.New("list failed")
	listing := make(chan minio.ObjectInfo, 3)
	listing <- minio.ObjectInfo{Key: "chunks/a/0"}
	listing <- minio.ObjectInfo{Err: boom}
	listing <- minio.ObjectInfo{Key: "chunks/a/1"}
	close(listing)

	objects, errCh := forwardListing(context.Background(), listing)
	var keys []string
	for object := range objects {
		keys = append(keys, object.Key)
	}
	if len(keys) != 1 || keys[0] != "chunks/a/0" {
		t.Fatalf("expect forwarding to stop at the error, got %v", keys)
	}
	if err := <-errCh; !errors.Is(err, boom) {
		t.Fatalf("expect list error, got %v", err)
	}
}

func TestForwardListingStopsWhenConsumerLeaves(t *testing.T) {
	listing := make(chan minio.ObjectInfo, 2)
	listing <- minio.ObjectInfo{Key: "chunks/a/0"}
	listing <- minio.ObjectInfo{Key: "chunks/a/1"}
	close(listing)

	ctx, cancel := context.WithCancel(context.Background())
	objects, errCh := forwardListing(ctx, listing)
	<-objects
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) && err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	for range objects {
	}
}

func TestForwardListingCleanEnd(t *testing.T) {
	listing := make(chan minio.ObjectInfo, 1)
	listing <- minio.ObjectInfo{Key: "chunks/a/0"}
	close(listing)

	objects, errCh := forwardListing(context.Background(), listing)
	n := 0
	for range objects {
		n++
	}
	if n != 1 {
		t.Fatalf("expect one object, got %d", n)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("expect nil error, got %v", err)
	}
}
