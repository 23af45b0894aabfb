package errs

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	err := NotFound("getByName", "missing.txt")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expect ErrNotFound, got %v", err)
	}
	if errors.Is(err, ErrDuplicateName) {
		t.Fatal("not found error must not match duplicate name")
	}
	if err.Error() != "getByName: object not found (missing.txt)" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestStreamIOKeepsClassifiedErrors(t *testing.T) {
	nf := NotFound("get", "a")
	if got := StreamIO("read", "a", nf); got != nf {
		t.Fatalf("classified error should be returned unchanged, got %v", got)
	}
	wrapped := StreamIO("read", "a", io.ErrUnexpectedEOF)
	if !errors.Is(wrapped, ErrStreamIO) || !errors.Is(wrapped, io.ErrUnexpectedEOF) {
		t.Fatalf("expect stream io wrapping cause, got %v", wrapped)
	}
	if StreamIO("read", "a", nil) != nil {
		t.Fatal("nil cause should stay nil")
	}
}

func TestErrorsAsThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("upload: %w", DuplicateName("put", "x.png"))
	var e *Error
	if !errors.As(err, &e) {
		t.Fatal("expect *Error in chain")
	}
	if e.Name != "x.png" || !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("unexpected error %+v", e)
	}
}
