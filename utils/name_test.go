package utils

import (
	"errors"
	"regexp"
	"testing"
	"testing/iotest"

	"ChunkVault/internal/errs"
)

var namePattern = regexp.MustCompile(`^[0-9a-f]{32}(\.[A-Za-z0-9]+)?$`)

func TestFileExt(t *testing.T) {
	testCases := []struct {
		filename string
		expected string
	}{
		{"photo.png", ".png"},
		{"archive.tar.gz", ".gz"},
		{"README", ""},
		{"", ""},
		{"dir/sub/notes.TXT", ".TXT"},
		{`C:\Users\bo\pic.jpeg`, ".jpeg"},
	}
	for _, tc := range testCases {
		if got := FileExt(tc.filename); got != tc.expected {
			t.Fatalf("FileExt(%q) failed: expect %q, got %q", tc.filename, tc.expected, got)
		}
	}
}

func TestGenerateObjectName(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		name, err := GenerateObjectName(".png")
		if err != nil {
			t.Fatal(err)
		}
		if !namePattern.MatchString(name) {
			t.Fatalf("unexpected name format: %s", name)
		}
		if seen[name] {
			t.Fatalf("name reused: %s", name)
		}
		seen[name] = true
	}

	name, err := GenerateObjectName("")
	if err != nil {
		t.Fatal(err)
	}
	if len(name) != 32 {
		t.Fatalf("expect bare 32 char token, got %s", name)
	}
}

func TestGenerateObjectNameEntropyFailure(t *testing.T) {
	saved := EntropySource
	EntropySource = iotest.ErrReader(errors.New("no entropy"))
	defer func() { EntropySource = saved }()

	if _, err := GenerateObjectName(".png"); !errors.Is(err, errs.ErrEntropySource) {
		t.Fatalf("expect entropy source error, got %v", err)
	}
}
