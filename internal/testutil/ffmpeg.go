package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// FakeFFmpeg writes a shell script standing in for ffmpeg. It prints stdout,
// writes stderr to standard error and exits with code. The test is skipped
// where /bin/sh is unavailable.
func FakeFFmpeg(t *testing.T, stdout []byte, stderr string, code int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake ffmpeg needs /bin/sh")
	}

	dir := t.TempDir()
	data := filepath.Join(dir, "stdout.bin")
	if err := os.WriteFile(data, stdout, 0o600); err != nil {
		t.Fatalf("write fake ffmpeg output: %v", err)
	}

	script := fmt.Sprintf("#!/bin/sh\ncat '%s'\nprintf '%%s\\n' '%s' >&2\nexit %d\n", data, stderr, code)
	path := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake ffmpeg: %v", err)
	}
	return path
}
