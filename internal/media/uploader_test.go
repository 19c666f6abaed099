package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestCleanup_RemovesFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "temp.png")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatalf("write temp: %v", err)
	}

	Cleanup(zap.NewNop(), path)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected file to be removed")
	}
}

func TestCleanup_IgnoresMissingAndEmptyPaths(t *testing.T) {
	// No debe entrar en pánico ni fallar por rutas vacías o ausentes.
	Cleanup(zap.NewNop(), "", filepath.Join(t.TempDir(), "never-existed.png"))
	Cleanup(nil, "")
}

func TestDisabledUploader_AlwaysFails(t *testing.T) {
	uploader := NewDisabledUploader("media uploader not configured")

	if _, err := uploader.Upload(context.Background(), "whatever.png"); err == nil {
		t.Fatalf("expected disabled uploader to fail")
	}
}
