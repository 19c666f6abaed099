package media

import (
	"context"
	"errors"
	"os"

	"go.uber.org/zap"
)

// Uploader define la interfaz para subir archivos locales a
// almacenamiento durable y obtener una URL pública.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

type disabledUploader struct {
	reason string
}

func NewDisabledUploader(reason string) Uploader {
	return &disabledUploader{reason: reason}
}

func (u *disabledUploader) Upload(_ context.Context, _ string) (string, error) {
	if u.reason == "" {
		return "", errors.New("media uploader disabled")
	}
	return "", errors.New(u.reason)
}

// Cleanup elimina archivos temporales; ignora rutas vacías o ya
// borradas. Se llama en todas las salidas de un flujo con uploads.
func Cleanup(logger *zap.Logger, paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			if logger != nil {
				logger.Warn("temp file cleanup failed", zap.String("path", path), zap.Error(err))
			}
		}
	}
}
