// Package storage реализует файловое хранилище загруженных изображений.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shadowpaths-server/internal/interfaces"

	"go.uber.org/zap"
)

var _ interfaces.ObjectStorage = (*DiskStorage)(nil)

// DiskStorage кладет файлы в локальную директорию и отдает их по базовому URL.
type DiskStorage struct {
	dir     string
	baseURL string
	logger  *zap.Logger
}

// NewDiskStorage создает директорию загрузок, если ее нет.
func NewDiskStorage(dir, baseURL string, logger *zap.Logger) (*DiskStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads dir %s: %w", dir, err)
	}
	return &DiskStorage{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.Named("DiskStorage"),
	}, nil
}

// sanitizeFilename оставляет от имени только базовую часть без разделителей пути.
func sanitizeFilename(filename string) string {
	name := filepath.Base(filepath.Clean(filename))
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "upload"
	}
	return name
}

// Upload сохраняет файл под уникальным именем. StorageID и есть имя файла
// на диске; по нему же файл потом удаляется.
func (s *DiskStorage) Upload(ctx context.Context, filename string, r io.Reader) (*interfaces.StoredObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	storageID := fmt.Sprintf("%d_%s", time.Now().UnixNano(), sanitizeFilename(filename))
	path := filepath.Join(s.dir, storageID)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer f.Close()

	written, err := io.Copy(f, r)
	if err != nil {
		// Недописанный файл не оставляем
		os.Remove(path)
		return nil, fmt.Errorf("failed to write file %s: %w", path, err)
	}
	s.logger.Debug("File stored", zap.String("storageID", storageID), zap.Int64("bytes", written))

	return &interfaces.StoredObject{
		URL:       s.baseURL + "/" + storageID,
		StorageID: storageID,
	}, nil
}

// Delete удаляет файл; отсутствие файла не считается ошибкой.
func (s *DiskStorage) Delete(ctx context.Context, storageID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := filepath.Join(s.dir, sanitizeFilename(storageID))
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete file %s: %w", path, err)
	}
	return nil
}
