package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/studybuddy/studybuddy-api/internal/config"
	"go.uber.org/zap"
)

// ErrObjectNotFound is returned by Open when no object exists at the path
var ErrObjectNotFound = errors.New("object not found")

// Object describes a stored file
type Object struct {
	// Path is the storage key, relative to the storage root
	Path        string
	Size        int64
	ContentType string
}

// Storage stores user uploads such as avatars
type Storage interface {
	Put(ctx context.Context, folder, filename, contentType string, data io.Reader) (*Object, error)
	Open(ctx context.Context, objectPath string) (io.ReadCloser, error)
	Delete(ctx context.Context, objectPath string) error
}

// NewStorage creates the backend selected by cfg.Mode.
// "local" writes to the filesystem, "cloud"/"azure" to Azure Blob Storage.
func NewStorage(cfg *config.StorageConfig, logger *zap.Logger) (Storage, error) {
	switch cfg.Mode {
	case "local":
		return NewLocalStorage(cfg.LocalBasePath, logger)
	case "cloud", "azure":
		if cfg.CloudConnectionString == "" {
			return nil, fmt.Errorf("cloud connection string required for azure storage")
		}
		return NewAzureBlobStorage(cfg.CloudConnectionString, cfg.CloudContainer, logger)
	default:
		return nil, fmt.Errorf("unsupported storage mode: %s", cfg.Mode)
	}
}

// objectKey builds a unique key under folder, keeping the upload's extension
func objectKey(folder, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join(folder, uuid.New().String()+ext)
}

// LocalStorage implements Storage on the local filesystem
type LocalStorage struct {
	basePath string
	logger   *zap.Logger
}

func NewLocalStorage(basePath string, logger *zap.Logger) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
		logger:   logger,
	}, nil
}

func (s *LocalStorage) Put(ctx context.Context, folder, filename, contentType string, data io.Reader) (*Object, error) {
	key := objectKey(folder, filename)
	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	size, err := io.Copy(file, data)
	if err != nil {
		os.Remove(fullPath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Debug("stored object",
		zap.String("path", key),
		zap.String("contentType", contentType),
		zap.Int64("size", size),
	)

	return &Object{Path: key, Size: size, ContentType: contentType}, nil
}

func (s *LocalStorage) Open(ctx context.Context, objectPath string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(objectPath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete removes an object; a missing object is not an error
func (s *LocalStorage) Delete(ctx context.Context, objectPath string) error {
	fullPath, err := s.resolve(objectPath)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// resolve maps a storage key to a path inside basePath and rejects keys escaping it
func (s *LocalStorage) resolve(objectPath string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(objectPath))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid object path: %q", objectPath)
	}
	return filepath.Join(s.basePath, clean), nil
}
