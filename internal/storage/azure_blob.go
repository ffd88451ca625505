package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"go.uber.org/zap"
)

// avatarCacheControl is stored on every blob; keys are never reused
const avatarCacheControl = "private, max-age=86400"

// AzureBlobStorage keeps uploads in one Azure Blob Storage container
type AzureBlobStorage struct {
	client    *azblob.Client
	container string
	logger    *zap.Logger
}

// NewAzureBlobStorage connects to the account and creates the container when missing
func NewAzureBlobStorage(connectionString, container string, logger *zap.Logger) (*AzureBlobStorage, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := client.CreateContainer(ctx, container, nil); err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return nil, fmt.Errorf("failed to create container %s: %w", container, err)
	}

	logger.Info("Azure Blob Storage initialized", zap.String("container", container))
	return &AzureBlobStorage{client: client, container: container, logger: logger}, nil
}

func (s *AzureBlobStorage) Put(ctx context.Context, folder, filename, contentType string, data io.Reader) (*Object, error) {
	key := objectKey(folder, filename)
	counted := &countingReader{r: data}
	cacheControl := avatarCacheControl

	_, err := s.client.UploadStream(ctx, s.container, key, counted, &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType:  &contentType,
			BlobCacheControl: &cacheControl,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", key, err)
	}

	s.logger.Info("blob uploaded", append(s.fields(key), zap.String("contentType", contentType), zap.Int64("size", counted.n))...)
	return &Object{Path: key, Size: counted.n, ContentType: contentType}, nil
}

func (s *AzureBlobStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, key, nil)
	switch {
	case bloberror.HasCode(err, bloberror.BlobNotFound):
		return nil, ErrObjectNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}
	return resp.Body, nil
}

// Delete removes the blob; a blob that is already gone is not an error
func (s *AzureBlobStorage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteBlob(ctx, s.container, key, nil)
	switch {
	case bloberror.HasCode(err, bloberror.BlobNotFound):
		s.logger.Debug("blob already deleted", s.fields(key)...)
		return nil
	case err != nil:
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}

	s.logger.Info("blob deleted", s.fields(key)...)
	return nil
}

func (s *AzureBlobStorage) fields(key string) []zap.Field {
	return []zap.Field{zap.String("blobName", key), zap.String("container", s.container)}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
