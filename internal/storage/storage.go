package storage

import "context"

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStorage captures the minimal S3-compatible operations the upload
// archive needs.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DownloadObject(ctx context.Context, key string, destPath string) error
	UploadObject(ctx context.Context, key string, data []byte) error
}

type noopStorage struct{}

// NewNoopStorage returns a storage that drops uploads and lists nothing. Used
// when archiving is disabled.
func NewNoopStorage() ObjectStorage {
	return &noopStorage{}
}

func (n *noopStorage) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	return nil, nil
}

func (n *noopStorage) DownloadObject(ctx context.Context, key, destPath string) error {
	return nil
}

func (n *noopStorage) UploadObject(ctx context.Context, key string, data []byte) error {
	return nil
}
