package service

import (
	"context"

	"github.com/forgo/haven/api/internal/model"
	"github.com/forgo/haven/api/internal/storage"
)

// FileStore issues presigned URLs against object storage
type FileStore interface {
	PresignUpload(ctx context.Context, key, contentType string) (*model.UploadTarget, error)
	PresignDownload(ctx context.Context, key string) (*model.DownloadLink, error)
}

// presignImage checks the content type and returns an upload target under prefix
func presignImage(ctx context.Context, files FileStore, prefix, contentType string) (*model.UploadTarget, error) {
	return presign(ctx, files, prefix, contentType, model.AllowedImageTypes)
}

func presign(ctx context.Context, files FileStore, prefix, contentType string, allowed map[string]string) (*model.UploadTarget, error) {
	ext, ok := allowed[contentType]
	if !ok {
		return nil, ErrUnsupportedUpload
	}
	return files.PresignUpload(ctx, storage.ObjectKey(prefix, ext), contentType)
}

// keyPart strips the table prefix from a record id for use in object keys
func keyPart(id string) string {
	for i := 0; i < len(id); i++ {
		if id[i] == ':' {
			return id[i+1:]
		}
	}
	return id
}
