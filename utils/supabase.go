package utils

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"

	storage "github.com/supabase-community/storage-go"
)

// SupabaseUploader puts photo answers into a public storage bucket.
type SupabaseUploader struct {
	client *storage.Client
	bucket string
}

func NewSupabaseUploader(url, key, bucket string) *SupabaseUploader {
	return &SupabaseUploader{
		client: storage.NewClient(url+"/storage/v1", key, nil),
		bucket: bucket,
	}
}

// Upload stores fh as <folder>/<fileID><ext> and returns its public URL.
func (u *SupabaseUploader) Upload(ctx context.Context, fh *multipart.FileHeader, folder, fileID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	ext := filepath.Ext(fh.Filename)
	objectPath := fmt.Sprintf("%s%s", fileID, ext)
	if folder != "" {
		objectPath = fmt.Sprintf("%s/%s%s", folder, fileID, ext)
	}

	contentType := fh.Header.Get("Content-Type")
	upsert := true
	options := storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	}
	if _, err := u.client.UploadFile(u.bucket, objectPath, f, options); err != nil {
		return "", fmt.Errorf("upload %s: %w", objectPath, err)
	}

	publicURL := u.client.GetPublicUrl(u.bucket, objectPath)
	return publicURL.SignedURL, nil
}
