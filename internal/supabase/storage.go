package supabase

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/google/uuid"
	storage "github.com/supabase-community/storage-go"
)

// StorageClient archives submission manifests.
type StorageClient struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

func NewStorageClient(supabaseURL, apiKey, bucket string) *StorageClient {
	baseURL := strings.TrimSuffix(supabaseURL, "/")
	client := storage.NewClient(baseURL+"/storage/v1", apiKey, nil)

	return &StorageClient{
		client:  client,
		bucket:  bucket,
		baseURL: baseURL,
	}
}

// ManifestPath is operators/{operator}/submissions/{id}.json.
func ManifestPath(operatorID string, submissionID uuid.UUID) string {
	return fmt.Sprintf("operators/%s/submissions/%s.json", operatorID, submissionID.String())
}

// UploadManifest stores a JSON manifest and returns its path in the bucket.
// An existing manifest for the same submission is overwritten.
func (s *StorageClient) UploadManifest(operatorID string, submissionID uuid.UUID, data []byte) (string, error) {
	storagePath := ManifestPath(operatorID, submissionID)

	contentType := "application/json"
	upsert := true
	_, err := s.client.UploadFile(s.bucket, storagePath, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload manifest: %w", err)
	}

	return storagePath, nil
}

func (s *StorageClient) DownloadManifest(storagePath string) ([]byte, error) {
	data, err := s.client.DownloadFile(s.bucket, storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to download manifest: %w", err)
	}

	return data, nil
}
