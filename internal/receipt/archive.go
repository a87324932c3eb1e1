package receipt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// Archiver stores original receipt images in a GCS bucket so the scan
// result can be audited later.
type Archiver struct {
	client *storage.Client
	bucket string
}

// NewArchiver creates an archiver using Application Default
// Credentials.
func NewArchiver(ctx context.Context, bucket string) (*Archiver, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("receipt: create storage client: %w", err)
	}
	return &Archiver{client: client, bucket: bucket}, nil
}

// Close releases the underlying storage client.
func (a *Archiver) Close() error {
	return a.client.Close()
}

// Archive uploads the image under receipts/<userID>/<uuid><ext> and
// returns the gs:// URI of the stored object.
func (a *Archiver) Archive(ctx context.Context, userID string, data []byte, mimeType string) (string, error) {
	objectName := fmt.Sprintf("receipts/%s/%s%s", userID, uuid.New().String(), extensionFor(mimeType))

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := a.client.Bucket(a.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = mimeType

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("receipt: copy to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("receipt: finalize upload: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", a.bucket, objectName), nil
}

// ObjectName extracts the object path from a gs:// URI produced by
// Archive, e.g. "gs://bucket/receipts/u/x.png" -> "receipts/u/x.png".
func ObjectName(uri string) (string, error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[1], nil
}

// Filename returns the base filename of a gs:// URI.
func Filename(uri string) string {
	obj, err := ObjectName(uri)
	if err != nil {
		return strings.TrimPrefix(uri, "gs://")
	}
	return path.Base(obj)
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
