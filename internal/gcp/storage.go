package gcp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// ResolveGCSURI normalizes an uploaded file's URL into a gs:// URI so it can
// be handed to Vertex AI directly. It accepts gs:// URIs as-is and rewrites
// the common HTTPS forms of Cloud Storage object URLs.
func ResolveGCSURI(fileURL string) (string, error) {
	if strings.HasPrefix(fileURL, "gs://") {
		return fileURL, nil
	}

	u, err := url.Parse(fileURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse file URL %q: %w", fileURL, err)
	}

	switch {
	// https://storage.googleapis.com/<bucket>/<object>
	case u.Host == "storage.googleapis.com" || u.Host == "storage.cloud.google.com":
		parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return "", fmt.Errorf("file URL %q does not name a bucket and object", fileURL)
		}
		return "gs://" + parts[0] + "/" + parts[1], nil

	// https://firebasestorage.googleapis.com/v0/b/<bucket>/o/<object%2Fpath>
	case u.Host == "firebasestorage.googleapis.com":
		parts := strings.SplitN(strings.TrimPrefix(u.Path, "/v0/b/"), "/o/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return "", fmt.Errorf("file URL %q does not name a bucket and object", fileURL)
		}
		object, err := url.PathUnescape(parts[1])
		if err != nil {
			return "", fmt.Errorf("failed to unescape object path in %q: %w", fileURL, err)
		}
		return "gs://" + parts[0] + "/" + object, nil

	default:
		return "", fmt.Errorf("unsupported file URL %q: expected a gs:// URI or a Cloud Storage URL", fileURL)
	}
}

// AudioMIMEType maps a file extension to the MIME type Vertex expects for
// audio input. Unknown extensions default to mp3, the dominant upload format.
func AudioMIMEType(fileURL string) string {
	lower := strings.ToLower(fileURL)
	switch {
	case strings.HasSuffix(lower, ".wav"):
		return "audio/wav"
	case strings.HasSuffix(lower, ".flac"):
		return "audio/flac"
	case strings.HasSuffix(lower, ".ogg"):
		return "audio/ogg"
	case strings.HasSuffix(lower, ".m4a"), strings.HasSuffix(lower, ".aac"):
		return "audio/aac"
	default:
		return "audio/mpeg"
	}
}

// SaveObjectOnce writes content to a GCS object only if it doesn't already
// exist, so replayed durable steps never clobber an earlier write.
func SaveObjectOnce(ctx context.Context, bucket *storage.BucketHandle, objectName, content string) error {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)

	if _, err := io.Copy(writer, strings.NewReader(content)); err != nil {
		_ = writer.Close()
		if gerr, ok := err.(*googleapi.Error); ok && gerr.Code == 412 {
			slog.Info("Object already exists, skipping write.", "gcsObject", objectName)
			return nil // Not a failure in an idempotent workflow.
		}
		return fmt.Errorf("failed to write to GCS object %s: %w", objectName, err)
	}

	if err := writer.Close(); err != nil {
		if gerr, ok := err.(*googleapi.Error); ok && gerr.Code == 412 {
			slog.Info("Object already exists, skipping write.", "gcsObject", objectName)
			return nil
		}
		return fmt.Errorf("failed to finalize GCS write for %s: %w", objectName, err)
	}
	return nil
}
