package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	kv "github.com/dvloznov/nova-bank/internal/storage"
	"google.golang.org/api/option"
)

// Location identifies where the keys live: one object per key under Prefix.
type Location struct {
	Bucket string
	Prefix string
}

// ParseLocation parses "bucket/optional/prefix", with or without a leading "gs://".
func ParseLocation(s string) (Location, error) {
	trimmed := strings.Trim(strings.TrimPrefix(s, "gs://"), "/")
	if trimmed == "" {
		return Location{}, fmt.Errorf("invalid GCS location %q: bucket is required", s)
	}

	parts := strings.SplitN(trimmed, "/", 2)
	loc := Location{Bucket: parts[0]}
	if len(parts) == 2 {
		loc.Prefix = parts[1]
	}
	return loc, nil
}

// ObjectName returns the object that holds key.
func (l Location) ObjectName(key string) string {
	if l.Prefix == "" {
		return key
	}
	return path.Join(l.Prefix, key)
}

// String renders the location as a gs:// URI.
func (l Location) String() string {
	return "gs://" + path.Join(l.Bucket, l.Prefix)
}

// Store is a KeyValueStore backed by Cloud Storage objects.
// It assumes Application Default Credentials unless opts say otherwise.
type Store struct {
	client *storage.Client
	loc    Location
}

// NewStore creates a store with a shared storage client.
func NewStore(ctx context.Context, loc Location, opts ...option.ClientOption) (*Store, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Store{client: client, loc: loc}, nil
}

// Get implements storage.KeyValueStore.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	object := s.loc.ObjectName(key)

	rc, err := s.client.Bucket(s.loc.Bucket).Object(object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return "", kv.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("open GCS object reader %s/%s: %w", s.loc.Bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read GCS object %s/%s: %w", s.loc.Bucket, object, err)
	}
	return string(data), nil
}

// Set implements storage.KeyValueStore.
func (s *Store) Set(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	object := s.loc.ObjectName(key)
	w := s.client.Bucket(s.loc.Bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType(key)

	if _, err := io.Copy(w, strings.NewReader(value)); err != nil {
		_ = w.Close()
		return fmt.Errorf("write GCS object %s/%s: %w", s.loc.Bucket, object, err)
	}

	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize GCS object %s/%s: %w", s.loc.Bucket, object, err)
	}
	return nil
}

// Close closes the storage client.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func contentType(key string) string {
	if strings.HasSuffix(key, "_transactions") {
		return "application/json"
	}
	return "text/plain; charset=utf-8"
}

var _ kv.KeyValueStore = (*Store)(nil)
