package cloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"github.com/olimci/sleepsync/pkg/store/config"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCS keeps dated folders as object prefixes in a Cloud Storage bucket.
type GCS struct {
	client  *storage.Client
	bucket  string
	prefix  string
	timeout time.Duration
}

func NewGCS(ctx context.Context, cfg config.GCS, timeout time.Duration, opts ...option.ClientOption) (*GCS, error) {
	if len(opts) == 0 && cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &GCS{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  normalizePrefix(cfg.Prefix),
		timeout: timeout,
	}, nil
}

func (g *GCS) EnsureFolder(_ context.Context, name string) (Folder, error) {
	return Folder{ID: g.prefix + name + "/", Name: name}, nil
}

func (g *GCS) Upload(ctx context.Context, folder Folder, name, localPath string) error {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	key := folder.ID + name
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gs://%s/%s: %w", g.bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize gs://%s/%s: %w", g.bucket, key, err)
	}
	return nil
}

func (g *GCS) ListFolders(ctx context.Context) ([]Folder, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	var folders []Folder
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{
		Prefix:    g.prefix,
		Delimiter: "/",
	})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list gs://%s/%s: %w", g.bucket, g.prefix, err)
		}
		if attrs.Prefix == "" {
			continue
		}
		if folder, ok := folderFromPrefix(g.prefix, attrs.Prefix); ok {
			folders = append(folders, folder)
		}
	}
	return folders, nil
}

func (g *GCS) DeleteFolder(ctx context.Context, folder Folder) error {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	bucket := g.client.Bucket(g.bucket)
	it := bucket.Objects(ctx, &storage.Query{Prefix: folder.ID})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("list gs://%s/%s: %w", g.bucket, folder.ID, err)
		}
		if err := bucket.Object(attrs.Name).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("delete gs://%s/%s: %w", g.bucket, attrs.Name, err)
		}
	}
}

func (g *GCS) Close() error {
	return g.client.Close()
}
