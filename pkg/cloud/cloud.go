// Package cloud stores dated copies of uploaded files in a cloud folder
// store. Backends: Google Drive, S3 and Google Cloud Storage.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olimci/sleepsync/pkg/store/config"
)

// ErrDisabled is returned by New when the backend is "none".
var ErrDisabled = errors.New("cloud store disabled")

// Folder is a direct child folder of the configured parent. ID is backend
// specific: a Drive file id or an object key prefix.
type Folder struct {
	ID   string
	Name string
}

type Store interface {
	// EnsureFolder finds the child folder with exactly this name or creates it.
	EnsureFolder(ctx context.Context, name string) (Folder, error)
	// Upload stores localPath in folder. name is the slash separated card path
	// relative to the card root; prefix backends keep it whole so files with
	// the same base name do not collide, Drive uses only the base name.
	Upload(ctx context.Context, folder Folder, name, localPath string) error
	ListFolders(ctx context.Context) ([]Folder, error)
	// DeleteFolder removes the folder and everything in it.
	DeleteFolder(ctx context.Context, folder Folder) error
	Close() error
}

// New opens the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.Cloud) (Store, error) {
	timeout := cfg.Timeout.Duration

	switch cfg.Backend {
	case config.BackendDrive:
		return NewDrive(ctx, cfg.Drive, timeout)
	case config.BackendS3:
		return NewS3(ctx, cfg.S3, timeout)
	case config.BackendGCS:
		return NewGCS(ctx, cfg.GCS, timeout)
	case config.BackendNone, "":
		return nil, ErrDisabled
	default:
		return nil, fmt.Errorf("unsupported cloud backend %q", cfg.Backend)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// normalizePrefix turns "a/b" into "a/b/" and "" or "/" into "".
func normalizePrefix(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

// folderFromPrefix maps a delimiter common prefix back to a child folder.
func folderFromPrefix(root, common string) (Folder, bool) {
	name := strings.TrimSuffix(strings.TrimPrefix(common, root), "/")
	if name == "" || strings.Contains(name, "/") {
		return Folder{}, false
	}
	return Folder{ID: common, Name: name}, true
}
