package cloud

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/olimci/sleepsync/pkg/store/config"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

// Drive keeps dated folders under one parent folder of a Google Drive,
// authenticated with a service account.
type Drive struct {
	service  *drive.Service
	parentID string
	timeout  time.Duration
}

func NewDrive(ctx context.Context, cfg config.Drive, timeout time.Duration, opts ...option.ClientOption) (*Drive, error) {
	if cfg.FolderID == "" {
		return nil, fmt.Errorf("drive folder id is empty")
	}

	if len(opts) == 0 {
		opts = []option.ClientOption{
			option.WithCredentialsFile(cfg.CredentialsFile),
			option.WithScopes(drive.DriveScope),
		}
	}
	service, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &Drive{
		service:  service,
		parentID: cfg.FolderID,
		timeout:  timeout,
	}, nil
}

func (d *Drive) EnsureFolder(ctx context.Context, name string) (Folder, error) {
	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	existing, err := d.service.Files.List().
		Context(ctx).
		Q(folderQuery(d.parentID, name)).
		Fields("files(id, name)").
		PageSize(1).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Do()
	if err != nil {
		return Folder{}, fmt.Errorf("find drive folder %s: %w", name, err)
	}
	if len(existing.Files) > 0 {
		return Folder{ID: existing.Files[0].Id, Name: name}, nil
	}

	created, err := d.service.Files.Create(&drive.File{
		Name:     name,
		MimeType: folderMimeType,
		Parents:  []string{d.parentID},
	}).
		Context(ctx).
		Fields("id").
		SupportsAllDrives(true).
		Do()
	if err != nil {
		return Folder{}, fmt.Errorf("create drive folder %s: %w", name, err)
	}
	return Folder{ID: created.Id, Name: name}, nil
}

func (d *Drive) Upload(ctx context.Context, folder Folder, name, localPath string) error {
	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	_, err = d.service.Files.Create(&drive.File{
		Name:    path.Base(name),
		Parents: []string{folder.ID},
	}).
		Context(ctx).
		Media(f).
		Fields("id").
		SupportsAllDrives(true).
		Do()
	if err != nil {
		return fmt.Errorf("upload %s to drive folder %s: %w", name, folder.Name, err)
	}
	return nil
}

func (d *Drive) ListFolders(ctx context.Context) ([]Folder, error) {
	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	var folders []Folder
	err := d.service.Files.List().
		Q(folderQuery(d.parentID, "")).
		Fields("nextPageToken, files(id, name)").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				folders = append(folders, Folder{ID: f.Id, Name: f.Name})
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("list drive folders: %w", err)
	}
	return folders, nil
}

func (d *Drive) DeleteFolder(ctx context.Context, folder Folder) error {
	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.service.Files.Delete(folder.ID).Context(ctx).SupportsAllDrives(true).Do(); err != nil {
		return fmt.Errorf("delete drive folder %s: %w", folder.Name, err)
	}
	return nil
}

func (d *Drive) Close() error {
	return nil
}

// folderQuery selects live child folders of parent, optionally by exact name.
func folderQuery(parent, name string) string {
	q := fmt.Sprintf("'%s' in parents and trashed = false and mimeType = '%s'", escapeQuery(parent), folderMimeType)
	if name != "" {
		q += fmt.Sprintf(" and name = '%s'", escapeQuery(name))
	}
	return q
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
