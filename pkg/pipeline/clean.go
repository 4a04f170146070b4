package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/olimci/sleepsync/pkg/flashair"
	"github.com/olimci/sleepsync/pkg/retention"
)

// CleanupResult lists what the three retention sweeps removed.
type CleanupResult struct {
	Local  []string
	Device []string
	Cloud  []string
	Failed int
}

// Clean runs the local, device and cloud sweeps. Each sweep is isolated: a
// failure is journaled and the next sweep still runs.
func (p *Pipeline) Clean(ctx context.Context) CleanupResult {
	now := p.now()
	var res CleanupResult

	p.cleanLocal(ctx, &res, now)
	p.cleanDevice(ctx, &res, now)
	p.cleanCloud(ctx, &res, now)

	return res
}

func (p *Pipeline) fail(ctx context.Context, res *CleanupResult, msg string) {
	res.Failed++
	p.journal.Error(ctx, stepCleanup, msg)
}

func (p *Pipeline) cleanLocal(ctx context.Context, res *CleanupResult, now time.Time) {
	sweep, err := retention.SweepLocal(ctx, p.opts.DownloadDir, p.opts.LocalDays, now)
	for _, path := range sweep.Deleted {
		res.Local = append(res.Local, path)
		p.journal.Success(ctx, stepCleanup, "Deleted local file: "+path)
	}
	for _, perr := range sweep.Failed {
		p.fail(ctx, res, "Failed to "+perr.Error())
	}
	if err != nil {
		p.fail(ctx, res, "Failed to clean up local files: "+err.Error())
	}
}

func (p *Pipeline) cleanDevice(ctx context.Context, res *CleanupResult, now time.Time) {
	entries, err := p.remote.List(ctx, p.opts.DatalogDir)
	if err != nil {
		p.fail(ctx, res, fmt.Sprintf("Failed to list %s for cleanup: %v", p.opts.DatalogDir, err))
		return
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}

	for _, name := range retention.ExpiredFolders(names, now, p.opts.RemoteDays) {
		path := flashair.JoinPath(p.opts.DatalogDir, name)
		if err := p.remote.Delete(ctx, path); err != nil {
			p.fail(ctx, res, fmt.Sprintf("Failed to delete %s from FlashAir: %v", path, err))
			continue
		}
		res.Device = append(res.Device, path)
		p.journal.Success(ctx, stepCleanup, "Deleted old folder from FlashAir: "+path)
	}
}

func (p *Pipeline) cleanCloud(ctx context.Context, res *CleanupResult, now time.Time) {
	if p.cloud == nil {
		return
	}

	folders, err := p.cloud.ListFolders(ctx)
	if err != nil {
		p.fail(ctx, res, "Failed to clean up old folders in cloud store: "+err.Error())
		return
	}

	for _, folder := range folders {
		expired, ok := retention.FolderExpired(folder.Name, now, p.opts.RemoteDays)
		if !ok || !expired {
			continue
		}
		if err := p.cloud.DeleteFolder(ctx, folder); err != nil {
			p.fail(ctx, res, fmt.Sprintf("Failed to delete %s from cloud store: %v", folder.Name, err))
			continue
		}
		res.Cloud = append(res.Cloud, folder.Name)
		p.journal.Success(ctx, stepCleanup, "Deleted old folder from cloud store: "+folder.Name)
	}
}
