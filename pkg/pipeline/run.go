package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/olimci/sleepsync/pkg/digest"
	"github.com/olimci/sleepsync/pkg/notify"
	"github.com/olimci/sleepsync/pkg/retention"
	"github.com/olimci/sleepsync/pkg/runlog"
	"github.com/olimci/sleepsync/pkg/sleephq"
	"github.com/olimci/sleepsync/pkg/utils/fileutils"
)

// localFile is a required file after download.
type localFile struct {
	RequiredFile
	Local string
	Sum   digest.Sum
}

// Run performs one synchronization and always sends exactly one report.
func (p *Pipeline) Run(ctx context.Context) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			p.journal.Error(ctx, stepCritical, "Critical Failure: "+err.Error())
			res = Result{Outcome: notify.OutcomeCriticalFailure, Err: err}
			p.report(ctx, res)
		}
	}()

	res = p.sync(ctx)
	p.report(ctx, res)
	return res
}

func (p *Pipeline) sync(ctx context.Context) Result {
	now := p.now()

	required, err := p.Select(ctx, now)
	if err != nil {
		p.journal.Error(ctx, stepListing, err.Error())
		return Result{Outcome: notify.OutcomeFatalBeforeUpload, Err: err}
	}
	res := Result{Required: len(required)}

	p.download(ctx, required)

	files, missing := p.locate(required)
	if len(missing) > 0 {
		err := &MissingFilesError{Paths: missing}
		p.journal.Error(ctx, stepValidation, "Missing required files after download: "+strings.Join(missing, ", "))
		res.Outcome = notify.OutcomeFatalBeforeUpload
		res.Missing = missing
		res.Err = err
		return res
	}

	candidates, newDatalog, skipped, err := p.gate(ctx, files)
	if err != nil {
		return p.critical(ctx, res, err)
	}
	res.Skipped = skipped

	if len(candidates) == 0 {
		p.journal.Success(ctx, stepValidation, "All files for today and yesterday have already been uploaded.")
		res.Outcome = notify.OutcomeSkippedAlreadyUploaded
		return res
	}
	if newDatalog == 0 {
		p.journal.Success(ctx, stepValidation, "No new DATALOG files to upload. Skipping upload.")
		res.Outcome = notify.OutcomeSkippedNoNewData
		return res
	}

	uploaded, err := p.upload(ctx, candidates, now)
	res.Uploaded = uploaded
	if err != nil {
		var upErr *UploadError
		if errors.As(err, &upErr) {
			p.journal.Error(ctx, stepUpload, "Failed during upload: "+err.Error())
			res.Outcome = notify.OutcomeUploadFailed
			res.Err = err
			return res
		}
		return p.critical(ctx, res, err)
	}

	res.Cleanup = p.Clean(ctx)

	if p.journal.ErrorCount() > 0 {
		res.Outcome = notify.OutcomeCompletedWithErrors
	} else {
		res.Outcome = notify.OutcomeCompletedSuccess
	}
	return res
}

func (p *Pipeline) critical(ctx context.Context, res Result, err error) Result {
	p.journal.Error(ctx, stepCritical, "Critical Failure: "+err.Error())
	res.Outcome = notify.OutcomeCriticalFailure
	res.Err = err
	return res
}

// localPath mirrors a card path under the download root.
func (p *Pipeline) localPath(remote string) string {
	return filepath.Join(p.opts.DownloadDir, filepath.FromSlash(strings.TrimPrefix(remote, "/")))
}

// download fetches every required file; failures are logged and left for
// the presence check.
func (p *Pipeline) download(ctx context.Context, required []RequiredFile) {
	for _, rf := range required {
		dest := p.localPath(rf.Remote)
		if _, err := p.remote.Fetch(ctx, rf.Remote, dest); err != nil {
			terr := &TransientError{Op: "download", Path: rf.Remote, Err: err}
			p.journal.Error(ctx, stepDownload, "Failed to "+terr.Error())
			continue
		}
		p.journal.Success(ctx, stepDownload, fmt.Sprintf("Downloaded file: %s to %s", rf.Remote, dest))
	}
}

func (p *Pipeline) locate(required []RequiredFile) ([]localFile, []string) {
	var (
		files   []localFile
		missing []string
	)
	for _, rf := range required {
		local := p.localPath(rf.Remote)
		if !fileutils.Exists(local) {
			missing = append(missing, rf.Remote)
			continue
		}
		files = append(files, localFile{RequiredFile: rf, Local: local})
	}
	return files, missing
}

// gate hashes every file and splits them into upload candidates and skipped
// datalog files. Settings and critical files are always candidates.
func (p *Pipeline) gate(ctx context.Context, files []localFile) (candidates []localFile, newDatalog int, skipped []string, err error) {
	known, err := p.ledger.Load()
	if err != nil {
		return nil, 0, nil, fmt.Errorf("load ledger: %w", err)
	}

	for _, f := range files {
		sum, err := digest.ForFile(f.Local)
		if err != nil {
			return nil, 0, nil, err
		}
		f.Sum = sum

		seen := known.Has(sum)
		switch {
		case f.Category != CategoryDatalog:
			candidates = append(candidates, f)
		case !seen:
			p.log.Debug(ctx, "new datalog", "path", f.Remote, "sum", sum.Short())
			candidates = append(candidates, f)
			newDatalog++
		default:
			p.log.Debug(ctx, "datalog already uploaded", "path", f.Remote, "sum", sum.Short())
			skipped = append(skipped, f.Remote)
		}
	}
	return candidates, newDatalog, skipped, nil
}

func (p *Pipeline) upload(ctx context.Context, files []localFile, now time.Time) ([]string, error) {
	if err := p.analytics.Authenticate(ctx); err != nil {
		return nil, &UploadError{Step: "authenticate", Err: err}
	}
	p.journal.Success(ctx, stepUpload, "Authenticated with SleepHQ")

	importID, err := p.analytics.CreateImport(ctx)
	if err != nil {
		return nil, &UploadError{Step: "create import", Err: err}
	}
	p.journal.Success(ctx, stepUpload, "Created Import ID: "+importID)

	var uploaded []string
	for _, f := range files {
		err := p.analytics.UploadFile(ctx, importID, sleephq.File{
			LocalPath: f.Local,
			Path:      strings.TrimPrefix(f.Remote, "/"),
			Sum:       f.Sum,
		})
		if err != nil {
			terr := &TransientError{Op: "attach", Path: f.Remote, Err: err}
			p.journal.Error(ctx, stepUpload, "Failed to "+terr.Error())
			continue
		}
		if err := p.ledger.Record(f.Sum); err != nil {
			return uploaded, fmt.Errorf("record %s: %w", f.Remote, err)
		}
		uploaded = append(uploaded, f.Remote)
		p.journal.Success(ctx, stepUpload, "Uploaded file to SleepHQ: "+f.Remote)
	}

	p.copyToCloud(ctx, files, retention.FolderName(now))

	if err := p.analytics.ProcessImport(ctx, importID); err != nil {
		return uploaded, &UploadError{Step: "process import", Err: err}
	}
	p.journal.Success(ctx, stepUpload, "Processed Import ID: "+importID)
	return uploaded, nil
}

func (p *Pipeline) copyToCloud(ctx context.Context, files []localFile, folderName string) {
	if p.cloud == nil {
		return
	}

	folder, err := p.cloud.EnsureFolder(ctx, folderName)
	if err != nil {
		p.journal.Error(ctx, stepCloud, fmt.Sprintf("Failed to prepare cloud folder %s, skipping cloud upload: %v", folderName, err))
		return
	}

	for _, f := range files {
		name := strings.TrimPrefix(f.Remote, "/")
		if err := p.cloud.Upload(ctx, folder, name, f.Local); err != nil {
			terr := &TransientError{Op: "upload to cloud", Path: f.Remote, Err: err}
			p.journal.Error(ctx, stepCloud, "Failed to "+terr.Error())
			continue
		}
		p.journal.Success(ctx, stepCloud, fmt.Sprintf("Uploaded file to cloud: %s in %s", f.Remote, folderName))
	}
}

func (p *Pipeline) report(ctx context.Context, res Result) {
	if p.notifier == nil {
		p.log.Debug(ctx, "email report disabled", "outcome", res.Outcome.String())
		return
	}

	subject := res.Outcome.Subject()
	body := notify.BuildReport(notify.Report{
		Outcome: res.Outcome,
		Missing: res.Missing,
		Skipped: res.Skipped,
		Success: p.journal.Lines(runlog.LevelSuccess),
		Errors:  p.journal.Lines(runlog.LevelError),
	})

	// the report still goes out after the run was cancelled
	sendCtx := context.WithoutCancel(ctx)
	if p.opts.ReportTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(sendCtx, p.opts.ReportTimeout)
		defer cancel()
	}

	if err := p.notifier.Send(sendCtx, subject, body); err != nil {
		p.journal.Error(ctx, stepNotification, (&ReportError{Err: err}).Error())
		return
	}
	p.journal.Success(ctx, stepNotification, "Sent email notification: "+subject)
}
