package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSettingsUnavailable means the settings root could not be listed, so the
// settings category cannot be trusted to be complete.
var ErrSettingsUnavailable = errors.New("settings folder unavailable")

// TransientError is a per-item failure that is logged while the batch
// continues.
type TransientError struct {
	Op   string
	Path string
	Err  error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// MissingFilesError lists required files absent after the download phase.
type MissingFilesError struct {
	Paths []string
}

func (e *MissingFilesError) Error() string {
	return "missing required files after download: " + strings.Join(e.Paths, ", ")
}

// UploadError aborts the upload phase. Work already done is not rolled back.
type UploadError struct {
	Step string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Step, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// ReportError is a failed notification. It never changes the outcome.
type ReportError struct {
	Err error
}

func (e *ReportError) Error() string {
	return fmt.Sprintf("send report: %v", e.Err)
}

func (e *ReportError) Unwrap() error {
	return e.Err
}
