// Package pipeline runs one synchronization from the FlashAir card to the
// analytics service and the cloud store.
package pipeline

import (
	"context"
	"time"

	"github.com/olimci/sleepsync/pkg/cloud"
	"github.com/olimci/sleepsync/pkg/digest"
	"github.com/olimci/sleepsync/pkg/flashair"
	"github.com/olimci/sleepsync/pkg/logging"
	"github.com/olimci/sleepsync/pkg/notify"
	"github.com/olimci/sleepsync/pkg/runlog"
	"github.com/olimci/sleepsync/pkg/sleephq"
	"github.com/olimci/sleepsync/pkg/store/ledger"
)

// Journal step labels.
const (
	stepListing      = "Listing"
	stepDownload     = "Download"
	stepValidation   = "Validation"
	stepUpload       = "Upload"
	stepCloud        = "Cloud"
	stepCleanup      = "Cleanup"
	stepNotification = "Notification"
	stepCritical     = "Critical"
)

type RemoteSource interface {
	flashair.Lister
	Fetch(ctx context.Context, remote, dest string) (int64, error)
	Delete(ctx context.Context, path string) error
}

type Analytics interface {
	Authenticate(ctx context.Context) error
	CreateImport(ctx context.Context) (string, error)
	UploadFile(ctx context.Context, importID string, f sleephq.File) error
	ProcessImport(ctx context.Context, importID string) error
}

type Ledger interface {
	Load() (ledger.Set, error)
	Record(sum digest.Sum) error
}

type Journal interface {
	Success(ctx context.Context, step, msg string)
	Error(ctx context.Context, step, msg string)
	ErrorCount() int
	Lines(level runlog.Level) []string
}

type Options struct {
	DownloadDir   string
	DatalogDir    string
	SettingsDir   string
	CriticalFiles []string
	LocalDays     int
	RemoteDays    int
	ReportTimeout time.Duration // bounds the report send; zero means unbounded
}

// Deps are the collaborators of a run. Cloud and Notifier may be nil to
// disable the cloud copy and the email report.
type Deps struct {
	Remote    RemoteSource
	Analytics Analytics
	Cloud     cloud.Store
	Ledger    Ledger
	Journal   Journal
	Notifier  notify.Sender
	Logger    logging.Logger
	Now       func() time.Time
}

type Pipeline struct {
	opts      Options
	remote    RemoteSource
	analytics Analytics
	cloud     cloud.Store
	ledger    Ledger
	journal   Journal
	notifier  notify.Sender
	log       logging.Logger
	now       func() time.Time
}

func New(opts Options, deps Deps) *Pipeline {
	p := &Pipeline{
		opts:      opts,
		remote:    deps.Remote,
		analytics: deps.Analytics,
		cloud:     deps.Cloud,
		ledger:    deps.Ledger,
		journal:   deps.Journal,
		notifier:  deps.Notifier,
		log:       deps.Logger,
		now:       deps.Now,
	}
	if p.log == nil {
		p.log = logging.Discard()
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Result summarizes a finished run.
type Result struct {
	Outcome  notify.Outcome
	Required int
	Uploaded []string // remote paths attached to the import
	Skipped  []string // datalog paths already in the ledger
	Missing  []string
	Cleanup  CleanupResult
	Err      error
}
