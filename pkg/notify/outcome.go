// Package notify builds the run report and delivers it by email.
package notify

// Outcome classifies a finished run.
type Outcome int

const (
	OutcomeCompletedSuccess Outcome = iota
	OutcomeCompletedWithErrors
	OutcomeSkippedNoNewData
	OutcomeSkippedAlreadyUploaded
	OutcomeFatalBeforeUpload
	OutcomeUploadFailed
	OutcomeCriticalFailure
)

var outcomeNames = map[Outcome]string{
	OutcomeCompletedSuccess:       "completed-success",
	OutcomeCompletedWithErrors:    "completed-with-errors",
	OutcomeSkippedNoNewData:       "skipped-no-new-data",
	OutcomeSkippedAlreadyUploaded: "skipped-already-uploaded",
	OutcomeFatalBeforeUpload:      "fatal-before-upload",
	OutcomeUploadFailed:           "upload-failed",
	OutcomeCriticalFailure:        "critical-failure",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// Failed reports whether the run should exit non-zero.
func (o Outcome) Failed() bool {
	switch o {
	case OutcomeFatalBeforeUpload, OutcomeUploadFailed, OutcomeCriticalFailure:
		return true
	default:
		return false
	}
}

func (o Outcome) Subject() string {
	switch o {
	case OutcomeCompletedSuccess:
		return "✅ FlashAir and SleepHQ Upload Success"
	case OutcomeCompletedWithErrors:
		return "⚠️ FlashAir and SleepHQ Upload Completed With Errors"
	case OutcomeSkippedNoNewData:
		return "✅ FlashAir and SleepHQ Upload Skipped (No New DATALOG)"
	case OutcomeSkippedAlreadyUploaded:
		return "✅ FlashAir and SleepHQ Upload Skipped"
	case OutcomeCriticalFailure:
		return "🚨 FlashAir and SleepHQ Upload Critical Failure"
	default:
		return "🚨 FlashAir and SleepHQ Upload Failed"
	}
}
