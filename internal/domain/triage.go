package domain

import (
	"context"
	"time"
)

// InputFolder is the reserved name of the unsorted source directory. It can
// never be created, deleted or used as a move target.
const InputFolder = "input"

// Session grants its holder exclusive editing rights over the working
// directory. At most one live Session exists at any instant.
type Session struct {
	Token         string
	LastHeartbeat time.Time
}

// Folder is a category directory inside the working directory. IsEmpty and
// PendingCount are derived fresh from storage and the action stack on every
// query, never cached.
type Folder struct {
	Name         string
	IsEmpty      bool
	PendingCount int
}

// CanDelete reports whether the folder may be removed: it must hold no files
// and no pending action may reference it.
func (f Folder) CanDelete() bool {
	return f.IsEmpty && f.PendingCount == 0
}

// PendingAction is a recorded, not-yet-applied intent to move one image from
// the input folder into a category folder.
type PendingAction struct {
	ImageName    string
	TargetFolder string
	RecordedAt   time.Time
}

// TrainingRecord is one hash ledger entry: which image content (by hash) has
// been used for training, and under which category label.
type TrainingRecord struct {
	ContentHash string
	Category    string
	TrainedAt   time.Time
}

// TrainingExample carries one labeled image to the classifier.
type TrainingExample struct {
	ContentHash string
	Category    string
	Data        []byte
}

// ImagePayload is the currently displayed image as served to the operator.
type ImagePayload struct {
	Name     string
	Data     []byte
	MimeType string
}

// ActionOutcome describes what happened to a single pending action during
// commit.
type ActionOutcome struct {
	Action PendingAction
	Moved  bool
	Reason string
}

// CommitStatus summarizes a whole commit batch.
type CommitStatus string

const (
	CommitComplete CommitStatus = "complete"
	CommitPartial  CommitStatus = "partial"
	CommitFailed   CommitStatus = "failed"
)

// CommitReport is the structured result of a commit: the overall status plus
// one outcome per drained action, so partial failures can be reported
// precisely. TrainError is set when the incremental fit failed; moved files
// are never rolled back on a training failure.
type CommitReport struct {
	Status     CommitStatus
	Outcomes   []ActionOutcome
	Trained    bool
	TrainError string
}

// Classifier is the external model capability. Predict returns a confidence
// per known category in [0, 1]. The fit methods block until training is done.
type Classifier interface {
	Predict(ctx context.Context, image []byte) (map[string]float64, error)
	FitIncremental(ctx context.Context, examples []TrainingExample) error
	FitInitial(ctx context.Context, examples []TrainingExample) error
}

// LedgerRepository persists training records across process restarts.
type LedgerRepository interface {
	// Get retrieves a record by content hash, or nil if absent.
	Get(ctx context.Context, contentHash string) (*TrainingRecord, error)

	// Put creates or updates the record for a content hash.
	Put(ctx context.Context, contentHash, category string) error

	// Snapshot returns the full ledger as a content hash to category map.
	Snapshot(ctx context.Context) (map[string]string, error)

	// Replace atomically swaps the whole ledger for the given records.
	Replace(ctx context.Context, records []TrainingRecord) error

	// Count returns the number of ledger entries.
	Count(ctx context.Context) (int64, error)
}
