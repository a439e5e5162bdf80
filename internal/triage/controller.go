// Package triage orchestrates the session-scoped triage loop: serving the
// next unsorted image, recording and undoing pending decisions, and applying
// the whole batch at commit time together with an incremental model update.
package triage

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/lewtec/triador/internal/domain"
	"github.com/lewtec/triador/internal/registry"
	"github.com/lewtec/triador/internal/stack"
	"github.com/lewtec/triador/internal/storage"
)

// Controller owns the working directory and the classifier weights while a
// session is active. All operations run under one mutex: the action stack,
// the folder view and the filesystem are mutated together and no operation
// may interleave with another's read-modify-write sequence. Commit and
// initialize hold the lock for their whole duration; with a single live
// session there is no one else to starve.
type Controller struct {
	mu         sync.Mutex
	store      *storage.WorkDir
	stack      *stack.Stack
	registry   *registry.Registry
	ledger     domain.LedgerRepository
	classifier domain.Classifier
	logger     *zap.Logger
}

// NewController wires the triage engine together.
func NewController(
	store *storage.WorkDir,
	actions *stack.Stack,
	folders *registry.Registry,
	ledger domain.LedgerRepository,
	classifier domain.Classifier,
	logger *zap.Logger,
) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		store:      store,
		stack:      actions,
		registry:   folders,
		ledger:     ledger,
		classifier: classifier,
		logger:     logger,
	}
}

// CurrentImage returns the next file in the input folder in lexicographic
// order, skipping filenames that already have a pending action. It is a pure
// read: recomputed on every call, never cached.
func (c *Controller) CurrentImage(ctx context.Context) (*domain.ImagePayload, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	name, err := c.currentName()
	if err != nil {
		return nil, err
	}
	data, err := c.store.ReadImage(domain.InputFolder, name)
	if err != nil {
		return nil, err
	}
	return &domain.ImagePayload{
		Name:     name,
		Data:     data,
		MimeType: storage.MimeType(name),
	}, nil
}

// Classify returns the classifier's per-category confidences for an image.
// The image must be resolvable by the current-image selection rule; an image
// already pending is no longer current and cannot be classified.
func (c *Controller) Classify(ctx context.Context, imageName string) (map[string]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	candidates, err := c.candidateNames()
	if err != nil {
		return nil, err
	}
	found := false
	for _, name := range candidates {
		if name == imageName {
			found = true
			break
		}
	}
	if !found {
		return nil, domain.ErrImageNotFound
	}
	data, err := c.store.ReadImage(domain.InputFolder, imageName)
	if err != nil {
		return nil, err
	}
	return c.classifier.Predict(ctx, data)
}

// Assign records a pending move of an image to a category folder. This is the
// only path by which an image stops being current.
func (c *Controller) Assign(ctx context.Context, imageName, targetFolder string) (domain.PendingAction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if strings.EqualFold(targetFolder, domain.InputFolder) {
		return domain.PendingAction{}, domain.ErrReservedTarget
	}
	exists, err := c.registry.Exists(targetFolder)
	if err != nil {
		return domain.PendingAction{}, err
	}
	if !exists {
		return domain.PendingAction{}, domain.ErrFolderNotFound
	}
	present, err := c.store.HasImage(domain.InputFolder, imageName)
	if err != nil {
		return domain.PendingAction{}, err
	}
	if !present {
		return domain.PendingAction{}, domain.ErrImageNotFound
	}
	action, err := c.stack.Push(imageName, targetFolder)
	if err != nil {
		return domain.PendingAction{}, err
	}
	c.logger.Info("action recorded",
		zap.String("image", imageName),
		zap.String("folder", targetFolder),
		zap.Int("pending", c.stack.Len()))
	return action, nil
}

// Undo removes the most recently recorded action. The file never moved, so
// the image becomes a current-image candidate again.
func (c *Controller) Undo(ctx context.Context) (domain.PendingAction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	action, err := c.stack.Pop()
	if err != nil {
		return domain.PendingAction{}, err
	}
	c.logger.Info("action undone",
		zap.String("image", action.ImageName),
		zap.String("folder", action.TargetFolder))
	return action, nil
}

// Pending returns the recorded actions, oldest first.
func (c *Controller) Pending(ctx context.Context) []domain.PendingAction {
	return c.stack.PeekAll()
}

// Commit drains the action stack and applies every action to storage, oldest
// first. Individual move failures are isolated: they are reported per action
// and never block or roll back their siblings. Successfully moved images that
// the ledger has not seen under their new category feed one incremental fit;
// a fit failure is reported but the moves stand, since the filesystem is the
// source of truth. Once drained, actions are never re-inserted.
func (c *Controller) Commit(ctx context.Context) (*domain.CommitReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stack.Len() == 0 {
		return nil, domain.ErrNothingToCommit
	}
	actions := c.stack.Drain()
	report := &domain.CommitReport{Outcomes: make([]domain.ActionOutcome, 0, len(actions))}

	type movedImage struct {
		hash     string
		category string
		data     []byte
	}
	var moved []movedImage
	for _, action := range actions {
		data, err := c.store.ReadImage(domain.InputFolder, action.ImageName)
		if err != nil {
			report.Outcomes = append(report.Outcomes, domain.ActionOutcome{
				Action: action, Reason: err.Error(),
			})
			c.logger.Warn("commit: skipping action",
				zap.String("image", action.ImageName), zap.Error(err))
			continue
		}
		if err := c.store.Move(domain.InputFolder, action.TargetFolder, action.ImageName); err != nil {
			report.Outcomes = append(report.Outcomes, domain.ActionOutcome{
				Action: action, Reason: err.Error(),
			})
			c.logger.Warn("commit: move failed",
				zap.String("image", action.ImageName), zap.Error(err))
			continue
		}
		report.Outcomes = append(report.Outcomes, domain.ActionOutcome{Action: action, Moved: true})
		moved = append(moved, movedImage{
			hash:     storage.Hash(data),
			category: action.TargetFolder,
			data:     data,
		})
	}

	// only content the ledger has not seen under this label goes to the fit
	var examples []domain.TrainingExample
	for _, m := range moved {
		rec, err := c.ledger.Get(ctx, m.hash)
		if err != nil {
			return nil, fmt.Errorf("while consulting hash ledger: %w", err)
		}
		if rec != nil && rec.Category == m.category {
			continue
		}
		examples = append(examples, domain.TrainingExample{
			ContentHash: m.hash,
			Category:    m.category,
			Data:        m.data,
		})
	}

	if len(examples) > 0 {
		if err := c.classifier.FitIncremental(ctx, examples); err != nil {
			report.TrainError = err.Error()
			c.logger.Error("commit: incremental fit failed, predictions stay stale",
				zap.Error(err))
		} else {
			report.Trained = true
		}
	}

	// every moved file enters the ledger, whatever the retrain outcome
	for _, m := range moved {
		if err := c.ledger.Put(ctx, m.hash, m.category); err != nil {
			return report, fmt.Errorf("while updating hash ledger: %w", err)
		}
	}

	switch {
	case len(moved) == len(actions):
		report.Status = domain.CommitComplete
	case len(moved) > 0:
		report.Status = domain.CommitPartial
	default:
		report.Status = domain.CommitFailed
	}
	c.logger.Info("commit finished",
		zap.String("status", string(report.Status)),
		zap.Int("actions", len(actions)),
		zap.Int("moved", len(moved)),
		zap.Int("trained_on", len(examples)))
	return report, nil
}

// Initialize scans every category folder, hashes the contained images and
// trains the classifier from scratch when the ledger is empty or stale.
// Calling it twice with no filesystem change in between trains at most once.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	folders, err := c.registry.Names()
	if err != nil {
		return err
	}

	inventory := make(map[string]string)
	var examples []domain.TrainingExample
	for _, folder := range folders {
		names, err := c.store.ListImages(folder)
		if err != nil {
			return err
		}
		for _, name := range names {
			data, err := c.store.ReadImage(folder, name)
			if err != nil {
				return err
			}
			hash := storage.Hash(data)
			inventory[hash] = folder
			examples = append(examples, domain.TrainingExample{
				ContentHash: hash,
				Category:    folder,
				Data:        data,
			})
		}
	}

	snapshot, err := c.ledger.Snapshot(ctx)
	if err != nil {
		return err
	}
	if ledgerMatches(snapshot, inventory) {
		c.logger.Info("initialize: labeled set unchanged, skipping training",
			zap.Int("images", len(inventory)))
		return nil
	}
	if len(examples) == 0 {
		c.logger.Info("initialize: no labeled images yet, nothing to train on")
		return c.ledger.Replace(ctx, nil)
	}

	c.logger.Info("initialize: training on full labeled set",
		zap.Int("images", len(examples)),
		zap.Int("categories", len(folders)))
	if err := c.classifier.FitInitial(ctx, examples); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrTrainingFailed, err)
	}

	records := make([]domain.TrainingRecord, 0, len(inventory))
	for hash, category := range inventory {
		records = append(records, domain.TrainingRecord{ContentHash: hash, Category: category})
	}
	return c.ledger.Replace(ctx, records)
}

// CreateFolder, DeleteFolder and ListFolders run the registry under the
// engine mutex so folder lifecycle cannot interleave with a commit.

func (c *Controller) CreateFolder(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Create(name)
}

func (c *Controller) DeleteFolder(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Delete(name)
}

func (c *Controller) ListFolders(ctx context.Context) ([]domain.Folder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.List()
}

// currentName picks the first candidate image, or ErrNoImageAvailable.
func (c *Controller) currentName() (string, error) {
	candidates, err := c.candidateNames()
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", domain.ErrNoImageAvailable
	}
	return candidates[0], nil
}

// candidateNames lists input images not excluded by a pending action.
func (c *Controller) candidateNames() ([]string, error) {
	names, err := c.store.ListImages(domain.InputFolder)
	if err != nil {
		return nil, err
	}
	candidates := names[:0]
	for _, name := range names {
		if !c.stack.Contains(name) {
			candidates = append(candidates, name)
		}
	}
	return candidates, nil
}

// ledgerMatches compares the stored ledger with the on-disk inventory.
func ledgerMatches(snapshot, inventory map[string]string) bool {
	if len(snapshot) != len(inventory) {
		return false
	}
	for hash, category := range inventory {
		if snapshot[hash] != category {
			return false
		}
	}
	return true
}
