package classifier

import (
	"context"
	"errors"
	"math/rand"
	"sync"

	"go.uber.org/zap"

	"github.com/lewtec/triador/internal/domain"
)

// ErrNoCategories is returned when prediction is requested before any
// category folder exists.
var ErrNoCategories = errors.New("no category folders to score against")

// CategoryLister supplies the current category names to score against.
type CategoryLister func(ctx context.Context) ([]string, error)

// Uniform is a model-free classifier: it assigns every category a random
// weight and normalizes them into confidences. Fit calls are no-ops. It keeps
// the triage loop usable when no sidecar endpoint is configured.
type Uniform struct {
	mu         sync.Mutex
	rng        *rand.Rand
	categories CategoryLister
	logger     *zap.Logger
}

// NewUniform creates a Uniform scorer over the given category source.
func NewUniform(categories CategoryLister, seed int64, logger *zap.Logger) *Uniform {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uniform{
		rng:        rand.New(rand.NewSource(seed)),
		categories: categories,
		logger:     logger,
	}
}

// Predict returns normalized pseudo-random confidences over the current
// categories.
func (u *Uniform) Predict(ctx context.Context, image []byte) (map[string]float64, error) {
	names, err := u.categories(ctx)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, ErrNoCategories
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	scores := make(map[string]int, len(names))
	total := 0
	for _, name := range names {
		score := u.rng.Intn(100) + 1
		scores[name] = score
		total += score
	}
	predictions := make(map[string]float64, len(names))
	for name, score := range scores {
		predictions[name] = float64(score) / float64(total)
	}
	return predictions, nil
}

// FitIncremental is a no-op: there is no model to update.
func (u *Uniform) FitIncremental(ctx context.Context, examples []domain.TrainingExample) error {
	u.logger.Debug("discarding incremental fit, no model configured",
		zap.Int("examples", len(examples)))
	return nil
}

// FitInitial is a no-op: there is no model to train.
func (u *Uniform) FitInitial(ctx context.Context, examples []domain.TrainingExample) error {
	u.logger.Debug("discarding initial fit, no model configured",
		zap.Int("examples", len(examples)))
	return nil
}

// Verify that Uniform implements domain.Classifier
var _ domain.Classifier = (*Uniform)(nil)
