package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticCategories(names ...string) CategoryLister {
	return func(ctx context.Context) ([]string, error) {
		return names, nil
	}
}

func TestUniform_PredictNormalized(t *testing.T) {
	u := NewUniform(staticCategories("cats", "dogs", "birds"), 42, nil)

	predictions, err := u.Predict(context.Background(), []byte("img"))
	require.NoError(t, err)
	require.Len(t, predictions, 3)

	total := 0.0
	for _, confidence := range predictions {
		assert.Greater(t, confidence, 0.0)
		assert.LessOrEqual(t, confidence, 1.0)
		total += confidence
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestUniform_PredictNoCategories(t *testing.T) {
	u := NewUniform(staticCategories(), 42, nil)
	_, err := u.Predict(context.Background(), []byte("img"))
	assert.ErrorIs(t, err, ErrNoCategories)
}

func TestUniform_PredictListerError(t *testing.T) {
	boom := errors.New("boom")
	u := NewUniform(func(ctx context.Context) ([]string, error) {
		return nil, boom
	}, 42, nil)
	_, err := u.Predict(context.Background(), []byte("img"))
	assert.ErrorIs(t, err, boom)
}

func TestUniform_FitsAreNoOps(t *testing.T) {
	u := NewUniform(staticCategories("cats"), 42, nil)
	assert.NoError(t, u.FitIncremental(context.Background(), nil))
	assert.NoError(t, u.FitInitial(context.Background(), nil))
}
