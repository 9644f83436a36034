package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velora-tech/fraudsight/internal/model"
	"github.com/velora-tech/fraudsight/pkg/errors"
)

// separable1D builds a one-dimensional dataset where the classes sit on
// opposite sides of zero with a wide margin.
func separable1D() (X [][]float64, y []int) {
	for i := 0; i < 20; i++ {
		X = append(X, []float64{-2.0 + 0.04*float64(i)})
		y = append(y, 0)
	}
	for i := 0; i < 20; i++ {
		X = append(X, []float64{1.2 + 0.04*float64(i)})
		y = append(y, 1)
	}
	return X, y
}

func TestLogisticRegression_Fit(t *testing.T) {
	X, y := separable1D()
	lr := model.NewLogisticRegression(0.5, 500, 0)
	require.NoError(t, lr.Fit(X, y))

	predicted := lr.Predict(X)
	cm := model.NewConfusionMatrix(y, predicted)
	assert.Equal(t, 1.0, cm.Accuracy())

	probs := lr.PredictProba([][]float64{{-5}, {5}})
	assert.Less(t, probs[0], 0.5)
	assert.Greater(t, probs[1], 0.5)
	assert.Equal(t, model.FamilyLogisticRegression, lr.Family())
}

func TestLogisticRegression_EmptyData(t *testing.T) {
	lr := model.NewLogisticRegression(0.1, 10, 0)
	err := lr.Fit(nil, nil)
	assert.True(t, errors.Is(err, errors.ErrDatasetEmpty))
}

func TestGradientStumps_Fit(t *testing.T) {
	// step function at x = 0.5
	var X [][]float64
	var y []int
	for i := 0; i < 30; i++ {
		x := float64(i) / 30.0
		X = append(X, []float64{x})
		if x > 0.5 {
			y = append(y, 1)
		} else {
			y = append(y, 0)
		}
	}

	gs := model.NewGradientStumps(50, 0.3)
	require.NoError(t, gs.Fit(X, y))

	predicted := gs.Predict(X)
	cm := model.NewConfusionMatrix(y, predicted)
	assert.Equal(t, 1.0, cm.Accuracy())
	assert.Equal(t, model.FamilyGradientStumps, gs.Family())
}

func TestGradientStumps_ConstantFeature(t *testing.T) {
	X := [][]float64{{1}, {1}, {1}, {1}, {1}, {1}, {1}, {1}, {1}, {1}}
	y := []int{1, 0, 0, 1, 0, 0, 0, 0, 0, 1}

	gs := model.NewGradientStumps(20, 0.1)
	require.NoError(t, gs.Fit(X, y))

	// nothing to split on, so the ensemble predicts the class prior
	probs := gs.PredictProba([][]float64{{1}, {42}})
	assert.InDelta(t, 0.3, probs[0], 1e-9)
	assert.InDelta(t, 0.3, probs[1], 1e-9)
}

func TestMarshalRoundTrip(t *testing.T) {
	X, y := separable1D()

	t.Run("LogisticRegression", func(t *testing.T) {
		lr := model.NewLogisticRegression(0.5, 200, 0.01)
		require.NoError(t, lr.Fit(X, y))

		raw, err := model.Marshal(lr)
		require.NoError(t, err)
		restored, err := model.Unmarshal(raw)
		require.NoError(t, err)

		assert.Equal(t, model.FamilyLogisticRegression, restored.Family())
		assert.Equal(t, lr.PredictProba(X), restored.PredictProba(X))
	})

	t.Run("GradientStumps", func(t *testing.T) {
		gs := model.NewGradientStumps(30, 0.2)
		require.NoError(t, gs.Fit(X, y))

		raw, err := model.Marshal(gs)
		require.NoError(t, err)
		restored, err := model.Unmarshal(raw)
		require.NoError(t, err)

		assert.Equal(t, model.FamilyGradientStumps, restored.Family())
		assert.Equal(t, gs.PredictProba(X), restored.PredictProba(X))
	})

	t.Run("UnknownFamily", func(t *testing.T) {
		_, err := model.Unmarshal([]byte(`{"family":"random_forest"}`))
		assert.Error(t, err)
	})
}
