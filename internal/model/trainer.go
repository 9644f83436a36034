package model

import (
	"math/rand"

	"go.uber.org/zap"

	"github.com/velora-tech/fraudsight/pkg/errors"
)

// TrainedModel is the outcome of a training run: the fitted model, its held
// out test metrics and how much data it saw.
type TrainedModel struct {
	Model           Model
	Family          string
	Metrics         map[string]float64
	ValidationAUC   float64
	TrainingSamples int
}

// Trainer fits a small grid of candidate models, picks the best one by
// validation ROC-AUC, refits it on train+validation and reports metrics on a
// held out test split. Splits are stratified and seeded so runs with the same
// data and seed reproduce the same model.
type Trainer struct {
	logger       *zap.Logger
	seed         int64
	testFraction float64
	valFraction  float64
}

// NewTrainer builds a Trainer. Fractions outside (0, 0.5) fall back to 0.15.
func NewTrainer(logger *zap.Logger, seed int64, testFraction, valFraction float64) *Trainer {
	if testFraction <= 0 || testFraction >= 0.5 {
		testFraction = 0.15
	}
	if valFraction <= 0 || valFraction >= 0.5 {
		valFraction = 0.15
	}
	return &Trainer{logger: logger, seed: seed, testFraction: testFraction, valFraction: valFraction}
}

type candidate struct {
	name  string
	build func() Model
}

func (t *Trainer) candidates() []candidate {
	return []candidate{
		{"logistic lr=0.1 l2=0", func() Model { return NewLogisticRegression(0.1, 300, 0) }},
		{"logistic lr=0.1 l2=0.01", func() Model { return NewLogisticRegression(0.1, 300, 0.01) }},
		{"logistic lr=0.3 l2=0.001", func() Model { return NewLogisticRegression(0.3, 300, 0.001) }},
		{"stumps rounds=80 lr=0.1", func() Model { return NewGradientStumps(80, 0.1) }},
		{"stumps rounds=150 lr=0.05", func() Model { return NewGradientStumps(150, 0.05) }},
	}
}

// Train runs the grid over X and y and returns the selected model. It fails
// when the data is empty, single-class, or no candidate produces a usable
// validation score.
func (t *Trainer) Train(X [][]float64, y []int) (*TrainedModel, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, errors.NewWithKind(errors.KindDatasetEmpty, "training data is empty or misaligned")
	}
	pos := 0
	for _, label := range y {
		if label != 0 {
			pos++
		}
	}
	if pos == 0 || pos == len(y) {
		return nil, errors.NewWithKind(errors.KindValidation, "training data contains a single class")
	}

	trainIdx, valIdx, testIdx := t.split(y)
	trainX, trainY := gather(X, y, trainIdx)
	valX, valY := gather(X, y, valIdx)
	testX, testY := gather(X, y, testIdx)

	var (
		bestName  string
		bestBuild func() Model
		bestAUC   = -1.0
	)
	for _, c := range t.candidates() {
		model := c.build()
		if err := model.Fit(trainX, trainY); err != nil {
			t.logger.Warn("candidate failed to fit", zap.String("candidate", c.name), zap.Error(err))
			continue
		}
		auc, err := ROCAUC(valY, model.PredictProba(valX))
		if err != nil {
			t.logger.Warn("candidate skipped, validation split degenerate",
				zap.String("candidate", c.name), zap.Error(err))
			continue
		}
		t.logger.Debug("candidate evaluated", zap.String("candidate", c.name), zap.Float64("val_auc", auc))
		if auc > bestAUC {
			bestAUC = auc
			bestName = c.name
			bestBuild = c.build
		}
	}
	if bestBuild == nil {
		return nil, errors.New("no candidate model could be trained")
	}

	// refit the winner on train+validation before scoring the test split
	refitX := append(append([][]float64{}, trainX...), valX...)
	refitY := append(append([]int{}, trainY...), valY...)
	final := bestBuild()
	if err := final.Fit(refitX, refitY); err != nil {
		return nil, errors.Wrap(err).Explain("refit %s", bestName)
	}

	predictions := final.Predict(testX)
	metrics := EvaluateBinary(testY, predictions, final.PredictProba(testX))
	metrics["accuracy"] = NewConfusionMatrix(testY, predictions).Accuracy()

	t.logger.Info("model selected",
		zap.String("candidate", bestName),
		zap.String("family", final.Family()),
		zap.Float64("val_auc", bestAUC),
		zap.Int("training_samples", len(refitY)),
		zap.Any("test_metrics", metrics))

	return &TrainedModel{
		Model:           final,
		Family:          final.Family(),
		Metrics:         metrics,
		ValidationAUC:   bestAUC,
		TrainingSamples: len(refitY),
	}, nil
}

// split partitions row indices into train, validation and test sets,
// preserving the class balance of y in each.
func (t *Trainer) split(y []int) (train, val, test []int) {
	rng := rand.New(rand.NewSource(t.seed))
	byClass := map[int][]int{}
	for i, label := range y {
		key := 0
		if label != 0 {
			key = 1
		}
		byClass[key] = append(byClass[key], i)
	}
	for _, idx := range [2][]int{byClass[0], byClass[1]} {
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		nTest := int(float64(len(idx)) * t.testFraction)
		nVal := int(float64(len(idx)) * t.valFraction)
		test = append(test, idx[:nTest]...)
		val = append(val, idx[nTest:nTest+nVal]...)
		train = append(train, idx[nTest+nVal:]...)
	}
	return train, val, test
}

func gather(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	gx := make([][]float64, 0, len(idx))
	gy := make([]int, 0, len(idx))
	for _, i := range idx {
		gx = append(gx, X[i])
		gy = append(gy, y[i])
	}
	return gx, gy
}
