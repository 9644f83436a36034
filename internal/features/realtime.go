package features

import (
	"context"

	"go.uber.org/zap"

	"github.com/velora-tech/fraudsight/pkg/models"
)

// RealtimeFeatures builds a single feature vector from the user's rolling
// state without mutating it. The amount statistics fold the incoming
// transaction in, mirroring the batch aggregates; the usual-location,
// usual-device, and usual-category indicators compare against the state
// prior to this transaction and report usual for first-time users.
func (e *Extractor) RealtimeFeatures(ctx context.Context, store StateStore, t *models.Transaction) ([]float64, error) {
	state, err := store.Get(ctx, t.UserID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = &UserState{}
	}

	prior := *state
	folded := *state
	folded.Observe(t)

	hoursSince := 0.0
	if prior.Count > 0 && !prior.LastSeen.IsZero() {
		hoursSince = t.Timestamp.Sub(prior.LastSeen).Hours()
		if hoursSince < 0 {
			hoursSince = 0
		}
	}

	in := rowInputs{
		amount:         t.AmountFloat(),
		hour:           t.Timestamp.Hour(),
		weekday:        weekdayIndex(t.Timestamp),
		userCount:      float64(folded.Count),
		userMean:       folded.Mean,
		userStd:        folded.Std(),
		hoursSinceLast: hoursSince,
		usualLocation:  prior.Count == 0 || t.Location == prior.LastLocation,
		usualDevice:    prior.Count == 0 || t.DeviceID == prior.LastDevice,
		usualCategory:  prior.Count == 0 || t.MerchantCategory == prior.LastCategory,
		categoryFreq:   e.categoryFrequency(t.MerchantCategory),
	}
	return vector(in), nil
}

// UpdateState folds a scored transaction into the user's rolling state.
func (e *Extractor) UpdateState(ctx context.Context, store StateStore, t *models.Transaction) error {
	state, err := store.Get(ctx, t.UserID)
	if err != nil {
		return err
	}
	if state == nil {
		state = &UserState{}
	}
	state.Observe(t)
	return store.Put(ctx, t.UserID, state)
}

// WarmStates replays a historical window into the store so realtime scoring
// starts from meaningful aggregates.
func (e *Extractor) WarmStates(ctx context.Context, store StateStore, txns []models.Transaction) error {
	for i := range txns {
		if err := e.UpdateState(ctx, store, &txns[i]); err != nil {
			return err
		}
	}
	e.logger.Info("warmed realtime state", zap.Int("transactions", len(txns)))
	return nil
}
