// Package features turns raw transactions into the numeric vectors consumed
// by model training, scoring, and drift detection. It has two tiers: batch
// extraction aggregates over a full transaction slice, realtime extraction
// approximates the same aggregates from rolling per-user state.
package features

import (
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/velora-tech/fraudsight/pkg/models"
)

// featureNames fixes the column order of every vector this package emits.
// vector() below must append in exactly this order.
var featureNames = []string{
	"amount",
	"amount_log",
	"amount_zscore",
	"amount_ratio_to_user_avg",
	"is_amount_outlier",
	"is_round_amount",
	"hour_of_day",
	"day_of_week",
	"is_weekend",
	"is_business_hours",
	"is_late_night",
	"user_transaction_count",
	"user_avg_amount",
	"user_std_amount",
	"hours_since_last_transaction",
	"is_quick_transaction",
	"is_usual_location",
	"is_usual_device",
	"is_usual_merchant_category",
	"merchant_category_freq",
}

// Names returns the canonical feature order.
func Names() []string {
	out := make([]string, len(featureNames))
	copy(out, featureNames)
	return out
}

// FeatureMatrix is an ordered feature table, one row per transaction.
type FeatureMatrix struct {
	Names []string
	Rows  [][]float64
}

// NumRows returns the number of rows in the matrix.
func (m *FeatureMatrix) NumRows() int {
	return len(m.Rows)
}

// Column extracts a single feature column by name, nil if unknown.
func (m *FeatureMatrix) Column(name string) []float64 {
	idx := -1
	for j, n := range m.Names {
		if n == name {
			idx = j
			break
		}
	}
	if idx < 0 {
		return nil
	}
	col := make([]float64, 0, len(m.Rows))
	for _, row := range m.Rows {
		if idx < len(row) {
			col = append(col, row[idx])
		}
	}
	return col
}

// Labels extracts fraud labels aligned with BatchFeatures row order.
func Labels(txns []models.Transaction) []int {
	y := make([]int, len(txns))
	for i := range txns {
		if txns[i].IsFraud {
			y[i] = 1
		}
	}
	return y
}

// Extractor engineers feature vectors from transactions. Safe for concurrent
// use once constructed.
type Extractor struct {
	logger *zap.Logger

	mu           sync.RWMutex
	categoryFreq map[string]float64
}

// NewExtractor builds an Extractor.
func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger, categoryFreq: make(map[string]float64)}
}

// FitReference captures population statistics (merchant category
// frequencies) from a training window for later realtime use. BatchFeatures
// always derives them from its own input instead.
func (e *Extractor) FitReference(txns []models.Transaction) {
	freq := make(map[string]float64)
	if len(txns) > 0 {
		for i := range txns {
			freq[txns[i].MerchantCategory]++
		}
		total := float64(len(txns))
		for c := range freq {
			freq[c] /= total
		}
	}
	e.mu.Lock()
	e.categoryFreq = freq
	e.mu.Unlock()
	e.logger.Info("fitted reference statistics",
		zap.Int("transactions", len(txns)),
		zap.Int("categories", len(freq)))
}

func (e *Extractor) categoryFrequency(category string) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.categoryFreq[category]
}

type userAggregate struct {
	count      int
	sum        float64
	sumSq      float64
	locations  map[string]int
	devices    map[string]int
	categories map[string]int
	rows       []int
}

func newUserAggregate() *userAggregate {
	return &userAggregate{
		locations:  make(map[string]int),
		devices:    make(map[string]int),
		categories: make(map[string]int),
	}
}

// BatchFeatures computes the full feature matrix for a transaction slice,
// deriving per-user aggregates and category frequencies from the slice
// itself. Row order follows input order.
func (e *Extractor) BatchFeatures(txns []models.Transaction) *FeatureMatrix {
	users := make(map[string]*userAggregate)
	catCounts := make(map[string]int)
	for i := range txns {
		t := &txns[i]
		agg := users[t.UserID]
		if agg == nil {
			agg = newUserAggregate()
			users[t.UserID] = agg
		}
		amount := t.AmountFloat()
		agg.count++
		agg.sum += amount
		agg.sumSq += amount * amount
		agg.locations[t.Location]++
		agg.devices[t.DeviceID]++
		agg.categories[t.MerchantCategory]++
		agg.rows = append(agg.rows, i)
		catCounts[t.MerchantCategory]++
	}

	catFreq := make(map[string]float64, len(catCounts))
	if len(txns) > 0 {
		total := float64(len(txns))
		for c, n := range catCounts {
			catFreq[c] = float64(n) / total
		}
	}

	// Time since the user's previous transaction, computed in timestamp
	// order but written back against input row order.
	hoursSince := make([]float64, len(txns))
	for _, agg := range users {
		sort.Slice(agg.rows, func(a, b int) bool {
			return txns[agg.rows[a]].Timestamp.Before(txns[agg.rows[b]].Timestamp)
		})
		for k, idx := range agg.rows {
			if k == 0 {
				continue
			}
			prev := txns[agg.rows[k-1]].Timestamp
			hoursSince[idx] = txns[idx].Timestamp.Sub(prev).Hours()
		}
	}

	rows := make([][]float64, len(txns))
	for i := range txns {
		t := &txns[i]
		agg := users[t.UserID]
		mean := agg.sum / float64(agg.count)
		std := 0.0
		if agg.count > 1 {
			variance := (agg.sumSq - agg.sum*agg.sum/float64(agg.count)) / float64(agg.count-1)
			if variance > 0 {
				std = math.Sqrt(variance)
			}
		}
		rows[i] = vector(rowInputs{
			amount:         t.AmountFloat(),
			hour:           t.Timestamp.Hour(),
			weekday:        weekdayIndex(t.Timestamp),
			userCount:      float64(agg.count),
			userMean:       mean,
			userStd:        std,
			hoursSinceLast: hoursSince[i],
			usualLocation:  t.Location == mode(agg.locations),
			usualDevice:    t.DeviceID == mode(agg.devices),
			usualCategory:  t.MerchantCategory == mode(agg.categories),
			categoryFreq:   catFreq[t.MerchantCategory],
		})
	}

	e.logger.Info("engineered batch features",
		zap.Int("rows", len(rows)),
		zap.Int("features", len(featureNames)))
	return &FeatureMatrix{Names: Names(), Rows: rows}
}

type rowInputs struct {
	amount         float64
	hour           int
	weekday        int
	userCount      float64
	userMean       float64
	userStd        float64
	hoursSinceLast float64
	usualLocation  bool
	usualDevice    bool
	usualCategory  bool
	categoryFreq   float64
}

func vector(in rowInputs) []float64 {
	zscore := (in.amount - in.userMean) / (in.userStd + 1.0)
	v := make([]float64, 0, len(featureNames))
	v = append(v,
		in.amount,
		math.Log1p(in.amount),
		zscore,
		in.amount/(in.userMean+1.0),
		boolFeature(math.Abs(zscore) > 3),
		boolFeature(math.Mod(in.amount, 1.0) == 0),
		float64(in.hour),
		float64(in.weekday),
		boolFeature(in.weekday >= 5),
		boolFeature(in.hour >= 9 && in.hour <= 17 && in.weekday < 5),
		boolFeature(in.hour >= 23 || in.hour <= 6),
		in.userCount,
		in.userMean,
		in.userStd,
		in.hoursSinceLast,
		boolFeature(in.hoursSinceLast <= 1),
		boolFeature(in.usualLocation),
		boolFeature(in.usualDevice),
		boolFeature(in.usualCategory),
		in.categoryFreq,
	)
	return v
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// weekdayIndex reports the day of week with Monday as 0, the encoding the
// historical training data uses.
func weekdayIndex(ts time.Time) int {
	return (int(ts.Weekday()) + 6) % 7
}

// mode picks the most frequent value, breaking ties lexicographically.
func mode(counts map[string]int) string {
	best, bestCount := "", -1
	for v, n := range counts {
		if n > bestCount || (n == bestCount && v < best) {
			best, bestCount = v, n
		}
	}
	return best
}
