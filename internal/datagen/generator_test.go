package datagen_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/velora-tech/fraudsight/internal/datagen"
	"github.com/velora-tech/fraudsight/internal/drift"
	"github.com/velora-tech/fraudsight/pkg/models"
)

func meanAmount(txns []models.Transaction) float64 {
	if len(txns) == 0 {
		return 0
	}
	sum := 0.0
	for i := range txns {
		sum += txns[i].AmountFloat()
	}
	return sum / float64(len(txns))
}

func amounts(txns []models.Transaction) []float64 {
	out := make([]float64, len(txns))
	for i := range txns {
		out[i] = txns[i].AmountFloat()
	}
	return out
}

func TestGenerator_Generate(t *testing.T) {
	gen := datagen.NewGenerator(zap.NewNop(), datagen.Config{Seed: 7})
	txns := gen.Generate(1000)
	require.Len(t, txns, 1000)

	categories := map[string]bool{
		"grocery": true, "gas_station": true, "restaurant": true, "retail": true,
		"online": true, "pharmacy": true, "entertainment": true, "travel": true,
		"utilities": true, "healthcare": true,
	}
	txnTypes := map[string]bool{
		"purchase": true, "withdrawal": true, "transfer": true, "payment": true, "refund": true,
	}
	deviceTypes := map[string]bool{
		"mobile": true, "desktop": true, "tablet": true, "pos_terminal": true, "atm": true,
	}
	locations := map[string]bool{
		"New York": true, "Los Angeles": true, "Chicago": true, "Houston": true, "Phoenix": true,
	}
	fraudHours := map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true, 23: true}

	fraudCount := 0
	for i, txn := range txns {
		assert.True(t, strings.HasPrefix(txn.UserID, "user_"), "user id %q", txn.UserID)
		assert.True(t, strings.HasPrefix(txn.DeviceID, "device_user_"), "device id %q", txn.DeviceID)
		assert.True(t, categories[txn.MerchantCategory], "category %q", txn.MerchantCategory)
		assert.True(t, txnTypes[txn.TransactionType], "type %q", txn.TransactionType)
		assert.True(t, deviceTypes[txn.DeviceType], "device type %q", txn.DeviceType)
		assert.True(t, locations[txn.Location], "location %q", txn.Location)
		assert.GreaterOrEqual(t, txn.AmountFloat(), 1.0)

		hour := txn.Timestamp.Hour()
		if txn.IsFraud {
			fraudCount++
			assert.True(t, fraudHours[hour], "fraud hour %d", hour)
		} else {
			assert.GreaterOrEqual(t, hour, 6)
			assert.LessOrEqual(t, hour, 22)
			assert.LessOrEqual(t, txn.AmountFloat(), 10000.0)
		}

		if i > 0 {
			assert.False(t, txn.Timestamp.Before(txns[i-1].Timestamp), "timestamps out of order at %d", i)
		}
	}

	// Default 2% rate is applied as an exact count.
	assert.Equal(t, 20, fraudCount)
}

func TestGenerator_FraudRateConfig(t *testing.T) {
	gen := datagen.NewGenerator(zap.NewNop(), datagen.Config{Seed: 7, FraudRate: 0.1})
	txns := gen.Generate(500)

	fraudCount := 0
	for _, txn := range txns {
		if txn.IsFraud {
			fraudCount++
		}
	}
	assert.Equal(t, 50, fraudCount)
}

func TestGenerator_Deterministic(t *testing.T) {
	a := datagen.NewGenerator(zap.NewNop(), datagen.Config{Seed: 99}).Generate(200)
	b := datagen.NewGenerator(zap.NewNop(), datagen.Config{Seed: 99}).Generate(200)
	require.Len(t, b, len(a))

	for i := range a {
		assert.Equal(t, a[i].UserID, b[i].UserID, "row %d", i)
		assert.True(t, a[i].Amount.Equal(b[i].Amount), "row %d amount %s vs %s", i, a[i].Amount, b[i].Amount)
		assert.Equal(t, a[i].MerchantCategory, b[i].MerchantCategory, "row %d", i)
		assert.Equal(t, a[i].TransactionType, b[i].TransactionType, "row %d", i)
		assert.Equal(t, a[i].DeviceType, b[i].DeviceType, "row %d", i)
		assert.Equal(t, a[i].Location, b[i].Location, "row %d", i)
		assert.Equal(t, a[i].IsFraud, b[i].IsFraud, "row %d", i)
	}
}

func TestGenerator_Sample(t *testing.T) {
	gen := datagen.NewGenerator(zap.NewNop(), datagen.Config{Seed: 7})
	txn := gen.Sample()
	assert.NotEmpty(t, txn.UserID)
	assert.NotEmpty(t, txn.MerchantCategory)
	assert.True(t, txn.Amount.IsPositive())
	assert.False(t, txn.IsFraud)
}

func TestGenerator_GenerateDataset(t *testing.T) {
	t.Run("NoDrift", func(t *testing.T) {
		gen := datagen.NewGenerator(zap.NewNop(), datagen.Config{Seed: 7})
		ds := gen.GenerateDataset(2000, 2000)
		require.Len(t, ds.Reference, 2000)
		require.Len(t, ds.Current, 2000)

		ratio := meanAmount(ds.Current) / meanAmount(ds.Reference)
		assert.InDelta(t, 1.0, ratio, 0.2)

		users := make(map[string]bool, len(ds.Reference))
		for i := range ds.Reference {
			users[ds.Reference[i].UserID] = true
		}
		cutoff := time.Now().UTC().Add(-25 * time.Hour)
		for i := range ds.Current {
			assert.True(t, users[ds.Current[i].UserID], "current row resampled from reference")
			assert.True(t, ds.Current[i].Timestamp.After(cutoff), "current row inside the recent window")
		}
	})

	t.Run("ModerateShiftInflatesAmounts", func(t *testing.T) {
		gen := datagen.NewGenerator(zap.NewNop(), datagen.Config{Seed: 7})
		ds := gen.GenerateDataset(2000, 2000, datagen.WithDriftShift(datagen.DriftModerate))

		ratio := meanAmount(ds.Current) / meanAmount(ds.Reference)
		assert.InDelta(t, 1.2, ratio, 0.25)
	})

	t.Run("SevereShiftDoublesAmountsAndMovesHours", func(t *testing.T) {
		gen := datagen.NewGenerator(zap.NewNop(), datagen.Config{Seed: 7})
		ds := gen.GenerateDataset(2000, 2000, datagen.WithDriftShift(datagen.DriftSevere))

		ratio := meanAmount(ds.Current) / meanAmount(ds.Reference)
		assert.InDelta(t, 2.0, ratio, 0.4)

		for i := range ds.Current {
			assert.Less(t, ds.Current[i].Timestamp.Hour(), 6)
		}
	})
}

// A severe shift must be visible to the drift detector on the amount column.
func TestGenerator_SevereShiftTriggersDrift(t *testing.T) {
	gen := datagen.NewGenerator(zap.NewNop(), datagen.Config{Seed: 7})
	ds := gen.GenerateDataset(2000, 2000, datagen.WithDriftShift(datagen.DriftSevere))

	result := drift.DetectNumericalDrift(amounts(ds.Reference), amounts(ds.Current), drift.DefaultSignificanceLevel)
	assert.True(t, result.DriftDetected)
	assert.Less(t, result.PValue, 0.01)
}
