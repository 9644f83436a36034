// Package datagen produces seeded synthetic transaction data with
// configurable fraud patterns, used for model bootstrap, demos, and tests.
package datagen

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/velora-tech/fraudsight/pkg/models"
)

const (
	defaultSeed      = 42
	defaultFraudRate = 0.02
	defaultDays      = 90

	// Legitimate amounts follow a lognormal clamped to a plausible card range.
	amountLogMean  = 3.5
	amountLogSigma = 1.2
	minAmount      = 1.0
	maxAmount      = 10000.0
)

var (
	merchantCategories = []string{
		"grocery", "gas_station", "restaurant", "retail", "online",
		"pharmacy", "entertainment", "travel", "utilities", "healthcare",
	}

	// Fraud skews toward card-not-present and travel spend.
	fraudCategoryWeights = []float64{0.04, 0.04, 0.05, 0.15, 0.35, 0.04, 0.10, 0.15, 0.04, 0.04}

	transactionTypes       = []string{"purchase", "withdrawal", "transfer", "payment", "refund"}
	transactionTypeWeights = []float64{0.7, 0.1, 0.1, 0.08, 0.02}

	deviceTypes       = []string{"mobile", "desktop", "tablet", "pos_terminal", "atm"}
	deviceTypeWeights = []float64{0.4, 0.3, 0.1, 0.15, 0.05}

	locations = []string{"New York", "Los Angeles", "Chicago", "Houston", "Phoenix"}

	fraudHours   = []int{1, 2, 3, 4, 5, 23}
	eveningHours = []int{18, 19, 20, 21, 22}
)

// Config controls the shape of the generated population.
type Config struct {
	// Seed makes the output reproducible. Zero selects the default seed.
	Seed uint64
	// FraudRate is the fraction of transactions labeled fraudulent.
	FraudRate float64
	// Days is the span of history the timestamps cover.
	Days int
	// Users caps the distinct user pool. Zero derives it from the sample
	// size at roughly ten transactions per user.
	Users int
}

// DefaultConfig returns the generator defaults used by the demo pipeline.
func DefaultConfig() Config {
	return Config{Seed: defaultSeed, FraudRate: defaultFraudRate, Days: defaultDays}
}

// Generator emits synthetic transactions from a seeded random stream.
// Safe for concurrent use.
type Generator struct {
	logger *zap.Logger
	cfg    Config

	mu     sync.Mutex
	src    rand.Source
	rng    *rand.Rand
	amount distuv.LogNormal
}

// NewGenerator builds a Generator, filling zero-valued config fields with
// defaults.
func NewGenerator(logger *zap.Logger, cfg Config) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Seed == 0 {
		cfg.Seed = defaultSeed
	}
	if cfg.FraudRate <= 0 {
		cfg.FraudRate = defaultFraudRate
	}
	if cfg.Days <= 0 {
		cfg.Days = defaultDays
	}
	src := rand.NewSource(cfg.Seed)
	return &Generator{
		logger: logger,
		cfg:    cfg,
		src:    src,
		rng:    rand.New(src),
		amount: distuv.LogNormal{Mu: amountLogMean, Sigma: amountLogSigma, Src: src},
	}
}

// Generate produces n labeled transactions sorted by timestamp.
func (g *Generator) Generate(n int) []models.Transaction {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.logger.Info("generating synthetic transactions",
		zap.Int("count", n),
		zap.Float64("fraud_rate", g.cfg.FraudRate))
	return g.generateLocked(n)
}

// Sample returns a single unlabeled-looking transaction for demo endpoints.
func (g *Generator) Sample() models.Transaction {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generateLocked(1)[0]
}

func (g *Generator) generateLocked(n int) []models.Transaction {
	if n <= 0 {
		return nil
	}
	users := g.cfg.Users
	if users <= 0 {
		users = n / 10
		if users < 1000 {
			users = 1000
		}
	}
	start := time.Now().UTC().AddDate(0, 0, -g.cfg.Days)

	txns := make([]models.Transaction, n)
	for i := range txns {
		userID := fmt.Sprintf("user_%06d", g.rng.Intn(users)+1)
		day := start.AddDate(0, 0, g.rng.Intn(g.cfg.Days))
		// Legitimate traffic concentrates in waking hours.
		ts := time.Date(day.Year(), day.Month(), day.Day(),
			6+g.rng.Intn(17), g.rng.Intn(60), 0, 0, time.UTC)

		amount := g.amount.Rand()
		if amount < minAmount {
			amount = minAmount
		}
		if amount > maxAmount {
			amount = maxAmount
		}

		txns[i] = models.Transaction{
			ID:               uuid.New(),
			UserID:           userID,
			Timestamp:        ts,
			Amount:           decimal.NewFromFloat(amount).Round(2),
			MerchantCategory: g.choice(merchantCategories),
			TransactionType:  g.weightedChoice(transactionTypes, transactionTypeWeights),
			Location:         g.choice(locations),
			DeviceID:         fmt.Sprintf("device_%s_%d", userID, g.deviceNumber()),
			DeviceType:       g.weightedChoice(deviceTypes, deviceTypeWeights),
			CreatedAt:        ts,
		}
	}

	g.markFraud(txns)

	sort.Slice(txns, func(i, j int) bool { return txns[i].Timestamp.Before(txns[j].Timestamp) })
	return txns
}

// markFraud flips an exact share of rows to fraud and gives them the
// suspicious pattern: inflated amounts, odd hours, skewed categories.
func (g *Generator) markFraud(txns []models.Transaction) {
	nFraud := int(float64(len(txns)) * g.cfg.FraudRate)
	if nFraud <= 0 {
		return
	}
	if nFraud > len(txns) {
		nFraud = len(txns)
	}
	perm := g.rng.Perm(len(txns))
	for _, idx := range perm[:nFraud] {
		t := &txns[idx]
		t.IsFraud = true
		factor := 1.5 + g.rng.Float64()*1.5
		t.Amount = t.Amount.Mul(decimal.NewFromFloat(factor)).Round(2)
		t.Timestamp = withHour(t.Timestamp, fraudHours[g.rng.Intn(len(fraudHours))])
		t.MerchantCategory = g.weightedChoice(merchantCategories, fraudCategoryWeights)
	}
}

func (g *Generator) choice(values []string) string {
	return values[g.rng.Intn(len(values))]
}

func (g *Generator) weightedChoice(values []string, weights []float64) string {
	r := g.rng.Float64()
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r < acc {
			return values[i]
		}
	}
	return values[len(values)-1]
}

// deviceNumber picks which of a user's devices a transaction came from.
// Most activity stays on the primary device.
func (g *Generator) deviceNumber() int {
	r := g.rng.Float64()
	switch {
	case r < 0.6:
		return 1
	case r < 0.9:
		return 2
	default:
		return 3
	}
}

func withHour(ts time.Time, hour int) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), hour, ts.Minute(), 0, 0, ts.Location())
}
