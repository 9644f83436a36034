package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/velora-tech/fraudsight/api"
	"github.com/velora-tech/fraudsight/internal/alerting"
	"github.com/velora-tech/fraudsight/internal/config"
	"github.com/velora-tech/fraudsight/internal/database"
	"github.com/velora-tech/fraudsight/internal/datagen"
	"github.com/velora-tech/fraudsight/internal/drift"
	"github.com/velora-tech/fraudsight/internal/features"
	"github.com/velora-tech/fraudsight/internal/inference"
	"github.com/velora-tech/fraudsight/internal/model"
	"github.com/velora-tech/fraudsight/internal/monitor"
	"github.com/velora-tech/fraudsight/internal/retraining"
	"github.com/velora-tech/fraudsight/pkg/errors"
	"github.com/velora-tech/fraudsight/pkg/logger"
	"github.com/velora-tech/fraudsight/pkg/metrics"
	"github.com/velora-tech/fraudsight/pkg/models"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create logger
	zapLogger, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	// Connect to the database
	db, err := database.New(database.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zapLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Feature state lives in Redis when configured, in memory otherwise
	var store features.StateStore = features.NewMemoryStateStore()
	if cfg.Redis.Enabled {
		redisClient, err := database.NewRedisClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		store = features.NewRedisStateStore(redisClient)
		zapLogger.Info("Using Redis feature state store", zap.String("address", cfg.Redis.Address))
	}

	extractor := features.NewExtractor(zapLogger)
	registry := model.NewRegistry(db, zapLogger)
	trainer := model.NewTrainer(zapLogger, cfg.Training.Seed, cfg.Training.TestFraction, cfg.Training.ValFraction)
	history := retraining.NewGormHistory(db)

	// Load the active model, or train the first version when the registry
	// is empty. The reference window for the active version is regenerated
	// from its seed so drift baselines survive restarts.
	activeModel, record, err := registry.LoadActive()
	version := "v1"
	var baseline map[string]float64
	switch {
	case err == nil:
		version = record.Version
		baseline = decodeMetrics(zapLogger, record.Metrics)
		zapLogger.Info("Loaded active model",
			zap.String("version", version),
			zap.String("family", record.Family))
	case errors.Is(err, errors.ErrNotFound):
		zapLogger.Info("No active model found, training initial version")
	default:
		zapLogger.Fatal("Failed to load active model", zap.Error(err))
	}

	referenceTxns := datagen.NewGenerator(zapLogger, generatorConfig(cfg, version)).Generate(cfg.Generator.Samples)
	extractor.FitReference(referenceTxns)
	referenceMatrix := extractor.BatchFeatures(referenceTxns)

	if activeModel == nil {
		trained, err := trainer.Train(referenceMatrix.Rows, features.Labels(referenceTxns))
		if err != nil {
			zapLogger.Fatal("Failed to train initial model", zap.Error(err))
		}
		if err := registry.Save(version, trained, referenceMatrix.Names); err != nil {
			zapLogger.Fatal("Failed to register initial model", zap.Error(err))
		}
		activeModel = trained.Model
		baseline = trained.Metrics

		// The gate numbers retraining runs from the history length, so the
		// initial training is recorded too. It also arms the cooldown: a
		// freshly trained model is not retrained for a day.
		completed := time.Now().UTC()
		if err := history.Append(&retraining.Record{
			TriggerTimestamp:    completed,
			TriggerReason:       "initial training",
			Status:              retraining.StatusCompleted,
			CompletionTimestamp: &completed,
			NewModelVersion:     version,
			TrainingSamples:     trained.TrainingSamples,
		}); err != nil {
			zapLogger.Fatal("Failed to record initial training", zap.Error(err))
		}
		zapLogger.Info("Initial model trained",
			zap.String("version", version),
			zap.Float64("validation_auc", trained.ValidationAUC),
			zap.Int("training_samples", trained.TrainingSamples))
	}

	// Create the scoring service
	scorer := inference.NewScorer(zapLogger, db, extractor, store)
	scorer.SetModel(activeModel, version)

	ctx := context.Background()
	if err := extractor.WarmStates(ctx, store, referenceTxns); err != nil {
		zapLogger.Warn("Failed to warm feature states", zap.Error(err))
	}

	// Drift detection against the training reference
	detector := drift.NewDetector(
		zapLogger,
		drift.DatasetFromMatrix("training_reference", referenceMatrix.Names, referenceMatrix.Rows),
		cfg.Drift.Features,
		cfg.Drift.SignificanceLevel,
	)
	var performance *drift.PerformanceDetector
	if len(baseline) > 0 {
		performance = drift.NewPerformanceDetector(zapLogger, activeModel, baseline, cfg.Retraining.Threshold)
	}

	// Alerting: persisted always, delivered to whatever is configured
	channels := []alerting.Channel{
		alerting.NewLogChannel(zapLogger),
		alerting.NewStoreChannel(db),
	}
	if cfg.Alerting.WebhookURL != "" {
		channels = append(channels, alerting.NewWebhookChannel(cfg.Alerting.WebhookURL))
	}
	if cfg.Alerting.SlackWebhookURL != "" {
		channels = append(channels, alerting.NewSlackChannel(cfg.Alerting.SlackWebhookURL))
	}
	alertManager := alerting.NewManager(zapLogger, alerting.NewSystem(alerting.Thresholds{
		DriftPercentCritical:           cfg.Alerting.DriftPercentCritical,
		DriftPercentWarning:            cfg.Alerting.DriftPercentWarning,
		PerformanceDegradationCritical: cfg.Alerting.PerformanceDegCritical,
		PerformanceDegradationWarning:  cfg.Alerting.PerformanceDegWarning,
	}), channels...)

	// Retraining gate and the job it runs. The job regenerates a training
	// window seeded by the new version, retrains, promotes the result, and
	// swaps the monitor's drift baselines to the fresh reference.
	var monitorSvc *monitor.Service
	var gate *retraining.Gate
	var trainFn retraining.TrainFunc
	if cfg.Retraining.Enabled {
		gate = retraining.NewGate(zapLogger, history)
		trainFn = func(ctx context.Context, newVersion string) (int, error) {
			txns := datagen.NewGenerator(zapLogger, generatorConfig(cfg, newVersion)).Generate(cfg.Generator.Samples)
			extractor.FitReference(txns)
			matrix := extractor.BatchFeatures(txns)
			trained, err := trainer.Train(matrix.Rows, features.Labels(txns))
			if err != nil {
				return 0, err
			}
			if err := registry.Save(newVersion, trained, matrix.Names); err != nil {
				return 0, err
			}
			scorer.SetModel(trained.Model, newVersion)
			if monitorSvc != nil {
				monitorSvc.SetDetector(drift.NewDetector(
					zapLogger,
					drift.DatasetFromMatrix("training_reference", matrix.Names, matrix.Rows),
					cfg.Drift.Features,
					cfg.Drift.SignificanceLevel,
				))
				monitorSvc.SetPerformanceDetector(drift.NewPerformanceDetector(
					zapLogger, trained.Model, trained.Metrics, cfg.Retraining.Threshold))
			}
			return trained.TrainingSamples, nil
		}
	}

	// Drift monitor over the recently scored transactions
	monitorSvc, err = monitor.NewService(zapLogger, monitor.Config{
		CheckInterval: cfg.Drift.CheckInterval,
		MinSamples:    cfg.Drift.MinSamples,
		DatasetName:   "scoring_window",
		AutoRetrain:   cfg.Retraining.AutoExecute,
	}, monitor.Deps{
		Detector:    detector,
		Performance: performance,
		Alerts:      alertManager,
		Gate:        gate,
		Source: monitor.SampleSourceFunc(func(ctx context.Context) ([]models.Transaction, error) {
			return scorer.TransactionsSince(ctx, time.Now().Add(-cfg.Drift.CheckInterval), 0)
		}),
		Extractor: extractor,
		Scorer:    scorer,
		Train:     trainFn,
	})
	if err != nil {
		zapLogger.Fatal("Failed to create drift monitor", zap.Error(err))
	}
	if err := monitorSvc.Start(ctx); err != nil {
		zapLogger.Fatal("Failed to start drift monitor", zap.Error(err))
	}

	// Kafka stream scoring
	var streamWorker *inference.StreamWorker
	if cfg.Kafka.Enabled {
		streamWorker = inference.NewStreamWorker(zapLogger, inference.StreamConfig{
			Brokers:       cfg.Kafka.Brokers,
			InputTopic:    cfg.Kafka.TransactionsTopic,
			OutputTopic:   cfg.Kafka.ScoresTopic,
			ConsumerGroup: cfg.Kafka.ConsumerGroup,
		}, scorer)
		if err := streamWorker.Start(ctx); err != nil {
			zapLogger.Fatal("Failed to start stream worker", zap.Error(err))
		}
	}

	// Schedule DB pool metrics collection every 30s
	tickerDB := time.NewTicker(30 * time.Second)
	go func() {
		for range tickerDB.C {
			if sqlDB, err := db.DB(); err == nil {
				stats := sqlDB.Stats()
				metrics.DBOpenConns.WithLabelValues(cfg.Database.Driver).Set(float64(stats.OpenConnections))
				metrics.DBIdleConns.WithLabelValues(cfg.Database.Driver).Set(float64(stats.Idle))
				metrics.DBInUseConns.WithLabelValues(cfg.Database.Driver).Set(float64(stats.InUse))
			}
		}
	}()

	// Create API server
	apiServer := api.NewServer(zapLogger, api.Config{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		RateLimit:    cfg.Server.RateLimit,
	}, api.Deps{
		Scorer:  scorer,
		Monitor: monitorSvc,
		Alerts:  alertManager,
		Gate:    gate,
		Generator: datagen.NewGenerator(zapLogger, datagen.Config{
			Seed:      uint64(cfg.Generator.Seed),
			FraudRate: cfg.Generator.FraudRate,
			Users:     cfg.Generator.Users,
		}),
		Registry: registry,
	})

	// Start server in a goroutine
	go func() {
		if err := apiServer.Start(); err != nil {
			zapLogger.Fatal("Failed to start API server", zap.Error(err))
		}
	}()

	// Wait for interrupt to shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shut down API server", zap.Error(err))
	}
	if streamWorker != nil {
		if err := streamWorker.Stop(); err != nil {
			zapLogger.Error("Failed to stop stream worker", zap.Error(err))
		}
	}
	monitorSvc.Stop()
	tickerDB.Stop()

	zapLogger.Info("Server exited properly")
}

// generatorConfig derives the synthetic data settings for a model version.
// Each version gets its own seed so the training window it was fit on can be
// reproduced after a restart.
func generatorConfig(cfg *config.Config, version string) datagen.Config {
	seed := uint64(cfg.Generator.Seed)
	if n, err := strconv.Atoi(strings.TrimPrefix(version, "v")); err == nil && n > 1 {
		seed += uint64(n - 1)
	}
	return datagen.Config{
		Seed:      seed,
		FraudRate: cfg.Generator.FraudRate,
		Users:     cfg.Generator.Users,
	}
}

func decodeMetrics(logger *zap.Logger, raw string) map[string]float64 {
	if raw == "" {
		return nil
	}
	var m map[string]float64
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		logger.Warn("Failed to decode stored model metrics", zap.Error(err))
		return nil
	}
	return m
}
