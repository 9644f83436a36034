package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/velora-tech/fraudsight/pkg/errors"
	"github.com/velora-tech/fraudsight/pkg/metrics"
	"github.com/velora-tech/fraudsight/pkg/models"
)

// StreamConfig contains the kafka wiring for the scoring stream.
type StreamConfig struct {
	Brokers       []string `json:"brokers" mapstructure:"brokers"`
	InputTopic    string   `json:"input_topic" mapstructure:"input_topic"`
	OutputTopic   string   `json:"output_topic" mapstructure:"output_topic"`
	ConsumerGroup string   `json:"consumer_group" mapstructure:"consumer_group"`
	MaxBytes      int      `json:"max_bytes" mapstructure:"max_bytes"`
}

// DefaultStreamConfig returns the stream defaults.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Brokers:       []string{"localhost:9092"},
		InputTopic:    "transactions",
		OutputTopic:   "fraud-scores",
		ConsumerGroup: "fraudsight-scorer",
		MaxBytes:      1048576, // 1MB
	}
}

// StreamWorker consumes transactions from kafka, scores them, and publishes
// score events to the output topic.
type StreamWorker struct {
	logger *zap.Logger
	cfg    StreamConfig
	scorer *Scorer

	mu     sync.Mutex
	reader *kafka.Reader
	writer *kafka.Writer
	cancel context.CancelFunc
	done   chan struct{}
}

// NewStreamWorker builds a StreamWorker over an existing Scorer.
func NewStreamWorker(logger *zap.Logger, cfg StreamConfig, scorer *Scorer) *StreamWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.Brokers) == 0 {
		cfg = DefaultStreamConfig()
	}
	return &StreamWorker{logger: logger, cfg: cfg, scorer: scorer}
}

// Start connects to kafka and begins consuming until Stop or context
// cancellation.
func (w *StreamWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return errors.New("stream worker already running")
	}

	w.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:  w.cfg.Brokers,
		Topic:    w.cfg.InputTopic,
		GroupID:  w.cfg.ConsumerGroup,
		MaxBytes: w.cfg.MaxBytes,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			w.logger.Error(fmt.Sprintf(msg, args...))
		}),
	})
	w.writer = &kafka.Writer{
		Addr:         kafka.TCP(w.cfg.Brokers...),
		Topic:        w.cfg.OutputTopic,
		Balancer:     &kafka.CRC32Balancer{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: time.Second,
		RequiredAcks: kafka.RequireOne,
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.run(runCtx, w.done)

	w.logger.Info("stream worker started",
		zap.Strings("brokers", w.cfg.Brokers),
		zap.String("input_topic", w.cfg.InputTopic),
		zap.String("output_topic", w.cfg.OutputTopic),
		zap.String("consumer_group", w.cfg.ConsumerGroup))
	return nil
}

// Stop halts consumption and closes the kafka connections.
func (w *StreamWorker) Stop() error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return nil
	}
	cancel := w.cancel
	done := w.done
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	<-done

	var lastErr error
	if err := w.reader.Close(); err != nil {
		lastErr = err
		w.logger.Error("failed to close stream reader", zap.Error(err))
	}
	if err := w.writer.Close(); err != nil {
		lastErr = err
		w.logger.Error("failed to close stream writer", zap.Error(err))
	}
	w.logger.Info("stream worker stopped")
	return lastErr
}

func (w *StreamWorker) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := w.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return
			}
			w.logger.Error("failed to read stream message", zap.Error(err))
			continue
		}

		w.handleMessage(ctx, msg)
		metrics.StreamLag.Set(float64(w.reader.Lag()))
	}
}

func (w *StreamWorker) handleMessage(ctx context.Context, msg kafka.Message) {
	var txn models.Transaction
	if err := json.Unmarshal(msg.Value, &txn); err != nil {
		metrics.StreamMessages.WithLabelValues("decode_error").Inc()
		w.logger.Warn("dropping undecodable stream message",
			zap.Int64("offset", msg.Offset),
			zap.Error(err))
		return
	}
	if txn.UserID == "" {
		metrics.StreamMessages.WithLabelValues("decode_error").Inc()
		w.logger.Warn("dropping stream message without user id",
			zap.Int64("offset", msg.Offset))
		return
	}
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	if txn.Timestamp.IsZero() {
		if msg.Time.IsZero() {
			txn.Timestamp = time.Now().UTC()
		} else {
			txn.Timestamp = msg.Time
		}
	}

	resp, err := w.scorer.ScoreTransaction(ctx, &txn)
	if err != nil {
		metrics.StreamMessages.WithLabelValues("score_error").Inc()
		w.logger.Error("failed to score stream transaction",
			zap.String("transaction_id", txn.ID.String()),
			zap.Error(err))
		return
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		metrics.StreamMessages.WithLabelValues("publish_error").Inc()
		w.logger.Error("failed to encode score event", zap.Error(err))
		return
	}
	event := kafka.Message{
		Key:   []byte(txn.UserID),
		Value: payload,
		Time:  time.Now(),
	}
	if err := w.writer.WriteMessages(ctx, event); err != nil {
		metrics.StreamMessages.WithLabelValues("publish_error").Inc()
		w.logger.Error("failed to publish score event",
			zap.String("transaction_id", txn.ID.String()),
			zap.Error(err))
		return
	}
	metrics.StreamMessages.WithLabelValues("scored").Inc()
}
