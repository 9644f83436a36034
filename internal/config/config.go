package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Host            string        `yaml:"host" json:"host"`
		Port            int           `yaml:"port" json:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
		IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
		RateLimit       string        `yaml:"rate_limit" json:"rate_limit"` // ulule/limiter format, e.g. "100-M"
	} `yaml:"server" json:"server"`
	Log struct {
		Level  string `yaml:"level" json:"level"`
		Format string `yaml:"format" json:"format"` // json or console
	} `yaml:"log" json:"log"`
	Database struct {
		Driver          string `yaml:"driver" json:"driver"` // sqlite or postgres
		DSN             string `yaml:"dsn" json:"dsn"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns"`
		MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime"` // seconds
	} `yaml:"database" json:"database"`
	Redis struct {
		Enabled  bool   `yaml:"enabled" json:"enabled"`
		Address  string `yaml:"address" json:"address"`
		Password string `yaml:"password" json:"password"`
		DB       int    `yaml:"db" json:"db"`
	} `yaml:"redis" json:"redis"`
	Kafka struct {
		Enabled           bool     `yaml:"enabled" json:"enabled"`
		Brokers           []string `yaml:"brokers" json:"brokers"`
		TransactionsTopic string   `yaml:"transactions_topic" json:"transactions_topic"`
		ScoresTopic       string   `yaml:"scores_topic" json:"scores_topic"`
		ConsumerGroup     string   `yaml:"consumer_group" json:"consumer_group"`
	} `yaml:"kafka" json:"kafka"`
	Drift struct {
		SignificanceLevel float64       `yaml:"significance_level" json:"significance_level"`
		CheckInterval     time.Duration `yaml:"check_interval" json:"check_interval"`
		MinSamples        int           `yaml:"min_samples" json:"min_samples"`
		Features          []string      `yaml:"features" json:"features"`
	} `yaml:"drift" json:"drift"`
	Alerting struct {
		DriftPercentCritical   float64 `yaml:"drift_percent_critical" json:"drift_percent_critical"`
		DriftPercentWarning    float64 `yaml:"drift_percent_warning" json:"drift_percent_warning"`
		PerformanceDegCritical float64 `yaml:"performance_deg_critical" json:"performance_deg_critical"`
		PerformanceDegWarning  float64 `yaml:"performance_deg_warning" json:"performance_deg_warning"`
		WebhookURL             string  `yaml:"webhook_url" json:"webhook_url"`
		SlackWebhookURL        string  `yaml:"slack_webhook_url" json:"slack_webhook_url"`
	} `yaml:"alerting" json:"alerting"`
	Retraining struct {
		Enabled     bool    `yaml:"enabled" json:"enabled"`
		AutoExecute bool    `yaml:"auto_execute" json:"auto_execute"`
		Threshold   float64 `yaml:"performance_threshold" json:"performance_threshold"` // relative metric change
	} `yaml:"retraining" json:"retraining"`
	Training struct {
		Seed          int64   `yaml:"seed" json:"seed"`
		TestFraction  float64 `yaml:"test_fraction" json:"test_fraction"`
		ValFraction   float64 `yaml:"val_fraction" json:"val_fraction"`
		FlagThreshold float64 `yaml:"flag_threshold" json:"flag_threshold"`
	} `yaml:"training" json:"training"`
	Generator struct {
		Seed      int64   `yaml:"seed" json:"seed"`
		Users     int     `yaml:"users" json:"users"`
		FraudRate float64 `yaml:"fraud_rate" json:"fraud_rate"`
		Samples   int     `yaml:"samples" json:"samples"`
	} `yaml:"generator" json:"generator"`
}

// LoadConfig loads the application configuration
func LoadConfig() (*Config, error) {
	// Set default configuration
	config := &Config{}

	config.Server.Host = "0.0.0.0"
	config.Server.Port = 8080
	config.Server.ReadTimeout = 30 * time.Second
	config.Server.WriteTimeout = 30 * time.Second
	config.Server.IdleTimeout = 120 * time.Second
	config.Server.ShutdownTimeout = 30 * time.Second
	config.Server.RateLimit = "100-M"

	config.Log.Level = "info"
	config.Log.Format = "json"

	config.Database.Driver = "sqlite"
	config.Database.DSN = "fraudsight.db"
	config.Database.MaxOpenConns = 25
	config.Database.MaxIdleConns = 5
	config.Database.ConnMaxLifetime = 3600

	config.Redis.Enabled = false
	config.Redis.Address = "localhost:6379"
	config.Redis.Password = ""
	config.Redis.DB = 0

	config.Kafka.Enabled = false
	config.Kafka.Brokers = []string{"localhost:9092"}
	config.Kafka.TransactionsTopic = "transactions"
	config.Kafka.ScoresTopic = "fraud-scores"
	config.Kafka.ConsumerGroup = "fraudsight-scorer"

	config.Drift.SignificanceLevel = 0.05
	config.Drift.CheckInterval = time.Hour
	config.Drift.MinSamples = 100
	config.Drift.Features = nil // nil means all reference features

	config.Alerting.DriftPercentCritical = 50
	config.Alerting.DriftPercentWarning = 25
	config.Alerting.PerformanceDegCritical = 0.10
	config.Alerting.PerformanceDegWarning = 0.05

	config.Retraining.Enabled = true
	config.Retraining.AutoExecute = false
	config.Retraining.Threshold = 0.05

	config.Training.Seed = 42
	config.Training.TestFraction = 0.15
	config.Training.ValFraction = 0.15
	config.Training.FlagThreshold = 0.5

	config.Generator.Seed = 42
	config.Generator.Users = 200
	config.Generator.FraudRate = 0.02
	config.Generator.Samples = 10000

	// Load configuration from environment variables
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port, err := strconv.Atoi(os.Getenv("SERVER_PORT")); err == nil {
		config.Server.Port = port
	}
	if rate := os.Getenv("SERVER_RATE_LIMIT"); rate != "" {
		config.Server.RateLimit = rate
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		config.Log.Format = format
	}

	if driver := os.Getenv("DATABASE_DRIVER"); driver != "" {
		config.Database.Driver = driver
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		config.Database.DSN = dsn
	}

	if enabled := os.Getenv("REDIS_ENABLED"); enabled != "" {
		config.Redis.Enabled = enabled == "true"
	}
	if redisAddr := os.Getenv("REDIS_ADDRESS"); redisAddr != "" {
		config.Redis.Address = redisAddr
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		config.Redis.Password = redisPassword
	}
	if redisDB, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil {
		config.Redis.DB = redisDB
	}

	if enabled := os.Getenv("KAFKA_ENABLED"); enabled != "" {
		config.Kafka.Enabled = enabled == "true"
	}
	if kafkaBrokers := os.Getenv("KAFKA_BROKERS"); kafkaBrokers != "" {
		config.Kafka.Brokers = strings.Split(kafkaBrokers, ",")
	}
	if topic := os.Getenv("KAFKA_TRANSACTIONS_TOPIC"); topic != "" {
		config.Kafka.TransactionsTopic = topic
	}
	if topic := os.Getenv("KAFKA_SCORES_TOPIC"); topic != "" {
		config.Kafka.ScoresTopic = topic
	}
	if group := os.Getenv("KAFKA_CONSUMER_GROUP"); group != "" {
		config.Kafka.ConsumerGroup = group
	}

	if sig, err := strconv.ParseFloat(os.Getenv("DRIFT_SIGNIFICANCE_LEVEL"), 64); err == nil {
		config.Drift.SignificanceLevel = sig
	}
	if interval, err := time.ParseDuration(os.Getenv("DRIFT_CHECK_INTERVAL")); err == nil {
		config.Drift.CheckInterval = interval
	}
	if features := os.Getenv("DRIFT_FEATURES"); features != "" {
		config.Drift.Features = strings.Split(features, ",")
	}

	if webhook := os.Getenv("ALERT_WEBHOOK_URL"); webhook != "" {
		config.Alerting.WebhookURL = webhook
	}
	if slack := os.Getenv("ALERT_SLACK_WEBHOOK_URL"); slack != "" {
		config.Alerting.SlackWebhookURL = slack
	}

	if enabled := os.Getenv("RETRAINING_ENABLED"); enabled != "" {
		config.Retraining.Enabled = enabled == "true"
	}
	if auto := os.Getenv("RETRAINING_AUTO_EXECUTE"); auto != "" {
		config.Retraining.AutoExecute = auto == "true"
	}

	// Load configuration from file
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/fraudsight")

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use default and environment values
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		// Config file found, override default and environment values
		if viper.IsSet("server.host") {
			config.Server.Host = viper.GetString("server.host")
		}
		if viper.IsSet("server.port") {
			config.Server.Port = viper.GetInt("server.port")
		}
		if viper.IsSet("server.rate_limit") {
			config.Server.RateLimit = viper.GetString("server.rate_limit")
		}
		if viper.IsSet("log.level") {
			config.Log.Level = viper.GetString("log.level")
		}
		if viper.IsSet("log.format") {
			config.Log.Format = viper.GetString("log.format")
		}
		if viper.IsSet("database.driver") {
			config.Database.Driver = viper.GetString("database.driver")
		}
		if viper.IsSet("database.dsn") {
			config.Database.DSN = viper.GetString("database.dsn")
		}
		if viper.IsSet("redis.enabled") {
			config.Redis.Enabled = viper.GetBool("redis.enabled")
		}
		if viper.IsSet("redis.address") {
			config.Redis.Address = viper.GetString("redis.address")
		}
		if viper.IsSet("redis.password") {
			config.Redis.Password = viper.GetString("redis.password")
		}
		if viper.IsSet("redis.db") {
			config.Redis.DB = viper.GetInt("redis.db")
		}
		if viper.IsSet("kafka.enabled") {
			config.Kafka.Enabled = viper.GetBool("kafka.enabled")
		}
		if viper.IsSet("kafka.brokers") {
			config.Kafka.Brokers = viper.GetStringSlice("kafka.brokers")
		}
		if viper.IsSet("kafka.transactions_topic") {
			config.Kafka.TransactionsTopic = viper.GetString("kafka.transactions_topic")
		}
		if viper.IsSet("kafka.scores_topic") {
			config.Kafka.ScoresTopic = viper.GetString("kafka.scores_topic")
		}
		if viper.IsSet("kafka.consumer_group") {
			config.Kafka.ConsumerGroup = viper.GetString("kafka.consumer_group")
		}
		if viper.IsSet("drift.significance_level") {
			config.Drift.SignificanceLevel = viper.GetFloat64("drift.significance_level")
		}
		if viper.IsSet("drift.check_interval") {
			config.Drift.CheckInterval = viper.GetDuration("drift.check_interval")
		}
		if viper.IsSet("drift.min_samples") {
			config.Drift.MinSamples = viper.GetInt("drift.min_samples")
		}
		if viper.IsSet("drift.features") {
			config.Drift.Features = viper.GetStringSlice("drift.features")
		}
		if viper.IsSet("alerting.drift_percent_critical") {
			config.Alerting.DriftPercentCritical = viper.GetFloat64("alerting.drift_percent_critical")
		}
		if viper.IsSet("alerting.drift_percent_warning") {
			config.Alerting.DriftPercentWarning = viper.GetFloat64("alerting.drift_percent_warning")
		}
		if viper.IsSet("alerting.performance_deg_critical") {
			config.Alerting.PerformanceDegCritical = viper.GetFloat64("alerting.performance_deg_critical")
		}
		if viper.IsSet("alerting.performance_deg_warning") {
			config.Alerting.PerformanceDegWarning = viper.GetFloat64("alerting.performance_deg_warning")
		}
		if viper.IsSet("alerting.webhook_url") {
			config.Alerting.WebhookURL = viper.GetString("alerting.webhook_url")
		}
		if viper.IsSet("alerting.slack_webhook_url") {
			config.Alerting.SlackWebhookURL = viper.GetString("alerting.slack_webhook_url")
		}
		if viper.IsSet("retraining.enabled") {
			config.Retraining.Enabled = viper.GetBool("retraining.enabled")
		}
		if viper.IsSet("retraining.auto_execute") {
			config.Retraining.AutoExecute = viper.GetBool("retraining.auto_execute")
		}
		if viper.IsSet("retraining.performance_threshold") {
			config.Retraining.Threshold = viper.GetFloat64("retraining.performance_threshold")
		}
		if viper.IsSet("training.seed") {
			config.Training.Seed = viper.GetInt64("training.seed")
		}
		if viper.IsSet("training.flag_threshold") {
			config.Training.FlagThreshold = viper.GetFloat64("training.flag_threshold")
		}
		if viper.IsSet("generator.seed") {
			config.Generator.Seed = viper.GetInt64("generator.seed")
		}
		if viper.IsSet("generator.users") {
			config.Generator.Users = viper.GetInt("generator.users")
		}
		if viper.IsSet("generator.fraud_rate") {
			config.Generator.FraudRate = viper.GetFloat64("generator.fraud_rate")
		}
		if viper.IsSet("generator.samples") {
			config.Generator.Samples = viper.GetInt("generator.samples")
		}
	}

	return config, nil
}
