package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/couchcryptid/water-level-analysis/internal/domain"
)

// Config holds all service settings, read from an optional config file and
// overridden by environment variables of the same name.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	KafkaEnabled     bool
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// CacheSize is the number of analysis results kept; 0 disables the cache.
	CacheSize int

	// Analysis defaults for jobs that carry no config of their own.
	TideRemovalMethod   string
	ExtremeThreshold    float64
	ConfidenceThreshold string
	AnalysisStart       string
	AnalysisEnd         string
}

const maxBatchSize = 1000

// Load reads configuration, applying defaults where unset. path names an
// optional YAML, TOML, or JSON file; when empty, CONFIG_FILE is consulted.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	shutdownTimeout, err := positiveDuration(v, "shutdown_timeout")
	if err != nil {
		return nil, err
	}
	flushInterval, err := positiveDuration(v, "batch_flush_interval")
	if err != nil {
		return nil, err
	}

	batchSize := v.GetInt("batch_size")
	if batchSize < 1 || batchSize > maxBatchSize {
		return nil, fmt.Errorf("invalid BATCH_SIZE %q: must be between 1 and %d", v.GetString("batch_size"), maxBatchSize)
	}
	cacheSize := v.GetInt("cache_size")
	if cacheSize < 0 {
		return nil, fmt.Errorf("invalid CACHE_SIZE %d: must not be negative", cacheSize)
	}

	cfg := &Config{
		KafkaBrokers:       brokers(v),
		KafkaSourceTopic:   strings.TrimSpace(v.GetString("kafka_source_topic")),
		KafkaSinkTopic:     strings.TrimSpace(v.GetString("kafka_sink_topic")),
		KafkaGroupID:       strings.TrimSpace(v.GetString("kafka_group_id")),
		KafkaEnabled:       v.GetBool("kafka_enabled"),
		HTTPAddr:           v.GetString("http_addr"),
		LogLevel:           v.GetString("log_level"),
		LogFormat:          v.GetString("log_format"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
		CacheSize:          cacheSize,

		TideRemovalMethod:   v.GetString("tide_removal_method"),
		ExtremeThreshold:    v.GetFloat64("extreme_threshold"),
		ConfidenceThreshold: v.GetString("confidence_threshold"),
		AnalysisStart:       v.GetString("analysis_start"),
		AnalysisEnd:         v.GetString("analysis_end"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("kafka_brokers", "localhost:9092")
	v.SetDefault("kafka_source_topic", "water-level-jobs")
	v.SetDefault("kafka_sink_topic", "water-level-events")
	v.SetDefault("kafka_group_id", "water-level-analyzer")
	v.SetDefault("kafka_enabled", true)
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("shutdown_timeout", "10s")
	v.SetDefault("batch_size", 50)
	v.SetDefault("batch_flush_interval", "500ms")
	v.SetDefault("cache_size", 128)

	v.SetDefault("tide_removal_method", string(domain.TideRemovalHarmonic))
	v.SetDefault("extreme_threshold", 1.0)
	v.SetDefault("confidence_threshold", string(domain.ConfidenceLow))
	v.SetDefault("analysis_start", "")
	v.SetDefault("analysis_end", "")
}

func (c *Config) validate() error {
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required")
		}
		if c.KafkaSourceTopic == "" {
			return errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if c.KafkaSinkTopic == "" {
			return errors.New("KAFKA_SINK_TOPIC is required")
		}
	}
	if _, err := c.Analysis(); err != nil {
		return err
	}
	return nil
}

// Analysis returns the default analysis settings as a validated domain config.
func (c *Config) Analysis() (domain.AnalysisConfig, error) {
	method, err := domain.ParseTideRemovalMethod(c.TideRemovalMethod)
	if err != nil {
		return domain.AnalysisConfig{}, fmt.Errorf("invalid TIDE_REMOVAL_METHOD: %w", err)
	}
	confidence, err := domain.ParseConfidence(c.ConfidenceThreshold)
	if err != nil {
		return domain.AnalysisConfig{}, fmt.Errorf("invalid CONFIDENCE_THRESHOLD: %w", err)
	}
	start, err := parseOptionalTime("ANALYSIS_START", c.AnalysisStart)
	if err != nil {
		return domain.AnalysisConfig{}, err
	}
	end, err := parseOptionalTime("ANALYSIS_END", c.AnalysisEnd)
	if err != nil {
		return domain.AnalysisConfig{}, err
	}

	ac := domain.AnalysisConfig{
		TideRemovalMethod:   method,
		ExtremeThreshold:    c.ExtremeThreshold,
		ConfidenceThreshold: confidence,
		StartTime:           start,
		EndTime:             end,
	}
	if err := ac.Validate(); err != nil {
		return domain.AnalysisConfig{}, fmt.Errorf("invalid analysis defaults (EXTREME_THRESHOLD, ANALYSIS_START, ANALYSIS_END): %w", err)
	}
	return ac, nil
}

func positiveDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive duration", strings.ToUpper(key), raw)
	}
	return d, nil
}

func parseOptionalTime(key, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return &t, nil
}

// brokers accepts a comma-separated string (environment) or a list (config file).
func brokers(v *viper.Viper) []string {
	if raw, ok := v.Get("kafka_brokers").(string); ok {
		return parseBrokers(raw)
	}
	return v.GetStringSlice("kafka_brokers")
}

func parseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
