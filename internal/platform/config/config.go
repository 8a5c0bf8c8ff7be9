// Package config reads process configuration from environment variables.
// Binaries load a .env file first so local runs need no exported variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config groups every setting the leasehold binaries read.
type Config struct {
	Server    Server
	Log       Log
	Postgres  PostgresConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Scheduler SchedulerConfig
	Activity  ActivityConfig
	Content   ContentConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type Log struct {
	Level  string
	Format string
}

// PostgresConfig selects the property store. An empty URL keeps everything in memory.
type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig is optional. An empty URL disables the sweep lock, persona lookup
// and write throttle.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig is optional. Without brokers the area-entry feed and outbox relay
// are not started.
type KafkaConfig struct {
	Brokers         []string
	ConsumerGroup   string
	AreaEntryTopic  string
	AuditTopic      string
	RelayInterval   time.Duration
	RelayBatchSize  int
	CreateTopics    bool
	TopicPartitions int32
}

type SchedulerConfig struct {
	Enabled         bool
	InitialDelay    time.Duration
	Interval        time.Duration
	ShutdownTimeout time.Duration
	// GraceDaysOverride replaces every property's grace window when set.
	GraceDaysOverride *int
	LockTTL           time.Duration
}

type ActivityConfig struct {
	MaxInFlight    int64
	ThrottleWindow time.Duration
}

type ContentConfig struct {
	Path             string
	DefaultGraceDays int
}

// Enabled reports whether Kafka brokers were configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	e := &envReader{}
	cfg := Config{
		Server: Server{
			Addr:            e.str("LEASEHOLD_ADDR", ":8080"),
			RequestTimeout:  e.duration("LEASEHOLD_REQUEST_TIMEOUT", 10*time.Second),
			ShutdownTimeout: e.duration("LEASEHOLD_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Log: Log{
			Level:  e.str("LOG_LEVEL", "info"),
			Format: e.str("LOG_FORMAT", "json"),
		},
		Postgres: PostgresConfig{
			URL:             e.str("DATABASE_URL", ""),
			MaxOpenConns:    e.integer("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    e.integer("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: e.duration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          e.str("REDIS_URL", ""),
			PoolSize:     e.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: e.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  e.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  e.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: e.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:         e.list("KAFKA_BROKERS"),
			ConsumerGroup:   e.str("KAFKA_CONSUMER_GROUP", "leasehold"),
			AreaEntryTopic:  e.str("AREA_ENTRY_TOPIC", "world.area-entered"),
			AuditTopic:      e.str("AUDIT_TOPIC", "leasehold.audit"),
			RelayInterval:   e.duration("OUTBOX_RELAY_INTERVAL", time.Second),
			RelayBatchSize:  e.integer("OUTBOX_RELAY_BATCH_SIZE", 100),
			CreateTopics:    e.boolean("KAFKA_CREATE_TOPICS", true),
			TopicPartitions: int32(e.integer("KAFKA_TOPIC_PARTITIONS", 3)),
		},
		Scheduler: SchedulerConfig{
			Enabled:           e.boolean("EVICTION_SCHEDULER_ENABLED", true),
			InitialDelay:      e.duration("EVICTION_INITIAL_DELAY", 30*time.Second),
			Interval:          e.duration("EVICTION_INTERVAL", time.Hour),
			ShutdownTimeout:   e.duration("EVICTION_SHUTDOWN_TIMEOUT", 10*time.Second),
			GraceDaysOverride: e.optionalInteger("EVICTION_GRACE_DAYS_OVERRIDE"),
			LockTTL:           e.duration("EVICTION_LOCK_TTL", 5*time.Minute),
		},
		Activity: ActivityConfig{
			MaxInFlight:    int64(e.integer("ACTIVITY_MAX_IN_FLIGHT", 64)),
			ThrottleWindow: e.duration("ACTIVITY_THROTTLE_WINDOW", 5*time.Minute),
		},
		Content: ContentConfig{
			Path:             e.str("WORLD_CONTENT_PATH", ""),
			DefaultGraceDays: e.integer("DEFAULT_EVICTION_GRACE_DAYS", 2),
		},
	}
	if e.err != nil {
		return Config{}, e.err
	}
	return cfg, nil
}

// envReader collects the first parse failure so FromEnv reads top to bottom.
type envReader struct {
	err error
}

func (e *envReader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func (e *envReader) list(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (e *envReader) integer(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return v
}

func (e *envReader) optionalInteger(key string) *int {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		e.fail(key, err)
		return nil
	}
	if v < 0 {
		e.fail(key, fmt.Errorf("must not be negative"))
		return nil
	}
	return &v
}

func (e *envReader) boolean(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return v
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return v
}

func (e *envReader) fail(key string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid %s: %w", key, err)
	}
}
