package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Engine        EngineConfig
	Journal       JournalConfig
	Notifications NotificationsConfig
	Vision        VisionConfig
	HACT          HACTConfig
	Attachments   AttachmentsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// EngineConfig tunes the state machine runtime. The FR review threshold is the
// USD amount above which closing requires a final review attachment instead of
// plain FR/actual equality; it differs per document kind.
type EngineConfig struct {
	FRReviewThresholdUSD map[string]float64
	MaxAutoFollowHops    int
}

// JournalConfig caps change journal growth per document kind.
type JournalConfig struct {
	MaxEntriesPerKind map[string]int
}

// NotificationsConfig governs the outbound notification sink.
type NotificationsConfig struct {
	Enabled   bool
	DedupeTTL time.Duration
}

// VisionConfig governs the ERP fund reservation feed.
type VisionConfig struct {
	Enabled   bool
	BatchSize int
}

// HACTConfig controls partner counter recomputation.
type HACTConfig struct {
	Deferred     bool
	QueueWorkers int
}

// AttachmentsConfig controls the blob store and signed downloads.
type AttachmentsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Engine = EngineConfig{
		FRReviewThresholdUSD: map[string]float64{
			"intervention":        v.GetFloat64("ENGINE_FR_REVIEW_THRESHOLD_INTERVENTION"),
			"engagement":          v.GetFloat64("ENGINE_FR_REVIEW_THRESHOLD_ENGAGEMENT"),
			"travel":              v.GetFloat64("ENGINE_FR_REVIEW_THRESHOLD_TRAVEL"),
			"tpm_visit":           v.GetFloat64("ENGINE_FR_REVIEW_THRESHOLD_TPM_VISIT"),
			"monitoring_activity": v.GetFloat64("ENGINE_FR_REVIEW_THRESHOLD_MONITORING"),
		},
		MaxAutoFollowHops: v.GetInt("ENGINE_MAX_AUTO_FOLLOW_HOPS"),
	}

	cfg.Journal = JournalConfig{
		MaxEntriesPerKind: map[string]int{
			"intervention":        v.GetInt("JOURNAL_MAX_ENTRIES_INTERVENTION"),
			"engagement":          v.GetInt("JOURNAL_MAX_ENTRIES_ENGAGEMENT"),
			"travel":              v.GetInt("JOURNAL_MAX_ENTRIES_TRAVEL"),
			"tpm_visit":           v.GetInt("JOURNAL_MAX_ENTRIES_TPM_VISIT"),
			"monitoring_activity": v.GetInt("JOURNAL_MAX_ENTRIES_MONITORING"),
		},
	}

	cfg.Notifications = NotificationsConfig{
		Enabled:   v.GetBool("ENABLE_NOTIFICATIONS"),
		DedupeTTL: parseDuration(v.GetString("NOTIFICATIONS_DEDUPE_TTL"), 24*time.Hour),
	}

	cfg.Vision = VisionConfig{
		Enabled:   v.GetBool("ENABLE_VISION_SYNC"),
		BatchSize: v.GetInt("VISION_BATCH_SIZE"),
	}

	cfg.HACT = HACTConfig{
		Deferred:     v.GetBool("HACT_DEFERRED_ROLLUP"),
		QueueWorkers: v.GetInt("HACT_QUEUE_WORKERS"),
	}

	cfg.Attachments = AttachmentsConfig{
		StorageDir:      v.GetString("ATTACHMENTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("ATTACHMENTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("ATTACHMENTS_SIGNED_URL_TTL"), 30*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "etools_docflow")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENGINE_FR_REVIEW_THRESHOLD_INTERVENTION", 100000)
	v.SetDefault("ENGINE_FR_REVIEW_THRESHOLD_ENGAGEMENT", 50000)
	v.SetDefault("ENGINE_FR_REVIEW_THRESHOLD_TRAVEL", 0)
	v.SetDefault("ENGINE_FR_REVIEW_THRESHOLD_TPM_VISIT", 0)
	v.SetDefault("ENGINE_FR_REVIEW_THRESHOLD_MONITORING", 0)
	v.SetDefault("ENGINE_MAX_AUTO_FOLLOW_HOPS", 1)

	v.SetDefault("JOURNAL_MAX_ENTRIES_INTERVENTION", 2000)
	v.SetDefault("JOURNAL_MAX_ENTRIES_ENGAGEMENT", 1000)
	v.SetDefault("JOURNAL_MAX_ENTRIES_TRAVEL", 1000)
	v.SetDefault("JOURNAL_MAX_ENTRIES_TPM_VISIT", 1000)
	v.SetDefault("JOURNAL_MAX_ENTRIES_MONITORING", 1000)

	v.SetDefault("ENABLE_NOTIFICATIONS", false)
	v.SetDefault("NOTIFICATIONS_DEDUPE_TTL", "24h")

	v.SetDefault("ENABLE_VISION_SYNC", false)
	v.SetDefault("VISION_BATCH_SIZE", 500)

	v.SetDefault("HACT_DEFERRED_ROLLUP", false)
	v.SetDefault("HACT_QUEUE_WORKERS", 1)

	v.SetDefault("ATTACHMENTS_STORAGE_DIR", "./attachments")
	v.SetDefault("ATTACHMENTS_SIGNED_URL_SECRET", "dev_attachments_secret")
	v.SetDefault("ATTACHMENTS_SIGNED_URL_TTL", "30m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
