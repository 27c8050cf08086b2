package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ドキュメントストアの種類
const (
	DocumentStoreFirestore = "firestore"
	DocumentStoreMongo     = "mongo"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Firebase
	FirebaseProjectID string
	CredentialsFile   string
	StorageBucket     string

	// Search
	AlgoliaAppID     string
	AlgoliaAdminKey  string
	AlgoliaSearchKey string
	AlgoliaIndexName string

	// Document store
	DocumentStore string
	MongoURI      string
	MongoDatabase string

	// Dedupe
	RedisURL  string
	DedupeTTL time.Duration

	// Functions
	ImageDeleteConcurrency int
	RoleCompensation       bool

	// Event push
	EventsAudience       string
	EventsServiceAccount string

	// Rate Limit
	RateLimitCallable int

	// Logging
	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// ENV_FILE（既定は .env）が存在する場合は先に読み込む。既に設定済みの環境変数は上書きしない。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	if err := loadEnvFile(getEnvString("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.FirebaseProjectID = os.Getenv("FIREBASE_PROJECT_ID")
	if cfg.FirebaseProjectID == "" {
		missing = append(missing, "FIREBASE_PROJECT_ID")
	}

	cfg.AlgoliaAppID = os.Getenv("ALGOLIA_APP_ID")
	if cfg.AlgoliaAppID == "" {
		missing = append(missing, "ALGOLIA_APP_ID")
	}

	cfg.AlgoliaAdminKey = os.Getenv("ALGOLIA_ADMIN_KEY")
	if cfg.AlgoliaAdminKey == "" {
		missing = append(missing, "ALGOLIA_ADMIN_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.CredentialsFile = getEnvString("GOOGLE_APPLICATION_CREDENTIALS", "")
	cfg.StorageBucket = getEnvString("STORAGE_BUCKET", cfg.FirebaseProjectID+".appspot.com")
	cfg.AlgoliaSearchKey = getEnvString("ALGOLIA_SEARCH_KEY", "")
	cfg.AlgoliaIndexName = getEnvString("ALGOLIA_INDEX_NAME", "products")
	cfg.DocumentStore = strings.ToLower(getEnvString("DOCUMENT_STORE", DocumentStoreFirestore))
	cfg.MongoURI = getEnvString("MONGODB_URI", "")
	cfg.MongoDatabase = getEnvString("MONGODB_DATABASE", "backoffice")
	cfg.RedisURL = getEnvString("REDIS_URL", "")
	cfg.DedupeTTL = getEnvDuration("DEDUPE_TTL", 24*time.Hour)
	cfg.ImageDeleteConcurrency = getEnvInt("IMAGE_DELETE_CONCURRENCY", 8)
	cfg.RoleCompensation = getEnvBool("ROLE_COMPENSATION", false)
	cfg.EventsAudience = getEnvString("EVENTS_AUDIENCE", "")
	cfg.EventsServiceAccount = getEnvString("EVENTS_SERVICE_ACCOUNT", "")
	cfg.RateLimitCallable = getEnvInt("RATE_LIMIT_CALLABLE", 60)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.LogFile = getEnvString("LOG_FILE", "")
	cfg.LogMaxSizeMB = getEnvInt("LOG_MAX_SIZE_MB", 100)
	cfg.LogMaxBackups = getEnvInt("LOG_MAX_BACKUPS", 5)
	cfg.LogMaxAgeDays = getEnvInt("LOG_MAX_AGE_DAYS", 14)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "")

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate は項目間の整合性を検証する。
func (c *Config) validate() error {
	switch c.DocumentStore {
	case DocumentStoreFirestore:
	case DocumentStoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is required when DOCUMENT_STORE=%s", DocumentStoreMongo)
		}
	default:
		return fmt.Errorf("unsupported DOCUMENT_STORE: %q", c.DocumentStore)
	}
	return nil
}

// loadEnvFile はpathの.envファイルを読み込む。ファイルが無い場合は何もしない。
func loadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
