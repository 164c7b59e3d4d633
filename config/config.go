package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Render modes.
const (
	RenderLocal  = "local"
	RenderRemote = "remote"
)

// Lock backends.
const (
	LockMemory = "memory"
	LockRedis  = "redis"
)

// Config stores the application configuration.
type Config struct {
	Port   string
	Host   string // public base URL, used for OAuth redirects
	Secret string // signs session tokens and OAuth state

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBDebug    bool

	// Redis is optional; an empty host disables the token cache and forces the memory lock.
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageRegion    string
	StorageUseSSL    bool
	SignedURLTTL     time.Duration

	MarketplaceAPIURL       string // GraphQL + token host
	MarketplaceUploadURL    string // presigned form params host
	MarketplaceClientID     string
	MarketplaceClientSecret string
	MarketplaceEnv          string
	MarketplaceMemberID     string // default uploader id when a profile connection carries none

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	RenderMode         string
	FFmpegPath         string
	ScratchDir         string
	RenderFunctionName string
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	PollInterval time.Duration
	PollAttempts int

	MetadataTimeout time.Duration
	TransferTimeout time.Duration
	RenderTimeout   time.Duration

	LockBackend    string
	LockTTL        time.Duration
	WorkerPoolSize int

	LogLevel      string
	LogPath       string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int
	LogCompress   bool
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("5s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() does not override variables that are already set.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}

	host := strings.TrimRight(getEnv("HOST", "http://localhost:3000"), "/")

	return &Config{
		Port:   getEnv("PORT", "3000"),
		Host:   host,
		Secret: getEnv("APP_SECRET", ""),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "bosko"),
		DBDebug:    getEnvBool("DB_DEBUG", false),

		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		StorageEndpoint:  getEnv("S3_ENDPOINT", "s3.amazonaws.com"),
		StorageAccessKey: getEnv("S3_ACCESS_KEY", ""),
		StorageSecretKey: getEnv("S3_SECRET_KEY", ""),
		StorageBucket:    getEnv("S3_BUCKET", "bosko-files"),
		StorageRegion:    getEnv("S3_REGION", "us-east-1"),
		StorageUseSSL:    getEnvBool("S3_USE_SSL", true),
		SignedURLTTL:     getEnvDuration("SIGNED_URL_TTL", 1800*time.Second),

		MarketplaceAPIURL:       getEnv("BEATSTARS_API_URL", "https://core.prod.beatstars.net"),
		MarketplaceUploadURL:    getEnv("BEATSTARS_UPLOAD_URL", "https://uppy-v4.beatstars.net"),
		MarketplaceClientID:     getEnv("BEATSTARS_CLIENT_ID", ""),
		MarketplaceClientSecret: getEnv("BEATSTARS_CLIENT_SECRET", ""),
		MarketplaceEnv:          getEnv("BEATSTARS_ENV", "prod"),
		MarketplaceMemberID:     getEnv("BEATSTARS_MEMBER_ID", ""),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", host+"/api/google/callback"),

		RenderMode:         getEnv("RENDER_MODE", RenderLocal),
		FFmpegPath:         getEnv("FFMPEG_PATH", "ffmpeg"),
		ScratchDir:         getEnv("SCRATCH_DIR", os.TempDir()),
		RenderFunctionName: getEnv("RENDER_FUNCTION_NAME", "generate-video"),
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),

		PollInterval: getEnvDuration("POLL_INTERVAL", 5*time.Second),
		PollAttempts: getEnvInt("POLL_ATTEMPTS", 12),

		MetadataTimeout: getEnvDuration("METADATA_TIMEOUT", 30*time.Second),
		TransferTimeout: getEnvDuration("TRANSFER_TIMEOUT", 5*time.Minute),
		RenderTimeout:   getEnvDuration("RENDER_TIMEOUT", 10*time.Minute),

		LockBackend:    getEnv("LOCK_BACKEND", LockMemory),
		LockTTL:        getEnvDuration("LOCK_TTL", 15*time.Minute),
		WorkerPoolSize: getEnvInt("WORKER_POOL_SIZE", 4),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogPath:       getEnv("LOG_PATH", ""),
		LogMaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAge:     getEnvInt("LOG_MAX_AGE", 30),
		LogCompress:   getEnvBool("LOG_COMPRESS", true),
	}
}

// DSN returns the MySQL connection string for gorm.
func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName +
		"?charset=utf8mb4&parseTime=True&loc=UTC"
}

// StageBudget is the longest one publication stage can run when every remote
// call it makes uses its full timeout.
func (c *Config) StageBudget() time.Duration {
	video := c.MetadataTimeout + c.RenderTimeout + c.TransferTimeout
	polls := time.Duration(c.PollAttempts) * (c.PollInterval + c.MetadataTimeout)
	marketplace := 5*c.MetadataTimeout + polls
	if marketplace > video {
		return marketplace
	}
	return video
}

// EffectiveLockTTL returns LockTTL raised, when needed, so a held track lock
// outlives the stage that holds it.
func (c *Config) EffectiveLockTTL() time.Duration {
	if floor := c.StageBudget() + time.Minute; c.LockTTL < floor {
		return floor
	}
	return c.LockTTL
}

// RedisEnabled reports whether a Redis host is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}
