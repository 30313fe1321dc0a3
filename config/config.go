package config

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers.
const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

// Image stores.
const (
	ImageStoreLocal      = "local"
	ImageStoreCloudinary = "cloudinary"
	ImageStoreS3         = "s3"
)

const devJWTSecret = "heartmatch-dev-secret-change-me"

type Config struct {
	Port     string
	GinMode  string
	LogLevel string

	JWTSecret string
	JWTTTL    time.Duration

	StorageDriver     string
	MongoURI          string
	MongoDB           string
	MongoTransactions bool

	RedisAddr       string
	RedisPassword   string
	ProfileCacheTTL time.Duration

	RabbitMQURL      string
	RabbitMQExchange string

	ImageStore     string
	UploadDir      string
	PublicBaseURL  string
	CloudinaryURL  string
	AWSRegion      string
	S3Bucket       string
	MaxUploadBytes int64

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string

	CORSOrigins       []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file loaded", "err", err)
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_TTL", "168h")
	v.SetDefault("STORAGE_DRIVER", StorageMongo)
	v.SetDefault("MONGODB_URI", "mongodb://127.0.0.1:27017")
	v.SetDefault("MONGODB_DB", "heartmatch")
	v.SetDefault("MONGO_TRANSACTIONS", false)
	v.SetDefault("PROFILE_CACHE_TTL", "5m")
	v.SetDefault("RABBITMQ_EXCHANGE", "heartmatch.events")
	v.SetDefault("IMAGE_STORE", ImageStoreLocal)
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("MAX_UPLOAD_BYTES", 5<<20)
	v.SetDefault("VAPID_SUBJECT", "mailto:admin@heartmatch.app")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:19006")
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW", "15m")

	cfg := &Config{
		Port:              v.GetString("PORT"),
		GinMode:           v.GetString("GIN_MODE"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		JWTTTL:            v.GetDuration("JWT_TTL"),
		StorageDriver:     strings.ToLower(v.GetString("STORAGE_DRIVER")),
		MongoURI:          v.GetString("MONGODB_URI"),
		MongoDB:           v.GetString("MONGODB_DB"),
		MongoTransactions: v.GetBool("MONGO_TRANSACTIONS"),
		RedisAddr:         v.GetString("REDIS_ADDR"),
		RedisPassword:     v.GetString("REDIS_PASSWORD"),
		ProfileCacheTTL:   v.GetDuration("PROFILE_CACHE_TTL"),
		RabbitMQURL:       v.GetString("RABBITMQ_URL"),
		RabbitMQExchange:  v.GetString("RABBITMQ_EXCHANGE"),
		ImageStore:        strings.ToLower(v.GetString("IMAGE_STORE")),
		UploadDir:         v.GetString("UPLOAD_DIR"),
		PublicBaseURL:     strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		CloudinaryURL:     v.GetString("CLOUDINARY_URL"),
		AWSRegion:         v.GetString("AWS_REGION"),
		S3Bucket:          v.GetString("S3_BUCKET_NAME"),
		MaxUploadBytes:    v.GetInt64("MAX_UPLOAD_BYTES"),
		VAPIDPublicKey:    v.GetString("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey:   v.GetString("VAPID_PRIVATE_KEY"),
		VAPIDSubject:      v.GetString("VAPID_SUBJECT"),
		CORSOrigins:       splitList(v.GetString("CORS_ORIGINS")),
		RateLimitRequests: v.GetInt("RATE_LIMIT_REQUESTS"),
		RateLimitWindow:   v.GetDuration("RATE_LIMIT_WINDOW"),
	}

	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://localhost:" + cfg.Port
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		if c.GinMode == "release" {
			return errors.New("JWT_SECRET must be set in release mode")
		}
		log.Warn("JWT_SECRET not set, using development secret")
		c.JWTSecret = devJWTSecret
	}
	switch c.StorageDriver {
	case StorageMongo, StorageMemory:
	default:
		return errors.New("STORAGE_DRIVER must be one of mongo, memory")
	}
	switch c.ImageStore {
	case ImageStoreLocal:
	case ImageStoreCloudinary:
		if c.CloudinaryURL == "" {
			return errors.New("CLOUDINARY_URL is required when IMAGE_STORE=cloudinary")
		}
	case ImageStoreS3:
		if c.S3Bucket == "" || c.AWSRegion == "" {
			return errors.New("AWS_REGION and S3_BUCKET_NAME are required when IMAGE_STORE=s3")
		}
	default:
		return errors.New("IMAGE_STORE must be one of local, cloudinary, s3")
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
