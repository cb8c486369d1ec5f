package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Queue backends
const (
	QueuePool  = "pool"
	QueueAsynq = "asynq"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	filePath := os.Getenv(envKey + "_FILE")
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	os.Setenv(envKey, strings.TrimSpace(string(data)))
}

type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Storage   StorageConfig
	S3        S3Config
	Queue     QueueConfig
	Redis     RedisConfig
	Progress  ProgressConfig
	Extractor ExtractorConfig
}

type ServerConfig struct {
	Port       string
	Env        string
	Serverless bool
}

type LogConfig struct {
	Level  string
	Format string // json|console
	File   string // "" = stdout only
}

type StorageConfig struct {
	Backend      string // local|s3
	VideosDir    string
	TempDir      string
	StaticDir    string
	TemplatesDir string

	// fallback is set once the configured backend failed and local storage
	// stands in for it.
	fallback bool
}

type S3Config struct {
	BucketName      string
	Region          string
	Endpoint        string // R2, MinIO, etc.
	AccessKeyID     string
	SecretAccessKey string
	PresignExpiry   time.Duration
}

type QueueConfig struct {
	Backend     string // pool|asynq
	Concurrency int
	TaskTimeout time.Duration // asynq cancels a task after this
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ProgressConfig struct {
	TTL   time.Duration // 0 keeps entries forever
	Sweep string        // cron spec
}

type ExtractorConfig struct {
	Format             string
	MergeFormat        string
	SubLangs           string
	CookiesFromBrowser string
	WriteThumbnail     bool
	WriteSubs          bool
}

// Load reads configuration from .env, an optional config file and the
// environment, in increasing order of precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	readSecret("S3_ACCESS_KEY_ID")
	readSecret("S3_SECRET_ACCESS_KEY")
	readSecret("REDIS_PASSWORD")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.AutomaticEnv()

	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.env", "SERVER_ENV")
	_ = v.BindEnv("server.serverless", "SERVERLESS")
	_ = v.BindEnv("log.level", "LOG_LEVEL")
	_ = v.BindEnv("log.format", "LOG_FORMAT")
	_ = v.BindEnv("log.file", "LOG_FILE")
	_ = v.BindEnv("storage.backend", "STORAGE_BACKEND")
	_ = v.BindEnv("storage.videos_dir", "VIDEOS_DIR")
	_ = v.BindEnv("storage.temp_dir", "TEMP_DIR")
	_ = v.BindEnv("storage.static_dir", "STATIC_DIR")
	_ = v.BindEnv("storage.templates_dir", "TEMPLATES_DIR")
	_ = v.BindEnv("s3.bucket_name", "S3_BUCKET_NAME")
	_ = v.BindEnv("s3.region", "S3_REGION")
	_ = v.BindEnv("s3.endpoint", "S3_ENDPOINT")
	_ = v.BindEnv("s3.access_key_id", "S3_ACCESS_KEY_ID")
	_ = v.BindEnv("s3.secret_access_key", "S3_SECRET_ACCESS_KEY")
	_ = v.BindEnv("s3.presign_expiry", "S3_PRESIGN_EXPIRY")
	_ = v.BindEnv("queue.backend", "QUEUE_BACKEND")
	_ = v.BindEnv("queue.concurrency", "QUEUE_CONCURRENCY")
	_ = v.BindEnv("queue.task_timeout", "QUEUE_TASK_TIMEOUT")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")
	_ = v.BindEnv("progress.ttl", "PROGRESS_TTL")
	_ = v.BindEnv("progress.sweep", "PROGRESS_SWEEP")
	_ = v.BindEnv("extractor.format", "YTDLP_FORMAT")
	_ = v.BindEnv("extractor.merge_format", "YTDLP_MERGE_FORMAT")
	_ = v.BindEnv("extractor.sub_langs", "YTDLP_SUB_LANGS")
	_ = v.BindEnv("extractor.cookies_from_browser", "YTDLP_COOKIES_FROM_BROWSER")
	_ = v.BindEnv("extractor.write_thumbnail", "YTDLP_WRITE_THUMBNAIL")
	_ = v.BindEnv("extractor.write_subs", "YTDLP_WRITE_SUBS")

	// Defaults
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.serverless", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("storage.videos_dir", "videos")
	v.SetDefault("storage.static_dir", "static")
	v.SetDefault("storage.templates_dir", "templates")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.presign_expiry", time.Hour)
	v.SetDefault("queue.backend", QueuePool)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.task_timeout", 24*time.Hour)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("progress.ttl", time.Hour)
	v.SetDefault("progress.sweep", "@every 1m")
	v.SetDefault("extractor.format", "bestvideo+bestaudio/best")
	v.SetDefault("extractor.merge_format", "mp4")
	v.SetDefault("extractor.sub_langs", "zh-CN")
	v.SetDefault("extractor.write_thumbnail", true)
	v.SetDefault("extractor.write_subs", true)

	// Try to read config file (optional)
	_ = v.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:       v.GetString("server.port"),
			Env:        v.GetString("server.env"),
			Serverless: v.GetBool("server.serverless"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
			File:   v.GetString("log.file"),
		},
		Storage: StorageConfig{
			Backend:      strings.ToLower(v.GetString("storage.backend")),
			VideosDir:    v.GetString("storage.videos_dir"),
			TempDir:      v.GetString("storage.temp_dir"),
			StaticDir:    v.GetString("storage.static_dir"),
			TemplatesDir: v.GetString("storage.templates_dir"),
		},
		S3: S3Config{
			BucketName:      v.GetString("s3.bucket_name"),
			Region:          v.GetString("s3.region"),
			Endpoint:        v.GetString("s3.endpoint"),
			AccessKeyID:     v.GetString("s3.access_key_id"),
			SecretAccessKey: v.GetString("s3.secret_access_key"),
			PresignExpiry:   v.GetDuration("s3.presign_expiry"),
		},
		Queue: QueueConfig{
			Backend:     strings.ToLower(v.GetString("queue.backend")),
			Concurrency: v.GetInt("queue.concurrency"),
			TaskTimeout: v.GetDuration("queue.task_timeout"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Progress: ProgressConfig{
			TTL:   v.GetDuration("progress.ttl"),
			Sweep: v.GetString("progress.sweep"),
		},
		Extractor: ExtractorConfig{
			Format:             v.GetString("extractor.format"),
			MergeFormat:        v.GetString("extractor.merge_format"),
			SubLangs:           v.GetString("extractor.sub_langs"),
			CookiesFromBrowser: v.GetString("extractor.cookies_from_browser"),
			WriteThumbnail:     v.GetBool("extractor.write_thumbnail"),
			WriteSubs:          v.GetBool("extractor.write_subs"),
		},
	}

	cfg.applyDeploymentMode()

	return cfg, nil
}

// applyDeploymentMode fills in values that depend on whether the service
// runs on a serverless platform, where only /tmp is writable and nothing
// downloaded outlives the invocation.
func (c *Config) applyDeploymentMode() {
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageLocal
		if c.Server.Serverless {
			c.Storage.Backend = StorageS3
		}
	}
	if c.Storage.TempDir == "" {
		c.Storage.TempDir = filepath.Join(os.TempDir(), "vidfetch")
		if c.Server.Serverless {
			c.Storage.TempDir = "/tmp/videos"
		}
	}
}

// UseLocalFallback switches to local storage after the configured backend
// could not be built. Serverless platforms only allow writes below the temp
// directory, so the fallback stores videos there.
func (c *Config) UseLocalFallback() {
	c.Storage.Backend = StorageLocal
	c.Storage.fallback = true
	if c.Server.Serverless {
		c.Storage.VideosDir = c.Storage.TempDir
	}
}

// IsFallback reports whether UseLocalFallback was applied
func (c *Config) IsFallback() bool {
	return c.Storage.fallback
}

// MountVideos reports whether downloaded files are served from the local
// videos directory under /videos. A local fallback is always served, since
// listed URLs point there.
func (c *Config) MountVideos() bool {
	if c.Storage.Backend != StorageLocal {
		return false
	}
	return !c.Server.Serverless || c.Storage.fallback
}

// WorkDir is where the extractor writes files. In local mode that is the
// videos directory itself, otherwise a scratch directory whose contents are
// handed to the object store.
func (c *Config) WorkDir() string {
	if c.Storage.Backend == StorageLocal {
		return c.Storage.VideosDir
	}
	return c.Storage.TempDir
}
