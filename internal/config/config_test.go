package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// chdir moves into an empty directory so no .env or config.yaml is picked up.
func chdir(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "8000" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
	if cfg.Storage.Backend != StorageLocal {
		t.Errorf("backend = %q", cfg.Storage.Backend)
	}
	if cfg.Queue.Backend != QueuePool || cfg.Queue.Concurrency != 10 || cfg.Queue.TaskTimeout != 24*time.Hour {
		t.Errorf("queue = %+v", cfg.Queue)
	}
	if cfg.S3.PresignExpiry != time.Hour {
		t.Errorf("presign expiry = %s", cfg.S3.PresignExpiry)
	}
	if cfg.Progress.TTL != time.Hour || cfg.Progress.Sweep != "@every 1m" {
		t.Errorf("progress = %+v", cfg.Progress)
	}
	if cfg.Extractor.Format != "bestvideo+bestaudio/best" || cfg.Extractor.MergeFormat != "mp4" {
		t.Errorf("extractor = %+v", cfg.Extractor)
	}
	if !cfg.MountVideos() {
		t.Error("expected /videos to be mounted in local mode")
	}
	if cfg.WorkDir() != cfg.Storage.VideosDir {
		t.Errorf("work dir = %q, want videos dir", cfg.WorkDir())
	}
}

func TestLoadFromEnv(t *testing.T) {
	chdir(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORAGE_BACKEND", "S3")
	t.Setenv("S3_BUCKET_NAME", "media")
	t.Setenv("S3_PRESIGN_EXPIRY", "15m")
	t.Setenv("TEMP_DIR", "/scratch")
	t.Setenv("QUEUE_BACKEND", "asynq")
	t.Setenv("QUEUE_TASK_TIMEOUT", "3h")
	t.Setenv("PROGRESS_TTL", "0")
	t.Setenv("YTDLP_WRITE_SUBS", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
	if cfg.Storage.Backend != StorageS3 {
		t.Errorf("backend = %q", cfg.Storage.Backend)
	}
	if cfg.S3.BucketName != "media" || cfg.S3.PresignExpiry != 15*time.Minute {
		t.Errorf("s3 = %+v", cfg.S3)
	}
	if cfg.Queue.Backend != QueueAsynq || cfg.Queue.TaskTimeout != 3*time.Hour {
		t.Errorf("queue = %+v", cfg.Queue)
	}
	if cfg.Progress.TTL != 0 {
		t.Errorf("ttl = %s", cfg.Progress.TTL)
	}
	if cfg.Extractor.WriteSubs {
		t.Error("expected subtitles disabled")
	}
	if cfg.MountVideos() {
		t.Error("/videos must not be mounted in s3 mode")
	}
	if cfg.WorkDir() != "/scratch" {
		t.Errorf("work dir = %q", cfg.WorkDir())
	}
}

func TestLoadServerless(t *testing.T) {
	chdir(t)
	t.Setenv("SERVERLESS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Storage.Backend != StorageS3 {
		t.Errorf("backend = %q", cfg.Storage.Backend)
	}
	if cfg.Storage.TempDir != "/tmp/videos" {
		t.Errorf("temp dir = %q", cfg.Storage.TempDir)
	}
	if cfg.MountVideos() {
		t.Error("/videos must not be mounted when serverless")
	}
}

func TestUseLocalFallbackServerless(t *testing.T) {
	chdir(t)
	t.Setenv("SERVERLESS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IsFallback() {
		t.Fatal("fresh config reports fallback")
	}

	cfg.UseLocalFallback()
	if cfg.Storage.Backend != StorageLocal {
		t.Errorf("backend = %q", cfg.Storage.Backend)
	}
	if !cfg.IsFallback() {
		t.Error("expected fallback flag")
	}
	if cfg.Storage.VideosDir != "/tmp/videos" {
		t.Errorf("videos dir = %q, want temp dir", cfg.Storage.VideosDir)
	}
	if !cfg.MountVideos() {
		t.Error("local fallback must be served under /videos")
	}
	if cfg.WorkDir() != "/tmp/videos" {
		t.Errorf("work dir = %q", cfg.WorkDir())
	}
}

func TestUseLocalFallbackKeepsVideosDir(t *testing.T) {
	chdir(t)
	t.Setenv("STORAGE_BACKEND", "s3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	dir := cfg.Storage.VideosDir
	cfg.UseLocalFallback()
	if cfg.Storage.VideosDir != dir {
		t.Errorf("videos dir = %q, want %q", cfg.Storage.VideosDir, dir)
	}
	if !cfg.MountVideos() {
		t.Error("expected /videos to be mounted")
	}
}

func TestLoadSecretFile(t *testing.T) {
	chdir(t)
	secret := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(secret, []byte("s3cr3t\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("S3_SECRET_ACCESS_KEY", "")
	t.Setenv("S3_SECRET_ACCESS_KEY_FILE", secret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.S3.SecretAccessKey != "s3cr3t" {
		t.Errorf("secret = %q", cfg.S3.SecretAccessKey)
	}
}

func TestLoadConfigFile(t *testing.T) {
	chdir(t)
	yaml := "server:\n  port: \"7000\"\nqueue:\n  concurrency: 3\n"
	if err := os.WriteFile("config.yaml", []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "7000" || cfg.Queue.Concurrency != 3 {
		t.Errorf("config file ignored: port=%q concurrency=%d", cfg.Server.Port, cfg.Queue.Concurrency)
	}
}
