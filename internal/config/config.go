package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds runtime configuration for the tracker service.
type Config struct {
	DBURL      string
	RedisURL   string
	ListenAddr string

	// Fixed point offsets from before the tracker existed, per canonical player.
	HistoricalPointsPlayer1 float64
	HistoricalPointsPlayer2 float64

	// Backup upload settings. Scheduled uploads are disabled when BackupBucket is empty.
	BackupBucket    string
	BackupEndpoint  string
	BackupAccessKey string
	BackupSecretKey string
	BackupInterval  string
}

// Load builds a Config from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		DBURL:           os.Getenv("DB_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		ListenAddr:      os.Getenv("LISTEN_ADDR"),
		BackupBucket:    os.Getenv("BACKUP_BUCKET"),
		BackupEndpoint:  os.Getenv("BACKUP_ENDPOINT"),
		BackupAccessKey: os.Getenv("BACKUP_ACCESS_KEY"),
		BackupSecretKey: os.Getenv("BACKUP_SECRET_KEY"),
		BackupInterval:  os.Getenv("BACKUP_INTERVAL"),
	}

	if cfg.DBURL == "" {
		return nil, fmt.Errorf("DB_URL is required")
	}

	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}

	var err error
	cfg.HistoricalPointsPlayer1, err = envFloat("HISTORICAL_POINTS_PLAYER1", 37.5)
	if err != nil {
		return nil, err
	}
	cfg.HistoricalPointsPlayer2, err = envFloat("HISTORICAL_POINTS_PLAYER2", 37)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return v, nil
}
