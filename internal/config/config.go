package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port         string
	PublicURL    string
	GameDataPath string

	RoundDuration time.Duration
	SweepInterval time.Duration
	GraceWindow   time.Duration

	ExportEnabled bool
	ExportFile    string
}

func FromEnv() Config {
	c := Config{}
	c.Port = getenv("PORT", "8080")
	c.PublicURL = getenv("PUBLIC_URL", "http://localhost:8080")
	c.GameDataPath = getenv("GAME_DATA_PATH", "./data/game_data.json")
	c.RoundDuration = time.Duration(getenvInt("ROUND_SECONDS", 15)) * time.Second
	c.SweepInterval = time.Duration(getenvInt("SWEEP_INTERVAL_SECONDS", 300)) * time.Second
	c.GraceWindow = time.Duration(getenvInt("HOST_GRACE_SECONDS", 300)) * time.Second
	c.ExportEnabled = getenv("EXPORT_ENABLED", "true") == "true"
	c.ExportFile = getenv("EXPORT_FILE", "./talktagger-results.txt")
	return c
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
