package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables read by cardsift
const (
	EnvDBPath        = "CARDSIFT_DB_PATH"
	EnvChunkSize     = "CARDSIFT_CHUNK_SIZE"
	EnvWorkers       = "CARDSIFT_WORKERS"
	EnvBatchSize     = "CARDSIFT_BATCH_SIZE"
	EnvMaxFileMB     = "CARDSIFT_MAX_FILE_MB"
	EnvIncludeHidden = "CARDSIFT_INCLUDE_HIDDEN"
)

// Config holds process-level settings read from the environment.
// Zero values mean "use the package default" downstream.
type Config struct {
	DBPath        string // Directory holding the findings database
	ChunkSize     int    // Characters per extraction window
	Workers       int    // Concurrent file workers
	BatchSize     int    // Files per storage transaction
	MaxFileMB     int    // Per-file size cap in megabytes
	IncludeHidden bool   // Scan hidden files and directories
}

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}
}

// Load reads configuration from the environment.
func Load() *Config {
	return &Config{
		DBPath:        GetEnv(EnvDBPath, ""),
		ChunkSize:     GetIntEnv(EnvChunkSize, 0),
		Workers:       GetIntEnv(EnvWorkers, 0),
		BatchSize:     GetIntEnv(EnvBatchSize, 0),
		MaxFileMB:     GetIntEnv(EnvMaxFileMB, 0),
		IncludeHidden: GetBoolEnv(EnvIncludeHidden, false),
	}
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetBoolEnv returns a bool environment variable or a default value.
func GetBoolEnv(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
