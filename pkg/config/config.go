package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	API    APIConfig    `json:"api"`
	Data   DataConfig   `json:"data"`
	Export ExportConfig `json:"export"`
	Log    LogConfig    `json:"log"`
}

type APIConfig struct {
	BaseURL string `json:"base_url"`
	Timeout int    `json:"timeout_seconds"`
}

type DataConfig struct {
	Dir string `json:"dir"`
}

type ExportConfig struct {
	// Platform picks the persistence strategy: "download", "share" or
	// "scoped". Empty means auto-detect from the host OS.
	Platform    string `json:"platform"`
	DownloadDir string `json:"download_dir"`
	ScopedDir   string `json:"scoped_dir"`
}

type LogConfig struct {
	Level string `json:"level"`
}

func (c APIConfig) HTTPTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func LoadConfig(path string) (*Config, error) {
	// A .env next to the binary is a convenience for local use; absence
	// is not an error.
	_ = godotenv.Load()

	config := &Config{
		API: APIConfig{
			BaseURL: getEnv("TEMPO_API_URL", "http://localhost:8080"),
			Timeout: getEnvAsInt("TEMPO_HTTP_TIMEOUT", 30),
		},
		Data: DataConfig{
			Dir: getEnv("TEMPO_DATA_DIR", defaultDataDir()),
		},
		Export: ExportConfig{
			Platform:    getEnv("TEMPO_EXPORT_PLATFORM", ""),
			DownloadDir: getEnv("TEMPO_DOWNLOAD_DIR", ""),
			ScopedDir:   getEnv("TEMPO_SCOPED_DIR", ""),
		},
		Log: LogConfig{
			Level: getEnv("TEMPO_LOG_LEVEL", "info"),
		},
	}

	// An optional config file overrides the environment.
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else {
			defer file.Close()
			decoder := json.NewDecoder(file)
			if err := decoder.Decode(config); err != nil {
				return nil, err
			}
		}
	}

	if !filepath.IsAbs(config.Data.Dir) {
		config.Data.Dir, _ = filepath.Abs(config.Data.Dir)
	}

	return config, nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tempo"
	}
	return filepath.Join(home, ".tempo")
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
