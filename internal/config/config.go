package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"devkpi/internal/azdo"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// AppConfig holds the complete application configuration.
type AppConfig struct {
	AzureDevOps azdo.Config
	DataPath    string
	LogDir      string
	RulesPath   string
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory (highest priority for MCP servers)
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory (useful for development/go run)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	// 3. Resolve data paths
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}

	logDir := filepath.Join(dataPath, "logs")

	// Ensure directories exist
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", logDir).Msg("Failed to create log directory")
	}

	delaySecs, _ := strconv.Atoi(getEnv("AZDO_REQUEST_DELAY_SECONDS", "0"))

	cfg := &AppConfig{
		AzureDevOps: azdo.Config{
			BaseURL:      getEnv("AZDO_URL", ""),
			Organization: getEnv("AZDO_ORGANIZATION", ""),
			Project:      getEnv("AZDO_PROJECT", ""),
			PAT:          getEnv("AZDO_PAT", ""),
			APIVersion:   getEnv("AZDO_API_VERSION", "7.0"),
			RequestDelay: time.Duration(delaySecs) * time.Second,
		},
		DataPath:  dataPath,
		LogDir:    logDir,
		RulesPath: getEnv("RULES_FILE", filepath.Join(dataPath, "devkpi.yaml")),
	}

	if cfg.AzureDevOps.BaseURL == "" && cfg.AzureDevOps.Organization != "" {
		cfg.AzureDevOps.BaseURL = fmt.Sprintf("https://dev.azure.com/%s", cfg.AzureDevOps.Organization)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
