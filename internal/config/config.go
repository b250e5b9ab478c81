// Package config loads the agent configuration from the environment and
// from the terminal definitions file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/exd-sistemas/caixa-sync/internal/core/domain"
)

// Config holds everything the agent needs to start: the cloud API
// credentials, the sync cadence defaults, and infrastructure settings.
type Config struct {
	API          domain.GlobalConfig
	RedisURL     string
	StateKey     string // hex or raw 32-byte key for sealing persisted state, empty disables sealing
	CaixasFile   string
	LockRequired bool
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment
// variables take precedence over it.
func Load() (Config, error) {
	// Ignore a missing .env, it is optional in production.
	_ = godotenv.Load()

	apiURL := getEnv("EXDAPIURL", "")
	if apiURL == "" {
		return Config{}, fmt.Errorf("EXDAPIURL is required")
	}

	cfg := Config{
		API: domain.GlobalConfig{
			APIURL:        apiURL,
			APIUser:       getEnv("EXDUSERAPI", ""),
			APIPassword:   getEnv("EXDPASSAPI", ""),
			CheckInterval: time.Duration(getEnvInt("CHECK_INTERVAL", 3000)) * time.Millisecond,
			SyncInterval:  time.Duration(getEnvInt("SYNC_INTERVAL", 10000)) * time.Millisecond,
			NRegistros:    getEnvInt("NREGISTROS", 1000),
		},
		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379"),
		StateKey:     getEnv("STATE_SECRET_KEY", ""),
		CaixasFile:   getEnv("CAIXAS_FILE", "caixas.yaml"),
		LockRequired: getEnvBool("LOCK_REQUIRED", true),
	}
	return cfg, nil
}

// caixasFile mirrors the on-disk layout of the terminal definitions.
type caixasFile struct {
	Caixas []domain.TerminalConfig `yaml:"caixas"`
}

// LoadTerminals reads the terminal definitions from a YAML file.
func LoadTerminals(path string) ([]domain.TerminalConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read terminals file: %w", err)
	}
	var f caixasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse terminals file %s: %w", path, err)
	}
	if len(f.Caixas) == 0 {
		return nil, fmt.Errorf("terminals file %s: %w", path, domain.ErrNoTerminals)
	}
	for i := range f.Caixas {
		if f.Caixas[i].ID == "" {
			f.Caixas[i].ID = fmt.Sprintf("%s-%s", f.Caixas[i].Filial, f.Caixas[i].Caixa)
		}
	}
	return f.Caixas, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}
