package vector

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the ChromaDB connection settings. Values come from CHROMADB_*
// environment variables; anything unset falls back to a local-development
// default.
type Config struct {
	Host       string
	Port       string
	Scheme     string
	Collection string
	APIKey     string

	Timeout time.Duration

	HTTPMaxIdleConns    int
	HTTPMaxIdlePerHost  int
	HTTPIdleConnTimeout time.Duration
}

// LoadConfig reads the environment. Malformed numeric or duration values are
// an error rather than being silently ignored.
func LoadConfig() (Config, error) {
	cfg := Config{
		Host:                "localhost",
		Port:                "8000",
		Scheme:              "http",
		Collection:          "contract_chunks",
		Timeout:             10 * time.Second,
		HTTPMaxIdleConns:    64,
		HTTPMaxIdlePerHost:  16,
		HTTPIdleConnTimeout: 90 * time.Second,
	}

	envString(&cfg.Host, "CHROMADB_HOST")
	envString(&cfg.Port, "CHROMADB_PORT")
	envString(&cfg.Scheme, "CHROMADB_SCHEME")
	envString(&cfg.Collection, "CHROMADB_COLLECTION")
	envString(&cfg.APIKey, "CHROMADB_API_KEY")

	if err := envDuration(&cfg.Timeout, "CHROMADB_TIMEOUT"); err != nil {
		return Config{}, err
	}
	if err := envInt(&cfg.HTTPMaxIdleConns, "CHROMADB_HTTP_MAX_IDLE_CONNS"); err != nil {
		return Config{}, err
	}
	if err := envInt(&cfg.HTTPMaxIdlePerHost, "CHROMADB_HTTP_MAX_IDLE_PER_HOST"); err != nil {
		return Config{}, err
	}
	if err := envDuration(&cfg.HTTPIdleConnTimeout, "CHROMADB_HTTP_IDLE_CONN_TIMEOUT"); err != nil {
		return Config{}, err
	}

	if cfg.Scheme != "http" && cfg.Scheme != "https" {
		return Config{}, fmt.Errorf("CHROMADB_SCHEME must be http or https, got %q", cfg.Scheme)
	}
	return cfg, nil
}

func envString(dst *string, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*dst = value
	}
}

func envInt(dst *int, key string) error {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fmt.Errorf("%s must be a positive integer, got %q", key, value)
	}
	*dst = parsed
	return nil
}

func envDuration(dst *time.Duration, key string) error {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fmt.Errorf("%s must be a positive duration, got %q", key, value)
	}
	*dst = parsed
	return nil
}
