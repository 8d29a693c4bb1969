package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config contains the complete configuration for a Memory Pulse client.
//
// It includes settings for:
//   - Storage backend (SQLite, PostgreSQL, MySQL)
//   - Embedding provider (optional; enables semantic recall)
//   - Result cache (size, on/off)
//   - Auto-relation discovery (threshold, on/off)
//
// Example:
//
//	config := &core.Config{
//	    Storage: core.StorageConfig{
//	        Provider: "sqlite",
//	        DBPath:   "./mempulse.db",
//	    },
//	    Embedder: core.EmbedderConfig{
//	        Provider:   "openai",
//	        APIKey:     "sk-...",
//	        Model:      "text-embedding-3-small",
//	        Dimensions: 1536,
//	    },
//	}
type Config struct {
	// Storage contains storage backend configuration.
	Storage StorageConfig `json:"storage"`

	// Embedder contains embedding provider configuration. An empty
	// provider disables embeddings and semantic recall.
	Embedder EmbedderConfig `json:"embedder"`

	// Cache contains result cache configuration.
	Cache CacheConfig `json:"cache"`

	// AutoRelation contains auto-relation discovery configuration.
	AutoRelation AutoRelationConfig `json:"auto_relation"`
}

// StorageConfig contains configuration for the storage backend.
//
// Supported providers: sqlite, postgres, mysql
type StorageConfig struct {
	// Provider is the storage backend name (sqlite, postgres, mysql).
	Provider string `json:"provider"`

	// DBPath is the database file path (sqlite only).
	DBPath string `json:"db_path,omitempty"`

	// Host, Port, User, Password, and Database configure the server
	// backends (postgres, mysql).
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	Database string `json:"database,omitempty"`

	// SSLMode configures TLS for postgres (disable, require, ...).
	SSLMode string `json:"ssl_mode,omitempty"`
}

// EmbedderConfig contains configuration for the embedding provider.
//
// Supported providers: openai, ollama, mock. An empty provider disables
// embeddings.
type EmbedderConfig struct {
	// Provider is the embedding provider name (openai, ollama, mock).
	Provider string `json:"provider"`

	// APIKey is the API key for the embedding provider.
	APIKey string `json:"api_key,omitempty"`

	// Model is the embedding model name (e.g., "text-embedding-3-small").
	Model string `json:"model,omitempty"`

	// BaseURL is the base URL for the API (optional, uses provider default if empty).
	BaseURL string `json:"base_url,omitempty"`

	// Dimensions is the dimension of the embedding vectors.
	Dimensions int `json:"dimensions,omitempty"`
}

// CacheConfig contains configuration for the LRU result cache.
type CacheConfig struct {
	// Enabled toggles the cache. Reads behave identically either way;
	// the cache only changes their cost.
	Enabled bool `json:"enabled"`

	// Size is the maximum number of cached query results. Default: 100.
	Size int `json:"size,omitempty"`
}

// AutoRelationConfig contains configuration for auto-relation discovery.
type AutoRelationConfig struct {
	// Enabled toggles relation discovery after writes.
	Enabled bool `json:"enabled"`

	// Threshold is the minimum similarity for a discovered relation.
	// Default: 0.3.
	Threshold float64 `json:"threshold,omitempty"`

	// MaxRelations caps how many relations one write may generate.
	// Default: 10.
	MaxRelations int `json:"max_relations,omitempty"`
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for .env or .env.example files (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Parses environment variables into a Config struct
//
// Supported environment variables:
//   - MEMORY_STORAGE (sqlite, postgres, mysql; default sqlite)
//   - MEMORY_DB_PATH (sqlite file path)
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD,
//     POSTGRES_DATABASE, POSTGRES_SSLMODE
//   - MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PASSWORD, MYSQL_DATABASE
//   - EMBEDDING_PROVIDER, EMBEDDING_API_KEY, EMBEDDING_MODEL,
//     EMBEDDING_BASE_URL, EMBEDDING_DIMENSIONS
//   - CACHE_ENABLED, CACHE_SIZE
//   - AUTO_RELATION_ENABLED, AUTO_RELATION_THRESHOLD
//
// Returns a Config instance, or an error if loading fails.
//
// Example:
//
//	config, err := core.LoadConfigFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
func LoadConfigFromEnv() (*Config, error) {
	// Use FindEnvFile to locate .env file (supports upward search)
	envPath, found := FindEnvFile()
	if found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	provider := getEnvOrDefault("MEMORY_STORAGE", "sqlite")

	storageConfig := StorageConfig{Provider: provider}
	switch provider {
	case "sqlite":
		storageConfig.DBPath = getEnvOrDefault("MEMORY_DB_PATH", "./mempulse.db")
	case "postgres":
		port, _ := strconv.Atoi(getEnvOrDefault("POSTGRES_PORT", "5432"))
		storageConfig.Host = getEnvOrDefault("POSTGRES_HOST", "localhost")
		storageConfig.Port = port
		storageConfig.User = getEnvOrDefault("POSTGRES_USER", "postgres")
		storageConfig.Password = os.Getenv("POSTGRES_PASSWORD")
		storageConfig.Database = getEnvOrDefault("POSTGRES_DATABASE", "mempulse")
		storageConfig.SSLMode = getEnvOrDefault("POSTGRES_SSLMODE", "disable")
	case "mysql":
		port, _ := strconv.Atoi(getEnvOrDefault("MYSQL_PORT", "3306"))
		storageConfig.Host = getEnvOrDefault("MYSQL_HOST", "127.0.0.1")
		storageConfig.Port = port
		storageConfig.User = getEnvOrDefault("MYSQL_USER", "root")
		storageConfig.Password = os.Getenv("MYSQL_PASSWORD")
		storageConfig.Database = getEnvOrDefault("MYSQL_DATABASE", "mempulse")
	}

	embedderProvider := os.Getenv("EMBEDDING_PROVIDER")
	dims, _ := strconv.Atoi(getEnvOrDefault("EMBEDDING_DIMENSIONS", "0"))

	embedderConfig := EmbedderConfig{
		Provider:   embedderProvider,
		APIKey:     os.Getenv("EMBEDDING_API_KEY"),
		Model:      os.Getenv("EMBEDDING_MODEL"),
		BaseURL:    os.Getenv("EMBEDDING_BASE_URL"),
		Dimensions: dims,
	}

	cacheSize, _ := strconv.Atoi(getEnvOrDefault("CACHE_SIZE", "100"))
	threshold, _ := strconv.ParseFloat(getEnvOrDefault("AUTO_RELATION_THRESHOLD", "0.3"), 64)

	config := &Config{
		Storage:  storageConfig,
		Embedder: embedderConfig,
		Cache: CacheConfig{
			Enabled: getEnvOrDefault("CACHE_ENABLED", "true") == "true",
			Size:    cacheSize,
		},
		AutoRelation: AutoRelationConfig{
			Enabled:   getEnvOrDefault("AUTO_RELATION_ENABLED", "true") == "true",
			Threshold: threshold,
		},
	}

	return config, nil
}

// LoadConfigFromEnvFile loads configuration from a specific .env file.
//
// Parameters:
//   - envPath: Path to the .env file
//
// Returns a Config instance, or an error if loading fails.
func LoadConfigFromEnvFile(envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return LoadConfigFromEnv()
}

// LoadConfigFromJSON loads configuration from a JSON file.
//
// Parameters:
//   - path: Path to the JSON configuration file
//
// Returns a Config instance, or an error if loading or parsing fails.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	return &config, nil
}

// Validate validates the configuration.
//
// Checks that the storage provider is set and that server backends carry
// the connection fields they need.
//
// Returns an error if validation fails, nil otherwise.
func (c *Config) Validate() error {
	switch c.Storage.Provider {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return NewMemoryError("Validate", fmt.Errorf("%w: sqlite requires db_path", ErrInvalidConfig))
		}
	case "postgres", "mysql":
		if c.Storage.Host == "" || c.Storage.User == "" || c.Storage.Database == "" {
			return NewMemoryError("Validate", fmt.Errorf("%w: %s requires host, user, and database", ErrInvalidConfig, c.Storage.Provider))
		}
	case "":
		return NewMemoryError("Validate", fmt.Errorf("%w: storage provider is required", ErrInvalidConfig))
	default:
		return NewMemoryError("Validate", fmt.Errorf("%w: unknown storage provider %q", ErrInvalidConfig, c.Storage.Provider))
	}

	return nil
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FindEnvFile searches for .env or .env.example files.
//
// The search:
//  1. Checks the current directory
//  2. Searches up to 5 directory levels up
//  3. Returns the first .env or .env.example file found
//
// Returns:
//   - path: Path to the found file (empty if not found)
//   - found: True if a file was found, false otherwise
func FindEnvFile() (string, bool) {
	// First check the current directory
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	// Check project root directory (search upward)
	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
