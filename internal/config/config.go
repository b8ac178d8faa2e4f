package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the prodscout API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Cache     CacheConfig     `yaml:"cache"`
	Index     IndexConfig     `yaml:"index"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CacheConfig holds the session snapshot cache settings.
type CacheConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, memory (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	TTLMinutes       int      `yaml:"ttl_minutes"`
	KeyNamespace     string   `yaml:"key_namespace"` // empty: keys are exactly "search:ABC123"
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// TTL returns the snapshot lifetime.
func (c CacheConfig) TTL() time.Duration { return time.Duration(c.TTLMinutes) * time.Minute }

// IndexConfig holds retrieval backend and fusion settings.
type IndexConfig struct {
	Provider       string `yaml:"provider"` // redis, pgvector (default: redis)
	DenseIndex     string `yaml:"dense_index"`
	SparseIndex    string `yaml:"sparse_index"`
	KeyPrefix      string `yaml:"key_prefix"`
	PGVectorDSN    string `yaml:"pgvector_dsn"`
	PGVectorTable  string `yaml:"pgvector_table"`
	BlevePath      string `yaml:"bleve_path"`
	FetchCap       int    `yaml:"fetch_cap"`
	RRFK           int    `yaml:"rrf_k"`
	MaxRetries     int    `yaml:"max_retries"`
	RetryInitialMs int    `yaml:"retry_initial_ms"`
}

// RetryInitial returns the first backoff interval.
func (c IndexConfig) RetryInitial() time.Duration {
	return time.Duration(c.RetryInitialMs) * time.Millisecond
}

// CatalogConfig holds the product catalog settings.
type CatalogConfig struct {
	Driver    string `yaml:"driver"` // redis, postgres, none (default: redis)
	DSN       string `yaml:"dsn"`
	KeyPrefix string `yaml:"key_prefix"`
}

// EmbeddingConfig holds query embedding settings.
type EmbeddingConfig struct {
	Provider         string `yaml:"provider"`
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	QueryInstruction string `yaml:"query_instruction"`
	CacheTTLHours    int    `yaml:"cache_ttl_hours"`
}

var (
	cacheDrivers   = []string{"valkey", "redis", "memory"}
	indexProviders = []string{"redis", "pgvector"}
	catalogDrivers = []string{"redis", "postgres", "none"}
)

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands env variables in raw YAML, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Cache.Driver == "" {
		c.Cache.Driver = "valkey"
	}
	if c.Cache.TTLMinutes <= 0 {
		c.Cache.TTLMinutes = 15
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}

	if c.Index.Provider == "" {
		c.Index.Provider = "redis"
	}
	if c.Index.DenseIndex == "" {
		c.Index.DenseIndex = "products_dense"
	}
	if c.Index.SparseIndex == "" {
		c.Index.SparseIndex = "products_sparse"
	}
	if c.Index.KeyPrefix == "" {
		c.Index.KeyPrefix = "prodscout:product:"
	}
	if c.Index.PGVectorTable == "" {
		c.Index.PGVectorTable = "product_embeddings"
	}
	if c.Index.FetchCap <= 0 {
		c.Index.FetchCap = 50
	}
	if c.Index.RRFK <= 0 {
		c.Index.RRFK = 60
	}
	if c.Index.MaxRetries <= 0 {
		c.Index.MaxRetries = 3
	}
	if c.Index.RetryInitialMs <= 0 {
		c.Index.RetryInitialMs = 200
	}

	if c.Catalog.Driver == "" {
		c.Catalog.Driver = "redis"
	}
	if c.Catalog.KeyPrefix == "" {
		c.Catalog.KeyPrefix = "prodscout:product:"
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.CacheTTLHours <= 0 {
		c.Embedding.CacheTTLHours = 24
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if !slices.Contains(cacheDrivers, c.Cache.Driver) {
		return fmt.Errorf("cache.driver must be one of %v, got %q", cacheDrivers, c.Cache.Driver)
	}
	if c.Cache.Driver != "memory" && len(c.Cache.Addrs) == 0 {
		return fmt.Errorf("cache.addrs is required for driver %q", c.Cache.Driver)
	}
	if !slices.Contains(indexProviders, c.Index.Provider) {
		return fmt.Errorf("index.provider must be one of %v, got %q", indexProviders, c.Index.Provider)
	}
	switch c.Index.Provider {
	case "redis":
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("index.provider redis requires cache.addrs")
		}
	case "pgvector":
		if c.Index.PGVectorDSN == "" {
			return fmt.Errorf("index.pgvector_dsn is required for provider pgvector")
		}
	}
	if !slices.Contains(catalogDrivers, c.Catalog.Driver) {
		return fmt.Errorf("catalog.driver must be one of %v, got %q", catalogDrivers, c.Catalog.Driver)
	}
	switch c.Catalog.Driver {
	case "redis":
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("catalog.driver redis requires cache.addrs")
		}
	case "postgres":
		if c.Catalog.DSN == "" {
			return fmt.Errorf("catalog.dsn is required for driver postgres")
		}
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding.dimensions must not be negative, got %d", c.Embedding.Dimensions)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
