// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	LLM           LLMConfig               `mapstructure:"llm"`
	Search        SearchConfig            `mapstructure:"search"`
	Cache         CacheConfig             `mapstructure:"cache"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Server        ServerConfig            `mapstructure:"server"`
	Tracing       TracingConfig           `mapstructure:"tracing"`
	Logging       LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// LLMConfig points at an OpenAI-compatible chat completions endpoint.
type LLMConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	MaxRetries  int     `mapstructure:"max_retries"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
}

// SearchConfig enables web search enrichment for the data collector.
type SearchConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	BaseURL      string  `mapstructure:"base_url"`
	APIKey       string  `mapstructure:"api_key"`
	EngineID     string  `mapstructure:"engine_id"`
	MaxResults   int     `mapstructure:"max_results"`
	MinRelevance float64 `mapstructure:"min_relevance"`
	Timeout      int     `mapstructure:"timeout"` // milliseconds
}

// CacheConfig controls the Redis cache of collected company data.
type CacheConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	TTL     int         `mapstructure:"ttl"` // seconds
	Redis   RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type PostgresConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
	URL       string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// NotificationConfig holds settings for the report-ready notifier.
type NotificationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
	Email struct {
		Enabled    bool     `mapstructure:"enabled"`
		FromEmail  string   `mapstructure:"from_email"`
		Recipients []string `mapstructure:"recipients"`
	} `mapstructure:"email"`
}

// ServerConfig holds the health/metrics listener settings.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// TracingConfig toggles the stdout span exporter.
type TracingConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	PrettyPrint bool `mapstructure:"pretty_print"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
