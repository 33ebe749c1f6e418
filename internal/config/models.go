package config

import (
	"errors"
	"fmt"
	"time"
)

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// ClassifierConfig represents the retry policy of the classifier
type ClassifierConfig struct {
	MaxAttempts int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
	Timeout     time.Duration
}

// QuotaConfig represents the per-user daily quota
type QuotaConfig struct {
	DailyLimit int
}

// BatchConfig represents the batch orchestrator settings
type BatchConfig struct {
	MaxMessages   int
	Folder        string
	RetryAttempts int
	RetryDelay    time.Duration
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// UsageStoreConfig represents the usage repository backend
type UsageStoreConfig struct {
	Type        string
	SQLitePath  string
	MySQLDSN    string
	PostgresDSN string
}

// GoogleConfig represents the Google OAuth client
type GoogleConfig struct {
	ClientID       string
	ClientSecret   string
	RedirectURL    string
	BreakerTimeout time.Duration
}

// IMAPConfig represents an IMAP mailbox
type IMAPConfig struct {
	Address    string
	Username   string
	Password   string
	OAuthToken string
}

// ServerConfig represents the HTTP server
type ServerConfig struct {
	ListenAddress  string
	FrontendURL    string
	CORSOrigins    []string
	RequestTimeout time.Duration
	// ShutdownTimeout bounds the wait for in-flight requests on shutdown.
	// Shorter than RequestTimeout means running batches may not record usage.
	ShutdownTimeout time.Duration
	Debug           bool
	CookieSecure    bool
}

// SessionConfig represents the session store
type SessionConfig struct {
	TTL              time.Duration
	CleanupFrequency time.Duration
	EncryptionKey    string
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetClassifier returns the classifier configuration
func (c *Config) GetClassifier() (ClassifierConfig, error) {
	cfg := ClassifierConfig{MaxAttempts: c.GetInt("classifier.max_attempts")}

	var err error
	if cfg.BackoffMin, err = c.GetDuration("classifier.backoff_min"); err != nil {
		return cfg, err
	}
	if cfg.BackoffMax, err = c.GetDuration("classifier.backoff_max"); err != nil {
		return cfg, err
	}
	if cfg.Timeout, err = c.GetDuration("classifier.timeout"); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// GetQuota returns the quota configuration
func (c *Config) GetQuota() QuotaConfig {
	return QuotaConfig{
		DailyLimit: c.GetInt("quota.daily_limit"),
	}
}

// GetBatch returns the batch configuration
func (c *Config) GetBatch() (BatchConfig, error) {
	delay, err := c.GetDuration("batch.retry_delay")
	if err != nil {
		return BatchConfig{}, err
	}
	return BatchConfig{
		MaxMessages:   c.GetInt("batch.max_messages"),
		Folder:        c.GetString("batch.folder"),
		RetryAttempts: c.GetInt("batch.retry_attempts"),
		RetryDelay:    delay,
	}, nil
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetUsageStore returns the usage repository configuration
func (c *Config) GetUsageStore() UsageStoreConfig {
	return UsageStoreConfig{
		Type:        c.GetString("usage.type"),
		SQLitePath:  c.GetString("usage.sqlite_path"),
		MySQLDSN:    c.GetString("usage.mysql_dsn"),
		PostgresDSN: c.GetString("usage.postgres_dsn"),
	}
}

// GetGoogle returns the Google OAuth configuration
func (c *Config) GetGoogle() (GoogleConfig, error) {
	timeout, err := c.GetDuration("google.breaker_timeout")
	if err != nil {
		return GoogleConfig{}, err
	}
	return GoogleConfig{
		ClientID:       c.GetString("google.client_id"),
		ClientSecret:   c.GetString("google.client_secret"),
		RedirectURL:    c.GetString("google.redirect_url"),
		BreakerTimeout: timeout,
	}, nil
}

// GetIMAP returns the IMAP mailbox configuration
func (c *Config) GetIMAP() IMAPConfig {
	return IMAPConfig{
		Address:    c.GetString("imap.address"),
		Username:   c.GetString("imap.username"),
		Password:   c.GetString("imap.password"),
		OAuthToken: c.GetString("imap.oauth_token"),
	}
}

// GetServer returns the HTTP server configuration
func (c *Config) GetServer() (ServerConfig, error) {
	timeout, err := c.GetDuration("server.request_timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	shutdown, err := c.GetDuration("server.shutdown_timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	return ServerConfig{
		ListenAddress:   c.GetString("server.listen_address"),
		FrontendURL:     c.GetString("server.frontend_url"),
		CORSOrigins:     c.GetStringSlice("server.cors_origins"),
		RequestTimeout:  timeout,
		ShutdownTimeout: shutdown,
		Debug:           c.GetBool("server.debug"),
		CookieSecure:    c.GetBool("server.cookie_secure"),
	}, nil
}

// GetSession returns the session store configuration
func (c *Config) GetSession() (SessionConfig, error) {
	ttl, err := c.GetDuration("session.ttl")
	if err != nil {
		return SessionConfig{}, err
	}
	cleanup, err := c.GetDuration("session.cleanup_frequency")
	if err != nil {
		return SessionConfig{}, err
	}
	return SessionConfig{
		TTL:              ttl,
		CleanupFrequency: cleanup,
		EncryptionKey:    c.GetString("session.encryption_key"),
	}, nil
}

// ValidateLLM checks that the configured provider has its credentials
func (c *Config) ValidateLLM() error {
	switch provider := c.GetLLM().Provider; provider {
	case "gemini":
		if c.GetString("gemini.api_key") == "" {
			return errors.New("gemini.api_key is required")
		}
	case "openai":
		if c.GetString("openai.api_key") == "" {
			return errors.New("openai.api_key is required")
		}
	case "bedrock":
	default:
		return fmt.Errorf("unsupported LLM provider: %s", provider)
	}
	return nil
}

// ValidateServer checks the settings the HTTP server cannot start without
func (c *Config) ValidateServer() error {
	var errs []error

	if c.GetString("google.client_id") == "" || c.GetString("google.client_secret") == "" {
		errs = append(errs, errors.New("google.client_id and google.client_secret are required"))
	}
	if err := c.ValidateLLM(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
