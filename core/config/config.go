package config

import (
	"path/filepath"
	"strings"
	"time"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App        AppConfig
	Paths      PathsConfig
	Database   DatabaseConfig
	Provider   ProviderConfig
	Agent      AgentConfig
	AI         AIConfig
	WorkerPool WorkerPoolConfig
	Security   SecurityConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasicAuth          []string
	BasePath           string
	TrustedProxies     []string
	BaseUrl            string
	CorsAllowedOrigins []string
	ServerID           string
}

type PathsConfig struct {
	Storages string
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string // File path for SQLite, DB name for Postgres
	ValkeyEnabled   bool
	ValkeyAddress   string
	ValkeyPassword  string
	ValkeyDB        int
	ValkeyKeyPrefix string
}

// ProviderConfig targets the WhatsApp Cloud (Graph) API.
type ProviderConfig struct {
	GraphBaseURL string
	GraphVersion string
	SendTimeout  time.Duration
	VerifyToken  string // webhook verification handshake
}

// AgentConfig controls forwarding to user-owned agent webhooks. The timeout
// is configurable because those endpoints are user-controlled and may be slow.
type AgentConfig struct {
	ForwardTimeout time.Duration
}

type AIConfig struct {
	OpenAIKey    string
	GeminiKey    string
	DefaultModel string
	HistoryLimit int
	MaxTokens    int
	Temperature  float64
	DedupTTL     time.Duration
}

type WorkerPoolConfig struct {
	Size      int
	QueueSize int
}

type SecurityConfig struct {
	SecretKey string
}

// Global provides access to the loaded configuration globally.
var Global *Config

// LoadConfig loads configuration from environment variables or defaults.
func LoadConfig() (*Config, error) {
	baseDir := getEnv("APP_BASE_DIR", "storages")

	var basicAuth []string
	if v := getEnv("APP_BASIC_AUTH", ""); v != "" {
		basicAuth = strings.Split(v, ",")
	}

	corsOrigins := []string{"http://localhost:3000", "http://localhost:5173"}
	if v := getEnv("APP_CORS_ALLOWED_ORIGINS", ""); v != "" {
		corsOrigins = strings.Split(v, ",")
	}

	appCfg := AppConfig{
		Version:            "v1.4.0",
		Port:               getEnv("APP_PORT", "3000"),
		Debug:              getEnvBool("APP_DEBUG", false),
		Environment:        getEnv("APP_ENV", "development"),
		BasicAuth:          basicAuth,
		BasePath:           getEnv("APP_BASE_PATH", ""),
		BaseUrl:            getEnv("APP_BASE_URL", "http://localhost:3000"),
		CorsAllowedOrigins: corsOrigins,
		ServerID:           getEnv("SERVER_ID", ""),
	}
	if v := getEnv("APP_TRUSTED_PROXIES", ""); v != "" {
		appCfg.TrustedProxies = strings.Split(v, ",")
	}

	pathsCfg := PathsConfig{
		Storages: baseDir,
	}

	dbCfg := DatabaseConfig{
		Driver:          getEnv("DB_DRIVER", "sqlite"),
		Name:            getEnv("DB_NAME", filepath.Join(pathsCfg.Storages, "console.db")),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		ValkeyEnabled:   getEnvBool("VALKEY_ENABLED", false),
		ValkeyAddress:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
		ValkeyPassword:  getEnv("VALKEY_PASSWORD", ""),
		ValkeyDB:        getEnvInt("VALKEY_DB", 0),
		ValkeyKeyPrefix: getEnv("VALKEY_KEY_PREFIX", "waconsole:"),
	}

	providerCfg := ProviderConfig{
		GraphBaseURL: getEnv("GRAPH_BASE_URL", "https://graph.facebook.com"),
		GraphVersion: getEnv("GRAPH_VERSION", "v19.0"),
		SendTimeout:  time.Duration(getEnvInt("GRAPH_SEND_TIMEOUT_SECONDS", 15)) * time.Second,
		VerifyToken:  getEnv("WEBHOOK_VERIFY_TOKEN", ""),
	}

	agentCfg := AgentConfig{
		ForwardTimeout: time.Duration(getEnvInt("AGENT_FORWARD_TIMEOUT_SECONDS", 30)) * time.Second,
	}

	aiCfg := AIConfig{
		OpenAIKey:    getEnv("OPENAI_API_KEY", ""),
		GeminiKey:    getEnv("GEMINI_API_KEY", ""),
		DefaultModel: getEnv("AI_DEFAULT_MODEL", "gpt-4o-mini"),
		HistoryLimit: getEnvInt("AI_HISTORY_LIMIT", 20),
		MaxTokens:    getEnvInt("AI_MAX_TOKENS", 512),
		Temperature:  0.3,
		DedupTTL:     time.Duration(getEnvInt("EVENT_DEDUP_TTL_SECONDS", 86400)) * time.Second,
	}

	cfg := &Config{
		App:        appCfg,
		Paths:      pathsCfg,
		Database:   dbCfg,
		Provider:   providerCfg,
		Agent:      agentCfg,
		AI:         aiCfg,
		WorkerPool: WorkerPoolConfig{Size: getEnvInt("MESSAGE_WORKER_POOL_SIZE", 20), QueueSize: getEnvInt("MESSAGE_WORKER_QUEUE_SIZE", 1000)},
		Security:   SecurityConfig{SecretKey: getEnv("APP_SECRET_KEY", "changeme_please_change_me_in_prod_12345")},
	}

	Global = cfg
	return cfg, nil
}
