package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Valkey   ValkeyConfig
	MinIO    MinIOConfig
	Auth     AuthConfig
	MCP      MCPConfig
	Notebook NotebookConfig
	Export   ExportConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type ValkeyConfig struct {
	Addr     string
	Password string
	DB       int
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type AuthConfig struct {
	Enabled      bool
	IssuerURL    string // AUTH_ISSUER_URL, used for discovery
	PublicIssuer string // AUTH_PUBLIC_ISSUER, iss claim when it differs from the discovery URL
	Audience     string
}

type MCPConfig struct {
	Addr    string
	BaseURL string // advertised in protected resource metadata
}

type NotebookConfig struct {
	SessionTTL time.Duration
	// SampleCatalog serves the bundled sample database when the catalog
	// tables are empty.
	SampleCatalog bool
}

type ExportConfig struct {
	// ConsumerName must stay the same across restarts so the worker picks
	// up the exports it left pending.
	ConsumerName string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  time.Duration(getEnvInt("SERVER_READ_TIMEOUT_SECS", 30)) * time.Second,
			WriteTimeout: time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT_SECS", 60)) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "notebook"),
			Password: getEnv("DB_PASSWORD", "notebook"),
			Name:     getEnv("DB_NAME", "notebook"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 25)),
			MinConns: int32(getEnvInt("DB_MIN_CONNS", 5)),
		},
		Valkey: ValkeyConfig{
			Addr:     getEnv("VALKEY_ADDR", "localhost:6379"),
			Password: getEnv("VALKEY_PASSWORD", ""),
			DB:       getEnvInt("VALKEY_DB", 0),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "notebook"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "notebook123"),
			Bucket:    getEnv("MINIO_BUCKET", "notebook"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Auth: AuthConfig{
			Enabled:      getEnvBool("AUTH_ENABLED", false),
			IssuerURL:    getEnv("AUTH_ISSUER_URL", ""),
			PublicIssuer: getEnv("AUTH_PUBLIC_ISSUER", ""),
			Audience:     getEnv("AUTH_AUDIENCE", "notebook"),
		},
		MCP: MCPConfig{
			Addr:    getEnv("MCP_ADDR", ":8081"),
			BaseURL: getEnv("MCP_BASE_URL", "http://localhost:8081"),
		},
		Notebook: NotebookConfig{
			SessionTTL:    time.Duration(getEnvInt("NOTEBOOK_SESSION_TTL_MINS", 30)) * time.Minute,
			SampleCatalog: getEnvBool("NOTEBOOK_SAMPLE_CATALOG", true),
		},
		Export: ExportConfig{
			ConsumerName: getEnv("EXPORT_CONSUMER_NAME", "export-worker-1"),
		},
	}
	if cfg.Auth.Enabled && cfg.Auth.IssuerURL == "" {
		return nil, fmt.Errorf("AUTH_ENABLED=true but AUTH_ISSUER_URL is empty")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
