package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig
	Relay       RelayConfig
	Security    SecurityConfig
	DeliveryLog DeliveryLogConfig
	Notify      NotifyConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port     string
	Host     string
	LogLevel string
}

// RelayConfig holds spreadsheet webhook relay configuration
type RelayConfig struct {
	// DefaultWebhookURL is used when a submission carries no googleSheetUrl.
	DefaultWebhookURL string
	// AllowedHosts restricts client-supplied destinations. Empty allows any host.
	AllowedHosts []string
	// Timeout bounds the outbound POST. Zero waits indefinitely.
	Timeout time.Duration
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	APIKey string
}

// DeliveryLogConfig holds delivery audit log configuration
type DeliveryLogConfig struct {
	DBPath string
	TTL    time.Duration
}

// NotifyConfig holds WhatsApp staff notification configuration
type NotifyConfig struct {
	Enabled     bool
	DBPath      string
	Recipient   string
	CountryCode string
}

// Load loads configuration from environment variables.
// envFile is loaded first when present; a missing file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port:     getEnv("PORT", "8080"),
			Host:     getEnv("HOST", "0.0.0.0"),
			LogLevel: getEnv("LOG_LEVEL", "INFO"),
		},
		Relay: RelayConfig{
			DefaultWebhookURL: getEnv("SHEET_WEBHOOK_URL", ""),
			AllowedHosts:      parseStringList(getEnv("SHEET_ALLOWED_HOSTS", "")),
			Timeout:           parseDuration(getEnv("RELAY_TIMEOUT", "30s"), 30*time.Second),
		},
		Security: SecurityConfig{
			APIKey: getEnv("API_KEY", ""),
		},
		DeliveryLog: DeliveryLogConfig{
			DBPath: getEnv("DELIVERY_LOG_PATH", "./db/deliveries.db"),
			TTL:    parseDuration(getEnv("DELIVERY_LOG_TTL", "168h"), 7*24*time.Hour),
		},
		Notify: NotifyConfig{
			Enabled:     parseBool(getEnv("NOTIFY_WHATSAPP_ENABLED", "false"), false),
			DBPath:      getEnv("WA_DB_PATH", "./db/whatsmeow.db"),
			Recipient:   getEnv("NOTIFY_WHATSAPP_TO", ""),
			CountryCode: getEnv("NOTIFY_COUNTRY_CODE", "91"),
		},
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks cross-field requirements
func (c *Config) validate() error {
	if c.Relay.DefaultWebhookURL != "" {
		u, err := url.Parse(c.Relay.DefaultWebhookURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("SHEET_WEBHOOK_URL must be an absolute URL, got %q", c.Relay.DefaultWebhookURL)
		}
	}

	if c.Notify.Enabled && c.Notify.Recipient == "" {
		return fmt.Errorf("NOTIFY_WHATSAPP_TO is required when NOTIFY_WHATSAPP_ENABLED is set")
	}

	return nil
}

// Address returns the listen address for the HTTP server
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	return strings.TrimSpace(value)
}

// parseBool parses string to bool with default value
func parseBool(value string, defaultValue bool) bool {
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

// parseDuration parses string to time.Duration with default value
func parseDuration(value string, defaultValue time.Duration) time.Duration {
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

// parseStringList parses comma-separated string to slice
func parseStringList(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.ToLower(strings.TrimSpace(part))
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
