// Package config loads the settings server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreGorm   = "gorm"
	StoreRedis  = "redis"
)

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Addr                    string        `json:"addr"`
	ReadTimeout             time.Duration `json:"read_timeout"`
	WriteTimeout            time.Duration `json:"write_timeout"`
	GracefulShutdownTimeout time.Duration `json:"graceful_shutdown_timeout"`
}

// AuthConfig represents authentication configuration. Key is a bcrypt hash or
// a plain key; an empty key disables authentication.
type AuthConfig struct {
	Key    string `json:"-"`
	Secret string `json:"-"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// StoreConfig selects where option groups are persisted.
type StoreConfig struct {
	Backend  string `json:"backend"`
	DSN      string `json:"-"`
	RedisURL string `json:"-"`
	Prefix   string `json:"prefix"`
}

// DefinitionsConfig locates the definition files served and the engine
// their validate rules run on.
type DefinitionsConfig struct {
	Dir    string `json:"dir"`
	Watch  bool   `json:"watch"`
	Engine string `json:"engine"`
}

// ActivityConfig controls the audit trail of settings changes.
type ActivityConfig struct {
	Enabled bool   `json:"enabled"`
	Channel string `json:"channel"`
}

// Manager holds the loaded configuration.
type Manager struct {
	server      ServerConfig
	auth        AuthConfig
	log         LogConfig
	store       StoreConfig
	definitions DefinitionsConfig
	activity    ActivityConfig
	locale      string
}

// NewManager loads .env when present and reads the SETTINGS_* variables.
func NewManager() (*Manager, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("Failed to load .env file")
	}
	m := &Manager{}
	if err := m.ReloadConfig(); err != nil {
		return nil, err
	}
	return m, nil
}

// ReloadConfig re-reads the environment.
func (m *Manager) ReloadConfig() error {
	next := Manager{
		server: ServerConfig{
			Addr:                    getEnv("SETTINGS_ADDR", ":8080"),
			ReadTimeout:             getDuration("SETTINGS_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:            getDuration("SETTINGS_WRITE_TIMEOUT", 30*time.Second),
			GracefulShutdownTimeout: getDuration("SETTINGS_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		auth: AuthConfig{
			Key:    os.Getenv("SETTINGS_ADMIN_KEY"),
			Secret: os.Getenv("SETTINGS_SECRET"),
		},
		log: LogConfig{
			Level:  strings.ToLower(getEnv("SETTINGS_LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("SETTINGS_LOG_FORMAT", "text")),
		},
		store: StoreConfig{
			Backend:  strings.ToLower(getEnv("SETTINGS_STORE", StoreMemory)),
			DSN:      os.Getenv("SETTINGS_DSN"),
			RedisURL: os.Getenv("SETTINGS_REDIS_URL"),
			Prefix:   getEnv("SETTINGS_REDIS_PREFIX", "settings:"),
		},
		definitions: DefinitionsConfig{
			Dir:    getEnv("SETTINGS_DEFINITIONS_DIR", "definitions"),
			Watch:  getBool("SETTINGS_WATCH", false),
			Engine: strings.ToLower(getEnv("SETTINGS_RULE_ENGINE", "expr")),
		},
		activity: ActivityConfig{
			Enabled: getBool("SETTINGS_AUDIT", true),
			Channel: getEnv("SETTINGS_AUDIT_CHANNEL", "settings"),
		},
		locale: getEnv("SETTINGS_LOCALE", "en"),
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*m = next
	return nil
}

// Validate checks that the selected backends are configured.
func (m *Manager) Validate() error {
	var problems []string
	switch m.store.Backend {
	case StoreMemory:
	case StoreGorm:
		if m.store.DSN == "" {
			problems = append(problems, "SETTINGS_DSN is required when SETTINGS_STORE=gorm")
		}
	case StoreRedis:
		if m.store.RedisURL == "" {
			problems = append(problems, "SETTINGS_REDIS_URL is required when SETTINGS_STORE=redis")
		}
	default:
		problems = append(problems, fmt.Sprintf("SETTINGS_STORE must be one of memory, gorm, redis; got %q", m.store.Backend))
	}
	if _, err := logrus.ParseLevel(m.log.Level); err != nil {
		problems = append(problems, fmt.Sprintf("SETTINGS_LOG_LEVEL: %v", err))
	}
	if m.log.Format != "text" && m.log.Format != "json" {
		problems = append(problems, fmt.Sprintf("SETTINGS_LOG_FORMAT must be text or json; got %q", m.log.Format))
	}
	if m.definitions.Dir == "" {
		problems = append(problems, "SETTINGS_DEFINITIONS_DIR is required")
	}
	switch m.definitions.Engine {
	case "expr", "cel", "js":
	default:
		problems = append(problems, fmt.Sprintf("SETTINGS_RULE_ENGINE must be one of expr, cel, js; got %q", m.definitions.Engine))
	}
	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (m *Manager) GetServerConfig() ServerConfig { return m.server }

func (m *Manager) GetAuthConfig() AuthConfig { return m.auth }

func (m *Manager) GetLogConfig() LogConfig { return m.log }

func (m *Manager) GetStoreConfig() StoreConfig { return m.store }

func (m *Manager) GetDefinitionsConfig() DefinitionsConfig { return m.definitions }

func (m *Manager) GetActivityConfig() ActivityConfig { return m.activity }

// GetLocale returns the fallback locale used when a request names none.
func (m *Manager) GetLocale() string { return m.locale }

// DisplayServerConfig logs the effective configuration without secrets.
func (m *Manager) DisplayServerConfig() {
	logrus.WithFields(logrus.Fields{
		"addr":        m.server.Addr,
		"store":       m.store.Backend,
		"definitions": m.definitions.Dir,
		"watch":       m.definitions.Watch,
		"rule_engine": m.definitions.Engine,
		"locale":      m.locale,
		"auth":        m.auth.Key != "",
		"audit":       m.activity.Enabled,
		"log_level":   m.log.Level,
	}).Info("Settings server configuration")
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logrus.Warnf("Invalid boolean for %s: %q, using %t", key, value, fallback)
		return fallback
	}
	return parsed
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		logrus.Warnf("Invalid duration for %s: %q, using %s", key, value, fallback)
		return fallback
	}
	return parsed
}
