package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"clinic-call-queue/internal/calllog"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Mongo    MongoConfig
	CallLog  CallLogConfig
	Roster   RosterConfig
	Display  DisplayConfig
	Server   ServerConfig
	CORS     CORSConfig
	Log      LogConfig

	// Warnings lists settings that were invalid and replaced by a default
	Warnings []string
}

type DatabaseConfig struct {
	Driver   string // mysql or postgres
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

type MongoConfig struct {
	URI      string
	Database string
}

type CallLogConfig struct {
	Backend  string // memory, mysql, postgres or mongo
	Slot     string
	Strategy string
}

type RosterConfig struct {
	Path string
}

type DisplayConfig struct {
	PollInterval time.Duration
}

type ServerConfig struct {
	Port    string
	GinMode string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Pretty bool
}

func LoadConfig() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	var warnings []string
	pollInterval := getEnv("DISPLAY_POLL_INTERVAL", "1s")

	config := &Config{
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "mysql"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "3306"),
			User:     getEnv("DB_USER", "root"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "clinic_call_queue"),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DATABASE", "clinic_call_queue"),
		},
		CallLog: CallLogConfig{
			Backend:  strings.ToLower(getEnv("CALL_LOG_BACKEND", "memory")),
			Slot:     getEnv("CALL_LOG_SLOT", "chamadas"),
			Strategy: getEnv("CALL_LOG_STRATEGY", "single-writer"),
		},
		Roster: RosterConfig{
			Path: getEnv("ROSTER_PATH", "data/roster.json"),
		},
		Display: DisplayConfig{
			PollInterval: parseDuration(pollInterval, time.Second),
		},
		Server: ServerConfig{
			Port:    getEnv("PORT", "8080"),
			GinMode: getEnv("GIN_MODE", "debug"),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnv("LOG_PRETTY", "false") == "true",
		},
	}

	if _, ok := tryParseDuration(pollInterval); !ok {
		warnings = append(warnings, fmt.Sprintf("invalid DISPLAY_POLL_INTERVAL %q, using %s", pollInterval, config.Display.PollInterval))
	}
	config.Warnings = warnings

	return config
}

// Validate checks the settings that cannot fall back to a default
func (c *Config) Validate() error {
	switch c.CallLog.Backend {
	case "memory", "mongo":
	case "mysql", "postgres":
		if c.Database.Driver != c.CallLog.Backend {
			c.Database.Driver = c.CallLog.Backend
		}
	default:
		return fmt.Errorf("invalid CALL_LOG_BACKEND %q: must be memory, mysql, postgres or mongo", c.CallLog.Backend)
	}
	if strings.TrimSpace(c.CallLog.Slot) == "" {
		return fmt.Errorf("CALL_LOG_SLOT must not be empty")
	}
	strategy, err := calllog.ParseStrategy(c.CallLog.Strategy)
	if err != nil {
		return fmt.Errorf("invalid CALL_LOG_STRATEGY: %w", err)
	}
	c.CallLog.Strategy = string(strategy)
	return nil
}

// ValidateDisplay checks that a standalone display can see the operator's log.
// An in-memory log lives inside the operator process and is invisible here.
func (c *Config) ValidateDisplay() error {
	if c.CallLog.Backend == "memory" {
		return fmt.Errorf("the display needs a shared CALL_LOG_BACKEND (mysql, postgres or mongo), got %q", c.CallLog.Backend)
	}
	return nil
}

// UsesSQL reports whether the call log and audit trail live in a SQL database
func (c *Config) UsesSQL() bool {
	return c.CallLog.Backend == "mysql" || c.CallLog.Backend == "postgres"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if duration, ok := tryParseDuration(s); ok {
		return duration
	}
	return fallback
}

func tryParseDuration(s string) (time.Duration, bool) {
	duration, err := time.ParseDuration(s)
	if err != nil || duration <= 0 {
		return 0, false
	}
	return duration, true
}

func parseOrigins(s string) []string {
	origins := []string{}
	for _, origin := range strings.Split(s, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
