package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"fintrack/internal/provision"
)

var (
	validBackends  = []string{"memory", "sqlite", "mongo"}
	validLogLevels = []string{"debug", "info", "warn", "error"}
)

type Config struct {
	// HTTP Server
	Port           string
	RateLimitRPM   int
	RequestTimeout time.Duration

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath  string
	MongoURI      string
	MongoDatabase string

	// AMQP activity feed; disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Provisioning
	RedisAddr        string
	ProvisionLockTTL time.Duration
	DefaultsVersion  string

	// Ledger and reports
	TransferLegs     bool
	ReportTimezone   string
	CurrencyCacheTTL time.Duration

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8081"),
		RateLimitRPM:   getEnvInt("RATE_LIMIT_RPM", 120),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),

		DataBackend: getEnv("DATA_BACKEND", "sqlite"),

		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/fintrack.db"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "fintrack"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fintrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "activity"),

		RedisAddr:        getEnv("REDIS_ADDR", ""),
		ProvisionLockTTL: getEnvDuration("PROVISION_LOCK_TTL", 30*time.Second),
		DefaultsVersion:  getEnv("DEFAULTS_VERSION", "v2"),

		TransferLegs:     getEnvBool("TRANSFER_LEGS", true),
		ReportTimezone:   getEnv("REPORT_TIMEZONE", "UTC"),
		CurrencyCacheTTL: getEnvDuration("CURRENCY_CACHE_TTL", time.Hour),

		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitRPM < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitRPM))
	}
	if c.RequestTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid request timeout %v: must be at least 1 second", c.RequestTimeout))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case "mongo":
		if u, err := url.Parse(c.MongoURI); err != nil || c.MongoURI == "" {
			errors = append(errors, fmt.Sprintf("invalid Mongo URI '%s'", c.MongoURI))
		} else if u.Scheme != "mongodb" && u.Scheme != "mongodb+srv" {
			errors = append(errors, fmt.Sprintf("invalid Mongo URI scheme '%s': must be 'mongodb' or 'mongodb+srv'", u.Scheme))
		}
		if c.MongoDatabase == "" {
			errors = append(errors, "Mongo database name cannot be empty when using mongo backend")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RedisAddr != "" {
		if c.ProvisionLockTTL < time.Second {
			errors = append(errors, fmt.Sprintf("invalid provision lock TTL %v: must be at least 1 second", c.ProvisionLockTTL))
		} else if c.ProvisionLockTTL > 10*time.Minute {
			errors = append(errors, fmt.Sprintf("invalid provision lock TTL %v: must be at most 10 minutes", c.ProvisionLockTTL))
		}
	}

	if _, err := provision.DefaultsByVersion(c.DefaultsVersion); err != nil {
		errors = append(errors, fmt.Sprintf("invalid defaults version '%s'", c.DefaultsVersion))
	}

	if _, err := time.LoadLocation(c.ReportTimezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid report timezone '%s': %v", c.ReportTimezone, err))
	}

	if c.CurrencyCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid currency cache TTL %v: must not be negative", c.CurrencyCacheTTL))
	}

	if !slices.Contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// Location resolves ReportTimezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ReportTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
