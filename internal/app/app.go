package app

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Store drivers understood by store.OpenBackend.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Addr            string
	StoreDriver     string
	DataDir         string
	DatabaseURL     string
	SessionLifetime time.Duration
	SessionSecret   string
	BcryptCost      int
	DownloadsDir    string
	PagesFile       string
	LogLevel        string
	LogPretty       bool
	AuthRatePerMin  int
}

// DefaultSessionSecret is used when SESSION_SECRET is unset. Fine for local
// runs only: anyone who knows it can mint session cookies.
const DefaultSessionSecret = "dev-secret-change-me"

func LoadConfig() (Config, error) {
	lifeHours, err := getenvInt("SESSION_LIFETIME_HOURS", 24)
	if err != nil {
		return Config{}, err
	}
	cost, err := getenvInt("BCRYPT_COST", 10)
	if err != nil {
		return Config{}, err
	}
	rate, err := getenvInt("AUTH_RATE_PER_MIN", 30)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Addr:            getenv("ADDR", ":8080"),
		StoreDriver:     getenv("STORE_DRIVER", DriverFile),
		DataDir:         getenv("DATA_DIR", "."),
		DatabaseURL:     getenv("DATABASE_URL", ""),
		SessionLifetime: time.Duration(lifeHours) * time.Hour,
		SessionSecret:   getenv("SESSION_SECRET", DefaultSessionSecret),
		BcryptCost:      cost,
		DownloadsDir:    getenv("DOWNLOADS_DIR", "downloads"),
		PagesFile:       getenv("PAGES_FILE", ""),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogPretty:       getenv("LOG_PRETTY", "false") == "true",
		AuthRatePerMin:  rate,
	}, nil
}

// Validate reports settings that would make the server unusable.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverFile:
		if c.DataDir == "" {
			return fmt.Errorf("DATA_DIR is required for the %s driver", c.StoreDriver)
		}
	case DriverSQLite, DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s driver", c.StoreDriver)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET must not be empty")
	}
	if c.SessionLifetime <= 0 {
		return fmt.Errorf("SESSION_LIFETIME_HOURS must be positive")
	}
	if c.AuthRatePerMin <= 0 {
		return fmt.Errorf("AUTH_RATE_PER_MIN must be positive")
	}
	return nil
}

// InsecureSecret reports whether cookies are signed with the built-in secret.
func (c Config) InsecureSecret() bool { return c.SessionSecret == DefaultSessionSecret }

// String masks the session secret.
func (c Config) String() string {
	return fmt.Sprintf("Config{Addr: %s, Store: %s, DataDir: %s, Session: %s, Secret: ***}",
		c.Addr, c.StoreDriver, c.DataDir, c.SessionLifetime)
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %w", k, err)
	}
	return n, nil
}
