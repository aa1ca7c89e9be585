package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/miniappauth/internal/logger"
	"github.com/nkiryanov/miniappauth/internal/sessionstore"
)

const (
	defaultAPIURL         = "http://localhost:8090/api"
	defaultLoggingLevel   = logger.LevelWarn
	defaultEnvironment    = logger.EnvDevelopment
	defaultStorage        = sessionstore.KindFile
	defaultStoragePath    = ".miniappauth/session.json"
	defaultRequestTimeout = 10 * time.Second
)

type Config struct {
	// Backend base URL
	APIURL string `validate:"required,url"`

	// Default logging level
	LogLevel string `validate:"oneof=debug info warn error"`

	// Duplicate logs to rotating file if set
	LogFile string

	// Environment, chooses log format
	Environment string `validate:"oneof=dev prod"`

	// Session storage kind and its connection settings
	Storage     string `validate:"oneof=memory file bolt postgres redis"`
	StoragePath string
	DatabaseURI string
	RedisURL    string

	// Key the session record is stored under
	SessionKey string `validate:"required"`

	// Seals stored session when set
	SecretKey string

	RequestTimeout time.Duration `validate:"gt=0"`

	// Outbound requests per second, zero means unlimited
	RateLimit float64 `validate:"gte=0"`
}

func NewConfig() *Config {
	return &Config{
		APIURL:         defaultAPIURL,
		LogLevel:       defaultLoggingLevel,
		Environment:    defaultEnvironment,
		Storage:        defaultStorage,
		StoragePath:    defaultStoragePath,
		SessionKey:     sessionstore.DefaultKey,
		RequestTimeout: defaultRequestTimeout,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = d
			return nil
		}
	}
	setFloat := func(o *float64) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return err
			}
			*o = f
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"API_URL":         setString(&c.APIURL),
		"LOG_LEVEL":       setString(&c.LogLevel),
		"LOG_FILE":        setString(&c.LogFile),
		"ENVIRONMENT":     setString(&c.Environment),
		"STORAGE":         setString(&c.Storage),
		"STORAGE_PATH":    setString(&c.StoragePath),
		"DATABASE_URI":    setString(&c.DatabaseURI),
		"REDIS_URL":       setString(&c.RedisURL),
		"SESSION_KEY":     setString(&c.SessionKey),
		"SECRET_KEY":      setString(&c.SecretKey),
		"REQUEST_TIMEOUT": setDuration(&c.RequestTimeout),
		"RATE_LIMIT":      setFloat(&c.RateLimit),
	}

	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			return fmt.Errorf("invalid %s. Err: %w", key, err)
		}
	}
	return nil
}

// ParseFlags sets options from flags and returns the command with its arguments
func (c *Config) ParseFlags(args []string) ([]string, error) {
	fs := pflag.NewFlagSet("miniappauth", pflag.ContinueOnError)

	fs.StringVarP(&c.APIURL, "api-url", "u", c.APIURL, "Backend base URL")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "Duplicate logs to the rotating file")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVarP(&c.Storage, "storage", "s", c.Storage, "Session storage (memory, file, bolt, postgres, redis)")
	fs.StringVarP(&c.StoragePath, "storage-path", "p", c.StoragePath, "Session file for file and bolt storage")
	fs.StringVarP(&c.DatabaseURI, "database", "d", c.DatabaseURI, "Postgres connection string for postgres storage")
	fs.StringVar(&c.RedisURL, "redis", c.RedisURL, "Redis URL for redis storage")
	fs.StringVarP(&c.SessionKey, "session-key", "k", c.SessionKey, "Key the session is stored under")
	fs.StringVar(&c.SecretKey, "secret-key", c.SecretKey, "Secret key to seal the stored session")
	fs.DurationVarP(&c.RequestTimeout, "timeout", "t", c.RequestTimeout, "Timeout of a single request")
	fs.Float64Var(&c.RateLimit, "rate-limit", c.RateLimit, "Requests per second, 0 means unlimited")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return fs.Args(), nil
}

func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid config. Err: %w", err)
	}

	switch {
	case (c.Storage == sessionstore.KindFile || c.Storage == sessionstore.KindBolt) && c.StoragePath == "":
		return fmt.Errorf("invalid config: storage path required for %s storage", c.Storage)
	case c.Storage == sessionstore.KindPostgres && c.DatabaseURI == "":
		return errors.New("invalid config: database uri required for postgres storage")
	case c.Storage == sessionstore.KindRedis && c.RedisURL == "":
		return errors.New("invalid config: redis url required for redis storage")
	}

	return nil
}

func (c *Config) StoreConfig() sessionstore.Config {
	return sessionstore.Config{
		Kind:        c.Storage,
		Path:        c.StoragePath,
		DatabaseURI: c.DatabaseURI,
		RedisURL:    c.RedisURL,
		Key:         c.SessionKey,
		SecretKey:   c.SecretKey,
	}
}
