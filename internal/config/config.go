package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Octopus holds the API credentials and meter identifiers.
type Octopus struct {
	BaseURL           string        `validate:"required,url"`
	APIKey            string        `validate:"required"`
	AccountNumber     string        `validate:"omitempty"`
	ElectricityMPAN   string        `validate:"required_with=ElectricitySerial"`
	ElectricitySerial string        `validate:"required_with=ElectricityMPAN"`
	GasMPRN           string        `validate:"required_with=GasSerial"`
	GasSerial         string        `validate:"required_with=GasMPRN"`
	PageSize          int           `validate:"min=1,max=25000"`
	MinInterval       time.Duration `validate:"min=0"`
	MaxRetries        int           `validate:"min=0,max=10"`
}

// Cache selects and configures the persistence backend.
type Cache struct {
	Backend       string `validate:"oneof=file sqlite redis"`
	Path          string `validate:"required_unless=Backend redis"`
	RedisAddr     string `validate:"required_if=Backend redis"`
	RedisPassword string
	RedisDB       int `validate:"min=0"`
	RedisPrefix   string
}

// Influx configures the optional InfluxDB export.
type Influx struct {
	URL    string `validate:"omitempty,url"`
	Token  string
	Org    string
	Bucket string
}

// Config is the whole application configuration.
type Config struct {
	Octopus Octopus
	Cache   Cache
	Influx  Influx

	Lookback         time.Duration `validate:"gt=0"`
	SyncInterval     time.Duration `validate:"gt=0"`
	SkipOnFetchError bool
	LogLevel         string `validate:"omitempty,oneof=debug info warn warning error"`
	GRPCAddr         string
	HTTPAddr         string
	GRPCTarget       string
	ReloadInterval   time.Duration `validate:"gt=0"`
	GRPCWaitTimeout  time.Duration
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads .env (if present) and the environment. Only fields every command
// needs are validated here; see ValidateForSync.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: loading .env: %v", err)
	}

	var errs []error
	cfg := &Config{
		Octopus: Octopus{
			BaseURL:           getenvDefault("OCTOPUS_BASE_URL", "https://api.octopus.energy/v1"),
			APIKey:            os.Getenv("OCTOPUS_API_KEY"),
			AccountNumber:     os.Getenv("OCTOPUS_ACCOUNT_NUMBER"),
			ElectricityMPAN:   os.Getenv("ELECTRICITY_MPAN"),
			ElectricitySerial: os.Getenv("ELECTRICITY_SERIAL"),
			GasMPRN:           os.Getenv("GAS_MPRN"),
			GasSerial:         os.Getenv("GAS_SERIAL"),
			PageSize:          getenvInt("OCTOPUS_PAGE_SIZE", 1000, &errs),
			MinInterval:       getenvDuration("OCTOPUS_MIN_INTERVAL", 500*time.Millisecond, &errs),
			MaxRetries:        getenvInt("OCTOPUS_MAX_RETRIES", 3, &errs),
		},
		Cache: Cache{
			Backend:       strings.ToLower(getenvDefault("CACHE_BACKEND", "file")),
			Path:          getenvDefault("CACHE_PATH", "./consumption_data.json"),
			RedisAddr:     os.Getenv("REDIS_ADDR"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       getenvInt("REDIS_DB", 0, &errs),
			RedisPrefix:   getenvDefault("REDIS_PREFIX", "octosync"),
		},
		Influx: Influx{
			URL:    os.Getenv("INFLUX_URL"),
			Token:  os.Getenv("INFLUX_TOKEN"),
			Org:    os.Getenv("INFLUX_ORG"),
			Bucket: getenvDefault("INFLUX_BUCKET", "octopus"),
		},
		Lookback:         getenvDuration("SYNC_LOOKBACK", 365*24*time.Hour, &errs),
		SyncInterval:     getenvDuration("SYNC_INTERVAL", 30*time.Minute, &errs),
		SkipOnFetchError: getenvBool("SKIP_SYNC_ON_FETCH_ERROR", false, &errs),
		LogLevel:         strings.ToLower(os.Getenv("LOG_LEVEL")),
		GRPCAddr:         getenvDefault("GRPC_ADDR", ":9090"),
		HTTPAddr:         getenvDefault("HTTP_ADDR", ":8080"),
		GRPCTarget:       getenvDefault("GRPC_TARGET", "127.0.0.1:9090"),
		ReloadInterval:   getenvDuration("RELOAD_INTERVAL", time.Minute, &errs),
		GRPCWaitTimeout:  getenvDuration("GRPC_WAIT_TIMEOUT", 20*time.Second, &errs),
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks everything except the Octopus section.
func (c *Config) Validate() error {
	if err := validate.StructExcept(c, "Octopus"); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ValidateForSync additionally requires the credentials and at least one
// fully identified meter.
func (c *Config) ValidateForSync() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Octopus.ElectricityMPAN == "" && c.Octopus.GasMPRN == "" {
		return errors.New("invalid config: at least one of ELECTRICITY_MPAN or GAS_MPRN must be set")
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return n
}

func getenvDuration(key string, def time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return d
}

func getenvBool(key string, def bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return b
}
