package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreInfluxDB  = "influxdb"
	StoreSQLite    = "sqlite"
	StoreTimescale = "timescale"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	StoreKind        string
	StoreBucket      string
	StoreMeasurement string
	QueryTimeout     time.Duration

	InfluxURL   string
	InfluxToken string
	InfluxOrg   string

	SQLiteDSN             string
	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration

	TimescaleURL string
	// TimescaleApplySchema creates the sensor_readings hypertable on startup.
	TimescaleApplySchema bool

	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration

	// ThresholdsFile is an optional YAML file replacing the built-in alert rules.
	ThresholdsFile string
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	httpAddr := strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if httpAddr == "" {
		port := envOr("PORT", "3001")
		if _, err := strconv.ParseUint(port, 10, 16); err != nil {
			return Config{}, fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		httpAddr = ":" + port
	}

	storeKind := strings.ToLower(envOr("STORE_KIND", StoreInfluxDB))
	switch storeKind {
	case StoreInfluxDB, StoreSQLite, StoreTimescale:
	default:
		return Config{}, fmt.Errorf("invalid STORE_KIND %q (allowed: influxdb, sqlite, timescale)", storeKind)
	}

	queryTimeout, err := envDuration("STORE_QUERY_TIMEOUT", "10s")
	if err != nil {
		return Config{}, err
	}
	if queryTimeout <= 0 {
		return Config{}, fmt.Errorf("invalid STORE_QUERY_TIMEOUT %q: must be > 0", os.Getenv("STORE_QUERY_TIMEOUT"))
	}

	maxOpenConns, err := envInt("DB_MAX_OPEN_CONNS", "1")
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := envInt("DB_MAX_IDLE_CONNS", "1")
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := envDuration("DB_CONN_MAX_LIFETIME", "0s")
	if err != nil {
		return Config{}, err
	}

	timescaleApplySchema, err := envBool("TIMESCALE_APPLY_SCHEMA", "false")
	if err != nil {
		return Config{}, err
	}

	breakerMaxFailures, err := envInt("BREAKER_MAX_FAILURES", "5")
	if err != nil {
		return Config{}, err
	}
	if breakerMaxFailures < 1 {
		return Config{}, fmt.Errorf("invalid BREAKER_MAX_FAILURES %d: must be >= 1", breakerMaxFailures)
	}
	breakerOpenTimeout, err := envDuration("BREAKER_OPEN_TIMEOUT", "30s")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:   appEnv,
		LogLevel: level,
		HTTPAddr: httpAddr,

		StoreKind:        storeKind,
		StoreBucket:      strings.TrimSpace(os.Getenv("STORE_BUCKET")),
		StoreMeasurement: envOr("STORE_MEASUREMENT", "biogas_sensor"),
		QueryTimeout:     queryTimeout,

		InfluxURL:   strings.TrimSpace(os.Getenv("INFLUX_URL")),
		InfluxToken: strings.TrimSpace(os.Getenv("INFLUX_TOKEN")),
		InfluxOrg:   strings.TrimSpace(os.Getenv("INFLUX_ORG")),

		SQLiteDSN:             strings.TrimSpace(os.Getenv("DB_DSN")),
		SQLitePath:            envOr("SQLITE_PATH", "../dev/sqlite/app.db"),
		SQLiteMaxOpenConns:    maxOpenConns,
		SQLiteMaxIdleConns:    maxIdleConns,
		SQLiteConnMaxLifetime: connMaxLifetime,

		TimescaleURL:         strings.TrimSpace(os.Getenv("TIMESCALE_URL")),
		TimescaleApplySchema: timescaleApplySchema,

		BreakerMaxFailures: uint32(breakerMaxFailures),
		BreakerOpenTimeout: breakerOpenTimeout,

		ThresholdsFile: strings.TrimSpace(os.Getenv("THRESHOLDS_FILE")),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// validate rejects store settings the process must not start serving with.
func (c Config) validate() error {
	var missing []string
	if c.StoreBucket == "" {
		missing = append(missing, "STORE_BUCKET")
	}
	if c.StoreMeasurement == "" {
		missing = append(missing, "STORE_MEASUREMENT")
	}
	switch c.StoreKind {
	case StoreInfluxDB:
		if c.InfluxURL == "" {
			missing = append(missing, "INFLUX_URL")
		}
		if c.InfluxToken == "" {
			missing = append(missing, "INFLUX_TOKEN")
		}
		if c.InfluxOrg == "" {
			missing = append(missing, "INFLUX_ORG")
		}
	case StoreTimescale:
		if c.TimescaleURL == "" {
			missing = append(missing, "TIMESCALE_URL")
		}
	}
	if len(missing) > 0 {
		return errors.New("missing required store configuration: " + strings.Join(missing, ", "))
	}
	return nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key, def string) (int, error) {
	s := envOr(key, def)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func envBool(key, def string) (bool, error) {
	s := envOr(key, def)
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}

func envDuration(key, def string) (time.Duration, error) {
	s := envOr(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
