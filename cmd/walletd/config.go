package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/walletledger/internal/db"
	"github.com/nkiryanov/walletledger/internal/handlers"
	"github.com/nkiryanov/walletledger/internal/logger"
)

const (
	defaultListenAddr      = "localhost:8080"
	defaultLoggingLevel    = logger.LevelInfo
	defaultEnvironment     = logger.EnvProduction
	defaultEventStream     = "wallet.transactions"
	defaultEventPartitions = 1
	defaultNotifierWorkers = 4
	defaultNotifierQueue   = 1024
	defaultCommitTimeout   = 5 * time.Second
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the wallet service will be run
	ListenAddr string

	// Database to connect to: 'postgres://...' or 'sqlite3://path/to/file.db'
	DatabaseDSN string

	// Environment
	Environment string

	// Redis address for transaction events. If empty events are only logged
	RedisAddr string

	// Stream name and number of partitions (streams '<name>.<n>') for transaction events
	EventStream     string
	EventPartitions int

	// Workers publishing events and the queue size they read from
	NotifierWorkers int
	NotifierQueue   int

	// Max time of one credit or debit, including waiting for the wallet lock
	CommitTimeout time.Duration

	// Origins allowed to call the API from browser
	CORSOrigins []string

	// Read the events back and log them
	ConsumeEvents bool
}

func NewConfig() *Config {
	return &Config{
		LogLevel:        defaultLoggingLevel,
		ListenAddr:      defaultListenAddr,
		Environment:     defaultEnvironment,
		EventStream:     defaultEventStream,
		EventPartitions: defaultEventPartitions,
		NotifierWorkers: defaultNotifierWorkers,
		NotifierQueue:   defaultNotifierQueue,
		CommitTimeout:   defaultCommitTimeout,
		CORSOrigins:     handlers.DefaultCORSOrigins,
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

	setInt := func(o *int) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			v, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			*o = v
			return nil
		}
	}

	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			v, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = v
			return nil
		}
	}

	setBool := func(o *bool) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			v, err := strconv.ParseBool(value)
			if err != nil {
				return err
			}
			*o = v
			return nil
		}
	}

	setList := func(o *[]string) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			var items []string
			for _, item := range strings.Split(value, ",") {
				if item = strings.TrimSpace(item); item != "" {
					items = append(items, item)
				}
			}
			*o = items
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":      setString(&c.ListenAddr),
		"DATABASE_URI":     setString(&c.DatabaseDSN),
		"LOG_LEVEL":        setString(&c.LogLevel),
		"ENVIRONMENT":      setString(&c.Environment),
		"REDIS_ADDR":       setString(&c.RedisAddr),
		"EVENT_STREAM":     setString(&c.EventStream),
		"EVENT_PARTITIONS": setInt(&c.EventPartitions),
		"NOTIFIER_WORKERS": setInt(&c.NotifierWorkers),
		"NOTIFIER_QUEUE":   setInt(&c.NotifierQueue),
		"COMMIT_TIMEOUT":   setDuration(&c.CommitTimeout),
		"CORS_ORIGINS":     setList(&c.CORSOrigins),
		"CONSUME_EVENTS":   setBool(&c.ConsumeEvents),
	}

	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			return fmt.Errorf("invalid %s value. Err: %w", key, err)
		}
	}

	return nil
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("walletd", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string (postgres:// or sqlite3://)")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVarP(&c.RedisAddr, "redis", "r", c.RedisAddr, "Redis address for transaction events")
	fs.StringVar(&c.EventStream, "event-stream", c.EventStream, "Stream name for transaction events")
	fs.IntVar(&c.EventPartitions, "event-partitions", c.EventPartitions, "Number of event stream partitions")
	fs.IntVar(&c.NotifierWorkers, "notifier-workers", c.NotifierWorkers, "Number of workers publishing events")
	fs.IntVar(&c.NotifierQueue, "notifier-queue", c.NotifierQueue, "Size of events queue")
	fs.DurationVar(&c.CommitTimeout, "commit-timeout", c.CommitTimeout, "Max duration of one credit or debit")
	fs.StringSliceVar(&c.CORSOrigins, "cors-origins", c.CORSOrigins, "Allowed CORS origins")
	fs.BoolVar(&c.ConsumeEvents, "consume-events", c.ConsumeEvents, "Consume and log transaction events")

	return fs.Parse(args)
}

func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database dsn is required"))
	} else if _, err := db.Driver(c.DatabaseDSN); err != nil {
		errs = append(errs, err)
	}

	if c.EventPartitions < 1 {
		errs = append(errs, errors.New("event partitions must be positive"))
	}
	if c.NotifierWorkers < 1 {
		errs = append(errs, errors.New("notifier workers must be positive"))
	}
	if c.NotifierQueue < 1 {
		errs = append(errs, errors.New("notifier queue must be positive"))
	}
	if c.CommitTimeout <= 0 {
		errs = append(errs, errors.New("commit timeout must be positive"))
	}
	if c.ConsumeEvents && c.RedisAddr == "" {
		errs = append(errs, errors.New("consuming events requires redis address"))
	}

	return errors.Join(errs...)
}
