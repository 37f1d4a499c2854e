package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrations embed.FS

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

const sqliteScheme = "sqlite3://"

// Connection options for the application sqlite connections
// _txlock=immediate makes every transaction take the write lock on BEGIN, so read-modify-write cycles never interleave
// The driver busy wait ignores context, so it is kept short. Callers retry BEGIN until their context is done
const sqliteOptions = "_txlock=immediate&_journal_mode=WAL&_busy_timeout=50&_foreign_keys=on"

// Driver detects the storage driver by DSN scheme
func Driver(dsn string) (string, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DriverPostgres, nil
	case strings.HasPrefix(dsn, sqliteScheme):
		return DriverSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database dsn, expected postgres:// or sqlite3:// scheme")
	}
}

// Run embedded migrations
// Check the example at https://github.com/golang-migrate/migrate/blob/v4.18.1/source/iofs/example_test.go
// dsn: database source name in format postgres://... or sqlite3://...
func Migrate(dsn string) error {
	driver, err := Driver(dsn)
	if err != nil {
		return err
	}

	var dir string
	switch driver {
	case DriverPostgres:
		dir = "migrations/postgres"
		dsn = strings.NewReplacer(
			"postgres://", "pgx5://", // golang-migrate expects dsn in format 'pgx5://...' only, make it happy with 'postgres://...'
			"postgresql://", "pgx5://",
		).Replace(dsn)
	case DriverSQLite:
		dir = "migrations/sqlite"
	}

	source, err := iofs.New(migrations, dir)
	if err != nil {
		return err
	}

	migrator, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return fmt.Errorf("error while preparing migrator. Err: %w", err)
	}
	defer migrator.Close() // nolint:errcheck

	err = migrator.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error while applying migrations. Err: %w", err)
	}

	return nil
}

func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("cant initialize connection pool. Err: %w", err)
	}

	return pool, err
}

func ConnectAndMigrate(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	err := Migrate(dsn)
	if err != nil {
		return nil, err
	}

	return Connect(ctx, dsn)
}

// OpenSQLite opens sqlite database at the path from dsn 'sqlite3://path/to/file.db'
func OpenSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	path, query, _ := strings.Cut(strings.TrimPrefix(dsn, sqliteScheme), "?")
	if path == "" {
		return nil, errors.New("sqlite database path is empty")
	}

	options := sqliteOptions
	if query != "" {
		options += "&" + query
	}

	sqlDB, err := sql.Open(DriverSQLite, "file:"+path+"?"+options)
	if err != nil {
		return nil, fmt.Errorf("cant open sqlite database. Err: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("cant ping sqlite database. Err: %w", err)
	}

	return sqlDB, nil
}

func OpenSQLiteAndMigrate(ctx context.Context, dsn string) (*sql.DB, error) {
	err := Migrate(dsn)
	if err != nil {
		return nil, err
	}

	return OpenSQLite(ctx, dsn)
}
