package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// MigrationsTable records the applied schema version.
const MigrationsTable = "schema_migrations"

// MigrationState reports whether a migration has been applied.
type MigrationState struct {
	Version uint
	Name    string
	Applied bool
	Dirty   bool
}

// isConnectionError reports whether err looks like a transient network
// failure rather than a SQL error. Only connection errors are retried.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	for _, p := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"server closed the connection unexpectedly",
		"failed to connect",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// migrateLogger adapts slog to migrate.Logger.
type migrateLogger struct {
	logger *slog.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "migrate"))
}

func (l migrateLogger) Verbose() bool { return false }

// Migrator applies the *.up.sql files of an fs.FS with golang-migrate,
// borrowing one connection from the pool.
type Migrator struct {
	m      *migrate.Migrate
	src    source.Driver
	logger *slog.Logger
}

// NewMigrator opens a migrator over fsys and pool. Close releases the
// borrowed connection but leaves the pool open.
func NewMigrator(pool *pgxpool.Pool, fsys fs.FS, logger *slog.Logger) (*Migrator, error) {
	src, err := iofs.New(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("open migration source: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{MigrationsTable: MigrationsTable})
	if err != nil {
		_ = db.Close()
		_ = src.Close()
		return nil, fmt.Errorf("open migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		_ = driver.Close()
		_ = src.Close()
		return nil, fmt.Errorf("init migrator: %w", err)
	}
	m.Log = migrateLogger{logger: logger}

	return &Migrator{m: m, src: src, logger: logger}, nil
}

// Up applies every pending migration. Cancelling ctx stops after the
// migration in flight.
func (mg *Migrator) Up(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			mg.m.GracefulStop <- true
		case <-done:
		}
	}()

	if err := mg.m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			mg.logger.Debug("database schema already up to date")
			return nil
		}
		return fmt.Errorf("migrate up: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}

	version, _, err := mg.m.Version()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	mg.logger.Info("migrations applied", slog.Uint64("version", uint64(version)))
	return nil
}

// Status lists every known migration with its applied state.
func (mg *Migrator) Status() ([]MigrationState, error) {
	current, dirty, err := mg.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		current, dirty = 0, false
	case err != nil:
		return nil, fmt.Errorf("read schema version: %w", err)
	}
	return migrationStates(mg.src, current, dirty)
}

// Close releases the migration source and the borrowed connection.
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}

// migrationStates walks src in version order and marks migrations at or
// below current as applied. A dirty current version is reported as not
// applied.
func migrationStates(src source.Driver, current uint, dirty bool) ([]MigrationState, error) {
	var states []MigrationState
	version, err := src.First()
	for err == nil {
		name, nameErr := migrationName(src, version)
		if nameErr != nil {
			return nil, nameErr
		}
		states = append(states, MigrationState{
			Version: version,
			Name:    name,
			Applied: version < current || (version == current && !dirty),
			Dirty:   version == current && dirty,
		})
		version, err = src.Next(version)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	return states, nil
}

func migrationName(src source.Driver, version uint) (string, error) {
	r, identifier, err := src.ReadUp(version)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read migration %d: %w", version, err)
	}
	_ = r.Close()
	return identifier, nil
}

// RunMigrations applies every pending migration from fsys. Transient
// connection errors are retried; SQL errors are returned at once.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, logger *slog.Logger) error {
	err := runMigrationsOnce(ctx, pool, fsys, logger)
	for attempt := 0; err != nil && isConnectionError(err) && attempt < defaultRetryAttempts-1; attempt++ {
		wait := retryBackoff(attempt)
		logger.Warn("migration failed due to connection error, retrying",
			slog.Int("attempt", attempt+2),
			slog.Int("max_attempts", defaultRetryAttempts),
			slog.Duration("backoff", wait),
			slog.String("error", err.Error()),
		)
		if serr := sleepCtx(ctx, wait); serr != nil {
			return fmt.Errorf("run migrations: %w", serr)
		}
		err = runMigrationsOnce(ctx, pool, fsys, logger)
	}
	return err
}

func runMigrationsOnce(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, logger *slog.Logger) error {
	mg, err := NewMigrator(pool, fsys, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := mg.Close(); cerr != nil {
			logger.Warn("closing migrator failed", slog.String("error", cerr.Error()))
		}
	}()
	return mg.Up(ctx)
}

// MigrationStatus reports which migrations in fsys have been applied.
func MigrationStatus(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, logger *slog.Logger) ([]MigrationState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mg, err := NewMigrator(pool, fsys, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := mg.Close(); cerr != nil {
			logger.Warn("closing migrator failed", slog.String("error", cerr.Error()))
		}
	}()
	return mg.Status()
}
