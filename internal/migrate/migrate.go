// Package migrate owns the catalog and cart_lines schema. Migrations are
// embedded and tracked in their own table so the cart schema can share a
// database with other services.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// Table records the applied schema version.
const Table = "cart_schema_migrations"

//go:embed sql/*.sql
var migrationsFS embed.FS

// Schema is the migration state of a database.
type Schema struct {
	Version uint
	Dirty   bool
}

// Runner applies the embedded migrations to one database.
type Runner struct {
	m *migrate.Migrate
}

// Open prepares a Runner on the database behind pool. Close it when done; that
// also closes the dedicated database/sql handle it opens.
func Open(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) (*Runner, error) {
	src, err := iofs.New(migrationsFS, "sql")
	if err != nil {
		return nil, fmt.Errorf("migrate: load embedded sql: %w", err)
	}

	sqlDB, err := sql.Open("pgx", pool.Config().ConnString())
	if err != nil {
		return nil, fmt.Errorf("migrate: open sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate: ping: %w", err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: Table})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate: postgres driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx", driver)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if logger != nil {
		m.Log = zapLogger{logger.Named("migrate")}
	}
	return &Runner{m: m}, nil
}

// Up migrates to the latest version. Already being current is not an error.
func (r *Runner) Up(ctx context.Context) (Schema, error) {
	return r.run(ctx, "up", r.m.Up)
}

// Down rolls back the given number of versions.
func (r *Runner) Down(ctx context.Context, steps int) (Schema, error) {
	if steps <= 0 {
		return Schema{}, fmt.Errorf("migrate: down steps must be positive, got %d", steps)
	}
	return r.run(ctx, "down", func() error { return r.m.Steps(-steps) })
}

// Status reports the current version. A database never migrated is version 0.
func (r *Runner) Status() (Schema, error) {
	v, dirty, err := r.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return Schema{}, nil
	}
	if err != nil {
		return Schema{}, fmt.Errorf("migrate: version: %w", err)
	}
	return Schema{Version: v, Dirty: dirty}, nil
}

func (r *Runner) Close() error {
	srcErr, dbErr := r.m.Close()
	return errors.Join(srcErr, dbErr)
}

// run stops between migrations once ctx is done; a statement in flight
// always completes.
func (r *Runner) run(ctx context.Context, op string, step func() error) (Schema, error) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			select {
			case r.m.GracefulStop <- true:
			default:
			}
		case <-done:
		}
	}()

	err := step()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		if errors.Is(err, fs.ErrNotExist) {
			return Schema{}, fmt.Errorf("migrate %s: %w (every version needs both .up.sql and .down.sql)", op, err)
		}
		return Schema{}, fmt.Errorf("migrate %s: %w", op, err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Schema{}, fmt.Errorf("migrate %s: %w", op, ctxErr)
	}
	return r.Status()
}

// Apply migrates the database behind pool to the latest version.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := ApplyWithLogger(ctx, pool, nil)
	return err
}

// ApplyWithLogger is Apply that reports progress to logger and returns the
// resulting schema version.
func ApplyWithLogger(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) (Schema, error) {
	r, err := Open(ctx, pool, logger)
	if err != nil {
		return Schema{}, err
	}
	defer func() { _ = r.Close() }()
	return r.Up(ctx)
}

type zapLogger struct{ l *zap.Logger }

func (z zapLogger) Printf(format string, v ...any) {
	z.l.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (z zapLogger) Verbose() bool {
	return z.l.Core().Enabled(zap.DebugLevel)
}
