package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/tenantdrive/internal/server/config"
	"github.com/dmitrijs2005/tenantdrive/internal/server/docstore"
	"github.com/dmitrijs2005/tenantdrive/internal/server/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// sqlOpen is a seam for testing sql.Open.
var sqlOpen = sql.Open

// dialect describes how a SQL backend is opened and migrated.
type dialect struct {
	driver string
	goose  string
	dir    string
}

var dialects = map[string]dialect{
	config.BackendPostgres: {driver: "pgx", goose: "pgx", dir: "postgres"},
	config.BackendSQLite:   {driver: "sqlite", goose: "sqlite3", dir: "sqlite"},
}

func dialectOf(backend string) (dialect, error) {
	d, ok := dialects[backend]
	if !ok {
		return dialect{}, fmt.Errorf("docstore type %q is not SQL-backed", backend)
	}
	return d, nil
}

// RunMigrations applies the embedded goose migrations of backend to db.
func RunMigrations(ctx context.Context, db *sql.DB, backend string) error {
	d, err := dialectOf(backend)
	if err != nil {
		return err
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(d.goose); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, d.dir); err != nil {
		return err
	}
	return nil
}

// OpenDB opens the database of backend named by dsn.
func OpenDB(backend, dsn string) (*sql.DB, error) {
	d, err := dialectOf(backend)
	if err != nil {
		return nil, err
	}

	db, err := sqlOpen(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if d.driver == "sqlite" {
		// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// Open returns the document store selected by cfg. For SQL backends the
// migrations are applied first; close releases the connection.
func Open(ctx context.Context, cfg *config.Config) (docstore.Store, func() error, error) {
	switch cfg.DocStoreType {
	case config.BackendMemory:
		return docstore.NewMemoryStore(), func() error { return nil }, nil
	case config.BackendPostgres, config.BackendSQLite:
		db, err := OpenDB(cfg.DocStoreType, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := RunMigrations(ctx, db, cfg.DocStoreType); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrations error: %w", err)
		}
		if cfg.DocStoreType == config.BackendSQLite {
			return docstore.NewSQLiteStore(db), db.Close, nil
		}
		return docstore.NewPostgresStore(db), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown docstore type %q", cfg.DocStoreType)
	}
}
