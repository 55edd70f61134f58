package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rotisserie/eris"
)

// migrationsTable records the applied schema version.
const migrationsTable = "ecoroute_schema_migrations"

// ErrDirty means a previous migration failed half way and needs manual repair.
var ErrDirty = eris.New("database: schema is dirty")

// SchemaStatus is the applied schema version. Version is zero before the
// first migration.
type SchemaStatus struct {
	Version uint
	Dirty   bool
}

func (s SchemaStatus) String() string {
	if s.Dirty {
		return fmt.Sprintf("version %d (dirty)", s.Version)
	}
	if s.Version == 0 {
		return "no migrations applied"
	}
	return fmt.Sprintf("version %d", s.Version)
}

// Migrator applies the identity and request schema from a directory of
// golang-migrate files.
type Migrator struct {
	db   *DB
	path string
}

// Migrator returns a migrator for the files under path.
func (db *DB) Migrator(path string) *Migrator {
	return &Migrator{db: db, path: path}
}

// Up applies every pending migration and returns the resulting status.
func (m *Migrator) Up() (SchemaStatus, error) {
	return m.run("apply migrations", func(mg *migrate.Migrate) error { return mg.Up() })
}

// Down rolls back the most recent migration.
func (m *Migrator) Down() (SchemaStatus, error) {
	return m.run("roll back migration", func(mg *migrate.Migrate) error { return mg.Steps(-1) })
}

// Status reports the applied version without changing anything.
func (m *Migrator) Status() (SchemaStatus, error) {
	return m.run("read schema version", func(*migrate.Migrate) error { return nil })
}

func (m *Migrator) run(op string, step func(*migrate.Migrate) error) (SchemaStatus, error) {
	mg, err := m.open()
	if err != nil {
		return SchemaStatus{}, err
	}
	defer func() { _, _ = mg.Close() }()

	if err := translateMigrateErr(step(mg)); err != nil {
		return SchemaStatus{}, eris.Wrapf(err, "database: %s", op)
	}

	version, dirty, err := mg.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return SchemaStatus{}, eris.Wrap(err, "database: read schema version")
	}
	return SchemaStatus{Version: version, Dirty: dirty}, nil
}

// open uses a dedicated connection, since closing a golang-migrate driver
// also closes the *sql.DB it was given.
func (m *Migrator) open() (*migrate.Migrate, error) {
	if m.db.url == "" {
		return nil, eris.New("database: migrations need a database URL")
	}
	conn, err := sql.Open("pgx", m.db.url)
	if err != nil {
		return nil, eris.Wrap(err, "database: open migration connection")
	}

	driver, err := migratepgx.WithInstance(conn, &migratepgx.Config{MigrationsTable: migrationsTable})
	if err != nil {
		_ = conn.Close()
		return nil, eris.Wrap(err, "database: create migration driver")
	}

	mg, err := migrate.NewWithDatabaseInstance("file://"+m.path, "pgx5", driver)
	if err != nil {
		_ = driver.Close()
		return nil, eris.Wrapf(err, "database: load migrations from %s", m.path)
	}
	return mg, nil
}

// translateMigrateErr drops "nothing to do" results and maps a dirty schema
// to ErrDirty.
func translateMigrateErr(err error) error {
	if err == nil || errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	var dirty migrate.ErrDirty
	if errors.As(err, &dirty) {
		return eris.Wrapf(ErrDirty, "at version %d", dirty.Version)
	}
	return err
}
