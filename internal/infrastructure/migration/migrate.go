package migration

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// Drivers for the terminal's SQLite store and the devserver archive.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrator is the slice of migrate.Migrate this package depends on.
type Migrator interface {
	Up() error
	Close() (error, error)
}

// Engine builds a Migrator for a database URL. A factory so tests can
// inject mocks instead of touching the filesystem and a live database.
type Engine func(databaseURL string) (Migrator, error)

type Migration struct {
	databaseURL string
	engine      Engine
}

func New(databaseURL string, engine Engine) *Migration {
	return &Migration{
		databaseURL: databaseURL,
		engine:      engine,
	}
}

// FileEngine reads migrations from a directory on disk (file:// source).
func FileEngine(sourceURL string) Engine {
	return func(databaseURL string) (Migrator, error) {
		return migrate.New(sourceURL, databaseURL)
	}
}

// FSEngine reads migrations embedded in the binary, which is how the
// terminal ships its local-store schema.
func FSEngine(fsys fs.FS, dir string) Engine {
	return func(databaseURL string) (Migrator, error) {
		source, err := iofs.New(fsys, dir)
		if err != nil {
			return nil, fmt.Errorf("open migration source: %w", err)
		}
		return migrate.NewWithSourceInstance("iofs", source, databaseURL)
	}
}

func (mg *Migration) Up() (err error) {
	m, err := mg.engine(mg.databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		serr, dberr := m.Close()
		if serr != nil {
			if err != nil {
				err = fmt.Errorf("%w; migration source error: %v", err, serr)
			} else {
				err = serr
			}
		}
		if dberr != nil {
			if err != nil {
				err = fmt.Errorf("%w; migration database error: %v", err, dberr)
			} else {
				err = dberr
			}
		}
	}()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%w; migration up error", err)
	}
	return nil
}
