package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/iliyamo/recipe-app-api/internal/config"
)

// Open connects using the driver named in cfg and waits for the server to
// answer, pinging up to cfg.DBWaitAttempts times.  The returned Dialect
// tells repositories which SQL flavour to emit.
func Open(ctx context.Context, cfg config.Config) (*sql.DB, Dialect, error) {
	var (
		d   = MySQL
		db  *sql.DB
		err error
	)
	if cfg.DBDriver == config.DriverSQLite {
		d = SQLite
		db, err = sql.Open("sqlite3", sqliteDSN(cfg.DBPath))
	} else {
		db, err = mysqlPool(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	}
	if err != nil {
		return nil, d, err
	}
	if err := WaitForDB(ctx, db, cfg.DBWaitAttempts, cfg.DBWaitDelay); err != nil {
		_ = db.Close()
		return nil, d, err
	}
	return db, d, nil
}

func mysqlPool(user, pass, host, port, name string) (*sql.DB, error) {
	db, err := sql.Open("mysql", mysqlDSN(user, pass, host, port, name))
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// OpenSQLite opens a file-backed SQLite database with foreign keys enforced.
// Write transactions take the database lock at BEGIN so concurrent
// get-or-create calls wait instead of failing on lock upgrade.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", sqliteDSN(path))
	if err != nil {
		return nil, err
	}
	if err := WaitForDB(context.Background(), db, 1, 0); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Pinger is the part of *sql.DB WaitForDB needs.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// WaitForDB pings db until it answers, at most attempts times with delay
// between tries.  Each ping is bounded to five seconds.  A database that
// is still starting (container just launched, MySQL initialising) is
// therefore not fatal to the caller.
func WaitForDB(ctx context.Context, db Pinger, attempts int, delay time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("wait for database: %w (last error: %v)", ctx.Err(), err)
			case <-time.After(delay):
			}
		}
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = db.PingContext(pctx)
		cancel()
		if err == nil {
			return nil
		}
	}
	return fmt.Errorf("ping database: gave up after %d attempts: %w", attempts, err)
}

func mysqlDSN(user, pass, host, port, name string) string {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	// multiStatements=true lets migration files hold several statements
	// clientFoundRows=true makes RowsAffected count matched rows, so an
	// UPDATE that changes nothing is not mistaken for a missing row
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC&multiStatements=true&clientFoundRows=true",
		auth, host, port, name)
}

func sqliteDSN(path string) string {
	q := url.Values{}
	q.Set("_foreign_keys", "1")
	q.Set("_busy_timeout", "5000")
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}
