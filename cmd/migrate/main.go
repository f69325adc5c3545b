// Command migrate applies or rolls back the embedded schema migrations
// against the database configured through the environment.
//
//	migrate up
//	migrate down [n]
//	migrate version
//	migrate force <version>
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"

	"github.com/iliyamo/recipe-app-api/internal/config"
	"github.com/iliyamo/recipe-app-api/internal/database"
)

func main() {
	os.Exit(realMain(os.Args[1:]))
}

func realMain(args []string) int {
	_ = godotenv.Load()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: migrate up | down [n] | version | force <version>")
		return 2
	}

	cfg := config.Load()

	// golang-migrate does not retry; wait for the server first.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	db, d, err := database.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	_ = db.Close()

	m, err := database.NewMigrator(d, database.MigrationURL(cfg))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer m.Close()

	if err := run(m, args[0], args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func run(m *migrate.Migrate, cmd string, args []string) error {
	switch cmd {
	case "up":
		return ignoreNoChange(m.Up())
	case "down":
		if len(args) == 0 {
			return ignoreNoChange(m.Down())
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid step count %q", args[0])
		}
		return ignoreNoChange(m.Steps(-n))
	case "version":
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("no migrations applied")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("version %d (dirty=%t)\n", v, dirty)
		return nil
	case "force":
		if len(args) == 0 {
			return errors.New("force needs a version")
		}
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return m.Force(v)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}
