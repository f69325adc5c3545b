// Command createsuperuser adds an active staff+superuser account.
//
//	createsuperuser -email admin@example.com -password secret
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/recipe-app-api/internal/config"
	"github.com/iliyamo/recipe-app-api/internal/database"
	"github.com/iliyamo/recipe-app-api/internal/service"
	"github.com/iliyamo/recipe-app-api/internal/utils"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	email    string
	password string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("createsuperuser", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.email, "email", "", "superuser email (required)")
	fs.StringVar(&o.password, "password", "", "superuser password (required)")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	o.email = strings.TrimSpace(o.email)
	if o.email == "" {
		return o, errors.New("-email is required")
	}
	if err := utils.CheckPassword(o.password); err != nil {
		return o, fmt.Errorf("-password %w", err)
	}
	return o, nil
}

// run returns the process exit code so deferred cleanup always happens.
func run(args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	_ = godotenv.Load()
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, _, err := database.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintln(stderr, "open database:", err)
		return 1
	}
	defer db.Close()

	u, err := service.NewUserService(db, cfg.BcryptCost).CreateSuperuser(ctx, o.email, o.password)
	if err != nil {
		fmt.Fprintln(stderr, "create superuser:", err)
		return 1
	}
	fmt.Fprintf(stdout, "superuser %s created (id=%d)\n", u.Email, u.ID)
	return 0
}
