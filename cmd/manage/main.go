// Command manage runs maintenance tasks against the EcoTrajet database.
//
//	manage migrate up|down|status|version
//	manage create-admin --email admin@example.com [--first-name A --last-name B]
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ecotrajet/ecotrajet/internal/config"
	"github.com/ecotrajet/ecotrajet/internal/database"
	"github.com/ecotrajet/ecotrajet/internal/repositories"
	_ "github.com/lib/pq"
)

const usage = `usage:
  manage migrate up|down|status|version
  manage create-admin --email EMAIL [--first-name NAME] [--last-name NAME]`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	switch args[0] {
	case "migrate":
		return runMigrate(ctx, cfg, args[1:])
	case "create-admin":
		return runCreateAdmin(ctx, cfg, args[1:], out)
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func runMigrate(ctx context.Context, cfg *config.Config, args []string) error {
	command := "up"
	if len(args) > 0 {
		command = args[0]
	}
	switch command {
	case "up", "down", "status", "version":
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	return database.Migrate(ctx, db, command)
}

func runCreateAdmin(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	fs.SetOutput(out)
	email := fs.String("email", "", "admin email address")
	firstName := fs.String("first-name", "Admin", "first name")
	lastName := fs.String("last-name", "", "last name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := database.NewConnection(ctx, &cfg.Database, slog.Default())
	if err != nil {
		return err
	}
	defer db.Close()

	password, err := promptPassword(out)
	if err != nil {
		return err
	}

	admin, err := createAdmin(ctx, repositories.NewUserRepository(db), adminInput{
		Email:     *email,
		FirstName: *firstName,
		LastName:  *lastName,
		Password:  password,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "admin %s created (id %s)\n", admin.Email, admin.ID)
	return nil
}
