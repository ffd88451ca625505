package main

import (
	"database/sql"
	"fmt"
	"os"
	"sort"
	"strings"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/studybuddy/studybuddy-api/internal/config"
	"github.com/studybuddy/studybuddy-api/migrations"
)

// sourceDir is where create writes new migration files
const sourceDir = "./migrations"

type command struct {
	help string
	run  func(db *sql.DB, args []string) error
}

var commands = map[string]command{
	"up": {"apply all pending migrations", func(db *sql.DB, _ []string) error {
		return goose.Up(db, ".")
	}},
	"down": {"roll back the latest migration", func(db *sql.DB, _ []string) error {
		return goose.Down(db, ".")
	}},
	"redo": {"roll back and reapply the latest migration", func(db *sql.DB, _ []string) error {
		return goose.Redo(db, ".")
	}},
	"reset": {"roll back every migration", func(db *sql.DB, _ []string) error {
		return goose.Reset(db, ".")
	}},
	"status": {"print the state of each migration", func(db *sql.DB, _ []string) error {
		return goose.Status(db, ".")
	}},
	"version": {"print the current schema version", func(db *sql.DB, _ []string) error {
		return goose.Version(db, ".")
	}},
	"create": {"create NAME: add an empty SQL migration", func(db *sql.DB, args []string) error {
		if len(args) == 0 {
			return fmt.Errorf("create requires a migration name")
		}
		goose.SetBaseFS(nil)
		return goose.Create(db, sourceDir, args[0], "sql")
	}},
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Migration error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: migrate <command>\n%s", usage())
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q\n%s", args[0], usage())
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	if err := cmd.run(db, args[1:]); err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	return nil
}

func usage() string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "  %-8s %s\n", name, commands[name].help)
	}
	return b.String()
}
