package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/workbooks-backend/pkg/config"
	"github.com/angelmondragon/workbooks-backend/pkg/db"
	"github.com/angelmondragon/workbooks-backend/pkg/enums"
	"github.com/angelmondragon/workbooks-backend/pkg/logger"
	"github.com/angelmondragon/workbooks-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

// schemaCommand runs against an open database.
type schemaCommand func(ctx context.Context, sqlDB *sql.DB, dialect string, opts options) error

var schemaCommands = map[string]schemaCommand{
	"up":     gooseCommand("up"),
	"down":   gooseCommand("down"),
	"status": gooseCommand("status"),
	"current": func(ctx context.Context, sqlDB *sql.DB, dialect string, _ options) error {
		current, err := migrate.Version(ctx, sqlDB, dialect)
		if err != nil {
			return err
		}
		fmt.Println("current version:", current)
		return nil
	},
	"version": func(ctx context.Context, sqlDB *sql.DB, dialect string, opts options) error {
		if opts.version == "" {
			return errors.New("missing -version for version command")
		}
		return migrate.MigrateToVersion(ctx, sqlDB, dialect, opts.version)
	},
}

func gooseCommand(name string) schemaCommand {
	return func(ctx context.Context, sqlDB *sql.DB, dialect string, _ options) error {
		return migrate.Run(ctx, sqlDB, dialect, name)
	}
}

func main() {
	// bootstrap logger early (then re-init after config load)
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "migration command: up|down|status|current|version|create|validate")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "source directory for create and validate")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// create and validate work on files only
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			exitf("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name, time.Now())
		if err != nil {
			exitf("failed to create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		if err := migrate.ValidateFS(os.DirFS(opts.dir), "."); err != nil {
			exitf("migration validation failed: %v", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	command, ok := schemaCommands[opts.cmd]
	if !ok {
		exitf("unknown -cmd value: %s", opts.cmd)
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: cfg.Service.Name + "-migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": opts.cmd,
	})

	if cfg.Store.BackendKind() != enums.StoreBackendSQL {
		exitf("store backend %q has no sql schema", cfg.Store.Backend)
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	ctx = logg.WithField(ctx, "dialect", dbClient.Dialect())
	logg.Info(ctx, "migrate ready")

	if err := command(ctx, sqlDB, dbClient.Dialect(), opts); err != nil {
		logg.Error(ctx, "migration command failed", err)
		_ = dbClient.Close()
		os.Exit(1)
	}
	logg.Info(ctx, "migration command complete")
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
