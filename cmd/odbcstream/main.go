package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tomyedwab/odbcstream/config"
	"github.com/tomyedwab/odbcstream/odbc"
	"github.com/tomyedwab/odbcstream/sqlproxy/driver"
	"github.com/tomyedwab/odbcstream/sqlproxy/host"
	"github.com/tomyedwab/odbcstream/trace"
)

const usage = `usage: odbcstream [-config file] [-db path] [-trace path] [-v] <command> [args]

commands:
  exec      run a statement, streaming @file parameters as blobs
  tables    list tables
  columns   list columns
  describe  describe the result columns of a query
  insert    insert CSV rows into a table
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			slog.Error("odbcstream failed", "error", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("odbcstream", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", "", "Path to the YAML settings file")
	dbPath := fs.String("db", "", "Path to the SQLite database file")
	tracePath := fs.String("trace", "", "Path to a database recording every driver call")
	verbose := fs.Bool("v", false, "Log at debug level")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *dbPath != "" {
		cfg.Database = *dbPath
	}
	if *tracePath != "" {
		cfg.Trace = *tracePath
	}
	if *verbose {
		cfg.LogLevel = "debug"
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if fs.NArg() == 0 {
		fs.Usage()
		return flag.ErrHelp
	}

	db, err := sqlx.Connect("sqlite3", cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database %s: %w", cfg.Database, err)
	}
	defer db.Close()
	logger.Debug("Connected to database", "path", cfg.Database)

	conn := driver.NewConnection(host.NewSQLHost(db, logger).HandleRequest)
	defer conn.Close()

	if cfg.Trace != "" {
		traceDB, err := sqlx.Connect("sqlite3", cfg.Trace)
		if err != nil {
			return fmt.Errorf("failed to open trace database %s: %w", cfg.Trace, err)
		}
		defer traceDB.Close()
		rec, err := trace.NewRecorder(traceDB)
		if err != nil {
			return fmt.Errorf("failed to initialize trace database: %w", err)
		}
		retention, err := cfg.Retention()
		if err != nil {
			return err
		}
		if retention > 0 {
			deleted, err := rec.DeleteOldCalls(retention)
			if err != nil {
				return fmt.Errorf("failed to prune trace database: %w", err)
			}
			logger.Debug("Pruned traced calls", "deleted", deleted, "retention", retention)
		}
		conn.Wrap = func(h *driver.Handle) odbc.Handle {
			return trace.Wrap(h, rec, h.ID())
		}
		logger.Info("Tracing driver calls", "path", cfg.Trace)
	}

	a := &app{
		conn:   conn,
		cfg:    cfg,
		logger: logger,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}

	command, rest := fs.Arg(0), fs.Args()[1:]
	switch command {
	case "exec":
		return a.exec(rest)
	case "tables":
		return a.tables(rest)
	case "columns":
		return a.columns(rest)
	case "describe":
		return a.describe(rest)
	case "insert":
		return a.insert(ctx, rest)
	}
	fs.Usage()
	return fmt.Errorf("unknown command %q", command)
}
