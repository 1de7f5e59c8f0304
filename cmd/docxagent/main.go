package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/yswa-var/DOCX-agent/internal/approval"
	"github.com/yswa-var/DOCX-agent/internal/config"
	"github.com/yswa-var/DOCX-agent/internal/db"
	"github.com/yswa-var/DOCX-agent/internal/index"
	"github.com/yswa-var/DOCX-agent/internal/mcp"
	"github.com/yswa-var/DOCX-agent/internal/ops"
	"github.com/yswa-var/DOCX-agent/internal/threads"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"outline": true, "search": true, "paragraph": true, "export": true,
	"edit": true, "approve": true, "reject": true, "decide": true,
	"dispatch": true, "threads": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
  docxagent

  Approval-gated document editing for chat agents

  Usage: docxagent <command> [options]
         docxagent --help

  MCP server mode requires piped input.`)
}

// deps holds the wired components shared by the CLI and the MCP server.
type deps struct {
	cfg    *config.Config
	docs   *index.Registry
	gate   *approval.Gate
	logger *slog.Logger
	closer []func() error
}

func (d *deps) Close() {
	for i := len(d.closer) - 1; i >= 0; i-- {
		_ = d.closer[i]()
	}
}

// wire builds the thread store, index registry and approval gate from cfg.
// The database handle is only used when the sqlite thread store is selected.
func wire(cfg *config.Config, database *sql.DB, logger *slog.Logger) (*deps, error) {
	d := &deps{cfg: cfg, logger: logger}

	var store threads.Store
	switch cfg.ThreadStore {
	case "", config.ThreadStoreSQLite:
		store = threads.NewSQLStore(database)
	case config.ThreadStoreRedis:
		rs, err := threads.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis thread store: %w", err)
		}
		store = rs
	default:
		return nil, fmt.Errorf("unknown thread_store %q (want %s or %s)", cfg.ThreadStore, config.ThreadStoreSQLite, config.ThreadStoreRedis)
	}
	d.closer = append(d.closer, store.Close)

	regOpts := []index.RegistryOption{index.WithRegistryLogger(logger)}
	if cfg.WatchDocuments {
		w, err := index.NewWatcher(logger)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("document watcher: %w", err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		go w.Run(ctx)
		d.closer = append(d.closer, func() error {
			cancel()
			return w.Close()
		})
		regOpts = append(regOpts, index.WithWatcher(w))
	}
	d.docs = index.NewRegistry(regOpts...)

	d.gate = approval.New(store, ops.NewInvoker(d.docs, cfg),
		approval.WithTTL(time.Duration(cfg.ApprovalTTLSeconds)*time.Second),
		approval.WithPreviewChars(cfg.PreviewMaxChars),
		approval.WithLogger(logger),
	)
	return d, nil
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	baseDir, err := config.DefaultBaseDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}

	wd, _ := os.Getwd()
	cfg, err := config.LoadWithRepo(baseDir, wd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	// stdout carries MCP frames and CLI JSON; logs go to stderr
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("unknown tools in disabled_tools", "tools", unknown)
	}
	if unknown := mcp.ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		logger.Warn("unknown types in disabled_types", "types", unknown)
	}

	database, err := db.Init(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	d, err := wire(cfg, database, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer d.Close()

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(d)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			d.Close()
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'docxagent --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default). ServeStdio returns on SIGINT/SIGTERM.
	logger.Info("mcp server starting", "version", Version, "thread_store", cfg.ThreadStore, "document", cfg.DocumentPath)
	if err := mcp.Run(cfg, d.docs, d.gate, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		d.Close()
		os.Exit(1)
	}
}
