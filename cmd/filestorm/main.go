// Package main is the entry point for the filestorm terminal demo.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dshills/filestorm/internal/app"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts, cleanup := parseFlags()
	defer cleanup()

	// Create application
	application, err := app.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	// Ensure cleanup on all exit paths
	defer application.Shutdown()

	// Handle signals for graceful shutdown
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-signals
		application.Shutdown()
	}()

	// Run the application
	if err := application.Run(); err != nil {
		if errors.Is(err, app.ErrQuit) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	return 0
}

func parseFlags() (app.Options, func()) {
	var (
		opts        app.Options
		docID       string
		types       string
		logFile     string
		logLevel    string
		showVersion bool
		showHelp    bool
	)

	flag.StringVar(&docID, "doc", "demo", "Document id shown in the title")
	flag.StringVar(&types, "types", "", "Comma-separated accepted file types (e.g. pdf,png,txt)")
	flag.StringVar(&types, "t", "", "Comma-separated accepted file types (shorthand)")
	flag.StringVar(&logFile, "log-file", "", "Write subsystem logs to this file")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Filestorm - file upload subsystem demo\n\n")
		fmt.Fprintf(os.Stderr, "Usage: filestorm [options]\n\n")
		fmt.Fprintf(os.Stderr, "Keys: u attaches a sample file, z undoes, q or Escape quits.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  filestorm                      Run the demo\n")
		fmt.Fprintf(os.Stderr, "  filestorm -t pdf               Accept only PDFs\n")
		fmt.Fprintf(os.Stderr, "  filestorm -log-file demo.log   Keep subsystem logs\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("Filestorm %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	level, err := parseLevel(logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Logs go to a file when asked for; the terminal belongs to the UI.
	cleanup := func() {}
	var sink io.Writer = io.Discard
	if logFile != "" {
		f, ferr := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if ferr != nil {
			fmt.Fprintf(os.Stderr, "Error: open log file: %v\n", ferr)
			os.Exit(1)
		}
		sink = f
		cleanup = func() { _ = f.Close() }
	}
	opts.Logger = slog.New(slog.NewTextHandler(sink, &slog.HandlerOptions{Level: level}))

	opts.DocumentID = docID
	if types != "" {
		for _, tok := range strings.Split(types, ",") {
			if tok = strings.TrimSpace(tok); tok != "" {
				opts.Types = append(opts.Types, tok)
			}
		}
	}

	return opts, cleanup
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", s)
	}
}
