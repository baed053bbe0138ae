// Command kronos-calendar manages the KRONOS system calendars from a shell.
//
// Configuration comes from the KRONOS_* environment variables. Usage:
//
//	kronos-calendar <command> [flags]
//
// Run kronos-calendar help for the command list.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/goliatone/kronos-sync/internal/config"
	"github.com/goliatone/kronos-sync/internal/logging"
	"github.com/goliatone/kronos-sync/pkg/di"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(stdout)
		return 0
	}
	if args[0] == "version" {
		fmt.Fprintln(stdout, config.Version)
		return 0
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "configuration: %v\n", err)
		return 1
	}

	logger, closer := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	defer closer.Close()
	slog.SetDefault(logger)

	env := &environment{
		cfg:    cfg,
		logger: logger,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}
	if !cmd.local {
		container, err := di.NewContainer(*cfg, di.WithLogger(logger))
		if err != nil {
			logger.Error("building container", slog.Any("error", err))
			return 1
		}
		env.container = container
	}

	if err := cmd.run(ctx, env, args[1:]); err != nil {
		if err == errUsage {
			return 2
		}
		fmt.Fprintf(stderr, "%s: %v\n", args[0], err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: kronos-calendar <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, name := range commandOrder {
		fmt.Fprintf(w, "  %-16s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment: KRONOS_API_URL, KRONOS_API_TOKEN, KRONOS_LOG_LEVEL, KRONOS_LOG_FORMAT, KRONOS_LOG_FILE")
}
