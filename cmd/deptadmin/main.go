package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/jrsteele09/go-dept-admin/internal/config"
	"github.com/jrsteele09/go-dept-admin/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	usage       string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger zerolog.Logger
	Config config.Settings
	Stdin  io.Reader
	Stdout io.Writer
}

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(2)
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmdName)
		printUsage(os.Stderr)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	logger, closer, err := logging.Setup(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("setup logging")
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmdCtx := &commandContext{
		Ctx:    ctx,
		Logger: logger,
		Config: cfg,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
	}
	if err := cmd.run(cmdCtx, os.Args[2:]); err != nil {
		logger.Error().Err(err).Str("command", cmdName).Msg("command failed")
		stop()
		closer.Close()
		os.Exit(1)
	}
}

func commands() map[string]command {
	return map[string]command{
		"serve": {
			name:        "serve",
			usage:       "serve",
			description: "Run the portal web server",
			run:         runServe,
		},
		"login": {
			name:        "login",
			usage:       "login -email <email> [-password <password>]",
			description: "Log in and store the session for the configured profile",
			run:         runLogin,
		},
		"logout": {
			name:        "logout",
			usage:       "logout",
			description: "Clear the stored session",
			run:         runLogout,
		},
		"whoami": {
			name:        "whoami",
			usage:       "whoami",
			description: "Show the stored session",
			run:         runWhoami,
		},
		"get": {
			name:        "get",
			usage:       "get <resource>",
			description: "Fetch a backend collection with the stored session",
			run:         runGet,
		},
		"fake-backend": {
			name:        "fake-backend",
			usage:       "fake-backend [-addr :9090] [-secret <secret>]",
			description: "Run an in-memory backend seeded with demo accounts",
			run:         runFakeBackend,
		},
		"help": {
			name:        "help",
			usage:       "help",
			description: "Show this help",
			run: func(ctx *commandContext, _ []string) error {
				printUsage(ctx.Stdout)
				return nil
			},
		},
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: deptadmin <command> [flags]\n\nAvailable commands:\n")

	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(tw, "  %s\t%s\n", cmds[name].usage, cmds[name].description)
	}
	tw.Flush()
}
