// vrmtool is a CLI utility for inspecting, converting and cataloguing VRM
// avatars.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/vrmkit/internal/config"
	"github.com/Faultbox/vrmkit/internal/library"
	"github.com/Faultbox/vrmkit/internal/logger"
)

// errUsage marks a command line the command could not make sense of. The
// usage text has already been printed.
var errUsage = errors.New("usage")

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(context.Background(), cfg, config.Args(), os.Stdout); err != nil {
		if !errors.Is(err, errUsage) {
			logger.Error("command failed", zap.Error(err))
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		logger.Sync()
		os.Exit(1)
	}
}

// app carries what every command needs.
type app struct {
	cfg *config.Config
	out io.Writer
	lib *library.Manager
}

func run(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	if len(args) < 1 {
		printUsage(os.Stderr)
		return errUsage
	}

	lib, err := library.NewManager(cfg.Library)
	if err != nil {
		return err
	}
	defer lib.Close()

	a := &app{cfg: cfg, out: out, lib: lib}
	command, rest := args[0], args[1:]

	switch command {
	case "info":
		return a.cmdInfo(ctx, rest)
	case "migrate", "convert":
		return a.cmdMigrate(ctx, rest)
	case "simulate", "sim":
		return a.cmdSimulate(ctx, rest)
	case "thumbnail", "thumb":
		return a.cmdThumbnail(ctx, rest)
	case "index":
		return a.cmdIndex(ctx, rest)
	case "search", "find":
		return a.cmdSearch(rest)
	case "help", "-h", "--help":
		printUsage(out)
		return nil
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage(os.Stderr)
		return errUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `vrmtool - VRM avatar utility

Usage:
  vrmtool [-config file] [-debug] [-log-file file] [-catalog db] [-format json|yaml] <command> [options]

Commands:
  info <file.vrm>                                 Show schema, meta and section counts
  migrate [-format json|yaml] <file.vrm>          Print the legacy-shaped description
  simulate [-frames N] [-fps F] [-gravity S] <file.vrm>
                                                  Run spring bones on the node hierarchy
  thumbnail <file.vrm> [output]                   Write the thumbnail image
  index [-db path] <dir|file>...                  Store avatar summaries in the catalog
  search [-db path] [-n N] <text>                 List catalog rows matching title or author

Relative avatar names are looked up in the library search paths.

Examples:
  vrmtool info AvatarSample_A.vrm
  vrmtool migrate -format yaml AvatarSample_A.vrm > legacy.yaml
  vrmtool simulate -frames 300 AvatarSample_A.vrm
  vrmtool index ~/avatars
  vrmtool search "virtualcast"`)
}
