package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Strob0t/BenchForge/internal/adapter/otel"
	"github.com/Strob0t/BenchForge/internal/config"
	"github.com/Strob0t/BenchForge/internal/logger"
)

func main() {
	// Bootstrap logger until the configured one is up.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags, err := config.ParseFlags(args)
	if err != nil {
		return err
	}
	if len(flags.Args) == 0 || flags.Args[0] == "help" || flags.Args[0] == "--help" {
		printHelp()
		return nil
	}

	cfg, cfgPath, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	defer logCloser.Close()
	slog.SetDefault(log)
	slog.Debug("config loaded", "path", cfgPath, "strategy", cfg.Sandbox.Strategy)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := otel.Setup(ctx, cfg.Telemetry, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("telemetry shutdown", "error", err)
		}
	}()

	switch flags.Args[0] {
	case "classify":
		return runClassify(ctx, cfg, flags.Args[1:])
	case "build":
		return runBuild(ctx, cfg, flags.Args[1:])
	case "doctor":
		return runDoctor(ctx, cfg)
	case "version":
		fmt.Println("benchforge", version)
		return nil
	default:
		printHelp()
		return fmt.Errorf("unknown command: %s", flags.Args[0])
	}
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `Usage: benchforge [global options] <command> [options]

Commands:
  classify   Run one differential classification for a pull request
  build      Build a benchmark task from a set of pull requests
  doctor     Check the environment (git, docker, API token)
  version    Print the version
  help       Show this help message

Global options:
  -c, --config PATH       YAML config file (default benchforge.yaml)
      --log-level LEVEL   debug, info, warn, error
  -o, --output-dir DIR    directory for dataset artifacts
      --strategy NAME     sandbox strategy: auto, docker, process

Examples:
  benchforge classify --repo pandas-dev/pandas --pr 58124
  benchforge build --repo pandas-dev/pandas --prs 58124,58190 --enhancement-id enh-7
  benchforge --strategy process doctor
`)
}
