package config

import (
	"flag"
	"fmt"
)

// CLIFlags holds global command-line overrides. A nil pointer field means
// the flag was not given, so lower-precedence sources keep their value.
type CLIFlags struct {
	ConfigPath *string
	LogLevel   *string
	OutputDir  *string
	Strategy   *string

	// Args holds the remaining non-flag arguments (subcommand and its
	// own flags).
	Args []string
}

// ParseFlags parses the global flags from args, leaving subcommand
// arguments untouched in Args.
func ParseFlags(args []string) (CLIFlags, error) {
	fs := flag.NewFlagSet("benchforge", flag.ContinueOnError)

	configPath := fs.String("config", "", "path to YAML config file")
	fs.StringVar(configPath, "c", "", "shorthand for --config")
	logLevel := fs.String("log-level", "", "log level: debug, info, warn, error")
	outputDir := fs.String("output-dir", "", "directory for dataset artifacts")
	fs.StringVar(outputDir, "o", "", "shorthand for --output-dir")
	strategy := fs.String("strategy", "", "sandbox strategy: auto, docker, process")

	if err := fs.Parse(args); err != nil {
		return CLIFlags{}, err
	}

	flags := CLIFlags{Args: fs.Args()}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "config", "c":
			flags.ConfigPath = configPath
		case "log-level":
			flags.LogLevel = logLevel
		case "output-dir", "o":
			flags.OutputDir = outputDir
		case "strategy":
			flags.Strategy = strategy
		}
	})
	return flags, nil
}

// applyCLI overlays set CLI flags onto cfg. CLI flags take precedence over
// every other source.
func applyCLI(cfg *Config, flags CLIFlags) {
	if flags.LogLevel != nil {
		cfg.Logging.Level = *flags.LogLevel
	}
	if flags.OutputDir != nil {
		cfg.Build.OutputDir = *flags.OutputDir
	}
	if flags.Strategy != nil {
		cfg.Sandbox.Strategy = *flags.Strategy
	}
}

// LoadWithCLI returns a Config using the hierarchy: defaults < YAML < ENV
// < CLI flags, along with the YAML path that was consulted.
func LoadWithCLI(flags CLIFlags) (*Config, string, error) {
	path := DefaultConfigFile
	if flags.ConfigPath != nil {
		path = *flags.ConfigPath
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, path); err != nil {
		return nil, path, fmt.Errorf("config yaml: %w", err)
	}
	loadEnv(&cfg)
	applyCLI(&cfg, flags)

	if err := validate(&cfg); err != nil {
		return nil, path, fmt.Errorf("config validate: %w", err)
	}
	return &cfg, path, nil
}
