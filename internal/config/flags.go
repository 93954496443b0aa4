package config

import "flag"

var (
	flagConfig  = flag.String("config", "", "Path to config file")
	flagDebug   = flag.Bool("debug", false, "Enable debug logging")
	flagSource  = flag.String("src", "", "Directory holding the source PNG files")
	flagOutput  = flag.String("out", "", "Output container path")
	flagLegacy  = flag.Bool("legacy", false, "Write the legacy layout (zero size field, name-based offsets)")
	flagLogFile = flag.String("log-file", "", "Also write logs to this file")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the arguments left after the global flags.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagSource != "" {
		cfg.Build.SourceDir = *flagSource
	}
	if *flagOutput != "" {
		cfg.Build.Output = *flagOutput
	}
	if *flagLegacy {
		cfg.Build.Layout = "legacy"
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
}
