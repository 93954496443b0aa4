// Package config handles mkicns configuration loading and management.
package config

import (
	"fmt"

	"github.com/Faultbox/mkicns/pkg/icns"
)

// Config holds all tool settings.
type Config struct {
	Build   BuildConfig   `yaml:"build"`
	Render  RenderConfig  `yaml:"render"`
	Logging LoggingConfig `yaml:"logging"`
}

// BuildConfig holds container build settings.
type BuildConfig struct {
	SourceDir string        `yaml:"source_dir"`
	Output    string        `yaml:"output"`
	Layout    string        `yaml:"layout"` // "standard" or "legacy"
	Entries   []EntryConfig `yaml:"entries"`
}

// EntryConfig describes one image in the container, largest first by convention.
type EntryConfig struct {
	Type string `yaml:"type"`
	Size uint32 `yaml:"size"`
	File string `yaml:"file"`
}

// RenderConfig holds iconset rendering settings.
type RenderConfig struct {
	OutputDir string `yaml:"output_dir"`
	Scaler    string `yaml:"scaler"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with the app icon set and sensible defaults.
func Default() *Config {
	defaults := icns.DefaultEntries()
	entries := make([]EntryConfig, 0, len(defaults))
	for _, e := range defaults {
		entries = append(entries, EntryConfig{Type: e.Type.String(), Size: e.Size, File: e.File})
	}

	return &Config{
		Build: BuildConfig{
			SourceDir: ".",
			Output:    "AppIcon.icns",
			Layout:    icns.LayoutStandard.String(),
			Entries:   entries,
		},
		Render: RenderConfig{
			OutputDir: ".",
			Scaler:    "catmullrom",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// IconEntries converts the configured entries to container entries.
func (b BuildConfig) IconEntries() ([]icns.Entry, error) {
	entries := make([]icns.Entry, 0, len(b.Entries))
	for i, e := range b.Entries {
		t, err := icns.ParseOSType(e.Type)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if e.File == "" {
			return nil, fmt.Errorf("entry %d (%s): missing file", i, e.Type)
		}
		entries = append(entries, icns.Entry{Type: t, Size: e.Size, File: e.File})
	}
	return entries, nil
}

// BuildLayout parses the configured layout.
func (b BuildConfig) BuildLayout() (icns.Layout, error) {
	return icns.ParseLayout(b.Layout)
}
