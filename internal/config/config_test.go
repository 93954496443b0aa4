package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/mkicns/pkg/icns"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Build defaults
	assert.Equal(t, ".", cfg.Build.SourceDir)
	assert.Equal(t, "AppIcon.icns", cfg.Build.Output)
	assert.Equal(t, "standard", cfg.Build.Layout)
	require.Len(t, cfg.Build.Entries, 7)
	assert.Equal(t, EntryConfig{Type: "ic04", Size: 1024, File: "1024.png"}, cfg.Build.Entries[0])
	assert.Equal(t, EntryConfig{Type: "ic14", Size: 16, File: "16.png"}, cfg.Build.Entries[6])

	// Render defaults
	assert.Equal(t, "catmullrom", cfg.Render.Scaler)

	// Logging defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Logging.LogFile)
}

func TestDefaultEntriesRoundTrip(t *testing.T) {
	entries, err := Default().Build.IconEntries()
	require.NoError(t, err)
	assert.Equal(t, icns.DefaultEntries(), entries)
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "mkicns.yaml")

	yamlContent := `
build:
  source_dir: "Resources/AppIcon.appiconset"
  output: "Resources/AppIcon.icns"
  layout: legacy
  entries:
    - {type: ic07, size: 128, file: icon_128x128.png}
    - {type: ic08, size: 256, file: icon_256x256.png}

render:
  output_dir: "build/icons"
  scaler: nearest

logging:
  level: "debug"
  log_file: "mkicns.log"
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg := Default()
	require.NoError(t, loadFromFile(cfg, configPath))

	assert.Equal(t, "Resources/AppIcon.appiconset", cfg.Build.SourceDir)
	assert.Equal(t, "Resources/AppIcon.icns", cfg.Build.Output)
	assert.Equal(t, "legacy", cfg.Build.Layout)

	// The file's entry list replaces the default one.
	require.Len(t, cfg.Build.Entries, 2)
	assert.Equal(t, EntryConfig{Type: "ic08", Size: 256, File: "icon_256x256.png"}, cfg.Build.Entries[1])

	assert.Equal(t, "build/icons", cfg.Render.OutputDir)
	assert.Equal(t, "nearest", cfg.Render.Scaler)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "mkicns.log", cfg.Logging.LogFile)

	layout, err := cfg.Build.BuildLayout()
	require.NoError(t, err)
	assert.Equal(t, icns.LayoutLegacy, layout)
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
build:
  entries: not a list
  invalid syntax here
`
	require.NoError(t, os.WriteFile(configPath, []byte(invalidYAML), 0644))

	cfg := Default()
	assert.Error(t, loadFromFile(cfg, configPath))
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	assert.Error(t, loadFromFile(cfg, "/nonexistent/path/mkicns.yaml"))
}

func TestIconEntriesInvalid(t *testing.T) {
	tests := []struct {
		name  string
		entry EntryConfig
	}{
		{name: "short type", entry: EntryConfig{Type: "ic1", Size: 16, File: "16.png"}},
		{name: "missing file", entry: EntryConfig{Type: "ic14", Size: 16}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := BuildConfig{Entries: []EntryConfig{tt.entry}}
			_, err := b.IconEntries()
			assert.Error(t, err)
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	// Actual path depends on OS
	assert.NotEmpty(t, dir)
	assert.True(t, filepath.IsAbs(dir), "ConfigDir should return absolute path, got %s", dir)
}

func TestFindConfigFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("APPDATA", t.TempDir())
	chdir(t, t.TempDir())

	// No config file exists - should return empty
	assert.Empty(t, findConfigFile())

	require.NoError(t, os.WriteFile(FileName, []byte("build:\n  output: x.icns\n"), 0644))
	assert.NotEmpty(t, findConfigFile())
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Logging.Level)
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "source and output flags",
			setup: func() { *flagSource = "icons"; *flagOutput = "out/App.icns" },
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "icons", cfg.Build.SourceDir)
				assert.Equal(t, "out/App.icns", cfg.Build.Output)
			},
			teardown: func() { *flagSource = ""; *flagOutput = "" },
		},
		{
			name:  "legacy flag",
			setup: func() { *flagLegacy = true },
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "legacy", cfg.Build.Layout)
			},
			teardown: func() { *flagLegacy = false },
		},
		{
			name:  "log file flag",
			setup: func() { *flagLogFile = "run.log" },
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "run.log", cfg.Logging.LogFile)
			},
			teardown: func() { *flagLogFile = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)

			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "mkicns.yaml")

	yamlContent := `
build:
  source_dir: from-file
  output: from-file.icns
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	// Flag overrides the config file
	*flagConfig = configPath
	*flagOutput = "from-flag.icns"
	defer func() {
		*flagConfig = ""
		*flagOutput = ""
	}()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-flag.icns", cfg.Build.Output)
	assert.Equal(t, "from-file", cfg.Build.SourceDir)
	assert.Len(t, cfg.Build.Entries, 7)
}

func TestLoadRejectsUnknownLayout(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "mkicns.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("build:\n  layout: zipped\n"), 0644))

	*flagConfig = configPath
	defer func() { *flagConfig = "" }()

	_, err := Load()
	assert.ErrorIs(t, err, icns.ErrUnknownLayout)
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)

	cfg := Default()
	cfg.Build.Layout = "legacy"
	require.NoError(t, cfg.SaveTo(path))

	loaded := Default()
	loaded.Build.Entries = nil
	require.NoError(t, loadFromFile(loaded, path))
	assert.Equal(t, cfg, loaded)
}

func TestSave(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("APPDATA", filepath.Join(home, "AppData"))

	cfg := Default()
	cfg.Render.Scaler = "bilinear"
	require.NoError(t, cfg.Save())

	path := UserConfigPath()
	assert.Equal(t, filepath.Join(ConfigDir(), FileName), path)

	loaded := Default()
	loaded.Build.Entries = nil
	require.NoError(t, loadFromFile(loaded, path))
	assert.Equal(t, cfg, loaded)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
