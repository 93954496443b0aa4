// mkicns builds and inspects the icns icon container bundled with the macOS app.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/mkicns/internal/config"
	"github.com/Faultbox/mkicns/internal/logger"
	"github.com/Faultbox/mkicns/pkg/iconset"
	"github.com/Faultbox/mkicns/pkg/icns"
)

func main() {
	config.ParseFlags()
	os.Exit(run(config.Args()))
}

// usageError is reported with the command's usage line instead of a bare message.
type usageError string

func (e usageError) Error() string { return "Usage: mkicns " + string(e) }

func run(args []string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	// No command means build, so a bare invocation produces the container.
	command := "build"
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}
	logger.Debug("Running command", zap.String("command", command), zap.Strings("args", args))

	switch command {
	case "build":
		err = cmdBuild(cfg, args)
	case "info":
		err = cmdInfo(args)
	case "verify":
		err = cmdVerify(args)
	case "extract", "x":
		err = cmdExtract(args)
	case "render":
		err = cmdRender(cfg, args)
	case "init":
		err = cmdInit(cfg, args)
	case "help", "-h", "--help":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		return 1
	}

	if err != nil {
		var usage usageError
		if errors.As(err, &usage) {
			fmt.Fprintln(os.Stderr, usage.Error())
		} else {
			logger.Error("Command failed", zap.String("command", command), zap.Error(err))
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func printUsage() {
	fmt.Println(`mkicns - macOS icon container builder

Usage:
  mkicns [flags] [command] [options]

Commands:
  build [-src dir] [-out path] [-legacy]   Build the container (default)
  info <file.icns>                         Show header and directory
  verify <file.icns>                       Check sizes and offsets
  extract <file.icns> [output_dir]         Write payloads back to <size>.png
  render <master.png> [output_dir]         Scale a master PNG to every entry size
  init [-user] [path]                      Write the effective config as YAML

Flags:
  -config <path>    Config file (default ./mkicns.yaml)
  -src <dir>        Directory holding the source PNGs
  -out <path>       Output container path
  -legacy           Write the legacy layout
  -debug            Enable debug logging
  -log-file <path>  Also log to a rotated file

Examples:
  mkicns
  mkicns build -src Resources/AppIcon.appiconset -out Resources/AppIcon.icns
  mkicns info AppIcon.icns
  mkicns extract -type ic10 AppIcon.icns ./out`)
}

func cmdBuild(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.StringVar(&cfg.Build.SourceDir, "src", cfg.Build.SourceDir, "Directory holding the source PNG files")
	fs.StringVar(&cfg.Build.Output, "out", cfg.Build.Output, "Output container path")
	legacy := fs.Bool("legacy", false, "Write the legacy layout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return usageError("build [-src dir] [-out path] [-legacy]")
	}
	if *legacy {
		cfg.Build.Layout = icns.LayoutLegacy.String()
	}

	entries, err := cfg.Build.IconEntries()
	if err != nil {
		return err
	}
	layout, err := cfg.Build.BuildLayout()
	if err != nil {
		return err
	}

	_, err = icns.Build(icns.BuildOptions{
		SourceDir: cfg.Build.SourceDir,
		Entries:   entries,
		Output:    cfg.Build.Output,
		Layout:    layout,
		Logger:    logger.Log,
	})
	return err
}

func cmdInfo(args []string) error {
	if len(args) < 1 {
		return usageError("info <file.icns>")
	}

	c, err := icns.Open(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("File:      %s\n", args[0])
	fmt.Printf("Size:      %d bytes\n", c.Size())
	fmt.Printf("Layout:    %s\n", c.Layout())
	fmt.Printf("Header:    total size %d\n", c.TotalSize())
	fmt.Printf("Directory: offset %d, size %d\n", c.DirectoryOffset(), c.DirectorySize())
	fmt.Printf("Entries:   %d\n", len(c.Records()))
	fmt.Println()
	fmt.Printf("  %-6s %6s %10s %10s\n", "TYPE", "SIZE", "LENGTH", "OFFSET")
	for _, rec := range c.Records() {
		fmt.Printf("  %-6s %6d %10d %10d\n", rec.Type, rec.Size, rec.Length, rec.Offset)
	}
	return nil
}

func cmdVerify(args []string) error {
	if len(args) < 1 {
		return usageError("verify <file.icns>")
	}

	c, err := icns.Open(args[0])
	if err != nil {
		return err
	}

	if err := c.Verify(); err != nil {
		for _, e := range multierr.Errors(err) {
			fmt.Fprintf(os.Stderr, "  %v\n", e)
		}
		return fmt.Errorf("%s failed verification", args[0])
	}

	fmt.Printf("OK: %s (%d entries, %s layout)\n", args[0], len(c.Records()), c.Layout())
	return nil
}

func cmdExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	only := fs.String("type", "", "Extract only this type code")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		return usageError("extract [-type code] <file.icns> [output_dir]")
	}
	outputDir := "."
	if fs.NArg() > 1 {
		outputDir = fs.Arg(1)
	}

	c, err := icns.Open(fs.Arg(0))
	if err != nil {
		return err
	}

	var want icns.OSType
	if *only != "" {
		if want, err = icns.ParseOSType(*only); err != nil {
			return err
		}
		if !c.Contains(want) {
			return fmt.Errorf("%w: %s", icns.ErrTypeNotFound, *only)
		}
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	records := c.Records()
	names := payloadNames(records)

	var errs error
	extracted := 0
	for i, rec := range records {
		if *only != "" && rec.Type != want {
			continue
		}

		data, err := c.Payload(i)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}

		outputPath := filepath.Join(outputDir, names[i])
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("writing %s: %w", outputPath, err))
			continue
		}

		fmt.Printf("Extracted: %s (%d bytes)\n", outputPath, len(data))
		extracted++
	}

	fmt.Fprintf(os.Stderr, "\nExtracted %d files\n", extracted)
	return errs
}

// payloadNames names extracted payloads after their nominal size, the way
// the source files are named. Records that share a size get their type code
// appended, and any name still taken gets the record index.
func payloadNames(records []icns.Record) []string {
	count := make(map[string]int, len(records))
	for _, rec := range records {
		count[payloadName(rec)]++
	}

	names := make([]string, len(records))
	used := make(map[string]bool, len(records))
	for i, rec := range records {
		name := payloadName(rec)
		if count[name] > 1 && rec.Size != 0 {
			name = fmt.Sprintf("%d-%s.png", rec.Size, rec.Type)
			logger.Warn("Duplicate payload size, naming by type",
				zap.Uint32("size", rec.Size), zap.String("name", name))
		}
		if used[name] {
			ext := filepath.Ext(name)
			name = fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), i, ext)
		}
		used[name] = true
		names[i] = name
	}
	return names
}

func payloadName(rec icns.Record) string {
	if rec.Size == 0 {
		return rec.Type.String() + ".bin"
	}
	return fmt.Sprintf("%d.png", rec.Size)
}

func cmdRender(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	scalerName := fs.String("scaler", cfg.Render.Scaler, "catmullrom, bilinear, approxbilinear or nearest")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		return usageError("render [-scaler name] <master.png> [output_dir]")
	}
	outputDir := cfg.Render.OutputDir
	if fs.NArg() > 1 {
		outputDir = fs.Arg(1)
	}

	scaler, err := iconset.ScalerByName(*scalerName)
	if err != nil {
		return err
	}
	entries, err := cfg.Build.IconEntries()
	if err != nil {
		return err
	}

	paths, err := iconset.RenderFile(fs.Arg(0), entries, outputDir, scaler)
	for _, p := range paths {
		logger.Info("Rendered", zap.String("path", p))
	}
	return err
}

func cmdInit(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	force := fs.Bool("force", false, "Overwrite an existing file")
	user := fs.Bool("user", false, "Write to the user config directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := config.FileName
	switch {
	case *user && fs.NArg() > 0:
		return usageError("init [-force] [-user | path]")
	case *user:
		path = config.UserConfigPath()
	case fs.NArg() > 0:
		path = fs.Arg(0)
	}

	if _, err := os.Stat(path); err == nil && !*force {
		return fmt.Errorf("%s already exists (use -force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	var err error
	if *user {
		err = cfg.Save()
	} else {
		err = cfg.SaveTo(path)
	}
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}
