// Package main provides the resopt CLI, which optimizes a compiled Android
// resource package (.ap_) in place: duplicate resource files are collapsed
// and resource key names are replaced by a placeholder.
//
// Usage:
//
//	resopt [flags] <archive.ap_ | dir containing one .ap_>
//
// Settings come from defaults, then an optional JSON file (-config), then
// flags given explicitly on the command line.
//
// Exit codes:
//   - 0 success, nothing to do, or a failed-soft internal error (archive untouched)
//   - 1 fatal error (missing input, malformed table, extraction or repack failure)
//   - 2 usage or configuration error
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"resopt/internal/config"
	"resopt/internal/logging"
	"resopt/internal/meta"
	"resopt/internal/optimizer"
)

// cliConfig is the parsed command line.
type cliConfig struct {
	cfg      config.Config
	target   string
	variant  string
	logLevel logging.Level
}

// splitCSV converts a comma-separated list into a slice, trimming spaces and
// dropping empty items.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	out := make([]string, 0, 8)
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprintf(out, "Usage:\n  %s [flags] <archive.ap_ | dir>\n", name)
		fmt.Fprintln(out, "  (Use -- to separate flags from the positional path if needed.)")
		fmt.Fprintln(out, "\nFlags:")
		fs.PrintDefaults()
	}
	return fs
}

func parseFlags(args []string) (cliConfig, error) {
	return parseFlagsTo(args, io.Discard)
}

func parseFlagsTo(args []string, out io.Writer) (cliConfig, error) {
	var c cliConfig
	d := config.Default()
	fs := newFlagSet("resopt", out)

	configPath := fs.String("config", "", "JSON config file (repeatResOptEnable, resNameOptEnable, resNameOptWhiteRegexList, ...)")
	repeatRes := fs.Bool("repeat-res", d.RepeatResOptEnable, "collapse duplicate resource files")
	resName := fs.Bool("res-name", d.ResNameOptEnable, "replace resource key names with the placeholder")
	whitelist := fs.String("whitelist", "", "comma-separated regexes; keys fully matching one are not renamed")
	placeholder := fs.String("placeholder", d.ResNameOptPlaceholder, "replacement for renamed keys")
	digestName := fs.String("digest", d.Digest, "content digest for duplicate detection (sha256, sha512, blake2s, blake2b, sha3-256, md5)")
	codec := fs.String("backup", d.BackupCodec, "codec for backups of removed files (none, lz4, zstd, xz)")
	level := fs.Int("deflate-level", d.DeflateLevel, "deflate level for repacked entries (-2..9, -1 = default)")
	reportDir := fs.String("report-dir", "", "report base directory; each run writes to <base>/<variant>/<time> (default base <archive dir>/resopt-report)")
	variant := fs.String("variant", "", "build variant for the report path (default: inferred from the archive path, else \"default\")")
	logLevel := fs.String("log-level", "info", "log level (debug, info, warn, error)")
	verbose := fs.Bool("v", false, "shorthand for -log-level debug")

	if err := fs.Parse(args); err != nil {
		return c, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return c, errors.New("expected exactly one <archive.ap_ | dir> argument")
	}
	c.target = filepath.Clean(fs.Arg(0))

	c.cfg = d
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return c, err
		}
		c.cfg = loaded
	}

	// Flags set explicitly override the file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "repeat-res":
			c.cfg.RepeatResOptEnable = *repeatRes
		case "res-name":
			c.cfg.ResNameOptEnable = *resName
		case "whitelist":
			c.cfg.ResNameOptWhiteRegexList = splitCSV(*whitelist)
		case "placeholder":
			c.cfg.ResNameOptPlaceholder = *placeholder
		case "digest":
			c.cfg.Digest = *digestName
		case "backup":
			c.cfg.BackupCodec = *codec
		case "deflate-level":
			c.cfg.DeflateLevel = *level
		case "report-dir":
			c.cfg.ReportDir = *reportDir
		}
	})

	c.variant = *variant
	lvl, err := logging.ParseLevel(*logLevel)
	if err != nil {
		return c, err
	}
	if *verbose {
		lvl = logging.Debug
	}
	c.logLevel = lvl
	return c, nil
}

func run(args []string, stderr io.Writer) int {
	c, err := parseFlagsTo(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, "ERROR:", err)
		return 2
	}
	log := logging.New(stderr, c.logLevel)

	archive, err := optimizer.FindArchive(c.target)
	if err != nil {
		log.Errorf("%v", err)
		return 1
	}
	variant := c.variant
	if variant == "" {
		inf := meta.Detect(archive)
		variant = inf.Variant
		if inf.Project != "" {
			log.Debugf("project %s, variant %q", inf.Project, inf.Variant)
		}
	}

	opt, err := optimizer.New(c.cfg, log, optimizer.WithVariant(variant))
	if err != nil {
		fmt.Fprintln(stderr, "ERROR:", err)
		return 2
	}
	res, err := opt.Run(archive)
	if err != nil {
		var e *optimizer.Error
		if errors.As(err, &e) && !e.Kind.Fatal() {
			log.Warnf("continuing with the original %s", archive)
			return 0
		}
		return 1
	}
	if res.Changed {
		log.Infof("optimized %s: %d bytes removed; report in %s", archive, res.BytesRemoved, res.ReportDir)
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}
