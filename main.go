package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/BurntSushi/toml"

	"github.com/mailarc/mailarc/archive"
	"github.com/mailarc/mailarc/config"
	"github.com/mailarc/mailarc/directory"
	"github.com/mailarc/mailarc/logger"
	"github.com/mailarc/mailarc/mailsource"
	"github.com/mailarc/mailarc/metrics"
	"github.com/mailarc/mailarc/perms"
	"github.com/mailarc/mailarc/pkg/retry"
	"github.com/mailarc/mailarc/provision"
	"github.com/mailarc/mailarc/result"
	"github.com/mailarc/mailarc/routing"
	"github.com/mailarc/mailarc/runlog"
	"github.com/mailarc/mailarc/sink"
	"github.com/mailarc/mailarc/storage"
)

func main() {
	// Initialize with application defaults; the config file and then
	// explicitly-set flags override them.
	cfg := config.NewDefaultConfig()

	configPath := flag.String("config", "config.toml", "Path to TOML configuration file")

	fLogOutput := flag.String("logoutput", cfg.Logging.Output, "Log output: 'stdout', 'stderr', 'syslog', or a file path (overrides config)")
	fLogLevel := flag.String("loglevel", cfg.Logging.Level, "Log level: debug, info, warn, error (overrides config)")

	fDryRun := flag.Bool("dryrun", false, "Compute routes, paths, and permissions without writing anything")
	fMaxItems := flag.Int("maxitems", cfg.Archive.MaxItems, "Stop each folder after N items, 0 for unbounded (overrides config)")
	fArchiveRoot := flag.String("archiveroot", cfg.Archive.Root, "Archive root directory (overrides config)")

	fSourceKind := flag.String("source", cfg.Source.Kind, "Message source kind: imap, mbox, or dir (overrides config)")
	fSourcePath := flag.String("sourcepath", cfg.Source.Path, "Mbox file or .eml directory root (overrides config)")
	fSourceAddr := flag.String("sourceaddr", cfg.Source.Addr, "IMAP server address (overrides config)")

	flag.Parse()

	if _, err := toml.DecodeFile(*configPath, &cfg); err != nil {
		if os.IsNotExist(err) {
			if isFlagSet("config") {
				log.Fatalf("Error: specified configuration file '%s' not found: %v", *configPath, err)
			}
			log.Printf("WARNING: default configuration file '%s' not found, using defaults and flags", *configPath)
		} else {
			log.Fatalf("Error parsing configuration file '%s': %v", *configPath, err)
		}
	}

	if isFlagSet("logoutput") {
		cfg.Logging.Output = *fLogOutput
	}
	if isFlagSet("loglevel") {
		cfg.Logging.Level = *fLogLevel
	}
	if isFlagSet("dryrun") {
		cfg.DryRun = *fDryRun
	}
	if isFlagSet("maxitems") {
		cfg.Archive.MaxItems = *fMaxItems
	}
	if isFlagSet("archiveroot") {
		cfg.Archive.Root = *fArchiveRoot
	}
	if isFlagSet("source") {
		cfg.Source.Kind = *fSourceKind
	}
	if isFlagSet("sourcepath") {
		cfg.Source.Path = *fSourcePath
	}
	if isFlagSet("sourceaddr") {
		cfg.Source.Addr = *fSourceAddr
	}

	logFile, err := logger.Initialize(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := run(ctx, cfg)
	if err != nil {
		logger.Fatal("run aborted", "error", err)
	}

	fmt.Println(res.Summary())
	for _, taskErr := range res.Errors {
		fmt.Printf("  %s: %s\n", taskErr.Kind, taskErr.Context)
	}
	if !res.Success {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) (*result.TaskResult, error) {
	table, err := routing.NewTable(cfg.Templates, cfg.Routes)
	if err != nil {
		return nil, fmt.Errorf("failed to build route table: %w", err)
	}
	logger.Info("route table loaded", "routes", table.Len())

	source, err := newSource(cfg.Source)
	if err != nil {
		return nil, err
	}

	fs := &perms.OSFilesystem{}

	proc := &archive.Processor{
		Config: cfg.Archive,
		Source: source,
		Routes: table,
		Paths:  &routing.Builder{Root: cfg.Archive.Root, FS: fs},
		FS:     fs,
		DryRun: cfg.DryRun,
	}

	if needsDirectory(cfg) && !cfg.DryRun {
		client, err := directory.Connect(cfg.Directory)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to directory service: %w", err)
		}
		defer client.Close()

		cache := directory.NewPrincipalCache()
		if err := cache.Seed(ctx, client, cfg.Directory.BaseDN); err != nil {
			return nil, fmt.Errorf("failed to seed principal cache: %w", err)
		}
		logger.Info("principal cache seeded", "principals", cache.Len())

		interval, _ := cfg.Directory.PollIntervalDuration()
		backoff := retry.DefaultBackoffConfig()
		backoff.InitialInterval = interval
		backoff.MaxRetries = cfg.Directory.PollMaxAttempts - 1

		prov := provision.New(client, cache, cfg.Directory.EmailAccessContainer, backoff)
		proc.Perms = perms.NewReconciler(fs, prov, cache)
	}

	if cfg.Sink.Enabled && !cfg.DryRun {
		exporter, err := sink.Connect(ctx, cfg.Sink)
		if err != nil {
			return nil, err
		}
		defer exporter.Close()
		proc.Sink = exporter
	}

	if cfg.S3.Enabled && !cfg.DryRun {
		mirror, err := storage.New(cfg.S3)
		if err != nil {
			return nil, err
		}
		proc.Mirror = mirror
	}

	if cfg.RunLog.Path != "" {
		events, err := runlog.Open(cfg.RunLog.Path)
		if err != nil {
			return nil, err
		}
		defer events.Close()
		proc.Events = events

		res := runProcessor(ctx, cfg, proc)
		if err := events.Finish(res); err != nil {
			logger.Warn("failed to finalize run log", "error", err)
		}
		return res, nil
	}

	return runProcessor(ctx, cfg, proc), nil
}

func runProcessor(ctx context.Context, cfg config.Config, proc *archive.Processor) *result.TaskResult {
	if cfg.Metrics.Enabled {
		go metrics.Serve(ctx, cfg.Metrics.Addr)
	}
	if cfg.DryRun {
		logger.Info("dry run, no files, groups, ACLs, or deletions will be written")
	}
	return proc.Run(ctx)
}

func newSource(cfg config.SourceConfig) (mailsource.Source, error) {
	switch cfg.Kind {
	case "imap":
		return mailsource.NewIMAPSource(cfg), nil
	case "mbox":
		return mailsource.NewMboxSource(cfg.Path), nil
	case "dir":
		return mailsource.NewDirSource(cfg.Path), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}

// needsDirectory reports whether any route asks for permission
// reconciliation, which is the only consumer of the directory service.
func needsDirectory(cfg config.Config) bool {
	for _, r := range cfg.Routes {
		if r.ApplyPermissions {
			return true
		}
	}
	return false
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
