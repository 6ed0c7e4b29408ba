// Package config defines the TOML configuration for mailarc and its
// validation. Configuration is loaded once at startup; any malformed or
// missing required value is fatal to the run.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/mailarc/mailarc/consts"
)

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Output string `toml:"output"` // "stdout", "stderr", "syslog", or a file path
	Format string `toml:"format"` // "console" or "json"
	Level  string `toml:"level"`  // "debug", "info", "warn", "error"
}

// SourceConfig selects and configures the message store to archive from.
type SourceConfig struct {
	Kind     string `toml:"kind"` // "imap", "mbox", or "dir"
	Path     string `toml:"path"` // mbox file or .eml directory root
	Addr     string `toml:"addr"` // IMAP server address
	Username string `toml:"username"`
	Password string `toml:"password"`
	TLS      bool   `toml:"tls"`
}

// ArchiveConfig holds the archive target and run bounds.
type ArchiveConfig struct {
	Root     string   `toml:"root"`
	Folders  []string `toml:"folders"`
	MaxItems int      `toml:"max_items"` // 0 means unbounded
}

// DirectoryConfig holds the directory-service (LDAP) connection and the
// container that owns provisioned email-access groups.
type DirectoryConfig struct {
	Addr                 string `toml:"addr"`
	BindDN               string `toml:"bind_dn"`
	BindPassword         string `toml:"bind_password"`
	BaseDN               string `toml:"base_dn"`
	EmailAccessContainer string `toml:"email_access_container"`
	PollMaxAttempts      int    `toml:"poll_max_attempts"`
	PollInterval         string `toml:"poll_interval"`
}

// SinkConfig holds the PostgreSQL export sink connection.
type SinkConfig struct {
	Enabled  bool   `toml:"enabled"`
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
	TLSMode  bool   `toml:"tls"`
}

// RunLogConfig holds the local SQLite run-log location.
type RunLogConfig struct {
	Path string `toml:"path"`
}

// S3Config holds the optional S3 mirror for archived files.
type S3Config struct {
	Enabled   bool   `toml:"enabled"`
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	UseSSL    bool   `toml:"use_ssl"`
	Trace     bool   `toml:"trace"`
}

// MetricsConfig holds the optional Prometheus listener exposed for the
// duration of a run.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// TemplateConfig defines the save-path shape referenced by routes.
type TemplateConfig struct {
	Name          string `toml:"name"`
	UseDate       bool   `toml:"use_date"`
	UseSender     bool   `toml:"use_sender"`
	StaticSuffix  string `toml:"static_suffix"`
	FileExtension string `toml:"file_extension"`
}

// RouteConfig maps one message class to a template and archival policy.
type RouteConfig struct {
	Class            string `toml:"class"`
	Template         string `toml:"template"`
	Action           string `toml:"action"` // "save" or "delete"
	ApplyPermissions bool   `toml:"apply_permissions"`
	WriteToSink      bool   `toml:"write_to_sink"`
}

// Config holds all configuration for the application.
type Config struct {
	DryRun    bool             `toml:"dry_run"`
	Logging   LoggingConfig    `toml:"logging"`
	Source    SourceConfig     `toml:"source"`
	Archive   ArchiveConfig    `toml:"archive"`
	Directory DirectoryConfig  `toml:"directory"`
	Sink      SinkConfig       `toml:"sink"`
	RunLog    RunLogConfig     `toml:"runlog"`
	S3        S3Config         `toml:"s3"`
	Metrics   MetricsConfig    `toml:"metrics"`
	Templates []TemplateConfig `toml:"template"`
	Routes    []RouteConfig    `toml:"route"`
}

// NewDefaultConfig returns application defaults; values are overridden by the
// config file and then by command-line flags.
func NewDefaultConfig() Config {
	return Config{
		Logging: LoggingConfig{
			Output: "stderr",
			Format: "console",
			Level:  "info",
		},
		Source: SourceConfig{
			Kind: "dir",
		},
		Archive: ArchiveConfig{
			Folders: []string{"INBOX"},
		},
		Directory: DirectoryConfig{
			PollMaxAttempts: 10,
			PollInterval:    "500ms",
		},
		Sink: SinkConfig{
			Host: "localhost",
			Port: "5432",
			User: "postgres",
			Name: "mailarc_db",
		},
		RunLog: RunLogConfig{
			Path: "mailarc-runlog.db",
		},
		Metrics: MetricsConfig{
			Addr: "localhost:9090",
		},
	}
}

// Load reads and validates a TOML configuration file on top of defaults.
func Load(path string) (Config, error) {
	cfg := NewDefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", consts.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks cross-field constraints that TOML decoding cannot express.
// Every failure wraps consts.ErrInvalidConfig. Route validation is strict: a
// bad route table fails the run at startup rather than per-message.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case "imap":
		if c.Source.Addr == "" {
			return invalid("source.addr is required for imap source")
		}
	case "mbox", "dir":
		if c.Source.Path == "" {
			return invalid("source.path is required for %s source", c.Source.Kind)
		}
	default:
		return invalid("unknown source.kind %q (want imap, mbox, or dir)", c.Source.Kind)
	}

	if c.Archive.Root == "" {
		return invalid("archive.root is required")
	}
	if len(c.Archive.Folders) == 0 {
		return invalid("archive.folders must name at least one folder")
	}
	if c.Archive.MaxItems < 0 {
		return invalid("archive.max_items must not be negative")
	}

	if c.Directory.PollMaxAttempts < 1 {
		return invalid("directory.poll_max_attempts must be at least 1")
	}
	if _, err := c.Directory.PollIntervalDuration(); err != nil {
		return invalid("%s", err)
	}

	templates := make(map[string]struct{}, len(c.Templates))
	for i, t := range c.Templates {
		if t.Name == "" {
			return invalid("template #%d has no name", i+1)
		}
		if _, dup := templates[t.Name]; dup {
			return invalid("duplicate template %q", t.Name)
		}
		templates[t.Name] = struct{}{}
	}

	classes := make(map[string]struct{}, len(c.Routes))
	for i, r := range c.Routes {
		if strings.TrimSpace(r.Class) == "" {
			return invalid("route #%d has no message class", i+1)
		}
		if _, dup := classes[r.Class]; dup {
			return invalid("duplicate route for message class %q", r.Class)
		}
		classes[r.Class] = struct{}{}
		if _, ok := templates[r.Template]; !ok {
			return invalid("route %q references unknown template %q", r.Class, r.Template)
		}
		switch r.Action {
		case "save", "delete":
		default:
			return invalid("route %q has unknown action %q (want save or delete)", r.Class, r.Action)
		}
	}

	return nil
}

// PollIntervalDuration parses the convergence-poll interval.
func (d *DirectoryConfig) PollIntervalDuration() (time.Duration, error) {
	if d.PollInterval == "" {
		return 500 * time.Millisecond, nil
	}
	dur, err := time.ParseDuration(d.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid directory.poll_interval %q: %w", d.PollInterval, err)
	}
	if dur <= 0 {
		return 0, fmt.Errorf("directory.poll_interval must be positive")
	}
	return dur, nil
}
