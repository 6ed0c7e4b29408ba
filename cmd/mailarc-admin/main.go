package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mailarc/mailarc/config"
	"github.com/mailarc/mailarc/directory"
	"github.com/mailarc/mailarc/routing"
	"github.com/mailarc/mailarc/storage"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "validate-routes":
		handleValidateRoutes()
	case "check-directory":
		handleCheckDirectory()
	case "show-config":
		handleShowConfig()
	case "fetch-mirrored":
		handleFetchMirrored()
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`MAILARC Admin Tool

Usage:
  mailarc-admin <command> [options]

Commands:
  validate-routes   Load the configuration and validate the route table
  check-directory   Bind to the directory service and probe the group container
  show-config       Print the effective configuration with secrets redacted
  fetch-mirrored    Retrieve a mirrored object from the S3 bucket
  help              Show this help message

Examples:
  mailarc-admin validate-routes --config /etc/mailarc/config.toml
  mailarc-admin check-directory --config /etc/mailarc/config.toml
  mailarc-admin validate-routes --config /etc/mailarc/config.toml --class IPM.Note
  mailarc-admin fetch-mirrored --config /etc/mailarc/config.toml --key Reports/2012-01/msg.msg

Use 'mailarc-admin <command> --help' for more information about a command.
`)
}

func loadConfig(fs *flag.FlagSet, configPath *string) config.Config {
	if err := fs.Parse(os.Args[2:]); err != nil {
		log.Fatalf("Error parsing flags: %v", err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}
	return cfg
}

func handleValidateRoutes() {
	fs := flag.NewFlagSet("validate-routes", flag.ExitOnError)
	configPath := fs.String("config", "config.toml", "Path to TOML configuration file")
	class := fs.String("class", "", "Resolve a single message class against the table")
	cfg := loadConfig(fs, configPath)

	table, err := routing.NewTable(cfg.Templates, cfg.Routes)
	if err != nil {
		log.Fatalf("Route table invalid: %v", err)
	}

	if *class != "" {
		route, err := table.Lookup(*class)
		if err != nil {
			log.Fatalf("Route lookup failed: %v", err)
		}
		fmt.Printf("%s -> action=%s permissions=%t sink=%t extension=%s\n",
			route.Class, route.Action, route.ApplyPermissions, route.WriteToSink, route.FileExtension)
		return
	}

	fmt.Printf("Configuration OK: %d template(s), %d route(s)\n", len(cfg.Templates), table.Len())
	for _, r := range cfg.Routes {
		fmt.Printf("  %-40s -> template=%s action=%s permissions=%t sink=%t\n",
			r.Class, r.Template, r.Action, r.ApplyPermissions, r.WriteToSink)
	}
}

func handleCheckDirectory() {
	fs := flag.NewFlagSet("check-directory", flag.ExitOnError)
	configPath := fs.String("config", "config.toml", "Path to TOML configuration file")
	cfg := loadConfig(fs, configPath)

	client, err := directory.Connect(cfg.Directory)
	if err != nil {
		log.Fatalf("Failed to connect to directory service: %v", err)
	}
	defer client.Close()
	fmt.Printf("Bound to %s as %s\n", cfg.Directory.Addr, cfg.Directory.BindDN)

	ctx := context.Background()
	if _, err := client.FindObject(ctx, cfg.Directory.EmailAccessContainer); err != nil {
		log.Fatalf("Group container %s not readable: %v", cfg.Directory.EmailAccessContainer, err)
	}
	fmt.Printf("Group container %s is readable\n", cfg.Directory.EmailAccessContainer)

	principals, err := client.Search(ctx, "(objectClass=group)", cfg.Directory.EmailAccessContainer)
	if err != nil {
		log.Fatalf("Failed to list groups in container: %v", err)
	}
	fmt.Printf("Container holds %d group(s)\n", len(principals))
}

func handleFetchMirrored() {
	fs := flag.NewFlagSet("fetch-mirrored", flag.ExitOnError)
	configPath := fs.String("config", "config.toml", "Path to TOML configuration file")
	key := fs.String("key", "", "Object key relative to the archive root")
	cfg := loadConfig(fs, configPath)

	if *key == "" {
		log.Fatal("--key is required")
	}
	if !cfg.S3.Enabled {
		log.Fatal("S3 mirror is not enabled in the configuration")
	}

	mirror, err := storage.New(cfg.S3)
	if err != nil {
		log.Fatalf("Failed to initialize S3 mirror: %v", err)
	}

	obj, err := mirror.Get(context.Background(), *key)
	if err != nil {
		log.Fatalf("Failed to fetch %s: %v", *key, err)
	}
	defer obj.Close()

	if _, err := io.Copy(os.Stdout, obj); err != nil {
		log.Fatalf("Failed to read %s: %v", *key, err)
	}
}

func handleShowConfig() {
	fs := flag.NewFlagSet("show-config", flag.ExitOnError)
	configPath := fs.String("config", "config.toml", "Path to TOML configuration file")
	cfg := loadConfig(fs, configPath)

	redact := func(s string) string {
		if s == "" {
			return ""
		}
		return "<redacted>"
	}

	fmt.Printf("source:     kind=%s path=%s addr=%s user=%s password=%s\n",
		cfg.Source.Kind, cfg.Source.Path, cfg.Source.Addr, cfg.Source.Username, redact(cfg.Source.Password))
	fmt.Printf("archive:    root=%s folders=%v max_items=%d\n",
		cfg.Archive.Root, cfg.Archive.Folders, cfg.Archive.MaxItems)
	fmt.Printf("directory:  addr=%s bind_dn=%s bind_password=%s base_dn=%s container=%s\n",
		cfg.Directory.Addr, cfg.Directory.BindDN, redact(cfg.Directory.BindPassword),
		cfg.Directory.BaseDN, cfg.Directory.EmailAccessContainer)
	fmt.Printf("sink:       enabled=%t host=%s port=%s db=%s user=%s password=%s\n",
		cfg.Sink.Enabled, cfg.Sink.Host, cfg.Sink.Port, cfg.Sink.Name, cfg.Sink.User, redact(cfg.Sink.Password))
	fmt.Printf("s3:         enabled=%t endpoint=%s bucket=%s access_key=%s secret_key=%s\n",
		cfg.S3.Enabled, cfg.S3.Endpoint, cfg.S3.Bucket, cfg.S3.AccessKey, redact(cfg.S3.SecretKey))
	fmt.Printf("runlog:     path=%s\n", cfg.RunLog.Path)
	fmt.Printf("metrics:    enabled=%t addr=%s\n", cfg.Metrics.Enabled, cfg.Metrics.Addr)
	fmt.Printf("logging:    output=%s format=%s level=%s\n",
		cfg.Logging.Output, cfg.Logging.Format, cfg.Logging.Level)
	fmt.Printf("routes:     %d route(s), %d template(s)\n", len(cfg.Routes), len(cfg.Templates))
}
