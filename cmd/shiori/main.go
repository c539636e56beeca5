// Package main is the Shiori CLI entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/cli"
	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/indexer"
	"github.com/hyperjump/shiori/internal/labelindex"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/server"
	"github.com/hyperjump/shiori/internal/storage"
	"github.com/hyperjump/shiori/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/shiori/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory takes precedence, and if neither exists the built-in defaults
// are used. Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "index":
		runIndex()
	case "status":
		runStatus()
	case "labels":
		runLabels()
	case "version", "--version", "-v":
		fmt.Printf("shiori version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config and creates the logger. It exits on failure.
func setup(configPath string, debugFlag bool) (*config.Config, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))
	return cfg, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	stats, err := components.Engine.Load(context.Background())
	if err != nil {
		logger.Fatal("Failed to load catalog", zap.Error(err))
	}
	logger.Info("catalog loaded",
		zap.Int("chunks", stats.Chunks),
		zap.Int("dimensions", stats.Dimensions),
		zap.Int("labels", components.Engine.Status().Labels))

	srv := server.NewServer(components.Engine, components.Storage, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: shiori search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Queries are narrowed to the chapters and sections the label matcher picks for them;
when it picks none, every entry is searched. Use --narrow=false to always search everything.

Examples:
  shiori search what is a python list
  shiori search --metric dot --limit 5 "objects in python"
  shiori search --keys --output compact recursion
  shiori search --server "" recursion          # load the catalog and search without a server
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = load the catalog and search directly)")
	limit := fs.Int("limit", 0, "number of results (default from config)")
	metric := fs.String("metric", "", "similarity metric: cosine, dot, or euclidean (default from config)")
	keysOnly := fs.Bool("keys", false, "print result keys only")
	narrow := fs.Bool("narrow", true, "narrow the search to matched chapter and section labels")
	outputFormat := fs.String("output", "text", "output format: text (human-readable), compact (one result per line), or json (parseable)")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	query := &models.SearchQuery{
		Query:    queryStr,
		Limit:    *limit,
		Metric:   *metric,
		KeysOnly: *keysOnly,
		Narrow:   narrow,
	}
	ctx := context.Background()

	var response *models.SearchResponse
	if *serverURL != "" {
		response, err = cli.NewClient(*serverURL).Search(ctx, query)
	} else {
		cfg, logger := setup(*configPath, false)
		defer logger.Sync()
		components, initErr := initializeComponents(cfg, logger)
		if initErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", initErr)
			os.Exit(1)
		}
		defer components.Close()
		if _, err := components.Engine.Load(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load catalog: %v\n", err)
			os.Exit(1)
		}
		response, err = components.Engine.Search(ctx, query)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "also send the new chunks to a running server")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: shiori index [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	var results []*indexer.Result
	if info.IsDir() {
		results, err = components.Indexer.IndexDirectory(ctx, path, cfg.Search.Extensions)
	} else {
		var res *indexer.Result
		res, err = components.Indexer.IndexFile(ctx, path, nil)
		results = append(results, res)
	}
	if err != nil {
		fmt.Printf("Indexing failed: %v\n", err)
		os.Exit(1)
	}
	changed := map[string]bool{}
	chunks := 0
	for _, r := range results {
		if !r.Skipped {
			changed[r.DocumentID] = true
			chunks += r.Chunks
		}
	}
	fmt.Printf("Indexed %d file(s) from %s: %d changed, %d chunk(s)\n", len(results), path, len(changed), chunks)

	if *serverURL == "" || len(changed) == 0 {
		return
	}
	all, err := components.Storage.ListChunks(ctx)
	if err != nil {
		fmt.Printf("Listing chunks failed: %v\n", err)
		os.Exit(1)
	}
	var push []models.Chunk
	for _, c := range all {
		if changed[c.DocumentID] {
			push = append(push, c)
		}
	}
	resp, err := cli.NewClient(*serverURL).Ingest(ctx, push)
	if err != nil {
		fmt.Printf("Sending chunks failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Server now holds %d entries under %d labels\n", resp.Entries, resp.Labels)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = read the catalog directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx := context.Background()

	var status *server.StatusResponse
	if *serverURL != "" {
		status, err = cli.NewClient(*serverURL).Status(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, logger := setup(*configPath, false)
		defer logger.Sync()
		catalog, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open catalog: %v\n", err)
			os.Exit(1)
		}
		defer catalog.Close()
		status = &server.StatusResponse{}
		if status.Documents, err = catalog.CountDocuments(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Count documents failed: %v\n", err)
			os.Exit(1)
		}
		if status.Chunks, err = catalog.CountChunks(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Count chunks failed: %v\n", err)
			os.Exit(1)
		}
		if n, err := catalog.SizeBytes(); err == nil {
			status.DiskUsageBytes = n
		}
		status.Dimensions = cfg.Embedding.Dimensions
	}
	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runLabels() {
	fs := flag.NewFlagSet("labels", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = read the catalog directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx := context.Background()

	var counts []models.LabelCount
	if *serverURL != "" {
		counts, err = cli.NewClient(*serverURL).Labels(ctx)
	} else {
		counts, err = catalogLabels(ctx, *configPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Labels failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteLabels(os.Stdout, counts, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// catalogLabels builds a label index straight from the catalog, without embedding anything.
func catalogLabels(ctx context.Context, configPath string) ([]models.LabelCount, error) {
	cfg, logger := setup(configPath, false)
	defer logger.Sync()
	catalog, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, err
	}
	defer catalog.Close()
	chunks, err := catalog.ListChunks(ctx)
	if err != nil {
		return nil, err
	}
	idx := labelindex.New()
	idx.Build(chunks)
	return idx.Labels(), nil
}

func printUsage() {
	fmt.Println(`shiori - In-memory vector search narrowed by chapter and section labels

Usage:
  shiori server [flags]                  Load the catalog and start the HTTP server
  shiori search [flags] <query>          Search ingested chunks
  shiori index [flags] <file-or-dir>     Chunk documents into the catalog
  shiori status [flags]                  Show store, index and catalog status
  shiori labels [flags]                  List chapter and section labels with counts
  shiori version                         Show version
  shiori help                            Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/shiori/config.yaml)
  --debug            Enable debug logging

Search Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" to search without a server.
  --limit int        Number of results (default from config)
  --metric string    cosine, dot, or euclidean (default from config)
  --keys             Print result keys only
  --narrow           Narrow to matched labels (default: true)
  --output string    text, compact, or json (default: text)

Index Flags:
  --config string    Config file path
  --server string    Also send changed chunks to this server

Status and Labels Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" to read the catalog directly.
  --output string    text or json (default: text)

Examples:
  shiori index ./book.md
  shiori server
  shiori search "objects in python"
  shiori search --output json --limit 3 recursion
  shiori labels`)
}
