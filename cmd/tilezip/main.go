package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"text/tabwriter"

	"github.com/flaneur2020/tilezip/tilezip"
	"github.com/flaneur2020/tilezip/tilezip/config"
	"github.com/flaneur2020/tilezip/tilezip/logger"
	"github.com/flaneur2020/tilezip/tilezip/manifest"
	"github.com/flaneur2020/tilezip/tilezip/server"
	stor "github.com/flaneur2020/tilezip/tilezip/storage"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	configPath string
	baseURL    string
	timeout    string
	logLevel   string
	rateLimit  int
	insecure   bool

	bindAddress string
	port        string

	outputDir   string
	concurrency int
	noProgress  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tilezip",
		Short: "Serve and fetch image tiles stored in remote uncompressed ZIP archives",
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to a JSON config file")
	flags.StringVar(&baseURL, "base-url", "", "Base URL under which issue directories and their odw.json manifests live")
	flags.StringVar(&timeout, "timeout", config.DefaultTimeout, "Timeout for each outbound request")
	flags.StringVar(&logLevel, "log-level", config.DefaultLogLevel, "Log level: silent, error, warn, info, debug")
	flags.IntVar(&rateLimit, "rate-limit", 0, "Maximum outbound requests per second (0 means unlimited)")
	flags.BoolVar(&insecure, "insecure", false, "Skip TLS certificate verification")

	// serve command
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve tiles over HTTP (GET /?path=<PATH>)",
		Args:  cobra.NoArgs,
		Run:   runServe,
	}
	serveCmd.Flags().StringVar(&bindAddress, "bind", "", "Address to bind to")
	serveCmd.Flags().StringVar(&port, "port", config.DefaultPort, "Port to listen on")

	// get command
	getCmd := &cobra.Command{
		Use:   "get <PATH>...",
		Short: "Fetch one or more tiles, e.g. 1875_01_05/0003/1/tiles/0_0.jpg",
		Args:  cobra.MinimumNArgs(1),
		Run:   runGet,
	}
	getCmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Output directory, or - to write a single tile to stdout")
	getCmd.Flags().IntVar(&concurrency, "concurrency", config.DefaultConcurrency, "Number of tiles fetched at once")
	getCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable progress bar (progress is enabled by default)")

	// locate command
	locateCmd := &cobra.Command{
		Use:   "locate <PATH>",
		Short: "Show where a tile lives inside its archive without fetching it",
		Args:  cobra.ExactArgs(1),
		Run:   runLocate,
	}

	// ls command
	lsCmd := &cobra.Command{
		Use:   "ls <ISSUE>",
		Short: "List the entries of an issue's tile archive, e.g. 1875_01_05/0003/1",
		Args:  cobra.ExactArgs(1),
		Run:   runLs,
	}

	rootCmd.AddCommand(serveCmd, getCmd, locateCmd, lsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}

// loadConfig merges the config file with flags the user set explicitly.
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		fatalf("Error loading config: %v\n", err)
	}

	cmd.Flags().Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "base-url":
			cfg.BaseURL = baseURL
		case "timeout":
			cfg.Timeout = timeout
		case "log-level":
			cfg.LogLevel = logLevel
		case "rate-limit":
			cfg.RateLimit = rateLimit
		case "insecure":
			cfg.Insecure = insecure
		case "bind":
			cfg.BindAddress = bindAddress
		case "port":
			cfg.Port = port
		case "concurrency":
			cfg.Concurrency = concurrency
		}
	})

	if err := cfg.Validate(); err != nil {
		fatalf("Error: invalid config: %v\n", err)
	}
	if err := cfg.RequireBaseURL(); err != nil {
		fatalf("Error: %v\n", err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		fatalf("Error: %v\n", err)
	}
	logger.Setup(level, cfg.LogFile)

	return cfg
}

func newAccessor(cfg *config.Config) tilezip.TileAccessor {
	storage := stor.NewHTTPStorage(stor.HTTPOptions{
		Timeout:   cfg.TimeoutDuration(),
		Insecure:  cfg.Insecure,
		RateLimit: cfg.RateLimit,
		UserAgent: "tilezip",
	})

	return tilezip.NewTileAccessor(
		manifest.NewLoader(storage, cfg.BaseURL),
		tilezip.NewResolver(storage),
		tilezip.NewRangeFetcher(storage),
	)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	accessor := newAccessor(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(accessor, cfg.Addr())
	if err := srv.Start(ctx); err != nil {
		fatalf("Error: %v\n", err)
	}
}

func runGet(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	accessor := newAccessor(cfg)
	ctx := context.Background()

	// Single tile to stdout
	if outputDir == "-" {
		if len(args) != 1 {
			fatalf("Error: -o - takes exactly one path\n")
		}
		tile, err := accessor.Open(ctx, args[0])
		if err != nil {
			fatalf("Error: %v\n", err)
		}
		if _, err := os.Stdout.Write(tile.Data); err != nil {
			fatalf("Error: %v\n", err)
		}
		return
	}

	var jobs []*tilezip.FetchJob
	for _, path := range args {
		jobs = append(jobs, &tilezip.FetchJob{
			Path:       path,
			OutputPath: tilezip.OutputPathFor(outputDir, path),
		})
	}

	// Progress bar is enabled by default
	showProgress := !noProgress

	var progressCallback tilezip.ProgressCallback
	var bar *progressbar.ProgressBar
	var mu sync.Mutex

	if showProgress {
		progressCallback = func(current, total int64) {
			mu.Lock()
			defer mu.Unlock()
			if bar == nil && total > 0 {
				if len(jobs) == 1 {
					bar = progressbar.DefaultBytes(total, fmt.Sprintf("Fetching %s", jobs[0].Path))
				} else {
					bar = progressbar.DefaultBytes(total, fmt.Sprintf("Fetching %d tiles", len(jobs)))
				}
			}
			if bar != nil {
				bar.Set64(current)
			}
		}
	}

	stats, err := tilezip.NewBatchFetcher(accessor, cfg.Concurrency).Fetch(ctx, jobs, progressCallback)
	if bar != nil {
		fmt.Println()
	}
	fmt.Printf("Fetched %d/%d tiles (%d bytes total)", stats.FetchedFiles, len(jobs), stats.FetchedBytes)
	if len(stats.Failures) > 0 {
		fmt.Printf(" (%d failed)", len(stats.Failures))
	}
	fmt.Println()

	if err != nil {
		fatalf("Error: %v\n", err)
	}
}

func runLocate(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	accessor := newAccessor(cfg)

	ref, err := accessor.Resolve(context.Background(), args[0])
	if err != nil {
		fatalf("Error: %v\n", err)
	}

	res := ref.Resolution
	fmt.Printf("Archive:      %s\n", res.Location.ArchiveURL)
	fmt.Printf("Entry:        %s\n", res.Entry.FileName)
	fmt.Printf("Content-Type: %s\n", ref.ContentType)
	fmt.Printf("Offset:       %d\n", res.Object.AbsoluteOffset)
	fmt.Printf("Size:         %d\n", res.Object.Size)
	fmt.Printf("Range:        bytes=%d-%d\n", res.Object.AbsoluteOffset, res.Object.End())
}

func runLs(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	accessor := newAccessor(cfg)

	loc, entries, err := accessor.List(context.Background(), args[0])
	if err != nil {
		fatalf("Error: %v\n", err)
	}

	fmt.Printf("Entries in %s:\n", loc)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SIZE\tOFFSET\tNAME")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%d\t%s\n", e.CompressedSize, e.RelativeOffsetOfLocalHeader, e.FileName)
	}
	w.Flush()
}
