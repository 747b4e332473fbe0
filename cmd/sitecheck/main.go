package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/houndci/sitecheck/api"
	"github.com/houndci/sitecheck/browser"
	"github.com/houndci/sitecheck/catalog"
	"github.com/houndci/sitecheck/resolve"
	"github.com/houndci/sitecheck/runner"
	"github.com/houndci/sitecheck/scenario"
	"github.com/houndci/sitecheck/store"
	"github.com/houndci/sitecheck/verdict"
)

// conf is the top-level YAML config. The same file also carries the
// catalog sections (elements, keywords, scenarios); catalog.Load reads
// those from the same bytes.
type conf struct {
	DB      string         `yaml:"db"`
	Browser browser.Config `yaml:"browser"`
	API     api.Config     `yaml:"api"`

	Concurrency int    `yaml:"concurrency"`
	Interval    string `yaml:"interval"`
	Retention   string `yaml:"retention"`

	NavigationTimeout string `yaml:"navigation_timeout"`
	QuiesceTimeout    string `yaml:"quiesce_timeout"`
	ResolverMode      string `yaml:"resolver_mode"`
}

func main() {
	var (
		configPath = flag.String("config", "sitecheck.yaml", "config and catalog file")
		runName    = flag.String("run", "", "run one scenario and exit")
		quickURL   = flag.String("url", "", "quick-check a single URL and exit")
		logLevel   = flag.String("log-level", env("LOG_LEVEL", "info"), "debug, info, warn or error")
	)
	flag.Parse()

	logger := newLogger(*logLevel)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger, *configPath, *runName, *quickURL); err != nil {
		slog.Error("sitecheck", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, runName, quickURL string) error {
	var c conf
	var cat *catalog.Catalog

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &c); err != nil {
			return fmt.Errorf("config %s: %w", configPath, err)
		}
		cat, err = catalog.Load(data, catalog.Options{ValidDevice: validDevice})
		if err != nil {
			return err
		}
	case os.IsNotExist(err) && quickURL != "":
		// Quick checks run fine on defaults alone.
		cat = &catalog.Catalog{Elements: catalog.DefaultElements()}
	default:
		return fmt.Errorf("config %s: %w", configPath, err)
	}

	driverCfg := scenario.Config{
		NavigationTimeout: duration(c.NavigationTimeout),
		QuiesceTimeout:    duration(c.QuiesceTimeout),
		ResolverMode:      resolve.ParseMode(c.ResolverMode),
		Logger:            logger,
	}

	c.Browser.Logger = logger
	mgr := browser.NewManager(c.Browser)
	if err := mgr.Start(ctx); err != nil {
		return err
	}
	defer mgr.Close()
	session := browser.NewSession(mgr)

	oneShot := runName != "" || quickURL != ""

	var reports *store.Store
	dbPath := c.DB
	if dbPath == "" && !oneShot {
		dbPath = "db/sitecheck.db"
	}
	if dbPath != "" {
		reports, err = store.Open(dbPath)
		if err != nil {
			return err
		}
		defer reports.Close()
	}

	rn := runner.New(session, cat, reports, driverCfg, runner.Config{
		Concurrency: c.Concurrency,
		Interval:    duration(c.Interval),
		Retention:   duration(c.Retention),
		Logger:      logger,
	})

	if quickURL != "" {
		return printReport(rn.RunPlan(ctx, catalog.QuickPlan(quickURL)))
	}
	if runName != "" {
		report, err := rn.RunNamed(ctx, runName)
		if err != nil {
			return err
		}
		return printReport(report)
	}

	return serve(ctx, logger, rn, cat, reports, c.API)
}

func serve(ctx context.Context, logger *slog.Logger, rn *runner.Runner, cat *catalog.Catalog, reports *store.Store, apiCfg api.Config) error {
	if env("MCP_TRANSPORT", "") == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "sitecheck",
			Version: "1.0.0",
		}, nil)
		rn.RegisterMCP(mcpSrv)
		go func() {
			if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				slog.Error("mcp stdio", "error", err)
			}
		}()
	}

	go rn.Start(ctx)

	apiCfg.Logger = logger
	port := env("PORT", "8086")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           api.New(rn, cat, reports, apiCfg).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
	return nil
}

// printReport writes the report as JSON to stdout. A failed scenario exits
// non-zero so CI pipelines can gate on it.
func printReport(report *verdict.Report) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	if !report.Passed {
		os.Exit(1)
	}
	return nil
}

func validDevice(name string) bool {
	return name == "" || browser.KnownDevice(name)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// duration parses d, returning 0 for empty or malformed values so the
// component defaults apply.
func duration(d string) time.Duration {
	if d == "" {
		return 0
	}
	v, err := time.ParseDuration(d)
	if err != nil {
		slog.Warn("bad duration in config", "value", d)
		return 0
	}
	return v
}
