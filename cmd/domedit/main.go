// Command domedit is the live selection and style-edit engine.
//
// Usage:
//
//	domedit -url https://example.com                  # edit a page, stdout sink
//	domedit -config domedit.yaml -url https://...     # full configuration
//	domedit -url https://... -mcp                     # expose MCP tools on stdio
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/domedit"
	"github.com/hazyhaar/domedit/internal/browser"
	"github.com/hazyhaar/domedit/internal/httpapi"
	"github.com/hazyhaar/domedit/internal/notify"
)

const version = "0.3.0"

func main() {
	configPath := flag.String("config", "", "path to domedit.yaml config file")
	pageURL := flag.String("url", "", "page to edit")
	pick := flag.Bool("pick", true, "start in picking mode")
	listen := flag.String("listen", "", "HTTP control surface address (overrides config)")
	serveMCP := flag.Bool("mcp", false, "expose engine tools over MCP on stdio")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := runOptions{
		configPath: *configPath,
		pageURL:    *pageURL,
		pick:       *pick,
		listen:     *listen,
		serveMCP:   *serveMCP,
	}
	if err := run(ctx, logger, opts); err != nil {
		logger.Error("domedit: fatal", "error", err)
		os.Exit(1)
	}
}

type runOptions struct {
	configPath string
	pageURL    string
	pick       bool
	listen     string
	serveMCP   bool
}

func run(ctx context.Context, logger *slog.Logger, opts runOptions) error {
	if opts.pageURL == "" {
		fmt.Fprintln(os.Stderr, "usage: domedit -url <url> [-config <file>] [-listen <addr>] [-mcp]")
		os.Exit(1)
	}

	cfg := domedit.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := domedit.LoadConfigFile(opts.configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded
	}
	if opts.listen != "" {
		cfg.HTTP.Addr = opts.listen
	}

	sinks, closers, err := buildSinks(cfg, logger, opts.serveMCP)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			c()
		}
	}()

	engine := domedit.New(cfg, logger, sinks...)

	mgr := browser.NewManager(browser.Config{
		RemoteURL:        cfg.Browser.Remote,
		Headless:         cfg.Browser.Headless,
		Stealth:          cfg.Browser.Stealth,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		UserDataDir:      cfg.Browser.UserDataDir,
		Logger:           logger,
	})
	if _, err := mgr.Start(); err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer mgr.Close()

	tab, err := browser.OpenTab(ctx, mgr, opts.pageURL)
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	surf, err := tab.Surface()
	if err != nil {
		return fmt.Errorf("attach surface: %w", err)
	}

	engine.Attach(surf)
	defer engine.Stop()
	if opts.pick {
		engine.StartPicking()
	}

	if cfg.HTTP.Addr != "" {
		api := httpapi.New(engine, cfg.HTTP.Addr, cfg.HTTP.Timeout, logger)
		go func() {
			if err := api.Start(); err != nil {
				logger.Error("domedit: http api", "error", err)
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			api.Shutdown(sctx)
		}()
	}

	if opts.serveMCP {
		server := domedit.NewMCPServer(engine, version)
		logger.Info("domedit: serving MCP on stdio", "url", opts.pageURL)
		return server.Run(ctx, &mcp.StdioTransport{})
	}

	logger.Info("domedit: editing", "url", opts.pageURL)
	<-ctx.Done()
	return nil
}

// buildSinks assembles the configured output backends. With no sinks
// configured, edit activity goes to stdout as JSON lines — unless stdout
// is busy carrying MCP.
func buildSinks(cfg *domedit.Config, logger *slog.Logger, serveMCP bool) ([]domedit.Sink, []func(), error) {
	var sinks []domedit.Sink
	var closers []func()

	for _, sc := range cfg.Sinks {
		switch sc.Type {
		case "stdout":
			if serveMCP {
				logger.Warn("domedit: stdout sink disabled, stdio carries MCP")
				continue
			}
			sinks = append(sinks, domedit.NewStdoutSink(nil))
		case "webhook":
			sinks = append(sinks, domedit.NewWebhookSink(sc.URL, logger))
		case "sqlite":
			db, err := sql.Open("sqlite", sc.Path)
			if err != nil {
				return nil, closers, fmt.Errorf("open archive db: %w", err)
			}
			archive, err := notify.NewArchive(db)
			if err != nil {
				db.Close()
				return nil, closers, fmt.Errorf("init archive: %w", err)
			}
			closers = append(closers, func() { db.Close() })
			sinks = append(sinks, archive)
		}
	}

	if len(sinks) == 0 && !serveMCP {
		sinks = append(sinks, domedit.NewStdoutSink(nil))
	}
	return sinks, closers, nil
}
