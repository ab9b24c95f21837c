// ABOUTME: Entry point for the odoo-bridge server
// ABOUTME: Serves the MCP and REST transports in front of tenant Odoo instances

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	"github.com/relaydesk/odoo-bridge/internal/api"
	"github.com/relaydesk/odoo-bridge/internal/config"
	"github.com/relaydesk/odoo-bridge/internal/mcp"
	"github.com/relaydesk/odoo-bridge/internal/metrics"
	"github.com/relaydesk/odoo-bridge/internal/session"
	"github.com/relaydesk/odoo-bridge/internal/store"
	"github.com/relaydesk/odoo-bridge/internal/tools"
	"github.com/relaydesk/odoo-bridge/internal/web"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
           _                   _          _     _
   ___  __| | ___   ___       | |__  _ __(_) __| | __ _  ___
  / _ \/ _' |/ _ \ / _ \ _____| '_ \| '__| |/ _' |/ _' |/ _ \
 | (_) | (_| | (_) | (_) |_____| |_) | |  | | (_| | (_| |  __/
  \___/ \__,_|\___/ \___/      |_.__/|_|  |_|\__,_|\__, |\___|
                                                   |___/
`

// getConfigPath returns the path to the bridge config file.
// Priority: ODOO_BRIDGE_CONFIG env var > XDG_CONFIG_HOME/odoo-bridge/config.yaml > ~/.config/odoo-bridge/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("ODOO_BRIDGE_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "odoo-bridge", "config.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: odoo-bridge <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve [--host HOST] [--port PORT]  Start the bridge server")
		fmt.Println("  init                               Write a default config file")
		fmt.Println("  health                             Check bridge health")
		fmt.Println("  revoke-token TOKEN                 Deactivate an API token")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx, os.Args[2:])
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	case "revoke-token":
		err = runRevokeToken(ctx, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the config file, falling back to defaults when none exists.
func loadConfig() (*config.Config, string, error) {
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config.Default(), "(defaults)", nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, "", err
	}
	return cfg, configPath, nil
}

func runServe(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	hostFlag := flags.String("host", "", "bind host (overrides config)")
	portFlag := flags.Int("port", 0, "bind port (overrides config)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, configPath, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *hostFlag != "" {
		cfg.Server.Host = *hostFlag
	}
	if *portFlag != 0 {
		cfg.Server.Port = *portFlag
	}

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.ListenAddr())
	green.Print("    ▶ ")
	fmt.Printf("Database: %s\n", cfg.Database.Path)
	if cfg.Metrics.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Metrics:  %s\n", cfg.Metrics.Path)
	}
	fmt.Println()

	logger.Info("starting odoo-bridge",
		"config", configPath,
		"http_addr", cfg.ListenAddr(),
		"database", cfg.Database.Path,
	)

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	cache := session.NewCache()
	resolver := session.NewResolver(st, cache, nil, logger)
	registry := tools.NewRegistry(logger)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Registry:      registry,
		Resolver:      resolver,
		Metrics:       m,
		Logger:        logger,
		ServerVersion: version,
	})
	if err != nil {
		return fmt.Errorf("creating mcp server: %w", err)
	}

	apiServer, err := api.NewServer(api.Config{
		Store:     st,
		Resolver:  resolver,
		Metrics:   m,
		Logger:    logger,
		PublicURL: cfg.ResolvedPublicURL(),
	})
	if err != nil {
		return fmt.Errorf("creating api server: %w", err)
	}

	mux := http.NewServeMux()
	mcpServer.RegisterRoutes(mux)
	apiServer.RegisterRoutes(mux)
	web.RegisterRoutes(mux, logger)
	if m != nil {
		mux.Handle(cfg.Metrics.Path, m.Handler())
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// runInit writes a default config file if none exists.
func runInit() error {
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s", configPath)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	defaultConfig := `# odoo-bridge configuration
server:
  host: 0.0.0.0
  port: 8000
  # public_url: https://bridge.example.com

database:
  path: odoo-bridge.db

logging:
  level: info
  format: text

metrics:
  enabled: false
  path: /metrics
`

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	color.Green("Created config file: %s", configPath)
	return nil
}

// runHealth checks the /health endpoint of a locally running bridge.
func runHealth(ctx context.Context) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health", cfg.ListenAddr())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
	if err != nil {
		return fmt.Errorf("bridge unreachable at %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: %s", strings.TrimSpace(string(body)))
	}

	color.Green("Healthy: %s", strings.TrimSpace(string(body)))
	return nil
}

// runRevokeToken deactivates an API token in the store.
func runRevokeToken(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: odoo-bridge revoke-token TOKEN")
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	cache := session.NewCache()
	resolver := session.NewResolver(st, cache, nil, slog.Default())
	if err := resolver.Revoke(ctx, args[0]); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no such token")
		}
		return err
	}

	color.Green("Token revoked")
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}
