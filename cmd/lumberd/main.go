package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/lumber-labs/lumber-agent/pkg/agent"
	"github.com/lumber-labs/lumber-agent/pkg/api"
	"github.com/lumber-labs/lumber-agent/pkg/config"
	"github.com/lumber-labs/lumber-agent/pkg/interp"
	"github.com/lumber-labs/lumber-agent/pkg/proxy"
	"github.com/lumber-labs/lumber-agent/pkg/proxy/httpclient"
	"github.com/lumber-labs/lumber-agent/pkg/proxy/sqlite"
	"github.com/lumber-labs/lumber-agent/pkg/proxy/storageclient"
	"github.com/lumber-labs/lumber-agent/pkg/storage"
)

// Overridden at build time via -ldflags.
var (
	version = "dev"
	build   = "0"
)

func main() {
	// 1. Setup Logger
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	// 2. Setup Context with Cancellation
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		logger.Error("lumberd exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	// CLI Flags
	flagSet := flag.NewFlagSet("lumberd", flag.ContinueOnError)
	configPath := flagSet.String("config", "", "Path to configuration file")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	remaining := flagSet.Args()
	mode := ""
	if len(remaining) > 0 {
		mode = remaining[0]
	}

	// CLI Command Dispatch
	switch mode {
	case "version":
		fmt.Printf("lumberd %s (build %s, %s)\n", version, build, runtime.Version())
		return nil
	case "clean":
		return cmdClean(logger, *configPath)
	}

	// Default: Run Server
	return cmdServe(ctx, logger, *configPath)
}

// cmdClean removes the response store contents.
func cmdClean(logger *slog.Logger, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Info("cleaning response store", "path", cfg.Storage.Dir)
	if err := os.RemoveAll(filepath.Join(cfg.Storage.Dir, "responses")); err != nil {
		logger.Error("failed to clean response store", "error", err)
		return fmt.Errorf("clean response store: %w", err)
	}
	logger.Info("cleanup complete")
	return nil
}

func cmdServe(ctx context.Context, logger *slog.Logger, configPath string) error {
	// 3. Initialize Config
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	// 4. Register Integrations
	factory := proxy.NewFactory(logger)
	factory.Register("sqlite", sqlite.New)
	factory.Register("http", httpclient.New)
	factory.Register("storage", storageclient.New)

	// 5. Wire the Agent
	store := storage.NewFSReaderWriter(cfg.Storage.Dir)
	interpreter := interp.New(cfg.Execution.MaxRecursionDepth, logger)
	a := agent.New(factory, interpreter, agent.Options{
		Store:            store,
		OffloadThreshold: cfg.Execution.OffloadThreshold,
		Version:          version,
		Build:            build,
	}, logger)
	defer a.Close()

	// 6. Run
	logger.Info("lumberd starting...", "version", version, "capabilities", a.ConnectionTypes())

	apiCfg := api.Config{
		Addr:              cfg.HTTP.Addr,
		APIKey:            cfg.HTTP.APIKey,
		CompressThreshold: cfg.Execution.CompressThreshold,
		OutboundIPURL:     cfg.Network.OutboundIPURL,
		Version:           version,
	}
	server := api.NewServer(apiCfg, a, logger)
	httpSrv := &http.Server{Addr: cfg.HTTP.Addr, Handler: server.Engine()}

	go func() {
		<-ctx.Done()
		_ = httpSrv.Shutdown(context.Background())
	}()

	logger.Info("http api listening", "addr", cfg.HTTP.Addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server error", "error", err)
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("http api stopped")
	return nil
}

func parseLogLevel(level string) slog.Level {
	normalized := strings.ToUpper(strings.TrimSpace(level))
	switch normalized {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	case "INFO", "":
		return slog.LevelInfo
	default:
		return slog.LevelInfo
	}
}
