// resourcemcp serves a generic resource CRUD API to MCP clients.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/localrivet/resourcemcp"
	"github.com/localrivet/resourcemcp/internal/config"
	"github.com/localrivet/resourcemcp/internal/errortypes"
	"github.com/localrivet/resourcemcp/internal/logger"
)

// Version is injected during build
var Version = "dev"

type serveOptions struct {
	configPath string
	transport  string
	addr       string
	backend    string
	sqlitePath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "resourcemcp",
		Short: "resourcemcp exposes resource collections as MCP tools and resources",
		Long: `resourcemcp serves create/get/list/update/delete tools and the
T://list and T://{id} resources over stdio or streamable HTTP.

Configuration is read from .resourcemcpconfig and RESOURCEMCP_* environment
variables; flags override both.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newConfigCmd())
	return rootCmd
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", config.DefaultConfigFilename, "Path to the configuration file")
	flags.StringVarP(&opts.transport, "transport", "t", "", "Transport to serve on (stdio or http)")
	flags.StringVar(&opts.addr, "addr", "", "Listen address of the http transport")
	flags.StringVar(&opts.backend, "backend", "", "Store backend (memory or sqlite)")
	flags.StringVar(&opts.sqlitePath, "sqlite-path", "", "SQLite database path for the sqlite backend")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	return cmd
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	cfg, err := config.LoadConfigWithPath(opts.configPath)
	if err != nil {
		return errortypes.ConfigError(err, "failed to load configuration")
	}
	applyOverrides(cmd, cfg, opts)

	appLogger := setupLogging(cfg)
	appLogger.Info("resourcemcp MCP Server - Starting...", "version", Version)

	srv, err := resourcemcp.NewServer(resourcemcp.ServerOptions{Config: cfg, Logger: appLogger})
	if err != nil {
		errortypes.LogError(appLogger, err)
		return err
	}

	setupSignalHandler(srv, appLogger)

	// blocks until the transport stops
	if err := srv.Start(); err != nil {
		errortypes.LogError(appLogger, err)
		return err
	}
	return srv.Stop()
}

func applyOverrides(cmd *cobra.Command, cfg *config.Config, opts *serveOptions) {
	flags := cmd.Flags()
	if flags.Changed("transport") {
		cfg.Server.Transport = opts.transport
	}
	if flags.Changed("addr") {
		cfg.Server.Addr = opts.addr
	}
	if flags.Changed("backend") {
		cfg.Store.Backend = opts.backend
	}
	if flags.Changed("sqlite-path") {
		cfg.Store.SQLitePath = opts.sqlitePath
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
}

// setupLogging configures and returns the application logger
func setupLogging(cfg *config.Config) *slog.Logger {
	appLogger := logger.NewFromStrings(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	logger.SetDefault(appLogger)
	return appLogger
}

// setupSignalHandler sets up a signal handler for graceful shutdown.
func setupSignalHandler(srv *resourcemcp.Server, log *slog.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Info("Received shutdown signal, terminating gracefully...")

		if err := srv.Stop(); err != nil {
			errortypes.LogError(log, errortypes.InternalError(err, "error during shutdown"))
			os.Exit(1)
		}

		log.Info("Shutdown complete")
		os.Exit(0)
	}()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
