package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/jingkaihe/skillkit/pkg/presenter"
	"github.com/jingkaihe/skillkit/pkg/server"
	"github.com/spf13/cobra"
)

// NewServeConfig creates a server configuration with default values
func NewServeConfig() *server.Config {
	return &server.Config{
		Host: "localhost",
		Port: 8080,
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the skill catalog over HTTP",
	Long: `Start a local JSON API over the skill catalog:

  GET  /api/skills                              list skills
  GET  /api/skills/{name}                       load a skill body
  GET  /api/skills/{name}/references?path=...   read a direct reference
  POST /api/select                              select skills for a request
  GET  /api/hooks/schema                        structured hook output schema

The server will be available at http://localhost:8080 by default.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		config := getServeConfigFromFlags(cmd)
		runServeCommand(ctx, config)
	},
}

func init() {
	defaults := NewServeConfig()
	serveCmd.Flags().String("host", defaults.Host, "Host to bind the server to")
	serveCmd.Flags().Int("port", defaults.Port, "Port to bind the server to")
}

// getServeConfigFromFlags extracts serve configuration from command flags
func getServeConfigFromFlags(cmd *cobra.Command) *server.Config {
	config := NewServeConfig()

	if host, err := cmd.Flags().GetString("host"); err == nil {
		config.Host = host
	}
	if port, err := cmd.Flags().GetInt("port"); err == nil {
		config.Port = port
	}

	return config
}

func runServeCommand(ctx context.Context, config *server.Config) {
	rt, err := newRuntime(ctx)
	if err != nil {
		presenter.Error(err, "Failed to initialize skills")
		os.Exit(1)
	}
	defer rt.Close()

	srv, err := server.New(config, rt.loader, rt.selector)
	if err != nil {
		presenter.Error(err, "invalid server configuration")
		os.Exit(1)
	}

	logger.G(ctx).WithFields(map[string]interface{}{
		"host":   config.Host,
		"port":   config.Port,
		"skills": rt.catalog.Len(),
	}).Info("Starting skills API server")

	// Create a context that cancels on interrupt signals
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	presenter.Success(fmt.Sprintf("Skills API starting on http://%s:%d", config.Host, config.Port))
	presenter.Info("Press Ctrl+C to stop the server")

	if err := srv.Start(ctx); err != nil {
		logger.G(ctx).WithError(err).Error("server error")
		presenter.Error(err, "server failed")
		os.Exit(1)
	}

	presenter.Info("Server stopped")
}
