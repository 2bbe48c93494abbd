package mcp

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/morikuni/failure/v2"
	"github.com/spf13/cobra"
	"github.com/stylusport/handbook-mcp/config"
	"github.com/stylusport/handbook-mcp/log"
	"github.com/stylusport/handbook-mcp/metrics"
)

// Command returns the MCP server command. load supplies the configuration
// resolved by the parent command.
func Command(version string, load func() (config.Config, error)) *cobra.Command {
	var workers int
	var framing string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server on stdin/stdout",
		Long: `Start the StylusPort::Solana MCP server.

The server speaks JSON-RPC 2.0 over stdin and stdout, using newline delimited
or Content-Length framed messages. Logs are written to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				cfg.Server.Workers = workers
			}
			if cmd.Flags().Changed("framing") {
				cfg.Server.Framing = framing
			}
			return runMCP(cmd, cfg, version)
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", DefaultWorkers, "Number of worker goroutines")
	cmd.Flags().StringVar(&framing, "framing", "auto", "Message framing: auto, line or header")
	return cmd
}

func runMCP(cmd *cobra.Command, cfg config.Config, version string) error {
	mode, err := ParseFraming(cfg.Server.Framing)
	if err != nil {
		return failure.Wrap(err, failure.WithCode(config.InvalidConfig), failure.Message(err.Error()))
	}
	if cfg.Server.Workers <= 0 {
		return failure.New(config.InvalidConfig, failure.Message("workers must be positive"))
	}

	session, err := NewSessionFromConfig(cfg, version)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder := metrics.New()
	server := NewServer(session, Options{
		Workers:         cfg.Server.Workers,
		Framing:         mode,
		MaxMessageBytes: cfg.Server.MaxMessageBytes,
		Metrics:         recorder,
	})

	log.Info("Starting MCP server",
		"version", version,
		"workers", cfg.Server.Workers,
		"framing", mode,
		"resources", session.Corpus().Len(),
	)
	serveErr := server.Serve(ctx, os.Stdin, os.Stdout)

	if err := recorder.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		log.Warn("Failed to export metrics", "error", err)
	}
	log.Info("MCP server stopped")
	return serveErr
}
