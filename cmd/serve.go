package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/greeter/internal/errors"
	"github.com/conneroisu/greeter/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the widget server",
	Long: `Start the widget server with the host bridge and live updates.

Hosts connect to /bridge and send render messages; every open widget page
follows along over /ws. When widget.catalog_file is set the file is watched
and edits show up without a restart.

Examples:
  greeter serve                      # Serve on localhost:8501
  greeter serve --port 9000 --no-open
  greeter serve --locale ko          # Korean unless the viewer asks otherwise`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	AddStandardFlags(serveCmd, "server", "locale")
}

func runServe(cmd *cobra.Command, args []string) error {
	bindFlag(cmd, "server.port", "port")
	bindFlag(cmd, "server.host", "host")
	bindFlag(cmd, "server.no-open", "no-open")
	if f := cmd.Flags().Lookup("locale"); f != nil && f.Changed {
		viper.Set("widget.locale", f.Value.String())
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(cfg, cmd.ErrOrStderr())

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Starting greeter server at http://%s\n", cfg.Address())

	if err := srv.Start(ctx); err != nil {
		if errors.HasCode(err, "SERVER_LISTEN") {
			return errors.NewEnhancedError(
				fmt.Sprintf("Failed to start server on port %d", cfg.Server.Port),
				err,
				errors.ServerStartError(err, cfg.Server.Port),
			)
		}
		return fmt.Errorf("server error: %w", err)
	}

	// waits for the shutdown Start kicked off when ctx ended
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
