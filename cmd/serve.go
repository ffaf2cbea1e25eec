package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vtable/vtable/internal/api"
	"github.com/vtable/vtable/internal/engine"
	"github.com/vtable/vtable/internal/ws"
)

var (
	servePort    int
	serveDevMode bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the JSON API on localhost. Schema changes are pushed to
WebSocket clients connected at /api/ws.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}
		if cmd.Flags().Changed("dev") {
			cfg.Server.DevMode = serveDevMode
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}

		sess, err := openSessionWith(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer sess.close()

		var eng *engine.Engine
		hub := ws.NewHub(logger,
			ws.WithSnapshot(func(ctx context.Context) ([]byte, error) { return eng.Snapshot(ctx) }),
			ws.WithDevMode(cfg.Server.DevMode),
		)
		eng = sess.engineWith(engine.WithNotifier(hub))
		go hub.Run(ctx)

		srv := api.New(eng, logger, cfg.Server.Port,
			api.WithHub(hub),
			api.WithDevMode(cfg.Server.DevMode),
		)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		fmt.Fprintf(os.Stderr, "vtable API: http://localhost:%d\n", cfg.Server.Port)

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case <-ctx.Done():
			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port for the API server (default from config, 8230)")
	serveCmd.Flags().BoolVar(&serveDevMode, "dev", false, "enable CORS and cross-origin WebSocket for development")
	rootCmd.AddCommand(serveCmd)
}
