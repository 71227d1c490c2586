package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/trialscope/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web dashboard",
	Long: `Start the web dashboard and JSON API.

Records are reloaded when the CSV files change, unless --no-watch is set.

Examples:
  trialscope serve                  # Listen on the configured address (:8080)
  trialscope serve --addr :3000     # Listen on port 3000
  trialscope serve --no-watch       # Load once; reload with POST /api/v1/reload`,
	RunE: runServe,
}

var (
	serveAddr    string
	serveNoWatch bool
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Address to listen on (overrides server.addr)")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Do not reload when the data changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutting down")
		cancel()
	}()

	app, err := NewAppContext(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	// A failed first load still serves; the status endpoint reports the error.
	if err := app.Load(ctx); err != nil {
		log.WithError(err).Error("initial load failed")
	}

	if cfg.Data.Watch && !serveNoWatch {
		go func() {
			if err := app.Store.Watch(ctx); err != nil {
				log.WithError(err).Error("watching records failed")
			}
		}()
	}

	server := web.NewServer(cfg, app.API, app.API, app.API, app.Store, app.Metrics)
	return server.Start(ctx)
}
