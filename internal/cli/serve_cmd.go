package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	apphttp "bommel/internal/http"
	"bommel/internal/log"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(app *App) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tree page and JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			coord, err := app.Coordinator(ctx)
			if err != nil {
				return err
			}
			res, err := app.Backend(ctx)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("port") {
				port = app.Config.Port
			}

			logger := app.Logger.WithComponent(log.ComponentHTTP)
			srv := apphttp.NewServer(apphttp.Config{
				Addr:               net.JoinHostPort("", port),
				RateLimitPerMinute: app.Config.RateLimitPerMinute,
				CacheTTL:           app.Config.CacheTTL,
				CacheSize:          app.Config.CacheSize,
			}, coord, res.Backend, res.Ping, logger)

			runCtx, done := GracefulShutdown(ctx, app.Logger, shutdownTimeout, func(shutdownCtx context.Context) {
				if err := srv.Shutdown(shutdownCtx); err != nil {
					app.Logger.Error("Server shutdown error", log.FieldError, err)
				}
			})

			app.Logger.Info("Starting server",
				log.FieldOperation, log.OpStartup,
				"addr", srv.Addr,
				"backend", app.Config.DataBackend,
				log.FieldOrganizationID, coord.OrganizationID(),
			)
			serveErr := srv.ListenAndServe()
			if errors.Is(serveErr, http.ErrServerClosed) {
				serveErr = nil
			}
			if serveErr == nil {
				<-runCtx.Done()
				<-done
			}
			return serveErr
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Listen port (defaults to PORT)")

	return cmd
}
