package commands

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"roomcore/internal/httpapi"
)

const shutdownGrace = 10 * time.Second

func serveCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the placement API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, err := a.open(ctx)
			if err != nil {
				return err
			}
			opts := []httpapi.Option{httpapi.WithLogger(a.log)}
			if a.prometheus != nil {
				opts = append(opts, httpapi.WithMetricsHandler(a.prometheus.Handler()))
			}
			if a.expvar != nil {
				opts = append(opts, httpapi.WithExpvarHandler(expvar.Handler()))
			}
			e := httpapi.New(svc, opts...)

			if addr == "" {
				addr = a.cfg.HTTPAddr
			}
			errc := make(chan error, 1)
			go func() {
				a.log.Info("listening", "addr", addr, "storage", a.cfg.Storage.Driver)
				errc <- e.Start(addr)
			}()

			select {
			case err := <-errc:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}
			a.log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			return e.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default $ROOMCORE_HTTP_ADDR)")
	return cmd
}
