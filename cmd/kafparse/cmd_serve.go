package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/cognicore/kafparse/internal/diag"
	"github.com/cognicore/kafparse/internal/httpapi"
	"github.com/cognicore/kafparse/pkg/kafparse/config"
	"github.com/cognicore/kafparse/pkg/kafparse/store"
	"github.com/cognicore/kafparse/pkg/kafparse/store/sqlite"
)

func newServeCmd() *cobra.Command {
	var (
		addr       string
		configPath string
		cachePath  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the parser over HTTP",
		Long: `Serve the parser over HTTP.

POST a KAF document to /parse; the query parameters lang, model, format,
kaf, heads and fail_fast override the configuration per request.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := diag.Logger("http")

			base := config.Default()
			if configPath != "" {
				var err error
				if base, err = config.Load(configPath); err != nil {
					return err
				}
			}
			if cachePath != "" {
				base.Cache = cachePath
			}
			if err := base.Validate(); err != nil {
				return err
			}

			var cache store.Cache
			if base.Cache != "" {
				c, err := sqlite.OpenSQLite(ctx, base.Cache)
				if err != nil {
					return err
				}
				defer c.Close()
				cache = c
			}

			srv := &http.Server{
				Addr:         addr,
				Handler:      httpapi.NewServer(httpapi.Options{Base: base, Cache: cache, Logger: log}),
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 120 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			return serve(ctx, srv, ln, log)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&configPath, "config", "", "YAML configuration file used as the per-request base")
	cmd.Flags().StringVar(&cachePath, "cache", "", "SQLite parse cache file")
	return cmd
}

// shutdownTimeout bounds the wait for in-flight requests.
var shutdownTimeout = 10 * time.Second

// serve runs srv on ln until ctx is done, then shuts it down gracefully.
// A failed shutdown is logged and returned.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, log commonlog.Logger) error {
	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		log.Notice("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if err != nil {
			log.Errorf("shutdown: %v", err)
		}
		done <- err
	}()

	log.Noticef("listening on %s", ln.Addr())
	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-done
}
