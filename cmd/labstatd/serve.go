package main

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/danilshahmanov/Infotecs/internal/loader"
	"github.com/danilshahmanov/Infotecs/internal/logging"
	"github.com/danilshahmanov/Infotecs/internal/server"
)

var listenOverride string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup()
		if err != nil {
			return err
		}

		srvCfg := loader.ToServerConfig(&a.cfg.Server)
		if listenOverride != "" {
			srvCfg.ListenAddress = listenOverride
		}

		gin.SetMode(gin.ReleaseMode)
		srv := server.New(srvCfg, server.Deps{
			Ingester: a.ingestion,
			Exporter: a.exporter,
			Querier:  a.query,
			Files:    a.store,
			Metrics:  a.metrics,
			Closers:  []io.Closer{a},
		})

		ctx, cancel := handleSignals(cmd.Context())
		defer cancel()

		logging.Info("labstatd starting", "version", Version, "listen", srvCfg.ListenAddress, "store", a.cfg.Store.Path)
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenOverride, "listen", "", "listen address (overrides config)")
}
