package main

import (
	"github.com/golovatskygroup/journey-lens/internal/logging"
	"github.com/golovatskygroup/journey-lens/internal/server"
	"github.com/spf13/cobra"
)

func (a *app) newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Serve the journey API:

  GET  /healthz              stages and tool counts
  GET  /journey/{stageId}    stage manifest
  POST /v1/converse          answer an utterance and check it against a stage's tools
  POST /v1/demonstrate       stream the activated tool's demonstration (SSE)
  GET  /v1/runs[/{runId}]    journaled demonstrations (when journal.path is set)
  GET  /metrics              Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			st, err := buildStack(cfg, a.stderr)
			if err != nil {
				return err
			}
			defer st.Close()

			opts := []server.Option{
				server.WithLogger(logging.Component(st.logger, "http")),
				server.WithMetrics(st.metrics, st.registry),
				server.WithTimeouts(cfg.Server.RequestTimeout, cfg.Server.ShutdownTimeout),
			}
			if st.journal != nil {
				opts = append(opts, server.WithRunStore(st.journal))
			}
			srv, err := server.New(st.pipeline, st.orch, st.catalog, opts...)
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context(), cfg.Server.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}
