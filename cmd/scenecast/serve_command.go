package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"scenecast/internal/daemon"
	"scenecast/internal/logging"
	"scenecast/internal/workflow"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scenecast HTTP API in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			if bind != "" {
				cfg.Paths.APIBind = bind
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			for _, check := range []error{cfg.RequireAssemblyAI(), cfg.RequireLLM()} {
				if check != nil {
					logging.WarnWithContext(logger, "collaborator not configured", "config_incomplete",
						logging.Error(check),
						logging.String(logging.FieldImpact, "requests needing this service will fail until it is configured"),
					)
				}
			}

			cache, err := ctx.openCache()
			if err != nil {
				return err
			}
			defer cache.Close()

			session := workflow.NewSession(
				ctx.transcriber(logger),
				ctx.planner(logger),
				workflow.WithTranscriptCache(cache),
				workflow.WithLogger(logger),
			)
			d, err := daemon.New(cfg, session, logger, daemon.WithTranscriptCache(cache))
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := d.Start(runCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scenecast API listening on http://%s\n", d.Addr())

			<-runCtx.Done()
			logger.Info("scenecast server shutting down")
			d.Stop()
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override paths.api_bind")
	return cmd
}
