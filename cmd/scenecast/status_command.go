package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scenecast/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check configuration, collaborators and the local server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			checkCtx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			var lines []string
			lines = append(lines, renderSectionHeader("Configuration", colorize)...)
			configPath := ctx.configPath
			if configPath == "" {
				configPath = "(defaults)"
			}
			lines = append(lines, renderStatusLine("Config", statusInfo, configPath, colorize))
			lines = append(lines, renderStatusLine("AssemblyAI key", keyKind(cfg.AssemblyAI.APIKey), yesNo(cfg.AssemblyAI.APIKey != ""), colorize))
			lines = append(lines, renderStatusLine("Planner key", keyKind(cfg.LLM.APIKey), yesNo(cfg.LLM.APIKey != ""), colorize))
			lines = append(lines, renderStatusLine("API token", statusInfo, yesNo(cfg.Paths.APIToken != ""), colorize))

			var results []preflight.Result
			if offline {
				results = preflight.CheckDirectories(cfg)
			} else {
				results = preflight.RunAll(checkCtx, cfg)
			}
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}

			server := preflight.CheckServer(checkCtx, cfg.Paths.APIBind, cfg.Paths.APIToken)
			serverKind := statusWarn
			if server.Running {
				serverKind = statusOK
			}
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Server", colorize)...)
			lines = append(lines, renderStatusLine("API", serverKind, server.Summary(), colorize))
			if server.State != "" {
				lines = append(lines, renderStatusLine("Session", statusInfo, server.State, colorize))
			}

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip network checks against AssemblyAI and the planner")
	return cmd
}

func keyKind(key string) statusKind {
	if strings.TrimSpace(key) == "" {
		return statusWarn
	}
	return statusOK
}
