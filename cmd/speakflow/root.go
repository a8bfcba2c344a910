package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// version is set at build time via ldflags
var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "speakflow",
		Short: "Speakflow - CEFR speaking assessment tools",
		Long: `Speakflow grades spoken English on the CEFR scale.

The CLI works offline on the level scale (aggregation, improvement paths,
descriptors), manages local configuration and secrets, and serves the
level tools to MCP clients.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	cmd.AddCommand(newInitCommand())
	cmd.AddCommand(newLevelCommand())
	cmd.AddCommand(newTopicsCommand())
	cmd.AddCommand(newCreditsCommand())
	cmd.AddCommand(newMCPCommand())
	cmd.AddCommand(newSecretsCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "speakflow %s\n", version)
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
