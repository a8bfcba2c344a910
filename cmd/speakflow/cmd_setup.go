package main

import (
	"bufio"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/speakflow/internal/config"
)

// secretNames are the entries accepted by "secrets set".
var secretNames = []string{config.ProviderGemini, config.ProviderOpenAI, config.VoiceSecretName}

func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create ~/.speakflow with a default configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			fmt.Fprint(out, "Creating ~/.speakflow directory structure... ")
			if _, err := config.EnsureSpeakflowDir(); err != nil {
				return fmt.Errorf("create directories: %w", err)
			}
			fmt.Fprintln(out, "done")

			configPath, err := config.LocalConfigPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				if err := config.SaveLocalConfig(config.DefaultLocalConfig()); err != nil {
					return fmt.Errorf("save config: %w", err)
				}
				fmt.Fprintf(out, "Wrote default configuration to %s\n", configPath)
			} else {
				fmt.Fprintf(out, "Configuration already exists at %s\n", configPath)
			}

			fmt.Fprintln(out, "\nNext: speakflow secrets set gemini <api-key>")
			return nil
		},
	}
}

func newSecretsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Manage API keys in ~/.speakflow/secrets.yaml",
	}
	cmd.AddCommand(newSecretsSetCommand())
	return cmd
}

func newSecretsSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <" + strings.Join(secretNames, "|") + "> [key]",
		Short: "Store an API key; reads it from stdin when omitted",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.ToLower(args[0])
			if !slices.Contains(secretNames, name) {
				return fmt.Errorf("unknown secret %q (valid: %s)", args[0], strings.Join(secretNames, ", "))
			}

			var key string
			if len(args) == 2 {
				key = args[1]
			} else {
				fmt.Fprintf(cmd.ErrOrStderr(), "Enter %s API key: ", name)
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read key: %w", err)
				}
				key = line
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return fmt.Errorf("empty key")
			}

			if err := config.SaveSecrets(map[string]string{name: key}); err != nil {
				return fmt.Errorf("save secrets: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s key\n", name)
			return nil
		},
	}
}
