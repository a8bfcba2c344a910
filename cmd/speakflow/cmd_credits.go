package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/speakflow/internal/config"
	"github.com/felixgeelhaar/speakflow/internal/credits"
)

func newCreditsCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Show the ElevenLabs character quota",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			local, err := config.LoadLocalConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			apiKey := os.Getenv("ELEVENLABS_API_KEY")
			if apiKey == "" {
				apiKey = local.Voice.APIKey
			}
			baseURL := os.Getenv("ELEVENLABS_BASE_URL")
			if baseURL == "" {
				baseURL = local.Voice.BaseURL
			}
			client := credits.NewClient(credits.ClientConfig{
				APIKey:     apiKey,
				BaseURL:    baseURL,
				RetryDelay: 10 * time.Millisecond,
			})

			info, err := credits.NewService(client, nil, nil, nil).Get(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetch credits: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, info)
			}
			fmt.Fprintf(out, "Characters used:  %d / %d (%.2f%%)\n", info.CharacterCount, info.CharacterLimit, info.PercentageUsed)
			fmt.Fprintf(out, "Remaining:        %.2f%%\n", info.PercentageRemaining)
			if info.NextResetUnix > 0 {
				fmt.Fprintf(out, "Resets:           %s\n", time.Unix(info.NextResetUnix, 0).UTC().Format(time.RFC1123))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")

	return cmd
}
