package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/speakflow/internal/domain"
)

func newTopicsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "topics",
		Short: "List conversation topics",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			for _, t := range domain.Topics() {
				fmt.Fprintf(out, "%-12s %-22s %s\n", t.ID, t.Name, t.Description)
			}
		},
	}
}
