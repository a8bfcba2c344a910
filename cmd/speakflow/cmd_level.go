package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/speakflow/internal/domain"
)

func newLevelCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "level",
		Short: "Work with the CEFR level scale",
	}

	cmd.AddCommand(newLevelListCommand())
	cmd.AddCommand(newLevelAggregateCommand())
	cmd.AddCommand(newLevelPathCommand())
	cmd.AddCommand(newLevelDescribeCommand())

	return cmd
}

func newLevelListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the eleven levels, lowest first",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			for _, l := range domain.Levels() {
				fmt.Fprintf(out, "%-4s %4.1f  %-20s %s\n", l, l.Rank(), l.BandName(), domain.GlobalDescriptor(l))
			}
		},
	}
}

func newLevelAggregateCommand() *cobra.Command {
	var asJSON bool
	levels := make(map[domain.Criterion]*string, len(domain.Criteria()))

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Combine five criterion levels into an overall level",
		Long: `Combine five criterion levels into an overall level.

Every criterion is required, for example:

  speakflow level aggregate --range B2 --accuracy B1 --fluency B1+ \
    --interaction B2 --coherence B1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed := make(map[domain.Criterion]domain.Level, len(levels))
			for c, raw := range levels {
				if strings.TrimSpace(*raw) == "" {
					return fmt.Errorf("--%s is required", c)
				}
				l, err := domain.ParseLevel(*raw)
				if err != nil {
					return fmt.Errorf("--%s: %w", c, err)
				}
				parsed[c] = l
			}

			a, err := domain.AssessmentFromMap(parsed)
			if err != nil {
				return err
			}

			agg := domain.NewLevelAggregator()
			overall := agg.Aggregate(a)
			result := struct {
				OverallLevel domain.Level           `json:"overall_level"`
				WeightedRank float64                `json:"weighted_rank"`
				Confidence   domain.Confidence      `json:"confidence"`
				RankSpread   float64                `json:"rank_spread"`
				Path         domain.ImprovementPath `json:"improvement_path"`
			}{
				OverallLevel: overall,
				WeightedRank: agg.WeightedRank(a),
				Confidence:   domain.AssessConfidence(a),
				RankSpread:   domain.RankSpread(a),
				Path:         agg.ImprovementPath(overall),
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, result)
			}
			fmt.Fprintf(out, "Overall level:  %s\n", result.OverallLevel)
			fmt.Fprintf(out, "Weighted rank:  %.2f\n", result.WeightedRank)
			fmt.Fprintf(out, "Confidence:     %s (spread %.1f)\n", result.Confidence, result.RankSpread)
			printPath(cmd, result.Path)
			return nil
		},
	}

	for _, c := range domain.Criteria() {
		levels[c] = cmd.Flags().String(string(c), "", fmt.Sprintf("Level for %s", c.DisplayName()))
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")

	return cmd
}

func newLevelPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path <level>",
		Short: "Show the next level and three focus areas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := domain.ParseLevel(args[0])
			if err != nil {
				return err
			}
			printPath(cmd, domain.NewLevelAggregator().ImprovementPath(l))
			return nil
		},
	}
}

func newLevelDescribeCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "describe <level>",
		Short: "Show the descriptors of a level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := domain.ParseLevel(args[0])
			if err != nil {
				return err
			}
			d := domain.Describe(l)

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, d)
			}
			fmt.Fprintf(out, "%s (%s, rank %.1f)\n", d.Level, d.BandName, d.Rank)
			fmt.Fprintf(out, "%s\n\n", d.GlobalDescriptor)
			for _, c := range domain.Criteria() {
				fmt.Fprintf(out, "%-12s %s\n", c.DisplayName(), d.CriterionDescriptors[c])
			}
			fmt.Fprintln(out)
			printPath(cmd, d.Path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")

	return cmd
}

func printPath(cmd *cobra.Command, p domain.ImprovementPath) {
	out := cmd.OutOrStdout()
	if p.IsTerminal() {
		fmt.Fprintf(out, "Next level:     none (%s is the top of the scale)\n", p.Current)
	} else {
		fmt.Fprintf(out, "Next level:     %s\n", *p.Next)
	}
	fmt.Fprintln(out, "Focus areas:")
	for _, area := range p.FocusAreas {
		fmt.Fprintf(out, "  - %s\n", area)
	}
}
