package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/qinglingtaxue/youtube--sub001/pkg/analytics"
	"github.com/qinglingtaxue/youtube--sub001/pkg/errcode"
	"github.com/qinglingtaxue/youtube--sub001/pkg/quadrant"
	"github.com/qinglingtaxue/youtube--sub001/pkg/report"
	"github.com/qinglingtaxue/youtube--sub001/pkg/validation"
)

var (
	// ranking command flags
	rankReq validation.RankingRequest
	// quadrants command flags
	quadReq validation.QuadrantRequest
	// report command flags
	reportReq validation.ReportRequest
)

func init() {
	rootCmd.AddCommand(rankingCmd, quadrantsCmd, reportCmd)

	rankingCmd.Flags().StringVar(&rankReq.Dimension, "dimension", "", "Restrict to video, channel or keyword")
	rankingCmd.Flags().StringVar(&rankReq.Window, "window", "", "Time window: 7d, 30d, 90d or all")
	rankingCmd.Flags().StringVar(&rankReq.RankingKey, "key", "", "Sort key: interestingness, betweenness, closeness or opportunity")
	rankingCmd.Flags().IntVar(&rankReq.Limit, "limit", 0, "Page size (1-100)")
	rankingCmd.Flags().IntVar(&rankReq.Offset, "offset", 0, "Page offset")

	quadrantsCmd.Flags().StringVar(&quadReq.Dimension, "dimension", "", "video, channel or keyword (required)")
	quadrantsCmd.Flags().StringVar(&quadReq.Window, "window", "", "Time window")
	_ = quadrantsCmd.MarkFlagRequired("dimension")

	reportCmd.Flags().StringVar(&reportReq.VideoID, "video", "", "Focus on a video id")
	reportCmd.Flags().StringVar(&reportReq.ChannelID, "channel", "", "Focus on a channel id")
	reportCmd.Flags().StringVar(&reportReq.Window, "window", "", "Time window")
	reportCmd.MarkFlagsMutuallyExclusive("video", "channel")
}

var rankingCmd = &cobra.Command{
	Use:   "ranking",
	Short: "Rank nodes by opportunity",
	Long: `Rank the videos, channels and keywords of a window.

Examples:
  oppctl ranking --dimension keyword --key opportunity --limit 10`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := validation.ValidateRankingRequest(&rankReq); err != nil {
			return err
		}
		e, err := newEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		out, err := e.service.GetRanking(cmd.Context(), rankReq.Query())
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), out)
		}
		printRanking(cmd.OutOrStdout(), out)
		return nil
	},
}

var quadrantsCmd = &cobra.Command{
	Use:   "quadrants",
	Short: "Classify one dimension into supply/demand quadrants",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := validation.ValidateQuadrantRequest(&quadReq); err != nil {
			return err
		}
		e, err := newEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		out, err := e.service.GetQuadrants(cmd.Context(), quadReq.Query())
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), out)
		}
		printMatrix(cmd.OutOrStdout(), out)
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Synthesize a research report",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := validation.ValidateReportRequest(&reportReq); err != nil {
			return err
		}
		e, err := newEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		out, err := e.service.GetReport(cmd.Context(), reportReq.Query())
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), out)
		}
		printReport(cmd.OutOrStdout(), out)
		return nil
	},
}

func printWarnings(w io.Writer, warnings []errcode.Warning) {
	for _, warn := range warnings {
		fmt.Fprintf(w, "warning: %s: %s\n", warn.Code, warn.Message)
	}
}

func printRanking(w io.Writer, r *analytics.Ranking) {
	fmt.Fprintf(w, "window %s  key %s  %d of %d", r.Window, r.Key, len(r.Items), r.Total)
	if r.Approximate {
		fmt.Fprint(w, "  (approximate)")
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNODE\tKIND\tINTEREST\tBETWEEN\tCLOSE\tCOMPETITION\tOPPORTUNITY")
	for _, s := range r.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.4f\t%.4f\t%.4f\t%.2f\t%.4f\n",
			s.Rank, s.NodeID, s.Kind, s.Interestingness, s.Betweenness, s.Closeness, s.Competition, s.Opportunity)
	}
	_ = tw.Flush()
	printWarnings(w, r.Warnings)
}

func printMatrix(w io.Writer, m *analytics.Matrix) {
	fmt.Fprintf(w, "%s in window %s: %d items\n", m.Dimension, m.Window, m.Total)
	fmt.Fprintf(w, "x: %s split at %.4g, y: %s split at %.4g\n", m.X.Name, m.X.Threshold, m.Y.Name, m.Y.Threshold)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "QUADRANT\tLABEL\tCOUNT\tMEMBERS")
	for _, id := range quadrant.IDs {
		q, ok := m.Quadrants[id]
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", q.ID, q.Label, q.Count, strings.Join(q.Members, ", "))
	}
	_ = tw.Flush()
	printWarnings(w, m.Warnings)
}

func printReport(w io.Writer, r *report.Report) {
	fmt.Fprintln(w, r.Synthesis.Headline)
	if r.Synthesis.Summary != "" {
		fmt.Fprintln(w, r.Synthesis.Summary)
	}
	fmt.Fprintf(w, "confidence %.2f, %d conclusions from %d modules\n",
		r.Synthesis.Confidence, r.Synthesis.ConclusionCount, r.Synthesis.ModuleCount)
	if r.Degraded {
		fmt.Fprintf(w, "degraded: missing %s\n", strings.Join(r.MissingModules, ", "))
	}
	for _, c := range r.Conclusions {
		fmt.Fprintf(w, "\n[P%d] %s (%s, %.2f)\n  %s\n", c.Priority, c.Title, c.Module, c.Confidence, c.Summary)
		for _, a := range c.ActionItems {
			fmt.Fprintf(w, "  - %s\n", a)
		}
	}
	printWarnings(w, r.Warnings)
}
