package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/internal/utils"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/dates"
)

// auditCmd groups audit-trail queries.
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the ingestion audit trail",
}

// summaryCmd prints aggregate statistics over the audit trail.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print summary statistics for the audit trail",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := openAuditLogger()
		if err != nil {
			return err
		}

		var start, end *time.Time
		if v, _ := cmd.Flags().GetString("start"); v != "" {
			t, err := dates.Parse(v)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			start = &t
		}
		if v, _ := cmd.Flags().GetString("end"); v != "" {
			t, err := dates.Parse(v)
			if err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}
			end = &t
		}

		s, err := logger.GenerateSummary(start, end)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintf(w, "Attempts\t%d\t\n", s.TotalAttempts)
		fmt.Fprintf(w, "Successful\t%d\t\n", s.SuccessfulAttempts)
		fmt.Fprintf(w, "Failed\t%d\t\n", s.FailedAttempts)
		fmt.Fprintf(w, "Approved\t%d\t\n", s.Approved)
		fmt.Fprintf(w, "Review\t%d\t\n", s.Review)
		fmt.Fprintf(w, "Rejected\t%d\t\n", s.Rejected)
		fmt.Fprintf(w, "Avg confidence\t%.1f\t\n", s.AverageConfidence)
		fmt.Fprintf(w, "Layer pass rates\t%.0f%% / %.0f%% / %.0f%%\t\n",
			s.Layer1PassRate*100, s.Layer2PassRate*100, s.Layer3PassRate*100)
		fmt.Fprintf(w, "Errors (crit/major/minor)\t%d / %d / %d\t\n",
			s.CriticalErrors, s.MajorErrors, s.MinorErrors)
		fmt.Fprintf(w, "Review pending\t%d\t\n", s.ReviewPending)
		w.Flush()

		if len(s.TopErrors) > 0 {
			fmt.Println("\nMost frequent errors:")
			for _, e := range s.TopErrors {
				fmt.Printf("  %4d  %s\n", e.Count, utils.TruncateString(e.Message, 90))
			}
		}
		return nil
	},
}

// pendingCmd lists entries awaiting human review.
var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List audit entries awaiting human review",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := openAuditLogger()
		if err != nil {
			return err
		}
		pending, err := logger.PendingReview()
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Println("No entries pending review.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "AUDIT ID\tTICKER\tQUARTER\tCONFIDENCE\tCREATED\t")
		for _, e := range pending {
			ticker, quarter := "?", "?"
			confidence := 0
			if e.Extraction != nil {
				ticker, quarter = e.Extraction.Ticker, e.Extraction.Quarter
			}
			if e.Validation != nil {
				confidence = e.Validation.Confidence
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t\n",
				e.AuditID, ticker, quarter, confidence, e.CreatedAt.Format("2006-01-02 15:04"))
		}
		w.Flush()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(summaryCmd)
	auditCmd.AddCommand(pendingCmd)
	summaryCmd.Flags().String("start", "", "Range start date (inclusive)")
	summaryCmd.Flags().String("end", "", "Range end date (inclusive)")
}
