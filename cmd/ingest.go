package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/internal/utils"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/dates"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/fetcher"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/pipeline"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/storage"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/transcript"
)

// ingestCmd runs the full ingestion pipeline for one transcript URL.
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch, validate and audit one transcript page",
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")
		if url == "" {
			return fmt.Errorf("--url is required")
		}

		ticker, _ := cmd.Flags().GetString("ticker")
		quarter, _ := cmd.Flags().GetString("quarter")
		year, _ := cmd.Flags().GetInt("year")
		company, _ := cmd.Flags().GetString("company")
		eventTicker, _ := cmd.Flags().GetString("event-ticker")
		expectedDateStr, _ := cmd.Flags().GetString("expected-date")
		save, _ := cmd.Flags().GetBool("save")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		verbose, _ := cmd.Flags().GetBool("verbose")

		if verbose {
			utils.SetLogLevel("debug")
		}
		// Dry run (validate + audit, no persistence) is the default mode;
		// --dry-run additionally overrides an explicit --save.
		if dryRun {
			save = false
		}

		req := pipeline.Request{
			URL: url,
			Expected: transcript.Expected{
				CompanyName: company,
				Ticker:      ticker,
				Quarter:     strings.ToUpper(quarter),
				FiscalYear:  year,
			},
			Save: save,
		}
		if eventTicker != "" {
			req.EventID = fmt.Sprintf("%s-%s-%d", strings.ToUpper(eventTicker), strings.ToUpper(quarter), year)
		}
		if expectedDateStr != "" {
			t, err := dates.Parse(expectedDateStr)
			if err != nil {
				return fmt.Errorf("invalid --expected-date: %w", err)
			}
			req.ExpectedDate = &t
			req.Expected.ExpectedDate = &t
		}

		auditor, err := openAuditLogger()
		if err != nil {
			return err
		}

		var store pipeline.Store
		dbPath, _ := cmd.Flags().GetString("dbpath")
		if dbPath != "" {
			db, err := storage.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()
			store = db
		} else if save {
			return fmt.Errorf("--save requires --dbpath")
		}

		f := fetcher.New(fetcherConfigFromViper(), nil)
		if err := f.Launch(); err != nil {
			return err
		}
		defer f.Close()

		runner := &pipeline.Runner{
			Fetcher: f,
			Store:   store,
			Auditor: auditor,
			VCfg:    validationConfigFromViper(),
		}

		outcome, err := runner.Run(cmd.Context(), req)
		if err != nil {
			return err
		}

		printOutcome(outcome, verbose)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().String("url", "", "Transcript page URL to ingest")
	ingestCmd.Flags().String("ticker", "", "Expected ticker symbol")
	ingestCmd.Flags().String("quarter", "", "Expected quarter (Q1-Q4)")
	ingestCmd.Flags().Int("year", 0, "Expected fiscal year")
	ingestCmd.Flags().String("company", "", "Expected company name")
	ingestCmd.Flags().String("event-ticker", "", "Event registry ticker used to build the event id")
	ingestCmd.Flags().String("expected-date", "", "Authoritative expected call date (YYYY-MM-DD)")
	ingestCmd.Flags().Bool("save", false, "Persist the record when the decision is approve")
	ingestCmd.Flags().Bool("dry-run", false, "Force a dry run even when --save is given")
	ingestCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	ingestCmd.Flags().String("dbpath", "", "Path to the SQLite document store")
}

func printOutcome(outcome *pipeline.Outcome, verbose bool) {
	combined := outcome.Combined
	if combined == nil {
		fmt.Println("Pipeline did not reach validation.")
		return
	}

	fmt.Printf("Decision:   %s\n", combined.AutoDecision)
	fmt.Printf("Confidence: %d/100\n", combined.Confidence)
	fmt.Printf("Layers:     1=%s 2=%s 3=%s\n",
		passFail(combined.Layer1.Passed), passFail(combined.Layer2.Passed), passFail(combined.Layer3.Passed))
	for _, reason := range combined.Reasons {
		fmt.Printf("  - %s\n", reason)
	}
	if outcome.Saved {
		fmt.Printf("Saved as record %d\n", outcome.TranscriptID)
	}
	if outcome.Entry != nil {
		fmt.Printf("Audit id:   %s\n", outcome.Entry.AuditID)
	}

	if verbose {
		for _, e := range combined.AllErrors() {
			fmt.Printf("  [%s] %s: %s\n", e.Severity, e.Field, e.Message)
		}
	}
}

func passFail(ok bool) string {
	if ok {
		return "pass"
	}
	return "FAIL"
}
