package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/vrsandeep/qa-harvest/internal/jobs"
	"github.com/vrsandeep/qa-harvest/internal/models"
)

var (
	runTemplate string
	runOut      string
	runInterval time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run [flags] FILE...",
	Short: "Process PDFs or archives of PDFs into a report",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBatch,
}

func init() {
	runCmd.Flags().StringVarP(&runTemplate, "template", "t", "", "spreadsheet template (required)")
	runCmd.Flags().StringVarP(&runOut, "out", "o", "", "where to write the report (default: generated name in the current directory)")
	runCmd.Flags().DurationVar(&runInterval, "poll", 250*time.Millisecond, "progress polling interval")
	runCmd.MarkFlagRequired("template")
	rootCmd.AddCommand(runCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	template, err := os.ReadFile(runTemplate)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}

	req := jobs.StartRequest{Template: template}
	for _, p := range args {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		req.Files = append(req.Files, models.FileDescriptor{Name: filepath.Base(p), Data: data})
	}

	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	job, err := app.Jobs.Start(context.Background(), req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	ticker := time.NewTicker(runInterval)
	defer ticker.Stop()
	for done := false; !done; {
		select {
		case <-job.Done():
			done = true
		case <-ticker.C:
		}
		printMessages(out, app.Jobs.Poll())
	}

	snap := job.Snapshot()
	fmt.Fprintf(out, "\n%d files:", snap.Total)
	for _, s := range models.AllStatuses {
		fmt.Fprintf(out, " %s=%d", string(s), snap.Counts[s])
	}
	fmt.Fprintln(out)

	if snap.State != models.JobComplete {
		return errors.New("job failed: " + snap.Error)
	}

	art, err := app.Jobs.Result(job.ID)
	if err != nil {
		return err
	}
	dest := runOut
	if dest == "" {
		dest = art.FileName
	}
	if err := os.WriteFile(dest, art.Data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Fprintf(out, "Report written to %s\n", dest)
	return nil
}

func printMessages(w io.Writer, msgs []models.ProgressMessage) {
	for _, m := range msgs {
		switch m.Type {
		case models.MessageLog:
			fmt.Fprintf(w, "%-5s %s\n", m.Level, m.Text)
		case models.MessageReviewItem:
			fmt.Fprintf(w, "review %s: %s\n", m.Review.FileName, m.Review.Reason)
		case models.MessageFinish:
			fmt.Fprintf(w, "finished: %s\n", m.Outcome)
		}
	}
}
