package main

import (
	"fmt"
	"path"
	"time"

	"github.com/spf13/cobra"

	"github.com/unfoldingWord/door43-job-handler/internal/buildlog"
	"github.com/unfoldingWord/door43-job-handler/internal/completion"
	"github.com/unfoldingWord/door43-job-handler/internal/svcctx"
)

var (
	stagePrefix     string
	stageIdentifier string
	stageFailed     bool
	stageInfo       []string
	stageWarnings   []string
	stageErrors     []string

	convertJobID   string
	convertModule  string
	convertStarted string
	convertFinish  bool
)

var stageCmd = &cobra.Command{
	Use:   "stage",
	Short: "Record linter and converter results",
	Long: `Stage commands write the per-part logs that the completion check
waits for. A part is complete once its convert log, lint log and finished
marker are all present under its prefix.

Examples:
  door43 stage lint --prefix u/owner/repo/abc1234567 --identifier 1/owner/repo/abc1234567
  door43 stage convert --prefix u/owner/repo/abc1234567 --identifier 1/owner/repo/abc1234567 \
      --job-id 1 --module md2html --finish`,
}

var stageLintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Write the lint log for a part",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		b := buildlog.NewLintLog(stageReport())
		key := path.Join(stagePrefix, completion.LintLogKey)
		if err := svcctx.CDNFrom(ctx).PutJSON(ctx, key, b, 0); err != nil {
			return fmt.Errorf("failed to write lint log: %w", err)
		}
		svcctx.LoggerFrom(ctx).Info("lint log written", "key", key)
		return printResult(cmd, b)
	},
}

var stageConvertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Write the convert log for a part",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := svcctx.LoggerFrom(ctx)
		cdn := svcctx.CDNFrom(ctx)

		job := buildlog.ConvertJob{JobID: convertJobID, ConvertModule: convertModule}
		if convertStarted != "" {
			t, err := time.Parse(time.RFC3339, convertStarted)
			if err != nil {
				return fmt.Errorf("failed to parse --started: %w", err)
			}
			job.StartedAt = t
		}
		b := buildlog.NewConvertLog(job, stageReport(), time.Now())

		key := path.Join(stagePrefix, completion.ConvertLogKey)
		if err := cdn.PutJSON(ctx, key, b, 0); err != nil {
			return fmt.Errorf("failed to write convert log: %w", err)
		}
		logger.Info("convert log written", "key", key, "status", b.Status)
		if convertFinish {
			marker := path.Join(stagePrefix, completion.FinishedKey)
			if err := cdn.Put(ctx, marker, nil, 0); err != nil {
				return fmt.Errorf("failed to write finished marker: %w", err)
			}
			logger.Info("part finished", "key", marker)
		}
		return printResult(cmd, b)
	},
}

func init() {
	for _, c := range []*cobra.Command{stageLintCmd, stageConvertCmd} {
		c.Flags().StringVar(&stagePrefix, "prefix", "", "part prefix in the converted-output store")
		c.Flags().StringVar(&stageIdentifier, "identifier", "", "job identifier")
		c.Flags().BoolVar(&stageFailed, "failed", false, "mark the stage as failed")
		c.Flags().StringArrayVar(&stageInfo, "info", nil, "log line (repeatable)")
		c.Flags().StringArrayVar(&stageWarnings, "warning", nil, "warning (repeatable)")
		c.Flags().StringArrayVar(&stageErrors, "error", nil, "error (repeatable)")
		_ = c.MarkFlagRequired("prefix")
		_ = c.MarkFlagRequired("identifier")
	}
	stageConvertCmd.Flags().StringVar(&convertJobID, "job-id", "", "conversion job id")
	stageConvertCmd.Flags().StringVar(&convertModule, "module", "", "converter name")
	stageConvertCmd.Flags().StringVar(&convertStarted, "started", "", "conversion start time (RFC 3339)")
	stageConvertCmd.Flags().BoolVar(&convertFinish, "finish", false, "also write the finished marker")

	stageCmd.AddCommand(stageLintCmd)
	stageCmd.AddCommand(stageConvertCmd)
}

func stageReport() buildlog.StageReport {
	return buildlog.StageReport{
		Identifier: stageIdentifier,
		Success:    !stageFailed,
		Info:       stageInfo,
		Warnings:   stageWarnings,
		Errors:     stageErrors,
	}
}
