package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/unfoldingWord/door43-job-handler/internal/completion"
	"github.com/unfoldingWord/door43-job-handler/internal/svcctx"
)

var (
	callbackBuildLog  string
	callbackConverted string
)

var callbackCmd = &cobra.Command{
	Use:   "callback",
	Short: "Run the completion check and deploy when the job is done",
	Long: `Callback is what a converter or linter runs after writing its log.
It merges the stage logs for the commit named in the build log and, once
every part is ready, deploys the converted output.

Examples:
  door43 callback --build-log build_log.json --converted ./converted`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := svcctx.LoggerFrom(ctx)

		b, err := readBuildLog(callbackBuildLog)
		if err != nil {
			return err
		}
		if b == nil {
			return errors.New("--build-log is required")
		}

		outcome, final, err := svcctx.CompletionFrom(ctx).DeployIfConversionFinished(ctx, b.CommitPrefix(), b.Identifier, b)
		if err != nil {
			return err
		}
		if outcome != completion.Ready {
			logger.Info("waiting for remaining parts", "identifier", b.Identifier)
			return printResult(cmd, completeReport{Outcome: outcome.String()})
		}
		if err := svcctx.DeployerFrom(ctx).DeployRevision(ctx, final, callbackConverted); err != nil {
			return err
		}
		return printResult(cmd, completeReport{Outcome: outcome.String(), BuildLog: final})
	},
}

func init() {
	callbackCmd.Flags().StringVar(&callbackBuildLog, "build-log", "", "build log posted by the job")
	callbackCmd.Flags().StringVar(&callbackConverted, "converted", "", "directory of converted output")
	_ = callbackCmd.MarkFlagRequired("build-log")
	_ = callbackCmd.MarkFlagRequired("converted")
}
