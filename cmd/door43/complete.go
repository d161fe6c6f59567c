package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/unfoldingWord/door43-job-handler/internal/buildlog"
	"github.com/unfoldingWord/door43-job-handler/internal/svcctx"
)

var (
	completePrefix     string
	completeIdentifier string
	completeBuildLog   string
)

var completeCmd = &cobra.Command{
	Use:   "complete",
	Short: "Merge stage logs once every part has finished",
	Long: `Complete checks whether every part of a job has finished converting
and linting. When they all have, the part logs are merged into
final_build_log.json and the commit is recorded in project.json.

Examples:
  door43 complete --prefix u/owner/repo/abc1234567 --identifier 1/owner/repo/abc1234567
  door43 complete --prefix u/owner/repo/abc1234567 --identifier 1/owner/repo/abc1234567/3/0 \
      --build-log build_log.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		base, err := readBuildLog(completeBuildLog)
		if err != nil {
			return err
		}
		outcome, final, err := svcctx.CompletionFrom(ctx).DeployIfConversionFinished(ctx, completePrefix, completeIdentifier, base)
		if err != nil {
			return err
		}
		return printResult(cmd, completeReport{Outcome: outcome.String(), BuildLog: final})
	},
}

func init() {
	completeCmd.Flags().StringVar(&completePrefix, "prefix", "", "commit prefix, e.g. u/owner/repo/commit")
	completeCmd.Flags().StringVar(&completeIdentifier, "identifier", "", "job identifier")
	completeCmd.Flags().StringVar(&completeBuildLog, "build-log", "", "build log to merge into (default: empty)")
	_ = completeCmd.MarkFlagRequired("prefix")
	_ = completeCmd.MarkFlagRequired("identifier")
}

type completeReport struct {
	Outcome  string             `json:"outcome" yaml:"outcome"`
	BuildLog *buildlog.BuildLog `json:"build_log,omitempty" yaml:"build_log,omitempty"`
}

// readBuildLog parses a local build log. An empty path yields nil.
func readBuildLog(path string) (*buildlog.BuildLog, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read build log: %w", err)
	}
	return buildlog.Parse(data)
}

