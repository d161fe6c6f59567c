package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/unfoldingWord/door43-job-handler/internal/svcctx"
)

var (
	deployBuildLog  string
	deployConverted string
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Template converted output and publish it to the website",
	Long: `Deploy templates the converted HTML for one revision and publishes
the pages, index.json, redirects and project metadata.

Examples:
  door43 deploy --build-log final_build_log.json --converted ./converted`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		b, err := readBuildLog(deployBuildLog)
		if err != nil {
			return err
		}
		if b == nil {
			return errors.New("--build-log is required")
		}
		if err := svcctx.DeployerFrom(ctx).DeployRevision(ctx, b, deployConverted); err != nil {
			return err
		}
		return printResult(cmd, b)
	},
}

func init() {
	deployCmd.Flags().StringVar(&deployBuildLog, "build-log", "", "final build log of the revision")
	deployCmd.Flags().StringVar(&deployConverted, "converted", "", "directory of converted output")
	_ = deployCmd.MarkFlagRequired("build-log")
	_ = deployCmd.MarkFlagRequired("converted")
}
