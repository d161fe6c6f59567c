package main

import (
	"github.com/spf13/cobra"

	"github.com/unfoldingWord/door43-job-handler/internal/config"
	"github.com/unfoldingWord/door43-job-handler/internal/svcctx"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow config file changes until interrupted",
	Long: `Watch reloads the config file whenever it changes and logs the
settings the completion check and deployer would now run with.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := svcctx.LoggerFrom(ctx)
		mgr := svcctx.ConfigFrom(ctx)
		h := svcctx.HomeFrom(ctx)
		if mgr.ConfigFile() == "" {
			return config.ErrNoConfigFile
		}

		mgr.OnChange(func(cfg *config.Config) {
			ccfg, err := cfg.ToCompletionConfig()
			if err != nil {
				logger.Warn("ignoring invalid completion settings", "error", err)
				return
			}
			dcfg := cfg.ToDeployConfig(h)
			logger.Info("config reloaded",
				"lint_retry_delay", ccfg.LintRetryDelay,
				"lint_retry_attempts", ccfg.LintRetryAttempts,
				"template_key", dcfg.TemplateKey,
				"keep_temp", dcfg.KeepTemp)
		})
		mgr.WatchConfig()
		logger.Info("watching config", "file", mgr.ConfigFile())

		<-ctx.Done()
		return nil
	},
}
