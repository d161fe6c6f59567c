package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unfoldingWord/door43-job-handler/internal/config"
	"github.com/unfoldingWord/door43-job-handler/internal/home"
	"github.com/unfoldingWord/door43-job-handler/internal/svcctx"
)

var initForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change configuration",
	Long: `Config commands read and write the door43 config file.

Examples:
  door43 config init
  door43 config show -o table
  door43 config get completion.lint_retry_delay
  door43 config set deploy.keep_temp true`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show every configuration key and its value",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResult(cmd, entryList(svcctx.ConfigFrom(cmd.Context()).All()))
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := svcctx.ConfigFrom(cmd.Context()).Value(args[0])
		if err != nil {
			return err
		}
		return printResult(cmd, v)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write one configuration value to the config file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := svcctx.ConfigFrom(cmd.Context()).Set(args[0], args[1]); err != nil {
			return err
		}
		svcctx.LoggerFrom(cmd.Context()).Info("config updated", "key", args[0])
		return nil
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset <key>",
	Short: "Restore one configuration value to its default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return svcctx.ConfigFrom(cmd.Context()).Reset(args[0])
	},
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write the default config file to the home directory",
	Annotations: map[string]string{skipServices: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}
		path := h.ConfigPath()
		if h.ConfigExists() && !initForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configResetCmd)
	configCmd.AddCommand(configInitCmd)
}

type entryList []config.Entry

func (l entryList) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(l))
	for _, e := range l {
		rows = append(rows, []string{e.Key, fmt.Sprint(e.Value), e.Description})
	}
	return []string{"KEY", "VALUE", "DESCRIPTION"}, rows
}

