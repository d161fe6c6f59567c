package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/unfoldingWord/door43-job-handler/internal/completion"
	"github.com/unfoldingWord/door43-job-handler/internal/config"
	"github.com/unfoldingWord/door43-job-handler/internal/deploy"
	"github.com/unfoldingWord/door43-job-handler/internal/home"
	"github.com/unfoldingWord/door43-job-handler/internal/output"
	"github.com/unfoldingWord/door43-job-handler/internal/storage"
	"github.com/unfoldingWord/door43-job-handler/internal/svcctx"
	"github.com/unfoldingWord/door43-job-handler/version"
)

// skipServices marks commands that run without config or stores.
const skipServices = "door43.skip-services"

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logFormat    string

	outFormat = output.Default
)

var rootCmd = &cobra.Command{
	Use:   "door43",
	Short: "Door43 content pipeline job handler",
	Long: `door43 runs the stages that turn a resource container pushed to the
git host into pages on the Door43 website.

The pipeline includes:
  - Preprocessing resource containers into converter-ready markdown or USFM
  - Templating converted HTML into the project page shell
  - Merging convert and lint logs once every part has finished
  - Deploying templated pages, redirects and project metadata`,
	Version:      version.GitRelease,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		f, err := output.ParseFormat(outputFormat)
		if err != nil {
			return err
		}
		outFormat = f

		if cmd.Annotations[skipServices] != "" {
			return nil
		}
		svcs, err := buildServices()
		if err != nil {
			return err
		}
		cmd.SetContext(svcctx.WithServices(cmd.Context(), svcs))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.door43/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "door43 home directory (default: ~/.door43)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", string(output.Default), "output format: yaml, json or table",
	)
	rootCmd.PersistentFlags().StringVar(
		&logFormat, "log-format", "", "log handler: text or json (overrides log.format)",
	)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(preprocessCmd)
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(stageCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(callbackCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(watchCmd)
}

// buildServices wires the home directory, config, logger, stores and
// pipeline components.
func buildServices() (*svcctx.Services, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, fmt.Errorf("failed to create home directory: %w", err)
	}

	path := cfgFile
	if path == "" && h.ConfigExists() {
		path = h.ConfigPath()
	}
	mgr, err := config.NewManager(path)
	if err != nil {
		return nil, err
	}
	cfg := mgr.Get()

	format := cfg.Log.Format
	if logFormat != "" {
		format = logFormat
	}
	logger, err := newLogger(os.Stderr, format, cfg.SlogLevel())
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	cdnRoot, siteRoot := cfg.StorageRoots(h)
	cdn, err := storage.NewFS(cdnRoot)
	if err != nil {
		return nil, err
	}
	var site storage.Store = cdn
	if siteRoot != cdnRoot {
		fs, err := storage.NewFS(siteRoot)
		if err != nil {
			return nil, err
		}
		site = fs
	}

	ccfg, err := cfg.ToCompletionConfig()
	if err != nil {
		return nil, err
	}
	logger.Debug("services ready", "home", h.Path(), "config", mgr.ConfigFile(), "cdn", cdnRoot, "site", siteRoot)

	return &svcctx.Services{
		Config:     mgr,
		Home:       h,
		Logger:     logger,
		CDN:        cdn,
		Site:       site,
		Completion: completion.New(cdn, site, ccfg, logger),
		Deployer:   deploy.New(cdn, site, cfg.ToDeployConfig(h), nil, logger),
	}, nil
}

func newLogger(w io.Writer, format string, level slog.Level) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format: %s", format)
	}
}

// printResult writes data in the selected --output format.
func printResult(cmd *cobra.Command, data any) error {
	return output.Write(cmd.OutOrStdout(), outFormat, data)
}
