package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/unfoldingWord/door43-job-handler/internal/preprocess"
	"github.com/unfoldingWord/door43-job-handler/internal/rc"
	"github.com/unfoldingWord/door43-job-handler/internal/svcctx"
)

var (
	preSource  string
	preOutput  string
	preSubject string
	preRepo    string
	preOwner   string
)

var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Prepare a resource container for conversion",
	Long: `Preprocess reads a resource container and writes the files the
converter expects: manifest.yaml, the variant output and index.json.

The resource subject selects the preprocessor. When --subject is empty
the subject is read from the container manifest.

Examples:
  door43 preprocess --source ./en_ulb --output ./out
  door43 preprocess --source ./en_ta --output ./out --owner unfoldingWord`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := svcctx.LoggerFrom(ctx)
		cfg := svcctx.ConfigFrom(ctx).Get()

		container, err := rc.Load(preSource, preRepo)
		if err != nil {
			return err
		}
		subj := preSubject
		if subj == "" {
			subj = container.Resource().Subject
		}
		if err := os.MkdirAll(preOutput, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		res, err := preprocess.Do(ctx, subj, preprocess.Options{
			OutputDir: preOutput,
			RC:        container,
			Owner:     preOwner,
			Host:      cfg.Site.Host,
			Logger:    logger,
		})
		if err != nil {
			return err
		}
		logger.Info("preprocessed", "subject", subj, "files", res.FilesWritten, "warnings", len(res.Warnings))
		return printResult(cmd, newPreprocessReport(subj, res))
	},
}

func init() {
	preprocessCmd.Flags().StringVar(&preSource, "source", "", "resource container directory")
	preprocessCmd.Flags().StringVar(&preOutput, "output-dir", "", "directory to write converter input to")
	preprocessCmd.Flags().StringVar(&preSubject, "subject", "", "resource subject (default: from manifest)")
	preprocessCmd.Flags().StringVar(&preRepo, "repo", "", "repository name (default: source directory name)")
	preprocessCmd.Flags().StringVar(&preOwner, "owner", "", "repository owner, used when fixing links")
	_ = preprocessCmd.MarkFlagRequired("source")
	_ = preprocessCmd.MarkFlagRequired("output-dir")
}

type preprocessReport struct {
	Subject      string   `json:"subject" yaml:"subject"`
	FilesWritten int      `json:"files_written" yaml:"files_written"`
	Warnings     []string `json:"warnings" yaml:"warnings"`
	Titles       int      `json:"indexed_titles" yaml:"indexed_titles"`
	Books        []string `json:"books,omitempty" yaml:"books,omitempty"`
}

func newPreprocessReport(subj string, res preprocess.Result) preprocessReport {
	r := preprocessReport{
		Subject:      subj,
		FilesWritten: res.FilesWritten,
		Warnings:     res.Warnings,
	}
	if res.Index != nil {
		r.Titles = len(res.Index.Titles)
		for _, code := range res.Index.BookCodes {
			r.Books = append(r.Books, code)
		}
		sort.Strings(r.Books)
	}
	return r
}

func (r preprocessReport) Table() ([]string, [][]string) {
	rows := [][]string{
		{"subject", r.Subject},
		{"files written", strconv.Itoa(r.FilesWritten)},
		{"indexed titles", strconv.Itoa(r.Titles)},
	}
	for _, w := range r.Warnings {
		rows = append(rows, []string{"warning", w})
	}
	return []string{"FIELD", "VALUE"}, rows
}
