package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/unfoldingWord/door43-job-handler/internal/document"
	"github.com/unfoldingWord/door43-job-handler/internal/svcctx"
	"github.com/unfoldingWord/door43-job-handler/internal/templater"
)

var (
	tplSource  string
	tplOutput  string
	tplSubject string
	tplShell   string
	tplClasses []string
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Apply the project page shell to converted HTML",
	Long: `Template wraps every converted page in the project page shell and
builds the navigation for the resource subject.

Examples:
  door43 template --subject Bible --source ./converted --output-dir ./site --shell project-page.html`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := svcctx.LoggerFrom(ctx)

		if err := os.MkdirAll(tplOutput, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		t, err := templater.ForSubject(tplSubject, templater.Options{
			SourceDir:    tplSource,
			OutputDir:    tplOutput,
			ShellPath:    tplShell,
			ExtraClasses: tplClasses,
			Logger:       logger,
		})
		if err != nil {
			return err
		}
		if err := t.Run(ctx); err != nil {
			return err
		}
		return printResult(cmd, templateReport{
			Kind:   t.Kind().String(),
			Errors: t.Errors(),
			Index:  t.Index(),
		})
	},
}

func init() {
	templateCmd.Flags().StringVar(&tplSource, "source", "", "directory of converted *.html files")
	templateCmd.Flags().StringVar(&tplOutput, "output-dir", "", "directory to write templated pages to")
	templateCmd.Flags().StringVar(&tplSubject, "subject", "", "resource subject, e.g. Bible or Translation Words")
	templateCmd.Flags().StringVar(&tplShell, "shell", "", "project page template file")
	templateCmd.Flags().StringSliceVar(&tplClasses, "body-class", nil, "extra classes for <body>")
	_ = templateCmd.MarkFlagRequired("source")
	_ = templateCmd.MarkFlagRequired("output-dir")
	_ = templateCmd.MarkFlagRequired("shell")
}

type templateReport struct {
	Kind   string          `json:"kind" yaml:"kind"`
	Errors []string        `json:"errors" yaml:"errors"`
	Index  *document.Index `json:"index" yaml:"index"`
}

func (r templateReport) Table() ([]string, [][]string) {
	var rows [][]string
	if r.Index != nil {
		names := make([]string, 0, len(r.Index.Titles))
		for name := range r.Index.Titles {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			rows = append(rows, []string{name, r.Index.Titles[name]})
		}
	}
	for _, e := range r.Errors {
		rows = append(rows, []string{"error", e})
	}
	return []string{"PAGE", "TITLE"}, rows
}
