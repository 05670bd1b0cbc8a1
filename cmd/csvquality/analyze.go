package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/sales-ai-analyst/internal/core"
	"github.com/JonMunkholm/sales-ai-analyst/internal/logging"
	"github.com/JonMunkholm/sales-ai-analyst/internal/quality"
)

// report is what analyze prints.
type report struct {
	File           string `json:"file" yaml:"file"`
	Problem        string `json:"problem,omitempty" yaml:"problem,omitempty"`
	quality.Result `yaml:",inline"`
}

func newAnalyzeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Check one CSV file against an analysis mode",
		Long: `Check one CSV file against an analysis mode.

Required columns are checked first. When all are present the file is scanned
for missing values and duplicate rows and given a quality score from 0 to
100. Use "-" to read from standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(v)
			if err != nil {
				return err
			}
			mode, err := quality.ParseMode(s.Mode)
			if err != nil {
				return err
			}
			if !mode.Analyzable() {
				return fmt.Errorf("%w: %s", core.ErrModeNotAnalyzable, mode)
			}

			table, rep, err := analyzePath(cmd, args[0], mode, s.MaxSize)
			if err != nil {
				return err
			}
			if err := writeReport(cmd.OutOrStdout(), s.Format, rep); err != nil {
				return err
			}
			if s.Export != "" {
				if err := exportReport(s.Export, table, rep); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", s.Export)
			}
			if len(rep.MissingColumns) > 0 {
				return &exitError{code: 2}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringP("mode", "m", "Sales Analysis", "analysis mode (Sales, Categorical, Product, Inventory)")
	f.StringP("format", "f", "text", "output format: text, json or yaml")
	f.Int64("max-size", core.DefaultMaxFileSize, "largest accepted file in bytes")
	f.StringP("export", "o", "", "also write an XLSX report to this path")
	v.BindPFlag("mode", f.Lookup("mode"))
	v.BindPFlag("format", f.Lookup("format"))
	v.BindPFlag("max_size", f.Lookup("max-size"))
	v.BindPFlag("export", f.Lookup("export"))
	return cmd
}

// analyzePath reads and checks one file. Empty or malformed CSV is checked
// as an empty table, like an upload in the dashboard.
func analyzePath(cmd *cobra.Command, path string, mode quality.Mode, maxSize int64) (*quality.Table, report, error) {
	rep := report{File: path}

	var in io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, rep, err
		}
		defer f.Close()
		in = f
	}

	table, err := quality.Parse(core.WrapForStreaming(core.NewSizeLimitReader(in, maxSize)))
	switch {
	case errors.Is(err, core.ErrFileTooLarge):
		return nil, rep, fmt.Errorf("%s: %w", path, err)
	case errors.Is(err, quality.ErrEmptyInput), errors.Is(err, quality.ErrMalformedInput):
		logging.FromContext(cmd.Context()).Warn("no usable CSV content", "file", path, "error", err)
		rep.Problem = core.MapError(err).Message
		table = quality.NewTable(nil)
	case err != nil:
		return nil, rep, err
	}

	rep.Result = quality.Analyze(table, mode)
	return table, rep, nil
}

func writeReport(w io.Writer, format string, rep report) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	default:
		return writeText(w, rep)
	}
}

func writeText(w io.Writer, rep report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\n", rep.File)
	fmt.Fprintf(&b, "Mode: %s\n", rep.Mode)
	if rep.Problem != "" {
		fmt.Fprintf(&b, "Problem: %s\n", rep.Problem)
	}
	fmt.Fprintf(&b, "Rows: %d  Columns: %d\n", rep.Rows, rep.Columns)

	if len(rep.MissingColumns) > 0 {
		fmt.Fprintf(&b, "Missing required columns: %s\n", strings.Join(rep.MissingColumns, ", "))
	}
	if !rep.Scanned() {
		_, err := io.WriteString(w, b.String())
		return err
	}

	fmt.Fprintf(&b, "Quality score: %.2f%%\n", rep.Quality)
	fmt.Fprintf(&b, "  Missing data score: %.2f%%\n", rep.Missing.Score)
	fmt.Fprintf(&b, "  Duplicate data score: %.2f%% (%d duplicate rows)\n", rep.Duplicates.Score, rep.Duplicates.DuplicateCount)

	var gaps []string
	for _, col := range rep.Missing.Order {
		d := rep.Missing.Columns[col]
		if d.Count == 0 {
			continue
		}
		gaps = append(gaps, fmt.Sprintf("  %s: %d (%.2f%%) rows %s", col, d.Count, d.Percentage, joinRows(d.Rows)))
	}
	if len(gaps) > 0 {
		fmt.Fprintf(&b, "Columns with missing values:\n%s\n", strings.Join(gaps, "\n"))
	}
	for _, g := range rep.Duplicates.Groups {
		fmt.Fprintf(&b, "Duplicate rows: %s\n", joinRows(g.Rows))
	}
	if warning := rep.Warning(); warning != "" {
		fmt.Fprintf(&b, "Warning: %s\n", warning)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func joinRows(rows []int) string {
	parts := make([]string, len(rows))
	for i, r := range rows {
		parts[i] = strconv.Itoa(r)
	}
	return strings.Join(parts, ", ")
}

func exportReport(path string, table *quality.Table, rep report) error {
	res := rep.Result
	wb, err := core.ExportWorkbook(core.ViewState{
		Mode:       rep.Mode,
		Analyzable: true,
		FileName:   filepath.Base(rep.File),
		Records:    table.Records(),
		Result:     &res,
	})
	if err != nil {
		return err
	}
	defer wb.Close()
	if err := wb.SaveAs(path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
