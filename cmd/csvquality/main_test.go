package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

const salesCSV = `Transaction ID,Date and Time,Value,Product Code
1,2024-01-01 10:00,12.50,A1
2,2024-01-01 11:00,,A2
3,2024-01-02 09:30,7.00,A3
3,2024-01-02 09:30,7.00,A3
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestAnalyze_Text(t *testing.T) {
	path := writeFile(t, "sales.csv", salesCSV)

	out, _, err := run(t, "analyze", path)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	for _, want := range []string{
		"Mode: Sales Analysis",
		"Rows: 4  Columns: 4",
		"Quality score: 84.38%",
		"Value: 1 (25.00%) rows 2",
		"Duplicate rows: 3, 4",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAnalyze_JSON(t *testing.T) {
	path := writeFile(t, "sales.csv", salesCSV)

	out, _, err := run(t, "analyze", path, "--format", "json")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	var got struct {
		File       string  `json:"file"`
		Mode       string  `json:"mode"`
		Quality    float64 `json:"quality"`
		Duplicates struct {
			DuplicateCount int `json:"duplicateCount"`
		} `json:"duplicates"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got.File != path || got.Mode != "Sales Analysis" {
		t.Errorf("file/mode = %q/%q", got.File, got.Mode)
	}
	if got.Duplicates.DuplicateCount != 1 {
		t.Errorf("duplicateCount = %d, want 1", got.Duplicates.DuplicateCount)
	}
	if got.Quality != 84.38 {
		t.Errorf("quality = %v", got.Quality)
	}
}

func TestAnalyze_YAML(t *testing.T) {
	path := writeFile(t, "sales.csv", "Transaction ID,Date and Time,Value,Product Code\n1,d,2,p\n")

	out, _, err := run(t, "analyze", path, "-f", "yaml")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	var got map[string]any
	if err := yaml.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got["mode"] != "Sales Analysis" {
		t.Errorf("mode = %v", got["mode"])
	}
	if q, ok := got["quality"].(int); ok {
		if q != 100 {
			t.Errorf("quality = %v", q)
		}
	} else if got["quality"] != 100.0 {
		t.Errorf("quality = %v", got["quality"])
	}
}

func TestAnalyze_MissingColumnsExitCode(t *testing.T) {
	path := writeFile(t, "partial.csv", "Transaction ID,Value\n1,2\n")

	out, _, err := run(t, "analyze", path, "--mode", "categorical")
	var exit *exitError
	if !errors.As(err, &exit) || exit.code != 2 {
		t.Fatalf("err = %v, want exit status 2", err)
	}
	if !strings.Contains(out, "Missing required columns: Date and Time, Product Code, Product Category") {
		t.Errorf("output:\n%s", out)
	}
	if strings.Contains(out, "Quality score") {
		t.Errorf("scans should be skipped:\n%s", out)
	}
}

func TestAnalyze_EmptyFile(t *testing.T) {
	path := writeFile(t, "empty.csv", "")

	out, _, err := run(t, "analyze", path)
	var exit *exitError
	if !errors.As(err, &exit) || exit.code != 2 {
		t.Fatalf("err = %v, want exit status 2", err)
	}
	if !strings.Contains(out, "Problem:") {
		t.Errorf("output:\n%s", out)
	}
}

func TestAnalyze_Errors(t *testing.T) {
	path := writeFile(t, "sales.csv", salesCSV)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad format", []string{"analyze", path, "--format", "xml"}, "unsupported --format"},
		{"unknown mode", []string{"analyze", path, "--mode", "weather"}, "unknown analysis mode"},
		{"other mode", []string{"analyze", path, "--mode", "other"}, "Other"},
		{"too large", []string{"analyze", path, "--max-size", "10"}, "too large"},
		{"missing file", []string{"analyze", filepath.Join(t.TempDir(), "nope.csv")}, "no such file"},
		{"no args", []string{"analyze"}, "accepts 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestAnalyze_ModeFromEnv(t *testing.T) {
	t.Setenv("CSVQUALITY_MODE", "inventory")
	path := writeFile(t, "sales.csv", salesCSV)

	out, _, err := run(t, "analyze", path)
	var exit *exitError
	if !errors.As(err, &exit) {
		t.Fatalf("err = %v, want exit error", err)
	}
	if !strings.Contains(out, "Mode: Inventory Analysis") {
		t.Errorf("output:\n%s", out)
	}
}

func TestAnalyze_ConfigFile(t *testing.T) {
	path := writeFile(t, "sales.csv", salesCSV)
	cfg := writeFile(t, "csvquality.yaml", "format: json\n")

	out, _, err := run(t, "--config", cfg, "analyze", path)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("expected JSON output, got:\n%s", out)
	}
}

func TestAnalyze_Export(t *testing.T) {
	path := writeFile(t, "sales.csv", salesCSV)
	dest := filepath.Join(t.TempDir(), "report.xlsx")

	_, stderr, err := run(t, "analyze", path, "--export", dest)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(stderr, "Wrote "+dest) {
		t.Errorf("stderr = %q", stderr)
	}

	wb, err := excelize.OpenFile(dest)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer wb.Close()
	if idx, _ := wb.GetSheetIndex("Quality"); idx < 0 {
		t.Error("Quality sheet missing")
	}
}

func TestModes(t *testing.T) {
	out, _, err := run(t, "modes")
	if err != nil {
		t.Fatalf("modes: %v", err)
	}
	if !strings.Contains(out, "Sales Analysis\n  Transaction ID, Date and Time, Value, Product Code") {
		t.Errorf("output:\n%s", out)
	}
	if strings.Contains(out, "Other") {
		t.Errorf("Other is not analyzable:\n%s", out)
	}

	out, _, err = run(t, "modes", "--yaml")
	if err != nil {
		t.Fatalf("modes --yaml: %v", err)
	}
	var entries []modeEntry
	if err := yaml.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 4 {
		t.Errorf("got %d modes, want 4", len(entries))
	}
}
