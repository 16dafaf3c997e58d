package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"collisio/internal/services"
	"collisio/internal/shared/testutil"
	"collisio/internal/validation"
)

// execute runs the root command with args and returns stdout and stderr
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("COLLISIO_SHEETS_API_KEY", "test-key")
	t.Setenv("COLLISIO_REPORT_MAP", "false")
	t.Setenv("COLLISIO_NARRATIVE_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestGenerate(t *testing.T) {
	input := testutil.WriteAccidentCSV(t, testutil.SampleAccidents())
	out := t.TempDir()

	stdout, stderr, err := execute(t, "generate", input,
		"--out", out,
		"--formats", "HTML,docx",
		"--style", "enhanced",
		"--pie-max", "4",
		"--no-narrative",
		"--csv",
	)
	require.NoError(t, err, stderr)

	assert.Regexp(t, regexp.MustCompile(`Run \S+: \d+ sections`), stdout)
	assert.Contains(t, stdout, "OUTPUT")
	assert.Contains(t, stdout, "accidents.html")
	assert.Contains(t, stdout, "accidents.docx")
	assert.Contains(t, stdout, "appendix.xlsx")
	assert.Regexp(t, regexp.MustCompile(`\[100%\] write\s+html`), stderr)

	matches, err := filepath.Glob(filepath.Join(out, "*", "accidents.html"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	csvFiles, err := filepath.Glob(filepath.Join(filepath.Dir(matches[0]), "csv", "*.csv"))
	require.NoError(t, err)
	assert.NotEmpty(t, csvFiles)
}

func TestGenerate_Quiet(t *testing.T) {
	input := testutil.WriteAccidentWorkbook(t, testutil.SampleAccidents())

	_, stderr, err := execute(t, "generate", input, "--out", t.TempDir(), "--formats", "html", "--no-narrative", "-q")
	require.NoError(t, err)
	assert.NotRegexp(t, regexp.MustCompile(`\[\s*\d+%\]`), stderr)
}

func TestGenerate_Errors(t *testing.T) {
	input := testutil.WriteAccidentCSV(t, testutil.SampleAccidents())

	tests := []struct {
		name    string
		args    []string
		wantErr string
		wantIs  error
	}{
		{
			name:    "missing input argument",
			args:    []string{"generate"},
			wantErr: "accepts 1 arg",
		},
		{
			name:    "unknown format",
			args:    []string{"generate", input, "--formats", "odt"},
			wantErr: `unknown document format "odt"`,
		},
		{
			name:    "unknown style",
			args:    []string{"generate", input, "--style", "verbose"},
			wantErr: `unknown narrative style "verbose"`,
		},
		{
			name:    "pie max too small",
			args:    []string{"generate", input, "--pie-max", "1"},
			wantErr: "--pie-max",
		},
		{
			name:    "missing worklist",
			args:    []string{"generate", input, "--worklist", filepath.Join(t.TempDir(), "none.yaml")},
			wantErr: "none.yaml",
		},
		{
			name:   "missing input",
			args:   []string{"generate", filepath.Join(t.TempDir(), "missing.xlsx"), "--out", t.TempDir(), "--no-narrative"},
			wantIs: validation.ErrNotFound,
		},
		{
			name:   "text file",
			args:   []string{"generate", writeFile(t, "notes.txt", "hello"), "--no-narrative"},
			wantIs: validation.ErrUnsupported,
		},
		{
			name:   "corrupt workbook",
			args:   []string{"generate", writeFile(t, "broken.xlsx", "PK\x03\x04not a zip"), "--out", t.TempDir(), "--no-narrative"},
			wantIs: services.ErrLoadFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			if tt.wantErr != "" {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
		})
	}
}

func TestColumns(t *testing.T) {
	input := testutil.WriteAccidentWorkbook(t, testutil.SampleAccidents())

	t.Run("table", func(t *testing.T) {
		stdout, _, err := execute(t, "columns", input)
		require.NoError(t, err)

		assert.Contains(t, stdout, "12 rows, 13 columns")
		assert.Contains(t, stdout, "COLUMN")
		assert.Regexp(t, regexp.MustCompile(`Light\s+text\s+4\s+0\s+yes`), stdout)
		assert.Contains(t, stdout, "Coordinates: Latitude, Longitude")
	})

	t.Run("json", func(t *testing.T) {
		stdout, _, err := execute(t, "columns", input, "--json")
		require.NoError(t, err)

		var cr services.ColumnReport
		require.NoError(t, json.Unmarshal([]byte(stdout), &cr))
		assert.Equal(t, 12, cr.Rows)
		assert.Len(t, cr.Profiles, len(testutil.AccidentHeaders))
		assert.Contains(t, cr.Categorical, "Light")
	})
}

func TestTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blank.xlsx")

	stdout, _, err := execute(t, "template", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	header, err := f.GetCellValue("Sheet1", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Classification Of Accident", header)
	require.NoError(t, f.Close())

	_, _, err = execute(t, "template", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, os.WriteFile(path, []byte("stale"), 0644))
	_, _, err = execute(t, "template", path, "--force")
	require.NoError(t, err)

	f, err = excelize.OpenFile(path)
	require.NoError(t, err)
	assert.NoError(t, f.Close())
}
