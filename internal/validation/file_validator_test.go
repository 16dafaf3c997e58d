package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collisio/internal/shared/testutil"
)

func TestIsSpreadsheet(t *testing.T) {
	tests := map[string]bool{
		"accidents.xlsx": true,
		"ACCIDENTS.CSV":  true,
		"dir/ward.csv":   true,
		"legacy.xls":     false,
		"notes.txt":      false,
		"xlsx":           false,
	}
	for name, want := range tests {
		assert.Equal(t, want, IsSpreadsheet(name), name)
	}
}

func TestFileValidator_ValidateSpreadsheet(t *testing.T) {
	write := func(t *testing.T, name string, data []byte) string {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, os.WriteFile(path, data, 0644))
		return path
	}

	tests := []struct {
		name      string
		setupFunc func(t *testing.T) string
		wantErr   error
		errorText string
	}{
		{
			name: "workbook",
			setupFunc: func(t *testing.T) string {
				return testutil.WriteAccidentWorkbook(t, testutil.SampleAccidents())
			},
		},
		{
			name: "csv",
			setupFunc: func(t *testing.T) string {
				return testutil.WriteAccidentCSV(t, testutil.SampleAccidents())
			},
		},
		{
			name: "empty csv",
			setupFunc: func(t *testing.T) string {
				return write(t, "empty.csv", nil)
			},
		},
		{
			name: "missing file",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.xlsx")
			},
			wantErr: ErrNotFound,
		},
		{
			name: "directory",
			setupFunc: func(t *testing.T) string {
				dir := filepath.Join(t.TempDir(), "data.csv")
				require.NoError(t, os.Mkdir(dir, 0755))
				return dir
			},
			errorText: "is a directory",
		},
		{
			name: "text file",
			setupFunc: func(t *testing.T) string {
				return write(t, "notes.txt", []byte("hello"))
			},
			wantErr: ErrUnsupported,
		},
		{
			name: "excel lock file",
			setupFunc: func(t *testing.T) string {
				return write(t, "~$accidents.xlsx", []byte("PK\x03\x04"))
			},
			wantErr: ErrUnsupported,
		},
		{
			name: "csv renamed to xlsx",
			setupFunc: func(t *testing.T) string {
				return write(t, "fake.xlsx", []byte("a,b\n1,2\n"))
			},
			wantErr:   ErrBadContent,
			errorText: "not an xlsx workbook",
		},
		{
			name: "binary renamed to csv",
			setupFunc: func(t *testing.T) string {
				return write(t, "fake.csv", []byte{'P', 'K', 3, 4, 0, 0})
			},
			wantErr: ErrBadContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			v := NewFileValidator(logger)

			err := v.ValidateSpreadsheet(tt.setupFunc(t))
			if tt.wantErr == nil && tt.errorText == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.errorText != "" {
				assert.Contains(t, err.Error(), tt.errorText)
			}
		})
	}
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	v := NewFileValidator(logger)

	t.Run("creates nested directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "a", "b")
		require.NoError(t, v.ValidateOutputDirectory(dir))
		assert.DirExists(t, dir)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries, "probe file is removed")
	})

	t.Run("path blocked by file", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "reports")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

		err := v.ValidateOutputDirectory(blocker)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create output directory")
	})

	t.Run("nil logger", func(t *testing.T) {
		assert.NotNil(t, NewFileValidator(nil).logger)
	})
}
