package records

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsLoader reads a value range from the Google Sheets API.
type SheetsLoader struct {
	service *sheets.Service
}

// NewSheetsLoader creates a loader authenticated with opts, typically
// option.WithAPIKey for public sheets or option.WithCredentialsJSON.
func NewSheetsLoader(ctx context.Context, opts ...option.ClientOption) (*SheetsLoader, error) {
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &SheetsLoader{service: srv}, nil
}

// Load fetches rng from spreadsheetID; the first row is the header.
func (s *SheetsLoader) Load(ctx context.Context, spreadsheetID, rng string) (*Table, error) {
	resp, err := s.service.Spreadsheets.Values.Get(spreadsheetID, rng).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sheet %s: %w", spreadsheetID, err)
	}

	grid := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		grid[i] = make([]string, len(row))
		for j, cell := range row {
			grid[i][j] = fmt.Sprint(cell)
		}
	}
	return fromGrid(grid)
}

// ParseSheetsSource splits gsheet://<id>/<range>. The range defaults to "Sheet1".
func ParseSheetsSource(source string) (id, rng string, err error) {
	rest := strings.TrimPrefix(source, SheetsScheme)
	id, rng, _ = strings.Cut(rest, "/")
	if id == "" {
		return "", "", fmt.Errorf("%w: missing spreadsheet id in %q", ErrUnsupportedFormat, source)
	}
	if rng == "" {
		rng = "Sheet1"
	}
	if unescaped, uerr := url.PathUnescape(rng); uerr == nil {
		rng = unescaped
	}
	return id, rng, nil
}
