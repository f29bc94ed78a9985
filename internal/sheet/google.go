package sheet

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// GoogleClient implements Client on top of the Sheets v4 API.
type GoogleClient struct {
	svc           *gsheet.Service
	spreadsheetID string
	worksheetName string
	maxRows       int
	sheetID       int64
	log           zerolog.Logger
}

// Ensure interface conformance.
var _ Client = (*GoogleClient)(nil)

// NewGoogleClient builds a Sheets client from a service-account credentials
// file and resolves the worksheet's numeric sheet id up front, so a missing
// worksheet fails at startup rather than on the first write.
func NewGoogleClient(ctx context.Context, spreadsheetID, worksheetName, credentialsFile string, maxRows int, log zerolog.Logger) (*GoogleClient, error) {
	svc, err := gsheet.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gsheet.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	c := &GoogleClient{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		worksheetName: worksheetName,
		maxRows:       maxRows,
		sheetID:       -1,
		log:           log,
	}
	if err := c.resolveSheetID(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *GoogleClient) resolveSheetID(ctx context.Context) error {
	var meta *gsheet.Spreadsheet
	err := c.retry(ctx, "spreadsheets.get", func() error {
		var err error
		meta, err = c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
		return err
	})
	if err != nil {
		return err
	}
	for _, s := range meta.Sheets {
		if s.Properties != nil && s.Properties.Title == c.worksheetName {
			c.sheetID = s.Properties.SheetId
			return nil
		}
	}
	return fmt.Errorf("worksheet %q not found in spreadsheet", c.worksheetName)
}

func (c *GoogleClient) gridRange() string {
	return fmt.Sprintf("%s!A1:ZZ%d", c.worksheetName, c.maxRows)
}

// ReadGrid implements the Client interface.
func (c *GoogleClient) ReadGrid(ctx context.Context) ([][]string, error) {
	var resp *gsheet.ValueRange
	err := c.retry(ctx, "values.get", func() error {
		var err error
		resp, err = c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.gridRange()).
			ValueRenderOption("UNFORMATTED_VALUE").
			Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	rows := make([][]string, len(resp.Values))
	for i, raw := range resp.Values {
		row := make([]string, len(raw))
		for j, cell := range raw {
			row[j] = stringify(cell)
		}
		rows[i] = row
	}
	c.log.Debug().Int("rows", len(rows)).Msg("grid loaded")
	return rows, nil
}

// ReadNotes implements the Client interface.
func (c *GoogleClient) ReadNotes(ctx context.Context) (map[string]string, error) {
	var resp *gsheet.Spreadsheet
	err := c.retry(ctx, "spreadsheets.get notes", func() error {
		var err error
		resp, err = c.svc.Spreadsheets.Get(c.spreadsheetID).
			Ranges(c.gridRange()).
			Fields("sheets.data.rowData.values.note").
			Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	notes := make(map[string]string)
	if len(resp.Sheets) == 0 || len(resp.Sheets[0].Data) == 0 {
		return notes, nil
	}
	for i, rowData := range resp.Sheets[0].Data[0].RowData {
		for j, cell := range rowData.Values {
			if cell != nil && cell.Note != "" {
				notes[A1(i+1, j+1)] = cell.Note
			}
		}
	}
	c.log.Debug().Int("notes", len(notes)).Msg("notes loaded")
	return notes, nil
}

// ReadCellFormula implements the Client interface.
func (c *GoogleClient) ReadCellFormula(ctx context.Context, row, col int) (string, error) {
	addr := fmt.Sprintf("%s!%s", c.worksheetName, A1(row, col))
	var resp *gsheet.ValueRange
	err := c.retry(ctx, "values.get formula", func() error {
		var err error
		resp, err = c.svc.Spreadsheets.Values.Get(c.spreadsheetID, addr).
			ValueRenderOption("FORMULA").
			Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", err
	}
	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		return "", nil
	}
	return stringify(resp.Values[0][0]), nil
}

// WriteCell implements the Client interface.
func (c *GoogleClient) WriteCell(ctx context.Context, row, col int, value string) error {
	addr := fmt.Sprintf("%s!%s", c.worksheetName, A1(row, col))
	vr := &gsheet.ValueRange{Values: [][]interface{}{{value}}}
	return c.retry(ctx, "values.update", func() error {
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, addr, vr).
			ValueInputOption("USER_ENTERED").
			Context(ctx).Do()
		return err
	})
}

// WriteNote implements the Client interface.
func (c *GoogleClient) WriteNote(ctx context.Context, row, col int, note string) error {
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			UpdateCells: &gsheet.UpdateCellsRequest{
				Range: &gsheet.GridRange{
					SheetId:          c.sheetID,
					StartRowIndex:    int64(row - 1),
					EndRowIndex:      int64(row),
					StartColumnIndex: int64(col - 1),
					EndColumnIndex:   int64(col),
				},
				Rows: []*gsheet.RowData{{
					Values: []*gsheet.CellData{{
						Note:            note,
						ForceSendFields: []string{"Note"},
					}},
				}},
				Fields: "note",
			},
		}},
	}
	return c.retry(ctx, "batch update note", func() error {
		_, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
		return err
	})
}

// retry runs op with exponential backoff, retrying only transient
// rate-limit and server-side failures. Validation errors pass through.
func (c *GoogleClient) retry(ctx context.Context, label string, op func() error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	err := backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return backoff.Permanent(err)
		}
		c.log.Warn().Err(err).Str("op", label).Msg("transient remote error, retrying")
		return err
	}, policy)
	if err == nil {
		return nil
	}
	if isTransient(err) {
		return fmt.Errorf("%w: %s: %v", ErrRemoteUnavailable, label, err)
	}
	return fmt.Errorf("%s: %w", label, err)
}

func isTransient(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429, 500, 503:
			return true
		}
	}
	return false
}

func stringify(cell interface{}) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
