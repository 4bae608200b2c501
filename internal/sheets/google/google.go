// Package google appends ledger entries to a yearly Google Sheets tab.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"atelier/internal/core"
	"atelier/internal/ports"
)

// Ledger columns: A reference, B date, C kind, D party, E method, F note, G amount.
const lastColumn = "G"

var _ ports.LedgerWriter = (*Client)(nil)

// Config selects the spreadsheet and the credentials used to reach it.
type Config struct {
	SpreadsheetID string
	// SheetBase is the tab name without year; entries land in "<year> <base>".
	SheetBase       string
	CredentialsJSON string
	CredentialsFile string
	// Location is the studio's time zone for row dates and the tab year.
	// Nil means UTC.
	Location *time.Location
}

// valuesAPI is the part of the Sheets values resource the client uses.
type valuesAPI interface {
	get(ctx context.Context, rng string) ([][]any, error)
	update(ctx context.Context, rng string, rows [][]any) error
}

type Client struct {
	values        valuesAPI
	spreadsheetID string
	sheetBase     string
	loc           *time.Location
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(cfg.SheetBase) == "" {
		return nil, errors.New("missing ledger sheet name")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{
		values:        &serviceValues{svc: svc, spreadsheetID: cfg.SpreadsheetID},
		spreadsheetID: cfg.SpreadsheetID,
		sheetBase:     cfg.SheetBase,
		loc:           cfg.Location,
	}, nil
}

// newSheetsService authenticates with a service account, preferring inline
// JSON over a credentials file.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		slog.InfoContext(ctx, "Reading service account credentials", "path", cfg.CredentialsFile)
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// AppendLedgerEntry writes e to the tab for its year and returns the A1 range
// of the row. An entry whose reference is already on the sheet is not
// written again; the existing row's range is returned instead.
func (c *Client) AppendLedgerEntry(ctx context.Context, e core.LedgerEntry) (string, error) {
	if !e.Kind.Valid() || e.ID <= 0 {
		return "", fmt.Errorf("invalid ledger entry %q", e.Reference())
	}
	if c.values == nil {
		return "", errors.New("sheets service not initialized")
	}

	e.Date = e.Date.In(c.location())
	sheet := yearPrefixedName(c.sheetBase, e.Date.Year())
	existing, err := c.values.get(ctx, fmt.Sprintf("%s!A:A", sheet))
	if err != nil {
		return "", fmt.Errorf("read references from %s: %w", sheet, err)
	}

	ref := e.Reference()
	if row := findReference(existing, ref); row > 0 {
		slog.InfoContext(ctx, "Ledger entry already on sheet", "ledger_ref", ref, "sheet", sheet, "row", row)
		return rowRange(sheet, row), nil
	}

	row := len(existing) + 1
	rng := rowRange(sheet, row)
	if err := c.values.update(ctx, rng, [][]any{ledgerRow(e)}); err != nil {
		return "", fmt.Errorf("write %s: %w", rng, err)
	}
	return rng, nil
}

func (c *Client) location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// ledgerRow renders e in column order; the date is printed in e.Date's zone. Amounts are signed decimals so the
// sheet can sum a column to get net cash flow.
func ledgerRow(e core.LedgerEntry) []any {
	return []any{
		e.Reference(),
		e.Date.Format("2006-01-02"),
		string(e.Kind),
		e.Party,
		e.Method,
		e.Note,
		e.SignedAmount().String(),
	}
}

// findReference returns the 1-based row holding ref in column A, or 0.
func findReference(rows [][]any, ref string) int {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == ref {
			return i + 1
		}
	}
	return 0
}

func rowRange(sheet string, row int) string {
	return fmt.Sprintf("%s!A%d:%s%d", sheet, row, lastColumn, row)
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

type serviceValues struct {
	svc           *gsheet.Service
	spreadsheetID string
}

func (s *serviceValues) get(ctx context.Context, rng string) ([][]any, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (s *serviceValues) update(ctx context.Context, rng string, rows [][]any) error {
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	return err
}
