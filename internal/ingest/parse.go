package ingest

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned by Parse for unknown file extensions.
var ErrUnsupportedFormat = errors.New("unsupported import format")

// ParseJSON reads a Document from JSON.
func ParseJSON(r io.Reader, logger *slog.Logger) (*Batch, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding json: %w", err)
	}
	return Build(doc, logger), nil
}

// ParseYAML reads a Document from YAML.
func ParseYAML(r io.Reader, logger *slog.Logger) (*Batch, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Build(doc, logger), nil
		}
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}
	return Build(doc, logger), nil
}

// ParseCSV reads either accounts or visits from CSV. The header decides:
// a file with an account_id column holds visits, one with a name column
// holds accounts. Header names are matched case-insensitively.
func ParseCSV(r io.Reader, logger *slog.Logger) (*Batch, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}

	field := func(row []string, names ...string) string {
		for _, n := range names {
			if i, ok := cols[n]; ok && i < len(row) {
				return row[i]
			}
		}
		return ""
	}

	_, isVisits := cols["account_id"]
	_, isAccounts := cols["name"]
	if !isVisits && !isAccounts {
		return nil, fmt.Errorf("csv header must contain an account_id or name column")
	}

	var doc Document
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}

		if isVisits {
			doc.Visits = append(doc.Visits, VisitRecord{
				AccountID: field(row, "account_id"),
				Date:      field(row, "date", "scheduled_date"),
				Time:      field(row, "time", "scheduled_time"),
				Category:  field(row, "category"),
				Status:    field(row, "status"),
				Notes:     field(row, "notes"),
			})
			continue
		}
		doc.Accounts = append(doc.Accounts, AccountRecord{
			ID:             field(row, "id"),
			Name:           field(row, "name"),
			City:           field(row, "city"),
			Phone:          field(row, "phone"),
			Email:          field(row, "email"),
			Classification: field(row, "classification"),
			Frequency:      field(row, "frequency"),
			CreatedAt:      field(row, "created_at"),
			LastContactAt:  field(row, "last_contact_at"),
		})
	}

	return Build(doc, logger), nil
}

// ContentType returns the media type of an import file, chosen by extension.
func ContentType(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "application/json", nil
	case ".yaml", ".yml":
		return "application/yaml", nil
	case ".csv":
		return "text/csv", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// Parse reads a file, choosing the decoder by extension.
func Parse(path string, logger *slog.Logger) (batch *Batch, err error) {
	var parse func(io.Reader, *slog.Logger) (*Batch, error)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		parse = ParseJSON
	case ".yaml", ".yml":
		parse = ParseYAML
	case ".csv":
		parse = ParseCSV
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening import file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing import file: %w", closeErr)
		}
	}()

	return parse(f, logger)
}
