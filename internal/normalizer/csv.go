package normalizer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/intent-engine/internal/model"
	"github.com/sells-group/intent-engine/internal/store"
)

// maxReportedErrors caps the error list returned to callers. Counts are
// still accurate beyond the cap.
const maxReportedErrors = 10

// ImportResult summarizes one CSV import.
type ImportResult struct {
	Filename  string   `json:"filename"`
	TotalRows int      `json:"total_rows"`
	Imported  int      `json:"imported_contacts"`
	Skipped   int      `json:"skipped_rows"`
	Errors    []string `json:"errors"`
}

// ImportCSV reads a header-keyed CSV stream and imports each row as a
// contact. Rows without any of email, phone or company are skipped, as are
// rows whose email already belongs to a stored contact. Per-row failures are
// reported as "Row N: reason" where N is the 1-based file line (header is
// line 1).
func ImportCSV(ctx context.Context, st store.Store, r io.Reader, filename string) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrapf(model.ErrValidation, "normalizer: read csv header: %v", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	result := &ImportResult{Filename: filename, Errors: []string{}}

	for index := 0; ; index++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		result.TotalRows++
		line := index + 2 // 1-based, after the header

		if err != nil {
			result.Skipped++
			if len(result.Errors) < maxReportedErrors {
				result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", line, err))
			}
			continue
		}

		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}

		contact := contactFromRow(row)
		if !usable(contact) {
			result.Skipped++
			continue
		}

		if contact.Email != "" {
			existing, err := st.GetContactByEmail(ctx, contact.Email)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				result.Skipped++
				continue
			}
		}

		contact.Source = model.SourceCSV
		contact.RawData = map[string]any{"filename": filename, "row_index": index}

		if err := st.CreateContact(ctx, &contact); err != nil {
			result.Skipped++
			if eris.Is(err, model.ErrDuplicateEmail) {
				continue
			}
			if len(result.Errors) < maxReportedErrors {
				result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", line, err))
			}
			continue
		}
		result.Imported++
	}

	zap.L().Info("csv import complete",
		zap.String("filename", filename),
		zap.Int("total_rows", result.TotalRows),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)))

	return result, nil
}

// Preview is the first few rows of a CSV file, header-keyed.
type Preview struct {
	Columns      []string            `json:"columns"`
	Rows         []map[string]string `json:"rows"`
	TotalColumns int                 `json:"total_columns"`
}

// PreviewCSV reads up to maxRows data rows for display before import.
func PreviewCSV(r io.Reader, maxRows int) (*Preview, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrapf(model.ErrValidation, "normalizer: read csv header: %v", err)
	}

	preview := &Preview{Columns: header, TotalColumns: len(header), Rows: []map[string]string{}}
	for len(preview.Rows) < maxRows {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "normalizer: read csv row")
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		preview.Rows = append(preview.Rows, row)
	}
	return preview, nil
}
