// Package export writes reports as single-sheet workbooks.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/pavelanni/contestreport/internal/model"
)

// SheetName is the name of the only sheet in an exported report.
const SheetName = "Report"

// DefaultPrefix starts every export filename.
const DefaultPrefix = "output_start"

// NewToken returns a short random token that namespaces one export.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Filename builds "<prefix>_<eventNumber>_<token>.xlsx".
func Filename(prefix string, eventNumber int, token string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return fmt.Sprintf("%s_%d_%s.xlsx", prefix, eventNumber, token)
}

// Workbook renders the report into a new workbook. Callers must Close it.
func Workbook(rep *model.Report) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(model.ReportColumns))
	for i, c := range model.ReportColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, r := range rep.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		row := []any{r.Email, r.RollNumber, r.Score, r.Feedback}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return f, nil
}

// Write streams the report workbook to w.
func Write(w io.Writer, rep *model.Report) error {
	f, err := Workbook(rep)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Save writes the report into dir under a fresh unique name and returns the
// token and full path. The file appears only once completely written.
func Save(dir, prefix string, rep *model.Report) (token, path string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create output dir: %w", err)
	}
	token = NewToken()
	path = filepath.Join(dir, Filename(prefix, rep.EventNumber, token))

	tmp, err := os.CreateTemp(dir, ".report-*.xlsx")
	if err != nil {
		return "", "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	if err = Write(tmp, rep); err != nil {
		tmp.Close()
		return "", "", err
	}
	if err = tmp.Close(); err != nil {
		return "", "", fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return "", "", fmt.Errorf("move report into place: %w", err)
	}
	return token, path, nil
}
