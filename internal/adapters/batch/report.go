package batch

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// WriteReport writes rows as an .xlsx workbook when path ends in .xlsx, otherwise as CSV.
func WriteReport(path string, rows []ReportRow) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return writeWorkbook(path, rows)
	}
	return writeCSV(path, rows)
}

func (r ReportRow) record() []string {
	return []string{
		strconv.Itoa(r.Position),
		r.ConversationID,
		r.Query,
		r.Intent,
		r.Path,
		r.Strategy,
		strconv.FormatFloat(r.TopScore, 'f', 4, 64),
		r.Response,
	}
}

func writeCSV(path string, rows []ReportRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(reportHeader); err != nil {
		return fmt.Errorf("write report header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row.record()); err != nil {
			return fmt.Errorf("write report row %d: %w", row.Position, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	return nil
}

func writeWorkbook(path string, rows []ReportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "report"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(reportHeader))
	for i, h := range reportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write report header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{
			row.Position,
			row.ConversationID,
			row.Query,
			row.Intent,
			row.Path,
			row.Strategy,
			row.TopScore,
			row.Response,
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write report row %d: %w", row.Position, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}
