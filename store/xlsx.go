package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

// readSheet loads all rows of a spreadsheet and returns per-row maps keyed
// by the header row. Missing cells come back as the empty string.
func readSheet(filename string, headers []string) ([]map[string]string, error) {
	f, err := excelize.OpenFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	// Columns are located by header name, not position, so a reordered
	// spreadsheet still decodes.
	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}

	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(map[string]string, len(headers))
		empty := true
		for _, h := range headers {
			var value string
			if i, ok := index[h]; ok && i < len(row) {
				value = cellString(row[i])
			}
			if value != "" {
				empty = false
			}
			record[h] = value
		}
		if empty {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// writeSheet replaces a spreadsheet with a header row plus the given rows.
// The file is written to a temp file in the same directory and renamed into
// place so a crash mid-write cannot corrupt the store.
func writeSheet(filename string, headers []string, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}
	for n, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, n+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	tmp := filename + fmt.Sprintf(".%d.tmp.xlsx", os.Getpid())
	if err := f.SaveAs(tmp); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	if err := os.Rename(tmp, filename); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// cellString applies the store's default substitution: cells that are
// missing, whitespace or a spreadsheet NaN artifact decode as "".
func cellString(value string) string {
	s := strings.TrimSpace(value)
	if strings.EqualFold(s, "nan") {
		return ""
	}
	return s
}

func fileExists(filename string) bool {
	fi, err := os.Stat(filename)
	return err == nil && fi.Mode().IsRegular()
}
