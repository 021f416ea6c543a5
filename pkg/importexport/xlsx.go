package importexport

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/smith3v/tg-phrasebook/pkg/db"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

// BuildExportXLSX writes the same two columns as the CSV export into the
// first sheet of a workbook.
func BuildExportXLSX(pairs []db.TranslationPair) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := setRow(f, 1, headerOriginal, headerTranslated); err != nil {
		return nil, err
	}
	for i, pair := range pairs {
		if err := setRow(f, i+2, pair.Source, pair.Target); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, row int, source, target string) error {
	if err := f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), source); err != nil {
		return err
	}
	return f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), target)
}

// ParseXLSX reads rows from the first sheet of a workbook. The first row must
// be the header.
func ParseXLSX(data []byte) ([]Row, int, error) {
	if len(data) == 0 {
		return nil, 0, ErrEmptyFile
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, 0, ErrEmptyFile
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get rows: %w", err)
	}
	if len(records) == 0 {
		return nil, 0, ErrEmptyFile
	}
	if !isHeaderRecord(records[0]) {
		return nil, 0, ErrMissingHeader
	}

	var rows []Row
	malformed := 0
	for _, record := range records[1:] {
		if isEmptyRecord(record) {
			continue
		}
		if len(record) < 2 {
			malformed++
			continue
		}
		row, ok := newRow(record[0], record[1])
		if !ok {
			malformed++
			continue
		}
		rows = append(rows, row)
	}
	return rows, malformed, nil
}

func isHeaderRecord(record []string) bool {
	return len(record) >= 2 &&
		strings.EqualFold(strings.TrimSpace(record[0]), headerOriginal) &&
		strings.EqualFold(strings.TrimSpace(record[1]), headerTranslated)
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
