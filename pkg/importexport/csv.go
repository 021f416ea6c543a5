package importexport

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/smith3v/tg-phrasebook/pkg/db"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

const (
	headerOriginal   = "Original"
	headerTranslated = "Translated"
)

var csvLine = regexp.MustCompile(`^"((?:[^"]|"")*)","((?:[^"]|"")*)"$`)

// BuildExportCSV writes the header row followed by one row per pair. Every
// field is quoted and embedded quotes are doubled, so the output always
// matches the line pattern ParseCSV accepts.
func BuildExportCSV(pairs []db.TranslationPair) []byte {
	var buf bytes.Buffer
	buf.WriteString(headerOriginal + "," + headerTranslated + "\n")
	for _, pair := range pairs {
		buf.WriteString(quoteField(pair.Source))
		buf.WriteByte(',')
		buf.WriteString(quoteField(pair.Target))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func quoteField(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

// ParseCSV reads an export file back into rows. The first line must be the
// header. A quoted field may span lines; a record ends on the first line that
// leaves its quotes balanced. Records that do not match the two-quoted-field
// pattern, or that have a blank side, are counted as malformed.
func ParseCSV(data []byte) ([]Row, int, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, 0, ErrEmptyFile
	}

	lines := strings.Split(string(data), "\n")
	if !isHeaderLine(lines[0]) {
		return nil, 0, ErrMissingHeader
	}

	var rows []Row
	malformed := 0
	for _, record := range splitRecords(lines[1:]) {
		match := csvLine.FindStringSubmatch(record)
		if match == nil {
			malformed++
			continue
		}
		row, ok := newRow(unquoteField(match[1]), unquoteField(match[2]))
		if !ok {
			malformed++
			continue
		}
		rows = append(rows, row)
	}
	return rows, malformed, nil
}

// splitRecords joins lines into records, skipping blank lines between them.
func splitRecords(lines []string) []string {
	var (
		records []string
		current strings.Builder
		open    bool
	)
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if !open && strings.TrimSpace(line) == "" {
			continue
		}
		if open {
			current.WriteByte('\n')
		}
		current.WriteString(line)
		if strings.Count(line, `"`)%2 == 1 {
			open = !open
		}
		if !open {
			records = append(records, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		records = append(records, current.String())
	}
	return records
}

func unquoteField(value string) string {
	return strings.ReplaceAll(value, `""`, `"`)
}

func isHeaderLine(line string) bool {
	line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
	line = strings.ReplaceAll(line, `"`, "")
	parts := strings.Split(line, ",")
	if len(parts) != 2 {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(parts[0]), headerOriginal) &&
		strings.EqualFold(strings.TrimSpace(parts[1]), headerTranslated)
}
