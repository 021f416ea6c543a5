package importexport

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/smith3v/tg-phrasebook/pkg/categories"
	"github.com/smith3v/tg-phrasebook/pkg/db"
	"github.com/smith3v/tg-phrasebook/pkg/logger"
	"github.com/smith3v/tg-phrasebook/pkg/phrases"
	"gorm.io/gorm"
)

var (
	ErrEmptyFile         = errors.New("import file is empty")
	ErrMissingHeader     = errors.New("import file has no Original,Translated header")
	ErrUnsupportedFormat = errors.New("unsupported import format")
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

type Row struct {
	Source string
	Target string
}

type Result struct {
	Imported  int
	Skipped   int
	Malformed int
}

func newRow(source, target string) (Row, bool) {
	source, target, err := phrases.Validate(source, target)
	if err != nil {
		return Row{}, false
	}
	return Row{Source: source, Target: target}, true
}

// FormatFor picks the interchange format from a file name.
func FormatFor(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// Parse decodes data in the given format.
func Parse(format Format, data []byte) ([]Row, int, error) {
	switch format {
	case FormatCSV:
		return ParseCSV(data)
	case FormatXLSX:
		return ParseXLSX(data)
	default:
		return nil, 0, ErrUnsupportedFormat
	}
}

// Import parses data and stores every row that is not already present.
func Import(ctx context.Context, format Format, data []byte) (Result, error) {
	rows, malformed, err := Parse(format, data)
	if err != nil {
		return Result{}, err
	}
	result, err := ImportRows(ctx, rows)
	result.Malformed = malformed
	return result, err
}

// ImportRows stores rows in one transaction under db.DefaultCategory. A row
// equal to a stored pair, or to an earlier row, is skipped.
func ImportRows(ctx context.Context, rows []Row) (Result, error) {
	var result Result
	if len(rows) == 0 {
		return result, nil
	}
	if db.DB == nil {
		return result, gorm.ErrInvalidDB
	}

	err := db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result = Result{}
		seen := make(map[Row]struct{}, len(rows))
		for _, row := range rows {
			key := Row{Source: strings.ToLower(row.Source), Target: strings.ToLower(row.Target)}
			if _, ok := seen[key]; ok {
				result.Skipped++
				continue
			}
			seen[key] = struct{}{}

			dup, err := phrases.IsDuplicate(tx, row.Source, row.Target, 0)
			if err != nil {
				return err
			}
			if dup {
				result.Skipped++
				continue
			}
			if _, err := phrases.Insert(tx, row.Source, row.Target, nil); err != nil {
				return err
			}
			result.Imported++
		}
		return nil
	})
	if err != nil {
		logger.Error("failed to import translation pairs", "rows", len(rows), "error", err)
		return Result{}, fmt.Errorf("import translation pairs: %w", err)
	}

	if result.Imported > 0 {
		categories.DefaultFeed.Notify(categories.Change{
			Kind:       categories.ChangeImported,
			Categories: []string{db.DefaultCategory},
		})
	}
	return result, nil
}

// Export builds the interchange file for every stored pair.
func Export(ctx context.Context, format Format) ([]byte, int, error) {
	pairs := phrases.List(ctx)
	SortPairsForExport(pairs)
	switch format {
	case FormatCSV:
		return BuildExportCSV(pairs), len(pairs), nil
	case FormatXLSX:
		data, err := BuildExportXLSX(pairs)
		return data, len(pairs), err
	default:
		return nil, 0, ErrUnsupportedFormat
	}
}

// SortPairsForExport orders pairs oldest first so an export followed by an
// import keeps the original insertion order.
func SortPairsForExport(pairs []db.TranslationPair) {
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].ID < pairs[j].ID
	})
}

func ExportFilename(now time.Time, format Format) string {
	return fmt.Sprintf("phrasebook-%s.%s", now.Format("20060102"), format)
}
