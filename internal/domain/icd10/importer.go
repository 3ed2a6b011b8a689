package icd10

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultReleaseVersion labels databases imported without an explicit version.
const DefaultReleaseVersion = "2018-ICD-10-CM"

// ImportFormat is the file format of an ICD-10 release table.
type ImportFormat string

const (
	FormatCSV  ImportFormat = "csv"
	FormatXLSX ImportFormat = "xlsx"
)

// FormatFromPath infers the import format from a file extension.
func FormatFromPath(path string) (ImportFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported import format %q (want .csv or .xlsx)", filepath.Ext(path))
	}
}

// ImportOptions controls release conversion.
type ImportOptions struct {
	Version string
	// Compact drops synonyms and short descriptions to shrink the output.
	Compact bool
	// Sheet selects the worksheet for XLSX input; the first sheet by default.
	Sheet string
}

// Release table columns, in order. The table has no header row, although a
// leading "categoryCode,..." header is tolerated.
const (
	colCategoryCode = iota
	colDiagnosisCode
	colFullCode
	colAbbreviated
	colFull
	colCategoryTitle
	numColumns
)

// Import converts a release table into a code database.
func Import(r io.Reader, format ImportFormat, opts ImportOptions) (*Database, error) {
	var (
		rows [][]string
		err  error
	)
	switch format {
	case FormatCSV:
		rows, err = readCSV(r)
	case FormatXLSX:
		rows, err = readXLSX(r, opts.Sheet)
	default:
		return nil, fmt.Errorf("unsupported import format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return fromRows(rows, opts)
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, rec)
	}
}

func readXLSX(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return nil, fmt.Errorf("xlsx file has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func fromRows(rows [][]string, opts ImportOptions) (*Database, error) {
	codes := make([]Code, 0, len(rows))
	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		if i == 0 && strings.EqualFold(strings.TrimSpace(row[0]), "categoryCode") {
			continue
		}
		if len(row) < numColumns {
			// GetRows trims trailing empty cells.
			padded := make([]string, numColumns)
			copy(padded, row)
			row = padded
		}

		code := Code{
			Code:         strings.TrimSpace(row[colFullCode]),
			Description:  strings.TrimSpace(row[colFull]),
			Category:     strings.TrimSpace(row[colCategoryTitle]),
			CategoryCode: strings.TrimSpace(row[colCategoryCode]),
		}
		if code.Code == "" {
			return nil, fmt.Errorf("row %d: missing full code", i+1)
		}
		if !opts.Compact {
			code.ShortDescription = strings.TrimSpace(row[colAbbreviated])
			for _, s := range []string{code.ShortDescription, code.Description} {
				if s != "" {
					code.Synonyms = append(code.Synonyms, s)
				}
			}
		}
		codes = append(codes, code)
	}
	if len(codes) == 0 {
		return nil, fmt.Errorf("release table contains no codes")
	}

	version := opts.Version
	if version == "" {
		version = DefaultReleaseVersion
	}
	return DatabaseFromCodes(codes, version), nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
