package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Row is a single data row keyed by normalized header name.
type Row map[string]string

// Get returns the trimmed cell value for a header, empty when absent.
func (r Row) Get(key string) string {
	return strings.TrimSpace(r[key])
}

// ParseXLSX reads the first sheet of a workbook. The first row is treated
// as headers; empty rows are skipped.
func ParseXLSX(data []byte) ([]Row, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	raw, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	return assemble(raw), nil
}

// ParseCSV reads comma-separated data with a header row.
func ParseCSV(data []byte) ([]Row, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var raw [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		raw = append(raw, record)
	}

	return assemble(raw), nil
}

func assemble(raw [][]string) []Row {
	if len(raw) < 2 {
		return nil
	}

	headers := make([]string, len(raw[0]))
	for i, h := range raw[0] {
		headers[i] = normalizeHeader(h)
	}

	rows := make([]Row, 0, len(raw)-1)
	for _, record := range raw[1:] {
		row := Row{}
		empty := true
		for i, value := range record {
			if i >= len(headers) || headers[i] == "" {
				continue
			}
			value = strings.TrimSpace(value)
			if value != "" {
				empty = false
			}
			row[headers[i]] = value
		}
		if !empty {
			rows = append(rows, row)
		}
	}
	return rows
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.ReplaceAll(h, " ", "_")
}
