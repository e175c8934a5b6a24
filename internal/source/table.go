package source

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrHeaderNotFound = errors.New("header row not found")

const utf8BOM = "\ufeff"

// table is a delimited export with its header located and indexed
type table struct {
	columns map[string]int
	rows    []tableRow
}

type tableRow struct {
	line   int
	fields []string
}

// readTable scans past any preamble to the first record holding every required
// column, then collects the records that follow. Unreadable records are kept
// with nil fields so the caller can report them as malformed.
func readTable(r io.Reader, required ...string) (*table, error) {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(len(utf8BOM)); err == nil && string(bom) == utf8BOM {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var t *table
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, fmt.Errorf("error reading export: %w", err)
			}
			if t != nil {
				t.rows = append(t.rows, tableRow{line: parseErr.StartLine})
			}
			continue
		}

		if t == nil {
			if columns, ok := columnMap(record, required); ok {
				t = &table{columns: columns}
			}
			continue
		}
		if blankRecord(record) {
			continue
		}
		line, _ := reader.FieldPos(0)
		t.rows = append(t.rows, tableRow{line: line, fields: record})
	}

	if t == nil {
		return nil, fmt.Errorf("%w: need columns %s", ErrHeaderNotFound, strings.Join(required, ", "))
	}
	return t, nil
}

func columnMap(headers []string, required []string) (map[string]int, bool) {
	columns := make(map[string]int, len(headers))
	for i, header := range headers {
		key := strings.ToLower(strings.TrimSpace(header))
		if _, seen := columns[key]; !seen {
			columns[key] = i
		}
	}
	for _, col := range required {
		if _, ok := columns[strings.ToLower(col)]; !ok {
			return nil, false
		}
	}
	return columns, true
}

func blankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// get returns the trimmed value of a column, or "" when the row is short or the column absent
func (t *table) get(row tableRow, column string) string {
	i, ok := t.columns[strings.ToLower(column)]
	if !ok || i >= len(row.fields) {
		return ""
	}
	return strings.TrimSpace(row.fields[i])
}

// has reports whether the header carried a column
func (t *table) has(column string) bool {
	_, ok := t.columns[strings.ToLower(column)]
	return ok
}
