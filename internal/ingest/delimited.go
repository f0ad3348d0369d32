package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultDelimiter separates fields when none is configured.
const DefaultDelimiter = ','

// utf8BOM is stripped from the start of input text.
const utf8BOM = "\ufeff"

// Record is one data row keyed by column name.
type Record map[string]string

// ParseOptions controls ParseTable.
type ParseOptions struct {
	// Delimiter separates fields. Zero means DefaultDelimiter.
	Delimiter rune

	// HasHeader treats the first non-blank line as column names.
	HasHeader bool
}

// Table is parsed delimited text with its column order preserved.
type Table struct {
	// Header lists column names in input order. Without a header line the
	// names are column_1..column_N for the widest row.
	Header []string

	// Rows holds one record per data line.
	Rows []Record

	// HasHeader reports whether Header came from the input.
	HasHeader bool
}

// ColumnName returns the positional name used for column i (0-based) when the
// input has no header line.
func ColumnName(i int) string {
	return "column_" + strconv.Itoa(i+1)
}

// ParseDelimited parses comma separated text into records.
// Blank lines are skipped. Fields missing at the end of a line are empty.
func ParseDelimited(text string, hasHeader bool) []Record {
	return ParseTable(text, ParseOptions{HasHeader: hasHeader}).Rows
}

// ParseTable parses delimited text line by line.
//
// A field may be quoted with '"'. Inside quotes the delimiter is literal and
// "" is an escaped quote; any other quote toggles quoted mode. Values are
// kept verbatim; only header names are trimmed. Fields cannot span lines.
func ParseTable(text string, opts ParseOptions) *Table {
	delim := opts.Delimiter
	if delim == 0 {
		delim = DefaultDelimiter
	}

	table := &Table{HasHeader: opts.HasHeader}
	var lines [][]string
	for _, line := range strings.Split(strings.TrimPrefix(text, utf8BOM), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, splitLine(line, delim))
	}
	if len(lines) == 0 {
		return table
	}

	if opts.HasHeader {
		table.Header = make([]string, len(lines[0]))
		for i, name := range lines[0] {
			name = strings.TrimSpace(name)
			if name == "" {
				name = ColumnName(i)
			}
			table.Header[i] = name
		}
		lines = lines[1:]
	} else {
		width := 0
		for _, fields := range lines {
			width = max(width, len(fields))
		}
		table.Header = make([]string, width)
		for i := range width {
			table.Header[i] = ColumnName(i)
		}
	}

	table.Rows = make([]Record, 0, len(lines))
	for _, fields := range lines {
		record := make(Record, len(table.Header))
		for i, name := range table.Header {
			if i < len(fields) {
				record[name] = fields[i]
			} else {
				record[name] = ""
			}
		}
		table.Rows = append(table.Rows, record)
	}
	return table
}

// ParseFile reads path and parses it with ParseTable.
func ParseFile(path string, opts ParseOptions) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading input file %s: %w", path, err)
	}
	return ParseTable(string(data), opts), nil
}

// splitLine splits one line into fields, honouring quotes.
func splitLine(line string, delim rune) []string {
	var (
		fields   []string
		field    strings.Builder
		inQuotes bool
	)

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				field.WriteRune('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case c == delim && !inQuotes:
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteRune(c)
		}
	}
	return append(fields, field.String())
}

// FormatDelimited writes header and rows as delimited text, quoting fields
// that contain the delimiter, quotes or a leading space. The output parses
// back to the same values with ParseTable as long as no value holds a line
// break.
func FormatDelimited(header []string, rows []Record, delim rune) (string, error) {
	if delim == 0 {
		delim = DefaultDelimiter
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	w.Comma = delim

	if err := writeFields(w, &sb, header); err != nil {
		return "", fmt.Errorf("writing header: %w", err)
	}
	fields := make([]string, len(header))
	for i, row := range rows {
		for j, name := range header {
			fields[j] = row[name]
		}
		if err := writeFields(w, &sb, fields); err != nil {
			return "", fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flushing output: %w", err)
	}
	return sb.String(), nil
}

// writeFields writes one line. csv.Writer renders a lone empty field as a
// blank line, which ParseTable skips, so that case is written as "".
func writeFields(w *csv.Writer, sb *strings.Builder, fields []string) error {
	if len(fields) == 1 && fields[0] == "" {
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
		sb.WriteString("\"\"\n")
		return nil
	}
	return w.Write(fields)
}
