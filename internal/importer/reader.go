package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// ChunkFunc receives one chunk of data rows, the 0-based chunk index and a
// flag marking the final chunk. Returning an error aborts the run.
type ChunkFunc func(rows [][]string, index int, last bool) error

// ChunkReader reads an import file incrementally. Headers is available
// immediately after opening, before any data row is produced; chunks arrive
// in file order. A reader is good for one pass only.
type ChunkReader interface {
	Headers() []string
	// TotalRows reports the number of data rows, or -1 when the format
	// cannot tell without a full pass.
	TotalRows() int
	ReadChunks(ctx context.Context, size int, fn ChunkFunc) error
	Close() error
}

// OpenReader picks the reader for a file by extension (.csv, .xlsx, .xls).
func OpenReader(fileName string, data []byte) (ChunkReader, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return newCSVReader(data)
	case ".xlsx":
		return newXLSXReader(data)
	case ".xls":
		return newXLSReader(data)
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", filepath.Ext(fileName))
	}
}

// --- CSV ---

type csvReader struct {
	headers []string
	total   int
	rows    *csv.Reader
}

func newCSVReader(data []byte) (*csvReader, error) {
	if !utf8.Valid(data) {
		// Partner exports are frequently Windows-1252.
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err == nil {
			data = decoded
		}
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	headerLine, _, _ := bytes.Cut(data, []byte("\n"))
	sep := detectDelimiter(string(headerLine))

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sep
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	headers, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty file: no header row")
		}
		return nil, fmt.Errorf("read header row: %w", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	// Count non-empty lines only; encoding/csv skips blank lines, so the
	// total must too or the progress denominator drifts.
	total := 0
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimRight(line, "\r")) > 0 {
			total++
		}
	}
	total-- // header line

	return &csvReader{headers: headers, total: total, rows: r}, nil
}

func (c *csvReader) Headers() []string { return c.headers }
func (c *csvReader) TotalRows() int    { return c.total }
func (c *csvReader) Close() error      { return nil }

func (c *csvReader) ReadChunks(ctx context.Context, size int, fn ChunkFunc) error {
	next := func() ([]string, error) {
		row, err := c.rows.Read()
		if err != nil {
			return nil, err
		}
		// Pad short rows so mapped column indexes always resolve.
		if len(row) < len(c.headers) {
			padded := make([]string, len(c.headers))
			copy(padded, row)
			row = padded
		}
		return row, nil
	}
	return driveChunks(ctx, size, next, fn)
}

// detectDelimiter picks comma or semicolon for a CSV by splitting the
// literal header line with the local quote-aware splitter.
func detectDelimiter(headerLine string) rune {
	if len(splitDelimitedLine(headerLine, ';')) > len(splitDelimitedLine(headerLine, ',')) {
		return ';'
	}
	return ','
}

// splitDelimitedLine splits one delimited line honoring double-quoted
// fields with "" escapes. It backs delimiter detection and header
// extraction independent of the main CSV reader.
func splitDelimitedLine(line string, sep rune) []string {
	var fields []string
	var field strings.Builder
	inQuotes := false

	runes := []rune(strings.TrimRight(line, "\r\n"))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				field.WriteRune('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case r == sep && !inQuotes:
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteRune(r)
		}
	}
	fields = append(fields, field.String())
	return fields
}

// --- XLSX ---

type xlsxReader struct {
	file    *excelize.File
	rows    *excelize.Rows
	headers []string
}

func newXLSXReader(data []byte) (*xlsxReader, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		_ = f.Close()
		return nil, errors.New("xlsx has no sheets")
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open sheet %q: %w", sheets[0], err)
	}

	if !rows.Next() {
		_ = rows.Close()
		_ = f.Close()
		return nil, errors.New("empty file: no header row")
	}
	headers, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		_ = f.Close()
		return nil, fmt.Errorf("read header row: %w", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	return &xlsxReader{file: f, rows: rows, headers: headers}, nil
}

func (x *xlsxReader) Headers() []string { return x.headers }
func (x *xlsxReader) TotalRows() int    { return -1 }

func (x *xlsxReader) Close() error {
	_ = x.rows.Close()
	return x.file.Close()
}

func (x *xlsxReader) ReadChunks(ctx context.Context, size int, fn ChunkFunc) error {
	next := func() ([]string, error) {
		if !x.rows.Next() {
			if err := x.rows.Error(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		return x.rows.Columns()
	}
	return driveChunks(ctx, size, next, fn)
}

// --- XLS (legacy binary) ---

type xlsLegacyReader struct {
	headers []string
	data    [][]string
	pos     int
}

func newXLSReader(data []byte) (*xlsLegacyReader, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}

	sheet, err := wb.GetSheet(0)
	if err != nil {
		return nil, fmt.Errorf("open xls sheet: %w", err)
	}

	// The legacy reader only exposes fully materialized rows; acceptable
	// because .xls caps out at 65536 rows anyway.
	var all [][]string
	for _, row := range sheet.GetRows() {
		var cells []string
		for _, cell := range row.GetCols() {
			cells = append(cells, cell.GetString())
		}
		all = append(all, cells)
	}
	if len(all) == 0 {
		return nil, errors.New("empty file: no header row")
	}

	headers := all[0]
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	return &xlsLegacyReader{headers: headers, data: all[1:]}, nil
}

func (x *xlsLegacyReader) Headers() []string { return x.headers }
func (x *xlsLegacyReader) TotalRows() int    { return len(x.data) }
func (x *xlsLegacyReader) Close() error      { return nil }

func (x *xlsLegacyReader) ReadChunks(ctx context.Context, size int, fn ChunkFunc) error {
	next := func() ([]string, error) {
		if x.pos >= len(x.data) {
			return nil, io.EOF
		}
		row := x.data[x.pos]
		x.pos++
		return row, nil
	}
	return driveChunks(ctx, size, next, fn)
}

// driveChunks pulls rows from next until EOF, grouping them into chunks of
// at most size rows. The last chunk is flagged by peeking one row ahead, so
// callers learn about the final chunk when it is delivered, not after.
func driveChunks(ctx context.Context, size int, next func() ([]string, error), fn ChunkFunc) error {
	if size <= 0 {
		return errors.New("chunk size must be positive")
	}

	var (
		chunk  [][]string
		peeked []string
		index  int
	)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var row []string
		if peeked != nil {
			row, peeked = peeked, nil
		} else {
			var err error
			row, err = next()
			if errors.Is(err, io.EOF) {
				return fn(chunk, index, true)
			}
			if err != nil {
				return err
			}
		}

		chunk = append(chunk, row)
		if len(chunk) < size {
			continue
		}

		// Chunk full: peek to learn whether this is the last one.
		ahead, err := next()
		if errors.Is(err, io.EOF) {
			return fn(chunk, index, true)
		}
		if err != nil {
			return err
		}
		peeked = ahead

		if err := fn(chunk, index, false); err != nil {
			return err
		}
		chunk = nil
		index++
	}
}
