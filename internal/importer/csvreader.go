package importer

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
)

// RowSource yields the parsed rows of one uploaded spreadsheet. The batch
// importer treats a Rows error as "this file contributed nothing" and moves
// on to the next file.
type RowSource interface {
	Name() string
	Rows(ctx context.Context) ([]RawRow, error)
}

// CSVFile adapts an io.Reader containing CSV data to a RowSource. The first
// record is taken as the header row; every following record becomes a RawRow
// keyed by those headers.
type CSVFile struct {
	name string
	r    io.Reader
}

// NewCSVFile wraps a reader as a named CSV row source.
func NewCSVFile(name string, r io.Reader) *CSVFile {
	return &CSVFile{name: name, r: r}
}

// Name returns the source file name used in import logs.
func (f *CSVFile) Name() string { return f.name }

// Rows parses the whole file into header→value rows. Parser settings mirror
// what real-world marketing exports need: lazy quotes, variable field counts,
// UTF-8 BOM stripping. Individual malformed records are skipped; only a
// broken header fails the file.
func (f *CSVFile) Rows(ctx context.Context) ([]RawRow, error) {
	reader := csv.NewReader(stripBOM(f.r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read header of %s: %w", f.name, err)
	}

	var rows []RawRow
	for {
		if ctx.Err() != nil {
			return rows, ctx.Err()
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		row := make(RawRow, len(header))
		for i, h := range header {
			if i < len(record) {
				row[h] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// stripBOM removes a leading UTF-8 byte order mark, which Excel and several
// CRM exporters prepend and which would otherwise corrupt the first header.
func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	head, err := br.Peek(3)
	if err == nil && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
		br.Discard(3)
	}
	return br
}
