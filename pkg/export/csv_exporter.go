// Package export renders tabular report datasets into downloadable documents.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset defines tabular export content. Rows are keyed by header; missing cells render empty.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Record returns the row values in header order.
func (d Dataset) Record(i int) []string {
	record := make([]string, len(d.Headers))
	for j, header := range d.Headers {
		record[j] = d.Rows[i][header]
	}
	return record
}

// CSVExporter renders Dataset records into CSV bytes.
type CSVExporter struct {
	// Comma overrides the field delimiter when set.
	Comma rune
}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the dataset.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if e.Comma != 0 {
		writer.Comma = e.Comma
	}
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for i := range data.Rows {
		if err := writer.Write(data.Record(i)); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
