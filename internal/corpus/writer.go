// Package corpus persists crawl output: CSV files for the collected
// comments, a normalization pass producing the analysis-ready corpus, and an
// optional git archive of each run.
package corpus

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/commentscope/commentscope/pkg/comment"
)

// utf8BOM lets spreadsheet tools detect the encoding of the Korean text.
const utf8BOM = "\ufeff"

// header is the fixed column order of every corpus file.
var header = []string{"date", "comment", "link"}

// WriteRecords writes records as a UTF-8-with-BOM CSV at path, header row
// included. The write is all-or-nothing: output goes to a temp file in the
// target directory which is fsynced and renamed over the final path, so a
// failure leaves no partial file behind.
func WriteRecords(path string, records []comment.Record) error {
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, Row{Date: rec.Date(), Comment: rec.Text, Link: rec.SourceLink})
	}
	return writeRows(path, rows)
}

// ReadRecords reads a corpus CSV back, tolerating a leading BOM and
// requiring the fixed header. Rows with a malformed date column are
// returned with the raw date preserved only in text form, so Row is used
// instead of comment.Record.
func ReadRecords(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(header)

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus file: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("corpus file %s has no header", path)
	}

	first := rows[0]
	if len(first) > 0 {
		// encoding/csv keeps the BOM glued to the first field.
		first[0] = trimBOM(first[0])
	}
	if first[0] != header[0] || first[1] != header[1] || first[2] != header[2] {
		return nil, fmt.Errorf("corpus file %s has unexpected header %v", path, first)
	}

	out := make([]Row, 0, len(rows)-1)
	for _, row := range rows[1:] {
		out = append(out, Row{Date: row[0], Comment: row[1], Link: row[2]})
	}
	return out, nil
}

// Row is one corpus CSV row as stored.
type Row struct {
	Date    string
	Comment string
	Link    string
}

func trimBOM(s string) string {
	if len(s) >= len(utf8BOM) && s[:len(utf8BOM)] == utf8BOM {
		return s[len(utf8BOM):]
	}
	return s
}
