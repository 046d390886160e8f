package corpus

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/commentscope/commentscope/pkg/logging"
	"github.com/commentscope/commentscope/pkg/normalize"
)

// PrepareStats summarizes one preparation pass.
type PrepareStats struct {
	Read    int `json:"read"`
	Kept    int `json:"kept"`
	Dropped int `json:"dropped"`
}

// Prepare normalizes a written raw corpus into the analysis-ready corpus
// file: each comment runs through the normalization pipeline and rows whose
// normalized text falls outside the admissible length are dropped. Dates and
// links pass through untouched. The output write is all-or-nothing like
// WriteRecords.
func Prepare(pipeline *normalize.Pipeline, inPath, outPath string) (PrepareStats, error) {
	logger := logging.GetLogger("corpus-prepare")
	var stats PrepareStats

	rows, err := ReadRecords(inPath)
	if err != nil {
		return stats, err
	}
	stats.Read = len(rows)

	kept := make([]Row, 0, len(rows))
	for _, row := range rows {
		normalized := pipeline.Normalize(row.Comment)
		if !normalize.Admissible(normalized) {
			stats.Dropped++
			continue
		}
		kept = append(kept, Row{Date: row.Date, Comment: normalized, Link: row.Link})
	}
	stats.Kept = len(kept)

	if err := writeRows(outPath, kept); err != nil {
		return stats, err
	}
	logger.Info().
		Str("input", inPath).
		Str("output", outPath).
		Int("read", stats.Read).
		Int("kept", stats.Kept).
		Int("dropped", stats.Dropped).
		Msg("Prepared corpus")
	return stats, nil
}

// writeRows mirrors WriteRecords for already-stringified rows.
func writeRows(path string, rows []Row) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if _, err := tmp.WriteString(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write([]string{row.Date, row.Comment, row.Link}); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", path, err)
	}
	return nil
}
