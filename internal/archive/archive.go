// Package archive saves media listings to disk as Parquet or JSONL and reads
// them back.
package archive

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mminspector/inspector/internal/models"
	"github.com/parquet-go/parquet-go"
)

// MediaRow is one flattened media record
type MediaRow struct {
	ID              string  `json:"id" parquet:"id"`
	Filename        string  `json:"filename" parquet:"filename"`
	MediaType       string  `json:"media_type" parquet:"media_type"`
	Status          string  `json:"status" parquet:"status"`
	SizeBytes       int64   `json:"size_bytes" parquet:"size_bytes"`
	Width           int32   `json:"width,omitempty" parquet:"width"`
	Height          int32   `json:"height,omitempty" parquet:"height"`
	DurationSeconds float64 `json:"duration_seconds,omitempty" parquet:"duration_seconds"`
	UploadedAt      string  `json:"uploaded_at" parquet:"uploaded_at"`
	Caption         string  `json:"caption,omitempty" parquet:"caption"`
}

func FromRecord(m models.MediaRecord) MediaRow {
	row := MediaRow{
		ID:         m.ID,
		Filename:   m.Filename,
		MediaType:  string(m.MediaType),
		Status:     string(m.Status),
		SizeBytes:  m.SizeBytes,
		UploadedAt: m.UploadedAt,
	}
	if m.Width != nil {
		row.Width = int32(*m.Width)
	}
	if m.Height != nil {
		row.Height = int32(*m.Height)
	}
	if m.Duration != nil {
		row.DurationSeconds = *m.Duration
	}
	if m.Analysis != nil {
		row.Caption = m.Analysis.Caption
	}
	return row
}

// Write stores records at path, choosing the format from the extension.
func Write(path string, records []models.MediaRecord) error {
	rows := make([]MediaRow, 0, len(records))
	for _, m := range records {
		rows = append(rows, FromRecord(m))
	}
	return writeRows(path, rows)
}

// Append merges records into the archive at path, creating it when missing.
// A record already in the archive replaces its stored row in place; new ones
// go at the end. It returns the number of rows now in the archive.
func Append(path string, records []models.MediaRecord) (int, error) {
	var rows []MediaRow
	if _, err := os.Stat(path); err == nil {
		if rows, err = Read(path); err != nil {
			return 0, err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	index := make(map[string]int, len(rows))
	for i, row := range rows {
		index[row.ID] = i
	}
	for _, m := range records {
		row := FromRecord(m)
		if i, ok := index[row.ID]; ok {
			rows[i] = row
			continue
		}
		index[row.ID] = len(rows)
		rows = append(rows, row)
	}

	if err := writeRows(path, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func writeRows(path string, rows []MediaRow) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".parquet" && ext != ".jsonl" {
		return fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl)", ext)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if ext == ".parquet" {
		err = writeParquet(file, rows)
	} else {
		err = writeJSONL(file, rows)
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return err
	}

	slog.Debug("Wrote media archive", "path", path, "rows", len(rows))
	return nil
}

func writeParquet(w io.Writer, rows []MediaRow) error {
	writer := parquet.NewGenericWriter[MediaRow](w)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

func writeJSONL(w io.Writer, rows []MediaRow) error {
	enc := json.NewEncoder(w)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("failed to encode row %s: %w", row.ID, err)
		}
	}
	return nil
}

// Read loads rows from a .parquet or .jsonl archive
func Read(path string) ([]MediaRow, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".parquet":
		return readParquet(path)
	case ".jsonl":
		return readJSONL(path)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl)", ext)
	}
}

func readParquet(path string) ([]MediaRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[MediaRow](pf)
	defer reader.Close()

	var records []MediaRow
	rows := make([]MediaRow, 128)
	for {
		n, err := reader.Read(rows)
		records = append(records, rows[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
	return records, nil
}

func readJSONL(path string) ([]MediaRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer file.Close()

	var records []MediaRow
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var row MediaRow
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		records = append(records, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading archive: %w", err)
	}
	return records, nil
}
