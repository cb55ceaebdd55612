package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"placematch/internal/place"
)

// Column layouts for the three reports.
var (
	CandidateHeader = []string{
		"place_id",
		"place_name",
		"place_address",
		"place_state",
		"place_lat",
		"place_lon",
		"google_place_id",
		"google_name",
		"google_address",
		"distance_m",
		"score",
		"method",
		"reasons",
		"maps_url",
	}
	UnmatchedHeader = []string{
		"place_id",
		"place_name",
		"place_address",
		"place_state",
		"place_lat",
		"place_lon",
		"reason",
	}
)

// Writer appends rows to one CSV file.
type Writer struct {
	path string
	file io.Closer
	csv  *csv.Writer
	rows int
}

// Create truncates path, creating parent directories, and writes header.
func Create(path string, header []string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create report directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create report %s: %w", path, err)
	}
	w := newWriter(file, file, header)
	w.path = path
	if err := w.csv.Error(); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("write report header: %w", err)
	}
	return w, nil
}

func newWriter(out io.Writer, closer io.Closer, header []string) *Writer {
	w := &Writer{file: closer, csv: csv.NewWriter(out)}
	_ = w.csv.Write(header)
	return w
}

// Path returns the file the writer targets.
func (w *Writer) Path() string { return w.path }

// Rows returns the number of data rows written.
func (w *Writer) Rows() int { return w.rows }

func (w *Writer) write(row []string) error {
	if err := w.csv.Write(row); err != nil {
		return fmt.Errorf("write report row: %w", err)
	}
	w.rows++
	return nil
}

// Close flushes buffered rows and closes the file.
func (w *Writer) Close() error {
	w.csv.Flush()
	flushErr := w.csv.Error()
	var closeErr error
	if w.file != nil {
		closeErr = w.file.Close()
	}
	return errors.Join(flushErr, closeErr)
}

// placeColumns are the leading columns shared by every report.
func placeColumns(r place.Record) []string {
	lat, lon := "", ""
	if r.HasCoordinate() {
		lat = strconv.FormatFloat(r.Coordinate.Lat, 'f', -1, 64)
		lon = strconv.FormatFloat(r.Coordinate.Lon, 'f', -1, 64)
	}
	return []string{r.ID, r.Name, r.Address, r.State, lat, lon}
}

// CandidateRow renders a matched or review decision.
func CandidateRow(r place.Record, d place.Decision) []string {
	row := placeColumns(r)
	var id, name, address, mapsURL string
	if c := d.Candidate; c != nil {
		id, name, address = c.ExternalID, c.Name, c.Address
		if id != "" {
			mapsURL = place.MapsURL(id)
		}
	}
	distance := ""
	if m, ok := d.RoundedDistance(); ok {
		distance = strconv.Itoa(m)
	}
	score := ""
	if d.Score != nil {
		score = strconv.Itoa(*d.Score)
	}
	return append(row,
		id,
		name,
		address,
		distance,
		score,
		string(d.Method),
		strings.Join(d.Reasons, "|"),
		mapsURL,
	)
}

// UnmatchedRow renders an unmatched record with its reason.
func UnmatchedRow(r place.Record, reason string) []string {
	if strings.TrimSpace(reason) == "" {
		reason = "no-match"
	}
	return append(placeColumns(r), reason)
}

// ErrorReason formats a processing failure for the unmatched report.
func ErrorReason(err error) string {
	msg := "unknown"
	if err != nil && strings.TrimSpace(err.Error()) != "" {
		msg = err.Error()
	}
	return "error:" + msg
}
