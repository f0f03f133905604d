// Package dataset reads and writes the CSV files the classifiers are
// trained and evaluated on, using the same feature code the server runs.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"adaptive-view-backend/internal/features"
	"adaptive-view-backend/internal/model"
)

// Row is one raw dataset record.
type Row struct {
	Line     int
	Snapshot features.Snapshot
	// Labels holds the label columns present in the file.
	Labels map[model.Target]string
}

// RowError reports a record that could not be turned into a Snapshot.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

type Reader struct {
	csv    *csv.Reader
	header []string
	labels []model.Target
}

// NewReader consumes the header line. All raw snapshot columns must be
// present; label columns are optional.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("dataset is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = append([]string(nil), header...)
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var missing []string
	for _, f := range features.RawFields {
		if !present[f] {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("header is missing columns: %s", strings.Join(missing, ", "))
	}

	rd := &Reader{csv: cr, header: header}
	for _, t := range model.Targets {
		if present[string(t)] {
			rd.labels = append(rd.labels, t)
		}
	}
	return rd, nil
}

// Labels returns the label columns found in the header, in response order.
func (r *Reader) Labels() []model.Target {
	return r.labels
}

// Next returns the next row, io.EOF at the end, or a *RowError for a
// record that failed parsing or validation, labels included. Reading may continue after a
// *RowError.
func (r *Reader) Next() (Row, error) {
	rec, err := r.csv.Read()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return Row{}, &RowError{Line: perr.Line, Err: perr.Err}
		}
		return Row{}, err
	}
	line, _ := r.csv.FieldPos(0)

	fields := make(map[string]string, len(rec))
	for i, v := range rec {
		if i < len(r.header) {
			fields[r.header[i]] = v
		}
	}

	snap, err := features.FromRecord(fields)
	if err != nil {
		return Row{}, &RowError{Line: line, Err: err}
	}

	row := Row{Line: line, Snapshot: snap, Labels: make(map[model.Target]string, len(r.labels))}
	for _, t := range r.labels {
		v := strings.TrimSpace(fields[string(t)])
		if allowed := model.Labels(t); !slices.Contains(allowed, v) {
			return Row{}, &RowError{Line: line, Err: fmt.Errorf("%s: %q is not one of %v", t, v, allowed)}
		}
		row.Labels[t] = v
	}
	return row, nil
}
