package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"adaptive-view-backend/internal/features"
)

// Stats counts what a dataset pass did with its input rows.
type Stats struct {
	Read    int
	Written int
	Dropped int
}

func (s Stats) String() string {
	return fmt.Sprintf("%s rows read, %s written, %s dropped",
		humanize.Comma(int64(s.Read)), humanize.Comma(int64(s.Written)), humanize.Comma(int64(s.Dropped)))
}

// Engineer converts a raw dataset into the engineered layout: the feature
// columns in canonical order followed by whichever label columns the input
// carries. Rows that fail validation are logged and dropped.
func Engineer(in io.Reader, out io.Writer, logger *zap.Logger) (Stats, error) {
	var st Stats

	rd, err := NewReader(in)
	if err != nil {
		return st, err
	}

	columns := features.Columns()
	header := append([]string(nil), columns...)
	for _, t := range rd.Labels() {
		header = append(header, string(t))
	}

	w := csv.NewWriter(out)
	if err := w.Write(header); err != nil {
		return st, err
	}

	record := make([]string, len(header))
	for {
		row, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		st.Read++

		var rowErr *RowError
		if errors.As(err, &rowErr) {
			st.Dropped++
			logger.Warn("Dropping dataset row", zap.Int("line", rowErr.Line), zap.Error(rowErr.Err))
			continue
		}
		if err != nil {
			return st, err
		}

		v, err := features.Engineer(row.Snapshot)
		if err != nil {
			st.Dropped++
			logger.Warn("Dropping dataset row", zap.Int("line", row.Line), zap.Error(err))
			continue
		}

		for i, name := range columns {
			if record[i], err = v.Format(name); err != nil {
				return st, err
			}
		}
		for i, t := range rd.Labels() {
			record[len(columns)+i] = row.Labels[t]
		}
		if err := w.Write(record); err != nil {
			return st, err
		}
		st.Written++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return st, err
	}
	logger.Info("Engineered dataset", zap.Int("read", st.Read), zap.Int("written", st.Written), zap.Int("dropped", st.Dropped))
	return st, nil
}
