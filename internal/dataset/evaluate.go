package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"adaptive-view-backend/internal/model"
	"adaptive-view-backend/internal/prediction"
)

// ClassReport is one row of a per-class breakdown.
type ClassReport struct {
	Label string `json:"label"`
	// Support is how many rows carry this label.
	Support int `json:"support"`
	// Predicted is how many rows were predicted as this label.
	Predicted int     `json:"predicted"`
	Correct   int     `json:"correct"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
}

type TargetReport struct {
	Target   model.Target  `json:"target"`
	Total    int           `json:"total"`
	Correct  int           `json:"correct"`
	Accuracy float64       `json:"accuracy"`
	Classes  []ClassReport `json:"classes"`
}

type Report struct {
	Stats   Stats          `json:"-"`
	Failed  int            `json:"failed"`
	Targets []TargetReport `json:"targets"`
}

// Evaluate predicts every valid row of a labelled dataset and compares the
// served (gated) labels against the file's labels.
func Evaluate(ctx context.Context, in io.Reader, p *prediction.Predictor, logger *zap.Logger) (Report, error) {
	var rep Report

	rd, err := NewReader(in)
	if err != nil {
		return rep, err
	}
	if len(rd.Labels()) == 0 {
		return rep, errors.New("dataset has no label columns")
	}

	type counts struct {
		support, predicted, correct map[string]int
		total, hits                 int
	}
	byTarget := make(map[model.Target]*counts, len(rd.Labels()))
	for _, t := range rd.Labels() {
		byTarget[t] = &counts{support: map[string]int{}, predicted: map[string]int{}, correct: map[string]int{}}
	}

	for {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		row, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		rep.Stats.Read++

		var rowErr *RowError
		if errors.As(err, &rowErr) {
			rep.Stats.Dropped++
			logger.Warn("Skipping dataset row", zap.Int("line", rowErr.Line), zap.Error(rowErr.Err))
			continue
		}
		if err != nil {
			return rep, err
		}

		res, err := p.PredictSnapshot(ctx, row.Snapshot)
		if err != nil {
			rep.Failed++
			logger.Warn("Prediction failed for dataset row", zap.Int("line", row.Line), zap.Error(err))
			continue
		}
		rep.Stats.Written++

		for _, t := range rd.Labels() {
			want, got := row.Labels[t], label(res, t)
			c := byTarget[t]
			c.total++
			c.support[want]++
			c.predicted[got]++
			if want == got {
				c.hits++
				c.correct[want]++
			}
		}
	}

	for _, t := range rd.Labels() {
		c := byTarget[t]
		tr := TargetReport{Target: t, Total: c.total, Correct: c.hits, Accuracy: ratio(c.hits, c.total)}

		labels := make(map[string]bool)
		for l := range c.support {
			labels[l] = true
		}
		for l := range c.predicted {
			labels[l] = true
		}
		for l := range labels {
			tr.Classes = append(tr.Classes, ClassReport{
				Label:     l,
				Support:   c.support[l],
				Predicted: c.predicted[l],
				Correct:   c.correct[l],
				Precision: ratio(c.correct[l], c.predicted[l]),
				Recall:    ratio(c.correct[l], c.support[l]),
			})
		}
		sort.Slice(tr.Classes, func(i, j int) bool { return tr.Classes[i].Label < tr.Classes[j].Label })
		rep.Targets = append(rep.Targets, tr)
	}
	return rep, nil
}

func label(r prediction.Result, t model.Target) string {
	switch t {
	case model.TargetView:
		return r.View
	case model.TargetStatusFilter:
		return r.StatusFilter
	default:
		return r.PriorityFilter
	}
}

// ratio is zero when nothing was counted, like a zero_division=0 report.
func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

// WriteTo prints the report as aligned text tables.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	tw := tabwriter.NewWriter(cw, 0, 4, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintf(tw, "%s; %s prediction failures\n", r.Stats, humanize.Comma(int64(r.Failed)))
	for _, t := range r.Targets {
		fmt.Fprintf(tw, "\n%s\taccuracy %.4f (%s/%s)\t\n", t.Target, t.Accuracy,
			humanize.Comma(int64(t.Correct)), humanize.Comma(int64(t.Total)))
		fmt.Fprintln(tw, "label\tprecision\trecall\tsupport\t")
		for _, c := range t.Classes {
			fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%s\t\n", c.Label, c.Precision, c.Recall, humanize.Comma(int64(c.Support)))
		}
	}
	if err := tw.Flush(); err != nil {
		return cw.n, err
	}
	return cw.n, cw.err
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	if err != nil && c.err == nil {
		c.err = err
	}
	return n, err
}
