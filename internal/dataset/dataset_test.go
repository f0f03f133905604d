package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"adaptive-view-backend/internal/features"
	"adaptive-view-backend/internal/model"
	"adaptive-view-backend/internal/prediction"
)

const labelled = `number_of_tasks,num_critical_open,num_high_open,num_medium_open,num_low_open,num_pending,num_todo,num_inprogress,num_done,num_blocked,overdue_tasks,due_today,time_of_day,sorted_by,last_task_created_label,last_task_created_priority,last_task_created_status,predicted_view,predicted_status_filter,predicted_priority_filter
4,0,2,1,0,0,3,0,1,0,0,0,9,none,Feature,Hoch,Zu Erledigen,list,Zu Erledigen,Hoch
5,0,2,1,0,0,3,0,1,0,0,0,9,none,Feature,Hoch,Zu Erledigen,list,Zu Erledigen,Hoch
4.0,0.0,2.0,1.0,0.0,0.0,3.0,0.0,1.0,0.0,0.0,0.0,9.0,Title,Bug,Kritisch,Zu Erledigen,list,Zu Erledigen,none
0,0,0,0,0,0,0,0,0,0,0,0,23,none,Dokumentation,Niedrig,Erledigt,list,none,none
`

func readAll(t *testing.T, data []byte) []map[string]string {
	t.Helper()
	recs, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, recs)

	var out []map[string]string
	for _, rec := range recs[1:] {
		m := make(map[string]string, len(rec))
		for i, v := range rec {
			m[recs[0][i]] = v
		}
		out = append(out, m)
	}
	return out
}

func TestReader(t *testing.T) {
	rd, err := NewReader(strings.NewReader(labelled))
	require.NoError(t, err)
	assert.Equal(t, model.Targets, rd.Labels())

	row, err := rd.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, row.Line)
	assert.Equal(t, 4, row.Snapshot.NumberOfTasks)
	assert.Equal(t, "Hoch", row.Labels[model.TargetPriorityFilter])

	_, err = rd.Next()
	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 3, rowErr.Line)
	assert.ErrorIs(t, err, features.ErrFeatureEngineering)

	row, err = rd.Next()
	require.NoError(t, err)
	assert.Equal(t, "Title", row.Snapshot.SortedBy)
}

func TestNewReader_Rejects(t *testing.T) {
	_, err := NewReader(strings.NewReader(""))
	assert.ErrorContains(t, err, "empty")

	_, err = NewReader(strings.NewReader("number_of_tasks,num_done\n1,1\n"))
	assert.ErrorContains(t, err, "num_critical_open")
}

func TestEngineer(t *testing.T) {
	var out bytes.Buffer
	st, err := Engineer(strings.NewReader(labelled), &out, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, Stats{Read: 4, Written: 3, Dropped: 1}, st)
	assert.Equal(t, "4 rows read, 3 written, 1 dropped", st.String())

	header := strings.SplitN(out.String(), "\n", 2)[0]
	want := append(features.Columns(), "predicted_view", "predicted_status_filter", "predicted_priority_filter")
	assert.Equal(t, strings.Join(want, ","), header)

	rows := readAll(t, out.Bytes())
	require.Len(t, rows, 3)

	assert.Equal(t, "4", rows[0]["number_of_tasks"])
	assert.Equal(t, "0.75", rows[0]["pct_todo_status"])
	assert.Equal(t, "2", rows[0]["number_of_statuses_used"])
	assert.Equal(t, "0", rows[0]["last_action_critical_bug"])
	assert.Equal(t, "Hoch", rows[0]["predicted_priority_filter"])

	// Float-typed counters engineer identically.
	assert.Equal(t, rows[0]["status_entropy"], rows[1]["status_entropy"])
	assert.Equal(t, "1", rows[1]["last_action_critical_bug"])

	for _, col := range features.Columns() {
		if _, isNum := (features.Vector{}).Float(col); isNum && col != "time_of_day" {
			assert.Equal(t, "0", rows[2][col], col)
		}
	}
}

func TestEngineer_WithoutLabels(t *testing.T) {
	raw := strings.Join(features.RawFields, ",") + "\n" +
		"2,0,0,0,1,1,0,0,1,0,0,0,12,DueDate,Bug,Niedrig,Start ausstehend\n"

	var out bytes.Buffer
	st, err := Engineer(strings.NewReader(raw), &out, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, st.Written)

	header := strings.SplitN(out.String(), "\n", 2)[0]
	assert.Equal(t, strings.Join(features.Columns(), ","), header)
}

func TestEngineer_InvalidLabelsAreDropped(t *testing.T) {
	header := strings.Join(features.RawFields, ",") + ",predicted_view,predicted_status_filter,predicted_priority_filter\n"
	counts := "4,0,2,1,0,0,3,0,1,0,0,0,9,none,Feature,Hoch,Zu Erledigen,"

	tests := []struct {
		labels string
		column string
	}{
		{"grid,none,none", "predicted_view"},
		{"Kanban,none,none", "predicted_view"},
		{"list,Whatever,none", "predicted_status_filter"},
		{"list,none,Urgent", "predicted_priority_filter"},
		{"list,,none", "predicted_status_filter"},
	}
	for _, tt := range tests {
		t.Run(tt.labels, func(t *testing.T) {
			raw := header + counts + tt.labels + "\n" + counts + "kanban,none,none\n"

			rd, err := NewReader(strings.NewReader(raw))
			require.NoError(t, err)
			_, err = rd.Next()
			var rowErr *RowError
			require.ErrorAs(t, err, &rowErr)
			assert.Equal(t, 2, rowErr.Line)
			assert.ErrorContains(t, err, tt.column)

			var out bytes.Buffer
			st, err := Engineer(strings.NewReader(raw), &out, zap.NewNop())
			require.NoError(t, err)
			assert.Equal(t, Stats{Read: 2, Written: 1, Dropped: 1}, st)
			assert.NotContains(t, out.String(), tt.labels)
		})
	}
}

func TestEngineer_ShortRecordIsDropped(t *testing.T) {
	raw := strings.Join(features.RawFields, ",") + "\n" + "2,0,0\n"

	var out bytes.Buffer
	st, err := Engineer(strings.NewReader(raw), &out, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, Stats{Read: 1, Dropped: 1}, st)
}

func TestEvaluate(t *testing.T) {
	p := prediction.New(model.Rules(), zap.NewNop())

	rep, err := Evaluate(context.Background(), strings.NewReader(labelled), p, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, Stats{Read: 4, Written: 3, Dropped: 1}, rep.Stats)
	require.Len(t, rep.Targets, 3)

	view, status, priority := rep.Targets[0], rep.Targets[1], rep.Targets[2]
	assert.Equal(t, 1.0, view.Accuracy)
	assert.Equal(t, 1.0, status.Accuracy)
	assert.Equal(t, model.TargetPriorityFilter, priority.Target)
	assert.Equal(t, 2, priority.Correct)
	assert.InDelta(t, 2.0/3, priority.Accuracy, 1e-12)

	assert.Equal(t, []ClassReport{
		{Label: "Hoch", Support: 1},
		{Label: "none", Support: 2, Predicted: 3, Correct: 2, Precision: 2.0 / 3, Recall: 1},
	}, priority.Classes)

	var out bytes.Buffer
	_, err = rep.WriteTo(&out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "predicted_priority_filter")
	assert.Contains(t, out.String(), "accuracy 0.6667 (2/3)")
}

func TestEvaluate_NeedsLabels(t *testing.T) {
	raw := strings.Join(features.RawFields, ",") + "\n"
	_, err := Evaluate(context.Background(), strings.NewReader(raw), prediction.New(model.Rules(), zap.NewNop()), zap.NewNop())
	assert.ErrorContains(t, err, "no label columns")
}
