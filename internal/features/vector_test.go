package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorProject_OrderFollowsNames(t *testing.T) {
	v, err := Engineer(validSnapshot())
	require.NoError(t, err)

	a, err := v.Project([]string{"overdue_tasks", "pct_done_status", "num_open_tasks"})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 0.125, 70}, a)

	b, err := v.Project([]string{"num_open_tasks", "overdue_tasks", "pct_done_status"})
	require.NoError(t, err)
	assert.Equal(t, []float64{70, 2, 0.125}, b)
}

func TestVectorProject_OneHot(t *testing.T) {
	v, err := Engineer(validSnapshot())
	require.NoError(t, err)

	x, err := v.Project([]string{"sorted_by=Status", "sorted_by=Title", "last_task_created_label=Epic"})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 0}, x)
}

func TestVectorProject_UnknownNames(t *testing.T) {
	v, err := Engineer(validSnapshot())
	require.NoError(t, err)

	_, err = v.Project([]string{"pct_overdue", "velocity"})
	assert.ErrorIs(t, err, ErrUnknownFeature)

	_, err = v.Project([]string{"pct_overdue=1"})
	assert.ErrorIs(t, err, ErrUnknownFeature)

	// Categoricals must be addressed one-hot.
	_, err = v.Project([]string{"sorted_by"})
	assert.ErrorIs(t, err, ErrUnknownFeature)
}

func TestCheckNames(t *testing.T) {
	assert.NoError(t, CheckNames([]string{"status_entropy", "pct_low_open", "last_task_created_status=Blockiert"}))
	assert.ErrorIs(t, CheckNames([]string{"health"}), ErrUnknownFeature)
}

func TestColumns_DatasetLayout(t *testing.T) {
	cols := Columns()
	require.Len(t, cols, 25)
	assert.Equal(t, "number_of_tasks", cols[0])
	assert.Equal(t, "sorted_by", cols[20])
	assert.Equal(t, "last_action_critical_bug", cols[24])
}

func TestVectorFormat(t *testing.T) {
	v, err := Engineer(validSnapshot())
	require.NoError(t, err)

	got, err := v.Format("pct_done_status")
	require.NoError(t, err)
	assert.Equal(t, "0.125", got)

	got, err = v.Format("number_of_tasks")
	require.NoError(t, err)
	assert.Equal(t, "80", got)

	got, err = v.Format("last_task_created_status")
	require.NoError(t, err)
	assert.Equal(t, "Zu Erledigen", got)

	_, err = v.Format("nope")
	assert.ErrorIs(t, err, ErrUnknownFeature)
}
