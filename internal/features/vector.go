package features

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownFeature is returned by Project for a name the engineer does not produce.
var ErrUnknownFeature = errors.New("unknown feature")

// Vector is the engineered, named feature set for one snapshot. Classifiers
// read it by name; positions only exist after Project.
type Vector struct {
	NumberOfTasks int
	NumOpenTasks  int

	NumCriticalOpen int
	NumHighOpen     int
	NumMediumOpen   int
	NumLowOpen      int

	NumPending    int
	NumTodo       int
	NumInProgress int
	NumDone       int
	NumBlocked    int

	OverdueTasks int
	DueToday     int
	TimeOfDay    int

	PctOverdue           float64
	NumberOfStatusesUsed int
	StatusEntropy        float64
	WIPLoad              float64

	PctCriticalOpen float64
	PctHighOpen     float64
	PctMediumOpen   float64
	PctLowOpen      float64

	PctPendingStatus    float64
	PctTodoStatus       float64
	PctInProgressStatus float64
	PctDoneStatus       float64
	PctBlockedStatus    float64

	HealthScore     float64
	CrisisIndex     float64
	BacklogPressure float64

	SortedBy                string
	LastTaskCreatedLabel    string
	LastTaskCreatedPriority string
	LastTaskCreatedStatus   string
	LastActionCriticalBug   int
}

type columnKind int

const (
	kindInt columnKind = iota
	kindFloat
	kindCategory
)

type column struct {
	name string
	kind columnKind
	num  func(*Vector) float64
	cat  func(*Vector) string
}

func intCol(name string, f func(*Vector) int) column {
	return column{name: name, kind: kindInt, num: func(v *Vector) float64 { return float64(f(v)) }}
}

func floatCol(name string, f func(*Vector) float64) column {
	return column{name: name, kind: kindFloat, num: f}
}

func catCol(name string, f func(*Vector) string) column {
	return column{name: name, kind: kindCategory, cat: f}
}

// datasetColumns is the engineered dataset layout, in order.
var datasetColumns = []column{
	intCol("number_of_tasks", func(v *Vector) int { return v.NumberOfTasks }),
	intCol("overdue_tasks", func(v *Vector) int { return v.OverdueTasks }),
	floatCol("pct_overdue", func(v *Vector) float64 { return v.PctOverdue }),
	intCol("due_today", func(v *Vector) int { return v.DueToday }),
	intCol("time_of_day", func(v *Vector) int { return v.TimeOfDay }),
	intCol("number_of_statuses_used", func(v *Vector) int { return v.NumberOfStatusesUsed }),
	floatCol("status_entropy", func(v *Vector) float64 { return v.StatusEntropy }),
	floatCol("wip_load", func(v *Vector) float64 { return v.WIPLoad }),
	floatCol("pct_critical_open", func(v *Vector) float64 { return v.PctCriticalOpen }),
	floatCol("pct_high_open", func(v *Vector) float64 { return v.PctHighOpen }),
	floatCol("pct_medium_open", func(v *Vector) float64 { return v.PctMediumOpen }),
	floatCol("pct_low_open", func(v *Vector) float64 { return v.PctLowOpen }),
	floatCol("pct_pending_status", func(v *Vector) float64 { return v.PctPendingStatus }),
	floatCol("pct_todo_status", func(v *Vector) float64 { return v.PctTodoStatus }),
	floatCol("pct_in_progress_status", func(v *Vector) float64 { return v.PctInProgressStatus }),
	floatCol("pct_done_status", func(v *Vector) float64 { return v.PctDoneStatus }),
	floatCol("pct_blocked_status", func(v *Vector) float64 { return v.PctBlockedStatus }),
	floatCol("health_score", func(v *Vector) float64 { return v.HealthScore }),
	floatCol("crisis_index", func(v *Vector) float64 { return v.CrisisIndex }),
	floatCol("backlog_pressure", func(v *Vector) float64 { return v.BacklogPressure }),
	catCol("sorted_by", func(v *Vector) string { return v.SortedBy }),
	catCol("last_task_created_label", func(v *Vector) string { return v.LastTaskCreatedLabel }),
	catCol("last_task_created_priority", func(v *Vector) string { return v.LastTaskCreatedPriority }),
	catCol("last_task_created_status", func(v *Vector) string { return v.LastTaskCreatedStatus }),
	intCol("last_action_critical_bug", func(v *Vector) int { return v.LastActionCriticalBug }),
}

// Raw counters are addressable but not part of the dataset layout.
var counterColumns = []column{
	intCol("num_open_tasks", func(v *Vector) int { return v.NumOpenTasks }),
	intCol("num_critical_open", func(v *Vector) int { return v.NumCriticalOpen }),
	intCol("num_high_open", func(v *Vector) int { return v.NumHighOpen }),
	intCol("num_medium_open", func(v *Vector) int { return v.NumMediumOpen }),
	intCol("num_low_open", func(v *Vector) int { return v.NumLowOpen }),
	intCol("num_pending", func(v *Vector) int { return v.NumPending }),
	intCol("num_todo", func(v *Vector) int { return v.NumTodo }),
	intCol("num_inprogress", func(v *Vector) int { return v.NumInProgress }),
	intCol("num_done", func(v *Vector) int { return v.NumDone }),
	intCol("num_blocked", func(v *Vector) int { return v.NumBlocked }),
}

var columnsByName = func() map[string]column {
	m := make(map[string]column, len(datasetColumns)+len(counterColumns))
	for _, c := range datasetColumns {
		m[c.name] = c
	}
	for _, c := range counterColumns {
		m[c.name] = c
	}
	return m
}()

// Columns returns the engineered dataset column order.
func Columns() []string {
	names := make([]string, len(datasetColumns))
	for i, c := range datasetColumns {
		names[i] = c.name
	}
	return names
}

// Float returns a numeric feature by name.
func (v Vector) Float(name string) (float64, bool) {
	c, ok := columnsByName[name]
	if !ok || c.kind == kindCategory {
		return 0, false
	}
	return c.num(&v), true
}

// Category returns a categorical feature by name.
func (v Vector) Category(name string) (string, bool) {
	c, ok := columnsByName[name]
	if !ok || c.kind != kindCategory {
		return "", false
	}
	return c.cat(&v), true
}

// Format renders one feature as text, the way the dataset files store it.
func (v Vector) Format(name string) (string, error) {
	c, ok := columnsByName[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFeature, name)
	}
	switch c.kind {
	case kindCategory:
		return c.cat(&v), nil
	case kindInt:
		return strconv.Itoa(int(c.num(&v))), nil
	default:
		return strconv.FormatFloat(c.num(&v), 'g', -1, 64), nil
	}
}

// Project lays the vector out in the given order. A name of the form
// "field=value" addresses a one-hot column of a categorical field; an
// unseen value yields 0 rather than an error.
func (v Vector) Project(names []string) ([]float64, error) {
	out := make([]float64, len(names))
	for i, name := range names {
		x, err := v.project(name)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

func (v Vector) project(name string) (float64, error) {
	if field, value, ok := strings.Cut(name, "="); ok {
		got, isCat := v.Category(field)
		if !isCat {
			return 0, fmt.Errorf("%w: %q is not a categorical field", ErrUnknownFeature, field)
		}
		if got == value {
			return 1, nil
		}
		return 0, nil
	}
	x, ok := v.Float(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownFeature, name)
	}
	return x, nil
}

// CheckNames reports the first name Project could not resolve.
func CheckNames(names []string) error {
	_, err := Vector{}.Project(names)
	return err
}
