package model

import (
	"math"

	"adaptive-view-backend/internal/features"
)

// Decision is one label per target.
type Decision struct {
	View     string
	Status   string
	Priority string
}

func (d Decision) label(t Target) string {
	switch t {
	case TargetView:
		return d.View
	case TargetStatusFilter:
		return d.Status
	default:
		return d.Priority
	}
}

// RulesGeneration identifies the deterministic rule set in Info.
const RulesGeneration = "rules-v1"

// balancedStdDev is the spread below which open work counts as evenly
// distributed across columns.
const balancedStdDev = 2.5

// Decide applies the adaptation rules, highest priority first.
func Decide(v features.Vector) Decision {
	d := Decision{View: ViewList, Status: features.None, Priority: features.None}

	if v.NumberOfTasks == 0 {
		return d
	}

	if v.NumOpenTasks == 0 {
		d.Status = "Erledigt"
		return d
	}

	// Emergency: overdue work while critical tasks are open.
	if v.OverdueTasks > 0 && v.NumCriticalOpen > 0 {
		d.Priority = "Kritisch"
		return d
	}

	if v.OverdueTasks > 0 {
		d.Priority = "Hoch"
		return d
	}

	if v.NumBlocked > 0 {
		d.Status = "Blockiert"
		return d
	}

	if v.DueToday >= 2 {
		d.Status = "Zu Erledigen"
		return d
	}

	var openCounts []float64
	for _, n := range []int{v.NumPending, v.NumTodo, v.NumInProgress, v.NumBlocked} {
		if n > 0 {
			openCounts = append(openCounts, float64(n))
		}
	}
	if len(openCounts) >= 3 && stdDev(openCounts) < balancedStdDev {
		d.View = ViewKanban
		return d
	}

	if float64(v.NumPending+v.NumTodo)/float64(v.NumOpenTasks) >= 0.6 {
		d.Status = "Zu Erledigen"
		return d
	}

	if v.NumberOfTasks > 5 && float64(v.NumDone)/float64(v.NumberOfTasks) >= 0.8 {
		d.Status = "In Bearbeitung"
		return d
	}

	if v.NumOpenTasks <= 10 {
		d.View = ViewKanban
	}
	return d
}

// stdDev is the population standard deviation.
func stdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var variance float64
	for _, x := range xs {
		variance += (x - mean) * (x - mean)
	}
	return math.Sqrt(variance / float64(len(xs)))
}

// ruleClassifier exposes one target of Decide as a Classifier.
type ruleClassifier struct {
	target Target
}

func (c ruleClassifier) Predict(v features.Vector) (string, error) {
	return Decide(v).label(c.target), nil
}

func (c ruleClassifier) Info() Info {
	info := Info{
		Target:     c.target,
		Generation: RulesGeneration,
		Features: []string{
			"number_of_tasks", "num_open_tasks", "num_critical_open", "num_pending", "num_todo",
			"num_inprogress", "num_done", "num_blocked", "overdue_tasks", "due_today",
		},
	}
	switch c.target {
	case TargetView:
		info.Classes = []string{ViewKanban, ViewList}
	case TargetStatusFilter:
		info.Classes = []string{"Blockiert", "Erledigt", "In Bearbeitung", "Zu Erledigen", features.None}
	default:
		info.Classes = []string{"Hoch", "Kritisch", features.None}
	}
	return info
}
