package features

import "slices"

// Allowed categorical values. They match the labels the dashboard front-end
// sends, German status and priority names included.
var (
	SortOptions = []string{"Title", "Status", "Priority", "DueDate", "CreationDate", "none"}
	Labels      = []string{"Bug", "Feature", "Dokumentation"}
	Priorities  = []string{"Kritisch", "Hoch", "Mittel", "Niedrig"}
	Statuses    = []string{"Start ausstehend", "Zu Erledigen", "In Bearbeitung", "Erledigt", "Blockiert"}
)

// None is the "no filter" label.
const None = "none"

// Snapshot is the raw per-project counter record posted by the dashboard.
type Snapshot struct {
	NumberOfTasks int `json:"number_of_tasks"`

	NumCriticalOpen int `json:"num_critical_open"`
	NumHighOpen     int `json:"num_high_open"`
	NumMediumOpen   int `json:"num_medium_open"`
	NumLowOpen      int `json:"num_low_open"`

	NumPending    int `json:"num_pending"`
	NumTodo       int `json:"num_todo"`
	NumInProgress int `json:"num_inprogress"`
	NumDone       int `json:"num_done"`
	NumBlocked    int `json:"num_blocked"`

	OverdueTasks int `json:"overdue_tasks"`
	DueToday     int `json:"due_today"`
	TimeOfDay    int `json:"time_of_day"`

	SortedBy                string `json:"sorted_by"`
	LastTaskCreatedLabel    string `json:"last_task_created_label"`
	LastTaskCreatedPriority string `json:"last_task_created_priority"`
	LastTaskCreatedStatus   string `json:"last_task_created_status"`
}

// Validate checks every documented invariant and reports the first
// offending field as a *FieldError.
func (s Snapshot) Validate() error {
	counts := []struct {
		name string
		v    int
	}{
		{"number_of_tasks", s.NumberOfTasks},
		{"num_critical_open", s.NumCriticalOpen},
		{"num_high_open", s.NumHighOpen},
		{"num_medium_open", s.NumMediumOpen},
		{"num_low_open", s.NumLowOpen},
		{"num_pending", s.NumPending},
		{"num_todo", s.NumTodo},
		{"num_inprogress", s.NumInProgress},
		{"num_done", s.NumDone},
		{"num_blocked", s.NumBlocked},
		{"overdue_tasks", s.OverdueTasks},
		{"due_today", s.DueToday},
		{"time_of_day", s.TimeOfDay},
	}
	for _, c := range counts {
		if c.v < 0 {
			return fieldErr(c.name, "must be >= 0, got %d", c.v)
		}
	}

	if s.TimeOfDay > 23 {
		return fieldErr("time_of_day", "must be in [0,23], got %d", s.TimeOfDay)
	}

	statusSum := s.NumPending + s.NumTodo + s.NumInProgress + s.NumDone + s.NumBlocked
	if statusSum != s.NumberOfTasks {
		return fieldErr("number_of_tasks", "status buckets sum to %d, expected %d", statusSum, s.NumberOfTasks)
	}

	if s.OverdueTasks > s.NumberOfTasks {
		return fieldErr("overdue_tasks", "%d exceeds number_of_tasks %d", s.OverdueTasks, s.NumberOfTasks)
	}

	open := s.NumberOfTasks - s.NumDone
	prioritySum := s.NumCriticalOpen + s.NumHighOpen + s.NumMediumOpen + s.NumLowOpen
	if prioritySum > open {
		return fieldErr("open_priority_counts", "num_*_open sum to %d, only %d tasks are open", prioritySum, open)
	}

	categorical := []struct {
		name    string
		v       string
		allowed []string
	}{
		{"sorted_by", s.SortedBy, SortOptions},
		{"last_task_created_label", s.LastTaskCreatedLabel, Labels},
		{"last_task_created_priority", s.LastTaskCreatedPriority, Priorities},
		{"last_task_created_status", s.LastTaskCreatedStatus, Statuses},
	}
	for _, c := range categorical {
		if !slices.Contains(c.allowed, c.v) {
			return fieldErr(c.name, "%q is not one of %v", c.v, c.allowed)
		}
	}

	return nil
}
