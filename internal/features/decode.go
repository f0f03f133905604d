package features

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

type intField struct {
	name string
	ptr  func(*Snapshot) *int
}

type stringField struct {
	name string
	ptr  func(*Snapshot) *string
}

// RawFields lists the snapshot fields in the order the dataset files carry them.
var RawFields = []string{
	"number_of_tasks",
	"num_critical_open", "num_high_open", "num_medium_open", "num_low_open",
	"num_pending", "num_todo", "num_inprogress", "num_done", "num_blocked",
	"overdue_tasks", "due_today", "time_of_day",
	"sorted_by", "last_task_created_label", "last_task_created_priority", "last_task_created_status",
}

var intFields = []intField{
	{"number_of_tasks", func(s *Snapshot) *int { return &s.NumberOfTasks }},
	{"num_critical_open", func(s *Snapshot) *int { return &s.NumCriticalOpen }},
	{"num_high_open", func(s *Snapshot) *int { return &s.NumHighOpen }},
	{"num_medium_open", func(s *Snapshot) *int { return &s.NumMediumOpen }},
	{"num_low_open", func(s *Snapshot) *int { return &s.NumLowOpen }},
	{"num_pending", func(s *Snapshot) *int { return &s.NumPending }},
	{"num_todo", func(s *Snapshot) *int { return &s.NumTodo }},
	{"num_inprogress", func(s *Snapshot) *int { return &s.NumInProgress }},
	{"num_done", func(s *Snapshot) *int { return &s.NumDone }},
	{"num_blocked", func(s *Snapshot) *int { return &s.NumBlocked }},
	{"overdue_tasks", func(s *Snapshot) *int { return &s.OverdueTasks }},
	{"due_today", func(s *Snapshot) *int { return &s.DueToday }},
	{"time_of_day", func(s *Snapshot) *int { return &s.TimeOfDay }},
}

var stringFields = []stringField{
	{"sorted_by", func(s *Snapshot) *string { return &s.SortedBy }},
	{"last_task_created_label", func(s *Snapshot) *string { return &s.LastTaskCreatedLabel }},
	{"last_task_created_priority", func(s *Snapshot) *string { return &s.LastTaskCreatedPriority }},
	{"last_task_created_status", func(s *Snapshot) *string { return &s.LastTaskCreatedStatus }},
}

var jsonNull = []byte("null")

// DecodeFields builds a Snapshot from a decoded JSON object. Every field is
// required; numbers must be JSON integers and categoricals JSON strings.
// Keys that are not snapshot fields are ignored. The result is validated.
func DecodeFields(obj map[string]json.RawMessage) (Snapshot, error) {
	var s Snapshot

	for _, f := range intFields {
		raw, ok := obj[f.name]
		if !ok {
			return Snapshot{}, fieldErr(f.name, "missing")
		}
		if bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
			return Snapshot{}, fieldErr(f.name, "must be an integer, got null")
		}
		var n int
		if err := json.Unmarshal(raw, &n); err != nil {
			return Snapshot{}, fieldErr(f.name, "must be an integer, got %s", raw)
		}
		*f.ptr(&s) = n
	}

	for _, f := range stringFields {
		raw, ok := obj[f.name]
		if !ok {
			return Snapshot{}, fieldErr(f.name, "missing")
		}
		if bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
			return Snapshot{}, fieldErr(f.name, "must be a string, got null")
		}
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return Snapshot{}, fieldErr(f.name, "must be a string, got %s", raw)
		}
		*f.ptr(&s) = v
	}

	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// FromRecord builds a Snapshot from a CSV record keyed by column name.
// Integral floats such as "12.0" are accepted since dataframe exports
// write them that way.
func FromRecord(rec map[string]string) (Snapshot, error) {
	var s Snapshot

	for _, f := range intFields {
		raw, ok := rec[f.name]
		if !ok {
			return Snapshot{}, fieldErr(f.name, "missing")
		}
		n, err := parseCount(raw)
		if err != nil {
			return Snapshot{}, fieldErr(f.name, "must be an integer, got %q", raw)
		}
		*f.ptr(&s) = n
	}

	for _, f := range stringFields {
		raw, ok := rec[f.name]
		if !ok {
			return Snapshot{}, fieldErr(f.name, "missing")
		}
		*f.ptr(&s) = strings.TrimSpace(raw)
	}

	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

func parseCount(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, strconv.ErrSyntax
	}
	return int(f), nil
}
