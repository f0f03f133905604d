package model

import (
	"errors"
	"slices"

	"adaptive-view-backend/internal/features"
)

// ErrClassifierUnavailable means a classifier could not be built or loaded.
// The process must not serve without all three.
var ErrClassifierUnavailable = errors.New("classifier unavailable")

// Target names one of the three predicted affordances.
type Target string

const (
	TargetView           Target = "predicted_view"
	TargetStatusFilter   Target = "predicted_status_filter"
	TargetPriorityFilter Target = "predicted_priority_filter"
)

// Targets lists every target in response order.
var Targets = []Target{TargetView, TargetStatusFilter, TargetPriorityFilter}

// View labels.
const (
	ViewList   = "list"
	ViewKanban = "kanban"
)

// Labels returns the labels a response may carry for t. Filters always
// allow features.None.
func Labels(t Target) []string {
	switch t {
	case TargetView:
		return []string{ViewList, ViewKanban}
	case TargetStatusFilter:
		return append(slices.Clone(features.Statuses), features.None)
	case TargetPriorityFilter:
		return append(slices.Clone(features.Priorities), features.None)
	default:
		return nil
	}
}

// Classifier maps an engineered vector to exactly one label.
type Classifier interface {
	Predict(v features.Vector) (string, error)
}

// Info describes a loaded classifier for operators.
type Info struct {
	Target     Target   `json:"target"`
	Generation string   `json:"generation"`
	Features   []string `json:"features"`
	Classes    []string `json:"classes"`
}

// Describer is implemented by classifiers that can report their generation.
type Describer interface {
	Info() Info
}
