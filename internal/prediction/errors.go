package prediction

import (
	"errors"
	"fmt"

	"adaptive-view-backend/internal/model"
)

var (
	// ErrInvalidInput means the request body was missing, empty, or not a JSON object.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPredictionFailed means a classifier raised while serving a request.
	ErrPredictionFailed = errors.New("prediction failed")
)

// Error carries the classifier failure behind ErrPredictionFailed.
type Error struct {
	Target model.Target
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s classifier: %v", e.Target, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrPredictionFailed }
