package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"adaptive-view-backend/internal/features"
	"adaptive-view-backend/internal/model"
)

// Result is the gated label triple returned to the dashboard.
type Result struct {
	View           string `json:"predicted_view"`
	StatusFilter   string `json:"predicted_status_filter"`
	PriorityFilter string `json:"predicted_priority_filter"`
}

// Event describes one served prediction. Err is set for failed ones.
type Event struct {
	Snapshot features.Snapshot
	Result   Result
	Err      error
	Latency  time.Duration
}

// Recorder receives an Event after every prediction that got past
// feature engineering. Implementations must not block for long and
// cannot influence the result.
type Recorder interface {
	Record(ctx context.Context, e Event)
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, Event) {}

// Predictor runs the engineer -> classify -> gate pipeline. It holds no
// per-request state and is safe for concurrent use.
type Predictor struct {
	registry *model.Registry
	logger   *zap.Logger
	recorder Recorder
}

type Option func(*Predictor)

func WithRecorder(r Recorder) Option {
	return func(p *Predictor) {
		if r != nil {
			p.recorder = r
		}
	}
}

func New(registry *model.Registry, logger *zap.Logger, opts ...Option) *Predictor {
	p := &Predictor{
		registry: registry,
		logger:   logger,
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Predict decodes a JSON request body and predicts for it.
func (p *Predictor) Predict(ctx context.Context, body []byte) (Result, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return Result{}, fmt.Errorf("%w: no input data provided", ErrInvalidInput)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return Result{}, fmt.Errorf("%w: body must be a JSON object: %v", ErrInvalidInput, err)
	}
	if len(obj) == 0 {
		return Result{}, fmt.Errorf("%w: no input data provided", ErrInvalidInput)
	}

	p.logger.Debug("Received snapshot payload", zap.ByteString("payload", body))

	snap, err := features.DecodeFields(obj)
	if err != nil {
		return Result{}, err
	}
	return p.PredictSnapshot(ctx, snap)
}

// PredictSnapshot engineers features for snap, queries all three
// classifiers and applies the gating rule.
func (p *Predictor) PredictSnapshot(ctx context.Context, snap features.Snapshot) (Result, error) {
	start := time.Now()

	v, err := features.Engineer(snap)
	if err != nil {
		return Result{}, err
	}

	raw, err := p.classify(v)
	if err != nil {
		p.logger.Error("Prediction failed",
			zap.Error(err),
			zap.Any("snapshot", snap),
			zap.Any("features", v))
		p.recorder.Record(ctx, Event{Snapshot: snap, Err: err, Latency: time.Since(start)})
		return Result{}, err
	}

	res := Gate(raw)
	p.logger.Debug("Prediction served",
		zap.Any("raw", raw),
		zap.Any("result", res),
		zap.Duration("latency", time.Since(start)))
	p.recorder.Record(ctx, Event{Snapshot: snap, Result: res, Latency: time.Since(start)})
	return res, nil
}

// classify queries the three classifiers concurrently. Each call is
// independent; a panic in one is converted to that target's error.
func (p *Predictor) classify(v features.Vector) (Result, error) {
	var labels [3]string
	var g errgroup.Group

	for i, target := range model.Targets {
		c, err := p.registry.Get(target)
		if err != nil {
			return Result{}, &Error{Target: target, Err: err}
		}

		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &Error{Target: target, Err: fmt.Errorf("panic: %v", r)}
				}
			}()

			label, err := c.Predict(v)
			if err != nil {
				return &Error{Target: target, Err: err}
			}
			if label == "" {
				return &Error{Target: target, Err: errors.New("empty label")}
			}
			labels[i] = label
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	return Result{View: labels[0], StatusFilter: labels[1], PriorityFilter: labels[2]}, nil
}

// Gate applies the business rule that a kanban board is never filtered,
// whatever the filter classifiers said.
func Gate(r Result) Result {
	if r.View == model.ViewKanban {
		r.StatusFilter = features.None
		r.PriorityFilter = features.None
	}
	return r
}
