package model

import (
	"fmt"
	"path/filepath"
	"slices"

	"go.uber.org/zap"
)

// Registry holds the three classifiers. It is never mutated after
// construction, so concurrent Get calls need no locking.
type Registry struct {
	classifiers map[Target]Classifier
}

// NewRegistry builds a registry from explicit classifiers. Classifiers that
// describe their classes must only use labels the target allows.
func NewRegistry(view, status, priority Classifier) (*Registry, error) {
	r := &Registry{classifiers: map[Target]Classifier{
		TargetView:           view,
		TargetStatusFilter:   status,
		TargetPriorityFilter: priority,
	}}
	for _, t := range Targets {
		c := r.classifiers[t]
		if missing(c) {
			return nil, fmt.Errorf("%w: %s", ErrClassifierUnavailable, t)
		}
		d, ok := c.(Describer)
		if !ok {
			continue
		}
		allowed := Labels(t)
		for _, class := range d.Info().Classes {
			if !slices.Contains(allowed, class) {
				return nil, fmt.Errorf("%w: %s: class %q is not one of %v", ErrClassifierUnavailable, t, class, allowed)
			}
		}
	}
	return r, nil
}

// missing reports a nil classifier, including a nil *Forest wrapped in the
// interface.
func missing(c Classifier) bool {
	switch c := c.(type) {
	case nil:
		return true
	case *Forest:
		return c == nil
	default:
		return false
	}
}

// ArtifactPath is where Load expects the artifact for t.
func ArtifactPath(dir string, t Target) string {
	return filepath.Join(dir, "model_"+string(t)+".json")
}

// Load reads all three forest artifacts from dir. Any missing, undecodable
// or inconsistent artifact fails the whole load.
func Load(dir string, logger *zap.Logger) (*Registry, error) {
	loaded := make([]Classifier, len(Targets))
	for i, t := range Targets {
		path := ArtifactPath(dir, t)

		f, err := LoadForest(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrClassifierUnavailable, t, err)
		}
		info := f.Info()
		if info.Target != "" && info.Target != t {
			return nil, fmt.Errorf("%w: %s holds a %s model", ErrClassifierUnavailable, path, info.Target)
		}

		logger.Info("Loaded classifier",
			zap.String("target", string(t)),
			zap.String("path", path),
			zap.String("generation", info.Generation),
			zap.Strings("features", info.Features))
		loaded[i] = f
	}
	return NewRegistry(loaded[0], loaded[1], loaded[2])
}

// Rules builds a registry backed by the deterministic adaptation rules.
func Rules() *Registry {
	r, _ := NewRegistry(
		ruleClassifier{target: TargetView},
		ruleClassifier{target: TargetStatusFilter},
		ruleClassifier{target: TargetPriorityFilter},
	)
	return r
}

func (r *Registry) Get(t Target) (Classifier, error) {
	c, ok := r.classifiers[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClassifierUnavailable, t)
	}
	return c, nil
}

// Describe reports what each target is served by, in response order.
func (r *Registry) Describe() []Info {
	out := make([]Info, 0, len(Targets))
	for _, t := range Targets {
		info := Info{Target: t}
		if d, ok := r.classifiers[t].(Describer); ok {
			info = d.Info()
			info.Target = t
		}
		out = append(out, info)
	}
	return out
}
