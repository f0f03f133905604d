package model

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"adaptive-view-backend/internal/features"
)

// Artifact is the serialized form of a trained random forest. Features is
// the ordered list the forest was fit on; node feature indices point into it.
type Artifact struct {
	Target     Target   `json:"target"`
	Generation string   `json:"generation"`
	Features   []string `json:"features"`
	Classes    []string `json:"classes"`
	Trees      []Tree   `json:"trees"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Node is a split when Left >= 0 (go left when x <= Threshold) and a leaf
// when Left == -1, in which case Value holds one weight per class.
type Node struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Value     []float64 `json:"value,omitempty"`
}

func (n Node) leaf() bool { return n.Left < 0 }

// Forest evaluates an Artifact. Safe for concurrent use.
type Forest struct {
	a Artifact
}

// NewForest checks the artifact's structure and feature names.
func NewForest(a Artifact) (*Forest, error) {
	if len(a.Classes) == 0 {
		return nil, fmt.Errorf("artifact %s: no classes", a.Target)
	}
	if len(a.Trees) == 0 {
		return nil, fmt.Errorf("artifact %s: no trees", a.Target)
	}
	if len(a.Features) == 0 {
		return nil, fmt.Errorf("artifact %s: empty feature list", a.Target)
	}
	if err := features.CheckNames(a.Features); err != nil {
		return nil, fmt.Errorf("artifact %s: %w", a.Target, err)
	}

	for ti, t := range a.Trees {
		if len(t.Nodes) == 0 {
			return nil, fmt.Errorf("artifact %s: tree %d is empty", a.Target, ti)
		}
		for ni, n := range t.Nodes {
			if n.leaf() {
				if len(n.Value) != len(a.Classes) {
					return nil, fmt.Errorf("artifact %s: tree %d node %d: %d leaf weights for %d classes",
						a.Target, ti, ni, len(n.Value), len(a.Classes))
				}
				continue
			}
			if n.Feature < 0 || n.Feature >= len(a.Features) {
				return nil, fmt.Errorf("artifact %s: tree %d node %d: feature index %d out of range",
					a.Target, ti, ni, n.Feature)
			}
			// Children always come after their parent, so a walk terminates.
			if n.Left <= ni || n.Right <= ni || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
				return nil, fmt.Errorf("artifact %s: tree %d node %d: bad children %d/%d",
					a.Target, ti, ni, n.Left, n.Right)
			}
		}
	}

	return &Forest{a: a}, nil
}

// LoadForest reads a JSON artifact from disk.
func LoadForest(path string) (*Forest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return NewForest(a)
}

// Predict projects v onto the forest's feature list and returns the class
// with the highest mean leaf probability. Ties go to the earlier class.
func (f *Forest) Predict(v features.Vector) (string, error) {
	x, err := v.Project(f.a.Features)
	if err != nil {
		return "", err
	}

	proba := make([]float64, len(f.a.Classes))
	for ti, t := range f.a.Trees {
		leaf := t.walk(x)
		var total float64
		for _, w := range leaf.Value {
			total += w
		}
		if total <= 0 {
			return "", fmt.Errorf("tree %d: leaf has no weight", ti)
		}
		for i, w := range leaf.Value {
			proba[i] += w / total
		}
	}

	best := 0
	for i := 1; i < len(proba); i++ {
		if proba[i] > proba[best] {
			best = i
		}
	}
	return f.a.Classes[best], nil
}

func (t Tree) walk(x []float64) Node {
	i := 0
	for {
		n := t.Nodes[i]
		if n.leaf() {
			return n
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

func (f *Forest) Info() Info {
	return Info{
		Target:     f.a.Target,
		Generation: f.a.Generation,
		Features:   slices.Clone(f.a.Features),
		Classes:    slices.Clone(f.a.Classes),
	}
}
