package lf

import (
	"fmt"

	"github.com/happyhackingspace/lf/corpus"
	"github.com/happyhackingspace/lf/decode"
	"github.com/happyhackingspace/lf/sparse"
)

// Classification is a back-end's answer for one vector.
type Classification struct {
	Label        string
	Confidence   float64
	Distribution []decode.LabelConfidence
}

// Engine is a learning back-end for classification and regression corpora.
type Engine interface {
	Train(c *corpus.Frozen) error
	Classify(vectors []sparse.Vector) ([]Classification, error)
}

// SequenceEngine is a learning back-end for sequence corpora. Each call
// classifies the vectors of one sequence.
type SequenceEngine interface {
	Train(c *corpus.Frozen) error
	ClassifySequence(vectors []sparse.Vector) ([]Classification, error)
}

// Classify vectorizes doc and classifies every instance with e. In sequence
// mode e must also implement SequenceEngine.
func (m *Model) Classify(doc corpus.Document, e Engine) ([]decode.Result, error) {
	rows, err := m.Vectorize(doc)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var out []Classification
	if m.corpus.Config().Mode == corpus.Sequence {
		se, ok := e.(SequenceEngine)
		if !ok {
			return nil, fmt.Errorf("lf: engine %T cannot classify sequences", e)
		}
		for start := 0; start < len(rows); {
			end := start
			var vectors []sparse.Vector
			for end < len(rows) && rows[end].Group == rows[start].Group {
				vectors = append(vectors, rows[end].Vector)
				end++
			}
			cs, err := se.ClassifySequence(vectors)
			if err != nil {
				return nil, fmt.Errorf("lf: classify sequence %d: %w", rows[start].Group, err)
			}
			out = append(out, cs...)
			start = end
		}
	} else {
		vectors := make([]sparse.Vector, len(rows))
		for i, r := range rows {
			vectors[i] = r.Vector
		}
		if out, err = e.Classify(vectors); err != nil {
			return nil, fmt.Errorf("lf: classify: %w", err)
		}
	}
	if len(out) != len(rows) {
		return nil, fmt.Errorf("lf: engine returned %d classifications for %d instances", len(out), len(rows))
	}

	results := make([]decode.Result, len(rows))
	for i, r := range rows {
		results[i] = decode.Result{
			Instance:     r.Instance,
			Label:        out[i].Label,
			Confidence:   out[i].Confidence,
			Distribution: out[i].Distribution,
		}
		if r.Group != decode.NoGroup {
			g := r.Group
			results[i].Group = &g
		}
	}
	return results, nil
}
