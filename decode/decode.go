// Package decode reassembles per-token Begin/Inside/Outside classifications
// into spanning entities with averaged confidence.
package decode

import (
	"sort"

	"github.com/happyhackingspace/lf/annotation"
)

// NoGroup is the group of results that carry no sequence group id.
const NoGroup = -1

// Labels names the three tag values.
type Labels struct {
	Begin   string `json:"begin" yaml:"begin"`
	Inside  string `json:"inside" yaml:"inside"`
	Outside string `json:"outside" yaml:"outside"`
}

// DefaultLabels returns B, I and O.
func DefaultLabels() Labels {
	return Labels{Begin: "B", Inside: "I", Outside: "O"}
}

// LabelConfidence is one entry of a label distribution.
type LabelConfidence struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Result is a back-end's classification of one token.
type Result struct {
	Instance     annotation.Span   `json:"instance"`
	Label        string            `json:"label"`
	Confidence   float64           `json:"confidence"`
	Distribution []LabelConfidence `json:"distribution,omitempty"`
	// Group is the sequence group id; nil puts the token in NoGroup.
	Group *int `json:"group,omitempty"`
}

// Entity is a decoded span.
type Entity struct {
	annotation.Span
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Group      int     `json:"group"`
}

// Decoder turns token classifications into entities of Type.
type Decoder struct {
	Type   string
	Labels Labels
	// Threshold, when set, drops entities whose averaged confidence is lower.
	Threshold *float64
}

// New creates a decoder with the default labels and no threshold.
func New(typ string) *Decoder {
	return &Decoder{Type: typ, Labels: DefaultLabels()}
}

// WithThreshold sets the confidence threshold.
func (d *Decoder) WithThreshold(t float64) *Decoder {
	d.Threshold = &t
	return d
}

type pendingSpan struct {
	start, end    int
	confidenceSum float64
	tokenCount    int
}

func newPending(r Result) *pendingSpan {
	return &pendingSpan{start: r.Instance.Start, end: r.Instance.End, confidenceSum: r.Confidence, tokenCount: 1}
}

// Decode runs the automaton over results in document order. Each group id
// has its own state, so interleaved sequences decode independently. State
// lives only for this call. Entities are returned ordered by start offset.
func (d *Decoder) Decode(results []Result) []Entity {
	open := make(map[int]*pendingSpan)
	seen := make(map[int]bool)
	var order []int
	var out []Entity

	flush := func(group int) {
		p := open[group]
		if p == nil {
			return
		}
		delete(open, group)
		if e, ok := d.finish(p, group); ok {
			out = append(out, e)
		}
	}

	for _, r := range results {
		group := NoGroup
		if r.Group != nil {
			group = *r.Group
		}
		if !seen[group] {
			seen[group] = true
			order = append(order, group)
		}

		switch r.Label {
		case d.Labels.Begin:
			flush(group)
			open[group] = newPending(r)
		case d.Labels.Inside:
			if p := open[group]; p != nil {
				p.end = r.Instance.End
				p.confidenceSum += r.Confidence
				p.tokenCount++
			}
		default:
			flush(group)
		}
	}
	for _, g := range order {
		flush(g)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

func (d *Decoder) finish(p *pendingSpan, group int) (Entity, bool) {
	if p.start == -1 || p.end == -1 || p.tokenCount == 0 {
		return Entity{}, false
	}
	avg := p.confidenceSum / float64(p.tokenCount)
	if d.Threshold != nil && avg < *d.Threshold {
		return Entity{}, false
	}
	return Entity{
		Span:       annotation.Span{Start: p.start, End: p.end},
		Type:       d.Type,
		Confidence: avg,
		Group:      group,
	}, true
}
