// Package annotation defines the boundary to the host document model:
// offset spans, typed annotations with feature maps, and the queries the
// feature extractor needs. Document is a small in-memory implementation.
package annotation

import "fmt"

// Span is a half-open character offset range [Start, End).
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the span length.
func (s Span) Len() int {
	return s.End - s.Start
}

// Overlaps reports whether the two spans share at least one offset.
// A zero-length span overlaps a span that strictly contains its position.
func (s Span) Overlaps(o Span) bool {
	switch {
	case s == o:
		return true
	case s.Len() == 0:
		return o.Start <= s.Start && s.Start < o.End
	case o.Len() == 0:
		return s.Start <= o.Start && o.Start < s.End
	}
	return s.Start < o.End && o.Start < s.End
}

// Covers reports whether o lies completely inside s.
func (s Span) Covers(o Span) bool {
	return s.Start <= o.Start && o.End <= s.End
}

func (s Span) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}

// Annotation is a typed span with a feature map.
type Annotation struct {
	Span
	ID       int            `json:"id"`
	Type     string         `json:"type"`
	Features map[string]any `json:"features,omitempty"`
}

// Feature returns the named feature value. Nil values count as absent.
func (a Annotation) Feature(name string) (any, bool) {
	v, ok := a.Features[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Set answers the offset queries the extractor and corpus builder rely on.
// Every method returns annotations in ascending offset order.
type Set interface {
	// Covering returns annotations of typ that cover span completely.
	Covering(typ string, span Span) []Annotation
	// Overlapping returns annotations of typ sharing any offset with span.
	Overlapping(typ string, span Span) []Annotation
	// Ordered returns annotations of typ lying within [from, to).
	Ordered(typ string, from, to int) []Annotation
	// Contained returns annotations of typ that lie inside outer.
	Contained(outer Span, typ string) []Annotation
}

// TextSource gives access to document text.
type TextSource interface {
	// CleanCoveredText returns the whitespace-normalised text under span.
	CleanCoveredText(span Span) string
}
