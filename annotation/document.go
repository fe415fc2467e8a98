package annotation

import (
	"sort"

	"github.com/happyhackingspace/lf/internal/textutil"
)

// Document is an in-memory annotated text. It implements Set and TextSource.
type Document struct {
	Name string
	Text string

	byType map[string][]Annotation
	nextID int
}

// NewDocument creates an empty document over text.
func NewDocument(name, text string) *Document {
	return &Document{Name: name, Text: text, byType: make(map[string][]Annotation)}
}

// DocName returns the document name.
func (d *Document) DocName() string {
	return d.Name
}

// Add stores a new annotation and returns it.
func (d *Document) Add(typ string, start, end int, features map[string]any) Annotation {
	a := Annotation{ID: d.nextID, Type: typ, Span: Span{Start: start, End: end}, Features: features}
	d.nextID++
	list := d.byType[typ]
	pos := sort.Search(len(list), func(i int) bool { return before(a, list[i]) })
	list = append(list, Annotation{})
	copy(list[pos+1:], list[pos:])
	list[pos] = a
	d.byType[typ] = list
	return a
}

// before orders annotations by start, then end, then insertion.
func before(a, b Annotation) bool {
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	if a.End != b.End {
		return a.End < b.End
	}
	return a.ID < b.ID
}

// All returns every annotation of typ in offset order.
func (d *Document) All(typ string) []Annotation {
	return d.filter(typ, func(Annotation) bool { return true })
}

// Types returns the annotation types present in the document, sorted.
func (d *Document) Types() []string {
	types := make([]string, 0, len(d.byType))
	for t := range d.byType {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func (d *Document) filter(typ string, keep func(Annotation) bool) []Annotation {
	var out []Annotation
	for _, a := range d.byType[typ] {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

// Covering implements Set.
func (d *Document) Covering(typ string, span Span) []Annotation {
	return d.filter(typ, func(a Annotation) bool { return a.Covers(span) })
}

// Overlapping implements Set.
func (d *Document) Overlapping(typ string, span Span) []Annotation {
	return d.filter(typ, func(a Annotation) bool { return a.Overlaps(span) })
}

// Ordered implements Set.
func (d *Document) Ordered(typ string, from, to int) []Annotation {
	return d.filter(typ, func(a Annotation) bool { return a.Start >= from && a.End <= to })
}

// Contained implements Set.
func (d *Document) Contained(outer Span, typ string) []Annotation {
	return d.filter(typ, func(a Annotation) bool { return outer.Covers(a.Span) })
}

// CleanCoveredText implements TextSource. Out-of-range spans are clipped.
func (d *Document) CleanCoveredText(span Span) string {
	start, end := span.Start, span.End
	if start < 0 {
		start = 0
	}
	if end > len(d.Text) {
		end = len(d.Text)
	}
	if start >= end {
		return ""
	}
	return textutil.Clean(d.Text[start:end])
}
