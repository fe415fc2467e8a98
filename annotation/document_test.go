package annotation

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func ids(anns []Annotation) []int {
	out := make([]int, len(anns))
	for i, a := range anns {
		out[i] = a.ID
	}
	return out
}

func TestSpanRelations(t *testing.T) {
	tests := []struct {
		a, b     Span
		overlaps bool
		covers   bool
	}{
		{Span{0, 5}, Span{1, 3}, true, true},
		{Span{0, 5}, Span{5, 8}, false, false},
		{Span{0, 5}, Span{4, 8}, true, false},
		{Span{2, 2}, Span{0, 5}, true, false},
		{Span{3, 3}, Span{3, 3}, true, true},
	}
	for _, tt := range tests {
		if got := tt.a.Overlaps(tt.b); got != tt.overlaps {
			t.Errorf("%v.Overlaps(%v) = %v, want %v", tt.a, tt.b, got, tt.overlaps)
		}
		if got := tt.a.Covers(tt.b); got != tt.covers {
			t.Errorf("%v.Covers(%v) = %v, want %v", tt.a, tt.b, got, tt.covers)
		}
	}
}

func TestDocumentQueries(t *testing.T) {
	doc := NewDocument("d", "John Smith lives here")
	smith := doc.Add("Token", 5, 10, map[string]any{"string": "Smith"})
	john := doc.Add("Token", 0, 4, map[string]any{"string": "John"})
	person := doc.Add("Person", 0, 10, nil)
	doc.Add("Token", 11, 16, map[string]any{"string": "lives"})

	if diff := cmp.Diff([]int{john.ID, smith.ID}, ids(doc.Contained(person.Span, "Token"))); diff != "" {
		t.Errorf("Contained (-want +got):\n%s", diff)
	}
	if got := doc.Covering("Person", smith.Span); len(got) != 1 || got[0].ID != person.ID {
		t.Errorf("Covering = %v", got)
	}
	if got := doc.Overlapping("Token", Span{3, 6}); len(got) != 2 {
		t.Errorf("Overlapping returned %d annotations, want 2", len(got))
	}
	if got := doc.Ordered("Token", 0, len(doc.Text)); len(got) != 3 || got[0].ID != john.ID {
		t.Errorf("Ordered = %v", ids(got))
	}
	if diff := cmp.Diff([]string{"Person", "Token"}, doc.Types()); diff != "" {
		t.Errorf("Types (-want +got):\n%s", diff)
	}
	if v, ok := john.Feature("string"); !ok || v != "John" {
		t.Errorf("Feature(string) = %v, %v", v, ok)
	}
	if _, ok := person.Feature("string"); ok {
		t.Error("feature on nil map should be absent")
	}
}

func TestCleanCoveredText(t *testing.T) {
	doc := NewDocument("d", "New\n  York  City")
	if got := doc.CleanCoveredText(Span{0, 10}); got != "New York" {
		t.Errorf("CleanCoveredText = %q, want %q", got, "New York")
	}
	if got := doc.CleanCoveredText(Span{10, 99}); got != "City" {
		t.Errorf("clipped CleanCoveredText = %q, want %q", got, "City")
	}
}
