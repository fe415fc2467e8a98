package extract

import (
	"errors"
	"fmt"

	"github.com/happyhackingspace/lf/annotation"
)

// ErrAmbiguousSource marks instances with more than one candidate source annotation.
var ErrAmbiguousSource = errors.New("extract: ambiguous source annotation")

// AmbiguousSourceError reports that Count annotations of Type overlap the
// instance at Span where exactly one was required.
type AmbiguousSourceError struct {
	Attribute string
	Type      string
	Span      annotation.Span
	Count     int
}

func (e *AmbiguousSourceError) Error() string {
	return fmt.Sprintf("extract: attribute %q: %d annotations of type %s overlap instance %v",
		e.Attribute, e.Count, e.Type, e.Span)
}

// Unwrap lets errors.Is match ErrAmbiguousSource.
func (e *AmbiguousSourceError) Unwrap() error {
	return ErrAmbiguousSource
}
