package attribute

import (
	"errors"
	"fmt"
)

// ErrSpecification marks malformed attribute declarations.
var ErrSpecification = errors.New("attribute: invalid specification")

// SpecificationError describes one malformed attribute declaration.
type SpecificationError struct {
	Attribute string
	Index     int
	Reason    string
}

func (e *SpecificationError) Error() string {
	if e.Attribute == "" {
		return fmt.Sprintf("attribute: declaration %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("attribute %q: %s", e.Attribute, e.Reason)
}

// Unwrap lets errors.Is match ErrSpecification.
func (e *SpecificationError) Unwrap() error {
	return ErrSpecification
}
