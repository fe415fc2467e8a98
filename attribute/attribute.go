// Package attribute describes the feature sources of a learning task.
//
// A Spec is one of three closed variants: *Simple (a feature of one source
// annotation), *List (the same feature at a window of positions around the
// instance) and *Ngram (n-grams over annotations contained in the instance).
// Simple and List attributes that code nominal values as numbers own a
// private value dictionary; Specs.Clone deep-copies it.
package attribute

import (
	"fmt"

	"github.com/happyhackingspace/lf/alphabet"
)

// Spec is one declared feature source. The set of implementations is closed.
type Spec interface {
	// AttrName returns the declared (or derived) attribute name.
	AttrName() string
	// AnnotationType returns the type of the annotations the attribute reads.
	AnnotationType() string
	// Clone returns a deep copy, including any value dictionary.
	Clone() Spec

	validate() error
	kind() string
}

// Simple reads one feature of the single annotation of AnnType at the instance.
type Simple struct {
	Name     string
	AnnType  string
	Feature  string
	Datatype Datatype
	CodeAs   CodeAs
	Missing  MissingValueTreatment

	// Values is the value dictionary; non-nil only for nominal values coded as numbers.
	Values *alphabet.Alphabet
}

// List reads a Simple attribute at each relative position From..To (inclusive)
// among the annotations of AnnType. Negative positions precede the instance.
type List struct {
	Simple
	From int
	To   int
}

// Ngram emits n-grams of the feature values (or covered text when Feature is
// empty) of the AnnType annotations contained in the instance.
type Ngram struct {
	Name    string
	AnnType string
	Feature string
	N       int
}

// NewSimple builds a validated Simple attribute with defaults filled in.
func NewSimple(annType, feature string, dt Datatype, codeAs CodeAs, mv MissingValueTreatment) (*Simple, error) {
	s := &Simple{AnnType: annType, Feature: feature, Datatype: dt, CodeAs: codeAs, Missing: mv}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewList builds a validated List attribute.
func NewList(annType, feature string, dt Datatype, codeAs CodeAs, mv MissingValueTreatment, from, to int) (*List, error) {
	l := &List{
		Simple: Simple{AnnType: annType, Feature: feature, Datatype: dt, CodeAs: codeAs, Missing: mv},
		From:   from,
		To:     to,
	}
	if err := l.validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// NewNgram builds a validated Ngram attribute.
func NewNgram(annType, feature string, n int) (*Ngram, error) {
	g := &Ngram{AnnType: annType, Feature: feature, N: n}
	if err := g.validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// AttrName implements Spec.
func (s *Simple) AttrName() string { return s.Name }

// AnnotationType implements Spec.
func (s *Simple) AnnotationType() string { return s.AnnType }

// HasValueDict reports whether nominal values are coded through Values.
func (s *Simple) HasValueDict() bool {
	return s.Datatype == Nominal && s.CodeAs == Number
}

// Clone implements Spec.
func (s *Simple) Clone() Spec {
	c := *s
	if s.Values != nil {
		c.Values = s.Values.Clone()
	}
	return &c
}

func (s *Simple) kind() string { return KindSimple }

// validate checks the declaration and fills defaults: datatype nominal,
// one_of_k coding for nominals, keep for missing values. A feature-less
// attribute is a presence indicator and is forced to bool.
func (s *Simple) validate() error {
	if s.AnnType == "" {
		return &SpecificationError{Attribute: s.Name, Reason: "missing annotation type"}
	}
	if s.Feature == "" {
		if s.Datatype != DatatypeUnset && s.Datatype != Bool {
			return &SpecificationError{Attribute: s.Name, Reason: "an attribute without feature must be bool"}
		}
		s.Datatype = Bool
	}
	if s.Datatype == DatatypeUnset {
		s.Datatype = Nominal
	}
	switch s.Datatype {
	case Nominal:
		if s.CodeAs == CodeAsUnset {
			s.CodeAs = OneOfK
		}
	default:
		if s.CodeAs != CodeAsUnset {
			return &SpecificationError{
				Attribute: s.Name,
				Reason:    fmt.Sprintf("codeas %s is only valid for nominal attributes, not %s", s.CodeAs, s.Datatype),
			}
		}
	}
	if s.Missing == MissingUnset {
		s.Missing = Keep
	}
	if s.Name == "" {
		s.Name = s.AnnType + ":" + s.Feature
	}
	if s.HasValueDict() {
		if s.Values == nil {
			s.Values = alphabet.New()
		}
	} else {
		s.Values = nil
	}
	return nil
}

// Clone implements Spec.
func (l *List) Clone() Spec {
	c := *l
	if l.Values != nil {
		c.Values = l.Values.Clone()
	}
	return &c
}

func (l *List) kind() string { return KindList }

func (l *List) validate() error {
	if err := l.Simple.validate(); err != nil {
		return err
	}
	if l.From > l.To {
		return &SpecificationError{
			Attribute: l.Name,
			Reason:    fmt.Sprintf("window from %d is after to %d", l.From, l.To),
		}
	}
	return nil
}

// Covers reports whether relative position i lies in the window.
func (l *List) Covers(i int) bool {
	return l.From <= i && i <= l.To
}

// AttrName implements Spec.
func (g *Ngram) AttrName() string { return g.Name }

// AnnotationType implements Spec.
func (g *Ngram) AnnotationType() string { return g.AnnType }

// Clone implements Spec.
func (g *Ngram) Clone() Spec {
	c := *g
	return &c
}

func (g *Ngram) kind() string { return KindNgram }

func (g *Ngram) validate() error {
	if g.AnnType == "" {
		return &SpecificationError{Attribute: g.Name, Reason: "missing annotation type"}
	}
	if g.N < 1 {
		return &SpecificationError{Attribute: g.Name, Reason: fmt.Sprintf("ngram order must be >= 1, got %d", g.N)}
	}
	if g.Name == "" {
		g.Name = fmt.Sprintf("%s:%s:%d-gram", g.AnnType, g.Feature, g.N)
	}
	return nil
}

// Specs is the ordered attribute list of one learning task.
type Specs []Spec

// Clone deep-copies every attribute so corpora never share value dictionaries.
func (ss Specs) Clone() Specs {
	out := make(Specs, len(ss))
	for i, s := range ss {
		out[i] = s.Clone()
	}
	return out
}

// Lock stops growth of every value dictionary.
func (ss Specs) Lock() {
	for _, s := range ss {
		if d := valueDict(s); d != nil {
			d.Lock()
		}
	}
}

func valueDict(s Spec) *alphabet.Alphabet {
	switch v := s.(type) {
	case *Simple:
		return v.Values
	case *List:
		return v.Values
	}
	return nil
}
