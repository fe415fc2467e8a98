// Package extract turns an instance annotation and its context into a sparse
// feature vector according to an attribute list.
//
// Feature keys:
//
//	nominal, one_of_k   Type:feature=value       1.0
//	nominal, number     Type:feature             index in the value dictionary
//	numeric, bool       Type:feature             the value
//	no feature          Type::ISPRESENT          1.0
//	list position i     Type:!L!:i:feature...    as above
//	n-gram of order n   Type:feature:!N!:n=a_b   count of the window
//
// Every key goes through the shared feature alphabet. A locked alphabet
// drops unseen keys, so application-time vectors never grow the dictionary.
package extract

import (
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/happyhackingspace/lf/alphabet"
	"github.com/happyhackingspace/lf/annotation"
	"github.com/happyhackingspace/lf/attribute"
	"github.com/happyhackingspace/lf/internal/textutil"
	"github.com/happyhackingspace/lf/sparse"
)

// MissingMarker is the value part of the one-of-k indicator emitted for
// absent values under special_value.
const MissingMarker = "%%%NA%%%"

// Stage transforms a freshly extracted vector. Stages run in append order.
type Stage interface {
	Transform(v sparse.Vector) sparse.Vector
}

// Extractor applies an attribute list to instances.
type Extractor struct {
	specs    attribute.Specs
	features *alphabet.Alphabet
	stages   []Stage
}

// Result is the outcome of extracting one instance.
type Result struct {
	Vector sparse.Vector
	// HasMissing is set when any attribute found its source annotation but no value.
	HasMissing bool
	// Ignore is set when a missing value hit an ignore_instance attribute.
	Ignore bool
}

type state struct {
	vec        sparse.Vector
	hasMissing bool
	ignore     bool
}

// New creates an extractor over specs that indexes keys with features.
func New(specs attribute.Specs, features *alphabet.Alphabet) *Extractor {
	return &Extractor{specs: specs, features: features}
}

// Append adds a terminal transform stage.
func (x *Extractor) Append(s Stage) {
	x.stages = append(x.stages, s)
}

// Stages returns the transform stages in order.
func (x *Extractor) Stages() []Stage {
	return x.stages
}

// Features returns the shared feature alphabet.
func (x *Extractor) Features() *alphabet.Alphabet {
	return x.features
}

// Specs returns the attribute list.
func (x *Extractor) Specs() attribute.Specs {
	return x.specs
}

// Extract builds the feature vector of inst. set answers the context
// queries; text is only needed for n-gram attributes without a feature.
func (x *Extractor) Extract(inst annotation.Annotation, set annotation.Set, text annotation.TextSource) (Result, error) {
	st := &state{}
	for _, spec := range x.specs {
		var err error
		switch a := spec.(type) {
		case *attribute.Simple:
			err = x.simple(st, a, inst, set)
		case *attribute.List:
			x.list(st, a, inst, set)
		case *attribute.Ngram:
			x.ngram(st, a, inst, set, text)
		default:
			err = &attribute.SpecificationError{
				Attribute: spec.AttrName(),
				Reason:    fmt.Sprintf("unsupported attribute type %T", spec),
			}
		}
		if err != nil {
			return Result{}, err
		}
	}
	vec := st.vec
	for _, s := range x.stages {
		vec = s.Transform(vec)
	}
	return Result{Vector: vec, HasMissing: st.hasMissing, Ignore: st.ignore}, nil
}

// emit is the single place where keys enter the feature alphabet.
func (x *Extractor) emit(st *state, key string, val float64, accumulate bool) {
	id, ok := x.features.Lookup(key)
	if !ok {
		return
	}
	if accumulate {
		st.vec.Add(id, val)
		return
	}
	st.vec.Set(id, val)
}

func (x *Extractor) simple(st *state, a *attribute.Simple, inst annotation.Annotation, set annotation.Set) error {
	src, found, err := source(a, inst, set)
	if err != nil || !found {
		return err
	}
	x.value(st, a, src, a.AnnType+":"+a.Feature)
	return nil
}

// source resolves the single annotation an attribute reads. Zero matches is
// not an error; more than one is.
func source(a *attribute.Simple, inst annotation.Annotation, set annotation.Set) (annotation.Annotation, bool, error) {
	if a.AnnType == inst.Type {
		return inst, true, nil
	}
	anns := set.Overlapping(a.AnnType, inst.Span)
	switch len(anns) {
	case 0:
		return annotation.Annotation{}, false, nil
	case 1:
		return anns[0], true, nil
	}
	return annotation.Annotation{}, false, &AmbiguousSourceError{
		Attribute: a.Name,
		Type:      a.AnnType,
		Span:      inst.Span,
		Count:     len(anns),
	}
}

func (x *Extractor) list(st *state, l *attribute.List, inst annotation.Annotation, set annotation.Set) {
	all := set.Ordered(l.AnnType, 0, math.MaxInt)
	split := sort.Search(len(all), func(i int) bool { return all[i].Start >= inst.Start })
	before, after := all[:split], all[split:]

	for i := l.From; i <= l.To; i++ {
		var src annotation.Annotation
		switch {
		case i < 0 && len(before)+i >= 0:
			src = before[len(before)+i]
		case i >= 0 && i < len(after):
			src = after[i]
		default:
			continue
		}
		x.value(st, &l.Simple, src, fmt.Sprintf("%s:!L!:%d:%s", l.AnnType, i, l.Feature))
	}
}

func (x *Extractor) ngram(st *state, g *attribute.Ngram, inst annotation.Annotation, set annotation.Set, text annotation.TextSource) {
	anns := set.Contained(inst.Span, g.AnnType)
	if len(anns) < g.N {
		return
	}
	values := make([]string, 0, len(anns))
	for _, a := range anns {
		var v string
		if g.Feature == "" {
			if text == nil {
				continue
			}
			v = text.CleanCoveredText(a.Span)
		} else if raw, ok := a.Feature(g.Feature); ok {
			v = stringValue(raw)
		}
		if v != "" {
			values = append(values, v)
		}
	}
	prefix := fmt.Sprintf("%s:%s:!N!:%d=", g.AnnType, g.Feature, g.N)
	for _, gram := range textutil.Ngrams(values, g.N) {
		x.emit(st, prefix+gram, 1.0, true)
	}
}

// value emits the features of attribute a read from src, keyed under prefix.
func (x *Extractor) value(st *state, a *attribute.Simple, src annotation.Annotation, prefix string) {
	if a.Feature == "" {
		x.emit(st, prefix+":ISPRESENT", 1.0, false)
		return
	}
	raw, ok := src.Feature(a.Feature)
	if ok && a.Datatype == attribute.Nominal && stringValue(raw) == "" {
		ok = false
	}
	if !ok {
		x.missing(st, a, prefix)
		return
	}

	switch a.Datatype {
	case attribute.Nominal:
		str := stringValue(raw)
		if a.CodeAs == attribute.Number {
			idx, known := a.Values.Lookup(str)
			if !known {
				return
			}
			x.emit(st, prefix, float64(idx), false)
			return
		}
		x.emit(st, prefix+"="+str, 1.0, false)
	case attribute.Numeric:
		x.emit(st, prefix, numericValue(a, raw), false)
	case attribute.Bool:
		if boolValue(a, raw) {
			x.emit(st, prefix, 1.0, false)
		} else {
			x.emit(st, prefix, 0.0, false)
		}
	}
}

// missing applies the attribute's missing value treatment.
func (x *Extractor) missing(st *state, a *attribute.Simple, prefix string) {
	st.hasMissing = true
	oneOfK := a.Datatype == attribute.Nominal && a.CodeAs == attribute.OneOfK

	switch a.Missing {
	case attribute.IgnoreInstance:
		st.ignore = true
	case attribute.Keep:
		if !oneOfK {
			x.emit(st, prefix, math.NaN(), false)
		}
	case attribute.ZeroValue:
		if !oneOfK {
			x.emit(st, prefix, 0.0, false)
		}
	case attribute.SpecialValue:
		switch {
		case oneOfK:
			x.emit(st, prefix+"="+MissingMarker, 1.0, false)
		case a.Datatype == attribute.Bool:
			x.emit(st, prefix, 0.5, false)
		default:
			x.emit(st, prefix, -1.0, false)
		}
	}
}

func stringValue(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(raw)
}

func numericValue(a *attribute.Simple, raw any) float64 {
	switch v := raw.(type) {
	case bool:
		if v {
			return 1.0
		}
		return 0.0
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil {
			return f
		}
	default:
		if f, ok := asFloat(raw); ok {
			return f
		}
	}
	slog.Warn("Unparsable numeric value, using 0", "attribute", a.Name, "value", raw)
	return 0.0
}

func boolValue(a *attribute.Simple, raw any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err == nil {
			return b
		}
	default:
		if f, ok := asFloat(raw); ok {
			return f != 0
		}
	}
	slog.Warn("Unparsable boolean value, using false", "attribute", a.Name, "value", raw)
	return false
}

// asFloat converts any integer or floating point kind.
func asFloat(raw any) (float64, bool) {
	v := reflect.ValueOf(raw)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	}
	return 0, false
}
