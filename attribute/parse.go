package attribute

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/happyhackingspace/lf/alphabet"
)

// decl is the serialized form of one attribute, shared by the YAML
// specification file and the persisted JSON model.
type decl struct {
	Kind     string                `yaml:"kind" json:"kind"`
	Name     string                `yaml:"name,omitempty" json:"name,omitempty"`
	Type     string                `yaml:"type" json:"type"`
	Feature  string                `yaml:"feature,omitempty" json:"feature,omitempty"`
	Datatype Datatype              `yaml:"datatype,omitempty" json:"datatype,omitempty"`
	CodeAs   CodeAs                `yaml:"codeas,omitempty" json:"codeas,omitempty"`
	Missing  MissingValueTreatment `yaml:"missing,omitempty" json:"missing,omitempty"`
	From     int                   `yaml:"from,omitempty" json:"from,omitempty"`
	To       int                   `yaml:"to,omitempty" json:"to,omitempty"`
	N        int                   `yaml:"n,omitempty" json:"n,omitempty"`
	Values   *alphabet.Alphabet    `yaml:"-" json:"values,omitempty"`
}

type specFile struct {
	Attributes []decl `yaml:"attributes"`
}

// Parse reads a YAML attribute specification:
//
//	attributes:
//	  - kind: simple
//	    type: Token
//	    feature: category
//	  - kind: list
//	    type: Token
//	    feature: string
//	    from: -2
//	    to: 2
//	  - kind: ngram
//	    type: Token
//	    feature: string
//	    n: 2
//
// Every malformed declaration is reported; the returned error matches
// ErrSpecification.
func Parse(r io.Reader) (Specs, error) {
	var f specFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &SpecificationError{Reason: "empty specification"}
		}
		return nil, fmt.Errorf("%w: %v", ErrSpecification, err)
	}
	if len(f.Attributes) == 0 {
		return nil, &SpecificationError{Reason: "no attributes declared"}
	}
	return fromDecls(f.Attributes)
}

// ParseFile reads a YAML attribute specification from path.
func ParseFile(path string) (Specs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("attribute: read spec: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

func fromDecls(decls []decl) (Specs, error) {
	specs := make(Specs, 0, len(decls))
	var errs error
	for i, d := range decls {
		s, err := d.spec()
		if err == nil {
			err = s.validate()
		}
		if err != nil {
			var se *SpecificationError
			if errors.As(err, &se) {
				se.Index = i
			}
			errs = multierr.Append(errs, err)
			continue
		}
		specs = append(specs, s)
	}
	if errs != nil {
		return nil, errs
	}
	return specs, nil
}

func (d decl) spec() (Spec, error) {
	simple := Simple{
		Name:     d.Name,
		AnnType:  d.Type,
		Feature:  d.Feature,
		Datatype: d.Datatype,
		CodeAs:   d.CodeAs,
		Missing:  d.Missing,
		Values:   d.Values,
	}
	var spec Spec
	switch d.Kind {
	case KindSimple, "":
		spec = &simple
	case KindList:
		spec = &List{Simple: simple, From: d.From, To: d.To}
	case KindNgram:
		spec = &Ngram{Name: d.Name, AnnType: d.Type, Feature: d.Feature, N: d.N}
	default:
		return nil, &SpecificationError{Attribute: d.Name, Reason: fmt.Sprintf("unknown attribute kind %q", d.Kind)}
	}
	if foreign := d.foreignFields(); len(foreign) > 0 {
		kind := d.Kind
		if kind == "" {
			kind = KindSimple
		}
		return nil, &SpecificationError{
			Attribute: d.Name,
			Reason:    fmt.Sprintf("%s not valid for kind %s", strings.Join(foreign, ", "), kind),
		}
	}
	return spec, nil
}

// foreignFields lists the set fields that the declared kind does not use.
func (d decl) foreignFields() []string {
	var out []string
	isNgram := d.Kind == KindNgram
	if isNgram {
		if d.Datatype != DatatypeUnset {
			out = append(out, "datatype")
		}
		if d.CodeAs != CodeAsUnset {
			out = append(out, "codeas")
		}
		if d.Missing != MissingUnset {
			out = append(out, "missing")
		}
		if d.Values != nil {
			out = append(out, "values")
		}
	}
	if d.Kind != KindList {
		if d.From != 0 {
			out = append(out, "from")
		}
		if d.To != 0 {
			out = append(out, "to")
		}
	}
	if !isNgram && d.N != 0 {
		out = append(out, "n")
	}
	return out
}

func toDecl(s Spec) decl {
	switch v := s.(type) {
	case *Simple:
		return simpleDecl(KindSimple, v)
	case *List:
		d := simpleDecl(KindList, &v.Simple)
		d.From, d.To = v.From, v.To
		return d
	case *Ngram:
		return decl{Kind: KindNgram, Name: v.Name, Type: v.AnnType, Feature: v.Feature, N: v.N}
	}
	panic(fmt.Sprintf("attribute: unknown spec type %T", s))
}

func simpleDecl(kind string, s *Simple) decl {
	return decl{
		Kind:     kind,
		Name:     s.Name,
		Type:     s.AnnType,
		Feature:  s.Feature,
		Datatype: s.Datatype,
		CodeAs:   s.CodeAs,
		Missing:  s.Missing,
		Values:   s.Values,
	}
}

// MarshalJSON implements json.Marshaler. Value dictionaries are included.
func (ss Specs) MarshalJSON() ([]byte, error) {
	decls := make([]decl, len(ss))
	for i, s := range ss {
		decls[i] = toDecl(s)
	}
	return json.Marshal(decls)
}

// UnmarshalJSON implements json.Unmarshaler.
func (ss *Specs) UnmarshalJSON(data []byte) error {
	var decls []decl
	if err := json.Unmarshal(data, &decls); err != nil {
		return err
	}
	specs, err := fromDecls(decls)
	if err != nil {
		return err
	}
	*ss = specs
	return nil
}
