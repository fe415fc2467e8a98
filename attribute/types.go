package attribute

import "fmt"

// Attribute kinds as written in specification files.
const (
	KindSimple = "simple"
	KindList   = "list"
	KindNgram  = "ngram"
)

// Datatype is how a feature value is coerced into a number.
type Datatype int

const (
	DatatypeUnset Datatype = iota
	Nominal
	Numeric
	Bool
)

var datatypeNames = map[Datatype]string{
	DatatypeUnset: "",
	Nominal:       "nominal",
	Numeric:       "numeric",
	Bool:          "bool",
}

func (d Datatype) String() string { return datatypeNames[d] }

// MarshalText implements encoding.TextMarshaler.
func (d Datatype) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Datatype) UnmarshalText(b []byte) error {
	switch string(b) {
	case "":
		*d = DatatypeUnset
	case "nominal":
		*d = Nominal
	case "numeric":
		*d = Numeric
	case "bool", "boolean":
		*d = Bool
	default:
		return fmt.Errorf("unknown datatype %q", b)
	}
	return nil
}

// CodeAs selects the encoding of nominal values.
type CodeAs int

const (
	CodeAsUnset CodeAs = iota
	// OneOfK emits one indicator feature per observed value.
	OneOfK
	// Number emits the value's index in the attribute's value dictionary.
	Number
)

func (c CodeAs) String() string {
	switch c {
	case OneOfK:
		return "one_of_k"
	case Number:
		return "number"
	}
	return ""
}

// MarshalText implements encoding.TextMarshaler.
func (c CodeAs) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *CodeAs) UnmarshalText(b []byte) error {
	switch string(b) {
	case "":
		*c = CodeAsUnset
	case "one_of_k":
		*c = OneOfK
	case "number":
		*c = Number
	default:
		return fmt.Errorf("unknown codeas %q", b)
	}
	return nil
}

// MissingValueTreatment decides what an absent value turns into.
type MissingValueTreatment int

const (
	MissingUnset MissingValueTreatment = iota
	// IgnoreInstance drops the whole instance (or sequence element).
	IgnoreInstance
	// Keep leaves one-of-k features absent and stores NaN otherwise.
	Keep
	// ZeroValue stores 0.
	ZeroValue
	// SpecialValue stores a dedicated marker value or indicator feature.
	SpecialValue
)

var missingNames = map[MissingValueTreatment]string{
	MissingUnset:   "",
	IgnoreInstance: "ignore_instance",
	Keep:           "keep",
	ZeroValue:      "zero_value",
	SpecialValue:   "special_value",
}

func (m MissingValueTreatment) String() string { return missingNames[m] }

// MarshalText implements encoding.TextMarshaler.
func (m MissingValueTreatment) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *MissingValueTreatment) UnmarshalText(b []byte) error {
	for k, v := range missingNames {
		if v == string(b) {
			*m = k
			return nil
		}
	}
	return fmt.Errorf("unknown missing value treatment %q", b)
}
