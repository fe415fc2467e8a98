package sparse

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// floatJSON writes NaN and the infinities as the strings "NaN", "+Inf" and
// "-Inf", which plain JSON numbers cannot carry.
type floatJSON float64

func (f floatJSON) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Inf"`), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

func (f *floatJSON) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || !(math.IsNaN(v) || math.IsInf(v, 0)) {
			return fmt.Errorf("sparse: invalid value %q", s)
		}
		*f = floatJSON(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = floatJSON(v)
	return nil
}

type vectorJSON struct {
	Indices []int       `json:"indices"`
	Values  []floatJSON `json:"values"`
}

// MarshalJSON encodes the vector with non-finite values spelled as strings,
// so kept missing values survive the trip to a back-end.
func (v Vector) MarshalJSON() ([]byte, error) {
	out := vectorJSON{Indices: v.Indices}
	if v.Values != nil {
		out.Values = make([]floatJSON, len(v.Values))
		for i, val := range v.Values {
			out.Values[i] = floatJSON(val)
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (v *Vector) UnmarshalJSON(data []byte) error {
	var in vectorJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if len(in.Indices) != len(in.Values) {
		return fmt.Errorf("sparse: %d indices but %d values", len(in.Indices), len(in.Values))
	}
	v.Indices = in.Indices
	v.Values = nil
	if in.Values != nil {
		v.Values = make([]float64, len(in.Values))
		for i, val := range in.Values {
			v.Values[i] = float64(val)
		}
	}
	return nil
}
