// Package sparse provides the index-ascending sparse vector handed to learning back-ends.
package sparse

import "sort"

// Vector is a sparse float64 vector. Indices are kept ascending and unique.
type Vector struct {
	Indices []int     `json:"indices"`
	Values  []float64 `json:"values"`
}

// find returns the position of idx, or the insertion point and false.
func (v *Vector) find(idx int) (int, bool) {
	pos := sort.SearchInts(v.Indices, idx)
	return pos, pos < len(v.Indices) && v.Indices[pos] == idx
}

func (v *Vector) insert(pos, idx int, val float64) {
	v.Indices = append(v.Indices, 0)
	v.Values = append(v.Values, 0)
	copy(v.Indices[pos+1:], v.Indices[pos:])
	copy(v.Values[pos+1:], v.Values[pos:])
	v.Indices[pos] = idx
	v.Values[pos] = val
}

// Set stores val at idx, replacing any previous value.
func (v *Vector) Set(idx int, val float64) {
	pos, ok := v.find(idx)
	if ok {
		v.Values[pos] = val
		return
	}
	v.insert(pos, idx, val)
}

// Add adds val to the value at idx, creating the entry if needed.
func (v *Vector) Add(idx int, val float64) {
	pos, ok := v.find(idx)
	if ok {
		v.Values[pos] += val
		return
	}
	v.insert(pos, idx, val)
}

// Get returns the value at idx and whether it is present.
func (v Vector) Get(idx int) (float64, bool) {
	pos, ok := v.find(idx)
	if !ok {
		return 0, false
	}
	return v.Values[pos], true
}

// Nnz returns the number of stored entries.
func (v Vector) Nnz() int {
	return len(v.Indices)
}

// MaxIndex returns the largest stored index, or -1 for an empty vector.
func (v Vector) MaxIndex() int {
	if len(v.Indices) == 0 {
		return -1
	}
	return v.Indices[len(v.Indices)-1]
}

// Clone returns a deep copy.
func (v Vector) Clone() Vector {
	out := Vector{
		Indices: make([]int, len(v.Indices)),
		Values:  make([]float64, len(v.Values)),
	}
	copy(out.Indices, v.Indices)
	copy(out.Values, v.Values)
	return out
}

// ToDense converts to a dense slice of the given dimension.
// Entries at or beyond dim are dropped.
func (v Vector) ToDense(dim int) []float64 {
	dense := make([]float64, dim)
	for i, idx := range v.Indices {
		if idx < dim {
			dense[idx] = v.Values[i]
		}
	}
	return dense
}
