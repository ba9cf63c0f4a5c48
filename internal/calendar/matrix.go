package calendar

import (
	"encoding/json"
	"fmt"
	"slices"
)

// ActivityVector holds one cell per bucket, indexed by Bucket.Index.
type ActivityVector [BucketCount]Cell

// At returns the cell for a bucket.
func (v ActivityVector) At(b Bucket) Cell {
	return v[b.Index()]
}

// ParseActivityVector decodes the exported string form of a vector.
func ParseActivityVector(cells []string) (ActivityVector, error) {
	var v ActivityVector
	if len(cells) != BucketCount {
		return v, fmt.Errorf("activity vector has %d cells, want %d", len(cells), BucketCount)
	}
	for i, raw := range cells {
		cell, err := ParseCell(raw)
		if err != nil {
			return v, fmt.Errorf("cell %d (%s): %w", i, BucketAt(i), err)
		}
		v[i] = cell
	}
	return v, nil
}

// Strings is the inverse of ParseActivityVector.
func (v ActivityVector) Strings() []string {
	out := make([]string, BucketCount)
	for i, c := range v {
		out[i] = c.String()
	}
	return out
}

// Matrix maps service pattern ids to their activity vectors. A Matrix is
// immutable once built and safe for concurrent use.
type Matrix struct {
	patterns map[string]ActivityVector
}

// NewMatrix copies the given vectors into a new Matrix.
func NewMatrix(patterns map[string]ActivityVector) *Matrix {
	m := &Matrix{patterns: make(map[string]ActivityVector, len(patterns))}
	for id, v := range patterns {
		m.patterns[id] = v
	}
	return m
}

// ParseMatrix decodes the calendar matrix file: an object mapping pattern id
// to a nine element array of "0", "1" or "1"+letter.
func ParseMatrix(data []byte) (*Matrix, error) {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse calendar matrix: %w", err)
	}
	patterns := make(map[string]ActivityVector, len(raw))
	for id, cells := range raw {
		v, err := ParseActivityVector(cells)
		if err != nil {
			return nil, fmt.Errorf("service pattern %q: %w", id, err)
		}
		patterns[id] = v
	}
	return &Matrix{patterns: patterns}, nil
}

func (m *Matrix) MarshalJSON() ([]byte, error) {
	out := make(map[string][]string, len(m.patterns))
	for id, v := range m.patterns {
		out[id] = v.Strings()
	}
	return json.Marshal(out)
}

// Vector returns the activity vector of a pattern, or an error wrapping
// ErrUnknownServicePattern.
func (m *Matrix) Vector(id string) (ActivityVector, error) {
	v, ok := m.patterns[id]
	if !ok {
		return ActivityVector{}, unknownPattern(id)
	}
	return v, nil
}

func (m *Matrix) Has(id string) bool {
	_, ok := m.patterns[id]
	return ok
}

// Cell is shorthand for Vector(id).At(b).
func (m *Matrix) Cell(id string, b Bucket) (Cell, error) {
	v, err := m.Vector(id)
	if err != nil {
		return Cell{}, err
	}
	return v.At(b), nil
}

// IDs returns every pattern id in sorted order.
func (m *Matrix) IDs() []string {
	ids := make([]string, 0, len(m.patterns))
	for id := range m.patterns {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (m *Matrix) Len() int {
	return len(m.patterns)
}

// Letters returns the distinct exception letters used anywhere in the matrix.
func (m *Matrix) Letters() []string {
	seen := map[string]bool{}
	var letters []string
	for _, v := range m.patterns {
		for _, c := range v {
			if c.Kind == ActiveWithException && !seen[c.Letter] {
				seen[c.Letter] = true
				letters = append(letters, c.Letter)
			}
		}
	}
	slices.Sort(letters)
	return letters
}
