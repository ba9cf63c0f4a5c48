package calendar

import (
	"errors"
	"fmt"
)

// Resolver decides whether a service pattern runs on a date.
type Resolver interface {
	IsActive(patternID string, date DateKey) (bool, error)
	// CheckDate returns a *ValidityError for dates the data does not cover.
	CheckDate(date DateKey) error
}

// RuleResolver evaluates the calendar matrix, the date classifier and the
// exception legend for every query. Rules cover every date.
type RuleResolver struct {
	matrix     *Matrix
	classifier *Classifier
	legend     *Legend
}

func NewRuleResolver(matrix *Matrix, classifier *Classifier, legend *Legend) *RuleResolver {
	return &RuleResolver{matrix: matrix, classifier: classifier, legend: legend}
}

func (r *RuleResolver) CheckDate(DateKey) error {
	return nil
}

func (r *RuleResolver) Classifier() *Classifier {
	return r.classifier
}

func (r *RuleResolver) IsActive(patternID string, date DateKey) (bool, error) {
	v, err := r.matrix.Vector(patternID)
	if err != nil {
		return false, err
	}
	cell := v.At(r.classifier.Classify(date))
	switch cell.Kind {
	case Inactive:
		return false, nil
	case Active:
		return true, nil
	}
	e, ok := r.legend.Lookup(cell.Letter)
	if !ok {
		return false, fmt.Errorf("%w: %q (pattern %q)", ErrUndefinedException, cell.Letter, patternID)
	}
	return e.Matches(FactsFor(date, r.classifier))
}

// ActivePatterns lists, in id order, every pattern running on date.
func (r *RuleResolver) ActivePatterns(date DateKey) ([]string, error) {
	var active []string
	for _, id := range r.matrix.IDs() {
		ok, err := r.IsActive(id, date)
		if err != nil {
			return nil, err
		}
		if ok {
			active = append(active, id)
		}
	}
	return active, nil
}

// BuildIndex evaluates every pattern on every date of [from, to].
func (r *RuleResolver) BuildIndex(from, to DateKey) (*ServiceIndex, error) {
	if to < from {
		return nil, fmt.Errorf("invalid index range %s..%s", from, to)
	}
	ix := NewServiceIndex()
	err := DaysBetween(from, to, func(d DateKey) error {
		ids, err := r.ActivePatterns(d)
		if err != nil {
			return fmt.Errorf("%s: %w", d, err)
		}
		ix.Add(d, ids...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ix, nil
}

// IndexResolver answers from a precomputed ServiceIndex. The matrix is kept
// only to tell unknown patterns apart from inactive ones.
type IndexResolver struct {
	matrix *Matrix
	index  *ServiceIndex
}

func NewIndexResolver(matrix *Matrix, index *ServiceIndex) *IndexResolver {
	return &IndexResolver{matrix: matrix, index: index}
}

func (r *IndexResolver) CheckDate(date DateKey) error {
	return r.index.Window().Check(date)
}

func (r *IndexResolver) IsActive(patternID string, date DateKey) (bool, error) {
	if !r.matrix.Has(patternID) {
		return false, unknownPattern(patternID)
	}
	if err := r.CheckDate(date); err != nil {
		return false, err
	}
	return r.index.Contains(date, patternID), nil
}

func (r *IndexResolver) ActivePatterns(date DateKey) ([]string, error) {
	if err := r.CheckDate(date); err != nil {
		return nil, err
	}
	return r.index.Patterns(date), nil
}

// Mismatch is one (date, pattern) pair on which the two resolution paths
// disagree.
type Mismatch struct {
	Date      DateKey `json:"date"`
	PatternID string  `json:"patternId"`
	InIndex   bool    `json:"inIndex"`
	ByRules   bool    `json:"byRules"`
	Err       string  `json:"error,omitempty"`
}

// CompareIndex checks every date of the index window against the rule
// resolver, for every pattern in the matrix and every id the index lists.
func CompareIndex(index *ServiceIndex, rules *RuleResolver) []Mismatch {
	var mismatches []Mismatch
	w := index.Window()
	if w.From == 0 {
		return nil
	}
	ids := rules.matrix.IDs()
	_ = DaysBetween(w.From, w.To, func(d DateKey) error {
		for _, id := range ids {
			want := index.Contains(d, id)
			got, err := rules.IsActive(id, d)
			if err != nil {
				mismatches = append(mismatches, Mismatch{Date: d, PatternID: id, InIndex: want, Err: err.Error()})
				continue
			}
			if got != want {
				mismatches = append(mismatches, Mismatch{Date: d, PatternID: id, InIndex: want, ByRules: got})
			}
		}
		for _, id := range index.Patterns(d) {
			if !rules.matrix.Has(id) {
				mismatches = append(mismatches, Mismatch{Date: d, PatternID: id, InIndex: true, Err: unknownPattern(id).Error()})
			}
		}
		return nil
	})
	return mismatches
}

// IsDataError reports whether err comes from inconsistent input data rather
// than from the query.
func IsDataError(err error) bool {
	return errors.Is(err, ErrUnknownServicePattern) || errors.Is(err, ErrUndefinedException)
}
