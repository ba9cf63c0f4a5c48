package calendar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// DateFacts is the environment exception predicates are evaluated against.
type DateFacts struct {
	Date    string `expr:"date"`
	Year    int    `expr:"year"`
	Month   int    `expr:"month"`
	Day     int    `expr:"day"`
	Weekday string `expr:"weekday"`
	// Nth is the occurrence of this weekday within the month, 1 to 5.
	Nth     int    `expr:"nth"`
	Last    bool   `expr:"last"`
	Holiday bool   `expr:"holiday"`
	Summer  bool   `expr:"summer"`
	School  bool   `expr:"school"`
	Period  string `expr:"period"`
	DayType string `expr:"dayType"`

	// Between reports whether the date lies in the inclusive month/day range.
	Between func(fromMonth, fromDay, toMonth, toDay int) bool `expr:"between"`
}

// FactsFor gathers everything a predicate may ask about a date.
func FactsFor(d DateKey, c *Classifier) DateFacts {
	t := d.Time()
	daysInMonth := t.AddDate(0, 1, -t.Day()).Day()
	period := c.Period(d)
	x := d.MonthDay()
	return DateFacts{
		Date:    d.String(),
		Year:    d.Year(),
		Month:   int(d.Month()),
		Day:     d.Day(),
		Weekday: strings.ToLower(t.Weekday().String()),
		Nth:     (d.Day()-1)/7 + 1,
		Last:    d.Day()+7 > daysInMonth,
		Holiday: c.IsHoliday(d),
		Summer:  period == Summer,
		School:  period == SchoolTerm,
		Period:  period.String(),
		DayType: c.DayType(d).String(),
		Between: func(fromMonth, fromDay, toMonth, toDay int) bool {
			r := DayRange{
				From: MonthDay{Month: time.Month(fromMonth), Day: fromDay},
				To:   MonthDay{Month: time.Month(toMonth), Day: toDay},
			}
			return r.Contains(x)
		},
	}
}

// Exception is one entry of the exception-letter legend.
type Exception struct {
	Letter      string `json:"letter"`
	Description string `json:"description"`
	When        string `json:"when,omitempty"`

	program *vm.Program
}

// Evaluable reports whether the entry carries a predicate.
func (e *Exception) Evaluable() bool {
	return e.program != nil
}

// Matches evaluates the predicate for the given facts.
func (e *Exception) Matches(facts DateFacts) (bool, error) {
	if e.program == nil {
		return false, fmt.Errorf("%w: %q", ErrUndefinedException, e.Letter)
	}
	out, err := expr.Run(e.program, facts)
	if err != nil {
		return false, fmt.Errorf("exception %q: %w", e.Letter, err)
	}
	matched, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("exception %q: predicate returned %T", e.Letter, out)
	}
	return matched, nil
}

// Legend maps exception letters to their meaning and predicate. Predicates
// are compiled once when the legend is built.
type Legend struct {
	entries map[string]*Exception
}

// NewLegend compiles the predicate of every entry.
func NewLegend(entries ...Exception) (*Legend, error) {
	l := &Legend{entries: make(map[string]*Exception, len(entries))}
	for _, entry := range entries {
		e := entry
		if e.When != "" {
			program, err := expr.Compile(e.When, expr.Env(DateFacts{}), expr.AsBool())
			if err != nil {
				return nil, fmt.Errorf("exception %q: invalid predicate: %w", e.Letter, err)
			}
			e.program = program
		}
		l.entries[e.Letter] = &e
	}
	return l, nil
}

// ParseLegend reads the legend file. Each value is either a plain
// description string or an object with description and when fields.
func ParseLegend(data []byte) (*Legend, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse legend: %w", err)
	}
	entries := make([]Exception, 0, len(raw))
	for letter, value := range raw {
		e := Exception{Letter: letter}
		if bytes.HasPrefix(bytes.TrimSpace(value), []byte("\"")) {
			if err := json.Unmarshal(value, &e.Description); err != nil {
				return nil, fmt.Errorf("legend entry %q: %w", letter, err)
			}
		} else {
			var obj struct {
				Description string `json:"description"`
				When        string `json:"when"`
			}
			if err := json.Unmarshal(value, &obj); err != nil {
				return nil, fmt.Errorf("legend entry %q: %w", letter, err)
			}
			e.Description, e.When = obj.Description, obj.When
		}
		entries = append(entries, e)
	}
	return NewLegend(entries...)
}

func (l *Legend) Lookup(letter string) (*Exception, bool) {
	if l == nil {
		return nil, false
	}
	e, ok := l.entries[letter]
	return e, ok
}

// Describe returns the human readable meaning of a letter.
func (l *Legend) Describe(letter string) (string, bool) {
	e, ok := l.Lookup(letter)
	if !ok {
		return "", false
	}
	return e.Description, true
}

// Entries returns the legend sorted by letter.
func (l *Legend) Entries() []Exception {
	if l == nil {
		return nil
	}
	out := make([]Exception, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, *e)
	}
	slices.SortFunc(out, func(a, b Exception) int { return strings.Compare(a.Letter, b.Letter) })
	return out
}
