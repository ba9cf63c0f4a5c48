package calendar

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// CellKind tags the three states an activity vector cell can be in.
type CellKind uint8

const (
	Inactive CellKind = iota
	Active
	ActiveWithException
)

// Cell is one entry of a service pattern's activity vector. Letter is only
// set for ActiveWithException.
type Cell struct {
	Kind   CellKind
	Letter string
}

// ExceptionCell builds an ActiveWithException cell.
func ExceptionCell(letter string) Cell {
	return Cell{Kind: ActiveWithException, Letter: letter}
}

// ParseCell decodes the exported form: "0", "1" or "1" followed by a single
// exception letter.
func ParseCell(s string) (Cell, error) {
	switch s {
	case "0":
		return Cell{Kind: Inactive}, nil
	case "1":
		return Cell{Kind: Active}, nil
	}
	if len(s) < 2 || s[0] != '1' {
		return Cell{}, fmt.Errorf("invalid calendar cell %q", s)
	}
	letter := s[1:]
	r, size := utf8.DecodeRuneInString(letter)
	if size != len(letter) || !unicode.IsLetter(r) {
		return Cell{}, fmt.Errorf("invalid calendar cell %q: exception must be a single letter", s)
	}
	return ExceptionCell(letter), nil
}

// Runs reports whether the cell puts the pattern in service, before any
// exception predicate is applied.
func (c Cell) Runs() bool {
	return c.Kind != Inactive
}

func (c Cell) String() string {
	switch c.Kind {
	case Active:
		return "1"
	case ActiveWithException:
		return "1" + c.Letter
	default:
		return "0"
	}
}

func (c Cell) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Cell) UnmarshalText(text []byte) error {
	parsed, err := ParseCell(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
