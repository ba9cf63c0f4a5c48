package calendar

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// MonthDay is a recurring day of the year.
type MonthDay struct {
	Month time.Month
	Day   int
}

// ParseMonthDay parses "MM-DD".
func ParseMonthDay(s string) (MonthDay, error) {
	t, err := time.Parse("01-02", s)
	if err != nil {
		return MonthDay{}, fmt.Errorf("invalid month-day %q: expected MM-DD", s)
	}
	return MonthDay{Month: t.Month(), Day: t.Day()}, nil
}

func (md MonthDay) String() string {
	return fmt.Sprintf("%02d-%02d", int(md.Month), md.Day)
}

func (md MonthDay) ordinal() int {
	return int(md.Month)*100 + md.Day
}

func (md *MonthDay) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseMonthDay(value.Value)
	if err != nil {
		return err
	}
	*md = parsed
	return nil
}

// DayRange is an inclusive range of recurring days. A range whose start is
// after its end wraps over the new year.
type DayRange struct {
	From MonthDay `yaml:"from"`
	To   MonthDay `yaml:"to"`
}

func (r DayRange) Contains(md MonthDay) bool {
	from, to, x := r.From.ordinal(), r.To.ordinal(), md.ordinal()
	if from <= to {
		return x >= from && x <= to
	}
	return x >= from || x <= to
}

// ClassifierConfig is the curated calendar of one operator.
type ClassifierConfig struct {
	Summer      []DayRange `yaml:"summer"`
	SchoolTerms []DayRange `yaml:"school_terms"`
	Holidays    []MonthDay `yaml:"holidays"`
	// HolidayDates are one-off holidays, typically movable feasts.
	HolidayDates []DateKey `yaml:"holiday_dates"`
	// Easter adds Good Friday, Easter Sunday and Corpus Christi every year.
	Easter bool `yaml:"easter"`
}

func md(month time.Month, day int) MonthDay {
	return MonthDay{Month: month, Day: day}
}

// DefaultClassifierConfig is the calendar the operator's timetables were
// exported with.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		Summer: []DayRange{{From: md(time.June, 23), To: md(time.September, 23)}},
		SchoolTerms: []DayRange{
			{From: md(time.January, 5), To: md(time.March, 20)},
			{From: md(time.March, 27), To: md(time.June, 10)},
			{From: md(time.September, 24), To: md(time.December, 15)},
		},
		Holidays: []MonthDay{
			md(time.January, 1),
			md(time.April, 25),
			md(time.June, 10),
			md(time.August, 15),
			md(time.October, 5),
			md(time.November, 1),
			md(time.December, 1),
			md(time.December, 8),
			md(time.December, 25),
		},
		Easter: true,
	}
}

func ParseClassifierConfig(data []byte) (ClassifierConfig, error) {
	var cfg ClassifierConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ClassifierConfig{}, fmt.Errorf("failed to parse classifier config: %w", err)
	}
	return cfg, nil
}

// Classifier maps concrete dates to their (period, day type) bucket.
type Classifier struct {
	summer       []DayRange
	schoolTerms  []DayRange
	holidays     map[MonthDay]bool
	holidayDates map[DateKey]bool
	easter       bool
}

// NewClassifier validates that summer and school-term ranges never overlap,
// so that every day of the year belongs to exactly one period.
func NewClassifier(cfg ClassifierConfig) (*Classifier, error) {
	c := &Classifier{
		summer:       cfg.Summer,
		schoolTerms:  cfg.SchoolTerms,
		holidays:     make(map[MonthDay]bool, len(cfg.Holidays)),
		holidayDates: make(map[DateKey]bool, len(cfg.HolidayDates)),
		easter:       cfg.Easter,
	}
	for _, h := range cfg.Holidays {
		c.holidays[h] = true
	}
	for _, d := range cfg.HolidayDates {
		c.holidayDates[d] = true
	}

	// 2024 is a leap year, so this visits every month-day including 02-29.
	for d := DateKey(20240101); d <= 20241231; d = d.AddDays(1) {
		x := d.MonthDay()
		if inAny(c.summer, x) && inAny(c.schoolTerms, x) {
			return nil, fmt.Errorf("periods overlap on %s: summer and school term ranges must be disjoint", x)
		}
	}
	return c, nil
}

func inAny(ranges []DayRange, x MonthDay) bool {
	for _, r := range ranges {
		if r.Contains(x) {
			return true
		}
	}
	return false
}

func (c *Classifier) Period(d DateKey) Period {
	x := d.MonthDay()
	switch {
	case inAny(c.summer, x):
		return Summer
	case inAny(c.schoolTerms, x):
		return SchoolTerm
	default:
		return SchoolHoliday
	}
}

func (c *Classifier) IsHoliday(d DateKey) bool {
	if c.holidays[d.MonthDay()] || c.holidayDates[d] {
		return true
	}
	if c.easter {
		easter := EasterSunday(d.Year())
		switch d {
		case easter.AddDays(-2), easter, easter.AddDays(60):
			return true
		}
	}
	return false
}

func (c *Classifier) DayType(d DateKey) DayType {
	if c.IsHoliday(d) {
		return SundayOrHoliday
	}
	switch d.Weekday() {
	case time.Sunday:
		return SundayOrHoliday
	case time.Saturday:
		return Saturday
	default:
		return Weekday
	}
}

// Classify returns the bucket a date belongs to.
func (c *Classifier) Classify(d DateKey) Bucket {
	return Bucket{Period: c.Period(d), DayType: c.DayType(d)}
}

// EasterSunday computes the Gregorian Easter date (anonymous algorithm).
func EasterSunday(year int) DateKey {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return DateKey(year*10000 + month*100 + day)
}
