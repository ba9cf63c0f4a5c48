package calendar

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMatrixJSON = `{
	"S1": ["1","1","1", "1","1","1", "1","1","1"],
	"WD": ["1","0","0", "1","0","0", "1","0","0"],
	"SUM": ["0","0","0", "0","0","0", "1","1","1"],
	"H2": ["0","0","1h", "0","0","1h", "0","0","1h"],
	"FRI": ["1f","0","0", "1f","0","0", "0","0","0"]
}`

const testLegendJSON = `{
	"h": {"description": "2º domingo do mês", "when": "weekday == \"sunday\" && nth == 2"},
	"f": {"description": "só às sextas", "when": "weekday == \"friday\""},
	"x": "entre 10/6 e 15/9"
}`

func newTestRules(t *testing.T) (*Matrix, *Classifier, *Legend, *RuleResolver) {
	t.Helper()
	matrix, err := ParseMatrix([]byte(testMatrixJSON))
	require.NoError(t, err)
	classifier, err := NewClassifier(DefaultClassifierConfig())
	require.NoError(t, err)
	legend, err := ParseLegend([]byte(testLegendJSON))
	require.NoError(t, err)
	return matrix, classifier, legend, NewRuleResolver(matrix, classifier, legend)
}

func TestParseCell(t *testing.T) {
	tests := []struct {
		in      string
		want    Cell
		wantErr bool
	}{
		{in: "0", want: Cell{Kind: Inactive}},
		{in: "1", want: Cell{Kind: Active}},
		{in: "1h", want: ExceptionCell("h")},
		{in: "1C", want: ExceptionCell("C")},
		{in: "", wantErr: true},
		{in: "2", wantErr: true},
		{in: "0h", wantErr: true},
		{in: "1hh", wantErr: true},
		{in: "17", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCell(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestParseMatrixRejectsWrongVectorLength(t *testing.T) {
	_, err := ParseMatrix([]byte(`{"A": ["1","1","1"]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `service pattern "A"`)
	assert.Contains(t, err.Error(), "3 cells")
}

func TestMatrixUnknownPattern(t *testing.T) {
	matrix, err := ParseMatrix([]byte(testMatrixJSON))
	require.NoError(t, err)

	_, err = matrix.Vector("nope")
	assert.ErrorIs(t, err, ErrUnknownServicePattern)
	assert.Equal(t, []string{"f", "h"}, matrix.Letters())
	assert.Equal(t, 5, matrix.Len())

	out, err := json.Marshal(matrix)
	require.NoError(t, err)
	again, err := ParseMatrix(out)
	require.NoError(t, err)
	assert.Equal(t, matrix.IDs(), again.IDs())
}

func TestBucketIndexRoundTrip(t *testing.T) {
	for i, b := range AllBuckets() {
		assert.Equal(t, i, b.Index())
		assert.Equal(t, b, BucketAt(i))
	}
	assert.Equal(t, 8, Bucket{Period: Summer, DayType: SundayOrHoliday}.Index())
}

func TestDateKey(t *testing.T) {
	d, err := ParseDateKey("20240229")
	require.NoError(t, err)
	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, time.February, d.Month())
	assert.Equal(t, 29, d.Day())
	assert.Equal(t, DateKey(20240301), d.AddDays(1))
	assert.Equal(t, time.Thursday, d.Weekday())

	for _, bad := range []string{"20230229", "2024-01-01", "2024011", "abcdefgh"} {
		_, err := ParseDateKey(bad)
		assert.Error(t, err, bad)
	}

	local := time.Date(2024, 5, 3, 23, 30, 0, 0, time.FixedZone("X", 3600))
	assert.Equal(t, DateKey(20240503), DateKeyOf(local))
}

func TestClassifier(t *testing.T) {
	c, err := NewClassifier(DefaultClassifierConfig())
	require.NoError(t, err)

	tests := []struct {
		date   string
		bucket Bucket
	}{
		{"20240115", Bucket{SchoolTerm, Weekday}},
		{"20240120", Bucket{SchoolTerm, Saturday}},
		{"20240121", Bucket{SchoolTerm, SundayOrHoliday}},
		{"20240101", Bucket{SchoolHoliday, SundayOrHoliday}}, // new year
		{"20240325", Bucket{SchoolHoliday, Weekday}},
		{"20240329", Bucket{SchoolTerm, SundayOrHoliday}}, // good friday
		{"20240530", Bucket{SchoolTerm, SundayOrHoliday}}, // corpus christi
		{"20240623", Bucket{Summer, SundayOrHoliday}},
		{"20240815", Bucket{Summer, SundayOrHoliday}},
		{"20240923", Bucket{Summer, Weekday}},
		{"20240924", Bucket{SchoolTerm, Weekday}},
		{"20241220", Bucket{SchoolHoliday, Weekday}},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			assert.Equal(t, tt.bucket, c.Classify(MustParseDateKey(tt.date)))
		})
	}
}

func TestClassifierRejectsOverlappingPeriods(t *testing.T) {
	cfg := DefaultClassifierConfig()
	cfg.SchoolTerms = append(cfg.SchoolTerms, DayRange{
		From: MonthDay{Month: time.September, Day: 20},
		To:   MonthDay{Month: time.September, Day: 30},
	})
	_, err := NewClassifier(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlap")
}

func TestDayRangeWrapsNewYear(t *testing.T) {
	r := DayRange{From: MonthDay{time.December, 20}, To: MonthDay{time.January, 6}}
	assert.True(t, r.Contains(MonthDay{time.December, 31}))
	assert.True(t, r.Contains(MonthDay{time.January, 6}))
	assert.False(t, r.Contains(MonthDay{time.January, 7}))
	assert.False(t, r.Contains(MonthDay{time.December, 19}))
}

func TestEasterSunday(t *testing.T) {
	assert.Equal(t, DateKey(20220417), EasterSunday(2022))
	assert.Equal(t, DateKey(20240331), EasterSunday(2024))
	assert.Equal(t, DateKey(20250420), EasterSunday(2025))
}

func TestParseClassifierConfig(t *testing.T) {
	cfg, err := ParseClassifierConfig([]byte(`
summer:
  - {from: "07-01", to: "08-31"}
school_terms:
  - {from: "09-15", to: "12-15"}
holidays: ["01-01", "12-25"]
holiday_dates: ["20240213"]
`))
	require.NoError(t, err)
	c, err := NewClassifier(cfg)
	require.NoError(t, err)

	assert.Equal(t, Summer, c.Period(MustParseDateKey("20240701")))
	assert.Equal(t, SchoolHoliday, c.Period(MustParseDateKey("20240630")))
	assert.True(t, c.IsHoliday(MustParseDateKey("20240213")))
	assert.False(t, c.IsHoliday(MustParseDateKey("20250213")))
	assert.False(t, c.IsHoliday(MustParseDateKey("20240329")), "easter not enabled")
}

// An exception cell narrows the active bucket to the dates its predicate
// accepts: "1h" means the second Sunday of the month only.
func TestSecondSundayException(t *testing.T) {
	_, _, _, rules := newTestRules(t)

	sundays2024 := 0
	for d := DateKey(20240101); d <= 20241231; d = d.AddDays(1) {
		active, err := rules.IsActive("H2", d)
		require.NoError(t, err)

		secondSunday := d.Weekday() == time.Sunday && d.Day() >= 8 && d.Day() <= 14
		assert.Equal(t, secondSunday, active, d.String())
		if active {
			sundays2024++
		}
	}
	assert.Equal(t, 12, sundays2024)

	// A holiday is bucketed with Sundays but is not itself a Sunday.
	active, err := rules.IsActive("H2", MustParseDateKey("20240815"))
	require.NoError(t, err)
	assert.False(t, active)
}

func TestRuleResolver(t *testing.T) {
	_, _, _, rules := newTestRules(t)

	tests := []struct {
		name    string
		id      string
		date    string
		want    bool
		wantErr error
	}{
		{"every day", "S1", "20240121", true, nil},
		{"weekday on weekday", "WD", "20240115", true, nil},
		{"weekday on saturday", "WD", "20240120", false, nil},
		{"weekday on holiday", "WD", "20241225", false, nil},
		{"summer only in winter", "SUM", "20240115", false, nil},
		{"summer only in summer", "SUM", "20240710", true, nil},
		{"friday exception on friday", "FRI", "20240119", true, nil},
		{"friday exception on monday", "FRI", "20240115", false, nil},
		{"unknown pattern", "ZZ", "20240115", false, ErrUnknownServicePattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rules.IsActive(tt.id, MustParseDateKey(tt.date))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRuleResolverUndefinedException(t *testing.T) {
	matrix, err := ParseMatrix([]byte(`{"X": ["1x","1x","1x","1x","1x","1x","1x","1x","1x"]}`))
	require.NoError(t, err)
	classifier, err := NewClassifier(DefaultClassifierConfig())
	require.NoError(t, err)
	legend, err := ParseLegend([]byte(testLegendJSON))
	require.NoError(t, err)

	_, err = NewRuleResolver(matrix, classifier, legend).IsActive("X", MustParseDateKey("20240115"))
	assert.ErrorIs(t, err, ErrUndefinedException)
	assert.True(t, IsDataError(err))
}

func TestParseLegend(t *testing.T) {
	legend, err := ParseLegend([]byte(testLegendJSON))
	require.NoError(t, err)

	desc, ok := legend.Describe("x")
	assert.True(t, ok)
	assert.Equal(t, "entre 10/6 e 15/9", desc)

	e, ok := legend.Lookup("x")
	require.True(t, ok)
	assert.False(t, e.Evaluable())

	entries := legend.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "f", entries[0].Letter)

	_, err = ParseLegend([]byte(`{"q": {"description": "bad", "when": "weekday +"}}`))
	assert.Error(t, err)
}

func TestPredicateVocabulary(t *testing.T) {
	c, err := NewClassifier(DefaultClassifierConfig())
	require.NoError(t, err)

	tests := []struct {
		when string
		date string
		want bool
	}{
		{`between(6, 10, 9, 15)`, "20240610", true},
		{`between(6, 10, 9, 15)`, "20240916", false},
		{`holiday`, "20241208", true},
		{`summer && weekday == "saturday"`, "20240720", true},
		{`school && !holiday`, "20241011", true},
		{`last && weekday == "friday"`, "20240531", true},
		{`last && weekday == "friday"`, "20240524", false},
		{`nth == 1 && weekday == "sunday"`, "20240707", true},
		{`dayType == "saturday" && period == "summer"`, "20240803", true},
		{`month == 12 && day == 24`, "20241224", true},
	}

	for _, tt := range tests {
		t.Run(tt.when+"@"+tt.date, func(t *testing.T) {
			legend, err := NewLegend(Exception{Letter: "t", When: tt.when})
			require.NoError(t, err)
			e, _ := legend.Lookup("t")
			got, err := e.Matches(FactsFor(MustParseDateKey(tt.date), c))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Every (pattern, date) pair of a shipped index must agree with the rule
// evaluation over the whole covered range.
func TestIndexAgreesWithRules(t *testing.T) {
	matrix, _, _, rules := newTestRules(t)

	built, err := rules.BuildIndex(MustParseDateKey("20240101"), MustParseDateKey("20241231"))
	require.NoError(t, err)
	assert.Equal(t, 366, built.Len())

	encoded, err := json.Marshal(built)
	require.NoError(t, err)
	shipped, err := ParseServiceIndex(encoded)
	require.NoError(t, err)

	assert.Empty(t, CompareIndex(shipped, rules))

	byIndex := NewIndexResolver(matrix, shipped)
	for d := DateKey(20240101); d <= 20241231; d = d.AddDays(1) {
		for _, id := range matrix.IDs() {
			want, err := rules.IsActive(id, d)
			require.NoError(t, err)
			got, err := byIndex.IsActive(id, d)
			require.NoError(t, err)
			require.Equal(t, want, got, "%s %s", id, d)
		}
	}
}

func TestCompareIndexReportsDisagreement(t *testing.T) {
	_, _, _, rules := newTestRules(t)

	ix := NewServiceIndex()
	ix.Add(MustParseDateKey("20240115"), "S1", "WD", "GHOST")

	mismatches := CompareIndex(ix, rules)
	require.Len(t, mismatches, 1)
	assert.Equal(t, "GHOST", mismatches[0].PatternID)
	assert.NotEmpty(t, mismatches[0].Err)

	ix.Add(MustParseDateKey("20240116"), "S1")
	mismatches = CompareIndex(ix, rules)
	require.Len(t, mismatches, 2)
	assert.Equal(t, "WD", mismatches[1].PatternID)
	assert.True(t, mismatches[1].ByRules)
	assert.False(t, mismatches[1].InIndex)
}

func TestIndexResolverValidityWindow(t *testing.T) {
	matrix, _, _, _ := newTestRules(t)
	ix := NewServiceIndex()
	ix.Add(MustParseDateKey("20240201"), "S1")
	ix.Add(MustParseDateKey("20240229"), "S1")
	r := NewIndexResolver(matrix, ix)

	_, err := r.IsActive("S1", MustParseDateKey("20240131"))
	assert.ErrorIs(t, err, ErrNotYetValid)
	assert.ErrorIs(t, err, ErrOutsideValidity)
	assert.False(t, errors.Is(err, ErrNoLongerValid))

	_, err = r.IsActive("S1", MustParseDateKey("20240301"))
	assert.ErrorIs(t, err, ErrNoLongerValid)

	var verr *ValidityError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, DateKey(20240229), verr.To)

	active, err := r.IsActive("S1", MustParseDateKey("20240215"))
	require.NoError(t, err)
	assert.False(t, active, "covered date without entry has no service")

	_, err = r.IsActive("nope", MustParseDateKey("20240215"))
	assert.ErrorIs(t, err, ErrUnknownServicePattern)
}
