// Package calendar decides which service patterns run on a given date, from
// the period by day-type calendar matrix, the date classifier and the
// exception-letter legend, or from a precomputed date index.
package calendar

import (
	"fmt"
	"strings"
)

// Period is one of the three named slices of the year used as the first
// axis of the calendar matrix.
type Period int

const (
	SchoolTerm Period = iota
	SchoolHoliday
	Summer
)

var periodNames = [...]string{"school_term", "school_holiday", "summer"}

func (p Period) String() string {
	if p < 0 || int(p) >= len(periodNames) {
		return fmt.Sprintf("period(%d)", int(p))
	}
	return periodNames[p]
}

func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// ParsePeriod accepts the names produced by Period.String.
func ParsePeriod(s string) (Period, error) {
	for i, name := range periodNames {
		if strings.EqualFold(s, name) {
			return Period(i), nil
		}
	}
	return 0, fmt.Errorf("unknown period %q", s)
}

// DayType is the second axis of the calendar matrix.
type DayType int

const (
	Weekday DayType = iota
	Saturday
	SundayOrHoliday
)

var dayTypeNames = [...]string{"weekday", "saturday", "sunday_or_holiday"}

func (d DayType) String() string {
	if d < 0 || int(d) >= len(dayTypeNames) {
		return fmt.Sprintf("daytype(%d)", int(d))
	}
	return dayTypeNames[d]
}

func (d DayType) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func ParseDayType(s string) (DayType, error) {
	for i, name := range dayTypeNames {
		if strings.EqualFold(s, name) {
			return DayType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown day type %q", s)
}

// BucketCount is the number of (period, day type) combinations.
const BucketCount = 9

// Bucket is a (period, day type) cell of the calendar matrix.
type Bucket struct {
	Period  Period
	DayType DayType
}

// Index returns the position of the bucket inside an activity vector.
func (b Bucket) Index() int {
	return int(b.Period)*3 + int(b.DayType)
}

func (b Bucket) String() string {
	return b.Period.String() + "/" + b.DayType.String()
}

// BucketAt is the inverse of Bucket.Index.
func BucketAt(index int) Bucket {
	return Bucket{Period: Period(index / 3), DayType: DayType(index % 3)}
}

// AllBuckets lists the nine buckets in activity vector order.
func AllBuckets() []Bucket {
	buckets := make([]Bucket, 0, BucketCount)
	for i := 0; i < BucketCount; i++ {
		buckets = append(buckets, BucketAt(i))
	}
	return buckets
}
