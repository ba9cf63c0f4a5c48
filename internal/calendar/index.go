package calendar

import (
	"encoding/json"
	"fmt"
	"slices"
)

// ServiceIndex is the precomputed date_service_ids table: the set of active
// service patterns for every covered date.
type ServiceIndex struct {
	dates map[DateKey]map[string]struct{}
	first DateKey
	last  DateKey
}

func NewServiceIndex() *ServiceIndex {
	return &ServiceIndex{dates: make(map[DateKey]map[string]struct{})}
}

// Add marks patterns as active on date. Calling it with no ids still extends
// the covered range to include the date.
func (ix *ServiceIndex) Add(date DateKey, ids ...string) {
	set, ok := ix.dates[date]
	if !ok {
		set = make(map[string]struct{}, len(ids))
		ix.dates[date] = set
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	if ix.first == 0 || date < ix.first {
		ix.first = date
	}
	if date > ix.last {
		ix.last = date
	}
}

// ParseServiceIndex decodes an object mapping "YYYYMMDD" to pattern ids.
func ParseServiceIndex(data []byte) (*ServiceIndex, error) {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse service index: %w", err)
	}
	ix := NewServiceIndex()
	for key, ids := range raw {
		date, err := ParseDateKey(key)
		if err != nil {
			return nil, fmt.Errorf("service index: %w", err)
		}
		ix.Add(date, ids...)
	}
	return ix, nil
}

func (ix *ServiceIndex) MarshalJSON() ([]byte, error) {
	out := make(map[string][]string, len(ix.dates))
	for date := range ix.dates {
		out[date.String()] = ix.Patterns(date)
	}
	return json.Marshal(out)
}

func (ix *ServiceIndex) Contains(date DateKey, id string) bool {
	_, ok := ix.dates[date][id]
	return ok
}

// Patterns returns the sorted pattern ids active on date.
func (ix *ServiceIndex) Patterns(date DateKey) []string {
	set := ix.dates[date]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Dates returns every date that has an entry, in order.
func (ix *ServiceIndex) Dates() []DateKey {
	dates := make([]DateKey, 0, len(ix.dates))
	for d := range ix.dates {
		dates = append(dates, d)
	}
	slices.Sort(dates)
	return dates
}

// Window is the range of dates the index covers.
func (ix *ServiceIndex) Window() Window {
	return Window{From: ix.first, To: ix.last}
}

func (ix *ServiceIndex) Len() int {
	return len(ix.dates)
}
