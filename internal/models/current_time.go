package models

import "time"

type CurrentTimeData struct {
	Time         int64  `json:"time"`
	ReadableTime string `json:"readableTime"`
	ServiceDate  string `json:"serviceDate"`
	Minutes      int    `json:"minutes"`
}

// NewCurrentTimeData reports now both as an instant and as the local
// service-day reading the timetable queries use.
func NewCurrentTimeData(now time.Time) CurrentTimeData {
	return CurrentTimeData{
		Time:         now.UnixMilli(),
		ReadableTime: now.Format(time.RFC3339),
		ServiceDate:  now.Format("20060102"),
		Minutes:      now.Hour()*60 + now.Minute(),
	}
}
