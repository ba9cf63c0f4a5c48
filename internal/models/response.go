package models

import (
	"net/http"

	"timetable.intermodal.org/internal/clock"
)

// ResponseVersion is the envelope version of every API response.
const ResponseVersion = 2

// ResponseModel is the envelope shared by every API response.
type ResponseModel struct {
	Code        int    `json:"code"`
	CurrentTime int64  `json:"currentTime"`
	Text        string `json:"text"`
	Version     int    `json:"version"`
	Data        any    `json:"data,omitempty"`
}

// ResponseCurrentTime is the envelope timestamp in Unix milliseconds.
func ResponseCurrentTime(c clock.Clock) int64 {
	return c.Now().UnixMilli()
}

func NewOKResponse(data any, c clock.Clock) ResponseModel {
	return ResponseModel{
		Code:        http.StatusOK,
		CurrentTime: ResponseCurrentTime(c),
		Text:        "OK",
		Version:     ResponseVersion,
		Data:        data,
	}
}

func NewEntryResponse(entry any, c clock.Clock) ResponseModel {
	return NewOKResponse(map[string]any{"entry": entry}, c)
}

func NewListResponse[T any](list []T, c clock.Clock) ResponseModel {
	if list == nil {
		list = []T{}
	}
	return NewOKResponse(map[string]any{"list": list}, c)
}
