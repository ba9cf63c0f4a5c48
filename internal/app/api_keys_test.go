package app

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"timetable.intermodal.org/internal/appconf"
)

func TestIsInvalidAPIKey(t *testing.T) {
	app := &Application{Config: appconf.Config{ApiKeys: []string{"TEST", "other"}}}

	tests := []struct {
		key     string
		invalid bool
	}{
		{"TEST", false},
		{"other", false},
		{"", true},
		{"test", true},
		{"TEST ", true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.invalid, app.IsInvalidAPIKey(tt.key))
		})
	}

	r := httptest.NewRequest("GET", "/api/current-time?key=TEST", nil)
	assert.False(t, app.RequestHasInvalidAPIKey(r))
}

func TestLocationDefaultsToLocal(t *testing.T) {
	app := &Application{}
	assert.Equal(t, "Local", app.Location().String())
}
