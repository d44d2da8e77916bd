package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_NextDay(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"2025-01-31", "2025-02-01"},
		{"2024-02-28", "2024-02-29"},
		{"2025-02-28", "2025-03-01"},
		{"2025-12-31", "2026-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, date(tt.in).NextDay().String())
		})
	}
}

func TestDate_AddMonthsClampsDay(t *testing.T) {
	assert.Equal(t, "2025-02-28", date("2025-01-31").AddMonths(1).String())
	assert.Equal(t, "2024-02-29", date("2024-01-31").AddMonths(1).String())
	assert.Equal(t, "2024-11-30", date("2025-05-31").AddMonths(-6).String())
	assert.Equal(t, "2024-02-29", date("2025-02-28").AddYears(-1).EndOfMonth().String())
}

func TestDate_DateOfDropsTimeOfDay(t *testing.T) {
	// GIVEN: 23:30 in UTC-5 is already the next day in UTC
	loc := time.FixedZone("EST", -5*3600)
	ts := time.Date(2025, 3, 1, 23, 30, 0, 0, loc)

	// WHEN: Converting
	got := DateOf(ts)

	// THEN: The calendar day of the input location is kept
	assert.Equal(t, "2025-03-01", got.String())
	assert.True(t, got.Time().Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestParseDate_Invalid(t *testing.T) {
	for _, in := range []string{"", "2025-13-01", "03/01/2025", "2025-02-30"} {
		_, err := ParseDate(in)
		assert.ErrorIs(t, err, ErrInvalidDate, in)
	}
}

func TestDate_JSON(t *testing.T) {
	type wrapper struct {
		On   Date `json:"on"`
		Zero Date `json:"zero"`
	}

	b, err := json.Marshal(wrapper{On: date("2025-07-01")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"on":"2025-07-01","zero":null}`, string(b))

	var back wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"on":"2026-06-30","zero":null}`), &back))
	assert.Equal(t, "2026-06-30", back.On.String())
	assert.True(t, back.Zero.IsZero())
}

func TestDate_Scan(t *testing.T) {
	var fromString, fromTime Date
	require.NoError(t, fromString.Scan("2025-09-10"))
	require.NoError(t, fromTime.Scan(time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)))

	assert.True(t, fromString.Equal(fromTime))
	assert.Error(t, new(Date).Scan(42))
}
