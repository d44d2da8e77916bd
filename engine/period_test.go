package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func calendar(t *testing.T, month int) FiscalCalendar {
	t.Helper()
	fc, err := NewFiscalCalendar(month)
	require.NoError(t, err)
	return fc
}

func TestNewFiscalCalendar_RejectsBadMonth(t *testing.T) {
	for _, m := range []int{0, 13, -1} {
		_, err := NewFiscalCalendar(m)
		assert.ErrorIs(t, err, ErrInvalidFiscalMonth)
	}
}

func TestFiscalYearRange(t *testing.T) {
	tests := []struct {
		name       string
		startMonth int
		ref        string
		wantStart  string
		wantEnd    string
		wantLabel  string
	}{
		{"calendar fiscal year", 1, "2025-05-20", "2025-01-01", "2025-12-31", "FY 2025"},
		{"july, after start", 7, "2025-09-15", "2025-07-01", "2026-06-30", "FY 2025-2026"},
		{"july, before start", 7, "2025-03-15", "2024-07-01", "2025-06-30", "FY 2024-2025"},
		{"july, first day", 7, "2025-07-01", "2025-07-01", "2026-06-30", "FY 2025-2026"},
		{"march ends in leap february", 3, "2023-06-01", "2023-03-01", "2024-02-29", "FY 2023-2024"},
		{"october, december ref", 10, "2025-12-31", "2025-10-01", "2026-09-30", "FY 2025-2026"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := calendar(t, tt.startMonth).FiscalYearRange(date(tt.ref))
			assert.Equal(t, tt.wantStart, r.Start.String())
			assert.Equal(t, tt.wantEnd, r.End.String())
			assert.Equal(t, tt.wantLabel, r.Label)
		})
	}
}

func TestFiscalYearRange_ContainsRefAndSpansTwelveMonths(t *testing.T) {
	refs := []string{"2024-01-01", "2024-02-29", "2024-06-30", "2024-07-01", "2024-12-31", "2025-03-31"}

	for month := 1; month <= 12; month++ {
		fc := calendar(t, month)
		for _, ref := range refs {
			t.Run(fmt.Sprintf("m%02d/%s", month, ref), func(t *testing.T) {
				r := fc.FiscalYearRange(date(ref))
				assert.True(t, r.Contains(date(ref)))
				assert.Equal(t, 1, r.Start.Day())
				assert.True(t, r.End.NextDay().Equal(r.Start.AddMonths(12)))
			})
		}
	}
}

func TestPreviousFiscalYearRange(t *testing.T) {
	// GIVEN: A March fiscal year whose previous year ends in a leap February
	fc := calendar(t, 3)

	// WHEN: Resolving the previous fiscal year from mid 2024
	r := fc.PreviousFiscalYearRange(date("2024-06-01"))

	// THEN: It is the full prior year, ending Feb 29
	assert.Equal(t, "2023-03-01", r.Start.String())
	assert.Equal(t, "2024-02-29", r.End.String())
	assert.Equal(t, "FY 2023-2024", r.Label)

	r = calendar(t, 7).PreviousFiscalYearRange(date("2025-09-15"))
	assert.Equal(t, "2024-07-01", r.Start.String())
	assert.Equal(t, "2025-06-30", r.End.String())
}

func TestFiscalQuarterRange(t *testing.T) {
	fc := calendar(t, 7)

	tests := []struct {
		ref, start, end, label string
	}{
		{"2025-08-15", "2025-07-01", "2025-09-30", "Q1 FY 2025-2026"},
		{"2025-10-01", "2025-10-01", "2025-12-31", "Q2 FY 2025-2026"},
		{"2026-02-10", "2026-01-01", "2026-03-31", "Q3 FY 2025-2026"},
		{"2026-06-30", "2026-04-01", "2026-06-30", "Q4 FY 2025-2026"},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			r := fc.FiscalQuarterRange(date(tt.ref))
			assert.Equal(t, tt.start, r.Start.String())
			assert.Equal(t, tt.end, r.End.String())
			assert.Equal(t, tt.label, r.Label)
			assert.True(t, r.Contains(date(tt.ref)))
		})
	}
}

func TestPreviousQuarterRange_CrossesFiscalYear(t *testing.T) {
	// GIVEN: A reference date in Q1 of FY 2025-2026
	fc := calendar(t, 7)

	// WHEN: Asking for the previous quarter
	r := fc.PreviousQuarterRange(date("2025-08-15"))

	// THEN: It is Q4 of the previous fiscal year
	assert.Equal(t, "2025-04-01", r.Start.String())
	assert.Equal(t, "2025-06-30", r.End.String())
	assert.Equal(t, "Q4 FY 2024-2025", r.Label)

	r = fc.PreviousQuarterRange(date("2026-02-10"))
	assert.Equal(t, "Q2 FY 2025-2026", r.Label)
}

func TestFiscalYTDRange(t *testing.T) {
	r := calendar(t, 7).FiscalYTDRange(date("2026-03-15"))

	assert.Equal(t, "2025-07-01", r.Start.String())
	assert.Equal(t, "2026-03-15", r.End.String())
	assert.Equal(t, "YTD (FY 2025-2026)", r.Label)
	assert.True(t, r.Contains(date("2026-03-15")))
}

func TestCalendarYearRange_IgnoresFiscalStart(t *testing.T) {
	r := calendar(t, 7).CalendarYearRange(date("2025-08-15"))

	assert.Equal(t, "2025-01-01", r.Start.String())
	assert.Equal(t, "2025-12-31", r.End.String())
	assert.Equal(t, "CY 2025", r.Label)
}

func TestResolve(t *testing.T) {
	fc := calendar(t, 7)
	ref := date("2025-08-15")

	for _, p := range Presets {
		r, err := fc.Resolve(p, ref)
		require.NoError(t, err, p)
		assert.NoError(t, r.Validate(), p)
		assert.NotEmpty(t, r.Label, p)
	}

	_, err := fc.Resolve("fortnight", ref)
	assert.ErrorIs(t, err, ErrInvalidPreset)
	assert.True(t, IsClientError(err))

	all := fc.All(ref)
	require.Len(t, all, len(Presets))
	assert.Equal(t, PresetCalendarYear, all[len(all)-1].Preset)
}

func TestDateRange_ContainsIsInclusive(t *testing.T) {
	r := DateRange{Start: date("2025-07-01"), End: date("2025-07-31")}

	assert.True(t, r.Contains(date("2025-07-01")))
	assert.True(t, r.Contains(date("2025-07-31")))
	assert.False(t, r.Contains(date("2025-08-01")))
	assert.False(t, r.Contains(date("2025-06-30")))
	assert.Equal(t, "Jul 1, 2025 – Jul 31, 2025", r.Display())

	bad := DateRange{Start: date("2025-08-01"), End: date("2025-07-01")}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidPeriod)
}
