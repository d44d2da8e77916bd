package engine

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE RANGE - Inclusive [Start, End] with a display label
// =============================================================================

// DateRange is an inclusive range of calendar days. Bounds and label are
// separate fields; callers never parse the label to recover the bounds.
type DateRange struct {
	Start Date   `json:"start"`
	End   Date   `json:"end"`
	Label string `json:"label"`
}

// Contains returns true if the date is within [Start, End].
func (r DateRange) Contains(d Date) bool {
	return d.AfterOrEqual(r.Start) && d.BeforeOrEqual(r.End)
}

// Validate rejects ranges that end before they start.
func (r DateRange) Validate() error {
	if r.End.Before(r.Start) {
		return fmt.Errorf("%w: %s > %s", ErrInvalidPeriod, r.Start, r.End)
	}
	return nil
}

// Display renders the bounds for people, e.g. "Jul 1, 2025 – Jun 30, 2026".
func (r DateRange) Display() string {
	return r.Start.Display() + " – " + r.End.Display()
}

func (r DateRange) String() string {
	return "[" + r.Start.String() + ", " + r.End.String() + "]"
}

// =============================================================================
// PRESETS
// =============================================================================

// PeriodPreset names a range relative to a reference date.
type PeriodPreset string

const (
	PresetFiscalYear         PeriodPreset = "fiscal_year"
	PresetPreviousFiscalYear PeriodPreset = "previous_fiscal_year"
	PresetFiscalQuarter      PeriodPreset = "fiscal_quarter"
	PresetPreviousQuarter    PeriodPreset = "previous_quarter"
	PresetFiscalYTD          PeriodPreset = "fiscal_ytd"
	PresetCalendarYear       PeriodPreset = "calendar_year"
)

// Presets lists every preset in display order.
var Presets = []PeriodPreset{
	PresetFiscalYear,
	PresetPreviousFiscalYear,
	PresetFiscalQuarter,
	PresetPreviousQuarter,
	PresetFiscalYTD,
	PresetCalendarYear,
}

// =============================================================================
// FISCAL CALENDAR - Resolves presets for an organization
// =============================================================================

// FiscalCalendar resolves named periods for a fiscal year starting on the
// first day of StartMonth.
//
// Examples:
//   - StartMonth January: FY 2025 = Jan 1 2025 - Dec 31 2025
//   - StartMonth July:    FY 2025-2026 = Jul 1 2025 - Jun 30 2026
type FiscalCalendar struct {
	StartMonth time.Month
}

// NewFiscalCalendar validates the organization's fiscal start month.
func NewFiscalCalendar(startMonth int) (FiscalCalendar, error) {
	if startMonth < 1 || startMonth > 12 {
		return FiscalCalendar{}, fmt.Errorf("%w: got %d", ErrInvalidFiscalMonth, startMonth)
	}
	return FiscalCalendar{StartMonth: time.Month(startMonth)}, nil
}

// fiscalStart is the most recent StartMonth/1 on or before ref.
func (fc FiscalCalendar) fiscalStart(ref Date) Date {
	year := ref.Year()
	if fc.StartMonth > ref.Month() {
		year--
	}
	return NewDate(year, fc.StartMonth, 1)
}

func (fc FiscalCalendar) yearLabel(startYear int) string {
	if fc.StartMonth == time.January {
		return fmt.Sprintf("FY %d", startYear)
	}
	return fmt.Sprintf("FY %d-%d", startYear, startYear+1)
}

// FiscalYearRange returns the fiscal year containing ref. It always spans
// exactly 12 months.
func (fc FiscalCalendar) FiscalYearRange(ref Date) DateRange {
	start := fc.fiscalStart(ref)
	return DateRange{
		Start: start,
		End:   start.AddMonths(11).EndOfMonth(),
		Label: fc.yearLabel(start.Year()),
	}
}

// PreviousFiscalYearRange shifts the current fiscal year back one year.
func (fc FiscalCalendar) PreviousFiscalYearRange(ref Date) DateRange {
	current := fc.FiscalYearRange(ref)
	start := current.Start.AddYears(-1)
	return DateRange{
		Start: start,
		End:   current.End.AddYears(-1).EndOfMonth(),
		Label: fc.yearLabel(start.Year()),
	}
}

// quarter finds the fiscal quarter containing ref by scanning the four
// quarter starts and keeping the last one on or before ref.
func (fc FiscalCalendar) quarter(ref Date) (start Date, number int) {
	fyStart := fc.fiscalStart(ref)
	start, number = fyStart, 1
	for i, offset := range []int{0, 3, 6, 9} {
		candidate := fyStart.AddMonths(offset)
		if candidate.BeforeOrEqual(ref) {
			start, number = candidate, i+1
		}
	}
	return start, number
}

// FiscalQuarterRange returns the 3-month fiscal quarter containing ref.
func (fc FiscalCalendar) FiscalQuarterRange(ref Date) DateRange {
	start, n := fc.quarter(ref)
	return DateRange{
		Start: start,
		End:   start.AddMonths(2).EndOfMonth(),
		Label: fmt.Sprintf("Q%d %s", n, fc.yearLabel(fc.fiscalStart(ref).Year())),
	}
}

// PreviousQuarterRange returns the quarter before the one containing ref.
// The quarter number is recomputed against its own fiscal year, so Q1
// steps back to Q4 of the previous fiscal year.
func (fc FiscalCalendar) PreviousQuarterRange(ref Date) DateRange {
	current, _ := fc.quarter(ref)
	start := current.AddMonths(-3)
	fyStart := fc.fiscalStart(start)
	n := start.MonthsSince(fyStart)/3 + 1
	return DateRange{
		Start: start,
		End:   start.AddMonths(2).EndOfMonth(),
		Label: fmt.Sprintf("Q%d %s", n, fc.yearLabel(fyStart.Year())),
	}
}

// FiscalYTDRange runs from the fiscal year start through ref inclusive.
func (fc FiscalCalendar) FiscalYTDRange(ref Date) DateRange {
	start := fc.fiscalStart(ref)
	return DateRange{
		Start: start,
		End:   ref,
		Label: fmt.Sprintf("YTD (%s)", fc.yearLabel(start.Year())),
	}
}

// CalendarYearRange is Jan 1 - Dec 31 of ref's year.
func (fc FiscalCalendar) CalendarYearRange(ref Date) DateRange {
	return DateRange{
		Start: NewDate(ref.Year(), time.January, 1),
		End:   NewDate(ref.Year(), time.December, 31),
		Label: fmt.Sprintf("CY %d", ref.Year()),
	}
}

// Resolve returns the range for a preset.
func (fc FiscalCalendar) Resolve(preset PeriodPreset, ref Date) (DateRange, error) {
	switch preset {
	case PresetFiscalYear:
		return fc.FiscalYearRange(ref), nil
	case PresetPreviousFiscalYear:
		return fc.PreviousFiscalYearRange(ref), nil
	case PresetFiscalQuarter:
		return fc.FiscalQuarterRange(ref), nil
	case PresetPreviousQuarter:
		return fc.PreviousQuarterRange(ref), nil
	case PresetFiscalYTD:
		return fc.FiscalYTDRange(ref), nil
	case PresetCalendarYear:
		return fc.CalendarYearRange(ref), nil
	default:
		return DateRange{}, fmt.Errorf("%w: %q", ErrInvalidPreset, preset)
	}
}

// NamedRange pairs a preset with its resolved range.
type NamedRange struct {
	Preset PeriodPreset `json:"preset"`
	Range  DateRange    `json:"range"`
}

// All resolves every preset for ref.
func (fc FiscalCalendar) All(ref Date) []NamedRange {
	out := make([]NamedRange, 0, len(Presets))
	for _, p := range Presets {
		r, _ := fc.Resolve(p, ref)
		out = append(out, NamedRange{Preset: p, Range: r})
	}
	return out
}
