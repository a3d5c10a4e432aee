package model

import (
	"testing"
	"time"
)

func TestTimeRangeOverlaps(t *testing.T) {
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	r1 := TimeRange{Start: base, End: base.Add(2 * time.Hour)}

	tests := []struct {
		name  string
		other TimeRange
		want  bool
	}{
		{"部分重叠", TimeRange{Start: base.Add(1 * time.Hour), End: base.Add(3 * time.Hour)}, true},
		{"完全包含", TimeRange{Start: base.Add(30 * time.Minute), End: base.Add(1 * time.Hour)}, true},
		{"首尾相接", TimeRange{Start: base.Add(2 * time.Hour), End: base.Add(3 * time.Hour)}, false},
		{"完全分离", TimeRange{Start: base.Add(5 * time.Hour), End: base.Add(6 * time.Hour)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r1.Overlaps(tt.other); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
			if got := tt.other.Overlaps(r1); got != tt.want {
				t.Errorf("Overlaps() not symmetric: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDistanceMiles(t *testing.T) {
	// 上海人民广场到陆家嘴约3英里出头
	a := Location{Latitude: 31.2304, Longitude: 121.4737}
	b := Location{Latitude: 31.2397, Longitude: 121.4998}

	d := a.DistanceMiles(b)
	if d < 1 || d > 5 {
		t.Errorf("DistanceMiles = %.2f, expected a few miles", d)
	}

	if same := a.DistanceMiles(a); same != 0 {
		t.Errorf("distance to self = %.4f, want 0", same)
	}

	if ab, ba := a.DistanceMiles(b), b.DistanceMiles(a); ab != ba {
		t.Errorf("distance not symmetric: %.4f vs %.4f", ab, ba)
	}
}

func TestUnitsToHours(t *testing.T) {
	tests := []struct {
		units int
		want  float64
	}{
		{0, 0},
		{1, 0.25},
		{4, 1},
		{6, 1.5},
		{160, 40},
	}
	for _, tt := range tests {
		if got := UnitsToHours(tt.units); got != tt.want {
			t.Errorf("UnitsToHours(%d) = %v, want %v", tt.units, got, tt.want)
		}
	}
}

func TestWeekDates(t *testing.T) {
	// 2026-03-02 是周一
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	dates := WeekDates(start)

	if len(dates) != 7 {
		t.Fatalf("WeekDates length = %d, want 7", len(dates))
	}
	if dates[0] != "2026-03-02" {
		t.Errorf("dates[0] = %s, want 2026-03-02", dates[0])
	}
	if dates[6] != "2026-03-08" {
		t.Errorf("dates[6] = %s, want 2026-03-08", dates[6])
	}
}

func TestAvailabilityDefaults(t *testing.T) {
	t.Run("无记录视为全周可排", func(t *testing.T) {
		var a *Availability
		if !a.AvailableOn(time.Monday) {
			t.Error("nil availability should allow any day")
		}
		if a.WeeklyCap() != DefaultMaxHoursPerWeek {
			t.Errorf("WeeklyCap = %v, want %v", a.WeeklyCap(), DefaultMaxHoursPerWeek)
		}
		if a.DayWindowMinutes(time.Monday) != 24*60 {
			t.Errorf("DayWindowMinutes = %d, want full day", a.DayWindowMinutes(time.Monday))
		}
	})

	t.Run("时间窗换算", func(t *testing.T) {
		a := &Availability{
			Days: map[time.Weekday]DayAvailability{
				time.Monday:  {Available: true, StartTime: "08:00", EndTime: "12:00"},
				time.Tuesday: {Available: false},
			},
			MaxHoursPerWeek: 20,
		}
		if got := a.DayWindowMinutes(time.Monday); got != 240 {
			t.Errorf("DayWindowMinutes(Monday) = %d, want 240", got)
		}
		if a.AvailableOn(time.Tuesday) {
			t.Error("Tuesday should be unavailable")
		}
		if a.WeeklyCap() != 20 {
			t.Errorf("WeeklyCap = %v, want 20", a.WeeklyCap())
		}
		if got := a.DayStart(time.Monday, "09:00"); got != "08:00" {
			t.Errorf("DayStart(Monday) = %s, want 08:00", got)
		}
		if got := a.DayStart(time.Wednesday, "09:00"); got != "09:00" {
			t.Errorf("DayStart(Wednesday) = %s, want fallback 09:00", got)
		}
	})
}

func TestBlackoutCovers(t *testing.T) {
	b := &BlackoutDate{StartDate: "2026-03-03", EndDate: "2026-03-05"}

	if !b.Covers("2026-03-03") || !b.Covers("2026-03-05") {
		t.Error("blackout should cover both endpoints")
	}
	if !b.Covers("2026-03-04") {
		t.Error("blackout should cover interior date")
	}
	if b.Covers("2026-03-02") || b.Covers("2026-03-06") {
		t.Error("blackout should not cover dates outside the range")
	}
}

func TestNeedPriorityPoints(t *testing.T) {
	if PriorityCritical.Points() != 20 || PriorityHigh.Points() != 12 ||
		PriorityNormal.Points() != 6 || PriorityLow.Points() != 3 {
		t.Error("priority points mismatch")
	}
	if NeedPriority("whatever").Points() != 6 {
		t.Error("unknown priority should fall back to normal points")
	}
}

func TestProficiencyMultiplier(t *testing.T) {
	if TierBasic.Multiplier() != 1.0 || TierExperienced.Multiplier() != 1.2 || TierSpecialized.Multiplier() != 1.5 {
		t.Error("tier multiplier mismatch")
	}
}
