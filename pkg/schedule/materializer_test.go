package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/paihu/paihu/pkg/model"
	"github.com/paihu/paihu/pkg/optimizer"
)

var weekStart = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func newTestSnapshot() *optimizer.Snapshot {
	return optimizer.NewSnapshot(uuid.New(), weekStart)
}

func visit(date string, units int, cgID uuid.UUID) *optimizer.VisitAssignment {
	return &optimizer.VisitAssignment{
		Date:        date,
		Units:       units,
		Hours:       model.UnitsToHours(units),
		CaregiverID: cgID,
	}
}

func resultWith(snap *optimizer.Snapshot, customers ...*optimizer.CustomerResult) *optimizer.Result {
	return &optimizer.Result{
		RunID:     uuid.New(),
		OrgID:     snap.OrgID,
		WeekStart: weekStart.Format("2006-01-02"),
		Customers: customers,
	}
}

func TestMaterialize_StacksSameDayVisits(t *testing.T) {
	snap := newTestSnapshot()
	snap.BuildIndexes()
	cgID := uuid.New()

	result := resultWith(snap,
		&optimizer.CustomerResult{
			CustomerID: uuid.New(),
			Visits:     []*optimizer.VisitAssignment{visit("2026-03-02", 8, cgID)},
		},
		&optimizer.CustomerResult{
			CustomerID: uuid.New(),
			Visits:     []*optimizer.VisitAssignment{visit("2026-03-02", 4, cgID)},
		},
	)

	out := NewMaterializer(snap).Materialize(result)
	if len(out.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(out.Rows))
	}
	if len(out.Conflicts) != 0 {
		t.Fatalf("unexpected conflicts: %d", len(out.Conflicts))
	}

	first, second := out.Rows[0], out.Rows[1]
	if got := first.StartTime.Format("15:04"); got != DefaultDayStart {
		t.Errorf("first visit starts at %s, want %s", got, DefaultDayStart)
	}
	if got := first.EndTime.Format("15:04"); got != "10:00" {
		t.Errorf("first visit ends at %s, want 10:00 (8 units)", got)
	}
	if !second.StartTime.Equal(first.EndTime) {
		t.Errorf("second visit should stack right after the first: %s vs %s",
			second.StartTime.Format("15:04"), first.EndTime.Format("15:04"))
	}
	if got := second.EndTime.Format("15:04"); got != "11:00" {
		t.Errorf("second visit ends at %s, want 11:00 (4 units)", got)
	}
}

func TestMaterialize_UsesCaregiverDayStart(t *testing.T) {
	snap := newTestSnapshot()
	cgID := uuid.New()
	snap.Availability = append(snap.Availability, &model.Availability{
		CaregiverID: cgID,
		Status:      "available",
		Days: map[time.Weekday]model.DayAvailability{
			time.Monday: {Available: true, StartTime: "09:30", EndTime: "18:00"},
		},
	})
	snap.BuildIndexes()

	result := resultWith(snap, &optimizer.CustomerResult{
		CustomerID: uuid.New(),
		Visits:     []*optimizer.VisitAssignment{visit("2026-03-02", 4, cgID)},
	})

	out := NewMaterializer(snap).Materialize(result)
	if len(out.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(out.Rows))
	}
	if got := out.Rows[0].StartTime.Format("15:04"); got != "09:30" {
		t.Errorf("visit starts at %s, want the caregiver's 09:30 window start", got)
	}
}

func TestMaterialize_StacksAfterExistingRows(t *testing.T) {
	snap := newTestSnapshot()
	cgID := uuid.New()
	custID := uuid.New()

	// 手工行占 08:00-09:20，新访问应从 09:30 刻钟边界接排
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	snap.ExistingSchedule = append(snap.ExistingSchedule, &model.ScheduleRow{
		BaseModel:   model.NewBaseModel(),
		OrgID:       snap.OrgID,
		CustomerID:  custID,
		CaregiverID: cgID,
		Date:        "2026-03-02",
		StartTime:   day.Add(8 * time.Hour),
		EndTime:     day.Add(9*time.Hour + 20*time.Minute),
		Units:       5,
		Status:      "scheduled",
		GeneratedBy: "manual",
	})
	snap.BuildIndexes()

	result := resultWith(snap, &optimizer.CustomerResult{
		CustomerID: custID,
		Visits:     []*optimizer.VisitAssignment{visit("2026-03-02", 4, cgID)},
	})

	out := NewMaterializer(snap).Materialize(result)
	if len(out.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(out.Rows))
	}
	if got := out.Rows[0].StartTime.Format("15:04"); got != "09:30" {
		t.Errorf("visit starts at %s, want 09:30 after the manual row", got)
	}
	if len(out.Conflicts) != 0 {
		t.Errorf("stacking after existing rows should not conflict, got %d", len(out.Conflicts))
	}
}

func TestMaterialize_SeparateDaysResetCursor(t *testing.T) {
	snap := newTestSnapshot()
	snap.BuildIndexes()
	cgID := uuid.New()

	result := resultWith(snap, &optimizer.CustomerResult{
		CustomerID: uuid.New(),
		Visits: []*optimizer.VisitAssignment{
			visit("2026-03-02", 8, cgID),
			visit("2026-03-03", 8, cgID),
		},
	})

	out := NewMaterializer(snap).Materialize(result)
	if len(out.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(out.Rows))
	}
	for _, row := range out.Rows {
		if got := row.StartTime.Format("15:04"); got != DefaultDayStart {
			t.Errorf("visit on %s starts at %s, want %s", row.Date, got, DefaultDayStart)
		}
	}
}

func TestMaterialize_RowFields(t *testing.T) {
	snap := newTestSnapshot()
	snap.BuildIndexes()
	cgID := uuid.New()
	custID := uuid.New()

	result := resultWith(snap, &optimizer.CustomerResult{
		CustomerID: custID,
		Visits:     []*optimizer.VisitAssignment{visit("2026-03-04", 6, cgID)},
	})

	out := NewMaterializer(snap).Materialize(result)
	row := out.Rows[0]
	if row.OrgID != snap.OrgID || row.CustomerID != custID || row.CaregiverID != cgID {
		t.Error("row identity fields do not match the result")
	}
	if row.GeneratedBy != "system" || row.Status != "scheduled" {
		t.Errorf("row marked %q/%q, want system/scheduled", row.GeneratedBy, row.Status)
	}
	if got := row.EndTime.Sub(row.StartTime); got != 90*time.Minute {
		t.Errorf("row duration = %v, want 90m for 6 units", got)
	}
}

func TestRoundUpQuarter(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"已在边界", base, base},
		{"向上取整", base.Add(7 * time.Minute), base.Add(15 * time.Minute)},
		{"临近下一刻钟", base.Add(14 * time.Minute), base.Add(15 * time.Minute)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := roundUpQuarter(tc.in); !got.Equal(tc.want) {
				t.Errorf("roundUpQuarter(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
