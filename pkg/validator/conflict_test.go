package validator

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paihu/paihu/pkg/model"
)

func makeRow(caregiverID uuid.UUID, date string, start, end time.Time) *model.ScheduleRow {
	return &model.ScheduleRow{
		BaseModel:   model.BaseModel{ID: uuid.New()},
		CaregiverID: caregiverID,
		Date:        date,
		StartTime:   start,
		EndTime:     end,
		Status:      "scheduled",
		GeneratedBy: "system",
	}
}

func TestConflictDetector_DetectAll(t *testing.T) {
	detector := NewConflictDetector(DefaultDetectorConfig())

	day1 := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	cg1 := uuid.New()

	rows := []*model.ScheduleRow{
		makeRow(cg1, "2026-03-02", day1, day1.Add(2*time.Hour)),
		makeRow(cg1, "2026-03-03", day2, day2.Add(2*time.Hour)),
	}

	conflicts := detector.DetectAll(rows, nil)

	// 正常排班不应有冲突
	if len(conflicts) != 0 {
		t.Errorf("Expected 0 conflicts, got %d", len(conflicts))
		for _, c := range conflicts {
			t.Logf("Conflict: %s", c.Message)
		}
	}
}

func TestConflictDetector_DetectOverlap(t *testing.T) {
	detector := NewConflictDetector(DefaultDetectorConfig())

	day := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	cg1 := uuid.New()

	rows := []*model.ScheduleRow{
		makeRow(cg1, "2026-03-02", day, day.Add(2*time.Hour)),
		makeRow(cg1, "2026-03-02", day.Add(time.Hour), day.Add(3*time.Hour)),
	}

	conflicts := detector.DetectAll(rows, nil)

	found := false
	for _, c := range conflicts {
		if c.Type == ConflictOverlap {
			found = true
			if c.CaregiverID != cg1 {
				t.Errorf("Expected caregiver %s, got %s", cg1, c.CaregiverID)
			}
		}
	}
	if !found {
		t.Error("Expected overlap conflict")
	}
}

func TestConflictDetector_DayHours(t *testing.T) {
	detector := NewConflictDetector(&DetectorConfig{MaxHoursPerDay: 4})

	day := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	cg1 := uuid.New()

	// 当日共6小时，超过4小时限制
	rows := []*model.ScheduleRow{
		makeRow(cg1, "2026-03-02", day, day.Add(3*time.Hour)),
		makeRow(cg1, "2026-03-02", day.Add(4*time.Hour), day.Add(7*time.Hour)),
	}

	conflicts := detector.DetectAll(rows, nil)

	found := false
	for _, c := range conflicts {
		if c.Type == ConflictDayHours {
			found = true
		}
	}
	if !found {
		t.Error("Expected day hours conflict")
	}
}

func TestConflictDetector_WeekHours(t *testing.T) {
	detector := NewConflictDetector(DefaultDetectorConfig())

	cg1 := uuid.New()
	availability := map[uuid.UUID]*model.Availability{
		cg1: {CaregiverID: cg1, MaxHoursPerWeek: 10},
	}

	// 每天4小时×3天=12小时，超过10小时周上限
	var rows []*model.ScheduleRow
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		day := base.Add(time.Duration(i) * 24 * time.Hour)
		rows = append(rows, makeRow(cg1, day.Format("2006-01-02"), day, day.Add(4*time.Hour)))
	}

	conflicts := detector.DetectAll(rows, availability)

	found := false
	for _, c := range conflicts {
		if c.Type == ConflictWeekHours {
			found = true
		}
	}
	if !found {
		t.Error("Expected week hours conflict")
	}
}

func TestConflictDetector_DetectForRow(t *testing.T) {
	detector := NewConflictDetector(DefaultDetectorConfig())

	day := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	cg1 := uuid.New()

	existing := []*model.ScheduleRow{
		makeRow(cg1, "2026-03-02", day, day.Add(2*time.Hour)),
	}

	// 与现有行重叠
	newRow := makeRow(cg1, "2026-03-02", day.Add(time.Hour), day.Add(3*time.Hour))
	conflicts := detector.DetectForRow(newRow, existing)

	if len(conflicts) == 0 {
		t.Fatal("Expected at least one conflict")
	}
	if conflicts[0].Type != ConflictOverlap {
		t.Errorf("Expected overlap conflict, got %s", conflicts[0].Type)
	}

	// 不重叠的行不应报冲突
	newRow2 := makeRow(cg1, "2026-03-02", day.Add(3*time.Hour), day.Add(4*time.Hour))
	conflicts2 := detector.DetectForRow(newRow2, existing)
	if len(conflicts2) != 0 {
		t.Errorf("Expected 0 conflicts, got %d", len(conflicts2))
	}

	// 其他护理员的行不参与检测
	newRow3 := makeRow(uuid.New(), "2026-03-02", day, day.Add(2*time.Hour))
	conflicts3 := detector.DetectForRow(newRow3, existing)
	if len(conflicts3) != 0 {
		t.Errorf("Expected 0 conflicts for different caregiver, got %d", len(conflicts3))
	}
}
