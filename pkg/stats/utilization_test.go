package stats

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
)

var statsDay = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func statVisit(cgID, custID uuid.UUID, date string, hours float64) *VisitInfo {
	start := statsDay.Add(8 * time.Hour)
	return &VisitInfo{
		CaregiverID: cgID,
		CustomerID:  custID,
		Date:        date,
		StartTime:   start,
		EndTime:     start.Add(time.Duration(hours * float64(time.Hour))),
	}
}

func TestAnalyze_PerfectBalance(t *testing.T) {
	cg1, cg2 := uuid.New(), uuid.New()
	cust := uuid.New()
	caregivers := []*CaregiverInfo{
		{ID: cg1, Name: "李护理员", WeeklyCap: 40},
		{ID: cg2, Name: "张护理员", WeeklyCap: 40},
	}
	visits := []*VisitInfo{
		statVisit(cg1, cust, "2026-03-02", 4),
		statVisit(cg2, cust, "2026-03-03", 4),
	}

	m := NewBalanceAnalyzer().Analyze(visits, caregivers)

	if m.HoursGini != 0 {
		t.Errorf("HoursGini = %v, want 0 for equal hours", m.HoursGini)
	}
	if m.HoursRange != 0 {
		t.Errorf("HoursRange = %v, want 0", m.HoursRange)
	}
	if m.BalanceScore != 100 {
		t.Errorf("BalanceScore = %v, want 100", m.BalanceScore)
	}
	if m.OverloadedCount != 0 {
		t.Errorf("OverloadedCount = %d, want 0", m.OverloadedCount)
	}
}

func TestAnalyze_UnevenHours(t *testing.T) {
	cg1, cg2 := uuid.New(), uuid.New()
	cust := uuid.New()
	caregivers := []*CaregiverInfo{
		{ID: cg1, Name: "李护理员", WeeklyCap: 40},
		{ID: cg2, Name: "张护理员", WeeklyCap: 40},
	}
	visits := []*VisitInfo{
		statVisit(cg1, cust, "2026-03-02", 6),
		statVisit(cg2, cust, "2026-03-03", 2),
	}

	m := NewBalanceAnalyzer().Analyze(visits, caregivers)

	// 排序后 [2,6]：基尼系数 = 4/16
	if math.Abs(m.HoursGini-0.25) > 1e-9 {
		t.Errorf("HoursGini = %v, want 0.25", m.HoursGini)
	}
	if m.AvgHoursPerCaregiver != 4 {
		t.Errorf("AvgHoursPerCaregiver = %v, want 4", m.AvgHoursPerCaregiver)
	}
	if m.MaxHours != 6 || m.MinHours != 2 {
		t.Errorf("hours range [%v,%v], want [2,6]", m.MinHours, m.MaxHours)
	}
	if m.BalanceScore >= 100 {
		t.Errorf("BalanceScore = %v, should drop below 100 for uneven hours", m.BalanceScore)
	}

	// 工时多者排前
	if len(m.CaregiverStats) != 2 {
		t.Fatalf("expected 2 caregiver stats, got %d", len(m.CaregiverStats))
	}
	if m.CaregiverStats[0].TotalHours != 6 {
		t.Errorf("stats not sorted by hours descending, first has %v", m.CaregiverStats[0].TotalHours)
	}
	if m.CaregiverStats[0].Deviation != 50 {
		t.Errorf("Deviation = %v, want 50 (6h vs 4h avg)", m.CaregiverStats[0].Deviation)
	}
}

func TestAnalyze_Overloaded(t *testing.T) {
	cg := uuid.New()
	cust := uuid.New()
	caregivers := []*CaregiverInfo{{ID: cg, Name: "李护理员", WeeklyCap: 4}}
	visits := []*VisitInfo{statVisit(cg, cust, "2026-03-02", 5)}

	m := NewBalanceAnalyzer().Analyze(visits, caregivers)

	if m.OverloadedCount != 1 {
		t.Errorf("OverloadedCount = %d, want 1", m.OverloadedCount)
	}
	if m.CaregiverStats[0].UtilizationPct != 125 {
		t.Errorf("UtilizationPct = %v, want 125", m.CaregiverStats[0].UtilizationPct)
	}
}

func TestAnalyze_WeekendVisits(t *testing.T) {
	cg := uuid.New()
	cust1, cust2 := uuid.New(), uuid.New()
	caregivers := []*CaregiverInfo{{ID: cg, Name: "李护理员", WeeklyCap: 40}}
	visits := []*VisitInfo{
		statVisit(cg, cust1, "2026-03-06", 2), // 周五
		statVisit(cg, cust2, "2026-03-07", 2), // 周六
		statVisit(cg, cust1, "2026-03-08", 2), // 周日
	}

	m := NewBalanceAnalyzer().Analyze(visits, caregivers)

	if m.CaregiverStats[0].WeekendVisits != 2 {
		t.Errorf("WeekendVisits = %d, want 2", m.CaregiverStats[0].WeekendVisits)
	}
	if m.CaregiverStats[0].VisitCount != 3 {
		t.Errorf("VisitCount = %d, want 3", m.CaregiverStats[0].VisitCount)
	}
	if m.CaregiverStats[0].CustomerCount != 2 {
		t.Errorf("CustomerCount = %d, want 2", m.CaregiverStats[0].CustomerCount)
	}
}

func TestAnalyze_Empty(t *testing.T) {
	m := NewBalanceAnalyzer().Analyze(nil, nil)
	if m.BalanceScore != 100 {
		t.Errorf("BalanceScore = %v, want 100 for empty input", m.BalanceScore)
	}
}

func TestCompareRuns(t *testing.T) {
	cg1, cg2 := uuid.New(), uuid.New()
	cust := uuid.New()
	caregivers := []*CaregiverInfo{
		{ID: cg1, Name: "李护理员", WeeklyCap: 40},
		{ID: cg2, Name: "张护理员", WeeklyCap: 40},
	}
	before := []*VisitInfo{
		statVisit(cg1, cust, "2026-03-02", 7),
		statVisit(cg2, cust, "2026-03-03", 1),
	}
	after := []*VisitInfo{
		statVisit(cg1, cust, "2026-03-02", 4),
		statVisit(cg2, cust, "2026-03-03", 4),
	}

	diff := NewBalanceAnalyzer().CompareRuns(before, after, caregivers)

	if diff["balance_score_diff"] <= 0 {
		t.Errorf("balance_score_diff = %v, rebalancing should improve the score", diff["balance_score_diff"])
	}
	if diff["hours_gini_diff"] >= 0 {
		t.Errorf("hours_gini_diff = %v, rebalancing should lower the gini", diff["hours_gini_diff"])
	}
	if diff["after_balance_score"] != 100 {
		t.Errorf("after_balance_score = %v, want 100 for the even split", diff["after_balance_score"])
	}
}
