package optimizer

import (
	"context"
	"testing"

	"github.com/paihu/paihu/pkg/model"
)

func TestEngine_SimpleFill(t *testing.T) {
	b := newSnapBuilder()
	b.addCustomer("王奶奶", 20, weekdays(), 5)
	cg := b.addCaregiver("李护理员")
	b.addAvailability(cg, 40)
	snap := b.build()

	result, err := NewEngine(snap, DefaultOptions()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Summary.TotalSlots != 5 {
		t.Errorf("TotalSlots = %d, want 5", result.Summary.TotalSlots)
	}
	if result.Summary.FilledSlots != 5 {
		t.Errorf("FilledSlots = %d, want 5", result.Summary.FilledSlots)
	}
	if result.Summary.CoveragePercent != 100 {
		t.Errorf("CoveragePercent = %v, want 100", result.Summary.CoveragePercent)
	}
	if len(result.Customers) != 1 {
		t.Fatalf("expected 1 customer result, got %d", len(result.Customers))
	}

	cr := result.Customers[0]
	if !cr.FullyFilled() {
		t.Error("customer should be fully filled")
	}
	for _, v := range cr.Visits {
		if v.CaregiverID != cg.ID {
			t.Errorf("visit on %s assigned to unexpected caregiver", v.Date)
		}
		if v.Units != 4 {
			t.Errorf("visit on %s has %d units, want 4", v.Date, v.Units)
		}
	}
}

func TestEngine_CapacityOverflow(t *testing.T) {
	b := newSnapBuilder()
	// 两位客户各需30小时，一位护理员40小时封顶
	b.addCustomer("王奶奶", 120, weekdays(), 5)
	b.addCustomer("赵爷爷", 120, weekdays(), 5)
	cg := b.addCaregiver("李护理员")
	b.addAvailability(cg, 40)
	snap := b.build()

	result, err := NewEngine(snap, DefaultOptions()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Summary.TotalHoursNeeded != 60 {
		t.Errorf("TotalHoursNeeded = %v, want 60", result.Summary.TotalHoursNeeded)
	}
	if result.Summary.TotalHoursAssigned > 40 {
		t.Errorf("TotalHoursAssigned = %v, exceeds the 40h cap", result.Summary.TotalHoursAssigned)
	}
	if result.Summary.TotalHoursAssigned == 0 {
		t.Error("expected some hours assigned before hitting the cap")
	}

	var unfilled []*UnfilledSlot
	for _, cr := range result.Customers {
		unfilled = append(unfilled, cr.Unfilled...)
	}
	if len(unfilled) == 0 {
		t.Fatal("expected unfilled slots when demand exceeds capacity")
	}
	for _, u := range unfilled {
		if u.Reason != "护理员已满负荷" {
			t.Errorf("unfilled reason = %q, want 护理员已满负荷", u.Reason)
		}
	}
}

func TestEngine_Determinism(t *testing.T) {
	b := newSnapBuilder()
	c1 := b.addCustomer("王奶奶", 40, weekdays(), 4)
	c2 := b.addCustomer("赵爷爷", 28, weekdays(), 3)
	cg1 := b.addCaregiver("李护理员")
	cg2 := b.addCaregiver("张护理员")
	cap1 := b.addCapability("基础生活照料")
	cap2 := b.addCapability("康复训练")
	b.addNeed(c1, cap1, model.PriorityCritical)
	b.addNeed(c2, cap2, model.PriorityHigh)
	b.addSkill(cg1, cap1, model.TierSpecialized)
	b.addSkill(cg2, cap2, model.TierExperienced)
	b.addAvailability(cg1, 40)
	b.addAvailability(cg2, 40)
	snap := b.build()

	r1, err := NewEngine(snap, DefaultOptions()).Run(context.Background())
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	r2, err := NewEngine(snap, DefaultOptions()).Run(context.Background())
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	if r1.Summary.TotalScore != r2.Summary.TotalScore {
		t.Errorf("TotalScore differs across runs: %v vs %v", r1.Summary.TotalScore, r2.Summary.TotalScore)
	}
	if r1.Summary.FilledSlots != r2.Summary.FilledSlots {
		t.Errorf("FilledSlots differs across runs: %d vs %d", r1.Summary.FilledSlots, r2.Summary.FilledSlots)
	}
	if len(r1.Customers) != len(r2.Customers) {
		t.Fatalf("customer count differs: %d vs %d", len(r1.Customers), len(r2.Customers))
	}
	for i := range r1.Customers {
		v1, v2 := r1.Customers[i].Visits, r2.Customers[i].Visits
		if len(v1) != len(v2) {
			t.Fatalf("visit count differs for %s", r1.Customers[i].CustomerName)
		}
		for j := range v1 {
			if v1[j].CaregiverID != v2[j].CaregiverID || v1[j].Date != v2[j].Date {
				t.Errorf("visit %d for %s differs across runs", j, r1.Customers[i].CustomerName)
			}
		}
	}
}

func TestEngine_SwapImprovesOrHolds(t *testing.T) {
	b := newSnapBuilder()
	c1 := b.addCustomer("王奶奶", 40, weekdays(), 5)
	c2 := b.addCustomer("赵爷爷", 40, weekdays(), 5)
	cg1 := b.addCaregiver("李护理员")
	cg2 := b.addCaregiver("张护理员")
	cap1 := b.addCapability("排泄护理")
	cap2 := b.addCapability("健康监测")
	b.addNeed(c1, cap1, model.PriorityCritical)
	b.addNeed(c2, cap2, model.PriorityCritical)
	// 技能交叉：每位护理员只擅长其中一位客户
	b.addSkill(cg1, cap2, model.TierSpecialized)
	b.addSkill(cg2, cap1, model.TierSpecialized)
	b.addAvailability(cg1, 40)
	b.addAvailability(cg2, 40)
	snap := b.build()

	noSwap := NewEngine(snap, DefaultOptions())
	noSwap.SetMaxSwapPasses(0)
	base, err := noSwap.Run(context.Background())
	if err != nil {
		t.Fatalf("Run without swap passes failed: %v", err)
	}

	improved, err := NewEngine(snap, DefaultOptions()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run with swap passes failed: %v", err)
	}

	if improved.Summary.TotalScore < base.Summary.TotalScore {
		t.Errorf("swap loop degraded score: %v < %v", improved.Summary.TotalScore, base.Summary.TotalScore)
	}
	if improved.Summary.SwapIterations > DefaultMaxSwapPasses {
		t.Errorf("SwapIterations = %d, exceeds pass limit", improved.Summary.SwapIterations)
	}
}

func TestEngine_ExclusionRespected(t *testing.T) {
	b := newSnapBuilder()
	c := b.addCustomer("王奶奶", 20, weekdays(), 5)
	cg := b.addCaregiver("李护理员")
	b.addAvailability(cg, 40)
	b.addRestriction(c, cg, model.RestrictionExcluded)
	snap := b.build()

	result, err := NewEngine(snap, DefaultOptions()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Summary.FilledSlots != 0 {
		t.Errorf("FilledSlots = %d, want 0 with the only caregiver excluded", result.Summary.FilledSlots)
	}
	for _, cr := range result.Customers {
		for _, u := range cr.Unfilled {
			if u.Reason != "已排除" {
				t.Errorf("unfilled reason = %q, want 已排除", u.Reason)
			}
		}
	}
}

func TestEngine_LockedRespected(t *testing.T) {
	b := newSnapBuilder()
	c := b.addCustomer("王奶奶", 20, weekdays(), 5)
	locked := b.addCaregiver("李护理员")
	other := b.addCaregiver("张护理员")
	b.addAvailability(locked, 40)
	b.addAvailability(other, 40)
	b.addRestriction(c, locked, model.RestrictionLocked)
	snap := b.build()

	result, err := NewEngine(snap, DefaultOptions()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Summary.FilledSlots != 5 {
		t.Fatalf("FilledSlots = %d, want 5", result.Summary.FilledSlots)
	}
	for _, cr := range result.Customers {
		for _, v := range cr.Visits {
			if v.CaregiverID == other.ID {
				t.Errorf("visit on %s assigned outside the locked set", v.Date)
			}
			if v.CaregiverID != locked.ID {
				t.Errorf("visit on %s not assigned to the locked caregiver", v.Date)
			}
		}
	}
}

func TestEngine_EmptySnapshot(t *testing.T) {
	b := newSnapBuilder()
	b.addCaregiver("李护理员")
	snap := b.build()

	result, err := NewEngine(snap, DefaultOptions()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Summary.TotalSlots != 0 {
		t.Errorf("TotalSlots = %d, want 0", result.Summary.TotalSlots)
	}
	if result.Summary.CoveragePercent != 100 {
		t.Errorf("CoveragePercent = %v, want 100 for the degenerate case", result.Summary.CoveragePercent)
	}
	if result.Summary.SlotFillPercent != 100 {
		t.Errorf("SlotFillPercent = %v, want 100 for the degenerate case", result.Summary.SlotFillPercent)
	}
}

func TestEngine_CancelledContext(t *testing.T) {
	b := newSnapBuilder()
	b.addCustomer("王奶奶", 20, weekdays(), 5)
	cg := b.addCaregiver("李护理员")
	b.addAvailability(cg, 40)
	snap := b.build()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := NewEngine(snap, DefaultOptions()).Run(ctx)
	if err == nil {
		t.Fatal("expected context error from cancelled run")
	}
	if result == nil {
		t.Fatal("cancelled run should still return the partial result")
	}
	if result.Summary.SwapIterations != 0 {
		t.Errorf("SwapIterations = %d, want 0 when cancelled before the swap loop", result.Summary.SwapIterations)
	}
}

func TestEngine_SeededCapacityInOptimizeExisting(t *testing.T) {
	b := newSnapBuilder()
	c := b.addCustomer("王奶奶", 20, weekdays(), 5)
	cg := b.addCaregiver("李护理员")
	b.addAvailability(cg, 5)
	// 手工排班已占4小时，仅剩1小时给新分配
	b.addExistingRow(c, cg, "2026-03-02", "08:00", "12:00", "manual")
	snap := b.build()

	opts := DefaultOptions()
	opts.Mode = model.ModeOptimizeExisting
	result, err := NewEngine(snap, opts).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Summary.TotalHoursAssigned > 1 {
		t.Errorf("TotalHoursAssigned = %v, manual schedule should leave only 1h of capacity",
			result.Summary.TotalHoursAssigned)
	}

	fresh, err := NewEngine(snap, DefaultOptions()).Run(context.Background())
	if err != nil {
		t.Fatalf("fresh Run failed: %v", err)
	}
	if fresh.Summary.TotalHoursAssigned != 5 {
		t.Errorf("generate_fresh TotalHoursAssigned = %v, want full 5h", fresh.Summary.TotalHoursAssigned)
	}
}

// 保证工时均衡选项会把负载从接近满负荷的护理员移开
func TestEngine_BalancePenaltyAffectsChoice(t *testing.T) {
	b := newSnapBuilder()
	b.addCustomer("王奶奶", 140, weekdays(), 5)
	cg1 := b.addCaregiver("李护理员")
	cg2 := b.addCaregiver("张护理员")
	b.addAvailability(cg1, 40)
	b.addAvailability(cg2, 40)
	snap := b.build()

	result, err := NewEngine(snap, DefaultOptions()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var used int
	for _, u := range result.Utilization {
		if u.HoursAssigned > 0 {
			used++
		}
	}
	if used < 2 {
		t.Errorf("balance option should spread 35h across both caregivers, only %d used", used)
	}
}
