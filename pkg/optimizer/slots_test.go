package optimizer

import (
	"math/rand"
	"testing"
	"time"

	"github.com/paihu/paihu/pkg/model"
)

func TestGenerateSlots_UnitConservation(t *testing.T) {
	dates := model.WeekDates(testWeekStart)
	rng := rand.New(rand.NewSource(42))

	allDays := []time.Weekday{
		time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
		time.Thursday, time.Friday, time.Saturday,
	}

	// 随机客户配置下单元数必须守恒
	for i := 0; i < 500; i++ {
		dayCount := 1 + rng.Intn(7)
		perm := rng.Perm(7)
		days := make([]time.Weekday, dayCount)
		for j := 0; j < dayCount; j++ {
			days[j] = allDays[perm[j]]
		}

		b := newSnapBuilder()
		c := b.addCustomer("客户", 1+rng.Intn(280), days, 1+rng.Intn(7))

		slots := GenerateSlots(c, dates)

		total := 0
		for _, s := range slots {
			total += s.Units
			if !c.AllowsDay(s.Day) {
				t.Fatalf("slot on disallowed day %v (allowed %v)", s.Day, days)
			}
		}
		if total != c.WeeklyUnits {
			t.Fatalf("units not conserved: got %d, want %d (days=%v target=%d)",
				total, c.WeeklyUnits, days, c.TargetDaysPerWeek)
		}
	}
}

func TestGenerateSlots_MinimumVisitSize(t *testing.T) {
	dates := model.WeekDates(testWeekStart)

	b := newSnapBuilder()
	// 3单元分5天会低于每次30分钟，应缩减上门天数
	c := b.addCustomer("张阿姨", 3, weekdays(), 5)

	slots := GenerateSlots(c, dates)
	if len(slots) == 0 {
		t.Fatal("expected slots")
	}
	for _, s := range slots {
		if s.Units < 2 && len(slots) > 1 {
			t.Errorf("slot below minimum visit size: %d units across %d slots", s.Units, len(slots))
		}
	}

	total := 0
	for _, s := range slots {
		total += s.Units
	}
	if total != 3 {
		t.Errorf("total units = %d, want 3", total)
	}
}

func TestGenerateSlots_EvenDistribution(t *testing.T) {
	dates := model.WeekDates(testWeekStart)

	b := newSnapBuilder()
	// 20单元4天：每天5单元
	c := b.addCustomer("李大爷", 20, weekdays(), 4)

	slots := GenerateSlots(c, dates)
	if len(slots) != 4 {
		t.Fatalf("slot count = %d, want 4", len(slots))
	}
	for _, s := range slots {
		if s.Units != 5 {
			t.Errorf("slot units = %d, want 5", s.Units)
		}
	}
}

func TestGenerateSlots_RemainderFirstDays(t *testing.T) {
	dates := model.WeekDates(testWeekStart)

	b := newSnapBuilder()
	// 11单元3天：4/4/3，余数加在前面的日期上
	c := b.addCustomer("王奶奶", 11, weekdays(), 3)

	slots := GenerateSlots(c, dates)
	if len(slots) != 3 {
		t.Fatalf("slot count = %d, want 3", len(slots))
	}
	want := []int{4, 4, 3}
	for i, s := range slots {
		if s.Units != want[i] {
			t.Errorf("slot[%d] units = %d, want %d", i, s.Units, want[i])
		}
	}
}

func TestGenerateSlots_SpreadAcrossWeek(t *testing.T) {
	dates := model.WeekDates(testWeekStart)

	b := newSnapBuilder()
	// 5个允许日选2天：等步长采样应选周一和周三，而不是连续两天
	c := b.addCustomer("赵叔", 8, weekdays(), 2)

	slots := GenerateSlots(c, dates)
	if len(slots) != 2 {
		t.Fatalf("slot count = %d, want 2", len(slots))
	}
	if slots[0].Day == time.Monday && slots[1].Day == time.Tuesday {
		t.Error("visits clustered on consecutive days, expected spread")
	}
}

func TestGenerateSlots_Degenerate(t *testing.T) {
	dates := model.WeekDates(testWeekStart)

	t.Run("零核定单元", func(t *testing.T) {
		b := newSnapBuilder()
		c := b.addCustomer("无单元客户", 0, weekdays(), 3)
		if slots := GenerateSlots(c, dates); len(slots) != 0 {
			t.Errorf("expected no slots, got %d", len(slots))
		}
	})

	t.Run("允许日与本周无交集", func(t *testing.T) {
		b := newSnapBuilder()
		c := b.addCustomer("无交集客户", 20, nil, 3)
		if slots := GenerateSlots(c, dates); len(slots) != 0 {
			t.Errorf("expected no slots, got %d", len(slots))
		}
	})

	t.Run("nil客户", func(t *testing.T) {
		if slots := GenerateSlots(nil, dates); slots != nil {
			t.Error("expected nil slots for nil customer")
		}
	})
}
