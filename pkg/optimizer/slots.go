// Package optimizer 提供护理员↔客户的周排班优化引擎
package optimizer

import (
	"time"

	"github.com/paihu/paihu/pkg/model"
)

// GenerateSlots 将客户的周核定服务单元展开为按日访问槽
// 保证所有访问槽的单元数之和恰好等于周核定单元数
func GenerateSlots(customer *model.Customer, weekDates []string) []*model.VisitSlot {
	if customer == nil || !customer.HasWeeklyUnits() {
		return nil
	}

	// 1. 周内日期与客户允许服务日求交集
	type dayDate struct {
		date string
		day  time.Weekday
	}
	var available []dayDate
	for _, date := range weekDates {
		t, err := time.Parse("2006-01-02", date)
		if err != nil {
			continue
		}
		if customer.AllowsDay(t.Weekday()) {
			available = append(available, dayDate{date: date, day: t.Weekday()})
		}
	}
	if len(available) == 0 {
		return nil
	}

	// 2. 有效天数 = min(目标天数, 可用天数)，并保证每次上门至少2单元（30分钟）
	effectiveDays := customer.TargetDaysPerWeek
	if effectiveDays <= 0 || effectiveDays > len(available) {
		effectiveDays = len(available)
	}
	for effectiveDays > 1 && customer.WeeklyUnits/effectiveDays < 2 {
		effectiveDays--
	}

	// 3. 等步长采样选出上门日期，使访问分散在整周
	chosen := make([]dayDate, 0, effectiveDays)
	for i := 0; i < effectiveDays; i++ {
		idx := i * len(available) / effectiveDays
		chosen = append(chosen, available[idx])
	}

	// 4. 单元数尽量均匀分配，余数按选中顺序逐日+1
	base := customer.WeeklyUnits / effectiveDays
	remainder := customer.WeeklyUnits % effectiveDays

	slots := make([]*model.VisitSlot, 0, effectiveDays)
	for i, d := range chosen {
		units := base
		if i < remainder {
			units++
		}
		if units <= 0 {
			continue
		}
		slots = append(slots, &model.VisitSlot{
			CustomerID: customer.ID,
			Date:       d.date,
			Day:        d.day,
			Units:      units,
		})
	}

	return slots
}
