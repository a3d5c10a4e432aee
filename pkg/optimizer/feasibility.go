// Package optimizer 提供护理员↔客户的周排班优化引擎
package optimizer

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/paihu/paihu/pkg/model"
)

// weekdayNames 星期中文名
var weekdayNames = [...]string{"周日", "周一", "周二", "周三", "周四", "周五", "周六"}

// CheckFeasibility 硬性可行性检查
// 与评分无关，决定该组合是否允许被分配；返回是否可行与首个阻断原因
func CheckFeasibility(snap *Snapshot, slot *model.VisitSlot, caregiverID uuid.UUID) (bool, string) {
	// 1. 锁定规则：客户存在锁定护理员时，锁定集合之外的护理员一律阻断
	if locked := snap.LockedSet(slot.CustomerID); len(locked) > 0 && !locked[caregiverID] {
		return false, "未锁定"
	}

	avail := snap.AvailabilityOf(caregiverID)

	// 2. 星期几不可排
	if !avail.AvailableOn(slot.Day) {
		return false, fmt.Sprintf("%s不可排", weekdayNames[int(slot.Day)])
	}

	// 3. 整体不可用状态
	if avail.IsUnavailable() {
		return false, "整体不可用"
	}

	// 4. 停服日期段
	for _, b := range snap.BlackoutsFor(caregiverID) {
		if b.Covers(slot.Date) {
			return false, "停服期"
		}
	}

	return true, ""
}
