// Package optimizer 提供护理员↔客户的周排班优化引擎
package optimizer

import (
	"time"

	"github.com/google/uuid"
	"github.com/paihu/paihu/pkg/model"
)

// Snapshot 一次优化运行的只读数据快照
// 所有参考数据必须在调用引擎前一次性取齐，运行期间不再读库
type Snapshot struct {
	OrgID     uuid.UUID `json:"org_id"`
	WeekStart time.Time `json:"week_start"`
	Dates     []string  `json:"dates"` // 周内7个日期

	Customers  []*model.Customer  `json:"customers"`
	Caregivers []*model.Caregiver `json:"caregivers"`

	Capabilities     []*model.Capability          `json:"capabilities"`
	CaregiverSkills  []*model.CaregiverCapability `json:"caregiver_skills"`
	Needs            []*model.CareNeed            `json:"needs"`
	Restrictions     []*model.Restriction         `json:"restrictions"`
	Availability     []*model.Availability        `json:"availability"`
	Blackouts        []*model.BlackoutDate        `json:"blackouts"`
	ExistingSchedule []*model.ScheduleRow         `json:"existing_schedule"`

	// 索引缓存
	customerMap     map[uuid.UUID]*model.Customer
	caregiverMap    map[uuid.UUID]*model.Caregiver
	capabilityMap   map[uuid.UUID]*model.Capability
	skillMap        map[uuid.UUID]map[uuid.UUID]model.ProficiencyTier
	needMap         map[uuid.UUID][]*model.CareNeed
	restrictionMap  map[uuid.UUID]map[uuid.UUID]model.RestrictionType
	lockedMap       map[uuid.UUID]map[uuid.UUID]bool
	availabilityMap map[uuid.UUID]*model.Availability
	blackoutMap     map[uuid.UUID][]*model.BlackoutDate
	existingByCG    map[existingKey][]*model.ScheduleRow
}

type existingKey struct {
	CaregiverID uuid.UUID
	Date        string
}

// NewSnapshot 创建快照并生成周内日期
func NewSnapshot(orgID uuid.UUID, weekStart time.Time) *Snapshot {
	return &Snapshot{
		OrgID:     orgID,
		WeekStart: weekStart,
		Dates:     model.WeekDates(weekStart),
	}
}

// BuildIndexes 重建索引缓存
// 填充完输入数据后必须调用一次
func (s *Snapshot) BuildIndexes() {
	s.customerMap = make(map[uuid.UUID]*model.Customer, len(s.Customers))
	for _, c := range s.Customers {
		s.customerMap[c.ID] = c
	}

	s.caregiverMap = make(map[uuid.UUID]*model.Caregiver, len(s.Caregivers))
	for _, cg := range s.Caregivers {
		s.caregiverMap[cg.ID] = cg
	}

	s.capabilityMap = make(map[uuid.UUID]*model.Capability, len(s.Capabilities))
	for _, cap := range s.Capabilities {
		s.capabilityMap[cap.ID] = cap
	}

	s.skillMap = make(map[uuid.UUID]map[uuid.UUID]model.ProficiencyTier)
	for _, cs := range s.CaregiverSkills {
		if s.skillMap[cs.CaregiverID] == nil {
			s.skillMap[cs.CaregiverID] = make(map[uuid.UUID]model.ProficiencyTier)
		}
		s.skillMap[cs.CaregiverID][cs.CapabilityID] = cs.Tier
	}

	s.needMap = make(map[uuid.UUID][]*model.CareNeed)
	for _, n := range s.Needs {
		s.needMap[n.CustomerID] = append(s.needMap[n.CustomerID], n)
	}

	s.restrictionMap = make(map[uuid.UUID]map[uuid.UUID]model.RestrictionType)
	s.lockedMap = make(map[uuid.UUID]map[uuid.UUID]bool)
	for _, r := range s.Restrictions {
		if !r.Active {
			continue
		}
		if s.restrictionMap[r.CustomerID] == nil {
			s.restrictionMap[r.CustomerID] = make(map[uuid.UUID]model.RestrictionType)
		}
		s.restrictionMap[r.CustomerID][r.CaregiverID] = r.Type

		if r.Type == model.RestrictionLocked {
			if s.lockedMap[r.CustomerID] == nil {
				s.lockedMap[r.CustomerID] = make(map[uuid.UUID]bool)
			}
			s.lockedMap[r.CustomerID][r.CaregiverID] = true
		}
	}

	s.availabilityMap = make(map[uuid.UUID]*model.Availability, len(s.Availability))
	for _, a := range s.Availability {
		s.availabilityMap[a.CaregiverID] = a
	}

	s.blackoutMap = make(map[uuid.UUID][]*model.BlackoutDate)
	for _, b := range s.Blackouts {
		s.blackoutMap[b.CaregiverID] = append(s.blackoutMap[b.CaregiverID], b)
	}

	s.existingByCG = make(map[existingKey][]*model.ScheduleRow)
	for _, row := range s.ExistingSchedule {
		key := existingKey{CaregiverID: row.CaregiverID, Date: row.Date}
		s.existingByCG[key] = append(s.existingByCG[key], row)
	}
}

// GetCustomer 获取客户
func (s *Snapshot) GetCustomer(id uuid.UUID) *model.Customer {
	return s.customerMap[id]
}

// GetCaregiver 获取护理员
func (s *Snapshot) GetCaregiver(id uuid.UUID) *model.Caregiver {
	return s.caregiverMap[id]
}

// GetCapability 获取服务能力定义
func (s *Snapshot) GetCapability(id uuid.UUID) *model.Capability {
	return s.capabilityMap[id]
}

// SkillTier 查询护理员对某服务能力的熟练度
func (s *Snapshot) SkillTier(caregiverID, capabilityID uuid.UUID) (model.ProficiencyTier, bool) {
	tier, ok := s.skillMap[caregiverID][capabilityID]
	return tier, ok
}

// NeedsOf 获取客户的需求列表
func (s *Snapshot) NeedsOf(customerID uuid.UUID) []*model.CareNeed {
	return s.needMap[customerID]
}

// RestrictionFor 查询（客户，护理员）组合的约束类型
func (s *Snapshot) RestrictionFor(customerID, caregiverID uuid.UUID) (model.RestrictionType, bool) {
	t, ok := s.restrictionMap[customerID][caregiverID]
	return t, ok
}

// LockedSet 获取客户的锁定护理员集合（可能为空）
func (s *Snapshot) LockedSet(customerID uuid.UUID) map[uuid.UUID]bool {
	return s.lockedMap[customerID]
}

// AvailabilityOf 获取护理员的可用性记录（可能为nil）
func (s *Snapshot) AvailabilityOf(caregiverID uuid.UUID) *model.Availability {
	return s.availabilityMap[caregiverID]
}

// BlackoutsFor 获取护理员的停服日期段
func (s *Snapshot) BlackoutsFor(caregiverID uuid.UUID) []*model.BlackoutDate {
	return s.blackoutMap[caregiverID]
}

// ExistingFor 获取护理员某日期的现有排班行
func (s *Snapshot) ExistingFor(caregiverID uuid.UUID, date string) []*model.ScheduleRow {
	return s.existingByCG[existingKey{CaregiverID: caregiverID, Date: date}]
}

// HasExistingVisit 检查护理员在某日期是否已有该客户的排班
// 用于连续性加分
func (s *Snapshot) HasExistingVisit(caregiverID, customerID uuid.UUID, date string) bool {
	for _, row := range s.ExistingFor(caregiverID, date) {
		if row.CustomerID == customerID {
			return true
		}
	}
	return false
}

// CriticalNeedCount 统计客户的关键需求数
func (s *Snapshot) CriticalNeedCount(customerID uuid.UUID) int {
	count := 0
	for _, n := range s.needMap[customerID] {
		if n.Priority == model.PriorityCritical {
			count++
		}
	}
	return count
}
