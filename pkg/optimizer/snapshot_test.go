package optimizer

import (
	"time"

	"github.com/google/uuid"
	"github.com/paihu/paihu/pkg/model"
)

// testWeekStart 2026-03-02 周一
var testWeekStart = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

// snapBuilder 测试快照构造器
type snapBuilder struct {
	snap *Snapshot
}

func newSnapBuilder() *snapBuilder {
	return &snapBuilder{snap: NewSnapshot(uuid.New(), testWeekStart)}
}

func (b *snapBuilder) addCustomer(name string, weeklyUnits int, days []time.Weekday, targetDays int) *model.Customer {
	c := &model.Customer{
		BaseModel:         model.NewBaseModel(),
		OrgID:             b.snap.OrgID,
		Name:              name,
		Status:            "active",
		WeeklyUnits:       weeklyUnits,
		AllowedDays:       days,
		TargetDaysPerWeek: targetDays,
	}
	b.snap.Customers = append(b.snap.Customers, c)
	return c
}

func (b *snapBuilder) addCaregiver(name string) *model.Caregiver {
	cg := &model.Caregiver{
		BaseModel: model.NewBaseModel(),
		OrgID:     b.snap.OrgID,
		Name:      name,
		Status:    "active",
	}
	b.snap.Caregivers = append(b.snap.Caregivers, cg)
	return cg
}

func (b *snapBuilder) addCapability(name string) *model.Capability {
	cap := &model.Capability{
		BaseModel: model.NewBaseModel(),
		Name:      name,
		IsActive:  true,
	}
	b.snap.Capabilities = append(b.snap.Capabilities, cap)
	return cap
}

func (b *snapBuilder) addNeed(c *model.Customer, cap *model.Capability, p model.NeedPriority) {
	b.snap.Needs = append(b.snap.Needs, &model.CareNeed{
		CustomerID:   c.ID,
		CapabilityID: cap.ID,
		Priority:     p,
	})
}

func (b *snapBuilder) addSkill(cg *model.Caregiver, cap *model.Capability, tier model.ProficiencyTier) {
	b.snap.CaregiverSkills = append(b.snap.CaregiverSkills, &model.CaregiverCapability{
		CaregiverID:  cg.ID,
		CapabilityID: cap.ID,
		Tier:         tier,
	})
}

func (b *snapBuilder) addRestriction(c *model.Customer, cg *model.Caregiver, rt model.RestrictionType) {
	b.snap.Restrictions = append(b.snap.Restrictions, &model.Restriction{
		BaseModel:   model.NewBaseModel(),
		CustomerID:  c.ID,
		CaregiverID: cg.ID,
		Type:        rt,
		Active:      true,
	})
}

func (b *snapBuilder) addAvailability(cg *model.Caregiver, maxHours float64) *model.Availability {
	a := &model.Availability{
		CaregiverID:     cg.ID,
		Status:          "available",
		MaxHoursPerWeek: maxHours,
	}
	b.snap.Availability = append(b.snap.Availability, a)
	return a
}

func (b *snapBuilder) addBlackout(cg *model.Caregiver, start, end string) {
	b.snap.Blackouts = append(b.snap.Blackouts, &model.BlackoutDate{
		BaseModel:   model.NewBaseModel(),
		CaregiverID: cg.ID,
		StartDate:   start,
		EndDate:     end,
	})
}

func (b *snapBuilder) addExistingRow(c *model.Customer, cg *model.Caregiver, date, start, end, generatedBy string) {
	day, _ := time.Parse("2006-01-02", date)
	st, _ := time.Parse("15:04", start)
	et, _ := time.Parse("15:04", end)
	startTime := time.Date(day.Year(), day.Month(), day.Day(), st.Hour(), st.Minute(), 0, 0, time.UTC)
	endTime := time.Date(day.Year(), day.Month(), day.Day(), et.Hour(), et.Minute(), 0, 0, time.UTC)
	b.snap.ExistingSchedule = append(b.snap.ExistingSchedule, &model.ScheduleRow{
		BaseModel:   model.NewBaseModel(),
		OrgID:       b.snap.OrgID,
		CustomerID:  c.ID,
		CaregiverID: cg.ID,
		Date:        date,
		StartTime:   startTime,
		EndTime:     endTime,
		Units:       int(endTime.Sub(startTime).Minutes()) / model.UnitMinutes,
		Status:      "scheduled",
		GeneratedBy: generatedBy,
	})
}

func (b *snapBuilder) build() *Snapshot {
	b.snap.BuildIndexes()
	return b.snap
}

// weekdays 周一到周五
func weekdays() []time.Weekday {
	return []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
}
