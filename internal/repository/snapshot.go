// Package repository 提供数据访问层
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paihu/paihu/pkg/optimizer"
)

// SnapshotLoader 优化运行数据快照装载器
// 在进入引擎前把一周所需的全部数据一次性取齐
type SnapshotLoader struct {
	customers    *CustomerRepository
	caregivers   *CaregiverRepository
	capabilities *CapabilityRepository
	schedules    *ScheduleRepository
}

// NewSnapshotLoader 创建快照装载器
func NewSnapshotLoader(db DB) *SnapshotLoader {
	return &SnapshotLoader{
		customers:    NewCustomerRepository(db),
		caregivers:   NewCaregiverRepository(db),
		capabilities: NewCapabilityRepository(db),
		schedules:    NewScheduleRepository(db),
	}
}

// Load 装载某组织某周的优化快照
func (l *SnapshotLoader) Load(ctx context.Context, orgID uuid.UUID, weekStart time.Time) (*optimizer.Snapshot, error) {
	snap := optimizer.NewSnapshot(orgID, weekStart)
	startDate := snap.Dates[0]
	endDate := snap.Dates[len(snap.Dates)-1]

	var err error

	if snap.Customers, err = l.customers.ListActive(ctx, orgID); err != nil {
		return nil, fmt.Errorf("装载客户失败: %w", err)
	}
	if snap.Caregivers, err = l.caregivers.ListActive(ctx, orgID); err != nil {
		return nil, fmt.Errorf("装载护理员失败: %w", err)
	}
	if snap.Capabilities, err = l.capabilities.ListAll(ctx); err != nil {
		return nil, fmt.Errorf("装载服务能力失败: %w", err)
	}
	if snap.Needs, err = l.customers.ListNeeds(ctx, orgID); err != nil {
		return nil, fmt.Errorf("装载服务需求失败: %w", err)
	}
	if snap.Restrictions, err = l.customers.ListRestrictions(ctx, orgID); err != nil {
		return nil, fmt.Errorf("装载客户约束失败: %w", err)
	}
	if snap.CaregiverSkills, err = l.caregivers.ListSkills(ctx, orgID); err != nil {
		return nil, fmt.Errorf("装载护理员能力失败: %w", err)
	}
	if snap.Availability, err = l.caregivers.ListAvailability(ctx, orgID); err != nil {
		return nil, fmt.Errorf("装载可用性失败: %w", err)
	}
	if snap.Blackouts, err = l.caregivers.ListBlackouts(ctx, orgID, startDate, endDate); err != nil {
		return nil, fmt.Errorf("装载停服记录失败: %w", err)
	}
	if snap.ExistingSchedule, err = l.schedules.ListWeek(ctx, orgID, startDate, endDate); err != nil {
		return nil, fmt.Errorf("装载现有排班失败: %w", err)
	}

	snap.BuildIndexes()
	return snap, nil
}
