// Package careplan 提供长护险评估等级到服务配置的换算
package careplan

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paihu/paihu/pkg/model"
)

// MinLevel 和 MaxLevel 界定长护险评估等级范围
const (
	MinLevel = 1
	MaxLevel = 6
)

// NeedSpec 评估等级下的默认服务需求
type NeedSpec struct {
	ItemName string             `json:"item_name"`
	Priority model.NeedPriority `json:"priority"`
}

// AssessmentManager 评估等级管理器
// 负责把评估等级换算为每周核定单元数、目标上门天数与默认服务需求
type AssessmentManager struct {
	// 评估等级对应的每周核定单元数（15分钟/单元）
	levelUnits map[int]int
	// 评估等级对应的默认服务项目与优先级
	levelNeeds map[int][]NeedSpec
}

// NewAssessmentManager 创建评估等级管理器
func NewAssessmentManager() *AssessmentManager {
	return &AssessmentManager{
		levelUnits: map[int]int{
			1: 12, // 一级：每周3小时
			2: 20, // 二级：每周5小时
			3: 28, // 三级：每周7小时
			4: 40, // 四级：每周10小时
			5: 60, // 五级：每周15小时
			6: 80, // 六级：每周20小时
		},
		levelNeeds: map[int][]NeedSpec{
			1: {
				{"基础生活照料", model.PriorityNormal},
				{"健康监测", model.PriorityLow},
			},
			2: {
				{"基础生活照料", model.PriorityNormal},
				{"健康监测", model.PriorityNormal},
				{"饮食护理", model.PriorityNormal},
			},
			3: {
				{"基础生活照料", model.PriorityHigh},
				{"健康监测", model.PriorityNormal},
				{"饮食护理", model.PriorityNormal},
				{"排泄护理", model.PriorityHigh},
			},
			4: {
				{"基础生活照料", model.PriorityHigh},
				{"健康监测", model.PriorityHigh},
				{"饮食护理", model.PriorityNormal},
				{"排泄护理", model.PriorityHigh},
				{"清洁护理", model.PriorityNormal},
			},
			5: {
				{"基础生活照料", model.PriorityCritical},
				{"健康监测", model.PriorityHigh},
				{"饮食护理", model.PriorityHigh},
				{"排泄护理", model.PriorityCritical},
				{"清洁护理", model.PriorityNormal},
				{"康复训练", model.PriorityHigh},
			},
			6: {
				{"基础生活照料", model.PriorityCritical},
				{"健康监测", model.PriorityCritical},
				{"饮食护理", model.PriorityHigh},
				{"排泄护理", model.PriorityCritical},
				{"清洁护理", model.PriorityHigh},
				{"康复训练", model.PriorityHigh},
				{"临终关怀", model.PriorityCritical},
			},
		},
	}
}

// WeeklyUnits 返回评估等级对应的每周核定单元数
func (am *AssessmentManager) WeeklyUnits(level int) (int, error) {
	if level < MinLevel || level > MaxLevel {
		return 0, fmt.Errorf("评估等级必须在%d-%d之间", MinLevel, MaxLevel)
	}
	units, ok := am.levelUnits[level]
	if !ok {
		units = 20
	}
	return units, nil
}

// TargetDays 返回评估等级对应的每周目标上门天数
// 单元数越多上门越分散，避免单日时长过长
func (am *AssessmentManager) TargetDays(level int) int {
	units, err := am.WeeklyUnits(level)
	if err != nil {
		return 0
	}
	return targetDaysForUnits(units)
}

// ApplyAssessment 把评估等级写入客户档案
// 覆盖每周核定单元数与目标上门天数，允许服务日未设置时给出默认工作日
func (am *AssessmentManager) ApplyAssessment(customer *model.Customer, level int) error {
	if customer == nil {
		return fmt.Errorf("客户不能为空")
	}

	units, err := am.WeeklyUnits(level)
	if err != nil {
		return err
	}

	customer.WeeklyUnits = units
	customer.TargetDaysPerWeek = targetDaysForUnits(units)

	if len(customer.AllowedDays) == 0 {
		customer.AllowedDays = defaultAllowedDays(customer.TargetDaysPerWeek)
	}
	if customer.TargetDaysPerWeek > len(customer.AllowedDays) {
		customer.TargetDaysPerWeek = len(customer.AllowedDays)
	}

	return nil
}

// DefaultNeeds 根据评估等级生成客户的默认服务需求
// 按服务项目名称匹配机构能力目录，目录中不存在的项目跳过
func (am *AssessmentManager) DefaultNeeds(customerID uuid.UUID, level int, capabilities []*model.Capability) ([]model.CareNeed, error) {
	if level < MinLevel || level > MaxLevel {
		return nil, fmt.Errorf("评估等级必须在%d-%d之间", MinLevel, MaxLevel)
	}

	byName := make(map[string]uuid.UUID, len(capabilities))
	for _, cap := range capabilities {
		if cap.IsActive {
			byName[cap.Name] = cap.ID
		}
	}

	specs := am.levelNeeds[level]
	needs := make([]model.CareNeed, 0, len(specs))
	for _, spec := range specs {
		capID, ok := byName[spec.ItemName]
		if !ok {
			continue
		}
		needs = append(needs, model.CareNeed{
			CustomerID:   customerID,
			CapabilityID: capID,
			Priority:     spec.Priority,
		})
	}

	return needs, nil
}

// ValidateCustomer 校验客户档案是否可参与排班
func (am *AssessmentManager) ValidateCustomer(customer *model.Customer) []string {
	var problems []string

	if customer.Name == "" {
		problems = append(problems, "客户姓名不能为空")
	}
	if customer.WeeklyUnits <= 0 {
		problems = append(problems, "每周核定单元数必须大于0")
	}
	if len(customer.AllowedDays) == 0 {
		problems = append(problems, "允许服务日不能为空")
	}
	if customer.TargetDaysPerWeek > len(customer.AllowedDays) {
		problems = append(problems, "目标上门天数不能超过允许服务日数量")
	}

	return problems
}

// targetDaysForUnits 按每周单元数推算目标上门天数
func targetDaysForUnits(units int) int {
	switch {
	case units <= 12:
		return 1
	case units <= 28:
		return 2
	case units <= 56:
		return 3
	default:
		return 5
	}
}

// defaultAllowedDays 返回默认允许服务日
// 目标天数不超过3天时排在周一三五，否则放开工作日
func defaultAllowedDays(targetDays int) []time.Weekday {
	if targetDays <= 3 {
		return []time.Weekday{time.Monday, time.Wednesday, time.Friday}
	}
	return []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
	}
}
