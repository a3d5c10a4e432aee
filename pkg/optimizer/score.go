// Package optimizer 提供护理员↔客户的周排班优化引擎
package optimizer

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/paihu/paihu/pkg/model"
)

// 评分常量
const (
	baseScore          = 50.0 // 基础分
	preferredBonus     = 25.0 // 偏好护理员加分
	lockedBonus        = 40.0 // 锁定护理员加分
	missCriticalPoints = 30.0 // 缺少关键需求扣分
	missHighPoints     = 10.0 // 缺少高优先级需求扣分
	continuityBonus    = 10.0 // 同客户同日连续性加分
)

// PairScore 单个（访问槽，护理员）组合的评分结果
// Blocked 与 Score 互斥：被阻断的组合没有有效分数
type PairScore struct {
	Blocked bool    `json:"blocked"`
	Reason  string  `json:"reason,omitempty"` // 阻断原因
	Score   float64 `json:"score"`

	NeedsMet      int      `json:"needs_met"`
	TotalNeeds    int      `json:"total_needs"`
	CriticalMet   int      `json:"critical_met"`
	CriticalTotal int      `json:"critical_total"`
	Factors       []string `json:"factors,omitempty"`
}

// BlockedScore 构造阻断结果
func BlockedScore(reason string) PairScore {
	return PairScore{Blocked: true, Reason: reason}
}

// Scorer 兼容性评分器
// 纯函数式：只读快照，可在构建矩阵时预先计算全部组合
type Scorer struct {
	snap *Snapshot
	opts Options
}

// NewScorer 创建评分器
func NewScorer(snap *Snapshot, opts Options) *Scorer {
	return &Scorer{snap: snap, opts: opts}
}

// Score 计算（客户，护理员）组合的兼容性得分
func (sc *Scorer) Score(customerID, caregiverID uuid.UUID) PairScore {
	// 排除约束：终止评估，永不可分配
	if rt, ok := sc.snap.RestrictionFor(customerID, caregiverID); ok && rt == model.RestrictionExcluded {
		return BlockedScore("已排除")
	}

	result := PairScore{Score: baseScore}

	// 需求覆盖
	for _, need := range sc.snap.NeedsOf(customerID) {
		result.TotalNeeds++
		isCritical := need.Priority == model.PriorityCritical
		if isCritical {
			result.CriticalTotal++
		}

		tier, has := sc.snap.SkillTier(caregiverID, need.CapabilityID)
		if has {
			result.NeedsMet++
			if isCritical {
				result.CriticalMet++
			}
			result.Score += need.Priority.Points() * tier.Multiplier()
			continue
		}

		switch need.Priority {
		case model.PriorityCritical:
			result.Score -= missCriticalPoints
			result.Factors = append(result.Factors, fmt.Sprintf("缺少关键需求: %s", sc.capabilityName(need.CapabilityID)))
		case model.PriorityHigh:
			result.Score -= missHighPoints
		}
	}

	// 偏好/锁定约束加分
	if rt, ok := sc.snap.RestrictionFor(customerID, caregiverID); ok {
		switch rt {
		case model.RestrictionPreferred:
			if sc.opts.RespectPreferences {
				result.Score += preferredBonus
			}
		case model.RestrictionLocked:
			result.Score += lockedBonus
		}
	}

	// 地理距离分段加减分
	if sc.opts.MinimizeDriving {
		customer := sc.snap.GetCustomer(customerID)
		caregiver := sc.snap.GetCaregiver(caregiverID)
		if customer != nil && caregiver != nil && customer.Home != nil && caregiver.Home != nil {
			miles := caregiver.Home.DistanceMiles(*customer.Home)
			result.Score += distanceBand(miles)
			result.Factors = append(result.Factors, fmt.Sprintf("距离 %.1f 英里", miles))
		}
	}

	// 最终得分下限为0
	if result.Score < 0 {
		result.Score = 0
	}

	return result
}

// distanceBand 返回距离对应的分段加减分
func distanceBand(miles float64) float64 {
	switch {
	case miles <= 5:
		return 15
	case miles <= 10:
		return 8
	case miles <= 15:
		return 0
	case miles <= 25:
		return -10
	default:
		return -20
	}
}

// capabilityName 查询服务能力名称，查不到时退回ID
func (sc *Scorer) capabilityName(id uuid.UUID) string {
	if cap := sc.snap.GetCapability(id); cap != nil {
		return cap.Name
	}
	return id.String()
}
