// Package optimizer 提供护理员↔客户的周排班优化引擎
package optimizer

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/paihu/paihu/pkg/logger"
	"github.com/paihu/paihu/pkg/model"
)

// DefaultMaxSwapPasses 换班改进循环的默认最大轮数
const DefaultMaxSwapPasses = 50

// 工时均衡惩罚阈值
const (
	balanceHeavyRatio   = 0.9
	balanceMediumRatio  = 0.7
	balanceLightRatio   = 0.5
	balanceHeavyPenalty = 20.0
	balanceMedPenalty   = 10.0
	balanceLightPenalty = 3.0
)

// unassigned 访问槽未分配标记
const unassigned = -1

// Options 优化运行选项
type Options struct {
	Mode               model.RunMode `json:"mode"`
	BalanceHours       bool          `json:"balance_hours"`
	MinimizeDriving    bool          `json:"minimize_driving"`
	RespectPreferences bool          `json:"respect_preferences"`
}

// DefaultOptions 返回默认选项（全部开启）
func DefaultOptions() Options {
	return Options{
		Mode:               model.ModeGenerateFresh,
		BalanceHours:       true,
		MinimizeDriving:    true,
		RespectPreferences: true,
	}
}

// Engine 分配引擎
// 贪心初始解 + 两两换班局部搜索；全程无随机化，相同输入产生相同输出
type Engine struct {
	snap          *Snapshot
	opts          Options
	scorer        *Scorer
	logger        *logger.OptimizerLogger
	maxSwapPasses int
}

// NewEngine 创建分配引擎
func NewEngine(snap *Snapshot, opts Options) *Engine {
	return &Engine{
		snap:          snap,
		opts:          opts,
		scorer:        NewScorer(snap, opts),
		logger:        logger.NewOptimizerLogger(),
		maxSwapPasses: DefaultMaxSwapPasses,
	}
}

// SetMaxSwapPasses 设置换班循环最大轮数
func (e *Engine) SetMaxSwapPasses(max int) {
	e.maxSwapPasses = max
}

// runState 单次运行的全部工作状态
// 评分矩阵构建后不可变；只有容量跟踪器和分配数组会被修改
type runState struct {
	engine     *Engine
	slots      []*model.VisitSlot
	caregivers []*model.Caregiver
	matrix     [][]PairScore
	feasCount  []int
	assignment []int // 访问槽索引 -> 护理员索引，unassigned 表示未分配
	tracker    Tracker
}

// Run 执行一次完整的优化运行
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	rs := e.newRunState()
	e.logger.StartRun(e.snap.OrgID.String(), e.snap.WeekStart.Format("2006-01-02"),
		len(e.snap.Customers), len(rs.caregivers), len(rs.slots))

	// 没有可排的访问槽：合法的退化结果，覆盖率按100%计
	if len(rs.slots) == 0 {
		result := aggregate(rs, 0, time.Since(start))
		e.logger.RunComplete(e.snap.OrgID.String(), result.Summary.CoveragePercent, time.Since(start))
		return result, nil
	}

	rs.greedyFill()
	swapIters := rs.swapLoop(ctx)

	result := aggregate(rs, swapIters, time.Since(start))
	e.logger.RunComplete(e.snap.OrgID.String(), result.Summary.CoveragePercent, time.Since(start))

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// newRunState 构建运行状态：生成访问槽并预计算整张评分矩阵
func (e *Engine) newRunState() *runState {
	rs := &runState{engine: e}

	// 非在职护理员不进入矩阵
	for _, cg := range e.snap.Caregivers {
		if cg.IsActive() {
			rs.caregivers = append(rs.caregivers, cg)
		}
	}

	for _, c := range e.snap.Customers {
		if !c.IsActive() {
			continue
		}
		slots := GenerateSlots(c, e.snap.Dates)
		if len(slots) == 0 && c.HasWeeklyUnits() {
			// 数据问题：有核定单元却无可用服务日；不中断运行
			e.logger.DataIssue(c.ID.String(), "允许服务日与本周无交集")
			continue
		}
		rs.slots = append(rs.slots, slots...)
	}

	rs.matrix = make([][]PairScore, len(rs.slots))
	rs.feasCount = make([]int, len(rs.slots))
	for i, slot := range rs.slots {
		row := make([]PairScore, len(rs.caregivers))
		for j, cg := range rs.caregivers {
			if ok, reason := CheckFeasibility(e.snap, slot, cg.ID); !ok {
				row[j] = BlockedScore(reason)
				continue
			}
			row[j] = e.scorer.Score(slot.CustomerID, cg.ID)
			if !row[j].Blocked {
				rs.feasCount[i]++
			}
		}
		rs.matrix[i] = row
	}

	rs.assignment = make([]int, len(rs.slots))
	for i := range rs.assignment {
		rs.assignment[i] = unassigned
	}

	if e.opts.Mode == model.ModeOptimizeExisting {
		rs.tracker = NewSeededTracker(e.snap)
	} else {
		rs.tracker = NewTracker(e.snap)
	}

	return rs
}

// eff 评估时效得分：静态矩阵分 + 实时容量均衡惩罚 + 连续性加分
// 被阻断的组合返回负无穷
func (rs *runState) eff(slotIdx, cgIdx int) float64 {
	entry := rs.matrix[slotIdx][cgIdx]
	if entry.Blocked {
		return math.Inf(-1)
	}

	score := entry.Score
	slot := rs.slots[slotIdx]
	cgID := rs.caregivers[cgIdx].ID

	if rs.engine.opts.BalanceHours {
		cap := rs.engine.snap.AvailabilityOf(cgID).WeeklyCap()
		ratio := rs.tracker.WeeklyHours(cgID) / cap
		switch {
		case ratio > balanceHeavyRatio:
			score -= balanceHeavyPenalty
		case ratio > balanceMediumRatio:
			score -= balanceMedPenalty
		case ratio > balanceLightRatio:
			score -= balanceLightPenalty
		}
	}

	if rs.engine.snap.HasExistingVisit(cgID, slot.CustomerID, slot.Date) {
		score += continuityBonus
	}

	return score
}

// effOr0 未分配按0分计
func (rs *runState) effOr0(slotIdx, cgIdx int) float64 {
	if cgIdx == unassigned {
		return 0
	}
	return rs.eff(slotIdx, cgIdx)
}

// greedyFill 贪心初始解：最难填的访问槽优先
// 难度 = 可行护理员数升序；并列时关键需求多的在前；再并列按槽原始顺序
func (rs *runState) greedyFill() {
	order := make([]int, len(rs.slots))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if rs.feasCount[ia] != rs.feasCount[ib] {
			return rs.feasCount[ia] < rs.feasCount[ib]
		}
		ca := rs.engine.snap.CriticalNeedCount(rs.slots[ia].CustomerID)
		cb := rs.engine.snap.CriticalNeedCount(rs.slots[ib].CustomerID)
		return ca > cb
	})

	for _, i := range order {
		slot := rs.slots[i]
		best := unassigned
		bestScore := math.Inf(-1)

		// 并列时先出现的护理员获胜，保证确定性
		for j, cg := range rs.caregivers {
			if rs.matrix[i][j].Blocked {
				continue
			}
			if !rs.tracker.CanAssign(slot, cg.ID) {
				continue
			}
			if s := rs.eff(i, j); s > bestScore {
				best = j
				bestScore = s
			}
		}

		if best != unassigned {
			rs.assignment[i] = best
			rs.tracker.Assign(slot, rs.caregivers[best].ID)
		}
	}
}

// swapLoop 两两换班改进循环
// 仅保留严格改进的交换；一整轮无改进即提前收敛，最多跑 maxSwapPasses 轮
// 返回实际使用的轮数
func (rs *runState) swapLoop(ctx context.Context) int {
	passes := 0

	for pass := 0; pass < rs.engine.maxSwapPasses; pass++ {
		if ctx.Err() != nil {
			break
		}
		passes++
		improved := false

		for i := 0; i < len(rs.slots); i++ {
			for j := i + 1; j < len(rs.slots); j++ {
				if rs.trySwap(i, j) {
					improved = true
				}
			}
		}

		if !improved {
			break
		}
	}

	return passes
}

// trySwap 尝试交换两个访问槽的护理员
// 成对解除 -> 可行性试探 -> 改进则提交，否则恢复原状
func (rs *runState) trySwap(i, j int) bool {
	a, b := rs.assignment[i], rs.assignment[j]
	if a == b {
		// 同一护理员或两者都未分配，交换无意义
		return false
	}

	si, sj := rs.slots[i], rs.slots[j]
	currentScore := rs.effOr0(i, a) + rs.effOr0(j, b)

	var idA, idB uuid.UUID
	if a != unassigned {
		idA = rs.caregivers[a].ID
		rs.tracker.Unassign(si, idA)
	}
	if b != unassigned {
		idB = rs.caregivers[b].ID
		rs.tracker.Unassign(sj, idB)
	}

	feasible := true
	placedIB := false
	placedJA := false

	if b != unassigned {
		if rs.matrix[i][b].Blocked || !rs.tracker.CanAssign(si, idB) {
			feasible = false
		} else {
			rs.tracker.Assign(si, idB)
			placedIB = true
		}
	}
	if feasible && a != unassigned {
		if rs.matrix[j][a].Blocked || !rs.tracker.CanAssign(sj, idA) {
			feasible = false
		} else {
			rs.tracker.Assign(sj, idA)
			placedJA = true
		}
	}

	if feasible {
		swapScore := rs.effOr0(i, b) + rs.effOr0(j, a)
		if swapScore > currentScore {
			rs.assignment[i], rs.assignment[j] = b, a
			return true
		}
	}

	// 恢复原分配
	if placedIB {
		rs.tracker.Unassign(si, idB)
	}
	if placedJA {
		rs.tracker.Unassign(sj, idA)
	}
	if a != unassigned {
		rs.tracker.Assign(si, idA)
	}
	if b != unassigned {
		rs.tracker.Assign(sj, idB)
	}
	return false
}

// blockReason 返回访问槽未能分配的可读原因
func (rs *runState) blockReason(slotIdx int) string {
	if rs.feasCount[slotIdx] == 0 {
		// 全部被阻断：取首个出现的阻断原因
		for _, entry := range rs.matrix[slotIdx] {
			if entry.Blocked && entry.Reason != "" {
				return entry.Reason
			}
		}
		return "无可行护理员"
	}
	return "护理员已满负荷"
}
