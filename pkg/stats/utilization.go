// Package stats 提供排班统计分析功能
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// CaregiverInfo 护理员信息（用于统计分析）
type CaregiverInfo struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	WeeklyCap float64   `json:"weekly_cap"`
}

// VisitInfo 访问信息（用于统计分析）
type VisitInfo struct {
	CaregiverID uuid.UUID `json:"caregiver_id"`
	CustomerID  uuid.UUID `json:"customer_id"`
	Date        string    `json:"date"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

// UtilizationMetrics 工时均衡指标
type UtilizationMetrics struct {
	// 工时分布
	HoursGini            float64 `json:"hours_gini"`     // 工时基尼系数 (0=完全均衡, 1=完全失衡)
	HoursVariance        float64 `json:"hours_variance"` // 工时方差
	HoursStdDev          float64 `json:"hours_std_dev"`  // 工时标准差
	AvgHoursPerCaregiver float64 `json:"avg_hours_per_caregiver"`
	MaxHours             float64 `json:"max_hours"`
	MinHours             float64 `json:"min_hours"`
	HoursRange           float64 `json:"hours_range"` // 工时极差

	// 周末访问分布
	WeekendVisitGini float64 `json:"weekend_visit_gini"`

	// 负荷情况
	OverloadedCount int `json:"overloaded_count"` // 超出周上限的护理员数

	// 护理员级别统计
	CaregiverStats []CaregiverStat `json:"caregiver_stats"`

	// 综合评分
	BalanceScore float64 `json:"balance_score"` // 综合均衡评分 (0-100)
}

// CaregiverStat 护理员统计
type CaregiverStat struct {
	CaregiverID    uuid.UUID `json:"caregiver_id"`
	CaregiverName  string    `json:"caregiver_name"`
	TotalHours     float64   `json:"total_hours"`
	VisitCount     int       `json:"visit_count"`
	WeekendVisits  int       `json:"weekend_visits"`
	CustomerCount  int       `json:"customer_count"` // 服务的不同客户数
	UtilizationPct float64   `json:"utilization_pct"`
	Deviation      float64   `json:"deviation"` // 与平均工时的偏差百分比
}

// BalanceAnalyzer 工时均衡分析器
type BalanceAnalyzer struct {
	defaultWeeklyCap float64
}

// NewBalanceAnalyzer 创建均衡分析器
func NewBalanceAnalyzer() *BalanceAnalyzer {
	return &BalanceAnalyzer{
		defaultWeeklyCap: 40.0,
	}
}

// Analyze 分析一周排班的工时均衡情况
func (b *BalanceAnalyzer) Analyze(visits []*VisitInfo, caregivers []*CaregiverInfo) *UtilizationMetrics {
	if len(visits) == 0 || len(caregivers) == 0 {
		return &UtilizationMetrics{BalanceScore: 100}
	}

	caregiverMap := make(map[uuid.UUID]*CaregiverInfo)
	for _, cg := range caregivers {
		caregiverMap[cg.ID] = cg
	}

	stats := b.calculateCaregiverStats(visits, caregiverMap)

	hours := make([]float64, len(stats))
	weekendVisits := make([]float64, len(stats))
	for i, stat := range stats {
		hours[i] = stat.TotalHours
		weekendVisits[i] = float64(stat.WeekendVisits)
	}

	avgHours := mean(hours)
	variance := varianceOf(hours, avgHours)
	stdDev := math.Sqrt(variance)
	maxHours, minHours := rangeOf(hours)

	overloaded := 0
	for i := range stats {
		if avgHours > 0 {
			stats[i].Deviation = (stats[i].TotalHours - avgHours) / avgHours * 100
		}
		cap := b.defaultWeeklyCap
		if cg, ok := caregiverMap[stats[i].CaregiverID]; ok && cg.WeeklyCap > 0 {
			cap = cg.WeeklyCap
		}
		stats[i].UtilizationPct = stats[i].TotalHours / cap * 100
		if stats[i].TotalHours > cap {
			overloaded++
		}
	}

	hoursGini := gini(hours)
	weekendGini := gini(weekendVisits)

	return &UtilizationMetrics{
		HoursGini:            hoursGini,
		HoursVariance:        variance,
		HoursStdDev:          stdDev,
		AvgHoursPerCaregiver: avgHours,
		MaxHours:             maxHours,
		MinHours:             minHours,
		HoursRange:           maxHours - minHours,
		WeekendVisitGini:     weekendGini,
		OverloadedCount:      overloaded,
		CaregiverStats:       stats,
		BalanceScore:         b.balanceScore(hoursGini, weekendGini, stdDev, avgHours),
	}
}

// calculateCaregiverStats 计算护理员统计数据
func (b *BalanceAnalyzer) calculateCaregiverStats(visits []*VisitInfo, caregiverMap map[uuid.UUID]*CaregiverInfo) []CaregiverStat {
	statMap := make(map[uuid.UUID]*CaregiverStat)
	customersOf := make(map[uuid.UUID]map[uuid.UUID]bool)

	for _, v := range visits {
		stat, exists := statMap[v.CaregiverID]
		if !exists {
			name := v.CaregiverID.String()
			if cg, ok := caregiverMap[v.CaregiverID]; ok {
				name = cg.Name
			}
			stat = &CaregiverStat{
				CaregiverID:   v.CaregiverID,
				CaregiverName: name,
			}
			statMap[v.CaregiverID] = stat
			customersOf[v.CaregiverID] = make(map[uuid.UUID]bool)
		}

		stat.TotalHours += v.EndTime.Sub(v.StartTime).Hours()
		stat.VisitCount++
		customersOf[v.CaregiverID][v.CustomerID] = true

		if isWeekend(v.Date) {
			stat.WeekendVisits++
		}
	}

	result := make([]CaregiverStat, 0, len(statMap))
	for id, stat := range statMap {
		stat.CustomerCount = len(customersOf[id])
		result = append(result, *stat)
	}

	// 按工时排序
	sort.Slice(result, func(i, j int) bool {
		if result[i].TotalHours != result[j].TotalHours {
			return result[i].TotalHours > result[j].TotalHours
		}
		return result[i].CaregiverID.String() < result[j].CaregiverID.String()
	})

	return result
}

// balanceScore 计算综合均衡评分
func (b *BalanceAnalyzer) balanceScore(hoursGini, weekendGini, stdDev, avgHours float64) float64 {
	const (
		hoursWeight   = 0.6
		weekendWeight = 0.2
		stdDevWeight  = 0.2
	)

	// 基尼系数转换为分数 (0=100分, 1=0分)
	hoursScore := (1 - hoursGini) * 100
	weekendScore := (1 - weekendGini) * 100

	// 变异系数越低分数越高
	cvScore := 100.0
	if avgHours > 0 {
		cv := stdDev / avgHours
		cvScore = math.Max(0, 100-cv*200)
	}

	score := hoursWeight*hoursScore + weekendWeight*weekendScore + stdDevWeight*cvScore
	return math.Max(0, math.Min(100, score))
}

// CompareRuns 比较两次优化运行的均衡性
func (b *BalanceAnalyzer) CompareRuns(before, after []*VisitInfo, caregivers []*CaregiverInfo) map[string]float64 {
	m1 := b.Analyze(before, caregivers)
	m2 := b.Analyze(after, caregivers)

	return map[string]float64{
		"hours_gini_diff":      m2.HoursGini - m1.HoursGini,
		"weekend_gini_diff":    m2.WeekendVisitGini - m1.WeekendVisitGini,
		"balance_score_diff":   m2.BalanceScore - m1.BalanceScore,
		"before_balance_score": m1.BalanceScore,
		"after_balance_score":  m2.BalanceScore,
	}
}

// isWeekend 判断是否是周末
func isWeekend(dateStr string) bool {
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return false
	}
	weekday := date.Weekday()
	return weekday == time.Saturday || weekday == time.Sunday
}

// mean 计算平均值
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// varianceOf 计算方差
func varianceOf(values []float64, avg float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - avg
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

// rangeOf 计算极值
func rangeOf(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return
}

// gini 计算基尼系数
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	g := 0.0
	for i, v := range sorted {
		g += (2*float64(i+1) - float64(n) - 1) * v
	}
	g = g / (float64(n) * sum)
	return math.Max(0, math.Min(1, g))
}
