// Package model 定义护理排班优化器的核心数据模型
package model

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// RunMode 优化运行模式
type RunMode string

const (
	ModeGenerateFresh    RunMode = "generate_fresh"    // 从零生成
	ModeOptimizeExisting RunMode = "optimize_existing" // 优化已有排班
)

// BaseModel 基础模型（包含通用字段）
type BaseModel struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"-" db:"deleted_at"`
}

// NewBaseModel 创建新的基础模型
func NewBaseModel() BaseModel {
	now := time.Now()
	return BaseModel{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TimeRange 时间范围
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration 返回时间范围的持续时间
func (tr TimeRange) Duration() time.Duration {
	return tr.End.Sub(tr.Start)
}

// Overlaps 检查两个时间范围是否重叠
func (tr TimeRange) Overlaps(other TimeRange) bool {
	return tr.Start.Before(other.End) && other.Start.Before(tr.End)
}

// Contains 检查时间范围是否包含某个时间点
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.Start) && t.Before(tr.End)
}

// DateRange 日期范围（含两端）
type DateRange struct {
	StartDate string `json:"start_date"` // YYYY-MM-DD
	EndDate   string `json:"end_date"`   // YYYY-MM-DD
}

// ContainsDate 检查日期是否落在范围内
func (dr DateRange) ContainsDate(date string) bool {
	return date >= dr.StartDate && date <= dr.EndDate
}

// Location 地理位置
type Location struct {
	Address   string  `json:"address,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DistanceMiles 计算两个位置之间的大圆距离（英里）
// 使用 Haversine 公式
func (l Location) DistanceMiles(other Location) float64 {
	const earthRadius = 3958.8 // 地球半径（英里）

	lat1Rad := l.Latitude * math.Pi / 180
	lat2Rad := other.Latitude * math.Pi / 180
	deltaLat := (other.Latitude - l.Latitude) * math.Pi / 180
	deltaLon := (other.Longitude - l.Longitude) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// UnitMinutes 一个服务单元对应的分钟数（15分钟计费粒度）
const UnitMinutes = 15

// UnitsToHours 服务单元数转小时
func UnitsToHours(units int) float64 {
	return float64(units*UnitMinutes) / 60.0
}
