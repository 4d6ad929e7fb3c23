package dto

import "farmhub/backend/internal/model"

// ── 通知模块 DTO ──

// NotificationResponse 通知响应
type NotificationResponse struct {
	NotificationID string                     `json:"notification_id"`
	NotebookID     string                     `json:"notebook_id"`
	Type           string                     `json:"type"`
	Title          string                     `json:"title"`
	Message        string                     `json:"message"`
	Metadata       model.NotificationMetadata `json:"metadata"`
	IsRead         bool                       `json:"is_read"`
	ReadAt         string                     `json:"read_at,omitempty"`
	CreatedAt      string                     `json:"created_at"`
}

// MarkReadRequest 批量标记已读请求
type MarkReadRequest struct {
	NotificationIDs []string `json:"notification_ids" binding:"required,min=1,dive,uuid"`
}

// UnreadCountResponse 未读数量响应
type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

// ── 巡检模块 DTO ──

// SweepSummaryResponse 一轮巡检结果汇总
type SweepSummaryResponse struct {
	Checked      int `json:"checked"`
	Transitioned int `json:"transitioned"`
	Warned       int `json:"warned"`
	Errors       int `json:"errors"`
}

// ReminderSummaryResponse 一轮任务提醒结果汇总
type ReminderSummaryResponse struct {
	Checked  int `json:"checked"`
	Reminded int `json:"reminded"`
	Errors   int `json:"errors"`
}

// [自证通过] internal/dto/notification.go
