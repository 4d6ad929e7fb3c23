package dto

import "farmhub/backend/internal/model"

// ── 种植笔记模块 DTO ──

// CreateNotebookRequest 创建种植笔记请求
// template_id 与 plant_group 二选一：前者直接绑定模板，后者按分组自动匹配
type CreateNotebookRequest struct {
	NotebookName string `json:"notebook_name" binding:"required,min=1,max=100"`
	PlantType    string `json:"plant_type"    binding:"required,min=1,max=100"`
	PlantGroup   string `json:"plant_group"   binding:"omitempty,oneof=leaf_vegetable root_vegetable fruit_short_term fruit_long_term bean_family herb flower_vegetable other"`
	TemplateID   string `json:"template_id"   binding:"omitempty,uuid"`
	PlantedDate  string `json:"planted_date"` // "2026-03-01"，缺省为当天
	Description  string `json:"description"   binding:"omitempty,max=2000"`
	CoverImage   string `json:"cover_image"`
}

// UpdateNotebookRequest 更新种植笔记基本信息请求
type UpdateNotebookRequest struct {
	NotebookName *string `json:"notebook_name" binding:"omitempty,min=1,max=100"`
	Description  *string `json:"description"   binding:"omitempty,max=2000"`
	CoverImage   *string `json:"cover_image"`
	Status       *string `json:"status"        binding:"omitempty,oneof=active archived"`
}

// AssignTemplateRequest 绑定模板请求
type AssignTemplateRequest struct {
	TemplateID string `json:"template_id" binding:"required,uuid"`
}

// CompleteTaskRequest 完成清单任务请求
type CompleteTaskRequest struct {
	TaskName string `json:"task_name" binding:"required"`
}

// UpdateStageRequest 手动推进阶段请求
type UpdateStageRequest struct {
	StageNumber int `json:"stage_number" binding:"required,min=1"`
}

// UpdateObservationRequest 更新观察项请求
type UpdateObservationRequest struct {
	ObservationKey string `json:"observation_key" binding:"required"`
	Value          *bool  `json:"value"           binding:"required"`
}

// NotebookResponse 种植笔记响应
type NotebookResponse struct {
	NotebookID      string               `json:"notebook_id"`
	UserID          string               `json:"user_id"`
	NotebookName    string               `json:"notebook_name"`
	PlantType       string               `json:"plant_type"`
	PlantGroup      string               `json:"plant_group"`
	TemplateID      string               `json:"template_id,omitempty"`
	TemplateName    string               `json:"template_name,omitempty"`
	PlantedDate     string               `json:"planted_date"`
	Status          string               `json:"status"`
	CurrentStage    int                  `json:"current_stage"`
	Progress        int                  `json:"progress"`
	StageCompletion int                  `json:"stage_completion"`
	ElapsedDays     int                  `json:"elapsed_days"`
	CoverImage      string               `json:"cover_image,omitempty"`
	Description     string               `json:"description,omitempty"`
	Images          []string             `json:"images,omitempty"`
	StagesTracking  model.StageTrackings `json:"stages_tracking,omitempty"`
	CreatedAt       string               `json:"created_at"`
	UpdatedAt       string               `json:"updated_at"`
}

// TimelineStageResponse 时间线上一个阶段
type TimelineStageResponse struct {
	StageNumber   int      `json:"stage_number"`
	Name          string   `json:"name"`
	DayStart      int      `json:"day_start"`
	DayEnd        int      `json:"day_end"`
	Weight        int      `json:"weight"`
	Status        string   `json:"status"` // not_started | current | completed | skipped
	StartedAt     string   `json:"started_at,omitempty"`
	CompletedAt   string   `json:"completed_at,omitempty"`
	CoreTaskNames []string `json:"core_task_names,omitempty"`
}

// TimelineResponse 笔记阶段时间线响应
type TimelineResponse struct {
	NotebookID   string                  `json:"notebook_id"`
	TemplateID   string                  `json:"template_id"`
	TemplateName string                  `json:"template_name"`
	PlantedDate  string                  `json:"planted_date"`
	ElapsedDays  int                     `json:"elapsed_days"`
	CurrentStage int                     `json:"current_stage"`
	Progress     int                     `json:"progress"`
	Stages       []TimelineStageResponse `json:"stages"`
}

// ChecklistResponse 当日任务清单响应
type ChecklistResponse struct {
	NotebookID  string                `json:"notebook_id"`
	Date        string                `json:"date"`
	StageNumber int                   `json:"stage_number"`
	StageName   string                `json:"stage_name"`
	Items       []model.ChecklistItem `json:"items"`
}

// ObservationItemResponse 单个观察项的记录状态
type ObservationItemResponse struct {
	Key        string `json:"key"`
	Value      bool   `json:"value"`
	Observed   bool   `json:"observed"` // 是否已记录过该观察项
	ObservedAt string `json:"observed_at,omitempty"`
}

// ObservationStateResponse 当前阶段观察项状态
// stage_advanced 为 true 表示本次更新触发了阶段推进
type ObservationStateResponse struct {
	NotebookID    string                    `json:"notebook_id"`
	StageNumber   int                       `json:"stage_number"`
	Observations  []ObservationItemResponse `json:"observations"`
	StageAdvanced bool                      `json:"stage_advanced"`
}

// CalculateStageResponse 按天数推算阶段响应
type CalculateStageResponse struct {
	NotebookID      string `json:"notebook_id"`
	ElapsedDays     int    `json:"elapsed_days"`
	CalculatedStage int    `json:"calculated_stage"`
	CurrentStage    int    `json:"current_stage"`
}

// ProgressResponse 进度重算响应
type ProgressResponse struct {
	NotebookID      string `json:"notebook_id"`
	Progress        int    `json:"progress"`
	StageCompletion int    `json:"stage_completion"`
}

// [自证通过] internal/dto/notebook.go
