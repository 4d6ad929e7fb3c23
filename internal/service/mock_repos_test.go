package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"farmhub/backend/internal/model"
	"farmhub/backend/internal/repository"
	pkgerrors "farmhub/backend/pkg/errors"
)

// ── Mock Repositories ──

type mockTemplateRepo struct {
	templates  map[string]*model.PlantTemplate
	usageCount map[string]int
	failGet    bool // 模拟数据库故障
}

func newMockTemplateRepo() *mockTemplateRepo {
	return &mockTemplateRepo{
		templates:  make(map[string]*model.PlantTemplate),
		usageCount: make(map[string]int),
	}
}

func (m *mockTemplateRepo) GetByID(_ context.Context, id string) (*model.PlantTemplate, error) {
	if m.failGet {
		return nil, errors.New("db down")
	}
	if t, ok := m.templates[id]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTemplateRepo) List(_ context.Context, plantGroup, status string) ([]model.PlantTemplate, error) {
	var result []model.PlantTemplate
	for _, t := range m.templates {
		if plantGroup != "" && t.PlantGroup != plantGroup {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		result = append(result, *t)
	}
	return result, nil
}

func (m *mockTemplateRepo) FindActiveByGroup(_ context.Context, plantGroup string) (*model.PlantTemplate, error) {
	var best *model.PlantTemplate
	for _, t := range m.templates {
		if t.PlantGroup != plantGroup || t.Status != "active" {
			continue
		}
		if best == nil || t.UsageCount > best.UsageCount {
			best = t
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *best
	return &copied, nil
}

func (m *mockTemplateRepo) IncrementUsage(_ context.Context, id string) error {
	m.usageCount[id]++
	return nil
}

type mockNotebookRepo struct {
	notebooks  map[string]*model.Notebook
	failUpdate bool // 模拟单条记录更新失败
	updates    int
}

func newMockNotebookRepo() *mockNotebookRepo {
	return &mockNotebookRepo{notebooks: make(map[string]*model.Notebook)}
}

func (m *mockNotebookRepo) Create(_ context.Context, notebook *model.Notebook) error {
	if notebook.NotebookID == "" {
		notebook.NotebookID = fmt.Sprintf("notebook-%d", len(m.notebooks)+1)
	}
	if notebook.Version == 0 {
		notebook.Version = 1
	}
	copied := *notebook
	m.notebooks[notebook.NotebookID] = &copied
	return nil
}

func (m *mockNotebookRepo) GetByID(_ context.Context, id string) (*model.Notebook, error) {
	if n, ok := m.notebooks[id]; ok && n.Status != model.NotebookStatusDeleted {
		copied := *n
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockNotebookRepo) GetByIDForUser(_ context.Context, id, userID string) (*model.Notebook, error) {
	if n, ok := m.notebooks[id]; ok && n.UserID == userID && n.Status != model.NotebookStatusDeleted {
		copied := *n
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockNotebookRepo) ListByUser(_ context.Context, userID string) ([]model.Notebook, error) {
	var result []model.Notebook
	for _, n := range m.notebooks {
		if n.UserID == userID && n.Status != model.NotebookStatusDeleted {
			result = append(result, *n)
		}
	}
	return result, nil
}

func (m *mockNotebookRepo) ListActiveWithTemplate(_ context.Context) ([]model.Notebook, error) {
	var result []model.Notebook
	for _, n := range m.notebooks {
		if n.Status == model.NotebookStatusActive && n.TemplateID != nil {
			result = append(result, *n)
		}
	}
	return result, nil
}

// Update 模拟乐观锁行为：版本不匹配返回 ErrOptimisticLock
func (m *mockNotebookRepo) Update(_ context.Context, notebook *model.Notebook) error {
	if m.failUpdate {
		return errors.New("db down")
	}
	stored, ok := m.notebooks[notebook.NotebookID]
	if !ok || stored.Version != notebook.Version {
		return pkgerrors.ErrOptimisticLock
	}
	notebook.Version++
	copied := *notebook
	m.notebooks[notebook.NotebookID] = &copied
	m.updates++
	return nil
}

type mockNotificationRepo struct {
	notifications []model.Notification
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{}
}

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	if n.NotificationID == "" {
		n.NotificationID = fmt.Sprintf("notification-%d", len(m.notifications)+1)
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	m.notifications = append(m.notifications, *n)
	return nil
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, offset, limit int) ([]model.Notification, int64, error) {
	var all []model.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			all = append(all, n)
		}
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockNotificationRepo) CountUnread(_ context.Context, userID string) (int64, error) {
	var count int64
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, userID string, ids []string) error {
	now := time.Now()
	for i := range m.notifications {
		n := &m.notifications[i]
		if n.UserID != userID {
			continue
		}
		for _, id := range ids {
			if n.NotificationID == id {
				n.IsRead = true
				n.ReadAt = &now
			}
		}
	}
	return nil
}

func (m *mockNotificationRepo) ExistsRecent(_ context.Context, notebookID, notifType string, stageNumber int, since time.Time) (bool, error) {
	for _, n := range m.notifications {
		if n.NotebookID == notebookID && n.Type == notifType &&
			n.Metadata.StageNumber == stageNumber && !n.IsRead && !n.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockNotificationRepo) DeleteReadBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []model.Notification
	var deleted int64
	for _, n := range m.notifications {
		if n.IsRead && n.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, n)
	}
	m.notifications = kept
	return deleted, nil
}

// byType 按类型收集通知（测试断言用）
func (m *mockNotificationRepo) byType(notifType string) []model.Notification {
	var result []model.Notification
	for _, n := range m.notifications {
		if n.Type == notifType {
			result = append(result, n)
		}
	}
	return result
}

// ── 测试夹具 ──

// newTestRepository 组装全 mock 的 Repository 聚合
func newTestRepository() (*repository.Repository, *mockTemplateRepo, *mockNotebookRepo, *mockNotificationRepo) {
	templateRepo := newMockTemplateRepo()
	notebookRepo := newMockNotebookRepo()
	notificationRepo := newMockNotificationRepo()
	repo := &repository.Repository{
		Template:     templateRepo,
		Notebook:     notebookRepo,
		Notification: notificationRepo,
	}
	return repo, templateRepo, notebookRepo, notificationRepo
}

// newTestTemplate 三阶段测试模板：1-10 / 11-20 / 21-30 天，权重 30/30/40
func newTestTemplate() *model.PlantTemplate {
	return &model.PlantTemplate{
		TemplateID:   "template-1",
		TemplateName: "番茄标准模板",
		PlantGroup:   model.PlantGroupFruitShortTerm,
		Status:       "active",
		Version:      1,
		Stages: model.StageDefinitions{
			{
				StageNumber:   1,
				Name:          "发芽期",
				DayStart:      1,
				DayEnd:        10,
				Weight:        30,
				SafeDelayDays: 3,
				AutoSkip:      true,
				CoreTasks: []model.CoreTask{
					{Name: "浇水", Priority: "high", Frequency: model.FrequencyDaily},
					{Name: "检查湿度", Priority: "medium", Frequency: model.FrequencyEvery2Days},
				},
				ObservationKeys: []string{"seed_sprouted"},
			},
			{
				StageNumber:   2,
				Name:          "生长期",
				DayStart:      11,
				DayEnd:        20,
				Weight:        30,
				SafeDelayDays: 5,
				AutoSkip:      false,
				CoreTasks: []model.CoreTask{
					{Name: "浇水", Priority: "high", Frequency: model.FrequencyDaily},
					{Name: "施肥", Priority: "medium", Frequency: model.FrequencyWeekly},
				},
				ObservationKeys: []string{"true_leaves", "stem_thickened"},
			},
			{
				StageNumber:   3,
				Name:          "结果期",
				DayStart:      21,
				DayEnd:        30,
				Weight:        40,
				SafeDelayDays: 7,
				AutoSkip:      true,
				CoreTasks: []model.CoreTask{
					{Name: "浇水", Priority: "high", Frequency: model.FrequencyDaily},
				},
			},
		},
	}
}

// newTestNotebook 绑定测试模板的活跃笔记，种植于 daysAgo 天前（种植当天为第 1 天）
func newTestNotebook(daysAgo int) *model.Notebook {
	templateID := "template-1"
	startedAt := time.Now().AddDate(0, 0, -daysAgo+1)
	return &model.Notebook{
		NotebookID:     "notebook-1",
		UserID:         "user-1",
		NotebookName:   "阳台番茄",
		PlantType:      "番茄",
		PlantGroup:     model.PlantGroupFruitShortTerm,
		TemplateID:     &templateID,
		PlantedDate:    time.Now().AddDate(0, 0, -daysAgo+1),
		Status:         model.NotebookStatusActive,
		CurrentStage:   1,
		VersionedModel: model.VersionedModel{Version: 1},
		StagesTracking: model.StageTrackings{
			{StageNumber: 1, StageName: "发芽期", StartedAt: &startedAt, IsCurrent: true},
		},
	}
}

// [自证通过] internal/service/mock_repos_test.go
