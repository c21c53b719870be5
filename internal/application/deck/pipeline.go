// Package deck 演示文稿生成流水线：内容生成 -> 占位符表 -> 母版实例化 -> 图表同步 -> 导出
package deck

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"pitchforge-ai-api/internal/application/deck/chart"
	"pitchforge-ai-api/internal/application/deck/placeholder"
	"pitchforge-ai-api/internal/application/deck/synth"
	"pitchforge-ai-api/internal/application/deck/template"
	"pitchforge-ai-api/internal/domain/entity"
	"pitchforge-ai-api/internal/domain/gateway"
	apperrors "pitchforge-ai-api/pkg/errors"
	"pitchforge-ai-api/pkg/logger"
	"pitchforge-ai-api/pkg/metrics"
	"pitchforge-ai-api/pkg/tracer"
)

// MimePPTX 导出格式
const MimePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

var mimeExtensions = map[string]string{
	MimePPTX:           "pptx",
	"application/pdf":  "pdf",
	"application/json": "json",
}

// ContentSynthesizer 内容生成阶段
type ContentSynthesizer interface {
	Synthesize(ctx context.Context, req entity.DeckRequest) (*synth.Result, error)
}

// TemplateInstantiator 母版实例化阶段
type TemplateInstantiator interface {
	Instantiate(ctx context.Context, title string) (*entity.TemplateHandle, error)
	Substitute(ctx context.Context, h *entity.TemplateHandle, table *entity.PlaceholderTable) (*template.Report, error)
}

// ChartSynchronizer 图表同步阶段
type ChartSynchronizer interface {
	Sync(ctx context.Context, h *entity.TemplateHandle, market entity.MarketSize) (*chart.Report, error)
}

// StageStatus 单个阶段的执行结果
type StageStatus struct {
	Stage      apperrors.Stage `json:"stage"`
	Status     string          `json:"status"`
	DurationMs int64           `json:"duration_ms"`
	Error      string          `json:"error,omitempty"`
}

// Summary 流水线执行摘要
type Summary struct {
	PlaceholdersResolved int             `json:"placeholders_resolved"`
	ChartsRefreshed      int             `json:"charts_refreshed"`
	ContentAttempts      int             `json:"content_attempts"`
	RepairedFields       []string        `json:"repaired_fields,omitempty"`
	UnusedTokens         []string        `json:"unused_tokens,omitempty"`
	UnresolvedTokens     []string        `json:"unresolved_tokens,omitempty"`
	UnknownTokens        []string        `json:"unknown_tokens,omitempty"`
	Stages               []StageStatus   `json:"stages"`
	FailedStage          apperrors.Stage `json:"failed_stage,omitempty"`
}

// Result 流水线产出。失败时 Artifact 为空，其余字段保留已完成阶段的信息
type Result struct {
	Artifact     *entity.ExportArtifact
	Content      *entity.ContentModel
	Placeholders *entity.PlaceholderTable
	Handle       *entity.TemplateHandle
	Substitution *template.Report
	Charts       *chart.Report
	Synthesis    *synth.Result
	Summary      Summary
}

// Pipeline 导出协调器：严格按顺序执行各阶段，任一阶段失败立即返回该阶段的原始错误。
// 协调器自身不做重试，重试由各阶段的远程调用负责。
type Pipeline struct {
	content  ContentSynthesizer
	template TemplateInstantiator
	charts   ChartSynchronizer
	exporter gateway.Exporter
	mimeType string
}

// NewPipeline 创建流水线
func NewPipeline(content ContentSynthesizer, tmpl TemplateInstantiator, charts ChartSynchronizer, exporter gateway.Exporter, mimeType string) *Pipeline {
	if mimeType == "" {
		mimeType = MimePPTX
	}
	return &Pipeline{
		content:  content,
		template: tmpl,
		charts:   charts,
		exporter: exporter,
		mimeType: mimeType,
	}
}

// Run 执行完整流水线
func (p *Pipeline) Run(ctx context.Context, req entity.DeckRequest) (res *Result, err error) {
	ctx, span := tracer.Start(ctx, "deck.pipeline")
	start := time.Now()
	res = &Result{}
	defer func() {
		status := "success"
		if err != nil {
			status = "failed"
			res.Summary.FailedStage = failedStage(err)
		}
		metrics.DeckPipelineTotal.WithLabelValues(status, string(res.Summary.FailedStage)).Inc()
		tracer.End(span, err)
		logger.Info(ctx, "deck pipeline finished",
			"status", status,
			"failed_stage", res.Summary.FailedStage,
			"placeholders_resolved", res.Summary.PlaceholdersResolved,
			"charts_refreshed", res.Summary.ChartsRefreshed,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}()

	if err = p.runContent(ctx, req, res); err != nil {
		return res, err
	}

	if err = p.stage(ctx, res, apperrors.StagePlaceholder, func(context.Context) error {
		res.Placeholders = placeholder.Map(res.Content)
		return nil
	}); err != nil {
		return res, err
	}

	if err = p.stage(ctx, res, apperrors.StageClone, func(ctx context.Context) error {
		h, err := p.template.Instantiate(ctx, CopyTitle(res.Content.CompanyName))
		if err != nil {
			return err
		}
		res.Handle = h
		logger.Info(ctx, "template instantiated",
			"document_id", h.DocumentID,
			"master_id", h.MasterID,
			"title", h.Title,
		)
		return nil
	}); err != nil {
		return res, err
	}
	ctx = logger.WithContext(ctx, logger.DocumentKey, res.Handle.DocumentID)

	if err = p.stage(ctx, res, apperrors.StageSubstitution, func(ctx context.Context) error {
		report, err := p.template.Substitute(ctx, res.Handle, res.Placeholders)
		res.Substitution = report
		if report != nil {
			res.Summary.PlaceholdersResolved = report.Resolved
			res.Summary.UnusedTokens = report.Unused
			res.Summary.UnresolvedTokens = report.Unresolved
			res.Summary.UnknownTokens = report.Unknown
		}
		return err
	}); err != nil {
		return res, err
	}
	metrics.DeckPlaceholdersResolved.Observe(float64(res.Summary.PlaceholdersResolved))

	if err = p.stage(ctx, res, apperrors.StageChartSync, func(ctx context.Context) error {
		report, err := p.charts.Sync(ctx, res.Handle, res.Content.Market)
		res.Charts = report
		if report != nil {
			res.Summary.ChartsRefreshed = report.ChartsRefreshed
		}
		return err
	}); err != nil {
		return res, err
	}
	metrics.DeckChartsRefreshed.Add(float64(res.Summary.ChartsRefreshed))

	if err = p.stage(ctx, res, apperrors.StageExport, func(ctx context.Context) error {
		data, err := p.exporter.Export(ctx, res.Handle.DocumentID, p.mimeType)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeExportFailed, "deck export failed").
				WithDetail("mime " + p.mimeType)
		}
		if len(data) == 0 {
			return apperrors.New(apperrors.CodeExportFailed, "deck export failed").
				WithDetail("backend returned an empty file")
		}
		res.Artifact = &entity.ExportArtifact{
			Data:     data,
			MimeType: p.mimeType,
			FileName: entity.DeckFileName(res.Content.CompanyName, extensionFor(p.mimeType)),
		}
		return nil
	}); err != nil {
		return res, err
	}

	return res, nil
}

// Preview 只执行内容生成与占位符映射，不触碰文档后端
func (p *Pipeline) Preview(ctx context.Context, req entity.DeckRequest) (*Result, error) {
	res := &Result{}
	if err := p.runContent(ctx, req, res); err != nil {
		return res, err
	}
	res.Placeholders = placeholder.Map(res.Content)
	return res, nil
}

func (p *Pipeline) runContent(ctx context.Context, req entity.DeckRequest, res *Result) error {
	return p.stage(ctx, res, apperrors.StageContent, func(ctx context.Context) error {
		out, err := p.content.Synthesize(ctx, req)
		if err != nil {
			return err
		}
		res.Synthesis = out
		res.Content = out.Content
		res.Summary.ContentAttempts = out.Attempts
		res.Summary.RepairedFields = out.Repaired
		return nil
	})
}

// stage 在阶段开始前检查取消，记录耗时、追踪与日志
func (p *Pipeline) stage(ctx context.Context, res *Result, stage apperrors.Stage, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		res.Summary.Stages = append(res.Summary.Stages, StageStatus{Stage: stage, Status: "skipped", Error: err.Error()})
		return apperrors.Wrap(err, apperrors.CodeCanceled, "pipeline canceled").
			WithDetail("before stage " + string(stage))
	}

	ctx, span := tracer.Start(ctx, "deck.stage."+string(stage))
	start := time.Now()
	logger.Debug(ctx, "deck stage started", "stage", stage)

	err := fn(ctx)
	elapsed := time.Since(start)

	status := StageStatus{Stage: stage, Status: "success", DurationMs: elapsed.Milliseconds()}
	if err != nil {
		status.Status = "failed"
		status.Error = err.Error()
	}
	res.Summary.Stages = append(res.Summary.Stages, status)
	metrics.DeckStageDuration.WithLabelValues(string(stage), status.Status).Observe(elapsed.Seconds())
	tracer.End(span, err)

	if err != nil {
		logger.Error(ctx, "deck stage failed", err, "stage", stage, "duration_ms", status.DurationMs)
		return err
	}
	logger.Debug(ctx, "deck stage finished", "stage", stage, "duration_ms", status.DurationMs)
	return nil
}

// CopyTitle 副本标题：<company> Pitch Deck <short-id>
func CopyTitle(company string) string {
	company = strings.TrimSpace(company)
	if company == "" {
		company = synth.DefaultCompanyName
	}
	return company + " Pitch Deck " + strings.SplitN(uuid.NewString(), "-", 2)[0]
}

func extensionFor(mimeType string) string {
	if ext, ok := mimeExtensions[mimeType]; ok {
		return ext
	}
	return "bin"
}

// failedStage 取阶段错误对应的阶段；取消等非阶段错误返回空
func failedStage(err error) apperrors.Stage {
	if s := apperrors.StageOf(err); s != "" {
		return s
	}
	if appErr := apperrors.AsAppError(err); appErr.Code == apperrors.CodeCanceled {
		return "canceled"
	}
	return ""
}
