// Package template 复制母版并执行占位符替换
package template

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"pitchforge-ai-api/internal/domain/entity"
	"pitchforge-ai-api/internal/domain/gateway"
	apperrors "pitchforge-ai-api/pkg/errors"
	"pitchforge-ai-api/pkg/logger"
	"pitchforge-ai-api/pkg/textrun"
)

// Documents 实例化所需的文档能力
type Documents interface {
	gateway.TemplateCloner
	gateway.TextEditor
}

// Report 一次替换的结果
type Report struct {
	// Resolved 实际替换的占位符出现次数
	Resolved int `json:"resolved"`
	// PerToken 每个占位符的替换次数
	PerToken map[string]int `json:"per_token"`
	// Unused 表中有、模板中未出现的占位符
	Unused []string `json:"unused,omitempty"`
	// Unresolved 替换后仍留在文档中的已知占位符
	Unresolved []string `json:"unresolved,omitempty"`
	// Unknown 模板引用了、表中没有的占位符，原样保留，仅作记录
	Unknown []string `json:"unknown,omitempty"`
}

// Clean 表中的占位符都已替换；Unknown 不影响结果
func (r *Report) Clean() bool {
	return r != nil && len(r.Unresolved) == 0
}

// Instantiator 母版实例化器
type Instantiator struct {
	docs     Documents
	masterID string
	delims   textrun.Delimiters
}

// NewInstantiator 创建实例化器
func NewInstantiator(docs Documents, masterID string, delims textrun.Delimiters) *Instantiator {
	if delims.Open == "" || delims.Close == "" {
		delims = textrun.DefaultDelimiters
	}
	return &Instantiator{docs: docs, masterID: masterID, delims: delims}
}

// Instantiate 复制母版，返回仅属于本次请求的副本
func (i *Instantiator) Instantiate(ctx context.Context, title string) (*entity.TemplateHandle, error) {
	if strings.TrimSpace(i.masterID) == "" {
		return nil, apperrors.New(apperrors.CodeCloneFailed, "template clone failed").
			WithDetail("master template id is not configured")
	}
	docID, err := i.docs.Clone(ctx, i.masterID, title)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCloneFailed, "template clone failed").
			WithDetail(fmt.Sprintf("master %s", i.masterID))
	}
	if docID == "" {
		return nil, apperrors.New(apperrors.CodeCloneFailed, "template clone failed").
			WithDetail("backend returned an empty document id")
	}
	logger.Debug(ctx, "template cloned", "master_id", i.masterID, "document_id", docID)
	return &entity.TemplateHandle{DocumentID: docID, MasterID: i.masterID, Title: title}, nil
}

// Substitute 以一次批量请求替换全部占位符，然后回读文档校验。
// 残留的已知占位符（后端跳过的）会使副本不可导出；表中没有的占位符保持原样，只记录在报告中。
// 对已替换过的文档重复执行不会产生新的替换。
func (i *Instantiator) Substitute(ctx context.Context, h *entity.TemplateHandle, table *entity.PlaceholderTable) (*Report, error) {
	if h == nil || h.DocumentID == "" {
		return nil, apperrors.New(apperrors.CodeSubstitutionFailed, "placeholder substitution failed").
			WithDetail("no template handle")
	}

	entries := table.Entries()
	reps := make([]gateway.Replacement, 0, len(entries))
	for _, e := range entries {
		reps = append(reps, gateway.Replacement{
			Find:    i.delims.Wrap(e.Token),
			Replace: i.delims.Defuse(e.Value),
		})
	}

	counts, err := i.docs.ReplaceAllText(ctx, h.DocumentID, reps)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeSubstitutionFailed, "placeholder substitution failed").
			WithDetail("batch replace rejected")
	}

	report := &Report{PerToken: make(map[string]int, len(entries))}
	for _, e := range entries {
		n := counts[i.delims.Wrap(e.Token)]
		report.PerToken[e.Token] = n
		report.Resolved += n
		if n == 0 {
			report.Unused = append(report.Unused, e.Token)
		}
	}

	frames, err := i.docs.TextFrames(ctx, h.DocumentID)
	if err != nil {
		return report, apperrors.Wrap(err, apperrors.CodeSubstitutionFailed, "placeholder substitution failed").
			WithDetail("verification read failed")
	}
	report.Unresolved, report.Unknown = i.leftovers(frames, table)

	if len(report.Unknown) > 0 {
		logger.Info(ctx, "template references tokens outside the table",
			"document_id", h.DocumentID,
			"unknown", report.Unknown,
		)
	}
	if !report.Clean() {
		logger.Warn(ctx, "placeholders left in document",
			"document_id", h.DocumentID,
			"unresolved", report.Unresolved,
		)
		return report, apperrors.New(apperrors.CodeSubstitutionFailed, "placeholder substitution failed").
			WithDetail("unresolved: " + strings.Join(report.Unresolved, ","))
	}
	return report, nil
}

// leftovers 扫描文档文本中残留的占位符，区分表中已知与未知
func (i *Instantiator) leftovers(frames []entity.TextFrame, table *entity.PlaceholderTable) (unresolved, unknown []string) {
	seen := make(map[string]struct{})
	for _, f := range frames {
		for _, name := range i.delims.Scan(f.Text) {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			if table.Has(name) {
				unresolved = append(unresolved, name)
			} else {
				unknown = append(unknown, name)
			}
		}
	}
	sort.Strings(unresolved)
	sort.Strings(unknown)
	return unresolved, unknown
}
