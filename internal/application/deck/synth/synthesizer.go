// Package synth 将用户的简短描述扩展为完整的演示文稿内容
package synth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/hashicorp/go-multierror"

	"pitchforge-ai-api/internal/domain/entity"
	wfmodel "pitchforge-ai-api/internal/workflow/model"
	wfnode "pitchforge-ai-api/internal/workflow/node"
	apperrors "pitchforge-ai-api/pkg/errors"
	"pitchforge-ai-api/pkg/logger"
	"pitchforge-ai-api/pkg/metrics"
	"pitchforge-ai-api/pkg/retry"
)

// ContentChain 单次模型调用
type ContentChain interface {
	Invoke(ctx context.Context, in *wfmodel.DeckContentInput) (*schema.Message, error)
}

// Config 内容生成配置
type Config struct {
	// MaxAttempts 模型调用总次数上限（含首次）
	MaxAttempts int
	Provider    string
	Model       string
	Temperature *float32
	MaxTokens   *int
	// Retry 退避与单次超时；MaxTries 由 MaxAttempts 决定
	Retry retry.Policy
	// IsTransient 模型调用错误是否可重试
	IsTransient retry.Classifier
}

// Result 内容生成结果
type Result struct {
	Content  *entity.ContentModel
	Repaired []string
	Issues   []string
	Attempts int
	Meta     wfmodel.LLMUsageMeta
}

// Synthesizer 内容生成器
type Synthesizer struct {
	chain     ContentChain
	cfg       Config
	validator *SchemaValidator
}

// New 创建内容生成器
func New(chain ContentChain, cfg Config) (*Synthesizer, error) {
	if chain == nil {
		return nil, fmt.Errorf("content chain is nil")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 2
	}
	v, err := NewSchemaValidator()
	if err != nil {
		return nil, err
	}
	return &Synthesizer{chain: chain, cfg: cfg, validator: v}, nil
}

type attemptOutput struct {
	data     map[string]any
	repaired bool
	msg      *schema.Message
}

// Synthesize 调用模型并修复输出，保证返回的内容模型各字段齐全。
// 模型不可达或多次返回无法解析的内容时返回 ContentGeneration 错误。
func (s *Synthesizer) Synthesize(ctx context.Context, req entity.DeckRequest) (*Result, error) {
	idea := strings.TrimSpace(req.Idea)
	if idea == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "idea is required")
	}

	in := &wfmodel.DeckContentInput{
		Idea:        idea,
		Customer:    req.Customer,
		Region:      req.Region,
		Constraints: req.Constraints,
		Provider:    s.cfg.Provider,
		Model:       s.cfg.Model,
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	}

	policy := s.cfg.Retry
	policy.MaxTries = uint(s.cfg.MaxAttempts)
	policy.IsTransient = func(err error) bool {
		var perr *ParseError
		if errors.As(err, &perr) {
			return true
		}
		return s.cfg.IsTransient != nil && s.cfg.IsTransient(err)
	}

	var attemptErrs *multierror.Error
	attempts := 0
	out, err := retry.Do(ctx, policy, "llm.deck_content", func(ctx context.Context) (*attemptOutput, error) {
		attempts++
		msg, err := s.chain.Invoke(ctx, in)
		if err != nil {
			attemptErrs = multierror.Append(attemptErrs, fmt.Errorf("attempt %d: %w", attempts, err))
			return nil, err
		}
		if msg == nil {
			err = &ParseError{Reason: "empty llm response"}
			attemptErrs = multierror.Append(attemptErrs, fmt.Errorf("attempt %d: %w", attempts, err))
			return nil, err
		}
		data, repairedJSON, err := ParseRaw(msg.Content)
		if err != nil {
			logger.Warn(ctx, "unparseable content output",
				"attempt", attempts,
				"raw", wfnode.ClipForLog(msg.Content, 500),
				"error", err.Error(),
			)
			attemptErrs = multierror.Append(attemptErrs, fmt.Errorf("attempt %d: %w", attempts, err))
			return nil, err
		}
		return &attemptOutput{data: data, repaired: repairedJSON, msg: msg}, nil
	})
	if err != nil {
		cause := attemptErrs.ErrorOrNil()
		if cause == nil {
			cause = err
		}
		return nil, apperrors.Wrap(cause, apperrors.CodeContentGeneration, "content generation failed").
			WithDetail(fmt.Sprintf("%d attempt(s)", attempts))
	}

	issues := s.validator.Issues(out.data)
	content, repaired := Repair(out.data)
	if out.repaired {
		repaired = append([]string{"json_syntax"}, repaired...)
	}
	if len(issues) > 0 || len(repaired) > 0 {
		for _, field := range repaired {
			metrics.DeckContentRepairs.WithLabelValues(repairKind(field)).Inc()
		}
		logger.Warn(ctx, "content output repaired",
			"attempt", attempts,
			"schema_issues", issues,
			"repaired_fields", repaired,
		)
	}

	meta := wfmodel.LLMUsageMeta{
		Provider:    s.cfg.Provider,
		Model:       s.cfg.Model,
		GeneratedAt: time.Now().UTC(),
	}
	if rm := out.msg.ResponseMeta; rm != nil && rm.Usage != nil {
		meta.PromptTokens = rm.Usage.PromptTokens
		meta.CompletionTokens = rm.Usage.CompletionTokens
	}

	return &Result{
		Content:  content,
		Repaired: repaired,
		Issues:   issues,
		Attempts: attempts,
		Meta:     meta,
	}, nil
}

func repairKind(field string) string {
	switch {
	case field == "json_syntax":
		return "json"
	case field == entity.TokenTAM || field == entity.TokenSAM || field == entity.TokenSOM:
		return "market"
	case strings.HasSuffix(field, "_truncated"):
		return "truncate"
	default:
		return "text"
	}
}
