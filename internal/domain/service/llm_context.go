// Package service 提供跨层共享的 LLM 调用上下文
package service

import (
	"context"
	"strings"
)

type llmCtxKey string

const (
	llmCtxKeyWorkflow llmCtxKey = "llm_workflow"
	llmCtxKeyProvider llmCtxKey = "llm_provider"
)

const unknown = "unknown"

// WithWorkflow 标记当前 LLM 调用所属的工作流，用于指标标签
func WithWorkflow(ctx context.Context, workflow string) context.Context {
	return withValue(ctx, llmCtxKeyWorkflow, workflow)
}

// WithProvider 标记当前 LLM 调用的提供商
func WithProvider(ctx context.Context, provider string) context.Context {
	return withValue(ctx, llmCtxKeyProvider, provider)
}

// WithWorkflowProvider 同时设置工作流和提供商
func WithWorkflowProvider(ctx context.Context, workflow, provider string) context.Context {
	return WithProvider(WithWorkflow(ctx, workflow), provider)
}

// WorkflowFromContext 未设置时返回 "unknown"
func WorkflowFromContext(ctx context.Context) string {
	return valueOf(ctx, llmCtxKeyWorkflow)
}

// ProviderFromContext 未设置时返回 "unknown"
func ProviderFromContext(ctx context.Context) string {
	return valueOf(ctx, llmCtxKeyProvider)
}

func withValue(ctx context.Context, key llmCtxKey, v string) context.Context {
	v = strings.TrimSpace(v)
	if ctx == nil || v == "" {
		return ctx
	}
	return context.WithValue(ctx, key, v)
}

func valueOf(ctx context.Context, key llmCtxKey) string {
	if ctx == nil {
		return unknown
	}
	s, ok := ctx.Value(key).(string)
	if !ok || strings.TrimSpace(s) == "" {
		return unknown
	}
	return s
}
