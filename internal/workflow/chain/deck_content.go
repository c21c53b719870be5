package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	llmctx "pitchforge-ai-api/internal/domain/service"
	wfmodel "pitchforge-ai-api/internal/workflow/model"
	wfnode "pitchforge-ai-api/internal/workflow/node"
	workflowport "pitchforge-ai-api/internal/workflow/port"
	workflowprompt "pitchforge-ai-api/internal/workflow/prompt"
	"pitchforge-ai-api/pkg/logger"
)

// WorkflowDeckContent 内容生成工作流名，用于指标与追踪
const WorkflowDeckContent = "deck_content_generate"

// 可选输入为空时写入提示词的默认值
const (
	DefaultCustomer    = "General"
	DefaultRegion      = "Global"
	DefaultConstraints = "None"
)

var defaultPromptRegistry = workflowprompt.NewRegistry()

type DeckContentChain struct {
	factory workflowport.ChatModelFactory

	chainOnce sync.Once
	chain     compose.Runnable[*wfmodel.DeckContentInput, *schema.Message]
	chainErr  error
}

func NewDeckContentChain(factory workflowport.ChatModelFactory) *DeckContentChain {
	return &DeckContentChain{factory: factory}
}

// Invoke 执行一次模型调用：Prompt 渲染 -> LLM (Structured Output) -> 原始消息
func (c *DeckContentChain) Invoke(ctx context.Context, in *wfmodel.DeckContentInput) (*schema.Message, error) {
	if c == nil || c.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}

	chain, err := c.getChain()
	if err != nil {
		return nil, err
	}
	return chain.Invoke(ctx, in)
}

type deckContentChainState struct {
	In       *wfmodel.DeckContentInput
	Messages []*schema.Message
	OutMsg   *schema.Message
}

func (c *DeckContentChain) getChain() (compose.Runnable[*wfmodel.DeckContentInput, *schema.Message], error) {
	c.chainOnce.Do(func() {
		c.chain, c.chainErr = c.buildChain(context.Background())
	})
	return c.chain, c.chainErr
}

func (c *DeckContentChain) buildChain(ctx context.Context) (compose.Runnable[*wfmodel.DeckContentInput, *schema.Message], error) {
	chain := compose.NewChain[*wfmodel.DeckContentInput, *schema.Message]()

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, in *wfmodel.DeckContentInput) (*deckContentChainState, error) {
			if in == nil {
				return nil, fmt.Errorf("input is nil")
			}
			return &deckContentChainState{In: in}, nil
		}),
		compose.WithNodeName("deck_content.init"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *deckContentChainState) (*deckContentChainState, error) {
			if st == nil || st.In == nil {
				return nil, fmt.Errorf("state is nil")
			}
			msgs, err := FormatDeckContentMessages(ctx, st.In)
			if err != nil {
				return nil, err
			}
			st.Messages = msgs
			return st, nil
		}),
		compose.WithNodeName("deck_content.template"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *deckContentChainState) (*deckContentChainState, error) {
			if st == nil || st.In == nil {
				return nil, fmt.Errorf("state is nil")
			}

			provider := strings.TrimSpace(st.In.Provider)
			if provider == "" {
				provider = c.factory.DefaultProvider()
			}
			ctx = llmctx.WithWorkflowProvider(ctx, WorkflowDeckContent, provider)
			chatModel, err := c.factory.Get(ctx, provider)
			if err != nil {
				return nil, err
			}

			outMsg, err := chatModel.Generate(ctx, st.Messages, buildDeckContentModelOptions(st.In, true)...)
			if err != nil && wfnode.IsStructuredOutputUnsupported(err) {
				logger.Warn(ctx, "llm json_schema not supported, fallback to prompt-only",
					"provider", provider,
					"model", strings.TrimSpace(st.In.Model),
					"error", err.Error(),
				)
				outMsg, err = chatModel.Generate(ctx, st.Messages, buildDeckContentModelOptions(st.In, false)...)
			}
			if err != nil {
				return nil, err
			}
			if outMsg == nil {
				return nil, fmt.Errorf("empty llm response")
			}
			st.OutMsg = outMsg
			return st, nil
		}),
		compose.WithNodeName("deck_content.llm"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, st *deckContentChainState) (*schema.Message, error) {
			if st == nil || st.OutMsg == nil {
				return nil, fmt.Errorf("state is nil")
			}
			return st.OutMsg, nil
		}),
		compose.WithNodeName("deck_content.finalize"),
	)

	return chain.Compile(ctx)
}

// FormatDeckContentMessages 渲染内容生成提示词，可选字段为空时使用默认值
func FormatDeckContentMessages(ctx context.Context, in *wfmodel.DeckContentInput) ([]*schema.Message, error) {
	tpl, err := defaultPromptRegistry.ChatTemplate(workflowprompt.PromptDeckContentV1)
	if err != nil {
		return nil, err
	}
	schemaJSON, err := json.MarshalIndent(wfmodel.DeckContentJSONSchema(), "", "  ")
	if err != nil {
		return nil, err
	}
	vars := map[string]any{
		"idea":        strings.TrimSpace(in.Idea),
		"customer":    orDefault(in.Customer, DefaultCustomer),
		"region":      orDefault(in.Region, DefaultRegion),
		"constraints": orDefault(in.Constraints, DefaultConstraints),
		"schema_json": string(schemaJSON),
	}
	return tpl.Format(ctx, vars)
}

func orDefault(v, def string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return def
}

func buildDeckContentModelOptions(in *wfmodel.DeckContentInput, enableSchema bool) []model.Option {
	opts := make([]model.Option, 0, 4)
	if in == nil {
		return opts
	}
	if in.Temperature != nil {
		opts = append(opts, model.WithTemperature(*in.Temperature))
	}
	if in.MaxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*in.MaxTokens))
	}
	if strings.TrimSpace(in.Model) != "" {
		opts = append(opts, model.WithModel(strings.TrimSpace(in.Model)))
	}

	if enableSchema {
		opts = append(opts, openaiopts.WithExtraFields(map[string]any{
			"response_format": map[string]any{
				"type": "json_schema",
				"json_schema": map[string]any{
					"name":   "deck_content",
					"strict": false,
					"schema": wfmodel.DeckContentJSONSchema(),
				},
			},
		}))
	}

	return opts
}
