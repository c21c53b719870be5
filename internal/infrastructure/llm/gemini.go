package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash-lite"

// GeminiConfig Gemini ChatModel 配置
type GeminiConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// GeminiChatModel 基于 google.golang.org/genai 的 Eino ChatModel 适配
// 总是请求 application/json 输出
type GeminiChatModel struct {
	client *genai.Client
	cfg    GeminiConfig
}

var _ model.BaseChatModel = (*GeminiChatModel)(nil)

// NewGeminiChatModel 创建 Gemini ChatModel
func NewGeminiChatModel(ctx context.Context, cfg *GeminiConfig) (*GeminiChatModel, error) {
	if cfg == nil || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	c := *cfg
	if c.Model == "" {
		c.Model = defaultGeminiModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  c.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if c.Timeout > 0 {
		clientCfg.HTTPOptions.Timeout = &c.Timeout
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiChatModel{client: client, cfg: c}, nil
}

// GetType 组件类型名
func (g *GeminiChatModel) GetType() string {
	return "Gemini"
}

// IsCallbacksEnabled 由组件自行触发回调
func (g *GeminiChatModel) IsCallbacksEnabled() bool {
	return true
}

// Generate 单次生成
func (g *GeminiChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (outMsg *schema.Message, err error) {
	options := model.GetCommonOptions(&model.Options{
		Model:       &g.cfg.Model,
		MaxTokens:   &g.cfg.MaxTokens,
		Temperature: &g.cfg.Temperature,
	}, opts...)

	cbCfg := &model.Config{
		Model:       derefString(options.Model),
		MaxTokens:   derefInt(options.MaxTokens),
		Temperature: derefFloat32(options.Temperature),
	}

	ctx = callbacks.EnsureRunInfo(ctx, g.GetType(), components.ComponentOfChatModel)
	ctx = callbacks.OnStart(ctx, &model.CallbackInput{Messages: input, Config: cbCfg})
	defer func() {
		if err != nil {
			callbacks.OnError(ctx, err)
		}
	}()

	system, contents := toGenaiContents(input)
	genCfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if system != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if cbCfg.Temperature > 0 {
		genCfg.Temperature = genai.Ptr(cbCfg.Temperature)
	}
	if cbCfg.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(cbCfg.MaxTokens)
	}
	if len(options.Stop) > 0 {
		genCfg.StopSequences = options.Stop
	}

	resp, err := g.client.Models.GenerateContent(ctx, cbCfg.Model, contents, genCfg)
	if err != nil {
		return nil, err
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("gemini returned empty content")
	}

	outMsg = &schema.Message{
		Role:    schema.Assistant,
		Content: text,
	}
	var usage *model.TokenUsage
	if resp.UsageMetadata != nil {
		usage = &model.TokenUsage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
		outMsg.ResponseMeta = &schema.ResponseMeta{
			Usage: &schema.TokenUsage{
				PromptTokens:     usage.PromptTokens,
				CompletionTokens: usage.CompletionTokens,
				TotalTokens:      usage.TotalTokens,
			},
		}
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		if outMsg.ResponseMeta == nil {
			outMsg.ResponseMeta = &schema.ResponseMeta{}
		}
		outMsg.ResponseMeta.FinishReason = string(resp.Candidates[0].FinishReason)
	}

	callbacks.OnEnd(ctx, &model.CallbackOutput{
		Message:    outMsg,
		Config:     cbCfg,
		TokenUsage: usage,
	})
	return outMsg, nil
}

// Stream 以单帧流返回完整结果
func (g *GeminiChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := g.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// toGenaiContents 拆出系统提示，其余消息按角色转换
func toGenaiContents(input []*schema.Message) (string, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(input))
	for _, m := range input {
		if m == nil {
			continue
		}
		switch m.Role {
		case schema.System:
			system = append(system, m.Content)
		case schema.Assistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return strings.Join(system, "\n\n"), contents
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func derefFloat32(p *float32) float32 {
	if p == nil {
		return 0
	}
	return *p
}
