package service

import (
	"context"
	"fmt"

	"choco-chat/internal/config"
	"choco-chat/internal/logger"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
)

type ModelChoice string

const (
	ModelChoco   ModelChoice = "choco"
	ModelGemini  ModelChoice = "gemini"
	ModelChatGPT ModelChoice = "chatgpt"
)

// chocoModel 是默认档位固定使用的快速模型
const chocoModel = "gemini-1.5-flash"

// Provider 按单轮提问生成回复。version 只对允许客户端选版本的档位生效。
type Provider interface {
	Generate(ctx context.Context, prompt, version string) (string, error)
	Label(version string) string
}

type Dispatcher struct {
	qna       *QnAService
	providers map[ModelChoice]Provider
}

func NewDispatcher(qna *QnAService, providers map[ModelChoice]Provider) *Dispatcher {
	return &Dispatcher{qna: qna, providers: providers}
}

// Dispatch 先查自定义问答，命中则原样返回，不再调外部模型。
// 外部调用失败一律折叠成 ErrAIFailure，细节只进日志。
func (d *Dispatcher) Dispatch(ctx context.Context, prompt string, choice ModelChoice, version string) (string, string, error) {
	qa, err := d.qna.Match(ctx, prompt)
	if err != nil {
		logger.Error("ai.qna lookup failed", "err", err)
	} else if qa != nil {
		logger.Info("ai.custom hit", "qna_id", qa.ID)
		return qa.Answer, "Choco AI (Custom)", nil
	}

	p, ok := d.providers[choice]
	if !ok {
		return "", "", ErrInvalidModel
	}

	text, err := p.Generate(ctx, prompt, version)
	if err != nil {
		logger.Error("ai.call failed", "model", string(choice), "version", version, "err", err)
		return "", "", ErrAIFailure
	}
	return text, p.Label(version), nil
}

// NewProviders 在启动时构建三个档位。某个后端初始化失败不阻止启动，
// 对应档位的请求会以通用 AI 错误返回。
func NewProviders(ctx context.Context, cfg config.AIConfig) map[ModelChoice]Provider {
	providers := make(map[ModelChoice]Provider, 3)

	gemini, err := googleai.New(ctx, googleai.WithAPIKey(cfg.GeminiAPIKey), googleai.WithDefaultModel(chocoModel))
	if err != nil {
		logger.Warn("gemini client init failed", "err", err)
		providers[ModelChoco] = &unavailableProvider{label: "Choco AI (Gemini)", err: err}
		providers[ModelGemini] = &unavailableProvider{label: "Gemini", err: err}
	} else {
		providers[ModelChoco] = &geminiProvider{llm: gemini, fixed: chocoModel, label: "Choco AI (Gemini)"}
		providers[ModelGemini] = &geminiProvider{llm: gemini}
	}

	chatgpt, err := openai.New(openai.WithToken(cfg.OpenAIAPIKey))
	if err != nil {
		logger.Warn("openai client init failed", "err", err)
		providers[ModelChatGPT] = &unavailableProvider{label: "ChatGPT", err: err}
	} else {
		providers[ModelChatGPT] = &openaiProvider{llm: chatgpt}
	}

	return providers
}

type geminiProvider struct {
	llm   *googleai.GoogleAI
	fixed string
	label string
}

func (p *geminiProvider) Generate(ctx context.Context, prompt, version string) (string, error) {
	m := p.fixed
	if m == "" {
		m = version
	}
	return llms.GenerateFromSinglePrompt(ctx, p.llm, prompt, llms.WithModel(m))
}

func (p *geminiProvider) Label(version string) string {
	if p.label != "" {
		return p.label
	}
	return fmt.Sprintf("Gemini (%s)", version)
}

type openaiProvider struct{ llm *openai.LLM }

func (p *openaiProvider) Generate(ctx context.Context, prompt, version string) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, p.llm, prompt, llms.WithModel(version))
}

func (p *openaiProvider) Label(version string) string {
	return fmt.Sprintf("ChatGPT (%s)", version)
}

type unavailableProvider struct {
	label string
	err   error
}

func (p *unavailableProvider) Generate(ctx context.Context, prompt, version string) (string, error) {
	return "", fmt.Errorf("provider not configured: %w", p.err)
}

func (p *unavailableProvider) Label(version string) string {
	if version != "" {
		return fmt.Sprintf("%s (%s)", p.label, version)
	}
	return p.label
}
