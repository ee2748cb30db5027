package planner

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/clintrovert/lazybird/internal/parser"
	"github.com/clintrovert/lazybird/pkg/types"
)

// maxSteps caps how many proposed steps are kept
const maxSteps = 15

// DefaultTimeout bounds one planning request
const DefaultTimeout = 60 * time.Second

// AIPlanner uses OpenAI to propose implementation steps
type AIPlanner struct {
	client  *openai.Client
	logger  *zap.Logger
	model   string
	timeout time.Duration
}

// NewAIPlanner creates a new AI planner whose requests give up after timeout
func NewAIPlanner(apiKey, model string, timeout time.Duration, logger *zap.Logger) *AIPlanner {
	cfg := openai.DefaultConfig(apiKey)
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return NewAIPlannerWithConfig(cfg, model, timeout, logger)
}

// NewAIPlannerWithConfig creates a planner from a client config, which allows
// pointing it at a compatible endpoint
func NewAIPlannerWithConfig(cfg openai.ClientConfig, model string, timeout time.Duration, logger *zap.Logger) *AIPlanner {
	if model == "" {
		model = openai.GPT4oMini
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &AIPlanner{
		client:  openai.NewClientWithConfig(cfg),
		logger:  logger,
		model:   model,
		timeout: timeout,
	}
}

// Plan asks the model for a numbered step list
func (p *AIPlanner) Plan(ctx context.Context, task *types.QueuedTask) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: p.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: "You are an expert software engineer that breaks issues into short, ordered implementation steps for a coding agent.",
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: p.buildPrompt(task),
				},
			},
			Temperature: 0.2,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from AI")
	}

	steps := p.parseResponse(resp.Choices[0].Message.Content)

	p.logger.Info("generated implementation steps",
		zap.String("project", task.ProjectID),
		zap.Int("issue_id", task.IssueID),
		zap.Int("steps", len(steps)),
	)

	return steps, nil
}

func (p *AIPlanner) buildPrompt(task *types.QueuedTask) string {
	var sb strings.Builder

	sb.WriteString("Create implementation steps for the following issue:\n\n")
	sb.WriteString(fmt.Sprintf("**Issue:** #%d\n", task.IssueID))
	sb.WriteString("**Title:** " + task.Title + "\n")
	sb.WriteString("**Project:** " + task.ProjectName + " (" + task.ProjectType + ")\n")
	sb.WriteString("**Description:**\n" + task.Body + "\n\n")

	if len(task.AcceptanceCriteria) > 0 {
		sb.WriteString("**Acceptance Criteria:**\n")
		for _, criterion := range task.AcceptanceCriteria {
			sb.WriteString(criterion + "\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Respond only with a numbered list, one step per line:\n")
	sb.WriteString("1. <step>\n")
	sb.WriteString("2. ...\n")

	return sb.String()
}

// parseResponse keeps the ordered list items of the reply
func (p *AIPlanner) parseResponse(response string) []string {
	var steps []string
	for _, item := range parser.ListItems(response) {
		if !startsWithDigit(item) {
			continue
		}
		steps = append(steps, item)
		if len(steps) == maxSteps {
			break
		}
	}
	return steps
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}
