package topicquiz

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const evaluateQuestionsTool = "evaluate_questions"

// Review actions
const (
	ActionAccept = "accept"
	ActionReject = "reject"
)

// Verdict is the reviewer's decision on one question
type Verdict struct {
	Index  int    `json:"index"` // 1-based position in the set
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// QuestionChecker reviews generated questions with a second model call and
// rejects sets with wrong answers, giveaways or off-topic questions. It
// implements Reviewer.
type QuestionChecker struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewQuestionChecker creates a question checker from the OpenAI section of the config
func NewQuestionChecker(cfg OpenAIConfig, logger *zap.Logger) *QuestionChecker {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &QuestionChecker{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		logger: logger,
	}
}

// ReviewQuestions returns a *ValidationError naming the first rejected question
func (qc *QuestionChecker) ReviewQuestions(ctx context.Context, category string, questions QuestionSet) error {
	verdicts, err := qc.evaluate(ctx, category, questions)
	if err != nil {
		return err
	}

	for _, v := range verdicts {
		qc.logger.Debug("question reviewed",
			zap.String("category", category),
			zap.Int("index", v.Index),
			zap.String("action", v.Action),
			zap.String("reason", v.Reason),
		)
	}

	for _, v := range verdicts {
		if v.Action == ActionReject {
			return &ValidationError{Reason: fmt.Sprintf("question %d rejected by review: %s", v.Index, v.Reason)}
		}
	}
	return nil
}

func (qc *QuestionChecker) evaluate(ctx context.Context, category string, questions QuestionSet) ([]Verdict, error) {
	resp, err := qc.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: qc.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an expert quiz question validator. Evaluate questions for quality, clarity, and fairness.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildReviewPrompt(category, questions),
			},
		},
		Tools: []openai.Tool{
			{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        evaluateQuestionsTool,
					Description: "Accept or reject each quiz question",
					Parameters:  verdictSchema(),
				},
			},
		},
		ToolChoice: openai.ToolChoice{
			Type: openai.ToolTypeFunction,
			Function: openai.ToolFunction{
				Name: evaluateQuestionsTool,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check questions: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, &ValidationError{Reason: "no response from reviewer"}
	}
	choice := resp.Choices[0]
	if len(choice.Message.ToolCalls) == 0 {
		return nil, &ValidationError{Reason: "no tool calls in review"}
	}

	toolCall := choice.Message.ToolCalls[0]
	if toolCall.Function.Name != evaluateQuestionsTool {
		return nil, &ValidationError{Reason: fmt.Sprintf("unexpected tool call: %s", toolCall.Function.Name)}
	}

	var toolArgs struct {
		Verdicts []Verdict `json:"verdicts"`
	}
	if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &toolArgs); err != nil {
		return nil, &ValidationError{Reason: "failed to parse review", Err: err}
	}
	return toolArgs.Verdicts, nil
}

func buildReviewPrompt(category string, questions QuestionSet) string {
	var sb strings.Builder

	sb.WriteString("Evaluate the following quiz questions:\n\n")
	sb.WriteString(fmt.Sprintf("Quiz Topic: %s\n\n", category))

	for i, q := range questions {
		sb.WriteString(fmt.Sprintf("Question %d: %s\n", i+1, q.Text))
		for _, o := range q.Options {
			marker := " "
			if o == q.Answer {
				marker = "*"
			}
			sb.WriteString(fmt.Sprintf("  %s %s\n", marker, o))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("The option marked * is the intended correct answer.\n\n")
	sb.WriteString("Reject a question when:\n")
	sb.WriteString("- the marked answer is not actually correct\n")
	sb.WriteString("- the answer appears in the question text or the text gives it away\n")
	sb.WriteString("- the question is not about the quiz topic\n")
	sb.WriteString("- more than one option could reasonably be correct\n\n")
	sb.WriteString("Accept everything else. Mediocre but correct questions should be accepted.\n")
	sb.WriteString(fmt.Sprintf("Use the %s tool with one verdict per question.", evaluateQuestionsTool))

	return sb.String()
}

func verdictSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"verdicts": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"index": map[string]interface{}{
							"type":        "integer",
							"description": "1-based question number",
						},
						"action": map[string]interface{}{
							"type":        "string",
							"enum":        []string{ActionAccept, ActionReject},
							"description": "What to do with this question",
						},
						"reason": map[string]interface{}{
							"type":        "string",
							"description": "Explanation for the decision",
						},
					},
					"required": []string{"index", "action", "reason"},
				},
			},
		},
		"required": []string{"verdicts"},
	}
}
