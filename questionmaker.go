package topicquiz

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	submitQuestionsTool = "submit_questions"

	quizMasterInstruction = "You are an expert quiz master. Generate high-quality, factual, and engaging " +
		"multiple-choice questions. Every question must have exactly 4 distinct options and exactly one " +
		"correct answer, and the answer must match one of the options word for word."
)

// QuestionMaker generates questions with an OpenAI chat model. It implements Generator.
type QuestionMaker struct {
	client        *openai.Client
	model         string
	transcriptDir string
	logger        *zap.Logger
}

// NewQuestionMaker creates a question maker from the OpenAI section of the config
func NewQuestionMaker(cfg OpenAIConfig, logger *zap.Logger) *QuestionMaker {
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

	return &QuestionMaker{
		client:        openai.NewClientWithConfig(clientCfg),
		model:         model,
		transcriptDir: cfg.TranscriptDir,
		logger:        logger,
	}
}

// GenerateQuestions asks the model for QuestionsPerQuiz questions about category
// and returns the raw JSON array submitted through the tool call
func (qm *QuestionMaker) GenerateQuestions(ctx context.Context, category string) (json.RawMessage, error) {
	prompt := buildPrompt(category)

	transcript := qm.openTranscript(category)
	if transcript != nil {
		defer transcript.Close()
		transcript.LogLLMRequest("QuestionMaker", prompt)
	}

	qm.logger.Debug("requesting questions", zap.String("category", category), zap.String("model", qm.model))

	resp, err := qm.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: qm.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: quizMasterInstruction,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Tools: []openai.Tool{
			{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        submitQuestionsTool,
					Description: "Submit the generated quiz questions",
					Parameters:  questionSchema(),
				},
			},
		},
		ToolChoice: openai.ToolChoice{
			Type: openai.ToolTypeFunction,
			Function: openai.ToolFunction{
				Name: submitQuestionsTool,
			},
		},
	})
	if err != nil {
		if transcript != nil {
			transcript.LogError("QuestionMaker", err)
		}
		return nil, fmt.Errorf("failed to generate questions: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, &ValidationError{Reason: "no response from model"}
	}

	choice := resp.Choices[0]
	if len(choice.Message.ToolCalls) == 0 {
		return nil, &ValidationError{Reason: "no tool calls in response"}
	}

	toolCall := choice.Message.ToolCalls[0]
	if transcript != nil {
		transcript.LogLLMResponse("QuestionMaker", toolCall.Function.Arguments)
	}
	if toolCall.Function.Name != submitQuestionsTool {
		return nil, &ValidationError{Reason: fmt.Sprintf("unexpected tool call: %s", toolCall.Function.Name)}
	}

	var toolArgs struct {
		Questions json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &toolArgs); err != nil {
		return nil, &ValidationError{Reason: "failed to parse tool arguments", Err: err}
	}
	if len(toolArgs.Questions) == 0 {
		return nil, &ValidationError{Reason: "tool arguments carry no questions"}
	}

	return toolArgs.Questions, nil
}

func (qm *QuestionMaker) openTranscript(category string) *LLMLogger {
	if qm.transcriptDir == "" {
		return nil
	}
	transcript, err := NewLLMLogger(qm.transcriptDir, uuid.NewString(), category)
	if err != nil {
		qm.logger.Warn("failed to open transcript", zap.Error(err))
		return nil
	}
	qm.logger.Debug("writing transcript", zap.String("category", category), zap.String("path", transcript.Path()))
	return transcript
}

func buildPrompt(category string) string {
	return fmt.Sprintf(
		"Generate %d multiple choice questions about: %s\n\n"+
			"Requirements:\n"+
			"- Each question must have exactly %d distinct options\n"+
			"- The answer field must repeat the correct option exactly\n"+
			"- Questions must be factual and unambiguous\n"+
			"- Use the %s tool to return your questions\n",
		QuestionsPerQuiz, category, OptionsPerQuestion, submitQuestionsTool,
	)
}

func questionSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"questions": map[string]interface{}{
				"type":     "array",
				"minItems": QuestionsPerQuiz,
				"maxItems": QuestionsPerQuiz,
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"question": map[string]interface{}{
							"type":        "string",
							"description": "The question text",
						},
						"options": map[string]interface{}{
							"type":        "array",
							"minItems":    OptionsPerQuestion,
							"maxItems":    OptionsPerQuestion,
							"items":       map[string]interface{}{"type": "string"},
							"description": "Exactly 4 distinct answer options",
						},
						"answer": map[string]interface{}{
							"type":        "string",
							"description": "The correct option, copied exactly",
						},
					},
					"required": []string{"question", "options", "answer"},
				},
			},
		},
		"required": []string{"questions"},
	}
}
