package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"biotwin/config"
	"biotwin/models"

	"github.com/apex/log"
	"github.com/sashabaranov/go-openai"
)

// ChatCompleter is the part of *openai.Client the orchestrator needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionStream, error)
}

// Biomarkers is the data source behind the biomarker functions.
type Biomarkers interface {
	FetchOrEmpty(ctx context.Context, endpoint Endpoint, r DateRange) json.RawMessage
}

// TokenStream yields the answer text chunk by chunk. Recv returns io.EOF once
// the answer is complete. A stream can be read only once.
type TokenStream interface {
	Recv() (string, error)
	Close()
}

func NewOpenAIClient(cfg *config.Config) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAIBaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

// Orchestrator answers a conversation in two phases: it first asks the model
// whether biomarker data is needed, fetches it when asked to, and then streams
// the final answer.
type Orchestrator struct {
	llm           ChatCompleter
	biomarkers    Biomarkers
	functionModel string
	chatModel     string
	twinName      string
	now           func() time.Time
}

func NewOrchestrator(cfg *config.Config, llm ChatCompleter, biomarkers Biomarkers) *Orchestrator {
	return &Orchestrator{
		llm:           llm,
		biomarkers:    biomarkers,
		functionModel: cfg.OpenAIFunctionModel,
		chatModel:     cfg.OpenAIChatModel,
		twinName:      cfg.TwinName,
		now:           time.Now,
	}
}

// Plan is the outcome of the intent phase: the model and the messages the
// answer phase will be called with.
type Plan struct {
	Model    string
	Messages []openai.ChatCompletionMessage

	// Function is zero when the model did not ask for data.
	Function BiomarkerFunction
	Range    DateRange
}

func (p *Plan) Augmented() bool {
	return p.Function != 0
}

func (o *Orchestrator) SystemPrompt() string {
	return fmt.Sprintf("You are %[1]s's digital twin, that responds on behalf of %[1]s on questions about his health. "+
		"You have access to his health data through functions. Respond as %[1]s, using 'I'. "+
		"If you don't know the answer say I don't have that information.", o.twinName)
}

func (o *Orchestrator) withSystem(history []models.Message) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: o.SystemPrompt(),
	})
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
			Name:    m.Name,
		})
	}
	return messages
}

// Plan runs the intent phase and, when the model asks for it, the biomarker
// fetch.
func (o *Orchestrator) Plan(ctx context.Context, history []models.Message) (*Plan, error) {
	messages := o.withSystem(history)

	resp, err := o.llm.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     o.functionModel,
		Messages:  messages,
		Functions: FunctionDefinitions(o.twinName, o.now()),
	})
	if err != nil {
		return nil, fmt.Errorf("intent completion failed: %w", err)
	}

	var call *openai.FunctionCall
	if len(resp.Choices) > 0 {
		call = resp.Choices[0].Message.FunctionCall
	}
	if call == nil || call.Arguments == "" {
		log.WithField("model", o.chatModel).Info("chat.intent.none")
		return &Plan{Model: o.chatModel, Messages: messages}, nil
	}

	fn, err := ParseBiomarkerFunction(call.Name)
	if errors.Is(err, ErrUnknownFunction) {
		log.WithError(err).WithField("model", o.chatModel).Warn("chat.intent.unknown_function")
		return &Plan{Model: o.chatModel, Messages: messages}, nil
	}
	if err != nil {
		return nil, err
	}
	r, err := ParseDateRange(call.Arguments)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}

	log.WithFields(log.Fields{
		"function":   fn.String(),
		"start_date": r.StartDate,
		"end_date":   r.EndDate,
	}).Info("chat.intent.function")

	content := "null"
	if data := o.biomarkers.FetchOrEmpty(ctx, fn.Endpoint(), r); data != nil {
		content = string(data)
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleFunction,
		Name:    call.Name,
		Content: content,
	})

	return &Plan{
		Model:    o.functionModel,
		Messages: messages,
		Function: fn,
		Range:    r,
	}, nil
}

// Reply plans the answer and opens the answer stream.
func (o *Orchestrator) Reply(ctx context.Context, history []models.Message) (TokenStream, error) {
	plan, err := o.Plan(ctx, history)
	if err != nil {
		return nil, err
	}

	stream, err := o.llm.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    plan.Model,
		Messages: plan.Messages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("answer completion failed: %w", err)
	}
	return &ReplyStream{stream: stream}, nil
}

// ReplyStream adapts a chat completion stream to TokenStream, skipping chunks
// that carry no text.
type ReplyStream struct {
	stream *openai.ChatCompletionStream
	done   bool
}

func (s *ReplyStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			s.done = true
			if errors.Is(err, io.EOF) {
				return "", io.EOF
			}
			return "", fmt.Errorf("answer stream: %w", err)
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		return resp.Choices[0].Delta.Content, nil
	}
}

func (s *ReplyStream) Close() {
	s.done = true
	s.stream.Close()
}
