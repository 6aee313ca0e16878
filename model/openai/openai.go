// Package openai provides an implementation of model.Model using the OpenAI
// Chat Completions API with strict JSON-schema structured output. It adapts
// agenttree's ordered message sequence into the SDK's message format and
// returns the raw reply text for schema validation upstream.
package openai

import (
	"context"
	"fmt"

	"github.com/hupe1980/agenttree/core"
	"github.com/hupe1980/agenttree/model"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// Options configure the OpenAI model adapter.
// Fields mirror a subset of Chat Completion parameters intentionally kept
// minimal; extend via functional options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Model wraps the OpenAI Chat Completions API behind the generic model.Model interface.
type Model struct {
	client *openai.Client
	opts   Options
}

// NewModel creates a new OpenAI model using the official client
func NewModel(optFns ...func(o *Options)) *Model {
	client := openai.NewClient()
	return NewModelFromClient(&client, optFns...)
}

// NewModelFromClient creates a new OpenAI model from an existing client
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// Complete implements blocking structured generation. The request schema is
// attached as a strict json_schema response format so the API refuses to
// produce non-conforming output.
func (m *Model) Complete(ctx context.Context, req model.Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(req.Messages),
		Model:               m.resolveModel(req),
		Temperature:         openai.Float(m.opts.Temperature),
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
	}

	if req.Schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   req.SchemaName,
					Schema: req.Schema,
					Strict: openai.Bool(true),
				},
			},
		}
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}

func (m *Model) resolveModel(req model.Request) shared.ChatModel {
	if req.Model != "" {
		return shared.ChatModel(req.Model)
	}
	return shared.ChatModel(m.opts.Model)
}

// buildMessages converts the ordered conversation into OpenAI chat messages.
// Tool results carry no provider call IDs in this protocol, so they are
// rendered as labeled user turns the model can attribute to the tool.
func buildMessages(messages []core.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case core.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case core.RoleUser:
			out = append(out, openai.UserMessage(msg.Content))
		case core.RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		case core.RoleTool:
			out = append(out, openai.UserMessage(fmt.Sprintf("[tool %s] %s", msg.Name, msg.Content)))
		default:
			if msg.Content != "" {
				out = append(out, openai.UserMessage(msg.Content))
			}
		}
	}
	return out
}

// Info returns metadata describing this OpenAI model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:                     m.opts.Model,
		Provider:                 "openai",
		SupportsStructuredOutput: true,
	}
}
