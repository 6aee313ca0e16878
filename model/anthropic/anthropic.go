// Package anthropic provides a model wrapper for the Anthropic Claude API.
//
// The Messages API has no response_format parameter, so schema conformance is
// requested through an appended system instruction carrying the serialized
// schema. The reply text is returned verbatim; strict validation happens in
// the protocol decoder, which rejects anything non-conforming.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/hupe1980/agenttree/core"
	"github.com/hupe1980/agenttree/model"
)

// Options configures the Anthropic model adapter (temperature, model id,
// max tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Model wraps the Anthropic Messages API behind the generic model.Model interface.
type Model struct {
	client *anthropic.Client
	opts   Options
}

// NewModel creates a new Anthropic model using the official client
func NewModel(optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Model{
		client: &client,
		opts:   opts,
	}
}

// NewModelFromClient creates a new Anthropic model from an existing client
func NewModelFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Model{
		client: client,
		opts:   opts,
	}
}

// Complete implements blocking structured generation against the Messages API.
func (m *Model) Complete(ctx context.Context, req model.Request) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       m.resolveModel(req),
		Messages:    buildMessages(req.Messages),
		MaxTokens:   m.opts.MaxTokens,
		Temperature: anthropic.Float(m.opts.Temperature),
	}

	systemBlocks, err := buildSystem(req)
	if err != nil {
		return "", err
	}
	if len(systemBlocks) > 0 {
		params.System = systemBlocks
	}

	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.AsText().Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("no text content returned")
	}

	return text, nil
}

func (m *Model) resolveModel(req model.Request) anthropic.Model {
	if req.Model != "" {
		return anthropic.Model(req.Model)
	}
	return m.opts.Model
}

// buildSystem collects system messages and appends the schema instruction.
func buildSystem(req model.Request) ([]anthropic.TextBlockParam, error) {
	var blocks []anthropic.TextBlockParam

	for _, msg := range req.Messages {
		if msg.Role == core.RoleSystem && msg.Content != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: msg.Content})
		}
	}

	if req.Schema != nil {
		schemaJSON, err := json.Marshal(req.Schema)
		if err != nil {
			return nil, fmt.Errorf("marshal response schema: %w", err)
		}
		blocks = append(blocks, anthropic.TextBlockParam{
			Text: fmt.Sprintf(
				"Respond with a single JSON object conforming to this JSON schema, with no surrounding text or markdown:\n%s",
				schemaJSON,
			),
		})
	}

	return blocks, nil
}

// buildMessages converts the ordered conversation to Anthropic message format.
// System messages are handled separately; tool results become labeled user turns.
func buildMessages(messages []core.Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam

	for _, msg := range messages {
		switch msg.Role {
		case core.RoleSystem:
			continue
		case core.RoleAssistant:
			if msg.Content != "" {
				out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
			}
		case core.RoleTool:
			out = append(out, anthropic.NewUserMessage(
				anthropic.NewTextBlock(fmt.Sprintf("[tool %s] %s", msg.Name, msg.Content)),
			))
		default:
			if msg.Content != "" {
				out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
			}
		}
	}

	return out
}

// Info returns metadata describing this Anthropic model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:                     string(m.opts.Model),
		Provider:                 "anthropic",
		SupportsStructuredOutput: false,
	}
}
