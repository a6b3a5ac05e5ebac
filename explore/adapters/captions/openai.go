package captions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

const (
	DefaultModel = "gpt-4o-mini"

	instructions = "You write short, funny captions for programming memes. " +
		"Answer with the caption only, one line, at most 120 characters."
	prompt = "Write a caption for a meme about a developer who keeps getting distracted by memes."
)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type responsesClient interface {
	New(ctx context.Context, body responses.ResponseNewParams, opts ...option.RequestOption) (*responses.Response, error)
}

// Generator asks an OpenAI compatible Responses endpoint for captions.
type Generator struct {
	client responsesClient
	model  string
}

func New(cfg Config) (*Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai captions: api key is required")
	}
	options := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		options = append(options, option.WithRequestTimeout(cfg.Timeout))
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	client := openai.NewClient(options...)
	return &Generator{client: &client.Responses, model: model}, nil
}

func (g *Generator) Caption(ctx context.Context) (string, error) {
	items := responses.ResponseInputParam{
		responses.ResponseInputItemParamOfMessage(instructions, responses.EasyInputMessageRoleSystem),
		responses.ResponseInputItemParamOfMessage(prompt, responses.EasyInputMessageRoleUser),
	}
	resp, err := g.client.New(ctx, responses.ResponseNewParams{
		Model: g.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: items,
		},
		MaxOutputTokens: openai.Int(60),
	})
	if err != nil {
		return "", fmt.Errorf("openai caption: %w", err)
	}
	caption := strings.Trim(strings.TrimSpace(resp.OutputText()), `"`)
	if caption == "" {
		return "", errors.New("openai caption: empty response")
	}
	return caption, nil
}
