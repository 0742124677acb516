// Package llm is the gateway to the external completion provider.
//
// The provider is stateless per call, so every request carries the full
// ordered message history, not just the latest user message. The gateway
// normalizes provider failures into two stable shapes: ErrUpstreamAuth when
// the provider rejects our credentials (a deployment problem an operator can
// act on) and ErrUpstream for everything else, with the provider's own
// message passed through verbatim as the cause.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/chatstack/go-chat-api/internal/domain"
)

// ErrUpstream wraps any completion-provider failure that is not an
// authentication problem. The wrapped cause is the upstream's own message.
var ErrUpstream = errors.New("completion provider failed")

// ErrUpstreamAuth marks upstream credential rejection (401/403). It is kept
// distinct so operators can tell a misconfigured deployment apart from
// arbitrary upstream failures.
var ErrUpstreamAuth = errors.New("completion provider rejected credentials")

// Completer produces an assistant reply for an ordered message history.
// Implementations must honor ctx for cancellation and deadlines.
type Completer interface {
	Complete(ctx context.Context, history []domain.ChatMessage) (string, error)
}

// OpenAIClient is the production Completer backed by the OpenAI
// chat-completions API.
type OpenAIClient struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAI constructs the gateway. baseURL may be empty for the default
// endpoint; a non-empty value points the client at a proxy, a regional
// deployment, or a test server. timeout is the ceiling for a single
// upstream call.
func NewOpenAI(apiKey, baseURL, model string, timeout time.Duration) *OpenAIClient {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(2)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{
		client:  openai.NewClient(opts...),
		model:   model,
		timeout: timeout,
	}
}

// Complete sends the full ordered history and returns the assistant reply.
func (c *OpenAIClient) Complete(ctx context.Context, history []domain.ChatMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, span := otel.Tracer("llm").Start(ctx, "chat.completion",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.model", c.model),
			attribute.Int("llm.history_size", len(history)),
		),
	)
	defer span.End()

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case domain.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	res, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    c.model,
	})
	if err != nil {
		mapped := mapUpstreamError(err)
		span.SetStatus(codes.Error, mapped.Error())
		return "", mapped
	}
	if len(res.Choices) == 0 {
		err := fmt.Errorf("%w: empty choices in response", ErrUpstream)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return res.Choices[0].Message.Content, nil
}

// mapUpstreamError translates provider errors into the local taxonomy.
func mapUpstreamError(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		if apierr.StatusCode == 401 || apierr.StatusCode == 403 {
			return fmt.Errorf("%w: upstream returned %d, check the configured API key", ErrUpstreamAuth, apierr.StatusCode)
		}
		return fmt.Errorf("%w: %s", ErrUpstream, apierr.Error())
	}
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}
