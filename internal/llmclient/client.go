// Package llmclient implements the model collaborator (spec §6) backing the
// llm operation: call_llm({model, system_prompt, user_prompt}, config) ->
// {text, usage{output_tokens}}.
package llmclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"deriveengine/internal/config"
	"deriveengine/internal/logging"

	"google.golang.org/genai"
)

// minRequestInterval is the minimum spacing enforced between outbound API
// calls, mirroring the rate-limit courtesy delay used elsewhere against this
// same family of APIs.
const minRequestInterval = 100 * time.Millisecond

const maxRetries = 3

// Client calls the Gemini API through the genai SDK on behalf of the llm
// operation, satisfying ops.ModelCaller.
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration

	mu          sync.Mutex
	lastRequest time.Time
}

// New creates a Client from LLM configuration.
func New(cfg config.LLMConfig) (*Client, error) {
	timer := logging.StartTimer(logging.CategoryLLM, "llmclient.New")
	defer timer.Stop()

	if cfg.APIKey == "" {
		logging.LLMError("API key is required but not provided")
		return nil, fmt.Errorf("llm: API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		logging.LLMError("failed to create genai client: %v", err)
		return nil, fmt.Errorf("llm: failed to create genai client: %w", err)
	}

	timeout := 120 * time.Second
	if d, err := time.ParseDuration(cfg.Timeout); err == nil && d > 0 {
		timeout = d
	}

	logging.LLM("model collaborator ready: model=%s timeout=%v", model, timeout)

	return &Client{client: client, model: model, timeout: timeout}, nil
}

// CallLLM sends one system/user prompt pair to the configured model and
// returns the generated text and its output token count. modelName overrides
// the client's default model when non-empty, matching the llm operation's
// per-recipe model parameter.
func (c *Client) CallLLM(ctx context.Context, modelName, systemPrompt, userPrompt string) (string, int, error) {
	timer := logging.StartTimer(logging.CategoryLLM, "llmclient.CallLLM")
	defer timer.Stop()

	model := modelName
	if model == "" {
		model = c.model
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.throttle()

	contents := []*genai.Content{
		genai.NewContentFromText(userPrompt, genai.RoleUser),
	}
	genConfig := &genai.GenerateContentConfig{}
	if systemPrompt != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	logging.LLMDebug("CallLLM: model=%s system_len=%d user_len=%d", model, len(systemPrompt), len(userPrompt))

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			logging.LLMWarn("CallLLM: retrying after error (attempt %d/%d, backoff %v): %v", attempt, maxRetries, backoff, lastErr)
			select {
			case <-ctx.Done():
				return "", 0, fmt.Errorf("llm: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		result, err := c.client.Models.GenerateContent(ctx, model, contents, genConfig)
		if err != nil {
			lastErr = err
			continue
		}

		text := result.Text()
		outputTokens := 0
		if result.UsageMetadata != nil {
			outputTokens = int(result.UsageMetadata.CandidatesTokenCount)
		}

		logging.LLM("CallLLM: completed, output_chars=%d output_tokens=%d", len(text), outputTokens)
		return text, outputTokens, nil
	}

	logging.LLMError("CallLLM: exhausted %d retries: %v", maxRetries, lastErr)
	return "", 0, fmt.Errorf("llm: call failed after %d retries: %w", maxRetries, lastErr)
}

func (c *Client) throttle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := time.Since(c.lastRequest)
	if elapsed < minRequestInterval {
		time.Sleep(minRequestInterval - elapsed)
	}
	c.lastRequest = time.Now()
}
