package main

import (
	"context"
	"sync"

	"deriveengine/internal/config"
	"deriveengine/internal/llmclient"
)

// lazyModelCaller defers constructing the real llm collaborator until the
// first llm operation actually invokes it. This keeps the CLI usable for
// derivations built entirely from operations that never touch the model
// collaborator (identity, concat, constant_for_testing, fetch_url_content),
// matching the operation registry's per-operation independence (spec
// §4.8): a recipe that never uses the llm operation should not need an API
// key configured at all.
type lazyModelCaller struct {
	cfg config.LLMConfig

	once   sync.Once
	client *llmclient.Client
	err    error
}

func newLazyModelCaller(cfg config.LLMConfig) *lazyModelCaller {
	return &lazyModelCaller{cfg: cfg}
}

func (l *lazyModelCaller) CallLLM(ctx context.Context, modelName, systemPrompt, userPrompt string) (string, int, error) {
	l.once.Do(func() {
		l.client, l.err = llmclient.New(l.cfg)
	})
	if l.err != nil {
		return "", 0, l.err
	}
	return l.client.CallLLM(ctx, modelName, systemPrompt, userPrompt)
}
