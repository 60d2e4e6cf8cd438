// Package ops is the operation registry (C4): pluggable pure functions
// over ordered input strings, each with an arity schema enforced before
// execution (spec §4.5 step 1, §4.8).
package ops

import (
	"context"
	"sync"

	"deriveengine/internal/enginerr"
	"deriveengine/internal/model"
)

// ModelCaller is the model collaborator surface an operation may invoke
// (spec §6's call_llm contract), kept narrow so this package never
// imports the genai SDK directly.
type ModelCaller interface {
	CallLLM(ctx context.Context, modelName, systemPrompt, userPrompt string) (text string, outputTokens int, err error)
}

// Fetcher is the HTTP collaborator surface an operation may invoke.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Environment carries every collaborator and build-time constant an
// operation executor might need.
type Environment struct {
	Model                   ModelCaller
	HTTP                    Fetcher
	ContextWindowLimitChars int
}

// Result is an operation's output (spec §4.8): an output string (on
// success), structured warnings, and an optional output-token count for
// LLM-like operations.
type Result struct {
	Output       string
	Warnings     []model.Warning
	TokensOutput *int
}

// Schema bounds an operation's input arity. MaxInputs < 0 means unbounded.
type Schema struct {
	MinInputs int
	MaxInputs int
}

func (s Schema) allows(n int) bool {
	if n < s.MinInputs {
		return false
	}
	if s.MaxInputs >= 0 && n > s.MaxInputs {
		return false
	}
	return true
}

// Executor is a pure function over ordered input strings, operation
// params, and the collaborator environment.
type Executor func(ctx context.Context, inputs []string, params map[string]interface{}, env Environment) (Result, error)

// Operation pairs a name with its arity schema and executor.
type Operation struct {
	Name    string
	Schema  Schema
	Execute Executor
}

// Registry is a mutex-protected operation lookup table. New operations
// plug in via Register; no change to the evaluator is required (spec
// §4.8's closing line).
type Registry struct {
	mu         sync.RWMutex
	operations map[string]Operation
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{operations: make(map[string]Operation)}
}

// NewDefaultRegistry returns a registry pre-populated with the core
// operation set of spec §4.8.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(identityOperation())
	r.Register(concatOperation())
	r.Register(constantForTestingOperation())
	r.Register(llmOperation())
	r.Register(fetchURLContentOperation())
	return r
}

// Register adds or replaces an operation by name.
func (r *Registry) Register(op Operation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operations[op.Name] = op
}

// Get looks up an operation by name.
func (r *Registry) Get(name string) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.operations[name]
	return op, ok
}

// ValidateArity checks that name is registered and that its schema allows
// inputCount inputs, without resolving or executing anything. The
// evaluator calls this against a recipe's raw input count before
// resolving any input (spec §4.5 step 1 runs before step 2), so an
// arity-invalid recipe reports invalid_input_arity/unsupported_operation
// even when one of its inputs would otherwise fail to resolve.
func (r *Registry) ValidateArity(name string, inputCount int) error {
	op, ok := r.Get(name)
	if !ok {
		return enginerr.New(enginerr.KindUnsupportedOperation, "no operation registered for %q", name)
	}
	if !op.Schema.allows(inputCount) {
		return enginerr.New(enginerr.KindInvalidInputArity, "operation %q received %d inputs, schema requires min=%d max=%d", name, inputCount, op.Schema.MinInputs, op.Schema.MaxInputs)
	}
	return nil
}

// Execute validates inputs against name's schema and, if valid, runs its
// executor. Returns unsupported_operation or invalid_input_arity as
// structural errors when validation fails (spec §4.5 step 1).
func (r *Registry) Execute(ctx context.Context, name string, inputs []string, params map[string]interface{}, env Environment) (Result, error) {
	if err := r.ValidateArity(name, len(inputs)); err != nil {
		return Result{}, err
	}
	op, _ := r.Get(name)
	return op.Execute(ctx, inputs, params, env)
}
