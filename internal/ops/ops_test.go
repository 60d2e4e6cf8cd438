package ops

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"deriveengine/internal/enginerr"
)

type fakeModel struct {
	text         string
	outputTokens int
	err          error
	lastInput    string
}

func (f *fakeModel) CallLLM(ctx context.Context, modelName, systemPrompt, userPrompt string) (string, int, error) {
	f.lastInput = userPrompt
	if f.err != nil {
		return "", 0, f.err
	}
	return f.text, f.outputTokens, nil
}

type fakeFetcher struct {
	body []byte
	err  error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f.body, f.err
}

func TestIdentity(t *testing.T) {
	r := NewDefaultRegistry()
	res, err := r.Execute(context.Background(), "identity", []string{"hello"}, nil, Environment{})
	require.NoError(t, err)
	require.Equal(t, "hello", res.Output)
}

func TestIdentity_WrongArity(t *testing.T) {
	r := NewDefaultRegistry()
	_, err := r.Execute(context.Background(), "identity", []string{"a", "b"}, nil, Environment{})
	require.True(t, enginerr.Is(err, enginerr.KindInvalidInputArity))
}

func TestConcat(t *testing.T) {
	r := NewDefaultRegistry()
	res, err := r.Execute(context.Background(), "concat", []string{"a", "b", "c"}, nil, Environment{})
	require.NoError(t, err)
	require.Equal(t, "a\nb\nc", res.Output)
}

func TestConcat_RequiresAtLeastTwo(t *testing.T) {
	r := NewDefaultRegistry()
	_, err := r.Execute(context.Background(), "concat", []string{"a"}, nil, Environment{})
	require.True(t, enginerr.Is(err, enginerr.KindInvalidInputArity))
}

func TestConstantForTesting(t *testing.T) {
	r := NewDefaultRegistry()
	res, err := r.Execute(context.Background(), "constant_for_testing", nil, map[string]interface{}{"value": "fixed"}, Environment{})
	require.NoError(t, err)
	require.Equal(t, "fixed", res.Output)
}

func TestUnsupportedOperation(t *testing.T) {
	r := NewDefaultRegistry()
	_, err := r.Execute(context.Background(), "does_not_exist", []string{"x"}, nil, Environment{})
	require.True(t, enginerr.Is(err, enginerr.KindUnsupportedOperation))
}

func TestLLM_PassesInputThrough(t *testing.T) {
	r := NewDefaultRegistry()
	fm := &fakeModel{text: "response text", outputTokens: 42}
	env := Environment{Model: fm, ContextWindowLimitChars: 1000}

	res, err := r.Execute(context.Background(), "llm", []string{"short input"}, map[string]interface{}{
		"prompt": "summarize", "model": "gemini-2.5-flash",
	}, env)
	require.NoError(t, err)
	require.Equal(t, "response text", res.Output)
	require.NotNil(t, res.TokensOutput)
	require.Equal(t, 42, *res.TokensOutput)
	require.Empty(t, res.Warnings)
	require.Equal(t, "short input", fm.lastInput)
}

func TestLLM_TruncatesToLastNChars(t *testing.T) {
	r := NewDefaultRegistry()
	fm := &fakeModel{text: "ok", outputTokens: 1}
	limit := 10
	env := Environment{Model: fm, ContextWindowLimitChars: limit}

	input := strings.Repeat("x", limit) + "OVERFLOW"
	res, err := r.Execute(context.Background(), "llm", []string{input}, map[string]interface{}{}, env)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	require.Equal(t, "input_too_large", res.Warnings[0]["type"])
	require.Equal(t, len(input), res.Warnings[0]["input_length"])
	require.Equal(t, limit, res.Warnings[0]["limit"])
	require.Equal(t, input[len(input)-limit:], fm.lastInput)
	require.Len(t, fm.lastInput, limit)
}

func TestLLM_NoCollaboratorConfigured(t *testing.T) {
	r := NewDefaultRegistry()
	_, err := r.Execute(context.Background(), "llm", []string{"x"}, nil, Environment{})
	require.True(t, enginerr.Is(err, enginerr.KindUnspecifiedOperationFailure))
}

func TestLLM_CollaboratorError(t *testing.T) {
	r := NewDefaultRegistry()
	fm := &fakeModel{err: errors.New("rate limited")}
	_, err := r.Execute(context.Background(), "llm", []string{"x"}, nil, Environment{Model: fm})
	require.True(t, enginerr.Is(err, enginerr.KindOperationResultError))
}

func TestFetchURLContent(t *testing.T) {
	r := NewDefaultRegistry()
	ff := &fakeFetcher{body: []byte("<html>hi</html>")}
	res, err := r.Execute(context.Background(), "fetch_url_content", []string{"https://example.com"}, nil, Environment{HTTP: ff})
	require.NoError(t, err)
	require.Equal(t, "<html>hi</html>", res.Output)
}

func TestFetchURLContent_NoCollaboratorConfigured(t *testing.T) {
	r := NewDefaultRegistry()
	_, err := r.Execute(context.Background(), "fetch_url_content", []string{"https://example.com"}, nil, Environment{})
	require.True(t, enginerr.Is(err, enginerr.KindUnspecifiedOperationFailure))
}

func TestFetchURLContent_CollaboratorError(t *testing.T) {
	r := NewDefaultRegistry()
	ff := &fakeFetcher{err: errors.New("connection refused")}
	_, err := r.Execute(context.Background(), "fetch_url_content", []string{"https://example.com"}, nil, Environment{HTTP: ff})
	require.True(t, enginerr.Is(err, enginerr.KindOperationResultError))
}

func TestRegister_CustomOperation(t *testing.T) {
	r := NewRegistry()
	r.Register(Operation{
		Name:   "uppercase",
		Schema: Schema{MinInputs: 1, MaxInputs: 1},
		Execute: func(ctx context.Context, inputs []string, params map[string]interface{}, env Environment) (Result, error) {
			return Result{Output: strings.ToUpper(inputs[0])}, nil
		},
	})
	res, err := r.Execute(context.Background(), "uppercase", []string{"abc"}, nil, Environment{})
	require.NoError(t, err)
	require.Equal(t, "ABC", res.Output)
}
