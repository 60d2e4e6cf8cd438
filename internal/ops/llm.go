package ops

import (
	"context"

	"deriveengine/internal/enginerr"
	"deriveengine/internal/model"
)

// llmOperation invokes the model collaborator on a single input, truncating
// to the last ContextWindowLimitChars characters and emitting an
// input_too_large warning when the input overflows (spec §4.8).
func llmOperation() Operation {
	return Operation{
		Name:   "llm",
		Schema: Schema{MinInputs: 1, MaxInputs: 1},
		Execute: func(ctx context.Context, inputs []string, params map[string]interface{}, env Environment) (Result, error) {
			if env.Model == nil {
				return Result{}, enginerr.New(enginerr.KindUnspecifiedOperationFailure, "llm operation invoked with no model collaborator configured")
			}

			prompt, _ := params["prompt"].(string)
			modelName, _ := params["model"].(string)

			input := inputs[0]
			var warnings []model.Warning
			limit := env.ContextWindowLimitChars
			if runes := []rune(input); limit > 0 && len(runes) > limit {
				originalLength := len(runes)
				input = string(runes[len(runes)-limit:])
				warnings = append(warnings, model.NewWarning("input_too_large", map[string]interface{}{
					"input_length": originalLength,
					"limit":        limit,
				}))
			}

			text, outputTokens, err := env.Model.CallLLM(ctx, modelName, prompt, input)
			if err != nil {
				return Result{}, enginerr.Wrap(enginerr.KindOperationResultError, err, "llm call failed for model %q", modelName)
			}

			tokens := outputTokens
			return Result{Output: text, Warnings: warnings, TokensOutput: &tokens}, nil
		},
	}
}
