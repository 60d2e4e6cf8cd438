package ops

import (
	"context"

	"deriveengine/internal/enginerr"
)

// fetchURLContentOperation invokes the HTTP collaborator and returns the
// body it fetched (spec §4.8).
func fetchURLContentOperation() Operation {
	return Operation{
		Name:   "fetch_url_content",
		Schema: Schema{MinInputs: 1, MaxInputs: 1},
		Execute: func(ctx context.Context, inputs []string, params map[string]interface{}, env Environment) (Result, error) {
			if env.HTTP == nil {
				return Result{}, enginerr.New(enginerr.KindUnspecifiedOperationFailure, "fetch_url_content operation invoked with no HTTP collaborator configured")
			}
			body, err := env.HTTP.Fetch(ctx, inputs[0])
			if err != nil {
				return Result{}, enginerr.Wrap(enginerr.KindOperationResultError, err, "fetch_url_content failed for %q", inputs[0])
			}
			return Result{Output: string(body)}, nil
		},
	}
}
