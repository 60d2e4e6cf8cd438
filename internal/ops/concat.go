package ops

import (
	"context"
	"strings"
)

func concatOperation() Operation {
	return Operation{
		Name:   "concat",
		Schema: Schema{MinInputs: 2, MaxInputs: -1},
		Execute: func(ctx context.Context, inputs []string, params map[string]interface{}, env Environment) (Result, error) {
			return Result{Output: strings.Join(inputs, "\n")}, nil
		},
	}
}
