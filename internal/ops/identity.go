package ops

import "context"

func identityOperation() Operation {
	return Operation{
		Name:   "identity",
		Schema: Schema{MinInputs: 1, MaxInputs: 1},
		Execute: func(ctx context.Context, inputs []string, params map[string]interface{}, env Environment) (Result, error) {
			return Result{Output: inputs[0]}, nil
		},
	}
}
