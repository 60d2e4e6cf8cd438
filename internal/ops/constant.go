package ops

import "context"

// constantForTestingOperation ignores its inputs entirely and returns the
// fixed string given by params["value"], used to exercise cache
// idempotence without a real collaborator (spec §4.8).
func constantForTestingOperation() Operation {
	return Operation{
		Name:   "constant_for_testing",
		Schema: Schema{MinInputs: 0, MaxInputs: -1},
		Execute: func(ctx context.Context, inputs []string, params map[string]interface{}, env Environment) (Result, error) {
			value, _ := params["value"].(string)
			return Result{Output: value}, nil
		},
	}
}
