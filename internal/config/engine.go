package config

// EngineConfig configures planner/evaluator behavior not dictated per-call.
type EngineConfig struct {
	// ContextWindowLimitChars truncates llm operation inputs; operations
	// that exceed it emit a truncation warning rather than failing.
	ContextWindowLimitChars int `yaml:"context_window_limit_chars"`

	// SCCMaxIterations is the number of Jacobi iterations run over a
	// mutually-recursive derivation group when a compute request sets none;
	// the group is unrolled exactly that many times and convergence is not
	// checked.
	SCCMaxIterations int `yaml:"scc_max_iterations"`

	// SCCSeedPolicy is either "empty" or "last_cache".
	SCCSeedPolicy string `yaml:"scc_seed_policy"`
}
