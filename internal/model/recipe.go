package model

// InputKind tags the variant of an InputDescriptor (spec §3).
type InputKind string

const (
	InputContent          InputKind = "content"
	InputConstant         InputKind = "constant"
	InputPinnedPath       InputKind = "pinned_path"
	InputDerivation       InputKind = "derivation"
	InputComputedStep     InputKind = "computed_step"
	InputInternalStepLink InputKind = "internal_step_link"
)

// InputDescriptor is a tagged-variant recipe leaf. Exactly one of the
// kind-specific fields is populated, selected by Kind. computed_step is
// the external-only form (present before flattening); internal_step_link
// is its resolved, persisted replacement.
type InputDescriptor struct {
	Kind InputKind `json:"kind"`

	Hash         Hash        `json:"hash,omitempty"`          // content
	Value        string      `json:"value,omitempty"`         // constant
	Path         string      `json:"path,omitempty"`          // pinned_path
	DerivationID string      `json:"derivation_id,omitempty"` // derivation
	Step         *StepRecipe `json:"step,omitempty"`          // computed_step
	StepID       string      `json:"step_id,omitempty"`       // internal_step_link
}

// StepRecipe is a step's operation_params: the operation tag,
// operation-specific parameters, and the ordered input list. Canonical
// JSON of this struct (with computed_step replaced by internal_step_link)
// is what gets persisted as a Step's operation_params and as a
// Derivation's recipe_params.
type StepRecipe struct {
	Operation string                 `json:"operation"`
	Params    map[string]interface{} `json:"params,omitempty"`
	Inputs    []InputDescriptor      `json:"inputs"`
}

// WithoutInputs returns a shallow copy of the recipe with Inputs cleared,
// used to compute the operation-identifying half of a cache key
// (spec §3's `operation_params \ inputs`).
func (r StepRecipe) WithoutInputs() StepRecipe {
	return StepRecipe{Operation: r.Operation, Params: r.Params}
}

// Step is an atomic, immutable recipe node.
type Step struct {
	StepID    string    `json:"step_id"`
	Recipe    StepRecipe `json:"operation_params"`
	CreatedAt int64     `json:"created_at"` // unix seconds
}

// Derivation is the user-facing, slug-identified recipe root.
type Derivation struct {
	DerivationID  string     `json:"derivation_id"`
	RecipeParams  StepRecipe `json:"recipe_params"`
	Label         string     `json:"label,omitempty"`
	FinalStepID   string     `json:"final_step_id"`
	DSLExpression string     `json:"dsl_expression"`
	CreatedAt     int64      `json:"created_at"`
	UpdatedAt     int64      `json:"updated_at"`
}
