package planner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"deriveengine/internal/model"
)

type fakeLoader struct {
	derivations map[string]model.Derivation
	steps       map[string]model.StepRecipe
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{derivations: map[string]model.Derivation{}, steps: map[string]model.StepRecipe{}}
}

func (f *fakeLoader) FindDerivation(id string) (model.Derivation, bool, error) {
	d, ok := f.derivations[id]
	return d, ok, nil
}

func (f *fakeLoader) GetStepParams(stepID string) (model.StepRecipe, bool, error) {
	r, ok := f.steps[stepID]
	return r, ok, nil
}

// addDerivation registers a derivation whose sole step is stepID, with the
// given dependency derivation ids wired as direct derivation-kind inputs.
func (f *fakeLoader) addDerivation(id, stepID string, deps ...string) {
	var inputs []model.InputDescriptor
	for _, dep := range deps {
		inputs = append(inputs, model.InputDescriptor{Kind: model.InputDerivation, DerivationID: dep})
	}
	f.steps[stepID] = model.StepRecipe{Operation: "identity", Inputs: inputs}
	f.derivations[id] = model.Derivation{DerivationID: id, FinalStepID: stepID}
}

func TestBuild_LinearChain_NoCycles(t *testing.T) {
	l := newFakeLoader()
	l.addDerivation("C", "step-c")
	l.addDerivation("B", "step-b", "C")
	l.addDerivation("A", "step-a", "B")

	plan, err := Build(l, "A")
	require.NoError(t, err)
	require.False(t, plan.HasCycles)
	require.Len(t, plan.Units, 3)

	var order []string
	for _, u := range plan.Units {
		require.Equal(t, UnitAcyclic, u.Type)
		order = append(order, u.NodeID)
	}
	require.Equal(t, []string{"C", "B", "A"}, order)
}

func TestBuild_SelfLoop_IsSCC(t *testing.T) {
	l := newFakeLoader()
	l.addDerivation("A", "step-a", "A")

	plan, err := Build(l, "A")
	require.NoError(t, err)
	require.True(t, plan.HasCycles)
	require.Len(t, plan.Units, 1)
	require.Equal(t, UnitSCC, plan.Units[0].Type)
	require.Equal(t, []string{"A"}, plan.Units[0].NodeIDs)
	require.Equal(t, "scc-A", plan.Units[0].SCCID)
	require.Equal(t, NodeSCC, plan.Nodes["A"].Status)
}

func TestBuild_NoSelfLoop_IsAcyclic(t *testing.T) {
	l := newFakeLoader()
	l.addDerivation("A", "step-a")

	plan, err := Build(l, "A")
	require.NoError(t, err)
	require.False(t, plan.HasCycles)
	require.Equal(t, NodeAcyclic, plan.Nodes["A"].Status)
}

func TestBuild_TwoNodeCycle(t *testing.T) {
	l := newFakeLoader()
	l.addDerivation("A", "step-a", "B")
	l.addDerivation("B", "step-b", "A")

	plan, err := Build(l, "A")
	require.NoError(t, err)
	require.True(t, plan.HasCycles)
	require.Len(t, plan.Units, 1)
	require.Equal(t, UnitSCC, plan.Units[0].Type)
	require.Equal(t, []string{"A", "B"}, plan.Units[0].NodeIDs)
	require.Equal(t, "scc-A-B", plan.Units[0].SCCID)

	unit, ok := plan.SCCFor("A")
	require.True(t, ok)
	require.Equal(t, "scc-A-B", unit.SCCID)
}

func TestBuild_DiamondDependency(t *testing.T) {
	l := newFakeLoader()
	l.addDerivation("D", "step-d")
	l.addDerivation("B", "step-b", "D")
	l.addDerivation("C", "step-c", "D")
	l.addDerivation("A", "step-a", "B", "C")

	plan, err := Build(l, "A")
	require.NoError(t, err)
	require.False(t, plan.HasCycles)
	require.Len(t, plan.Units, 4)
	require.Equal(t, "D", plan.Units[0].NodeID)
	require.Equal(t, "A", plan.Units[3].NodeID)
}

func TestBuild_MissingDerivation(t *testing.T) {
	l := newFakeLoader()
	l.addDerivation("A", "step-a", "missing")

	_, err := Build(l, "missing-root")
	require.Error(t, err)
}

func TestBuild_DependencyReferencesNestedStep(t *testing.T) {
	l := newFakeLoader()
	l.derivations["C"] = model.Derivation{DerivationID: "C", FinalStepID: "step-c"}
	l.steps["step-c"] = model.StepRecipe{Operation: "identity"}

	// A's recipe reaches derivation C through an internal_step_link
	// wrapping a sub-step, not a direct derivation input.
	l.steps["step-a-inner"] = model.StepRecipe{
		Operation: "identity",
		Inputs:    []model.InputDescriptor{{Kind: model.InputDerivation, DerivationID: "C"}},
	}
	l.steps["step-a"] = model.StepRecipe{
		Operation: "concat",
		Inputs:    []model.InputDescriptor{{Kind: model.InputInternalStepLink, StepID: "step-a-inner"}},
	}
	l.derivations["A"] = model.Derivation{DerivationID: "A", FinalStepID: "step-a"}

	plan, err := Build(l, "A")
	require.NoError(t, err)
	require.False(t, plan.HasCycles)
	require.Len(t, plan.Units, 2)
	require.Equal(t, "C", plan.Units[0].NodeID)
	require.Equal(t, "A", plan.Units[1].NodeID)
}
