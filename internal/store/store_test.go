package store

import (
	"testing"

	"deriveengine/internal/enginerr"
	"deriveengine/internal/model"
)

func TestNewStore(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	if s.db == nil {
		t.Fatal("db is nil")
	}
}

func TestPutGetContent(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	content := []byte("hello world")
	hash := model.HashBytes(content)

	if err := s.PutContent(hash, content); err != nil {
		t.Fatalf("PutContent: %v", err)
	}

	got, found, err := s.GetContent(hash)
	if err != nil {
		t.Fatalf("GetContent: %v", err)
	}
	if !found {
		t.Fatal("expected content to be found")
	}
	if string(got) != "hello world" {
		t.Errorf("got %q, want %q", got, "hello world")
	}
}

func TestGetContent_NotFound(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	_, found, err := s.GetContent(model.Hash("nonexistent"))
	if err != nil {
		t.Fatalf("GetContent: %v", err)
	}
	if found {
		t.Error("expected content not to be found")
	}
}

func TestPinnedPath_RoundTrip(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	hash, err := s.SetDocumentPath("/tmp/notes.txt", []byte("draft one"))
	if err != nil {
		t.Fatalf("SetDocumentPath: %v", err)
	}

	resolved, err := s.ResolvePinnedPath("/tmp/notes.txt")
	if err != nil {
		t.Fatalf("ResolvePinnedPath: %v", err)
	}
	if resolved != hash {
		t.Errorf("got %s, want %s", resolved, hash)
	}

	// Updating the same path re-points it at the new hash.
	hash2, err := s.SetDocumentPath("/tmp/notes.txt", []byte("draft two"))
	if err != nil {
		t.Fatalf("SetDocumentPath (update): %v", err)
	}
	resolved2, err := s.ResolvePinnedPath("/tmp/notes.txt")
	if err != nil {
		t.Fatalf("ResolvePinnedPath (update): %v", err)
	}
	if resolved2 != hash2 {
		t.Errorf("got %s, want %s", resolved2, hash2)
	}
	if hash == hash2 {
		t.Error("expected distinct hashes for distinct content")
	}
}

func TestResolvePinnedPath_NotFound(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	_, err = s.ResolvePinnedPath("/does/not/exist")
	if !enginerr.Is(err, enginerr.KindPinnedPathNotFound) {
		t.Errorf("got %v, want pinned_path_not_found", err)
	}
}

func TestDeepDefineStep_Flattens(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	inner := model.StepRecipe{
		Operation: "constant_for_testing",
		Params:    map[string]interface{}{"value": "inner"},
	}
	outer := model.StepRecipe{
		Operation: "identity",
		Inputs: []model.InputDescriptor{
			{Kind: model.InputComputedStep, Step: &inner},
		},
	}

	stepID, flattened, err := s.DeepDefineStep(outer)
	if err != nil {
		t.Fatalf("DeepDefineStep: %v", err)
	}
	if stepID == "" {
		t.Fatal("expected non-empty step id")
	}
	if len(flattened.Inputs) != 1 || flattened.Inputs[0].Kind != model.InputInternalStepLink {
		t.Fatalf("expected flattened input to be internal_step_link, got %+v", flattened.Inputs)
	}

	childStepID := flattened.Inputs[0].StepID
	childRecipe, found, err := s.GetStepParams(childStepID)
	if err != nil {
		t.Fatalf("GetStepParams: %v", err)
	}
	if !found {
		t.Fatal("expected child step to be defined")
	}
	if childRecipe.Operation != "constant_for_testing" {
		t.Errorf("got %q, want constant_for_testing", childRecipe.Operation)
	}
}

func TestDerivation_CreateFindUpdateDelete(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	recipe := model.StepRecipe{Operation: "constant_for_testing", Params: map[string]interface{}{"value": "v1"}}
	derivationID, err := s.CreateDerivation(recipe, "my label", "")
	if err != nil {
		t.Fatalf("CreateDerivation: %v", err)
	}
	if derivationID == "" {
		t.Fatal("expected non-empty derivation id")
	}

	d, found, err := s.FindDerivation(derivationID)
	if err != nil {
		t.Fatalf("FindDerivation: %v", err)
	}
	if !found {
		t.Fatal("expected derivation to be found")
	}
	if d.Label != "my label" {
		t.Errorf("got label %q, want %q", d.Label, "my label")
	}

	recipe2 := model.StepRecipe{Operation: "constant_for_testing", Params: map[string]interface{}{"value": "v2"}}
	if err := s.UpdateDerivation(derivationID, recipe2, "new label", ""); err != nil {
		t.Fatalf("UpdateDerivation: %v", err)
	}
	d2, _, err := s.FindDerivation(derivationID)
	if err != nil {
		t.Fatalf("FindDerivation after update: %v", err)
	}
	if d2.Label != "new label" {
		t.Errorf("got label %q, want %q", d2.Label, "new label")
	}
	if d2.FinalStepID == d.FinalStepID {
		t.Error("expected final_step_id to change after update")
	}

	all, err := s.GetAllDerivations()
	if err != nil {
		t.Fatalf("GetAllDerivations: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("got %d derivations, want 1", len(all))
	}

	if err := s.DeleteDerivation(derivationID); err != nil {
		t.Fatalf("DeleteDerivation: %v", err)
	}
	_, found, err = s.FindDerivation(derivationID)
	if err != nil {
		t.Fatalf("FindDerivation after delete: %v", err)
	}
	if found {
		t.Error("expected derivation to be gone after delete")
	}
}

func TestUpdateDerivation_NotFound(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	recipe := model.StepRecipe{Operation: "constant_for_testing", Params: map[string]interface{}{"value": "v1"}}
	err = s.UpdateDerivation("no-such-derivation", recipe, "", "")
	if !enginerr.Is(err, enginerr.KindDerivationNotFound) {
		t.Errorf("got %v, want derivation_not_found", err)
	}
}

func TestDeleteDerivation_NotFound(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	err = s.DeleteDerivation("no-such-derivation")
	if !enginerr.Is(err, enginerr.KindDerivationNotFound) {
		t.Errorf("got %v, want derivation_not_found", err)
	}
}

func TestPersistAndFindResult(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	stepID, err := s.DefineStep(model.StepRecipe{Operation: "constant_for_testing", Params: map[string]interface{}{"value": "x"}})
	if err != nil {
		t.Fatalf("DefineStep: %v", err)
	}

	output := []byte("computed output")
	outputHash := model.HashBytes(output)
	row := model.ResultCacheRow{
		CacheKey:           "abc123",
		OutputContentHash:  outputHash,
		InputContentHashes: []model.Hash{},
		ComputedAt:         1000,
	}
	tree := model.DependencyNode{Kind: model.InputDerivation, Hash: outputHash, Operation: "constant_for_testing", CacheStatus: model.CacheStatusComputed}

	if err := s.PersistStepResult(stepID, outputHash, output, row, tree); err != nil {
		t.Fatalf("PersistStepResult: %v", err)
	}

	gotRow, gotTree, found, err := s.FindResultByStep(stepID)
	if err != nil {
		t.Fatalf("FindResultByStep: %v", err)
	}
	if !found {
		t.Fatal("expected result to be found")
	}
	if gotRow.CacheKey != "abc123" {
		t.Errorf("got cache key %q, want %q", gotRow.CacheKey, "abc123")
	}
	if gotTree.Operation != "constant_for_testing" {
		t.Errorf("got tree operation %q, want %q", gotTree.Operation, "constant_for_testing")
	}

	byKey, found, err := s.FindResultByCacheKey("abc123")
	if err != nil {
		t.Fatalf("FindResultByCacheKey: %v", err)
	}
	if !found {
		t.Fatal("expected result to be found by cache key")
	}
	if byKey.OutputContentHash != outputHash {
		t.Errorf("got %s, want %s", byKey.OutputContentHash, outputHash)
	}

	content, found, err := s.GetContent(outputHash)
	if err != nil {
		t.Fatalf("GetContent: %v", err)
	}
	if !found || string(content) != "computed output" {
		t.Errorf("got %q, found=%v", content, found)
	}
}

func TestEmbedding_RoundTrip(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	hash := model.HashString("some content")
	vector := []float32{0.1, 0.2, 0.3, 0.4}

	if err := s.PutEmbedding(hash, "embeddinggemma", vector, 12); err != nil {
		t.Fatalf("PutEmbedding: %v", err)
	}

	got, found, err := s.GetEmbedding(hash, "embeddinggemma")
	if err != nil {
		t.Fatalf("GetEmbedding: %v", err)
	}
	if !found {
		t.Fatal("expected embedding to be found")
	}
	if len(got) != len(vector) {
		t.Fatalf("got %d dims, want %d", len(got), len(vector))
	}
	for i := range vector {
		if got[i] != vector[i] {
			t.Errorf("dim %d: got %f, want %f", i, got[i], vector[i])
		}
	}
}
