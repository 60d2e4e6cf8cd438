package engine

import (
	"strings"

	"deriveengine/internal/canon"
	"deriveengine/internal/model"
)

// computeCacheKey derives cache_key from a step's operation_params-without-
// inputs and its ordered, already-resolved input content hashes (spec §3,
// §9): H(canonical_json(operation_params\inputs) || "|" || join(",",
// input_content_hashes)).
func computeCacheKey(recipe model.StepRecipe, inputHashes []model.Hash) (string, error) {
	canonical, err := canon.MarshalString(recipe.WithoutInputs())
	if err != nil {
		return "", err
	}

	hashStrs := make([]string, len(inputHashes))
	for i, h := range inputHashes {
		hashStrs[i] = string(h)
	}

	return string(model.HashString(canonical + "|" + strings.Join(hashStrs, ","))), nil
}
