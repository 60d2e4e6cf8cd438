package store

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

// newID returns a fresh opaque identifier for rows that don't need to be
// human-memorable (step_id, doc_id, path_id, log_id).
func newID() string {
	return uuid.NewString()
}

var slugAdjectives = []string{
	"amber", "brisk", "calm", "dusky", "ember", "fleet", "glacial", "humble",
	"ivory", "jovial", "keen", "lunar", "mellow", "nimble", "opal", "quiet",
	"rustic", "solar", "terse", "umber", "vivid", "windy",
}

var slugNouns = []string{
	"arbor", "basin", "cairn", "delta", "estuary", "forge", "glade", "harbor",
	"inlet", "junction", "kiln", "lattice", "meadow", "notch", "orchard",
	"prism", "quarry", "ridge", "summit", "thicket", "valley", "wharf",
}

// newSlug generates a human-readable derivation identifier. Collisions are
// handled by the caller retrying with a fresh slug.
func newSlug() string {
	adj := slugAdjectives[rand.Intn(len(slugAdjectives))]
	noun := slugNouns[rand.Intn(len(slugNouns))]
	return fmt.Sprintf("%s-%s-%s", adj, noun, uuid.NewString()[:8])
}
