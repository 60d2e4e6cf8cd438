// Package embedsink implements the optional embedding sink collaborator of
// spec.md §4.5 step 6 and §6: given (content_hash, content), asynchronously
// produce and persist an embedding row plus a usage-log row. Submission blocks
// the evaluator only while the worker pool is full, and failures are logged
// but never surface as engine errors.
package embedsink

import (
	"context"
	"time"

	"deriveengine/internal/embedding"
	"deriveengine/internal/logging"
	"deriveengine/internal/model"

	"golang.org/x/sync/errgroup"
)

// Persister writes a finished embedding to the store.
type Persister interface {
	PutEmbedding(hash model.Hash, modelName string, vector []float32, promptTokens int) error
}

// Sink dispatches embedding work for finished step outputs onto a
// bounded-concurrency worker group, keyed off the evaluator's persistence
// step. The engine never waits for a submitted embedding to finish.
type Sink struct {
	engine    embedding.EmbeddingEngine
	store     Persister
	group     *errgroup.Group
	submitCtx context.Context
	modelName string
}

// New creates a Sink backed by engine, bounding concurrent embedding calls to
// maxConcurrent (the "rate-limit queue" of spec.md §6). A nil engine yields a
// Sink whose Submit is a no-op, matching the embedding sink's optional
// status.
func New(ctx context.Context, eng embedding.EmbeddingEngine, store Persister, maxConcurrent int) *Sink {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	modelName := ""
	if eng != nil {
		modelName = eng.Name()
	}

	return &Sink{engine: eng, store: store, group: g, submitCtx: gctx, modelName: modelName}
}

// Submit hands (contentHash, content) to the sink for asynchronous embedding.
// The embedding call and persist happen on a worker-pool goroutine; Submit
// returns once that goroutine is started. A full worker pool blocks Submit
// until a worker frees up, rather than blocking the
// caller's own step persistence, matching the single-threaded cooperative
// scheduling model's suspension-point rule (spec.md §5).
func (s *Sink) Submit(contentHash model.Hash, content []byte) {
	if s == nil || s.engine == nil {
		return
	}

	s.group.Go(func() error {
		ctx, cancel := context.WithTimeout(s.submitCtx, 30*time.Second)
		defer cancel()

		vector, err := s.engine.Embed(ctx, string(content))
		if err != nil {
			logging.EmbeddingWarn("embedsink: embed failed for %s: %v", contentHash, err)
			return nil
		}

		if err := s.store.PutEmbedding(contentHash, s.modelName, vector, 0); err != nil {
			logging.EmbeddingWarn("embedsink: persist failed for %s: %v", contentHash, err)
			return nil
		}

		logging.EmbeddingDebug("embedsink: embedded and persisted %s (dims=%d)", contentHash, len(vector))
		return nil
	})
}

// Wait blocks until every submitted embedding has completed. Intended for
// clean shutdown and tests; the evaluator itself never calls it mid-run.
func (s *Sink) Wait() {
	if s == nil {
		return
	}
	_ = s.group.Wait()
}
