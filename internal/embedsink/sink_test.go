package embedsink

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"deriveengine/internal/model"
)

type fakeEngine struct {
	dims int
}

func (f *fakeEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	return make([]float32, f.dims), nil
}
func (f *fakeEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dims)
	}
	return out, nil
}
func (f *fakeEngine) Dimensions() int { return f.dims }
func (f *fakeEngine) Name() string    { return "fake" }

type fakeStore struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeStore) PutEmbedding(hash model.Hash, modelName string, vector []float32, promptTokens int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

func TestSink_SubmitAndWait(t *testing.T) {
	store := &fakeStore{}
	sink := New(context.Background(), &fakeEngine{dims: 4}, store, 2)

	sink.Submit(model.Hash("h1"), []byte("content one"))
	sink.Submit(model.Hash("h2"), []byte("content two"))
	sink.Wait()

	require.Equal(t, 2, store.calls)
}

func TestSink_NilEngineIsNoOp(t *testing.T) {
	store := &fakeStore{}
	sink := New(context.Background(), nil, store, 2)

	sink.Submit(model.Hash("h1"), []byte("content"))
	sink.Wait()

	require.Equal(t, 0, store.calls)
}

func TestSink_NilSinkIsSafe(t *testing.T) {
	var sink *Sink
	sink.Submit(model.Hash("h1"), []byte("content"))
	sink.Wait()
}
