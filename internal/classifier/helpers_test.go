package classifier

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/roomgate/internal/corpus"
	"github.com/fyrsmithlabs/roomgate/internal/embeddings"
)

var (
	builtinOnce     sync.Once
	builtinModel    *Model
	builtinEmbedder *embeddings.Guarded
	builtinErr      error
)

// trainedBuiltin trains once per test binary on the built-in corpus with the
// hashing embedder.
func trainedBuiltin(t *testing.T) (*Model, *embeddings.Guarded) {
	t.Helper()
	builtinOnce.Do(func() {
		p, err := embeddings.NewHashingProvider(0)
		if err != nil {
			builtinErr = err
			return
		}
		builtinEmbedder = embeddings.Guard(p)
		set, err := corpus.Training()
		if err != nil {
			builtinErr = err
			return
		}
		builtinModel, builtinErr = Train(context.Background(), builtinEmbedder, set, DefaultTrainConfig())
	})
	require.NoError(t, builtinErr)
	return builtinModel, builtinEmbedder
}

func smallEmbedder(t *testing.T) *embeddings.Guarded {
	t.Helper()
	p, err := embeddings.NewHashingProvider(1024)
	require.NoError(t, err)
	return embeddings.Guard(p)
}

// toySet has disjoint vocabularies per example.
func toySet() *corpus.Set {
	return &corpus.Set{
		Name: "toy",
		Examples: []corpus.Example{
			{Text: "grandmother passed away", Label: corpus.LabelPersist},
			{Text: "diagnosed adhd recently", Label: corpus.LabelPersist},
			{Text: "launching startup soon", Label: corpus.LabelPersist},
			{Text: "tell joke", Label: corpus.LabelFlush},
			{Text: "weather forecast tomorrow", Label: corpus.LabelFlush},
			{Text: "capital france", Label: corpus.LabelFlush},
			{Text: "convert celsius fahrenheit", Label: corpus.LabelFlush},
		},
	}
}
