package gate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/roomgate/internal/classifier"
	"github.com/fyrsmithlabs/roomgate/internal/corpus"
	"github.com/fyrsmithlabs/roomgate/internal/embeddings"
)

func trainedClassifier(t *testing.T) *classifier.Classifier {
	t.Helper()
	p, err := embeddings.NewHashingProvider(0)
	require.NoError(t, err)
	emb := embeddings.Guard(p)

	set, err := corpus.Training()
	require.NoError(t, err)
	model, err := classifier.Train(context.Background(), emb, set, classifier.DefaultTrainConfig())
	require.NoError(t, err)

	clf, err := classifier.New(emb, model, 0)
	require.NoError(t, err)
	return clf
}
