package embeddings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls int
	err   error
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text))}, nil
}

func TestCachedEmbedder_ReusesVectors(t *testing.T) {
	inner := &countingEmbedder{}
	cached := NewCachedEmbedder(inner, "m", 10)
	ctx := context.Background()

	first, err := cached.Embed(ctx, "same chunk")
	require.NoError(t, err)
	second, err := cached.Embed(ctx, "same chunk")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, cached.Len())
}

func TestCachedEmbedder_DoesNotCacheFailures(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("down")}
	cached := NewCachedEmbedder(inner, "m", 0)
	ctx := context.Background()

	_, err := cached.Embed(ctx, "chunk")
	require.Error(t, err)
	_, err = cached.Embed(ctx, "chunk")
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls)
	assert.Zero(t, cached.Len())
}
