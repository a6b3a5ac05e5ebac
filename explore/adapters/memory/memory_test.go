package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sarojini27-bose/memeverse/explore/core"
)

func TestStore_SetGetRemove(t *testing.T) {
	ctx := context.Background()
	s := New()
	key := core.CommentsKey("7")

	_, err := s.Get(ctx, key)
	require.ErrorIs(t, err, core.ErrNotFound)

	value := []byte(`["hi"]`)
	require.NoError(t, s.Set(ctx, key, value))
	value[0] = 'X'

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, `["hi"]`, string(got))

	got[0] = 'Y'
	again, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, `["hi"]`, string(again))

	require.NoError(t, s.Remove(ctx, key))
	_, err = s.Get(ctx, key)
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestStore_InvalidKey(t *testing.T) {
	s := New()
	_, err := s.Get(context.Background(), core.Key{})
	require.ErrorIs(t, err, core.ErrBadArguments)
}
