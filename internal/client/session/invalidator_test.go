package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/tillapos/internal/client/credentials"
	"github.com/dmitrijs2005/tillapos/internal/client/models"
	"github.com/dmitrijs2005/tillapos/internal/logging"
)

type failingClearStore struct {
	*credentials.MemoryStore
}

func (f failingClearStore) Clear(context.Context) error { return errors.New("disk full") }

func TestInvalidator_ClearsStoreAndNotifies(t *testing.T) {
	ctx := context.Background()
	store := credentials.NewMemoryStore()
	require.NoError(t, credentials.Save(ctx, store, models.Credential{AccessToken: "a1", RefreshToken: "r1"}))

	state := NewState()
	state.SetToken("a1")
	ch := state.Subscribe()

	NewInvalidator(store, state, logging.NewNop()).Invalidate(ctx)

	require.Empty(t, store.Snapshot())
	require.False(t, state.Authenticated())
	require.Len(t, ch, 1)
}

func TestInvalidator_ClearFailureStillNotifies(t *testing.T) {
	state := NewState()
	state.SetToken("a1")

	NewInvalidator(failingClearStore{credentials.NewMemoryStore()}, state, nil).Invalidate(context.Background())

	require.False(t, state.Authenticated())
}

func TestInvalidator_NilNotifier(t *testing.T) {
	store := credentials.NewMemoryStore()
	require.NotPanics(t, func() {
		NewInvalidator(store, nil, nil).Invalidate(context.Background())
	})
	require.Equal(t, []string{"clear"}, store.Ops())
}
