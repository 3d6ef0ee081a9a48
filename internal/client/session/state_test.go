package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestState_TokenLifecycle(t *testing.T) {
	s := NewState()
	require.False(t, s.Authenticated())

	s.SetToken("a1")
	tok, ok := s.Token()
	require.True(t, ok)
	require.Equal(t, "a1", tok)

	s.OnSessionInvalidated(context.Background())
	tok, ok = s.Token()
	require.False(t, ok)
	require.Empty(t, tok)
}

func TestState_InvalidationPurgesQueries(t *testing.T) {
	s := NewState()
	s.SetToken("a1")
	s.Put("user", "alice")
	s.Put("categories", []string{"drinks"})

	s.OnSessionInvalidated(context.Background())

	_, ok := s.Lookup("user")
	require.False(t, ok)
	_, ok = s.Lookup("categories")
	require.False(t, ok)
}

func TestState_SubscribersAreSignalled(t *testing.T) {
	s := NewState()
	a := s.Subscribe()
	b := s.Subscribe()

	s.OnSessionInvalidated(context.Background())
	s.OnSessionInvalidated(context.Background()) // coalesced, must not block

	for _, ch := range []<-chan struct{}{a, b} {
		select {
		case <-ch:
		default:
			t.Fatal("subscriber not signalled")
		}
		select {
		case <-ch:
			t.Fatal("signals must be coalesced")
		default:
		}
	}
}

func TestState_Forget(t *testing.T) {
	s := NewState()
	s.Put("categories", 1)
	s.Put("categories/42", 2)
	s.Put("user", 3)

	s.Forget("categories")

	_, ok := s.Lookup("categories")
	require.False(t, ok)
	_, ok = s.Lookup("categories/42")
	require.False(t, ok)
	_, ok = s.Lookup("user")
	require.True(t, ok)
}

func TestCached(t *testing.T) {
	s := NewState()
	calls := 0
	load := func() (string, error) {
		calls++
		return "alice", nil
	}

	v, err := Cached(s, "user", load)
	require.NoError(t, err)
	require.Equal(t, "alice", v)

	v, err = Cached(s, "user", load)
	require.NoError(t, err)
	require.Equal(t, "alice", v)
	require.Equal(t, 1, calls)
}

func TestCached_ErrorsAreNotCached(t *testing.T) {
	s := NewState()
	boom := errors.New("boom")

	_, err := Cached(s, "user", func() (string, error) { return "", boom })
	require.ErrorIs(t, err, boom)

	_, ok := s.Lookup("user")
	require.False(t, ok)
}

func TestCached_NilCache(t *testing.T) {
	calls := 0
	for range 2 {
		_, err := Cached[int](nil, "k", func() (int, error) { calls++; return 1, nil })
		require.NoError(t, err)
	}
	require.Equal(t, 2, calls)
}

func TestCached_LoadOverlappingInvalidationIsNotCached(t *testing.T) {
	s := NewState()
	s.SetToken("a1")

	v, err := Cached(s, "user", func() (string, error) {
		s.OnSessionInvalidated(context.Background())
		return "alice", nil
	})
	require.NoError(t, err)
	require.Equal(t, "alice", v)

	_, ok := s.Lookup("user")
	require.False(t, ok)
}

func TestCached_LoadOverlappingForgetIsNotCached(t *testing.T) {
	s := NewState()

	_, err := Cached(s, "categories", func() ([]string, error) {
		s.Forget("categories")
		return []string{"drinks"}, nil
	})
	require.NoError(t, err)

	_, ok := s.Lookup("categories")
	require.False(t, ok)
}

func TestState_PutAt(t *testing.T) {
	s := NewState()
	gen := s.Generation()

	require.True(t, s.PutAt(gen, "user", "alice"))

	s.OnSessionInvalidated(context.Background())
	require.NotEqual(t, gen, s.Generation())
	require.False(t, s.PutAt(gen, "user", "bob"))

	_, ok := s.Lookup("user")
	require.False(t, ok)
}
