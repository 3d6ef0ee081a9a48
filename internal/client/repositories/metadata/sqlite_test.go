package metadata

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE metadata (key TEXT PRIMARY KEY, value BLOB NOT NULL)`)
	require.NoError(t, err)
	return db
}

func TestSetAndGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "accessToken", []byte("a1")))

	v, err := r.Get(ctx, "accessToken")
	require.NoError(t, err)
	require.Equal(t, []byte("a1"), v)
}

func TestGet_Absent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	v, err := r.Get(context.Background(), "refreshToken")
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestSet_Upserts(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "accessToken", []byte("a1")))
	require.NoError(t, r.Set(ctx, "accessToken", []byte("a2")))

	v, err := r.Get(ctx, "accessToken")
	require.NoError(t, err)
	require.Equal(t, []byte("a2"), v)
}

func TestDelete_ManyKeys(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "accessToken", []byte("a1")))
	require.NoError(t, r.Set(ctx, "refreshToken", []byte("r1")))
	require.NoError(t, r.Set(ctx, "deviceId", []byte("d1")))

	require.NoError(t, r.Delete(ctx, "accessToken", "refreshToken", "missing"))
	require.NoError(t, r.Delete(ctx))

	for _, key := range []string{"accessToken", "refreshToken"} {
		v, err := r.Get(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, v, key)
	}

	v, err := r.Get(ctx, "deviceId")
	require.NoError(t, err)
	assert.Equal(t, []byte("d1"), v)
}

func TestErrorsAreWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := r.Get(ctx, "k")
	require.ErrorContains(t, err, "failed to get metadata[k]")

	err = r.Set(ctx, "k", []byte("v"))
	require.ErrorContains(t, err, "failed to set metadata[k]")

	err = r.Delete(ctx, "k")
	require.ErrorContains(t, err, "failed to delete metadata")
}
