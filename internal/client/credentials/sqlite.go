package credentials

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/tillapos/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/tillapos/internal/dbx"
)

// SQLiteStore keeps credentials in the metadata table of the local database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	v, err := metadata.NewSQLiteRepository(s.db).Get(ctx, key)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (s *SQLiteStore) Set(ctx context.Context, values map[string]string) error {
	return dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		for k, v := range values {
			if err := repo.Set(ctx, k, []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	return metadata.NewSQLiteRepository(s.db).Delete(ctx, Keys...)
}
