package kvstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-portal/pkg/kvstore"
)

func newStore(t *testing.T) *kvstore.Store {
	t.Helper()
	cfg := kvstore.Config{Driver: kvstore.DriverSQLite, DSN: filepath.Join(t.TempDir(), "kv.db")}
	s, err := kvstore.Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_GetPutDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t)

	_, ok, err := s.Get(ctx, "lib.session")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Put(ctx, "lib.session", []byte(`{"token":"a"}`)))
	require.NoError(t, s.Put(ctx, "lib.session", []byte(`{"token":"b"}`)))

	got, ok, err := s.Get(ctx, "lib.session")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"token":"b"}`, string(got))

	require.NoError(t, s.Delete(ctx, "lib.session"))
	require.NoError(t, s.Delete(ctx, "lib.session"))
	_, ok, err = s.Get(ctx, "lib.session")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLoadSave(t *testing.T) {
	t.Parallel()
	type item struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	ctx := context.Background()
	s := newStore(t)

	items, err := kvstore.Load[item](ctx, s, "lib.items")
	require.NoError(t, err)
	require.Empty(t, items)

	require.NoError(t, kvstore.Save(ctx, s, "lib.items", []item{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}))
	items, err = kvstore.Load[item](ctx, s, "lib.items")
	require.NoError(t, err)
	require.Equal(t, []item{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}, items)

	require.NoError(t, kvstore.Save[item](ctx, s, "lib.items", nil))
	raw, ok, err := s.Get(ctx, "lib.items")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "[]", string(raw))
}

func TestStore_UpdateRollback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.Put(ctx, "k", []byte(`1`)))

	errBoom := errors.New("boom")
	err := s.Update(ctx, func(tx *kvstore.Tx) error {
		if err := tx.Put(ctx, "k", []byte(`2`)); err != nil {
			return err
		}
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	got, _, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "1", string(got))

	require.NoError(t, s.Update(ctx, func(tx *kvstore.Tx) error {
		return tx.Put(ctx, "k", []byte(`3`))
	}))
	require.NoError(t, s.View(ctx, func(tx *kvstore.Tx) error {
		got, ok, err := tx.Get(ctx, "k")
		require.True(t, ok)
		require.Equal(t, "3", string(got))
		return err
	}))
}

func TestOpen_UnknownDriver(t *testing.T) {
	t.Parallel()
	_, err := kvstore.Open(context.Background(), kvstore.Config{Driver: "oracle"}, zap.NewNop())
	require.ErrorIs(t, err, kvstore.ErrUnknownDriver)
}
