package sqlstore_test

import (
	"context"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/bignyap/studio-storage/database"
	"github.com/bignyap/studio-storage/store"
	"github.com/bignyap/studio-storage/store/sqlstore"
	"github.com/bignyap/studio-storage/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initSQLite(t *testing.T, clk clock.Clock) (storetest.Store, storetest.Exec) {
	t.Helper()

	// one long-lived connection keeps the in-memory database alive
	conn, err := database.NewConnectionFromConfig(database.Config{
		Driver:       "sqlite",
		Name:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, conn.Connect(context.Background()))
	t.Cleanup(func() { _ = conn.Close() })

	s, err := sqlstore.New(conn.GetSQLDB(), database.SQLiteDriver, clk, 0)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))

	exec := func(ctx context.Context, q string, args ...any) error {
		_, err := conn.GetSQLDB().ExecContext(ctx, q, args...)
		return err
	}
	return s, exec
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, initSQLite, store.Question)
}

func TestNewRejectsPostgres(t *testing.T) {
	_, err := sqlstore.New(nil, database.PostgresDriver, nil, 0)
	assert.Error(t, err)
}
