package database_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/bignyap/studio-storage/database"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDriver(t *testing.T) {
	tests := []struct {
		in      string
		want    database.Driver
		wantErr bool
	}{
		{"postgres", database.PostgresDriver, false},
		{"PGX", database.PostgresDriver, false},
		{"mysql", database.MySQLDriver, false},
		{"sqlite", database.SQLiteDriver, false},
		{"oracle", "", true},
	}
	for _, tt := range tests {
		got, err := database.ParseDriver(tt.in)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestDSN(t *testing.T) {
	cs := database.NewConnectionString("db", "5432", "u", "p", "studio", map[string]string{
		"sslmode":          "disable",
		"application_name": "accountant",
	})

	assert.Equal(t,
		"host=db port=5432 user=u password=p dbname=studio application_name=accountant sslmode=disable",
		cs.DSN(database.PostgresDriver))
	assert.Equal(t,
		"u:p@tcp(db:5432)/studio?application_name=accountant&sslmode=disable",
		cs.DSN(database.MySQLDriver))
	assert.Equal(t, "studio?application_name=accountant&sslmode=disable", cs.DSN(database.SQLiteDriver))
	assert.Equal(t, "", database.NewConnectionString("", "", "", "", "x", nil).DSN("oracle"))
}

func TestNewConnectionFromConfig(t *testing.T) {
	conn, err := database.NewConnectionFromConfig(database.Config{
		Driver: "mysql", Host: "h", Port: "3306", User: "u", Password: "p", Name: "n", MaxOpenConns: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, database.MySQLDriver, conn.Driver)
	assert.Equal(t, "u:p@tcp(h:3306)/n?parseTime=true", conn.ConnectionString.DSN(conn.Driver))
	assert.Equal(t, 5, conn.PoolConfig.MaxOpenConns)
}

func TestSQLiteConnectAndTransaction(t *testing.T) {
	conn, err := database.NewConnectionFromConfig(database.Config{Driver: "sqlite", Name: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1})
	require.NoError(t, err)
	require.NoError(t, conn.Connect(context.Background()))
	defer conn.Close()

	db := conn.GetSQLDB()
	_, err = db.Exec(`CREATE TABLE t (v INTEGER)`)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = database.WithTransaction(context.Background(), db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO t (v) VALUES (1)`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n))
	assert.Equal(t, 0, n, "rolled back insert must not be visible")
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, database.IsNotFound(sql.ErrNoRows))
	assert.True(t, database.IsNotFound(database.WrapError("get", pgx.ErrNoRows)))
	assert.False(t, database.IsNotFound(errors.New("other")))
	assert.Nil(t, database.WrapError("noop", nil))
}
