package database_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safar/techshop-orders/internal/config"
	"github.com/safar/techshop-orders/internal/database"
	"github.com/safar/techshop-orders/internal/testutil"
)

func TestDetectCapabilitiesFullSchema(t *testing.T) {
	db := testutil.SetupDB(t)

	caps, err := database.DetectCapabilities(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, database.FullCapabilities(), caps)
}

func TestDetectCapabilitiesBaseSchema(t *testing.T) {
	db := testutil.SetupDB(t, testutil.MigrateUpTo(1))

	caps, err := database.DetectCapabilities(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, database.Capabilities{}, caps)
}

func TestMigrateDownThenUp(t *testing.T) {
	db := testutil.SetupDB(t)
	ctx := context.Background()

	applied, err := database.Migrate(ctx, db, testutil.MigrationsDir(), database.Down, 0)
	require.NoError(t, err)
	require.NotEmpty(t, applied)
	assert.Contains(t, applied[0], "000002")

	var tables int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema()`).Scan(&tables))
	assert.Zero(t, tables)

	_, err = database.Migrate(ctx, db, testutil.MigrationsDir(), database.Up, 0)
	require.NoError(t, err)

	caps, err := database.DetectCapabilities(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, database.FullCapabilities(), caps)
}

func TestWithRetryReportsLockTimeout(t *testing.T) {
	db := testutil.SetupDB(t)
	ctx := context.Background()

	var id int64
	require.NoError(t, db.QueryRowContext(ctx,
		`INSERT INTO products (sku, name, price, stock_quantity) VALUES ('LOCK-1', 'Held', 10, 5) RETURNING id`).Scan(&id))

	holder, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer holder.Rollback()
	_, err = holder.ExecContext(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, id)
	require.NoError(t, err)

	opts := database.TxOptions{
		IsolationLevel: sql.LevelReadCommitted,
		MaxRetries:     1,
		LockTimeout:    100 * time.Millisecond,
	}
	attempts := 0
	err = database.WithRetry(ctx, db, opts, func(tx *sql.Tx) error {
		attempts++
		_, err := tx.ExecContext(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, id)
		return err
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, database.ErrLockTimeout)
	assert.Equal(t, 2, attempts)

	require.NoError(t, holder.Rollback())
	err = database.WithRetry(ctx, db, opts, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, id)
		return err
	})
	assert.NoError(t, err)
}

func TestTxOptionsFromConfig(t *testing.T) {
	opts := database.TxOptionsFromConfig(config.DatabaseConfig{
		LockTimeout:  2 * time.Second,
		TxMaxRetries: 5,
	})
	assert.Equal(t, sql.LevelReadCommitted, opts.IsolationLevel)
	assert.False(t, opts.ReadOnly)
	assert.Equal(t, 5, opts.MaxRetries)
	assert.Equal(t, 2*time.Second, opts.LockTimeout)
}
