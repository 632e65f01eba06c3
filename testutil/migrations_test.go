package testutil_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripplanner/api/migrations"
	"github.com/tripplanner/api/testutil"
)

var schemaTables = []string{"users", "trips"}

// TestMigrations runs the schema down to zero, up to head, and down again
// against TEST_DATABASE_URL.
func TestMigrations(t *testing.T) {
	db := testutil.NewSQLDB(t)
	ctx := context.Background()

	provider, err := migrations.NewProvider(db)
	require.NoError(t, err)

	// Other packages may have migrated the shared database already.
	_, err = provider.DownTo(ctx, 0)
	require.NoError(t, err, "initial reset")

	results, err := provider.Up(ctx)
	require.NoError(t, err, "goose up")
	assert.Len(t, results, len(schemaTables))
	for _, table := range schemaTables {
		assert.True(t, tableExists(t, db, table), "table %q after up", table)
	}

	_, err = provider.DownTo(ctx, 0)
	require.NoError(t, err, "goose down-to 0")
	for _, table := range schemaTables {
		assert.False(t, tableExists(t, db, table), "table %q after down", table)
	}

	// Leave the database migrated for whoever runs next.
	_, err = provider.Up(ctx)
	require.NoError(t, err)
}

// TestMigrations_TripDatesConstraint checks the schema refuses a trip that
// ends before it starts, independent of service validation.
func TestMigrations_TripDatesConstraint(t *testing.T) {
	db := testutil.NewSQLDB(t)
	ctx := context.Background()

	provider, err := migrations.NewProvider(db)
	require.NoError(t, err)
	_, err = provider.Up(ctx)
	require.NoError(t, err)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback() })

	var userID string
	err = tx.QueryRowContext(ctx,
		`INSERT INTO users (name, email, password_hash) VALUES ('a', 'constraint@example.com', 'x') RETURNING id`,
	).Scan(&userID)
	require.NoError(t, err)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO trips (user_id, title, start_date, end_date) VALUES ($1, 't', '2025-06-10', '2025-06-01')`, userID)
	assert.Error(t, err)
}

func tableExists(t *testing.T, db *sql.DB, table string) bool {
	t.Helper()
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)`
	var exists bool
	require.NoError(t, db.QueryRowContext(context.Background(), q, table).Scan(&exists))
	return exists
}
