package outbox_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/felixgeelhaar/conduit/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/conduit/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/conduit/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/conduit/internal/shared/infrastructure/outbox"
)

func newTestManager(t *testing.T) *database.Manager {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	conn := sqlite.NewConnectionFromDB(db)
	require.NoError(t, migrations.Run(context.Background(), conn))

	m := database.NewManager()
	require.NoError(t, m.Register(database.DefaultAlias, conn))
	return m
}

func TestSQLRepository_AddAndGetUnprocessed(t *testing.T) {
	m := newTestManager(t)
	repo := outbox.NewSQLRepository(m, "")
	ctx := context.Background()

	err := repo.Add(ctx, "User", "u1", "Created", map[string]any{"username": "alice"}, "main")
	require.NoError(t, err)

	records, err := repo.GetUnprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "User", rec.AggregateType)
	assert.Equal(t, "u1", rec.AggregateID)
	assert.Equal(t, "Created", rec.EventType)
	assert.Equal(t, "main", rec.TenantID)
	assert.False(t, rec.Processed)
	assert.JSONEq(t, `{"username":"alice"}`, string(rec.Payload))
}

func TestSQLRepository_AddJoinsOpenTransaction(t *testing.T) {
	m := newTestManager(t)
	repo := outbox.NewSQLRepository(m, "")
	ctx := context.Background()

	uow := database.NewUnitOfWork(mustConn(t, m), database.DefaultAlias, nil)
	txCtx, err := uow.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.Add(txCtx, "User", "u1", "Created", map[string]any{}, "main"))
	require.NoError(t, uow.Rollback(txCtx))

	// The rollback took the outbox record with it.
	records, err := repo.GetUnprocessed(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSQLRepository_MarkProcessed(t *testing.T) {
	m := newTestManager(t)
	repo := outbox.NewSQLRepository(m, "")
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, "User", "u1", "Created", map[string]any{}, "main"))
	records, err := repo.GetUnprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	require.NoError(t, repo.MarkProcessed(ctx, records[0].ID))
	records, err = repo.GetUnprocessed(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSQLRepository_MarkFailedDefersUntilRetryTime(t *testing.T) {
	m := newTestManager(t)
	repo := outbox.NewSQLRepository(m, "")
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, "User", "u1", "Created", map[string]any{}, "main"))
	records, err := repo.GetUnprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	require.NoError(t, repo.MarkFailed(ctx, records[0].ID, "broker down", time.Now().Add(time.Hour)))

	// Not yet due.
	records, err = repo.GetUnprocessed(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSQLRepository_MarkFailedRetryDue(t *testing.T) {
	m := newTestManager(t)
	repo := outbox.NewSQLRepository(m, "")
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, "User", "u1", "Created", map[string]any{}, "main"))
	records, err := repo.GetUnprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	require.NoError(t, repo.MarkFailed(ctx, records[0].ID, "broker down", time.Now().Add(-time.Second)))

	records, err = repo.GetUnprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].RetryCount)
	require.NotNil(t, records[0].LastError)
	assert.Equal(t, "broker down", *records[0].LastError)
}

func TestSQLRepository_MarkDeadExcludesRecord(t *testing.T) {
	m := newTestManager(t)
	repo := outbox.NewSQLRepository(m, "")
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, "User", "u1", "Created", map[string]any{}, "main"))
	records, err := repo.GetUnprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	require.NoError(t, repo.MarkDead(ctx, records[0].ID, "gave up"))
	records, err = repo.GetUnprocessed(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSQLRepository_DeleteOld(t *testing.T) {
	m := newTestManager(t)
	repo := outbox.NewSQLRepository(m, "")
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, "User", "u1", "Created", map[string]any{}, "main"))
	records, err := repo.GetUnprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NoError(t, repo.MarkProcessed(ctx, records[0].ID))

	// Retention of zero makes everything processed eligible.
	deleted, err := repo.DeleteOld(ctx, -time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestManager_SharesRepositoriesPerAlias(t *testing.T) {
	m := newTestManager(t)
	om := outbox.NewManager(m)

	assert.Same(t, om.For("default"), om.For(""))
	assert.Same(t, om.For("default"), om.For("default"))
}

func mustConn(t *testing.T, m *database.Manager) database.Connection {
	t.Helper()
	conn, err := m.Get(database.DefaultAlias)
	require.NoError(t, err)
	return conn
}
