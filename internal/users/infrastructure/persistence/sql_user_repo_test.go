package persistence_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/felixgeelhaar/conduit/internal/shared/application"
	"github.com/felixgeelhaar/conduit/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/conduit/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/conduit/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/conduit/internal/users/domain"
	"github.com/felixgeelhaar/conduit/internal/users/infrastructure/persistence"
)

func newTestRepo(t *testing.T) (*persistence.SQLUserRepository, *database.Manager) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	conn := sqlite.NewConnectionFromDB(db)
	require.NoError(t, migrations.Run(context.Background(), conn))

	m := database.NewManager()
	require.NoError(t, m.Register(database.DefaultAlias, conn))
	return persistence.NewSQLUserRepository(m), m
}

func TestSQLUserRepository_CreateAndGet(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	user := domain.NewUser(uuid.New(), "alice", "alice@example.com", domain.UserTypeAdmin)
	require.NoError(t, repo.Create(ctx, user))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, domain.UserTypeAdmin, got.UserType)

	got, err = repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestSQLUserRepository_DuplicateUsernameConflicts(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, domain.NewUser(uuid.New(), "alice", "alice@example.com", "")))

	err := repo.Create(ctx, domain.NewUser(uuid.New(), "alice", "other@example.com", ""))
	require.Error(t, err)
	appErr, ok := application.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, application.KindConflict, appErr.Kind)
}

func TestSQLUserRepository_GetMissingIsNotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.GetByID(context.Background(), uuid.New())
	require.Error(t, err)
	appErr, ok := application.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, application.KindNotFound, appErr.Kind)
}

func TestSQLUserRepository_UpdateMissingIsNotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	err := repo.Update(context.Background(), domain.NewUser(uuid.New(), "ghost", "g@example.com", ""))
	require.Error(t, err)
	appErr, ok := application.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, application.KindNotFound, appErr.Kind)
}

func TestSQLUserRepository_DeleteRemovesRow(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	user := domain.NewUser(uuid.New(), "alice", "alice@example.com", "")
	require.NoError(t, repo.Create(ctx, user))
	require.NoError(t, repo.Delete(ctx, user.ID))

	_, err := repo.GetByID(ctx, user.ID)
	require.Error(t, err)
}

func TestSQLUserRepository_List(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	for _, name := range []string{"alice", "bob", "carol"} {
		require.NoError(t, repo.Create(ctx, domain.NewUser(uuid.New(), name, name+"@example.com", "")))
	}

	users, total, err := repo.List(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, users, 2)

	users, total, err = repo.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, users, 1)
}

func TestSQLUserRepository_WritesJoinOpenTransaction(t *testing.T) {
	repo, m := newTestRepo(t)
	ctx := context.Background()

	conn, err := m.Get(database.DefaultAlias)
	require.NoError(t, err)
	uow := database.NewUnitOfWork(conn, database.DefaultAlias, nil)

	txCtx, err := uow.Begin(ctx)
	require.NoError(t, err)

	user := domain.NewUser(uuid.New(), "alice", "alice@example.com", "")
	require.NoError(t, repo.Create(txCtx, user))
	require.NoError(t, uow.Rollback(txCtx))

	_, err = repo.GetByID(ctx, user.ID)
	require.Error(t, err)
}
