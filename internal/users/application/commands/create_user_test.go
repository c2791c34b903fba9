package commands_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/conduit/internal/shared/application"
	"github.com/felixgeelhaar/conduit/internal/shared/application/saga"
	"github.com/felixgeelhaar/conduit/internal/users/application/commands"
	"github.com/felixgeelhaar/conduit/internal/users/domain"
)

type fakeUserRepo struct {
	users     map[uuid.UUID]*domain.User
	createErr error
	updateErr error
	deleteErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]*domain.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.users[user.ID]; !ok {
		return application.NewNotFound("user not found")
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.users[id]; !ok {
		return application.NewNotFound("user not found")
	}
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	return application.RequireFound(r.users[id], "user not found")
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, application.NewNotFound("user not found")
}

func (r *fakeUserRepo) List(context.Context, int, int) ([]*domain.User, int64, error) {
	users := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u)
	}
	return users, int64(len(users)), nil
}

type fakeDispatcher struct {
	emitted []saga.EmitOptions
}

func (d *fakeDispatcher) Emit(_ context.Context, opts saga.EmitOptions) {
	d.emitted = append(d.emitted, opts)
}

func (d *fakeDispatcher) AfterCommit(ctx context.Context, factory func() *saga.Event, alias string) {
	evt := factory()
	d.emitted = append(d.emitted, saga.EmitOptions{
		Entity:      evt.Entity,
		Action:      evt.Action,
		EventType:   evt.EventType,
		Payload:     evt.Payload,
		AggregateID: evt.AggregateID,
		Alias:       alias,
	})
}

func TestCreateUserHandler_Success(t *testing.T) {
	repo := newFakeUserRepo()
	events := &fakeDispatcher{}
	h := commands.NewCreateUserHandler(repo, events, nil)

	res, err := h.Handle(context.Background(), &commands.CreateUserCommand{
		Username: "alice",
		Email:    "alice@example.com",
	})
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Len(t, repo.users, 1)

	require.Len(t, events.emitted, 1)
	evt := events.emitted[0]
	assert.Equal(t, "User", evt.Entity)
	assert.Equal(t, "Created", evt.Action)
	assert.Equal(t, "alice", evt.Payload["username"])
	assert.NotEmpty(t, evt.AggregateID)
}

func TestCreateUserHandler_DefaultsUserType(t *testing.T) {
	repo := newFakeUserRepo()
	h := commands.NewCreateUserHandler(repo, &fakeDispatcher{}, nil)

	_, err := h.Handle(context.Background(), &commands.CreateUserCommand{
		Username: "bob",
		Email:    "bob@example.com",
	})
	require.NoError(t, err)
	for _, u := range repo.users {
		assert.Equal(t, domain.UserTypeStandard, u.UserType)
	}
}

func TestCreateUserHandler_ValidationFaults(t *testing.T) {
	h := commands.NewCreateUserHandler(newFakeUserRepo(), &fakeDispatcher{}, nil)

	cases := []struct {
		name string
		cmd  *commands.CreateUserCommand
	}{
		{"missing username", &commands.CreateUserCommand{Email: "a@b.com"}},
		{"invalid email", &commands.CreateUserCommand{Username: "alice", Email: "nope"}},
		{"unknown user type", &commands.CreateUserCommand{Username: "alice", Email: "a@b.com", UserType: "root"}},
		{"malformed id", &commands.CreateUserCommand{Username: "alice", Email: "a@b.com", ID: "not-a-uuid"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.Handle(context.Background(), tc.cmd)
			require.Error(t, err)
			appErr, ok := application.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, application.KindValidation, appErr.Kind)
		})
	}
}

func TestCreateUserHandler_NoEventOnRepositoryFailure(t *testing.T) {
	repo := newFakeUserRepo()
	repo.createErr = application.NewConflict("username or email already taken")
	events := &fakeDispatcher{}
	h := commands.NewCreateUserHandler(repo, events, nil)

	_, err := h.Handle(context.Background(), &commands.CreateUserCommand{
		Username: "alice",
		Email:    "alice@example.com",
	})
	require.Error(t, err)
	appErr, ok := application.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, application.KindConflict, appErr.Kind)
	assert.Empty(t, events.emitted)
}

func TestCreateUserHandler_ExplicitID(t *testing.T) {
	repo := newFakeUserRepo()
	h := commands.NewCreateUserHandler(repo, &fakeDispatcher{}, nil)

	id := uuid.New()
	res, err := h.Handle(context.Background(), &commands.CreateUserCommand{
		ID:       id.String(),
		Username: "carol",
		Email:    "carol@example.com",
	})
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Contains(t, repo.users, id)
}
