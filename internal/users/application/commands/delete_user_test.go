package commands_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/conduit/internal/shared/application"
	"github.com/felixgeelhaar/conduit/internal/users/application/commands"
)

func TestDeleteUserHandler_Success(t *testing.T) {
	repo := newFakeUserRepo()
	user := seedUser(repo)
	events := &fakeDispatcher{}
	h := commands.NewDeleteUserHandler(repo, events, nil)

	res, err := h.Handle(context.Background(), &commands.DeleteUserCommand{ID: user.ID.String()})
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Empty(t, repo.users)

	require.Len(t, events.emitted, 1)
	evt := events.emitted[0]
	assert.Equal(t, "User", evt.Entity)
	assert.Equal(t, "Deleted", evt.Action)
	assert.Equal(t, user.ID.String(), evt.AggregateID)
	assert.Equal(t, "alice", evt.Payload["username"])
}

func TestDeleteUserHandler_UnknownUser(t *testing.T) {
	events := &fakeDispatcher{}
	h := commands.NewDeleteUserHandler(newFakeUserRepo(), events, nil)

	_, err := h.Handle(context.Background(), &commands.DeleteUserCommand{ID: uuid.NewString()})
	require.Error(t, err)
	appErr, ok := application.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, application.KindNotFound, appErr.Kind)
	assert.Empty(t, events.emitted)
}

func TestDeleteUserHandler_RequiresID(t *testing.T) {
	h := commands.NewDeleteUserHandler(newFakeUserRepo(), &fakeDispatcher{}, nil)

	_, err := h.Handle(context.Background(), &commands.DeleteUserCommand{})
	require.Error(t, err)
	appErr, ok := application.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, application.KindValidation, appErr.Kind)
}
