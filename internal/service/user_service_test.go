package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berrylive/live-service/internal/domain"
)

func TestRegisterCreatesLevelOneUser(t *testing.T) {
	env := newTestEnv(t)

	user, err := env.userSvc.Register(context.Background(), "  alice  ")
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, 1, user.Level)
	assert.Equal(t, int64(0), user.Diamonds)
	assert.Equal(t, int64(0), user.Earnings)
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.userSvc.Register(context.Background(), "alice")
	require.NoError(t, err)

	_, err = env.userSvc.Register(context.Background(), "alice")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRegisterRejectsBlankUsername(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.userSvc.Register(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSetWithdrawalMethod(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "host", 0, 0)

	user, err := env.userSvc.SetWithdrawalMethod(context.Background(), "host", &domain.WithdrawalMethod{
		Kind: "pix",
		Key:  "host@bank",
	})
	require.NoError(t, err)
	require.NotNil(t, user.WithdrawalMethod)
	assert.Equal(t, "pix", user.WithdrawalMethod.Kind)
	assert.Contains(t, env.pub.userMessageTypes("host"), domain.MsgUserUpdated)

	// Clearing the method blocks withdrawals again.
	user, err = env.userSvc.SetWithdrawalMethod(context.Background(), "host", nil)
	require.NoError(t, err)
	assert.Nil(t, user.WithdrawalMethod)
}

func TestSetWithdrawalMethodValidation(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "host", 0, 0)

	_, err := env.userSvc.SetWithdrawalMethod(context.Background(), "host", &domain.WithdrawalMethod{Kind: "pix"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.userSvc.SetWithdrawalMethod(context.Background(), "nobody", &domain.WithdrawalMethod{Kind: "pix", Key: "k"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
