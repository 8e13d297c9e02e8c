package model

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/ponder/internal/session"
)

func TestGate_AcquireRelease(t *testing.T) {
	gate := NewGate(6000, 10, 2, time.Second)
	ctx := context.Background()

	release1, err := gate.Acquire(ctx)
	require.NoError(t, err)
	release2, err := gate.Acquire(ctx)
	require.NoError(t, err)

	release1()
	release2()

	release3, err := gate.Acquire(ctx)
	require.NoError(t, err)
	release3()
}

func TestGate_ConcurrencyCapTimesOut(t *testing.T) {
	gate := NewGate(6000, 10, 1, 50*time.Millisecond)
	ctx := context.Background()

	release, err := gate.Acquire(ctx)
	require.NoError(t, err)
	defer release()

	// Second acquire waits for the held slot and gives up
	start := time.Now()
	_, err = gate.Acquire(ctx)
	require.ErrorIs(t, err, ErrRateLimited)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGate_RateTokenTimesOut(t *testing.T) {
	// One request per minute, burst 1: the second request cannot get a
	// token within the bounded wait.
	gate := NewGate(1, 1, 4, 50*time.Millisecond)
	ctx := context.Background()

	release, err := gate.Acquire(ctx)
	require.NoError(t, err)
	release()

	_, err = gate.Acquire(ctx)
	require.ErrorIs(t, err, ErrRateLimited)
}

func TestBuildMessages_RolesAndBlocks(t *testing.T) {
	turns := []session.Turn{
		session.TextTurn(session.RoleUser, "question one"),
		session.TextTurn(session.RoleAssistant, "answer one"),
		session.NewTurn(session.RoleUser,
			session.TextBlock("see attached"),
			session.ImageBlock("aGVsbG8=", "image/png"),
		),
	}

	messages, extraSystem := buildMessages(turns, "")
	require.Len(t, messages, 3)
	assert.Empty(t, extraSystem)
	assert.Equal(t, anthropic.MessageParamRoleUser, messages[0].Role)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, messages[1].Role)
	assert.Len(t, messages[2].Content, 2)
}

func TestBuildMessages_PinnedSystemTurnLifted(t *testing.T) {
	turns := []session.Turn{
		session.TextTurn(session.RoleSystem, "be terse"),
		session.TextTurn(session.RoleUser, "hello"),
	}

	messages, extraSystem := buildMessages(turns, "")
	require.Len(t, messages, 1)
	assert.Equal(t, "be terse", extraSystem)
	assert.Equal(t, anthropic.MessageParamRoleUser, messages[0].Role)
}

func TestBuildMessages_DirectiveFoldsIntoTrailingUserTurn(t *testing.T) {
	turns := []session.Turn{
		session.TextTurn(session.RoleUser, "question"),
	}

	messages, _ := buildMessages(turns, "Think step by step.")
	require.Len(t, messages, 1)
	require.Len(t, messages[0].Content, 2)
}

func TestBuildMessages_DirectiveAfterAssistantTurn(t *testing.T) {
	turns := []session.Turn{
		session.TextTurn(session.RoleUser, "question"),
		session.TextTurn(session.RoleAssistant, "partial reasoning"),
	}

	messages, _ := buildMessages(turns, "Continue.")
	require.Len(t, messages, 3)
	assert.Equal(t, anthropic.MessageParamRoleUser, messages[2].Role)
}

// apiErr builds a populated API error the way the SDK surfaces them.
func apiErr(status int) *anthropic.Error {
	req, _ := http.NewRequest(http.MethodPost, "https://api.anthropic.com/v1/messages", nil)
	return &anthropic.Error{StatusCode: status, Request: req}
}

func TestMapError(t *testing.T) {
	assert.ErrorIs(t, mapError(context.DeadlineExceeded), ErrTimeout)
	assert.ErrorIs(t, mapError(errors.New("connection refused")), ErrUpstream)
	assert.ErrorIs(t, mapError(apiErr(429)), ErrRateLimited)
	assert.ErrorIs(t, mapError(apiErr(504)), ErrTimeout)
	assert.ErrorIs(t, mapError(apiErr(500)), ErrUpstream)
	assert.ErrorIs(t, mapError(apiErr(400)), ErrUpstream)
}
