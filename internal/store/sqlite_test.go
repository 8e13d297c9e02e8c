package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/ponder/internal/session"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func TestStore_GetMissing(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.Get(context.Background(), "nobody")
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	sess := &session.Session{
		UserID: "@alice:example.org",
		Turns: []session.Turn{
			session.TextTurn(session.RoleUser, "hello"),
			session.TextTurn(session.RoleAssistant, "hi there"),
		},
		Mode:      session.ModeScaling,
		Effort:    3,
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}

	require.NoError(t, store.Put(ctx, sess))

	got, err := store.Get(ctx, "@alice:example.org")
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, got.UserID)
	require.Len(t, got.Turns, 2)
	assert.Equal(t, session.RoleUser, got.Turns[0].Role)
	assert.Equal(t, "hello", got.Turns[0].Text())
	assert.Equal(t, session.ModeScaling, got.Mode)
	assert.Equal(t, 3, got.Effort)
}

func TestStore_PutOverwrites(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	sess := &session.Session{UserID: "@bob:example.org", Mode: session.ModeNormal, Effort: 1}
	require.NoError(t, store.Put(ctx, sess))

	sess.Turns = append(sess.Turns, session.TextTurn(session.RoleUser, "first"))
	sess.Effort = 5
	require.NoError(t, store.Put(ctx, sess))

	got, err := store.Get(ctx, "@bob:example.org")
	require.NoError(t, err)
	assert.Len(t, got.Turns, 1)
	assert.Equal(t, 5, got.Effort)
}

func TestStore_EmptyTurns(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	// A nil turn slice round-trips as empty, not as a decode error.
	sess := &session.Session{UserID: "@carol:example.org", Mode: session.ModeNormal}
	require.NoError(t, store.Put(ctx, sess))

	got, err := store.Get(ctx, "@carol:example.org")
	require.NoError(t, err)
	assert.Empty(t, got.Turns)
}

func TestStore_ContentBlocksSurvive(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	turn := session.NewTurn(session.RoleUser,
		session.TextBlock("see attached"),
		session.ImageBlock("aGVsbG8=", "image/png"),
		session.DocumentBlock("cGRm", "application/pdf"),
	)
	sess := &session.Session{UserID: "@dave:example.org", Turns: []session.Turn{turn}, Mode: session.ModeNormal}
	require.NoError(t, store.Put(ctx, sess))

	got, err := store.Get(ctx, "@dave:example.org")
	require.NoError(t, err)
	require.Len(t, got.Turns, 1)
	require.Len(t, got.Turns[0].Blocks, 3)
	assert.Equal(t, session.BlockImage, got.Turns[0].Blocks[1].Type)
	assert.Equal(t, "image/png", got.Turns[0].Blocks[1].MimeType)
	assert.Equal(t, "aGVsbG8=", got.Turns[0].Blocks[1].Data)
	assert.Equal(t, session.BlockDocument, got.Turns[0].Blocks[2].Type)
}

func TestStore_Delete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	sess := &session.Session{UserID: "@eve:example.org", Mode: session.ModeNormal}
	require.NoError(t, store.Put(ctx, sess))
	require.NoError(t, store.Delete(ctx, "@eve:example.org"))

	_, err := store.Get(ctx, "@eve:example.org")
	require.ErrorIs(t, err, session.ErrNotFound)

	// Deleting again is a no-op
	require.NoError(t, store.Delete(ctx, "@eve:example.org"))
}
