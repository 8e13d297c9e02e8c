// ABOUTME: Manager owns per-user session lifecycle, trimming and write-through persistence
// ABOUTME: Serializes all operations on one user's session behind a per-user lock

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrNotFound is returned by Persistence when no session exists for a user.
var ErrNotFound = errors.New("session not found")

// ErrDanglingAssistant is returned when an assistant turn would become
// the first turn of a session, which the model service rejects.
var ErrDanglingAssistant = errors.New("assistant turn cannot start a session")

// Persistence is what the manager needs from durable storage.
// Put must be atomic: a session is either fully written or unchanged.
type Persistence interface {
	Get(ctx context.Context, userID string) (*Session, error)
	Put(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, userID string) error
}

// Manager loads, mutates and persists per-user sessions. Every mutation
// is written through to storage before the caller is acknowledged, so a
// crash between turns never loses state.
type Manager struct {
	store         Persistence
	maxTokens     int
	defaultMode   Mode
	defaultEffort int
	logger        *slog.Logger

	locks sync.Map // userID -> *sync.Mutex
}

// NewManager creates a session manager bounded by maxContextTokens.
// New sessions start with the given default mode and effort.
func NewManager(p Persistence, maxContextTokens int, defaultMode Mode, defaultEffort int, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:         p,
		maxTokens:     maxContextTokens,
		defaultMode:   defaultMode,
		defaultEffort: defaultEffort,
		logger:        logger.With("component", "session"),
	}
}

// Lock enters the user's critical section and returns the unlock func.
// All operations that touch one user's session must run inside it;
// sessions of distinct users never contend.
func (m *Manager) Lock(userID string) func() {
	v, _ := m.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// GetOrCreate loads the user's session, lazily creating an empty one
// with default mode/effort on first use.
func (m *Manager) GetOrCreate(ctx context.Context, userID string) (*Session, error) {
	sess, err := m.store.Get(ctx, userID)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("loading session for %s: %w", userID, err)
	}

	sess = &Session{
		UserID: userID,
		Mode:   m.defaultMode,
		Effort: m.defaultEffort,
	}
	if err := m.put(ctx, sess); err != nil {
		return nil, err
	}
	m.logger.Debug("created session", "user", userID)
	return sess, nil
}

// AppendTurn appends a single turn; see AppendTurns.
func (m *Manager) AppendTurn(ctx context.Context, sess *Session, turn Turn) error {
	return m.AppendTurns(ctx, sess, turn)
}

// AppendTurns appends turns in order, trims if the history exceeds the
// capacity bound, and persists once. The append is all-or-nothing: on
// persistence failure the in-memory session is restored, so a failed
// downstream call never leaves a partial turn behind. Appending a full
// user/assistant pair in one call keeps even that pair atomic.
func (m *Manager) AppendTurns(ctx context.Context, sess *Session, turns ...Turn) error {
	if len(turns) == 0 {
		return nil
	}
	if turns[0].Role == RoleAssistant && len(sess.Turns) == 0 {
		return ErrDanglingAssistant
	}

	before := sess.Turns
	sess.Turns = append(append([]Turn(nil), sess.Turns...), turns...)
	m.trimIfNeeded(sess)

	if err := m.put(ctx, sess); err != nil {
		sess.Turns = before
		return err
	}
	return nil
}

// Save persists the session as-is. Used for settings mutations that do
// not touch the turn history.
func (m *Manager) Save(ctx context.Context, sess *Session) error {
	return m.put(ctx, sess)
}

// DeleteHistory empties the user's turn history, leaving mode and
// effort untouched, and persists immediately.
func (m *Manager) DeleteHistory(ctx context.Context, userID string) error {
	sess, err := m.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	sess.Turns = nil
	if err := m.put(ctx, sess); err != nil {
		return err
	}
	m.logger.Info("deleted history", "user", userID)
	return nil
}

// put writes through to storage, retrying once on failure.
func (m *Manager) put(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = time.Now().UTC()
	err := m.store.Put(ctx, sess)
	if err == nil {
		return nil
	}
	m.logger.Warn("session write failed, retrying", "user", sess.UserID, "error", err)
	if err = m.store.Put(ctx, sess); err != nil {
		return fmt.Errorf("persisting session for %s: %w", sess.UserID, err)
	}
	return nil
}

// trimIfNeeded removes the oldest user/assistant pairs until the
// history fits the capacity bound. A pinned leading system turn is
// never removed, and the remaining sequence never starts with an
// assistant turn. When no complete pair is removable, the oldest turn
// (plus any assistant turn it would leave dangling) is force-dropped
// with a warning rather than blocking the conversation. The newest
// turn is never dropped.
func (m *Manager) trimIfNeeded(sess *Session) {
	for sess.EstimatedTokens() > m.maxTokens {
		start := 0
		if len(sess.Turns) > 0 && sess.Turns[0].Role == RoleSystem {
			start = 1
		}
		rest := sess.Turns[start:]
		if len(rest) <= 1 {
			// Only the current turn remains; nothing left to drop.
			m.logger.Warn("session exceeds capacity after trimming",
				"user", sess.UserID,
				"tokens", sess.EstimatedTokens(),
				"bound", m.maxTokens,
			)
			return
		}

		if rest[0].Role == RoleUser && rest[1].Role == RoleAssistant {
			if len(rest) == 2 {
				// The last remaining pair alone exceeds the bound.
				m.logger.Warn("single pair exceeds capacity, dropping it",
					"user", sess.UserID,
					"tokens", sess.EstimatedTokens(),
					"bound", m.maxTokens,
				)
			}
			sess.Turns = append(sess.Turns[:start], rest[2:]...)
			continue
		}

		// No complete leading pair: force-drop the oldest turn, and the
		// assistant turn it would leave at the head.
		drop := 1
		if len(rest) > 1 && rest[1].Role == RoleAssistant {
			drop = 2
		}
		m.logger.Warn("force-dropping oldest turns",
			"user", sess.UserID,
			"dropped", drop,
		)
		sess.Turns = append(sess.Turns[:start], rest[drop:]...)
	}
}
