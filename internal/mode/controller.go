// ABOUTME: Controller owns per-user mode and effort settings
// ABOUTME: Mutations happen only via explicit commands, never from conversation content

package mode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/2389/ponder/internal/session"
)

// ErrInvalidEffort is returned when an effort value cannot be parsed
// as an integer. Out-of-range integers are clamped, not rejected.
var ErrInvalidEffort = errors.New("effort must be an integer")

// Status reports a user's current settings. Both fields are always
// populated regardless of mode.
type Status struct {
	Mode   session.Mode
	Effort int
}

// Controller reads and mutates per-user mode/effort settings through
// the session manager. Callers are expected to hold the user's session
// lock; the controller itself performs no locking.
type Controller struct {
	sessions  *session.Manager
	minEffort int
	maxEffort int
	logger    *slog.Logger
}

// NewController creates a controller clamping effort to [min, max].
func NewController(sessions *session.Manager, minEffort, maxEffort int, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		sessions:  sessions,
		minEffort: minEffort,
		maxEffort: maxEffort,
		logger:    logger.With("component", "mode"),
	}
}

// SetMode overwrites the user's mode unconditionally.
func (c *Controller) SetMode(ctx context.Context, userID string, m session.Mode) error {
	sess, err := c.sessions.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	sess.Mode = m
	if err := c.sessions.Save(ctx, sess); err != nil {
		return err
	}
	c.logger.Info("mode changed", "user", userID, "mode", m)
	return nil
}

// Toggle flips the user's mode between normal and scaling and returns
// the new mode.
func (c *Controller) Toggle(ctx context.Context, userID string) (session.Mode, error) {
	sess, err := c.sessions.GetOrCreate(ctx, userID)
	if err != nil {
		return "", err
	}
	if sess.Mode == session.ModeScaling {
		sess.Mode = session.ModeNormal
	} else {
		sess.Mode = session.ModeScaling
	}
	if err := c.sessions.Save(ctx, sess); err != nil {
		return "", err
	}
	c.logger.Info("mode toggled", "user", userID, "mode", sess.Mode)
	return sess.Mode, nil
}

// SetEffort parses raw as an integer, clamps it to the configured
// range, stores it, and returns the effective value so the caller can
// report any clamping. Unparseable input yields ErrInvalidEffort and
// no state change.
func (c *Controller) SetEffort(ctx context.Context, userID, raw string) (int, error) {
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidEffort, raw)
	}

	effective := min(max(value, c.minEffort), c.maxEffort)

	sess, err := c.sessions.GetOrCreate(ctx, userID)
	if err != nil {
		return 0, err
	}
	sess.Effort = effective
	if err := c.sessions.Save(ctx, sess); err != nil {
		return 0, err
	}
	c.logger.Info("effort changed", "user", userID, "effort", effective, "requested", value)
	return effective, nil
}

// Status reports the user's current mode and effort.
func (c *Controller) Status(ctx context.Context, userID string) (Status, error) {
	sess, err := c.sessions.GetOrCreate(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	return Status{Mode: sess.Mode, Effort: sess.Effort}, nil
}

// Range returns the configured [min, max] effort bounds.
func (c *Controller) Range() (int, int) {
	return c.minEffort, c.maxEffort
}
