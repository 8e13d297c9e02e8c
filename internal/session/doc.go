// Package session models per-user conversations and owns their
// lifecycle: lazy creation, append-with-trim, history deletion, and
// synchronous write-through persistence.
//
// Each user owns exactly one session. Operations on a session run
// inside a per-user critical section (Manager.Lock), so rapid-fire
// messages from one user cannot interleave or duplicate turns, while
// distinct users proceed fully in parallel.
//
// The turn sequence always begins with a user turn (or a pinned
// leading system turn) so that requests built from it satisfy the
// model service's contract. Trimming removes whole user/assistant
// pairs, oldest first, and preserves that invariant structurally.
package session
