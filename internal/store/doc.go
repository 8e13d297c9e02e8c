// Package store provides SQLite-backed persistence for user sessions.
//
// Each user's full session (turn history plus mode/effort settings) is
// stored in a single row and written atomically, so the on-disk state
// is always a consistent snapshot of the conversation.
package store
