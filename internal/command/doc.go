// Package command parses the chat control command surface.
//
// Recognized commands:
//
//   - scale: toggle iterated reasoning on or off
//   - effort <n>: set the reasoning effort budget
//   - status: report current mode and effort
//   - delete-history: clear the stored conversation
//
// Parsing is strict about shape: a recognized verb with the wrong
// number of arguments is not a command, and the text falls through to
// normal conversation handling.
package command
