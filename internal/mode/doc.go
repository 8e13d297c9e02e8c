// Package mode manages per-session answering mode and effort settings.
package mode
