// Package config handles configuration loading for ponder.
//
// Configuration is loaded from a TOML file with ${VAR} environment
// variable expansion, so credentials can stay out of the file:
//
//	[matrix]
//	homeserver = "https://matrix.example.org"
//	user_id = "@ponder:example.org"
//	access_token = "${PONDER_MATRIX_TOKEN}"
//
//	[anthropic]
//	api_key = "${ANTHROPIC_API_KEY}"
//
// All other sections have working defaults; see Load and defaults.
package config
