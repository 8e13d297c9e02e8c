// Package research talks to the external research-QA sidecar.
//
// The sidecar indexes uploaded papers and answers questions with
// citations. This package only speaks its HTTP interface: AddPaper
// registers a PDF, Answer asks a question. When the sidecar cannot
// ground an answer in the indexed papers it signals that explicitly,
// which surfaces here as ErrNoAnswer so callers can fall back to the
// plain model.
package research
