// Package chat provides the high-level message handling service.
//
// # Overview
//
// The chat package sits between the transport (the Matrix bridge) and
// everything else: sessions, mode control, attachment ingestion, the
// research sidecar, and the model clients. A transport converts an
// incoming message into an InboundEvent and calls Handle; the service
// returns the reply text to send back.
//
// # Handling a message
//
// Handle runs inside the author's per-user critical section:
//
//  1. If the message carries a recognized command, execute it and
//     return the confirmation text. Commands never touch history.
//  2. Otherwise decode attachments into content blocks, register any
//     PDFs with the research sidecar, and build the candidate request
//     from stored history plus the new user turn.
//  3. Produce the answer: research sidecar first when configured,
//     falling back to the model (direct call or the iterated
//     reasoning scheduler, depending on the session's mode).
//  4. Persist the user turn and the assistant turn together.
//
// A turn is persisted only after an answer exists, so a failed model
// call leaves the stored conversation exactly as it was.
package chat
