// Package logtail reads the tail of the session log for the in-app log pane.
//
// Read keeps a ring buffer of the last N lines so large files are scanned
// once with O(N) memory. Parse turns a line written by the session logger,
// JSON or console format, into an Entry with its level, component, message
// and remaining fields. Lines it does not recognize keep their text as the
// message so nothing is dropped from the pane.
//
// A missing log file reads as empty. Other I/O errors are returned wrapped.
package logtail
