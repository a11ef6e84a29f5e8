// Package core owns per-session visualizer state and the operations the web
// layer performs on it.
//
// It is independent of HTTP: handlers, tests and tools drive it through
// [Service].
//
// # Sessions
//
// A [Session] is created on first contact and identified by a uuid. It holds
// at most one dataset together with its column sets and the eight-panel
// board. Uploading a file replaces all three at once; a failed upload leaves
// them untouched. Idle sessions are evicted by the sweeper started with
// [Service.StartSessionSweeper].
//
// # Uploads
//
// Parsing runs under an [UploadLimiter] so a burst of large spreadsheets
// cannot exhaust memory. Every attempt, successful or not, is written to an
// [UploadRecorder]: PostgreSQL when a database is configured, an in-memory
// ring otherwise. Only upload metadata is stored.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with [MapError]. Each
// message carries a code for support reference:
//
//   - FILE001-FILE005: upload problems (size, format, headers, emptiness)
//   - DATA001-DATA002: dataset state (nothing loaded, nothing to plot)
//   - PNL001-PNL004: panel configuration (index, column, kind, type)
//   - SES001: expired or unknown session
//   - UPL001-UPL002: upload capacity and timeouts
//   - RATE001: request throttling
//   - REQ001: malformed request
package core
