// Package logging wires slog for the daemon: one logger per module, each
// with its own level that can change at runtime.
//
// Every record goes to up to three sinks:
//   - stdout, as text or JSON, when stdout is a terminal, pipe, socket or file
//   - the systemd journal when journald is reachable, with attributes as
//     structured fields
//   - an in-memory ring buffer served by /api/logs and streamed over SSE
//
// Modules used by the daemon are indicator, render, led, buzzer, nats,
// sources, api and http. A module logger carries a "module" attribute:
//
//	logger := logging.GetLogger("render").With("worker", "light")
//	logger.Debug("Toggle", "color", "red")
//
// Levels are set globally and overridden per module. In the config file
// every key of [logging] other than level, format and buffer_size names a
// module:
//
//	[logging]
//	level = "info"
//	format = "text"
//	buffer_size = 500
//	render = "debug"
//	nats = "warn"
//
// Module levels are re-read when the file changes. The journal can be
// filtered on the same fields:
//
//	journalctl -t indicatord MODULE=render WORKER=light
package logging
