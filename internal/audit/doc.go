// Package audit records security events.
//
// # Components
//
//   - [Ledger]: bounded in-memory event history queried by email.
//   - [Sink]: consumer interface for streamed events (channel, JSON lines, no-op).
//   - [Dispatcher]: buffered async relay in front of a Sink, with drop-if-full
//     or block-if-full behavior.
//
// # Architecture boundaries
//
// This package stores and relays events. It does NOT decide which events to
// record; the Engine does.
package audit
