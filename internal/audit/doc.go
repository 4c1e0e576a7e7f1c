// Package audit implements async event dispatching for gate decisions.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, zap logger, capped Redis list).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: structured record with timestamp, flow, IP, reason, policy, metadata.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit; that belongs to the Gate.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import waitgate or any sibling internal package.
//   - Block the caller's admission path when DropIfFull is set.
package audit
