// Package session implements the per-connection protocol engine: the
// lifecycle state machine routing client events, the outbound multiplexer
// ordering server events onto the wire, and the handler supervising the
// session's concurrent tasks as one unit.
package session
