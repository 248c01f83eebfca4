// Package audit records security-relevant engine outcomes.
//
// The engine decides which [Event]s to emit; a [Dispatcher] buffers them and
// hands them to a [Sink] (zap, JSON lines, channel, no-op) on its own
// goroutine so request paths never wait on audit I/O.
package audit
