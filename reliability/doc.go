// Package reliability implements the delivery guarantees layered on top of
// a channel.MessageChannel: exponential-backoff retry, frame-id dedupe for
// exactly-once processing, partial-chunk recovery, session resumption, and
// send-rate pacing (spec §6, §7).
package reliability
