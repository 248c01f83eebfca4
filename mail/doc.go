// Package mail renders and delivers out-of-band messages: confirmation links
// and second-factor codes.
//
// # Delivery model
//
// [Queue] accepts a [Message] and returns as soon as it is buffered. A small
// pool of workers renders the template and hands the body to a [Transport].
// A full buffer is reported as [ErrQueueFull]; a transport failure is logged
// and the message is discarded.
package mail
