package mail

import "errors"

var (
	// ErrQueueFull reports that the bounded queue had no room for a message.
	ErrQueueFull = errors.New("mail: queue full")
	// ErrQueueClosed reports an enqueue after Close.
	ErrQueueClosed = errors.New("mail: queue closed")
	// ErrUnknownTemplate reports a message naming a template that was not loaded.
	ErrUnknownTemplate = errors.New("mail: unknown template")
)
